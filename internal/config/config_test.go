package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFixture = "testdata/table.csv"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://web.iriseup.ph/sensor_networks", cfg.SourceURL)
	assert.Equal(t, "table tbody tr", cfg.ReadySelector)
	assert.Equal(t, RendererChrome, cfg.Renderer)
	assert.Empty(t, cfg.RendererFixture)
	assert.Empty(t, cfg.ChromePath)
	assert.Equal(t, 30*time.Second, cfg.PageLoadTimeout)
	assert.Equal(t, 60*time.Second, cfg.PollInterval)
	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.Equal(t, 5*time.Second, cfg.RetryDelay)
	assert.Empty(t, cfg.TaxonomyFile)
	assert.Equal(t, "sensor_data.json", cfg.SnapshotJSONPath)
	assert.Equal(t, "sensor_data.csv", cfg.RawCSVPath)
	assert.True(t, cfg.MirrorEnabled)
	assert.Equal(t, "data/snapshots.db", cfg.ArchivePath)
	assert.Equal(t, 168*time.Hour, cfg.ArchiveMaxAge)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "sensor-snapshots", cfg.KafkaTopic)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("SOURCE_URL", "https://app.iriseup.ph/sensor_networks")
	t.Setenv("READY_SELECTOR", "#sensors tr")
	t.Setenv("RENDERER", "file")
	t.Setenv("RENDERER_FIXTURE", testFixture)
	t.Setenv("CHROME_PATH", "/usr/bin/chromium")
	t.Setenv("PAGE_LOAD_TIMEOUT", "45s")
	t.Setenv("POLL_INTERVAL", "10m")
	t.Setenv("RETRY_ATTEMPTS", "5")
	t.Setenv("RETRY_DELAY", "2s")
	t.Setenv("TAXONOMY_FILE", "taxonomy.yaml")
	t.Setenv("SNAPSHOT_JSON_PATH", "/var/lib/sensors/snapshot.json")
	t.Setenv("RAW_CSV_PATH", "/var/lib/sensors/raw.csv")
	t.Setenv("MIRROR_ENABLED", "false")
	t.Setenv("ARCHIVE_PATH", "/var/lib/sensors/archive.db")
	t.Setenv("ARCHIVE_MAX_AGE", "24h")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_TOPIC", "custom-snapshots")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://app.iriseup.ph/sensor_networks", cfg.SourceURL)
	assert.Equal(t, "#sensors tr", cfg.ReadySelector)
	assert.Equal(t, RendererFile, cfg.Renderer)
	assert.Equal(t, testFixture, cfg.RendererFixture)
	assert.Equal(t, "/usr/bin/chromium", cfg.ChromePath)
	assert.Equal(t, 45*time.Second, cfg.PageLoadTimeout)
	assert.Equal(t, 10*time.Minute, cfg.PollInterval)
	assert.Equal(t, 5, cfg.RetryAttempts)
	assert.Equal(t, 2*time.Second, cfg.RetryDelay)
	assert.Equal(t, "taxonomy.yaml", cfg.TaxonomyFile)
	assert.Equal(t, "/var/lib/sensors/snapshot.json", cfg.SnapshotJSONPath)
	assert.Equal(t, "/var/lib/sensors/raw.csv", cfg.RawCSVPath)
	assert.False(t, cfg.MirrorEnabled)
	assert.Equal(t, "/var/lib/sensors/archive.db", cfg.ArchivePath)
	assert.Equal(t, 24*time.Hour, cfg.ArchiveMaxAge)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-snapshots", cfg.KafkaTopic)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidDurations(t *testing.T) {
	for _, key := range []string{"PAGE_LOAD_TIMEOUT", "POLL_INTERVAL", "RETRY_DELAY", "ARCHIVE_MAX_AGE"} {
		for _, value := range []string{"bad", "0s", "-1s"} {
			t.Run(key+"="+value, func(t *testing.T) {
				t.Setenv(key, value)
				_, err := Load()
				require.Error(t, err)
				assert.Contains(t, err.Error(), key)
			})
		}
	}
}

func TestLoad_InvalidRetryAttempts(t *testing.T) {
	for _, value := range []string{"0", "-2", "three"} {
		t.Run(value, func(t *testing.T) {
			t.Setenv("RETRY_ATTEMPTS", value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "RETRY_ATTEMPTS")
		})
	}
}

func TestLoad_InvalidMirrorEnabled(t *testing.T) {
	t.Setenv("MIRROR_ENABLED", "sometimes")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MIRROR_ENABLED")
}

func TestLoad_InvalidRenderer(t *testing.T) {
	t.Setenv("RENDERER", "firefox")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RENDERER")
}

func TestLoad_FileRendererWithoutFixture(t *testing.T) {
	t.Setenv("RENDERER", "file")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RENDERER_FIXTURE")
}
