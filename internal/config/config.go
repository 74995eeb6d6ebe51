package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Renderer backends selectable with RENDERER.
const (
	RendererChrome = "chrome"
	RendererFile   = "file"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	SourceURL       string
	ReadySelector   string
	Renderer        string
	RendererFixture string
	ChromePath      string
	PageLoadTimeout time.Duration

	PollInterval  time.Duration
	RetryAttempts int
	RetryDelay    time.Duration

	TaxonomyFile string

	// Snapshot mirrors. Empty paths or brokers disable the corresponding mirror.
	SnapshotJSONPath string
	RawCSVPath       string
	MirrorEnabled    bool
	ArchivePath      string
	ArchiveMaxAge    time.Duration
	KafkaBrokers     []string
	KafkaTopic       string

	HTTPAddr           string
	CORSAllowedOrigins []string
	LogLevel           string
	LogFormat          string
	ShutdownTimeout    time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	pageLoadTimeout, err := parseDuration("PAGE_LOAD_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	pollInterval, err := parseDuration("POLL_INTERVAL", "60s")
	if err != nil {
		return nil, err
	}
	retryDelay, err := parseDuration("RETRY_DELAY", "5s")
	if err != nil {
		return nil, err
	}
	archiveMaxAge, err := parseDuration("ARCHIVE_MAX_AGE", "168h")
	if err != nil {
		return nil, err
	}
	retryAttempts, err := parsePositiveInt("RETRY_ATTEMPTS", 3)
	if err != nil {
		return nil, err
	}
	mirrorEnabled, err := parseBool("MIRROR_ENABLED", true)
	if err != nil {
		return nil, err
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		SourceURL:       sharedcfg.EnvOrDefault("SOURCE_URL", "https://web.iriseup.ph/sensor_networks"),
		ReadySelector:   sharedcfg.EnvOrDefault("READY_SELECTOR", "table tbody tr"),
		Renderer:        sharedcfg.EnvOrDefault("RENDERER", RendererChrome),
		RendererFixture: os.Getenv("RENDERER_FIXTURE"),
		ChromePath:      os.Getenv("CHROME_PATH"),
		PageLoadTimeout: pageLoadTimeout,

		PollInterval:  pollInterval,
		RetryAttempts: retryAttempts,
		RetryDelay:    retryDelay,

		TaxonomyFile: os.Getenv("TAXONOMY_FILE"),

		SnapshotJSONPath: sharedcfg.EnvOrDefault("SNAPSHOT_JSON_PATH", "sensor_data.json"),
		RawCSVPath:       sharedcfg.EnvOrDefault("RAW_CSV_PATH", "sensor_data.csv"),
		MirrorEnabled:    mirrorEnabled,
		ArchivePath:      sharedcfg.EnvOrDefault("ARCHIVE_PATH", "data/snapshots.db"),
		ArchiveMaxAge:    archiveMaxAge,
		KafkaBrokers:     brokers,
		KafkaTopic:       sharedcfg.EnvOrDefault("KAFKA_TOPIC", "sensor-snapshots"),

		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		CORSAllowedOrigins: splitList(sharedcfg.EnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
	}

	if cfg.SourceURL == "" {
		return nil, errors.New("SOURCE_URL is required")
	}
	if cfg.ReadySelector == "" {
		return nil, errors.New("READY_SELECTOR is required")
	}
	switch cfg.Renderer {
	case RendererChrome:
	case RendererFile:
		if cfg.RendererFixture == "" {
			return nil, errors.New("RENDERER is file but RENDERER_FIXTURE is not set")
		}
	default:
		return nil, fmt.Errorf("invalid RENDERER %q: want chrome or file", cfg.Renderer)
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}

func parseBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: must be true or false", key)
	}
	return b, nil
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
