package chrome

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/flood-sensor-etl/internal/domain"
)

func TestRenderError(t *testing.T) {
	t.Run("page load timeout", func(t *testing.T) {
		tabCtx, cancel := context.WithTimeout(context.Background(), 0)
		defer cancel()
		<-tabCtx.Done()

		err := renderError(context.Background(), tabCtx, context.DeadlineExceeded)
		require.ErrorIs(t, err, domain.ErrRenderTimeout)
	})

	t.Run("caller canceled", func(t *testing.T) {
		callerCtx, cancel := context.WithCancel(context.Background())
		cancel()

		err := renderError(callerCtx, callerCtx, context.Canceled)
		require.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, domain.ErrRenderTimeout)
	})

	t.Run("other failure", func(t *testing.T) {
		err := renderError(context.Background(), context.Background(), errors.New("net::ERR_NAME_NOT_RESOLVED"))
		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrRenderTimeout)
		assert.Contains(t, err.Error(), "render page")
	})
}

func TestAllocatorOptions_ExecPath(t *testing.T) {
	base := len(NewRenderer("", nil).allocatorOptions())
	assert.Len(t, NewRenderer("/usr/bin/chromium", nil).allocatorOptions(), base+1)
}
