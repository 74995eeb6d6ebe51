package domain

import "errors"

var (
	// ErrRenderTimeout is returned by renderers when the ready condition did not
	// appear within the page-load timeout. Transient; the poller retries it.
	ErrRenderTimeout = errors.New("render timeout")

	// ErrExtractionEmpty means the table yielded no usable sensor rows. Usually
	// the page layout changed or loaded partially. Transient; retried.
	ErrExtractionEmpty = errors.New("no sensor rows extracted")

	// ErrRetriesExhausted aborts a cycle after the last failed attempt. The
	// previous snapshot stays in place.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrStoreUnavailable is returned when a persisted snapshot store cannot be
	// reached. It fails the single operation only.
	ErrStoreUnavailable = errors.New("snapshot store unavailable")
)
