// Package chrome renders the sensor dashboard in headless Chrome via the
// DevTools protocol and extracts the visible table cells.
package chrome

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/couchcryptid/flood-sensor-etl/internal/domain"
	"github.com/couchcryptid/flood-sensor-etl/internal/pipeline"
)

// extractTable returns the header and body cell text of the first table.
const extractTable = `(() => {
	const text = (el) => (el.innerText || "").trim();
	const table = document.querySelector("table");
	if (!table) return { header: [], rows: [] };
	const header = Array.from(table.querySelectorAll("thead th")).map(text);
	const rows = Array.from(table.querySelectorAll("tbody tr"))
		.map((tr) => Array.from(tr.querySelectorAll("td")).map(text));
	return { header, rows };
})()`

type extracted struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// Renderer launches a fresh browser per session.
type Renderer struct {
	execPath string
	logger   *slog.Logger
}

// NewRenderer returns a Renderer. An empty execPath lets chromedp locate Chrome.
func NewRenderer(execPath string, logger *slog.Logger) *Renderer {
	return &Renderer{execPath: execPath, logger: logger}
}

func (r *Renderer) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Headless,
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.IgnoreCertErrors,
		chromedp.WindowSize(1920, 1080),
	)
	if r.execPath != "" {
		opts = append(opts, chromedp.ExecPath(r.execPath))
	}
	return opts
}

// Open starts a browser and returns a session bound to it. The browser lives
// until Close or until ctx is canceled.
func (r *Renderer) Open(ctx context.Context) (pipeline.Session, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, r.allocatorOptions()...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Run with no actions launches the browser so start-up failures surface here.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	r.logger.Debug("browser session opened")
	return &session{
		ctx:    browserCtx,
		logger: r.logger,
		cancel: func() {
			browserCancel()
			allocCancel()
		},
	}, nil
}

type session struct {
	ctx    context.Context
	logger *slog.Logger
	cancel func()
	once   sync.Once
	err    error
}

// Render navigates to url, waits for readySelector to become visible, and
// extracts the table. Waiting longer than timeout yields ErrRenderTimeout.
func (s *session) Render(ctx context.Context, url, readySelector string, timeout time.Duration) (domain.Table, error) {
	tabCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var out extracted
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.WaitVisible(readySelector, chromedp.ByQuery),
		chromedp.Evaluate(extractTable, &out),
	)
	if err != nil {
		return domain.Table{}, renderError(ctx, tabCtx, err)
	}
	return domain.Table{Header: out.Header, Rows: out.Rows}, nil
}

// renderError distinguishes caller cancellation from the page-load timeout.
func renderError(callerCtx, tabCtx context.Context, err error) error {
	if callerCtx.Err() != nil {
		return fmt.Errorf("render canceled: %w", callerCtx.Err())
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(tabCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", domain.ErrRenderTimeout, err)
	}
	return fmt.Errorf("render page: %w", err)
}

// Close shuts the browser down. Safe to call more than once.
func (s *session) Close() error {
	s.once.Do(func() {
		s.err = chromedp.Cancel(s.ctx)
		s.cancel()
		s.logger.Debug("browser session closed")
	})
	if s.err != nil && !errors.Is(s.err, context.Canceled) {
		return fmt.Errorf("close browser: %w", s.err)
	}
	return nil
}
