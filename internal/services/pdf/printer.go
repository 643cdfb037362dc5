package pdf

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Printer renders a URL to PDF bytes
type Printer interface {
	PrintToPDF(ctx context.Context, url string) ([]byte, error)
}

// A4 in inches, the unit the DevTools protocol expects
const (
	a4Width  = 8.27
	a4Height = 11.69
)

// maxIdleWait bounds the wait for network idle. Pages that keep a
// connection open are printed once it passes.
const maxIdleWait = 15 * time.Second

// ChromePrinter drives a headless Chrome instance per call
type ChromePrinter struct {
	execPath   string
	extraDelay time.Duration
	timeout    time.Duration
}

// NewChromePrinter creates a printer. An empty execPath lets chromedp find Chrome.
func NewChromePrinter(execPath string, extraDelay, timeout time.Duration) *ChromePrinter {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ChromePrinter{execPath: execPath, extraDelay: extraDelay, timeout: timeout}
}

// PrintToPDF loads url, waits for the network to go idle (fonts and images
// loaded) and the extra delay, then prints A4 with zero margins and
// backgrounds.
func (p *ChromePrinter) PrintToPDF(ctx context.Context, url string) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
	)
	if p.execPath != "" {
		opts = append(opts, chromedp.ExecPath(p.execPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	idle := newIdleTracker()
	chromedp.ListenTarget(browserCtx, idle.observe)

	runCtx, cancel := context.WithTimeout(browserCtx, p.timeout)
	defer cancel()

	var out []byte
	var loader cdp.LoaderID
	err := chromedp.Run(runCtx,
		page.SetLifecycleEventsEnabled(true),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, id, errorText, err := page.Navigate(url).Do(ctx)
			if err != nil {
				return err
			}
			if errorText != "" {
				return fmt.Errorf("page load error %s", errorText)
			}
			loader = id
			return nil
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			return idle.wait(ctx, loader, maxIdleWait)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(p.extraDelay),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(a4Width).
				WithPaperHeight(a4Height).
				WithMarginTop(0).
				WithMarginBottom(0).
				WithMarginLeft(0).
				WithMarginRight(0).
				WithPreferCSSPageSize(true).
				Do(ctx)
			if err != nil {
				return err
			}
			out = data
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("headless print failed: %w", err)
	}
	return out, nil
}

// idleTracker records which page loads have reached networkIdle
type idleTracker struct {
	mu     sync.Mutex
	idle   map[cdp.LoaderID]bool
	signal chan struct{}
}

func newIdleTracker() *idleTracker {
	return &idleTracker{idle: map[cdp.LoaderID]bool{}, signal: make(chan struct{}, 1)}
}

// observe is a target listener; it must not block
func (t *idleTracker) observe(ev interface{}) {
	e, ok := ev.(*page.EventLifecycleEvent)
	if !ok || e.Name != "networkIdle" {
		return
	}
	t.mu.Lock()
	t.idle[e.LoaderID] = true
	t.mu.Unlock()
	select {
	case t.signal <- struct{}{}:
	default:
	}
}

func (t *idleTracker) reached(loader cdp.LoaderID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.idle[loader]
}

// wait blocks until loader is idle or limit has passed. Running out of time
// is not an error.
func (t *idleTracker) wait(ctx context.Context, loader cdp.LoaderID, limit time.Duration) error {
	timer := time.NewTimer(limit)
	defer timer.Stop()
	for !t.reached(loader) {
		select {
		case <-t.signal:
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
