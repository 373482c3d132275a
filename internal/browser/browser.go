// Package browser replays report verdicts into the Pre-MQL validation
// forms through headless Chrome.
package browser

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
)

// Browser wraps chromedp for headless Chrome automation
type Browser struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
	config      Config
}

// Config holds browser automation settings
type Config struct {
	Headless     bool
	Timeout      time.Duration
	UserAgent    string
	WindowWidth  int
	WindowHeight int
}

// DefaultConfig returns sensible default browser settings
func DefaultConfig() Config {
	return Config{
		Headless:     true,
		Timeout:      60 * time.Second, // CRM pages are slow behind SSO
		UserAgent:    "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		WindowWidth:  1920,
		WindowHeight: 1080,
	}
}

// New creates a new Browser instance
func New(cfg Config) (*Browser, error) {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.UserAgent(cfg.UserAgent),
		chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),
	}
	if cfg.Headless {
		opts = append(opts, chromedp.Headless)
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	return &Browser{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		ctx:         ctx,
		cancel:      cancel,
		config:      cfg,
	}, nil
}

// Close cleans up browser resources
func (b *Browser) Close() {
	if b.cancel != nil {
		b.cancel()
	}
	if b.allocCancel != nil {
		b.allocCancel()
	}
}

// Run executes chromedp actions under the configured timeout
func (b *Browser) Run(actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(b.ctx, b.config.Timeout)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}
