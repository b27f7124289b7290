// Package browser - chromedp.go provides the headless Chrome substrate.
package browser

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"
)

// DefaultNavigationTimeout bounds a single navigation including redirects.
const DefaultNavigationTimeout = 60 * time.Second

// Options configures the Chrome substrate.
type Options struct {
	// UserDataDir is the root directory for persisted browsing identities.
	// Each context id gets its own profile directory beneath it, so cookies
	// and fingerprint state survive across runs.
	UserDataDir string
	// ContextID selects the profile directory to restore.
	ContextID string
	// Headless runs Chrome without a display. On by default.
	Headless bool
	// NavigationTimeout bounds each Navigate call. Zero means DefaultNavigationTimeout.
	NavigationTimeout time.Duration
	// Verbose logs substrate activity.
	Verbose bool
}

// DefaultOptions returns sensible defaults for headless operation.
func DefaultOptions() *Options {
	return &Options{
		Headless:          true,
		NavigationTimeout: DefaultNavigationTimeout,
	}
}

// Chrome is the chromedp-backed Substrate implementation.
type Chrome struct {
	ctx         context.Context
	cancelAlloc context.CancelFunc
	cancelCtx   context.CancelFunc
	opts        *Options
}

// NewChrome launches a Chrome instance whose profile directory is derived
// from the context id, restoring any previously persisted session state.
// Requires Chrome/Chromium to be installed on the system.
func NewChrome(ctx context.Context, opts *Options) (*Chrome, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.NavigationTimeout == 0 {
		opts.NavigationTimeout = DefaultNavigationTimeout
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1920, 1080),
	)

	if opts.UserDataDir != "" && opts.ContextID != "" {
		profileDir := filepath.Join(opts.UserDataDir, opts.ContextID)
		if err := os.MkdirAll(profileDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create profile directory %s: %w", profileDir, err)
		}
		allocOpts = append(allocOpts, chromedp.UserDataDir(profileDir))
		if opts.Verbose {
			log.Printf("[BROWSER] Using profile directory: %s", profileDir)
		}
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, cancelCtx := chromedp.NewContext(allocCtx)

	// Start the browser up front so a missing Chrome binary fails fast.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelCtx()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	return &Chrome{
		ctx:         browserCtx,
		cancelAlloc: cancelAlloc,
		cancelCtx:   cancelCtx,
		opts:        opts,
	}, nil
}

// Navigate loads the URL and waits for the body to be ready.
func (c *Chrome) Navigate(ctx context.Context, url string) error {
	if c.opts.Verbose {
		log.Printf("[BROWSER] Navigating to: %s", url)
	}

	runCtx, cancel := c.bind(ctx, c.opts.NavigationTimeout)
	defer cancel()

	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
	)
	if err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

// Location returns the current page URL.
func (c *Chrome) Location(ctx context.Context) (string, error) {
	runCtx, cancel := c.bind(ctx, 10*time.Second)
	defer cancel()

	var loc string
	if err := chromedp.Run(runCtx, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("failed to read location: %w", err)
	}
	return loc, nil
}

// Title returns the current document title.
func (c *Chrome) Title(ctx context.Context) (string, error) {
	runCtx, cancel := c.bind(ctx, 10*time.Second)
	defer cancel()

	var title string
	if err := chromedp.Run(runCtx, chromedp.Title(&title)); err != nil {
		return "", fmt.Errorf("failed to read title: %w", err)
	}
	return title, nil
}

// Content returns the rendered HTML of the current page.
func (c *Chrome) Content(ctx context.Context) (string, error) {
	runCtx, cancel := c.bind(ctx, 30*time.Second)
	defer cancel()

	var html string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html)); err != nil {
		return "", fmt.Errorf("failed to read page content: %w", err)
	}
	return html, nil
}

// Screenshot captures the current viewport as PNG bytes.
func (c *Chrome) Screenshot(ctx context.Context) ([]byte, error) {
	runCtx, cancel := c.bind(ctx, 30*time.Second)
	defer cancel()

	var buf []byte
	if err := chromedp.Run(runCtx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return buf, nil
}

// Click clicks the first visible node matching the selector.
func (c *Chrome) Click(ctx context.Context, selector string) error {
	runCtx, cancel := c.bind(ctx, 15*time.Second)
	defer cancel()

	if err := chromedp.Run(runCtx, chromedp.Click(selector, chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("click on %q failed: %w", selector, err)
	}
	return nil
}

// ClickText clicks the first visible element containing the given text,
// using an XPath text match.
func (c *Chrome) ClickText(ctx context.Context, text string) error {
	runCtx, cancel := c.bind(ctx, 15*time.Second)
	defer cancel()

	xpath := fmt.Sprintf(`//button[contains(., %q)] | //a[contains(., %q)] | //span[contains(., %q)]`, text, text, text)
	if err := chromedp.Run(runCtx, chromedp.Click(xpath, chromedp.BySearch, chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("click on text %q failed: %w", text, err)
	}
	return nil
}

// ScrollBy scrolls the window vertically by the given pixel delta.
func (c *Chrome) ScrollBy(ctx context.Context, pixels int) error {
	_, err := c.Evaluate(ctx, fmt.Sprintf("window.scrollBy(0, %d); ''", pixels))
	return err
}

// Evaluate runs a JavaScript expression and returns its string result.
func (c *Chrome) Evaluate(ctx context.Context, expression string) (string, error) {
	runCtx, cancel := c.bind(ctx, 15*time.Second)
	defer cancel()

	var result string
	if err := chromedp.Run(runCtx, chromedp.Evaluate(expression, &result)); err != nil {
		return "", fmt.Errorf("evaluate failed: %w", err)
	}
	return result, nil
}

// Close tears down the browsing context. Profile state on disk is retained.
func (c *Chrome) Close() error {
	c.cancelCtx()
	c.cancelAlloc()
	return nil
}

// bind derives a run context that honors both the caller's cancellation and
// the operation timeout while targeting the long-lived browser context.
func (c *Chrome) bind(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	runCtx, cancelTimeout := context.WithTimeout(c.ctx, timeout)
	stop := context.AfterFunc(ctx, cancelTimeout)
	return runCtx, func() {
		stop()
		cancelTimeout()
	}
}
