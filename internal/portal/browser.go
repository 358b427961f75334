package portal

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// browserSession is a persistent headless browser tab. The dealer portal
// is a single-page storefront that only renders product data after login,
// so the session (and its cookies) must outlive individual fetches.
type browserSession struct {
	ctx     context.Context
	cancels []context.CancelFunc
}

func newBrowserSession(parent context.Context) *browserSession {
	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, chromedp.DefaultExecAllocatorOptions[:]...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	return &browserSession{
		ctx:     tabCtx,
		cancels: []context.CancelFunc{tabCancel, allocCancel},
	}
}

func (s *browserSession) close() {
	for _, cancel := range s.cancels {
		cancel()
	}
}

// browserLogin fills and submits the storefront login form.
func (c *Client) browserLogin(ctx context.Context) error {
	if c.browser == nil {
		c.browser = newBrowserSession(context.Background())
	}

	runCtx, cancel := context.WithTimeout(c.browser.ctx, c.config.Timeout)
	defer cancel()

	err := chromedp.Run(runCtx,
		chromedp.Navigate(c.config.PortalOrigin),
		chromedp.WaitVisible(`input[type="email"], input[name="email"], input#login-email`, chromedp.ByQuery),
		chromedp.SendKeys(`input[type="email"], input[name="email"], input#login-email`, c.config.PortalUsername, chromedp.ByQuery),
		chromedp.SendKeys(`input[type="password"], input[name="password"], input#login-password`, c.config.PortalPassword, chromedp.ByQuery),
		chromedp.Click(`button[type="submit"]`, chromedp.ByQuery),
		chromedp.Sleep(3*time.Second), // wait for the post-login redirect to settle
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}

	return nil
}

// browserFetch renders a protected page in the logged-in tab.
func (c *Client) browserFetch(ctx context.Context, fullURL string) (string, error) {
	if c.browser == nil {
		return "", fmt.Errorf("browser session not started")
	}

	runCtx, cancel := context.WithTimeout(c.browser.ctx, c.config.Timeout)
	defer cancel()

	var html string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(fullURL),
		chromedp.Sleep(3*time.Second), // SuiteCommerce pages render client-side
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("failed to fetch page: %w", err)
	}

	return html, nil
}
