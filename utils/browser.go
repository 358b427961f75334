package utils

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/chromedp/chromedp"

	"cambridge-collector/internal/types"
)

// BrowserClient renders JavaScript-heavy pages (the dealer portal is a
// single-page storefront) with a headless browser and returns the
// resulting HTML.
type BrowserClient struct {
	config *types.Config
	logger types.Logger
}

// NewBrowserClient creates a new browser client
func NewBrowserClient(config *types.Config, logger types.Logger) *BrowserClient {
	// Suppress chromedp debug logging
	log.SetOutput(io.Discard)

	return &BrowserClient{
		config: config,
		logger: logger,
	}
}

// GetPageContent retrieves the rendered HTML content of a page
func (b *BrowserClient) GetPageContent(ctx context.Context, url string) (string, error) {
	browserCtx, cancel := chromedp.NewContext(ctx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, b.config.Timeout)
	defer cancel()

	var html string

	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(500*time.Millisecond), // let the storefront hydrate
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("failed to get page content: %w", err)
	}

	b.logger.Debugf("Successfully retrieved page content from %s (%d bytes)", url, len(html))
	return html, nil
}
