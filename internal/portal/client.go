// Package portal implements the authenticated dealer portal client:
// login handshake, session retention, and fetching of protected pages.
package portal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"cambridge-collector/internal/types"
)

// ErrLoginFailed reports a failed portal login. The orchestrator treats it
// as fatal for the affected variant's portal step only.
var ErrLoginFailed = errors.New("portal login failed")

const loginPath = "/login"

// Client holds an authenticated session against the dealer portal.
// Callers must Close the client when their unit of portal work completes.
type Client struct {
	config   *types.Config
	logger   types.Logger
	http     *http.Client
	browser  *browserSession
	loggedIn bool
}

// NewClient creates an unauthenticated portal client.
func NewClient(config *types.Config, logger types.Logger) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		config: config,
		logger: logger,
		http: &http.Client{
			Timeout: config.Timeout,
			Jar:     jar,
		},
	}
}

// Login performs the credential handshake and retains the session.
// Subsequent Fetch calls reuse it. Returns ErrLoginFailed on rejection.
func (c *Client) Login(ctx context.Context) error {
	if c.loggedIn {
		return nil
	}
	if c.config.PortalUsername == "" || c.config.PortalPassword == "" {
		return fmt.Errorf("%w: missing credentials", ErrLoginFailed)
	}

	c.logger.Info("Logging in to dealer portal...")

	if c.config.UseHeadlessBrowser {
		if err := c.browserLogin(ctx); err != nil {
			return err
		}
		c.loggedIn = true
		c.logger.Info("Successfully logged in to dealer portal")
		return nil
	}

	form := url.Values{}
	form.Set("email", c.config.PortalUsername)
	form.Set("password", c.config.PortalPassword)

	req, err := http.NewRequestWithContext(ctx, "POST",
		c.config.PortalOrigin+loginPath, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: status %d", ErrLoginFailed, resp.StatusCode)
	}

	origin, err := url.Parse(c.config.PortalOrigin)
	if err != nil || len(c.http.Jar.Cookies(origin)) == 0 {
		return fmt.Errorf("%w: no session cookie issued", ErrLoginFailed)
	}

	c.loggedIn = true
	c.logger.Info("Successfully logged in to dealer portal")
	return nil
}

// Fetch retrieves a protected page using the retained session. The URL may
// be relative to the portal origin.
func (c *Client) Fetch(ctx context.Context, pageURL string) (string, error) {
	if !c.loggedIn {
		if err := c.Login(ctx); err != nil {
			return "", err
		}
	}

	fullURL := pageURL
	if strings.HasPrefix(pageURL, "/") {
		fullURL = c.config.PortalOrigin + pageURL
	}

	c.logger.Debugf("Fetching portal page: %s", fullURL)

	if c.config.UseHeadlessBrowser {
		return c.browserFetch(ctx, fullURL)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", fullURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	return string(body), nil
}

// FetchJSON retrieves a protected API endpoint using the retained session.
func (c *Client) FetchJSON(ctx context.Context, apiURL string) ([]byte, error) {
	if !c.loggedIn {
		if err := c.Login(ctx); err != nil {
			return nil, err
		}
	}

	fullURL := apiURL
	if strings.HasPrefix(apiURL, "/") {
		fullURL = c.config.PortalOrigin + apiURL
	}

	req, err := http.NewRequestWithContext(ctx, "GET", fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// LoggedIn reports whether a session is currently held.
func (c *Client) LoggedIn() bool {
	return c.loggedIn
}

// Close releases the session and any browser resources.
func (c *Client) Close() {
	if c.browser != nil {
		c.browser.close()
		c.browser = nil
	}
	c.loggedIn = false
}
