// Package qualer is a minimal client for the Qualer quality-management web
// application. Qualer has no token API for SOP uploads; the client drives
// the same browser flow the web UI uses: a cookie session, CSRF verification
// tokens, and form posts.
package qualer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the production Qualer instance for this workflow.
	DefaultBaseURL = "https://jgiquality.qualer.com"

	defaultRequestTimeout = 60 * time.Second
	defaultUserAgent      = "xlci/dev"

	// csrfCookiePrefix is the name prefix of the anti-forgery cookie Qualer
	// sets on the login page.
	csrfCookiePrefix = "__RequestVerificationToken_"
)

// Sentinel errors for the login/upload flow.
var (
	ErrNoVerificationToken = errors.New("no request verification token")
	ErrAuthFailed          = errors.New("authentication failed")
)

// Client is a session-holding Qualer client. It is not safe for concurrent
// use; the CI workflow runs one upload per process.
type Client struct {
	BaseURL    string
	UserAgent  string
	HTTPClient *http.Client
}

// New creates a Client for the given Qualer instance. The underlying HTTP
// client keeps session cookies and does not follow redirects, because the
// login flow treats the 302 itself as the success signal.
func New(baseURL string) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	return &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		UserAgent: defaultUserAgent,
		HTTPClient: &http.Client{
			Jar:     jar,
			Timeout: defaultRequestTimeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}, nil
}

// Login establishes an authenticated session. It fetches the login page to
// seed the anti-forgery cookie, then posts the credential form including the
// cookie's token under the cookie's own name. Qualer answers a successful
// login with a 302 to the return URL; any other status is a failure.
func (c *Client) Login(ctx context.Context, email, password string) error {
	resp, err := c.get(ctx, "/login")
	if err != nil {
		return err
	}

	drainBody(resp)

	name, value, err := c.csrfCookie()
	if err != nil {
		return err
	}

	form := url.Values{
		"Email":    {email},
		"Password": {password},
		name:       {value},
	}

	resp, err = c.postForm(ctx, "/login?returnUrl=%2FSop%2FSops_Read", form)
	if err != nil {
		return err
	}

	drainBody(resp)

	if resp.StatusCode != http.StatusFound {
		return fmt.Errorf("%w: status %d", ErrAuthFailed, resp.StatusCode)
	}

	return nil
}

// csrfCookie returns the name and value of the anti-forgery cookie the login
// page planted in the session jar.
func (c *Client) csrfCookie() (name, value string, err error) {
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", "", fmt.Errorf("parse base URL: %w", err)
	}

	for _, cookie := range c.HTTPClient.Jar.Cookies(base) {
		if strings.HasPrefix(cookie.Name, csrfCookiePrefix) {
			return cookie.Name, cookie.Value, nil
		}
	}

	return "", "", fmt.Errorf("%w: cookie %s* not set by login page", ErrNoVerificationToken, csrfCookiePrefix)
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}

	return resp, nil
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", path, err)
	}

	return resp, nil
}

// drainBody consumes and closes a response body so the transport can reuse
// the connection.
func drainBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
