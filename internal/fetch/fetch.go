package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/112.0.5615.50 Safari/537.36"

var ErrUnsupportedScheme = errors.New("unsupported URL scheme")

// StatusError is returned for any non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// DefaultHeaders is the browser-like header set sent with every request.
// Set pages refuse requests that do not look like they come from a browser.
func DefaultHeaders() http.Header {
	h := http.Header{}
	h.Set("User-Agent", DefaultUserAgent)
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	h.Set("Accept-Language", "en-US,en;q=0.9")
	return h
}

// Client fetches a single page. There is no retry: a failed fetch fails the run.
type Client struct {
	HTTPClient *http.Client
	// Headers are copied onto every request.
	Headers http.Header
	// Timeout bounds the whole request including reading the body. Zero means none.
	Timeout time.Duration
}

func NewClient(headers http.Header, timeout time.Duration) *Client {
	if headers == nil {
		headers = DefaultHeaders()
	}
	return &Client{
		HTTPClient: &http.Client{},
		Headers:    headers,
		Timeout:    timeout,
	}
}

// Get downloads rawURL and returns its body decoded to UTF-8.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	if !IsHTTPURL(u) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	for key, values := range c.Headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: u.String(), StatusCode: resp.StatusCode}
	}

	body, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return b, nil
}

// IsHTTPURL reports whether u uses the http or https scheme.
func IsHTTPURL(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

// LooksLikeURL reports whether s is an http(s) URL rather than a local path.
func LooksLikeURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && IsHTTPURL(u) && u.Host != ""
}
