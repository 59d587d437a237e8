package httpfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"freestylecal/internal/errs"
	"freestylecal/internal/ports"
)

const (
	DefaultTimeout      = 10 * time.Second
	defaultMaxBodyBytes = 8 << 20
	acceptHeader        = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	acceptLanguage      = "es-ES,es;q=0.8,en-US;q=0.5,en;q=0.3"
)

type Options struct {
	Timeout      time.Duration
	UserAgent    string
	MaxBodyBytes int64
}

// HTTPError is returned for any non-2xx response.
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

// Client fetches promoter pages with browser-like headers.
type Client struct {
	http    *http.Client
	headers http.Header
	maxBody int64
}

var _ ports.PageFetcher = (*Client)(nil)

func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        20,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return NewWithClient(&http.Client{Timeout: timeout, Transport: tr}, opts)
}

// NewWithClient wraps an existing http.Client; its timeout is left as is.
func NewWithClient(client *http.Client, opts Options) *Client {
	headers := http.Header{}
	headers.Set("Accept", acceptHeader)
	headers.Set("Accept-Language", acceptLanguage)
	if opts.UserAgent != "" {
		headers.Set("User-Agent", opts.UserAgent)
	}

	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}

	return &Client{http: client, headers: headers, maxBody: maxBody}
}

func (c *Client) Fetch(ctx context.Context, url string) (ports.Page, error) {
	if ctx == nil {
		return ports.Page{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return ports.Page{}, errs.Wrap(err, "check context")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ports.Page{}, errs.Wrap(err, "build request")
	}
	for key, values := range c.headers {
		req.Header[key] = append([]string(nil), values...)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return ports.Page{}, errs.Wrapf(err, "GET %s", url)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		return ports.Page{}, errs.Wrapf(err, "read body %s", url)
	}

	page := ports.Page{URL: resp.Request.URL.String(), StatusCode: resp.StatusCode, Body: body}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return page, &HTTPError{URL: url, StatusCode: resp.StatusCode}
	}
	return page, nil
}
