package utils

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/net/proxy"

	"videoripper/internal"
)

// RetryConfig defines the pause between retry attempts. Attempt counts are
// owned by the callers, which know what is worth repeating.
type RetryConfig struct {
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	Multiplier    float64
	JitterPercent float64
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		BaseDelay:     0,
		MaxDelay:      10 * time.Second,
		Multiplier:    2.0,
		JitterPercent: 0.1,
	}
}

// Delay returns the pause before the given attempt (attempt 0 never waits)
func (r *RetryConfig) Delay(attempt int) time.Duration {
	if r == nil || attempt <= 0 || r.BaseDelay <= 0 {
		return 0
	}

	delay := float64(r.BaseDelay) * math.Pow(r.Multiplier, float64(attempt-1))
	delay += delay * r.JitterPercent * (rand.Float64()*2 - 1)

	if r.MaxDelay > 0 && delay > float64(r.MaxDelay) {
		delay = float64(r.MaxDelay)
	}
	if delay < 0 {
		delay = float64(r.BaseDelay)
	}

	return time.Duration(delay)
}

// Wait sleeps for the attempt's delay or until ctx is done
func (r *RetryConfig) Wait(ctx context.Context, attempt int) error {
	delay := r.Delay(attempt)
	if delay == 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HTTPClientConfig contains configuration for the HTTP client
type HTTPClientConfig struct {
	// Timeout bounds each request; zero leaves the bound to the caller's context
	Timeout  time.Duration
	ProxyURL string
	Cookies  []*http.Cookie
}

// HTTPClient issues single requests with fixed headers and optional cookies.
// It does not retry; callers classify the outcome with ClassifyResponse.
type HTTPClient struct {
	client  *http.Client
	mutex   sync.RWMutex
	cookies []*http.Cookie
}

// NewHTTPClient creates a new HTTP client with default configuration
func NewHTTPClient() *HTTPClient {
	client, _ := NewHTTPClientWithConfig(&HTTPClientConfig{})
	return client
}

// NewHTTPClientWithConfig creates a new HTTP client with custom configuration
func NewHTTPClientWithConfig(config *HTTPClientConfig) (*HTTPClient, error) {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       90 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}

	if config.ProxyURL != "" {
		if err := configureProxy(transport, config.ProxyURL); err != nil {
			return nil, err
		}
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   config.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}

	return &HTTPClient{
		client:  client,
		cookies: config.Cookies,
	}, nil
}

// configureProxy sets up an HTTP(S) or SOCKS5 proxy on the transport
func configureProxy(transport *http.Transport, proxyURL string) error {
	parsedURL, err := url.Parse(proxyURL)
	if err != nil {
		return internal.NewValidationErrorWithValue("proxy", "invalid proxy URL", proxyURL).
			WithContext("error", err.Error())
	}

	switch parsedURL.Scheme {
	case "http", "https":
		transport.Proxy = http.ProxyURL(parsedURL)
	case "socks5", "socks5h":
		var auth *proxy.Auth
		if parsedURL.User != nil {
			password, _ := parsedURL.User.Password()
			auth = &proxy.Auth{User: parsedURL.User.Username(), Password: password}
		}
		dialer, err := proxy.SOCKS5("tcp", parsedURL.Host, auth, proxy.Direct)
		if err != nil {
			return fmt.Errorf("failed to create SOCKS5 proxy: %w", err)
		}
		if contextDialer, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = contextDialer.DialContext
		} else {
			transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
	default:
		return internal.NewValidationErrorWithValue("proxy", "unsupported proxy scheme", parsedURL.Scheme).
			WithSuggestion("Use http://, https:// or socks5://")
	}

	return nil
}

// SetCookies replaces the cookies sent with every request
func (c *HTTPClient) SetCookies(cookies []*http.Cookie) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.cookies = cookies
}

// Get performs a single GET request of rawURL with query and headers applied
func (c *HTTPClient) Get(ctx context.Context, rawURL string, query url.Values, headers map[string]string) (*http.Response, error) {
	target := rawURL
	if len(query) > 0 {
		target = rawURL + "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range headers {
		if key == "Host" {
			req.Host = value
			continue
		}
		req.Header.Set(key, value)
	}

	c.mutex.RLock()
	for _, cookie := range c.cookies {
		req.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
	}
	c.mutex.RUnlock()

	logger := internal.GetLogger()
	logger.LogHTTPRequest(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}

	logger.LogHTTPResponse(resp)
	return resp, nil
}

// ClassifyResponse maps a request outcome onto the crawl error taxonomy. It
// returns nil for a 2xx response. The caller still owns resp.Body.
func ClassifyResponse(resp *http.Response, err error) error {
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return internal.NewTransientError(0, "request failed", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusForbidden:
		return internal.NewAccessDeniedError(resp.Request.URL.String())
	default:
		return internal.NewTransientError(resp.StatusCode, fmt.Sprintf("unexpected HTTP status: %s", resp.Status), nil)
	}
}
