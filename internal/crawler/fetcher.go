package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// FetchErrorKind classifies why a fetch failed.
type FetchErrorKind int

const (
	// FetchErrorProtocol covers malformed requests or responses,
	// unsupported schemes and any failure not classified otherwise.
	FetchErrorProtocol FetchErrorKind = iota

	// FetchErrorTimeout means the request exceeded the configured timeout.
	FetchErrorTimeout

	// FetchErrorDNS means the host name could not be resolved.
	FetchErrorDNS

	// FetchErrorConnection means the TCP or TLS connection failed.
	FetchErrorConnection

	// FetchErrorBody means the response arrived but reading the body failed.
	FetchErrorBody

	// FetchErrorCanceled means the crawl context was canceled.
	FetchErrorCanceled
)

// String returns a short name for the kind.
func (k FetchErrorKind) String() string {
	switch k {
	case FetchErrorProtocol:
		return "protocol"
	case FetchErrorTimeout:
		return "timeout"
	case FetchErrorDNS:
		return "dns"
	case FetchErrorConnection:
		return "connection"
	case FetchErrorBody:
		return "body"
	case FetchErrorCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// FetchError is the failure result of Fetch. A failed URL is terminal: it is
// not retried and yields no links.
type FetchError struct {
	URL  string
	Kind FetchErrorKind
	Err  error
}

// Error implements error.
func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Response is a successfully fetched resource. Any HTTP status counts as
// success; only network-level failures produce a FetchError.
type Response struct {
	// URL is the requested URL.
	URL string

	// FinalURL is the URL after redirects.
	FinalURL string

	// StatusCode is the status of the final response.
	StatusCode int

	// ContentType is the raw Content-Type header.
	ContentType string

	// Header contains all response headers.
	Header http.Header

	// Body is the response body, truncated to the configured maximum.
	Body []byte
}

// Fetcher performs single GET requests.
type Fetcher struct {
	client      *http.Client
	userAgent   string
	timeout     time.Duration
	maxBodySize int64
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithFetchTimeout bounds each fetch including the body read.
func WithFetchTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithFetchUserAgent sets the User-Agent header of each request.
func WithFetchUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithFetchMaxBodySize limits the number of body bytes read.
func WithFetchMaxBodySize(size int64) FetcherOption {
	return func(f *Fetcher) {
		f.maxBodySize = size
	}
}

// NewFetcher creates a Fetcher around client. A nil client gets a plain
// http.Client that follows up to 10 redirects.
func NewFetcher(client *http.Client, opts ...FetcherOption) *Fetcher {
	if client == nil {
		client = &http.Client{CheckRedirect: limitRedirects}
	}

	f := &Fetcher{
		client:      client,
		userAgent:   DefaultUserAgent,
		timeout:     DefaultTimeout,
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch issues a GET for rawURL. Every failure is returned as a *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Kind: FetchErrorProtocol, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Kind: classifyFetchError(ctx, err), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		kind := classifyFetchError(ctx, err)
		if kind == FetchErrorProtocol {
			kind = FetchErrorBody
		}
		return nil, &FetchError{URL: rawURL, Kind: kind, Err: err}
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &Response{
		URL:         rawURL,
		FinalURL:    finalURL,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Header:      resp.Header,
		Body:        body,
	}, nil
}

// classifyFetchError maps a transport error to a FetchErrorKind.
// Cancellation of the parent context is distinguished from the per-request
// deadline.
func classifyFetchError(ctx context.Context, err error) FetchErrorKind {
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return FetchErrorCanceled
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && !dnsErr.IsTimeout {
		return FetchErrorDNS
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return FetchErrorTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FetchErrorTimeout
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return FetchErrorConnection
	}

	return FetchErrorProtocol
}
