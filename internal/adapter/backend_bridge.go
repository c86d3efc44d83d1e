// Package adapter bridges the dashboard to the upstream trading backend over
// HTTP. The bridge only forwards; it never reinterprets upstream payloads.
package adapter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"rtlab-dashboard/internal/domain"
)

// Identity headers injected on every forwarded call so the upstream can
// authorize without re-parsing the session token. The upstream must accept
// these only from the proxy itself (private network or shared proxy token) —
// a deployment invariant, not an implementation detail.
const (
	HeaderUser       = "X-Rtlab-User"
	HeaderRole       = "X-Rtlab-Role"
	HeaderProxyToken = "X-Internal-Proxy-Token"
)

// EventStreamPath is the upstream SSE endpoint, relative to the base URL.
const EventStreamPath = "/events"

// strippedHeaders are hop-by-hop or identity-leaking headers never forwarded
// upstream. The session cookie stays on our side; the upstream gets identity
// headers instead.
var strippedHeaders = map[string]struct{}{
	"Host":           {},
	"Content-Length": {},
	"Connection":     {},
	"Cookie":         {},
}

// ProxyResult is the outcome of a forwarded call. Exactly one of Body and
// Stream is set: Stream for text/event-stream responses, Body for everything
// else.
type ProxyResult struct {
	StatusCode  int
	ContentType string
	Body        []byte
	Stream      io.ReadCloser
}

// IsStream reports whether the upstream answered with a live event stream.
func (r *ProxyResult) IsStream() bool { return r.Stream != nil }

// BackendBridge forwards REST calls and event streams to the upstream
// trading backend.
type BackendBridge struct {
	baseURL    string
	proxyToken string
	timeout    time.Duration
	rest       *resty.Client
}

// NewBackendBridge creates a bridge to the given base URL. The timeout bounds
// non-streaming calls only; stream lifetime is the caller's to manage via
// context cancellation.
func NewBackendBridge(baseURL, proxyToken string, timeout time.Duration) *BackendBridge {
	r := resty.New()
	// Bodies are buffered or streamed by the bridge itself; resty must not
	// consume them.
	r.SetDoNotParseResponse(true)
	return &BackendBridge{
		baseURL:    strings.TrimRight(baseURL, "/"),
		proxyToken: proxyToken,
		timeout:    timeout,
		rest:       r,
	}
}

// Forward proxies one REST call to the upstream at the same relative path and
// query, forwarding method and body, injecting identity headers and stripping
// hop-by-hop ones. Non-streaming responses are buffered under the configured
// timeout; a response that turns out to be an SSE stream is exempted from the
// timeout and handed back live.
func (b *BackendBridge) Forward(ctx context.Context, method, path, rawQuery string, body []byte, header http.Header, session *domain.Session) (*ProxyResult, error) {
	callCtx, cancel := context.WithCancel(ctx)
	// The timeout must not fire once a stream is detected, so it is a
	// stoppable timer rather than a context deadline.
	timer := time.AfterFunc(b.timeout, cancel)

	req := b.rest.R().SetContext(callCtx)
	for name, values := range header {
		if _, skip := strippedHeaders[http.CanonicalHeaderKey(name)]; skip {
			continue
		}
		req.Header[http.CanonicalHeaderKey(name)] = values
	}
	b.injectIdentity(req, session)
	if len(body) > 0 {
		req.SetBody(body)
	}

	target := b.baseURL + path
	if rawQuery != "" {
		target += "?" + rawQuery
	}

	resp, err := req.Execute(method, target)
	if err != nil {
		timer.Stop()
		cancel()
		return nil, fmt.Errorf("backend call failed: %w", err)
	}

	contentType := resp.Header().Get("Content-Type")
	if strings.HasPrefix(contentType, "text/event-stream") {
		timer.Stop()
		return &ProxyResult{
			StatusCode:  resp.StatusCode(),
			ContentType: contentType,
			Stream:      &cancelReadCloser{rc: resp.RawBody(), cancel: cancel},
		}, nil
	}

	raw := resp.RawBody()
	defer raw.Close()
	buffered, err := io.ReadAll(raw)
	timer.Stop()
	cancel()
	if err != nil {
		return nil, fmt.Errorf("backend response read failed: %w", err)
	}
	return &ProxyResult{
		StatusCode:  resp.StatusCode(),
		ContentType: contentType,
		Body:        buffered,
	}, nil
}

// OpenEventStream opens the upstream SSE endpoint with identity headers and
// the shared proxy token, without a timeout. The returned stream stays open
// until the context is cancelled or the upstream closes it.
func (b *BackendBridge) OpenEventStream(ctx context.Context, session *domain.Session) (io.ReadCloser, error) {
	streamCtx, cancel := context.WithCancel(ctx)

	req := b.rest.R().SetContext(streamCtx)
	req.SetHeader("Accept", "text/event-stream")
	req.SetHeader("Cache-Control", "no-cache")
	req.SetHeader(HeaderProxyToken, b.proxyToken)
	b.injectIdentity(req, session)

	resp, err := req.Get(b.baseURL + EventStreamPath)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("backend event stream failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		resp.RawBody().Close()
		cancel()
		return nil, fmt.Errorf("backend event stream refused: status=%d", resp.StatusCode())
	}
	return &cancelReadCloser{rc: resp.RawBody(), cancel: cancel}, nil
}

func (b *BackendBridge) injectIdentity(req *resty.Request, session *domain.Session) {
	req.SetHeader(HeaderUser, session.Username)
	req.SetHeader(HeaderRole, session.Role)
	if b.proxyToken != "" {
		req.SetHeader(HeaderProxyToken, b.proxyToken)
	}
}

// cancelReadCloser releases the request context together with the body so no
// sockets survive past the client disconnect.
type cancelReadCloser struct {
	rc     io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelReadCloser) Read(p []byte) (int, error) { return c.rc.Read(p) }

func (c *cancelReadCloser) Close() error {
	c.cancel()
	return c.rc.Close()
}
