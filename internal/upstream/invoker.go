// Package upstream issues the outbound call to the selected backend
// under a bounded deadline and reports the raw result without
// interpreting it.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/zeventbooks/MVP-EVENT-TOOLKIT-sub004/internal/routing"
)

// maxBodyBytes caps how much of an upstream body is buffered. Anything
// larger is a misbehaving backend for this API surface.
const maxBodyBytes = 10 << 20

// FailureCause distinguishes invocation failures that never produced a
// response.
type FailureCause string

const (
	// CauseTimeout means the call exceeded the configured deadline and
	// was cancelled.
	CauseTimeout FailureCause = "timeout"

	// CauseNetwork covers every other dispatch-level failure: DNS,
	// connection refused, resets mid-body.
	CauseNetwork FailureCause = "network"

	// CauseConfig means the selected backend has no base URL. The
	// config validator rejects such wiring at startup, so seeing this
	// at runtime is a gateway bug, not an upstream problem.
	CauseConfig FailureCause = "config"
)

// Outcome is the raw result of one invocation attempt. Cause is empty
// when a response arrived, even a 4xx/5xx with an unexpected body.
type Outcome struct {
	Status  int
	Header  http.Header
	Body    []byte
	Elapsed time.Duration
	Cause   FailureCause
	Err     error
}

// Completed reports whether a response arrived at all.
func (o Outcome) Completed() bool { return o.Cause == "" }

// Invoker dispatches requests to one of the two backends.
type Invoker struct {
	client  *http.Client
	bases   map[routing.Backend]*url.URL
	timeout time.Duration
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithHTTPClient replaces the underlying HTTP client, e.g. with a
// fixture-replaying transport in tests.
func WithHTTPClient(c *http.Client) Option {
	return func(iv *Invoker) { iv.client = c }
}

// New builds an Invoker for the two backend base URLs. Either URL may be
// empty when the global mode never selects that backend.
func New(legacyURL, nativeURL string, timeout time.Duration, opts ...Option) (*Invoker, error) {
	iv := &Invoker{
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		bases:   make(map[routing.Backend]*url.URL, 2),
		timeout: timeout,
	}

	for backend, raw := range map[routing.Backend]string{
		routing.BackendLegacy: legacyURL,
		routing.BackendNative: nativeURL,
	} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse %s base URL: %w", backend, err)
		}
		iv.bases[backend] = u
	}

	for _, opt := range opts {
		opt(iv)
	}
	return iv, nil
}

// Timeout returns the configured per-invocation deadline.
func (iv *Invoker) Timeout() time.Duration { return iv.timeout }

// Invoke forwards the inbound request to the selected backend with the
// same method and body, under the configured deadline. The response body
// is fully buffered; a late response after cancellation is discarded by
// the transport, never surfaced.
func (iv *Invoker) Invoke(ctx context.Context, backend routing.Backend, r *http.Request) Outcome {
	base, ok := iv.bases[backend]
	if !ok {
		return Outcome{
			Cause: CauseConfig,
			Err:   fmt.Errorf("no base URL configured for backend %q", backend),
		}
	}

	ctx, cancel := context.WithTimeout(ctx, iv.timeout)
	defer cancel()

	target := *base
	target.Path = singleJoiningSlash(base.Path, r.URL.Path)
	target.RawQuery = r.URL.RawQuery

	start := time.Now()

	out, err := http.NewRequestWithContext(ctx, r.Method, target.String(), r.Body)
	if err != nil {
		return Outcome{Elapsed: time.Since(start), Cause: CauseNetwork, Err: err}
	}
	copyForwardableHeaders(out.Header, r.Header)

	resp, err := iv.client.Do(out)
	if err != nil {
		return Outcome{Elapsed: time.Since(start), Cause: classifyErr(err), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	elapsed := time.Since(start)
	if err != nil {
		// The deadline can also fire mid-body.
		return Outcome{Elapsed: elapsed, Cause: classifyErr(err), Err: err}
	}

	return Outcome{
		Status:  resp.StatusCode,
		Header:  resp.Header,
		Body:    body,
		Elapsed: elapsed,
	}
}

func classifyErr(err error) FailureCause {
	if errors.Is(err, context.DeadlineExceeded) {
		return CauseTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CauseTimeout
	}
	return CauseNetwork
}

// hopByHop headers are connection-scoped and must not be forwarded.
var hopByHop = map[string]bool{
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Te":                  true,
	"Trailer":             true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
}

func copyForwardableHeaders(dst, src http.Header) {
	for k, vv := range src {
		if hopByHop[http.CanonicalHeaderKey(k)] {
			continue
		}
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
}

func singleJoiningSlash(a, b string) string {
	aslash := strings.HasSuffix(a, "/")
	bslash := strings.HasPrefix(b, "/")
	switch {
	case aslash && bslash:
		return a + b[1:]
	case !aslash && !bslash && b != "":
		return a + "/" + b
	}
	return a + b
}
