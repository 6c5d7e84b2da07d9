package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/httptrace/otelhttptrace"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/fd1az/transfer-dashboard/internal/httpclient"

	defaultTimeout         = 10 * time.Second
	defaultMaxBody         = 4 << 20
	defaultMaxConnsPerHost = 4
	defaultIdleConnTimeout = 90 * time.Second
	defaultDialKeepAlive   = 30 * time.Second

	// response bodies on spans are cut to this many bytes
	maxTracedBody = 2048

	redacted = "*****"
)

// Outcomes recorded on the request counter.
const (
	OutcomeOK        = "ok"
	OutcomeHTTPError = "http_error"
	OutcomeTimeout   = "timeout"
	OutcomeCanceled  = "canceled"
	OutcomeError     = "error"
)

// Client calls one upstream provider.
type Client struct {
	http     *http.Client
	opts     options
	requests metric.Int64Counter
	latency  metric.Float64Histogram
}

// New creates a Client.
func New(opts ...Option) (*Client, error) {
	o := options{
		provider: "default",
		timeout:  defaultTimeout,
		headers:  http.Header{},
		maxBody:  defaultMaxBody,
	}
	for _, opt := range opts {
		opt(&o)
	}

	transport := o.transport
	if transport == nil {
		transport = &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			DialContext:     (&net.Dialer{KeepAlive: defaultDialKeepAlive}).DialContext,
			MaxConnsPerHost: defaultMaxConnsPerHost,
			IdleConnTimeout: defaultIdleConnTimeout,
		}
	}

	mp := o.meterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName)

	requests, err := meter.Int64Counter("http_client_requests_total",
		metric.WithDescription("Provider HTTP calls by endpoint and outcome"))
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram("http_client_request_duration_seconds",
		metric.WithDescription("Provider HTTP call latency"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	if o.tracer == nil {
		o.tracer = otel.Tracer(instrumentationName)
	}

	return &Client{
		http: &http.Client{
			Timeout: o.timeout,
			Transport: otelhttp.NewTransport(transport,
				// transport spans record the raw URL
				otelhttp.WithFilter(func(r *http.Request) bool {
					return !containsAny(r.URL.String(), o.secrets)
				}),
				otelhttp.WithClientTrace(func(ctx context.Context) *httptrace.ClientTrace {
					return otelhttptrace.NewClientTrace(ctx)
				}),
			),
		},
		opts:     o,
		requests: requests,
		latency:  latency,
	}, nil
}

// Provider returns the upstream name.
func (c *Client) Provider() string {
	return c.opts.provider
}

// Get issues a GET. path is joined to the base URL unless it is absolute.
//
// A 4xx/5xx answer is not an error by itself: the Response is returned with
// IsError set, unless the call's ErrorDecoder produces one.
func (c *Client) Get(ctx context.Context, path string, opts ...CallOption) (*Response, error) {
	cl := call{endpoint: path, query: url.Values{}, header: http.Header{}}
	for _, opt := range opts {
		opt(&cl)
	}

	target, err := c.resolve(path, cl.query)
	if err != nil {
		return nil, err
	}

	ctx, span := c.opts.tracer.Start(ctx, "http.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", http.MethodGet),
			attribute.String("http.url", c.redact(target)),
			attribute.String("provider", c.opts.provider),
			attribute.String("endpoint", cl.endpoint),
		),
	)
	defer span.End()

	start := time.Now()
	resp, err := c.send(ctx, span, target, &cl)
	c.record(ctx, &cl, outcome(resp, err), time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return resp, err
}

func (c *Client) send(ctx context.Context, span trace.Span, target string, cl *call) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, c.scrub(err)
	}
	for k, vs := range c.opts.headers {
		req.Header[k] = append([]string(nil), vs...)
	}
	for k, vs := range cl.header {
		req.Header[k] = append([]string(nil), vs...)
	}
	if c.opts.traceHeaders {
		span.AddEvent("request.headers", trace.WithAttributes(c.headerAttrs(req.Header)...))
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, c.scrub(err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, c.opts.maxBody+1))
	if err != nil {
		return nil, c.scrub(fmt.Errorf("read response body: %w", err))
	}
	if int64(len(body)) > c.opts.maxBody {
		return nil, fmt.Errorf("%s response body exceeds %d bytes", c.opts.provider, c.opts.maxBody)
	}

	span.SetAttributes(attribute.Int("http.status_code", res.StatusCode))
	if c.opts.traceResponse {
		traced := body
		if len(traced) > maxTracedBody {
			traced = traced[:maxTracedBody]
		}
		span.AddEvent("response.body", trace.WithAttributes(
			attribute.String("http.response_body", c.redact(string(traced))),
		))
	}

	resp := &Response{StatusCode: res.StatusCode, Header: res.Header, body: body}

	if resp.IsError() {
		span.SetStatus(codes.Error, res.Status)
		if cl.decodeErr != nil {
			if derr := cl.decodeErr(res.StatusCode, body); derr != nil {
				return resp, derr
			}
		}
		return resp, nil
	}

	if cl.result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, cl.result); err != nil {
			return resp, fmt.Errorf("decode %s %s response: %w", c.opts.provider, cl.endpoint, err)
		}
	}
	return resp, nil
}

func (c *Client) resolve(path string, query url.Values) (string, error) {
	target := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		target = strings.TrimSuffix(c.opts.baseURL, "/") + "/" + strings.TrimPrefix(path, "/")
	}

	u, err := url.Parse(target)
	if err != nil {
		return "", c.scrub(fmt.Errorf("invalid request url: %w", err))
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (c *Client) record(ctx context.Context, cl *call, result string, elapsed time.Duration) {
	base := []attribute.KeyValue{
		attribute.String("provider", c.opts.provider),
		attribute.String("endpoint", cl.endpoint),
	}
	c.latency.Record(ctx, elapsed.Seconds(), metric.WithAttributes(base...))

	attrs := append(base, attribute.String("outcome", result))
	attrs = append(attrs, cl.labels...)
	c.requests.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (c *Client) headerAttrs(h http.Header) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(h))
	for k, vs := range h {
		attrs = append(attrs, attribute.String(
			"http.request.header."+strings.ToLower(k),
			c.redact(strings.Join(vs, ",")),
		))
	}
	return attrs
}

func (c *Client) redact(s string) string {
	for _, secret := range c.opts.secrets {
		s = strings.ReplaceAll(s, secret, redacted)
	}
	return s
}

// scrub masks secrets in err's message. url.Error embeds the full URL, which
// for some providers carries the API key.
func (c *Client) scrub(err error) error {
	if err == nil || len(c.opts.secrets) == 0 {
		return err
	}
	msg := c.redact(err.Error())
	if msg == err.Error() {
		return err
	}
	return &scrubbedError{msg: msg, err: err}
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

type scrubbedError struct {
	msg string
	err error
}

func (e *scrubbedError) Error() string { return e.msg }
func (e *scrubbedError) Unwrap() error { return e.err }

func outcome(resp *Response, err error) string {
	var netErr net.Error
	switch {
	case resp != nil && resp.IsError():
		return OutcomeHTTPError
	case err == nil:
		return OutcomeOK
	case errors.Is(err, context.Canceled):
		return OutcomeCanceled
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return OutcomeTimeout
	default:
		return OutcomeError
	}
}
