// Package httpclient is the instrumented JSON client shared by the provider
// adapters. Calls are traced and counted per provider and endpoint, and
// registered secrets are masked before a URL or header reaches telemetry.
package httpclient

import (
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// TraceOption selects extra detail recorded on the request span.
type TraceOption int

const (
	TraceHeaders TraceOption = iota + 1
	TraceResponse
)

type options struct {
	provider      string
	baseURL       string
	timeout       time.Duration
	headers       http.Header
	secrets       []string
	tracer        trace.Tracer
	traceHeaders  bool
	traceResponse bool
	meterProvider metric.MeterProvider
	transport     http.RoundTripper
	maxBody       int64
}

// Option configures a Client.
type Option func(*options)

// WithProvider names the upstream in spans and metrics.
func WithProvider(name string) Option {
	return func(o *options) {
		o.provider = name
	}
}

// WithBaseURL sets the prefix for relative paths.
func WithBaseURL(u string) Option {
	return func(o *options) {
		o.baseURL = u
	}
}

// WithTimeout bounds each call, including reading the body.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithHeader adds a header sent on every call.
func WithHeader(key, value string) Option {
	return func(o *options) {
		o.headers.Set(key, value)
	}
}

// WithSecret registers values to mask in span attributes and errors.
// Empty values are ignored.
func WithSecret(values ...string) Option {
	return func(o *options) {
		for _, v := range values {
			if v != "" {
				o.secrets = append(o.secrets, v)
			}
		}
	}
}

// WithTracer sets the tracer for request spans.
func WithTracer(t trace.Tracer, opts ...TraceOption) Option {
	return func(o *options) {
		o.tracer = t
		for _, opt := range opts {
			switch opt {
			case TraceHeaders:
				o.traceHeaders = true
			case TraceResponse:
				o.traceResponse = true
			}
		}
	}
}

// WithMeterProvider overrides the global meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = mp
	}
}

// WithTransport replaces the pooled default transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		o.transport = rt
	}
}

// WithMaxBodySize caps how much of a response is read.
func WithMaxBodySize(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxBody = n
		}
	}
}

// ErrorDecoder turns an error response body into a provider error. Returning
// nil leaves the caller to inspect the Response.
type ErrorDecoder func(statusCode int, body []byte) error

type call struct {
	endpoint  string
	query     url.Values
	header    http.Header
	labels    []attribute.KeyValue
	result    any
	decodeErr ErrorDecoder
}

// CallOption configures a single call.
type CallOption func(*call)

// Endpoint names the call in spans and metrics. Defaults to the path.
func Endpoint(name string) CallOption {
	return func(c *call) {
		c.endpoint = name
	}
}

// Query adds a query parameter.
func Query(key, value string) CallOption {
	return func(c *call) {
		c.query.Add(key, value)
	}
}

// Header sets a header for this call only.
func Header(key, value string) CallOption {
	return func(c *call) {
		c.header.Set(key, value)
	}
}

// Label adds a metric attribute. Keep values low-cardinality.
func Label(key, value string) CallOption {
	return func(c *call) {
		c.labels = append(c.labels, attribute.String(key, value))
	}
}

// Into decodes a successful JSON body into v.
func Into(v any) CallOption {
	return func(c *call) {
		c.result = v
	}
}

// DecodeErrors installs the provider's error body decoder.
func DecodeErrors(fn ErrorDecoder) CallOption {
	return func(c *call) {
		c.decodeErr = fn
	}
}
