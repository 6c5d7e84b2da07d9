// Package metrics installs the global otel meter provider and serves the
// prometheus scrape endpoint.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"

	"github.com/fd1az/transfer-dashboard/internal/logger"
)

type MetricProvider interface {
	Meter(name string, options ...metric.MeterOption) metric.Meter
	Shutdown(ctx context.Context) error
}

type Provider string

const (
	PrometheusProvider Provider = "prometheus"
	OtelCollector      Provider = "otlp"
)

// Config selects the readers. Registry receives the prometheus collectors;
// nil means prometheus.DefaultRegisterer.
type Config struct {
	ServiceName string
	Providers   []Provider
	// Endpoint is the collector URL for OtelCollector.
	Endpoint string
	Headers  map[string]string
	Insecure bool
	Registry *prometheus.Registry
}

// NewMetricProvider builds the readers for cfg and installs the meter
// provider globally.
func NewMetricProvider(ctx context.Context, cfg Config) (MetricProvider, error) {
	var opts []sdkmetric.Option

	for _, p := range cfg.Providers {
		switch p {
		case PrometheusProvider:
			var promOpts []otelprom.Option
			if cfg.Registry != nil {
				promOpts = append(promOpts, otelprom.WithRegisterer(cfg.Registry))
			}
			exp, err := otelprom.New(promOpts...)
			if err != nil {
				return nil, fmt.Errorf("create prometheus exporter: %w", err)
			}
			opts = append(opts, sdkmetric.WithReader(exp))
		case OtelCollector:
			grpcOpts := []otlpmetricgrpc.Option{
				otlpmetricgrpc.WithEndpointURL(cfg.Endpoint),
				otlpmetricgrpc.WithHeaders(cfg.Headers),
			}
			if cfg.Insecure {
				grpcOpts = append(grpcOpts, otlpmetricgrpc.WithInsecure())
			}
			exp, err := otlpmetricgrpc.New(ctx, grpcOpts...)
			if err != nil {
				return nil, fmt.Errorf("create otlp metric exporter: %w", err)
			}
			opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)))
		default:
			return nil, fmt.Errorf("unknown metric provider %q", p)
		}
	}

	opts = append(opts, sdkmetric.WithResource(
		resource.NewSchemaless(semconv.ServiceNameKey.String(cfg.ServiceName)),
	))

	mp := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(mp)
	return mp, nil
}

// Server serves /metrics for prometheus scrapes.
type Server struct {
	server *http.Server
	logger logger.LoggerInterface
}

// NewServer creates a metrics server on port. gatherer nil means
// prometheus.DefaultGatherer.
func NewServer(port int, gatherer prometheus.Gatherer, log logger.LoggerInterface) *Server {
	handler := promhttp.Handler()
	if gatherer != nil {
		handler = promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	return &Server{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: log,
	}
}

// Start serves in the background.
func (s *Server) Start() {
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(context.Background(), "metrics server stopped", "addr", s.server.Addr, "error", err)
		}
	}()
}

// Stop shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler exposes the mux, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}
