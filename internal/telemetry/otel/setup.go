// Package otel wires OpenTelemetry tracing, metrics and logs for the console and dashboard,
// exporting over OTLP gRPC when a collector endpoint is configured.
package otel

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"

	"savings-admin/console/internal/config"
)

// Providers holds the OpenTelemetry providers and a shutdown function.
type Providers struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *metric.MeterProvider
	LoggerProvider *sdklog.LoggerProvider
	Shutdown       func(context.Context) error
}

// FromConfig builds providers from the OTEL_* settings in cfg.
func FromConfig(ctx context.Context, cfg *config.Config) (*Providers, error) {
	return NewProviders(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.OTLPInsecure)
}

// NewProviders creates TracerProvider, MeterProvider, and LoggerProvider that export via OTLP to the given endpoint.
// endpoint may be host:port or a URL (path ignored). If empty, SDK providers without exporters are
// returned and Shutdown is a no-op. https endpoints use TLS unless insecureOverride is true.
func NewProviders(ctx context.Context, endpoint, serviceName string, insecureOverride bool) (*Providers, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return &Providers{
			TracerProvider: sdktrace.NewTracerProvider(),
			MeterProvider:  metric.NewMeterProvider(),
			LoggerProvider: sdklog.NewLoggerProvider(),
			Shutdown:       func(context.Context) error { return nil },
		}, nil
	}

	target, insecure, err := grpcTarget(endpoint, insecureOverride)
	if err != nil {
		return nil, err
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
		),
	)
	if err != nil {
		return nil, err
	}

	var shutdownFns []func(context.Context) error
	unwind := func() {
		for i := len(shutdownFns) - 1; i >= 0; i-- {
			_ = shutdownFns[i](ctx)
		}
	}

	tp, err := newTracerProvider(ctx, target, insecure, res)
	if err != nil {
		return nil, err
	}
	shutdownFns = append(shutdownFns, tp.Shutdown)

	mp, err := newMeterProvider(ctx, target, insecure, res)
	if err != nil {
		unwind()
		return nil, err
	}
	shutdownFns = append(shutdownFns, mp.Shutdown)

	lp, err := newLoggerProvider(ctx, target, insecure, res)
	if err != nil {
		unwind()
		return nil, err
	}
	shutdownFns = append(shutdownFns, lp.Shutdown)

	shutdown := func(ctx context.Context) error {
		var lastErr error
		for i := len(shutdownFns) - 1; i >= 0; i-- {
			if err := shutdownFns[i](ctx); err != nil {
				log.Printf("telemetry: shutdown: %v", err)
				lastErr = err
			}
		}
		return lastErr
	}

	return &Providers{
		TracerProvider: tp,
		MeterProvider:  mp,
		LoggerProvider: lp,
		Shutdown:       shutdown,
	}, nil
}

// grpcTarget reduces endpoint to host:port and decides whether to dial without TLS.
func grpcTarget(endpoint string, insecureOverride bool) (string, bool, error) {
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("invalid OTLP endpoint %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("invalid OTLP endpoint %q: missing host", endpoint)
	}
	return u.Host, insecureOverride || u.Scheme != "https", nil
}

func newTracerProvider(ctx context.Context, target string, insecure bool, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(target)}
	if insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exp, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	), nil
}

func newMeterProvider(ctx context.Context, target string, insecure bool, res *resource.Resource) (*metric.MeterProvider, error) {
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(target)}
	if insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(metric.NewPeriodicReader(exp, metric.WithInterval(10*time.Second))),
	), nil
}

func newLoggerProvider(ctx context.Context, target string, insecure bool, res *resource.Resource) (*sdklog.LoggerProvider, error) {
	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(target)}
	if insecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	exp, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exp)),
		sdklog.WithResource(res),
	), nil
}

// SetGlobal sets the global TracerProvider and MeterProvider so instrumentation uses them.
// It does not set a global LoggerProvider; pass LoggerProvider to NewEventEmitter.
func (p *Providers) SetGlobal() {
	if p.TracerProvider != nil {
		otel.SetTracerProvider(p.TracerProvider)
	}
	if p.MeterProvider != nil {
		otel.SetMeterProvider(p.MeterProvider)
	}
}
