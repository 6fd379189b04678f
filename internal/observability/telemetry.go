// internal/observability/telemetry.go
package observability

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const shutdownTimeout = 5 * time.Second

// Telemetry owns the configured providers. A Telemetry built from a
// disabled config is valid and hands out no-op providers.
type Telemetry struct {
	config         *Config
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	metrics        *Metrics
	shutdownOnce   sync.Once
}

// Init builds providers per the config and installs them as the process
// globals. A disabled config returns a no-op manager without touching the
// globals.
func Init(ctx context.Context, cfg *Config) (*Telemetry, error) {
	tel := &Telemetry{config: cfg}
	if !cfg.Enabled() {
		return tel, nil
	}

	if cfg.TracesEnabled {
		tp, err := newTracerProvider(ctx, cfg)
		if err != nil {
			return nil, err
		}
		tel.tracerProvider = tp
		otel.SetTracerProvider(tp)
	}

	if cfg.MetricsEnabled {
		mp, err := newMeterProvider(ctx, cfg)
		if err != nil {
			if tel.tracerProvider != nil {
				tel.tracerProvider.Shutdown(ctx)
			}
			return nil, err
		}
		tel.meterProvider = mp
		otel.SetMeterProvider(mp)

		m, err := newMetrics(mp, cfg.ServiceName)
		if err != nil {
			tel.Shutdown(ctx)
			return nil, err
		}
		tel.metrics = m
	}

	return tel, nil
}

// TracerProvider returns the tracer provider, or a no-op one when tracing
// is disabled.
func (t *Telemetry) TracerProvider() trace.TracerProvider {
	if t.tracerProvider != nil {
		return t.tracerProvider
	}
	return noop.NewTracerProvider()
}

// MeterProvider returns the meter provider, or the global default when
// metrics are disabled.
func (t *Telemetry) MeterProvider() metric.MeterProvider {
	if t.meterProvider != nil {
		return t.meterProvider
	}
	return otel.GetMeterProvider()
}

// Metrics returns the HTTP metric instruments, or nil when metrics are
// disabled.
func (t *Telemetry) Metrics() *Metrics {
	return t.metrics
}

// Shutdown flushes and closes the providers. Safe to call more than once.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var err error
	t.shutdownOnce.Do(func() {
		var errs []error
		if t.tracerProvider != nil {
			if e := t.tracerProvider.Shutdown(ctx); e != nil {
				errs = append(errs, e)
			}
		}
		if t.meterProvider != nil {
			if e := t.meterProvider.Shutdown(ctx); e != nil {
				errs = append(errs, e)
			}
		}
		err = errors.Join(errs...)
	})
	return err
}

// Cleanup shuts the providers down with a bounded timeout, for use with
// defer at process exit.
func (t *Telemetry) Cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	t.Shutdown(ctx)
}
