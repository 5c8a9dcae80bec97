// Package tracing provides OpenTelemetry instrumentation for a store's
// persistence hooks: every load/save/remove/clear runs inside its own span.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Fxcilities/state-pool/pkg/store"
)

// Default tracer name for statepool instrumentation.
const defaultTracerName = "statepool"

// Config configures the OpenTelemetry instrumentation.
type Config struct {
	// TracerName is the name of the tracer (default: "statepool").
	TracerName string

	// Attributes are added to every span.
	Attributes []attribute.KeyValue

	// tracer is the resolved tracer instance.
	tracer trace.Tracer
}

// Option configures the OpenTelemetry instrumentation.
type Option func(*Config)

// WithTracerName sets the tracer name.
func WithTracerName(name string) Option {
	return func(c *Config) {
		c.TracerName = name
	}
}

// WithAttributes adds constant attributes to every span.
func WithAttributes(attrs ...attribute.KeyValue) Option {
	return func(c *Config) {
		c.Attributes = append(c.Attributes, attrs...)
	}
}

// InstrumentStorage wraps the non-nil hooks of cfg so each persistence
// operation is recorded as a span named "statepool.save", "statepool.load",
// "statepool.remove", or "statepool.clear", carrying the state key and,
// for saves, whether this was the initial set. Errors are recorded on the
// span and set its status.
//
// The tracer comes from the global OpenTelemetry tracer provider.
// Configure it in your main() before creating stores:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
func InstrumentStorage(cfg store.Config, opts ...Option) store.Config {
	config := Config{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	config.tracer = otel.Tracer(config.TracerName)

	out := store.Config{PersistEntireStore: cfg.PersistEntireStore}

	if cfg.SaveState != nil {
		save := cfg.SaveState
		out.SaveState = func(key string, value any, isInitialSet bool) error {
			_, span := config.startSpan("statepool.save",
				attribute.String("statepool.key", key),
				attribute.Bool("statepool.initial_set", isInitialSet),
			)
			defer span.End()
			return finish(span, save(key, value, isInitialSet))
		}
	}
	if cfg.LoadState != nil {
		load := cfg.LoadState
		out.LoadState = func(key string) (any, bool, error) {
			_, span := config.startSpan("statepool.load",
				attribute.String("statepool.key", key),
			)
			defer span.End()
			value, found, err := load(key)
			span.SetAttributes(attribute.Bool("statepool.found", found))
			return value, found, finish(span, err)
		}
	}
	if cfg.RemoveState != nil {
		remove := cfg.RemoveState
		out.RemoveState = func(key string) error {
			_, span := config.startSpan("statepool.remove",
				attribute.String("statepool.key", key),
			)
			defer span.End()
			return finish(span, remove(key))
		}
	}
	if cfg.ClearStorage != nil {
		clear := cfg.ClearStorage
		out.ClearStorage = func() error {
			_, span := config.startSpan("statepool.clear")
			defer span.End()
			return finish(span, clear())
		}
	}
	return out
}

// startSpan opens a span with the configured constant attributes plus attrs.
func (c *Config) startSpan(name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := make([]attribute.KeyValue, 0, len(c.Attributes)+len(attrs))
	all = append(all, c.Attributes...)
	all = append(all, attrs...)
	return c.tracer.Start(
		context.Background(),
		name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(all...),
	)
}

// finish records err on the span and sets its status, passing err through.
func finish(span trace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}
