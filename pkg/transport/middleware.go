package transport

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/lineframe/lineframe-go/pkg/logging"
	"github.com/lineframe/lineframe-go/pkg/observability"
)

// Middleware wraps a Transport with additional behavior
type Middleware interface {
	// Wrap returns a transport that decorates the given base
	Wrap(base Transport) Transport
}

// MiddlewareFunc adapts a function to the Middleware interface
type MiddlewareFunc func(Transport) Transport

// Wrap implements Middleware
func (f MiddlewareFunc) Wrap(base Transport) Transport {
	return f(base)
}

// ChainMiddleware composes middleware so the first entry becomes the
// outermost wrapper
func ChainMiddleware(middleware ...Middleware) Middleware {
	return MiddlewareFunc(func(base Transport) Transport {
		wrapped := base
		for i := len(middleware) - 1; i >= 0; i-- {
			wrapped = middleware[i].Wrap(wrapped)
		}
		return wrapped
	})
}

// buildMiddleware assembles the middleware chain from config
func buildMiddleware(config TransportConfig) []Middleware {
	var middleware []Middleware

	if config.Features.EnableObservability {
		middleware = append(middleware, NewObservabilityMiddleware(config))
	}

	return middleware
}

// ObservabilityMiddleware logs operation timings and records spans around
// transport operations
type ObservabilityMiddleware struct {
	logger  logging.Logger
	tracing *observability.TracingProvider
}

// NewObservabilityMiddleware creates observability middleware from config
func NewObservabilityMiddleware(config TransportConfig) *ObservabilityMiddleware {
	logger := config.Logger
	if logger == nil || !config.Observability.EnableLogging {
		logger = logging.NewNop()
	}

	var tracing *observability.TracingProvider
	if config.Features.EnableTracing {
		tracing = config.Observability.Tracing
	}

	return &ObservabilityMiddleware{
		logger:  logger,
		tracing: tracing,
	}
}

// Wrap implements Middleware
func (m *ObservabilityMiddleware) Wrap(base Transport) Transport {
	return &observedTransport{
		Transport: base,
		logger:    m.logger,
		tracing:   m.tracing,
	}
}

// observedTransport decorates a transport with timing logs and spans
type observedTransport struct {
	Transport
	logger  logging.Logger
	tracing *observability.TracingProvider
}

// Connect times and traces the underlying Connect
func (t *observedTransport) Connect(ctx context.Context) error {
	var span trace.Span
	if t.tracing != nil {
		ctx, span = t.tracing.StartOperationSpan(ctx, "connect", trace.SpanKindClient)
		defer span.End()
	}

	start := time.Now()
	err := t.Transport.Connect(ctx)

	if err != nil {
		if t.tracing != nil {
			t.tracing.RecordError(ctx, err)
		}
		return err
	}

	t.logger.Debug("connect completed",
		logging.String("operation", "connect"),
		logging.Duration("duration", time.Since(start)),
	)
	return nil
}

// Send times and traces the underlying Send
func (t *observedTransport) Send(data []byte) error {
	ctx := context.Background()
	var span trace.Span
	if t.tracing != nil {
		ctx, span = t.tracing.StartOperationSpan(ctx, "send", trace.SpanKindProducer)
		span.SetAttributes(attribute.Int("transport.frame_bytes", len(data)))
		defer span.End()
	}

	start := time.Now()
	err := t.Transport.Send(data)

	if err != nil {
		if t.tracing != nil {
			t.tracing.RecordError(ctx, err)
		}
		return err
	}

	t.logger.Debug("send completed",
		logging.String("operation", "send"),
		logging.Int("frame_bytes", len(data)),
		logging.Duration("duration", time.Since(start)),
	)
	return nil
}
