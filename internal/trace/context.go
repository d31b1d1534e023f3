package trace

import "context"

type ctxKey struct{}

// FromContext returns the tracer attached to ctx, or Nop.
func FromContext(ctx context.Context) Tracer {
	if ctx == nil {
		return Nop
	}
	if t, ok := ctx.Value(ctxKey{}).(Tracer); ok {
		return t
	}
	return Nop
}

// WithTracer attaches t to ctx.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	return context.WithValue(ctx, ctxKey{}, t)
}

// SpanContext identifies the enclosing span of a context.
type SpanContext struct {
	SpanID uint64
}

type spanCtxKey struct{}

// CurrentSpan returns the span attached to ctx; zero if none.
func CurrentSpan(ctx context.Context) SpanContext {
	if ctx == nil {
		return SpanContext{}
	}
	sc, _ := ctx.Value(spanCtxKey{}).(SpanContext)
	return sc
}

// WithSpan makes s the parent of spans begun from the returned context.
// A disabled span leaves ctx as is.
func WithSpan(ctx context.Context, s *Span) context.Context {
	if s.ID() == 0 {
		return ctx
	}
	return context.WithValue(ctx, spanCtxKey{}, SpanContext{SpanID: s.ID()})
}
