package transport

import (
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"golang.org/x/time/rate"
)

// roundTripperFunc adapts a function to http.RoundTripper.
type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// chain wraps base in the given wrappers. The first wrapper is the outermost
// (executes first).
func chain(base http.RoundTripper, wrappers ...func(http.RoundTripper) http.RoundTripper) http.RoundTripper {
	rt := base
	for i := len(wrappers) - 1; i >= 0; i-- {
		rt = wrappers[i](rt)
	}
	return rt
}

// rateLimited blocks each attempt until the limiter admits it or the request
// context ends.
func rateLimited(limiter *rate.Limiter) func(http.RoundTripper) http.RoundTripper {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if err := limiter.Wait(req.Context()); err != nil {
				return nil, err
			}
			return next.RoundTrip(req)
		})
	}
}

// traceContextPropagation injects W3C trace context (Traceparent/Tracestate)
// from the request context into the outgoing headers. It is a no-op when the
// context carries no span.
func traceContextPropagation(next http.RoundTripper) http.RoundTripper {
	return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		carrier := propagation.HeaderCarrier(make(http.Header))
		otel.GetTextMapPropagator().Inject(req.Context(), carrier)
		if len(carrier) == 0 {
			return next.RoundTrip(req)
		}

		// RoundTrippers must not modify the caller's request.
		out := req.Clone(req.Context())
		for key, values := range carrier {
			out.Header[key] = values
		}
		return next.RoundTrip(out)
	})
}

// logged records method, host, path, status and duration of every attempt.
// Headers and bodies are never logged; they carry credentials.
func logged(logger *slog.Logger) func(http.RoundTripper) http.RoundTripper {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			ctx := req.Context()
			start := time.Now()

			resp, err := next.RoundTrip(req)

			attrs := []any{
				slog.String("method", req.Method),
				slog.String("host", req.URL.Host),
				slog.String("path", req.URL.Path),
				slog.String("request_id", req.Header.Get(RequestIDHeader)),
				slog.Duration("duration", time.Since(start)),
			}
			if err != nil {
				logger.DebugContext(ctx, "http request failed", append(attrs, slog.Any("error", err))...)
				return resp, err
			}

			logger.DebugContext(ctx, "http request", append(attrs, slog.Int("status", resp.StatusCode))...)
			return resp, nil
		})
	}
}
