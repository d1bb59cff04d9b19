package httpmiddleware

import (
	"net/http"

	"github.com/go-faster/sdk/app"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
)

// Instrument returns a middleware that wraps the handler in otelhttp,
// producing spans and HTTP metrics under the given operation name using
// the telemetry providers from the application runtime.
func Instrument(operation string, m *app.Telemetry) Middleware {
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, operation,
			otelhttp.WithTracerProvider(m.TracerProvider()),
			otelhttp.WithMeterProvider(m.MeterProvider()),
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	}
}

// Labeler returns a middleware that attaches the request method and
// path to the otelhttp labeler, so per-route attributes show up on the
// request metrics.
func Labeler() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if labeler, ok := otelhttp.LabelerFromContext(r.Context()); ok {
				labeler.Add(
					attribute.String("http.method", r.Method),
					attribute.String("http.route", r.URL.Path),
				)
			}
			next.ServeHTTP(w, r)
		})
	}
}
