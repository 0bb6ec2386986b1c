package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rkbridge/backend/internal/infrastructure/logger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Tracing wraps otelgin. Spans are named after the route pattern; health
// checks are not traced.
func Tracing(serviceName string, opts ...otelgin.Option) gin.HandlerFunc {
	opts = append([]otelgin.Option{
		otelgin.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health"
		}),
	}, opts...)
	return otelgin.Middleware(serviceName, opts...)
}

// EnrichSpan adds the request ID and operator to the active span. It runs
// after RequestID and JWTAuth.
func EnrichSpan() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if span := trace.SpanFromContext(ctx); span.IsRecording() {
			if id := logger.GetRequestID(ctx); id != "" {
				span.SetAttributes(attribute.String("request_id", id))
			}
			if op := logger.GetOperator(ctx); op != "" {
				span.SetAttributes(attribute.String("operator", op))
			}
		}
		c.Next()
	}
}
