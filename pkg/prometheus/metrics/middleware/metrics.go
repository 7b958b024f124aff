package middleware

import (
	"strconv"

	"github.com/Borislavv/refptr/pkg/prometheus/metrics"
	"github.com/valyala/fasthttp"
)

// PrometheusMetrics counts requests and responses of the diagnostics server
// and records their latency.
type PrometheusMetrics struct {
	metrics metrics.Meter
}

func NewPrometheusMetrics(metrics metrics.Meter) *PrometheusMetrics {
	return &PrometheusMetrics{metrics: metrics}
}

func (m *PrometheusMetrics) Middleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		path, method := string(ctx.Path()), string(ctx.Method())

		timer := m.metrics.NewResponseTimeTimer(path, method)
		m.metrics.IncTotal(path, method, "")

		next(ctx)

		m.metrics.IncTotal(path, method, strconv.Itoa(ctx.Response.StatusCode()))
		m.metrics.FlushResponseTimeTimer(timer)
	}
}
