package api

import (
	"context"
	"encoding/json"

	"github.com/Borislavv/refptr/internal/selfcheck"
	"github.com/Borislavv/refptr/pkg/config"
	"github.com/Borislavv/refptr/pkg/ptr"
	"github.com/Borislavv/refptr/pkg/storage"
	"github.com/fasthttp/router"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"
)

const (
	SelfCheckPath     = "/selfcheck"
	SelfCheckLastPath = "/selfcheck/last"

	// LastReportKey is the store key of the most recent selfcheck report.
	LastReportKey = "selfcheck.last"
)

type errorResponse struct {
	Error string `json:"error"`
}

// SelfCheckController runs the selfcheck on demand and serves the last report.
type SelfCheckController struct {
	ctx     context.Context
	checker *selfcheck.Checker
	reports storage.Storage[selfcheck.Report]
	limiter *rate.Limiter
}

func NewSelfCheckController(
	ctx context.Context,
	cfg config.SelfCheck,
	checker *selfcheck.Checker,
	reports storage.Storage[selfcheck.Report],
) *SelfCheckController {
	limit := rate.Limit(cfg.RPS)
	if cfg.RPS <= 0 {
		limit = rate.Inf
	}
	return &SelfCheckController{
		ctx:     ctx,
		checker: checker,
		reports: reports,
		limiter: rate.NewLimiter(limit, max(cfg.Burst, 1)),
	}
}

// Run handles GET /selfcheck: 200 when every scenario passed, 500 otherwise,
// 429 when called more often than selfcheck.rps allows.
func (c *SelfCheckController) Run(ctx *fasthttp.RequestCtx) {
	ctx.SetContentType("application/json")

	if !c.limiter.Allow() {
		ctx.SetStatusCode(fasthttp.StatusTooManyRequests)
		_ = json.NewEncoder(ctx).Encode(errorResponse{Error: "selfcheck rate limit exceeded"})
		return
	}

	report := RunAndStore(c.ctx, c.checker, c.reports)

	if report.Passed {
		ctx.SetStatusCode(fasthttp.StatusOK)
	} else {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
	}
	if err := json.NewEncoder(ctx).Encode(report); err != nil {
		log.Err(err).Msg("[selfcheck] failed to encode report")
	}
}

// Last handles GET /selfcheck/last.
func (c *SelfCheckController) Last(ctx *fasthttp.RequestCtx) {
	ctx.SetContentType("application/json")

	found := c.reports.View(LastReportKey, func(report *selfcheck.Report) {
		ctx.SetStatusCode(fasthttp.StatusOK)
		_ = json.NewEncoder(ctx).Encode(report)
	})
	if !found {
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		_ = json.NewEncoder(ctx).Encode(errorResponse{Error: "no selfcheck has run yet"})
	}
}

func (c *SelfCheckController) AddRoute(r *router.Router) {
	r.GET(SelfCheckPath, c.Run)
	r.GET(SelfCheckLastPath, c.Last)
}

// RunAndStore runs the checker and keeps the report as the last one.
func RunAndStore(ctx context.Context, checker *selfcheck.Checker, reports storage.Storage[selfcheck.Report]) selfcheck.Report {
	report := checker.Run(ctx)
	reports.Put(LastReportKey, ptr.Make(report), 1)
	return report
}
