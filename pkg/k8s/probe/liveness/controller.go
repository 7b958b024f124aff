package liveness

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
)

const probePath = "/k8s/probe"

var (
	successResponseBytes = []byte(`{"status":200,"message":"I'm fine :D"}`)
	failedResponseBytes  = []byte(`{"status":503,"message":"I'm not fine :("}`)
)

type Controller struct {
	probe Prober
}

func NewController(probe Prober) *Controller {
	return &Controller{probe: probe}
}

func (c *Controller) Probe(ctx *fasthttp.RequestCtx) {
	ctx.SetContentType("application/json")
	if c.probe.IsAlive() {
		ctx.SetStatusCode(fasthttp.StatusOK)
		_, _ = ctx.Write(successResponseBytes)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
	_, _ = ctx.Write(failedResponseBytes)
}

func (c *Controller) AddRoute(r *router.Router) {
	r.GET(probePath, c.Probe)
}
