package server

import (
	"context"
	"net"
	"sync"
	"sync/atomic"

	"github.com/Borislavv/refptr/internal/inspector/api"
	"github.com/Borislavv/refptr/internal/selfcheck"
	"github.com/Borislavv/refptr/pkg/config"
	"github.com/Borislavv/refptr/pkg/k8s/probe/liveness"
	"github.com/Borislavv/refptr/pkg/prometheus/metrics"
	metricscontroller "github.com/Borislavv/refptr/pkg/prometheus/metrics/controller"
	metricsmiddleware "github.com/Borislavv/refptr/pkg/prometheus/metrics/middleware"
	httpserver "github.com/Borislavv/refptr/pkg/server"
	"github.com/Borislavv/refptr/pkg/server/controller"
	"github.com/Borislavv/refptr/pkg/server/middleware"
	"github.com/Borislavv/refptr/pkg/storage"
)

// Http exposes starting and liveness probing of the diagnostics server.
type Http interface {
	Start()
	IsAlive() bool
}

// HttpServer wraps all dependencies required for running the diagnostics server.
type HttpServer struct {
	ctx           context.Context
	cfg           *config.Config
	probe         liveness.Prober
	meter         metrics.Meter
	checker       *selfcheck.Checker
	reports       *storage.Store[selfcheck.Report]
	server        *httpserver.HTTP
	ln            net.Listener
	isServerAlive *atomic.Bool
}

func New(
	ctx context.Context,
	cfg *config.Config,
	probe liveness.Prober,
	meter metrics.Meter,
	checker *selfcheck.Checker,
	reports *storage.Store[selfcheck.Report],
) *HttpServer {
	srv := &HttpServer{
		ctx:           ctx,
		cfg:           cfg,
		probe:         probe,
		meter:         meter,
		checker:       checker,
		reports:       reports,
		isServerAlive: &atomic.Bool{},
	}
	srv.server = httpserver.New(ctx, cfg.Api, srv.controllers(), srv.middlewares())
	return srv
}

// WithListener makes Start serve ln instead of binding api.port.
func (s *HttpServer) WithListener(ln net.Listener) *HttpServer {
	s.ln = ln
	return s
}

// Start runs the server and blocks until it stops.
func (s *HttpServer) Start() {
	wg := &sync.WaitGroup{}
	defer wg.Wait()

	wg.Add(1)
	go func() {
		defer func() {
			s.isServerAlive.Store(false)
			wg.Done()
		}()
		s.isServerAlive.Store(true)
		if s.ln != nil {
			s.server.Serve(s.ln)
		} else {
			s.server.ListenAndServe()
		}
	}()
}

func (s *HttpServer) IsAlive() bool {
	return s.isServerAlive.Load()
}

func (s *HttpServer) controllers() []controller.HttpController {
	return []controller.HttpController{
		liveness.NewController(s.probe),                                          // healthcheck probe endpoint
		metricscontroller.NewPrometheusMetrics(),                                 // metrics endpoint
		api.NewSelfCheckController(s.ctx, s.cfg.SelfCheck, s.checker, s.reports), // runs scenarios on demand
		api.NewStoreController(s.cfg, s.reports),                                 // store stats and clearing
	}
}

// middlewares are executed in slice order.
func (s *HttpServer) middlewares() []middleware.HttpMiddleware {
	return []middleware.HttpMiddleware{
		/** exec 1st. */ metricsmiddleware.NewPrometheusMetrics(s.meter), // counts requests and latency
		/** exec 2nd. */ middleware.NewApplicationJsonMiddleware(),       // sets the Content-Type: application/json
		/** exec 3rd. */ middleware.NewServerNameMiddleware(s.cfg.Api),   // sets the Server: refptr.inspector
	}
}
