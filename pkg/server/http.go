package httpserver

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/Borislavv/refptr/pkg/config"
	"github.com/Borislavv/refptr/pkg/server/controller"
	"github.com/Borislavv/refptr/pkg/server/middleware"
	"github.com/fasthttp/router"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

const shutdownTimeout = time.Second * 10

type HTTP struct {
	ctx    context.Context
	config config.Api
	server *fasthttp.Server
}

func New(
	ctx context.Context,
	config config.Api,
	controllers []controller.HttpController,
	middlewares []middleware.HttpMiddleware,
) *HTTP {
	s := &HTTP{ctx: ctx, config: config}
	s.initServer(s.buildRouter(controllers), middlewares)
	return s
}

// ListenAndServe serves the configured port until ctx is done.
func (s *HTTP) ListenAndServe() {
	port := s.config.Port
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	ln, err := net.Listen("tcp4", port)
	if err != nil {
		log.Error().Err(err).Msgf("[server] %v failed to listen port %v", s.config.Name, port)
		return
	}
	s.Serve(ln)
}

// Serve is ListenAndServe on an already bound listener.
func (s *HTTP) Serve(ln net.Listener) {
	wg := &sync.WaitGroup{}
	defer wg.Wait()

	wg.Add(1)
	go s.serve(wg, ln)

	wg.Add(1)
	go s.shutdown(wg)
}

func (s *HTTP) serve(wg *sync.WaitGroup, ln net.Listener) {
	defer wg.Done()

	name, addr := s.config.Name, ln.Addr().String()
	log.Info().Msgf("[server] %v was started on %v", name, addr)
	defer log.Info().Msgf("[server] %v was stopped on %v", name, addr)

	if err := s.server.Serve(ln); err != nil {
		log.Error().Err(err).Msgf("[server] %v failed to serve on %v", name, addr)
	}
}

func (s *HTTP) shutdown(wg *sync.WaitGroup) {
	defer wg.Done()

	<-s.ctx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.server.ShutdownWithContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Warn().Msgf("[server] %v shutdown failed: %v", s.config.Name, err.Error())
		}
	}
}

func (s *HTTP) buildRouter(controllers []controller.HttpController) *router.Router {
	r := router.New()
	for _, contr := range controllers {
		contr.AddRoute(r)
	}
	return r
}

func (s *HTTP) mergeMiddlewares(
	handler fasthttp.RequestHandler,
	middlewares []middleware.HttpMiddleware,
) fasthttp.RequestHandler {
	// the first middleware must be the outermost one, so wrap from the end
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i].Middleware(handler)
	}
	return handler
}

func (s *HTTP) initServer(r *router.Router, middlewares []middleware.HttpMiddleware) {
	s.server = &fasthttp.Server{
		Name:                          s.config.Name,
		GetOnly:                       true,
		ReduceMemoryUsage:             true,
		DisablePreParseMultipartForm:  true,
		DisableHeaderNamesNormalizing: true,
		CloseOnShutdown:               true,
		Handler:                       s.mergeMiddlewares(r.Handler, middlewares),
		ReadBufferSize:                4 * 1024,
		WriteBufferSize:               4 * 1024,
	}
}
