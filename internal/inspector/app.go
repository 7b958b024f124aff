package inspector

import (
	"context"
	"net"

	"github.com/Borislavv/refptr/internal/inspector/api"
	"github.com/Borislavv/refptr/internal/inspector/server"
	"github.com/Borislavv/refptr/internal/selfcheck"
	"github.com/Borislavv/refptr/pkg/config"
	"github.com/Borislavv/refptr/pkg/k8s/probe/liveness"
	"github.com/Borislavv/refptr/pkg/prometheus/metrics"
	"github.com/Borislavv/refptr/pkg/ptr"
	"github.com/Borislavv/refptr/pkg/refcount"
	"github.com/Borislavv/refptr/pkg/shutdown"
	"github.com/Borislavv/refptr/pkg/storage"
	"github.com/rs/zerolog/log"
)

// App defines the inspector application lifecycle.
type App interface {
	Start(gc shutdown.Gracefuller)
}

// Inspector runs the pointer library selfcheck and serves diagnostics about it.
type Inspector struct {
	cfg             *config.Config
	ctx             context.Context
	cancel          context.CancelFunc
	probe           liveness.Prober
	meter           *metrics.Metrics
	reports         *storage.Store[selfcheck.Report]
	checker         *selfcheck.Checker
	server          *server.HttpServer
	restoreObserver func()
}

// NewApp wires meter, report store, checker and diagnostics server.
// The meter becomes the package-wide pointer observer until the app stops.
func NewApp(ctx context.Context, cfg *config.Config, probe liveness.Prober) (*Inspector, error) {
	ctx, cancel := context.WithCancel(ctx)

	meter := metrics.New()
	restore := ptr.SetObserver(meter)
	refcount.Preallocate(cfg.Pool.Preallocate)

	reports, err := storage.New[selfcheck.Report](cfg.Store, meter)
	if err != nil {
		restore()
		cancel()
		return nil, err
	}
	checker := selfcheck.New(selfcheck.Scenarios(cfg.Store), meter)

	return &Inspector{
		cfg:             cfg,
		ctx:             ctx,
		cancel:          cancel,
		probe:           probe,
		meter:           meter,
		reports:         reports,
		checker:         checker,
		server:          server.New(ctx, cfg, probe, meter, checker, reports),
		restoreObserver: restore,
	}, nil
}

// WithListener makes the diagnostics server serve ln instead of api.port.
func (a *Inspector) WithListener(ln net.Listener) *Inspector {
	a.server.WithListener(ln)
	return a
}

// Start runs the selfcheck if configured, then serves until the context is canceled.
// Calls gc.Done when everything is stopped.
func (a *Inspector) Start(gc shutdown.Gracefuller) {
	defer func() {
		a.stop()
		gc.Done()
	}()

	log.Info().Msg("[app] starting inspector")

	if a.cfg.SelfCheck.OnStart {
		if report := api.RunAndStore(a.ctx, a.checker, a.reports); !report.Passed {
			log.Error().Msg("[app] start-up selfcheck failed, see /selfcheck/last")
		}
	}
	a.reports.Run(a.ctx)

	waitCh := make(chan struct{})
	go func() {
		defer close(waitCh)
		a.probe.Watch(a) // does not block
		a.server.Start() // blocks until the server is stopped
	}()

	log.Info().Msg("[app] inspector has been started")

	<-waitCh
}

func (a *Inspector) stop() {
	log.Info().Msg("[app] stopping inspector")
	defer a.cancel()

	a.reports.Close()
	a.restoreObserver()

	log.Info().Msgf("[app] inspector has been stopped, live blocks: %d", a.meter.LiveBlocks())
}

// IsAlive is called by the liveness probe.
func (a *Inspector) IsAlive(_ context.Context) bool {
	if !a.server.IsAlive() {
		log.Info().Msg("[app] http server has gone away")
		return false
	}
	return true
}
