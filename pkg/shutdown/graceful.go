package shutdown

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

var ErrTimeout = errors.New("graceful shutdown timed out")

// Gracefuller is what a component gets to register itself for shutdown.
type Gracefuller interface {
	Add(n int)
	Done()
}

type Graceful struct {
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	timeout time.Duration
}

func NewGraceful(ctx context.Context, cancel context.CancelFunc) *Graceful {
	return &Graceful{ctx: ctx, cancel: cancel, timeout: time.Minute}
}

func (g *Graceful) SetGracefulTimeout(timeout time.Duration) {
	g.timeout = timeout
}

func (g *Graceful) Add(n int) {
	g.wg.Add(n)
}

func (g *Graceful) Done() {
	g.wg.Done()
}

// ListenCancelAndAwait blocks until SIGINT, SIGTERM or the root context is done,
// cancels the root context and waits for every registered component.
// Returns ErrTimeout when the components did not finish in time.
func (g *Graceful) ListenCancelAndAwait() error {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	select {
	case sig := <-sigs:
		log.Info().Msgf("[shutdown] %s received, shutting down", sig)
	case <-g.ctx.Done():
		log.Info().Msg("[shutdown] context done, shutting down")
	}
	g.cancel()

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("[shutdown] all components stopped")
		return nil
	case <-time.After(g.timeout):
		return ErrTimeout
	}
}
