package liveness

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// Service is a component the probe watches.
type Service interface {
	IsAlive(ctx context.Context) bool
}

type Prober interface {
	Watch(services ...Service)
	IsAlive() bool
}

// Probe polls its services once per timeout and reports alive while all of them answer so.
type Probe struct {
	timeout time.Duration
	alive   atomic.Bool
	stop    chan struct{}
	stopped atomic.Bool
}

func NewProbe(timeout time.Duration) *Probe {
	if timeout <= 0 {
		timeout = time.Second
	}
	return &Probe{timeout: timeout, stop: make(chan struct{})}
}

func (p *Probe) Watch(services ...Service) {
	go func() {
		ticker := time.NewTicker(p.timeout)
		defer ticker.Stop()

		p.check(services)
		for {
			select {
			case <-p.stop:
				return
			case <-ticker.C:
				p.check(services)
			}
		}
	}()
}

func (p *Probe) check(services []Service) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	alive := true
	for _, svc := range services {
		if !svc.IsAlive(ctx) {
			alive = false
			break
		}
	}
	if p.alive.Swap(alive) != alive {
		log.Info().Msgf("[probe] liveness changed: alive=%v", alive)
	}
}

func (p *Probe) IsAlive() bool {
	return p.alive.Load()
}

// Close stops watching. The last observed state is kept.
func (p *Probe) Close() {
	if p.stopped.CompareAndSwap(false, true) {
		close(p.stop)
	}
}
