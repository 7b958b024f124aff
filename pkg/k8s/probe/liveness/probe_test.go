package liveness

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeService struct{ alive atomic.Bool }

func (f *fakeService) IsAlive(ctx context.Context) bool { return f.alive.Load() }

func TestProbe_WatchAndToggle(t *testing.T) {
	svc := &fakeService{}
	svc.alive.Store(true)

	probe := NewProbe(50 * time.Millisecond)
	defer probe.Close()
	probe.Watch(svc)

	assert.Eventually(t, probe.IsAlive, time.Second, 10*time.Millisecond)

	// change state
	svc.alive.Store(false)
	assert.Eventually(t, func() bool { return !probe.IsAlive() }, time.Second, 10*time.Millisecond)
}

func TestProbe_AllServicesMustBeAlive(t *testing.T) {
	up, down := &fakeService{}, &fakeService{}
	up.alive.Store(true)

	probe := NewProbe(20 * time.Millisecond)
	defer probe.Close()
	probe.Watch(up, down)

	assert.Never(t, probe.IsAlive, 100*time.Millisecond, 10*time.Millisecond)
}
