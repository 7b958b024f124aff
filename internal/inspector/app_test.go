package inspector

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/Borislavv/refptr/pkg/config"
	"github.com/Borislavv/refptr/pkg/k8s/probe/liveness"
	"github.com/Borislavv/refptr/pkg/shutdown"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	code, body, err := fasthttp.GetTimeout(nil, url, 5*time.Second)
	require.NoError(t, err)
	return code, string(body)
}

func TestInspector_Endpoints(t *testing.T) {
	cfg := config.Default()
	cfg.Env = config.Test
	cfg.SelfCheck.RPS = 0.001
	cfg.SelfCheck.Burst = 1

	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	base := "http://" + ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	probe := liveness.NewProbe(20 * time.Millisecond)
	defer probe.Close()

	app, err := NewApp(ctx, cfg, probe)
	require.NoError(t, err)
	app.WithListener(ln)

	gc := shutdown.NewGraceful(ctx, cancel)
	gc.SetGracefulTimeout(5 * time.Second)
	gc.Add(1)
	go app.Start(gc)

	require.Eventually(t, probe.IsAlive, 2*time.Second, 10*time.Millisecond)

	code, body := get(t, base+"/selfcheck/last")
	assert.Equal(t, fasthttp.StatusOK, code)
	assert.Contains(t, body, `"passed":true`)

	code, body = get(t, base+"/selfcheck")
	assert.Equal(t, fasthttp.StatusOK, code, body)
	assert.Contains(t, body, `"name":"array-rollback"`)

	code, _ = get(t, base+"/selfcheck")
	assert.Equal(t, fasthttp.StatusTooManyRequests, code)

	code, body = get(t, base+"/metrics")
	assert.Equal(t, fasthttp.StatusOK, code)
	assert.Contains(t, body, `refptr_blocks_allocated_total{kind="array"}`)
	assert.Contains(t, body, `refptr_selfcheck_runs_total{scenario="weak-expiry",passed="true"}`)

	code, _ = get(t, base+"/k8s/probe")
	assert.Equal(t, fasthttp.StatusOK, code)

	code, body = get(t, base+"/store/stats")
	assert.Equal(t, fasthttp.StatusOK, code)
	assert.Contains(t, body, `"weakEntries":1`)

	code, _ = get(t, base+"/store/clear?token=forged")
	assert.Equal(t, fasthttp.StatusForbidden, code)

	cancel()
	assert.NoError(t, gc.ListenCancelAndAwait())
}
