package metrics

import (
	"bytes"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Borislavv/refptr/pkg/prometheus/metrics/keyword"
	"github.com/Borislavv/refptr/pkg/ptr"
	"github.com/VictoriaMetrics/metrics"
)

// Meter exports pointer lifecycle, store and diagnostics server metrics.
type Meter interface {
	ptr.Observer

	IncStoreHit()
	IncStoreWeakHit()
	IncStoreMiss()
	IncStoreEvicted()
	SetStoreLen(n int64)
	SetWeakIndexLen(n int64)

	FlushSelfCheck(scenario string, passed bool, took time.Duration)

	IncTotal(path string, method string, status string)
	NewResponseTimeTimer(path string, method string) *Timer
	FlushResponseTimeTimer(t *Timer)
}

var kinds = [...]ptr.Kind{ptr.KindNone, ptr.KindSingle, ptr.KindArray, ptr.KindCustom}

type Metrics struct {
	allocated [len(kinds)]*metrics.Counter
	freed     [len(kinds)]*metrics.Counter
	targets   [len(kinds)]*metrics.Counter
	values    [len(kinds)]*metrics.Counter

	promoted *metrics.Counter
	expired  *metrics.Counter

	hits     *metrics.Counter
	weakHits *metrics.Counter
	misses   *metrics.Counter
	evicted  *metrics.Counter

	live      atomic.Int64
	storeLen  atomic.Int64
	weakIndex atomic.Int64
}

// New registers the meter counters in the default VictoriaMetrics set.
// Repeated calls share the same counters, the gauges follow the newest meter.
func New() *Metrics {
	m := &Metrics{
		promoted: metrics.GetOrCreateCounter(keyword.Promotions + `{result="ok"}`),
		expired:  metrics.GetOrCreateCounter(keyword.Promotions + `{result="expired"}`),
		hits:     metrics.GetOrCreateCounter(keyword.StoreHits),
		weakHits: metrics.GetOrCreateCounter(keyword.StoreWeakHits),
		misses:   metrics.GetOrCreateCounter(keyword.StoreMisses),
		evicted:  metrics.GetOrCreateCounter(keyword.StoreEvicted),
	}
	for _, kind := range kinds {
		m.allocated[kind] = metrics.GetOrCreateCounter(withKind(keyword.BlocksAllocated, kind))
		m.freed[kind] = metrics.GetOrCreateCounter(withKind(keyword.BlocksFreed, kind))
		m.targets[kind] = metrics.GetOrCreateCounter(withKind(keyword.TargetsDisposed, kind))
		m.values[kind] = metrics.GetOrCreateCounter(withKind(keyword.ValuesDisposed, kind))
	}

	current.Store(m)
	registerGauges.Do(func() {
		gauge(keyword.BlocksLive, func(m *Metrics) int64 { return m.live.Load() })
		gauge(keyword.StoreLength, func(m *Metrics) int64 { return m.storeLen.Load() })
		gauge(keyword.WeakIndexLen, func(m *Metrics) int64 { return m.weakIndex.Load() })
	})

	return m
}

var (
	// current is the meter the gauges report, the last one built by New.
	current        atomic.Pointer[Metrics]
	registerGauges sync.Once
)

func gauge(name string, read func(m *Metrics) int64) {
	metrics.GetOrCreateGauge(name, func() float64 {
		if m := current.Load(); m != nil {
			return float64(read(m))
		}
		return 0
	})
}

func withKind(name string, kind ptr.Kind) string {
	return name + `{kind="` + kind.String() + `"}`
}

func (m *Metrics) BlockAllocated(kind ptr.Kind) {
	m.allocated[kind].Inc()
	m.live.Add(1)
}

func (m *Metrics) BlockFreed(kind ptr.Kind) {
	m.freed[kind].Inc()
	m.live.Add(-1)
}

func (m *Metrics) TargetDisposed(kind ptr.Kind, values int) {
	m.targets[kind].Inc()
	m.values[kind].Add(values)
}

func (m *Metrics) Promoted(ok bool) {
	if ok {
		m.promoted.Inc()
	} else {
		m.expired.Inc()
	}
}

// LiveBlocks returns the number of blocks allocated and not yet freed since New.
func (m *Metrics) LiveBlocks() int64 {
	return m.live.Load()
}

func (m *Metrics) IncStoreHit() { m.hits.Inc() }
func (m *Metrics) IncStoreWeakHit() { m.weakHits.Inc() }
func (m *Metrics) IncStoreMiss() { m.misses.Inc() }
func (m *Metrics) IncStoreEvicted() { m.evicted.Inc() }
func (m *Metrics) SetStoreLen(n int64) { m.storeLen.Store(n) }
func (m *Metrics) SetWeakIndexLen(n int64) { m.weakIndex.Store(n) }

func (m *Metrics) FlushSelfCheck(scenario string, passed bool, took time.Duration) {
	safeScenario := sanitize(scenario)

	buf := getBuf()
	defer putBuf(buf)

	*buf = append(*buf, keyword.SelfCheckRuns...)
	*buf = append(*buf, `{scenario="`...)
	*buf = append(*buf, safeScenario...)
	*buf = append(*buf, `",passed="`...)
	*buf = strconv.AppendBool(*buf, passed)
	*buf = append(*buf, `"}`...)
	metrics.GetOrCreateCounter(string(*buf)).Inc()

	*buf = (*buf)[:0]
	*buf = append(*buf, keyword.SelfCheckDurationMs...)
	*buf = append(*buf, `{scenario="`...)
	*buf = append(*buf, safeScenario...)
	*buf = append(*buf, `"}`...)
	metrics.GetOrCreateHistogram(string(*buf)).Update(float64(took.Microseconds()) / 1e3)
}

var statuses [600]string

func init() {
	for i := 100; i <= 599; i++ {
		statuses[i] = strconv.Itoa(i)
	}
}

// IncTotal counts a request, or a response when status is set.
func (m *Metrics) IncTotal(path, method, status string) {
	safePath, safeMethod := sanitize(path), sanitize(method)

	buf := getBuf()
	defer putBuf(buf)

	if status != "" {
		statusCode, err := strconv.Atoi(status)
		if err != nil || statusCode < 100 || statusCode >= len(statuses) {
			panic("invalid status code: " + status)
		}

		*buf = append(*buf, keyword.HttpResponses...)
		*buf = append(*buf, `{path="`...)
		*buf = append(*buf, safePath...)
		*buf = append(*buf, `",method="`...)
		*buf = append(*buf, safeMethod...)
		*buf = append(*buf, `",status="`...)
		*buf = append(*buf, statuses[statusCode]...)
		*buf = append(*buf, `"}`...)

		metrics.GetOrCreateCounter(string(*buf)).Inc()
		return
	}

	*buf = append(*buf, keyword.HttpRequests...)
	*buf = append(*buf, `{path="`...)
	*buf = append(*buf, safePath...)
	*buf = append(*buf, `",method="`...)
	*buf = append(*buf, safeMethod...)
	*buf = append(*buf, `"}`...)

	metrics.GetOrCreateCounter(string(*buf)).Inc()
}

// Timer tracks one response time, pooled.
type Timer struct {
	start time.Time
	buf   *bytes.Buffer
}

var timerPool = sync.Pool{
	New: func() any {
		return &Timer{
			buf: bytes.NewBuffer(make([]byte, 0, 128)),
		}
	},
}

func (m *Metrics) NewResponseTimeTimer(path, method string) *Timer {
	safePath, safeMethod := sanitize(path), sanitize(method)

	t := timerPool.Get().(*Timer)
	t.start = time.Now()
	t.buf.Reset()

	t.buf.WriteString(keyword.HttpResponseTime)
	t.buf.WriteString(`{path="`)
	t.buf.WriteString(safePath)
	t.buf.WriteString(`",method="`)
	t.buf.WriteString(safeMethod)
	t.buf.WriteString(`"}`)

	return t
}

func (m *Metrics) FlushResponseTimeTimer(t *Timer) {
	durationMs := float64(time.Since(t.start).Milliseconds())
	metrics.GetOrCreateHistogram(t.buf.String()).Update(durationMs)
	timerPool.Put(t)
}

// sanitize escapes quotes and backslashes in label values.
func sanitize(s string) string {
	if !strings.ContainsAny(s, `"\`) {
		return s
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}

var bufPool = sync.Pool{
	New: func() any {
		b := make([]byte, 0, 256)
		return &b
	},
}

func getBuf() *[]byte {
	return bufPool.Get().(*[]byte)
}

func putBuf(b *[]byte) {
	*b = (*b)[:0]
	bufPool.Put(b)
}
