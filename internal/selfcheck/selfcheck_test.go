package selfcheck

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/Borislavv/refptr/pkg/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	os.Exit(m.Run())
}

type samples struct {
	passed map[string]bool
}

func (s *samples) FlushSelfCheck(scenario string, passed bool, _ time.Duration) {
	s.passed[scenario] = passed
}

func TestBuiltinScenariosPass(t *testing.T) {
	m := &samples{passed: map[string]bool{}}
	scenarios := Scenarios(config.Default().Store)

	report := New(scenarios, m).Run(context.Background())

	for _, res := range report.Results {
		assert.True(t, res.Passed, "%s: %s", res.Name, res.Error)
	}
	assert.True(t, report.Passed)
	assert.Len(t, report.Results, len(scenarios))
	assert.Len(t, m.passed, len(scenarios))
}

func TestRun_FailureAndPanic(t *testing.T) {
	report := New([]Scenario{
		{Name: "ok", Run: func() error { return nil }},
		{Name: "fails", Run: func() error { return errors.New("nope") }},
		{Name: "panics", Run: func() error { panic("boom") }},
	}, nil).Run(context.Background())

	require.Len(t, report.Results, 3)
	assert.False(t, report.Passed)
	assert.True(t, report.Results[0].Passed)
	assert.Equal(t, "nope", report.Results[1].Error)
	assert.False(t, report.Results[2].Passed)
	assert.Equal(t, "panic: boom", report.Results[2].Error)
}

func TestRun_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	report := New([]Scenario{{Name: "skipped", Run: func() error { ran = true; return nil }}}, nil).Run(ctx)

	assert.False(t, ran)
	assert.False(t, report.Passed)
	assert.Equal(t, context.Canceled.Error(), report.Results[0].Error)
}
