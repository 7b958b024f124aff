package selfcheck

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Scenario is one named check of the pointer library.
type Scenario struct {
	Name string
	Run  func() error
}

type Result struct {
	Name     string        `json:"name"`
	Passed   bool          `json:"passed"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

type Report struct {
	Passed  bool          `json:"passed"`
	Took    time.Duration `json:"took"`
	Results []Result      `json:"results"`
}

// Meter receives one sample per scenario run. *metrics.Metrics implements it.
type Meter interface {
	FlushSelfCheck(scenario string, passed bool, took time.Duration)
}

type Checker struct {
	scenarios []Scenario
	meter     Meter
}

// New returns a checker over scenarios. A nil meter disables metrics.
func New(scenarios []Scenario, meter Meter) *Checker {
	return &Checker{scenarios: scenarios, meter: meter}
}

// Run executes every scenario in order and stops early when ctx is done.
// A scenario that panics fails with the panic value.
func (c *Checker) Run(ctx context.Context) Report {
	started := time.Now()
	report := Report{Passed: true, Results: make([]Result, 0, len(c.scenarios))}

	for _, sc := range c.scenarios {
		if ctx.Err() != nil {
			report.Passed = false
			report.Results = append(report.Results, Result{Name: sc.Name, Error: ctx.Err().Error()})
			continue
		}

		res := run(sc)
		report.Results = append(report.Results, res)
		report.Passed = report.Passed && res.Passed

		if c.meter != nil {
			c.meter.FlushSelfCheck(res.Name, res.Passed, res.Duration)
		}
		if res.Passed {
			log.Debug().Msgf("[selfcheck] %s passed in %s", res.Name, res.Duration)
		} else {
			log.Error().Msgf("[selfcheck] %s failed in %s: %s", res.Name, res.Duration, res.Error)
		}
	}

	report.Took = time.Since(started)
	log.Info().Msgf("[selfcheck] %d scenarios, passed=%v, took %s", len(report.Results), report.Passed, report.Took)
	return report
}

func run(sc Scenario) (res Result) {
	res.Name = sc.Name
	started := time.Now()
	defer func() {
		res.Duration = time.Since(started)
		if r := recover(); r != nil {
			res.Passed = false
			res.Error = fmt.Sprintf("panic: %v", r)
		}
	}()

	if err := sc.Run(); err != nil {
		res.Error = err.Error()
		return res
	}
	res.Passed = true
	return res
}
