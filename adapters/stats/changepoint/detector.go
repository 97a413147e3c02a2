// Package changepoint holds the four change-point detection strategies
// and the engine that runs them side by side.
package changepoint

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"gobrittle/domain/brittleness"
	"gobrittle/domain/series"
	"gobrittle/internal"
	"gobrittle/internal/config"
)

// Detector defines the interface for each change-point strategy
type Detector interface {
	Method() brittleness.Method
	Detect(ctx context.Context, s *series.Series, windows []brittleness.WindowFeatures) ([]brittleness.Candidate, error)
}

// Outcome is the result of one detector. Err is set when the detector
// failed; the remaining detectors are unaffected.
type Outcome struct {
	Method     brittleness.Method      `json:"method"`
	Candidates []brittleness.Candidate `json:"candidates"`
	Err        error                   `json:"-"`
}

// Engine orchestrates the detectors
type Engine struct {
	detectors []Detector
	logger    *internal.Logger
}

// NewEngine creates the standard four-detector engine for a run
func NewEngine(cfg config.AnalysisConfig, logger *internal.Logger) *Engine {
	profile := cfg.Profile()
	return NewEngineWith(logger,
		NewStatisticalDetector(cfg.SignificanceLevel),
		NewClusteringDetector(),
		NewGradientDetector(profile),
		NewInstabilityDetector(profile),
	)
}

// NewEngineWith creates an engine over an explicit detector list
func NewEngineWith(logger *internal.Logger, detectors ...Detector) *Engine {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Engine{detectors: detectors, logger: logger.With("ChangePoint")}
}

// DetectAll runs every detector concurrently and returns the outcomes in
// detector order. A detector error is kept in its outcome; only context
// cancellation aborts the whole call.
func (e *Engine) DetectAll(ctx context.Context, s *series.Series, windows []brittleness.WindowFeatures) ([]Outcome, error) {
	outcomes := make([]Outcome, len(e.detectors))

	var g errgroup.Group
	for i, d := range e.detectors {
		g.Go(func() (err error) {
			outcomes[i].Method = d.Method()
			defer func() {
				if r := recover(); r != nil {
					outcomes[i].Candidates = nil
					outcomes[i].Err = fmt.Errorf("%s detector panicked: %v", d.Method(), r)
				}
			}()
			outcomes[i].Candidates, outcomes[i].Err = d.Detect(ctx, s, windows)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, o := range outcomes {
		if o.Err != nil {
			e.logger.Warn("%s detector failed: %v", o.Method, o.Err)
			continue
		}
		e.logger.Debug("%s detector proposed %d candidates", o.Method, len(o.Candidates))
	}
	return outcomes, nil
}

// Methods lists the engine's detector methods in order
func (e *Engine) Methods() []brittleness.Method {
	methods := make([]brittleness.Method, len(e.detectors))
	for i, d := range e.detectors {
		methods[i] = d.Method()
	}
	return methods
}

// Candidates flattens the successful outcomes
func Candidates(outcomes []Outcome) []brittleness.Candidate {
	var all []brittleness.Candidate
	for _, o := range outcomes {
		if o.Err == nil {
			all = append(all, o.Candidates...)
		}
	}
	return all
}

// Failed counts the detectors that returned an error
func Failed(outcomes []Outcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}
