// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analysis

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/pdiddy/goalwriter/pkg/types"
)

// Analyzer is satisfied by *Engine.
type Analyzer interface {
	Analyze(ctx context.Context, text string, goals []types.FlatGoal) types.AnalysisResult
}

// Run is one completed analysis with the inputs it was computed for.
type Run struct {
	Generation uint64               `json:"generation"`
	Text       string               `json:"-"`
	Goals      []types.FlatGoal     `json:"goals"`
	Result     types.AnalysisResult `json:"result"`
}

// Runner tags every analysis with a generation number at submission. A run
// that completes after a newer one was submitted is discarded on arrival;
// nothing is cancelled in flight.
type Runner struct {
	analyzer  Analyzer
	onPublish func(Run)
	log       *zap.Logger

	mu        sync.Mutex
	submitted uint64
	latest    Run
	has       bool
	closed    bool

	wg sync.WaitGroup
}

// NewRunner returns a runner. onPublish, if set, is called with every
// published run, outside the runner's lock.
func NewRunner(analyzer Analyzer, onPublish func(Run), log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{analyzer: analyzer, onPublish: onPublish, log: log}
}

// Run analyzes synchronously. It returns the run and whether it was
// published, i.e. no newer run was submitted while it was in flight.
func (r *Runner) Run(ctx context.Context, text string, goals []types.FlatGoal) (Run, bool) {
	gen := r.next()
	return r.execute(ctx, gen, text, goals)
}

// Submit starts an analysis in the background and returns its generation.
// After Close it starts nothing and returns 0.
func (r *Runner) Submit(ctx context.Context, text string, goals []types.FlatGoal) uint64 {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return 0
	}
	r.submitted++
	gen := r.submitted
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		r.execute(ctx, gen, text, goals)
	}()
	return gen
}

// Wait blocks until every submitted analysis has finished.
func (r *Runner) Wait() { r.wg.Wait() }

// Close stops accepting submissions, waits for those in flight, and drops
// their results.
func (r *Runner) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.wg.Wait()
}

// Latest returns the most recently published run.
func (r *Runner) Latest() (Run, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.latest, r.has
}

// Generation returns the generation of the newest submission.
func (r *Runner) Generation() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.submitted
}

func (r *Runner) next() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.submitted++
	return r.submitted
}

func (r *Runner) execute(ctx context.Context, gen uint64, text string, goals []types.FlatGoal) (Run, bool) {
	result := r.analyzer.Analyze(ctx, text, goals)
	run := Run{Generation: gen, Text: text, Goals: goals, Result: result}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.log.Debug("discarding analysis after close", zap.Uint64("generation", gen))
		return run, false
	}
	if gen != r.submitted {
		latest := r.submitted
		r.mu.Unlock()
		r.log.Debug("discarding stale analysis", zap.Uint64("generation", gen), zap.Uint64("latest", latest))
		return run, false
	}
	r.latest = run
	r.has = true
	r.mu.Unlock()

	if r.onPublish != nil {
		r.onPublish(run)
	}
	return run, true
}
