// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package hint decides when to surface writing advice. Edits accumulate
// while the writer types; after a pause, if enough edits piled up and the
// latest analysis shows a goal in trouble, the scheduler triggers a hint.
package hint

import (
	"context"
	"errors"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/pdiddy/goalwriter/internal/analysis"
	"github.com/pdiddy/goalwriter/internal/clock"
	"github.com/pdiddy/goalwriter/internal/events"
	"github.com/pdiddy/goalwriter/pkg/types"
)

// State is the scheduler state.
type State string

const (
	StateIdle         State = "idle"
	StateAccumulating State = "accumulating"
	StateTriggered    State = "triggered"
)

// ErrNoProblem is returned when advice is requested but no goal needs it.
var ErrNoProblem = errors.New("no goal needs advice")

// Suggester produces advice for a failing goal. *critic.Client satisfies it.
type Suggester interface {
	Suggestion(ctx context.Context, keyPoint, text, problem string) (types.Suggestion, error)
}

// Recorder records interaction events. events.UserRecorder satisfies it.
type Recorder interface {
	Record(ctx context.Context, name string, details map[string]any)
}

// Advice is a suggestion together with the goal it addresses.
type Advice struct {
	Problem    analysis.Problem `json:"problem"`
	Suggestion types.Suggestion `json:"suggestion"`
}

// Options configures a Scheduler. Only Suggester is required for advice.
type Options struct {
	Clock     clock.Clock
	Mode      Mode
	Suggester Suggester
	Recorder  Recorder
	// OnTrigger runs, outside the scheduler lock, each time a hint surfaces.
	OnTrigger func(analysis.Problem)
	// Goals returns the current flattened goals. When set, a stored analysis
	// computed for a different goal list is never used.
	Goals  func() []types.FlatGoal
	Logger *zap.Logger
}

// Scheduler is the idle/accumulating/triggered state machine.
type Scheduler struct {
	clock     clock.Clock
	suggester Suggester
	recorder  Recorder
	onTrigger func(analysis.Problem)
	liveGoals func() []types.FlatGoal
	log       *zap.Logger

	mu       sync.Mutex
	mode     Mode
	state    State
	count    int
	timer    clock.Timer
	timerGen uint64
	goals    []types.FlatGoal
	result   types.AnalysisResult
}

// NewScheduler returns an idle scheduler.
func NewScheduler(opts Options) *Scheduler {
	s := &Scheduler{
		clock:     opts.Clock,
		suggester: opts.Suggester,
		recorder:  opts.Recorder,
		onTrigger: opts.OnTrigger,
		liveGoals: opts.Goals,
		log:       opts.Logger,
		mode:      opts.Mode,
		state:     StateIdle,
	}
	if s.clock == nil {
		s.clock = clock.Real{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.mode.Name == "" {
		s.mode = ModeStrict
	}
	return s
}

// State returns the current state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Count returns the number of edits since the last check.
func (s *Scheduler) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Mode returns the active mode.
func (s *Scheduler) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SetMode switches modes. Pending edits are dropped.
func (s *Scheduler) SetMode(m Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimer()
	s.mode = m
	s.count = 0
	if s.state == StateAccumulating {
		s.state = StateIdle
	}
}

// SetAnalysis stores the latest analysis. A result whose length does not
// match goals is ignored.
func (s *Scheduler) SetAnalysis(goals []types.FlatGoal, result types.AnalysisResult) {
	if !result.Aligned(goals) {
		s.log.Debug("ignoring misaligned analysis", zap.Int("goals", len(goals)), zap.Int("scores", result.Len()))
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goals = goals
	s.result = result
}

// TextChanged counts one edit and restarts the inactivity timer. In disabled
// mode it does nothing.
func (s *Scheduler) TextChanged() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode.Disabled {
		return
	}
	s.count++
	if s.state == StateIdle {
		s.state = StateAccumulating
	}
	s.stopTimer()
	s.timerGen++
	gen := s.timerGen
	s.timer = s.clock.AfterFunc(s.mode.Delay, func() { s.fire(gen) })
}

// fire runs when the inactivity timer expires.
func (s *Scheduler) fire(gen uint64) {
	live := s.current()
	s.mu.Lock()
	if gen != s.timerGen {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	met := s.count >= s.mode.Threshold
	s.count = 0
	problem, found := s.firstProblem(live)
	if met && found {
		s.state = StateTriggered
	} else if s.state == StateAccumulating {
		s.state = StateIdle
	}
	onTrigger := s.onTrigger
	s.mu.Unlock()

	if met && found {
		s.log.Debug("hint triggered", zap.Int("goal", problem.Index), zap.String("kind", string(problem.Kind)))
		if onTrigger != nil {
			onTrigger(problem)
		}
	}
}

// Dismiss closes a surfaced hint.
func (s *Scheduler) Dismiss() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toIdle()
}

// Stop cancels the inactivity timer; used when a session closes.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimer()
}

// RequestAdvice returns to idle and asks for a suggestion on the first
// problem goal of the latest analysis. Content problems are preferred to
// review problems on the same goal.
func (s *Scheduler) RequestAdvice(ctx context.Context, text string) (Advice, error) {
	live := s.current()
	s.mu.Lock()
	s.toIdle()
	problem, found := s.firstProblem(live)
	s.mu.Unlock()

	if !found {
		return Advice{}, ErrNoProblem
	}
	s.record(ctx, events.AdviceTriggeredAuto, problem)
	return s.advise(ctx, text, problem)
}

// AdviceFor asks for a suggestion on a specific goal and kind chosen by the
// writer rather than by the scheduler.
func (s *Scheduler) AdviceFor(ctx context.Context, text string, index int, kind types.ScoreKind) (Advice, error) {
	live := s.current()
	s.mu.Lock()
	goals, result := s.goals, s.result
	fresh := s.fresh(live)
	s.mu.Unlock()

	if !fresh || index < 0 || index >= len(goals) || !result.Aligned(goals) {
		return Advice{}, ErrNoProblem
	}
	if kind != types.ScoreReview {
		kind = types.ScoreContent
	}
	problem := analysis.Problem{
		Index: index,
		Kind:  kind,
		Score: result.Score(kind, index),
		Goal:  goals[index],
		Judge: result.Judgment(kind, index),
	}
	s.record(ctx, events.AdviceTriggeredManual, problem)
	return s.advise(ctx, text, problem)
}

func (s *Scheduler) advise(ctx context.Context, text string, p analysis.Problem) (Advice, error) {
	if s.suggester == nil {
		return Advice{}, errors.New("no suggester configured")
	}
	sug, err := s.suggester.Suggestion(ctx, p.Goal.Text, text, p.Description())
	if err != nil {
		return Advice{Problem: p}, err
	}
	return Advice{Problem: p, Suggestion: sug}, nil
}

func (s *Scheduler) record(ctx context.Context, name string, p analysis.Problem) {
	if s.recorder == nil {
		return
	}
	s.recorder.Record(ctx, name, map[string]any{
		"goal":  p.Goal.Text,
		"path":  p.Goal.Path,
		"index": p.Index,
		"type":  string(p.Kind),
	})
}

// current returns the live goals, or nil when the scheduler has no source
// for them.
func (s *Scheduler) current() []types.FlatGoal {
	if s.liveGoals == nil {
		return nil
	}
	return s.liveGoals()
}

// fresh reports whether the stored analysis was computed for live. Without a
// goal source every aligned analysis counts as fresh. Caller holds mu.
func (s *Scheduler) fresh(live []types.FlatGoal) bool {
	if s.liveGoals == nil {
		return true
	}
	return slices.Equal(s.goals, live)
}

// firstProblem is analysis.FirstProblem over the stored analysis, or nothing
// when that analysis is out of date. Caller holds mu.
func (s *Scheduler) firstProblem(live []types.FlatGoal) (analysis.Problem, bool) {
	if !s.fresh(live) {
		s.log.Debug("ignoring analysis computed for other goals", zap.Int("goals", len(live)), zap.Int("analyzed", len(s.goals)))
		return analysis.Problem{}, false
	}
	return analysis.FirstProblem(s.result, s.goals)
}

// toIdle returns to idle and drops pending edits. Caller holds mu.
func (s *Scheduler) toIdle() {
	s.stopTimer()
	s.count = 0
	s.state = StateIdle
}

// stopTimer cancels the inactivity timer. Caller holds mu.
func (s *Scheduler) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerGen++
}
