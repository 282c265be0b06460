// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package hint

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/goalwriter/internal/analysis"
	"github.com/pdiddy/goalwriter/internal/clock"
	"github.com/pdiddy/goalwriter/pkg/types"
)

// --- fakes ---

type fakeSuggester struct {
	mu       sync.Mutex
	problems []string
	goals    []string
	err      error
}

func (f *fakeSuggester) Suggestion(_ context.Context, keyPoint, _, problem string) (types.Suggestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.goals = append(f.goals, keyPoint)
	f.problems = append(f.problems, problem)
	if f.err != nil {
		return types.Suggestion{}, f.err
	}
	return types.Suggestion{StateDescription: "off", Suggestion: "fix " + keyPoint}, nil
}

type fakeRecorder struct {
	mu    sync.Mutex
	names []string
	last  map[string]any
}

func (f *fakeRecorder) Record(_ context.Context, name string, details map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.names = append(f.names, name)
	f.last = details
}

func goals(texts ...string) []types.FlatGoal {
	out := make([]types.FlatGoal, len(texts))
	for i, t := range texts {
		out[i] = types.FlatGoal{Text: t, Path: "p" + t, Type: types.GoalMain}
	}
	return out
}

// result builds an analysis where every goal has review 1.0 and content
// as given; a negative content score means "absent".
func result(content ...float64) types.AnalysisResult {
	r := types.NewAnalysisResult(len(content))
	for i, c := range content {
		r.ReviewScores[i] = 1
		r.ReviewJudgments[i] = &types.Judgment{Score: 5}
		if c < 0 {
			continue
		}
		r.ContentScores[i] = c
		r.ContentJudgments[i] = &types.Judgment{Score: c*4 + 1}
	}
	return r
}

type harness struct {
	clock     *clock.Fake
	sched     *Scheduler
	sug       *fakeSuggester
	rec       *fakeRecorder
	triggered []analysis.Problem
}

func newHarness(mode Mode) *harness {
	h := &harness{clock: clock.NewFake(), sug: &fakeSuggester{}, rec: &fakeRecorder{}}
	h.sched = NewScheduler(Options{
		Clock:     h.clock,
		Mode:      mode,
		Suggester: h.sug,
		Recorder:  h.rec,
		OnTrigger: func(p analysis.Problem) { h.triggered = append(h.triggered, p) },
	})
	return h
}

func (h *harness) edits(n int) {
	for i := 0; i < n; i++ {
		h.sched.TextChanged()
	}
}

func TestStrictModeTriggers(t *testing.T) {
	h := newHarness(ModeStrict)
	h.sched.SetAnalysis(goals("g"), result(0.2))

	h.edits(3)
	assert.Equal(t, StateAccumulating, h.sched.State())
	h.clock.Advance(299 * time.Millisecond)
	assert.Equal(t, StateAccumulating, h.sched.State())

	h.clock.Advance(time.Millisecond)
	assert.Equal(t, StateTriggered, h.sched.State())
	assert.Equal(t, 0, h.sched.Count())
	require.Len(t, h.triggered, 1)
	assert.Equal(t, types.ScoreContent, h.triggered[0].Kind)
	assert.Equal(t, "g", h.triggered[0].Goal.Text)
}

func TestBelowThresholdStaysIdle(t *testing.T) {
	h := newHarness(ModeStrict)
	h.sched.SetAnalysis(goals("g"), result(0.2))

	h.edits(2)
	h.clock.Advance(300 * time.Millisecond)
	assert.Equal(t, StateIdle, h.sched.State())
	assert.Equal(t, 0, h.sched.Count(), "counter resets even when the threshold is not met")
	assert.Empty(t, h.triggered)

	// The reset means two more edits still do not reach three.
	h.edits(2)
	h.clock.Advance(300 * time.Millisecond)
	assert.Equal(t, StateIdle, h.sched.State())
}

func TestTimerRestartsOnEachEdit(t *testing.T) {
	h := newHarness(ModeStrict)
	h.sched.SetAnalysis(goals("g"), result(0.2))

	h.sched.TextChanged()
	h.clock.Advance(200 * time.Millisecond)
	h.sched.TextChanged()
	h.clock.Advance(200 * time.Millisecond)
	h.sched.TextChanged()
	assert.Equal(t, 3, h.sched.Count())
	h.clock.Advance(300 * time.Millisecond)
	assert.Equal(t, StateTriggered, h.sched.State())
}

func TestNoProblemNoTrigger(t *testing.T) {
	h := newHarness(ModeStrict)
	h.sched.SetAnalysis(goals("a", "b"), result(0.9, 0.5))
	h.edits(5)
	h.clock.Advance(time.Second)
	assert.Equal(t, StateIdle, h.sched.State())
	assert.Empty(t, h.triggered)
}

func TestAbsentEvidenceDoesNotTrigger(t *testing.T) {
	h := newHarness(ModeStrict)
	h.sched.SetAnalysis(goals("a"), result(-1))
	h.edits(3)
	h.clock.Advance(time.Second)
	assert.Equal(t, StateIdle, h.sched.State())
}

func TestLenientMode(t *testing.T) {
	h := newHarness(ModeLenient)
	h.sched.SetAnalysis(goals("g"), result(0))
	h.edits(6)
	h.clock.Advance(500 * time.Millisecond)
	assert.Equal(t, StateIdle, h.sched.State())
	h.edits(7)
	h.clock.Advance(499 * time.Millisecond)
	assert.Equal(t, StateAccumulating, h.sched.State())
	h.clock.Advance(time.Millisecond)
	assert.Equal(t, StateTriggered, h.sched.State())
}

func TestDisabledModeIgnoresEdits(t *testing.T) {
	h := newHarness(ModeDisabled)
	h.sched.SetAnalysis(goals("g"), result(0))
	h.edits(50)
	assert.Equal(t, 0, h.sched.Count())
	h.clock.Advance(time.Minute)
	assert.Equal(t, StateIdle, h.sched.State())
	assert.Equal(t, 0, h.clock.Pending())
}

func TestMisalignedAnalysisIgnored(t *testing.T) {
	h := newHarness(ModeStrict)
	h.sched.SetAnalysis(goals("a", "b"), result(0.1))
	h.edits(3)
	h.clock.Advance(time.Second)
	assert.Equal(t, StateIdle, h.sched.State())
}

func TestSetModeDropsPendingEdits(t *testing.T) {
	h := newHarness(ModeStrict)
	h.sched.SetAnalysis(goals("g"), result(0.1))
	h.edits(3)
	h.sched.SetMode(ModeLenient)
	assert.Equal(t, 0, h.sched.Count())
	assert.Equal(t, StateIdle, h.sched.State())
	h.clock.Advance(time.Second)
	assert.Empty(t, h.triggered)
	assert.Equal(t, "lenient", h.sched.Mode().Name)
}

func TestDismiss(t *testing.T) {
	h := newHarness(ModeStrict)
	h.sched.SetAnalysis(goals("g"), result(0.1))
	h.edits(3)
	h.clock.Advance(time.Second)
	require.Equal(t, StateTriggered, h.sched.State())
	h.sched.Dismiss()
	assert.Equal(t, StateIdle, h.sched.State())
}

func TestRequestAdvicePicksFirstProblem(t *testing.T) {
	h := newHarness(ModeStrict)
	r := result(0.9, 0.9, 0.1)
	// Goal 1 fails review only; it precedes goal 2's content failure.
	r.ReviewScores[1] = 0.25
	r.ReviewJudgments[1] = &types.Judgment{Score: 2}
	h.sched.SetAnalysis(goals("a", "b", "c"), r)
	h.edits(3)
	h.clock.Advance(time.Second)
	require.Equal(t, StateTriggered, h.sched.State())

	adv, err := h.sched.RequestAdvice(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, StateIdle, h.sched.State())
	assert.Equal(t, 1, adv.Problem.Index)
	assert.Equal(t, types.ScoreReview, adv.Problem.Kind)
	assert.Equal(t, "fix b", adv.Suggestion.Suggestion)
	assert.Equal(t, []string{analysis.ReviewProblem}, h.sug.problems)
	assert.Equal(t, []string{"advice_triggered_auto"}, h.rec.names)
	assert.Equal(t, "Review", h.rec.last["type"])
}

func TestRequestAdviceContentBeforeReview(t *testing.T) {
	h := newHarness(ModeStrict)
	r := result(0.1)
	r.ReviewScores[0] = 0
	r.ReviewJudgments[0] = &types.Judgment{Score: 1}
	h.sched.SetAnalysis(goals("a"), r)

	adv, err := h.sched.RequestAdvice(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, types.ScoreContent, adv.Problem.Kind)
	assert.Equal(t, []string{analysis.ContentProblem}, h.sug.problems)
}

func TestRequestAdviceWithoutProblem(t *testing.T) {
	h := newHarness(ModeStrict)
	h.sched.SetAnalysis(goals("a"), result(1))
	_, err := h.sched.RequestAdvice(context.Background(), "text")
	assert.ErrorIs(t, err, ErrNoProblem)
	assert.Empty(t, h.rec.names)
}

func TestRequestAdviceSuggesterError(t *testing.T) {
	h := newHarness(ModeStrict)
	h.sug.err = errors.New("rate limit exceeded")
	h.sched.SetAnalysis(goals("a"), result(0))
	adv, err := h.sched.RequestAdvice(context.Background(), "text")
	assert.Error(t, err)
	assert.Equal(t, 0, adv.Problem.Index)
}

func TestAdviceForSpecificGoal(t *testing.T) {
	h := newHarness(ModeStrict)
	h.sched.SetAnalysis(goals("a", "b"), result(0.9, 0.9))
	adv, err := h.sched.AdviceFor(context.Background(), "text", 1, types.ScoreReview)
	require.NoError(t, err)
	assert.Equal(t, "b", adv.Problem.Goal.Text)
	assert.Equal(t, []string{"advice_triggered_manual"}, h.rec.names)
	assert.Equal(t, []string{analysis.ReviewProblem}, h.sug.problems)

	_, err = h.sched.AdviceFor(context.Background(), "text", 5, types.ScoreContent)
	assert.ErrorIs(t, err, ErrNoProblem)
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
	}{
		{"strict", ModeStrict},
		{"Standard", ModeStrict},
		{"lenient", ModeLenient},
		{"Weak", ModeLenient},
		{"disabled", ModeDisabled},
		{"None", ModeDisabled},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	_, err := ParseMode("frantic")
	assert.Error(t, err)
}

func TestAnalysisForOtherGoalsIsIgnored(t *testing.T) {
	var mu sync.Mutex
	live := goals("a", "b")
	h := &harness{clock: clock.NewFake(), sug: &fakeSuggester{}, rec: &fakeRecorder{}}
	h.sched = NewScheduler(Options{
		Clock:     h.clock,
		Suggester: h.sug,
		Recorder:  h.rec,
		OnTrigger: func(p analysis.Problem) { h.triggered = append(h.triggered, p) },
		Goals: func() []types.FlatGoal {
			mu.Lock()
			defer mu.Unlock()
			return live
		},
	})
	h.sched.SetAnalysis(goals("a", "b"), result(1, 0.2))

	mu.Lock()
	live = goals("a")
	mu.Unlock()

	h.edits(3)
	h.clock.Advance(300 * time.Millisecond)
	assert.Equal(t, StateIdle, h.sched.State())
	assert.Empty(t, h.triggered)

	_, err := h.sched.RequestAdvice(context.Background(), "text")
	assert.ErrorIs(t, err, ErrNoProblem)
	_, err = h.sched.AdviceFor(context.Background(), "text", 0, types.ScoreContent)
	assert.ErrorIs(t, err, ErrNoProblem)
	assert.Empty(t, h.sug.goals)
	assert.Empty(t, h.rec.names)

	mu.Lock()
	live = goals("a", "b")
	mu.Unlock()
	adv, err := h.sched.RequestAdvice(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, "b", adv.Problem.Goal.Text)
}
