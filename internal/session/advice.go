// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"context"
	"reflect"

	"github.com/pdiddy/goalwriter/internal/analysis"
	"github.com/pdiddy/goalwriter/internal/events"
	"github.com/pdiddy/goalwriter/internal/hint"
	"github.com/pdiddy/goalwriter/pkg/types"
)

// sessionCritic routes every critic call through the session's current
// client, so a sternness change applies to the next request.
type sessionCritic struct{ s *Session }

func (c sessionCritic) Metadata(ctx context.Context, idea string) (types.Metadata, error) {
	return c.s.client().Metadata(ctx, idea)
}

func (c sessionCritic) Objective(ctx context.Context, description string) (types.SectionPlan, error) {
	return c.s.client().Objective(ctx, description)
}

func (c sessionCritic) ContentJudgment(ctx context.Context, keyPoint, text string) (*types.Judgment, error) {
	return c.s.client().ContentJudgment(ctx, keyPoint, text)
}

func (c sessionCritic) ReviewJudgment(ctx context.Context, keyPoint, text string) (*types.Judgment, error) {
	return c.s.client().ReviewJudgment(ctx, keyPoint, text)
}

func (c sessionCritic) Suggestion(ctx context.Context, keyPoint, text, problem string) (types.Suggestion, error) {
	return c.s.client().Suggestion(ctx, keyPoint, text, problem)
}

// AnalysisView is the latest published analysis as a client should render
// it. Stale is set when the goals have changed since the run was submitted;
// a stale result must not be displayed against the current goals.
type AnalysisView struct {
	Generation uint64               `json:"generation"`
	Goals      []types.FlatGoal     `json:"goals"`
	Result     types.AnalysisResult `json:"result"`
	Counts     analysis.Counts      `json:"counts"`
	Stale      bool                 `json:"stale"`
	Ready      bool                 `json:"ready"`
}

// Analysis returns the latest published analysis.
func (s *Session) Analysis() AnalysisView {
	run, ok := s.runner.Latest()
	return s.view(run, ok)
}

func (s *Session) view(run analysis.Run, ok bool) AnalysisView {
	current := s.goals.Flatten()
	if !ok {
		return AnalysisView{Goals: current, Result: types.NewAnalysisResult(len(current))}
	}
	return AnalysisView{
		Generation: run.Generation,
		Goals:      run.Goals,
		Result:     run.Result,
		Counts:     analysis.Summarize(run.Result),
		Stale:      !reflect.DeepEqual(run.Goals, current) || !run.Result.Aligned(current),
		Ready:      true,
	}
}

// HintState returns the hint scheduler state.
func (s *Session) HintState() hint.State { return s.hints.State() }

// HintMode returns the active hint mode.
func (s *Session) HintMode() hint.Mode { return s.hints.Mode() }

// SetHintMode switches the hint mode by name.
func (s *Session) SetHintMode(name string) error {
	m, err := hint.ParseMode(name)
	if err != nil {
		return err
	}
	s.hints.SetMode(m)
	return nil
}

// DismissHint closes a surfaced hint without asking for advice.
func (s *Session) DismissHint() { s.hints.Dismiss() }

// RequestAdvice asks for a suggestion on the first problem goal.
func (s *Session) RequestAdvice(ctx context.Context) (hint.Advice, error) {
	if err := s.require(PhaseWriting); err != nil {
		return hint.Advice{}, err
	}
	return s.hints.RequestAdvice(ctx, s.Text())
}

// AdviceFor asks for a suggestion on a goal the writer picked.
func (s *Session) AdviceFor(ctx context.Context, index int, kind types.ScoreKind) (hint.Advice, error) {
	if err := s.require(PhaseWriting); err != nil {
		return hint.Advice{}, err
	}
	return s.hints.AdviceFor(ctx, s.Text(), index, kind)
}

// AcceptAdvice records that the writer took a suggestion.
func (s *Session) AcceptAdvice(ctx context.Context, suggestion string) {
	s.rec.Record(ctx, events.AdviceAccepted, map[string]any{"suggestion": suggestion})
}

// RejectAdvice records that the writer declined a suggestion.
func (s *Session) RejectAdvice(ctx context.Context) {
	s.rec.Record(ctx, events.AdviceRejected, nil)
}

func (s *Session) onHint(p analysis.Problem) {
	s.notify(NotifyHint, p)
}
