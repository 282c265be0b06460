// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package session wires the goal store, goal-setting conversation, analysis
// runner, hint scheduler, document store and event log together for one
// writer. A session starts in goal setting, or in writing when the writer
// already has a saved document.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/goalwriter/internal/analysis"
	"github.com/pdiddy/goalwriter/internal/clock"
	"github.com/pdiddy/goalwriter/internal/conversation"
	"github.com/pdiddy/goalwriter/internal/critic"
	"github.com/pdiddy/goalwriter/internal/events"
	"github.com/pdiddy/goalwriter/internal/goalstore"
	"github.com/pdiddy/goalwriter/internal/hint"
	"github.com/pdiddy/goalwriter/internal/sentence"
	"github.com/pdiddy/goalwriter/internal/store"
	"github.com/pdiddy/goalwriter/pkg/types"
)

// Phase is the view a session is in.
type Phase string

const (
	PhaseGoalSetting Phase = "goal_setting"
	PhaseWriting     Phase = "writing"
)

// saveTimeout bounds one debounced save.
const saveTimeout = 10 * time.Second

var (
	// ErrWrongPhase is returned for an operation the current phase does not offer.
	ErrWrongPhase = errors.New("operation not available in this phase")

	// ErrNoGoal is returned for a goal index outside the flattened goals.
	ErrNoGoal = errors.New("no such goal")

	// ErrClosed is returned by operations on a closed session.
	ErrClosed = errors.New("session closed")
)

// Deps are the shared services a session is built from.
type Deps struct {
	Critic    *critic.Client
	Documents store.DocumentStore
	Events    *events.Recorder
	Clock     clock.Clock
	Config    types.AppConfig
	Logger    *zap.Logger
}

// Session is one writer's working state.
type Session struct {
	userID string
	docs   store.DocumentStore
	rec    events.UserRecorder
	log    *zap.Logger

	goals   *goalstore.Store
	conv    *conversation.Conversation
	runner  *analysis.Runner
	hints   *hint.Scheduler
	save    *clock.Debouncer
	analyze *clock.Debouncer

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	phase   Phase
	text    string
	base    *critic.Client
	critic  *critic.Client
	subs    map[int]chan Notification
	nextSub int
	closed  bool
}

// Open loads userID's document and builds a session around it.
func Open(ctx context.Context, userID string, deps Deps) (*Session, error) {
	if userID == "" {
		return nil, store.ErrNoUser
	}
	cfg := withDefaults(deps.Config)
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("user_id", userID))
	if deps.Documents == nil {
		return nil, errors.New("no document store configured")
	}
	client := deps.Critic
	if client == nil {
		client = critic.NewClient(nil, cfg.Critic, log)
	}
	mode, err := hint.ParseMode(cfg.Hint.Mode)
	if err != nil {
		return nil, err
	}

	doc, err := deps.Documents.Load(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("opening session: %w", err)
	}
	phase := PhaseGoalSetting
	if doc != nil {
		phase = PhaseWriting
	} else {
		doc = types.NewDocument()
	}

	s := &Session{
		userID: userID,
		docs:   deps.Documents,
		rec:    deps.Events.For(userID),
		log:    log,
		goals:  goalstore.NewStore(doc.GoalStructure),
		phase:  phase,
		text:   doc.EditorText,
		base:   client,
		critic: client,
		subs:   make(map[int]chan Notification),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	c := sessionCritic{s}
	s.conv = conversation.New(s.goals, c, s.rec, log)
	s.hints = hint.NewScheduler(hint.Options{
		Clock:     deps.Clock,
		Mode:      mode,
		Suggester: c,
		Recorder:  s.rec,
		OnTrigger: s.onHint,
		Goals:     s.goals.Flatten,
		Logger:    log,
	})
	s.runner = analysis.NewRunner(analysis.NewEngine(c, cfg.Analysis.BatchSize, log), s.onAnalysis, log)
	s.save = clock.NewDebouncer(deps.Clock, cfg.Persistence.SaveDebounce, s.persist)
	s.analyze = clock.NewDebouncer(deps.Clock, cfg.Analysis.Debounce, s.reanalyze)

	s.rec.Record(ctx, events.UserSessionStarted, map[string]any{"phase": string(phase)})
	if phase == PhaseWriting {
		s.analyze.Trigger()
	}
	log.Info("session opened", zap.String("phase", string(phase)))
	return s, nil
}

func withDefaults(cfg types.AppConfig) types.AppConfig {
	def := types.DefaultAppConfig()
	if cfg.Analysis.BatchSize <= 0 {
		cfg.Analysis.BatchSize = def.Analysis.BatchSize
	}
	if cfg.Analysis.Debounce <= 0 {
		cfg.Analysis.Debounce = def.Analysis.Debounce
	}
	if cfg.Persistence.SaveDebounce <= 0 {
		cfg.Persistence.SaveDebounce = def.Persistence.SaveDebounce
	}
	return cfg
}

// UserID returns the writer's id.
func (s *Session) UserID() string { return s.userID }

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Text returns the editor text.
func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

// Goals returns the current goal structure. Callers must not modify it.
func (s *Session) Goals() *types.GoalStructure { return s.goals.Current() }

// FlatGoals returns the current flattened goals.
func (s *Session) FlatGoals() []types.FlatGoal { return s.goals.Flatten() }

// Document returns the goal structure and editor text together.
func (s *Session) Document() types.Document {
	return types.Document{GoalStructure: s.goals.Current(), EditorText: s.Text()}
}

// --- goal setting ---

// Send passes a chat message to the goal-setting conversation.
func (s *Session) Send(ctx context.Context, text string) (conversation.Reply, error) {
	if err := s.require(PhaseGoalSetting); err != nil {
		return conversation.Reply{}, err
	}
	before := s.goals.Version()
	reply, err := s.conv.Send(ctx, text)
	if s.goals.Version() != before {
		s.notify(NotifyGoals, s.goals.Current())
	}
	return reply, err
}

// Transcript returns the goal-setting chat so far.
func (s *Session) Transcript() []conversation.Message { return s.conv.Transcript() }

// ConversationState returns the goal-setting chat step.
func (s *Session) ConversationState() conversation.State { return s.conv.State() }

// RawJSON returns the raw-edit view of the goal structure.
func (s *Session) RawJSON() string { return s.conv.RawJSON() }

// RawValid reports whether the raw edit buffer parses.
func (s *Session) RawValid() bool { return s.conv.RawValid() }

// EditRaw replaces the goal structure from raw JSON during goal setting.
func (s *Session) EditRaw(text string) error {
	if err := s.require(PhaseGoalSetting); err != nil {
		return err
	}
	if err := s.conv.EditRaw(text); err != nil {
		return err
	}
	s.notify(NotifyGoals, s.goals.Current())
	return nil
}

// Confirm ends goal setting and switches the session to writing.
func (s *Session) Confirm(ctx context.Context) (*types.GoalStructure, error) {
	if err := s.require(PhaseGoalSetting); err != nil {
		return nil, err
	}
	g, err := s.conv.Confirm(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.phase = PhaseWriting
	s.mu.Unlock()

	s.notify(NotifyPhase, PhaseWriting)
	s.save.Trigger()
	s.analyze.Trigger()
	return g, nil
}

// --- goal edits ---

// SetGoalText rewrites the text at path, keeping key point kinds.
func (s *Session) SetGoalText(path, text string) error {
	return s.editGoals(func() (uint64, error) { return s.goals.SetText(path, text) })
}

// InsertGoal adds a default sibling after the element at path.
func (s *Session) InsertGoal(path string) error {
	return s.editGoals(func() (uint64, error) { return s.goals.InsertSibling(path) })
}

// RemoveGoal deletes the element at path.
func (s *Session) RemoveGoal(path string) error {
	return s.editGoals(func() (uint64, error) { return s.goals.RemoveAt(path) })
}

// ReplaceGoals swaps in a whole goal structure.
func (s *Session) ReplaceGoals(g *types.GoalStructure) error {
	if g == nil {
		return errors.New("goal structure is required")
	}
	return s.editGoals(func() (uint64, error) { return s.goals.Replace(g), nil })
}

func (s *Session) editGoals(op func() (uint64, error)) error {
	if s.isClosed() {
		return ErrClosed
	}
	if _, err := op(); err != nil {
		return err
	}
	s.notify(NotifyGoals, s.goals.Current())
	s.changed(false)
	return nil
}

// --- writing ---

// SetText replaces the editor text. Each call counts as one edit for hint
// scheduling and restarts the save and analysis quiet periods.
func (s *Session) SetText(text string) error {
	if err := s.require(PhaseWriting); err != nil {
		return err
	}
	s.mu.Lock()
	s.text = text
	s.mu.Unlock()
	s.changed(true)
	return nil
}

// changed schedules the follow-up work of an edit in the writing phase.
func (s *Session) changed(textEdit bool) {
	if s.Phase() != PhaseWriting {
		return
	}
	s.save.Trigger()
	s.analyze.Trigger()
	if textEdit {
		s.hints.TextChanged()
	}
}

// SetSternness changes how harshly the review critic grades and schedules
// a re-analysis.
func (s *Session) SetSternness(st types.Sternness) {
	s.mu.Lock()
	s.critic = s.base.WithSternness(st)
	s.mu.Unlock()
	s.changed(false)
}

// Sternness returns the active review strictness.
func (s *Session) Sternness() types.Sternness { return s.client().Sternness() }

func (s *Session) client() *critic.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.critic
}

// Sentences splits the editor text.
func (s *Session) Sentences() []sentence.Sentence { return sentence.Split(s.Text()) }

// Matching returns the sentences that mention goal index's text.
func (s *Session) Matching(index int) ([]sentence.Sentence, error) {
	goals := s.goals.Flatten()
	if index < 0 || index >= len(goals) {
		return nil, ErrNoGoal
	}
	return sentence.Matching(s.Sentences(), goals[index].Text), nil
}

// Highlights resolves the evidence of goal index's latest judgment of kind
// to sentences of the current text.
func (s *Session) Highlights(index int, kind types.ScoreKind) ([]sentence.Highlight, error) {
	view := s.Analysis()
	if view.Stale || index < 0 || index >= len(view.Goals) {
		return nil, ErrNoGoal
	}
	return sentence.Evidence(s.Sentences(), view.Result.Judgment(kind, index)), nil
}

// Summary asks for a prose assessment of the text against goal index.
func (s *Session) Summary(ctx context.Context, index int) (types.Summary, error) {
	goals := s.goals.Flatten()
	if index < 0 || index >= len(goals) {
		return types.Summary{}, ErrNoGoal
	}
	return s.client().Summary(ctx, goals[index].Text, s.Text())
}

// Flush persists a pending debounced save now.
func (s *Session) Flush() bool { return s.save.Flush() }

// Close saves pending changes, stops timers and background analyses, and
// ends every subscription.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	s.analyze.Stop()
	s.hints.Stop()
	s.save.Flush()

	s.mu.Lock()
	s.closed = true
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	s.cancel()
	s.runner.Close()
	for _, ch := range subs {
		close(ch)
	}
	s.log.Info("session closed")
	return nil
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) require(p Phase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.phase != p {
		return fmt.Errorf("%w: session is %s", ErrWrongPhase, s.phase)
	}
	return nil
}

// persist writes the document. It runs from the save debouncer.
func (s *Session) persist() {
	if s.Phase() != PhaseWriting {
		return
	}
	g, version := s.goals.Snapshot()
	text := s.Text()

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	patch := types.DocumentPatch{GoalStructure: g, EditorText: &text}
	if err := s.docs.Save(ctx, s.userID, patch); err != nil {
		s.log.Error("saving document failed", zap.Error(err))
		return
	}
	s.log.Debug("document saved", zap.Uint64("version", version))
	s.notify(NotifySaved, SavedPayload{Version: version})
}

// reanalyze submits the current text and goals. It runs from the analysis
// debouncer.
func (s *Session) reanalyze() {
	if s.isClosed() || s.Phase() != PhaseWriting {
		return
	}
	s.runner.Submit(s.ctx, s.Text(), s.goals.Flatten())
}

// AnalyzeNow runs an analysis synchronously, dropping a pending debounced
// one. It reports whether the result was published.
func (s *Session) AnalyzeNow(ctx context.Context) (AnalysisView, bool) {
	s.analyze.Stop()
	_, ok := s.runner.Run(ctx, s.Text(), s.goals.Flatten())
	return s.Analysis(), ok
}

func (s *Session) onAnalysis(run analysis.Run) {
	s.hints.SetAnalysis(run.Goals, run.Result)
	s.notify(NotifyAnalysis, s.view(run, true))
}
