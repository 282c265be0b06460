// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package events records user-interaction events. Recording never fails from
// the caller's point of view: sink errors are logged and dropped.
package events

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event names.
const (
	UserSessionStarted    = "user_session_started"
	AdviceTriggeredAuto   = "advice_triggered_auto"
	AdviceTriggeredManual = "advice_triggered_manual"
	AdviceAccepted        = "advice_accepted"
	AdviceRejected        = "advice_rejected"
	GoalSettingConfirmed  = "goal_setting_confirmed"
)

// Event is one recorded interaction.
type Event struct {
	ID      int64          `json:"id"`
	UserID  string         `json:"user_id"`
	Name    string         `json:"name"`
	Details map[string]any `json:"details,omitempty"`
	At      time.Time      `json:"at"`
}

// Sink persists events.
type Sink interface {
	Append(ctx context.Context, e Event) error
}

// Recorder stamps events and hands them to a sink.
type Recorder struct {
	sink Sink
	now  func() time.Time
	log  *zap.Logger
}

// NewRecorder returns a recorder writing to sink. A nil sink only logs.
func NewRecorder(sink Sink, log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{sink: sink, now: time.Now, log: log}
}

// Record appends an event for userID.
func (r *Recorder) Record(ctx context.Context, userID, name string, details map[string]any) {
	if r == nil {
		return
	}
	e := Event{UserID: userID, Name: name, Details: details, At: r.now().UTC()}
	r.log.Info("event", zap.String("user_id", userID), zap.String("name", name), zap.Any("details", details))
	if r.sink == nil {
		return
	}
	if err := r.sink.Append(ctx, e); err != nil {
		r.log.Warn("recording event failed", zap.String("name", name), zap.Error(err))
	}
}

// For binds the recorder to one user.
func (r *Recorder) For(userID string) UserRecorder {
	return UserRecorder{r: r, userID: userID}
}

// UserRecorder records events for a fixed user.
type UserRecorder struct {
	r      *Recorder
	userID string
}

// Record appends an event for the bound user.
func (u UserRecorder) Record(ctx context.Context, name string, details map[string]any) {
	u.r.Record(ctx, u.userID, name, details)
}

// Memory is an in-memory Sink for tests and single-process use.
type Memory struct {
	mu     sync.Mutex
	events []Event
	err    error
}

// Fail makes every later Append return err.
func (m *Memory) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Append stores e.
func (m *Memory) Append(_ context.Context, e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	e.ID = int64(len(m.events) + 1)
	m.events = append(m.events, e)
	return nil
}

// Events returns the stored events.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

// Names returns the stored event names in order.
func (m *Memory) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	for i, e := range m.events {
		out[i] = e.Name
	}
	return out
}
