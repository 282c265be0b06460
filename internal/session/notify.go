// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import "go.uber.org/zap"

// Notification kinds.
const (
	NotifyAnalysis = "analysis"
	NotifyHint     = "hint"
	NotifyGoals    = "goals"
	NotifyPhase    = "phase"
	NotifySaved    = "saved"
)

// subscriberBuffer is the per-subscriber queue length. A subscriber that
// falls this far behind loses notifications rather than blocking the session.
const subscriberBuffer = 16

// Notification is pushed to subscribers when session state changes.
type Notification struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// SavedPayload accompanies NotifySaved.
type SavedPayload struct {
	Version uint64 `json:"version"`
}

// Subscribe returns a channel of notifications and a function ending the
// subscription. The channel is closed by that function or when the session
// closes.
func (s *Session) Subscribe() (<-chan Notification, func()) {
	ch := make(chan Notification, subscriberBuffer)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

func (s *Session) notify(kind string, payload any) {
	n := Notification{Type: kind, Payload: payload}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.subs {
		select {
		case ch <- n:
		default:
			s.log.Warn("dropping notification for slow subscriber", zap.Int("subscriber", id), zap.String("type", kind))
		}
	}
}
