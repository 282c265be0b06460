// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRecorderWritesToSink(t *testing.T) {
	sink := &Memory{}
	r := NewRecorder(sink, nil)
	r.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	r.For("u1").Record(context.Background(), AdviceAccepted, map[string]any{"goal": "g"})
	r.Record(context.Background(), "u2", UserSessionStarted, nil)

	got := sink.Events()
	require.Len(t, got, 2)
	assert.Equal(t, Event{
		ID:      1,
		UserID:  "u1",
		Name:    AdviceAccepted,
		Details: map[string]any{"goal": "g"},
		At:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}, got[0])
	assert.Equal(t, []string{AdviceAccepted, UserSessionStarted}, sink.Names())
}

func TestRecorderSwallowsSinkErrors(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	sink := &Memory{}
	sink.Fail(errors.New("disk full"))
	r := NewRecorder(sink, zap.New(core))

	assert.NotPanics(t, func() {
		r.Record(context.Background(), "u", AdviceRejected, nil)
	})
	assert.Empty(t, sink.Events())
	assert.Equal(t, 1, logs.FilterMessage("recording event failed").Len())
}

func TestNilRecorderAndSink(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() { r.Record(context.Background(), "u", "x", nil) })
	assert.NotPanics(t, func() { NewRecorder(nil, nil).Record(context.Background(), "u", "x", nil) })
}
