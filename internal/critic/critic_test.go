// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package critic

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/goalwriter/internal/httputil"
	"github.com/pdiddy/goalwriter/pkg/types"
)

// --- mock backend ---

// scriptBackend returns the scripted outputs in order; the last entry repeats.
type scriptBackend struct {
	mu      sync.Mutex
	outputs []scripted
	prompts []string
}

type scripted struct {
	text string
	err  error
}

func (b *scriptBackend) Generate(_ context.Context, req Request) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prompts = append(b.prompts, req.Prompt)
	i := len(b.prompts) - 1
	if i >= len(b.outputs) {
		i = len(b.outputs) - 1
	}
	return b.outputs[i].text, b.outputs[i].err
}

func (b *scriptBackend) calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.prompts)
}

func reply(text string) *scriptBackend {
	return &scriptBackend{outputs: []scripted{{text: text}}}
}

func TestMain(m *testing.M) {
	// Override backoff to avoid real sleeps in retry tests.
	httputil.RetryBaseDelay = time.Millisecond
	os.Exit(m.Run())
}

func testConfig() types.CriticConfig {
	return types.CriticConfig{AIConfig: types.AIConfig{Model: "test-model", MaxRetries: 3}}
}

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		tmpl string
		vars Vars
		want string
	}{
		{"simple", "Goal: {key_point}", Vars{"key_point": "X"}, "Goal: X"},
		{"unresolved stays", "A {missing} B", Vars{}, "A {missing} B"},
		{"single pass", "{a}", Vars{"a": "{b}", "b": "no"}, "{b}"},
		{"non string values", "{n} {f}", Vars{"n": 3, "f": 0.5}, "3 0.5"},
		{"json braces untouched", `{"score": 1} {x}`, Vars{"x": "y"}, `{"score": 1} y`},
		{"repeated", "{x}{x}", Vars{"x": "ab"}, "abab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.tmpl, tt.vars))
		})
	}
}

func TestTemplatesCoverEveryKind(t *testing.T) {
	for _, kind := range []Kind{KindMetadata, KindObjective, KindContent, KindReview, KindSummary, KindSuggestion} {
		tmpl, ok := Template(kind)
		require.True(t, ok, kind)
		assert.NotEmpty(t, tmpl)
	}
	tmpl, _ := Template(KindReview)
	assert.Contains(t, tmpl, "{sternness}")
}

func TestJudgeUnknownKind(t *testing.T) {
	b := reply(`{}`)
	c := NewClient(b, testConfig(), nil)
	res := c.Judge(context.Background(), "bogus", nil)
	assert.False(t, res.OK())
	assert.ErrorIs(t, res.Cause, ErrUnknownPromptKind)
	assert.Equal(t, 0, b.calls())
}

func TestJudgeNotConfigured(t *testing.T) {
	c := NewClient(nil, testConfig(), nil)
	assert.False(t, c.Configured())
	res := c.Judge(context.Background(), KindContent, Vars{})
	assert.Equal(t, "API Key not configured.", res.Error)
	assert.ErrorIs(t, res.Cause, ErrConfigurationMissing)
}

func TestJudgeSuccess(t *testing.T) {
	b := reply(`{"score": 4, "statement": "ok"}`)
	c := NewClient(b, testConfig(), nil)
	res := c.Judge(context.Background(), KindContent, Vars{VarKeyPoint: "goal", VarCurrentText: "text"})
	require.True(t, res.OK(), res.Error)
	assert.JSONEq(t, `{"score": 4, "statement": "ok"}`, string(res.Payload))
	assert.Contains(t, b.prompts[0], `[GOAL]: "goal"`)
	assert.Contains(t, b.prompts[0], `[TEXT]: "text"`)
}

func TestJudgeParsing(t *testing.T) {
	tests := []struct {
		name      string
		output    string
		wantErr   string
		wantCause error
	}{
		{"not json", "sure, here you go", "JSON parsing failed.", ErrJudgmentParse},
		{"array", "[1, 2]", "Response is not a JSON object.", ErrJudgmentParse},
		{"null", "null", "Response is not a JSON object.", ErrJudgmentParse},
		{"error key", `{"error": "model refused"}`, "model refused", ErrErrorPayload},
		{"blank", "   ", "No content returned from API.", ErrEmptyContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(reply(tt.output), testConfig(), nil)
			res := c.Judge(context.Background(), KindSummary, Vars{})
			assert.Equal(t, tt.wantErr, res.Error)
			assert.ErrorIs(t, res.Cause, tt.wantCause)
		})
	}
}

func TestJudgeStripsCodeFence(t *testing.T) {
	c := NewClient(reply("```json\n{\"summary_text\": \"good\"}\n```"), testConfig(), nil)
	s, err := c.Summary(context.Background(), "g", "t")
	require.NoError(t, err)
	assert.Equal(t, "good", s.SummaryText)
}

func TestJudgeRateLimitRetries(t *testing.T) {
	b := &scriptBackend{outputs: []scripted{
		{err: httputil.ErrRateLimited},
		{err: httputil.ErrRateLimited},
		{text: `{"summary_text": "x"}`},
	}}
	c := NewClient(b, testConfig(), nil)
	res := c.Judge(context.Background(), KindSummary, Vars{})
	assert.True(t, res.OK())
	assert.Equal(t, 3, b.calls())
}

func TestJudgeRateLimitExhausted(t *testing.T) {
	b := &scriptBackend{outputs: []scripted{{err: fmt.Errorf("status 429: %w", httputil.ErrRateLimited)}}}
	c := NewClient(b, testConfig(), nil)
	res := c.Judge(context.Background(), KindSummary, Vars{})
	assert.False(t, res.OK())
	assert.ErrorIs(t, res.Cause, ErrRateLimitExceeded)
	// 1 initial + 3 retries.
	assert.Equal(t, 4, b.calls())
}

func TestJudgeTransportErrorsRetry(t *testing.T) {
	b := &scriptBackend{outputs: []scripted{
		{err: fmt.Errorf("dial: %w", httputil.ErrTransport)},
		{text: `{"summary_text": "x"}`},
	}}
	res := NewClient(b, testConfig(), nil).Judge(context.Background(), KindSummary, Vars{})
	assert.True(t, res.OK())
	assert.Equal(t, 2, b.calls())
}

func TestJudgeStatusErrorIsImmediate(t *testing.T) {
	b := &scriptBackend{outputs: []scripted{{err: &httputil.StatusError{StatusCode: 500}}}}
	res := NewClient(b, testConfig(), nil).Judge(context.Background(), KindSummary, Vars{})
	assert.Equal(t, "API responded with status 500", res.Error)
	assert.Equal(t, 1, b.calls())
}

func TestJudgeEmptyContent(t *testing.T) {
	b := &scriptBackend{outputs: []scripted{{err: ErrEmptyContent}}}
	res := NewClient(b, testConfig(), nil).Judge(context.Background(), KindSummary, Vars{})
	assert.Equal(t, "No content returned from API.", res.Error)
}

func TestReviewSternness(t *testing.T) {
	b := reply(`{"score": 2}`)
	cfg := testConfig()
	cfg.Sternness = types.SternnessHarsh
	c := NewClient(b, cfg, nil)

	j, err := c.ReviewJudgment(context.Background(), "kp", "text")
	require.NoError(t, err)
	assert.Equal(t, 2.0, j.Score)
	assert.Contains(t, b.prompts[0], "with harsh strictness")

	c.Judge(context.Background(), KindReview, Vars{VarSternness: "gentle"})
	assert.Contains(t, b.prompts[1], "with gentle strictness")

	gentle := c.WithSternness(types.SternnessGentle)
	assert.Equal(t, types.SternnessGentle, gentle.Sternness())
	assert.Equal(t, types.SternnessHarsh, c.Sternness())
	_, err = gentle.ReviewJudgment(context.Background(), "kp", "text")
	require.NoError(t, err)
	assert.Contains(t, b.prompts[2], "with gentle strictness")
}

func TestContentJudgment(t *testing.T) {
	c := NewClient(reply(`{
		"score": 3,
		"statement": "Partially aligned.",
		"reason": "Sentence 2 entails the goal.",
		"evidence": [{"sentence_id": 2, "sentence": "We evaluate.", "relation": "entailment"}]
	}`), testConfig(), nil)
	j, err := c.ContentJudgment(context.Background(), "kp", "text")
	require.NoError(t, err)
	assert.Equal(t, &types.Judgment{
		Score:     3,
		Statement: "Partially aligned.",
		Reason:    "Sentence 2 entails the goal.",
		Evidence:  []types.Evidence{{SentenceID: 2, Sentence: "We evaluate.", Relation: "entailment"}},
	}, j)
	assert.InDelta(t, 0.5, Normalize(j.Score), 1e-9)
}

func TestJudgmentWrongShape(t *testing.T) {
	c := NewClient(reply(`{"score": "high"}`), testConfig(), nil)
	_, err := c.ContentJudgment(context.Background(), "kp", "text")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrJudgmentParse)
	assert.Equal(t, "JSON parsing failed.", err.Error())
}

func TestTypedHelpers(t *testing.T) {
	ctx := context.Background()

	m, err := NewClient(reply(`{"working_title": "T", "target_venue": "V", "keywords": ["a", "b"]}`), testConfig(), nil).Metadata(ctx, "idea")
	require.NoError(t, err)
	assert.Equal(t, types.Metadata{WorkingTitle: "T", TargetVenue: "V", Keywords: []string{"a", "b"}}, m)

	m, err = NewClient(reply(`{"working_title": "T"}`), testConfig(), nil).Metadata(ctx, "idea")
	require.NoError(t, err)
	assert.NotNil(t, m.Keywords)

	p, err := NewClient(reply(`{"objective": "O", "key_points": ["k1"]}`), testConfig(), nil).Objective(ctx, "desc")
	require.NoError(t, err)
	assert.Equal(t, types.SectionPlan{Objective: "O", KeyPoints: []string{"k1"}}, p)

	b := reply(`{"state_description": "off topic", "suggestion": "add a sentence"}`)
	s, err := NewClient(b, testConfig(), nil).Suggestion(ctx, "kp", "text", "The text is not well-aligned with its goal.")
	require.NoError(t, err)
	assert.Equal(t, types.Suggestion{StateDescription: "off topic", Suggestion: "add a sentence"}, s)
	assert.True(t, strings.Contains(b.prompts[0], "The text is not well-aligned with its goal."))
}

func TestResultErr(t *testing.T) {
	assert.NoError(t, Result{Payload: []byte(`{}`)}.Err())

	err := errorResult("boom", ErrRateLimitExceeded).Err()
	var re *ResultError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "boom", re.Error())
	assert.ErrorIs(t, err, ErrRateLimitExceeded)

	out, mErr := errorResult("boom", nil).MarshalJSON()
	require.NoError(t, mErr)
	assert.JSONEq(t, `{"error": "boom"}`, string(out))
}

func TestJudgeContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := &scriptBackend{outputs: []scripted{{err: context.Canceled}}}
	res := NewClient(b, testConfig(), nil).Judge(ctx, KindSummary, Vars{})
	assert.False(t, res.OK())
	assert.ErrorIs(t, res.Cause, context.Canceled)
}
