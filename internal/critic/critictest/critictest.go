// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package critictest provides a scripted critic.Backend for tests of code
// built on critic.Client.
package critictest

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/pdiddy/goalwriter/internal/critic"
)

var goalRe = regexp.MustCompile(`\[(?:GOAL|KEY POINT CONTEXT)\]: "([^"]*)"`)

// Backend answers each prompt kind with a canned JSON reply. Judgment
// scores can be overridden per goal text.
type Backend struct {
	mu      sync.Mutex
	replies map[critic.Kind]string
	scores  map[critic.Kind]map[string]int
	errs    map[critic.Kind]error
	calls   map[critic.Kind]int
	prompts []string
}

// New returns a backend whose judgments all score 5.
func New() *Backend {
	return &Backend{
		replies: map[critic.Kind]string{
			critic.KindMetadata:   `{"working_title": "T", "target_venue": "V", "keywords": ["a", "b"]}`,
			critic.KindObjective:  `{"objective": "O", "key_points": ["k1", "k2"]}`,
			critic.KindSummary:    `{"summary_text": "The text covers the goal."}`,
			critic.KindSuggestion: `{"state_description": "The goal is not addressed.", "suggestion": "Add a sentence on it."}`,
		},
		scores: map[critic.Kind]map[string]int{},
		errs:   map[critic.Kind]error{},
		calls:  map[critic.Kind]int{},
	}
}

// Reply sets the raw reply for kind.
func (b *Backend) Reply(kind critic.Kind, raw string) *Backend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.replies[kind] = raw
	return b
}

// Score makes judgments of kind for goal score n.
func (b *Backend) Score(kind critic.Kind, goal string, n int) *Backend {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.scores[kind] == nil {
		b.scores[kind] = map[string]int{}
	}
	b.scores[kind][goal] = n
	return b
}

// Fail makes every call of kind return err.
func (b *Backend) Fail(kind critic.Kind, err error) *Backend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.errs[kind] = err
	return b
}

// Calls returns how many prompts of kind were generated.
func (b *Backend) Calls(kind critic.Kind) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[kind]
}

// Prompts returns every prompt received, in order.
func (b *Backend) Prompts() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.prompts...)
}

// Generate implements critic.Backend.
func (b *Backend) Generate(ctx context.Context, req critic.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	kind, ok := KindOf(req.Prompt)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prompts = append(b.prompts, req.Prompt)
	if !ok {
		return "", fmt.Errorf("unrecognized prompt %.40q", req.Prompt)
	}
	b.calls[kind]++
	if err := b.errs[kind]; err != nil {
		return "", err
	}
	if kind == critic.KindContent || kind == critic.KindReview {
		return b.judgment(kind, req.Prompt), nil
	}
	return b.replies[kind], nil
}

func (b *Backend) judgment(kind critic.Kind, prompt string) string {
	if raw, ok := b.replies[kind]; ok {
		return raw
	}
	score := 5
	if m := goalRe.FindStringSubmatch(prompt); m != nil {
		if n, ok := b.scores[kind][m[1]]; ok {
			score = n
		}
	}
	label := `"relation": "entailment"`
	if kind == critic.KindReview {
		label = `"dimension": "soundness"`
	}
	return fmt.Sprintf(`{"score": %d, "statement": "scored %d", "reason": "sentence 1", "evidence": [{"sentence_id": 1, "sentence": "", %s}]}`,
		score, score, label)
}

// KindOf identifies the template a rendered prompt came from by its opening
// text.
func KindOf(prompt string) (critic.Kind, bool) {
	for _, kind := range []critic.Kind{
		critic.KindMetadata, critic.KindObjective, critic.KindContent,
		critic.KindReview, critic.KindSummary, critic.KindSuggestion,
	} {
		tmpl, _ := critic.Template(kind)
		if prefix := lead(tmpl); prefix != "" && strings.HasPrefix(prompt, prefix) {
			return kind, true
		}
	}
	return "", false
}

// lead returns the template text before its first placeholder or newline.
func lead(tmpl string) string {
	if i := strings.IndexAny(tmpl, "{\n"); i >= 0 {
		return tmpl[:i]
	}
	return tmpl
}
