// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sentence splits editor text into sentences and relates sentences to
// goals and critic evidence for highlighting.
package sentence

import (
	"regexp"
	"strings"

	"github.com/pdiddy/goalwriter/pkg/types"
)

// Sentence is one split sentence with its zero-based position.
type Sentence struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

var (
	newlineRun = regexp.MustCompile(`\n+`)
	// boundary matches the whitespace run after a terminal punctuation mark.
	// RE2 has no lookbehind, so the mark is captured and kept by Split.
	boundary = regexp.MustCompile(`([.!?])\s+`)
)

// Split collapses newline runs to a single space, splits on whitespace that
// follows '.', '!' or '?', trims each piece, and drops empty pieces. IDs are
// assigned after empties are dropped, so they are contiguous from 0.
func Split(text string) []Sentence {
	flat := newlineRun.ReplaceAllString(text, " ")
	out := []Sentence{}
	start := 0
	for _, m := range boundary.FindAllStringSubmatchIndex(flat, -1) {
		// m[3] is the end of the punctuation group.
		out = appendPiece(out, flat[start:m[3]])
		start = m[1]
	}
	return appendPiece(out, flat[start:])
}

func appendPiece(out []Sentence, piece string) []Sentence {
	piece = strings.TrimSpace(piece)
	if piece == "" {
		return out
	}
	return append(out, Sentence{ID: len(out), Text: piece})
}

// Matching returns the sentences whose text contains goalText, compared case
// insensitively. An empty goal text matches nothing.
func Matching(sentences []Sentence, goalText string) []Sentence {
	needle := strings.ToLower(strings.TrimSpace(goalText))
	if needle == "" {
		return nil
	}
	var out []Sentence
	for _, s := range sentences {
		if strings.Contains(strings.ToLower(s.Text), needle) {
			out = append(out, s)
		}
	}
	return out
}

// Highlight pairs a split sentence with the evidence that cited it.
type Highlight struct {
	Sentence Sentence       `json:"sentence"`
	Evidence types.Evidence `json:"evidence"`
}

// Evidence resolves each evidence item of j to a split sentence. Critics
// number sentences from 1; when the number is out of range the quoted text is
// matched instead. Items that resolve to nothing are skipped.
func Evidence(sentences []Sentence, j *types.Judgment) []Highlight {
	if j == nil {
		return nil
	}
	var out []Highlight
	for _, ev := range j.Evidence {
		if s, ok := resolve(sentences, ev); ok {
			out = append(out, Highlight{Sentence: s, Evidence: ev})
		}
	}
	return out
}

func resolve(sentences []Sentence, ev types.Evidence) (Sentence, bool) {
	if i := ev.SentenceID - 1; i >= 0 && i < len(sentences) {
		return sentences[i], true
	}
	quoted := strings.ToLower(strings.TrimSpace(ev.Sentence))
	if quoted == "" {
		return Sentence{}, false
	}
	for _, s := range sentences {
		text := strings.ToLower(s.Text)
		if text == quoted || strings.Contains(text, quoted) || strings.Contains(quoted, text) {
			return s, true
		}
	}
	return Sentence{}, false
}
