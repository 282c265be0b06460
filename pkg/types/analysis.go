// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ScoreKind names one of the two critics.
type ScoreKind string

const (
	// ScoreContent measures alignment between text and a goal.
	ScoreContent ScoreKind = "Content"
	// ScoreReview measures peer-review-style quality of the text.
	ScoreReview ScoreKind = "Review"
)

// Evidence is one sentence a critic cited for its score. Content critics
// set Relation (an NLI label); review critics set Dimension.
type Evidence struct {
	// SentenceID is the critic's 1-based sentence reference.
	SentenceID int `json:"sentence_id"`

	// Sentence is the quoted sentence text.
	Sentence string `json:"sentence"`

	// Relation is one of entailment, contradiction, neutral.
	Relation string `json:"relation,omitempty"`

	// Dimension is one of originality, soundness, comparison,
	// replicability, substance.
	Dimension string `json:"dimension,omitempty"`
}

// Judgment is a critic's structured verdict for one goal.
type Judgment struct {
	// Score is the raw 1-5 score. Zero means the critic gave no score.
	Score float64 `json:"score"`

	// Statement is a one-sentence verdict.
	Statement string `json:"statement"`

	// Reason explains the score with sentence references.
	Reason string `json:"reason"`

	// Evidence lists cited sentences.
	Evidence []Evidence `json:"evidence"`
}

// HasScore reports whether the judgment carries a usable score. A judgment
// without one is "no evidence", not "worst score".
func (j *Judgment) HasScore() bool {
	return j != nil && j.Score > 0
}

// Normalized maps the score into [0,1]. Absent scores map to 0.
func (j *Judgment) Normalized() float64 {
	if j == nil {
		return 0
	}
	return NormalizeScore(j.Score)
}

// NormalizeScore maps a 1-5 critic score to [0,1] via (score-1)/4. A zero or
// negative score maps to 0; out-of-range scores are clamped.
func NormalizeScore(score float64) float64 {
	if score <= 0 {
		return 0
	}
	n := (score - 1) / 4
	switch {
	case n < 0:
		return 0
	case n > 1:
		return 1
	}
	return n
}

// AnalysisResult holds one score and one raw judgment per flat goal for both
// critics. All four slices always have the same length as the goal list the
// result was computed for. A nil judgment means the call failed or has not
// been made.
type AnalysisResult struct {
	ContentScores    []float64   `json:"contentScores"`
	ReviewScores     []float64   `json:"reviewScores"`
	ContentJudgments []*Judgment `json:"contentLLM"`
	ReviewJudgments  []*Judgment `json:"reviewLLM"`
}

// NewAnalysisResult returns a result sized for n goals with zero scores and
// absent judgments.
func NewAnalysisResult(n int) AnalysisResult {
	return AnalysisResult{
		ContentScores:    make([]float64, n),
		ReviewScores:     make([]float64, n),
		ContentJudgments: make([]*Judgment, n),
		ReviewJudgments:  make([]*Judgment, n),
	}
}

// Len returns the number of goals the result covers.
func (r AnalysisResult) Len() int { return len(r.ContentScores) }

// Aligned reports whether the result can be read against goals: every slice
// must match the goal count exactly.
func (r AnalysisResult) Aligned(goals []FlatGoal) bool {
	n := len(goals)
	return len(r.ContentScores) == n && len(r.ReviewScores) == n &&
		len(r.ContentJudgments) == n && len(r.ReviewJudgments) == n
}

// Judgment returns the raw judgment for goal i of the given kind, or nil.
func (r AnalysisResult) Judgment(kind ScoreKind, i int) *Judgment {
	list := r.ContentJudgments
	if kind == ScoreReview {
		list = r.ReviewJudgments
	}
	if i < 0 || i >= len(list) {
		return nil
	}
	return list[i]
}

// Score returns the normalized score for goal i of the given kind.
func (r AnalysisResult) Score(kind ScoreKind, i int) float64 {
	list := r.ContentScores
	if kind == ScoreReview {
		list = r.ReviewScores
	}
	if i < 0 || i >= len(list) {
		return 0
	}
	return list[i]
}

// HasEvidence reports whether goal i has a scored judgment of the given kind.
func (r AnalysisResult) HasEvidence(kind ScoreKind, i int) bool {
	return r.Judgment(kind, i).HasScore()
}

// Suggestion is the writing coach's advice for a failing goal.
type Suggestion struct {
	StateDescription string `json:"state_description"`
	Suggestion       string `json:"suggestion"`
}

// Summary is the assistant's prose assessment of one goal.
type Summary struct {
	SummaryText string `json:"summary_text"`
}

// SectionPlan is the objective critic's output for one section description.
type SectionPlan struct {
	Objective string   `json:"objective"`
	KeyPoints []string `json:"key_points"`
}
