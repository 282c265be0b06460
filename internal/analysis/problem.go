// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analysis

import "github.com/pdiddy/goalwriter/pkg/types"

// ProblemThreshold is the normalized score below which a goal needs work.
const ProblemThreshold = 0.5

// Problem descriptions passed to the suggestion critic.
const (
	ContentProblem = "The text is not well-aligned with its goal."
	ReviewProblem  = "The text has issues based on peer-review standards."
)

// Problem is a goal whose content or review score is below the threshold.
type Problem struct {
	Index int             `json:"index"`
	Kind  types.ScoreKind `json:"kind"`
	Score float64         `json:"score"`
	Goal  types.FlatGoal  `json:"goal"`
	Judge *types.Judgment `json:"judgment"`
}

// Description returns the fixed problem text for the failing kind.
func (p Problem) Description() string {
	if p.Kind == types.ScoreReview {
		return ReviewProblem
	}
	return ContentProblem
}

// ProblemAt classifies goal i. Content is checked before review. A kind
// whose judgment is absent carries no evidence and is never a problem, so a
// failed call does not read as a bad score.
func ProblemAt(r types.AnalysisResult, i int) (types.ScoreKind, bool) {
	for _, kind := range []types.ScoreKind{types.ScoreContent, types.ScoreReview} {
		if r.HasEvidence(kind, i) && r.Score(kind, i) < ProblemThreshold {
			return kind, true
		}
	}
	return "", false
}

// FirstProblem returns the first problem goal in flattened order. It reports
// false when the result does not line up with goals or no goal has a problem.
func FirstProblem(r types.AnalysisResult, goals []types.FlatGoal) (Problem, bool) {
	if !r.Aligned(goals) {
		return Problem{}, false
	}
	for i := range goals {
		kind, ok := ProblemAt(r, i)
		if !ok {
			continue
		}
		return Problem{
			Index: i,
			Kind:  kind,
			Score: r.Score(kind, i),
			Goal:  goals[i],
			Judge: r.Judgment(kind, i),
		}, true
	}
	return Problem{}, false
}

// HasProblem reports whether any goal has a problem.
func HasProblem(r types.AnalysisResult, goals []types.FlatGoal) bool {
	_, ok := FirstProblem(r, goals)
	return ok
}

// Counts summarizes a result for display.
type Counts struct {
	Goals     int `json:"goals"`
	Problems  int `json:"problems"`
	NoContent int `json:"no_content_evidence"`
	NoReview  int `json:"no_review_evidence"`
}

// Summarize counts problems and goals without evidence.
func Summarize(r types.AnalysisResult) Counts {
	c := Counts{Goals: r.Len()}
	for i := 0; i < r.Len(); i++ {
		if _, ok := ProblemAt(r, i); ok {
			c.Problems++
		}
		if !r.HasEvidence(types.ScoreContent, i) {
			c.NoContent++
		}
		if !r.HasEvidence(types.ScoreReview, i) {
			c.NoReview++
		}
	}
	return c
}
