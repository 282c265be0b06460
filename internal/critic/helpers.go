// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package critic

import (
	"context"

	"github.com/pdiddy/goalwriter/pkg/types"
)

// Metadata proposes paper metadata from an initial idea.
func (c *Client) Metadata(ctx context.Context, idea string) (types.Metadata, error) {
	var m types.Metadata
	if err := c.Judge(ctx, KindMetadata, Vars{VarIdea: idea}).Decode(&m); err != nil {
		return types.Metadata{}, err
	}
	if m.Keywords == nil {
		m.Keywords = []string{}
	}
	return m, nil
}

// Objective proposes a section objective and key points from a description.
func (c *Client) Objective(ctx context.Context, description string) (types.SectionPlan, error) {
	var p types.SectionPlan
	if err := c.Judge(ctx, KindObjective, Vars{VarDescription: description}).Decode(&p); err != nil {
		return types.SectionPlan{}, err
	}
	if p.KeyPoints == nil {
		p.KeyPoints = []string{}
	}
	return p, nil
}

// ContentJudgment scores how well text achieves the key point.
func (c *Client) ContentJudgment(ctx context.Context, keyPoint, text string) (*types.Judgment, error) {
	return c.judgment(ctx, KindContent, keyPoint, text)
}

// ReviewJudgment scores text the way a peer reviewer would, in the context
// of the key point.
func (c *Client) ReviewJudgment(ctx context.Context, keyPoint, text string) (*types.Judgment, error) {
	return c.judgment(ctx, KindReview, keyPoint, text)
}

func (c *Client) judgment(ctx context.Context, kind Kind, keyPoint, text string) (*types.Judgment, error) {
	var j types.Judgment
	res := c.Judge(ctx, kind, Vars{VarKeyPoint: keyPoint, VarCurrentText: text})
	if err := res.Decode(&j); err != nil {
		return nil, err
	}
	return &j, nil
}

// Summary gives a prose assessment of text against a goal.
func (c *Client) Summary(ctx context.Context, keyPoint, text string) (types.Summary, error) {
	var s types.Summary
	err := c.Judge(ctx, KindSummary, Vars{VarKeyPoint: keyPoint, VarCurrentText: text}).Decode(&s)
	return s, err
}

// Suggestion explains a problem with text and proposes a fix.
func (c *Client) Suggestion(ctx context.Context, keyPoint, text, problem string) (types.Suggestion, error) {
	var s types.Suggestion
	err := c.Judge(ctx, KindSuggestion, Vars{
		VarKeyPoint:           keyPoint,
		VarCurrentText:        text,
		VarProblemDescription: problem,
	}).Decode(&s)
	return s, err
}
