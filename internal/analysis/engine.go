// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package analysis scores editor text against every flattened goal with the
// content and review critics, and publishes only the newest run's result.
package analysis

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/goalwriter/pkg/types"
)

// DefaultBatchSize is the number of goals analyzed concurrently. Each goal
// issues two requests, so a batch has twice this many in flight.
const DefaultBatchSize = 4

// Critic abstracts the judgment calls so tests can supply a mock.
type Critic interface {
	ContentJudgment(ctx context.Context, keyPoint, text string) (*types.Judgment, error)
	ReviewJudgment(ctx context.Context, keyPoint, text string) (*types.Judgment, error)
}

// Engine fans judgment requests out in fixed-size batches.
type Engine struct {
	critic    Critic
	batchSize int
	log       *zap.Logger
}

// NewEngine returns an engine using critic. A batch size below 1 selects
// DefaultBatchSize.
func NewEngine(critic Critic, batchSize int, log *zap.Logger) *Engine {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{critic: critic, batchSize: batchSize, log: log}
}

// Analyze returns one content and one review score per goal. Blank text or
// an empty goal list makes no calls and returns zero scores with absent
// judgments. Batches run one after another; within a batch all requests run
// concurrently and each writes only its own index. A failed request leaves
// score 0 and judgment nil for that goal and kind. Cancelling ctx stops
// further batches; unfinished goals stay absent.
func (e *Engine) Analyze(ctx context.Context, text string, goals []types.FlatGoal) types.AnalysisResult {
	res := types.NewAnalysisResult(len(goals))
	if strings.TrimSpace(text) == "" || len(goals) == 0 {
		return res
	}

	for start := 0; start < len(goals); start += e.batchSize {
		if ctx.Err() != nil {
			e.log.Debug("analysis cancelled", zap.Int("analyzed", start), zap.Int("goals", len(goals)))
			break
		}
		end := min(start+e.batchSize, len(goals))

		var g errgroup.Group
		for i := start; i < end; i++ {
			goal := goals[i].Text
			g.Go(func() error {
				j, err := e.critic.ContentJudgment(ctx, goal, text)
				e.store(i, types.ScoreContent, j, err, res.ContentScores, res.ContentJudgments)
				return nil
			})
			g.Go(func() error {
				j, err := e.critic.ReviewJudgment(ctx, goal, text)
				e.store(i, types.ScoreReview, j, err, res.ReviewScores, res.ReviewJudgments)
				return nil
			})
		}
		_ = g.Wait()
	}
	return res
}

func (e *Engine) store(i int, kind types.ScoreKind, j *types.Judgment, err error, scores []float64, judgments []*types.Judgment) {
	if err != nil {
		e.log.Debug("judgment failed",
			zap.Int("goal", i),
			zap.String("kind", string(kind)),
			zap.Error(err))
		return
	}
	scores[i] = j.Normalized()
	judgments[i] = j
}
