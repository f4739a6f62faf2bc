package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/recipe-miner/internal/batchfile"
	"github.com/sells-group/recipe-miner/internal/model"
)

// RecipeJudge returns a verdict for a recipe and never fails.
type RecipeJudge interface {
	Validate(ctx context.Context, r *model.Recipe) model.ValidationResult
}

// Checker drives the validate stage.
type Checker struct {
	judge     RecipeJudge
	outputDir string
	pacer     *rate.Limiter
	now       func() time.Time
}

// NewChecker creates a Checker that makes at most one judge call per delay.
func NewChecker(j RecipeJudge, outputDir string, delay time.Duration) *Checker {
	return &Checker{judge: j, outputDir: outputDir, pacer: newPacer(delay), now: time.Now}
}

// ValidateResult is the outcome of one validation run.
type ValidateResult struct {
	File  string
	Items []model.BatchItem
	Stats model.ValidationStats
}

// Run validates every recipe of a draft batch and writes the validated
// batch next to the other validated files.
func (c *Checker) Run(ctx context.Context, draftPath string) (*ValidateResult, error) {
	recipes, err := batchfile.ReadDraft(draftPath)
	if err != nil {
		return nil, eris.Wrap(err, "validate: load draft batch")
	}
	zap.L().Info("validate: starting", zap.String("file", draftPath), zap.Int("recipes", len(recipes)))

	res := &ValidateResult{Items: make([]model.BatchItem, 0, len(recipes))}
	for i, r := range recipes {
		if err := pace(ctx, c.pacer); err != nil {
			return nil, eris.Wrap(err, "validate: cancelled")
		}

		verdict := c.judge.Validate(ctx, r)
		res.Items = append(res.Items, model.BatchItem{
			Recipe: r,
			QAMeta: model.QAMeta{Status: verdict.Status, Reason: verdict.Reason, ValidatedAt: c.now()},
		})
		if verdict.IsPass() {
			res.Stats.Pass++
		} else {
			res.Stats.Flag++
		}

		zap.L().Info("validate: verdict",
			zap.Int("item", i+1),
			zap.Int("of", len(recipes)),
			zap.String("recipe", r.DisplayTitle()),
			zap.String("status", string(verdict.Status)),
			zap.String("reason", verdict.Reason),
		)
	}

	res.File = batchfile.ValidatedName(c.outputDir, draftPath, c.now())
	if err := batchfile.WriteJSON(res.File, res.Items); err != nil {
		return nil, eris.Wrap(err, "validate: save validated batch")
	}
	return res, nil
}
