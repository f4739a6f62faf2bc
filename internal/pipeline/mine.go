// Package pipeline runs the mine, validate and upload stages, chaining the
// components through batch files.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/recipe-miner/internal/batchfile"
	"github.com/sells-group/recipe-miner/internal/model"
)

// SourceCollector gathers source texts for a dish.
type SourceCollector interface {
	Collect(ctx context.Context, dish string) ([]string, error)
}

// RecipeSynthesizer generates a recipe from sources.
type RecipeSynthesizer interface {
	Synthesize(ctx context.Context, dish, persona string, sources []string) (*model.Recipe, error)
}

// Miner drives the mine stage.
type Miner struct {
	collector SourceCollector
	synth     RecipeSynthesizer
	draftDir  string
	pacer     *rate.Limiter
	now       func() time.Time
}

// NewMiner creates a Miner that starts at most one dish per dishDelay and
// writes drafts under draftDir.
func NewMiner(c SourceCollector, s RecipeSynthesizer, draftDir string, dishDelay time.Duration) *Miner {
	return &Miner{
		collector: c,
		synth:     s,
		draftDir:  draftDir,
		pacer:     newPacer(dishDelay),
		now:       time.Now,
	}
}

// MineResult is the outcome of one mining run. File is empty when no
// recipe was generated.
type MineResult struct {
	File    string
	Recipes []*model.Recipe
	Stats   model.MineStats
}

// Mine processes dishes in order. Collection and generation failures skip
// the dish; cancellation stops the run and keeps what was mined so far.
func (m *Miner) Mine(ctx context.Context, dishes []string, persona string) (*MineResult, error) {
	res := &MineResult{}
	zap.L().Info("mine: starting", zap.Int("dishes", len(dishes)), zap.String("persona", persona))

	for i, dish := range dishes {
		dish = strings.TrimSpace(dish)
		if dish == "" {
			continue
		}
		if err := pace(ctx, m.pacer); err != nil {
			zap.L().Warn("mine: stopped early", zap.Error(err))
			break
		}

		log := zap.L().With(zap.String("dish", dish), zap.Int("item", i+1), zap.Int("of", len(dishes)))

		sources, err := m.collector.Collect(ctx, dish)
		if err != nil {
			res.Stats.SkippedNoSources++
			log.Warn("mine: skipping dish, no sources", zap.Error(err))
			continue
		}

		recipe, err := m.synth.Synthesize(ctx, dish, persona, sources)
		if err != nil {
			res.Stats.SkippedGeneration++
			log.Warn("mine: skipping dish, generation failed", zap.Error(err))
			continue
		}

		res.Recipes = append(res.Recipes, recipe)
		res.Stats.Mined++
		log.Info("mine: generated recipe", zap.String("title", recipe.Title), zap.Int("sources", len(sources)))
	}

	if len(res.Recipes) == 0 {
		zap.L().Warn("mine: no recipes were generated")
		return res, nil
	}

	res.File = batchfile.DraftName(m.draftDir, m.now())
	if err := batchfile.WriteJSON(res.File, res.Recipes); err != nil {
		return res, eris.Wrap(err, "mine: save draft batch")
	}
	zap.L().Info("mine: saved draft batch", zap.String("file", res.File), zap.Int("recipes", len(res.Recipes)))
	return res, nil
}
