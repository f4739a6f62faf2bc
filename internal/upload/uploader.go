// Package upload writes validated recipes to the store, one guarded write
// sequence per recipe, and tallies the outcome of a whole batch.
package upload

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/recipe-miner/internal/model"
	"github.com/sells-group/recipe-miner/internal/resolve"
	"github.com/sells-group/recipe-miner/internal/store"
)

// FlagPrefix is prepended to the description of flagged recipes, followed by
// the verdict reason and a blank line.
const FlagPrefix = "⚠️ QA Flagged: "

// Options identifies the staging scope and the ingredient mode.
type Options struct {
	UserID  string
	SpaceID string
	// StrictRefs resolves unit and food ids before writing and drops
	// ingredients whose food cannot be resolved.
	StrictRefs bool
}

// Uploader uploads recipes into one space.
type Uploader struct {
	writer   store.RecipeWriter
	resolver *resolve.Resolver
	opts     Options
	newID    func() string
}

// New creates an Uploader. resolver may be nil unless opts.StrictRefs is set.
func New(w store.RecipeWriter, resolver *resolve.Resolver, opts Options) *Uploader {
	return &Uploader{
		writer:   w,
		resolver: resolver,
		opts:     opts,
		newID:    uuid.NewString,
	}
}

// Item outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// ItemOutcome is the result of one batch item.
type ItemOutcome struct {
	Index    int
	Title    string
	Outcome  string
	RecipeID string
	Err      error
}

// BatchOutcome is the result of UploadBatch.
type BatchOutcome struct {
	BatchID string
	Stats   model.UploadStats
	Items   []ItemOutcome
}

// Record builds the upload record for this outcome.
func (o BatchOutcome) Record(inputFile, spaceID, contentHash string, at time.Time) model.UploadRecord {
	return model.UploadRecord{
		Timestamp:   at,
		InputFile:   inputFile,
		BatchID:     o.BatchID,
		SpaceID:     spaceID,
		ContentHash: contentHash,
		Stats:       o.Stats,
	}
}

// UploadRecipe writes one recipe with its verdict and returns the new id.
// Every error is an upload Failure wrapping an *UploadError.
func (u *Uploader) UploadRecipe(ctx context.Context, r *model.Recipe, verdict model.ValidationResult, batchID string) (string, error) {
	title := r.DisplayTitle()

	ingredients, err := u.ingredientRows(ctx, r)
	if err != nil {
		return "", model.NewFailure(model.KindUpload, title, err)
	}

	saga := NewSaga(u.writer)
	id, err := saga.Run(ctx, u.recipeRow(r, verdict, batchID), ingredients, stepRows(r))
	zap.L().Debug("upload: saga finished",
		zap.String("recipe", title),
		zap.String("state", string(saga.State())),
		zap.Any("history", saga.History()),
	)
	if err != nil {
		return "", model.NewFailure(model.KindUpload, title, err)
	}
	return id, nil
}

// UploadBatch uploads items in order under one fresh batch id. It never
// stops early: every item lands in exactly one of success, failed or
// skipped.
func (u *Uploader) UploadBatch(ctx context.Context, items []model.BatchItem) BatchOutcome {
	out := BatchOutcome{BatchID: u.newID(), Items: make([]ItemOutcome, 0, len(items))}
	log := zap.L().With(zap.String("batch_id", out.BatchID), zap.String("space_id", u.opts.SpaceID))
	log.Info("upload: starting batch", zap.Int("items", len(items)))

	for i, item := range items {
		res := ItemOutcome{Index: i + 1}

		switch {
		case item.Recipe == nil:
			res.Outcome = OutcomeSkipped
			out.Stats.Skipped++
			log.Warn("upload: item has no recipe, skipping", zap.Int("item", i+1))
		case ctx.Err() != nil:
			res.Title = item.Recipe.DisplayTitle()
			res.Outcome = OutcomeFailed
			res.Err = ctx.Err()
			out.Stats.Failed++
		default:
			res.Title = item.Recipe.DisplayTitle()
			id, err := u.UploadRecipe(ctx, item.Recipe, item.QAMeta.Verdict(), out.BatchID)
			if err != nil {
				res.Outcome = OutcomeFailed
				res.Err = err
				out.Stats.Failed++
				log.Warn("upload: recipe failed", zap.Int("item", i+1), zap.String("recipe", res.Title), zap.Error(err))
			} else {
				res.Outcome = OutcomeSuccess
				res.RecipeID = id
				out.Stats.Success++
				log.Info("upload: recipe uploaded", zap.Int("item", i+1), zap.String("recipe", res.Title), zap.String("recipe_id", id))
			}
		}
		out.Items = append(out.Items, res)
	}

	log.Info("upload: batch complete",
		zap.Int("success", out.Stats.Success),
		zap.Int("failed", out.Stats.Failed),
		zap.Int("skipped", out.Stats.Skipped),
	)
	return out
}

func (u *Uploader) recipeRow(r *model.Recipe, verdict model.ValidationResult, batchID string) *model.RecipeRow {
	desc := r.Description
	if !verdict.IsPass() {
		desc = FlagPrefix + verdict.Reason + "\n\n" + desc
	}
	return &model.RecipeRow{
		Title:           r.Title,
		Description:     desc,
		PrepTimeMinutes: r.PrepTimeMinutes,
		CookTimeMinutes: r.CookTimeMinutes,
		Servings:        r.Servings,
		Difficulty:      r.Difficulty,
		UserID:          u.opts.UserID,
		SpaceID:         u.opts.SpaceID,
		IsPublic:        false,
		PrivacyLevel:    model.PrivacySpace,
		BatchID:         batchID,
		QAStatus:        verdict.Status.Lower(),
		Tags:            []string{verdict.Status.Tag()},
	}
}

// ingredientRows builds text-mode rows, or resolved rows in strict mode.
func (u *Uploader) ingredientRows(ctx context.Context, r *model.Recipe) ([]model.IngredientRow, error) {
	rows := make([]model.IngredientRow, 0, len(r.Ingredients))
	for _, ing := range r.Ingredients {
		row := model.IngredientRow{
			FoodName: ing.Item,
			UnitName: ing.Unit,
			Amount:   ing.Amount,
		}
		if u.opts.StrictRefs {
			foodID, ok := u.resolver.ResolveFood(ctx, ing.Item, u.opts.SpaceID)
			if !ok {
				zap.L().Warn("upload: dropping unresolved ingredient",
					zap.String("recipe", r.DisplayTitle()),
					zap.String("food", ing.Item),
				)
				continue
			}
			row.FoodID = &foodID
			if unitID, ok := u.resolver.ResolveUnit(ctx, ing.Unit); ok {
				row.UnitID = &unitID
			}
		}
		row.OrderIndex = len(rows) + 1
		rows = append(rows, row)
	}
	if u.opts.StrictRefs && len(r.Ingredients) > 0 && len(rows) == 0 {
		return nil, &UploadError{Reason: ErrNoResolvableIngredients}
	}
	return rows, nil
}

func stepRows(r *model.Recipe) []model.StepRow {
	rows := make([]model.StepRow, len(r.Steps))
	for i, s := range r.Steps {
		rows[i] = model.StepRow{
			Instruction:     s.Instruction,
			OrderIndex:      s.Order,
			DurationMinutes: s.DurationMinutes,
		}
	}
	return rows
}
