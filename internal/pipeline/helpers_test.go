package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/sells-group/recipe-miner/internal/model"
)

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func sampleRecipe(title string) *model.Recipe {
	return &model.Recipe{
		Title:           title,
		Description:     "A family classic.",
		PrepTimeMinutes: 15,
		CookTimeMinutes: 45,
		Servings:        4,
		Difficulty:      model.DifficultyMedium,
		Ingredients: []model.Ingredient{
			{Item: "Pork shoulder", Amount: 1, Unit: "kg", Category: model.CategoryMeat},
			{Item: "Hominy", Amount: 800, Unit: "g", Category: model.CategoryPantry},
			{Item: "Guajillo chile", Amount: 4, Unit: "piece", Category: model.CategorySpice},
		},
		Steps: []model.Step{
			{Order: 1, Instruction: "Simmer the pork.", DurationMinutes: 30},
			{Order: 2, Instruction: "Blend the chiles.", DurationMinutes: 5},
			{Order: 3, Instruction: "Combine with hominy.", DurationMinutes: 10},
		},
	}
}

type fakeCollector struct {
	failFor map[string]bool
	calls   []string
}

func (f *fakeCollector) Collect(_ context.Context, dish string) ([]string, error) {
	f.calls = append(f.calls, dish)
	if f.failFor[dish] {
		return nil, model.NewFailure(model.KindCollection, dish, model.ErrNoSources)
	}
	return []string{"source text for " + dish}, nil
}

type fakeSynth struct {
	failFor map[string]bool
}

func (f *fakeSynth) Synthesize(_ context.Context, dish, _ string, _ []string) (*model.Recipe, error) {
	if f.failFor[dish] {
		return nil, model.NewFailure(model.KindGeneration, dish, errors.New("bad json"))
	}
	return sampleRecipe(dish), nil
}

type fakeJudge struct {
	flag map[string]string
}

func (f *fakeJudge) Validate(_ context.Context, r *model.Recipe) model.ValidationResult {
	if reason, ok := f.flag[r.Title]; ok {
		return model.Flag(reason)
	}
	return model.Pass()
}
