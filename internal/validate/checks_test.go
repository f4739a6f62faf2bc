package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/recipe-miner/internal/model"
)

func goodRecipe() *model.Recipe {
	return &model.Recipe{
		Title:           "Chilaquiles Verdes",
		Description:     "Fried tortillas simmered in salsa verde.",
		PrepTimeMinutes: 15,
		CookTimeMinutes: 20,
		Servings:        4,
		Difficulty:      model.DifficultyEasy,
		Ingredients: []model.Ingredient{
			{Item: "Corn tortillas", Amount: 12, Unit: "piece", Category: model.CategoryPantry},
			{Item: "Salsa verde", Amount: 2, Unit: "cup", Category: model.CategoryPantry},
			{Item: "Queso fresco", Amount: 100, Unit: "g", Category: model.CategoryDairy},
		},
		Steps: []model.Step{
			{Order: 1, Instruction: "Fry the tortilla wedges.", DurationMinutes: 10},
			{Order: 2, Instruction: "Simmer in salsa.", DurationMinutes: 5},
			{Order: 3, Instruction: "Top with queso fresco.", DurationMinutes: 1},
		},
	}
}

func TestQuickCheck(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *model.Recipe)
		want   string
	}{
		{"ok", func(*model.Recipe) {}, ""},
		{"missing title", func(r *model.Recipe) { r.Title = "" }, "Missing required field: title"},
		{"missing description", func(r *model.Recipe) { r.Description = " " }, "Missing required field: description"},
		{"missing ingredients", func(r *model.Recipe) { r.Ingredients = nil }, "Missing required field: ingredients"},
		{"missing steps", func(r *model.Recipe) { r.Steps = nil }, "Missing required field: steps"},
		{"one ingredient", func(r *model.Recipe) { r.Ingredients = r.Ingredients[:1] }, "Recipe has too few ingredients (minimum 2 required)"},
		{"one step", func(r *model.Recipe) { r.Steps = r.Steps[:1] }, "Recipe has too few steps (minimum 2 required)"},
		{"negative prep", func(r *model.Recipe) { r.PrepTimeMinutes = -1 }, "Negative time values are not allowed"},
		{"negative cook", func(r *model.Recipe) { r.CookTimeMinutes = -1 }, "Negative time values are not allowed"},
		{"total 480", func(r *model.Recipe) { r.PrepTimeMinutes, r.CookTimeMinutes = 60, 420 }, ""},
		{"total 481", func(r *model.Recipe) { r.PrepTimeMinutes, r.CookTimeMinutes = 61, 420 }, "Total cooking time exceeds 8 hours"},
		{"servings 0", func(r *model.Recipe) { r.Servings = 0 }, "Number of servings must be between 1 and 50"},
		{"servings 51", func(r *model.Recipe) { r.Servings = 51 }, "Number of servings must be between 1 and 50"},
		{"servings 1", func(r *model.Recipe) { r.Servings = 1 }, ""},
		{"servings 50", func(r *model.Recipe) { r.Servings = 50 }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := goodRecipe()
			tt.mutate(r)
			assert.Equal(t, tt.want, QuickCheck(r))
		})
	}
}

func TestQuickCheck_Nil(t *testing.T) {
	assert.Equal(t, "Missing required field: recipe", QuickCheck(nil))
}

func TestQuickCheck_Idempotent(t *testing.T) {
	for _, r := range []*model.Recipe{goodRecipe(), {Title: "x"}, {Title: "x", Description: "y", Servings: 99}} {
		first := QuickCheck(r)
		assert.Equal(t, first, QuickCheck(r))
	}
}

func TestPostCheck_Duplicates(t *testing.T) {
	r := goodRecipe()
	r.Ingredients = []model.Ingredient{
		{Item: "Salt", Category: model.CategorySpice},
		{Item: "salt", Category: model.CategorySpice},
		{Item: "Pepper", Category: model.CategorySpice},
	}
	assert.Equal(t, "Duplicate ingredients: Salt", PostCheck(r))
}

func TestPostCheck_DuplicatesSortedAndFolded(t *testing.T) {
	r := goodRecipe()
	r.Ingredients = []model.Ingredient{
		{Item: "Onion"},
		{Item: "JALAPEÑO"},
		{Item: "Garlic"},
		{Item: "jalapeño"},
		{Item: "onion "},
		{Item: "Garlic"},
	}
	assert.Equal(t, "Duplicate ingredients: Garlic, JALAPEÑO, Onion", PostCheck(r))
}

func TestPostCheck_StepOrder(t *testing.T) {
	r := goodRecipe()
	r.Steps[1].Order, r.Steps[2].Order = 3, 2
	assert.Equal(t, "Steps are not in sequential order", PostCheck(r))
}

func TestPostCheck_DuplicateStepNumbers(t *testing.T) {
	r := goodRecipe()
	r.Steps[1].Order = r.Steps[0].Order
	assert.Equal(t, "Duplicate step numbers", PostCheck(r))
}

func TestPostCheck_OK(t *testing.T) {
	assert.Equal(t, "", PostCheck(goodRecipe()))
}
