package model

import (
	"fmt"
	"strings"
)

// Category classifies an ingredient for shopping-list grouping.
type Category string

const (
	CategoryProduce Category = "Produce"
	CategoryMeat    Category = "Meat"
	CategoryDairy   Category = "Dairy"
	CategoryPantry  Category = "Pantry"
	CategorySpice   Category = "Spice"
	CategoryOther   Category = "Other"
)

// AllCategories returns every valid ingredient category.
func AllCategories() []Category {
	return []Category{
		CategoryProduce,
		CategoryMeat,
		CategoryDairy,
		CategoryPantry,
		CategorySpice,
		CategoryOther,
	}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryProduce, CategoryMeat, CategoryDairy, CategoryPantry, CategorySpice, CategoryOther:
		return true
	}
	return false
}

// Difficulty is the self-reported complexity of a recipe.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether d is one of the known difficulty levels.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Recipe limits shared by the validator and the schema check.
const (
	MinIngredients  = 2
	MinSteps        = 2
	MinServings     = 1
	MaxServings     = 50
	MaxTotalMinutes = 480
)

// Ingredient is a single line of a recipe's ingredient list.
type Ingredient struct {
	Item     string   `json:"item"`
	Amount   float64  `json:"amount"`
	Unit     string   `json:"unit"`
	Category Category `json:"category"`
}

// Step is one instruction in a recipe's method.
type Step struct {
	Order           int    `json:"order"`
	Instruction     string `json:"instruction"`
	DurationMinutes int    `json:"duration_minutes"`
}

// Recipe is a synthesized recipe as it moves through the mining pipeline.
type Recipe struct {
	Title           string       `json:"title"`
	Description     string       `json:"description"`
	PrepTimeMinutes int          `json:"prep_time_minutes"`
	CookTimeMinutes int          `json:"cook_time_minutes"`
	Servings        int          `json:"servings"`
	Difficulty      Difficulty   `json:"difficulty"`
	Ingredients     []Ingredient `json:"ingredients"`
	Steps           []Step       `json:"steps"`
}

// TotalMinutes returns prep plus cook time.
func (r *Recipe) TotalMinutes() int {
	return r.PrepTimeMinutes + r.CookTimeMinutes
}

// DisplayTitle returns the title, or a placeholder for untitled recipes.
func (r *Recipe) DisplayTitle() string {
	if r == nil || strings.TrimSpace(r.Title) == "" {
		return "Unknown Recipe"
	}
	return r.Title
}

// Validate checks the structural shape of a recipe: required strings,
// enumerations, per-field signs and unique step orders. Quality limits
// (ingredient/step counts, servings range, total time) are left to the
// validator so that they produce a FLAG verdict instead of discarding the
// recipe.
func (r *Recipe) Validate() error {
	if r == nil {
		return &SchemaError{Field: "recipe", Reason: "is null"}
	}
	if strings.TrimSpace(r.Title) == "" {
		return &SchemaError{Field: "title", Reason: "is required"}
	}
	if !r.Difficulty.Valid() {
		return &SchemaError{Field: "difficulty", Reason: fmt.Sprintf("must be easy, medium or hard, got %q", r.Difficulty)}
	}
	if r.PrepTimeMinutes < 0 {
		return &SchemaError{Field: "prep_time_minutes", Reason: "must be non-negative"}
	}
	if r.CookTimeMinutes < 0 {
		return &SchemaError{Field: "cook_time_minutes", Reason: "must be non-negative"}
	}
	for i, ing := range r.Ingredients {
		field := fmt.Sprintf("ingredients[%d]", i)
		if strings.TrimSpace(ing.Item) == "" {
			return &SchemaError{Field: field + ".item", Reason: "is required"}
		}
		if ing.Amount < 0 {
			return &SchemaError{Field: field + ".amount", Reason: "must be non-negative"}
		}
		if !ing.Category.Valid() {
			return &SchemaError{Field: field + ".category", Reason: fmt.Sprintf("unknown category %q", ing.Category)}
		}
	}
	seen := make(map[int]bool, len(r.Steps))
	for i, st := range r.Steps {
		field := fmt.Sprintf("steps[%d]", i)
		if st.Order < 1 {
			return &SchemaError{Field: field + ".order", Reason: "must be a positive integer"}
		}
		if seen[st.Order] {
			return &SchemaError{Field: field + ".order", Reason: fmt.Sprintf("duplicates step %d", st.Order)}
		}
		seen[st.Order] = true
		if strings.TrimSpace(st.Instruction) == "" {
			return &SchemaError{Field: field + ".instruction", Reason: "is required"}
		}
		if st.DurationMinutes < 0 {
			return &SchemaError{Field: field + ".duration_minutes", Reason: "must be non-negative"}
		}
	}
	return nil
}
