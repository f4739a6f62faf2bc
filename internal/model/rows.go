package model

import "time"

// Privacy levels for persisted recipes.
const (
	PrivacySpace = "space"
)

// RecipeRow is a recipe as stored in the recipes table.
type RecipeRow struct {
	ID                 string     `json:"id,omitempty"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	ImageURL           *string    `json:"image_url"`
	PrepTimeMinutes    int        `json:"prep_time_minutes"`
	CookTimeMinutes    int        `json:"cook_time_minutes"`
	Servings           int        `json:"servings"`
	Difficulty         Difficulty `json:"difficulty"`
	CaloriesPerServing *int       `json:"calories_per_serving"`
	UserID             string     `json:"user_id"`
	SpaceID            string     `json:"space_id"`
	IsPublic           bool       `json:"is_public"`
	PrivacyLevel       string     `json:"privacy_level"`
	BatchID            string     `json:"batch_id"`
	QAStatus           string     `json:"qa_status"`
	Tags               []string   `json:"tags"`
	CreatedAt          time.Time  `json:"created_at,omitzero"`
}

// IngredientRow is one row of the ingredients table.
type IngredientRow struct {
	ID         string  `json:"id,omitempty"`
	RecipeID   string  `json:"recipe_id"`
	FoodID     *string `json:"food_id"`
	UnitID     *string `json:"unit_id"`
	FoodName   string  `json:"food_name"`
	UnitName   string  `json:"unit_name"`
	Amount     float64 `json:"amount"`
	OrderIndex int     `json:"order_index"`
}

// StepRow is one row of the steps table.
type StepRow struct {
	ID              string `json:"id,omitempty"`
	RecipeID        string `json:"recipe_id"`
	Instruction     string `json:"instruction"`
	OrderIndex      int    `json:"order_index"`
	DurationMinutes int    `json:"duration_minutes"`
}

// RecipeSummary is the short listing shown by the status command.
type RecipeSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	QAStatus  string    `json:"qa_status"`
	CreatedAt time.Time `json:"created_at"`
}
