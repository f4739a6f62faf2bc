package upload

import (
	"context"
	"errors"
	"slices"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/recipe-miner/internal/model"
	"github.com/sells-group/recipe-miner/internal/store"
)

// State is a step of the per-recipe write sequence.
type State string

const (
	StatePending            State = "PENDING"
	StateRecipeWritten      State = "RECIPE_WRITTEN"
	StateIngredientsWritten State = "INGREDIENTS_WRITTEN"
	StateStepsWritten       State = "STEPS_WRITTEN"
	// StateRollbackFailed means a compensating delete failed and rows of
	// RecipeID may remain in the store.
	StateRollbackFailed     State = "ROLLBACK_FAILED"
)

// Transition is one recorded state change.
type Transition struct {
	From   State
	To     State
	Action string
}

// Saga writes one recipe, its ingredients and its steps as separate store
// calls and deletes what it wrote when a later call fails. A Saga is used
// once.
type Saga struct {
	writer   store.RecipeWriter
	state    State
	recipeID string
	history  []Transition
}

// NewSaga creates a saga in PENDING.
func NewSaga(w store.RecipeWriter) *Saga {
	return &Saga{writer: w, state: StatePending}
}

// State returns the current state.
func (s *Saga) State() State { return s.state }

// RecipeID returns the id assigned by the store, or "" before the recipe is
// written and after it is rolled back.
func (s *Saga) RecipeID() string { return s.recipeID }

// History returns the transitions taken so far.
func (s *Saga) History() []Transition { return slices.Clone(s.history) }

func (s *Saga) move(to State, action string) {
	s.history = append(s.history, Transition{From: s.state, To: to, Action: action})
	s.state = to
}

// Run performs the write sequence. Ingredient and step rows get their
// RecipeID filled in. On success the saga ends in STEPS_WRITTEN; on failure
// it ends in PENDING with nothing of the recipe left in the store, or in
// ROLLBACK_FAILED when a compensating delete also failed.
func (s *Saga) Run(ctx context.Context, recipe *model.RecipeRow, ingredients []model.IngredientRow, steps []model.StepRow) (string, error) {
	if s.state != StatePending {
		return "", eris.Errorf("upload: saga already run (state %s)", s.state)
	}

	id, err := s.writer.InsertRecipe(ctx, recipe)
	if err != nil {
		return "", &UploadError{Reason: ErrRecipeInsert, Cause: err}
	}
	if id == "" {
		return "", &UploadError{Reason: ErrRecipeInsert, Cause: eris.New("store returned no recipe id")}
	}
	s.recipeID = id
	s.move(StateRecipeWritten, "insert recipe")

	for i := range ingredients {
		ingredients[i].RecipeID = id
	}
	if len(ingredients) > 0 {
		if err := s.writer.InsertIngredients(ctx, ingredients); err != nil {
			rb := s.compensate(ctx, s.writer.DeleteRecipe)
			s.settle(rb, "rollback recipe")
			return "", &UploadError{Reason: ErrIngredientInsert, Cause: err, Rollback: rb}
		}
	}
	s.move(StateIngredientsWritten, "insert ingredients")

	for i := range steps {
		steps[i].RecipeID = id
	}
	if len(steps) > 0 {
		if err := s.writer.InsertSteps(ctx, steps); err != nil {
			rb := s.compensate(ctx, s.writer.DeleteSteps, s.writer.DeleteIngredients, s.writer.DeleteRecipe)
			s.settle(rb, "rollback ingredients and recipe")
			return "", &UploadError{Reason: ErrStepInsert, Cause: err, Rollback: rb}
		}
	}
	s.move(StateStepsWritten, "insert steps")

	return id, nil
}

// settle records the outcome of a rollback.
func (s *Saga) settle(rollbackErr error, action string) {
	if rollbackErr != nil {
		s.move(StateRollbackFailed, action+" (incomplete)")
		return
	}
	s.move(StatePending, action)
}

// compensate runs every delete even when an earlier one fails. Deletes run
// without the caller's cancellation so a Ctrl-C mid-write still cleans up.
func (s *Saga) compensate(ctx context.Context, deletes ...func(context.Context, string) error) error {
	ctx = context.WithoutCancel(ctx)
	var errs []error
	for _, del := range deletes {
		if err := del(ctx, s.recipeID); err != nil {
			errs = append(errs, err)
		}
	}
	err := errors.Join(errs...)
	if err != nil {
		zap.L().Error("upload: rollback incomplete",
			zap.String("recipe_id", s.recipeID),
			zap.Error(err),
		)
		return err
	}
	s.recipeID = ""
	return nil
}
