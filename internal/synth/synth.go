// Package synth asks the model for a consensus recipe built from several
// source texts.
package synth

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/recipe-miner/internal/model"
	"github.com/sells-group/recipe-miner/pkg/anthropic"
)

const synthesisPrompt = `You are a Culinary Data Architect with the following persona: %s

TASK: Create a "Consensus Recipe" for %q based on the %d source texts provided.

REQUIREMENTS:
1. Find the intersection of ingredients and techniques across sources
2. Write UNIQUE instructions - do not copy-paste from sources
3. Ensure all ingredients in the list are used in the steps
4. Times should be realistic for home cooking
5. Difficulty should reflect actual complexity

SOURCES:
%s

OUTPUT: Return ONLY valid JSON that strictly matches this schema, with no
extra keys and no commentary:
%s`

// RecipeSchema is the JSON schema the model is asked to follow.
const RecipeSchema = `{
  "type": "object",
  "required": ["title", "description", "prep_time_minutes", "cook_time_minutes", "servings", "difficulty", "ingredients", "steps"],
  "additionalProperties": false,
  "properties": {
    "title": {"type": "string"},
    "description": {"type": "string"},
    "prep_time_minutes": {"type": "integer", "minimum": 0},
    "cook_time_minutes": {"type": "integer", "minimum": 0},
    "servings": {"type": "integer", "minimum": 1, "maximum": 50},
    "difficulty": {"type": "string", "enum": ["easy", "medium", "hard"]},
    "ingredients": {
      "type": "array",
      "minItems": 2,
      "items": {
        "type": "object",
        "required": ["item", "amount", "unit", "category"],
        "additionalProperties": false,
        "properties": {
          "item": {"type": "string"},
          "amount": {"type": "number"},
          "unit": {"type": "string"},
          "category": {"type": "string", "enum": ["Produce", "Meat", "Dairy", "Pantry", "Spice", "Other"]}
        }
      }
    },
    "steps": {
      "type": "array",
      "minItems": 2,
      "items": {
        "type": "object",
        "required": ["order", "instruction", "duration_minutes"],
        "additionalProperties": false,
        "properties": {
          "order": {"type": "integer", "minimum": 1},
          "instruction": {"type": "string"},
          "duration_minutes": {"type": "integer", "minimum": 0}
        }
      }
    }
  }
}`

// Options configures the model call.
type Options struct {
	Model       string
	MaxTokens   int64
	Temperature float64
}

// Synthesizer generates one recipe per dish.
type Synthesizer struct {
	client anthropic.Client
	opts   Options
}

// New creates a Synthesizer.
func New(client anthropic.Client, opts Options) *Synthesizer {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 4096
	}
	return &Synthesizer{client: client, opts: opts}
}

// Synthesize makes a single model call and returns a schema-valid recipe.
// Any call, parse or schema failure comes back as a generation Failure;
// the call is not retried.
func (s *Synthesizer) Synthesize(ctx context.Context, dish, persona string, sources []string) (*model.Recipe, error) {
	prompt, err := BuildPrompt(dish, persona, sources)
	if err != nil {
		return nil, model.NewFailure(model.KindGeneration, dish, err)
	}

	resp, err := s.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       s.opts.Model,
		MaxTokens:   s.opts.MaxTokens,
		Messages:    anthropic.UserMessage(prompt),
		Temperature: anthropic.Temperature(s.opts.Temperature),
	})
	if err != nil {
		return nil, model.NewFailure(model.KindGeneration, dish, err)
	}
	resp.Usage.LogCost(s.opts.Model, "synthesis")

	recipe, err := ParseRecipe(resp.Text())
	if err != nil {
		zap.L().Debug("synth: unusable model output",
			zap.String("dish", dish),
			zap.String("stop_reason", resp.StopReason),
			zap.Error(err),
		)
		return nil, model.NewFailure(model.KindGeneration, dish, err)
	}
	return recipe, nil
}

// BuildPrompt renders the synthesis prompt with the sources JSON-encoded.
func BuildPrompt(dish, persona string, sources []string) (string, error) {
	encoded, err := json.MarshalIndent(sources, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "synth: encode sources")
	}
	return fmt.Sprintf(synthesisPrompt, persona, dish, len(sources), encoded, RecipeSchema), nil
}

// ParseRecipe decodes model output into a Recipe, rejecting unknown fields
// and shapes that fail Recipe.Validate.
func ParseRecipe(text string) (*model.Recipe, error) {
	cleaned := anthropic.CleanJSON(text)
	if cleaned == "" {
		return nil, eris.New("synth: empty response")
	}

	dec := json.NewDecoder(strings.NewReader(cleaned))
	dec.DisallowUnknownFields()

	var recipe model.Recipe
	if err := dec.Decode(&recipe); err != nil {
		return nil, eris.Wrap(err, "synth: decode recipe")
	}
	if dec.More() {
		return nil, eris.New("synth: trailing data after recipe")
	}
	if err := recipe.Validate(); err != nil {
		return nil, err
	}
	return &recipe, nil
}

