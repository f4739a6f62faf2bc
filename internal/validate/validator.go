// Package validate decides PASS or FLAG for a synthesized recipe using
// deterministic checks around a model-judged review.
package validate

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

const judgePrompt = `You are a Food Safety & Quality Assurance Officer. Review this recipe for critical issues.

RECIPE TO VALIDATE:
Title: %s
Description: %s
Prep Time: %d minutes
Cook Time: %d minutes
Servings: %d
Difficulty: %s

INGREDIENTS (%d):
%s

STEPS (%d):
%s

VALIDATION CRITERIA:
1. SAFETY: Any dangerous or non-food items? Any unsafe cooking practices?
2. LOGIC: Do steps reference ingredients that aren't listed? Are steps in logical order?
3. COMPLETENESS: Are all necessary steps included? Are cooking times realistic?
4. CONSISTENCY: Do ingredient quantities match the number of servings?
5. AUTHENTICITY: For traditional dishes, are there any clearly inauthentic ingredients?

RESPOND WITH JSON ONLY:
{"status": "PASS" or "FLAG", "reason": "Brief explanation. Use 'OK' if status is PASS"}`

// ReasonFlaggedByReviewer replaces an empty or "OK" reason on a FLAG.
const ReasonFlaggedByReviewer = "Flagged by reviewer"

// Options configures the judge call.
type Options struct {
	Model       string
	MaxTokens   int64
	Temperature float64
}

// Validator produces one verdict per recipe.
type Validator struct {
	client anthropic.Client
	opts   Options
}

// New creates a Validator.
func New(client anthropic.Client, opts Options) *Validator {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 512
	}
	return &Validator{client: client, opts: opts}
}

// Validate runs the quick checks, the model judge and the post checks,
// stopping at the first FLAG. It never fails: a judge error becomes a FLAG
// whose reason starts with "Validation error:".
func (v *Validator) Validate(ctx context.Context, r *model.Recipe) model.ValidationResult {
	if reason := QuickCheck(r); reason != "" {
		return model.Flag(reason)
	}

	verdict, err := v.judge(ctx, r)
	if err != nil {
		zap.L().Warn("validate: judge failed",
			zap.String("recipe", r.DisplayTitle()),
			zap.Error(err),
		)
		return model.Flag("Validation error: " + err.Error())
	}

	if verdict.IsPass() {
		if reason := PostCheck(r); reason != "" {
			return model.Flag(reason)
		}
	}
	return verdict
}

func (v *Validator) judge(ctx context.Context, r *model.Recipe) (model.ValidationResult, error) {
	prompt, err := BuildPrompt(r)
	if err != nil {
		return model.ValidationResult{}, err
	}

	resp, err := v.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       v.opts.Model,
		MaxTokens:   v.opts.MaxTokens,
		Messages:    anthropic.UserMessage(prompt),
		Temperature: anthropic.Temperature(v.opts.Temperature),
	})
	if err != nil {
		return model.ValidationResult{}, err
	}
	resp.Usage.LogCost(v.opts.Model, "validation")

	return ParseVerdict(resp.Text())
}

// BuildPrompt renders the judge prompt for a recipe.
func BuildPrompt(r *model.Recipe) (string, error) {
	ings, err := json.MarshalIndent(r.Ingredients, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "validate: encode ingredients")
	}
	steps, err := json.MarshalIndent(r.Steps, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "validate: encode steps")
	}
	return fmt.Sprintf(judgePrompt,
		r.Title, r.Description,
		r.PrepTimeMinutes, r.CookTimeMinutes, r.Servings, r.Difficulty,
		len(r.Ingredients), ings,
		len(r.Steps), steps,
	), nil
}

type judgeResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// ParseVerdict decodes the judge's {status, reason} reply. Status is
// matched case-insensitively; anything but PASS or FLAG is an error.
func ParseVerdict(text string) (model.ValidationResult, error) {
	var resp judgeResponse
	if err := json.Unmarshal([]byte(anthropic.CleanJSON(text)), &resp); err != nil {
		return model.ValidationResult{}, eris.Wrap(err, "parse verdict")
	}

	reason := strings.TrimSpace(resp.Reason)
	switch model.QAStatus(strings.ToUpper(strings.TrimSpace(resp.Status))) {
	case model.QAStatusPass:
		return model.Pass(), nil
	case model.QAStatusFlag:
		if reason == "" || strings.EqualFold(reason, model.ReasonOK) {
			reason = ReasonFlaggedByReviewer
		}
		return model.Flag(reason), nil
	default:
		return model.ValidationResult{}, eris.Errorf("parse verdict: unknown status %q", resp.Status)
	}
}
