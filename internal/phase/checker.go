package phase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vampirenirmal/novelist/internal/agent"
	"github.com/vampirenirmal/novelist/internal/novel"
)

// Checker reviews a chapter against the plan and produces structured
// feedback. It is a pure function of its inputs: neither the plan nor any
// chapter is mutated.
type Checker struct {
	gen    agent.Generator
	schema agent.ResponseSchema
	logger *slog.Logger
}

type feedbackPayload struct {
	Verdict  string          `json:"verdict" jsonschema:"enum=Approved,enum=Needs Revision" jsonschema_description:"A simple one-word verdict on whether the chapter is good to go or needs work."`
	Thoughts thoughtsPayload `json:"thoughts"`
}

type thoughtsPayload struct {
	OverallImpression string   `json:"overallImpression" jsonschema_description:"A one-sentence overall impression of the chapter."`
	DetailedFeedback  []string `json:"detailedFeedback" jsonschema_description:"A list of specific, actionable feedback points."`
}

// NewChecker builds the chapter checker.
func NewChecker(gen agent.Generator) *Checker {
	return &Checker{
		gen:    gen,
		schema: agent.NewResponseSchema("checker_feedback", "Editorial verdict and feedback for one chapter.", feedbackPayload{}),
		logger: slog.Default().With("component", "checker"),
	}
}

// Check reviews chapterContent against the plan.
func (c *Checker) Check(ctx context.Context, plan *novel.Plan, chapterContent, globalPrompt string) (*novel.CheckerFeedback, error) {
	prompt := fmt.Sprintf(`%s

You are a meticulous story editor. Your job is to review a chapter. Compare it against the provided settings, plot outline, and tone. Check for consistency, pacing, character voice, and proper handling of foreshadowing.

Generate feedback as a JSON object with two keys: 'verdict' and 'thoughts'.
- For 'verdict', provide a simple one-word assessment: either "Approved" if the chapter is consistent and well-written, or "Needs Revision" if there are issues.
- For 'thoughts', provide an object containing 'overallImpression' (a one-sentence summary of your feedback) and 'detailedFeedback' (a list of specific, constructive points).

%s

**Chapter Text to Review:**
%s`, globalPrompt, plan.FormatForPrompt(), chapterContent)

	var payload feedbackPayload
	if err := c.gen.CompleteStructured(ctx, prompt, c.schema, &payload); err != nil {
		return nil, err
	}

	if payload.Verdict != novel.VerdictApproved && payload.Verdict != novel.VerdictNeedsRevision {
		return nil, &agent.SchemaViolationError{
			Schema: c.schema.Name,
			Raw:    payload.Verdict,
			Err:    fmt.Errorf("verdict must be %q or %q", novel.VerdictApproved, novel.VerdictNeedsRevision),
		}
	}

	feedback := &novel.CheckerFeedback{
		Verdict: payload.Verdict,
		Thoughts: novel.CheckerThoughts{
			OverallImpression: payload.Thoughts.OverallImpression,
			DetailedFeedback:  payload.Thoughts.DetailedFeedback,
		},
	}
	// An empty detail list is valid and means "no further notes".
	if feedback.Thoughts.DetailedFeedback == nil {
		feedback.Thoughts.DetailedFeedback = []string{}
	}

	c.logger.Info("chapter checked",
		"verdict", feedback.Verdict,
		"detail_points", len(feedback.Thoughts.DetailedFeedback))
	return feedback, nil
}
