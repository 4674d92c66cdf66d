package phase

import (
	"context"
	"strings"
	"testing"

	"github.com/vampirenirmal/novelist/internal/agent"
	"github.com/vampirenirmal/novelist/internal/novel"
)

func TestCheckReturnsFeedback(t *testing.T) {
	plan, _ := revisionFixture()

	mock := &agent.MockClient{
		StructuredRaw: []string{`{
			"verdict": "Needs Revision",
			"thoughts": {
				"overallImpression": "Strong opening, sagging middle.",
				"detailedFeedback": ["Tighten the harbor scene.", "Tomas's voice slips in dialogue."]
			}
		}`},
	}

	checker := NewChecker(mock)
	feedback, err := checker.Check(context.Background(), plan, "chapter text", "")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}

	if feedback.Verdict != novel.VerdictNeedsRevision {
		t.Errorf("Verdict = %q, want %q", feedback.Verdict, novel.VerdictNeedsRevision)
	}
	if len(feedback.Thoughts.DetailedFeedback) != 2 {
		t.Errorf("DetailedFeedback has %d points, want 2", len(feedback.Thoughts.DetailedFeedback))
	}

	prompt := mock.StructuredPrompts[0]
	for _, want := range []string{"chapter text", "**Plot Outline:**", "verdict"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("checker prompt missing %q", want)
		}
	}
}

func TestCheckRejectsUnknownVerdict(t *testing.T) {
	plan, _ := revisionFixture()

	mock := &agent.MockClient{
		StructuredRaw: []string{`{
			"verdict": "Mostly Fine",
			"thoughts": {"overallImpression": "ok", "detailedFeedback": []}
		}`},
	}

	checker := NewChecker(mock)
	if _, err := checker.Check(context.Background(), plan, "text", ""); !agent.IsSchemaViolation(err) {
		t.Errorf("Check() error = %v, want a SchemaViolationError", err)
	}
}

func TestCheckNormalizesMissingDetails(t *testing.T) {
	plan, _ := revisionFixture()

	mock := &agent.MockClient{
		StructuredRaw: []string{`{
			"verdict": "Approved",
			"thoughts": {"overallImpression": "Clean chapter."}
		}`},
	}

	checker := NewChecker(mock)
	feedback, err := checker.Check(context.Background(), plan, "text", "")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if feedback.Thoughts.DetailedFeedback == nil {
		t.Error("DetailedFeedback should be an empty slice, not nil")
	}
	if len(feedback.Thoughts.DetailedFeedback) != 0 {
		t.Errorf("DetailedFeedback = %v, want empty", feedback.Thoughts.DetailedFeedback)
	}
}

func TestCheckDoesNotMutatePlan(t *testing.T) {
	plan, _ := revisionFixture()
	before := plan.Clone()

	mock := &agent.MockClient{
		StructuredRaw: []string{`{
			"verdict": "Approved",
			"thoughts": {"overallImpression": "Fine.", "detailedFeedback": []}
		}`},
	}

	checker := NewChecker(mock)
	if _, err := checker.Check(context.Background(), plan, "text", ""); err != nil {
		t.Fatalf("Check() error = %v", err)
	}

	if plan.Tone != before.Tone || len(plan.PlotOutline) != len(before.PlotOutline) {
		t.Error("Check() mutated the plan")
	}
}
