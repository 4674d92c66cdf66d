package phase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/vampirenirmal/novelist/internal/agent"
	"github.com/vampirenirmal/novelist/internal/novel"
)

// Planner generates, refines and syncs the novel plan through
// schema-constrained completions.
type Planner struct {
	gen    agent.Generator
	schema agent.ResponseSchema
	logger *slog.Logger
}

// Wire payloads deliberately omit id fields: ids are never requested of the
// model and are always synthesized locally after the fact.
type planPayload struct {
	WorldSettings     worldPayload       `json:"worldSettings" jsonschema_description:"Details about the story's world."`
	CharacterSettings []characterPayload `json:"characterSettings" jsonschema_description:"A list of main and supporting characters."`
	PlotOutline       []plotPayload      `json:"plotOutline" jsonschema_description:"A chapter-by-chapter or act-by-act outline of the plot."`
	Tone              string             `json:"tone" jsonschema_description:"The overall tone and mood of the novel, e.g. 'Dark Fantasy', 'Lighthearted Sci-Fi', 'Gritty Noir'."`
}

type worldPayload struct {
	Summary      string `json:"summary" jsonschema_description:"A brief, evocative summary of the world."`
	Locations    string `json:"locations" jsonschema_description:"Key locations, cities, or landmarks and their descriptions."`
	History      string `json:"history" jsonschema_description:"The relevant history, lore, and timeline of the world."`
	MagicSystems string `json:"magicSystems" jsonschema_description:"Rules and nature of magic, technology, or other unique systems. Can be 'None' if not applicable."`
}

type characterPayload struct {
	Name        string `json:"name" jsonschema_description:"The character's full name."`
	Description string `json:"description" jsonschema_description:"Physical appearance, personality, and mannerisms."`
	Motivation  string `json:"motivation" jsonschema_description:"The character's primary goals, desires, and fears."`
}

type plotPayload struct {
	Title       string `json:"title" jsonschema_description:"The title of the chapter or act (e.g. 'Chapter 1: The Discovery')."`
	Description string `json:"description" jsonschema_description:"A summary of the key events, conflicts, and resolutions in this part of the story."`
}

// NewPlanner builds the plan service.
func NewPlanner(gen agent.Generator) *Planner {
	return &Planner{
		gen:    gen,
		schema: agent.NewResponseSchema("novel_plan", "Structured plan for a novel: world, characters, plot outline and tone.", planPayload{}),
		logger: slog.Default().With("component", "planner"),
	}
}

// Generate produces a fresh plan from the user's story idea.
func (p *Planner) Generate(ctx context.Context, idea, globalPrompt string) (*novel.Plan, error) {
	prompt := fmt.Sprintf(`%s

You are a master storyteller and world-builder. Based on the user's idea: %q, generate a detailed, structured plan for a novel. Create a JSON object with four top-level keys: 'worldSettings', 'characterSettings', 'plotOutline', and 'tone'.
- 'worldSettings' should be an object with keys: 'summary', 'locations', 'history', and 'magicSystems'.
- 'characterSettings' should be an array of objects, each with 'name', 'description', and 'motivation'.
- 'plotOutline' should be an array of objects, each representing a chapter or act, with 'title' and 'description'.
- 'tone' should be a string describing the novel's mood.`, globalPrompt, idea)

	plan, err := p.completePlan(ctx, prompt)
	if err != nil {
		return nil, err
	}
	p.logger.Info("plan generated",
		"characters", len(plan.CharacterSettings),
		"plot_points", len(plan.PlotOutline))
	return plan, nil
}

// Refine regenerates the entire plan according to a refinement instruction.
// The model returns a complete replacement, never a diff.
func (p *Planner) Refine(ctx context.Context, current *novel.Plan, instruction, globalPrompt string) (*novel.Plan, error) {
	serialized, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serializing current plan: %w", err)
	}

	prompt := fmt.Sprintf(`%s

You are a master storyteller. A user wants to refine their structured novel plan.
The user's request for change is: %q.

Based on this request, regenerate the entire plan, keeping the same JSON structure.

Current Plan:
%s
`, globalPrompt, instruction, serialized)

	plan, err := p.completePlan(ctx, prompt)
	if err != nil {
		return nil, err
	}
	p.logger.Info("plan refined", "plot_points", len(plan.PlotOutline))
	return plan, nil
}

// SyncWithChapter rewrites the plot-point description for the given chapter
// so the plan stays consistent with edited chapter content. The model is
// instructed to leave everything else untouched, but the returned plan is
// trusted wholesale; there is no mechanical diff against the original.
func (p *Planner) SyncWithChapter(ctx context.Context, current *novel.Plan, chapter novel.Chapter, globalPrompt string) (*novel.Plan, error) {
	serialized, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serializing current plan: %w", err)
	}

	prompt := fmt.Sprintf(`%s

You are a meticulous novel planner. The user has updated a chapter's content, and you need to update the novel's blueprint (the plan) to match.

Your task is to rewrite the 'description' of the plot point for Chapter %d to be consistent with its new content. Do not change any other part of the plan. Output the entire, updated plan as a single JSON object.

**Current Plan:**
---
%s
---

**New Content for %s:**
---
%s
---

Now, provide the complete and updated JSON for the entire plan.`, globalPrompt, chapter.ID, serialized, chapter.Title, chapter.Content)

	plan, err := p.completePlan(ctx, prompt)
	if err != nil {
		return nil, err
	}
	p.logger.Info("plan synced with chapter", "chapter", chapter.ID)
	return plan, nil
}

func (p *Planner) completePlan(ctx context.Context, prompt string) (*novel.Plan, error) {
	var payload planPayload
	if err := p.gen.CompleteStructured(ctx, prompt, p.schema, &payload); err != nil {
		return nil, err
	}

	plan := &novel.Plan{
		WorldSettings: novel.WorldSettings(payload.WorldSettings),
		Tone:          payload.Tone,
	}
	for _, c := range payload.CharacterSettings {
		plan.CharacterSettings = append(plan.CharacterSettings, novel.CharacterProfile{
			Name:        c.Name,
			Description: c.Description,
			Motivation:  c.Motivation,
		})
	}
	for _, pt := range payload.PlotOutline {
		plan.PlotOutline = append(plan.PlotOutline, novel.PlotPoint{
			Title:       pt.Title,
			Description: pt.Description,
		})
	}
	plan.EnsureIDs()
	return plan, nil
}
