package phase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vampirenirmal/novelist/internal/agent"
	"github.com/vampirenirmal/novelist/internal/novel"
)

const runnerSystemPrompt = `You are an autonomous writing assistant working on a novel manuscript. You are given the novel's plan and chapters, and a task from the author. Complete the task using your tools:
- 'readChapterContent' to read any chapter.
- 'findInManuscript' to search all chapters for a phrase.
- 'replaceInChapter' to make a targeted text replacement in any chapter.
- 'rewriteChapter' to replace a chapter's full text.
- 'appendChapter' to add a new chapter at the end of the manuscript.
- 'updatePlotPoint' to rewrite a plot point's description in the plan.
Work step by step. When the task is complete, state briefly what you did as your final answer.`

// RunnerUpdate is one streamed increment of an agent run: a transcript entry
// plus, when a mutating tool just ran, the updated plan and/or chapter list
// for the caller to apply immediately.
type RunnerUpdate struct {
	Entry    novel.AgentLogEntry
	Plan     *novel.Plan
	Chapters []novel.Chapter
}

// Sink receives RunnerUpdates as they are produced, in order.
type Sink func(RunnerUpdate)

// Runner executes open-ended manuscript tasks over a bounded tool loop with
// a wider tool surface than the Reviser: it may edit any chapter, append new
// chapters and rewrite plot-point descriptions.
type Runner struct {
	gen      agent.Generator
	maxTurns int
	logger   *slog.Logger
}

// NewRunner builds the free-form agent runner.
func NewRunner(gen agent.Generator, maxTurns int) *Runner {
	return &Runner{
		gen:      gen,
		maxTurns: maxTurns,
		logger:   slog.Default().With("component", "runner"),
	}
}

type crossReplaceArgs struct {
	ChapterNumber int    `json:"chapterNumber" jsonschema_description:"The number of the chapter to edit (e.g. 1, 2)."`
	OldText       string `json:"oldText" jsonschema_description:"The exact text snippet to be replaced."`
	NewText       string `json:"newText" jsonschema_description:"The new text to insert."`
}

type rewriteArgs struct {
	ChapterNumber int    `json:"chapterNumber" jsonschema_description:"The number of the chapter to rewrite (e.g. 1, 2)."`
	Content       string `json:"content" jsonschema_description:"The complete new text of the chapter."`
}

type appendArgs struct {
	Title   string `json:"title" jsonschema_description:"The title of the new chapter."`
	Content string `json:"content" jsonschema_description:"The full text of the new chapter."`
}

type plotUpdateArgs struct {
	ChapterNumber int    `json:"chapterNumber" jsonschema_description:"The number of the plot point to update (e.g. 1, 2)."`
	Description   string `json:"description" jsonschema_description:"The new description for this plot point."`
}

// runState is the mutable document the runner's tools operate on. The dirty
// flags record which half changed during the current tool call so the
// observer can attach the right payload to the result entry.
type runState struct {
	plan          *novel.Plan
	chapters      []novel.Chapter
	planDirty     bool
	chaptersDirty bool
}

// Run executes the task and streams the transcript through sink. The
// returned plan and chapters reflect every mutation the run applied, even
// when the run itself ends in an error after some tools already succeeded.
func (r *Runner) Run(ctx context.Context, plan *novel.Plan, chapters []novel.Chapter, task, globalPrompt string, sink Sink) (*novel.Plan, []novel.Chapter, error) {
	state := &runState{
		plan:     plan.Clone(),
		chapters: novel.CloneChapters(chapters),
	}

	expanded, unresolved := novel.ExpandMentions(task, state.plan, state.chapters)
	for _, ref := range unresolved {
		r.logger.Warn("unresolved mention", "reference", ref)
	}

	emit := func(update RunnerUpdate) {
		if sink != nil {
			sink(update)
		}
	}

	observer := func(ev agent.Event) {
		switch ev.Kind {
		case agent.EventThought:
			emit(RunnerUpdate{Entry: novel.AgentLogEntry{Kind: novel.LogThought, Content: ev.Text}})
		case agent.EventAction:
			emit(RunnerUpdate{Entry: novel.AgentLogEntry{
				Kind:    novel.LogAction,
				Content: fmt.Sprintf("%s(%s)", ev.Tool, ev.Text),
			}})
		case agent.EventResult:
			kind := novel.LogResult
			if strings.HasPrefix(ev.Text, "Error:") {
				kind = novel.LogError
			}
			update := RunnerUpdate{Entry: novel.AgentLogEntry{Kind: kind, Content: ev.Text}}
			if state.planDirty {
				update.Plan = state.plan.Clone()
				state.planDirty = false
			}
			if state.chaptersDirty {
				update.Chapters = novel.CloneChapters(state.chapters)
				state.chaptersDirty = false
			}
			emit(update)
		}
	}

	system := runnerSystemPrompt
	if globalPrompt != "" {
		system = globalPrompt + "\n\n" + system
	}

	user := fmt.Sprintf(`%s

**Manuscript:** %d chapters.

**Task from the author:**
%s`, state.plan.FormatForPrompt(), len(state.chapters), expanded)

	final, err := r.gen.RunToolConversation(ctx, system, user, r.agentTools(state), r.maxTurns, observer)
	if err != nil {
		emit(RunnerUpdate{Entry: novel.AgentLogEntry{Kind: novel.LogError, Content: err.Error()}})
		return state.plan, state.chapters, err
	}

	emit(RunnerUpdate{Entry: novel.AgentLogEntry{Kind: novel.LogFinish, Content: final}})
	r.logger.Info("agent run finished", "chapters", len(state.chapters))
	return state.plan, state.chapters, nil
}

func (r *Runner) agentTools(state *runState) []agent.Tool {
	return []agent.Tool{
		readChapterTool(func() []novel.Chapter { return state.chapters }),
		findTool(func() []novel.Chapter { return state.chapters }),
		{
			Name:        "replaceInChapter",
			Description: "Replaces the first occurrence of a text string with a new one within a specific chapter.",
			Params:      crossReplaceArgs{},
			Handle: func(raw json.RawMessage) string {
				var args crossReplaceArgs
				if err := agent.DecodeArgs(raw, &args); err != nil {
					return fmt.Sprintf("Error: %v", err)
				}
				if args.ChapterNumber < 1 || args.ChapterNumber > len(state.chapters) {
					return fmt.Sprintf("Error: Invalid chapter number. There are only %d chapters.", len(state.chapters))
				}
				ch := &state.chapters[args.ChapterNumber-1]
				if !strings.Contains(ch.Content, args.OldText) || args.OldText == "" {
					return fmt.Sprintf("Error: The text snippet to be replaced was not found in Chapter %d.", args.ChapterNumber)
				}
				ch.Content = strings.Replace(ch.Content, args.OldText, args.NewText, 1)
				// Edited content invalidates any earlier checker verdict.
				ch.Feedback = nil
				state.chaptersDirty = true
				return "Replacement successful. The chapter content has been updated."
			},
		},
		{
			Name:        "rewriteChapter",
			Description: "Replaces the entire content of a specific chapter with new text.",
			Params:      rewriteArgs{},
			Handle: func(raw json.RawMessage) string {
				var args rewriteArgs
				if err := agent.DecodeArgs(raw, &args); err != nil {
					return fmt.Sprintf("Error: %v", err)
				}
				if args.ChapterNumber < 1 || args.ChapterNumber > len(state.chapters) {
					return fmt.Sprintf("Error: Invalid chapter number. There are only %d chapters.", len(state.chapters))
				}
				ch := &state.chapters[args.ChapterNumber-1]
				ch.Content = args.Content
				ch.Feedback = nil
				state.chaptersDirty = true
				return fmt.Sprintf("Chapter %d has been rewritten.", args.ChapterNumber)
			},
		},
		{
			Name:        "appendChapter",
			Description: "Adds a new chapter to the end of the manuscript.",
			Params:      appendArgs{},
			Handle: func(raw json.RawMessage) string {
				var args appendArgs
				if err := agent.DecodeArgs(raw, &args); err != nil {
					return fmt.Sprintf("Error: %v", err)
				}
				id := len(state.chapters) + 1
				title := args.Title
				if title == "" {
					title = fmt.Sprintf("Chapter %d", id)
				}
				state.chapters = append(state.chapters, novel.Chapter{
					ID:      id,
					Title:   title,
					Content: args.Content,
				})
				state.chaptersDirty = true
				return fmt.Sprintf("Chapter %d (%s) has been added to the manuscript.", id, title)
			},
		},
		{
			Name:        "updatePlotPoint",
			Description: "Rewrites the description of a plot point in the novel's plan.",
			Params:      plotUpdateArgs{},
			Handle: func(raw json.RawMessage) string {
				var args plotUpdateArgs
				if err := agent.DecodeArgs(raw, &args); err != nil {
					return fmt.Sprintf("Error: %v", err)
				}
				if args.ChapterNumber < 1 || args.ChapterNumber > len(state.plan.PlotOutline) {
					return fmt.Sprintf("Error: Invalid plot point number. There are only %d plot points.", len(state.plan.PlotOutline))
				}
				state.plan.PlotOutline[args.ChapterNumber-1].Description = args.Description
				state.planDirty = true
				return fmt.Sprintf("Plot point %d has been updated.", args.ChapterNumber)
			},
		},
	}
}
