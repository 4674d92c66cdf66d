package phase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vampirenirmal/novelist/internal/agent"
	"github.com/vampirenirmal/novelist/internal/novel"
)

const revisionSystemPrompt = `You are a professional novelist and editor. Your task is to revise a chapter based on the user's instructions. You have access to tools to help you: 'readChapterContent', 'findInManuscript', and 'replaceInChapter'.
- Use 'readChapterContent' to look at other chapters for context.
- Use 'findInManuscript' to locate specific names or phrases across all chapters.
- Use 'replaceInChapter' for small, targeted text replacements. Note: this tool only works on the current chapter being revised.
After using tools, you must provide the complete, revised text for the chapter as your final answer. Output only the final chapter text.`

// Reviser rewrites one chapter through a bounded tool conversation. The
// model may read other chapters and search the manuscript, but the only
// state it can mutate is the working copy of the chapter under revision.
type Reviser struct {
	gen      agent.Generator
	maxTurns int
	logger   *slog.Logger
}

// NewReviser builds the revision agent. maxTurns bounds the number of
// tool-calling rounds per revision.
func NewReviser(gen agent.Generator, maxTurns int) *Reviser {
	return &Reviser{
		gen:      gen,
		maxTurns: maxTurns,
		logger:   slog.Default().With("component", "reviser"),
	}
}

// Revise runs the revision conversation for chapters[chapterIndex] and
// returns the new chapter content. If the conversation ends without final
// text, the working content (including any replacements applied along the
// way) is returned instead, so tool-applied edits are never lost.
func (r *Reviser) Revise(ctx context.Context, plan *novel.Plan, chapters []novel.Chapter, chapterIndex int, instruction, globalPrompt string) (string, error) {
	if chapterIndex < 0 || chapterIndex >= len(chapters) {
		return "", fmt.Errorf("chapter index %d out of range (%d chapters)", chapterIndex, len(chapters))
	}
	chapter := chapters[chapterIndex]
	working := chapter.Content

	expanded, unresolved := novel.ExpandMentions(instruction, plan, chapters)
	for _, ref := range unresolved {
		r.logger.Warn("unresolved mention", "reference", ref)
	}

	tools := []agent.Tool{
		readChapterTool(func() []novel.Chapter { return chapters }),
		findTool(func() []novel.Chapter { return chapters }),
		replaceInWorkingTool(&working),
	}

	system := revisionSystemPrompt
	if globalPrompt != "" {
		system = globalPrompt + "\n\n" + system
	}

	user := fmt.Sprintf(`%s

**User's Revision Request:**
%s

**Original Chapter Text to Revise (Chapter %d):**
---
%s
---

Now, begin your revision process.`,
		plan.FormatForPrompt(), expanded, chapter.ID, chapter.Content)

	final, err := r.gen.RunToolConversation(ctx, system, user, tools, r.maxTurns, nil)
	if err != nil {
		return "", err
	}
	if final == "" {
		// Conversation exhausted its turn budget mid-tooling; the working
		// copy already carries every successful replacement.
		r.logger.Warn("revision ended without final text, keeping working content",
			"chapter", chapter.ID)
		return working, nil
	}

	r.logger.Info("chapter revised",
		"chapter", chapter.ID,
		"content_length", len(final))
	return final, nil
}
