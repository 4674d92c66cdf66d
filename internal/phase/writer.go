package phase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vampirenirmal/novelist/internal/agent"
	"github.com/vampirenirmal/novelist/internal/novel"
)

// Writer produces brand-new chapters from the plan and the manuscript so
// far. It never mutates existing chapters; the result is always appended.
type Writer struct {
	gen    agent.Generator
	logger *slog.Logger
}

// WriteRequest carries everything one chapter generation needs.
type WriteRequest struct {
	Plan            *novel.Plan
	ChapterNumber   int
	PreviousSummary string
	ContinueSnippet string
	GlobalPrompt    string
	UserInstruction string
}

// NewWriter builds the chapter writer.
func NewWriter(gen agent.Generator) *Writer {
	return &Writer{
		gen:    gen,
		logger: slog.Default().With("component", "writer"),
	}
}

// Write runs a single-shot completion for the next chapter and returns its
// prose.
func (w *Writer) Write(ctx context.Context, req WriteRequest) (string, error) {
	var b strings.Builder

	fmt.Fprintf(&b, `%s

You are a professional novelist. Your task is to write the next chapter of a story. Adhere strictly to the established context. Do not introduce new characters or plot points that contradict the plan.

%s

`, req.GlobalPrompt, req.Plan.FormatForPrompt())

	if req.PreviousSummary != "" {
		fmt.Fprintf(&b, "**Previous Chapters Summary:**\n%s\n", req.PreviousSummary)
	}
	if req.ContinueSnippet != "" {
		fmt.Fprintf(&b, "**The last paragraph of the previous chapter ended like this, continue from here:**\n...\n%s\n", req.ContinueSnippet)
	}
	if req.UserInstruction != "" {
		fmt.Fprintf(&b, "**Additional instructions from the author:**\n%s\n", req.UserInstruction)
	}
	fmt.Fprintf(&b, "Now, write Chapter %d following the outline. The chapter should be engaging, match the established tone, and move the story forward.", req.ChapterNumber)

	content, err := w.gen.CompleteText(ctx, b.String())
	if err != nil {
		return "", err
	}

	w.logger.Info("chapter written",
		"chapter", req.ChapterNumber,
		"content_length", len(content))
	return content, nil
}

// SummarizePrevious builds the compact inline summary of prior chapters the
// writer prompt embeds: each chapter's content truncated to prefixChars.
func SummarizePrevious(chapters []novel.Chapter, prefixChars int) string {
	lines := make([]string, 0, len(chapters))
	for _, ch := range chapters {
		content := ch.Content
		if len(content) > prefixChars {
			content = content[:prefixChars] + "..."
		}
		lines = append(lines, fmt.Sprintf("Chapter %d: %s", ch.ID, content))
	}
	return strings.Join(lines, "\n")
}

// ContinuationSnippet returns the trailing slice of the last chapter's
// content, used when the continue-from-last-chapter setting is enabled.
func ContinuationSnippet(chapters []novel.Chapter, tailChars int) string {
	if len(chapters) == 0 {
		return ""
	}
	content := chapters[len(chapters)-1].Content
	if len(content) <= tailChars {
		return content
	}
	return content[len(content)-tailChars:]
}
