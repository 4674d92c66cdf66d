package phase

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vampirenirmal/novelist/internal/agent"
	"github.com/vampirenirmal/novelist/internal/novel"
)

// Typed argument records for the manuscript tools. Invocations that fail to
// decode, or that carry out-of-range values, produce error-string results
// the model can react to; they never abort the conversation.

type readChapterArgs struct {
	ChapterNumber int `json:"chapterNumber" jsonschema_description:"The number of the chapter to read (e.g. 1, 2)."`
	LastWords     int `json:"lastWords,omitempty" jsonschema_description:"Optional. If provided, returns only the last N words of the chapter."`
}

type findArgs struct {
	Query         string `json:"query" jsonschema_description:"The text to search for."`
	CaseSensitive bool   `json:"caseSensitive,omitempty" jsonschema_description:"Optional. Whether the search should be case-sensitive. Defaults to false."`
}

type replaceArgs struct {
	OldText string `json:"oldText" jsonschema_description:"The exact text snippet to be replaced."`
	NewText string `json:"newText" jsonschema_description:"The new text to insert."`
}

// readChapterTool reads any chapter's full text or its trailing N words.
// The chapters slice is read-only reference context.
func readChapterTool(chapters func() []novel.Chapter) agent.Tool {
	return agent.Tool{
		Name:        "readChapterContent",
		Description: "Reads the content of a specific chapter. Can optionally read only the last N words.",
		Params:      readChapterArgs{},
		Handle: func(raw json.RawMessage) string {
			var args readChapterArgs
			if err := agent.DecodeArgs(raw, &args); err != nil {
				return fmt.Sprintf("Error: %v", err)
			}
			all := chapters()
			if args.ChapterNumber < 1 || args.ChapterNumber > len(all) {
				return fmt.Sprintf("Error: Invalid chapter number. There are only %d chapters.", len(all))
			}
			content := all[args.ChapterNumber-1].Content
			if args.LastWords > 0 {
				words := strings.Fields(content)
				if len(words) > args.LastWords {
					words = words[len(words)-args.LastWords:]
				}
				content = strings.Join(words, " ")
			}
			return content
		},
	}
}

// findTool scans every chapter for a substring match and reports, per
// matching chapter, a human-readable line. Chapter-level presence only, not
// positions.
func findTool(chapters func() []novel.Chapter) agent.Tool {
	return agent.Tool{
		Name:        "findInManuscript",
		Description: "Searches the entire manuscript for a text string (like grep). Returns the chapters that contain a match.",
		Params:      findArgs{},
		Handle: func(raw json.RawMessage) string {
			var args findArgs
			if err := agent.DecodeArgs(raw, &args); err != nil {
				return fmt.Sprintf("Error: %v", err)
			}
			if args.Query == "" {
				return "Error: invalid arguments: query is required"
			}
			var findings []string
			for i, ch := range chapters() {
				content, query := ch.Content, args.Query
				if !args.CaseSensitive {
					content = strings.ToLower(content)
					query = strings.ToLower(query)
				}
				if strings.Contains(content, query) {
					findings = append(findings, fmt.Sprintf("Found in Chapter %d.", i+1))
				}
			}
			if len(findings) == 0 {
				return fmt.Sprintf("'%s' not found in any chapter.", args.Query)
			}
			return strings.Join(findings, "\n")
		},
	}
}

// replaceInWorkingTool performs a first-occurrence substring replacement on
// the working content of the chapter under revision, never on any other
// chapter. A missing snippet is a failure string so the model can retry
// with a different one, and the working content stays untouched.
func replaceInWorkingTool(working *string) agent.Tool {
	return agent.Tool{
		Name:        "replaceInChapter",
		Description: "Replaces the first occurrence of a text string with a new one within the chapter currently being revised. THIS TOOL CAN ONLY BE USED ON THE CURRENT CHAPTER.",
		Params:      replaceArgs{},
		Handle: func(raw json.RawMessage) string {
			var args replaceArgs
			if err := agent.DecodeArgs(raw, &args); err != nil {
				return fmt.Sprintf("Error: %v", err)
			}
			if args.OldText == "" {
				return "Error: invalid arguments: oldText is required"
			}
			if !strings.Contains(*working, args.OldText) {
				return "Error: The text snippet to be replaced was not found in the current chapter."
			}
			*working = strings.Replace(*working, args.OldText, args.NewText, 1)
			return "Replacement successful. The chapter content has been updated."
		},
	}
}
