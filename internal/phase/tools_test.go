package phase

import (
	"encoding/json"
	"testing"

	"github.com/vampirenirmal/novelist/internal/novel"
)

func toolChapters() []novel.Chapter {
	return []novel.Chapter{
		{ID: 1, Title: "Chapter 1", Content: "The Captain stood at the bow. The sea was calm."},
		{ID: 2, Title: "Chapter 2", Content: "By morning the captain had gone below."},
	}
}

func TestReadChapterTool(t *testing.T) {
	chapters := toolChapters()
	tool := readChapterTool(func() []novel.Chapter { return chapters })

	tests := []struct {
		name string
		args string
		want string
	}{
		{"full chapter", `{"chapterNumber":1}`, "The Captain stood at the bow. The sea was calm."},
		{"last words", `{"chapterNumber":1,"lastWords":4}`, "The sea was calm."},
		{"last words longer than chapter", `{"chapterNumber":2,"lastWords":100}`, "By morning the captain had gone below."},
		{"chapter number too high", `{"chapterNumber":3}`, "Error: Invalid chapter number. There are only 2 chapters."},
		{"chapter number zero", `{"chapterNumber":0}`, "Error: Invalid chapter number. There are only 2 chapters."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tool.Handle(json.RawMessage(tt.args)); got != tt.want {
				t.Errorf("readChapterContent(%s) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}

func TestFindTool(t *testing.T) {
	chapters := toolChapters()
	tool := findTool(func() []novel.Chapter { return chapters })

	tests := []struct {
		name string
		args string
		want string
	}{
		{"case-insensitive by default", `{"query":"captain"}`, "Found in Chapter 1.\nFound in Chapter 2."},
		{"case-sensitive match", `{"query":"Captain","caseSensitive":true}`, "Found in Chapter 1."},
		{"case-sensitive miss", `{"query":"CAPTAIN","caseSensitive":true}`, "'CAPTAIN' not found in any chapter."},
		{"no match anywhere", `{"query":"kraken"}`, "'kraken' not found in any chapter."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tool.Handle(json.RawMessage(tt.args)); got != tt.want {
				t.Errorf("findInManuscript(%s) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}

func TestReplaceInWorkingTool(t *testing.T) {
	working := "The door was red. The red door creaked."
	tool := replaceInWorkingTool(&working)

	got := tool.Handle(json.RawMessage(`{"oldText":"red","newText":"blue"}`))
	if got != "Replacement successful. The chapter content has been updated." {
		t.Fatalf("replaceInChapter result = %q", got)
	}
	// First occurrence only.
	if working != "The door was blue. The red door creaked." {
		t.Errorf("working content = %q, want first occurrence replaced", working)
	}

	got = tool.Handle(json.RawMessage(`{"oldText":"purple","newText":"green"}`))
	if got != "Error: The text snippet to be replaced was not found in the current chapter." {
		t.Errorf("miss result = %q", got)
	}
	if working != "The door was blue. The red door creaked." {
		t.Errorf("working content changed on a failed replacement: %q", working)
	}
}
