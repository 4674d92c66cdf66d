package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/vampirenirmal/novelist/internal/novel"
)

func TestExportChapter(t *testing.T) {
	fs, _ := newTestFS(t)
	ctx := context.Background()

	chapter := novel.Chapter{ID: 3, Title: "Chapter 3: The Long Night!", Content: "It was dark."}
	out, err := ExportChapter(ctx, fs, chapter)
	if err != nil {
		t.Fatalf("ExportChapter() error = %v", err)
	}

	// The filename is derived from the sanitized title alone.
	want := filepath.Join("exports", "chapter-3-the-long-night.txt")
	if out != want {
		t.Errorf("ExportChapter() path = %q, want %q", out, want)
	}

	data, err := fs.Load(ctx, out)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if string(data) != chapter.Content {
		t.Errorf("exported content = %q, want %q", data, chapter.Content)
	}
}

func TestExportChapterUntitledFallback(t *testing.T) {
	fs, _ := newTestFS(t)

	chapter := novel.Chapter{ID: 1, Title: "!!!", Content: "text"}
	out, err := ExportChapter(context.Background(), fs, chapter)
	if err != nil {
		t.Fatalf("ExportChapter() error = %v", err)
	}
	if want := filepath.Join("exports", "chapter.txt"); out != want {
		t.Errorf("ExportChapter() path = %q, want %q", out, want)
	}
}

func TestSanitizeForFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Chapter 1", "chapter-1"},
		{"The  Long---Night", "the-long-night"},
		{"!!!", ""},
		{"Trailing hyphen--", "trailing-hyphen"},
		{"  Leading space", "leading-space"},
	}

	for _, tt := range tests {
		if got := sanitizeForFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeForFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
