package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/vampirenirmal/novelist/internal/novel"
)

// ExportChapter writes one chapter's prose as a plain-text file under
// exports/ and returns the relative path.
func ExportChapter(ctx context.Context, storage Storage, chapter novel.Chapter) (string, error) {
	name := sanitizeForFilename(chapter.Title)
	if name == "" {
		name = "chapter"
	}
	out := path.Join("exports", name+".txt")

	if err := storage.Save(ctx, out, []byte(chapter.Content)); err != nil {
		return "", fmt.Errorf("exporting chapter %d: %w", chapter.ID, err)
	}
	return out, nil
}

// sanitizeForFilename converts a title to a safe filename component:
// lowercased, non-alphanumeric runs collapsed to single hyphens.
func sanitizeForFilename(s string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		case !lastHyphen:
			b.WriteByte('-')
			lastHyphen = true
		}
	}

	return strings.Trim(b.String(), "-")
}
