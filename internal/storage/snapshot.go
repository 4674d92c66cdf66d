package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/vampirenirmal/novelist/internal/novel"
)

// SnapshotStore persists session snapshots as pretty-printed JSON under
// sessions/ in the data directory.
type SnapshotStore struct {
	storage Storage
}

// NewSnapshotStore wraps a Storage backend.
func NewSnapshotStore(storage Storage) *SnapshotStore {
	return &SnapshotStore{storage: storage}
}

func sessionPath(name string) string {
	return path.Join("sessions", name+".json")
}

// Save writes the snapshot under the given session name.
func (ss *SnapshotStore) Save(ctx context.Context, name string, snap novel.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}
	if err := ss.storage.Save(ctx, sessionPath(name), data); err != nil {
		return fmt.Errorf("saving session %q: %w", name, err)
	}
	return nil
}

// Load reads a snapshot and backfills fields that older session files may
// lack: character and plot-point ids, and the display settings defaults.
func (ss *SnapshotStore) Load(ctx context.Context, name string) (novel.Snapshot, error) {
	var snap novel.Snapshot

	data, err := ss.storage.Load(ctx, sessionPath(name))
	if err != nil {
		return snap, fmt.Errorf("loading session %q: %w", name, err)
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("parsing session %q: %w", name, err)
	}

	if snap.Plan != nil {
		snap.Plan.EnsureIDs()
	}
	if snap.Settings.FontSize == 0 {
		snap.Settings.FontSize = novel.DefaultFontSize
	}
	if snap.Settings.ParagraphSpacing == 0 {
		snap.Settings.ParagraphSpacing = novel.DefaultParagraphSpacing
	}
	if snap.AppState == "" {
		snap.AppState = novel.StateInitial
	}
	return snap, nil
}

// ListSessions returns the saved session names.
func (ss *SnapshotStore) ListSessions(ctx context.Context) ([]string, error) {
	matches, err := ss.storage.List(ctx, "sessions/*.json")
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		base := path.Base(m)
		names = append(names, base[:len(base)-len(".json")])
	}
	return names, nil
}
