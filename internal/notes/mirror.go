package notes

import (
	"context"

	"github.com/jclarke67/voice-canvas-scribe/internal/storage"
)

// Mirror keeps the synced subset of notes under a separate key, standing in for a remote store.
type Mirror struct {
	gateway *storage.Gateway
}

// NewMirror constructs a Mirror persisted through gateway.
func NewMirror(gateway *storage.Gateway) *Mirror {
	return &Mirror{gateway: gateway}
}

// Load returns the mirrored notes, or none when the mirror is empty.
func (m *Mirror) Load(ctx context.Context) ([]Note, error) {
	var mirrored []Note
	if _, err := m.gateway.LoadJSON(ctx, storage.MirrorKey, &mirrored); err != nil {
		return nil, err
	}
	return mirrored, nil
}

// Upsert stores note in the mirror, replacing any entry with the same id.
func (m *Mirror) Upsert(ctx context.Context, note Note) error {
	mirrored, err := m.Load(ctx)
	if err != nil {
		return err
	}
	entry := note.Clone()
	entry.Synced = true
	replaced := false
	for i := range mirrored {
		if mirrored[i].ID == entry.ID {
			mirrored[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		mirrored = append(mirrored, entry)
	}
	return m.gateway.SaveJSON(ctx, storage.MirrorKey, mirrored)
}

// Remove deletes the mirror entry for noteID. Absent entries are ignored.
func (m *Mirror) Remove(ctx context.Context, noteID string) error {
	mirrored, err := m.Load(ctx)
	if err != nil {
		return err
	}
	kept := make([]Note, 0, len(mirrored))
	for _, entry := range mirrored {
		if entry.ID != noteID {
			kept = append(kept, entry)
		}
	}
	if len(kept) == len(mirrored) {
		return nil
	}
	return m.gateway.SaveJSON(ctx, storage.MirrorKey, kept)
}

// mergeMirrored folds mirrored notes into local using last-writer-wins on updatedAt.
// Ties favor the local copy. Every note present in the mirror ends up flagged as synced.
// Mirror-only notes are appended in mirror order.
func mergeMirrored(local, mirrored []Note) ([]Note, bool) {
	merged := cloneNotes(local)
	index := make(map[string]int, len(merged))
	for i, note := range merged {
		index[note.ID] = i
	}

	changed := false
	for _, remote := range mirrored {
		position, exists := index[remote.ID]
		if !exists {
			adopted := remote.Clone()
			adopted.Synced = true
			index[adopted.ID] = len(merged)
			merged = append(merged, adopted)
			changed = true
			continue
		}
		resolved, replaced := resolveMirrored(merged[position], remote)
		if replaced {
			merged[position] = resolved
			changed = true
		}
	}
	return merged, changed
}

func resolveMirrored(local Note, remote Note) (Note, bool) {
	if remote.UpdatedAtMillis > local.UpdatedAtMillis {
		winner := remote.Clone()
		winner.Synced = true
		return winner, true
	}
	if !local.Synced {
		local.Synced = true
		return local, true
	}
	return local, false
}
