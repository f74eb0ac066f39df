package notes

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"
)

// SelectedNoteIDs returns the selection in the order notes were selected.
func (r *Repository) SelectedNoteIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append(make([]string, 0, len(r.selected)), r.selected...)
}

// ToggleNoteSelection adds id to the selection or removes it when already selected.
// It reports whether the note is selected afterwards.
func (r *Repository) ToggleNoteSelection(id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if position := slices.Index(r.selected, id); position >= 0 {
		r.selected = slices.Delete(slices.Clone(r.selected), position, position+1)
		return false, nil
	}
	if r.noteIndex(id) < 0 {
		return false, r.fail(opToggleSelection, "note_not_found", ErrNoteNotFound, zap.String("note_id", id))
	}
	r.selected = append(slices.Clone(r.selected), id)
	return true, nil
}

// ClearNoteSelection empties the selection.
func (r *Repository) ClearNoteSelection() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selected = nil
}

// SelectAllNotes replaces the selection with every note, or with the notes of folderID
// when it is not empty.
func (r *Repository) SelectAllNotes(folderID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	selected := make([]string, 0, len(r.notes))
	for _, note := range r.notes {
		if folderID == "" || note.FolderID == folderID {
			selected = append(selected, note.ID)
		}
	}
	r.selected = selected
	return append(make([]string, 0, len(selected)), selected...)
}

// MoveSelectedNotesToFolder files every selected note under folderID, or unfiles them when
// folderID is empty, then clears the selection. It returns the number of notes moved.
func (r *Repository) MoveSelectedNotesToFolder(ctx context.Context, folderID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.selected) == 0 {
		return 0, nil
	}
	if folderID != "" && r.folderIndex(folderID) < 0 {
		return 0, r.fail(opMoveSelected, "folder_not_found", ErrFolderNotFound, zap.String("folder_id", folderID))
	}

	now := r.now()
	notes := cloneNotes(r.notes)
	var moved []Note
	for i := range notes {
		if !slices.Contains(r.selected, notes[i].ID) {
			continue
		}
		notes[i].FolderID = folderID
		notes[i].UpdatedAtMillis = now
		moved = append(moved, notes[i])
	}
	r.notes = notes
	r.persistNotes(ctx, opMoveSelected)
	for _, note := range moved {
		if note.Synced {
			r.mirrorUpsert(ctx, opMoveSelected, note)
		}
	}
	r.selected = nil

	destination := "to Unfiled"
	if folderID != "" {
		destination = "to folder"
	}
	r.succeed(opMoveSelected, fmt.Sprintf("Moved %s %s", countNotes(len(moved)), destination))
	return len(moved), nil
}

// DeleteSelectedNotes deletes every selected note and clears the selection.
// It returns the number of notes deleted.
func (r *Repository) DeleteSelectedNotes(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.selected) == 0 {
		return 0, nil
	}
	deleted := r.removeNotesLocked(ctx, opDeleteSelected, slices.Clone(r.selected))
	r.selected = nil
	r.succeed(opDeleteSelected, "Deleted "+countNotes(deleted))
	return deleted, nil
}

// ToggleNoteSync flips the synced flag of the note and mirrors or unmirrors it accordingly.
// It reports the new flag.
func (r *Repository) ToggleNoteSync(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	updated, err := r.mutateNote(ctx, opToggleSync, id, false, func(note *Note) error {
		note.Synced = !note.Synced
		return nil
	})
	if err != nil {
		return false, err
	}
	if !updated.Synced {
		r.mirrorRemove(ctx, opToggleSync, updated.ID)
	}
	r.succeed(opToggleSync, "")
	return updated.Synced, nil
}

// SyncSelectedNotes mirrors every selected note and clears the selection.
// It returns the number of notes whose flag changed.
func (r *Repository) SyncSelectedNotes(ctx context.Context) int {
	return r.setSelectedSync(ctx, opSyncSelected, true)
}

// UnsyncSelectedNotes unmirrors every selected note and clears the selection.
// It returns the number of notes whose flag changed.
func (r *Repository) UnsyncSelectedNotes(ctx context.Context) int {
	return r.setSelectedSync(ctx, opUnsyncSelected, false)
}

func (r *Repository) setSelectedSync(ctx context.Context, operation string, synced bool) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.selected) == 0 {
		return 0
	}
	selectedCount := len(r.selected)

	notes := cloneNotes(r.notes)
	var flipped []Note
	for i := range notes {
		if notes[i].Synced == synced || !slices.Contains(r.selected, notes[i].ID) {
			continue
		}
		notes[i].Synced = synced
		flipped = append(flipped, notes[i])
	}
	r.selected = nil
	if len(flipped) > 0 {
		r.notes = notes
		r.persistNotes(ctx, operation)
		for _, note := range flipped {
			if synced {
				r.mirrorUpsert(ctx, operation, note)
			} else {
				r.mirrorRemove(ctx, operation, note.ID)
			}
		}
	}

	verb := "Unsynced"
	if synced {
		verb = "Synced"
	}
	r.succeed(operation, fmt.Sprintf("%s %s", verb, countNotes(selectedCount)))
	return len(flipped)
}

func countNotes(count int) string {
	if count == 1 {
		return "1 note"
	}
	return fmt.Sprintf("%d notes", count)
}
