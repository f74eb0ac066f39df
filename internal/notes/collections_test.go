package notes

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDeleteFolderUnfilesNotes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	folder, err := h.repo.CreateFolder(ctx, "  Work  ")
	if err != nil {
		t.Fatalf("unexpected create folder error: %v", err)
	}
	if folder.Name != "Work" {
		t.Fatalf("expected trimmed name, got %q", folder.Name)
	}
	filed := mustCreateNote(t, h.repo, folder.ID)
	if _, err := h.repo.ToggleNoteSync(ctx, filed.ID); err != nil {
		t.Fatalf("unexpected sync error: %v", err)
	}
	h.clock.Advance(time.Minute)

	if err := h.repo.DeleteFolder(ctx, folder.ID); err != nil {
		t.Fatalf("unexpected delete folder error: %v", err)
	}
	note := mustNote(t, h.repo, filed.ID)
	if note.FolderID != "" {
		t.Fatalf("expected note to be unfiled, got %q", note.FolderID)
	}
	if note.UpdatedAtMillis != h.clock.Now().UnixMilli() {
		t.Fatalf("expected updatedAt to be refreshed")
	}
	if mirrored := h.mirrored(t); len(mirrored) != 1 || mirrored[0].FolderID != "" {
		t.Fatalf("expected mirror to reflect the unfiled note, got %+v", mirrored)
	}
	if len(h.repo.Folders()) != 0 {
		t.Fatalf("expected folder to be removed")
	}
	if err := h.repo.DeleteFolder(ctx, folder.ID); !errors.Is(err, ErrFolderNotFound) {
		t.Fatalf("expected ErrFolderNotFound, got %v", err)
	}
}

func TestFolderValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if _, err := h.repo.CreateFolder(ctx, "   "); !errors.Is(err, ErrInvalidFolderName) {
		t.Fatalf("expected ErrInvalidFolderName, got %v", err)
	}
	if _, err := h.repo.UpdateFolder(ctx, "ghost", "Name"); !errors.Is(err, ErrFolderNotFound) {
		t.Fatalf("expected ErrFolderNotFound, got %v", err)
	}
	folder, err := h.repo.CreateFolder(ctx, "Ideas")
	if err != nil {
		t.Fatalf("unexpected create folder error: %v", err)
	}
	renamed, err := h.repo.UpdateFolder(ctx, folder.ID, "Projects")
	if err != nil {
		t.Fatalf("unexpected rename error: %v", err)
	}
	if renamed.Name != "Projects" {
		t.Fatalf("expected rename, got %q", renamed.Name)
	}
	if found, ok := h.repo.FolderByName("Projects"); !ok || found.ID != folder.ID {
		t.Fatalf("expected lookup by name to find the folder")
	}
}

func TestTagsAreTrimmedAndDeduplicated(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first := mustCreateNote(t, h.repo, "")
	second := mustCreateNote(t, h.repo, "")

	for _, tag := range []string{" work ", "work", "", "urgent"} {
		if _, err := h.repo.AddTagToNote(ctx, first.ID, tag); err != nil {
			t.Fatalf("unexpected add tag error: %v", err)
		}
	}
	if _, err := h.repo.AddTagToNote(ctx, second.ID, "alpha"); err != nil {
		t.Fatalf("unexpected add tag error: %v", err)
	}

	note := mustNote(t, h.repo, first.ID)
	if strings.Join(note.Tags, ",") != "work,urgent" {
		t.Fatalf("unexpected tags %v", note.Tags)
	}
	if got := strings.Join(h.repo.AllTags(), ","); got != "alpha,urgent,work" {
		t.Fatalf("unexpected tag universe %q", got)
	}
	if matches := h.repo.NotesWithTag("work"); len(matches) != 1 || matches[0].ID != first.ID {
		t.Fatalf("expected one note tagged work, got %d", len(matches))
	}

	before := mustNote(t, h.repo, first.ID)
	h.clock.Advance(time.Minute)
	unchanged, err := h.repo.RemoveTagFromNote(ctx, first.ID, "missing")
	if err != nil {
		t.Fatalf("unexpected remove tag error: %v", err)
	}
	if unchanged.UpdatedAtMillis != before.UpdatedAtMillis {
		t.Fatalf("expected removing an absent tag to be a no-op")
	}
	updated, err := h.repo.RemoveTagFromNote(ctx, first.ID, "work")
	if err != nil {
		t.Fatalf("unexpected remove tag error: %v", err)
	}
	if strings.Join(updated.Tags, ",") != "urgent" {
		t.Fatalf("unexpected tags after removal %v", updated.Tags)
	}
	if _, err := h.repo.AddTagToNote(ctx, "ghost", "x"); !errors.Is(err, ErrNoteNotFound) {
		t.Fatalf("expected ErrNoteNotFound, got %v", err)
	}
}

func TestSelectionMoveAndDelete(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	folder, err := h.repo.CreateFolder(ctx, "Archive")
	if err != nil {
		t.Fatalf("unexpected create folder error: %v", err)
	}
	a := mustCreateNote(t, h.repo, "")
	b := mustCreateNote(t, h.repo, "")
	c := mustCreateNote(t, h.repo, "")

	if moved, err := h.repo.MoveSelectedNotesToFolder(ctx, folder.ID); err != nil || moved != 0 {
		t.Fatalf("expected empty selection to be a no-op, got %d, %v", moved, err)
	}

	for _, id := range []string{a.ID, b.ID} {
		if selected, err := h.repo.ToggleNoteSelection(id); err != nil || !selected {
			t.Fatalf("expected %s to be selected, got %v, %v", id, selected, err)
		}
	}
	moved, err := h.repo.MoveSelectedNotesToFolder(ctx, folder.ID)
	if err != nil || moved != 2 {
		t.Fatalf("expected two notes moved, got %d, %v", moved, err)
	}
	if len(h.repo.SelectedNoteIDs()) != 0 {
		t.Fatalf("expected selection to be cleared after move")
	}
	if !h.notifier.has(NotificationSuccess, "Moved 2 notes to folder") {
		t.Fatalf("expected move notification")
	}
	if inFolder := h.repo.NotesInFolder(folder.ID); len(inFolder) != 2 {
		t.Fatalf("expected two notes in folder, got %d", len(inFolder))
	}

	if selected := h.repo.SelectAllNotes(folder.ID); len(selected) != 2 {
		t.Fatalf("expected folder selection of two notes, got %v", selected)
	}
	if selected := h.repo.SelectAllNotes(""); len(selected) != 3 {
		t.Fatalf("expected selection of all notes, got %v", selected)
	}
	if selected, err := h.repo.ToggleNoteSelection(c.ID); err != nil || selected {
		t.Fatalf("expected toggle to deselect, got %v, %v", selected, err)
	}

	deleted, err := h.repo.DeleteSelectedNotes(ctx)
	if err != nil || deleted != 2 {
		t.Fatalf("expected two notes deleted, got %d, %v", deleted, err)
	}
	remaining := h.repo.Notes()
	if len(remaining) != 1 || remaining[0].ID != c.ID {
		t.Fatalf("expected only %s to remain, got %+v", c.ID, remaining)
	}
	current, ok := h.repo.CurrentNote()
	if !ok || current.ID != c.ID {
		t.Fatalf("expected current note to be %s", c.ID)
	}
	if _, err := h.repo.ToggleNoteSelection("ghost"); !errors.Is(err, ErrNoteNotFound) {
		t.Fatalf("expected ErrNoteNotFound, got %v", err)
	}
}

func TestSyncTogglesMaintainMirror(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := mustCreateNote(t, h.repo, "")
	b := mustCreateNote(t, h.repo, "")

	synced, err := h.repo.ToggleNoteSync(ctx, a.ID)
	if err != nil || !synced {
		t.Fatalf("expected note to become synced, got %v, %v", synced, err)
	}
	mirrored := h.mirrored(t)
	if len(mirrored) != 1 || mirrored[0].ID != a.ID || !mirrored[0].Synced {
		t.Fatalf("expected mirror to hold the synced note, got %+v", mirrored)
	}

	h.repo.SelectAllNotes("")
	if changed := h.repo.SyncSelectedNotes(ctx); changed != 1 {
		t.Fatalf("expected one note to change, got %d", changed)
	}
	if len(h.mirrored(t)) != 2 {
		t.Fatalf("expected both notes mirrored")
	}
	if !h.notifier.has(NotificationSuccess, "Synced 2 notes") {
		t.Fatalf("expected sync notification")
	}

	if _, err := h.repo.ToggleNoteSelection(b.ID); err != nil {
		t.Fatalf("unexpected selection error: %v", err)
	}
	if changed := h.repo.UnsyncSelectedNotes(ctx); changed != 1 {
		t.Fatalf("expected one note to change, got %d", changed)
	}
	mirrored = h.mirrored(t)
	if len(mirrored) != 1 || mirrored[0].ID != a.ID {
		t.Fatalf("expected only %s to stay mirrored, got %+v", a.ID, mirrored)
	}

	synced, err = h.repo.ToggleNoteSync(ctx, a.ID)
	if err != nil || synced {
		t.Fatalf("expected note to become unsynced, got %v, %v", synced, err)
	}
	if len(h.mirrored(t)) != 0 {
		t.Fatalf("expected mirror to be empty")
	}
}

func TestMirrorWritesFollowSyncedEdits(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	note := mustCreateNote(t, h.repo, "")
	if _, err := h.repo.ToggleNoteSync(ctx, note.ID); err != nil {
		t.Fatalf("unexpected sync error: %v", err)
	}
	if _, err := h.repo.AddTagToNote(ctx, note.ID, "mirrored"); err != nil {
		t.Fatalf("unexpected tag error: %v", err)
	}
	mirrored := h.mirrored(t)
	if len(mirrored) != 1 || !mirrored[0].HasTag("mirrored") {
		t.Fatalf("expected mirror to carry the latest edit, got %+v", mirrored)
	}

	current := mustNote(t, h.repo, note.ID)
	current.Synced = false
	if _, err := h.repo.UpdateNote(ctx, current); err != nil {
		t.Fatalf("unexpected update error: %v", err)
	}
	if len(h.mirrored(t)) != 0 {
		t.Fatalf("expected unsynced update to leave the mirror")
	}
}
