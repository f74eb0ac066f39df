package notes

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jclarke67/voice-canvas-scribe/internal/storage"
)

func TestAddPageMakesItCurrent(t *testing.T) {
	h := newHarness(t)
	note := mustCreateNote(t, h.repo, "")

	updated, err := h.repo.AddPageToNote(context.Background(), note.ID)
	if err != nil {
		t.Fatalf("unexpected add page error: %v", err)
	}
	if len(updated.Pages) != 2 || updated.CurrentPageIndex != 1 {
		t.Fatalf("expected second page to be current, got %d pages at %d", len(updated.Pages), updated.CurrentPageIndex)
	}
	if updated.Pages[1].Recordings == nil {
		t.Fatalf("expected new page to carry an empty recording list")
	}
}

func TestDeletePageGuardsAndShiftsIndex(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	note := mustCreateNote(t, h.repo, "")

	if _, err := h.repo.DeletePageFromNote(ctx, note.ID, 0); !errors.Is(err, ErrOnlyPage) {
		t.Fatalf("expected ErrOnlyPage, got %v", err)
	}
	if !h.notifier.has(NotificationError, "Cannot delete the only page") {
		t.Fatalf("expected only-page notification")
	}

	for i := 0; i < 2; i++ {
		if _, err := h.repo.AddPageToNote(ctx, note.ID); err != nil {
			t.Fatalf("unexpected add page error: %v", err)
		}
	}
	if _, err := h.repo.DeletePageFromNote(ctx, note.ID, 5); !errors.Is(err, ErrPageIndexOutOfRange) {
		t.Fatalf("expected ErrPageIndexOutOfRange, got %v", err)
	}

	updated, err := h.repo.DeletePageFromNote(ctx, note.ID, 0)
	if err != nil {
		t.Fatalf("unexpected delete page error: %v", err)
	}
	if len(updated.Pages) != 2 || updated.CurrentPageIndex != 1 {
		t.Fatalf("expected index to shift from 2 to 1, got %d pages at %d", len(updated.Pages), updated.CurrentPageIndex)
	}

	updated, err = h.repo.DeletePageFromNote(ctx, note.ID, 1)
	if err != nil {
		t.Fatalf("unexpected delete page error: %v", err)
	}
	if len(updated.Pages) != 1 || updated.CurrentPageIndex != 0 {
		t.Fatalf("expected a single page at index 0, got %d pages at %d", len(updated.Pages), updated.CurrentPageIndex)
	}
}

func TestDeletePageDropsRecordingsOnlyOnThatPage(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	note := mustCreateNote(t, h.repo, "")
	kept := mustSaveRecording(t, h.repo, note.ID, "blob-kept")
	if _, err := h.repo.AddPageToNote(ctx, note.ID); err != nil {
		t.Fatalf("unexpected add page error: %v", err)
	}
	dropped := mustSaveRecording(t, h.repo, note.ID, "blob-dropped")
	for _, ref := range []string{"blob-kept", "blob-dropped"} {
		if err := h.gateway.SaveAudio(ctx, ref, "data:audio/webm;base64,AAAA"); err != nil {
			t.Fatalf("failed to seed audio: %v", err)
		}
	}

	updated, err := h.repo.DeletePageFromNote(ctx, note.ID, 1)
	if err != nil {
		t.Fatalf("unexpected delete page error: %v", err)
	}
	if len(updated.Recordings) != 1 || updated.Recordings[0].ID != kept.ID {
		t.Fatalf("expected only %s to remain, got %+v", kept.ID, updated.Recordings)
	}
	assertRecordingsConsistent(t, updated)
	if _, err := h.gateway.LoadAudio(ctx, "blob-dropped"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected blob of %s to be deleted, got %v", dropped.ID, err)
	}
	if _, err := h.gateway.LoadAudio(ctx, "blob-kept"); err != nil {
		t.Fatalf("expected surviving blob to stay, got %v", err)
	}
}

func TestSetCurrentPageIndexClampsWithoutTouching(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	note := mustCreateNote(t, h.repo, "")
	added, err := h.repo.AddPageToNote(ctx, note.ID)
	if err != nil {
		t.Fatalf("unexpected add page error: %v", err)
	}
	h.clock.Advance(time.Hour)

	updated, err := h.repo.SetCurrentPageIndex(ctx, note.ID, -3)
	if err != nil {
		t.Fatalf("unexpected navigation error: %v", err)
	}
	if updated.CurrentPageIndex != 0 {
		t.Fatalf("expected clamp to 0, got %d", updated.CurrentPageIndex)
	}
	if updated.UpdatedAtMillis != added.UpdatedAtMillis {
		t.Fatalf("expected navigation to keep updatedAt")
	}

	updated, err = h.repo.SetCurrentPageIndex(ctx, note.ID, 99)
	if err != nil {
		t.Fatalf("unexpected navigation error: %v", err)
	}
	if updated.CurrentPageIndex != 1 {
		t.Fatalf("expected clamp to last page, got %d", updated.CurrentPageIndex)
	}
}

func TestReorderPagesFollowsCurrentPage(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	note := mustCreateNote(t, h.repo, "")
	for i := 0; i < 2; i++ {
		if _, err := h.repo.AddPageToNote(ctx, note.ID); err != nil {
			t.Fatalf("unexpected add page error: %v", err)
		}
	}
	before := mustNote(t, h.repo, note.ID)
	if _, err := h.repo.SetCurrentPageIndex(ctx, note.ID, 0); err != nil {
		t.Fatalf("unexpected navigation error: %v", err)
	}

	updated, err := h.repo.ReorderNotePages(ctx, note.ID, 0, 2)
	if err != nil {
		t.Fatalf("unexpected reorder error: %v", err)
	}
	want := []string{before.Pages[1].ID, before.Pages[2].ID, before.Pages[0].ID}
	for i, page := range updated.Pages {
		if page.ID != want[i] {
			t.Fatalf("unexpected page order at %d: got %s want %s", i, page.ID, want[i])
		}
	}
	if updated.CurrentPageIndex != 2 {
		t.Fatalf("expected current page to follow the move, got %d", updated.CurrentPageIndex)
	}

	updated, err = h.repo.ReorderNotePages(ctx, note.ID, 0, 1)
	if err != nil {
		t.Fatalf("unexpected reorder error: %v", err)
	}
	if updated.CurrentPageIndex != 2 {
		t.Fatalf("expected current index to stay when another page moves, got %d", updated.CurrentPageIndex)
	}

	if _, err := h.repo.ReorderNotePages(ctx, note.ID, 0, 3); !errors.Is(err, ErrPageIndexOutOfRange) {
		t.Fatalf("expected ErrPageIndexOutOfRange, got %v", err)
	}
}
