package notes

import (
	"context"

	"go.uber.org/zap"
)

// AddPageToNote appends an empty page and makes it the current page.
func (r *Repository) AddPageToNote(ctx context.Context, noteID string) (Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pageID, err := r.ids.NewID()
	if err != nil {
		return Note{}, r.fail(opAddPage, "id_generation_failed", err)
	}
	updated, err := r.mutateNote(ctx, opAddPage, noteID, true, func(note *Note) error {
		note.Pages = append(note.Pages, Page{ID: pageID, Content: "", Recordings: []Recording{}})
		note.CurrentPageIndex = len(note.Pages) - 1
		return nil
	})
	if err != nil {
		return Note{}, err
	}
	r.succeed(opAddPage, "")
	return updated, nil
}

// DeletePageFromNote removes the page at pageIndex. Recordings that appeared only on that
// page are removed from the note and their blobs deleted. The current page index shifts
// down when the deleted page was at or before it.
func (r *Repository) DeletePageFromNote(ctx context.Context, noteID string, pageIndex int) (Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var orphaned []string
	updated, err := r.mutateNote(ctx, opDeletePage, noteID, true, func(note *Note) error {
		if len(note.Pages) <= 1 {
			r.notifier.Notify(NotificationError, "Cannot delete the only page")
			return r.fail(opDeletePage, "only_page", ErrOnlyPage, zap.String("note_id", noteID))
		}
		if pageIndex < 0 || pageIndex >= len(note.Pages) {
			return r.fail(opDeletePage, "index_out_of_range", ErrPageIndexOutOfRange,
				zap.String("note_id", noteID), zap.Int("page_index", pageIndex))
		}

		removed := note.Pages[pageIndex]
		note.Pages = append(note.Pages[:pageIndex:pageIndex], note.Pages[pageIndex+1:]...)

		surviving := make(map[string]struct{})
		for _, page := range note.Pages {
			for _, recording := range page.Recordings {
				surviving[recording.ID] = struct{}{}
			}
		}
		for _, recording := range removed.Recordings {
			note.Recordings = removeFirstRecording(note.Recordings, recording.ID)
			if _, ok := surviving[recording.ID]; !ok {
				orphaned = append(orphaned, recording.AudioURL)
			}
		}

		if pageIndex <= note.CurrentPageIndex {
			note.CurrentPageIndex--
		}
		note.CurrentPageIndex = clampIndex(note.CurrentPageIndex, len(note.Pages))
		return nil
	})
	if err != nil {
		return Note{}, err
	}
	r.removeAudio(ctx, opDeletePage, orphaned)
	r.succeed(opDeletePage, "")
	return updated, nil
}

// SetCurrentPageIndex moves the page cursor, clamping index into range. Navigation does not
// refresh updatedAt.
func (r *Repository) SetCurrentPageIndex(ctx context.Context, noteID string, index int) (Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	updated, err := r.mutateNote(ctx, opSetCurrentPage, noteID, false, func(note *Note) error {
		clamped := clampIndex(index, len(note.Pages))
		if clamped == note.CurrentPageIndex {
			return errNoChange
		}
		note.CurrentPageIndex = clamped
		return nil
	})
	if err != nil {
		return Note{}, err
	}
	r.succeed(opSetCurrentPage, "")
	return updated, nil
}

// ReorderNotePages moves the page at from to position to. The current page index follows the
// moved page only when it was the current one.
func (r *Repository) ReorderNotePages(ctx context.Context, noteID string, from, to int) (Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	updated, err := r.mutateNote(ctx, opReorderPages, noteID, true, func(note *Note) error {
		count := len(note.Pages)
		if from < 0 || from >= count || to < 0 || to >= count {
			return r.fail(opReorderPages, "index_out_of_range", ErrPageIndexOutOfRange,
				zap.String("note_id", noteID), zap.Int("from", from), zap.Int("to", to))
		}
		if from == to {
			return errNoChange
		}

		moved := note.Pages[from]
		remaining := append(note.Pages[:from:from], note.Pages[from+1:]...)
		reordered := make([]Page, 0, count)
		reordered = append(reordered, remaining[:to]...)
		reordered = append(reordered, moved)
		reordered = append(reordered, remaining[to:]...)
		note.Pages = reordered

		if note.CurrentPageIndex == from {
			note.CurrentPageIndex = to
		}
		return nil
	})
	if err != nil {
		return Note{}, err
	}
	r.succeed(opReorderPages, "")
	return updated, nil
}

func removeFirstRecording(recordings []Recording, recordingID string) []Recording {
	for i, recording := range recordings {
		if recording.ID == recordingID {
			return append(recordings[:i:i], recordings[i+1:]...)
		}
	}
	return recordings
}
