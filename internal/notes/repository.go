package notes

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jclarke67/voice-canvas-scribe/internal/audio"
	"github.com/jclarke67/voice-canvas-scribe/internal/metrics"
	"github.com/jclarke67/voice-canvas-scribe/internal/storage"
)

// errNoChange aborts a mutation without writing anything.
var errNoChange = errors.New("no change")

// RepositoryConfig wires the collaborators of a Repository.
type RepositoryConfig struct {
	Gateway    *storage.Gateway
	Clock      func() time.Time
	IDProvider IDProvider
	Notifier   Notifier
	Logger     *zap.Logger
	Prober     audio.Prober
	Metrics    *metrics.Registry
}

// Repository owns the notes, folders, selection and current-note state of one user.
// Every exported method is safe for concurrent use. Returned values are copies.
type Repository struct {
	mu sync.Mutex

	gateway  *storage.Gateway
	mirror   *Mirror
	clock    func() time.Time
	ids      IDProvider
	notifier Notifier
	logger   *zap.Logger
	prober   audio.Prober
	metrics  *metrics.Registry
	changes  chan struct{}

	notes         []Note
	folders       []Folder
	currentNoteID string
	selected      []string
}

// Open loads the persisted collections, upgrades legacy notes and merges the mirror.
// Undecodable collections are reported and replaced by empty ones.
func Open(ctx context.Context, cfg RepositoryConfig) (*Repository, error) {
	if cfg.Gateway == nil {
		return nil, newRepositoryError(opOpen, "missing_gateway", errMissingGateway)
	}
	if cfg.IDProvider == nil {
		return nil, newRepositoryError(opOpen, "missing_id_provider", errMissingIDProvider)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = nopNotifier{}
	}
	prober := cfg.Prober
	if prober == nil {
		prober = audio.NewDefaultProber()
	}

	r := &Repository{
		gateway:  cfg.Gateway,
		mirror:   NewMirror(cfg.Gateway),
		clock:    clock,
		ids:      cfg.IDProvider,
		notifier: notifier,
		logger:   logger,
		prober:   prober,
		metrics:  cfg.Metrics,
		changes:  make(chan struct{}, 1),
		notes:    []Note{},
		folders:  []Folder{},
	}

	var stored []Note
	loaded, err := r.loadCollection(ctx, storage.NotesKey, &stored)
	if err != nil {
		return nil, err
	}
	if loaded {
		upgraded, _, err := UpgradeLegacyNotes(stored, r.ids)
		if err != nil {
			r.logError(opOpen, "legacy_upgrade_failed", err)
			return nil, newRepositoryError(opOpen, "legacy_upgrade_failed", err)
		}
		r.notes = upgraded
	}

	var folders []Folder
	loaded, err = r.loadCollection(ctx, storage.FoldersKey, &folders)
	if err != nil {
		return nil, err
	}
	if loaded && folders != nil {
		r.folders = folders
	}

	r.mu.Lock()
	r.mergeMirrorLocked(ctx)
	if len(r.notes) > 0 {
		r.currentNoteID = r.notes[0].ID
	}
	r.mu.Unlock()

	return r, nil
}

// loadCollection reports false when nothing usable is stored under key.
func (r *Repository) loadCollection(ctx context.Context, key string, target any) (bool, error) {
	loaded, err := r.gateway.LoadJSON(ctx, key, target)
	if errors.Is(err, storage.ErrCorrupt) {
		r.logError(opOpen, "decode_failed", err, zap.String("key", key))
		r.notifier.Notify(NotificationError, "Failed to load saved data")
		return false, nil
	}
	if err != nil {
		r.logError(opOpen, "load_failed", err, zap.String("key", key))
		return false, newRepositoryError(opOpen, "load_failed", err)
	}
	return loaded, nil
}

// Changes delivers a signal after each mutation. Signals coalesce while unconsumed.
func (r *Repository) Changes() <-chan struct{} {
	return r.changes
}

// MergeMirror folds the mirror into the local notes again. Repeated merges are no-ops.
func (r *Repository) MergeMirror(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mergeMirrorLocked(ctx)
}

func (r *Repository) mergeMirrorLocked(ctx context.Context) {
	mirrored, err := r.mirror.Load(ctx)
	if err != nil {
		r.logError(opMergeMirror, "load_failed", err)
		r.notifier.Notify(NotificationError, "Failed to retrieve cloud notes")
		return
	}
	if len(mirrored) == 0 {
		return
	}
	mirrored, _, err = UpgradeLegacyNotes(mirrored, r.ids)
	if err != nil {
		r.logError(opMergeMirror, "legacy_upgrade_failed", err)
		return
	}
	merged, changed := mergeMirrored(r.notes, mirrored)
	if !changed {
		return
	}
	r.notes = merged
	r.persistNotes(ctx, opMergeMirror)
	r.signalChange()
}

// Notes returns every note in collection order.
func (r *Repository) Notes() []Note {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneNotes(r.notes)
}

// Note returns the note with id.
func (r *Repository) Note(id string) (Note, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	index := r.noteIndex(id)
	if index < 0 {
		return Note{}, false
	}
	return r.notes[index].Clone(), true
}

// NotesInFolder returns the notes filed under folderID. An empty folderID selects unfiled notes.
func (r *Repository) NotesInFolder(folderID string) []Note {
	r.mu.Lock()
	defer r.mu.Unlock()
	matches := []Note{}
	for _, note := range r.notes {
		if note.FolderID == folderID {
			matches = append(matches, note.Clone())
		}
	}
	return matches
}

// CurrentNote returns the note being edited, if any.
func (r *Repository) CurrentNote() (Note, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	index := r.noteIndex(r.currentNoteID)
	if index < 0 {
		return Note{}, false
	}
	return r.notes[index].Clone(), true
}

// SetCurrentNote marks id as the note being edited. An empty id clears the current note.
func (r *Repository) SetCurrentNote(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id != "" && r.noteIndex(id) < 0 {
		return r.fail(opSetCurrentNote, "note_not_found", ErrNoteNotFound, zap.String("note_id", id))
	}
	r.currentNoteID = id
	return nil
}

// SortByUpdated orders notes by most recent update first, keeping ties in input order.
func SortByUpdated(notes []Note) []Note {
	sorted := slices.Clone(notes)
	slices.SortStableFunc(sorted, func(a, b Note) int {
		switch {
		case a.UpdatedAtMillis > b.UpdatedAtMillis:
			return -1
		case a.UpdatedAtMillis < b.UpdatedAtMillis:
			return 1
		default:
			return 0
		}
	})
	return sorted
}

// CreateNote appends an empty single-page note and makes it current.
func (r *Repository) CreateNote(ctx context.Context, folderID string) (Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if folderID != "" && r.folderIndex(folderID) < 0 {
		return Note{}, r.fail(opCreateNote, "folder_not_found", ErrFolderNotFound, zap.String("folder_id", folderID))
	}
	noteID, err := r.ids.NewID()
	if err != nil {
		return Note{}, r.fail(opCreateNote, "id_generation_failed", err)
	}
	pageID, err := r.ids.NewID()
	if err != nil {
		return Note{}, r.fail(opCreateNote, "id_generation_failed", err)
	}

	now := r.now()
	note := Note{
		ID:               noteID,
		Title:            "",
		Pages:            []Page{{ID: pageID, Content: "", Recordings: []Recording{}}},
		CurrentPageIndex: 0,
		Recordings:       []Recording{},
		Tags:             []string{},
		FolderID:         folderID,
		CreatedAtMillis:  now,
		UpdatedAtMillis:  now,
	}

	r.notes = append(r.notes, note)
	r.currentNoteID = note.ID
	r.persistNotes(ctx, opCreateNote)
	r.succeed(opCreateNote, "Note created")
	return note.Clone(), nil
}

// UpdateNote replaces the stored note carrying the same id. Recording lists are reconciled,
// the page index is clamped and updatedAt is refreshed. A note that stops being synced is
// removed from the mirror.
func (r *Repository) UpdateNote(ctx context.Context, note Note) (Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	index := r.noteIndex(note.ID)
	if index < 0 {
		return Note{}, r.fail(opUpdateNote, "note_not_found", ErrNoteNotFound, zap.String("note_id", note.ID))
	}
	if len(note.Pages) == 0 {
		return Note{}, r.fail(opUpdateNote, "missing_pages", ErrNoPages, zap.String("note_id", note.ID))
	}

	previous := r.notes[index]
	updated := note.Clone()
	if updated.CreatedAtMillis == 0 {
		updated.CreatedAtMillis = previous.CreatedAtMillis
	}
	reconcileRecordings(&updated)
	updated.UpdatedAtMillis = r.now()

	r.notes[index] = updated
	r.persistNotes(ctx, opUpdateNote)
	switch {
	case updated.Synced:
		r.mirrorUpsert(ctx, opUpdateNote, updated)
	case previous.Synced:
		r.mirrorRemove(ctx, opUpdateNote, updated.ID)
	}
	r.succeed(opUpdateNote, "")
	return updated.Clone(), nil
}

// DeleteNote removes the note, its audio blobs and its mirror entry.
func (r *Repository) DeleteNote(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.noteIndex(id) < 0 {
		return r.fail(opDeleteNote, "note_not_found", ErrNoteNotFound, zap.String("note_id", id))
	}
	r.removeNotesLocked(ctx, opDeleteNote, []string{id})
	r.succeed(opDeleteNote, "Note deleted")
	return nil
}

// removeNotesLocked drops the notes with the given ids in one write and cleans up after them.
func (r *Repository) removeNotesLocked(ctx context.Context, operation string, ids []string) int {
	doomed := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		doomed[id] = struct{}{}
	}

	kept := make([]Note, 0, len(r.notes))
	var removed []Note
	for _, note := range r.notes {
		if _, ok := doomed[note.ID]; ok {
			removed = append(removed, note)
			continue
		}
		kept = append(kept, note)
	}
	if len(removed) == 0 {
		return 0
	}

	r.notes = kept
	r.persistNotes(ctx, operation)

	for _, note := range removed {
		r.removeAudio(ctx, operation, note.AudioRefs())
		if note.Synced {
			r.mirrorRemove(ctx, operation, note.ID)
		}
	}

	if _, ok := doomed[r.currentNoteID]; ok {
		r.currentNoteID = ""
		if len(r.notes) > 0 {
			r.currentNoteID = r.notes[0].ID
		}
	}
	r.selected = slices.DeleteFunc(r.selected, func(id string) bool {
		_, ok := doomed[id]
		return ok
	})
	return len(removed)
}

// mutateNote applies mutate to a copy of the note and commits the copy only when mutate
// succeeds. errNoChange commits nothing and is not reported as a failure. When touch is set
// the note's updatedAt is refreshed.
func (r *Repository) mutateNote(ctx context.Context, operation, noteID string, touch bool, mutate func(note *Note) error) (Note, error) {
	index := r.noteIndex(noteID)
	if index < 0 {
		return Note{}, r.fail(operation, "note_not_found", ErrNoteNotFound, zap.String("note_id", noteID))
	}

	working := r.notes[index].Clone()
	if err := mutate(&working); err != nil {
		if errors.Is(err, errNoChange) {
			return r.notes[index].Clone(), nil
		}
		return Note{}, err
	}
	if touch {
		working.UpdatedAtMillis = r.now()
	}

	r.notes[index] = working
	r.persistNotes(ctx, operation)
	if working.Synced {
		r.mirrorUpsert(ctx, operation, working)
	}
	return working.Clone(), nil
}

func (r *Repository) noteIndex(id string) int {
	if id == "" {
		return -1
	}
	for i := range r.notes {
		if r.notes[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *Repository) now() int64 {
	return r.clock().UnixMilli()
}

func (r *Repository) persistNotes(ctx context.Context, operation string) {
	if err := r.gateway.SaveJSON(ctx, storage.NotesKey, r.notes); err != nil {
		r.storageFailed(operation, storage.NotesKey, err)
	}
}

func (r *Repository) persistFolders(ctx context.Context, operation string) {
	if err := r.gateway.SaveJSON(ctx, storage.FoldersKey, r.folders); err != nil {
		r.storageFailed(operation, storage.FoldersKey, err)
	}
}

func (r *Repository) mirrorUpsert(ctx context.Context, operation string, note Note) {
	if err := r.mirror.Upsert(ctx, note); err != nil {
		r.storageFailed(operation, storage.MirrorKey, err, zap.String("note_id", note.ID))
	}
}

func (r *Repository) mirrorRemove(ctx context.Context, operation, noteID string) {
	if err := r.mirror.Remove(ctx, noteID); err != nil {
		r.storageFailed(operation, storage.MirrorKey, err, zap.String("note_id", noteID))
	}
}

func (r *Repository) removeAudio(ctx context.Context, operation string, refs []string) {
	for _, ref := range refs {
		if err := r.gateway.RemoveAudio(ctx, ref); err != nil {
			r.logError(operation, "audio_remove_failed", err, zap.String("audio_ref", ref))
		}
	}
}

// storageFailed reports a failed write. The in-memory state is kept.
func (r *Repository) storageFailed(operation, key string, err error, fields ...zap.Field) {
	r.logError(operation, "storage_write_failed", err, append(fields, zap.String("key", key))...)
	r.metrics.StorageWriteFailed(key)
	if key == storage.MirrorKey {
		r.notifier.Notify(NotificationError, "Failed to sync note to cloud")
		return
	}
	r.notifier.Notify(NotificationError, "Failed to save changes")
}

func (r *Repository) signalChange() {
	select {
	case r.changes <- struct{}{}:
	default:
	}
}

// succeed records a successful mutation. An empty message emits no notification.
func (r *Repository) succeed(operation, message string) {
	r.metrics.ObserveOperation(operation, nil)
	r.signalChange()
	if strings.TrimSpace(message) != "" {
		r.notifier.Notify(NotificationSuccess, message)
	}
}

// fail logs, counts and wraps a rejected operation.
func (r *Repository) fail(operation, reason string, cause error, fields ...zap.Field) error {
	r.logError(operation, reason, cause, fields...)
	r.metrics.ObserveOperation(operation, cause)
	return newRepositoryError(operation, reason, cause)
}

func (r *Repository) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	r.logger.Error("notes repository error", attrs...)
}
