package notes

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/jclarke67/voice-canvas-scribe/internal/audio"
	"github.com/jclarke67/voice-canvas-scribe/internal/storage"
)

const recordingNameLayout = "1/2/2006, 3:04:05 PM"

// SaveRecording attaches a recording to the note's current page and to its flattened list.
// An empty name defaults to "Recording <local timestamp>".
func (r *Repository) SaveRecording(ctx context.Context, noteID string, input RecordingInput, name string) (Recording, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saveRecordingLocked(ctx, opSaveRecording, noteID, input, name)
}

func (r *Repository) saveRecordingLocked(ctx context.Context, operation, noteID string, input RecordingInput, name string) (Recording, error) {
	if r.noteIndex(noteID) < 0 {
		return Recording{}, r.fail(operation, "note_not_found", ErrNoteNotFound, zap.String("note_id", noteID))
	}
	recordingID, err := r.ids.NewID()
	if err != nil {
		return Recording{}, r.fail(operation, "id_generation_failed", err)
	}

	now := r.clock()
	if strings.TrimSpace(name) == "" {
		name = "Recording " + now.Local().Format(recordingNameLayout)
	}
	createdAt := input.CreatedAtMillis
	if createdAt == 0 {
		createdAt = now.UnixMilli()
	}
	recording := Recording{
		ID:              recordingID,
		Name:            name,
		AudioURL:        input.AudioURL,
		Duration:        input.Duration,
		Timestamp:       input.Timestamp,
		CreatedAtMillis: createdAt,
	}

	_, err = r.mutateNote(ctx, operation, noteID, true, func(note *Note) error {
		note.CurrentPageIndex = clampIndex(note.CurrentPageIndex, len(note.Pages))
		current := &note.Pages[note.CurrentPageIndex]
		current.Recordings = append(current.Recordings, recording)
		note.Recordings = append(note.Recordings, recording)
		return nil
	})
	if err != nil {
		return Recording{}, err
	}
	r.succeed(operation, "Recording saved")
	return recording, nil
}

// UpdateRecording applies update to every occurrence of the recording within the note.
func (r *Repository) UpdateRecording(ctx context.Context, noteID, recordingID string, update RecordingUpdate) (Recording, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result Recording
	_, err := r.mutateNote(ctx, opUpdateRecording, noteID, true, func(note *Note) error {
		found := false
		for i := range note.Recordings {
			if note.Recordings[i].ID == recordingID {
				note.Recordings[i] = update.apply(note.Recordings[i])
				result = note.Recordings[i]
				found = true
			}
		}
		for p := range note.Pages {
			for i := range note.Pages[p].Recordings {
				if note.Pages[p].Recordings[i].ID == recordingID {
					note.Pages[p].Recordings[i] = update.apply(note.Pages[p].Recordings[i])
					result = note.Pages[p].Recordings[i]
					found = true
				}
			}
		}
		if !found {
			return r.fail(opUpdateRecording, "recording_not_found", ErrRecordingNotFound,
				zap.String("note_id", noteID), zap.String("recording_id", recordingID))
		}
		return nil
	})
	if err != nil {
		return Recording{}, err
	}
	r.succeed(opUpdateRecording, "Recording updated")
	return result, nil
}

// DeleteRecording removes the recording from the note and its pages, then deletes its blob.
func (r *Repository) DeleteRecording(ctx context.Context, noteID, recordingID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var refs []string
	_, err := r.mutateNote(ctx, opDeleteRecording, noteID, true, func(note *Note) error {
		matches := func(recording Recording) bool {
			if recording.ID != recordingID {
				return false
			}
			refs = append(refs, recording.AudioURL)
			return true
		}
		before := recordingCount(*note)
		note.Recordings = deleteRecordings(note.Recordings, matches)
		for p := range note.Pages {
			note.Pages[p].Recordings = deleteRecordings(note.Pages[p].Recordings, matches)
		}
		if recordingCount(*note) == before {
			return r.fail(opDeleteRecording, "recording_not_found", ErrRecordingNotFound,
				zap.String("note_id", noteID), zap.String("recording_id", recordingID))
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.removeAudio(ctx, opDeleteRecording, uniqueRefs(refs))
	r.succeed(opDeleteRecording, "Recording deleted")
	return nil
}

// ImportRecording stores an uploaded audio file and attaches it to the note's current page.
// The recording is named after the file without its extension and its duration is probed
// from the audio. Audio in a container the prober cannot decode is kept with a zero
// duration. Non-audio input is rejected before anything is stored.
func (r *Repository) ImportRecording(ctx context.Context, noteID, fileName string, source io.Reader) (Recording, error) {
	data, err := io.ReadAll(source)
	if err != nil {
		return Recording{}, r.fail(opImportRecording, "read_failed", err)
	}
	if len(data) == 0 {
		return Recording{}, r.fail(opImportRecording, "empty_media", audio.ErrEmptyMedia)
	}

	blob := audio.NewBlob(data)
	duration, err := r.prober.Duration(blob)
	if err != nil {
		r.notifier.Notify(NotificationError, "Failed to load audio metadata")
		return Recording{}, r.fail(opImportRecording, "probe_failed", err, zap.String("mime_type", blob.MIMEType))
	}
	if duration == 0 {
		r.notifier.Notify(NotificationInfo, "Audio duration unavailable")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attachBlobLocked(ctx, opImportRecording, noteID, blob, RecordingInput{Duration: duration}, recordingNameFromFile(fileName))
}

// CaptureRecording stores audio captured by a client as a base64 data URI and attaches it
// to the note's current page. The duration reported by the client is kept.
func (r *Repository) CaptureRecording(ctx context.Context, noteID, dataURI string, duration, timestamp float64, name string) (Recording, error) {
	blob, err := audio.ParseDataURI(dataURI)
	if err != nil {
		return Recording{}, r.fail(opCaptureRecording, "invalid_data_uri", err)
	}
	if len(blob.Data) == 0 {
		return Recording{}, r.fail(opCaptureRecording, "empty_media", audio.ErrEmptyMedia)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attachBlobLocked(ctx, opCaptureRecording, noteID, blob, RecordingInput{Duration: duration, Timestamp: timestamp}, name)
}

func (r *Repository) attachBlobLocked(ctx context.Context, operation, noteID string, blob audio.Blob, input RecordingInput, name string) (Recording, error) {
	if r.noteIndex(noteID) < 0 {
		return Recording{}, r.fail(operation, "note_not_found", ErrNoteNotFound, zap.String("note_id", noteID))
	}
	audioRef, err := r.ids.NewID()
	if err != nil {
		return Recording{}, r.fail(operation, "id_generation_failed", err)
	}
	if err := r.gateway.SaveAudio(ctx, audioRef, blob.DataURI()); err != nil {
		r.metrics.StorageWriteFailed("audio")
		r.notifier.Notify(NotificationError, "Failed to save recording")
		return Recording{}, r.fail(operation, "audio_save_failed", err, zap.String("audio_ref", audioRef))
	}
	input.AudioURL = audioRef
	recording, err := r.saveRecordingLocked(ctx, operation, noteID, input, name)
	if err != nil {
		r.removeAudio(ctx, operation, []string{audioRef})
		return Recording{}, err
	}
	return recording, nil
}

// RecordingAudio returns the recording and the audio blob it references.
func (r *Repository) RecordingAudio(ctx context.Context, noteID, recordingID string) (Recording, audio.Blob, error) {
	r.mu.Lock()
	index := r.noteIndex(noteID)
	if index < 0 {
		r.mu.Unlock()
		return Recording{}, audio.Blob{}, r.fail(opRecordingAudio, "note_not_found", ErrNoteNotFound, zap.String("note_id", noteID))
	}
	recording, found := findRecording(r.notes[index], recordingID)
	r.mu.Unlock()
	if !found {
		return Recording{}, audio.Blob{}, r.fail(opRecordingAudio, "recording_not_found", ErrRecordingNotFound,
			zap.String("note_id", noteID), zap.String("recording_id", recordingID))
	}

	dataURI, err := r.gateway.LoadAudio(ctx, recording.AudioURL)
	if errors.Is(err, storage.ErrNotFound) {
		return Recording{}, audio.Blob{}, r.fail(opRecordingAudio, "audio_not_found", ErrAudioNotFound,
			zap.String("audio_ref", recording.AudioURL))
	}
	if err != nil {
		return Recording{}, audio.Blob{}, r.fail(opRecordingAudio, "audio_load_failed", err)
	}
	blob, err := audio.ParseDataURI(dataURI)
	if err != nil {
		return Recording{}, audio.Blob{}, r.fail(opRecordingAudio, "audio_decode_failed", err)
	}
	return recording, blob, nil
}

// PruneOrphanedAudio deletes stored blobs that no local or mirrored recording references.
func (r *Repository) PruneOrphanedAudio(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	referenced := make(map[string]struct{})
	for _, note := range r.notes {
		for _, ref := range note.AudioRefs() {
			referenced[ref] = struct{}{}
		}
	}
	mirrored, err := r.mirror.Load(ctx)
	if err != nil {
		return 0, r.fail(opPruneAudio, "mirror_load_failed", err)
	}
	for _, note := range mirrored {
		for _, ref := range note.AudioRefs() {
			referenced[ref] = struct{}{}
		}
	}

	stored, err := r.gateway.AudioRefs(ctx)
	if err != nil {
		return 0, r.fail(opPruneAudio, "list_failed", err)
	}
	pruned := 0
	for _, ref := range stored {
		if _, ok := referenced[ref]; ok {
			continue
		}
		if err := r.gateway.RemoveAudio(ctx, ref); err != nil {
			return pruned, r.fail(opPruneAudio, "remove_failed", err, zap.String("audio_ref", ref))
		}
		pruned++
	}
	r.metrics.ObserveOperation(opPruneAudio, nil)
	if pruned > 0 {
		r.logger.Info("pruned orphaned audio", zap.Int("count", pruned))
	}
	return pruned, nil
}

func findRecording(note Note, recordingID string) (Recording, bool) {
	for _, recording := range note.Recordings {
		if recording.ID == recordingID {
			return recording, true
		}
	}
	for _, page := range note.Pages {
		for _, recording := range page.Recordings {
			if recording.ID == recordingID {
				return recording, true
			}
		}
	}
	return Recording{}, false
}

func deleteRecordings(recordings []Recording, matches func(Recording) bool) []Recording {
	kept := make([]Recording, 0, len(recordings))
	for _, recording := range recordings {
		if !matches(recording) {
			kept = append(kept, recording)
		}
	}
	return kept
}

func uniqueRefs(refs []string) []string {
	seen := make(map[string]struct{}, len(refs))
	unique := make([]string, 0, len(refs))
	for _, ref := range refs {
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		unique = append(unique, ref)
	}
	return unique
}

func recordingNameFromFile(fileName string) string {
	base := filepath.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
