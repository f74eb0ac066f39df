package notes

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var (
	errMissingGateway    = errors.New("storage gateway is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
)

// RepositoryError carries an operation.reason code alongside the underlying cause.
type RepositoryError struct {
	code string
	err  error
}

func (e *RepositoryError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *RepositoryError) Unwrap() error {
	return e.err
}

func (e *RepositoryError) Code() string {
	return e.code
}

func newRepositoryError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &RepositoryError{code: code, err: cause}
}

const (
	opOpen             = "notes.open"
	opMergeMirror      = "notes.merge_mirror"
	opCreateNote       = "notes.create_note"
	opUpdateNote       = "notes.update_note"
	opDeleteNote       = "notes.delete_note"
	opSetCurrentNote   = "notes.set_current_note"
	opSaveRecording    = "notes.save_recording"
	opUpdateRecording  = "notes.update_recording"
	opDeleteRecording  = "notes.delete_recording"
	opImportRecording  = "notes.import_recording"
	opCaptureRecording = "notes.capture_recording"
	opRecordingAudio   = "notes.recording_audio"
	opPruneAudio       = "notes.prune_audio"
	opAddPage          = "notes.add_page"
	opDeletePage       = "notes.delete_page"
	opSetCurrentPage   = "notes.set_current_page"
	opReorderPages     = "notes.reorder_pages"
	opCreateFolder     = "notes.create_folder"
	opUpdateFolder     = "notes.update_folder"
	opDeleteFolder     = "notes.delete_folder"
	opAddTag           = "notes.add_tag"
	opRemoveTag        = "notes.remove_tag"
	opToggleSelection  = "notes.toggle_selection"
	opMoveSelected     = "notes.move_selected"
	opDeleteSelected   = "notes.delete_selected"
	opToggleSync       = "notes.toggle_sync"
	opSyncSelected     = "notes.sync_selected"
	opUnsyncSelected   = "notes.unsync_selected"
)
