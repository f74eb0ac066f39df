package server

import (
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jclarke67/voice-canvas-scribe/internal/notes"
)

type createNoteRequest struct {
	FolderID string `json:"folderId"`
}

type currentNoteRequest struct {
	NoteID string `json:"noteId"`
}

type pageIndexRequest struct {
	Index *int `json:"index"`
}

type reorderPagesRequest struct {
	From *int `json:"from"`
	To   *int `json:"to"`
}

type recordingRequest struct {
	AudioURL  string  `json:"audioUrl"`
	DataURI   string  `json:"dataUri"`
	Name      string  `json:"name"`
	Duration  float64 `json:"duration"`
	Timestamp float64 `json:"timestamp"`
}

type recordingAudioResponse struct {
	Recording notes.Recording `json:"recording"`
	MIMEType  string          `json:"mimeType"`
}

func (h *httpHandler) handleListNotes(c *gin.Context) {
	var listed []notes.Note
	if folderID, filtered := c.GetQuery("folderId"); filtered {
		listed = h.repository.NotesInFolder(folderID)
	} else {
		listed = h.repository.Notes()
	}
	if tag := strings.TrimSpace(c.Query("tag")); tag != "" {
		tagged := make([]notes.Note, 0, len(listed))
		for _, note := range listed {
			if note.HasTag(tag) {
				tagged = append(tagged, note)
			}
		}
		listed = tagged
	}
	if c.Query("sort") == "updated" {
		listed = notes.SortByUpdated(listed)
	}
	c.JSON(http.StatusOK, gin.H{"notes": listed})
}

func (h *httpHandler) handleCreateNote(c *gin.Context) {
	var request createNoteRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&request); err != nil {
			invalidRequest(c)
			return
		}
	}
	note, err := h.repository.CreateNote(c.Request.Context(), request.FolderID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.realtime.NotesChanged(note.ID)
	c.JSON(http.StatusCreated, note)
}

func (h *httpHandler) handleCurrentNote(c *gin.Context) {
	note, ok := h.repository.CurrentNote()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "current_note_not_set"})
		return
	}
	c.JSON(http.StatusOK, note)
}

func (h *httpHandler) handleSetCurrentNote(c *gin.Context) {
	var request currentNoteRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		invalidRequest(c)
		return
	}
	if err := h.repository.SetCurrentNote(request.NoteID); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleGetNote(c *gin.Context) {
	note, ok := h.repository.Note(c.Param("id"))
	if !ok {
		h.respondError(c, notes.ErrNoteNotFound)
		return
	}
	c.JSON(http.StatusOK, note)
}

func (h *httpHandler) handleUpdateNote(c *gin.Context) {
	var note notes.Note
	if err := c.ShouldBindJSON(&note); err != nil {
		invalidRequest(c)
		return
	}
	note.ID = c.Param("id")
	updated, err := h.repository.UpdateNote(c.Request.Context(), note)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.realtime.NotesChanged(updated.ID)
	c.JSON(http.StatusOK, updated)
}

func (h *httpHandler) handleDeleteNote(c *gin.Context) {
	noteID := c.Param("id")
	if err := h.repository.DeleteNote(c.Request.Context(), noteID); err != nil {
		h.respondError(c, err)
		return
	}
	h.realtime.NotesChanged(noteID)
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleToggleSync(c *gin.Context) {
	noteID := c.Param("id")
	synced, err := h.repository.ToggleNoteSync(c.Request.Context(), noteID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.realtime.NotesChanged(noteID)
	c.JSON(http.StatusOK, gin.H{"synced": synced})
}

func (h *httpHandler) handleAddPage(c *gin.Context) {
	h.respondNote(c, func() (notes.Note, error) {
		return h.repository.AddPageToNote(c.Request.Context(), c.Param("id"))
	})
}

func (h *httpHandler) handleDeletePage(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		invalidRequest(c)
		return
	}
	h.respondNote(c, func() (notes.Note, error) {
		return h.repository.DeletePageFromNote(c.Request.Context(), c.Param("id"), index)
	})
}

func (h *httpHandler) handleSetCurrentPage(c *gin.Context) {
	var request pageIndexRequest
	if err := c.ShouldBindJSON(&request); err != nil || request.Index == nil {
		invalidRequest(c)
		return
	}
	h.respondNote(c, func() (notes.Note, error) {
		return h.repository.SetCurrentPageIndex(c.Request.Context(), c.Param("id"), *request.Index)
	})
}

func (h *httpHandler) handleReorderPages(c *gin.Context) {
	var request reorderPagesRequest
	if err := c.ShouldBindJSON(&request); err != nil || request.From == nil || request.To == nil {
		invalidRequest(c)
		return
	}
	h.respondNote(c, func() (notes.Note, error) {
		return h.repository.ReorderNotePages(c.Request.Context(), c.Param("id"), *request.From, *request.To)
	})
}

func (h *httpHandler) handleSaveRecording(c *gin.Context) {
	var request recordingRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		invalidRequest(c)
		return
	}
	noteID := c.Param("id")
	var (
		recording notes.Recording
		err       error
	)
	switch {
	case request.DataURI != "":
		recording, err = h.repository.CaptureRecording(c.Request.Context(), noteID,
			request.DataURI, request.Duration, request.Timestamp, request.Name)
	case request.AudioURL != "":
		recording, err = h.repository.SaveRecording(c.Request.Context(), noteID, notes.RecordingInput{
			AudioURL:  request.AudioURL,
			Duration:  request.Duration,
			Timestamp: request.Timestamp,
		}, request.Name)
	default:
		invalidRequest(c)
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.realtime.NotesChanged(noteID)
	c.JSON(http.StatusCreated, recording)
}

func (h *httpHandler) handleImportRecording(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes)
	header, err := c.FormFile("file")
	if err != nil {
		invalidRequest(c)
		return
	}
	file, err := header.Open()
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer file.Close()

	noteID := c.Param("id")
	recording, err := h.repository.ImportRecording(c.Request.Context(), noteID, header.Filename, file)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.realtime.NotesChanged(noteID)
	c.JSON(http.StatusCreated, recording)
}

func (h *httpHandler) handleUpdateRecording(c *gin.Context) {
	var update notes.RecordingUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		invalidRequest(c)
		return
	}
	noteID := c.Param("id")
	recording, err := h.repository.UpdateRecording(c.Request.Context(), noteID, c.Param("recordingId"), update)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.realtime.NotesChanged(noteID)
	c.JSON(http.StatusOK, recording)
}

func (h *httpHandler) handleDeleteRecording(c *gin.Context) {
	noteID := c.Param("id")
	if err := h.repository.DeleteRecording(c.Request.Context(), noteID, c.Param("recordingId")); err != nil {
		h.respondError(c, err)
		return
	}
	h.realtime.NotesChanged(noteID)
	c.Status(http.StatusNoContent)
}

// handleRecordingAudio streams the raw blob, or its JSON description when the client asks for
// application/json.
func (h *httpHandler) handleRecordingAudio(c *gin.Context) {
	recording, blob, err := h.repository.RecordingAudio(c.Request.Context(), c.Param("id"), c.Param("recordingId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if c.NegotiateFormat(blob.MIMEType, gin.MIMEJSON) == gin.MIMEJSON {
		c.JSON(http.StatusOK, recordingAudioResponse{Recording: recording, MIMEType: blob.MIMEType})
		return
	}
	c.Header("Content-Disposition", mime.FormatMediaType("inline", map[string]string{
		"filename": recording.Name + blob.Extension(),
	}))
	c.Data(http.StatusOK, blob.MIMEType, blob.Data)
}

func (h *httpHandler) handlePruneAudio(c *gin.Context) {
	pruned, err := h.repository.PruneOrphanedAudio(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pruned": pruned})
}

// respondNote runs a single-note mutation and publishes the change on success.
func (h *httpHandler) respondNote(c *gin.Context, mutate func() (notes.Note, error)) {
	note, err := mutate()
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.realtime.NotesChanged(note.ID)
	c.JSON(http.StatusOK, note)
}
