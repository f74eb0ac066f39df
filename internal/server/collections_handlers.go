package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jclarke67/voice-canvas-scribe/internal/notes"
)

type tagRequest struct {
	Tag string `json:"tag" binding:"required"`
}

type folderRequest struct {
	Name string `json:"name"`
}

type selectionRequest struct {
	NoteID   string `json:"noteId"`
	FolderID string `json:"folderId"`
}

type summarySettingsRequest struct {
	Enabled *bool `json:"enabled"`
}

func (h *httpHandler) handleAddTag(c *gin.Context) {
	var request tagRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		invalidRequest(c)
		return
	}
	h.respondNote(c, func() (notes.Note, error) {
		return h.repository.AddTagToNote(c.Request.Context(), c.Param("id"), request.Tag)
	})
}

func (h *httpHandler) handleRemoveTag(c *gin.Context) {
	h.respondNote(c, func() (notes.Note, error) {
		return h.repository.RemoveTagFromNote(c.Request.Context(), c.Param("id"), c.Param("tag"))
	})
}

func (h *httpHandler) handleListTags(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tags": h.repository.AllTags()})
}

func (h *httpHandler) handleListFolders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"folders": h.repository.Folders()})
}

func (h *httpHandler) handleCreateFolder(c *gin.Context) {
	var request folderRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		invalidRequest(c)
		return
	}
	folder, err := h.repository.CreateFolder(c.Request.Context(), request.Name)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, folder)
}

func (h *httpHandler) handleUpdateFolder(c *gin.Context) {
	var request folderRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		invalidRequest(c)
		return
	}
	folder, err := h.repository.UpdateFolder(c.Request.Context(), c.Param("id"), request.Name)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, folder)
}

func (h *httpHandler) handleDeleteFolder(c *gin.Context) {
	folderID := c.Param("id")
	unfiled := noteIDs(h.repository.NotesInFolder(folderID))
	if err := h.repository.DeleteFolder(c.Request.Context(), folderID); err != nil {
		h.respondError(c, err)
		return
	}
	if len(unfiled) > 0 {
		h.realtime.NotesChanged(unfiled...)
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleSelection(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"noteIds": h.repository.SelectedNoteIDs()})
}

func (h *httpHandler) handleClearSelection(c *gin.Context) {
	h.repository.ClearNoteSelection()
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleToggleSelection(c *gin.Context) {
	var request selectionRequest
	if err := c.ShouldBindJSON(&request); err != nil || request.NoteID == "" {
		invalidRequest(c)
		return
	}
	selected, err := h.repository.ToggleNoteSelection(request.NoteID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"selected": selected})
}

func (h *httpHandler) handleSelectAll(c *gin.Context) {
	var request selectionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&request); err != nil {
			invalidRequest(c)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"noteIds": h.repository.SelectAllNotes(request.FolderID)})
}

func (h *httpHandler) handleMoveSelection(c *gin.Context) {
	var request selectionRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		invalidRequest(c)
		return
	}
	selected := h.repository.SelectedNoteIDs()
	moved, err := h.repository.MoveSelectedNotesToFolder(c.Request.Context(), request.FolderID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.publishSelection(selected, moved)
	c.JSON(http.StatusOK, gin.H{"count": moved})
}

func (h *httpHandler) handleDeleteSelection(c *gin.Context) {
	selected := h.repository.SelectedNoteIDs()
	deleted, err := h.repository.DeleteSelectedNotes(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.publishSelection(selected, deleted)
	c.JSON(http.StatusOK, gin.H{"count": deleted})
}

func (h *httpHandler) handleSyncSelection(c *gin.Context) {
	selected := h.repository.SelectedNoteIDs()
	count := h.repository.SyncSelectedNotes(c.Request.Context())
	h.publishSelection(selected, count)
	c.JSON(http.StatusOK, gin.H{"count": count})
}

func (h *httpHandler) handleUnsyncSelection(c *gin.Context) {
	selected := h.repository.SelectedNoteIDs()
	count := h.repository.UnsyncSelectedNotes(c.Request.Context())
	h.publishSelection(selected, count)
	c.JSON(http.StatusOK, gin.H{"count": count})
}

func (h *httpHandler) handleSummarySettings(c *gin.Context) {
	settings, err := h.scheduler.Settings(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *httpHandler) handleUpdateSummarySettings(c *gin.Context) {
	var request summarySettingsRequest
	if err := c.ShouldBindJSON(&request); err != nil || request.Enabled == nil {
		invalidRequest(c)
		return
	}
	settings, err := h.scheduler.SetEnabled(c.Request.Context(), *request.Enabled)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *httpHandler) handleRunSummary(c *gin.Context) {
	result, err := h.scheduler.RunNow(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	if result.Summary != nil {
		h.realtime.NotesChanged(result.Summary.ID)
	}
	c.JSON(http.StatusOK, result)
}

func (h *httpHandler) publishSelection(selected []string, affected int) {
	if affected > 0 && len(selected) > 0 {
		h.realtime.NotesChanged(selected...)
	}
}

func noteIDs(listed []notes.Note) []string {
	ids := make([]string, 0, len(listed))
	for _, note := range listed {
		ids = append(ids, note.ID)
	}
	return ids
}
