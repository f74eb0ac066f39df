package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jclarke67/voice-canvas-scribe/internal/audio"
	"github.com/jclarke67/voice-canvas-scribe/internal/metrics"
	"github.com/jclarke67/voice-canvas-scribe/internal/notes"
	"github.com/jclarke67/voice-canvas-scribe/internal/summary"
)

const (
	defaultHeartbeatInterval = 25 * time.Second
	maxImportBytes           = 64 << 20
	errorCodeInternal        = "internal_error"
	errorCodeInvalidRequest  = "invalid_request"
	errorCodeNotFound        = "not_found"
	errorCodeConflict        = "conflict"
)

var (
	errMissingRepository = errors.New("note repository dependency required")
	errMissingRealtime   = errors.New("realtime dispatcher dependency required")
)

// Dependencies wires the collaborators served by the HTTP handler. Scheduler and Metrics are
// optional; their routes are omitted when nil.
type Dependencies struct {
	Repository        *notes.Repository
	Scheduler         *summary.Scheduler
	Realtime          *RealtimeDispatcher
	Metrics           *metrics.Registry
	Logger            *zap.Logger
	AllowedOrigins    []string
	HeartbeatInterval time.Duration
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Repository == nil {
		return nil, errMissingRepository
	}
	if deps.Realtime == nil {
		return nil, errMissingRealtime
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	heartbeat := deps.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeatInterval
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(deps.AllowedOrigins))
	router.Use(deps.Metrics.Middleware())

	handler := &httpHandler{
		repository: deps.Repository,
		scheduler:  deps.Scheduler,
		realtime:   deps.Realtime,
		logger:     logger,
		heartbeat:  heartbeat,
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}
	router.GET("/events", handler.handleEventStream)

	router.GET("/notes", handler.handleListNotes)
	router.POST("/notes", handler.handleCreateNote)
	router.GET("/notes/current", handler.handleCurrentNote)
	router.PUT("/notes/current", handler.handleSetCurrentNote)
	router.GET("/notes/:id", handler.handleGetNote)
	router.PUT("/notes/:id", handler.handleUpdateNote)
	router.DELETE("/notes/:id", handler.handleDeleteNote)
	router.POST("/notes/:id/sync", handler.handleToggleSync)

	router.POST("/notes/:id/pages", handler.handleAddPage)
	router.PUT("/notes/:id/pages/current", handler.handleSetCurrentPage)
	router.POST("/notes/:id/pages/reorder", handler.handleReorderPages)
	router.DELETE("/notes/:id/pages/:index", handler.handleDeletePage)

	router.POST("/notes/:id/recordings", handler.handleSaveRecording)
	router.POST("/notes/:id/recordings/import", handler.handleImportRecording)
	router.PATCH("/notes/:id/recordings/:recordingId", handler.handleUpdateRecording)
	router.DELETE("/notes/:id/recordings/:recordingId", handler.handleDeleteRecording)
	router.GET("/notes/:id/recordings/:recordingId/audio", handler.handleRecordingAudio)
	router.POST("/audio/prune", handler.handlePruneAudio)

	router.POST("/notes/:id/tags", handler.handleAddTag)
	router.DELETE("/notes/:id/tags/:tag", handler.handleRemoveTag)
	router.GET("/tags", handler.handleListTags)

	router.GET("/folders", handler.handleListFolders)
	router.POST("/folders", handler.handleCreateFolder)
	router.PUT("/folders/:id", handler.handleUpdateFolder)
	router.DELETE("/folders/:id", handler.handleDeleteFolder)

	router.GET("/selection", handler.handleSelection)
	router.DELETE("/selection", handler.handleClearSelection)
	router.POST("/selection/toggle", handler.handleToggleSelection)
	router.POST("/selection/all", handler.handleSelectAll)
	router.POST("/selection/move", handler.handleMoveSelection)
	router.POST("/selection/delete", handler.handleDeleteSelection)
	router.POST("/selection/sync", handler.handleSyncSelection)
	router.POST("/selection/unsync", handler.handleUnsyncSelection)

	if deps.Scheduler != nil {
		router.GET("/summary/settings", handler.handleSummarySettings)
		router.PUT("/summary/settings", handler.handleUpdateSummarySettings)
		router.POST("/summary/run", handler.handleRunSummary)
	}

	return router, nil
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowHeaders:  []string{"Content-Type", "Cache-Control", "Last-Event-ID"},
		ExposeHeaders: []string{"Content-Type"},
		MaxAge:        12 * time.Hour,
	}
	if len(allowedOrigins) == 0 {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = allowedOrigins
		config.AllowCredentials = true
	}
	return cors.New(config)
}

type httpHandler struct {
	repository *notes.Repository
	scheduler  *summary.Scheduler
	realtime   *RealtimeDispatcher
	logger     *zap.Logger
	heartbeat  time.Duration
}

// respondError maps repository and media errors onto HTTP statuses. The body carries the
// repository error code when one is available.
func (h *httpHandler) respondError(c *gin.Context, err error) {
	status := statusForError(err)
	code := errorCodeInternal
	var repositoryErr *notes.RepositoryError
	switch {
	case errors.As(err, &repositoryErr):
		code = repositoryErr.Code()
	case status == http.StatusBadRequest:
		code = errorCodeInvalidRequest
	case status == http.StatusNotFound:
		code = errorCodeNotFound
	case status == http.StatusConflict:
		code = errorCodeConflict
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	c.JSON(status, gin.H{"error": code})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, notes.ErrNoteNotFound),
		errors.Is(err, notes.ErrFolderNotFound),
		errors.Is(err, notes.ErrRecordingNotFound),
		errors.Is(err, notes.ErrAudioNotFound):
		return http.StatusNotFound
	case errors.Is(err, notes.ErrOnlyPage):
		return http.StatusConflict
	case errors.Is(err, notes.ErrPageIndexOutOfRange),
		errors.Is(err, notes.ErrNoPages),
		errors.Is(err, notes.ErrInvalidFolderName),
		errors.Is(err, audio.ErrInvalidDataURI),
		errors.Is(err, audio.ErrEmptyMedia),
		errors.Is(err, audio.ErrUnsupportedMedia),
		errors.Is(err, summary.ErrInvalidWeekID):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func invalidRequest(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"error": errorCodeInvalidRequest})
}
