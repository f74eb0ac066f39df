package server

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
)

type notificationPayload struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

type notesChangedPayload struct {
	NoteIDs   []string `json:"noteIds"`
	Timestamp int64    `json:"timestamp"`
}

type heartbeatPayload struct {
	Timestamp int64  `json:"timestamp"`
	Source    string `json:"source"`
}

// handleEventStream relays dispatcher messages as server-sent events until the client leaves.
func (h *httpHandler) handleEventStream(c *gin.Context) {
	ctx := c.Request.Context()
	stream, cleanup := h.realtime.Subscribe(ctx)
	defer cleanup()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	c.SSEvent(realtimeEventHeartbeat, heartbeatPayload{Timestamp: time.Now().UnixMilli(), Source: realtimeSourceBackend})
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case message, ok := <-stream:
			if !ok {
				return false
			}
			c.SSEvent(message.EventType, eventPayload(message))
			return true
		case at := <-ticker.C:
			c.SSEvent(realtimeEventHeartbeat, heartbeatPayload{Timestamp: at.UnixMilli(), Source: realtimeSourceBackend})
			return true
		}
	})
}

func eventPayload(message RealtimeMessage) any {
	switch message.EventType {
	case RealtimeEventNotification:
		return notificationPayload{
			Kind:      message.Kind,
			Message:   message.Message,
			Timestamp: message.Timestamp.UnixMilli(),
		}
	default:
		return notesChangedPayload{
			NoteIDs:   message.NoteIDs,
			Timestamp: message.Timestamp.UnixMilli(),
		}
	}
}
