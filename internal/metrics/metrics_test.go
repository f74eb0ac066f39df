package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveOperationCountsOutcomes(t *testing.T) {
	registry := NewRegistry()
	registry.ObserveOperation("notes.create_note", nil)
	registry.ObserveOperation("notes.create_note", nil)
	registry.ObserveOperation("notes.update_note", errors.New("boom"))

	if got := testutil.ToFloat64(registry.operations.WithLabelValues("notes.create_note", OutcomeSuccess)); got != 2 {
		t.Fatalf("expected 2 successful creates, got %v", got)
	}
	if got := testutil.ToFloat64(registry.operations.WithLabelValues("notes.update_note", OutcomeError)); got != 1 {
		t.Fatalf("expected 1 failed update, got %v", got)
	}
}

func TestNilRegistryIsSafe(t *testing.T) {
	var registry *Registry
	registry.ObserveOperation("notes.create_note", nil)
	registry.StorageWriteFailed("voice-canvas-notes")
	registry.SummaryCreated()

	recorder := httptest.NewRecorder()
	registry.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200 from nil registry handler, got %d", recorder.Code)
	}
}

func TestMiddlewareRecordsMatchedRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	registry := NewRegistry()
	router := gin.New()
	router.Use(registry.Middleware())
	router.GET("/notes/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	router.GET("/metrics", gin.WrapH(registry.Handler()))

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/notes/abc", nil))

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := recorder.Body.String()
	if !strings.Contains(body, `voice_canvas_http_requests_total{method="GET",path="/notes/:id",status="204"} 1`) {
		t.Fatalf("expected request counter for matched route, body:\n%s", body)
	}
}
