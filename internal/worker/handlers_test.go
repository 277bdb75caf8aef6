// Package worker provides the dashboard worker service for periscope.
package worker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/thebtf/periscope/internal/config"
	db "github.com/thebtf/periscope/internal/db/gorm"
	"github.com/thebtf/periscope/internal/worker/sse"
	"github.com/thebtf/periscope/pkg/models"
)

// testService creates a Service backed by a temp SQLite database, without
// the listener or the file watcher.
func testService(t *testing.T) (*Service, func()) {
	t.Helper()

	cfg := config.Default()
	cfg.DBPath = filepath.Join(t.TempDir(), "worker-test.db")

	store, err := db.NewStore(db.Config{
		Path:     cfg.DBPath,
		LogLevel: logger.Silent,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	svc := &Service{
		version:        "test-version",
		config:         cfg,
		store:          store,
		sessions:       db.NewSessionStore(store),
		conversations:  db.NewConversationStore(store),
		metrics:        db.NewMetricsStore(store),
		events:         db.NewEventStore(store),
		configs:        db.NewConfigStore(store),
		sseBroadcaster: sse.NewBroadcaster(),
		router:         chi.NewRouter(),
		ctx:            ctx,
		cancel:         cancel,
		startTime:      time.Now(),
	}

	svc.setupRoutes()
	svc.ready.Store(true)

	cleanup := func() {
		cancel()
		store.Close()
	}
	return svc, cleanup
}

// seedSession persists a session and returns its id.
func seedSession(t *testing.T, svc *Service, agentName string) string {
	t.Helper()
	session := models.NewAgentSession(agentName)
	id, err := svc.sessions.CreateSession(context.Background(), session)
	require.NoError(t, err)
	return id
}

func doRequest(svc *Service, method, target string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	svc.router.ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth_ReturnsVersion(t *testing.T) {
	svc, cleanup := testService(t)
	defer cleanup()

	svc.version = "test-version-1.2.3"

	rec := doRequest(svc, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var response map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "ready", response["status"])
	assert.Equal(t, "test-version-1.2.3", response["version"])
}

func TestHandleVersion(t *testing.T) {
	svc, cleanup := testService(t)
	defer cleanup()

	svc.version = "v2.0.0-beta"

	rec := doRequest(svc, http.MethodGet, "/api/version", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var response map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "v2.0.0-beta", response["version"])
}

func TestHandleReady_ServiceNotReady(t *testing.T) {
	svc, cleanup := testService(t)
	defer cleanup()

	svc.ready.Store(false)

	rec := doRequest(svc, http.MethodGet, "/api/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequireReadyMiddleware_Blocks(t *testing.T) {
	svc, cleanup := testService(t)
	defer cleanup()

	svc.ready.Store(false)

	rec := doRequest(svc, http.MethodGet, "/api/sessions/active", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleActiveSessions_Empty(t *testing.T) {
	svc, cleanup := testService(t)
	defer cleanup()

	rec := doRequest(svc, http.MethodGet, "/api/sessions/active", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestHandleActiveSessions_ReturnsSessions(t *testing.T) {
	svc, cleanup := testService(t)
	defer cleanup()

	seedSession(t, svc, "CrewAI: alpha")
	seedSession(t, svc, "CrewAI: beta")

	rec := doRequest(svc, http.MethodGet, "/api/sessions/active", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var sessions []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sessions))
	assert.Len(t, sessions, 2)
	assert.Equal(t, "active", sessions[0]["status"])
}

func TestHandleStatusCounts(t *testing.T) {
	svc, cleanup := testService(t)
	defer cleanup()

	id := seedSession(t, svc, "CrewAI: alpha")
	seedSession(t, svc, "CrewAI: beta")
	require.NoError(t, svc.sessions.CompleteSession(context.Background(), id,
		models.SessionStatusIdle, time.Now()))

	rec := doRequest(svc, http.MethodGet, "/api/sessions/status-counts", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var counts map[string]int64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &counts))
	assert.Equal(t, int64(1), counts["active"])
	assert.Equal(t, int64(1), counts["idle"])
}

func TestHandleGetSession_NotFound(t *testing.T) {
	svc, cleanup := testService(t)
	defer cleanup()

	rec := doRequest(svc, http.MethodGet, "/api/sessions/no-such-id", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "session not found")
}

func TestHandleGetSession_Found(t *testing.T) {
	svc, cleanup := testService(t)
	defer cleanup()

	id := seedSession(t, svc, "CrewAI: alpha")

	rec := doRequest(svc, http.MethodGet, "/api/sessions/"+id, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var session map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	assert.Equal(t, id, session["id"])
	assert.Equal(t, "CrewAI: alpha", session["agent_name"])
	// Unset end time must not appear in the payload.
	assert.NotContains(t, session, "ended_at")
}

func TestHandleSessionConversations(t *testing.T) {
	svc, cleanup := testService(t)
	defer cleanup()

	id := seedSession(t, svc, "CrewAI: alpha")

	rec := doRequest(svc, http.MethodGet, "/api/sessions/"+id+"/conversations", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())

	conv := models.NewConversation(id)
	convID, err := svc.conversations.CreateConversation(context.Background(), conv)
	require.NoError(t, err)

	rec = doRequest(svc, http.MethodGet, "/api/sessions/"+id+"/conversations", "")
	var conversations []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conversations))
	require.Len(t, conversations, 1)
	assert.Equal(t, convID, conversations[0]["id"])
}

func TestHandleConversationMessages(t *testing.T) {
	svc, cleanup := testService(t)
	defer cleanup()

	sessionID := seedSession(t, svc, "CrewAI: alpha")
	conv := models.NewConversation(sessionID)
	convID, err := svc.conversations.CreateConversation(context.Background(), conv)
	require.NoError(t, err)

	msg := models.NewMessage(convID, models.RoleUser, "Task: analyze")
	_, err = svc.conversations.AddMessage(context.Background(), msg)
	require.NoError(t, err)

	rec := doRequest(svc, http.MethodGet, "/api/conversations/"+convID+"/messages", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var messages []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &messages))
	require.Len(t, messages, 1)
	assert.Equal(t, "user", messages[0]["role"])
	assert.Equal(t, "Task: analyze", messages[0]["content"])
}

func TestHandleMetricsSummary(t *testing.T) {
	svc, cleanup := testService(t)
	defer cleanup()

	// Empty store yields a zero summary, not an error.
	rec := doRequest(svc, http.MethodGet, "/api/metrics/summary", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var summary models.MetricsSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Zero(t, summary.TotalRequests)

	sessionID := seedSession(t, svc, "CrewAI: alpha")
	otherID := seedSession(t, svc, "CrewAI: beta")

	m := models.NewPerformanceMetrics(sessionID, 100)
	m.TokenCountInput = 10
	_, err := svc.metrics.AddMetrics(context.Background(), m)
	require.NoError(t, err)

	m = models.NewPerformanceMetrics(otherID, 300)
	_, err = svc.metrics.AddMetrics(context.Background(), m)
	require.NoError(t, err)

	// Filtered by session.
	rec = doRequest(svc, http.MethodGet, "/api/metrics/summary?session_id="+sessionID, "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, int64(1), summary.TotalRequests)
	assert.InDelta(t, 100, summary.AvgResponseTimeMs, 0.001)
	assert.Equal(t, int64(10), summary.TotalInputTokens)

	// Unfiltered covers everything.
	rec = doRequest(svc, http.MethodGet, "/api/metrics/summary", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, int64(2), summary.TotalRequests)
}

func TestHandleRecentEvents(t *testing.T) {
	svc, cleanup := testService(t)
	defer cleanup()

	for i := 0; i < 5; i++ {
		event := models.NewSystemEvent(models.EventInfo, "event")
		event.CreatedAtEpoch = int64(1000 + i)
		_, err := svc.events.AddEvent(context.Background(), event)
		require.NoError(t, err)
	}

	rec := doRequest(svc, http.MethodGet, "/api/events/recent?limit=3", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var events []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	assert.Len(t, events, 3)

	// Default limit covers all five.
	rec = doRequest(svc, http.MethodGet, "/api/events/recent", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	assert.Len(t, events, 5)
}

func TestHandleRecentEvents_BadLimit(t *testing.T) {
	svc, cleanup := testService(t)
	defer cleanup()

	for _, raw := range []string{"abc", "-1", "0"} {
		rec := doRequest(svc, http.MethodGet, "/api/events/recent?limit="+raw, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, "limit=%s", raw)
	}
}

func TestHandleSaveConfiguration(t *testing.T) {
	svc, cleanup := testService(t)
	defer cleanup()

	body := `{
		"agent_name": "Clinical Analyzer",
		"model_parameters": {"temperature": 0.2},
		"system_prompt": "You are careful.",
		"tools": ["search", "calculator"],
		"environment_variables": {"REGION": "us-east"}
	}`

	rec := doRequest(svc, http.MethodPost, "/api/configurations", body)
	assert.Equal(t, http.StatusCreated, rec.Code)

	var created map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created["id"])

	rec = doRequest(svc, http.MethodGet, "/api/configurations", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var configs []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &configs))
	require.Len(t, configs, 1)
	assert.Equal(t, "Clinical Analyzer", configs[0]["agent_name"])
	assert.Equal(t, "You are careful.", configs[0]["system_prompt"])
	assert.Equal(t, true, configs[0]["is_active"])
}

func TestHandleSaveConfiguration_InvalidBody(t *testing.T) {
	svc, cleanup := testService(t)
	defer cleanup()

	rec := doRequest(svc, http.MethodPost, "/api/configurations", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSaveConfiguration_MissingAgentName(t *testing.T) {
	svc, cleanup := testService(t)
	defer cleanup()

	rec := doRequest(svc, http.MethodPost, "/api/configurations", `{"tools": []}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetConfigurations_FilterByAgent(t *testing.T) {
	svc, cleanup := testService(t)
	defer cleanup()

	for _, name := range []string{"Extractor", "Analyzer"} {
		rec := doRequest(svc, http.MethodPost, "/api/configurations",
			`{"agent_name": "`+name+`"}`)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := doRequest(svc, http.MethodGet, "/api/configurations?agent_name=Extractor", "")
	var configs []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &configs))
	require.Len(t, configs, 1)
	assert.Equal(t, "Extractor", configs[0]["agent_name"])
}

func TestServeDashboard(t *testing.T) {
	svc, cleanup := testService(t)
	defer cleanup()

	rec := doRequest(svc, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Periscope")
}
