package worker

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	db "github.com/thebtf/periscope/internal/db/gorm"
	"github.com/thebtf/periscope/pkg/models"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Warn().Err(err).Msg("Failed to encode response")
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeStorageError maps store errors onto HTTP status codes.
func writeStorageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, db.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, db.ErrDuplicateKey):
		writeError(w, http.StatusConflict, err.Error())
	default:
		log.Error().Err(err).Msg("Storage error")
		writeError(w, http.StatusInternalServerError, "storage unavailable")
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	if !s.ready.Load() {
		status = "starting"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         status,
		"version":        s.version,
		"uptime_seconds": int64(s.Uptime().Seconds()),
	})
}

func (s *Service) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.ready.Load() {
		writeError(w, http.StatusServiceUnavailable, "service not ready")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Service) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

func (s *Service) handleActiveSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.sessions.GetActiveSessions(r.Context())
	if err != nil {
		writeStorageError(w, err)
		return
	}
	if sessions == nil {
		sessions = []*models.AgentSession{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Service) handleStatusCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := s.sessions.GetStatusCounts(r.Context())
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func (s *Service) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	session, err := s.sessions.GetSession(r.Context(), id)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	if session == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Service) handleSessionConversations(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	conversations, err := s.conversations.GetSessionConversations(r.Context(), id)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	if conversations == nil {
		conversations = []*models.Conversation{}
	}
	writeJSON(w, http.StatusOK, conversations)
}

func (s *Service) handleConversationMessages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	messages, err := s.conversations.GetMessages(r.Context(), id)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	if messages == nil {
		messages = []*models.Message{}
	}
	writeJSON(w, http.StatusOK, messages)
}

func (s *Service) handleMetricsSummary(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	summary, err := s.metrics.GetMetricsSummary(r.Context(), sessionID)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Service) handleRecentEvents(w http.ResponseWriter, r *http.Request) {
	limit := s.config.EventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	events, err := s.events.GetRecentEvents(r.Context(), limit)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	if events == nil {
		events = []*models.SystemEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Service) handleGetConfigurations(w http.ResponseWriter, r *http.Request) {
	agentName := r.URL.Query().Get("agent_name")
	configs, err := s.configs.GetActiveConfigurations(r.Context(), agentName)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	if configs == nil {
		configs = []*models.AgentConfiguration{}
	}
	writeJSON(w, http.StatusOK, configs)
}

// saveConfigurationRequest is the POST /api/configurations body.
type saveConfigurationRequest struct {
	AgentName            string            `json:"agent_name"`
	ModelParameters      map[string]any    `json:"model_parameters"`
	SystemPrompt         string            `json:"system_prompt"`
	Tools                []string          `json:"tools"`
	EnvironmentVariables map[string]string `json:"environment_variables"`
}

func (s *Service) handleSaveConfiguration(w http.ResponseWriter, r *http.Request) {
	var req saveConfigurationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cfg := models.NewAgentConfiguration(req.AgentName)
	cfg.ModelParameters = req.ModelParameters
	cfg.Tools = req.Tools
	cfg.EnvironmentVariables = req.EnvironmentVariables
	if req.SystemPrompt != "" {
		cfg.SystemPrompt = sql.NullString{String: req.SystemPrompt, Valid: true}
	}

	id, err := s.configs.SaveConfiguration(r.Context(), cfg)
	if err != nil {
		writeStorageError(w, err)
		return
	}

	s.sseBroadcaster.BroadcastRefresh()
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}
