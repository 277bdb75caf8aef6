// Package observer provides the lifecycle facade instrumented CrewAI crews
// call into. It correlates crew executions with stored sessions and makes
// sure every piece of free text passes through the sanitization engine
// before it is persisted. Observability must never crash the monitored
// workload: every operation except StartSession is best-effort and swallows
// storage failures after logging them.
package observer

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	db "github.com/thebtf/periscope/internal/db/gorm"
	"github.com/thebtf/periscope/internal/sanitize"
	"github.com/thebtf/periscope/pkg/models"
)

const (
	frameworkName = "CrewAI"

	// Provenance markers stamped on every tracked session.
	dataDomain      = "EHR"
	complianceLevel = "HIPAA_COMPLIANT"
	sanitizedLabel  = "SANITIZED_EHR"

	maxErrorMessageLen = 200
	maxSummaryLen      = 500
)

// Observer tracks active crew sessions and converts lifecycle calls into
// sanitized writes. Safe for concurrent use by multiple framework threads.
type Observer struct {
	projectName string

	sessions      *db.SessionStore
	conversations *db.ConversationStore
	metrics       *db.MetricsStore
	events        *db.EventStore

	mu sync.Mutex
	// crew name -> session id. Keyed by the caller-supplied crew name alone
	// so resolution is an exact map lookup; two crews with overlapping names
	// cannot collide.
	activeSessions map[string]string
	// session|agent|category -> conversation id
	conversationIDs map[string]string
	redactKeys      []string
}

// Option configures an Observer.
type Option func(*Observer)

// WithRedactKeys adds metadata keys to redact beyond the built-in denylist.
func WithRedactKeys(keys []string) Option {
	return func(o *Observer) {
		o.redactKeys = keys
	}
}

// New creates an Observer writing through the given stores.
func New(projectName string, store *db.Store, opts ...Option) *Observer {
	o := &Observer{
		projectName:     projectName,
		sessions:        db.NewSessionStore(store),
		conversations:   db.NewConversationStore(store),
		metrics:         db.NewMetricsStore(store),
		events:          db.NewEventStore(store),
		activeSessions:  make(map[string]string),
		conversationIDs: make(map[string]string),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// StartSession begins tracking a crew run and persists its session. The
// returned session id is the only way callers learn it. Metadata is
// sanitized; task descriptions are sanitized before entering the session
// configuration.
func (o *Observer) StartSession(ctx context.Context, crewName string, agents, tasks []string, metadata map[string]any) (string, error) {
	safeMetadata := sanitize.Metadata(metadata, o.redactKeys...)
	safeMetadata["project"] = o.projectName
	safeMetadata["agent_count"] = len(agents)
	safeMetadata["task_count"] = len(tasks)
	safeMetadata["agents"] = agents
	safeMetadata["data_type"] = dataDomain
	safeMetadata["privacy_level"] = complianceLevel

	safeTasks := make([]string, len(tasks))
	for i, task := range tasks {
		safeTasks[i] = sanitize.TaskDescription(task)
	}

	session := models.NewAgentSession(frameworkName + ": " + crewName)
	session.Configuration = models.JSONMap{
		"framework":         frameworkName,
		"agents":            agents,
		"task_descriptions": safeTasks,
	}
	session.Metadata = safeMetadata

	sessionID, err := o.sessions.CreateSession(ctx, session)
	if err != nil {
		return "", fmt.Errorf("start session for crew %q: %w", crewName, err)
	}

	o.mu.Lock()
	o.activeSessions[crewName] = sessionID
	o.mu.Unlock()

	o.logEvent(ctx, sessionID, models.EventInfo,
		fmt.Sprintf("Started %s session: %s", frameworkName, crewName),
		models.JSONMap{"agents": agents, "tasks_count": len(tasks)})

	log.Debug().Str("crew", crewName).Str("session_id", sessionID).Msg("Crew session started")
	return sessionID, nil
}

// LogInteraction records one agent interaction: a sanitized user/assistant
// message pair plus a performance-metrics record. Interactions for crews
// that were never started (or already ended) are dropped silently.
func (o *Observer) LogInteraction(ctx context.Context, crewName, agentName, task, inputData, response string, executionTimeMs float64, tokenUsage map[string]int64) {
	sessionID, ok := o.resolveSession(crewName)
	if !ok {
		log.Debug().Str("crew", crewName).Msg("Dropping interaction for untracked crew")
		return
	}

	category := sanitize.Classify(task)
	conversationID, err := o.getOrCreateConversation(ctx, sessionID, agentName, category)
	if err != nil {
		log.Warn().Err(err).Str("crew", crewName).Msg("Failed to resolve conversation")
		return
	}

	userMsg := models.NewMessage(conversationID, models.RoleUser,
		"Task: "+sanitize.TaskDescription(task)+"\nInput: "+sanitize.Content(inputData))
	userMsg.Metadata = models.JSONMap{
		"agent":               agentName,
		"task_type":           string(category),
		"data_classification": sanitizedLabel,
	}
	if _, err := o.conversations.AddMessage(ctx, userMsg); err != nil {
		log.Warn().Err(err).Str("crew", crewName).Msg("Failed to persist user message")
	}

	agentMsg := models.NewMessage(conversationID, models.RoleAssistant, sanitize.Content(response))
	agentMsg.Metadata = models.JSONMap{
		"agent":               agentName,
		"execution_time_ms":   executionTimeMs,
		"data_classification": sanitizedLabel,
	}
	if _, err := o.conversations.AddMessage(ctx, agentMsg); err != nil {
		log.Warn().Err(err).Str("crew", crewName).Msg("Failed to persist agent message")
	}

	// Metrics and messages are independent atomic writes; a crash between
	// them can leave a message pair without its metric. Accepted tradeoff.
	metrics := models.NewPerformanceMetrics(sessionID, executionTimeMs)
	metrics.ConversationID = sql.NullString{String: conversationID, Valid: true}
	metrics.TokenCountInput = tokenUsage["input"]
	metrics.TokenCountOutput = tokenUsage["output"]
	metrics.ResourceUsage = models.JSONMap{
		"agent":         agentName,
		"task_category": string(category),
	}
	if _, err := o.metrics.AddMetrics(ctx, metrics); err != nil {
		log.Warn().Err(err).Str("crew", crewName).Msg("Failed to persist interaction metrics")
	}
}

// LogError records an execution error as an ERROR system event. It never
// fails: an untracked crew is a no-op and storage failures are only logged,
// so the caller's own error handling is never interrupted.
func (o *Observer) LogError(ctx context.Context, crewName, agentName string, cause error, errCtx map[string]any) {
	sessionID, ok := o.resolveSession(crewName)
	if !ok || cause == nil {
		return
	}

	description := sanitize.Truncate(cause.Error(), maxErrorMessageLen)

	event := models.NewSystemEvent(models.EventError,
		fmt.Sprintf("Error in agent %s: %s...", agentName, description))
	event.SessionID = sql.NullString{String: sessionID, Valid: true}
	event.Details = models.JSONMap{
		"agent":      agentName,
		"error_type": fmt.Sprintf("%T", cause),
		"context":    sanitize.Metadata(errCtx, o.redactKeys...),
	}
	event.SetStackTrace(cause.Error())

	if _, err := o.events.AddEvent(ctx, event); err != nil {
		log.Warn().Err(err).Str("crew", crewName).Msg("Failed to persist error event")
	}
}

// EndSession transitions the crew's session to idle (success) or error
// (failure), stamps its end time, emits a completion event, and drops the
// crew's tracking state. Ending an untracked crew is a no-op.
func (o *Observer) EndSession(ctx context.Context, crewName string, success bool, summary string) {
	o.mu.Lock()
	sessionID, ok := o.activeSessions[crewName]
	if ok {
		delete(o.activeSessions, crewName)
		prefix := sessionID + "|"
		for key := range o.conversationIDs {
			if strings.HasPrefix(key, prefix) {
				delete(o.conversationIDs, key)
			}
		}
	}
	o.mu.Unlock()
	if !ok {
		log.Debug().Str("crew", crewName).Msg("Ignoring end for untracked crew")
		return
	}

	status := models.SessionStatusIdle
	eventType := models.EventInfo
	if !success {
		status = models.SessionStatusError
		eventType = models.EventError
	}
	if err := o.sessions.CompleteSession(ctx, sessionID, status, time.Now()); err != nil {
		log.Warn().Err(err).Str("crew", crewName).Msg("Failed to persist session completion")
	}

	safeSummary := sanitize.Truncate(sanitize.Content(summary), maxSummaryLen)
	o.logEvent(ctx, sessionID, eventType,
		fmt.Sprintf("Completed %s session: %s", frameworkName, crewName),
		models.JSONMap{"success": success, "summary": safeSummary})

	log.Debug().Str("crew", crewName).Str("session_id", sessionID).Bool("success", success).Msg("Crew session ended")
}

// ObserveTask wraps one unit of agent work. On failure the error is logged
// with the elapsed time as context and returned unchanged, so callers see
// it exactly once. Success-path logging stays the caller's responsibility.
func (o *Observer) ObserveTask(ctx context.Context, crewName, agentName, task string, fn func() error) error {
	start := time.Now()
	err := fn()
	if err != nil {
		elapsed := float64(time.Since(start)) / float64(time.Millisecond)
		o.LogError(ctx, crewName, agentName, err, map[string]any{
			"task":              sanitize.TaskDescription(task),
			"execution_time_ms": elapsed,
		})
	}
	return err
}

// resolveSession looks up the tracked session for a crew name.
func (o *Observer) resolveSession(crewName string) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	sessionID, ok := o.activeSessions[crewName]
	return sessionID, ok
}

// getOrCreateConversation returns the conversation for a (session, agent,
// category) triple, creating it on first sight. The triple is this system's
// only conversation-boundary heuristic.
func (o *Observer) getOrCreateConversation(ctx context.Context, sessionID, agentName string, category sanitize.TaskCategory) (string, error) {
	key := sessionID + "|" + agentName + "|" + string(category)

	// The lock spans the create so two threads observing the same triple
	// cannot both insert a conversation for it.
	o.mu.Lock()
	defer o.mu.Unlock()

	if conversationID, ok := o.conversationIDs[key]; ok {
		return conversationID, nil
	}

	conv := models.NewConversation(sessionID)
	conv.Context = models.JSONMap{
		"agent":         agentName,
		"task_category": string(category),
		"data_type":     dataDomain + "_SANITIZED",
	}
	conversationID, err := o.conversations.CreateConversation(ctx, conv)
	if err != nil {
		return "", err
	}

	o.conversationIDs[key] = conversationID
	return conversationID, nil
}

// logEvent persists a system event best-effort.
func (o *Observer) logEvent(ctx context.Context, sessionID string, eventType models.EventType, message string, details models.JSONMap) {
	event := models.NewSystemEvent(eventType, message)
	event.SessionID = sql.NullString{String: sessionID, Valid: true}
	event.Details = details
	if _, err := o.events.AddEvent(ctx, event); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("Failed to persist system event")
	}
}
