package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/researchagent-go/agent/session"
)

// AgentTypeResearch is the only agent type the service currently provides.
const AgentTypeResearch = "research"

// Request is one query from a caller. SessionID is optional: empty or
// unknown ids get a fresh session. Budget <= 0 selects DefaultBudget.
type Request struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	AgentType string `json:"agent_type,omitempty"`
	Budget    int    `json:"budget,omitempty"`
}

// Response is the structured result returned to the caller.
type Response struct {
	Answer     string        `json:"answer"`
	Trace      []string      `json:"trace"`
	Iterations int           `json:"iteration_count"`
	Degraded   bool          `json:"degraded"`
	SessionID  string        `json:"session_id"`
	ThreadID   string        `json:"thread_id"`
	Elapsed    time.Duration `json:"elapsed"`
}

// Service composes the workflow engine with the session store: it resolves
// or creates the session, runs the workflow under a fresh thread id, and
// folds the outcome back into the session's context and metadata.
type Service struct {
	engine   *Engine
	sessions *session.Store
	metrics  *Metrics
}

// NewService creates a Service. metrics may be nil.
func NewService(engine *Engine, sessions *session.Store, metrics *Metrics) *Service {
	return &Service{engine: engine, sessions: sessions, metrics: metrics}
}

// Sessions exposes the session store for lifecycle management by front
// ends (create/get/delete/list/stats/reap).
func (s *Service) Sessions() *session.Store {
	return s.sessions
}

// Process handles one request end to end.
//
// The run's outcome is recorded in the session either way: context gains
// the last answer or last error, metadata gains the agent type and a query
// counter. Session update failures do not fail a request whose run
// succeeded.
func (s *Service) Process(ctx context.Context, req Request) (Response, error) {
	if req.Query == "" {
		return Response{}, &EngineError{Message: "query cannot be empty", Code: "INVALID_INPUT"}
	}
	agentType := req.AgentType
	if agentType == "" {
		agentType = AgentTypeResearch
	}
	if agentType != AgentTypeResearch {
		return Response{}, fmt.Errorf("%w: %q", ErrUnknownAgentType, agentType)
	}

	sess, err := s.resolveSession(ctx, req)
	if err != nil {
		return Response{}, err
	}

	// Thread ids scope one workflow run; they are never session ids.
	threadID := uuid.NewString()
	start := time.Now()

	result, runErr := s.engine.Run(ctx, threadID, req.Query, req.Budget)
	elapsed := time.Since(start)

	if runErr != nil {
		_, _ = s.sessions.UpdateContext(ctx, sess.ID, map[string]interface{}{
			"last_error":     runErr.Error(),
			"last_thread_id": threadID,
		})
		return Response{}, fmt.Errorf("workflow run failed: %w", runErr)
	}

	_, _ = s.sessions.UpdateContext(ctx, sess.ID, map[string]interface{}{
		"last_answer":    result.Answer,
		"last_degraded":  result.Degraded,
		"last_thread_id": threadID,
	})
	_, _ = s.sessions.UpdateMetadata(ctx, sess.ID, map[string]interface{}{
		"agent_type":  agentType,
		"query_count": queryCount(sess.Metadata) + 1,
	})
	s.refreshSessionGauge(ctx)

	return Response{
		Answer:     result.Answer,
		Trace:      result.Trace,
		Iterations: result.Iterations,
		Degraded:   result.Degraded,
		SessionID:  sess.ID,
		ThreadID:   threadID,
		Elapsed:    elapsed,
	}, nil
}

// resolveSession returns the request's session, creating a fresh one when
// the id is empty, unknown, or expired.
func (s *Service) resolveSession(ctx context.Context, req Request) (session.Session, error) {
	if req.SessionID != "" {
		sess, err := s.sessions.Get(ctx, req.SessionID)
		if err == nil {
			return sess, nil
		}
		if !errors.Is(err, session.ErrNotFound) {
			return session.Session{}, fmt.Errorf("failed to resolve session: %w", err)
		}
	}

	id, err := s.sessions.Create(ctx, req.UserID, nil)
	if err != nil {
		return session.Session{}, fmt.Errorf("failed to create session: %w", err)
	}
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return session.Session{}, fmt.Errorf("failed to load new session: %w", err)
	}
	s.refreshSessionGauge(ctx)
	return sess, nil
}

func (s *Service) refreshSessionGauge(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	stats, err := s.sessions.Stats(ctx)
	if err != nil {
		return
	}
	s.metrics.SetActiveSessions(stats.ActiveCount)
}

// queryCount reads the metadata query counter, tolerating the numeric
// types a JSON round trip produces.
func queryCount(metadata map[string]interface{}) int {
	switch v := metadata["query_count"].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
