package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/povarna/generative-ai-agents/course-agent/internal/llm"
	"github.com/rs/zerolog"
)

// ToolRegistry is the tool set offered to the model on every query.
type ToolRegistry interface {
	ToolExecutor
	Definitions() []llm.ToolDefinition
	ResetSources()
}

type SessionStore interface {
	CreateSession() string
	History(sessionID string) string
	AddExchange(sessionID string, userMessage string, assistantMessage string)
	Exists(sessionID string) bool
	ClearSession(sessionID string)
}

type CourseCatalog interface {
	ExistingCourseTitles(ctx context.Context) []string
	CourseCount(ctx context.Context) int
}

type ServiceConfig struct {
	QueryTemplate string
	MaxRounds     int
}

type Service struct {
	generator *Generator
	registry  ToolRegistry
	sessions  SessionStore
	catalog   CourseCatalog
	cfg       ServiceConfig
	logger    *zerolog.Logger
}

func NewService(
	generator *Generator,
	registry ToolRegistry,
	sessions SessionStore,
	catalog CourseCatalog,
	cfg ServiceConfig,
	logger *zerolog.Logger) *Service {
	if cfg.QueryTemplate == "" || !strings.Contains(cfg.QueryTemplate, "%s") {
		cfg.QueryTemplate = DefaultQueryTemplate
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{
		generator: generator,
		registry:  registry,
		sessions:  sessions,
		catalog:   catalog,
		cfg:       cfg,
		logger:    logger,
	}
}

// Query answers a question within a session, creating the session when the
// request does not carry one.
func (s *Service) Query(ctx context.Context, queryRequest QueryRequest) (QueryResponse, error) {
	sessionID := queryRequest.SessionID
	if sessionID == "" {
		sessionID = s.sessions.CreateSession()
	}
	history := s.sessions.History(sessionID)

	request := GenerateRequest{
		Query:     fmt.Sprintf(s.cfg.QueryTemplate, queryRequest.Query),
		History:   history,
		MaxRounds: s.cfg.MaxRounds,
	}
	if s.registry != nil {
		request.Tools = s.registry.Definitions()
		request.Executor = s.registry
	}

	answer, err := s.generator.Generate(ctx, request)
	if s.registry != nil {
		s.registry.ResetSources()
	}
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("Failed to generate answer")
		return QueryResponse{}, err
	}

	s.sessions.AddExchange(sessionID, queryRequest.Query, answer.Text)

	s.logger.Info().
		Str("session_id", sessionID).
		Int("sources", len(answer.Sources)).
		Msg("Query answered")

	return QueryResponse{
		Answer:    answer.Text,
		Sources:   answer.Sources,
		SessionID: sessionID,
	}, nil
}

// ClearSession drops the history of a session. It reports false when the
// session is unknown.
func (s *Service) ClearSession(sessionID string) bool {
	if !s.sessions.Exists(sessionID) {
		return false
	}
	s.sessions.ClearSession(sessionID)
	s.logger.Info().Str("session_id", sessionID).Msg("Session cleared")
	return true
}

func (s *Service) CourseAnalytics(ctx context.Context) CourseStats {
	titles := s.catalog.ExistingCourseTitles(ctx)
	if titles == nil {
		titles = []string{}
	}
	return CourseStats{
		TotalCourses: s.catalog.CourseCount(ctx),
		CourseTitles: titles,
	}
}
