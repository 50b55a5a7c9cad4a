package api

import (
	"strings"

	"github.com/povarna/generative-ai-agents/course-agent/internal/agent"
	"github.com/povarna/generative-ai-agents/course-agent/internal/api/middleware"
)

const (
	maxQueryLength = 2000
	maxSearchLimit = 50
)

type HealthResponse struct {
	Status  string `json:"status" description:"Service status"`
	Version string `json:"version" description:"API version"`
}

type SearchRequest struct {
	Query        string `json:"query" description:"Text to search for"`
	CourseName   string `json:"course_name,omitempty" description:"Course title or part of it"`
	LessonNumber *int   `json:"lesson_number,omitempty" description:"Lesson to restrict the search to"`
	Limit        int    `json:"limit,omitempty" description:"Maximum results (default: configured max results)"`
}

type SearchHit struct {
	Content      string  `json:"content" description:"Chunk text"`
	CourseTitle  string  `json:"course_title" description:"Course the chunk belongs to"`
	LessonNumber *int    `json:"lesson_number,omitempty" description:"Lesson the chunk belongs to"`
	Score        float64 `json:"score" description:"Similarity score (higher is closer)"`
}

type SearchResponse struct {
	Results []SearchHit `json:"results" description:"Matches, best first"`
	Error   string      `json:"error,omitempty" description:"Retrieval error, if any"`
}

type SessionClearResponse struct {
	SessionID string `json:"session_id" description:"Session identifier"`
	Cleared   bool   `json:"cleared" description:"Whether the session history was removed"`
}

type CacheClearResponse struct {
	Enabled bool `json:"enabled" description:"Whether the search cache is configured"`
	Cleared int  `json:"cleared" description:"Number of cached entries removed"`
}

func validateQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return middleware.ErrEmptyQuery
	}
	if len(query) > maxQueryLength {
		return middleware.ErrQueryTooLong
	}
	return nil
}

func validateQueryRequest(q agent.QueryRequest) error {
	return validateQuery(q.Query)
}

func (s *SearchRequest) Validate() error {
	if err := validateQuery(s.Query); err != nil {
		return err
	}
	if s.Limit < 0 || s.Limit > maxSearchLimit {
		return middleware.ErrInvalidLimit
	}
	if s.LessonNumber != nil && *s.LessonNumber < 0 {
		return middleware.ErrInvalidLesson
	}
	return nil
}
