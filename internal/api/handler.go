package api

import (
	"context"
	"net/http"

	"github.com/emicklei/go-restful/v3"
	"github.com/povarna/generative-ai-agents/course-agent/internal/agent"
	"github.com/povarna/generative-ai-agents/course-agent/internal/api/middleware"
	"github.com/povarna/generative-ai-agents/course-agent/internal/vectorstore"
	"github.com/rs/zerolog"
)

const Version = "1.0.0"

type QueryService interface {
	Query(ctx context.Context, queryRequest agent.QueryRequest) (agent.QueryResponse, error)
	CourseAnalytics(ctx context.Context) agent.CourseStats
	ClearSession(sessionID string) bool
}

type Searcher interface {
	Search(ctx context.Context, query vectorstore.Query) vectorstore.SearchResult
}

type CacheClearer interface {
	Clear(ctx context.Context) (int, error)
}

type Handler struct {
	service  QueryService
	searcher Searcher
	cache    CacheClearer
	logger   *zerolog.Logger
}

// NewHandler builds the API handler. cache may be nil when the search cache
// is disabled.
func NewHandler(service QueryService, searcher Searcher, cache CacheClearer, logger *zerolog.Logger) *Handler {
	return &Handler{
		service:  service,
		searcher: searcher,
		cache:    cache,
		logger:   logger,
	}
}

// POST /api/v1/query
func (h *Handler) Query(req *restful.Request, resp *restful.Response) {
	var queryRequest agent.QueryRequest
	if err := req.ReadEntity(&queryRequest); err != nil {
		h.logger.Error().Err(err).Msg("Failed to parse request body")
		middleware.HandleError(resp, err, http.StatusBadRequest)
		return
	}

	if err := validateQueryRequest(queryRequest); err != nil {
		middleware.HandleError(resp, err, http.StatusBadRequest)
		return
	}

	h.logger.Info().
		Str("query", queryRequest.Query).
		Str("session_id", queryRequest.SessionID).
		Msg("Process query")

	queryResponse, err := h.service.Query(req.Request.Context(), queryRequest)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to query")
		middleware.HandleError(resp, err, http.StatusInternalServerError)
		return
	}

	resp.WriteHeaderAndEntity(http.StatusOK, queryResponse)
}

// POST /api/v1/search
func (h *Handler) Search(req *restful.Request, resp *restful.Response) {
	var searchRequest SearchRequest
	if err := req.ReadEntity(&searchRequest); err != nil {
		h.logger.Error().Err(err).Msg("Failed to parse request body")
		middleware.HandleError(resp, err, http.StatusBadRequest)
		return
	}

	if err := searchRequest.Validate(); err != nil {
		middleware.HandleError(resp, err, http.StatusBadRequest)
		return
	}

	result := h.searcher.Search(req.Request.Context(), vectorstore.Query{
		Text:         searchRequest.Query,
		CourseName:   searchRequest.CourseName,
		LessonNumber: searchRequest.LessonNumber,
		Limit:        searchRequest.Limit,
	})

	h.logger.Info().
		Str("query", searchRequest.Query).
		Int("hits", len(result.Documents)).
		Str("error", result.Error).
		Msg("Search complete")

	resp.WriteHeaderAndEntity(http.StatusOK, toSearchResponse(result))
}

// GET /api/v1/courses
func (h *Handler) Courses(req *restful.Request, resp *restful.Response) {
	resp.WriteHeaderAndEntity(http.StatusOK, h.service.CourseAnalytics(req.Request.Context()))
}

// DELETE /api/v1/sessions/{session_id}
func (h *Handler) ClearSession(req *restful.Request, resp *restful.Response) {
	sessionID := req.PathParameter("session_id")
	if !h.service.ClearSession(sessionID) {
		middleware.HandleError(resp, middleware.ErrUnknownSession, http.StatusNotFound)
		return
	}

	resp.WriteHeaderAndEntity(http.StatusOK, SessionClearResponse{SessionID: sessionID, Cleared: true})
}

// GET /api/v1/health
func (h *Handler) Health(req *restful.Request, resp *restful.Response) {
	resp.WriteHeaderAndEntity(http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: Version,
	})
}

// POST /api/v1/admin/cache/clear
func (h *Handler) ClearCache(req *restful.Request, resp *restful.Response) {
	if h.cache == nil {
		resp.WriteHeaderAndEntity(http.StatusOK, CacheClearResponse{Enabled: false})
		return
	}

	cleared, err := h.cache.Clear(req.Request.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to clear search cache")
		middleware.HandleError(resp, err, http.StatusInternalServerError)
		return
	}

	h.logger.Info().Int("cleared", cleared).Msg("Search cache cleared")
	resp.WriteHeaderAndEntity(http.StatusOK, CacheClearResponse{Enabled: true, Cleared: cleared})
}

func toSearchResponse(result vectorstore.SearchResult) SearchResponse {
	hits := make([]SearchHit, 0, len(result.Documents))
	for i, doc := range result.Documents {
		hit := SearchHit{Content: doc}
		if i < len(result.Metadata) {
			meta := result.Metadata[i]
			hit.CourseTitle, _ = meta[vectorstore.FieldCourseTitle].(string)
			if lesson, ok := vectorstore.IntValue(meta[vectorstore.FieldLessonNumber]); ok {
				hit.LessonNumber = &lesson
			}
		}
		if i < len(result.Distances) {
			hit.Score = vectorstore.DistanceToScore(result.Distances[i])
		}
		hits = append(hits, hit)
	}

	return SearchResponse{Results: hits, Error: result.Error}
}
