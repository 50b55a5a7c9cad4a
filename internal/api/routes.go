package api

import (
	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"
	"github.com/povarna/generative-ai-agents/course-agent/internal/agent"
	"github.com/povarna/generative-ai-agents/course-agent/internal/api/middleware"
)

func RegisterRoutes(container *restful.Container, handler *Handler) {
	ws := new(restful.WebService)

	ws.
		Path("/api/v1").
		Consumes(restful.MIME_JSON).
		Produces(restful.MIME_JSON)

	ws.
		Route(ws.GET("health").
			To(handler.Health).
			Doc("Health check").
			Metadata(restfulspec.KeyOpenAPITags, []string{"health"}).
			Writes(HealthResponse{}).
			Returns(200, "OK", HealthResponse{}))

	ws.
		Route(ws.POST("/query").
			To(handler.Query).
			Doc("Ask a question about the course materials").
			Metadata(restfulspec.KeyOpenAPITags, []string{"query"}).
			Reads(agent.QueryRequest{}).
			Writes(agent.QueryResponse{}).
			Returns(200, "OK", agent.QueryResponse{}).
			Returns(400, "Bad Request", middleware.ErrorResponse{}).
			Returns(500, "Internal Server Error", middleware.ErrorResponse{}))

	ws.
		Route(ws.POST("/search").
			To(handler.Search).
			Doc("Search course content without the model").
			Metadata(restfulspec.KeyOpenAPITags, []string{"search"}).
			Reads(SearchRequest{}).
			Writes(SearchResponse{}).
			Returns(200, "OK", SearchResponse{}).
			Returns(400, "Bad Request", middleware.ErrorResponse{}))

	ws.
		Route(ws.DELETE("/sessions/{session_id}").
			To(handler.ClearSession).
			Doc("Forget the conversation history of a session").
			Metadata(restfulspec.KeyOpenAPITags, []string{"query"}).
			Param(ws.PathParameter("session_id", "Session identifier").DataType("string")).
			Writes(SessionClearResponse{}).
			Returns(200, "OK", SessionClearResponse{}).
			Returns(404, "Not Found", middleware.ErrorResponse{}))

	ws.
		Route(ws.GET("/courses").
			To(handler.Courses).
			Doc("Course catalog statistics").
			Metadata(restfulspec.KeyOpenAPITags, []string{"courses"}).
			Writes(agent.CourseStats{}).
			Returns(200, "OK", agent.CourseStats{}))

	ws.
		Route(ws.POST("/admin/cache/clear").
			To(handler.ClearCache).
			AllowedMethodsWithoutContentType([]string{"POST"}).
			Doc("Clear the search result cache").
			Metadata(restfulspec.KeyOpenAPITags, []string{"admin"}).
			Writes(CacheClearResponse{}).
			Returns(200, "OK", CacheClearResponse{}).
			Returns(500, "Internal Server Error", middleware.ErrorResponse{}))

	container.Add(ws)
}
