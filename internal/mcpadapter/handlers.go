package mcpadapter

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/povarna/generative-ai-agents/course-agent/internal/agent"
	"github.com/povarna/generative-ai-agents/course-agent/internal/tool"
)

var errEmptyQuery = errors.New("query cannot be empty")

// SearchInput is the MCP tool input schema for direct course search.
type SearchInput struct {
	Query        string `json:"query" jsonschema:"what to search for in the course content"`
	CourseName   string `json:"course_name,omitempty" jsonschema:"course title, partial matches work"`
	LessonNumber *int   `json:"lesson_number,omitempty" jsonschema:"specific lesson number to search within"`
}

type SearchOutput struct {
	Content string        `json:"content" jsonschema:"matching chunks labelled by course and lesson"`
	Sources []tool.Source `json:"sources" jsonschema:"lessons the chunks came from"`
}

// AskInput is the MCP tool input schema for a full question answered by the assistant.
type AskInput struct {
	Query     string `json:"query" jsonschema:"question about the course materials"`
	SessionID string `json:"session_id,omitempty" jsonschema:"session to continue, omit to start a new one"`
}

type CourseSearcher interface {
	Search(ctx context.Context, query string, courseName string, lessonNumber *int) tool.Result
}

type QueryService interface {
	Query(ctx context.Context, queryRequest agent.QueryRequest) (agent.QueryResponse, error)
}

// NewSearchHandler returns a tool handler that searches course content
// without calling the model. Pass the returned function to mcp.AddTool.
func NewSearchHandler(searcher CourseSearcher) func(context.Context, *mcp.CallToolRequest, SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
		if strings.TrimSpace(input.Query) == "" {
			return nil, SearchOutput{}, errEmptyQuery
		}

		result := searcher.Search(ctx, input.Query, input.CourseName, input.LessonNumber)
		output := SearchOutput{
			Content: result.Content,
			Sources: nonNilSources(result.Sources),
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: result.Content}},
		}, output, nil
	}
}

// NewAskHandler returns a tool handler that runs the full question
// answering flow. Pass the returned function to mcp.AddTool.
func NewAskHandler(service QueryService) func(context.Context, *mcp.CallToolRequest, AskInput) (*mcp.CallToolResult, agent.QueryResponse, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, agent.QueryResponse, error) {
		if strings.TrimSpace(input.Query) == "" {
			return nil, agent.QueryResponse{}, errEmptyQuery
		}

		response, err := service.Query(ctx, agent.QueryRequest{
			Query:     input.Query,
			SessionID: input.SessionID,
		})
		if err != nil {
			return nil, agent.QueryResponse{}, err
		}
		response.Sources = nonNilSources(response.Sources)

		return nil, response, nil
	}
}

// NewServer registers the course tools on a new MCP server.
func NewServer(searcher CourseSearcher, service QueryService, version string) *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "course-agent",
			Version: version,
		}, nil,
	)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_course_content",
		Description: "Search course materials with smart course name matching and lesson filtering",
	}, NewSearchHandler(searcher))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_course_question",
		Description: "Answer a question about the course materials, citing the lessons used",
	}, NewAskHandler(service))

	return server
}

func nonNilSources(sources []tool.Source) []tool.Source {
	if sources == nil {
		return []tool.Source{}
	}
	return sources
}
