package search

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/povarna/generative-ai-agents/course-agent/internal/llm"
	"github.com/povarna/generative-ai-agents/course-agent/internal/tool"
	"github.com/povarna/generative-ai-agents/course-agent/internal/vectorstore"
)

const ToolName = "search_course_content"

// Retriever is the part of the retrieval index the search tool needs.
type Retriever interface {
	Search(ctx context.Context, query vectorstore.Query) vectorstore.SearchResult
	LessonLink(ctx context.Context, courseTitle string, lessonNumber int) (string, bool)
}

// CourseSearchTool lets the model search course content, optionally scoped
// to one course and lesson.
type CourseSearchTool struct {
	retriever Retriever

	mu          sync.Mutex
	lastSources []tool.Source
}

var (
	_ tool.Tool          = (*CourseSearchTool)(nil)
	_ tool.SourceTracker = (*CourseSearchTool)(nil)
)

func NewCourseSearchTool(retriever Retriever) *CourseSearchTool {
	return &CourseSearchTool{
		retriever:   retriever,
		lastSources: []tool.Source{},
	}
}

func (t *CourseSearchTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        ToolName,
		Description: "Search course materials with smart course name matching and lesson filtering",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "What to search for in the course content",
				},
				"course_name": map[string]any{
					"type":        "string",
					"description": "Course title (partial matches work, e.g. 'MCP', 'Introduction')",
				},
				"lesson_number": map[string]any{
					"type":        "integer",
					"description": "Specific lesson number to search within (e.g. 1, 2, 3)",
				},
			},
			"required": []string{"query"},
		},
	}
}

func (t *CourseSearchTool) Run(ctx context.Context, args map[string]any) (tool.Result, error) {
	query, ok := args["query"].(string)
	if !ok || strings.TrimSpace(query) == "" {
		return tool.Result{}, fmt.Errorf("query is required")
	}

	var courseName string
	if raw, present := args["course_name"]; present && raw != nil {
		name, ok := raw.(string)
		if !ok {
			return tool.Result{}, fmt.Errorf("course_name must be a string, got %T", raw)
		}
		courseName = name
	}

	var lessonNumber *int
	if raw, present := args["lesson_number"]; present && raw != nil {
		n, ok := vectorstore.IntValue(raw)
		if !ok {
			return tool.Result{}, fmt.Errorf("lesson_number must be an integer, got %v", raw)
		}
		lessonNumber = &n
	}

	return t.Search(ctx, query, courseName, lessonNumber), nil
}

// Search runs a scoped search and formats the hits for the model. Retrieval
// errors come back verbatim as content.
func (t *CourseSearchTool) Search(ctx context.Context, query string, courseName string, lessonNumber *int) tool.Result {
	results := t.retriever.Search(ctx, vectorstore.Query{
		Text:         query,
		CourseName:   courseName,
		LessonNumber: lessonNumber,
	})

	if results.Error != "" {
		t.setSources([]tool.Source{})
		return tool.Result{Content: results.Error, Sources: []tool.Source{}}
	}

	if results.IsEmpty() {
		t.setSources([]tool.Source{})
		return tool.Result{Content: emptyMessage(courseName, lessonNumber), Sources: []tool.Source{}}
	}

	content, sources := t.format(ctx, results)
	t.setSources(sources)

	return tool.Result{Content: content, Sources: sources}
}

func (t *CourseSearchTool) LastSources() []tool.Source {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]tool.Source, len(t.lastSources))
	copy(out, t.lastSources)
	return out
}

func (t *CourseSearchTool) ResetSources() {
	t.setSources([]tool.Source{})
}

func (t *CourseSearchTool) setSources(sources []tool.Source) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastSources = sources
}

func (t *CourseSearchTool) format(ctx context.Context, results vectorstore.SearchResult) (string, []tool.Source) {
	blocks := make([]string, 0, len(results.Documents))
	sources := make([]tool.Source, 0, len(results.Documents))

	for i, doc := range results.Documents {
		metadata := results.Metadata[i]

		courseTitle, _ := metadata[vectorstore.FieldCourseTitle].(string)
		if courseTitle == "" {
			courseTitle = "unknown"
		}
		lesson, hasLesson := vectorstore.IntValue(metadata[vectorstore.FieldLessonNumber])

		label := courseTitle
		if hasLesson {
			label = fmt.Sprintf("%s - Lesson %d", courseTitle, lesson)
		}

		blocks = append(blocks, fmt.Sprintf("[%s]\n%s", label, doc))

		source := tool.Source{Text: label}
		if hasLesson {
			if link, ok := t.retriever.LessonLink(ctx, courseTitle, lesson); ok {
				source.Link = link
			}
		}
		sources = append(sources, source)
	}

	return strings.Join(blocks, "\n\n"), sources
}

func emptyMessage(courseName string, lessonNumber *int) string {
	var sb strings.Builder
	sb.WriteString("No relevant content found")
	if courseName != "" {
		fmt.Fprintf(&sb, " in course '%s'", courseName)
	}
	if lessonNumber != nil {
		fmt.Fprintf(&sb, " in lesson %d", *lessonNumber)
	}
	return sb.String()
}
