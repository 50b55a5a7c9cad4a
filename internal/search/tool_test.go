package search

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/povarna/generative-ai-agents/course-agent/internal/tool"
	"github.com/povarna/generative-ai-agents/course-agent/internal/vectorstore"
)

type fakeRetriever struct {
	result    vectorstore.SearchResult
	links     map[string]string
	lastQuery vectorstore.Query
	calls     int
}

func (f *fakeRetriever) Search(ctx context.Context, query vectorstore.Query) vectorstore.SearchResult {
	f.calls++
	f.lastQuery = query
	return f.result
}

func (f *fakeRetriever) LessonLink(ctx context.Context, courseTitle string, lessonNumber int) (string, bool) {
	link, ok := f.links[courseTitle]
	return link, ok
}

func twoHits() vectorstore.SearchResult {
	return vectorstore.SearchResult{
		Documents: []string{"Python is a language.", "Variables hold values."},
		Metadata: []map[string]any{
			{"course_title": "Python Fundamentals", "lesson_number": 1},
			{"course_title": "Python Fundamentals", "lesson_number": float64(2)},
		},
		Distances: []float64{0.1, 0.2},
	}
}

func TestRun_FormatsHitsAndSources(t *testing.T) {
	retriever := &fakeRetriever{
		result: twoHits(),
		links:  map[string]string{"Python Fundamentals": "https://example.com/lesson"},
	}
	searchTool := NewCourseSearchTool(retriever)

	result, err := searchTool.Run(context.Background(), map[string]any{"query": "Python basics"})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	want := "[Python Fundamentals - Lesson 1]\nPython is a language.\n\n[Python Fundamentals - Lesson 2]\nVariables hold values."
	if result.Content != want {
		t.Errorf("unexpected content:\n%s", result.Content)
	}

	if len(result.Sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(result.Sources))
	}
	if result.Sources[0].Text != "Python Fundamentals - Lesson 1" || result.Sources[1].Text != "Python Fundamentals - Lesson 2" {
		t.Errorf("unexpected sources: %+v", result.Sources)
	}
	if result.Sources[0].Link != "https://example.com/lesson" {
		t.Errorf("expected lesson link, got %q", result.Sources[0].Link)
	}
	if len(searchTool.LastSources()) != 2 {
		t.Error("expected tool to remember the sources")
	}
}

func TestRun_PassesFilters(t *testing.T) {
	retriever := &fakeRetriever{result: twoHits()}
	searchTool := NewCourseSearchTool(retriever)

	_, err := searchTool.Run(context.Background(), map[string]any{
		"query":         "loops",
		"course_name":   "Python",
		"lesson_number": json.Number("3"),
	})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if retriever.lastQuery.CourseName != "Python" {
		t.Errorf("expected course filter, got %q", retriever.lastQuery.CourseName)
	}
	if retriever.lastQuery.LessonNumber == nil || *retriever.lastQuery.LessonNumber != 3 {
		t.Errorf("expected lesson 3, got %v", retriever.lastQuery.LessonNumber)
	}
}

func TestRun_ErrorReturnedVerbatim(t *testing.T) {
	retriever := &fakeRetriever{result: vectorstore.EmptyResult("No course found matching 'Nonexistent Course'")}
	searchTool := NewCourseSearchTool(retriever)

	result, err := searchTool.Run(context.Background(), map[string]any{"query": "x", "course_name": "Nonexistent Course"})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if result.Content != "No course found matching 'Nonexistent Course'" {
		t.Errorf("expected error verbatim, got %q", result.Content)
	}
	if result.Sources == nil || len(result.Sources) != 0 {
		t.Errorf("expected empty non-nil sources, got %v", result.Sources)
	}
}

func TestRun_EmptyResultNamesScope(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"no filters", map[string]any{"query": "x"}, "No relevant content found"},
		{"course", map[string]any{"query": "x", "course_name": "Python Basics"}, "No relevant content found in course 'Python Basics'"},
		{"lesson", map[string]any{"query": "x", "lesson_number": float64(1)}, "No relevant content found in lesson 1"},
		{"both", map[string]any{"query": "x", "course_name": "Python Basics", "lesson_number": 1}, "No relevant content found in course 'Python Basics' in lesson 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searchTool := NewCourseSearchTool(&fakeRetriever{result: vectorstore.EmptyResult("")})
			result, err := searchTool.Run(context.Background(), tt.args)
			if err != nil {
				t.Fatalf("Run() failed: %v", err)
			}
			if result.Content != tt.want {
				t.Errorf("got %q, want %q", result.Content, tt.want)
			}
		})
	}
}

func TestRun_MissingLessonMetadataAndLink(t *testing.T) {
	retriever := &fakeRetriever{result: vectorstore.SearchResult{
		Documents: []string{"Content without complete metadata"},
		Metadata:  []map[string]any{{"course_title": "Test Course"}},
		Distances: []float64{0.1},
	}}
	searchTool := NewCourseSearchTool(retriever)

	result, err := searchTool.Run(context.Background(), map[string]any{"query": "test"})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if !strings.HasPrefix(result.Content, "[Test Course]\n") {
		t.Errorf("expected header without lesson, got %q", result.Content)
	}
	if len(result.Sources) != 1 || result.Sources[0].Text != "Test Course" || result.Sources[0].Link != "" {
		t.Errorf("unexpected sources: %+v", result.Sources)
	}
}

func TestRun_SourcesReplacedEachCall(t *testing.T) {
	retriever := &fakeRetriever{result: twoHits()}
	searchTool := NewCourseSearchTool(retriever)
	ctx := context.Background()

	if _, err := searchTool.Run(ctx, map[string]any{"query": "first"}); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	retriever.result = vectorstore.SearchResult{
		Documents: []string{"Second search result"},
		Metadata:  []map[string]any{{"course_title": "Course 2", "lesson_number": 2}},
		Distances: []float64{0.3},
	}
	if _, err := searchTool.Run(ctx, map[string]any{"query": "second"}); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	sources := searchTool.LastSources()
	if len(sources) != 1 || sources[0].Text != "Course 2 - Lesson 2" {
		t.Errorf("expected sources replaced, got %+v", sources)
	}

	searchTool.ResetSources()
	if len(searchTool.LastSources()) != 0 {
		t.Error("expected sources cleared after reset")
	}
}

func TestRun_InvalidArguments(t *testing.T) {
	searchTool := NewCourseSearchTool(&fakeRetriever{})

	tests := []map[string]any{
		{},
		{"query": ""},
		{"query": "x", "course_name": 7},
		{"query": "x", "lesson_number": "two"},
		{"query": "x", "lesson_number": 1.5},
	}

	for _, args := range tests {
		if _, err := searchTool.Run(context.Background(), args); err == nil {
			t.Errorf("expected error for args %v", args)
		}
	}
}

func TestDefinition(t *testing.T) {
	def := NewCourseSearchTool(&fakeRetriever{}).Definition()
	if def.Name != "search_course_content" {
		t.Errorf("unexpected name %q", def.Name)
	}
	props, ok := def.InputSchema["properties"].(map[string]any)
	if !ok {
		t.Fatal("expected properties in schema")
	}
	for _, key := range []string{"query", "course_name", "lesson_number"} {
		if _, ok := props[key]; !ok {
			t.Errorf("missing property %s", key)
		}
	}
	required, _ := def.InputSchema["required"].([]string)
	if len(required) != 1 || required[0] != "query" {
		t.Errorf("expected only query required, got %v", required)
	}
}

func TestExecute_ThroughRegistry(t *testing.T) {
	retriever := &fakeRetriever{result: twoHits()}
	registry := tool.NewRegistry()
	if err := registry.Register(NewCourseSearchTool(retriever)); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	ctx := context.Background()

	t.Run("null optionals are omitted", func(t *testing.T) {
		result, err := registry.Execute(ctx, ToolName, map[string]any{
			"query":         "variables",
			"course_name":   nil,
			"lesson_number": nil,
		})
		if err != nil {
			t.Fatalf("Execute() failed: %v", err)
		}
		if len(result.Sources) != 2 {
			t.Errorf("expected 2 sources, got %d", len(result.Sources))
		}
		if retriever.lastQuery.CourseName != "" || retriever.lastQuery.LessonNumber != nil {
			t.Errorf("unexpected filters %+v", retriever.lastQuery)
		}
	})

	t.Run("decoded json arguments", func(t *testing.T) {
		var args map[string]any
		if err := json.Unmarshal([]byte(`{"query":"variables","course_name":"Python","lesson_number":2}`), &args); err != nil {
			t.Fatalf("Unmarshal failed: %v", err)
		}
		if _, err := registry.Execute(ctx, ToolName, args); err != nil {
			t.Fatalf("Execute() failed: %v", err)
		}
		if retriever.lastQuery.CourseName != "Python" || *retriever.lastQuery.LessonNumber != 2 {
			t.Errorf("unexpected filters %+v", retriever.lastQuery)
		}
	})

	t.Run("string lesson rejected before search", func(t *testing.T) {
		calls := retriever.calls
		_, err := registry.Execute(ctx, ToolName, map[string]any{"query": "x", "lesson_number": "2"})
		if !errors.Is(err, tool.ErrInvalidArguments) {
			t.Errorf("expected ErrInvalidArguments, got %v", err)
		}
		if retriever.calls != calls {
			t.Error("rejected arguments must not reach the retriever")
		}
	})
}
