package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

const (
	FieldCourseTitle  = "course_title"
	FieldLessonNumber = "lesson_number"
	FieldChunkIndex   = "chunk_index"
	FieldTitle        = "title"
)

// IntValue reads an integer from metadata or decoded tool arguments. Numbers
// with a fractional part are rejected.
func IntValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}

// Chunk is a slice of course text with its position metadata.
type Chunk struct {
	Content      string `json:"content"`
	CourseTitle  string `json:"course_title"`
	LessonNumber *int   `json:"lesson_number,omitempty"`
	ChunkIndex   int    `json:"chunk_index"`
}

type Lesson struct {
	Number int    `json:"lesson_number"`
	Title  string `json:"title"`
	Link   string `json:"lesson_link,omitempty"`
}

type Course struct {
	Title      string   `json:"title"`
	Link       string   `json:"course_link,omitempty"`
	Instructor string   `json:"instructor,omitempty"`
	Lessons    []Lesson `json:"lessons,omitempty"`
}

// ContentRecord is a chunk ready to be written, keyed by its deterministic id.
type ContentRecord struct {
	ID string
	Chunk
}

// ChunkID derives the stable identity of a chunk within its course.
func ChunkID(courseTitle string, chunkIndex int) string {
	return fmt.Sprintf("%s_%d", strings.ReplaceAll(courseTitle, " ", "_"), chunkIndex)
}

// SearchResult holds parallel documents, metadata and distances, best match
// first. A non-empty Error means all three slices are empty.
type SearchResult struct {
	Documents []string         `json:"documents"`
	Metadata  []map[string]any `json:"metadata"`
	Distances []float64        `json:"distances"`
	Error     string           `json:"error,omitempty"`
}

func EmptyResult(errMsg string) SearchResult {
	return SearchResult{
		Documents: []string{},
		Metadata:  []map[string]any{},
		Distances: []float64{},
		Error:     errMsg,
	}
}

func (r SearchResult) IsEmpty() bool {
	return len(r.Documents) == 0
}

// RawResult is what an engine returns before normalization.
type RawResult struct {
	IDs       []string
	Documents []string
	Metadata  []map[string]any
	Distances []float64
}

type Query struct {
	Text         string
	CourseName   string
	LessonNumber *int
	Limit        int
}

// Engine is the persistent vector search backend holding the catalog and
// content collections.
type Engine interface {
	QueryCatalog(ctx context.Context, text string, limit int) (RawResult, error)
	QueryContent(ctx context.Context, text string, limit int, filter *Filter) (RawResult, error)
	CatalogTitles(ctx context.Context) ([]string, error)
	CountCourses(ctx context.Context) (int, error)
	// GetCourse returns nil without error when the course is unknown.
	GetCourse(ctx context.Context, title string) (*Course, error)
	UpsertCourse(ctx context.Context, course Course) error
	UpsertChunks(ctx context.Context, records []ContentRecord) error
}

type ResultCache interface {
	Get(ctx context.Context, key string) (*SearchResult, bool)
	Set(ctx context.Context, key string, result SearchResult)
}
