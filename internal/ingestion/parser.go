package ingestion

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/povarna/generative-ai-agents/course-agent/internal/vectorstore"
)

// CourseDocument is a pre-chunked course as stored on disk.
type CourseDocument struct {
	Title      string               `json:"title"`
	Link       string               `json:"course_link,omitempty"`
	Instructor string               `json:"instructor,omitempty"`
	Lessons    []vectorstore.Lesson `json:"lessons,omitempty"`
	Chunks     []ChunkDocument      `json:"chunks"`
	FilePath   string               `json:"-"`
}

type ChunkDocument struct {
	Content      string `json:"content"`
	LessonNumber *int   `json:"lesson_number,omitempty"`
	ChunkIndex   *int   `json:"chunk_index,omitempty"`
}

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) ParseFile(path string) (*CourseDocument, error) {
	path = strings.TrimSpace(path)

	ext := filepath.Ext(path)
	if ext != ".json" {
		return nil, fmt.Errorf("unsupported file type %s (expected .json)", ext)
	}

	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	if len(bytes) == 0 {
		return nil, fmt.Errorf("file %s is empty", path)
	}

	var doc CourseDocument
	if err := json.Unmarshal(bytes, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	doc.Title = strings.TrimSpace(doc.Title)
	if doc.Title == "" {
		return nil, fmt.Errorf("file %s has no course title", path)
	}
	doc.FilePath = path

	return &doc, nil
}

// CoursePaths returns path itself for a file, or the sorted .json files
// directly inside it for a directory.
func (p *Parser) CoursePaths(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", path, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		paths = append(paths, filepath.Join(path, entry.Name()))
	}
	sort.Strings(paths)

	return paths, nil
}

// Course returns the catalog entry for the document.
func (d *CourseDocument) Course() vectorstore.Course {
	return vectorstore.Course{
		Title:      d.Title,
		Link:       d.Link,
		Instructor: d.Instructor,
		Lessons:    d.Lessons,
	}
}

// ContentChunks tags every non-empty chunk with the course title. Chunks
// without an explicit index are numbered by position.
func (d *CourseDocument) ContentChunks() []vectorstore.Chunk {
	chunks := make([]vectorstore.Chunk, 0, len(d.Chunks))
	for i, c := range d.Chunks {
		content := strings.TrimSpace(c.Content)
		if content == "" {
			continue
		}

		index := i
		if c.ChunkIndex != nil {
			index = *c.ChunkIndex
		}

		chunks = append(chunks, vectorstore.Chunk{
			Content:      content,
			CourseTitle:  d.Title,
			LessonNumber: c.LessonNumber,
			ChunkIndex:   index,
		})
	}
	return chunks
}
