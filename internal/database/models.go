package database

import "context"

// Embedder turns text into vectors for the catalog and content tables.
type Embedder interface {
	GenerateEmbeddings(ctx context.Context, text string) ([]float32, error)
	GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

type chunkRow struct {
	ID           string
	Content      string
	CourseTitle  string
	LessonNumber *int
	ChunkIndex   int
	Distance     float64
}

func (c chunkRow) metadata() map[string]any {
	metadata := map[string]any{
		"course_title": c.CourseTitle,
		"chunk_index":  c.ChunkIndex,
	}
	if c.LessonNumber != nil {
		metadata["lesson_number"] = *c.LessonNumber
	}
	return metadata
}
