package ingestion

import (
	"context"
	"fmt"

	"github.com/povarna/generative-ai-agents/course-agent/internal/vectorstore"
	"github.com/rs/zerolog"
)

// CourseIndex is the write side of the retrieval index.
type CourseIndex interface {
	ExistingCourseTitles(ctx context.Context) []string
	AddCourseMetadata(ctx context.Context, course vectorstore.Course) error
	AddContent(ctx context.Context, chunks []vectorstore.Chunk) error
}

type Pipeline struct {
	parser *Parser
	index  CourseIndex
	logger *zerolog.Logger
}

type Stats struct {
	Courses int `json:"courses"`
	Chunks  int `json:"chunks"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

func NewPipeline(index CourseIndex, logger *zerolog.Logger) *Pipeline {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Pipeline{
		parser: NewParser(),
		index:  index,
		logger: logger,
	}
}

// IngestPath loads one course file or every course file in a directory.
// Courses already in the catalog are skipped. A bad file is logged and
// counted; it does not stop the remaining files.
func (p *Pipeline) IngestPath(ctx context.Context, path string) (Stats, error) {
	var stats Stats

	paths, err := p.parser.CoursePaths(path)
	if err != nil {
		return stats, err
	}

	existing := make(map[string]struct{})
	for _, title := range p.index.ExistingCourseTitles(ctx) {
		existing[title] = struct{}{}
	}

	for _, filePath := range paths {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		doc, err := p.parser.ParseFile(filePath)
		if err != nil {
			p.logger.Error().Err(err).Str("file", filePath).Msg("Failed to parse course file")
			stats.Failed++
			continue
		}

		if _, ok := existing[doc.Title]; ok {
			p.logger.Info().Str("course", doc.Title).Msg("Course already indexed, skipping")
			stats.Skipped++
			continue
		}

		chunks, err := p.IngestDocument(ctx, doc)
		if err != nil {
			p.logger.Error().Err(err).Str("file", filePath).Msg("Failed to ingest course")
			stats.Failed++
			continue
		}

		existing[doc.Title] = struct{}{}
		stats.Courses++
		stats.Chunks += chunks
	}

	p.logger.Info().
		Str("path", path).
		Int("courses", stats.Courses).
		Int("chunks", stats.Chunks).
		Int("skipped", stats.Skipped).
		Int("failed", stats.Failed).
		Msg("Ingestion complete")

	return stats, nil
}

// IngestDocument writes the catalog entry and then the content chunks.
func (p *Pipeline) IngestDocument(ctx context.Context, doc *CourseDocument) (int, error) {
	p.logger.Info().Str("course", doc.Title).Str("file", doc.FilePath).Msg("Starting ingestion")

	if err := p.index.AddCourseMetadata(ctx, doc.Course()); err != nil {
		return 0, fmt.Errorf("failed to add course metadata: %w", err)
	}

	chunks := doc.ContentChunks()
	if err := p.index.AddContent(ctx, chunks); err != nil {
		return 0, fmt.Errorf("failed to add course content: %w", err)
	}

	p.logger.Info().
		Str("course", doc.Title).
		Int("lessons", len(doc.Lessons)).
		Int("chunks", len(chunks)).
		Msg("Course ingested")

	return len(chunks), nil
}
