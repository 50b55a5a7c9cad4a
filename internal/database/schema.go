package database

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

func schemaStatements(dimensions int) []string {
	return []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS course_catalog (
			title        TEXT PRIMARY KEY,
			instructor   TEXT NOT NULL DEFAULT '',
			course_link  TEXT NOT NULL DEFAULT '',
			lessons      JSONB NOT NULL DEFAULT '[]',
			lesson_count INT NOT NULL DEFAULT 0,
			embedding    vector(%d) NOT NULL,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, dimensions),
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS course_chunks (
			id            TEXT PRIMARY KEY,
			course_title  TEXT NOT NULL,
			lesson_number INT,
			chunk_index   INT NOT NULL,
			content       TEXT NOT NULL,
			embedding     vector(%d) NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, dimensions),
		`CREATE INDEX IF NOT EXISTS course_chunks_course_lesson_idx ON course_chunks (course_title, lesson_number)`,
		`CREATE INDEX IF NOT EXISTS course_chunks_embedding_idx ON course_chunks USING hnsw (embedding vector_cosine_ops)`,
	}
}

// Migrate creates the pgvector extension, tables and indexes if missing.
func (db *DB) Migrate(ctx context.Context, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("embedding dimensions must be positive, got %d", dimensions)
	}

	for _, stmt := range schemaStatements(dimensions) {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	log.Info().Int("dimensions", dimensions).Msg("Database schema ready")
	return nil
}
