package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
	"github.com/povarna/generative-ai-agents/course-agent/internal/vectorstore"
	"github.com/rs/zerolog/log"
)

// CourseRepository stores the course catalog and content chunks in
// PostgreSQL with pgvector and serves cosine nearest-neighbour queries.
type CourseRepository struct {
	db       *DB
	embedder Embedder
}

var _ vectorstore.Engine = (*CourseRepository)(nil)

func NewCourseRepository(db *DB, embedder Embedder) *CourseRepository {
	return &CourseRepository{
		db:       db,
		embedder: embedder,
	}
}

func (r *CourseRepository) QueryCatalog(ctx context.Context, text string, limit int) (vectorstore.RawResult, error) {
	queryEmbeddings, err := r.embedder.GenerateEmbeddings(ctx, text)
	if err != nil {
		return vectorstore.RawResult{}, fmt.Errorf("Unable to generate embeddings. Error: %w", err)
	}

	query := `
	SELECT
	  title,
	  instructor,
	  course_link,
	  lesson_count,
	  embedding <=> $1 AS distance
	FROM course_catalog
	ORDER BY distance ASC
	LIMIT $2`

	rows, err := r.db.Pool.Query(ctx, query, pgvector.NewVector(queryEmbeddings), limit)
	if err != nil {
		return vectorstore.RawResult{}, fmt.Errorf("Unable to query the catalog: %w", err)
	}
	defer rows.Close()

	var result vectorstore.RawResult
	for rows.Next() {
		var title, instructor, link string
		var lessonCount int
		var distance float64

		if err := rows.Scan(&title, &instructor, &link, &lessonCount, &distance); err != nil {
			return vectorstore.RawResult{}, fmt.Errorf("Failed to scan catalog row: %w", err)
		}

		result.IDs = append(result.IDs, title)
		result.Documents = append(result.Documents, title)
		result.Metadata = append(result.Metadata, map[string]any{
			"title":        title,
			"instructor":   instructor,
			"course_link":  link,
			"lesson_count": lessonCount,
		})
		result.Distances = append(result.Distances, distance)
	}

	if err := rows.Err(); err != nil {
		return vectorstore.RawResult{}, fmt.Errorf("row iteration error: %w", err)
	}

	return result, nil
}

func (r *CourseRepository) QueryContent(ctx context.Context, text string, limit int, filter *vectorstore.Filter) (vectorstore.RawResult, error) {
	where, filterArgs, err := whereClause(filter, 3)
	if err != nil {
		return vectorstore.RawResult{}, err
	}

	queryEmbeddings, err := r.embedder.GenerateEmbeddings(ctx, text)
	if err != nil {
		return vectorstore.RawResult{}, fmt.Errorf("Unable to generate embeddings. Error: %w", err)
	}

	query := fmt.Sprintf(`
	SELECT
	  id,
	  content,
	  course_title,
	  lesson_number,
	  chunk_index,
	  embedding <=> $1 AS distance
	FROM course_chunks
	%s
	ORDER BY distance ASC
	LIMIT $2`, where)

	args := append([]any{pgvector.NewVector(queryEmbeddings), limit}, filterArgs...)

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return vectorstore.RawResult{}, fmt.Errorf("Unable to query the database: %w", err)
	}
	defer rows.Close()

	var result vectorstore.RawResult
	for rows.Next() {
		var row chunkRow
		if err := rows.Scan(&row.ID, &row.Content, &row.CourseTitle, &row.LessonNumber, &row.ChunkIndex, &row.Distance); err != nil {
			return vectorstore.RawResult{}, fmt.Errorf("Failed to scan chunk row: %w", err)
		}

		result.IDs = append(result.IDs, row.ID)
		result.Documents = append(result.Documents, row.Content)
		result.Metadata = append(result.Metadata, row.metadata())
		result.Distances = append(result.Distances, row.Distance)
	}

	// Rows errors catch
	if err := rows.Err(); err != nil {
		return vectorstore.RawResult{}, fmt.Errorf("row iteration error: %w", err)
	}

	return result, nil
}

func (r *CourseRepository) CatalogTitles(ctx context.Context) ([]string, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT title FROM course_catalog ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("Unable to fetch course titles: %w", err)
	}
	defer rows.Close()

	titles := []string{}
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, fmt.Errorf("Failed to scan title: %w", err)
		}
		titles = append(titles, title)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return titles, nil
}

func (r *CourseRepository) CountCourses(ctx context.Context) (int, error) {
	var count int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM course_catalog`).Scan(&count); err != nil {
		return 0, fmt.Errorf("Unable to count courses: %w", err)
	}
	return count, nil
}

func (r *CourseRepository) GetCourse(ctx context.Context, title string) (*vectorstore.Course, error) {
	query := `SELECT title, instructor, course_link, lessons FROM course_catalog WHERE title = $1`

	var course vectorstore.Course
	var lessonsJSON []byte

	err := r.db.Pool.QueryRow(ctx, query, title).Scan(&course.Title, &course.Instructor, &course.Link, &lessonsJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Unable to load course %q: %w", title, err)
	}

	if len(lessonsJSON) > 0 {
		if err := json.Unmarshal(lessonsJSON, &course.Lessons); err != nil {
			return nil, fmt.Errorf("invalid lessons for course %q: %w", title, err)
		}
	}

	return &course, nil
}

func (r *CourseRepository) UpsertCourse(ctx context.Context, course vectorstore.Course) error {
	titleEmbedding, err := r.embedder.GenerateEmbeddings(ctx, course.Title)
	if err != nil {
		return fmt.Errorf("Unable to embed course title: %w", err)
	}

	lessons := course.Lessons
	if lessons == nil {
		lessons = []vectorstore.Lesson{}
	}
	lessonsJSON, err := json.Marshal(lessons)
	if err != nil {
		return fmt.Errorf("failed to marshal lessons: %w", err)
	}

	query := `
	INSERT INTO course_catalog (title, instructor, course_link, lessons, lesson_count, embedding)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (title) DO UPDATE SET
	  instructor = EXCLUDED.instructor,
	  course_link = EXCLUDED.course_link,
	  lessons = EXCLUDED.lessons,
	  lesson_count = EXCLUDED.lesson_count,
	  embedding = EXCLUDED.embedding`

	_, err = r.db.Pool.Exec(ctx, query,
		course.Title,
		course.Instructor,
		course.Link,
		lessonsJSON,
		len(lessons),
		pgvector.NewVector(titleEmbedding),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert course: %w", err)
	}

	log.Info().Str("course", course.Title).Int("lessons", len(lessons)).Msg("Course metadata stored")
	return nil
}

// UpsertChunks embeds and writes all records in a single transaction.
func (r *CourseRepository) UpsertChunks(ctx context.Context, records []vectorstore.ContentRecord) error {
	contents := make([]string, 0, len(records))
	for _, record := range records {
		contents = append(contents, record.Content)
	}

	embeddings, err := r.embedder.GenerateBatchEmbeddings(ctx, contents)
	if err != nil {
		return fmt.Errorf("Failed to generate embeddings. Error: %w", err)
	}
	if len(embeddings) != len(records) {
		return fmt.Errorf("expected %d embeddings, got %d", len(records), len(embeddings))
	}

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // Rollback if we don't commit

	query := `
	INSERT INTO course_chunks (id, course_title, lesson_number, chunk_index, content, embedding)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (id) DO UPDATE SET
	  content = EXCLUDED.content,
	  lesson_number = EXCLUDED.lesson_number,
	  embedding = EXCLUDED.embedding`

	for i, record := range records {
		_, err := tx.Exec(ctx, query,
			record.ID,
			record.CourseTitle,
			record.LessonNumber,
			record.ChunkIndex,
			record.Content,
			pgvector.NewVector(embeddings[i]),
		)
		if err != nil {
			return fmt.Errorf("failed to insert chunk %s: %w", record.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Info().Int("chunks", len(records)).Msg("All chunks inserted in transaction")
	return nil
}
