package vectorstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
)

const DefaultMaxResults = 5

type Store struct {
	engine     Engine
	maxResults int
	cache      ResultCache
	logger     *zerolog.Logger
}

// NewStore wraps an engine. cache may be nil.
func NewStore(engine Engine, maxResults int, cache ResultCache, logger *zerolog.Logger) *Store {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Store{
		engine:     engine,
		maxResults: maxResults,
		cache:      cache,
		logger:     logger,
	}
}

// ResolveCourseName maps a partial course name to the closest catalog title.
// Engine failures and an empty catalog both report false.
func (s *Store) ResolveCourseName(ctx context.Context, partial string) (string, bool) {
	raw, err := s.engine.QueryCatalog(ctx, partial, 1)
	if err != nil {
		s.logger.Warn().Err(err).Str("course_name", partial).Msg("Course name resolution failed")
		return "", false
	}

	if len(raw.Metadata) > 0 {
		if title, ok := raw.Metadata[0][FieldTitle].(string); ok && title != "" {
			return title, true
		}
	}
	if len(raw.IDs) > 0 && raw.IDs[0] != "" {
		return raw.IDs[0], true
	}

	return "", false
}

// Search never returns an error; failures are reported in SearchResult.Error.
func (s *Store) Search(ctx context.Context, query Query) SearchResult {
	var courseTitle string
	if query.CourseName != "" {
		title, ok := s.ResolveCourseName(ctx, query.CourseName)
		if !ok {
			return EmptyResult(fmt.Sprintf("No course found matching '%s'", query.CourseName))
		}
		courseTitle = title
	}

	filter := BuildFilter(courseTitle, query.LessonNumber)

	limit := query.Limit
	if limit <= 0 {
		limit = s.maxResults
	}

	key := cacheKey(query.Text, filter, limit)
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, key); ok {
			s.logger.Debug().Str("query", query.Text).Msg("Search cache hit")
			return *cached
		}
	}

	raw, err := s.engine.QueryContent(ctx, query.Text, limit, filter)
	if err != nil {
		s.logger.Error().Err(err).Str("query", query.Text).Str("filter", filter.String()).Msg("Content search failed")
		return EmptyResult(fmt.Sprintf("Search error: %v", err))
	}

	result := normalize(raw, limit)

	if s.cache != nil {
		s.cache.Set(ctx, key, result)
	}

	s.logger.Debug().
		Str("query", query.Text).
		Str("filter", filter.String()).
		Int("hits", len(result.Documents)).
		Msg("Content search complete")

	return result
}

func (s *Store) ExistingCourseTitles(ctx context.Context) []string {
	titles, err := s.engine.CatalogTitles(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to list course titles")
		return []string{}
	}
	if titles == nil {
		return []string{}
	}
	return titles
}

func (s *Store) CourseCount(ctx context.Context) int {
	count, err := s.engine.CountCourses(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to count courses")
		return 0
	}
	return count
}

func (s *Store) AddCourseMetadata(ctx context.Context, course Course) error {
	if course.Title == "" {
		return fmt.Errorf("course title is required")
	}
	if err := s.engine.UpsertCourse(ctx, course); err != nil {
		return fmt.Errorf("failed to store course %q: %w", course.Title, err)
	}
	return nil
}

// AddContent writes chunks in bulk. An empty input does not touch the engine.
func (s *Store) AddContent(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	records := make([]ContentRecord, 0, len(chunks))
	for _, chunk := range chunks {
		records = append(records, ContentRecord{
			ID:    ChunkID(chunk.CourseTitle, chunk.ChunkIndex),
			Chunk: chunk,
		})
	}

	if err := s.engine.UpsertChunks(ctx, records); err != nil {
		return fmt.Errorf("failed to store %d chunks: %w", len(records), err)
	}
	return nil
}

func (s *Store) LessonLink(ctx context.Context, courseTitle string, lessonNumber int) (string, bool) {
	course := s.course(ctx, courseTitle)
	if course == nil {
		return "", false
	}
	for _, lesson := range course.Lessons {
		if lesson.Number == lessonNumber && lesson.Link != "" {
			return lesson.Link, true
		}
	}
	return "", false
}

func (s *Store) course(ctx context.Context, title string) *Course {
	course, err := s.engine.GetCourse(ctx, title)
	if err != nil {
		s.logger.Warn().Err(err).Str("course", title).Msg("Failed to load course metadata")
		return nil
	}
	return course
}

// normalize truncates the parallel slices to a common length, orders them
// by ascending distance and applies the limit.
func normalize(raw RawResult, limit int) SearchResult {
	n := min(len(raw.Documents), len(raw.Metadata), len(raw.Distances))
	if n == 0 {
		return EmptyResult("")
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return raw.Distances[order[a]] < raw.Distances[order[b]]
	})

	if limit > 0 && n > limit {
		order = order[:limit]
	}

	result := SearchResult{
		Documents: make([]string, 0, len(order)),
		Metadata:  make([]map[string]any, 0, len(order)),
		Distances: make([]float64, 0, len(order)),
	}
	for _, i := range order {
		metadata := raw.Metadata[i]
		if metadata == nil {
			metadata = map[string]any{}
		}
		result.Documents = append(result.Documents, raw.Documents[i])
		result.Metadata = append(result.Metadata, metadata)
		result.Distances = append(result.Distances, raw.Distances[i])
	}

	return result
}

func cacheKey(query string, filter *Filter, limit int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d", query, filter.String(), limit)))
	return hex.EncodeToString(sum[:])
}

// DistanceToScore converts cosine distance (0 identical, 2 opposite) into a
// similarity score clamped to [0, 1].
func DistanceToScore(distance float64) float64 {
	score := 1.0 - distance

	if score < 0.0 {
		return 0.0
	}
	if score > 1.0 {
		return 1.0
	}

	return score
}
