package vectorstore

import (
	"fmt"
	"strings"
)

type Equality struct {
	Field string
	Value any
}

// Filter is a conjunction of metadata equalities. A nil *Filter matches
// everything.
type Filter struct {
	And []Equality
}

// BuildFilter returns nil, a single equality, or the conjunction of the
// course and lesson equalities.
func BuildFilter(courseTitle string, lessonNumber *int) *Filter {
	var clauses []Equality

	if courseTitle != "" {
		clauses = append(clauses, Equality{Field: FieldCourseTitle, Value: courseTitle})
	}
	if lessonNumber != nil {
		clauses = append(clauses, Equality{Field: FieldLessonNumber, Value: *lessonNumber})
	}

	if len(clauses) == 0 {
		return nil
	}

	return &Filter{And: clauses}
}

func (f *Filter) String() string {
	if f == nil {
		return "none"
	}

	parts := make([]string, 0, len(f.And))
	for _, eq := range f.And {
		parts = append(parts, fmt.Sprintf("%s=%v", eq.Field, eq.Value))
	}
	return strings.Join(parts, " AND ")
}
