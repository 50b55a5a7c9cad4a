package database

import (
	"fmt"
	"strings"

	"github.com/povarna/generative-ai-agents/course-agent/internal/vectorstore"
)

var filterColumns = map[string]string{
	vectorstore.FieldCourseTitle:  "course_title",
	vectorstore.FieldLessonNumber: "lesson_number",
}

// whereClause renders the filter as a SQL WHERE clause whose placeholders
// start at $firstArg.
func whereClause(filter *vectorstore.Filter, firstArg int) (string, []any, error) {
	if filter == nil || len(filter.And) == 0 {
		return "", nil, nil
	}

	conditions := make([]string, 0, len(filter.And))
	args := make([]any, 0, len(filter.And))

	for i, eq := range filter.And {
		column, ok := filterColumns[eq.Field]
		if !ok {
			return "", nil, fmt.Errorf("unsupported filter field %q", eq.Field)
		}
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, firstArg+i))
		args = append(args, eq.Value)
	}

	return "WHERE " + strings.Join(conditions, " AND "), args, nil
}
