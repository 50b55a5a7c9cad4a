package agent

import "github.com/povarna/generative-ai-agents/course-agent/internal/tool"

const DefaultQueryTemplate = "Answer this question about course materials: %s"

type QueryRequest struct {
	Query     string `json:"query" description:"Question about the course materials"`
	SessionID string `json:"session_id,omitempty" description:"Conversation session to continue"`
}

type QueryResponse struct {
	Answer    string        `json:"answer" description:"Generated answer"`
	Sources   []tool.Source `json:"sources" description:"Lessons the answer was grounded on"`
	SessionID string        `json:"session_id" description:"Conversation session id"`
}

type CourseStats struct {
	TotalCourses int      `json:"total_courses" description:"Number of indexed courses"`
	CourseTitles []string `json:"course_titles" description:"Titles of indexed courses"`
}
