package tool

import (
	"context"

	"github.com/povarna/generative-ai-agents/course-agent/internal/llm"
)

// Source is a citation back to the course material behind an answer.
type Source struct {
	Text string `json:"text" description:"Course and lesson label"`
	Link string `json:"link,omitempty" description:"Lesson link when known"`
}

// Result is what a tool hands back to the model. Sources is nil when the
// tool does not cite anything; a non-nil empty slice means "cited nothing
// this time" and replaces earlier citations.
type Result struct {
	Content string
	Sources []Source
}

type Tool interface {
	Definition() llm.ToolDefinition
	Run(ctx context.Context, args map[string]any) (Result, error)
}

// SourceTracker is implemented by tools that remember the citations of
// their most recent run.
type SourceTracker interface {
	LastSources() []Source
	ResetSources()
}
