package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/povarna/generative-ai-agents/course-agent/internal/llm"
	"github.com/xeipuuv/gojsonschema"
)

var (
	ErrToolNotFound     = errors.New("tool not found")
	ErrInvalidArguments = errors.New("invalid tool arguments")
)

type entry struct {
	tool   Tool
	schema *gojsonschema.Schema
}

// Registry holds tools by name in registration order.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
	order   []string
}

func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]entry),
	}
}

// Register stores the tool under its declared name. Registering the same
// name again replaces the earlier tool and keeps its position.
func (r *Registry) Register(t Tool) error {
	def := t.Definition()
	if def.Name == "" {
		return fmt.Errorf("tool must declare a name")
	}

	var schema *gojsonschema.Schema
	if len(def.InputSchema) > 0 {
		compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(def.InputSchema))
		if err != nil {
			return fmt.Errorf("invalid input schema for tool %q: %w", def.Name, err)
		}
		schema = compiled
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[def.Name]; !exists {
		r.order = append(r.order, def.Name)
	}
	r.entries[def.Name] = entry{tool: t, schema: schema}

	return nil
}

func (r *Registry) Definitions() []llm.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]llm.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.entries[name].tool.Definition())
	}
	return defs
}

// Execute validates args against the tool's schema and runs it.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (Result, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrToolNotFound, name)
	}

	args = withoutNulls(args)

	if e.schema != nil {
		if err := validateArgs(e.schema, args); err != nil {
			return Result{}, fmt.Errorf("%w for %q: %v", ErrInvalidArguments, name, err)
		}
	}

	return e.tool.Run(ctx, args)
}

// LastSources returns the first non-empty citation list among the tracking
// tools, in registration order.
func (r *Registry) LastSources() []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range r.order {
		tracker, ok := r.entries[name].tool.(SourceTracker)
		if !ok {
			continue
		}
		if sources := tracker.LastSources(); len(sources) > 0 {
			return sources
		}
	}
	return []Source{}
}

func (r *Registry) ResetSources() {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range r.order {
		if tracker, ok := r.entries[name].tool.(SourceTracker); ok {
			tracker.ResetSources()
		}
	}
}

// withoutNulls treats explicit nulls as omitted optional arguments.
func withoutNulls(args map[string]any) map[string]any {
	cleaned := make(map[string]any, len(args))
	for key, value := range args {
		if value != nil {
			cleaned[key] = value
		}
	}
	return cleaned
}

func validateArgs(schema *gojsonschema.Schema, args map[string]any) error {
	argBytes, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("arguments are not serializable: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(argBytes))
	if err != nil {
		return err
	}
	if result.Valid() {
		return nil
	}

	var details []string
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
	}
	return fmt.Errorf("arguments failed validation: %s", strings.Join(details, "; "))
}
