package agent

import (
	"context"
	"fmt"

	"github.com/povarna/generative-ai-agents/course-agent/internal/llm"
	"github.com/povarna/generative-ai-agents/course-agent/internal/tool"
	"github.com/rs/zerolog"
)

//go:generate mockgen -source=generator.go -destination=mocks/mock_executor.go -package=mocks

const (
	DefaultMaxRounds   = 2
	DefaultMaxTokens   = 800
	DefaultTemperature = 0.0

	ToolsUnavailableMessage = "I need access to search tools to answer this question, but they are currently unavailable."
	TechnicalIssueMessage   = "I encountered a technical issue while processing your request. Please try again."
)

// ToolExecutor runs a named tool with model-supplied arguments.
type ToolExecutor interface {
	Execute(ctx context.Context, name string, args map[string]any) (tool.Result, error)
}

type GeneratorConfig struct {
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
	MaxRounds    int
}

// Generator drives the model through at most MaxRounds tool rounds and
// always finishes with a textual answer.
type Generator struct {
	client llm.Client
	cfg    GeneratorConfig
	logger *zerolog.Logger
}

type GenerateRequest struct {
	Query     string
	History   string
	Tools     []llm.ToolDefinition
	Executor  ToolExecutor
	MaxRounds int
}

type Answer struct {
	Text    string
	Sources []tool.Source
}

func NewGenerator(client llm.Client, cfg GeneratorConfig, logger *zerolog.Logger) *Generator {
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = DefaultMaxRounds
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Generator{
		client: client,
		cfg:    cfg,
		logger: logger,
	}
}

// Generate answers the query. Only a failure of the first model call is
// returned as an error; later provider failures degrade into text.
func (g *Generator) Generate(ctx context.Context, req GenerateRequest) (Answer, error) {
	maxRounds := req.MaxRounds
	if maxRounds <= 0 {
		maxRounds = g.cfg.MaxRounds
	}

	system := g.systemPrompt(req.History)
	messages := []llm.Message{llm.TextMessage(llm.RoleUser, req.Query)}

	response, err := g.client.CreateMessage(ctx, g.request(system, messages, req.Tools))
	if err != nil {
		return Answer{}, fmt.Errorf("model call failed: %w", err)
	}

	if !response.IsToolUse() {
		return Answer{Text: response.Text(), Sources: []tool.Source{}}, nil
	}

	if req.Executor == nil {
		g.logger.Warn().Msg("Model requested tools but no tool registry is configured")
		return Answer{Text: ToolsUnavailableMessage, Sources: []tool.Source{}}, nil
	}

	sources := []tool.Source{}
	round := 0

	for round < maxRounds && response.IsToolUse() {
		round++
		messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: response.Content})

		results, roundSources, failed := g.executeTools(ctx, req.Executor, response.ToolUses())
		if roundSources != nil {
			sources = roundSources
		}
		messages = append(messages, llm.Message{Role: llm.RoleUser, Content: results})

		if failed {
			g.logger.Warn().Int("round", round).Msg("Tool execution failed, forcing final answer")
			break
		}
		if round >= maxRounds {
			break
		}

		next, err := g.client.CreateMessage(ctx, g.request(system, messages, req.Tools))
		if err != nil {
			g.logger.Error().Err(err).Int("round", round).Msg("Model call failed during tool round")
			break
		}
		response = next
	}

	if !response.IsToolUse() {
		return Answer{Text: response.Text(), Sources: sources}, nil
	}

	final, err := g.client.CreateMessage(ctx, g.request(system, messages, nil))
	if err != nil {
		g.logger.Error().Err(err).Msg("Final model call failed")
		return Answer{Text: TechnicalIssueMessage, Sources: sources}, nil
	}

	return Answer{Text: final.Text(), Sources: sources}, nil
}

// executeTools runs every requested call in order. Failed calls still yield
// a tool_result block so the model sees all outcomes of the round.
func (g *Generator) executeTools(ctx context.Context, executor ToolExecutor, calls []llm.ContentBlock) ([]llm.ContentBlock, []tool.Source, bool) {
	results := make([]llm.ContentBlock, 0, len(calls))
	var sources []tool.Source
	failed := false

	for _, call := range calls {
		g.logger.Debug().
			Str("tool", call.Name).
			Interface("input", call.Input).
			Msg("Executing tool")

		result, err := executor.Execute(ctx, call.Name, call.Input)
		content := result.Content
		if err != nil {
			g.logger.Warn().Err(err).Str("tool", call.Name).Msg("Tool execution failed")
			content = fmt.Sprintf("Tool execution failed: %s", err.Error())
			failed = true
		} else if result.Sources != nil {
			sources = result.Sources
		}

		results = append(results, llm.ContentBlock{
			Type:      llm.BlockToolResult,
			ToolUseID: call.ID,
			Content:   content,
		})
	}

	return results, sources, failed
}

func (g *Generator) request(system string, messages []llm.Message, tools []llm.ToolDefinition) llm.Request {
	req := llm.Request{
		System:      system,
		Messages:    append([]llm.Message(nil), messages...),
		Temperature: g.cfg.Temperature,
		MaxTokens:   g.cfg.MaxTokens,
	}
	if len(tools) > 0 {
		req.Tools = tools
		req.ToolChoice = "auto"
	}
	return req
}

func (g *Generator) systemPrompt(history string) string {
	if history == "" {
		return g.cfg.SystemPrompt
	}
	return g.cfg.SystemPrompt + "\n\nPrevious conversation:\n" + history
}
