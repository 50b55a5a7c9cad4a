package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"
)

const DefaultSystemPrompt = `You are an AI assistant specialized in course materials and educational content with access to a comprehensive search tool for course information.

Search Tool Usage:
- Use the search tool **only** for questions about specific course content or detailed educational materials
- **At most two searches per query**
- Synthesize search results into accurate, fact-based responses
- If search yields no results, state this clearly without offering alternatives

Response Protocol:
- **General knowledge questions**: Answer using existing knowledge without searching
- **Course-specific questions**: Search first, then answer
- **No meta-commentary**:
  - Provide direct answers only, no reasoning process, search explanations, or question-type analysis
  - Do not mention "based on the search results"

All responses must be:
1. **Brief, concise and focused** - Get to the point quickly
2. **Educational** - Maintain instructional value
3. **Clear** - Use accessible language
4. **Example-supported** - Include relevant examples when they aid understanding
Provide only the direct answer to what was asked.`

const DefaultQueryTemplate = "Answer this question about course materials: %s"

// LoadPromptsConfig reads PROMPTS_CONFIG_PATH (default configs/prompts.yaml).
// A missing file yields the built-in defaults.
func LoadPromptsConfig() (*PromptsConfig, error) {
	path := os.Getenv("PROMPTS_CONFIG_PATH")
	if path == "" {
		path = "configs/prompts.yaml"
	}

	var cfg PromptsConfig

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(cfg *PromptsConfig) {
	if cfg.Assistant.SystemPrompt == "" {
		cfg.Assistant.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.Assistant.QueryTemplate == "" {
		cfg.Assistant.QueryTemplate = DefaultQueryTemplate
	}
	if cfg.Generation.MaxTokens == 0 {
		cfg.Generation.MaxTokens = 800
	}
	if cfg.Generation.MaxRounds == 0 {
		cfg.Generation.MaxRounds = 2
	}
	if cfg.Retrieval.MaxResults == 0 {
		cfg.Retrieval.MaxResults = 5
	}
	if cfg.Session.MaxHistory == 0 {
		cfg.Session.MaxHistory = 2
	}
}

func (p *PromptsConfig) Validate() error {
	if strings.Count(p.Assistant.QueryTemplate, "%s") != 1 {
		return fmt.Errorf("query_template must contain exactly one %%s placeholder")
	}
	if p.Generation.Temperature < 0 || p.Generation.Temperature > 1 {
		return fmt.Errorf("temperature must be between 0 and 1, got %f", p.Generation.Temperature)
	}
	if p.Generation.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must not be negative, got %d", p.Generation.MaxTokens)
	}
	if p.Generation.MaxRounds < 1 {
		return fmt.Errorf("max_rounds must be at least 1, got %d", p.Generation.MaxRounds)
	}
	if p.Retrieval.MaxResults < 1 {
		return fmt.Errorf("max_results must be at least 1, got %d", p.Retrieval.MaxResults)
	}
	if p.Session.MaxHistory < 0 {
		return fmt.Errorf("max_history must not be negative, got %d", p.Session.MaxHistory)
	}
	return nil
}
