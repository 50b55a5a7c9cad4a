package config

// PromptsConfig holds the model instructions and generation limits used by
// the course assistant.
type PromptsConfig struct {
	Assistant  AssistantConfig  `yaml:"assistant"`
	Generation GenerationConfig `yaml:"generation"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Session    SessionConfig    `yaml:"session"`
}

type AssistantConfig struct {
	SystemPrompt  string `yaml:"system_prompt"`
	QueryTemplate string `yaml:"query_template"`
}

type GenerationConfig struct {
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	MaxRounds   int     `yaml:"max_rounds"`
}

type RetrievalConfig struct {
	MaxResults int `yaml:"max_results"`
}

type SessionConfig struct {
	MaxHistory int `yaml:"max_history"`
}
