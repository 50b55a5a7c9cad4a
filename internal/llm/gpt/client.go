package gpt

import (
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	DefaultMaxRetries  = 3
	DefaultCallTimeout = 60 * time.Second
)

type Client struct {
	Client      openai.Client
	ModelID     string
	MaxRetries  int
	CallTimeout time.Duration
}

// NewClient builds an OpenAI client. A negative maxRetries or non-positive
// timeout falls back to the defaults.
func NewClient(apiKey string, model string, maxRetries int, timeout time.Duration) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if model == "" {
		return nil, fmt.Errorf("OpenAI model ID is required")
	}
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}

	openaiClient := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(maxRetries),
		option.WithRequestTimeout(timeout),
	)

	return &Client{
		Client:      openaiClient,
		ModelID:     model,
		MaxRetries:  maxRetries,
		CallTimeout: timeout,
	}, nil
}
