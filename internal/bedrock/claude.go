package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"
	"github.com/povarna/generative-ai-agents/course-agent/internal/llm"
)

// Claude API request format (what Bedrock expects)
type claudeMessageRequest struct {
	AnthropicVersion string          `json:"anthropic_version"`
	MaxTokens        int             `json:"max_tokens"`
	Temperature      float64         `json:"temperature"`
	System           string          `json:"system,omitempty"`
	Messages         []claudeMessage `json:"messages"`
	Tools            []claudeTool    `json:"tools,omitempty"`
	ToolChoice       *claudeChoice   `json:"tool_choice,omitempty"`
}

type claudeMessage struct {
	Role    string        `json:"role"`
	Content []claudeBlock `json:"content"`
}

type claudeBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
}

type claudeTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type claudeChoice struct {
	Type string `json:"type"`
}

// Claude API response format (what Bedrock returns)
type claudeMessageResponse struct {
	Content    []claudeBlock `json:"content"`
	StopReason string        `json:"stop_reason"`
}

var anthropicVersion = "bedrock-2023-05-31"

// CreateMessage sends the request to Claude, retrying transient failures.
func (c *Client) CreateMessage(ctx context.Context, request llm.Request) (*llm.Response, error) {
	body, err := buildPayload(request)
	if err != nil {
		return nil, err
	}

	var lastErr error
	attempts := max(c.MaxRetries, 1)

	for attempt := 0; attempt < attempts; attempt++ {
		response, err := c.invoke(ctx, body)
		if err == nil {
			return response, nil
		}

		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !isRetryableError(err) {
			return nil, fmt.Errorf("non-retryable error: %w", err)
		}
		if attempt == attempts-1 {
			break
		}

		delay := calculateBackoff(attempt, c.InitialDelay, c.MaxDelay)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("max retries %d exceeded: %w", attempts, lastErr)
}

func (c *Client) invoke(ctx context.Context, body []byte) (*llm.Response, error) {
	if c.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.CallTimeout)
		defer cancel()
	}

	output, err := c.Client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     &c.ModelID,
		Body:        body,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("Unable to invoke claude model. Error: %w", err)
	}

	return parseResponse(output.Body)
}

func buildPayload(request llm.Request) ([]byte, error) {
	payload := claudeMessageRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        request.MaxTokens,
		Temperature:      request.Temperature,
		System:           request.System,
	}

	for _, msg := range request.Messages {
		cm := claudeMessage{Role: msg.Role}
		for _, block := range msg.Content {
			cb, ok, err := toClaudeBlock(block)
			if err != nil {
				return nil, err
			}
			if ok {
				cm.Content = append(cm.Content, cb)
			}
		}
		payload.Messages = append(payload.Messages, cm)
	}

	if len(request.Tools) > 0 {
		for _, def := range request.Tools {
			payload.Tools = append(payload.Tools, claudeTool{
				Name:        def.Name,
				Description: def.Description,
				InputSchema: def.InputSchema,
			})
		}
		choice := request.ToolChoice
		if choice == "" {
			choice = "auto"
		}
		payload.ToolChoice = &claudeChoice{Type: choice}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("Unable to serialize claude request. Error: %w", err)
	}

	return body, nil
}

func toClaudeBlock(block llm.ContentBlock) (claudeBlock, bool, error) {
	switch block.Type {
	case llm.BlockText:
		if block.Text == "" {
			return claudeBlock{}, false, nil
		}
		return claudeBlock{Type: llm.BlockText, Text: block.Text}, true, nil
	case llm.BlockToolUse:
		input := json.RawMessage("{}")
		if len(block.Input) > 0 {
			raw, err := json.Marshal(block.Input)
			if err != nil {
				return claudeBlock{}, false, fmt.Errorf("unable to serialize tool input for %s: %w", block.Name, err)
			}
			input = raw
		}
		return claudeBlock{Type: llm.BlockToolUse, ID: block.ID, Name: block.Name, Input: input}, true, nil
	case llm.BlockToolResult:
		return claudeBlock{Type: llm.BlockToolResult, ToolUseID: block.ToolUseID, Content: block.Content}, true, nil
	default:
		return claudeBlock{}, false, fmt.Errorf("unsupported content block type %q", block.Type)
	}
}

func parseResponse(body []byte) (*llm.Response, error) {
	var response claudeMessageResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("Failed to unmarshal bedrock response. Error: %w", err)
	}

	result := &llm.Response{StopReason: response.StopReason}
	for _, block := range response.Content {
		switch block.Type {
		case llm.BlockText:
			result.Content = append(result.Content, llm.ContentBlock{Type: llm.BlockText, Text: block.Text})
		case llm.BlockToolUse:
			input := map[string]any{}
			if len(block.Input) > 0 {
				if err := json.Unmarshal(block.Input, &input); err != nil {
					return nil, fmt.Errorf("invalid tool input for %s: %w", block.Name, err)
				}
			}
			result.Content = append(result.Content, llm.ContentBlock{
				Type:  llm.BlockToolUse,
				ID:    block.ID,
				Name:  block.Name,
				Input: input,
			})
		}
	}

	return result, nil
}

var retryableCodes = map[string]bool{
	"ThrottlingException":         true,
	"TooManyRequestsException":    true,
	"ServiceUnavailableException": true,
	"InternalServerException":     true,
	"ModelNotReadyException":      true,
	"ModelTimeoutException":       true,
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && retryableCodes[apiErr.ErrorCode()] {
		return true
	}

	// Per-call timeout fired while the caller's context is still alive
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errStr := err.Error()

	// Throttling errors
	if strings.Contains(errStr, "Rate exceeded") ||
		strings.Contains(errStr, "ThrottlingException") {
		return true
	}

	// Service errors (5xx)
	if strings.Contains(errStr, "StatusCode: 500") ||
		strings.Contains(errStr, "StatusCode: 503") {
		return true
	}

	// Network errors
	if strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "EOF") ||
		strings.Contains(errStr, "timeout") {
		return true
	}

	return false
}

func calculateBackoff(attempt int, initialDelay, maxDelay time.Duration) time.Duration {
	backoff := float64(initialDelay) * math.Pow(2, float64(attempt))

	if backoff > float64(maxDelay) {
		backoff = float64(maxDelay)
	}

	jitter := backoff * 0.2 * (2*rand.Float64() - 1) // Random value between -20% and +20%
	backoff += jitter

	return time.Duration(backoff)
}
