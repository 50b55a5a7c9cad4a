package bedrock

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/smithy-go"
	"github.com/povarna/generative-ai-agents/course-agent/internal/llm"
)

func TestBuildPayload_WithToolsAndToolResults(t *testing.T) {
	request := llm.Request{
		System:      "system prompt",
		Temperature: 0,
		MaxTokens:   800,
		Tools: []llm.ToolDefinition{
			{Name: "search_course_content", Description: "search", InputSchema: map[string]any{"type": "object"}},
		},
		Messages: []llm.Message{
			llm.TextMessage(llm.RoleUser, "What is Python?"),
			{Role: llm.RoleAssistant, Content: []llm.ContentBlock{
				{Type: llm.BlockToolUse, ID: "toolu_1", Name: "search_course_content"},
			}},
			{Role: llm.RoleUser, Content: []llm.ContentBlock{
				{Type: llm.BlockToolResult, ToolUseID: "toolu_1", Content: "results"},
			}},
		},
	}

	body, err := buildPayload(request)
	if err != nil {
		t.Fatalf("buildPayload() failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}

	if decoded["anthropic_version"] != anthropicVersion {
		t.Errorf("unexpected anthropic_version: %v", decoded["anthropic_version"])
	}
	if decoded["system"] != "system prompt" {
		t.Errorf("unexpected system: %v", decoded["system"])
	}
	choice, ok := decoded["tool_choice"].(map[string]any)
	if !ok || choice["type"] != "auto" {
		t.Errorf("expected tool_choice auto, got %v", decoded["tool_choice"])
	}

	messages := decoded["messages"].([]any)
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}

	toolUse := messages[1].(map[string]any)["content"].([]any)[0].(map[string]any)
	if _, ok := toolUse["input"].(map[string]any); !ok {
		t.Errorf("tool_use block must always carry an input object, got %v", toolUse["input"])
	}

	toolResult := messages[2].(map[string]any)["content"].([]any)[0].(map[string]any)
	if toolResult["tool_use_id"] != "toolu_1" {
		t.Errorf("tool_result must reference the tool_use id, got %v", toolResult["tool_use_id"])
	}
}

func TestBuildPayload_NoToolsOmitsToolChoice(t *testing.T) {
	body, err := buildPayload(llm.Request{
		MaxTokens: 100,
		Messages:  []llm.Message{llm.TextMessage(llm.RoleUser, "hi")},
	})
	if err != nil {
		t.Fatalf("buildPayload() failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if _, ok := decoded["tools"]; ok {
		t.Error("tools must be omitted when none are offered")
	}
	if _, ok := decoded["tool_choice"]; ok {
		t.Error("tool_choice must be omitted when no tools are offered")
	}
}

func TestParseResponse_ToolUse(t *testing.T) {
	body := []byte(`{
		"content": [
			{"type": "text", "text": "Searching"},
			{"type": "tool_use", "id": "toolu_9", "name": "search_course_content", "input": {"query": "Python basics", "lesson_number": 2}}
		],
		"stop_reason": "tool_use"
	}`)

	resp, err := parseResponse(body)
	if err != nil {
		t.Fatalf("parseResponse() failed: %v", err)
	}

	if !resp.IsToolUse() {
		t.Errorf("expected tool_use stop reason, got %s", resp.StopReason)
	}
	uses := resp.ToolUses()
	if len(uses) != 1 {
		t.Fatalf("expected 1 tool use, got %d", len(uses))
	}
	if uses[0].Input["query"] != "Python basics" {
		t.Errorf("unexpected tool input: %v", uses[0].Input)
	}
	if resp.Text() != "Searching" {
		t.Errorf("unexpected text: %q", resp.Text())
	}
}

func TestParseResponse_InvalidJSON(t *testing.T) {
	if _, err := parseResponse([]byte("not json")); err == nil {
		t.Error("expected error for invalid body")
	}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"throttling api error", fmt.Errorf("wrapped: %w", &smithy.GenericAPIError{Code: "ThrottlingException"}), true},
		{"validation api error", &smithy.GenericAPIError{Code: "ValidationException"}, false},
		{"connection reset", errors.New("read: connection reset by peer"), true},
		{"access denied", errors.New("AccessDeniedException: not allowed"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryableError(tt.err); got != tt.want {
				t.Errorf("isRetryableError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff_CappedWithJitter(t *testing.T) {
	initial := 100 * time.Millisecond
	maxDelay := time.Second

	for attempt := 0; attempt < 10; attempt++ {
		delay := calculateBackoff(attempt, initial, maxDelay)
		if delay <= 0 {
			t.Errorf("attempt %d: expected positive delay, got %v", attempt, delay)
		}
		if delay > time.Duration(float64(maxDelay)*1.2) {
			t.Errorf("attempt %d: delay %v exceeds cap plus jitter", attempt, delay)
		}
	}
}
