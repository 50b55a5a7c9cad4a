package gpt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/povarna/generative-ai-agents/course-agent/internal/llm"
)

func (c *Client) CreateMessage(ctx context.Context, request llm.Request) (*llm.Response, error) {
	messages, err := toOpenAIMessages(request)
	if err != nil {
		return nil, err
	}

	params := openai.ChatCompletionNewParams{
		Messages:            messages,
		MaxCompletionTokens: openai.Int(int64(request.MaxTokens)),
		Temperature:         openai.Float(request.Temperature),
		Model:               openai.ChatModel(c.ModelID),
	}

	if len(request.Tools) > 0 {
		params.Tools = toOpenAITools(request.Tools)
		params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
			OfAuto: openai.String("auto"),
		}
	}

	output, err := c.Client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("unable to invoke gpt model. Error: %w", err)
	}

	if len(output.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	choice := output.Choices[0]
	return fromOpenAIMessage(choice.FinishReason, choice.Message.Content, choice.Message.ToolCalls)
}

func toOpenAIMessages(request llm.Request) ([]openai.ChatCompletionMessageParamUnion, error) {
	var messages []openai.ChatCompletionMessageParamUnion

	if request.System != "" {
		messages = append(messages, openai.SystemMessage(request.System))
	}

	for _, msg := range request.Messages {
		switch msg.Role {
		case llm.RoleUser:
			var texts []string
			for _, block := range msg.Content {
				switch block.Type {
				case llm.BlockToolResult:
					messages = append(messages, openai.ToolMessage(block.Content, block.ToolUseID))
				case llm.BlockText:
					texts = append(texts, block.Text)
				}
			}
			if len(texts) > 0 {
				messages = append(messages, openai.UserMessage(strings.Join(texts, "\n")))
			}
		case llm.RoleAssistant:
			assistant := openai.ChatCompletionAssistantMessageParam{}
			var texts []string
			for _, block := range msg.Content {
				switch block.Type {
				case llm.BlockText:
					texts = append(texts, block.Text)
				case llm.BlockToolUse:
					args, err := json.Marshal(block.Input)
					if err != nil {
						return nil, fmt.Errorf("unable to serialize tool arguments for %s: %w", block.Name, err)
					}
					assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
						ID: block.ID,
						Function: openai.ChatCompletionMessageToolCallFunctionParam{
							Name:      block.Name,
							Arguments: string(args),
						},
					})
				}
			}
			if len(texts) > 0 {
				assistant.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
					OfString: openai.String(strings.Join(texts, "\n")),
				}
			}
			messages = append(messages, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
		default:
			return nil, fmt.Errorf("unsupported message role %q", msg.Role)
		}
	}

	return messages, nil
}

func toOpenAITools(defs []llm.ToolDefinition) []openai.ChatCompletionToolParam {
	tools := make([]openai.ChatCompletionToolParam, 0, len(defs))
	for _, def := range defs {
		tools = append(tools, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        def.Name,
				Description: openai.String(def.Description),
				Parameters:  openai.FunctionParameters(def.InputSchema),
			},
		})
	}
	return tools
}

func fromOpenAIMessage(finishReason string, content string, toolCalls []openai.ChatCompletionMessageToolCall) (*llm.Response, error) {
	response := &llm.Response{StopReason: llm.StopEndTurn}

	if content != "" {
		response.Content = append(response.Content, llm.ContentBlock{Type: llm.BlockText, Text: content})
	}

	for _, call := range toolCalls {
		input := map[string]any{}
		if call.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(call.Function.Arguments), &input); err != nil {
				return nil, fmt.Errorf("invalid tool arguments for %s: %w", call.Function.Name, err)
			}
		}
		response.Content = append(response.Content, llm.ContentBlock{
			Type:  llm.BlockToolUse,
			ID:    call.ID,
			Name:  call.Function.Name,
			Input: input,
		})
	}

	if finishReason == "tool_calls" && len(toolCalls) > 0 {
		response.StopReason = llm.StopToolUse
	}

	return response, nil
}
