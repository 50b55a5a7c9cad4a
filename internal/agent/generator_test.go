package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/povarna/generative-ai-agents/course-agent/internal/agent/mocks"
	"github.com/povarna/generative-ai-agents/course-agent/internal/llm"
	llmmocks "github.com/povarna/generative-ai-agents/course-agent/internal/llm/mocks"
	"github.com/povarna/generative-ai-agents/course-agent/internal/tool"
	"go.uber.org/mock/gomock"
)

var searchDefinition = llm.ToolDefinition{
	Name:        "search_course_content",
	Description: "Search course materials",
	InputSchema: map[string]any{"type": "object"},
}

func textResponse(text string) *llm.Response {
	return &llm.Response{
		StopReason: llm.StopEndTurn,
		Content:    []llm.ContentBlock{{Type: llm.BlockText, Text: text}},
	}
}

func toolResponse(calls ...llm.ContentBlock) *llm.Response {
	return &llm.Response{StopReason: llm.StopToolUse, Content: calls}
}

func searchCall(id string, query string) llm.ContentBlock {
	return llm.ContentBlock{
		Type:  llm.BlockToolUse,
		ID:    id,
		Name:  "search_course_content",
		Input: map[string]any{"query": query},
	}
}

func newTestGenerator(client llm.Client) *Generator {
	return NewGenerator(client, GeneratorConfig{SystemPrompt: "You are a course assistant."}, nil)
}

func TestGenerate_DirectAnswer(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := llmmocks.NewMockClient(ctrl)
	executor := mocks.NewMockToolExecutor(ctrl)

	client.EXPECT().
		CreateMessage(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, req llm.Request) (*llm.Response, error) {
			if req.ToolChoice != "auto" || len(req.Tools) != 1 {
				t.Errorf("expected tools offered with auto choice, got %q / %d", req.ToolChoice, len(req.Tools))
			}
			if req.MaxTokens != DefaultMaxTokens || req.Temperature != 0 {
				t.Errorf("unexpected generation params: %d / %f", req.MaxTokens, req.Temperature)
			}
			return textResponse("Python is a programming language."), nil
		}).
		Times(1)

	answer, err := newTestGenerator(client).Generate(context.Background(), GenerateRequest{
		Query:    "What is Python?",
		Tools:    []llm.ToolDefinition{searchDefinition},
		Executor: executor,
	})
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	if answer.Text != "Python is a programming language." {
		t.Errorf("unexpected answer %q", answer.Text)
	}
	if answer.Sources == nil || len(answer.Sources) != 0 {
		t.Errorf("expected empty sources, got %v", answer.Sources)
	}
}

func TestGenerate_SingleToolRound(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := llmmocks.NewMockClient(ctrl)
	executor := mocks.NewMockToolExecutor(ctrl)

	sources := []tool.Source{
		{Text: "Python Fundamentals - Lesson 1"},
		{Text: "Python Fundamentals - Lesson 2"},
	}

	gomock.InOrder(
		client.EXPECT().
			CreateMessage(gomock.Any(), gomock.Any()).
			Return(toolResponse(searchCall("toolu_1", "Python basics")), nil),
		executor.EXPECT().
			Execute(gomock.Any(), "search_course_content", map[string]any{"query": "Python basics"}).
			Return(tool.Result{Content: "[Python Fundamentals - Lesson 1]\n...", Sources: sources}, nil),
		client.EXPECT().
			CreateMessage(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, req llm.Request) (*llm.Response, error) {
				if len(req.Messages) != 3 {
					t.Fatalf("expected 3 messages, got %d", len(req.Messages))
				}
				if req.Messages[1].Role != llm.RoleAssistant || req.Messages[2].Role != llm.RoleUser {
					t.Errorf("unexpected roles: %s, %s", req.Messages[1].Role, req.Messages[2].Role)
				}
				result := req.Messages[2].Content[0]
				if result.Type != llm.BlockToolResult || result.ToolUseID != "toolu_1" {
					t.Errorf("unexpected tool result block: %+v", result)
				}
				if len(req.Tools) != 1 {
					t.Error("expected tools to stay available for the next round")
				}
				return textResponse("Python is a language covered in lessons 1 and 2."), nil
			}),
	)

	answer, err := newTestGenerator(client).Generate(context.Background(), GenerateRequest{
		Query:    "What is Python?",
		Tools:    []llm.ToolDefinition{searchDefinition},
		Executor: executor,
	})
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	if answer.Text != "Python is a language covered in lessons 1 and 2." {
		t.Errorf("unexpected answer %q", answer.Text)
	}
	if len(answer.Sources) != 2 || answer.Sources[1].Text != "Python Fundamentals - Lesson 2" {
		t.Errorf("unexpected sources %+v", answer.Sources)
	}
}

func TestGenerate_ToolErrorTextReachesModel(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := llmmocks.NewMockClient(ctrl)
	executor := mocks.NewMockToolExecutor(ctrl)

	gomock.InOrder(
		client.EXPECT().
			CreateMessage(gomock.Any(), gomock.Any()).
			Return(toolResponse(searchCall("toolu_1", "anything")), nil),
		executor.EXPECT().
			Execute(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(tool.Result{Content: "No course found matching 'Nonexistent Course'", Sources: []tool.Source{}}, nil),
		client.EXPECT().
			CreateMessage(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, req llm.Request) (*llm.Response, error) {
				got := req.Messages[2].Content[0].Content
				if got != "No course found matching 'Nonexistent Course'" {
					t.Errorf("expected tool output verbatim, got %q", got)
				}
				return textResponse("I could not find that course."), nil
			}),
	)

	answer, err := newTestGenerator(client).Generate(context.Background(), GenerateRequest{
		Query:    "What is in the Nonexistent Course?",
		Tools:    []llm.ToolDefinition{searchDefinition},
		Executor: executor,
	})
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	if answer.Text != "I could not find that course." || len(answer.Sources) != 0 {
		t.Errorf("unexpected answer %+v", answer)
	}
}

func TestGenerate_FailingToolForcesFinalAnswer(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := llmmocks.NewMockClient(ctrl)
	executor := mocks.NewMockToolExecutor(ctrl)

	gomock.InOrder(
		client.EXPECT().
			CreateMessage(gomock.Any(), gomock.Any()).
			Return(toolResponse(searchCall("toolu_1", "first"), searchCall("toolu_2", "second")), nil),
		executor.EXPECT().
			Execute(gomock.Any(), gomock.Any(), map[string]any{"query": "first"}).
			Return(tool.Result{Content: "partial hit", Sources: []tool.Source{{Text: "Course A - Lesson 1"}}}, nil),
		executor.EXPECT().
			Execute(gomock.Any(), gomock.Any(), map[string]any{"query": "second"}).
			Return(tool.Result{}, errors.New("connection reset")),
		client.EXPECT().
			CreateMessage(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, req llm.Request) (*llm.Response, error) {
				if req.Tools != nil || req.ToolChoice != "" {
					t.Error("expected final call without tools")
				}
				results := req.Messages[2].Content
				if len(results) != 2 {
					t.Fatalf("expected both tool results delivered, got %d", len(results))
				}
				if results[0].Content != "partial hit" {
					t.Errorf("expected partial result kept, got %q", results[0].Content)
				}
				if results[1].Content != "Tool execution failed: connection reset" {
					t.Errorf("unexpected failure content %q", results[1].Content)
				}
				return textResponse("Here is what I found so far."), nil
			}),
	)

	answer, err := newTestGenerator(client).Generate(context.Background(), GenerateRequest{
		Query:    "Compare two courses",
		Tools:    []llm.ToolDefinition{searchDefinition},
		Executor: executor,
	})
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	if answer.Text != "Here is what I found so far." {
		t.Errorf("unexpected answer %q", answer.Text)
	}
	if len(answer.Sources) != 1 || answer.Sources[0].Text != "Course A - Lesson 1" {
		t.Errorf("unexpected sources %+v", answer.Sources)
	}
}

func TestGenerate_RoundCapDropsTools(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := llmmocks.NewMockClient(ctrl)
	executor := mocks.NewMockToolExecutor(ctrl)

	var requests []llm.Request
	client.EXPECT().
		CreateMessage(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, req llm.Request) (*llm.Response, error) {
			requests = append(requests, req)
			if len(req.Tools) == 0 {
				return textResponse("Final answer without more searching."), nil
			}
			return toolResponse(searchCall("toolu_x", "again")), nil
		}).
		AnyTimes()
	executor.EXPECT().
		Execute(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(tool.Result{Content: "hit"}, nil).
		Times(2)

	answer, err := newTestGenerator(client).Generate(context.Background(), GenerateRequest{
		Query:    "Search forever",
		Tools:    []llm.ToolDefinition{searchDefinition},
		Executor: executor,
	})
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	if answer.Text != "Final answer without more searching." {
		t.Errorf("unexpected answer %q", answer.Text)
	}
	if len(requests) > DefaultMaxRounds+2 {
		t.Errorf("expected at most %d model calls, got %d", DefaultMaxRounds+2, len(requests))
	}
	if len(requests) != 3 {
		t.Errorf("expected 3 model calls, got %d", len(requests))
	}
	if last := requests[len(requests)-1]; last.Tools != nil {
		t.Error("expected last call to omit tools")
	}
}

func TestGenerate_CustomMaxRounds(t *testing.T) {
	for _, rounds := range []int{1, 3} {
		t.Run(fmt.Sprintf("rounds=%d", rounds), func(t *testing.T) {
			ctrl := gomock.NewController(t)
			client := llmmocks.NewMockClient(ctrl)
			executor := mocks.NewMockToolExecutor(ctrl)

			calls := 0
			client.EXPECT().
				CreateMessage(gomock.Any(), gomock.Any()).
				DoAndReturn(func(ctx context.Context, req llm.Request) (*llm.Response, error) {
					calls++
					if req.Tools == nil {
						return textResponse("done"), nil
					}
					return toolResponse(searchCall("toolu", "q")), nil
				}).
				AnyTimes()
			executor.EXPECT().
				Execute(gomock.Any(), gomock.Any(), gomock.Any()).
				Return(tool.Result{Content: "hit"}, nil).
				Times(rounds)

			_, err := newTestGenerator(client).Generate(context.Background(), GenerateRequest{
				Query:     "q",
				Tools:     []llm.ToolDefinition{searchDefinition},
				Executor:  executor,
				MaxRounds: rounds,
			})
			if err != nil {
				t.Fatalf("Generate() failed: %v", err)
			}
			if calls != rounds+1 {
				t.Errorf("expected %d model calls, got %d", rounds+1, calls)
			}
		})
	}
}

func TestGenerate_NextRoundErrorFallsThrough(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := llmmocks.NewMockClient(ctrl)
	executor := mocks.NewMockToolExecutor(ctrl)

	gomock.InOrder(
		client.EXPECT().
			CreateMessage(gomock.Any(), gomock.Any()).
			Return(toolResponse(searchCall("toolu_1", "q")), nil),
		executor.EXPECT().
			Execute(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(tool.Result{Content: "hit"}, nil),
		client.EXPECT().
			CreateMessage(gomock.Any(), gomock.Any()).
			Return(nil, errors.New("throttled")),
		client.EXPECT().
			CreateMessage(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, req llm.Request) (*llm.Response, error) {
				if req.Tools != nil {
					t.Error("expected final call without tools")
				}
				return textResponse("Recovered answer."), nil
			}),
	)

	answer, err := newTestGenerator(client).Generate(context.Background(), GenerateRequest{
		Query:    "q",
		Tools:    []llm.ToolDefinition{searchDefinition},
		Executor: executor,
	})
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	if answer.Text != "Recovered answer." {
		t.Errorf("unexpected answer %q", answer.Text)
	}
}

func TestGenerate_FinalCallErrorReturnsFallback(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := llmmocks.NewMockClient(ctrl)
	executor := mocks.NewMockToolExecutor(ctrl)

	gomock.InOrder(
		client.EXPECT().
			CreateMessage(gomock.Any(), gomock.Any()).
			Return(toolResponse(searchCall("toolu_1", "q")), nil),
		executor.EXPECT().
			Execute(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(tool.Result{}, errors.New("index offline")),
		client.EXPECT().
			CreateMessage(gomock.Any(), gomock.Any()).
			Return(nil, errors.New("service unavailable")),
	)

	answer, err := newTestGenerator(client).Generate(context.Background(), GenerateRequest{
		Query:    "q",
		Tools:    []llm.ToolDefinition{searchDefinition},
		Executor: executor,
	})
	if err != nil {
		t.Fatalf("expected fallback text, got error %v", err)
	}
	if answer.Text != TechnicalIssueMessage {
		t.Errorf("unexpected answer %q", answer.Text)
	}
}

func TestGenerate_FirstCallErrorPropagates(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := llmmocks.NewMockClient(ctrl)

	providerErr := errors.New("access denied")
	client.EXPECT().
		CreateMessage(gomock.Any(), gomock.Any()).
		Return(nil, providerErr)

	_, err := newTestGenerator(client).Generate(context.Background(), GenerateRequest{Query: "q"})
	if !errors.Is(err, providerErr) {
		t.Errorf("expected wrapped provider error, got %v", err)
	}
}

func TestGenerate_NoExecutor(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := llmmocks.NewMockClient(ctrl)

	client.EXPECT().
		CreateMessage(gomock.Any(), gomock.Any()).
		Return(toolResponse(searchCall("toolu_1", "q")), nil).
		Times(1)

	answer, err := newTestGenerator(client).Generate(context.Background(), GenerateRequest{
		Query: "q",
		Tools: []llm.ToolDefinition{searchDefinition},
	})
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	if answer.Text != ToolsUnavailableMessage {
		t.Errorf("unexpected answer %q", answer.Text)
	}
	if len(answer.Sources) != 0 {
		t.Errorf("expected no sources, got %v", answer.Sources)
	}
}

func TestGenerate_HistoryInSystemPrompt(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := llmmocks.NewMockClient(ctrl)

	client.EXPECT().
		CreateMessage(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, req llm.Request) (*llm.Response, error) {
			want := "You are a course assistant.\n\nPrevious conversation:\nUser: hi\nAssistant: hello"
			if req.System != want {
				t.Errorf("unexpected system prompt %q", req.System)
			}
			if req.Tools != nil {
				t.Error("expected no tools when none are given")
			}
			return textResponse("ok"), nil
		})

	_, err := newTestGenerator(client).Generate(context.Background(), GenerateRequest{
		Query:   "and then?",
		History: "User: hi\nAssistant: hello",
	})
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
}

func TestGenerate_SameCallShapeOnRepeat(t *testing.T) {
	run := func() int {
		ctrl := gomock.NewController(t)
		client := llmmocks.NewMockClient(ctrl)
		executor := mocks.NewMockToolExecutor(ctrl)

		calls := 0
		client.EXPECT().
			CreateMessage(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, req llm.Request) (*llm.Response, error) {
				calls++
				if calls == 1 {
					return toolResponse(searchCall("toolu_1", "q")), nil
				}
				return textResponse("answer"), nil
			}).
			AnyTimes()
		executor.EXPECT().
			Execute(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(tool.Result{Content: "hit"}, nil).
			Times(1)

		if _, err := newTestGenerator(client).Generate(context.Background(), GenerateRequest{
			Query:    "q",
			Tools:    []llm.ToolDefinition{searchDefinition},
			Executor: executor,
		}); err != nil {
			t.Fatalf("Generate() failed: %v", err)
		}
		return calls
	}

	if first, second := run(), run(); first != second || first != 2 {
		t.Errorf("expected identical call counts of 2, got %d and %d", first, second)
	}
}
