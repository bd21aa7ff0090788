// Package reasoning implements the ReAct tool-calling loop of spec.md
// §4.7: an LLM alternates between text and tool calls, with a hard
// iteration cap, until it produces a final reply. Grounded on the
// request/response/tool-invocation cycle of
// ai/model/chat/tool.go's ToolInvokeResult (simplified: this service
// has one reasoning backend, one fixed tool catalog, and no
// return-direct/external-tool distinction — every tool call is
// executed immediately against its loopback binding).
package reasoning

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/lingxi-album/backend/internal/errs"
	"github.com/lingxi-album/backend/internal/model"
	"github.com/lingxi-album/backend/internal/tool"
)

// DefaultMaxIterations is the ReAct loop's default iteration budget, per
// spec.md §4.7.
const DefaultMaxIterations = 15

// LatencySensitiveMaxIterations is the reduced budget spec.md §4.7
// names for latency-sensitive profiles.
const LatencySensitiveMaxIterations = 6

const defaultSystemPrompt = "You are a helpful assistant for a semantic photo library. " +
	"Use the available tools to search, inspect, edit, and manage the user's photos. " +
	"When you reference a photo in your reply, include a Markdown image link in the form " +
	"![description](/images/{image_id}) so the image can be previewed."

// Engine runs the bounded ReAct loop against an Anthropic model,
// executing tool calls through the tool registry's loopback bindings.
type Engine struct {
	client        anthropic.Client
	model         anthropic.Model
	registry      *tool.Registry
	invoker       *tool.Invoker
	maxIterations int
	systemPrompt  string
	log           *slog.Logger
}

// Config configures an Engine.
type Config struct {
	APIKey        string
	Model         anthropic.Model
	BaseURL       string // this service's own loopback base URL, for tool bindings
	MaxIterations int
	SystemPrompt  string
	Logger        *slog.Logger
}

// New creates an Engine wired to registry, bound to invoke tools against
// cfg.BaseURL.
func New(cfg Config, registry *tool.Registry) *Engine {
	maxIter := cfg.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}
	prompt := cfg.SystemPrompt
	if prompt == "" {
		prompt = defaultSystemPrompt
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var opts []option.RequestOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}

	return &Engine{
		client:        anthropic.NewClient(opts...),
		model:         cfg.Model,
		registry:      registry,
		invoker:       tool.NewInvoker(cfg.BaseURL, 0),
		maxIterations: maxIter,
		systemPrompt:  prompt,
		log:           logger,
	}
}

// Run executes the bounded tool-use loop for one user query, given the
// session's prior history (used only to seed conversational context;
// this engine does not persist messages itself — callers own history
// via model.Session). On iteration exhaustion, it returns the last
// assistant text produced, per spec.md §4.7.
func (e *Engine) Run(ctx context.Context, query string, history []model.HistoryEntry) (string, error) {
	messages := historyToMessages(history)
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(query)))

	tools := e.toolParams()
	lastText := ""

	for i := 0; i < e.maxIterations; i++ {
		resp, err := e.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     e.model,
			MaxTokens: 2048,
			System:    []anthropic.TextBlockParam{{Text: e.systemPrompt}},
			Messages:  messages,
			Tools:     tools,
		})
		if err != nil {
			return "", errs.Wrap(errs.ProviderUnavailable, err, "reasoning: model call failed")
		}

		text, toolUses := splitResponse(resp)
		if text != "" {
			lastText = text
		}
		if len(toolUses) == 0 {
			return lastText, nil
		}

		messages = append(messages, resp.ToParam())
		resultBlocks := make([]anthropic.ContentBlockParamUnion, 0, len(toolUses))
		for _, call := range toolUses {
			result, isError := e.execute(ctx, call)
			resultBlocks = append(resultBlocks, anthropic.NewToolResultBlock(call.ID, result, isError))
		}
		messages = append(messages, anthropic.NewUserMessage(resultBlocks...))
	}

	e.log.Warn("reasoning: iteration budget exhausted", "max_iterations", e.maxIterations)
	return lastText, nil
}

func (e *Engine) execute(ctx context.Context, call anthropic.ToolUseBlock) (string, bool) {
	descriptor, ok := e.registry.Find(call.Name)
	if !ok {
		return "unknown tool: " + call.Name, true
	}

	var args map[string]any
	if err := json.Unmarshal(call.Input, &args); err != nil {
		return "invalid tool arguments: " + err.Error(), true
	}

	data, err := e.invoker.Invoke(ctx, descriptor, args)
	if err != nil {
		e.log.Error("reasoning: tool call failed", "tool", call.Name, "error", err)
		return err.Error(), true
	}
	return string(data), false
}

func (e *Engine) toolParams() []anthropic.ToolUnionParam {
	descriptors := e.registry.All()
	params := make([]anthropic.ToolUnionParam, 0, len(descriptors))
	for _, d := range descriptors {
		schema := tool.JSONSchema(d)
		params = append(params, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        d.Name,
				Description: anthropic.String(d.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: schema["properties"],
				},
			},
		})
	}
	return params
}

func splitResponse(resp *anthropic.Message) (text string, toolUses []anthropic.ToolUseBlock) {
	for _, block := range resp.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			text += variant.Text
		case anthropic.ToolUseBlock:
			toolUses = append(toolUses, variant)
		}
	}
	return text, toolUses
}

func historyToMessages(history []model.HistoryEntry) []anthropic.MessageParam {
	messages := make([]anthropic.MessageParam, 0, len(history))
	for _, h := range history {
		switch h.Role {
		case model.RoleUser:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(h.Content)))
		case model.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(h.Content)))
		}
	}
	return messages
}
