// Package openai adapts github.com/openai/openai-go to the Agent Runtime's
// providermodel.Client interface, grounded on the teacher's
// features/model/openai/client.go shape (ChatClient seam, encodeTools,
// translateResponse) but rebuilt against the official openai-go SDK instead
// of the teacher's sashabaranov/go-openai, since that is the OpenAI
// dependency already wired into this module.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/git-iris/gitiris/internal/agentrt/providermodel"
	"github.com/git-iris/gitiris/internal/girerr"
)

// ChatClient is the subset of the openai-go client used by the adapter.
type ChatClient interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Options configures the OpenAI adapter.
type Options struct {
	Client       ChatClient
	DefaultModel string
}

// Client implements providermodel.Client via Chat Completions.
type Client struct {
	chat  ChatClient
	model string
}

// New builds an OpenAI-backed client from the provided options.
func New(opts Options) (*Client, error) {
	if opts.Client == nil {
		return nil, errors.New("openai: client is required")
	}
	modelID := strings.TrimSpace(opts.DefaultModel)
	if modelID == "" {
		return nil, errors.New("openai: default model is required")
	}
	return &Client{chat: opts.Client, model: modelID}, nil
}

// NewFromAPIKey constructs a client using the default openai-go HTTP
// transport.
func NewFromAPIKey(apiKey, defaultModel string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("openai: api key is required")
	}
	c := openai.NewClient(option.WithAPIKey(apiKey))
	return New(Options{Client: c.Chat.Completions, DefaultModel: defaultModel})
}

// Complete renders a chat completion and translates it into providermodel
// structures.
func (c *Client) Complete(ctx context.Context, req *providermodel.Request) (*providermodel.Response, error) {
	if len(req.Messages) == 0 {
		return nil, errors.New("openai: messages are required")
	}
	modelID := strings.TrimSpace(req.Model)
	if modelID == "" {
		modelID = c.model
	}
	messages, err := encodeMessages(req.Messages)
	if err != nil {
		return nil, err
	}
	tools, err := encodeTools(req.Tools)
	if err != nil {
		return nil, err
	}
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(modelID),
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(float64(req.Temperature))
	}
	if len(tools) > 0 {
		params.Tools = tools
	}
	resp, err := c.chat.New(ctx, params)
	if err != nil {
		return nil, girerr.New(classifyError(err), "openai.Complete", "chat completion failed", err)
	}
	return translateResponse(resp), nil
}

// encodeMessages flattens each providermodel.Message into one or more
// Chat Completions messages. A ToolUsePart is folded into its containing
// assistant message's tool_calls; a ToolResultPart becomes its own "tool"
// role message, as the Chat Completions wire format requires.
func encodeMessages(msgs []providermodel.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		var text strings.Builder
		var toolCalls []openai.ChatCompletionMessageToolCallParam
		for _, p := range m.Parts {
			switch v := p.(type) {
			case providermodel.TextPart:
				text.WriteString(v.Text)
			case providermodel.ToolUsePart:
				toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallParam{
					ID: v.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      v.Name,
						Arguments: string(v.Input),
					},
				})
			case providermodel.ToolResultPart:
				out = append(out, openai.ToolMessage(v.Content, v.ToolUseID))
			}
		}
		switch m.Role {
		case providermodel.RoleSystem:
			if text.Len() > 0 {
				out = append(out, openai.SystemMessage(text.String()))
			}
		case providermodel.RoleUser:
			if text.Len() > 0 {
				out = append(out, openai.UserMessage(text.String()))
			}
		case providermodel.RoleAssistant:
			if text.Len() > 0 || len(toolCalls) > 0 {
				msg := openai.AssistantMessage(text.String())
				if len(toolCalls) > 0 {
					msg.OfAssistant.ToolCalls = toolCalls
				}
				out = append(out, msg)
			}
		default:
			return nil, errors.New("openai: unsupported message role " + string(m.Role))
		}
	}
	if len(out) == 0 {
		return nil, errors.New("openai: at least one message is required")
	}
	return out, nil
}

func encodeTools(defs []providermodel.ToolDefinition) ([]openai.ChatCompletionToolParam, error) {
	if len(defs) == 0 {
		return nil, nil
	}
	out := make([]openai.ChatCompletionToolParam, 0, len(defs))
	for _, def := range defs {
		out = append(out, openai.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        def.Name,
				Description: openai.String(def.Description),
				Parameters:  shared.FunctionParameters(def.InputSchema),
			},
		})
	}
	return out, nil
}

func translateResponse(resp *openai.ChatCompletion) *providermodel.Response {
	out := &providermodel.Response{
		Usage: providermodel.TokenUsage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
		},
	}
	if len(resp.Choices) == 0 {
		return out
	}
	choice := resp.Choices[0]
	out.Text = choice.Message.Content
	out.StopReason = string(choice.FinishReason)
	for _, call := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, providermodel.ToolCall{
			ID:      call.ID,
			Name:    call.Function.Name,
			Payload: json.RawMessage(call.Function.Arguments),
		})
	}
	return out
}

// classifyError maps an OpenAI SDK error to a girerr.Kind. Like the
// Anthropic adapter, 429/5xx are transient and everything else is fatal;
// errors without a status code (network failures) default to transient.
func classifyError(err error) girerr.Kind {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == 429 || apiErr.StatusCode >= 500 {
			return girerr.KindProviderTransient
		}
		return girerr.KindProviderFatal
	}
	return girerr.KindProviderTransient
}
