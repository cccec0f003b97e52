// Package anthropic adapts github.com/anthropics/anthropic-sdk-go to the
// Agent Runtime's providermodel.Client interface, grounded on the teacher's
// features/model/anthropic/client.go: trimmed to Complete only (Git-Iris's
// runtime is a single bounded call, not a streaming UI) and to the
// text/tool_use/tool_result part set.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/git-iris/gitiris/internal/agentrt/providermodel"
	"github.com/git-iris/gitiris/internal/girerr"
)

// MessagesClient is the subset of the Anthropic SDK used by the adapter,
// satisfied by *sdk.MessageService so tests can substitute a fake.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Options configures default model selection for the adapter.
type Options struct {
	DefaultModel string
	MaxTokens    int
	Temperature  float64
}

// Client implements providermodel.Client on top of Anthropic Messages.
type Client struct {
	msg          MessagesClient
	defaultModel string
	maxTokens    int
	temperature  float64
}

// New builds an Anthropic-backed client.
func New(msg MessagesClient, opts Options) (*Client, error) {
	if msg == nil {
		return nil, errors.New("anthropic: messages client is required")
	}
	if opts.DefaultModel == "" {
		return nil, errors.New("anthropic: default model is required")
	}
	return &Client{msg: msg, defaultModel: opts.DefaultModel, maxTokens: opts.MaxTokens, temperature: opts.Temperature}, nil
}

// NewFromAPIKey builds a client from an API key using the default Anthropic
// HTTP transport.
func NewFromAPIKey(apiKey, defaultModel string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic: api key is required")
	}
	ac := sdk.NewClient(option.WithAPIKey(apiKey))
	return New(&ac.Messages, Options{DefaultModel: defaultModel})
}

// Complete issues a non-streaming Messages.New request and translates the
// response into providermodel structures.
func (c *Client) Complete(ctx context.Context, req *providermodel.Request) (*providermodel.Response, error) {
	params, err := c.prepareRequest(req)
	if err != nil {
		return nil, err
	}
	msg, err := c.msg.New(ctx, *params)
	if err != nil {
		return nil, girerr.New(classifyError(err), "anthropic.Complete", "messages.new failed", err)
	}
	return translateResponse(msg), nil
}

func (c *Client) prepareRequest(req *providermodel.Request) (*sdk.MessageNewParams, error) {
	if len(req.Messages) == 0 {
		return nil, errors.New("anthropic: messages are required")
	}
	modelID := req.Model
	if modelID == "" {
		modelID = c.defaultModel
	}
	tools, err := encodeTools(req.Tools)
	if err != nil {
		return nil, err
	}
	msgs, system, err := encodeMessages(req.Messages)
	if err != nil {
		return nil, err
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	if maxTokens <= 0 {
		return nil, errors.New("anthropic: max_tokens must be positive")
	}
	params := sdk.MessageNewParams{
		MaxTokens: int64(maxTokens),
		Messages:  msgs,
		Model:     sdk.Model(modelID),
	}
	if len(system) > 0 {
		params.System = system
	}
	if len(tools) > 0 {
		params.Tools = tools
	}
	temp := float64(req.Temperature)
	if temp <= 0 {
		temp = c.temperature
	}
	if temp > 0 {
		params.Temperature = sdk.Float(temp)
	}
	return &params, nil
}

func encodeMessages(msgs []providermodel.Message) ([]sdk.MessageParam, []sdk.TextBlockParam, error) {
	conversation := make([]sdk.MessageParam, 0, len(msgs))
	system := make([]sdk.TextBlockParam, 0, len(msgs))

	for _, m := range msgs {
		if m.Role == providermodel.RoleSystem {
			for _, p := range m.Parts {
				if v, ok := p.(providermodel.TextPart); ok && v.Text != "" {
					system = append(system, sdk.TextBlockParam{Text: v.Text})
				}
			}
			continue
		}

		blocks := make([]sdk.ContentBlockParamUnion, 0, len(m.Parts))
		for _, part := range m.Parts {
			switch v := part.(type) {
			case providermodel.TextPart:
				if v.Text != "" {
					blocks = append(blocks, sdk.NewTextBlock(v.Text))
				}
			case providermodel.ToolUsePart:
				blocks = append(blocks, sdk.NewToolUseBlock(v.ID, v.Input, v.Name))
			case providermodel.ToolResultPart:
				blocks = append(blocks, sdk.NewToolResultBlock(v.ToolUseID, v.Content, v.IsError))
			}
		}
		if len(blocks) == 0 {
			continue
		}
		switch m.Role {
		case providermodel.RoleUser:
			conversation = append(conversation, sdk.NewUserMessage(blocks...))
		case providermodel.RoleAssistant:
			conversation = append(conversation, sdk.NewAssistantMessage(blocks...))
		default:
			return nil, nil, fmt.Errorf("anthropic: unsupported message role %q", m.Role)
		}
	}
	if len(conversation) == 0 {
		return nil, nil, errors.New("anthropic: at least one user/assistant message is required")
	}
	return conversation, system, nil
}

func encodeTools(defs []providermodel.ToolDefinition) ([]sdk.ToolUnionParam, error) {
	if len(defs) == 0 {
		return nil, nil
	}
	out := make([]sdk.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		if def.Description == "" {
			return nil, fmt.Errorf("anthropic: tool %q is missing description", def.Name)
		}
		u := sdk.ToolUnionParamOfTool(sdk.ToolInputSchemaParam{ExtraFields: def.InputSchema}, def.Name)
		if u.OfTool != nil {
			u.OfTool.Description = sdk.String(def.Description)
		}
		out = append(out, u)
	}
	return out, nil
}

// classifyError maps an Anthropic SDK error to a girerr.Kind. The SDK
// surfaces HTTP-layer failures as *sdk.Error with a StatusCode; 429s and 5xx
// are transient (the runtime may retry once after the provider's advised
// delay), everything else is fatal. Errors that don't carry a status code
// (connection failures, context cancellation) are treated as transient.
func classifyError(err error) girerr.Kind {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == 429 || apiErr.StatusCode >= 500 {
			return girerr.KindProviderTransient
		}
		return girerr.KindProviderFatal
	}
	return girerr.KindProviderTransient
}

func translateResponse(msg *sdk.Message) *providermodel.Response {
	resp := &providermodel.Response{}
	var text string
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			text += block.Text
		case "tool_use":
			resp.ToolCalls = append(resp.ToolCalls, providermodel.ToolCall{
				ID:      block.ID,
				Name:    block.Name,
				Payload: json.RawMessage(block.Input),
			})
		}
	}
	resp.Text = text
	resp.Usage = providermodel.TokenUsage{
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
	}
	resp.StopReason = string(msg.StopReason)
	return resp
}
