// Package bedrock adapts the AWS Bedrock Converse API to the Agent
// Runtime's providermodel.Client interface, grounded on the teacher's
// features/model/bedrock/client.go: the RuntimeClient seam, message/tool
// encoding into Converse's brtypes blocks, and translateResponse. Trimmed
// to Complete only (no ConverseStream, no ledger rehydration, no
// thinking/cache options) to match Git-Iris's single-call runtime.
package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	smithy "github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/git-iris/gitiris/internal/agentrt/providermodel"
	"github.com/git-iris/gitiris/internal/girerr"
)

// RuntimeClient is the subset of the Bedrock runtime client used by the
// adapter, matched by *bedrockruntime.Client so tests can substitute a fake.
type RuntimeClient interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Options configures the Bedrock adapter.
type Options struct {
	DefaultModel string
	MaxTokens    int
	Temperature  float32
}

// Client implements providermodel.Client on top of AWS Bedrock Converse.
type Client struct {
	runtime      RuntimeClient
	defaultModel string
	maxTokens    int
	temperature  float32
}

// New builds a Bedrock-backed client.
func New(runtime RuntimeClient, opts Options) (*Client, error) {
	if runtime == nil {
		return nil, errors.New("bedrock: runtime client is required")
	}
	if opts.DefaultModel == "" {
		return nil, errors.New("bedrock: default model is required")
	}
	return &Client{runtime: runtime, defaultModel: opts.DefaultModel, maxTokens: opts.MaxTokens, temperature: opts.Temperature}, nil
}

// Complete issues a Converse request and translates the response into
// providermodel structures.
func (c *Client) Complete(ctx context.Context, req *providermodel.Request) (*providermodel.Response, error) {
	if len(req.Messages) == 0 {
		return nil, errors.New("bedrock: messages are required")
	}
	modelID := req.Model
	if modelID == "" {
		modelID = c.defaultModel
	}
	toolConfig, err := encodeTools(req.Tools)
	if err != nil {
		return nil, err
	}
	messages, system, err := encodeMessages(req.Messages)
	if err != nil {
		return nil, err
	}
	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(modelID),
		Messages: messages,
	}
	if len(system) > 0 {
		input.System = system
	}
	if toolConfig != nil {
		input.ToolConfig = toolConfig
	}
	if cfg := c.inferenceConfig(req.MaxTokens, req.Temperature); cfg != nil {
		input.InferenceConfig = cfg
	}
	out, err := c.runtime.Converse(ctx, input)
	if err != nil {
		return nil, girerr.New(classifyError(err), "bedrock.Complete", "converse failed", err)
	}
	return translateResponse(out)
}

func (c *Client) inferenceConfig(maxTokens int, temp float32) *brtypes.InferenceConfiguration {
	var cfg brtypes.InferenceConfiguration
	tokens := maxTokens
	if tokens <= 0 {
		tokens = c.maxTokens
	}
	if tokens > 0 {
		cfg.MaxTokens = aws.Int32(int32(tokens))
	}
	t := temp
	if t <= 0 {
		t = c.temperature
	}
	if t > 0 {
		cfg.Temperature = aws.Float32(t)
	}
	if cfg.MaxTokens == nil && cfg.Temperature == nil {
		return nil
	}
	return &cfg
}

func encodeMessages(msgs []providermodel.Message) ([]brtypes.Message, []brtypes.SystemContentBlock, error) {
	conversation := make([]brtypes.Message, 0, len(msgs))
	system := make([]brtypes.SystemContentBlock, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == providermodel.RoleSystem {
			for _, p := range m.Parts {
				if v, ok := p.(providermodel.TextPart); ok && v.Text != "" {
					system = append(system, &brtypes.SystemContentBlockMemberText{Value: v.Text})
				}
			}
			continue
		}

		blocks := make([]brtypes.ContentBlock, 0, len(m.Parts))
		for _, part := range m.Parts {
			switch v := part.(type) {
			case providermodel.TextPart:
				if v.Text != "" {
					blocks = append(blocks, &brtypes.ContentBlockMemberText{Value: v.Text})
				}
			case providermodel.ToolUsePart:
				var input map[string]any
				if len(v.Input) > 0 {
					if err := json.Unmarshal(v.Input, &input); err != nil {
						return nil, nil, fmt.Errorf("bedrock: tool_use input for %q: %w", v.Name, err)
					}
				}
				blocks = append(blocks, &brtypes.ContentBlockMemberToolUse{
					Value: brtypes.ToolUseBlock{
						ToolUseId: aws.String(v.ID),
						Name:      aws.String(v.Name),
						Input:     document.NewLazyDocument(input),
					},
				})
			case providermodel.ToolResultPart:
				status := brtypes.ToolResultStatusSuccess
				if v.IsError {
					status = brtypes.ToolResultStatusError
				}
				blocks = append(blocks, &brtypes.ContentBlockMemberToolResult{
					Value: brtypes.ToolResultBlock{
						ToolUseId: aws.String(v.ToolUseID),
						Status:    status,
						Content: []brtypes.ToolResultContentBlock{
							&brtypes.ToolResultContentBlockMemberText{Value: v.Content},
						},
					},
				})
			}
		}
		if len(blocks) == 0 {
			continue
		}
		var role brtypes.ConversationRole
		switch m.Role {
		case providermodel.RoleUser:
			role = brtypes.ConversationRoleUser
		case providermodel.RoleAssistant:
			role = brtypes.ConversationRoleAssistant
		default:
			return nil, nil, fmt.Errorf("bedrock: unsupported message role %q", m.Role)
		}
		conversation = append(conversation, brtypes.Message{Role: role, Content: blocks})
	}
	if len(conversation) == 0 {
		return nil, nil, errors.New("bedrock: at least one user/assistant message is required")
	}
	return conversation, system, nil
}

func encodeTools(defs []providermodel.ToolDefinition) (*brtypes.ToolConfiguration, error) {
	if len(defs) == 0 {
		return nil, nil
	}
	tools := make([]brtypes.Tool, 0, len(defs))
	for _, def := range defs {
		tools = append(tools, &brtypes.ToolMemberToolSpec{
			Value: brtypes.ToolSpecification{
				Name:        aws.String(def.Name),
				Description: aws.String(def.Description),
				InputSchema: &brtypes.ToolInputSchemaMemberJson{
					Value: document.NewLazyDocument(def.InputSchema),
				},
			},
		})
	}
	return &brtypes.ToolConfiguration{Tools: tools}, nil
}

func translateResponse(out *bedrockruntime.ConverseOutput) (*providermodel.Response, error) {
	resp := &providermodel.Response{}
	outMsg, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok || outMsg == nil {
		return nil, errors.New("bedrock: converse output missing assistant message")
	}
	var text string
	for _, block := range outMsg.Value.Content {
		switch v := block.(type) {
		case *brtypes.ContentBlockMemberText:
			text += v.Value
		case *brtypes.ContentBlockMemberToolUse:
			payload, err := json.Marshal(v.Value.Input)
			if err != nil {
				return nil, fmt.Errorf("bedrock: marshal tool_use input: %w", err)
			}
			resp.ToolCalls = append(resp.ToolCalls, providermodel.ToolCall{
				ID:      aws.ToString(v.Value.ToolUseId),
				Name:    aws.ToString(v.Value.Name),
				Payload: payload,
			})
		}
	}
	resp.Text = text
	resp.StopReason = string(out.StopReason)
	if out.Usage != nil {
		resp.Usage = providermodel.TokenUsage{
			InputTokens:  int(aws.ToInt32(out.Usage.InputTokens)),
			OutputTokens: int(aws.ToInt32(out.Usage.OutputTokens)),
		}
	}
	return resp, nil
}

// classifyError maps a Bedrock/smithy error to a girerr.Kind. Throttling
// exceptions and HTTP 429s are transient; everything else is fatal.
func classifyError(err error) girerr.Kind {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "TooManyRequestsException":
			return girerr.KindProviderTransient
		}
	}
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == 429 {
		return girerr.KindProviderTransient
	}
	if errors.As(err, &apiErr) {
		return girerr.KindProviderFatal
	}
	return girerr.KindProviderTransient
}
