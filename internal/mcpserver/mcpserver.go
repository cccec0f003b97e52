// Package mcpserver is a minimal stdio JSON-RPC shell exposing one MCP
// tool per capability, adapting pkg/giris.ExecuteTask the way
// internal/grpcapi adapts it over gRPC. The wire framing and
// request/response shapes mirror the teacher's own MCP client transport
// (features/mcp/runtime/stdiocaller.go, rpc.go), read in reverse: where
// StdioCaller writes requests and reads responses, Server reads requests
// and writes responses. MCP protocol internals beyond that single
// initialize/tools.list/tools.call surface are out of scope; this package
// only adapts execute_task.
package mcpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/git-iris/gitiris/internal/agentrt/providermodel"
	"github.com/git-iris/gitiris/internal/config"
	gitctx "github.com/git-iris/gitiris/internal/context"
	"github.com/git-iris/gitiris/internal/girerr"
	"github.com/git-iris/gitiris/internal/observability"
	"github.com/git-iris/gitiris/pkg/giris"
)

// DefaultProtocolVersion is advertised in the initialize response.
const DefaultProtocolVersion = "2024-11-05"

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	ID      json.RawMessage `json:"id"`
	Params  json.RawMessage `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type toolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
	kind        gitctx.CapabilityKind
}

type contentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type toolsCallResult struct {
	Content []contentItem `json:"content"`
	IsError bool          `json:"isError"`
}

// Server adapts pkg/giris.ExecuteTask to MCP's tools/call surface over a
// single stdio session.
type Server struct {
	Config config.Config
	Logger observability.Logger

	// Client overrides the provider client ExecuteTask would otherwise
	// construct, the same seam internal/grpcapi.Server and giris.Request
	// expose for fake-client unit testing.
	Client providermodel.Client

	tools []toolDescriptor
}

// NewServer builds a Server bound to cfg, registering one tool per
// capability.
func NewServer(cfg config.Config, opts ...ServerOption) *Server {
	s := &Server{Config: cfg, Logger: observability.NoopLogger{}}
	s.tools = []toolDescriptor{
		{
			Name:        "commit_message",
			Description: "Generate a conventional commit message for the currently staged changes",
			kind:        gitctx.CapabilityCommit,
			InputSchema: objectSchema(nil),
		},
		{
			Name:        "code_review",
			Description: "Review a commit, branch diff, or the working tree and return markdown feedback",
			kind:        gitctx.CapabilityReview,
			InputSchema: objectSchema([]string{"commit_id", "include_unstaged", "review_from", "review_to"}),
		},
		{
			Name:        "pull_request",
			Description: "Draft a pull request description for a branch range",
			kind:        gitctx.CapabilityPullRequest,
			InputSchema: objectSchema([]string{"pr_base", "pr_head"}),
		},
		{
			Name:        "changelog",
			Description: "Generate a Keep-a-Changelog-styled entry for a commit range",
			kind:        gitctx.CapabilityChangelog,
			InputSchema: objectSchema([]string{"from", "to"}),
		},
		{
			Name:        "release_notes",
			Description: "Generate release notes for a commit range",
			kind:        gitctx.CapabilityReleaseNotes,
			InputSchema: objectSchema([]string{"from", "to"}),
		},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ServerOption configures an optional Server dependency.
type ServerOption func(*Server)

// WithLogger overrides the Server's logger.
func WithLogger(l observability.Logger) ServerOption { return func(s *Server) { s.Logger = l } }

func objectSchema(optional []string) map[string]any {
	props := map[string]any{
		"repo_path": map[string]any{"type": "string"},
	}
	for _, f := range optional {
		if f == "include_unstaged" {
			props[f] = map[string]any{"type": "boolean"}
			continue
		}
		props[f] = map[string]any{"type": "string"}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
	}
}

// Serve runs the JSON-RPC loop over in/out until in is exhausted or ctx is
// cancelled, framing messages the same "Content-Length: N\r\n\r\n<json>"
// way the teacher's StdioCaller does.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		frame, err := readFrame(reader)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		var req rpcRequest
		if err := json.Unmarshal(frame, &req); err != nil {
			continue
		}
		resp := s.dispatch(ctx, req)
		if resp == nil {
			continue
		}
		if err := writeMessage(out, *resp); err != nil {
			return err
		}
	}
}

func (s *Server) dispatch(ctx context.Context, req rpcRequest) *rpcResponse {
	correlationID := uuid.New().String()
	s.Logger.Info(ctx, "mcp request", "correlation_id", correlationID, "method", req.Method)

	switch req.Method {
	case "initialize":
		return &rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: map[string]any{
			"protocolVersion": DefaultProtocolVersion,
			"serverInfo":      map[string]any{"name": "git-iris", "version": "dev"},
			"capabilities":    map[string]any{"tools": map[string]any{}},
		}}
	case "notifications/initialized":
		return nil
	case "tools/list":
		return &rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: map[string]any{"tools": s.tools}}
	case "tools/call":
		return s.handleToolsCall(ctx, req, correlationID)
	default:
		if req.ID == nil {
			return nil
		}
		return &rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: -32601, Message: "method not found"}}
	}
}

func (s *Server) handleToolsCall(ctx context.Context, req rpcRequest, correlationID string) *rpcResponse {
	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, -32602, "invalid params: "+err.Error())
	}

	tool := s.lookupTool(params.Name)
	if tool == nil {
		return errResponse(req.ID, -32602, fmt.Sprintf("unknown tool %q", params.Name))
	}

	var args map[string]any
	if len(params.Arguments) > 0 {
		if err := json.Unmarshal(params.Arguments, &args); err != nil {
			return errResponse(req.ID, -32602, "invalid arguments: "+err.Error())
		}
	}

	repoPath := stringArg(args, "repo_path", ".")
	capability := gitctx.Capability{
		Kind:            tool.kind,
		CommitID:        stringArg(args, "commit_id", ""),
		IncludeUnstaged: boolArg(args, "include_unstaged"),
		ReviewFrom:      stringArg(args, "review_from", ""),
		ReviewTo:        stringArg(args, "review_to", ""),
		PRBase:          stringArg(args, "pr_base", ""),
		PRHead:          stringArg(args, "pr_head", ""),
		From:            stringArg(args, "from", ""),
		To:              stringArg(args, "to", ""),
	}

	resp, err := giris.ExecuteTask(ctx, repoPath, giris.Request{
		Capability: capability,
		Config:     s.Config,
		Logger:     s.Logger,
		Client:     s.Client,
	})
	if err != nil {
		s.Logger.Warn(ctx, "mcp tool call failed", "correlation_id", correlationID, "tool", tool.Name, "error", err.Error())
		return &rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: toolsCallResult{
			IsError: true,
			Content: []contentItem{{Type: "text", Text: string(girerr.KindOf(err)) + ": " + err.Error()}},
		}}
	}

	return &rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: toolsCallResult{
		Content: []contentItem{{Type: "text", Text: resp.Text}},
	}}
}

func (s *Server) lookupTool(name string) *toolDescriptor {
	for i := range s.tools {
		if s.tools[i].Name == name {
			return &s.tools[i]
		}
	}
	return nil
}

func stringArg(args map[string]any, key, def string) string {
	v, ok := args[key]
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		return def
	}
	return s
}

func boolArg(args map[string]any, key string) bool {
	v, ok := args[key]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

func errResponse(id json.RawMessage, code int, msg string) *rpcResponse {
	return &rpcResponse{JSONRPC: "2.0", ID: id, Error: &rpcError{Code: code, Message: msg}}
}

func writeMessage(out io.Writer, resp rpcResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(data))
	if _, err := io.WriteString(out, header); err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}

func readFrame(reader *bufio.Reader) ([]byte, error) {
	length := -1
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if length < 0 {
				continue
			}
			break
		}
		if after, ok := strings.CutPrefix(strings.ToLower(line), "content-length:"); ok {
			n, err := strconv.Atoi(strings.TrimSpace(after))
			if err != nil {
				return nil, err
			}
			length = n
		}
	}
	if length < 0 {
		return nil, fmt.Errorf("content-length header missing")
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(reader, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
