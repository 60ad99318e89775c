// Package mcpserver exposes a tools.Registry over the Model Context Protocol.
package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"time"

	"github.com/0xhijo/mcp-twitter/tools"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// DefaultCallTimeout bounds a single tool call.
const DefaultCallTimeout = 2 * time.Minute

// Server serves registered tools through the official MCP Go SDK.
type Server struct {
	server  *mcp.Server
	logger  *slog.Logger
	timeout time.Duration
}

// Option customizes a Server.
type Option func(*Server)

// WithLogger sets the logger used for call logs and by the SDK.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithCallTimeout sets the per-call timeout. Zero keeps the default.
func WithCallTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// New creates a Server advertising the given name and version.
func New(name, version string, opts ...Option) *Server {
	s := &Server{logger: slog.Default(), timeout: DefaultCallTimeout}
	for _, o := range opts {
		o(s)
	}
	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    name,
		Version: version,
	}, &mcp.ServerOptions{Logger: s.logger})
	return s
}

// Register adds every tool of reg, bound to client.
func Register[C any](s *Server, reg *tools.Registry[C], client C) {
	for _, t := range reg.Tools() {
		s.server.AddTool(toSDKTool(t), toSDKHandler(s, reg, client, t.Name))
	}
}

// Run serves over stdin/stdout until the client disconnects or ctx ends.
func (s *Server) Run(ctx context.Context) error {
	return s.run(ctx, &mcp.StdioTransport{})
}

// Serve reads requests from in and writes responses to out.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	return s.run(ctx, &mcp.IOTransport{
		Reader: io.NopCloser(in),
		Writer: nopWriteCloser{out},
	})
}

func (s *Server) run(ctx context.Context, transport mcp.Transport) error {
	return s.server.Run(ctx, transport)
}

func toSDKTool[C any](t tools.Tool[C]) *mcp.Tool {
	schema := t.Schema
	if schema == nil {
		schema = &jsonschema.Schema{Type: "object"}
	}
	return &mcp.Tool{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: schema,
		Annotations: toSDKAnnotations(t.Annotations),
	}
}

func toSDKAnnotations(a tools.Annotations) *mcp.ToolAnnotations {
	destructive := a.Destructive
	openWorld := a.OpenWorld
	return &mcp.ToolAnnotations{
		ReadOnlyHint:    a.ReadOnly,
		IdempotentHint:  a.Idempotent,
		DestructiveHint: &destructive,
		OpenWorldHint:   &openWorld,
	}
}

// toSDKHandler runs a registry call under the call timeout and renders the
// envelope as one JSON text block.
func toSDKHandler[C any](s *Server, reg *tools.Registry[C], client C, name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		callID := uuid.NewString()
		start := time.Now()

		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		var args json.RawMessage
		if req.Params != nil {
			args = req.Params.Arguments
		}
		s.logger.Debug("tool call", slog.String("call_id", callID), slog.String("tool", name))

		res, err := reg.Call(ctx, client, name, args)
		if err != nil {
			s.logger.Warn("tool call rejected", slog.String("call_id", callID), slog.String("tool", name), slog.Any("error", err))
			return nil, err
		}

		attrs := []any{
			slog.String("call_id", callID),
			slog.String("tool", name),
			slog.String("status", res.Status),
			slog.Duration("duration", time.Since(start)),
		}
		if res.OK() {
			s.logger.Info("tool call done", attrs...)
		} else {
			s.logger.Warn("tool call failed", append(attrs, slog.String("error", res.Error))...)
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: res.JSON()}},
			IsError: !res.OK(),
		}, nil
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
