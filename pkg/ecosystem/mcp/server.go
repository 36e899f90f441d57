// Package mcp exposes the provider catalog over the Model Context
// Protocol so AI agents can drive Hyper-V operations as typed tools.
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ormasoftchile/hvcpi/pkg/action"
	"github.com/ormasoftchile/hvcpi/pkg/registry"
)

// ServerOption configures the MCP surface.
type ServerOption func(*serverSettings)

type serverSettings struct {
	check func(name string) error
}

// WithPolicy filters the exposed tools: actions the check rejects are
// not registered at all, so agents cannot even see them.
func WithPolicy(check func(name string) error) ServerOption {
	return func(s *serverSettings) { s.check = check }
}

// NewServer creates an MCP server with one tool per catalog action.
// Tool schemas are derived from the registry definitions, so the MCP
// surface never drifts from the dispatch table.
func NewServer(reg *registry.Registry, version string, opts ...ServerOption) *server.MCPServer {
	var settings serverSettings
	for _, o := range opts {
		o(&settings)
	}

	s := server.NewMCPServer(
		"hvcpi",
		version,
		server.WithToolCapabilities(true),
	)

	for _, def := range reg.Actions() {
		if settings.check != nil && settings.check(def.Name) != nil {
			continue
		}
		s.AddTool(toolFromDefinition(def), makeHandler(reg, def.Name))
	}

	return s
}

// toolFromDefinition maps a catalog definition onto an MCP tool schema.
func toolFromDefinition(def action.Definition) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(def.Description)}
	for _, p := range def.Params {
		opts = append(opts, paramOption(p))
	}
	return mcp.NewTool("hyperv/"+def.Name, opts...)
}

func paramOption(p action.Param) mcp.ToolOption {
	var props []mcp.PropertyOption
	if p.Description != "" {
		props = append(props, mcp.Description(p.Description))
	}
	if p.Required {
		props = append(props, mcp.Required())
	}

	switch p.Kind {
	case action.Int:
		if d, ok := p.Default.(int64); ok {
			props = append(props, mcp.DefaultNumber(float64(d)))
		}
		return mcp.WithNumber(p.Name, props...)
	case action.Bool:
		if d, ok := p.Default.(bool); ok {
			props = append(props, mcp.DefaultBool(d))
		}
		return mcp.WithBoolean(p.Name, props...)
	default:
		if d, ok := p.Default.(string); ok {
			props = append(props, mcp.DefaultString(d))
		}
		return mcp.WithString(p.Name, props...)
	}
}
