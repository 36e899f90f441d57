package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ormasoftchile/hvcpi/pkg/action"
	"github.com/ormasoftchile/hvcpi/pkg/registry"
)

// makeHandler builds the tool handler for one catalog action. The
// handler delegates straight to registry.Execute; validation, script
// construction, and normalization all happen there.
func makeHandler(reg *registry.Registry, name string) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := reg.Execute(ctx, name, req.GetArguments())
		if err != nil {
			return errorResult(formatFailure(err)), nil
		}

		data, merr := json.MarshalIndent(result, "", "  ")
		if merr != nil {
			return errorResult(fmt.Sprintf("encode result: %s", merr)), nil
		}
		return textResult(string(data)), nil
	}
}

// formatFailure renders a dispatch failure for the MCP client. Tagged
// failures expose their kind so agents can branch on the category.
func formatFailure(err error) string {
	var f *action.Failure
	if errors.As(err, &f) {
		return fmt.Sprintf("[%s] %s", f.Kind, f.Message)
	}
	return err.Error()
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(msg),
		},
		IsError: true,
	}
}
