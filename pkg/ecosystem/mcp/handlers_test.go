package mcp

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ormasoftchile/hvcpi/pkg/action"
	"github.com/ormasoftchile/hvcpi/pkg/hyperv"
	"github.com/ormasoftchile/hvcpi/pkg/registry"
	"github.com/ormasoftchile/hvcpi/pkg/shell"
)

// scriptedRunner returns a canned result without touching a real shell.
type scriptedRunner struct {
	result shell.Result
}

func (r *scriptedRunner) Run(ctx context.Context, command string) (*shell.Result, error) {
	res := r.result
	return &res, nil
}

func testRegistry(t *testing.T, runner shell.Runner) *registry.Registry {
	t.Helper()
	reg, err := registry.New(runner, hyperv.Catalog(hyperv.DefaultSettings()))
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return reg
}

func TestToolFromDefinition(t *testing.T) {
	def := action.Definition{
		Name:        "get_worker",
		Description: "Fetch one virtual machine",
		Params: []action.Param{
			{Name: "name", Kind: action.String, Required: true},
			{Name: "memory_mb", Kind: action.Int, Default: int64(2048)},
			{Name: "force", Kind: action.Bool, Default: false},
		},
	}

	tool := toolFromDefinition(def)
	if tool.Name != "hyperv/get_worker" {
		t.Errorf("tool name = %q, want hyperv/get_worker", tool.Name)
	}
	if tool.Description != def.Description {
		t.Errorf("description = %q", tool.Description)
	}
	for _, p := range def.Params {
		if _, ok := tool.InputSchema.Properties[p.Name]; !ok {
			t.Errorf("schema missing property %q", p.Name)
		}
	}
	if len(tool.InputSchema.Required) != 1 || tool.InputSchema.Required[0] != "name" {
		t.Errorf("required = %v, want [name]", tool.InputSchema.Required)
	}
}

func TestHandlerReturnsNormalizedResult(t *testing.T) {
	runner := &scriptedRunner{result: shell.Result{Stdout: "42", ExitCode: 0}}
	reg := testRegistry(t, runner)

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{"worker_name": "web01"}

	result, err := makeHandler(reg, "has_worker")(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %v", result.Content)
	}
	text := result.Content[0].(mcp.TextContent).Text
	if !strings.Contains(text, `"exists": true`) {
		t.Errorf("result text = %q, want exists=true", text)
	}
}

func TestHandlerSurfacesValidationFailure(t *testing.T) {
	runner := &scriptedRunner{result: shell.Result{ExitCode: 0}}
	reg := testRegistry(t, runner)

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{}

	result, err := makeHandler(reg, "get_worker")(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Fatal("expected tool error for missing required parameter")
	}
	text := result.Content[0].(mcp.TextContent).Text
	if !strings.Contains(text, string(action.FailMissingParam)) {
		t.Errorf("error text = %q, want failure kind tag", text)
	}
}

func TestHandlerSurfacesExecutionFailure(t *testing.T) {
	runner := &scriptedRunner{result: shell.Result{Stderr: "access denied", ExitCode: 1}}
	reg := testRegistry(t, runner)

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{"worker_name": "web01"}

	result, err := makeHandler(reg, "start_worker")(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Fatal("expected tool error for non-zero exit")
	}
	text := result.Content[0].(mcp.TextContent).Text
	if !strings.Contains(text, "access denied") {
		t.Errorf("error text = %q, want stderr surfaced", text)
	}
}
