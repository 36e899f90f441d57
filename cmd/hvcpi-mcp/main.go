// Package main provides the hvcpi-mcp binary, an MCP server exposing
// the Hyper-V action catalog to AI agents over stdio.
package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/ormasoftchile/hvcpi/pkg/config"
	hmcp "github.com/ormasoftchile/hvcpi/pkg/ecosystem/mcp"
	"github.com/ormasoftchile/hvcpi/pkg/governance"
	"github.com/ormasoftchile/hvcpi/pkg/hyperv"
	"github.com/ormasoftchile/hvcpi/pkg/logging"
	"github.com/ormasoftchile/hvcpi/pkg/registry"
	"github.com/ormasoftchile/hvcpi/pkg/shell"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Default()
	if path := os.Getenv("HVCPI_CONFIG"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		cfg = loaded
	}
	if errs := config.ValidateDomain(cfg); config.HasErrors(errs) {
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "  [%s] %s: %s\n", e.Phase, e.Path, e.Message)
		}
		return fmt.Errorf("configuration is invalid")
	}

	// MCP owns stdout; the logger already writes to stderr.
	logger := logging.Init("hvcpi-mcp")

	rules, err := governance.CompileRedactionRules(cfg.Redact)
	if err != nil {
		return fmt.Errorf("compile redaction rules: %w", err)
	}

	runner := shell.New(cfg.ShellBinary(),
		shell.WithTimeout(cfg.Timeout()),
		shell.WithLogger(logger),
		shell.WithRedaction(governance.Redactor(rules)),
	)

	reg, err := registry.New(runner, hyperv.Catalog(cfg.Defaults), registry.WithLogger(logger))
	if err != nil {
		return err
	}

	policy := governance.NewPolicy(cfg.Policy)
	return server.ServeStdio(hmcp.NewServer(reg, version, hmcp.WithPolicy(policy.CheckAction)))
}
