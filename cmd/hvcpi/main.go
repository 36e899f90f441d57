package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/expr-lang/expr"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/spf13/cobra"

	"github.com/ormasoftchile/hvcpi/pkg/action"
	"github.com/ormasoftchile/hvcpi/pkg/config"
	"github.com/ormasoftchile/hvcpi/pkg/governance"
	"github.com/ormasoftchile/hvcpi/pkg/hyperv"
	"github.com/ormasoftchile/hvcpi/pkg/logging"
	"github.com/ormasoftchile/hvcpi/pkg/registry"
	"github.com/ormasoftchile/hvcpi/pkg/shell"
)

// Version is set at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "hvcpi",
	Short: "Hyper-V compute provider interface",
	Long:  "hvcpi — a typed action catalog over Hyper-V, delegating every operation to PowerShell and normalizing its output.",
}

var configPath string

// loadConfig reads the --config file when given, otherwise the stock
// defaults. Domain validation runs either way so a broken file never
// reaches the shell.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", configPath, err)
		}
		cfg = loaded
	}
	if errs := config.ValidateDomain(cfg); config.HasErrors(errs) {
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "  [%s] %s: %s\n", e.Phase, e.Path, e.Message)
		}
		return nil, fmt.Errorf("configuration is invalid")
	}
	return cfg, nil
}

// buildRegistry assembles the full pipeline: config, redaction, shell
// runner, catalog.
func buildRegistry(cfg *config.Config) (*registry.Registry, error) {
	logger := logging.Init("hvcpi")

	rules, err := governance.CompileRedactionRules(cfg.Redact)
	if err != nil {
		return nil, fmt.Errorf("compile redaction rules: %w", err)
	}

	runner := shell.New(cfg.ShellBinary(),
		shell.WithTimeout(cfg.Timeout()),
		shell.WithLogger(logger),
		shell.WithRedaction(governance.Redactor(rules)),
	)

	return registry.New(runner, hyperv.Catalog(cfg.Defaults), registry.WithLogger(logger))
}

// --- actions ---

var (
	styleHeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	styleName   = lipgloss.NewStyle().Bold(true)
	styleParam  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

var actionsCmd = &cobra.Command{
	Use:   "actions",
	Short: "List every action in the catalog",
	Args:  cobra.NoArgs,
	RunE:  runActions,
}

func runActions(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	reg, err := buildRegistry(cfg)
	if err != nil {
		return err
	}

	defs := reg.Actions()
	fmt.Println(styleHeader.Render(fmt.Sprintf("%d actions", len(defs))))
	for _, def := range defs {
		fmt.Printf("  %s  %s\n", styleName.Render(def.Name), def.Description)
	}
	return nil
}

var describeCmd = &cobra.Command{
	Use:   "describe [action]",
	Short: "Show one action's parameters",
	Args:  cobra.ExactArgs(1),
	RunE:  runDescribe,
}

func runDescribe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	reg, err := buildRegistry(cfg)
	if err != nil {
		return err
	}

	def, ok := reg.Describe(args[0])
	if !ok {
		return fmt.Errorf("unknown action %q — run 'hvcpi actions' for the catalog", args[0])
	}

	fmt.Println(styleName.Render(def.Name))
	fmt.Printf("  %s\n", def.Description)
	for _, p := range def.Params {
		req := "optional"
		if p.Required {
			req = "required"
		}
		line := fmt.Sprintf("%s (%s, %s)", p.Name, p.Kind, req)
		if p.Default != nil {
			line += fmt.Sprintf(" default=%v", p.Default)
		}
		fmt.Printf("  %s", styleParam.Render(line))
		if p.Description != "" {
			fmt.Printf("  %s", p.Description)
		}
		fmt.Println()
	}
	return nil
}

// --- exec ---

var (
	execParams []string
	execCheck  string
)

var execCmd = &cobra.Command{
	Use:   "exec [action]",
	Short: "Execute one catalog action",
	Args:  cobra.ExactArgs(1),
	RunE:  runExec,
}

func runExec(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	reg, err := buildRegistry(cfg)
	if err != nil {
		return err
	}

	if err := governance.NewPolicy(cfg.Policy).CheckAction(args[0]); err != nil {
		return fmt.Errorf("policy: %w", err)
	}

	params := make(map[string]any, len(execParams))
	for _, kv := range execParams {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("malformed --param %q, want key=value", kv)
		}
		params[parts[0]] = parts[1]
	}

	result, err := reg.Execute(context.Background(), args[0], params)
	if err != nil {
		var f *action.Failure
		if errors.As(err, &f) {
			fmt.Fprintf(os.Stderr, "✗ [%s] %s\n", f.Kind, f.Message)
			if f.Raw != "" {
				fmt.Fprintf(os.Stderr, "  raw output: %s\n", f.Raw)
			}
			return fmt.Errorf("action %s failed", args[0])
		}
		return err
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	fmt.Println(string(data))

	if execCheck != "" {
		ok, err := evalCheck(execCheck, result)
		if err != nil {
			return fmt.Errorf("check %q: %w", execCheck, err)
		}
		if !ok {
			return fmt.Errorf("check %q failed against the result", execCheck)
		}
		fmt.Printf("✓ check %q passed\n", execCheck)
	}
	return nil
}

// evalCheck compiles a boolean expression and evaluates it against the
// normalized result map.
func evalCheck(src string, result action.Result) (bool, error) {
	program, err := expr.Compile(src, expr.Env(map[string]any{}), expr.AsBool())
	if err != nil {
		return false, err
	}
	out, err := expr.Run(program, map[string]any(result))
	if err != nil {
		return false, err
	}
	ok, _ := out.(bool)
	return ok, nil
}

// --- validate ---

var validateCmd = &cobra.Command{
	Use:   "validate [config.yaml]",
	Short: "Validate a provider configuration file",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	_, errs := config.ValidateFile(args[0])

	var fatal int
	for _, e := range errs {
		if e.Severity == "warning" {
			fmt.Fprintf(os.Stderr, "  ⚠ [%s] %s: %s\n", e.Phase, e.Path, e.Message)
			continue
		}
		fatal++
		fmt.Fprintf(os.Stderr, "  %d. [%s] %s: %s\n", fatal, e.Phase, e.Path, e.Message)
	}
	if fatal > 0 {
		return fmt.Errorf("validation failed with %d error(s)", fatal)
	}
	fmt.Printf("✓ %s is valid\n", args[0])
	return nil
}

// --- schema ---

var schemaCmd = &cobra.Command{
	Use:   "schema [config|actions]",
	Short: "Export the configuration JSON Schema or the action catalog",
	Args:  cobra.ExactArgs(1),
	RunE:  runSchema,
}

func runSchema(cmd *cobra.Command, args []string) error {
	switch args[0] {
	case "config":
		data, err := config.GenerateJSONSchema()
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	case "actions":
		defs := make([]action.Definition, 0)
		for _, a := range hyperv.Catalog(hyperv.DefaultSettings()) {
			defs = append(defs, a.Definition)
		}
		data, err := json.MarshalIndent(defs, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	default:
		return fmt.Errorf("unknown schema type %q — use 'config' or 'actions'", args[0])
	}
	return nil
}

// --- doctor ---

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the host can run the provider",
	Args:  cobra.NoArgs,
	RunE:  runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	binary := cfg.ShellBinary()
	if binary == "" {
		binary = shell.DefaultBinary()
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		fmt.Printf("✗ shell: %s not found in PATH\n", binary)
		return fmt.Errorf("external tool %q is unavailable", binary)
	}
	fmt.Printf("✓ shell: %s\n", path)

	if vm, err := mem.VirtualMemory(); err == nil {
		fmt.Printf("✓ host memory: %d MB total, %d MB available\n",
			vm.Total/1024/1024, vm.Available/1024/1024)
		if vm.Available/1024/1024 < uint64(cfg.Defaults.MemoryMB) {
			fmt.Printf("  ⚠ less available memory than the default VM size (%d MB)\n", cfg.Defaults.MemoryMB)
		}
	}
	if n, err := cpu.Counts(true); err == nil {
		fmt.Printf("✓ host CPUs: %d logical\n", n)
	}
	fmt.Printf("✓ timeout: %s\n", cfg.Timeout())
	return nil
}

// --- version ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("hvcpi %s (%s)\n", version, commit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the provider configuration YAML")

	execCmd.Flags().StringArrayVar(&execParams, "param", nil, "Set an action parameter (key=value), repeatable")
	execCmd.Flags().StringVar(&execCheck, "check", "", "Boolean expression evaluated against the result, e.g. 'exists == true'")

	rootCmd.AddCommand(actionsCmd)
	rootCmd.AddCommand(describeCmd)
	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(versionCmd)
}
