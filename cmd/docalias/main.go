package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/dejo1307/docalias/internal/checks"
	"github.com/dejo1307/docalias/internal/checks/girfiles"
	"github.com/dejo1307/docalias/internal/checks/license"
	"github.com/dejo1307/docalias/internal/checks/manualtraits"
	"github.com/dejo1307/docalias/internal/config"
	"github.com/dejo1307/docalias/internal/engine"
	"github.com/dejo1307/docalias/internal/server"
	"github.com/dejo1307/docalias/internal/syntax"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

const defaultConfigPath = "docalias.yaml"

// errFailed makes the process exit with status 1 once the output is printed.
var errFailed = errors.New("failed")

func main() {
	// Ensure log output goes to stderr, never stdout (MCP uses stdout for JSON-RPC)
	log.SetOutput(os.Stderr)

	rootCmd := &cobra.Command{
		Use:   "docalias [paths...]",
		Short: "Add #[doc(alias)] attributes to Rust bindings",
		Long: `docalias scans Rust binding sources and inserts a #[doc(alias = "...")]
attribute above every item wrapping a foreign symbol, so the C name can be
searched in the generated documentation.

With no path, the configured paths (src by default) are annotated.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE:          runAnnotate,
	}
	rootCmd.PersistentFlags().StringP("config", "c", defaultConfigPath, "Path to the configuration file")
	rootCmd.Flags().Bool("dry-run", false, "Compute the aliases without rewriting any file")
	rootCmd.Flags().String("report", "", "Write the JSONL report of the run to this file")
	rootCmd.Flags().Bool("verify-syntax", false, "Leave files untouched when the annotated source no longer parses")
	rootCmd.Flags().Bool("keep-going", false, "Continue with the next file after an unknown directive")

	checkCmd := &cobra.Command{
		Use:   "check [folders...]",
		Short: "Run the repository hygiene checks on crate folders",
		RunE:  runCheck,
	}
	checkCmd.Flags().StringSlice("only", nil, "Checks to run (default: all enabled checks)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose annotation and checks as an MCP server on stdio",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		Args:  cobra.NoArgs,
		RunE:  runInit,
	}
	initCmd.Flags().Bool("force", false, "Overwrite an existing configuration file")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("docalias %s\n", version)
		},
	}

	rootCmd.AddCommand(checkCmd, serveCmd, initCmd, versionCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}

// loadConfig reads the --config file, falling back to defaults when it is
// missing.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to read --config flag: %w", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		fmt.Fprintf(os.Stderr, "warning: %v, using defaults\n", err)
		cfg = config.Default()
	}
	return cfg, nil
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	reportPath, _ := cmd.Flags().GetString("report")
	if verify, _ := cmd.Flags().GetBool("verify-syntax"); verify {
		cfg.VerifySyntax = true
	}
	if keepGoing, _ := cmd.Flags().GetBool("keep-going"); keepGoing {
		cfg.FailFast = false
	}

	opts := []engine.Option{engine.WithDryRun(dryRun)}
	if cfg.VerifySyntax {
		opts = append(opts, engine.WithVerifier(syntax.NewVerifier()))
	}
	eng, err := engine.New(cfg, opts...)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}

	sum, err := eng.Run(cmd.Context(), args)
	if err != nil {
		return err
	}
	if err := eng.WriteReport(reportPath); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\nRun complete:\n")
	fmt.Fprintf(os.Stderr, "  Files:         %d\n", sum.Files)
	if sum.DryRun {
		fmt.Fprintf(os.Stderr, "  Would change:  %d\n", sum.Changed)
		fmt.Fprintf(os.Stderr, "  Would add:     %d\n", sum.Added)
	} else {
		fmt.Fprintf(os.Stderr, "  Changed:       %d\n", sum.Changed)
		fmt.Fprintf(os.Stderr, "  Aliases:       %d\n", sum.Added)
	}
	fmt.Fprintf(os.Stderr, "  Errors:        %d\n", sum.Errors)
	fmt.Fprintf(os.Stderr, "  Dry run:       %v\n", dryRun)
	fmt.Fprintf(os.Stderr, "  Duration:      %s\n", sum.Duration)

	if sum.Errors > 0 || sum.Aborted {
		return errFailed
	}
	return nil
}

// newRegistry registers every known check with the configured settings.
func newRegistry(cfg *config.Config) *checks.Registry {
	reg := checks.NewRegistry()
	reg.Register(license.New(cfg.Checks.LicenseHeader))
	reg.Register(girfiles.New(cfg.Checks.IndentWidth))
	reg.Register(manualtraits.New(cfg.Checks.GirFile))
	reg.SetLimit(cfg.Checks.Parallel)
	return reg
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	reg := newRegistry(cfg)

	names, _ := cmd.Flags().GetStringSlice("only")
	if len(names) == 0 {
		for _, c := range reg.All() {
			if cfg.IsCheckEnabled(c.Name()) {
				names = append(names, c.Name())
			}
		}
		if len(names) == 0 {
			return fmt.Errorf("no check enabled in configuration")
		}
	}

	folders := args
	if len(folders) == 0 {
		folders = []string{"."}
	}

	ok, err := reg.Run(cmd.Context(), folders, names, os.Stdout)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(os.Stderr, "failed")
		return errFailed
	}
	fmt.Println("success!")
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	srv, err := server.New(cfg, newRegistry(cfg), syntax.NewVerifier())
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return srv.Run(cmd.Context())
}

func runInit(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")
	force, _ := cmd.Flags().GetBool("force")

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists, use --force to overwrite it", path)
	}
	if err := config.Default().Save(path); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}
