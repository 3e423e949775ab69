package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/termfx/retrofit/core"
	"github.com/termfx/retrofit/lint"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()

	verbose bool
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "retrofit",
	Short: "Retrofit diagnostic instrumentation into route-handler files",
	Long: `retrofit rewrites route-handler source files so every handler carries the
uniform debug-mode instrumentation pattern: timing capture, a per-request
debug-info object, error and warning recording, and error responses that
carry the debug-info object when requested.

The pipeline is idempotent: re-running it over an already transformed file
changes nothing.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func newInstrumentCmd() *cobra.Command {
	var (
		dryRun      bool
		backup      bool
		integration string
	)

	cmd := &cobra.Command{
		Use:   "instrument <file>",
		Short: "Run the instrumentation pipeline over one handler file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("backup") && envBool("RETROFIT_BACKUP") {
				backup = true
			}
			if integration == "" {
				integration = os.Getenv("RETROFIT_INTEGRATION")
			}

			cfg := core.DefaultConfig()
			cfg.Integration = integration

			pipeline := core.NewPipeline(cfg, defaultOperationTable(), logger)
			writer := core.NewAtomicWriter(backup)

			res, err := pipeline.RunFile(args[0], writer, dryRun)
			if err != nil {
				return err
			}
			printReport(res)
			if dryRun && res.Changed {
				diff, err := res.Diff()
				if err != nil {
					return fmt.Errorf("rendering diff: %w", err)
				}
				fmt.Print(diff)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the diff without writing the file")
	cmd.Flags().BoolVar(&backup, "backup", false, "keep a timestamped backup of the original")
	cmd.Flags().StringVar(&integration, "integration", "", "integration name recorded as debug-info metadata")
	return cmd
}

func newLintfixCmd() *cobra.Command {
	var (
		include []string
		exclude []string
		write   bool
	)

	cmd := &cobra.Command{
		Use:   "lintfix <path>...",
		Short: "Apply conservative lint token substitutions across a tree",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			walker, err := lint.NewWalker(include, exclude)
			if err != nil {
				return err
			}
			files, err := walker.Walk(args...)
			if err != nil {
				return err
			}
			fmt.Printf("Found %d files\n", len(files))
			if !write {
				fmt.Println("Preview mode: no files will be modified (use --write to apply).")
			}

			runner := lint.NewRunner(lint.DefaultFixes(), write, logger)
			changed, failed := 0, 0
			for _, out := range runner.Run(files) {
				switch {
				case out.Err != nil:
					failed++
					fmt.Printf("%s %s: %v\n", red("✗"), out.Path, out.Err)
				case out.Changed:
					changed++
					fmt.Printf("%s %s (%d substitutions)\n", green("✓"), out.Path, out.Total())
				}
			}
			fmt.Printf("\n%d of %d files affected\n", changed, len(files))
			if failed > 0 {
				return fmt.Errorf("%d files failed", failed)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&include, "include", nil, "glob patterns of files to process (default **/*.ts)")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "glob patterns of files to skip")
	cmd.Flags().BoolVar(&write, "write", false, "write changes instead of previewing them")
	return cmd
}

func printReport(res *core.FileResult) {
	fmt.Println(bold(res.Path))
	for _, out := range res.Outcomes {
		fmt.Printf("  %-24s matched %3d   transformed %3d   skipped %3d\n",
			out.Pass, out.Matched, out.Transformed, out.Skipped)
		for _, note := range out.Notes {
			fmt.Printf("    %s %s\n", yellow("!"), note)
		}
	}
	if res.Changed {
		fmt.Printf("%s %s transformed\n", green("✓"), res.Path)
	} else {
		fmt.Printf("%s %s already conformant, nothing to do\n", green("✓"), res.Path)
	}
}

// defaultOperationTable covers the puppetserver integration routes. Extending
// coverage means appending entries here.
func defaultOperationTable() core.OperationTable {
	return core.OperationTable{
		{Method: "get", Path: "/nodes/:certname/status", Name: "GET /api/integrations/puppetserver/nodes/:certname/status"},
		{Method: "get", Path: "/nodes/:certname/facts", Name: "GET /api/integrations/puppetserver/nodes/:certname/facts"},
		{Method: "get", Path: "/catalog/:certname/:environment", Name: "GET /api/integrations/puppetserver/catalog/:certname/:environment"},
		{Method: "post", Path: "/catalog/compare", Name: "POST /api/integrations/puppetserver/catalog/compare"},
		{Method: "get", Path: "/environments", Name: "GET /api/integrations/puppetserver/environments"},
		{Method: "get", Path: "/environments/:name", Name: "GET /api/integrations/puppetserver/environments/:name"},
		{Method: "post", Path: "/environments/:name/deploy", Name: "POST /api/integrations/puppetserver/environments/:name/deploy"},
		{Method: "delete", Path: "/environments/:name/cache", Name: "DELETE /api/integrations/puppetserver/environments/:name/cache"},
		{Method: "get", Path: "/status/services", Name: "GET /api/integrations/puppetserver/status/services"},
		{Method: "get", Path: "/status/simple", Name: "GET /api/integrations/puppetserver/status/simple"},
		{Method: "get", Path: "/admin-api", Name: "GET /api/integrations/puppetserver/admin-api"},
		{Method: "get", Path: "/metrics", Name: "GET /api/integrations/puppetserver/metrics"},
	}
}

func envBool(key string) bool {
	switch os.Getenv(key) {
	case "1", "true", "TRUE", "yes":
		return true
	}
	return false
}

func main() {
	_ = godotenv.Load() // optional .env, absence is fine

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(newInstrumentCmd())
	rootCmd.AddCommand(newLintfixCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
