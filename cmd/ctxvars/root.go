package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/internal/cli"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/internal/config"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/internal/logging"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/domain"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ctxvars",
	Short: "ctxvars resolves and derives context variables for agent sessions",
	Long: `ctxvars validates context variable manifests, bootstraps sessions against
static, environment, record and derived sources, and serves them over HTTP or MCP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.Load()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	pf := rootCmd.PersistentFlags()
	pf.StringSliceP("manifest", "m", []string{"context_variables.yaml"}, "Manifest file; repeat to layer manifests")
	pf.StringSlice("env-file", nil, "Dotenv files consulted after the process environment for environment sources")
	pf.String("mode", "", "Deployment mode: production or development (default from ENVIRONMENT)")
	pf.Bool("no-records", false, "Do not seed record-sourced variables")
	pf.Bool("verbose", false, "Log a diff of every context change")
	pf.String("records", "", "Record backend: memory, redis or loam (default from REDIS_ADDR / RECORDS_DIR)")
	pf.String("seed", "", "YAML or JSON file of record documents written before use")
	pf.String("log-level", "", "Log level: debug, info, warn or error (default from LOG_LEVEL)")
	pf.String("log-format", "", "Log format: text or json (default from LOG_FORMAT)")
	pf.Bool("plain", false, "Never render markdown, print JSON")
}

// newLogger builds the stderr logger from flags, falling back to config.
func newLogger(cmd *cobra.Command) *slog.Logger {
	level, _ := cmd.Flags().GetString("log-level")
	if level == "" {
		level = config.LogLevel()
	}
	format, _ := cmd.Flags().GetString("log-format")
	if format == "" {
		format = config.LogFormat()
	}
	return logging.New(logging.ParseLevel(level), format)
}

// engineOptions merges flags over config.
func engineOptions(cmd *cobra.Command) cli.EngineOptions {
	f := cmd.Flags()
	manifests, _ := f.GetStringSlice("manifest")
	envFiles, _ := f.GetStringSlice("env-file")
	noRecords, _ := f.GetBool("no-records")
	verbose, _ := f.GetBool("verbose")
	backend, _ := f.GetString("records")
	seed, _ := f.GetString("seed")

	mode := config.Mode()
	if m, _ := f.GetString("mode"); m != "" {
		mode = domain.ParseMode(m)
	}

	return cli.EngineOptions{
		Manifests:        manifests,
		EnvFiles:         envFiles,
		Mode:             mode,
		IncludeRecords:   config.IncludeRecords() && !noRecords,
		Verbose:          verbose || config.Verbose(),
		BootstrapTimeout: config.BootstrapTimeout(),
		QueueSize:        config.EventQueue(),
		SeedFile:         seed,
		Records: cli.RecordOptions{
			Backend:       backend,
			RedisAddr:     config.RedisAddr(),
			RedisPassword: config.RedisPassword(),
			RedisDB:       config.RedisDB(),
			Dir:           config.RecordsDir(),
		},
	}
}

func printer(cmd *cobra.Command) *cli.Printer {
	plain, _ := cmd.Flags().GetBool("plain")
	return cli.NewPrinter(cmd.OutOrStdout(), plain)
}
