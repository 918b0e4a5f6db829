// Package main is the ragdriver entry point used by the prompt-testing harness:
//
//	ragdriver <llm_option> <prompt_option> <query>
//
// The option codes are translated into a model ID and prompt template and the pipeline
// answers the query, in process by default or through the ragpipeline binary when
// delegate.mode is "exec".
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hyperjump/ragbench/internal/app"
	"github.com/hyperjump/ragbench/internal/cli"
	"github.com/hyperjump/ragbench/internal/options"
	"github.com/hyperjump/ragbench/pkg/utils"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the driver with the full argument vector (program name first).
func run(ctx context.Context, argv []string, stdout, stderr io.Writer) int {
	cmd := newDriverCmd(argv, stdout)
	cmd.SetArgs(argv[1:])
	err := cmd.ExecuteContext(ctx)
	switch {
	case err == nil:
		return 0
	case options.IsUsageError(err):
		fmt.Fprintln(stderr, err)
		return 1
	default:
		cli.WriteFatal(stderr, err)
		return app.ExitCode(err)
	}
}

func newDriverCmd(argv []string, stdout io.Writer) *cobra.Command {
	var configPath string
	var debug bool
	cmd := &cobra.Command{
		Use:           "ragdriver <llm_option> <prompt_option> <query>",
		Short:         "Run the pipeline with option codes from the prompt-testing harness",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			logger, err := utils.NewLogger(cfg.Debug || debug)
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			defer logger.Sync()

			comps, err := app.New(cfg, logger)
			if err != nil {
				return err
			}
			defer comps.Close()

			// Positional arguments are validated against the resolver with the
			// program name in front, as the harness passes them.
			params, err := comps.Options.Resolve(append([]string{argv[0]}, args...))
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			d, release, err := comps.Delegate(ctx)
			if err != nil {
				return err
			}
			defer release()

			out, err := d.Invoke(ctx, params)
			if out != "" {
				fmt.Fprintln(stdout, strings.TrimRight(out, "\n"))
			}
			return err
		},
	}
	cmd.SetOut(stdout)
	cmd.Flags().SetInterspersed(false)
	cmd.Flags().StringVar(&configPath, "config", app.DefaultConfigPath, "config file path")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	return cmd
}
