// Package main is the ragpipeline entry point: answer a question over the IRS corpus,
// manage the cached index, or serve the HTTP API.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/hyperjump/ragbench/internal/app"
	"github.com/hyperjump/ragbench/internal/cli"
	"github.com/hyperjump/ragbench/internal/config"
	"github.com/hyperjump/ragbench/internal/prompt"
	"github.com/hyperjump/ragbench/pkg/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

type globalFlags struct {
	configPath string
	debug      bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command line and returns the exit status.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err != nil {
		cli.WriteFatal(stderr, err)
	}
	return app.ExitCode(err)
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	g := &globalFlags{}
	var llmID, promptTemplate, query, output string

	root := &cobra.Command{
		Use:           "ragpipeline",
		Short:         "Answer tax questions from IRS publications with retrieval-augmented generation",
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cli.ParseFormat(output)
			if err != nil {
				return err
			}
			comps, cleanup, err := setup(g)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := cmd.Context()
			idx, err := comps.ResolveIndex(ctx)
			if err != nil {
				return err
			}
			defer idx.Close()

			if g.debugEnabled(comps.Config) {
				fragments, err := idx.Retrieve(ctx, prompt.DefaultQuery, comps.Pipeline.TopK())
				if err != nil {
					return err
				}
				cli.WriteFragments(stderr, fragments)
			}

			ans, err := comps.Pipeline.Answer(ctx, idx, llmID, promptTemplate, query)
			if err != nil {
				return err
			}
			return cli.WriteAnswer(stdout, ans, format)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", app.DefaultConfigPath, "config file path")
	pf.BoolVar(&g.debug, "debug", false, "enable debug logging and list the fragments retrieved for the default query")

	f := root.Flags()
	f.StringVar(&llmID, "llm_id", "", "model to generate with (default from generation.default_model)")
	f.StringVar(&promptTemplate, "prompt_template", "", "prompt template with {context} and {question} slots")
	f.StringVar(&query, "query", "", "question to answer")
	f.StringVar(&output, "output", "text", "output format: text or json")

	root.AddCommand(newIndexCmd(g, stdout), newServeCmd(g))
	return root
}

// debugEnabled reports whether --debug or the config's debug setting is on.
func (g *globalFlags) debugEnabled(cfg *config.Config) bool {
	return g.debug || cfg.Debug
}

// setup loads the config and builds the components. The returned cleanup flushes the
// logger and closes the embedder.
func setup(g *globalFlags) (*app.Components, func(), error) {
	cfg, err := app.LoadConfig(g.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := utils.NewLogger(g.debugEnabled(cfg))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Debug("config loaded",
		zap.String("config_path", g.configPath),
		zap.String("index_dir", cfg.Index.Dir),
		zap.String("corpus_dir", cfg.Corpus.Dir),
	)
	comps, err := app.New(cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}
	return comps, func() {
		_ = comps.Close()
		_ = logger.Sync()
	}, nil
}
