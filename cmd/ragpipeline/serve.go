package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/hyperjump/ragbench/internal/server"
	"github.com/hyperjump/ragbench/internal/watcher"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(g *globalFlags) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the answer API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			comps, cleanup, err := setup(g)
			if err != nil {
				return err
			}
			defer cleanup()
			logger := comps.Logger
			ctx := cmd.Context()

			idx, err := comps.ResolveIndex(ctx)
			if err != nil {
				return err
			}
			srv := server.NewServer(comps.Pipeline, comps.Options, idx, &comps.Config.Server, logger)
			defer srv.Close()

			if watch || comps.Config.Server.WatchCorpus {
				w := watcher.NewWatcher(comps.Config.Corpus.Dir, []string{".pdf"},
					func(ctx context.Context) {
						next, err := comps.RebuildIndex(ctx)
						if err != nil {
							logger.Warn("corpus changed but rebuild failed; keeping current index", zap.Error(err))
							return
						}
						if err := srv.SwapIndex(next); err != nil {
							logger.Warn("rebuilt index discarded", zap.Error(err))
						}
					},
					watcher.WithLogger(logger),
				)
				if err := w.Start(ctx); err != nil {
					return err
				}
				defer w.Stop()
			}

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}
			logger.Info("Shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Stop(shutdownCtx)
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "rebuild the index when PDFs in the corpus directory change")
	return cmd
}
