package main

import (
	"fmt"
	"io"
	"time"

	"github.com/hyperjump/ragbench/internal/indexcache"
	"github.com/hyperjump/ragbench/internal/storage"
	"github.com/spf13/cobra"
)

func newIndexCmd(g *globalFlags, stdout io.Writer) *cobra.Command {
	var rebuild bool
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Load the cached index, building it if missing, and print its status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			comps, cleanup, err := setup(g)
			if err != nil {
				return err
			}
			defer cleanup()

			start := time.Now()
			var idx *indexcache.Index
			if rebuild {
				idx, err = comps.RebuildIndex(cmd.Context())
			} else {
				idx, err = comps.ResolveIndex(cmd.Context())
			}
			if err != nil {
				return err
			}
			defer idx.Close()
			writeIndexStatus(stdout, idx, time.Since(start))
			return nil
		},
	}
	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "rebuild even if a valid cached index exists")
	return cmd
}

func writeIndexStatus(w io.Writer, idx *indexcache.Index, elapsed time.Duration) {
	info := idx.Info()
	fmt.Fprintf(w, "Index: %s (ready in %s)\n", idx.Dir(), elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "  Documents:  %d pages\n", info.Documents)
	fmt.Fprintf(w, "  Chunks:     %d (size %d, overlap %d)\n", idx.Size(), info.ChunkSize, info.ChunkOverlap)
	fmt.Fprintf(w, "  Embeddings: %s, %d dimensions\n", info.EmbeddingModel, info.Dimensions)
	if !info.BuiltAt.IsZero() {
		fmt.Fprintf(w, "  Built:      %s\n", info.BuiltAt.Local().Format(time.RFC1123))
	}
	if n, err := storage.DiskUsageBytes(idx.Dir()); err == nil {
		fmt.Fprintf(w, "  Disk:       %d bytes\n", n)
	}
}
