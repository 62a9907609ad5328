package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driving"
	"github.com/custodia-labs/ragline/internal/extractors/watcher"
	"github.com/custodia-labs/ragline/internal/logger"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Watch a directory and re-ingest files on change",
	Long: `Watch a directory tree for changes to supported files. Created and
modified files are re-ingested; removed files have their records
deleted from the vector store. Rapid successive writes to the same
file are coalesced.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := initServices(); err != nil {
			return err
		}
		defer closeServices()

		w, err := watcher.New(args[0], extractor.Supports, watcher.WithDebounce(watchDebounce))
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cmd.Printf("Watching %s (ctrl-c to stop)\n", args[0])

		go func() {
			for ev := range w.Events() {
				handleWatchEvent(ctx, cmd, ev)
			}
		}()

		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watcher.DefaultDebounce, "delay before re-ingesting a changed file")
	rootCmd.AddCommand(watchCmd)
}

func handleWatchEvent(ctx context.Context, cmd *cobra.Command, ev watcher.Event) {
	switch ev.Type {
	case watcher.EventUpsert:
		doc, err := extractor.Extract(ctx, ev.Path)
		if err != nil {
			logger.Warn("watch: extract %s: %v", ev.Path, err)
			return
		}
		// Replace existing records so edits don't accumulate stale chunks.
		if _, err := retrieval.Delete(ctx, doc.Source); err != nil {
			logger.Warn("watch: clearing %s: %v", doc.Source, err)
		}
		report, err := pipeline.Ingest(ctx, []domain.ExtractedDocument{*doc}, driving.IngestOptions{})
		if err != nil {
			logger.Warn("watch: ingest %s: %v", ev.Path, err)
			return
		}
		cmd.Printf("ingested %s (%d chunks, %d uploaded)\n", ev.Path, report.Chunks, report.Uploaded)

	case watcher.EventDelete:
		deleted, err := retrieval.Delete(ctx, ev.Path)
		if err != nil {
			logger.Warn("watch: delete %s: %v", ev.Path, err)
			return
		}
		cmd.Printf("removed %s (%d records)\n", ev.Path, deleted)
	}
}
