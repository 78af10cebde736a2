package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var workerCount int

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run indexing workers without the HTTP server",
	Long: `Runs workers that claim queued index jobs, extract and chunk documents,
embed the chunks, and add them to the search indexes. Useful for scaling
indexing separately from the API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		count := workerCount
		if count <= 0 {
			count = a.cfg.Worker.Count
		}
		if count <= 0 {
			count = 1
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a.log.Info("starting workers", "count", count)

		g, ctx := errgroup.WithContext(ctx)
		for i := 0; i < count; i++ {
			w := a.newWorker()
			g.Go(func() error { return w.Run(ctx) })
		}
		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	workerCmd.Flags().IntVar(&workerCount, "count", 0, "number of workers (overrides config)")
	rootCmd.AddCommand(workerCmd)
}
