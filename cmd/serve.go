package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hfarouk/docdex/internal/chat"
	"github.com/hfarouk/docdex/internal/intent"
	"github.com/hfarouk/docdex/internal/refiner"
	"github.com/hfarouk/docdex/internal/reranker"
	"github.com/hfarouk/docdex/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the docdex HTTP server and indexing workers",
	Long: `Starts the HTTP API for uploads, job inspection, and querying, plus the
configured number of background indexing workers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		port := a.cfg.Port
		if servePort != 0 {
			port = servePort
		}

		var rr reranker.Reranker
		if a.cfg.Search.Rerank {
			rr = reranker.New(a.provider)
		}

		srv := server.New(server.Config{Port: port, AllowAll: true}, server.Deps{
			Store:     a.store,
			Queue:     a.queue,
			Ingest:    a.ingest,
			Index:     a.index,
			Retriever: a.retriever,
			Refiner:   refiner.New(a.provider),
			Intent:    intent.New(a.provider),
			Reranker:  rr,
			Assistant: chat.New(a.provider),
			Search:    a.cfg.Search,
			Log:       a.log,
		})

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		g, ctx := errgroup.WithContext(ctx)

		for i := 0; i < a.cfg.Worker.Count; i++ {
			w := a.newWorker()
			g.Go(func() error { return w.Run(ctx) })
		}

		g.Go(func() error {
			if err := srv.Start(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			return srv.Shutdown(context.Background())
		})

		a.log.Info("docdex starting",
			"version", Version, "port", port, "workers", a.cfg.Worker.Count, "data_dir", a.cfg.DataDir)

		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
