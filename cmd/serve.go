package cmd

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"redditfrost/internal/api"
	"redditfrost/internal/config"
	"redditfrost/internal/redisclient"
	"redditfrost/worker"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveNoAPI bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run scheduled hunts for configured campaigns and the operator API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		// Redis client
		rdb := redisclient.New(cfg.Redis)
		defer rdb.Close()
		pingCtx, cancelPing := context.WithTimeout(context.Background(), 2*time.Second)
		err := redisclient.Ping(pingCtx, rdb)
		cancelPing()
		if err != nil {
			return err
		}

		svc, err := newService(&cfg, rdb)
		if err != nil {
			return err
		}

		// One hunt worker per configured campaign; inactive campaigns are
		// skipped per tick so they can be started at runtime.
		var ws []worker.Worker
		for _, cc := range cfg.Campaigns {
			ws = append(ws, &worker.HuntWorker{
				Service:      svc,
				CampaignID:   cc.ID,
				Interval:     config.Duration(cfg.Hunt.Interval),
				CycleTimeout: config.Duration(cfg.Hunt.CycleTimeout),
				AutoPost:     cfg.Hunt.AutoPost,
			})
			slog.Info("starting hunt worker", "campaign", cc.ID, "persona", cc.Persona, "mode", cc.HuntMode, "interval", cfg.Hunt.Interval)
		}
		mgr := worker.NewManager(ws...)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Signal handling for systemd
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			s := <-sigc
			log.Printf("received signal: %s, shutting down", s)
			cancel()
		}()

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return mgr.Start(gctx) })
		if !serveNoAPI {
			srv := api.New(svc, config.Duration(cfg.Hunt.CycleTimeout))
			g.Go(func() error { return srv.Start(gctx, cfg.API.Addr) })
		}
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveNoAPI, "no-api", false, "run scheduled hunts without the HTTP API")
	rootCmd.AddCommand(serveCmd)
}
