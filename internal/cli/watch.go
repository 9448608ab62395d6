package cli

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dl-alexandre/medialib/internal/logging"
	"github.com/dl-alexandre/medialib/internal/metrics"
	"github.com/dl-alexandre/medialib/internal/tracker"
	"github.com/dl-alexandre/medialib/internal/tracker/status"
)

var watchCmd = &cobra.Command{
	Use:   "watch [collection-id...]",
	Short: "Sweep collections periodically until interrupted",
	Long: `Sweep the given collections, or all of them, every interval. Each
finished sweep is followed by an import unless --import=false. Prometheus
metrics are served on --metrics-addr while watching.`,
	RunE: runWatch,
}

var (
	watchInterval      time.Duration
	watchMetricsAddr   string
	watchImport        bool
	watchMaxConcurrent int
)

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "Delay between sweeps (default from config)")
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "Address for /metrics, 'off' to disable (default from config)")
	watchCmd.Flags().BoolVar(&watchImport, "import", true, "Import pending directories after each sweep")
	watchCmd.Flags().IntVar(&watchMaxConcurrent, "max-concurrent", 0, "Collections swept at the same time, 0 for all")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	out := NewOutputWriter(cmd)
	ctx, stop := commandContext(cmd)
	defer stop()

	interval := watchInterval
	if interval <= 0 {
		interval = appConfig.GetWatchInterval()
	}
	addr := watchMetricsAddr
	if addr == "" {
		addr = appConfig.MetricsAddr
	}
	if addr == "off" {
		addr = ""
	}

	store, err := openIndex(ctx)
	if err != nil {
		return out.Fail("watch", err)
	}
	defer store.Close()

	var sweeps, failures atomic.Int64
	engine := tracker.NewEngine(store, logger)
	watcher := tracker.NewWatcher(engine, store, tracker.WatchOptions{
		Interval:      interval,
		MaxConcurrent: watchMaxConcurrent,
		Import:        watchImport,
		Sweep: tracker.SweepOptions{
			Exclude:          appConfig.ExcludePatterns,
			ProgressInterval: appConfig.GetProgressInterval(),
		},
		OnSweep: func(res tracker.SweepResult, err error) {
			sweeps.Add(1)
			if err != nil {
				failures.Add(1)
			}
		},
	})

	for _, id := range args {
		if _, err := loadCollection(ctx, store, id); err != nil {
			return out.Fail("watch", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	var server *http.Server
	if addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		server = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			logger.Info("serving metrics", logging.String("addr", addr))
			if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		defer func() {
			if server != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = server.Shutdown(shutdownCtx)
			}
		}()
		logger.Info("watching collections",
			logging.Int("collections", len(args)),
			logging.Duration("interval", interval))
		return watcher.Run(gctx, args)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, status.ErrNotFound) && len(args) == 0 {
			return out.Invalid("watch", "no collections to watch; add one with 'medialib collection add'")
		}
		return out.Fail("watch", err)
	}
	return out.WriteSuccess("watch", map[string]interface{}{
		"sweeps":   sweeps.Load(),
		"failures": failures.Load(),
		"interval": interval.String(),
	})
}
