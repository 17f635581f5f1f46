package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Guliveer/hostmon/internal/config"
	"github.com/Guliveer/hostmon/internal/models"
	"github.com/Guliveer/hostmon/internal/scheduler"
	"github.com/Guliveer/hostmon/internal/service"
	"github.com/Guliveer/hostmon/internal/telemetry"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Poll the enabled monitors on every collection interval",
		Long: `Run the collection scheduler until interrupted. Each poll cycle is written
to stdout as one JSON line. When telemetry.listen_addr is set, self-metrics
are served at /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := initLogger(cfg)
			defer logger.Sync()

			svc := service.New(logger, func(ctx context.Context) error {
				return runMonitors(ctx, cfg, logger, cmd.OutOrStdout())
			})
			return svc.Run()
		},
	}
}

// runMonitors activates monitors and runs the scheduler. It blocks until the
// context is cancelled.
func runMonitors(ctx context.Context, cfg *config.Config, logger *zap.Logger, out io.Writer) error {
	logger.Info("Starting hostmon",
		zap.String("version", version),
		zap.String("compute_driver", cfg.Host.ComputeDriver),
		zap.Strings("enabled", cfg.Monitors.Enabled))

	st := buildStack(cfg, logger)
	defer st.Close(logger)

	if st.composite.Len() == 0 {
		logger.Warn("No monitors are active; check monitors.enabled")
	}

	if addr := cfg.Telemetry.ListenAddr; addr != "" {
		srv := &http.Server{Addr: addr, Handler: telemetryMux(st), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Info("Serving telemetry", zap.String("addr", addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Telemetry server failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	hostname := ""
	if id, err := st.host.Identity(ctx); err == nil {
		hostname = id.Hostname
	} else {
		hostname, _ = os.Hostname()
	}

	sched := scheduler.New(st.composite, scheduler.Config{
		Interval: cfg.Collection.Interval.Duration,
		Timeout:  cfg.Collection.Timeout.Duration,
		Hostname: hostname,
	}, logger)
	sched.OnBatchReady(batchWriter(out, logger))

	logger.Info("Monitors running",
		zap.Strings("active", st.composite.Names()),
		zap.Duration("interval", cfg.Collection.Interval.Duration))
	sched.Start(ctx)
	logger.Info("Hostmon stopped")
	return nil
}

func telemetryMux(st *stack) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", telemetry.Handler(st.registry))
	return mux
}

// batchWriter returns a callback that writes each batch as one JSON line.
func batchWriter(out io.Writer, logger *zap.Logger) func(models.Batch) {
	var mu sync.Mutex
	enc := json.NewEncoder(out)
	return func(b models.Batch) {
		mu.Lock()
		defer mu.Unlock()
		if err := enc.Encode(b); err != nil {
			logger.Error("Writing batch", zap.Error(err))
		}
	}
}
