// glidermon watches one glider's shore-side session log and dispatches
// operator notifications as the mission progresses.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/iop-apl-uw/glidermon/internal/config"
	"github.com/iop-apl-uw/glidermon/internal/dispatch"
	"github.com/iop-apl-uw/glidermon/internal/lifecycle"
	"github.com/iop-apl-uw/glidermon/internal/metrics"
	"github.com/iop-apl-uw/glidermon/internal/sink"
	appversion "github.com/iop-apl-uw/glidermon/internal/version"
)

// shutdownTimeout bounds the metrics/status HTTP server's drain on
// cancellation, mirroring the teacher's shutdownTimeout.
const shutdownTimeout = 10 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	daemonize := flag.Bool("daemonize", false, "detach into the background after startup")
	parentPID := flag.Int("parent-pid", 0, "pid of the parent login shell to supervise (0 disables the watchdog)")
	debug := flag.Bool("debug", false, "enable debug-level logging")
	metricsAddr := flag.String("metrics-addr", "", "address to serve /metrics and /status on (empty disables the HTTP server)")
	basestationSubs := flag.String("basestation-subscriptions", "", "path to the basestation-wide subscription layer")
	groupSubs := flag.String("group-subscriptions", "", "path to the mission-group subscription layer")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: glidermon [flags] <mission-dir-or-logfile>")
		return 1
	}

	procCfg, err := config.LoadProcessConfig()
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("failed to load process configuration",
			slog.String("error", err.Error()))
		return 1
	}
	if *debug {
		procCfg.LogLevel = "debug"
	}
	if *metricsAddr != "" {
		procCfg.MetricsAddr = *metricsAddr
	}

	logger := newLogger(procCfg)

	missionDir, logPath, err := lifecycle.ResolveMissionPaths(flag.Arg(0))
	if err != nil {
		logger.Error("failed to resolve mission directory/log path", slog.String("error", err.Error()))
		return 1
	}

	if *daemonize {
		logger.Warn("daemonize requested; glidermon expects its caller (the login shell wrapper) to have already forked — running in foreground")
	}

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	registry := sink.DefaultRegistry(sink.Config{
		SMTP: sink.SMTPConfig{
			Host:     procCfg.SMTPHost,
			Port:     procCfg.SMTPPort,
			Username: procCfg.SMTPUsername,
			Password: procCfg.SMTPPassword,
		},
		Satellite:            sink.SatelliteConfig{BaseURL: procCfg.SatelliteBaseURL},
		VisualizationBaseURL: procCfg.VisualizationBaseURL,
	})

	layers := config.SubscriptionLayers{
		Basestation: *basestationSubs,
		Group:       *groupSubs,
		Mission:     filepath.Join(missionDir, "subscriptions.yml"),
	}
	d := dispatch.New("", layers, config.DefaultLoadOptions(), registry, logger)
	d.Metrics = collector

	ctrl := lifecycle.New(missionDir, logPath, *parentPID, d, collector, logger)

	var status atomic.Pointer[statusSnapshot]
	ctrl.OnStatus = func(gliderID string, at time.Time) {
		status.Store(&statusSnapshot{GliderID: gliderID, UpdatedAt: at})
	}

	if err := runSupervised(ctrl, &status, reg, procCfg.MetricsAddr, logger); err != nil {
		logger.Error("glidermon exited with error", slog.String("error", err.Error()))
		return 1
	}

	logger.Info("glidermon stopped")
	return 0
}

// statusSnapshot is the JSON the /status endpoint reports, published after
// each tailer pass. It is held in memory only; glidermonctl status does not
// read it.
type statusSnapshot struct {
	GliderID  string    `json:"glider_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

// runSupervised runs the controller loop alongside the (optional)
// metrics/status HTTP server in an errgroup bound to a signal-aware
// context, per SPEC_FULL.md's process-structure expansion of §4.8.
func runSupervised(ctrl *lifecycle.Controller, status *atomic.Pointer[statusSnapshot], reg *prometheus.Registry, metricsAddr string, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	var srv *http.Server
	if metricsAddr != "" {
		srv = newStatusServer(metricsAddr, reg, status)
		g.Go(func() error {
			logger.Info("metrics/status server listening", slog.String("addr", metricsAddr))
			lc := net.ListenConfig{}
			ln, err := lc.Listen(gCtx, "tcp", metricsAddr)
			if err != nil {
				logger.Warn("failed to bind metrics/status server, continuing without it",
					slog.String("addr", metricsAddr), slog.String("error", err.Error()))
				return nil
			}
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("metrics/status server stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	g.Go(func() error {
		err := ctrl.Run(gCtx)
		stop() // a normal or abnormal controller exit ends the whole process
		return err
	})

	notifyReady(logger)

	g.Go(func() error {
		<-gCtx.Done()
		notifyStopping(logger)
		if srv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gCtx), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("metrics/status server shutdown error", slog.String("error", err.Error()))
			}
		}
		return nil
	})

	return g.Wait()
}

func newStatusServer(addr string, reg *prometheus.Registry, status *atomic.Pointer[statusSnapshot]) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		snap := status.Load()
		if snap == nil {
			http.Error(w, "status not yet available", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(snap)
	})
	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
}

func notifyReady(logger *slog.Logger) {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		logger.Warn("failed to notify systemd readiness", slog.String("error", err.Error()))
		return
	}
	if sent {
		logger.Info("notified systemd: READY")
	}
}

func notifyStopping(logger *slog.Logger) {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyStopping)
	if err != nil {
		logger.Warn("failed to notify systemd stopping", slog.String("error", err.Error()))
		return
	}
	if sent {
		logger.Info("notified systemd: STOPPING")
	}
}

func newLogger(cfg *config.ProcessConfig) *slog.Logger {
	level := config.ParseLogLevel(cfg.LogLevel)
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch cfg.LogFormat {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	logger.Info("glidermon starting", slog.String("version", appversion.Version))
	return logger
}
