package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	roomsync "github.com/goliatone/go-roomsync"
	"github.com/goliatone/go-roomsync/host/jshost"
	"github.com/goliatone/go-roomsync/pkg/activity"
	"github.com/goliatone/go-roomsync/pkg/activity/promsink"
	"github.com/goliatone/go-roomsync/pkg/logging/zaplog"
	"github.com/goliatone/go-roomsync/rules"
)

type watchOptions struct {
	scripts     []string
	duration    time.Duration
	metricsAddr string
	bridge      bridgeFlags
}

func newWatchCommand(global *globalOptions) *cobra.Command {
	opts := &watchOptions{}
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run loader scripts on a JavaScript host and print room changes",
		Long: `watch starts a JavaScript event loop, runs each --script as loader code,
and drives a room bridge from the resolved settings until interrupted or until
--for elapses.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, global, opts)
		},
	}
	flags := cmd.Flags()
	flags.StringArrayVar(&opts.scripts, "script", nil, "loader script to run (repeatable)")
	flags.DurationVar(&opts.duration, "for", 0, "stop after this long (0 runs until interrupted)")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
	opts.bridge.bind(flags)
	return cmd
}

func runWatch(cmd *cobra.Command, global *globalOptions, opts *watchOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	resolved, err := global.resolve(ctx, opts.bridge.layer(cmd.Flags()))
	if err != nil {
		return err
	}
	logger, err := global.logger()
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	registry := prometheus.NewRegistry()
	emitter := activity.NewEmitter(activity.Hooks{promsink.New(registry, "roomsync")}, activity.Config{Enabled: true})
	if opts.metricsAddr != "" {
		stop := serveMetrics(opts.metricsAddr, registry, logger)
		defer stop()
	}

	h := jshost.New()
	h.Start()
	defer h.Stop()

	runner, err := roomsync.NewRunner(h, resolved.Effective,
		roomsync.WithBridgeOptions(
			roomsync.WithBridgeLogger(zaplog.Bridge(logger)),
			roomsync.WithActivityEmitter(emitter),
		),
		roomsync.WithRuleOptions(
			rules.WithLogger(zaplog.Rules(logger)),
			rules.WithFunctionRegistry(rules.DefaultFunctions()),
		),
	)
	if err != nil {
		return err
	}

	out := &lockedWriter{w: cmd.OutOrStdout()}
	last := roomsync.NoRoom
	first := true
	unsubscribe := runner.Bridge().Room().Subscribe(func(room roomsync.RoomID) {
		if !first && room == last {
			return
		}
		first = false
		last = room
		out.Printf("room: %s\n", room)
	})
	defer unsubscribe()

	for _, path := range opts.scripts {
		src, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read script %q: %w", path, err)
		}
		if err := h.RunScript(path, string(src)); err != nil {
			return err
		}
	}

	if opts.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.duration)
		defer cancel()
	}

	logger.Info("bridge starting",
		zap.String("bridge_id", runner.Bridge().ID()),
		zap.String("namespace", resolved.Effective.Namespace),
		zap.Duration("interval", resolved.Effective.PollInterval),
	)
	err = runner.Run(ctx)
	if errors.Is(err, context.DeadlineExceeded) && opts.duration > 0 {
		return nil
	}
	return err
}

func serveMetrics(addr string, registry *prometheus.Registry, logger *zap.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}
}
