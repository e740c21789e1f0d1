// Package main implements the entry point for the neurostream service: it
// acquires multiple physiological sample streams over a transport, maintains
// per-stream ring buffers, and runs a fixed-cadence decoding loop that emits
// predictions to the configured sinks.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/c360/neurostream/config"
	"github.com/c360/neurostream/engine"
	"github.com/c360/neurostream/metric"
	"github.com/c360/neurostream/natsclient"
	"github.com/c360/neurostream/pkg/timestamp"
	"github.com/c360/neurostream/pkg/triggerdef"
	"github.com/c360/neurostream/player"
	"github.com/c360/neurostream/receiver"
	"github.com/c360/neurostream/recorder"
	"github.com/c360/neurostream/scheduler"
	"github.com/c360/neurostream/transport"
	"github.com/c360/neurostream/transport/loopback"
	"github.com/c360/neurostream/transport/natstream"
	"github.com/c360/neurostream/types"
)

// Build information constants
const (
	Version = "0.1.0"
	appName = "neurostream"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Service failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}
	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil
	}

	cfg, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := cliCfg.LogLevel
	if level == "" {
		level = cfg.LogLevel
	}
	logger := setupLogger(level, cliCfg.LogFormat)
	slog.SetDefault(logger)

	if cliCfg.Validate {
		slog.Info("Configuration is valid", "config_path", cliCfg.ConfigPath)
		return nil
	}

	slog.Info("Starting neurostream",
		"version", Version,
		"config_path", cliCfg.ConfigPath,
		"transport", cfg.Transport.Kind,
		"cadence_hz", cfg.Scheduler.CadenceHz,
		"workers", cfg.Scheduler.Workers)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := metric.NewMetricsRegistry()
	startMetricsServer(cliCfg.MetricsPort, registry)

	ts, err := setupTransport(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer ts.cleanup()

	eng := engine.New(engine.Deps{
		Name:            appName,
		StopTimeout:     cliCfg.ShutdownTimeout,
		MetricsRegistry: registry,
		Logger:          logger,
	})

	if err := assemblePipeline(ctx, cfg, eng, ts, registry, logger); err != nil {
		return err
	}

	err = eng.Run(ctx)
	slog.Info("Shutdown complete")
	return err
}

// transportSetup bundles the consuming transport with a factory for the
// private per-worker connections interleaved mode needs.
type transportSetup struct {
	root    transport.Transport
	connect func(context.Context) (transport.Transport, error)
	cleanup func()
	bus     *loopback.Bus // non-nil in loopback mode
}

func setupTransport(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*transportSetup, error) {
	switch cfg.Transport.Kind {
	case "loopback":
		bus := loopback.NewBus()
		return &transportSetup{
			root:    bus.Connect(),
			connect: func(context.Context) (transport.Transport, error) { return bus.Connect(), nil },
			cleanup: func() {},
			bus:     bus,
		}, nil

	case "nats":
		nc := cfg.Transport.NATS
		client, err := natsclient.NewClient(nc.URL,
			natsclient.WithName(nc.Name),
			natsclient.WithMaxReconnects(nc.MaxReconnects),
			natsclient.WithReconnectWait(time.Duration(nc.ReconnectWaitMS)*time.Millisecond),
			natsclient.WithLogger(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("create NATS client: %w", err)
		}
		if err := client.Connect(ctx); err != nil {
			return nil, fmt.Errorf("connect to NATS: %w", err)
		}
		connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := client.WaitForConnection(connCtx); err != nil {
			_ = client.Close(context.Background())
			return nil, fmt.Errorf("NATS connection timeout: %w", err)
		}

		connect := func(ctx context.Context) (transport.Transport, error) {
			return natstream.New(ctx, client,
				natstream.WithBucket(nc.Bucket),
				natstream.WithLogger(logger))
		}
		root, err := connect(ctx)
		if err != nil {
			_ = client.Close(context.Background())
			return nil, fmt.Errorf("open transport: %w", err)
		}
		return &transportSetup{
			root:    root,
			connect: connect,
			cleanup: func() { _ = client.Close(context.Background()) },
		}, nil

	default:
		return nil, fmt.Errorf("unknown transport kind %q", cfg.Transport.Kind)
	}
}

// assemblePipeline registers the managed components in start order: demo
// source (loopback only), receiver, recorder, scheduler.
func assemblePipeline(
	ctx context.Context,
	cfg *config.Config,
	eng *engine.Engine,
	ts *transportSetup,
	registry *metric.MetricsRegistry,
	logger *slog.Logger,
) error {
	// A loopback deployment has no external producers, so it carries its
	// own synthetic source and marker stream. Useful as a self-contained
	// smoke deployment; real signal arrives over NATS.
	if ts.bus != nil {
		if err := addDemoSource(ctx, cfg, eng, ts, logger); err != nil {
			return err
		}
	}

	recvCfg := receiver.Config{
		BufferSeconds: cfg.Acquisition.BufferSeconds,
		WindowSeconds: cfg.Acquisition.WindowSeconds,
		PullTimeout:   cfg.Acquisition.PullTimeout(),
		ReferenceID:   cfg.Acquisition.ReferenceID,
	}

	classify := dominantChannelClassifier()
	if cfg.Recorder.Enabled {
		rec, err := recorder.New(recorder.Deps{
			Config:          recorder.Config{Dir: cfg.Recorder.Dir, QueueSize: cfg.Recorder.QueueSize},
			MetricsRegistry: registry,
			Logger:          logger,
		})
		if err != nil {
			return fmt.Errorf("create recorder: %w", err)
		}
		if err := eng.Add(rec); err != nil {
			return err
		}
		classify = recordingClassifier(classify, rec, logger)
		slog.Info("Recording enabled", "dir", cfg.Recorder.Dir, "session", rec.Session())
	}

	sink, err := buildSinks(cfg, ts.root, logger)
	if err != nil {
		return err
	}

	schedDeps := scheduler.Deps{
		Config: scheduler.Config{
			CadenceHz:     cfg.Scheduler.CadenceHz,
			WindowSeconds: cfg.Scheduler.WindowSeconds,
			Workers:       cfg.Scheduler.Workers,
		},
		Classify:        classify,
		Sink:            sink,
		MetricsRegistry: registry,
		Logger:          logger,
	}

	if cfg.Scheduler.Workers > 1 {
		schedDeps.Factory = workerSourceFactory(recvCfg, ts, registry, logger)
	} else {
		recv, err := receiver.New(receiver.Deps{
			Config:          recvCfg,
			Transport:       ts.root,
			MetricsRegistry: registry,
			Logger:          logger,
		})
		if err != nil {
			return fmt.Errorf("create receiver: %w", err)
		}
		if err := eng.Add(recv); err != nil {
			return err
		}
		schedDeps.Source = recv
	}

	sched, err := scheduler.New(schedDeps)
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	return eng.Add(sched)
}

// workerSourceFactory builds share-nothing sources for interleaved workers:
// each gets its own transport connection and its own receiver buffers.
func workerSourceFactory(
	recvCfg receiver.Config,
	ts *transportSetup,
	registry *metric.MetricsRegistry,
	logger *slog.Logger,
) scheduler.SourceFactory {
	var seq int
	return func(ctx context.Context) (scheduler.Source, error) {
		seq++
		tr, err := ts.connect(ctx)
		if err != nil {
			return nil, err
		}
		recv, err := receiver.New(receiver.Deps{
			Name:      fmt.Sprintf("receiver-%d", seq),
			Config:    recvCfg,
			Transport: tr,
			Logger:    logger,
		})
		if err != nil {
			_ = tr.Close()
			return nil, err
		}
		if err := recv.Connect(ctx); err != nil {
			_ = tr.Close()
			return nil, err
		}
		return &workerSource{Receiver: recv, tr: tr}, nil
	}
}

// workerSource ties a private transport connection's lifetime to its
// receiver's.
type workerSource struct {
	*receiver.Receiver
	tr transport.Transport
}

func (s *workerSource) Close() error {
	err := s.Receiver.Close()
	if cerr := s.tr.Close(); err == nil {
		err = cerr
	}
	return err
}

// buildSinks assembles the prediction fan-out: always a log sink, plus the
// marker-annotation sink when a marker stream and trigger table are
// configured.
func buildSinks(cfg *config.Config, pusher scheduler.MarkerPusher, logger *slog.Logger) (scheduler.Sink, error) {
	sinks := scheduler.MultiSink{scheduler.NewSlogSink(logger)}

	if cfg.Scheduler.MarkerStream != "" {
		def, err := triggerdef.Load(cfg.Scheduler.TriggerFile)
		if err != nil {
			return nil, fmt.Errorf("load trigger definitions: %w", err)
		}
		marker, err := scheduler.NewMarkerSink(pusher, cfg.Scheduler.MarkerStream, def)
		if err != nil {
			return nil, fmt.Errorf("create marker sink: %w", err)
		}
		sinks = append(sinks, marker)
		slog.Info("Marker annotation enabled",
			"stream", cfg.Scheduler.MarkerStream,
			"events", def.Len())
	}

	if len(sinks) == 1 {
		return sinks[0], nil
	}
	return sinks, nil
}

// recordingClassifier wraps a classifier so every successfully decoded window
// lands in the recorder alongside its prediction.
func recordingClassifier(inner scheduler.Classifier, rec *recorder.Recorder, logger *slog.Logger) scheduler.Classifier {
	return func(w types.AlignedWindow) (string, float64, error) {
		label, score, err := inner(w)
		if err != nil {
			return label, score, err
		}
		if rerr := rec.Record(w, map[string]any{"label": label, "score": score}); rerr != nil {
			logger.Debug("window not recorded", "error", rerr)
		}
		return label, score, err
	}
}

// addDemoSource registers the loopback deployment's synthetic signal and
// announces its marker stream.
func addDemoSource(ctx context.Context, cfg *config.Config, eng *engine.Engine, ts *transportSetup, logger *slog.Logger) error {
	const (
		demoChannels = 8
		demoRate     = 256.0
		demoSeconds  = 10
	)

	pub := ts.bus.Connect()
	names := make([]string, demoChannels)
	for i := range names {
		names[i] = fmt.Sprintf("ch%02d", i)
	}
	info := types.StreamInfo{
		ID:          "demo-signal",
		Name:        "synthetic sine source",
		Role:        types.RoleSignal,
		Layout:      types.ChannelLayout{Names: names},
		NominalRate: demoRate,
	}

	demo, err := player.New(player.Deps{
		Name:      "demo-player",
		Config:    player.Config{Loop: true},
		Publisher: pub,
		Info:      info,
		Samples:   player.Sine(demoChannels, demoRate, 10, demoSeconds*int(demoRate), timestamp.Now()),
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("create demo source: %w", err)
	}

	if cfg.Scheduler.MarkerStream != "" {
		err := pub.Announce(ctx, types.StreamInfo{
			ID:   cfg.Scheduler.MarkerStream,
			Name: "prediction markers",
			Role: types.RoleMarker,
		})
		if err != nil {
			return fmt.Errorf("announce marker stream: %w", err)
		}
	}

	slog.Info("Loopback demo source enabled", "stream", info.ID, "rate_hz", demoRate)
	return eng.Add(demo)
}

// startMetricsServer serves Prometheus metrics in the background; port 0
// disables it.
func startMetricsServer(port int, registry *metric.MetricsRegistry) {
	if port <= 0 {
		return
	}
	srv := metric.NewServer(port, "/metrics", registry)
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("Metrics server failed", "error", err)
		}
	}()
	slog.Info("Metrics server listening", "address", srv.Address())
}
