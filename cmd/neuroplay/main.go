// Package main implements neuroplay, the stream replay tool: it announces a
// signal stream on a NATS transport and plays a synthetic waveform or a
// recorded session into it at the stream's nominal rate.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/c360/neurostream/natsclient"
	"github.com/c360/neurostream/pkg/timestamp"
	"github.com/c360/neurostream/player"
	"github.com/c360/neurostream/transport/natstream"
	"github.com/c360/neurostream/types"
)

const (
	Version = "0.1.0"
	appName = "neuroplay"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	NATSURL string
	Bucket  string

	StreamID string
	Channels int
	Rate     float64
	Waveform string
	FreqHz   float64
	Seconds  float64

	Session       string
	SessionStream string

	ChunkSize int
	Loop      bool
	Speed     float64

	LogLevel    string
	LogFormat   string
	ShowVersion bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	flag.StringVar(&cfg.NATSURL, "nats-url",
		envOr("NEUROSTREAM_NATS_URL", "nats://localhost:4222"),
		"NATS server URL (env: NEUROSTREAM_NATS_URL)")
	flag.StringVar(&cfg.Bucket, "bucket",
		envOr("NEUROSTREAM_NATS_BUCKET", natstream.DefaultBucket),
		"Stream announcement bucket (env: NEUROSTREAM_NATS_BUCKET)")

	flag.StringVar(&cfg.StreamID, "stream", "", "Stream ID to announce, generated when empty")
	flag.IntVar(&cfg.Channels, "channels", 8, "Synthetic channel count")
	flag.Float64Var(&cfg.Rate, "rate", 256, "Nominal sampling rate in Hz (0 with -session infers from timestamps)")
	flag.StringVar(&cfg.Waveform, "waveform", "sine", "Synthetic waveform: sine, counting")
	flag.Float64Var(&cfg.FreqHz, "freq", 10, "Sine frequency in Hz")
	flag.Float64Var(&cfg.Seconds, "seconds", 10, "Synthetic recording length in seconds")

	flag.StringVar(&cfg.Session, "session", "", "Recorded session file to replay instead of a synthetic waveform")
	flag.StringVar(&cfg.SessionStream, "session-stream", "",
		"Stream ID to extract from the session, empty for the reference stream")

	flag.IntVar(&cfg.ChunkSize, "chunk", player.DefaultChunkSize, "Samples per published chunk")
	flag.BoolVar(&cfg.Loop, "loop", false, "Restart from the beginning when the recording ends")
	flag.Float64Var(&cfg.Speed, "speed", 1, "Pacing multiplier, 1 is real time")

	flag.StringVar(&cfg.LogLevel, "log-level", envOr("NEUROSTREAM_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: NEUROSTREAM_LOG_LEVEL)")
	flag.StringVar(&cfg.LogFormat, "log-format", envOr("NEUROSTREAM_LOG_FORMAT", "text"),
		"Log format: json, text (env: NEUROSTREAM_LOG_FORMAT)")
	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")

	flag.Parse()
	return cfg
}

func main() {
	if err := run(); err != nil {
		slog.Error("Playback failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := parseFlags()
	if cfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}

	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	samples, info, err := buildStream(cfg)
	if err != nil {
		return err
	}
	info.ID = cfg.StreamID // empty lets the player generate one

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := natsclient.NewClient(cfg.NATSURL,
		natsclient.WithName(appName),
		natsclient.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("create NATS client: %w", err)
	}
	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	defer func() { _ = client.Close(context.Background()) }()

	pub, err := natstream.New(ctx, client,
		natstream.WithBucket(cfg.Bucket),
		natstream.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("open transport: %w", err)
	}
	defer func() { _ = pub.Close() }()

	p, err := player.New(player.Deps{
		Name: appName,
		Config: player.Config{
			ChunkSize: cfg.ChunkSize,
			Loop:      cfg.Loop,
			Speed:     cfg.Speed,
		},
		Publisher: pub,
		Info:      info,
		Samples:   samples,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	slog.Info("Playing",
		"stream", p.StreamID(),
		"samples", len(samples),
		"channels", len(samples[0].Values),
		"rate_hz", info.NominalRate,
		"loop", cfg.Loop,
		"speed", cfg.Speed)

	start := time.Now()
	err = p.Run(ctx)
	slog.Info("Playback finished",
		"published", p.Published(),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return err
}

// buildStream assembles the samples to play: a recorded session when -session
// is given, a generated waveform otherwise.
func buildStream(cfg *CLIConfig) ([]types.Sample, types.StreamInfo, error) {
	if cfg.Session != "" {
		return loadSession(cfg.Session, cfg.SessionStream, cfg.Rate)
	}

	if cfg.Channels <= 0 || cfg.Rate <= 0 || cfg.Seconds <= 0 {
		return nil, types.StreamInfo{}, fmt.Errorf("synthetic playback needs positive -channels, -rate and -seconds")
	}
	n := int(cfg.Seconds * cfg.Rate)
	start := timestamp.Now()

	var samples []types.Sample
	switch strings.ToLower(cfg.Waveform) {
	case "sine":
		samples = player.Sine(cfg.Channels, cfg.Rate, cfg.FreqHz, n, start)
	case "counting":
		samples = player.Counting(cfg.Channels, cfg.Rate, n, start)
	default:
		return nil, types.StreamInfo{}, fmt.Errorf("unknown waveform %q", cfg.Waveform)
	}

	return samples, signalInfo(cfg.Channels, cfg.Rate), nil
}

func signalInfo(channels int, rateHz float64) types.StreamInfo {
	names := make([]string, channels)
	for i := range names {
		names[i] = fmt.Sprintf("ch%02d", i)
	}
	return types.StreamInfo{
		Name:        "neuroplay source",
		Role:        types.RoleSignal,
		Layout:      types.ChannelLayout{Names: names},
		NominalRate: rateHz,
	}
}

func setupLogger(level, format string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler).With("service", appName, "version", Version)
}

func envOr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
