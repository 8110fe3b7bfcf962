// Command talkgate is the microphone gating daemon: it captures audio, runs
// it through the configured activation policy, and streams the transmitted
// portions to a voice transport.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/talkgate/internal/app"
	"github.com/MrWong99/talkgate/internal/config"
	"github.com/MrWong99/talkgate/internal/observe"
	"github.com/MrWong99/talkgate/pkg/activation"
	"github.com/MrWong99/talkgate/pkg/audio"
	"github.com/MrWong99/talkgate/pkg/audio/wavsource"
	"github.com/MrWong99/talkgate/pkg/keybind"
	"github.com/MrWong99/talkgate/pkg/provider/vad"
	"github.com/MrWong99/talkgate/pkg/provider/vad/energy"
	"github.com/MrWong99/talkgate/pkg/transport"
	transportdiscord "github.com/MrWong99/talkgate/pkg/transport/discord"
	transportws "github.com/MrWong99/talkgate/pkg/transport/ws"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "talkgate: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "talkgate: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	// The level lives in a LevelVar so the config watcher can adjust it at
	// runtime without recreating the logger.
	levelVar := &slog.LevelVar{}
	levelVar.Set(slogLevel(cfg.Server.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar}))
	slog.SetDefault(logger)

	slog.Info("talkgate starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Registry + providers ──────────────────────────────────────────────────
	var closers []func() error
	defer func() {
		for _, c := range closers {
			if err := c(); err != nil {
				slog.Warn("provider close error", "err", err)
			}
		}
	}()

	reg := config.NewRegistry()
	registerBuiltins(reg, &closers)

	source, err := reg.CreateCapture(cfg.Capture)
	if err != nil {
		slog.Error("failed to create capture source", "source", cfg.Capture.Source, "err", err)
		return 1
	}

	rate, err := captureRate(cfg)
	if err != nil {
		slog.Error("failed to determine capture rate", "err", err)
		return 1
	}

	client, err := reg.CreateTransport(cfg.Transport)
	if err != nil {
		slog.Error("failed to create transport", "name", cfg.Transport.Name, "err", err)
		return 1
	}

	metrics := observe.DefaultMetrics()
	stats := &app.SinkStats{}
	if client != nil {
		client = app.InstrumentClient(client, cfg.Transport.Name, metrics, stats)
	}

	policy, err := buildPolicy(cfg, reg, rate, client)
	if err != nil {
		slog.Error("failed to build activation policy", "mode", cfg.Activation.Mode, "err", err)
		return 1
	}

	// ── Config watcher ────────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		if new.Server.LogLevel != old.Server.LogLevel {
			levelVar.Set(slogLevel(new.Server.LogLevel))
			slog.Info("log level updated", "level", new.Server.LogLevel)
		}
		if new.Activation.Mode != old.Activation.Mode {
			slog.Warn("activation mode change requires a restart",
				"running", old.Activation.Mode, "configured", new.Activation.Mode)
		}
	})
	if err != nil {
		slog.Warn("config watcher disabled", "err", err)
	} else {
		defer watcher.Stop()
	}

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg, rate)

	application, err := app.New(ctx, cfg,
		&app.Providers{Source: source, Policy: policy},
		app.WithMetrics(metrics),
		app.WithSinkStats(stats),
	)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	slog.Info("daemon ready — press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltins wires the implementations that ship with Talkgate into
// reg. Factories that open long-lived resources append their cleanup to
// closers; main runs them after the app has shut down.
func registerBuiltins(reg *config.Registry, closers *[]func() error) {
	// ── Transports ───────────────────────────────────────────────────────────

	reg.RegisterTransport("discord", func(tc config.TransportConfig) (transport.Client, error) {
		session, err := discordgo.New("Bot " + tc.Discord.Token)
		if err != nil {
			return nil, fmt.Errorf("create discord session: %w", err)
		}
		if err := session.Open(); err != nil {
			return nil, fmt.Errorf("open discord session: %w", err)
		}
		*closers = append(*closers, session.Close)
		return transportdiscord.New(session, tc.Discord.GuildID, tc.Discord.ChannelID), nil
	})

	reg.RegisterTransport("websocket", func(tc config.TransportConfig) (transport.Client, error) {
		var opts []transportws.Option
		if tc.Websocket.BearerToken != "" {
			header := http.Header{}
			header.Set("Authorization", "Bearer "+tc.Websocket.BearerToken)
			opts = append(opts, transportws.WithHeader(header))
		}
		return transportws.New(tc.Websocket.URL, opts...), nil
	})

	// ── Capture sources ──────────────────────────────────────────────────────

	reg.RegisterCapture("wav", func(cc config.CaptureConfig) (audio.Source, error) {
		var opts []wavsource.Option
		if cc.ChunkMs > 0 {
			opts = append(opts, wavsource.WithChunkDuration(time.Duration(cc.ChunkMs)*time.Millisecond))
		}
		return wavsource.New(cc.Path, opts...), nil
	})

	// ── VAD engines ──────────────────────────────────────────────────────────

	reg.RegisterVAD("energy", func(config.VoiceActivityConfig) (vad.Engine, error) {
		return &energy.Engine{}, nil
	})
}

// buildPolicy constructs the activation policy selected by the config.
func buildPolicy(cfg *config.Config, reg *config.Registry, rate int, client transport.Client) (activation.Policy, error) {
	switch cfg.Activation.Mode {
	case config.ModeContinuous:
		return activation.NewContinuous(rate, client), nil

	case config.ModePushToTalk:
		// Keys arrive over stdin using the reader protocol ("+t" down,
		// "-t" up), which works over a terminal or ssh session alike.
		binder := keybind.NewReaderBinder(os.Stdin)
		return activation.NewPushToTalk(rate, client, binder, cfg.Activation.PushToTalk.Key)

	case config.ModeVoiceActivity:
		va := cfg.Activation.VoiceActivity
		engine, err := reg.CreateVAD(va)
		if err != nil {
			return nil, err
		}
		opts := vad.Options{
			MinNoiseLevel:        va.MinNoiseLevel,
			MaxNoiseLevel:        va.MaxNoiseLevel,
			NoiseCaptureDuration: va.NoiseCaptureDuration,
		}
		return activation.NewVoiceActivity(rate, client, engine, opts, va.MinBacklogBytes)

	default:
		return nil, fmt.Errorf("unknown activation mode %q", cfg.Activation.Mode)
	}
}

// captureRate determines the sample rate chunks will actually carry. For the
// wav source the file's own rate wins over the configured one, so the frame
// encoder is primed with the right input rate from the start.
func captureRate(cfg *config.Config) (int, error) {
	if cfg.Capture.Source == "wav" {
		data, err := os.ReadFile(cfg.Capture.Path)
		if err != nil {
			return 0, fmt.Errorf("read wav file %q: %w", cfg.Capture.Path, err)
		}
		_, rate, err := wavsource.Decode(data)
		if err != nil {
			return 0, fmt.Errorf("decode wav file %q: %w", cfg.Capture.Path, err)
		}
		return rate, nil
	}

	if cfg.Capture.SampleRate > 0 {
		return cfg.Capture.SampleRate, nil
	}
	return audio.TargetSampleRate, nil
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config, rate int) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║        Talkgate — startup summary     ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printRow("Mode", string(cfg.Activation.Mode))
	printRow("Capture", cfg.Capture.Source)
	printRow("Capture rate", fmt.Sprintf("%d Hz", rate))
	transportName := cfg.Transport.Name
	if transportName == "" {
		transportName = "(discard)"
	}
	printRow("Transport", transportName)
	if cfg.Episodes.PostgresDSN != "" {
		printRow("Journal", "postgres")
	} else {
		printRow("Journal", "memory")
	}
	if cfg.Server.ListenAddr != "" {
		printRow("Listen addr", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printRow(kind, value string) {
	fmt.Printf("║  %-15s : %-19s ║\n", kind, summaryValue(value))
}

// summaryValue shortens value to fit the summary box, cutting on a rune
// boundary so a non-ASCII path is not mangled mid-character.
func summaryValue(value string) string {
	runes := []rune(value)
	if len(runes) <= 19 {
		return value
	}
	return string(runes[:16]) + "…"
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
