package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/campusvox/sibyl/internal/api"
	"github.com/campusvox/sibyl/internal/config"
	"github.com/campusvox/sibyl/internal/genai"
	"github.com/campusvox/sibyl/internal/hermes"
	"github.com/campusvox/sibyl/internal/turntaking"
	"github.com/campusvox/sibyl/internal/voice"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("sibyl starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// LLM follow-up generator (optional — canned prompts when unconfigured)
	gen := genai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, slog.Default())
	if gen.IsConfigured() {
		slog.Info("generator ready", "model", cfg.OpenAIModel)
	} else {
		slog.Warn("OPENAI_API_KEY not set — using canned prompts only")
	}

	// Voice synthesis (optional — browser fallback voice when unconfigured)
	synth := voice.NewClient(cfg.ElevenAPIKey, cfg.ElevenVoiceID, slog.Default())
	if synth.IsConfigured() {
		synth.InitVoice(ctx, cfg.VoiceName)
		slog.Info("voice synthesis ready", "voice", cfg.VoiceName)
	} else {
		slog.Warn("ELEVENLABS_API_KEY not set — using fallback voice only")
	}

	// NATS/Hermes (optional — completed reviews are dropped without it)
	var events *hermes.Client
	if cfg.NatsURL != "" {
		var err error
		events, err = hermes.NewClient(cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer events.Close()
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS_URL not set — review events will not be published")
	}

	srv := api.NewServer(cfg.Port, api.Deps{
		Generator: gen,
		Synth:     synth,
		Events:    events,
		Turns: turntaking.Config{
			SilenceWindow:  cfg.SilenceWindow,
			RestartBackoff: cfg.RestartBackoff,
			ResumeDelay:    cfg.ResumeDelay,
		},
		Logger: slog.Default(),
	})
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	// Announce registration
	if err := events.Publish(hermes.SubjectRegistered, map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"port":      cfg.Port,
	}); err != nil {
		slog.Warn("failed to publish registration", "error", err)
	}

	slog.Info("sibyl ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("sibyl stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
