package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port           int
	LogLevel       string
	NatsURL        string
	NatsToken      string
	OpenAIAPIKey   string
	OpenAIModel    string
	ElevenAPIKey   string
	ElevenVoiceID  string
	VoiceName      string
	SilenceWindow  time.Duration
	RestartBackoff time.Duration
	ResumeDelay    time.Duration
}

func Load() Config {
	return Config{
		Port:           envInt("SIBYL_PORT", 8760),
		LogLevel:       envStr("LOG_LEVEL", "info"),
		NatsURL:        envStr("NATS_URL", ""),
		NatsToken:      envStr("NATS_TOKEN", ""),
		OpenAIAPIKey:   envStr("OPENAI_API_KEY", ""),
		OpenAIModel:    envStr("SIBYL_MODEL", "gpt-4o-mini"),
		ElevenAPIKey:   envStr("ELEVENLABS_API_KEY", ""),
		ElevenVoiceID:  envStr("ELEVENLABS_VOICE_ID", "pVnrL6sighQX7hVz89cp"),
		VoiceName:      envStr("SIBYL_VOICE_NAME", "Mark"),
		SilenceWindow:  envDur("SIBYL_SILENCE_WINDOW", 2*time.Second),
		RestartBackoff: envDur("SIBYL_RESTART_BACKOFF", time.Second),
		ResumeDelay:    envDur("SIBYL_RESUME_DELAY", 800*time.Millisecond),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDur(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
