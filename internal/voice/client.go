package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

const apiURL = "https://api.elevenlabs.io/v1"

// Client is the speech-synthesis collaborator. An unconfigured client (empty
// API key) declines every request, which tells callers to use the fallback
// voice path instead.
type Client struct {
	apiKey  string
	voiceID string
	baseURL string
	client  *http.Client
	logger  *slog.Logger

	mu     sync.Mutex
	voices []Voice
	cancel context.CancelFunc
	callID uint64
}

// Voice is one entry from the synthesis provider's voice catalogue.
type Voice struct {
	VoiceID string `json:"voice_id"`
	Name    string `json:"name"`
}

func NewClient(apiKey, voiceID string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		apiKey:  apiKey,
		voiceID: voiceID,
		baseURL: apiURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// InitVoice looks up a voice by name and makes it the default when found.
// Failure is non-fatal; the configured default stays in place.
func (c *Client) InitVoice(ctx context.Context, name string) {
	if !c.IsConfigured() || name == "" {
		return
	}
	id, err := c.FindVoice(ctx, name)
	if err != nil {
		c.logger.Warn("voice lookup failed, keeping default", "name", name, "error", err)
		return
	}
	if id != "" {
		c.mu.Lock()
		c.voiceID = id
		c.mu.Unlock()
		c.logger.Info("voice selected", "name", name, "voice_id", id)
	}
}

// FindVoice returns the ID of the first catalogue voice whose name contains
// the given name, case-insensitively. Empty string when no match.
func (c *Client) FindVoice(ctx context.Context, name string) (string, error) {
	voices, err := c.Voices(ctx)
	if err != nil {
		return "", err
	}
	for _, v := range voices {
		if strings.Contains(strings.ToLower(v.Name), strings.ToLower(name)) {
			return v.VoiceID, nil
		}
	}
	return "", nil
}

// Voices fetches the provider's voice catalogue, caching the first result.
func (c *Client) Voices(ctx context.Context) ([]Voice, error) {
	c.mu.Lock()
	cached := c.voices
	c.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("voices call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("voices error %d", resp.StatusCode)
	}

	var payload struct {
		Voices []Voice `json:"voices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode voices: %w", err)
	}

	c.mu.Lock()
	c.voices = payload.Voices
	c.mu.Unlock()
	return payload.Voices, nil
}

type synthesisRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// Synthesize converts text to playable audio. A nil payload with nil error
// means the caller should fall back to the secondary voice; API failures are
// returned as errors and degrade the same way at the call site.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if !c.IsConfigured() || strings.TrimSpace(text) == "" {
		return nil, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.callID++
	id := c.callID
	c.cancel = cancel
	voiceID := c.voiceID
	c.mu.Unlock()
	// On the way out, release the cancel slot if it still belongs to this
	// call, so a later Stop never cancels an already-finished request.
	defer func() {
		cancel()
		c.mu.Lock()
		if c.callID == id {
			c.cancel = nil
		}
		c.mu.Unlock()
	}()

	body, err := json.Marshal(synthesisRequest{
		Text:    text,
		ModelID: "eleven_turbo_v2_5",
		VoiceSettings: voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
			UseSpeakerBoost: true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/text-to-speech/"+voiceID, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("synthesis call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("synthesis error %d: %s", resp.StatusCode, string(detail))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	return audio, nil
}

// Stop cancels any in-flight synthesis request. Safe to call when idle.
func (c *Client) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}
