package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/campusvox/sibyl/internal/dialogue"
)

const apiURL = "https://api.openai.com/v1/chat/completions"

// Client is the text-generation collaborator, backed by an OpenAI-compatible
// chat-completions endpoint. An unconfigured client (empty API key) declines
// every request so the dialogue engine falls back to canned prompts.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func NewClient(apiKey, model string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: apiURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model           string        `json:"model"`
	Messages        []chatMessage `json:"messages"`
	Temperature     float64       `json:"temperature"`
	MaxTokens       int           `json:"max_tokens"`
	PresencePenalty float64       `json:"presence_penalty"`
}

type response struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate produces the next assistant utterance from the conversation so
// far. It returns "" (no error) when unconfigured, which the engine treats
// as "use the canned fallback".
func (c *Client) Generate(ctx context.Context, history []dialogue.Turn, phase dialogue.Phase, collected map[string]any, latest string) (string, error) {
	if !c.IsConfigured() {
		return "", nil
	}

	collectedJSON, err := json.Marshal(collected)
	if err != nil {
		return "", fmt.Errorf("marshal collected data: %w", err)
	}

	system := systemPrompt
	if ctxLine, ok := phaseContext[phase]; ok {
		system += "\n\nCURRENT QUESTION: " + ctxLine
	}
	system += "\nCOLLECTED SO FAR: " + string(collectedJSON)

	messages := make([]chatMessage, 0, len(history)+2)
	messages = append(messages, chatMessage{Role: "system", Content: system})
	for _, t := range history {
		role := "assistant"
		if t.Speaker == dialogue.SpeakerUser {
			role = "user"
		}
		messages = append(messages, chatMessage{Role: role, Content: t.Text})
	}
	messages = append(messages, chatMessage{Role: "user", Content: latest})

	body, err := json.Marshal(request{
		Model:           c.model,
		Messages:        messages,
		Temperature:     0.7,
		MaxTokens:       60,
		PresencePenalty: 0.6,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("api call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			return "", fmt.Errorf("api error %d: %s — %s", resp.StatusCode, errResp.Error.Type, errResp.Error.Message)
		}
		return "", fmt.Errorf("api error %d: %s", resp.StatusCode, string(respBody))
	}

	var apiResp response
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if len(apiResp.Choices) == 0 {
		return "", fmt.Errorf("empty response choices")
	}

	return apiResp.Choices[0].Message.Content, nil
}
