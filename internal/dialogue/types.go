package dialogue

import (
	"context"
	"time"
)

// Speaker identifies who produced a turn.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// Turn is one utterance in the interview, with the phase it was spoken in.
// The turn log is append-only and owned by the Engine.
type Turn struct {
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	Phase     Phase     `json:"phase"`
	Timestamp time.Time `json:"timestamp"`
}

// Result is the outcome of processing one user utterance.
type Result struct {
	AssistantMessage string         `json:"assistant_message"`
	Phase            Phase          `json:"phase"`
	Collected        map[string]any `json:"collected"`
	IsComplete       bool           `json:"is_complete"`
}

// Generator produces a natural-language assistant utterance from conversation
// context. Returning an empty string (or an error) tells the engine to fall
// back to the phase's canned prompt.
type Generator interface {
	Generate(ctx context.Context, history []Turn, phase Phase, collected map[string]any, latest string) (string, error)
}
