package dialogue

import (
	"context"
	"log/slog"
	"maps"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/campusvox/sibyl/internal/extract"
)

const completedAck = "We're all wrapped up - thanks again for your feedback!"

// Engine drives one interview: it owns the phase, the collected-data record
// and the turn log. Not safe for concurrent use; the turn-taking coordinator
// serialises calls through its Processing state.
type Engine struct {
	id     uuid.UUID
	graph  Graph
	gen    Generator
	logger *slog.Logger

	phase     Phase
	collected map[string]any
	history   []Turn
	complete  bool
	greeted   bool

	// commentExpanded guards the one-shot adaptive follow-up; clarified guards
	// the single re-prompt per rating field.
	commentExpanded bool
	clarified       map[string]bool
}

func New(graph Graph, gen Generator, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		id:        uuid.New(),
		graph:     graph,
		gen:       gen,
		logger:    logger,
		phase:     graph.Start,
		collected: make(map[string]any),
		clarified: make(map[string]bool),
	}
}

func (e *Engine) ID() uuid.UUID { return e.id }

func (e *Engine) Variant() string { return e.graph.Variant }

func (e *Engine) Phase() Phase { return e.phase }

func (e *Engine) IsComplete() bool { return e.complete }

// Greeting returns the opening prompt and records it as the first assistant
// turn. Subsequent calls return the same prompt without appending again.
func (e *Engine) Greeting() string {
	msg := e.graph.Prompt(e.graph.Start)
	if !e.greeted {
		e.greeted = true
		e.appendTurn(SpeakerAssistant, msg, e.graph.Start)
	}
	return msg
}

// History returns a copy of the turn log.
func (e *Engine) History() []Turn {
	out := make([]Turn, len(e.history))
	copy(out, e.history)
	return out
}

// ProcessResponse runs one user utterance through the state machine and
// returns the assistant's reply plus a snapshot of the interview state.
func (e *Engine) ProcessResponse(ctx context.Context, utterance string) Result {
	e.appendTurn(SpeakerUser, utterance, e.phase)

	// Termination guard: calling into a finished interview is not an error,
	// it just re-acknowledges completion and mutates nothing.
	if e.complete {
		e.appendTurn(SpeakerAssistant, completedAck, e.phase)
		return e.result(completedAck)
	}

	switch detectIntent(utterance) {
	case intentGoodbye:
		e.phase = PhaseComplete
		e.complete = true
		msg := e.graph.Prompt(PhaseClosing)
		e.appendTurn(SpeakerAssistant, msg, e.phase)
		e.logger.Info("interview ended by goodbye", "interview", e.id)
		return e.result(msg)

	case intentPause:
		msg := "No worries - take your time. " + e.graph.Prompt(e.phase)
		e.appendTurn(SpeakerAssistant, msg, e.phase)
		return e.result(msg)

	case intentUncertain:
		node, ok := e.graph.Nodes[e.phase]
		if !ok {
			node = Node{Next: PhaseClosing}
		}
		return e.advanceTo(ctx, node.Next, utterance, "That's totally fine - we can skip that. ")

	case intentCorrection:
		if code, ok := extract.CourseCode(utterance); ok {
			if f := e.courseField(); f != "" {
				e.collected[f] = code
				msg := "Thanks for the correction - I've got the course down as " + code + ". " + e.graph.Prompt(e.phase)
				e.appendTurn(SpeakerAssistant, msg, e.phase)
				return e.result(msg)
			}
		}
		// A correction phrase without a recognisable code is just an answer.
	}

	// One-shot follow-up: the reply joins the comment and the detour always
	// re-enters the main path, never nesting further.
	if e.phase == PhaseAdaptiveFollowup {
		e.appendComment(utterance)
		return e.advanceTo(ctx, e.graph.FollowupNext, utterance, "")
	}

	node := e.graph.Nodes[e.phase]

	if node.Field != "" {
		value, ok := extract.Field(node.Field, utterance)
		switch {
		case ok:
			e.collected[node.Field] = value
		case node.Clarify != "" && !e.clarified[node.Field]:
			// Exactly one clarification re-prompt, then the engine gives up
			// and proceeds with the field absent.
			e.clarified[node.Field] = true
			e.appendTurn(SpeakerAssistant, node.Clarify, e.phase)
			return e.result(node.Clarify)
		default:
			e.logger.Debug("field unresolved, continuing", "field", node.Field, "phase", e.phase)
		}
	}

	// Adaptive branch: only from the designated feedback phase, only once.
	if e.phase == e.graph.FeedbackPhase && !e.commentExpanded {
		if sentiment := extract.Classify(utterance); sentiment != extract.SentimentNeutral {
			if node.Field != e.graph.CommentField {
				e.appendComment(utterance)
			}
			e.commentExpanded = true
			e.phase = PhaseAdaptiveFollowup
			msg := e.synthesize(ctx, utterance)
			if msg == "" {
				prompts := followUpPrompts[sentiment]
				msg = prompts[rand.Intn(len(prompts))]
			}
			e.appendTurn(SpeakerAssistant, msg, e.phase)
			return e.result(msg)
		}
	}

	next := node.Next
	if next == "" {
		next = PhaseClosing
	}
	return e.advanceTo(ctx, next, utterance, "")
}

// advanceTo moves to the next phase and synthesises the reply, with an
// optional lead-in prefixed before the turn is appended (the log stays
// append-only). Reaching the closing phase completes the interview in the
// same call; there is no extra round trip waiting on an answer to the
// closing line.
func (e *Engine) advanceTo(ctx context.Context, next Phase, latest, prefix string) Result {
	e.phase = next

	if next == PhaseClosing || next == PhaseComplete {
		e.complete = true
		msg := prefix + e.graph.Prompt(PhaseClosing)
		e.appendTurn(SpeakerAssistant, msg, e.phase)
		e.logger.Info("interview complete", "interview", e.id, "turns", len(e.history))
		return e.result(msg)
	}

	msg := e.synthesize(ctx, latest)
	if msg == "" {
		msg = e.graph.Prompt(e.phase)
	}
	msg = prefix + msg
	e.appendTurn(SpeakerAssistant, msg, e.phase)
	return e.result(msg)
}

// synthesize asks the generator for a natural reply for the current phase.
// Empty string means the caller should use the canned prompt.
func (e *Engine) synthesize(ctx context.Context, latest string) string {
	if e.gen == nil {
		return ""
	}
	text, err := e.gen.Generate(ctx, e.History(), e.phase, e.snapshot(), latest)
	if err != nil {
		e.logger.Warn("generator unavailable, using canned prompt", "phase", e.phase, "error", err)
		return ""
	}
	return strings.TrimSpace(text)
}

func (e *Engine) appendComment(utterance string) {
	field := e.graph.CommentField
	text := strings.TrimSpace(utterance)
	if cur, ok := e.collected[field].(string); ok && cur != "" {
		e.collected[field] = cur + " " + text
	} else {
		e.collected[field] = text
	}
}

func (e *Engine) courseField() string {
	for _, n := range e.graph.Nodes {
		if n.Field == extract.FieldCourse || n.Field == extract.FieldCourseCode {
			return n.Field
		}
	}
	return ""
}

func (e *Engine) appendTurn(speaker Speaker, text string, phase Phase) {
	e.history = append(e.history, Turn{
		Speaker:   speaker,
		Text:      text,
		Phase:     phase,
		Timestamp: time.Now().UTC(),
	})
}

func (e *Engine) snapshot() map[string]any {
	return maps.Clone(e.collected)
}

func (e *Engine) result(msg string) Result {
	return Result{
		AssistantMessage: msg,
		Phase:            e.phase,
		Collected:        e.snapshot(),
		IsComplete:       e.complete,
	}
}
