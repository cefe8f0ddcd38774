package turntaking

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/campusvox/sibyl/internal/dialogue"
)

// State is the session's turn-taking state. Exactly one holds at any instant;
// it is the single authority, with no mirror flags beside it.
type State int

const (
	StateIdle State = iota
	StateListening
	StateSpeaking
	StateProcessing
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateSpeaking:
		return "speaking"
	case StateProcessing:
		return "processing"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Recognition error codes, mirroring the Web Speech API names the browser
// client forwards.
const (
	ErrNoSpeech   = "no-speech"
	ErrNotAllowed = "not-allowed"
	ErrAborted    = "aborted"
)

// Recognizer is the speech-recognition collaborator. Start while already
// running must be tolerated as a no-op. Implementations must not call back
// into the Coordinator synchronously from Start/Stop.
type Recognizer interface {
	Start()
	Stop()
}

// Synthesizer turns text into playable audio. A nil payload with nil error
// means the caller should use the fallback voice. Stop halts any in-flight
// synthesis and is safe to call when idle.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
	Stop()
}

// AudioOutput is the single audio output channel. Play and Fallback block
// until playback finishes; Halt interrupts an in-flight playback and is safe
// to call when idle.
type AudioOutput interface {
	Play(ctx context.Context, audio []byte) error
	Fallback(ctx context.Context, text string) error
	Halt()
}

// Devices bundles the three audio-side collaborators.
type Devices struct {
	Recognizer  Recognizer
	Synthesizer Synthesizer
	Output      AudioOutput
}

// Dialog is the slice of the dialogue engine the coordinator drives.
type Dialog interface {
	Greeting() string
	Phase() dialogue.Phase
	ProcessResponse(ctx context.Context, utterance string) dialogue.Result
}

// Callbacks notify the session host. They may be invoked from timer or turn
// goroutines and must not call back into the Coordinator, except OnComplete
// and OnClose which are invoked without the lock held.
type Callbacks struct {
	OnTurn     func(dialogue.Turn)
	OnState    func(State)
	OnComplete func()
	OnClose    func()
}

type Config struct {
	// SilenceWindow is how long after a finalized fragment to wait before
	// auto-submitting the accumulated utterance.
	SilenceWindow time.Duration
	// RestartBackoff is the delay before re-attempting listening after a
	// transient recognition error.
	RestartBackoff time.Duration
	// ResumeDelay is the pause between the assistant finishing speech and
	// listening resuming.
	ResumeDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.SilenceWindow <= 0 {
		c.SilenceWindow = 2 * time.Second
	}
	if c.RestartBackoff <= 0 {
		c.RestartBackoff = time.Second
	}
	if c.ResumeDelay <= 0 {
		c.ResumeDelay = 800 * time.Millisecond
	}
	return c
}

// Coordinator arbitrates the single-speaker-at-a-time audio channel for one
// interview. All state lives behind one mutex and every deferred continuation
// (timer, playback return, engine return) revalidates the generation counter
// and state before acting, so a Stop between suspension points turns the
// continuation into a no-op.
type Coordinator struct {
	engine Dialog
	dev    Devices
	cfg    Config
	cb     Callbacks
	logger *slog.Logger
	ctx    context.Context

	mu         sync.Mutex
	state      State
	gen        uint64
	pending    strings.Builder
	silence    *time.Timer
	resume     *time.Timer
	continuous bool
	denied     bool
}

// New builds a coordinator for one interview. ctx governs all collaborator
// calls; cancelling it on host shutdown unblocks any in-flight network call.
func New(ctx context.Context, engine Dialog, dev Devices, cfg Config, cb Callbacks, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		engine:     engine,
		dev:        dev,
		cfg:        cfg.withDefaults(),
		cb:         cb,
		logger:     logger,
		ctx:        ctx,
		state:      StateIdle,
		continuous: true,
	}
}

// State returns the current session state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start speaks the greeting and then begins listening. It blocks until the
// greeting playback finishes; hosts run it in its own goroutine.
func (c *Coordinator) Start() {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return
	}
	greeting := c.engine.Greeting()
	phase := c.engine.Phase()
	c.transition(StateSpeaking)
	c.mu.Unlock()

	c.emitTurn(dialogue.Turn{
		Speaker:   dialogue.SpeakerAssistant,
		Text:      greeting,
		Phase:     phase,
		Timestamp: time.Now().UTC(),
	})
	c.speak(greeting)
	c.afterSpeech()
}

// HandleInterim records that the user is still mid-utterance: the silence
// timer is disarmed so a partial thought is not auto-submitted.
func (c *Coordinator) HandleInterim(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateListening {
		return
	}
	if c.silence != nil {
		c.silence.Stop()
	}
}

// HandleFinal accumulates a finalized recognition fragment and (re)arms the
// silence timer. Fragments arriving outside Listening are discarded, which
// covers both the stopped session and the assistant hearing its own voice.
func (c *Coordinator) HandleFinal(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateListening {
		return
	}
	if strings.TrimSpace(text) == "" {
		return
	}
	c.pending.WriteString(text)
	c.pending.WriteString(" ")

	if c.silence != nil {
		c.silence.Stop()
	}
	gen := c.gen
	c.silence = time.AfterFunc(c.cfg.SilenceWindow, func() {
		c.trySubmit(gen)
	})
}

// Finish submits the accumulated utterance immediately. It is a no-op when
// nothing has accumulated or the session is not listening.
func (c *Coordinator) Finish() {
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()
	c.trySubmit(gen)
}

// trySubmit claims the accumulated utterance and, if the claim holds, runs
// the turn on its own goroutine so timer and host goroutines return promptly.
func (c *Coordinator) trySubmit(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.state != StateListening {
		c.mu.Unlock()
		return
	}
	utterance := strings.TrimSpace(c.pending.String())
	if utterance == "" {
		c.mu.Unlock()
		return
	}
	c.gen++ // invalidate any outstanding timers
	c.stopTimersLocked()
	c.pending.Reset()
	c.transition(StateProcessing)
	phase := c.engine.Phase()
	c.mu.Unlock()

	go c.runTurn(utterance, phase)
}

// runTurn is the Processing -> Speaking -> (Listening | done) sequence for
// one submitted utterance. The stopped check runs before the first step and
// repeats after every blocking one, because Stop can land between the claim
// and this goroutine starting, or while any step is outstanding.
func (c *Coordinator) runTurn(utterance string, phase dialogue.Phase) {
	c.mu.Lock()
	if c.state == StateStopped {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.emitTurn(dialogue.Turn{
		Speaker:   dialogue.SpeakerUser,
		Text:      utterance,
		Phase:     phase,
		Timestamp: time.Now().UTC(),
	})

	res := c.engine.ProcessResponse(c.ctx, utterance)

	c.mu.Lock()
	if c.state == StateStopped {
		c.mu.Unlock()
		return
	}
	c.transition(StateSpeaking)
	c.mu.Unlock()

	if res.AssistantMessage != "" {
		c.emitTurn(dialogue.Turn{
			Speaker:   dialogue.SpeakerAssistant,
			Text:      res.AssistantMessage,
			Phase:     res.Phase,
			Timestamp: time.Now().UTC(),
		})
		c.speak(res.AssistantMessage)
	}

	if res.IsComplete {
		c.mu.Lock()
		if c.state == StateStopped {
			c.mu.Unlock()
			return
		}
		c.continuous = false
		c.transition(StateStopped)
		c.mu.Unlock()
		if c.cb.OnComplete != nil {
			c.cb.OnComplete()
		}
		return
	}

	c.afterSpeech()
}

// speak plays one assistant utterance: halt anything in flight, synthesize,
// and fall back to the secondary voice when synthesis declines or fails.
// Recognition stays suspended for the whole duration; the caller has already
// left Listening.
func (c *Coordinator) speak(text string) {
	c.dev.Output.Halt()

	audio, err := c.dev.Synthesizer.Synthesize(c.ctx, text)
	if c.State() == StateStopped {
		return
	}
	if err != nil || len(audio) == 0 {
		if err != nil {
			c.logger.Warn("synthesis failed, using fallback voice", "error", err)
		}
		if err := c.dev.Output.Fallback(c.ctx, text); err != nil {
			c.logger.Warn("fallback playback failed", "error", err)
		}
		return
	}
	if err := c.dev.Output.Play(c.ctx, audio); err != nil {
		c.logger.Warn("playback failed", "error", err)
	}
}

// afterSpeech parks the session in Idle and arms the resume timer that
// re-enters Listening.
func (c *Coordinator) afterSpeech() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateStopped {
		return
	}
	c.transition(StateIdle)
	gen := c.gen
	if c.resume != nil {
		c.resume.Stop()
	}
	c.resume = time.AfterFunc(c.cfg.ResumeDelay, func() {
		c.resumeListening(gen)
	})
}

func (c *Coordinator) resumeListening(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || c.state != StateIdle || !c.continuous || c.denied {
		return
	}
	c.pending.Reset()
	c.transition(StateListening)
}

// HandleError applies the recognition error policy: no-speech is ignored,
// permission denial disables listening for good, an abort stops the current
// attempt, and anything else retries after the backoff.
func (c *Coordinator) HandleError(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateStopped || code == ErrNoSpeech {
		return
	}
	if c.state != StateListening {
		return
	}
	c.transition(StateIdle)

	switch code {
	case ErrNotAllowed:
		c.denied = true
		c.logger.Warn("microphone permission denied, listening disabled")
	case ErrAborted:
		// Deliberate stop on the recognizer side; no retry.
	default:
		c.logger.Warn("recognition error, retrying", "code", code)
		gen := c.gen
		if c.resume != nil {
			c.resume.Stop()
		}
		c.resume = time.AfterFunc(c.cfg.RestartBackoff, func() {
			c.resumeListening(gen)
		})
	}
}

// HandleEnded restarts the recognition stream when it ends underneath an
// active Listening state (continuous recognition streams end on their own).
func (c *Coordinator) HandleEnded() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateListening || !c.continuous {
		return
	}
	c.dev.Recognizer.Start()
}

// Stop cancels the interview. Idempotent and absorbing: all pending timers
// are invalidated, in-flight playback and recognition halt, and every late
// asynchronous completion becomes a no-op.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if c.state == StateStopped {
		c.mu.Unlock()
		return
	}
	c.gen++
	c.stopTimersLocked()
	c.continuous = false
	c.transition(StateStopped)
	c.mu.Unlock()

	if c.cb.OnClose != nil {
		c.cb.OnClose()
	}
}

// transition is the single place session state changes; it performs the
// device side effects tied to entering or leaving a state. Callers hold mu.
func (c *Coordinator) transition(to State) {
	if c.state == StateStopped || c.state == to {
		return
	}
	from := c.state
	c.state = to

	if from == StateListening {
		c.dev.Recognizer.Stop()
	}
	switch to {
	case StateListening:
		c.dev.Recognizer.Start()
	case StateStopped:
		c.dev.Synthesizer.Stop()
		c.dev.Output.Halt()
	}

	c.logger.Debug("session state", "from", from, "to", to)
	if c.cb.OnState != nil {
		c.cb.OnState(to)
	}
}

func (c *Coordinator) stopTimersLocked() {
	if c.silence != nil {
		c.silence.Stop()
	}
	if c.resume != nil {
		c.resume.Stop()
	}
}

func (c *Coordinator) emitTurn(t dialogue.Turn) {
	if c.cb.OnTurn != nil {
		c.cb.OnTurn(t)
	}
}
