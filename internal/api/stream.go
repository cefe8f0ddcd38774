package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/campusvox/sibyl/internal/dialogue"
	"github.com/campusvox/sibyl/internal/turntaking"
)

// playbackTimeout bounds how long a speak waits for the client's "played" ack
// before the session moves on without it.
const playbackTimeout = 60 * time.Second

// clientFrame is an inbound event from the browser client: recognition
// results and lifecycle, playback acks, and session control.
type clientFrame struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	Code string `json:"code,omitempty"`
}

// serverFrame is an outbound event. Synthesized audio travels separately as a
// binary message immediately after its "speak" frame.
type serverFrame struct {
	Type    string `json:"type"`
	State   string `json:"state,omitempty"`
	Speaker string `json:"speaker,omitempty"`
	Text    string `json:"text,omitempty"`
	Phase   string `json:"phase,omitempty"`
	Review  any    `json:"review,omitempty"`
}

// streamConn wraps the interview websocket. It implements the coordinator's
// Recognizer (listen_start/listen_stop frames steer the browser's speech
// recognition) and AudioOutput (binary audio plus a "played" ack) on the same
// connection, with writes serialized behind one mutex.
type streamConn struct {
	ws     *websocket.Conn
	ctx    context.Context
	logger *slog.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	playing chan struct{}
}

func acceptStream(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*streamConn, error) {
	ws, err := websocket.Accept(w, r, nil)
	if err != nil {
		return nil, err
	}
	return &streamConn{ws: ws, ctx: r.Context(), logger: logger}, nil
}

func (c *streamConn) Close() {
	c.ws.Close(websocket.StatusNormalClosure, "session over")
}

// ReadLoop pumps client frames into the coordinator until the connection
// drops or the client sends "stop". It runs on the handler goroutine.
func (c *streamConn) ReadLoop(ctx context.Context, coord *turntaking.Coordinator) {
	for {
		typ, data, err := c.ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
				c.logger.Debug("stream read ended", "error", err)
			}
			return
		}
		if typ != websocket.MessageText {
			continue
		}
		var frame clientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.logger.Warn("malformed client frame", "error", err)
			continue
		}

		switch frame.Type {
		case "interim":
			coord.HandleInterim(frame.Text)
		case "final":
			coord.HandleFinal(frame.Text)
		case "finish":
			coord.Finish()
		case "error":
			coord.HandleError(frame.Code)
		case "ended":
			coord.HandleEnded()
		case "played":
			c.handlePlayed()
		case "stop":
			return
		default:
			c.logger.Warn("unknown client frame", "type", frame.Type)
		}
	}
}

func (c *streamConn) writeJSON(frame serverFrame) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	data, err := json.Marshal(frame)
	if err != nil {
		c.logger.Error("failed to marshal server frame", "error", err)
		return
	}
	if err := c.ws.Write(c.ctx, websocket.MessageText, data); err != nil {
		c.logger.Debug("stream write failed", "type", frame.Type, "error", err)
	}
}

func (c *streamConn) writeBinary(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.Write(c.ctx, websocket.MessageBinary, data)
}

func (c *streamConn) SendTurn(t dialogue.Turn) {
	c.writeJSON(serverFrame{
		Type:    "turn",
		Speaker: string(t.Speaker),
		Text:    t.Text,
		Phase:   string(t.Phase),
	})
}

func (c *streamConn) SendState(st turntaking.State) {
	c.writeJSON(serverFrame{Type: "state", State: st.String()})
}

func (c *streamConn) SendComplete(review any) {
	c.writeJSON(serverFrame{Type: "complete", Review: review})
}

// Start and Stop implement turntaking.Recognizer: recognition runs in the
// browser, so they only steer it over the wire.
func (c *streamConn) Start() {
	c.writeJSON(serverFrame{Type: "listen_start"})
}

func (c *streamConn) Stop() {
	c.writeJSON(serverFrame{Type: "listen_stop"})
}

// Play implements turntaking.AudioOutput for synthesized audio: announce the
// clip, ship the bytes, and block until the client acks playback.
func (c *streamConn) Play(ctx context.Context, audio []byte) error {
	ack := c.beginPlayback()
	c.writeJSON(serverFrame{Type: "speak"})
	if err := c.writeBinary(audio); err != nil {
		c.endPlayback()
		return err
	}
	return c.awaitAck(ctx, ack)
}

// Fallback asks the client to voice the text itself (browser speech
// synthesis) when no audio clip is available.
func (c *streamConn) Fallback(ctx context.Context, text string) error {
	ack := c.beginPlayback()
	c.writeJSON(serverFrame{Type: "speak", Text: text})
	return c.awaitAck(ctx, ack)
}

// Halt interrupts in-flight playback on the client and releases any waiter.
func (c *streamConn) Halt() {
	c.mu.Lock()
	waiting := c.playing != nil
	c.mu.Unlock()
	if !waiting {
		return
	}
	c.writeJSON(serverFrame{Type: "halt"})
	c.endPlayback()
}

func (c *streamConn) beginPlayback() chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.playing != nil {
		close(c.playing)
	}
	c.playing = make(chan struct{})
	return c.playing
}

func (c *streamConn) endPlayback() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.playing != nil {
		close(c.playing)
		c.playing = nil
	}
}

func (c *streamConn) handlePlayed() {
	c.endPlayback()
}

func (c *streamConn) awaitAck(ctx context.Context, ack chan struct{}) error {
	t := time.NewTimer(playbackTimeout)
	defer t.Stop()
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		c.logger.Warn("playback ack timed out")
		return nil
	}
}
