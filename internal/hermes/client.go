package hermes

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// NATS subjects sibyl publishes on.
const (
	SubjectRegistered       = "campus.agent.sibyl.registered"
	SubjectInterviewStarted = "campus.interview.started"
	SubjectReviewCompleted  = "campus.review.completed"
)

// ReviewCompletedEvent is the normalized-record handoff: the projected
// review plus enough session context for downstream display services.
type ReviewCompletedEvent struct {
	InterviewID string `json:"interview_id"`
	Variant     string `json:"variant"`
	Review      any    `json:"review"`
	Turns       int    `json:"turns"`
	CompletedAt string `json:"completed_at"`
}

type Client struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func NewClient(url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

// Publish serialises data and publishes it. Nil-safe: a nil client drops the
// event so hosts can run without NATS configured.
func (c *Client) Publish(subject string, data any) error {
	if c == nil {
		return nil
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

func (c *Client) Close() {
	if c == nil {
		return
	}
	c.conn.Close()
}
