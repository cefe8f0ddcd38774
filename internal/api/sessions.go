package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/campusvox/sibyl/internal/dialogue"
	"github.com/campusvox/sibyl/internal/hermes"
	"github.com/campusvox/sibyl/internal/turntaking"
)

// sessionManager tracks created interviews between the create call and the
// websocket attach. Sessions are interview-scoped and in-memory only.
type sessionManager struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*session
}

type session struct {
	id        uuid.UUID
	variant   string
	createdAt time.Time
	attached  bool
}

func newSessionManager() *sessionManager {
	return &sessionManager{sessions: make(map[uuid.UUID]*session)}
}

func (m *sessionManager) Create(variant string) *session {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess := &session{id: uuid.New(), variant: variant, createdAt: time.Now().UTC()}
	m.sessions[sess.id] = sess
	return sess
}

// Claim marks a session attached; a second stream for the same interview is
// rejected so exactly one coordinator owns the audio channel.
func (m *sessionManager) Claim(id uuid.UUID) (*session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok || sess.attached {
		return nil, false
	}
	sess.attached = true
	return sess, true
}

func (m *sessionManager) Remove(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

func (m *sessionManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

type createRequest struct {
	Variant string `json:"variant"`
}

type createResponse struct {
	ID      string `json:"id"`
	Variant string `json:"variant"`
}

func (s *Server) createInterview(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.Variant == "" {
		req.Variant = dialogue.VariantCourseReview
	}
	if req.Variant != dialogue.VariantCourseReview && req.Variant != dialogue.VariantLectureFeedback {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown variant"})
		return
	}

	sess := s.sessions.Create(req.Variant)
	s.deps.Logger.Info("interview created", "interview", sess.id, "variant", sess.variant)

	if err := s.deps.Events.Publish(hermes.SubjectInterviewStarted, map[string]any{
		"interview_id": sess.id.String(),
		"variant":      sess.variant,
		"created_at":   sess.createdAt.Format(time.RFC3339),
	}); err != nil {
		s.deps.Logger.Warn("failed to publish interview started", "error", err)
	}

	writeJSON(w, http.StatusCreated, createResponse{ID: sess.id.String(), Variant: sess.variant})
}

func (s *Server) streamInterview(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid interview id"})
		return
	}
	sess, ok := s.sessions.Claim(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown or already attached interview"})
		return
	}
	defer s.sessions.Remove(id)

	conn, err := acceptStream(w, r, s.deps.Logger)
	if err != nil {
		s.deps.Logger.Error("failed to accept websocket", "interview", id, "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	conn.ctx = ctx

	engine := dialogue.New(dialogue.GraphForVariant(sess.variant), s.deps.Generator, s.deps.Logger)
	coord := turntaking.New(ctx, engine, turntaking.Devices{
		Recognizer:  conn,
		Synthesizer: s.deps.Synth,
		Output:      conn,
	}, s.deps.Turns, turntaking.Callbacks{
		OnTurn: func(t dialogue.Turn) {
			conn.SendTurn(t)
		},
		OnState: func(st turntaking.State) {
			conn.SendState(st)
		},
		OnComplete: func() {
			record := engine.CollectedRecord()
			conn.SendComplete(record)
			if err := s.deps.Events.Publish(hermes.SubjectReviewCompleted, hermes.ReviewCompletedEvent{
				InterviewID: engine.ID().String(),
				Variant:     engine.Variant(),
				Review:      record,
				Turns:       len(engine.History()),
				CompletedAt: time.Now().UTC().Format(time.RFC3339),
			}); err != nil {
				s.deps.Logger.Warn("failed to publish review completed", "error", err)
			}
			s.deps.Logger.Info("interview complete", "interview", engine.ID(), "variant", engine.Variant())
			cancel()
		},
		OnClose: func() {
			cancel()
		},
	}, s.deps.Logger)

	s.deps.Logger.Info("interview stream attached", "interview", id, "variant", sess.variant)

	go coord.Start()

	// Serialize inbound client events onto the coordinator.
	conn.ReadLoop(ctx, coord)

	// Disconnect or explicit stop: either way the session is over.
	coord.Stop()
}
