package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func testServer() *Server {
	return NewServer(8760, Deps{})
}

func TestHealthEndpoint(t *testing.T) {
	srv := testServer()

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv := testServer()

	req := httptest.NewRequest("GET", "/api/v1/sibyl/status", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["agent"] != "sibyl" {
		t.Errorf("expected agent sibyl, got %q", body["agent"])
	}
	if body["sessions"] != float64(0) {
		t.Errorf("expected 0 sessions, got %v", body["sessions"])
	}
}

func TestCreateInterview(t *testing.T) {
	srv := testServer()

	req := httptest.NewRequest("POST", "/api/v1/interviews", strings.NewReader(`{"variant":"lecture_feedback"}`))
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}

	var body createResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Variant != "lecture_feedback" {
		t.Errorf("expected lecture_feedback, got %q", body.Variant)
	}
	if _, err := uuid.Parse(body.ID); err != nil {
		t.Errorf("expected a uuid id, got %q", body.ID)
	}
	if srv.sessions.Count() != 1 {
		t.Errorf("expected 1 tracked session, got %d", srv.sessions.Count())
	}
}

func TestCreateInterviewDefaultsVariant(t *testing.T) {
	srv := testServer()

	req := httptest.NewRequest("POST", "/api/v1/interviews", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}

	var body createResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Variant != "course_review" {
		t.Errorf("expected the default variant, got %q", body.Variant)
	}
}

func TestCreateInterviewRejectsUnknownVariant(t *testing.T) {
	srv := testServer()

	req := httptest.NewRequest("POST", "/api/v1/interviews", strings.NewReader(`{"variant":"exit_poll"}`))
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestStreamUnknownInterview(t *testing.T) {
	srv := testServer()

	req := httptest.NewRequest("GET", "/api/v1/interviews/"+uuid.NewString()+"/stream", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestStreamInvalidID(t *testing.T) {
	srv := testServer()

	req := httptest.NewRequest("GET", "/api/v1/interviews/not-a-uuid/stream", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestSessionClaimOnce(t *testing.T) {
	m := newSessionManager()
	sess := m.Create("course_review")

	if _, ok := m.Claim(sess.id); !ok {
		t.Fatal("first claim should succeed")
	}
	if _, ok := m.Claim(sess.id); ok {
		t.Error("second claim should be rejected")
	}

	m.Remove(sess.id)
	if m.Count() != 0 {
		t.Errorf("expected 0 sessions after removal, got %d", m.Count())
	}
}
