package dialogue

import (
	"context"
	"strings"
	"testing"
)

func newTestEngine(t *testing.T, graph Graph) *Engine {
	t.Helper()
	e := New(graph, nil, nil)
	e.Greeting()
	return e
}

func TestCourseReviewFullInterview(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, CourseReviewGraph())

	steps := []struct {
		utterance string
		wantPhase Phase
	}{
		{"doing great", PhaseInitialFeedback},
		{"EECS3101", PhaseOverallRating},
		{"4", PhaseDifficulty},
		{"it was hard but the prof was clear", PhaseDetailedFeedback},
		{"The lectures were great and really helpful", PhaseAdaptiveFollowup},
		{"The examples made everything click", PhaseAdditionalQuestions},
		{"yes for credit", PhaseAttendance},
		{"it was optional", PhaseWouldTakeAgain},
		{"absolutely", PhaseGrade},
		{"I got a B+", PhaseTextbook},
	}

	var res Result
	for _, step := range steps {
		res = e.ProcessResponse(ctx, step.utterance)
		if res.Phase != step.wantPhase {
			t.Fatalf("after %q: phase = %q, want %q", step.utterance, res.Phase, step.wantPhase)
		}
		if res.IsComplete {
			t.Fatalf("after %q: interview complete too early", step.utterance)
		}
	}

	// The last answer closes the interview in the same call.
	res = e.ProcessResponse(ctx, "no textbook")
	if !res.IsComplete {
		t.Fatal("interview should be complete after the final answer")
	}
	if res.Phase != PhaseClosing {
		t.Errorf("final phase = %q, want %q", res.Phase, PhaseClosing)
	}

	review := e.CollectedReview()
	if review.Course != "EECS3101" {
		t.Errorf("course = %q, want EECS3101", review.Course)
	}
	if review.Quality != 4 {
		t.Errorf("quality = %v, want 4", review.Quality)
	}
	if review.Difficulty != 4 {
		t.Errorf("difficulty = %v, want 4", review.Difficulty)
	}
	if review.ForCredit == nil || !*review.ForCredit {
		t.Error("forCredit should be true")
	}
	if review.Attendance != "No" {
		t.Errorf("attendance = %q, want No", review.Attendance)
	}
	if review.WouldTakeAgain == nil || !*review.WouldTakeAgain {
		t.Error("wouldTakeAgain should be true")
	}
	if review.Grade != "B" {
		t.Errorf("grade = %q, want B", review.Grade)
	}
	if review.Textbook == nil || *review.Textbook {
		t.Error("textbook should be false")
	}
	want := "The lectures were great and really helpful The examples made everything click"
	if review.Comment != want {
		t.Errorf("comment = %q, want %q", review.Comment, want)
	}
}

func TestCompletedInterviewMutatesNothing(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, CourseReviewGraph())
	e.ProcessResponse(ctx, "fine")
	res := e.ProcessResponse(ctx, "ok bye now")
	if !res.IsComplete {
		t.Fatal("goodbye should complete the interview")
	}

	before := e.snapshot()
	phase := e.phase
	turns := len(e.history)

	res = e.ProcessResponse(ctx, "EECS3101, a 5, it was amazing")
	if res.AssistantMessage != completedAck {
		t.Errorf("message = %q, want the completion acknowledgement", res.AssistantMessage)
	}
	if !res.IsComplete {
		t.Error("result should stay complete")
	}
	if e.phase != phase {
		t.Errorf("phase changed from %q to %q", phase, e.phase)
	}
	if len(e.collected) != len(before) {
		t.Errorf("collected data changed: %d fields, was %d", len(e.collected), len(before))
	}
	// Only the exchange itself is recorded.
	if len(e.history) != turns+2 {
		t.Errorf("history grew by %d turns, want 2", len(e.history)-turns)
	}
}

func TestClarificationAskedExactlyOnce(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, CourseReviewGraph())
	e.ProcessResponse(ctx, "hi")
	e.ProcessResponse(ctx, "Intro to Pottery")

	node := CourseReviewGraph().Nodes[PhaseOverallRating]

	res := e.ProcessResponse(ctx, "hmm that is a tricky question")
	if res.Phase != PhaseOverallRating {
		t.Fatalf("phase = %q, want to stay at %q", res.Phase, PhaseOverallRating)
	}
	if res.AssistantMessage != node.Clarify {
		t.Errorf("message = %q, want the clarification prompt", res.AssistantMessage)
	}

	// Second miss: the engine gives up and moves on with the field unset.
	res = e.ProcessResponse(ctx, "still mulling it over")
	if res.Phase != PhaseDifficulty {
		t.Errorf("phase = %q, want %q", res.Phase, PhaseDifficulty)
	}
	if _, ok := res.Collected["quality"]; ok {
		t.Error("quality should be absent after two failed extractions")
	}
}

func TestUncertainSkipsCurrentField(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, CourseReviewGraph())
	e.ProcessResponse(ctx, "hi")
	e.ProcessResponse(ctx, "EECS3101")

	res := e.ProcessResponse(ctx, "I don't know, honestly")
	if res.Phase != PhaseDifficulty {
		t.Errorf("phase = %q, want %q", res.Phase, PhaseDifficulty)
	}
	if !strings.HasPrefix(res.AssistantMessage, "That's totally fine") {
		t.Errorf("message = %q, want the skip acknowledgement prefix", res.AssistantMessage)
	}
	if _, ok := res.Collected["quality"]; ok {
		t.Error("quality should not be collected from an uncertain answer")
	}

	// The logged turn carries the full message as appended; nothing rewrites
	// entries after the fact.
	history := e.History()
	if last := history[len(history)-1]; last.Text != res.AssistantMessage {
		t.Errorf("logged turn = %q, want it to match the returned message %q", last.Text, res.AssistantMessage)
	}
}

func TestUncertainSkipIntoClosingKeepsPrefix(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, LectureFeedbackGraph())
	for _, u := range []string{
		"fine thanks",
		"EECS 3101",
		"sorting networks",
		"4",
		"easy enough",
	} {
		e.ProcessResponse(ctx, u)
	}

	// Skipping the last question advances into closing: the acknowledgement
	// still leads the closing line, in the result and in the log.
	res := e.ProcessResponse(ctx, "can't remember anything specific")
	if !res.IsComplete {
		t.Fatal("skipping the final question should complete the interview")
	}
	if !strings.HasPrefix(res.AssistantMessage, "That's totally fine") {
		t.Errorf("message = %q, want the skip acknowledgement prefix", res.AssistantMessage)
	}
	history := e.History()
	if last := history[len(history)-1]; last.Text != res.AssistantMessage {
		t.Errorf("logged turn = %q, want %q", last.Text, res.AssistantMessage)
	}
}

func TestGoodbyeEndsInterview(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, CourseReviewGraph())
	e.ProcessResponse(ctx, "hi")

	res := e.ProcessResponse(ctx, "sorry, gotta go")
	if !res.IsComplete {
		t.Fatal("goodbye should complete the interview")
	}
	if res.Phase != PhaseComplete {
		t.Errorf("phase = %q, want %q", res.Phase, PhaseComplete)
	}
	if res.AssistantMessage != CourseReviewGraph().Prompt(PhaseClosing) {
		t.Errorf("message = %q, want the closing prompt", res.AssistantMessage)
	}
}

func TestPauseRepeatsPrompt(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, CourseReviewGraph())
	e.ProcessResponse(ctx, "hi")

	res := e.ProcessResponse(ctx, "hold on a second")
	if res.Phase != PhaseInitialFeedback {
		t.Errorf("phase = %q, want to stay at %q", res.Phase, PhaseInitialFeedback)
	}
	if !strings.HasPrefix(res.AssistantMessage, "No worries") {
		t.Errorf("message = %q, want the pause acknowledgement prefix", res.AssistantMessage)
	}
	if !strings.HasSuffix(res.AssistantMessage, CourseReviewGraph().Prompt(PhaseInitialFeedback)) {
		t.Errorf("message = %q, want the current prompt repeated", res.AssistantMessage)
	}
}

func TestCorrectionRewritesCourse(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, CourseReviewGraph())
	e.ProcessResponse(ctx, "hi")
	e.ProcessResponse(ctx, "EECS3101")

	res := e.ProcessResponse(ctx, "actually I meant EECS 2011")
	if res.Phase != PhaseOverallRating {
		t.Errorf("phase = %q, want to stay at %q", res.Phase, PhaseOverallRating)
	}
	if got := res.Collected["course"]; got != "EECS2011" {
		t.Errorf("course = %v, want EECS2011", got)
	}
	if !strings.Contains(res.AssistantMessage, "EECS2011") {
		t.Errorf("message = %q, want it to confirm the corrected code", res.AssistantMessage)
	}
}

func TestNeutralFeedbackSkipsFollowup(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, CourseReviewGraph())
	for _, u := range []string{"hi", "EECS3101", "4", "3"} {
		e.ProcessResponse(ctx, u)
	}

	res := e.ProcessResponse(ctx, "it met twice a week in the mornings")
	if res.Phase != PhaseAdditionalQuestions {
		t.Errorf("phase = %q, want %q (no detour on neutral feedback)", res.Phase, PhaseAdditionalQuestions)
	}
}

func TestAdaptiveFollowupFiresAtMostOnce(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, CourseReviewGraph())
	for _, u := range []string{"hi", "EECS3101", "4", "3"} {
		e.ProcessResponse(ctx, u)
	}

	res := e.ProcessResponse(ctx, "it was terrible and confusing")
	if res.Phase != PhaseAdaptiveFollowup {
		t.Fatalf("phase = %q, want %q on the first non-neutral reply", res.Phase, PhaseAdaptiveFollowup)
	}

	// A second non-neutral reply re-enters the main path instead of nesting.
	res = e.ProcessResponse(ctx, "the worst part was the awful workload")
	if res.Phase != PhaseAdditionalQuestions {
		t.Errorf("phase = %q, want %q after the follow-up reply", res.Phase, PhaseAdditionalQuestions)
	}
}

func TestLectureFeedbackFollowupIntoClosing(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, LectureFeedbackGraph())

	for _, u := range []string{
		"fine thanks",
		"EECS 3101",
		"graph traversal and BFS",
		"4",
		"mostly fine to follow along",
	} {
		if res := e.ProcessResponse(ctx, u); res.IsComplete {
			t.Fatalf("after %q: interview complete too early", u)
		}
	}

	res := e.ProcessResponse(ctx, "the professor was great and really helpful")
	if res.Phase != PhaseAdaptiveFollowup {
		t.Fatalf("phase = %q, want %q", res.Phase, PhaseAdaptiveFollowup)
	}

	// The follow-up reply re-enters at closing, completing in the same call.
	res = e.ProcessResponse(ctx, "loved the worked examples on the board")
	if !res.IsComplete {
		t.Fatal("interview should be complete after the follow-up reply")
	}

	review := e.CollectedLectureReview()
	if review.CourseCode != "EECS3101" {
		t.Errorf("courseCode = %q, want EECS3101", review.CourseCode)
	}
	if review.Difficulty == nil || *review.Difficulty != 4 {
		t.Errorf("difficulty = %v, want 4", review.Difficulty)
	}
	want := "the professor was great and really helpful loved the worked examples on the board"
	if review.ProfessorFeedback != want {
		t.Errorf("professorFeedback = %q, want %q", review.ProfessorFeedback, want)
	}
}

func TestGreetingAppendsOnce(t *testing.T) {
	e := New(CourseReviewGraph(), nil, nil)
	first := e.Greeting()
	second := e.Greeting()
	if first != second {
		t.Errorf("greeting changed between calls: %q vs %q", first, second)
	}
	if len(e.History()) != 1 {
		t.Errorf("history has %d turns, want 1", len(e.History()))
	}
}
