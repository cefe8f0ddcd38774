package dialogue

import "github.com/campusvox/sibyl/internal/extract"

// Phase is a node identifier in the interview's question graph.
type Phase string

// Phases shared by every graph. The adaptive follow-up is a bounded one-shot
// detour; complete is the absorbing terminal phase.
const (
	PhaseGreeting         Phase = "greeting"
	PhaseAdaptiveFollowup Phase = "adaptive_followup"
	PhaseClosing          Phase = "closing"
	PhaseComplete         Phase = "complete"
)

// Course-review graph phases.
const (
	PhaseInitialFeedback     Phase = "initialFeedback"
	PhaseOverallRating       Phase = "overallRating"
	PhaseDifficulty          Phase = "difficulty"
	PhaseDetailedFeedback    Phase = "detailedFeedback"
	PhaseAdditionalQuestions Phase = "additionalQuestions"
	PhaseAttendance          Phase = "attendance"
	PhaseWouldTakeAgain      Phase = "wouldTakeAgain"
	PhaseGrade               Phase = "grade"
	PhaseTextbook            Phase = "textbook"
)

// Lecture-feedback graph phases.
const (
	PhaseCourseCode        Phase = "courseCode"
	PhaseLectureTopics     Phase = "lectureTopics"
	PhaseLectureDifficulty Phase = "lectureDifficulty"
	PhaseEasyHard          Phase = "easyHard"
	PhaseProfessorFeedback Phase = "professorFeedback"
)

// Node is one phase's configuration: the canned prompt, the field to extract
// from the reply (empty for none), the default next phase, and an optional
// clarification prompt. A non-empty Clarify marks the field as a required
// numeric rating that gets exactly one re-prompt before the engine moves on.
type Node struct {
	Prompt  string
	Field   string
	Next    Phase
	Clarify string
}

// Graph is an interview flow: the phase map plus the adaptive-branch wiring.
// FeedbackPhase is the only phase whose reply can divert into the one-shot
// follow-up; CommentField is where that extra feedback accumulates;
// FollowupNext is where the detour re-enters the main path.
type Graph struct {
	Variant       string
	Start         Phase
	Nodes         map[Phase]Node
	FeedbackPhase Phase
	FollowupNext  Phase
	CommentField  string
}

// Prompt returns the canned prompt for a phase, or a generic thanks for
// phases without one.
func (g Graph) Prompt(p Phase) string {
	if n, ok := g.Nodes[p]; ok && n.Prompt != "" {
		return n.Prompt
	}
	return "Thank you for your feedback!"
}

// Graph variants.
const (
	VariantCourseReview    = "course_review"
	VariantLectureFeedback = "lecture_feedback"
)

// CourseReviewGraph is the full rate-my-course interview: identification,
// ratings, open feedback, then the quick yes/no round.
func CourseReviewGraph() Graph {
	return Graph{
		Variant:       VariantCourseReview,
		Start:         PhaseGreeting,
		FeedbackPhase: PhaseDetailedFeedback,
		FollowupNext:  PhaseAdditionalQuestions,
		CommentField:  extract.FieldComment,
		Nodes: map[Phase]Node{
			PhaseGreeting: {
				Prompt: "Hey! Thanks for taking a moment to share your feedback about the lecture. How are you doing today?",
				Next:   PhaseInitialFeedback,
			},
			PhaseInitialFeedback: {
				Prompt: "Great! Let's start - can you tell me what course you're reviewing?",
				Field:  extract.FieldCourse,
				Next:   PhaseOverallRating,
			},
			PhaseOverallRating: {
				Prompt:  "Got it! On a scale of 1 to 5, how would you rate your overall experience with this course? Just say a number or describe it in your own words.",
				Field:   extract.FieldQuality,
				Next:    PhaseDifficulty,
				Clarify: "Sorry, I didn't catch a rating there. Could you give me a number from 1 to 5?",
			},
			PhaseDifficulty: {
				Prompt:  "And how difficult would you say this course is? Again, 1 to 5, or just tell me how challenging you found it.",
				Field:   extract.FieldDifficulty,
				Next:    PhaseDetailedFeedback,
				Clarify: "Hmm, I couldn't pin down a difficulty. On a scale of 1 to 5, where would you put it?",
			},
			PhaseDetailedFeedback: {
				Prompt: "Perfect. Can you tell me more about what stood out to you? Maybe the teaching style, the material, or something specific about the lectures?",
				Field:  extract.FieldComment,
				Next:   PhaseAdditionalQuestions,
			},
			PhaseAdditionalQuestions: {
				Prompt: "Thanks for sharing! A few quick questions: Did you take this course for credit?",
				Field:  extract.FieldForCredit,
				Next:   PhaseAttendance,
			},
			PhaseAttendance: {
				Prompt: "What about attendance - was it mandatory or optional?",
				Field:  extract.FieldAttendance,
				Next:   PhaseWouldTakeAgain,
			},
			PhaseWouldTakeAgain: {
				Prompt: "Got it. Would you take this course again if given the chance?",
				Field:  extract.FieldWouldTakeAgain,
				Next:   PhaseGrade,
			},
			PhaseGrade: {
				Prompt: "And what grade did you get, if you don't mind sharing?",
				Field:  extract.FieldGrade,
				Next:   PhaseTextbook,
			},
			PhaseTextbook: {
				Prompt: "One last thing - did you need to use a textbook for this course?",
				Field:  extract.FieldTextbook,
				Next:   PhaseClosing,
			},
			PhaseClosing: {
				Prompt: "Awesome! That's everything I needed. Your feedback has been saved and will help other students make informed decisions. Thanks again!",
				Next:   PhaseComplete,
			},
		},
	}
}

// LectureFeedbackGraph is the shorter single-lecture variant: course code,
// topics, difficulty, understanding, then professor feedback.
func LectureFeedbackGraph() Graph {
	return Graph{
		Variant:       VariantLectureFeedback,
		Start:         PhaseGreeting,
		FeedbackPhase: PhaseProfessorFeedback,
		FollowupNext:  PhaseClosing,
		CommentField:  extract.FieldProfessorFeedback,
		Nodes: map[Phase]Node{
			PhaseGreeting: {
				Prompt: "Hi! I'd love to hear how today's lecture went. How are you doing?",
				Next:   PhaseCourseCode,
			},
			PhaseCourseCode: {
				Prompt: "Which course was this lecture for? A course code works best.",
				Field:  extract.FieldCourseCode,
				Next:   PhaseLectureTopics,
			},
			PhaseLectureTopics: {
				Prompt: "What topics did the lecture cover?",
				Field:  extract.FieldLectureTopics,
				Next:   PhaseLectureDifficulty,
			},
			PhaseLectureDifficulty: {
				Prompt:  "How difficult was the material, on a scale of 1 to 5?",
				Field:   extract.FieldDifficulty,
				Next:    PhaseEasyHard,
				Clarify: "Just to pin that down - from 1 to 5, how hard was it?",
			},
			PhaseEasyHard: {
				Prompt: "Was it easy or hard to follow along? What helped or got in the way?",
				Field:  extract.FieldEasyHard,
				Next:   PhaseProfessorFeedback,
			},
			PhaseProfessorFeedback: {
				Prompt: "And how was the professor today? Anything they did well or could improve?",
				Field:  extract.FieldProfessorFeedback,
				Next:   PhaseClosing,
			},
			PhaseClosing: {
				Prompt: "That's everything - thanks a lot, your feedback really helps. Have a good one!",
				Next:   PhaseComplete,
			},
		},
	}
}

// GraphForVariant returns the graph for a variant name, defaulting to the
// course-review interview.
func GraphForVariant(variant string) Graph {
	if variant == VariantLectureFeedback {
		return LectureFeedbackGraph()
	}
	return CourseReviewGraph()
}

// Canned follow-up prompts for the adaptive detour, keyed by the sentiment
// that triggered it.
var followUpPrompts = map[extract.Sentiment][]string{
	extract.SentimentPositive: {
		"That's great to hear! What specifically made it so good?",
		"Love it! What would you say were the highlights?",
		"Awesome! Can you tell me more about what you enjoyed most?",
	},
	extract.SentimentNegative: {
		"I understand. Can you help me understand what made it challenging?",
		"That's tough. What do you think could have been improved?",
		"Got it. Was it the material, the teaching style, or something else?",
	},
	extract.SentimentNeutral: {
		"Fair enough. Can you elaborate on what you mean?",
		"Tell me more about that aspect.",
		"What specifically made you feel that way?",
	},
}
