package dialogue

import "github.com/campusvox/sibyl/internal/extract"

const maxTags = 5

// Review is the external record shape for the course-review variant.
type Review struct {
	Course         string   `json:"course"`
	Quality        float64  `json:"quality"`
	Difficulty     float64  `json:"difficulty"`
	ForCredit      *bool    `json:"forCredit"`
	Attendance     string   `json:"attendance,omitempty"`
	WouldTakeAgain *bool    `json:"wouldTakeAgain"`
	Grade          string   `json:"grade,omitempty"`
	Textbook       *bool    `json:"textbook"`
	Comment        string   `json:"comment"`
	Tags           []string `json:"tags"`
}

// LectureReview is the external record shape for the lecture-feedback variant.
type LectureReview struct {
	CourseCode        string   `json:"courseCode"`
	LectureTopics     string   `json:"lectureTopics"`
	Difficulty        *float64 `json:"difficulty"`
	EasyHard          string   `json:"easyHard"`
	ProfessorFeedback string   `json:"professorFeedback"`
	Tags              []string `json:"tags"`
}

// CollectedReview projects the collected data into the course-review shape,
// substituting defaults for fields that were never resolved.
func (e *Engine) CollectedReview() Review {
	d := e.collected

	var tags []string
	quality := numOr(d[extract.FieldQuality], 3.0)
	difficulty := numOr(d[extract.FieldDifficulty], 3.0)
	if quality >= 4.5 {
		tags = append(tags, "AMAZING LECTURES")
	}
	if difficulty >= 4 {
		tags = append(tags, "GET READY TO READ", "TOUGH GRADER")
	}
	if s, _ := d[extract.FieldAttendance].(string); s == "Yes" {
		tags = append(tags, "SKIP CLASS? YOU WON'T PASS.")
	}
	if difficulty <= 2 {
		tags = append(tags, "EASY A")
	}
	if b, _ := d[extract.FieldWouldTakeAgain].(bool); b {
		tags = append(tags, "WOULD TAKE AGAIN")
	}
	if len(tags) > maxTags {
		tags = tags[:maxTags]
	}

	return Review{
		Course:         strOr(d[extract.FieldCourse], "Unknown"),
		Quality:        quality,
		Difficulty:     difficulty,
		ForCredit:      boolPtr(d[extract.FieldForCredit]),
		Attendance:     strOr(d[extract.FieldAttendance], ""),
		WouldTakeAgain: boolPtr(d[extract.FieldWouldTakeAgain]),
		Grade:          strOr(d[extract.FieldGrade], ""),
		Textbook:       boolPtr(d[extract.FieldTextbook]),
		Comment:        strOr(d[extract.FieldComment], ""),
		Tags:           tags,
	}
}

// CollectedLectureReview projects the collected data into the lecture shape.
// Difficulty stays null when never resolved rather than defaulting.
func (e *Engine) CollectedLectureReview() LectureReview {
	d := e.collected

	var difficulty *float64
	if v, ok := d[extract.FieldDifficulty].(float64); ok {
		difficulty = &v
	}

	var tags []string
	if difficulty != nil && *difficulty >= 4 {
		tags = append(tags, "challenging")
	}
	if difficulty != nil && *difficulty <= 2 {
		tags = append(tags, "easy")
	}
	if len(tags) > maxTags {
		tags = tags[:maxTags]
	}

	return LectureReview{
		CourseCode:        strOr(d[extract.FieldCourseCode], "Unknown"),
		LectureTopics:     strOr(d[extract.FieldLectureTopics], ""),
		Difficulty:        difficulty,
		EasyHard:          strOr(d[extract.FieldEasyHard], ""),
		ProfessorFeedback: strOr(d[extract.FieldProfessorFeedback], ""),
		Tags:              tags,
	}
}

// CollectedRecord returns the projection matching the engine's graph variant,
// as a value the session host can serialise directly.
func (e *Engine) CollectedRecord() any {
	if e.graph.Variant == VariantLectureFeedback {
		return e.CollectedLectureReview()
	}
	return e.CollectedReview()
}

func strOr(v any, fallback string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return fallback
}

func numOr(v any, fallback float64) float64 {
	if n, ok := v.(float64); ok {
		return n
	}
	return fallback
}

func boolPtr(v any) *bool {
	if b, ok := v.(bool); ok {
		return &b
	}
	return nil
}
