package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// Field names recognised by the extractor. Graphs reference these by value, so
// the set here is the full vocabulary of extractable fields.
const (
	FieldCourse            = "course"
	FieldCourseCode        = "courseCode"
	FieldQuality           = "quality"
	FieldDifficulty        = "difficulty"
	FieldComment           = "comment"
	FieldForCredit         = "forCredit"
	FieldAttendance        = "attendance"
	FieldWouldTakeAgain    = "wouldTakeAgain"
	FieldGrade             = "grade"
	FieldTextbook          = "textbook"
	FieldLectureTopics     = "lectureTopics"
	FieldEasyHard          = "easyHard"
	FieldProfessorFeedback = "professorFeedback"
)

// NotApplicable is the explicit "validly absent" value, distinct from an
// unresolved extraction.
const NotApplicable = "N/A"

const maxCourseNameLen = 30

var (
	digitRatingRe = regexp.MustCompile(`\b([1-5])\b`)
	// Letters-then-digits course code, e.g. EECS3101, CS-4101, math 2030B.
	courseCodeRe      = regexp.MustCompile(`(?i)\b([a-z]{2,6})[\s-]?(\d{4})([a-z]?)\b`)
	looseCourseCodeRe = regexp.MustCompile(`(?i)\b([a-z]{2,})\s*(\d{3,})([a-z]?)\b`)
	fillerRe          = regexp.MustCompile(`(?i)\b(it'?s|it was|the|a|an|this|that|course|class)\b`)
	spaceRe           = regexp.MustCompile(`\s+`)
)

var spelledNumbers = map[string]float64{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
}

type cue struct {
	phrase string
	value  float64
}

// Ordered: multi-word phrases first so "very easy" wins over "easy".
var qualityCues = []cue{
	{"excellent", 5}, {"amazing", 5}, {"perfect", 5},
	{"really good", 4}, {"great", 4},
	{"pretty good", 3.5}, {"good", 3.5},
	{"okay", 3}, {"alright", 3}, {"fine", 3},
	{"not great", 2.5}, {"could be better", 2.5},
	{"terrible", 2}, {"awful", 2}, {"bad", 2},
}

var difficultyCues = []cue{
	{"very easy", 1}, {"super easy", 1},
	{"not hard", 2}, {"easy", 2},
	{"moderate", 3}, {"medium", 3},
	{"very hard", 5}, {"extremely difficult", 5}, {"brutal", 5},
	{"difficult", 4}, {"hard", 4}, {"challenging", 4},
}

// Field extracts a typed value for the named field from a raw utterance.
// ok is false when no confident value was found; fields documented as
// never-unresolved (attendance, grade) always return ok=true.
func Field(field, utterance string) (any, bool) {
	switch field {
	case FieldQuality:
		return Quality(utterance)
	case FieldDifficulty:
		return Difficulty(utterance)
	case FieldCourse, FieldCourseCode:
		return CourseName(utterance), true
	case FieldForCredit:
		return yesNo(utterance, forCreditYes, forCreditNo)
	case FieldAttendance:
		return Attendance(utterance), true
	case FieldWouldTakeAgain:
		return yesNo(utterance, wouldTakeAgainYes, wouldTakeAgainNo)
	case FieldGrade:
		return Grade(utterance), true
	case FieldTextbook:
		return yesNo(utterance, textbookYes, textbookNo)
	default:
		// Free-text fields: comment, lectureTopics, easyHard, professorFeedback.
		return strings.TrimSpace(utterance), true
	}
}

// Quality resolves an overall 1-5 rating from an utterance.
func Quality(utterance string) (float64, bool) {
	return rating(utterance, qualityCues)
}

// Difficulty resolves a 1-5 difficulty score from an utterance.
func Difficulty(utterance string) (float64, bool) {
	return rating(utterance, difficultyCues)
}

// rating resolves a 1-5 score: an explicit digit or spelled-out number
// anywhere in the utterance wins, else the first matching intensity cue.
func rating(utterance string, cues []cue) (float64, bool) {
	if m := digitRatingRe.FindStringSubmatch(utterance); m != nil {
		n, _ := strconv.ParseFloat(m[1], 64)
		return n, true
	}
	lower := strings.ToLower(utterance)
	for _, w := range strings.Fields(strings.Map(stripPunct, lower)) {
		if v, ok := spelledNumbers[w]; ok {
			return v, true
		}
	}
	for _, cue := range cues {
		if strings.Contains(lower, cue.phrase) {
			return cue.value, true
		}
	}
	return 0, false
}

// CourseCode matches only the strict letters-then-digits code form, e.g.
// "EECS 3101" -> "EECS3101".
func CourseCode(utterance string) (string, bool) {
	if m := courseCodeRe.FindStringSubmatch(utterance); m != nil {
		return strings.ToUpper(m[1] + m[2] + m[3]), true
	}
	return "", false
}

// CourseName extracts a course identifier. A letters-then-digits code is
// normalised (whitespace/hyphens stripped, upper-cased); failing that the
// utterance is cleaned of filler words and truncated. Never unresolved.
func CourseName(utterance string) string {
	if code, ok := CourseCode(utterance); ok {
		return code
	}

	cleaned := fillerRe.ReplaceAllString(strings.TrimSpace(utterance), "")
	cleaned = strings.TrimSpace(spaceRe.ReplaceAllString(cleaned, " "))

	if m := looseCourseCodeRe.FindStringSubmatch(cleaned); m != nil {
		return strings.ToUpper(m[1] + m[2] + m[3])
	}

	if len(cleaned) > maxCourseNameLen {
		cleaned = strings.TrimSpace(cleaned[:maxCourseNameLen])
	}
	if cleaned == "" {
		return "Unknown"
	}
	return cleaned
}

var (
	forCreditYes = []string{"yes", "yeah", "yep", "for credit", "course credit"}
	forCreditNo  = []string{"not for credit", "audit", "no", "nope"}

	wouldTakeAgainYes = []string{"yes", "yeah", "definitely", "absolutely", "for sure"}
	wouldTakeAgainNo  = []string{"no", "nope", "never"}

	textbookYes = []string{"yes", "yeah", "used a textbook", "required textbook"}
	textbookNo  = []string{"no textbook", "didn't need", "didnt need", "no", "nope"}
)

// yesNo checks negative phrases before bare affirmatives so "not for credit"
// does not hit the "credit" keyword, mirroring the longest-phrase-first order
// of the keyword sets above.
func yesNo(utterance string, yes, no []string) (bool, bool) {
	lower := strings.ToLower(utterance)
	for _, kw := range no {
		if strings.Contains(lower, kw) {
			return false, true
		}
	}
	for _, kw := range yes {
		if strings.Contains(lower, kw) {
			return true, true
		}
	}
	return false, false
}

var (
	attendanceYes = []string{
		"mandatory", "required", "must attend", "must go", "not optional",
		"had to attend", "attendance required", "required attendance",
	}
	attendanceNo = []string{
		"optional", "not required", "didn't have to", "did not have to",
		"not mandatory", "no requirement",
	}
	bareYesRe = regexp.MustCompile(`(?i)^\s*(yes|yeah|yep|yup|sure|definitely|absolutely)\s*[.!]?\s*$`)
	bareNoRe  = regexp.MustCompile(`(?i)^\s*(no|nope|nah)\s*[.!]?\s*$`)
)

// Attendance normalises to Yes (mandatory), No (optional) or N/A. Unrecognised
// phrasing falls back to N/A rather than unresolved so the field never blocks
// the interview.
func Attendance(utterance string) string {
	lower := strings.ToLower(utterance)
	for _, kw := range attendanceNo {
		if strings.Contains(lower, kw) {
			return "No"
		}
	}
	for _, kw := range attendanceYes {
		if strings.Contains(lower, kw) {
			return "Yes"
		}
	}
	if bareYesRe.MatchString(utterance) {
		return "Yes"
	}
	if bareNoRe.MatchString(utterance) {
		return "No"
	}
	return NotApplicable
}

// Grade extracts a letter grade. Modifiers are intentionally dropped so "B+",
// "B minus" and "B" all normalise to "B". F accepts no modifier and E is not
// a grade; both of those invalid forms, and anything unrecognised, resolve
// to N/A.
func Grade(utterance string) string {
	tokens := strings.Fields(utterance)
	for i, tok := range tokens {
		letter, modifier, ok := gradeToken(tok)
		if !ok {
			continue
		}
		// Standalone lower-case "a" is almost always the article, and a real
		// grade A survives the transcript as upper case.
		if tok == "a" && modifier == "" {
			continue
		}
		if modifier == "" && i+1 < len(tokens) {
			switch next := strings.Trim(strings.ToLower(tokens[i+1]), ".,!?;:"); next {
			case "plus", "minus":
				modifier = next
			}
		}
		switch letter {
		case "E":
			return NotApplicable
		case "F":
			if modifier != "" {
				return NotApplicable
			}
			return "F"
		default:
			return letter
		}
	}
	return NotApplicable
}

// gradeToken parses a single token of the form "B", "b", "B+" or "B-".
func gradeToken(tok string) (letter, modifier string, ok bool) {
	tok = strings.Trim(tok, ".,!?;:\"'")
	if len(tok) == 0 || len(tok) > 2 {
		return "", "", false
	}
	c := tok[0]
	if !('A' <= c && c <= 'F' || 'a' <= c && c <= 'f') {
		return "", "", false
	}
	letter = strings.ToUpper(tok[:1])
	if len(tok) == 2 {
		if tok[1] != '+' && tok[1] != '-' {
			return "", "", false
		}
		modifier = tok[1:]
	}
	return letter, modifier, true
}

func stripPunct(r rune) rune {
	switch r {
	case '.', ',', '!', '?', ';', ':':
		return ' '
	}
	return r
}
