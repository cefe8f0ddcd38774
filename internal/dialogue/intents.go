package dialogue

import "regexp"

// Meta-intents are checked before normal extraction: they control the flow of
// the interview itself rather than answering the current question.
type intent int

const (
	intentAnswer intent = iota
	intentGoodbye
	intentPause
	intentUncertain
	intentCorrection
)

var (
	goodbyeRe = regexp.MustCompile(`(?i)\b(goodbye|bye|see you|gotta go)\b`)
	pauseRe   = regexp.MustCompile(`(?i)^\s*(wait|hold on|hang on|give me a (sec|second|minute)|gimme a sec|one sec|one second|pause)\b`)
	// "don't know" style answers skip the current field without penalty.
	uncertainRe  = regexp.MustCompile(`(?i)\b(don'?t know|not sure|no idea|can'?t remember|don'?t remember)\b`)
	correctionRe = regexp.MustCompile(`(?i)\b(i meant|actually|correction|no,? i said)\b`)
)

func detectIntent(utterance string) intent {
	switch {
	case goodbyeRe.MatchString(utterance):
		return intentGoodbye
	case pauseRe.MatchString(utterance):
		return intentPause
	case uncertainRe.MatchString(utterance):
		return intentUncertain
	case correctionRe.MatchString(utterance):
		return intentCorrection
	default:
		return intentAnswer
	}
}
