package extract

import "strings"

// Sentiment is the coarse polarity of an utterance.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

var positiveWords = []string{
	"great", "amazing", "excellent", "love", "awesome",
	"perfect", "good", "enjoyed", "helpful", "best",
}

var negativeWords = []string{
	"bad", "terrible", "awful", "hate", "difficult",
	"hard", "confusing", "boring", "worst", "disappointed",
}

// Classify scores an utterance against the two fixed lexicons and compares
// match counts. Ties, including zero matches on both sides, are neutral.
func Classify(utterance string) Sentiment {
	lower := strings.ToLower(utterance)

	var positive, negative int
	for _, w := range positiveWords {
		if strings.Contains(lower, w) {
			positive++
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(lower, w) {
			negative++
		}
	}

	switch {
	case positive > negative:
		return SentimentPositive
	case negative > positive:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}
