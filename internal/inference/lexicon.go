package inference

import (
	"context"
	"strings"
)

// Word lists for the lexicon classifier. Deliberately small: this
// classifier exists for local development and tests, not accuracy.
var (
	positiveWords = map[string]struct{}{
		"great": {}, "good": {}, "excellent": {}, "amazing": {},
		"loved": {}, "love": {}, "helpful": {}, "clear": {},
		"fantastic": {}, "engaging": {}, "best": {}, "recommend": {},
	}

	negativeWords = map[string]struct{}{
		"bad": {}, "terrible": {}, "awful": {}, "boring": {},
		"hated": {}, "hate": {}, "confusing": {}, "worst": {},
		"useless": {}, "waste": {}, "disappointing": {}, "poor": {},
	}
)

// LexiconClassifier is a deterministic word-list sentiment scorer. It
// never fails, which makes it the default provider for local runs.
type LexiconClassifier struct{}

// NewLexiconClassifier creates a lexicon-based classifier.
func NewLexiconClassifier() *LexiconClassifier {
	return &LexiconClassifier{}
}

// Classify counts positive and negative lexicon hits in the text and
// derives a label and a confidence proportional to the margin.
func (c *LexiconClassifier) Classify(ctx context.Context, text string) (*Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var positive, negative int
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:\"'()")
		if _, ok := positiveWords[word]; ok {
			positive++
		}
		if _, ok := negativeWords[word]; ok {
			negative++
		}
	}

	total := positive + negative
	if total == 0 {
		return &Prediction{Label: LabelNeutral, Score: 0.5}, nil
	}

	switch {
	case positive > negative:
		return &Prediction{
			Label: LabelPositive,
			Score: 0.5 + 0.5*float64(positive-negative)/float64(total),
		}, nil
	case negative > positive:
		return &Prediction{
			Label: LabelNegative,
			Score: 0.5 + 0.5*float64(negative-positive)/float64(total),
		}, nil
	default:
		return &Prediction{Label: LabelNeutral, Score: 0.5}, nil
	}
}
