// Package inference defines the boundary to the classification black
// box. The pipeline treats the model as an opaque function from review
// text to a label and confidence score with bounded but variable
// latency; everything about preprocessing and the model itself lives
// behind the Classifier interface.
package inference

import "context"

// Canonical sentiment labels produced by the classifiers in this package.
const (
	LabelPositive = "positive"
	LabelNegative = "negative"
	LabelNeutral  = "neutral"
)

// Prediction is the output of a classification call.
type Prediction struct {
	// Label is the predicted category (e.g., "positive").
	Label string

	// Score is the model's confidence in [0, 1].
	Score float64
}

// Classifier is the inference black box. Implementations must classify
// every error they return as transient or permanent (see errors.go);
// the worker retries transient failures and fails tasks immediately on
// permanent ones. Callers enforce their own timeout via ctx.
type Classifier interface {
	Classify(ctx context.Context, text string) (*Prediction, error)
}
