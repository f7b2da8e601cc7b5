package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"
)

// geminiPrompt instructs the model to emit exactly the JSON shape we
// parse below. Kept inline rather than templated: the prompt takes a
// single substitution and never varies per deployment.
const geminiPrompt = `You are a sentiment classifier for student course reviews.
Classify the following review as "positive", "negative" or "neutral" and
estimate your confidence between 0 and 1. Respond with only a JSON object
of the form {"label": "...", "score": 0.0} and no other text.

Review:
%s`

// geminiResponse mirrors the JSON object the prompt requests.
type geminiResponse struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// GeminiClassifier implements Classifier using Google's Gemini API.
type GeminiClassifier struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// NewGeminiClassifier creates a classifier backed by the Gemini API.
func NewGeminiClassifier(ctx context.Context, apiKey, model string, logger *slog.Logger) (*GeminiClassifier, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key cannot be empty")
	}
	if model == "" {
		return nil, errors.New("gemini model name cannot be empty")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClassifier{
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

// Classify sends the review text to Gemini and parses the label and
// score out of its JSON reply. API and malformed-output errors are
// transient (a retry may succeed); safety-blocked content is permanent.
func (c *GeminiClassifier) Classify(ctx context.Context, text string) (*Prediction, error) {
	prompt := fmt.Sprintf(geminiPrompt, text)

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		c.logger.ErrorContext(ctx, "gemini API call failed", "error", err)
		return nil, Transient(fmt.Errorf("gemini API call failed: %w", err))
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, Transient(errors.New("gemini returned no content"))
	}

	if resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return nil, Permanent(errors.New("content blocked by safety filters"))
	}

	raw := strings.TrimSpace(resp.Text())
	// Models occasionally wrap JSON in a code fence despite instructions.
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var parsed geminiResponse
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &parsed); err != nil {
		c.logger.WarnContext(ctx, "failed to parse gemini response",
			"response_length", len(raw),
			"error", err)
		return nil, Transient(fmt.Errorf("failed to parse gemini response: %w", err))
	}

	label := strings.ToLower(strings.TrimSpace(parsed.Label))
	switch label {
	case LabelPositive, LabelNegative, LabelNeutral:
	default:
		return nil, Transient(fmt.Errorf("gemini returned unknown label %q", parsed.Label))
	}

	score := parsed.Score
	if score < 0 || score > 1 {
		return nil, Transient(fmt.Errorf("gemini returned out-of-range score %v", parsed.Score))
	}

	return &Prediction{Label: label, Score: score}, nil
}
