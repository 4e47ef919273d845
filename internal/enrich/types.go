// Package enrich annotates a user utterance with its emotional tone and the
// entities it mentions before the utterance reaches the dialog engine.
package enrich

import "context"

// Tone is one emotional dimension scored for a document.
type Tone struct {
	ID    string  `json:"tone_id"`
	Name  string  `json:"tone_name,omitempty"`
	Score float64 `json:"score"`
}

type Sentiment struct {
	Score float64 `json:"score"`
	Label string  `json:"label,omitempty"`
}

type Emotion struct {
	Sadness float64 `json:"sadness"`
	Joy     float64 `json:"joy"`
	Fear    float64 `json:"fear"`
	Disgust float64 `json:"disgust"`
	Anger   float64 `json:"anger"`
}

type Entity struct {
	Type      string     `json:"type"`
	Text      string     `json:"text"`
	Relevance float64    `json:"relevance"`
	Count     int        `json:"count,omitempty"`
	Sentiment *Sentiment `json:"sentiment,omitempty"`
	Emotion   *Emotion   `json:"emotion,omitempty"`
}

type Keyword struct {
	Text      string     `json:"text"`
	Relevance float64    `json:"relevance"`
	Count     int        `json:"count,omitempty"`
	Sentiment *Sentiment `json:"sentiment,omitempty"`
	Emotion   *Emotion   `json:"emotion,omitempty"`
}

// Analysis is the entity and keyword extraction for one utterance. It is
// stored in the dialog context as-is.
type Analysis struct {
	Language string    `json:"language,omitempty"`
	Entities []Entity  `json:"entities"`
	Keywords []Keyword `json:"keywords"`
}

type FeatureOptions struct {
	Emotion   bool `json:"emotion"`
	Sentiment bool `json:"sentiment"`
	Limit     int  `json:"limit"`
}

// AnalyzeOptions selects the extraction features.
type AnalyzeOptions struct {
	Entities FeatureOptions `json:"entities"`
	Keywords FeatureOptions `json:"keywords"`
}

// ToneScorer scores the emotional tone of text.
type ToneScorer interface {
	Tones(ctx context.Context, text string) ([]Tone, error)
}

// EntityExtractor extracts entities and keywords from text.
type EntityExtractor interface {
	Analyze(ctx context.Context, text string, opts AnalyzeOptions) (*Analysis, error)
}
