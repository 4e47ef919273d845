package watson

import (
	"context"
	"fmt"
	"net/http"

	"github.com/IBM/go-sdk-core/v5/core"
	"github.com/watson-developer-cloud/go-sdk/v2/toneanalyzerv3"

	"banking-chatbot-backend/internal/enrich"
)

const toneVersion = "2017-09-21"

// ToneAnalyzer is the Tone Analyzer v3 adapter. It implements
// enrich.ToneScorer.
type ToneAnalyzer struct {
	svc *toneanalyzerv3.ToneAnalyzerV3
}

func NewToneAnalyzer(baseURL string, httpClient *http.Client) (*ToneAnalyzer, error) {
	svc, err := toneanalyzerv3.NewToneAnalyzerV3(&toneanalyzerv3.ToneAnalyzerV3Options{
		URL:           baseURL,
		Version:       core.StringPtr(toneVersion),
		Authenticator: authenticator(),
	})
	if err != nil {
		return nil, fmt.Errorf("tone analyzer client: %w", err)
	}
	useHTTPClient(svc.Service, httpClient)
	return &ToneAnalyzer{svc: svc}, nil
}

type toneResponse struct {
	DocumentTone struct {
		Tones []enrich.Tone `json:"tones"`
	} `json:"document_tone"`
}

// Tones returns the document-level tones of text.
func (t *ToneAnalyzer) Tones(ctx context.Context, text string) ([]enrich.Tone, error) {
	result, resp, err := t.svc.ToneWithContext(ctx, &toneanalyzerv3.ToneOptions{
		ToneInput:   &toneanalyzerv3.ToneInput{Text: core.StringPtr(text)},
		ContentType: core.StringPtr("application/json"),
		Sentences:   core.BoolPtr(false),
	})
	if err != nil {
		return nil, callError("tone_analyzer", "tone", resp, err)
	}
	var out toneResponse
	if err := remarshal(result, &out); err != nil {
		return nil, fmt.Errorf("tone analyzer: decode result: %w", err)
	}
	return out.DocumentTone.Tones, nil
}
