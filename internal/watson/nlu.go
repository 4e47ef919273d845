package watson

import (
	"context"
	"fmt"
	"net/http"

	"github.com/IBM/go-sdk-core/v5/core"
	nlu "github.com/watson-developer-cloud/go-sdk/v2/naturallanguageunderstandingv1"

	"banking-chatbot-backend/internal/enrich"
)

const nluVersion = "2018-03-16"

// NLU is the Natural Language Understanding v1 adapter. It implements
// enrich.EntityExtractor.
type NLU struct {
	svc *nlu.NaturalLanguageUnderstandingV1
}

func NewNLU(baseURL string, httpClient *http.Client) (*NLU, error) {
	svc, err := nlu.NewNaturalLanguageUnderstandingV1(&nlu.NaturalLanguageUnderstandingV1Options{
		URL:           baseURL,
		Version:       core.StringPtr(nluVersion),
		Authenticator: authenticator(),
	})
	if err != nil {
		return nil, fmt.Errorf("natural language understanding client: %w", err)
	}
	useHTTPClient(svc.Service, httpClient)
	return &NLU{svc: svc}, nil
}

func (n *NLU) Analyze(ctx context.Context, text string, opts enrich.AnalyzeOptions) (*enrich.Analysis, error) {
	result, resp, err := n.svc.AnalyzeWithContext(ctx, &nlu.AnalyzeOptions{
		Text: core.StringPtr(text),
		Features: &nlu.Features{
			Entities: &nlu.EntitiesOptions{
				Emotion:   core.BoolPtr(opts.Entities.Emotion),
				Sentiment: core.BoolPtr(opts.Entities.Sentiment),
				Limit:     core.Int64Ptr(int64(opts.Entities.Limit)),
			},
			Keywords: &nlu.KeywordsOptions{
				Emotion:   core.BoolPtr(opts.Keywords.Emotion),
				Sentiment: core.BoolPtr(opts.Keywords.Sentiment),
				Limit:     core.Int64Ptr(int64(opts.Keywords.Limit)),
			},
		},
	})
	if err != nil {
		return nil, callError("natural_language_understanding", "analyze", resp, err)
	}

	var out enrich.Analysis
	if err := remarshal(result, &out); err != nil {
		return nil, fmt.Errorf("natural language understanding: decode result: %w", err)
	}
	if out.Entities == nil {
		out.Entities = []enrich.Entity{}
	}
	if out.Keywords == nil {
		out.Keywords = []enrich.Keyword{}
	}
	return &out, nil
}
