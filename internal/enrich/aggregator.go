package enrich

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"banking-chatbot-backend/internal/dialog"
	"banking-chatbot-backend/internal/metrics"
)

// Context keys written by Result.Apply.
const (
	ToneScoreKey = "tone_anger_score"
	AnalysisKey  = "nlu_output"
	LocationKey  = "Location"
)

const (
	DefaultToneID = "anger"
	DefaultLimit  = 2
	locationType  = "Location"
)

// Aggregator runs tone scoring and entity extraction side by side. Either
// port may be nil, in which case that half is skipped.
type Aggregator struct {
	tone     ToneScorer
	entities EntityExtractor
	logger   *zap.Logger
	metrics  *metrics.Metrics
	toneID   string
	limit    int
}

func NewAggregator(tone ToneScorer, entities EntityExtractor, logger *zap.Logger, m *metrics.Metrics) *Aggregator {
	return &Aggregator{
		tone:     tone,
		entities: entities,
		logger:   logger,
		metrics:  m,
		toneID:   DefaultToneID,
		limit:    DefaultLimit,
	}
}

// Result is what one enrichment pass learned about an utterance.
type Result struct {
	// ToneScore is nil when tone scoring failed or the dimension was absent.
	ToneScore *float64
	// Analysis is nil when entity extraction failed.
	Analysis *Analysis
	Location string
}

// Apply writes r into c. A missing tone score is recorded as the empty
// string so the dialog engine can tell "unknown" from zero.
func (r Result) Apply(c *dialog.Context) {
	if r.ToneScore != nil {
		c.Set(ToneScoreKey, *r.ToneScore)
	} else {
		c.Set(ToneScoreKey, "")
	}
	if r.Analysis != nil {
		c.Set(AnalysisKey, r.Analysis)
	}
	c.Set(LocationKey, r.Location)
}

func (a *Aggregator) options() AnalyzeOptions {
	f := FeatureOptions{Emotion: true, Sentiment: true, Limit: a.limit}
	return AnalyzeOptions{Entities: f, Keywords: f}
}

// Enrich never fails. Each branch logs and swallows its own error so a tone
// outage does not cost the turn its entities and vice versa.
func (a *Aggregator) Enrich(ctx context.Context, text string) Result {
	var (
		score    *float64
		analysis *Analysis
	)

	var g errgroup.Group
	g.Go(func() error {
		if a.tone == nil {
			return nil
		}
		tones, err := a.tone.Tones(ctx, text)
		if err != nil {
			a.logger.Warn("tone scoring failed", zap.Error(err))
			a.metrics.EnrichmentFailed("tone")
			return nil
		}
		for _, t := range tones {
			if t.ID == a.toneID {
				s := t.Score
				score = &s
				break
			}
		}
		return nil
	})
	g.Go(func() error {
		if a.entities == nil {
			return nil
		}
		res, err := a.entities.Analyze(ctx, text, a.options())
		if err != nil {
			a.logger.Warn("entity extraction failed", zap.Error(err))
			a.metrics.EnrichmentFailed("entities")
			return nil
		}
		analysis = topK(res, a.limit)
		return nil
	})
	_ = g.Wait()

	out := Result{ToneScore: score, Analysis: analysis}
	if analysis != nil {
		out.Location = firstLocation(analysis.Entities)
	}
	a.logger.Debug("enrichment complete",
		zap.Bool("tone", score != nil),
		zap.Bool("entities", analysis != nil),
		zap.String("location", out.Location),
	)
	return out
}

// topK keeps the k most relevant entities and keywords. Providers are asked
// for k already; this holds for ones that ignore the limit.
func topK(a *Analysis, k int) *Analysis {
	if a == nil {
		return &Analysis{Entities: []Entity{}, Keywords: []Keyword{}}
	}
	out := *a
	out.Entities = append([]Entity(nil), a.Entities...)
	out.Keywords = append([]Keyword(nil), a.Keywords...)
	sort.SliceStable(out.Entities, func(i, j int) bool { return out.Entities[i].Relevance > out.Entities[j].Relevance })
	sort.SliceStable(out.Keywords, func(i, j int) bool { return out.Keywords[i].Relevance > out.Keywords[j].Relevance })
	if len(out.Entities) > k {
		out.Entities = out.Entities[:k]
	}
	if len(out.Keywords) > k {
		out.Keywords = out.Keywords[:k]
	}
	if out.Entities == nil {
		out.Entities = []Entity{}
	}
	if out.Keywords == nil {
		out.Keywords = []Keyword{}
	}
	return &out
}

func firstLocation(entities []Entity) string {
	for _, e := range entities {
		if e.Type == locationType {
			return e.Text
		}
	}
	return ""
}
