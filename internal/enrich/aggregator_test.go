package enrich

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"banking-chatbot-backend/internal/dialog"
)

type toneFunc func(ctx context.Context, text string) ([]Tone, error)

func (f toneFunc) Tones(ctx context.Context, text string) ([]Tone, error) { return f(ctx, text) }

type analyzeFunc func(ctx context.Context, text string, opts AnalyzeOptions) (*Analysis, error)

func (f analyzeFunc) Analyze(ctx context.Context, text string, opts AnalyzeOptions) (*Analysis, error) {
	return f(ctx, text, opts)
}

func staticTones(tones ...Tone) toneFunc {
	return func(context.Context, string) ([]Tone, error) { return tones, nil }
}

func staticAnalysis(a *Analysis) analyzeFunc {
	return func(context.Context, string, AnalyzeOptions) (*Analysis, error) { return a, nil }
}

func TestEnrich_BothSucceed(t *testing.T) {
	defer goleak.VerifyNone(t)

	var gotOpts AnalyzeOptions
	agg := NewAggregator(
		staticTones(Tone{ID: "joy", Score: 0.3}, Tone{ID: "anger", Score: 0.81}),
		analyzeFunc(func(_ context.Context, text string, opts AnalyzeOptions) (*Analysis, error) {
			gotOpts = opts
			assert.Equal(t, "where is the branch in Mumbai", text)
			return &Analysis{Entities: []Entity{
				{Type: "Person", Text: "Ravi", Relevance: 0.9},
				{Type: "Location", Text: "Mumbai", Relevance: 0.8},
			}}, nil
		}),
		zap.NewNop(), nil,
	)

	res := agg.Enrich(context.Background(), "where is the branch in Mumbai")
	require.NotNil(t, res.ToneScore)
	assert.InDelta(t, 0.81, *res.ToneScore, 1e-9)
	require.NotNil(t, res.Analysis)
	assert.Equal(t, "Mumbai", res.Location)

	assert.Equal(t, FeatureOptions{Emotion: true, Sentiment: true, Limit: 2}, gotOpts.Entities)
	assert.Equal(t, FeatureOptions{Emotion: true, Sentiment: true, Limit: 2}, gotOpts.Keywords)
}

func TestEnrich_RunsConcurrently(t *testing.T) {
	defer goleak.VerifyNone(t)

	toneStarted := make(chan struct{})
	entitiesStarted := make(chan struct{})
	wait := func(ch chan struct{}) error {
		select {
		case <-ch:
			return nil
		case <-time.After(2 * time.Second):
			return errors.New("peer call never started")
		}
	}

	agg := NewAggregator(
		toneFunc(func(context.Context, string) ([]Tone, error) {
			close(toneStarted)
			if err := wait(entitiesStarted); err != nil {
				return nil, err
			}
			return []Tone{{ID: "anger", Score: 0.5}}, nil
		}),
		analyzeFunc(func(context.Context, string, AnalyzeOptions) (*Analysis, error) {
			close(entitiesStarted)
			if err := wait(toneStarted); err != nil {
				return nil, err
			}
			return &Analysis{}, nil
		}),
		zap.NewNop(), nil,
	)

	res := agg.Enrich(context.Background(), "hello")
	require.NotNil(t, res.ToneScore)
	require.NotNil(t, res.Analysis)
}

func TestEnrich_IndependentFailures(t *testing.T) {
	defer goleak.VerifyNone(t)

	boom := func(context.Context, string) ([]Tone, error) { return nil, errors.New("tone down") }
	agg := NewAggregator(toneFunc(boom),
		staticAnalysis(&Analysis{Entities: []Entity{{Type: "Location", Text: "Pune", Relevance: 1}}}),
		zap.NewNop(), nil)

	res := agg.Enrich(context.Background(), "branch in Pune")
	assert.Nil(t, res.ToneScore)
	require.NotNil(t, res.Analysis)
	assert.Equal(t, "Pune", res.Location)

	agg = NewAggregator(staticTones(Tone{ID: "anger", Score: 0.2}),
		analyzeFunc(func(context.Context, string, AnalyzeOptions) (*Analysis, error) {
			return nil, errors.New("nlu down")
		}),
		zap.NewNop(), nil)

	res = agg.Enrich(context.Background(), "branch in Pune")
	require.NotNil(t, res.ToneScore)
	assert.Nil(t, res.Analysis)
	assert.Empty(t, res.Location)
}

func TestEnrich_NilPorts(t *testing.T) {
	defer goleak.VerifyNone(t)

	res := NewAggregator(nil, nil, zap.NewNop(), nil).Enrich(context.Background(), "hi")
	assert.Nil(t, res.ToneScore)
	assert.Nil(t, res.Analysis)
}

func TestEnrich_MissingToneDimension(t *testing.T) {
	res := NewAggregator(staticTones(Tone{ID: "joy", Score: 0.9}), nil, zap.NewNop(), nil).
		Enrich(context.Background(), "great")
	assert.Nil(t, res.ToneScore)
}

func TestEnrich_TopKByRelevance(t *testing.T) {
	agg := NewAggregator(nil, staticAnalysis(&Analysis{
		Entities: []Entity{
			{Type: "Location", Text: "Delhi", Relevance: 0.2},
			{Type: "Person", Text: "Asha", Relevance: 0.9},
			{Type: "Location", Text: "Chennai", Relevance: 0.7},
		},
		Keywords: []Keyword{{Text: "a", Relevance: 0.1}, {Text: "b", Relevance: 0.5}, {Text: "c", Relevance: 0.3}},
	}), zap.NewNop(), nil)

	res := agg.Enrich(context.Background(), "x")
	require.NotNil(t, res.Analysis)
	require.Len(t, res.Analysis.Entities, 2)
	assert.Equal(t, "Asha", res.Analysis.Entities[0].Text)
	assert.Equal(t, "Chennai", res.Analysis.Entities[1].Text)
	assert.Equal(t, "Chennai", res.Location)
	require.Len(t, res.Analysis.Keywords, 2)
	assert.Equal(t, "b", res.Analysis.Keywords[0].Text)
}

func TestResult_Apply(t *testing.T) {
	score := 0.6
	var c dialog.Context
	Result{ToneScore: &score, Analysis: &Analysis{}, Location: "Mumbai"}.Apply(&c)
	v, ok := c.Get(ToneScoreKey)
	require.True(t, ok)
	assert.Equal(t, 0.6, v)
	assert.Equal(t, "Mumbai", c.String(LocationKey))
	_, ok = c.Get(AnalysisKey)
	assert.True(t, ok)

	c = dialog.Context{}
	Result{}.Apply(&c)
	v, ok = c.Get(ToneScoreKey)
	require.True(t, ok)
	assert.Equal(t, "", v)
	assert.Equal(t, "", c.String(LocationKey))
	_, ok = c.Get(AnalysisKey)
	assert.False(t, ok)
}
