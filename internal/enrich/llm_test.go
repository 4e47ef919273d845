package enrich

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type completerFunc func(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)

func (f completerFunc) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return f(ctx, req)
}

func reply(content string) completerFunc {
	return func(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
		return openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}},
		}}, nil
	}
}

func TestLoadLLMAnalyzer_EmbeddedPrompts(t *testing.T) {
	l, err := LoadLLMAnalyzer(reply("{}"), "gpt-4o-mini")
	require.NoError(t, err)
	assert.Contains(t, l.spec.Tone.System, "anger")
	assert.InDelta(t, 0.1, l.spec.Style.Temperature, 1e-6)
}

func TestParseLLMAnalyzer_RequiresPrompts(t *testing.T) {
	_, err := ParseLLMAnalyzer([]byte("tone: {system: x}"), reply("{}"), "m")
	require.Error(t, err)
}

func TestLLMAnalyzer_Tones(t *testing.T) {
	l, err := LoadLLMAnalyzer(completerFunc(func(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "why was I charged twice", req.Messages[1].Content)
		assert.Equal(t, "m", req.Model)
		return reply(`{"tones":[{"tone_id":"anger","score":0.77}]}`)(context.Background(), req)
	}), "m")
	require.NoError(t, err)

	tones, err := l.Tones(context.Background(), "why was I charged twice")
	require.NoError(t, err)
	require.Len(t, tones, 1)
	assert.Equal(t, "anger", tones[0].ID)
	assert.InDelta(t, 0.77, tones[0].Score, 1e-9)
}

func TestLLMAnalyzer_AnalyzeFencedReply(t *testing.T) {
	l, err := LoadLLMAnalyzer(reply("Sure!\n```json\n{\"entities\":[{\"type\":\"Location\",\"text\":\"Pune\",\"relevance\":0.9}]}\n```"), "m")
	require.NoError(t, err)

	a, err := l.Analyze(context.Background(), "branch in Pune", AnalyzeOptions{Entities: FeatureOptions{Limit: 2}})
	require.NoError(t, err)
	require.Len(t, a.Entities, 1)
	assert.Equal(t, "Pune", a.Entities[0].Text)
	assert.NotNil(t, a.Keywords)
}

func TestLLMAnalyzer_BadReply(t *testing.T) {
	l, err := LoadLLMAnalyzer(reply("no json here"), "m")
	require.NoError(t, err)
	_, err = l.Tones(context.Background(), "x")
	require.Error(t, err)

	l, err = LoadLLMAnalyzer(completerFunc(func(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
		return openai.ChatCompletionResponse{}, nil
	}), "m")
	require.NoError(t, err)
	_, err = l.Analyze(context.Background(), "x", AnalyzeOptions{})
	require.Error(t, err)
}

func TestLLMAnalyzer_OpenAIClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "chatcmpl-1",
			"choices": []map[string]any{{
				"index":   0,
				"message": map[string]any{"role": "assistant", "content": `{"tones":[{"tone_id":"anger","score":0.4}]}`},
			}},
		})
	}))
	defer srv.Close()

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	tr := &http.Transport{}
	defer tr.CloseIdleConnections()
	cfg.HTTPClient = &http.Client{Transport: tr}
	l, err := LoadLLMAnalyzer(openai.NewClientWithConfig(cfg), "gpt-4o-mini")
	require.NoError(t, err)

	tones, err := l.Tones(context.Background(), "hello")
	require.NoError(t, err)
	require.Len(t, tones, 1)
	assert.InDelta(t, 0.4, tones[0].Score, 1e-9)
}
