package enrich

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"gopkg.in/yaml.v3"
)

//go:embed prompts/enrich.yaml
var defaultPrompts []byte

// PromptSpec holds the system prompts the LLM analyzer sends.
type PromptSpec struct {
	Tone struct {
		System string `yaml:"system"`
	} `yaml:"tone"`
	Entities struct {
		System string `yaml:"system"`
	} `yaml:"entities"`
	Style struct {
		Temperature float32 `yaml:"temperature"`
		MaxTokens   int     `yaml:"max_tokens"`
	} `yaml:"style"`
}

// ChatCompleter is the subset of *openai.Client the analyzer needs.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// LLMAnalyzer scores tone and extracts entities with a chat completion model.
// It satisfies both ToneScorer and EntityExtractor.
type LLMAnalyzer struct {
	spec    PromptSpec
	client  ChatCompleter
	model   string
	timeout time.Duration
}

func LoadLLMAnalyzer(client ChatCompleter, model string) (*LLMAnalyzer, error) {
	return ParseLLMAnalyzer(defaultPrompts, client, model)
}

func ParseLLMAnalyzer(prompts []byte, client ChatCompleter, model string) (*LLMAnalyzer, error) {
	var spec PromptSpec
	if err := yaml.Unmarshal(prompts, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse prompt spec: %w", err)
	}
	if strings.TrimSpace(spec.Tone.System) == "" || strings.TrimSpace(spec.Entities.System) == "" {
		return nil, fmt.Errorf("prompt spec needs tone and entities system prompts")
	}
	return &LLMAnalyzer{spec: spec, client: client, model: model, timeout: 10 * time.Second}, nil
}

func (l *LLMAnalyzer) Tones(ctx context.Context, text string) ([]Tone, error) {
	var out struct {
		Tones []Tone `json:"tones"`
	}
	if err := l.complete(ctx, l.spec.Tone.System, text, &out); err != nil {
		return nil, fmt.Errorf("llm tone: %w", err)
	}
	return out.Tones, nil
}

func (l *LLMAnalyzer) Analyze(ctx context.Context, text string, opts AnalyzeOptions) (*Analysis, error) {
	var b strings.Builder
	b.WriteString(l.spec.Entities.System)
	fmt.Fprintf(&b, "\nReturn at most %d entities and %d keywords.", opts.Entities.Limit, opts.Keywords.Limit)
	if !opts.Entities.Emotion && !opts.Keywords.Emotion {
		b.WriteString(" Omit emotion.")
	}
	if !opts.Entities.Sentiment && !opts.Keywords.Sentiment {
		b.WriteString(" Omit sentiment.")
	}

	var out Analysis
	if err := l.complete(ctx, b.String(), text, &out); err != nil {
		return nil, fmt.Errorf("llm entities: %w", err)
	}
	if out.Entities == nil {
		out.Entities = []Entity{}
	}
	if out.Keywords == nil {
		out.Keywords = []Keyword{}
	}
	return &out, nil
}

func (l *LLMAnalyzer) complete(ctx context.Context, system, text string, out any) error {
	temp := l.spec.Style.Temperature
	if temp <= 0 {
		temp = 0.1
	}
	maxTok := l.spec.Style.MaxTokens
	if maxTok <= 0 {
		maxTok = 300
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	resp, err := l.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       l.model,
		Temperature: temp,
		MaxTokens:   maxTok,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return err
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("no choices")
	}
	return decodeJSONReply(resp.Choices[0].Message.Content, out)
}

// decodeJSONReply parses raw as JSON, falling back to the outermost {...} span
// when the model wrapped its answer in prose or a code fence.
func decodeJSONReply(raw string, out any) error {
	err := json.Unmarshal([]byte(raw), out)
	if err == nil {
		return nil
	}
	first := strings.IndexByte(raw, '{')
	last := strings.LastIndexByte(raw, '}')
	if first < 0 || last <= first {
		return err
	}
	if err2 := json.Unmarshal([]byte(raw[first:last+1]), out); err2 != nil {
		return err
	}
	return nil
}
