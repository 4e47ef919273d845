// Package dialog holds the payload exchanged with the dialog engine and the
// context bag the rest of the pipeline reads and mutates.
package dialog

import (
	"context"
	"encoding/json"
)

// Engine is the conversational state machine that maps (context, input) to
// (output, updated context).
type Engine interface {
	Message(ctx context.Context, payload *Payload) (*Result, error)
}

// Input is the user turn.
type Input struct {
	Text string `json:"text"`
}

// Payload is one request to the dialog engine. WorkspaceID identifies the
// dialog skill and is process-wide once setup completes.
type Payload struct {
	WorkspaceID string  `json:"workspace_id,omitempty"`
	Context     Context `json:"context"`
	Input       Input   `json:"input"`
}

// Output holds the reply fragments. Fields the pipeline does not interpret are
// kept as raw JSON so they reach the client untouched.
type Output struct {
	Text         []string        `json:"text"`
	Generic      json.RawMessage `json:"generic,omitempty"`
	NodesVisited json.RawMessage `json:"nodes_visited,omitempty"`
	LogMessages  json.RawMessage `json:"log_messages,omitempty"`
}

// Append adds a reply fragment. Empty fragments are dropped.
func (o *Output) Append(text string) {
	if text == "" {
		return
	}
	o.Text = append(o.Text, text)
}

// Result is the dialog engine's answer to a Payload.
type Result struct {
	Input    Input           `json:"input"`
	Output   Output          `json:"output"`
	Context  Context         `json:"context"`
	Intents  json.RawMessage `json:"intents,omitempty"`
	Entities json.RawMessage `json:"entities,omitempty"`
}

// Continue builds the payload that re-submits this result's context and input
// to the engine.
func (r *Result) Continue(workspaceID string) *Payload {
	return &Payload{WorkspaceID: workspaceID, Context: r.Context, Input: r.Input}
}
