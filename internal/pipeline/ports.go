package pipeline

import (
	"context"

	"banking-chatbot-backend/internal/enrich"
)

// Passage is one ranked excerpt returned by document search.
type Passage struct {
	Text  string
	Score float64
}

// Searcher answers free-form questions from an indexed FAQ corpus.
type Searcher interface {
	// Ready reports whether the index has been set up.
	Ready() bool
	// Search returns passages best first.
	Search(ctx context.Context, query string) ([]Passage, error)
}

// Enricher annotates an utterance before dialog.
type Enricher interface {
	Enrich(ctx context.Context, text string) enrich.Result
}

// Runtime exposes startup state to the request path.
type Runtime interface {
	// WorkspaceID returns the dialog workspace once it has been validated.
	WorkspaceID() (string, bool)
	// Err returns the setup failure, if any.
	Err() error
}
