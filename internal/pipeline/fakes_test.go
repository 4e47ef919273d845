package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"banking-chatbot-backend/internal/banking"
	"banking-chatbot-backend/internal/dialog"
	"banking-chatbot-backend/internal/enrich"
	"banking-chatbot-backend/internal/store"
)

// scriptedEngine records payloads and answers them in order.
type scriptedEngine struct {
	payloads []*dialog.Payload
	replies  []func(p *dialog.Payload) (*dialog.Result, error)
}

func (e *scriptedEngine) Message(_ context.Context, p *dialog.Payload) (*dialog.Result, error) {
	e.payloads = append(e.payloads, p)
	if len(e.replies) == 0 {
		return nil, errors.New("unexpected dialog call")
	}
	next := e.replies[0]
	e.replies = e.replies[1:]
	return next(p)
}

func (e *scriptedEngine) reply(f func(p *dialog.Payload) (*dialog.Result, error)) *scriptedEngine {
	e.replies = append(e.replies, f)
	return e
}

// echo answers with the payload's context and input plus text.
func echo(text ...string) func(p *dialog.Payload) (*dialog.Result, error) {
	return func(p *dialog.Payload) (*dialog.Result, error) {
		return &dialog.Result{Input: p.Input, Context: p.Context, Output: dialog.Output{Text: text}}, nil
	}
}

type fakeSearcher struct {
	ready    bool
	passages []Passage
	err      error
	queries  []string
}

func (f *fakeSearcher) Ready() bool { return f.ready }

func (f *fakeSearcher) Search(_ context.Context, query string) ([]Passage, error) {
	f.queries = append(f.queries, query)
	return f.passages, f.err
}

type fakeRuntime struct {
	workspaceID string
	err         error
}

func (f fakeRuntime) WorkspaceID() (string, bool) { return f.workspaceID, f.workspaceID != "" }
func (f fakeRuntime) Err() error                  { return f.err }

type enricherFunc func(ctx context.Context, text string) enrich.Result

func (f enricherFunc) Enrich(ctx context.Context, text string) enrich.Result { return f(ctx, text) }

// failingBank fails every lookup.
type failingBank struct{ err error }

func (f failingBank) GetPerson(context.Context, int) (*banking.Person, error) { return nil, f.err }
func (f failingBank) GetAccounts(context.Context, int, string) ([]banking.Account, error) {
	return nil, f.err
}
func (f failingBank) GetTransactions(context.Context, int, string) (*banking.TransactionSummary, error) {
	return nil, f.err
}
func (f failingBank) GetBranch(context.Context, string) (*banking.Branch, error) { return nil, f.err }

const customerID = 7829706

func indiaBank(t *testing.T) banking.Services {
	t.Helper()
	ds, err := store.LoadDataset("india")
	require.NoError(t, err)
	return store.NewMemoryStore(ds)
}

func india(t *testing.T) banking.Variant {
	t.Helper()
	v, err := banking.LookupVariant("india")
	require.NoError(t, err)
	return v
}

func boolPtr(b bool) *bool { return &b }

// resultWith builds a dialog result carrying action.
func resultWith(a *dialog.Action, input string, text ...string) *dialog.Result {
	res := &dialog.Result{Input: dialog.Input{Text: input}, Output: dialog.Output{Text: text}}
	res.Context.Action = a
	res.Context.Set("conversation_id", "c-1")
	return res
}
