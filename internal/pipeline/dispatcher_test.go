package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"banking-chatbot-backend/internal/banking"
	"banking-chatbot-backend/internal/dialog"
)

func newDispatcher(t *testing.T, engine dialog.Engine, search Searcher) *Dispatcher {
	t.Helper()
	return NewDispatcher(engine, indiaBank(t), search, india(t), customerID, zap.NewNop(), nil)
}

func TestDispatch_PassThrough(t *testing.T) {
	engine := &scriptedEngine{}
	d := newDispatcher(t, engine, nil)

	for _, a := range []*dialog.Action{
		nil,
		{},
		{Lookup: dialog.ActionComplete},
		{Lookup: "mortgage"},
	} {
		res := resultWith(a, "hi", "Hello")
		got, err := d.Dispatch(context.Background(), "ws", res)
		require.NoError(t, err)
		assert.Same(t, res, got)
		assert.Equal(t, []string{"Hello"}, got.Output.Text)
		assert.Equal(t, a, got.Context.Action)
	}
	assert.Empty(t, engine.payloads)
}

func TestDispatch_BalanceAppend(t *testing.T) {
	d := newDispatcher(t, &scriptedEngine{}, nil)
	res := resultWith(&dialog.Action{Lookup: dialog.ActionBalance, AccountType: "savings", AppendResponse: boolPtr(true)},
		"what is my savings balance", "Here is your balance:")

	got, err := d.Dispatch(context.Background(), "ws", res)
	require.NoError(t, err)
	assert.Equal(t, []string{"Here is your balance:", "xxx8990 savings Balance: INR 12,800.00<br/>"}, got.Output.Text)
	assert.Nil(t, got.Context.PendingAction())
	assert.Equal(t, &dialog.Action{}, got.Context.Action)

	accounts, ok := got.Context.Get(AccountsKey)
	require.True(t, ok)
	want := []banking.AccountView{{Number: "xxx8990", Type: "savings", Balance: "INR 12,800.00"}}
	if diff := cmp.Diff(want, accounts); diff != "" {
		t.Errorf("accounts mismatch (-want +got):\n%s", diff)
	}
}

func TestDispatch_BalanceReinvokes(t *testing.T) {
	engine := (&scriptedEngine{}).reply(echo("Your savings balance is INR 12,800.00"))
	d := newDispatcher(t, engine, nil)
	res := resultWith(&dialog.Action{Lookup: dialog.ActionBalance, AccountType: "CC"}, "credit card balance", "Let me check")

	got, err := d.Dispatch(context.Background(), "ws-9", res)
	require.NoError(t, err)
	require.Len(t, engine.payloads, 1)

	sent := engine.payloads[0]
	assert.Equal(t, "ws-9", sent.WorkspaceID)
	assert.Equal(t, "credit card balance", sent.Input.Text)
	assert.Nil(t, sent.Context.PendingAction())
	accounts, ok := sent.Context.Get(AccountsKey)
	require.True(t, ok)
	views := accounts.([]banking.AccountView)
	require.Len(t, views, 1)
	assert.Equal(t, "INR 4,450.00", views[0].AvailableCredit)

	assert.Equal(t, []string{"Your savings balance is INR 12,800.00"}, got.Output.Text)
}

func TestDispatch_BalanceWithoutAccountType(t *testing.T) {
	engine := &scriptedEngine{}
	d := NewDispatcher(engine, failingBank{err: errors.New("must not be called")}, nil, india(t), customerID, zap.NewNop(), nil)
	res := resultWith(&dialog.Action{Lookup: dialog.ActionBalance, AppendResponse: boolPtr(true)}, "balance", "Which account?")

	got, err := d.Dispatch(context.Background(), "ws", res)
	require.NoError(t, err)
	assert.Equal(t, []string{"Which account?"}, got.Output.Text)
	assert.Nil(t, got.Context.PendingAction())
	_, ok := got.Context.Get(AccountsKey)
	assert.False(t, ok)
	assert.Empty(t, engine.payloads)
}

func TestDispatch_TransactionsDateRange(t *testing.T) {
	d := newDispatcher(t, &scriptedEngine{}, nil)
	res := resultWith(&dialog.Action{
		Lookup:         dialog.ActionTransactions,
		Category:       "utility",
		StartDate:      "2016-09-01",
		EndDate:        "2016-09-30",
		AppendTotal:    true,
		AppendResponse: boolPtr(true),
	}, "utility bills in september")

	got, err := d.Dispatch(context.Background(), "ws", res)
	require.NoError(t, err)
	require.Len(t, got.Output.Text, 1)
	assert.Equal(t,
		"Total = <b>INR 1,800.00</b>"+
			"<br/>09-16-2016 &nbsp;INR 800.00 &nbsp;Utility Company A"+
			"<br/>09-16-2016 &nbsp;INR 1,000.00 &nbsp;Energy Company B",
		got.Output.Text[0])
	assert.Nil(t, got.Context.PendingAction())
}

func TestDispatch_TransactionsBoundsAreExclusive(t *testing.T) {
	d := newDispatcher(t, &scriptedEngine{}, nil)
	res := resultWith(&dialog.Action{
		Lookup:      dialog.ActionTransactions,
		Category:    "utility",
		StartDate:   "09-16-2016",
		EndDate:     "2016-09-30",
		AppendTotal: true,
	}, "x")

	got, err := d.Dispatch(context.Background(), "ws", res)
	require.NoError(t, err)
	assert.Equal(t, []string{"Total = <b>INR 0.00</b>"}, got.Output.Text)
}

func TestDispatch_TransactionsNoRange(t *testing.T) {
	d := newDispatcher(t, &scriptedEngine{}, nil)
	res := resultWith(&dialog.Action{Lookup: dialog.ActionTransactions, Category: "dining", AppendTotal: true, AppendResponse: boolPtr(true)}, "dining")

	got, err := d.Dispatch(context.Background(), "ws", res)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Total = <b>INR 1,200.00</b>" +
			"<br/>08-29-2016 &nbsp;INR 700.00 &nbsp;Restaurant A" +
			"<br/>08-27-2016 &nbsp;INR 500.00 &nbsp;Restaurant B",
	}, got.Output.Text)
}

func TestDispatch_TransactionsNothingToAppend(t *testing.T) {
	d := newDispatcher(t, &scriptedEngine{}, nil)
	res := resultWith(&dialog.Action{Lookup: dialog.ActionTransactions, Category: "dining"}, "dining", "ok")

	got, err := d.Dispatch(context.Background(), "ws", res)
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, got.Output.Text)
	assert.Nil(t, got.Context.PendingAction())
}

func TestDispatch_TopTransactions(t *testing.T) {
	d := newDispatcher(t, &scriptedEngine{}, nil)
	res := resultWith(&dialog.Action{
		Lookup:      dialog.ActionTopTransactions,
		Category:    "all",
		StartDate:   "2016-09-20",
		EndDate:     "2016-09-30",
		AppendTotal: true,
	}, "last 5 transactions")

	got, err := d.Dispatch(context.Background(), "ws", res)
	require.NoError(t, err)
	require.Len(t, got.Output.Text, 1)
	assert.Equal(t,
		"Total = <b>INR 29,700.90</b>"+
			"<br/>09-25-2016 &nbsp;INR 6,000.00 &nbsp;A Investment Firm"+
			"<br/>09-16-2016 &nbsp;INR 800.00 &nbsp;Utility Company A"+
			"<br/>09-16-2016 &nbsp;INR 1,000.00 &nbsp;Energy Company B"+
			"<br/>08-29-2016 &nbsp;INR 700.00 &nbsp;Restaurant A"+
			"<br/>08-27-2016 &nbsp;INR 500.00 &nbsp;Restaurant B",
		got.Output.Text[0])
	assert.Nil(t, got.Context.PendingAction())
}

func TestDispatch_TopTransactionsFewerThanFive(t *testing.T) {
	d := newDispatcher(t, &scriptedEngine{}, nil)
	res := resultWith(&dialog.Action{Lookup: dialog.ActionTopTransactions, Category: "dining"}, "x")

	got, err := d.Dispatch(context.Background(), "ws", res)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"<br/>08-29-2016 &nbsp;INR 700.00 &nbsp;Restaurant A<br/>08-27-2016 &nbsp;INR 500.00 &nbsp;Restaurant B",
	}, got.Output.Text)
}

func TestDispatch_BranchHit(t *testing.T) {
	d := newDispatcher(t, &scriptedEngine{}, nil)
	res := resultWith(&dialog.Action{Lookup: dialog.ActionBranch, Location: "Mumbai"}, "branch in Mumbai")

	got, err := d.Dispatch(context.Background(), "ws", res)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Here are the branch details at mumbai <br/>Address: 1st Floor, Nariman Point, Mumbai 400021<br/>Phone: 022 1111 1111<br/>Operation Hours: 10AM–4PM<br/>",
	}, got.Output.Text)
	b, ok := got.Context.Get(BranchKey)
	require.True(t, ok)
	assert.Equal(t, "mumbai", b.(*banking.Branch).Location)
	assert.Nil(t, got.Context.PendingAction())
}

func TestDispatch_BranchMiss(t *testing.T) {
	d := newDispatcher(t, &scriptedEngine{}, nil)
	res := resultWith(&dialog.Action{Lookup: dialog.ActionBranch, Location: "Atlantis"}, "branch in Atlantis")

	got, err := d.Dispatch(context.Background(), "ws", res)
	require.NoError(t, err)
	assert.Equal(t, []string{"Sorry currently we don't have branch details for Atlantis"}, got.Output.Text)
	b, ok := got.Context.Get(BranchKey)
	require.True(t, ok)
	assert.Nil(t, b)
	assert.Nil(t, got.Context.PendingAction())

	raw, err := got.Context.MarshalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"branch":null`)
}

func TestDispatch_BranchLocationFromEnrichment(t *testing.T) {
	d := newDispatcher(t, &scriptedEngine{}, nil)
	res := resultWith(&dialog.Action{Lookup: dialog.ActionBranch}, "branch near me")
	res.Context.Set("Location", "Pune")

	got, err := d.Dispatch(context.Background(), "ws", res)
	require.NoError(t, err)
	require.Len(t, got.Output.Text, 1)
	assert.Contains(t, got.Output.Text[0], "9 FC Road")
}

func TestDispatch_BranchWithoutLocation(t *testing.T) {
	engine := &scriptedEngine{}
	d := NewDispatcher(engine, failingBank{err: errors.New("must not be called")}, nil, india(t), customerID, zap.NewNop(), nil)
	res := resultWith(&dialog.Action{Lookup: dialog.ActionBranch}, "where is your branch", "Let me check")
	res.Context.Set("Location", "")

	got, err := d.Dispatch(context.Background(), "ws", res)
	require.NoError(t, err)
	assert.Equal(t, []string{"Let me check"}, got.Output.Text)
	assert.Nil(t, got.Context.PendingAction())
	_, ok := got.Context.Get(BranchKey)
	assert.False(t, ok)
	assert.Empty(t, engine.payloads)
}

func TestDispatch_BranchReinvokes(t *testing.T) {
	engine := (&scriptedEngine{}).reply(echo("The Delhi branch opens at 10AM"))
	d := newDispatcher(t, engine, nil)
	res := resultWith(&dialog.Action{Lookup: dialog.ActionBranch, Location: "Delhi", AppendResponse: boolPtr(false)}, "delhi hours")

	got, err := d.Dispatch(context.Background(), "ws", res)
	require.NoError(t, err)
	require.Len(t, engine.payloads, 1)
	b, ok := engine.payloads[0].Context.Get(BranchKey)
	require.True(t, ok)
	assert.Equal(t, "011 3333 3333", b.(*banking.Branch).Phone)
	assert.Equal(t, []string{"The Delhi branch opens at 10AM"}, got.Output.Text)
}

func TestDispatch_ContinuationRepeatingActionIsCleared(t *testing.T) {
	engine := (&scriptedEngine{}).reply(func(p *dialog.Payload) (*dialog.Result, error) {
		res, _ := echo("again")(p)
		res.Context.Action = &dialog.Action{Lookup: dialog.ActionBalance, AccountType: "savings"}
		return res, nil
	})
	d := newDispatcher(t, engine, nil)
	res := resultWith(&dialog.Action{Lookup: dialog.ActionBalance, AccountType: "savings"}, "balance")

	got, err := d.Dispatch(context.Background(), "ws", res)
	require.NoError(t, err)
	assert.Nil(t, got.Context.PendingAction())
	assert.Len(t, engine.payloads, 1)
}

func TestDispatch_DocumentSearchNotReady(t *testing.T) {
	search := &fakeSearcher{ready: false}
	d := newDispatcher(t, &scriptedEngine{}, search)
	res := resultWith(&dialog.Action{Lookup: dialog.ActionDocumentSearch}, "what are the loan terms", "Let me look")

	got, err := d.Dispatch(context.Background(), "ws", res)
	require.NoError(t, err)
	assert.Equal(t, []string{"Let me look", SearchNotReadyReply}, got.Output.Text)
	assert.Empty(t, search.queries)
	assert.Nil(t, got.Context.PendingAction())

	d = newDispatcher(t, &scriptedEngine{}, nil)
	got, err = d.Dispatch(context.Background(), "ws", resultWith(&dialog.Action{Lookup: dialog.ActionDocumentSearch}, "x"))
	require.NoError(t, err)
	assert.Equal(t, []string{SearchNotReadyReply}, got.Output.Text)
}

func TestDispatch_DocumentSearch(t *testing.T) {
	tests := []struct {
		name   string
		search *fakeSearcher
		want   string
	}{
		{
			name:   "answer line",
			search: &fakeSearcher{ready: true, passages: []Passage{{Text: "What is the tenure?\nUp to 5 years.", Score: 9}, {Text: "ignored"}}},
			want:   "Up to 5 years.",
		},
		{
			name:   "search error",
			search: &fakeSearcher{ready: true, err: errors.New("503")},
			want:   SearchFailedReply,
		},
		{
			name:   "no passages",
			search: &fakeSearcher{ready: true},
			want:   SearchFailedReply,
		},
		{
			name:   "no usable line",
			search: &fakeSearcher{ready: true, passages: []Passage{{Text: "Why?\n<h1>Terms</h1>"}}},
			want:   NoAnswerReply,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDispatcher(t, &scriptedEngine{}, tt.search)
			got, err := d.Dispatch(context.Background(), "ws",
				resultWith(&dialog.Action{Lookup: dialog.ActionDocumentSearch}, "loan tenure"))
			require.NoError(t, err)
			assert.Equal(t, []string{tt.want}, got.Output.Text)
			assert.Equal(t, []string{"loan tenure"}, tt.search.queries)
			assert.Nil(t, got.Context.PendingAction())
		})
	}
}

func TestDispatch_LookupErrorsPropagate(t *testing.T) {
	boom := errors.New("bank offline")
	d := NewDispatcher(&scriptedEngine{}, failingBank{err: boom}, nil, india(t), customerID, zap.NewNop(), nil)

	for _, a := range []*dialog.Action{
		{Lookup: dialog.ActionBalance, AccountType: "savings"},
		{Lookup: dialog.ActionTransactions},
		{Lookup: dialog.ActionTopTransactions},
		{Lookup: dialog.ActionBranch, Location: "pune"},
	} {
		_, err := d.Dispatch(context.Background(), "ws", resultWith(a, "x"))
		assert.ErrorIs(t, err, boom, string(a.Lookup))
	}
}

func TestDispatch_ContinuationErrorPropagates(t *testing.T) {
	engine := (&scriptedEngine{}).reply(func(*dialog.Payload) (*dialog.Result, error) {
		return nil, errors.New("dialog down")
	})
	d := newDispatcher(t, engine, nil)
	_, err := d.Dispatch(context.Background(), "ws", resultWith(&dialog.Action{Lookup: dialog.ActionBalance, AccountType: "savings"}, "x"))
	require.Error(t, err)
}

// Every recognised action leaves no pending action behind, whichever branch
// it takes.
func TestDispatch_AlwaysTerminates(t *testing.T) {
	actions := []*dialog.Action{
		{Lookup: dialog.ActionBalance, AccountType: "savings", AppendResponse: boolPtr(true)},
		{Lookup: dialog.ActionBalance, AccountType: "savings"},
		{Lookup: dialog.ActionBalance},
		{Lookup: dialog.ActionTransactions, Category: "travel", AppendResponse: boolPtr(true)},
		{Lookup: dialog.ActionTopTransactions},
		{Lookup: dialog.ActionBranch, Location: "Chennai"},
		{Lookup: dialog.ActionBranch, Location: "Chennai", AppendResponse: boolPtr(false)},
		{Lookup: dialog.ActionDocumentSearch},
	}
	for _, a := range actions {
		engine := (&scriptedEngine{}).reply(echo("continued"))
		d := newDispatcher(t, engine, &fakeSearcher{ready: true, passages: []Passage{{Text: "Q?\nA"}}})
		got, err := d.Dispatch(context.Background(), "ws", resultWith(a, "x"))
		require.NoError(t, err, string(a.Lookup))
		assert.Nil(t, got.Context.PendingAction(), string(a.Lookup))
	}
}
