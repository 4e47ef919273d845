package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"banking-chatbot-backend/internal/banking"
	"banking-chatbot-backend/internal/dialog"
	"banking-chatbot-backend/internal/enrich"
	"banking-chatbot-backend/internal/metrics"
)

// Context keys the dispatcher writes.
const (
	AccountsKey = "accounts"
	BranchKey   = "branch"
)

const topTransactions = 5

// Dispatcher performs the side-lookup the dialog engine asked for and either
// splices the result into the reply or hands it back to the engine for a
// continuation. At most one action is handled per call.
type Dispatcher struct {
	engine     dialog.Engine
	bank       banking.Services
	search     Searcher
	variant    banking.Variant
	customerID int
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

func NewDispatcher(engine dialog.Engine, bank banking.Services, search Searcher, variant banking.Variant, customerID int, logger *zap.Logger, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		engine:     engine,
		bank:       bank,
		search:     search,
		variant:    variant,
		customerID: customerID,
		logger:     logger,
		metrics:    m,
	}
}

// Dispatch handles the pending action in res, if any. Every handled action is
// cleared before Dispatch returns.
func (d *Dispatcher) Dispatch(ctx context.Context, workspaceID string, res *dialog.Result) (*dialog.Result, error) {
	action := res.Context.PendingAction()
	if action == nil || !action.Lookup.Known() {
		return res, nil
	}
	d.logger.Debug("lookup requested", zap.String("action", string(action.Lookup)))
	d.metrics.Lookup(string(action.Lookup))

	switch action.Lookup {
	case dialog.ActionBalance:
		return d.balance(ctx, workspaceID, res, action)
	case dialog.ActionTransactions:
		return d.transactions(ctx, res, action)
	case dialog.ActionTopTransactions:
		return d.topTransactions(ctx, res, action)
	case dialog.ActionBranch:
		return d.branch(ctx, workspaceID, res, action)
	case dialog.ActionDocumentSearch:
		return d.documentSearch(ctx, res)
	}
	return res, nil
}

func (d *Dispatcher) balance(ctx context.Context, workspaceID string, res *dialog.Result, a *dialog.Action) (*dialog.Result, error) {
	if strings.TrimSpace(a.AccountType) == "" {
		// The skill always names the account; a missing type is a skill bug.
		d.logger.Warn("balance lookup without account_type")
		res.Context.ClearAction()
		return res, nil
	}

	accounts, err := d.bank.GetAccounts(ctx, d.customerID, a.AccountType)
	if err != nil {
		return nil, fmt.Errorf("balance lookup: %w", err)
	}

	appendText := a.Appends(false)
	views := make([]banking.AccountView, 0, len(accounts))
	var b strings.Builder
	for _, acct := range accounts {
		v := d.variant.FormatAccount(acct)
		views = append(views, v)
		if appendText {
			fmt.Fprintf(&b, "%s %s Balance: %s<br/>", v.Number, v.Type, v.Balance)
		}
	}
	res.Context.Set(AccountsKey, views)
	res.Context.ClearAction()

	if !appendText {
		return d.continueDialog(ctx, workspaceID, res, dialog.ActionBalance)
	}
	res.Output.Append(b.String())
	return res, nil
}

func (d *Dispatcher) transactions(ctx context.Context, res *dialog.Result, a *dialog.Action) (*dialog.Result, error) {
	summary, err := d.bank.GetTransactions(ctx, d.customerID, a.Category)
	if err != nil {
		return nil, fmt.Errorf("transactions lookup: %w", err)
	}

	txns, total := summary.Transactions, summary.Total
	if start, end, ok := a.DateRange(); ok {
		txns = between(txns, start, end)
		total = sum(txns)
	}

	res.Output.Append(d.transactionText(a.AppendTotal, total, a.Appends(false), txns))
	res.Context.ClearAction()
	return res, nil
}

func (d *Dispatcher) topTransactions(ctx context.Context, res *dialog.Result, a *dialog.Action) (*dialog.Result, error) {
	summary, err := d.bank.GetTransactions(ctx, d.customerID, a.Category)
	if err != nil {
		return nil, fmt.Errorf("transactions lookup: %w", err)
	}

	txns := newestFirst(summary.Transactions)
	if len(txns) > topTransactions {
		txns = txns[:topTransactions]
	}

	res.Output.Append(d.transactionText(a.AppendTotal, summary.Total, a.Appends(true), txns))
	res.Context.ClearAction()
	return res, nil
}

func (d *Dispatcher) transactionText(withTotal bool, total float64, withLines bool, txns []banking.Transaction) string {
	var b strings.Builder
	if withTotal {
		b.WriteString("Total = <b>" + d.variant.Money(total) + "</b>")
	}
	if withLines {
		for _, t := range txns {
			fmt.Fprintf(&b, "<br/>%s &nbsp;%s &nbsp;%s", t.Date, d.variant.Money(t.Amount), t.Description)
		}
	}
	return b.String()
}

func (d *Dispatcher) branch(ctx context.Context, workspaceID string, res *dialog.Result, a *dialog.Action) (*dialog.Result, error) {
	location := a.Location
	if location == "" {
		location = res.Context.String(enrich.LocationKey)
	}
	if strings.TrimSpace(location) == "" {
		d.logger.Warn("branch lookup without location")
		res.Context.ClearAction()
		return res, nil
	}

	branch, err := d.bank.GetBranch(ctx, strings.ToLower(strings.TrimSpace(location)))
	if err != nil {
		return nil, fmt.Errorf("branch lookup: %w", err)
	}

	appendText := a.Appends(d.variant.BranchAppendDefault)
	if branch != nil {
		res.Context.Set(BranchKey, branch)
	} else {
		res.Context.Set(BranchKey, nil)
	}
	res.Context.ClearAction()

	if !appendText {
		return d.continueDialog(ctx, workspaceID, res, dialog.ActionBranch)
	}
	res.Output.Append(d.variant.BranchText(location, branch))
	return res, nil
}

func (d *Dispatcher) documentSearch(ctx context.Context, res *dialog.Result) (*dialog.Result, error) {
	res.Context.ClearAction()

	if d.search == nil || !d.search.Ready() {
		d.metrics.SearchDegraded("not_ready")
		res.Output.Append(SearchNotReadyReply)
		return res, nil
	}

	reply := SearchFailedReply
	passages, err := d.search.Search(ctx, res.Input.Text)
	switch {
	case err != nil:
		d.logger.Warn("document search failed", zap.Error(err))
		d.metrics.SearchDegraded("error")
	case len(passages) == 0:
		d.metrics.SearchDegraded("no_results")
	default:
		d.logger.Debug("best passage", zap.Float64("score", passages[0].Score))
		if line, ok := BestAnswer(passages[0].Text); ok {
			reply = line
		} else {
			reply = NoAnswerReply
			d.metrics.SearchDegraded("no_answer")
		}
	}
	res.Output.Append(reply)
	return res, nil
}

// continueDialog re-submits the updated context. The continuation is not
// dispatched again; if the engine repeats the action it just had answered,
// the repeat is cleared.
func (d *Dispatcher) continueDialog(ctx context.Context, workspaceID string, res *dialog.Result, handled dialog.ActionKind) (*dialog.Result, error) {
	next, err := d.engine.Message(ctx, res.Continue(workspaceID))
	if err != nil {
		return nil, fmt.Errorf("dialog continuation: %w", err)
	}
	if a := next.Context.PendingAction(); a != nil && a.Lookup == handled {
		d.logger.Warn("dialog engine repeated a handled lookup", zap.String("action", string(handled)))
		next.Context.ClearAction()
	}
	return next, nil
}

// between keeps transactions dated strictly after start and before end.
func between(txns []banking.Transaction, start, end time.Time) []banking.Transaction {
	out := make([]banking.Transaction, 0, len(txns))
	for _, t := range txns {
		ts, ok := t.Time()
		if ok && ts.After(start) && ts.Before(end) {
			out = append(out, t)
		}
	}
	return out
}

func sum(txns []banking.Transaction) float64 {
	var total float64
	for _, t := range txns {
		total += t.Amount
	}
	return total
}

// newestFirst sorts a copy of txns by date, newest first. Undated
// transactions go last.
func newestFirst(txns []banking.Transaction) []banking.Transaction {
	out := append([]banking.Transaction(nil), txns...)
	sort.SliceStable(out, func(i, j int) bool {
		ti, iok := out[i].Time()
		tj, jok := out[j].Time()
		if iok != jok {
			return iok
		}
		return ti.After(tj)
	})
	return out
}
