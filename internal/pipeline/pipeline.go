// Package pipeline runs one chat turn: mask the input, enrich it, ask the
// dialog engine, and perform whatever lookup the engine requested.
package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"banking-chatbot-backend/internal/banking"
	"banking-chatbot-backend/internal/dialog"
	"banking-chatbot-backend/internal/redact"
)

const PersonKey = "person"

// Replies sent while startup setup has not produced a usable workspace.
const (
	WorkspaceNotReadyReply = "Assistant initialization in progress. Please try again."
	SetupFailedReply       = "The app failed to initialize properly. Setup and restart needed."
)

// Request is one inbound turn. A nil Context means the client sent none,
// which starts a new conversation.
type Request struct {
	Input   dialog.Input
	Context *dialog.Context
}

type Pipeline struct {
	runtime    Runtime
	engine     dialog.Engine
	enricher   Enricher
	bank       banking.Services
	dispatcher *Dispatcher
	customerID int
	logger     *zap.Logger
}

// New builds a pipeline. enricher may be nil to skip enrichment.
func New(runtime Runtime, engine dialog.Engine, enricher Enricher, bank banking.Services, dispatcher *Dispatcher, customerID int, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		runtime:    runtime,
		engine:     engine,
		enricher:   enricher,
		bank:       bank,
		dispatcher: dispatcher,
		customerID: customerID,
		logger:     logger,
	}
}

// Handle runs one turn. Errors come from the dialog engine or a banking
// lookup and abort the turn; enrichment and search problems never do.
func (p *Pipeline) Handle(ctx context.Context, req Request) (*dialog.Result, error) {
	if err := p.runtime.Err(); err != nil {
		return notice(req, SetupFailedReply+" "+err.Error()), nil
	}
	workspaceID, ok := p.runtime.WorkspaceID()
	if !ok {
		return notice(req, WorkspaceNotReadyReply), nil
	}

	payload := &dialog.Payload{WorkspaceID: workspaceID}
	if req.Context != nil {
		payload.Context = *req.Context
	} else {
		person, err := p.bank.GetPerson(ctx, p.customerID)
		if err != nil {
			return nil, fmt.Errorf("get person: %w", err)
		}
		payload.Context.Set(PersonKey, person)
	}

	if redact.Contains(req.Input.Text) {
		p.logger.Info("masked identifier in user input")
	}
	payload.Input.Text = redact.Redact(req.Input.Text)

	if payload.Input.Text != "" && p.enricher != nil {
		p.enricher.Enrich(ctx, payload.Input.Text).Apply(&payload.Context)
	}

	res, err := p.engine.Message(ctx, payload)
	if err != nil {
		return nil, err
	}
	return p.dispatcher.Dispatch(ctx, workspaceID, res)
}

// notice answers without consulting the dialog engine, handing the client's
// context back untouched.
func notice(req Request, text string) *dialog.Result {
	res := &dialog.Result{Input: req.Input, Output: dialog.Output{Text: []string{text}}}
	if req.Context != nil {
		res.Context = *req.Context
	}
	return res
}
