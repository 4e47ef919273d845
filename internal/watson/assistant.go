package watson

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/IBM/go-sdk-core/v5/core"
	"github.com/watson-developer-cloud/go-sdk/v2/assistantv1"

	"banking-chatbot-backend/internal/dialog"
)

const assistantVersion = "2018-02-16"

// Assistant is the Watson Assistant v1 adapter. It implements dialog.Engine.
type Assistant struct {
	svc *assistantv1.AssistantV1
}

func NewAssistant(baseURL string, httpClient *http.Client) (*Assistant, error) {
	svc, err := assistantv1.NewAssistantV1(&assistantv1.AssistantV1Options{
		URL:           baseURL,
		Version:       core.StringPtr(assistantVersion),
		Authenticator: authenticator(),
	})
	if err != nil {
		return nil, fmt.Errorf("assistant client: %w", err)
	}
	useHTTPClient(svc.Service, httpClient)
	return &Assistant{svc: svc}, nil
}

func (a *Assistant) Message(ctx context.Context, p *dialog.Payload) (*dialog.Result, error) {
	if p.WorkspaceID == "" {
		return nil, fmt.Errorf("assistant message: workspace id is required")
	}

	var bag map[string]any
	if err := remarshal(p.Context, &bag); err != nil {
		return nil, fmt.Errorf("assistant message: encode context: %w", err)
	}
	msgContext := &assistantv1.Context{}
	for k, v := range bag {
		msgContext.SetProperty(k, v)
	}

	result, resp, err := a.svc.MessageWithContext(ctx, &assistantv1.MessageOptions{
		WorkspaceID: core.StringPtr(p.WorkspaceID),
		Input:       &assistantv1.MessageInput{Text: core.StringPtr(p.Input.Text)},
		Context:     msgContext,
	})
	if err != nil {
		return nil, callError("assistant", "message", resp, err)
	}

	var out dialog.Result
	if err := remarshal(result, &out); err != nil {
		return nil, fmt.Errorf("assistant message: decode result: %w", err)
	}
	if out.Output.Text == nil {
		out.Output.Text = []string{}
	}
	return &out, nil
}

type Workspace struct {
	WorkspaceID string `json:"workspace_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Language    string `json:"language,omitempty"`
}

type workspaceList struct {
	Workspaces []Workspace `json:"workspaces"`
	Pagination struct {
		NextCursor string `json:"next_cursor"`
	} `json:"pagination"`
}

// ListWorkspaces returns every workspace the credentials can see, following
// pagination cursors.
func (a *Assistant) ListWorkspaces(ctx context.Context) ([]Workspace, error) {
	var out []Workspace
	cursor := ""
	for {
		opts := &assistantv1.ListWorkspacesOptions{PageLimit: core.Int64Ptr(100)}
		if cursor != "" {
			opts.Cursor = core.StringPtr(cursor)
		}
		result, resp, err := a.svc.ListWorkspacesWithContext(ctx, opts)
		if err != nil {
			return nil, callError("assistant", "list workspaces", resp, err)
		}
		var page workspaceList
		if err := remarshal(result, &page); err != nil {
			return nil, fmt.Errorf("assistant list workspaces: %w", err)
		}
		out = append(out, page.Workspaces...)
		if page.Pagination.NextCursor == "" || page.Pagination.NextCursor == cursor {
			return out, nil
		}
		cursor = page.Pagination.NextCursor
	}
}

// CreateWorkspace imports a workspace definition under name. The definition
// is sent as-is: dialog node outputs do not survive the typed create options.
func (a *Assistant) CreateWorkspace(ctx context.Context, definition json.RawMessage, name string) (*Workspace, error) {
	var body map[string]any
	if err := json.Unmarshal(definition, &body); err != nil {
		return nil, fmt.Errorf("workspace definition: %w", err)
	}
	body["name"] = name

	builder := core.NewRequestBuilder(core.POST).WithContext(ctx)
	if _, err := builder.ResolveRequestURL(a.svc.Service.GetServiceURL(), "/v1/workspaces", nil); err != nil {
		return nil, fmt.Errorf("assistant create workspace: %w", err)
	}
	builder.AddHeader("Accept", "application/json")
	builder.AddHeader("Content-Type", "application/json")
	builder.AddQuery("version", assistantVersion)
	if _, err := builder.SetBodyContentJSON(body); err != nil {
		return nil, fmt.Errorf("assistant create workspace: %w", err)
	}
	req, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("assistant create workspace: %w", err)
	}

	var raw map[string]json.RawMessage
	resp, err := a.svc.Service.Request(req, &raw)
	if err != nil {
		return nil, callError("assistant", "create workspace", resp, err)
	}
	var out Workspace
	if err := remarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("assistant create workspace: %w", err)
	}
	return &out, nil
}
