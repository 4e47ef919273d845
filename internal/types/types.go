package types

import "banking-chatbot-backend/internal/dialog"

// MessageRequest is the body of POST /api/message. The client keeps the
// conversation context and sends it back every turn.
type MessageRequest struct {
	Input   dialog.Input    `json:"input"`
	Context *dialog.Context `json:"context,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

type HealthResponse struct {
	Status         string `json:"status"`
	WorkspaceReady bool   `json:"workspace_ready"`
	DiscoveryReady bool   `json:"discovery_ready"`
	Database       string `json:"database"`
	SetupError     string `json:"setup_error,omitempty"`
}
