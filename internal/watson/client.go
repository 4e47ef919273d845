// Package watson adapts the IBM Watson SDK services the chatbot depends on:
// Assistant, Discovery, Tone Analyzer and Natural Language Understanding.
package watson

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/IBM/go-sdk-core/v5/core"
)

// APIError is a non-2xx answer from a Watson service.
type APIError struct {
	Service   string
	Operation string
	Code      int
	Message   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s failed (%d): %s", e.Service, e.Operation, e.Code, e.Message)
}

// StatusCode lets HTTP handlers propagate the upstream status.
func (e *APIError) StatusCode() int { return e.Code }

// authenticator leaves requests untouched. Credentials are attached by the
// transport of the client passed to useHTTPClient, see NewHTTPClient.
func authenticator() core.Authenticator {
	return &core.NoAuthAuthenticator{}
}

func useHTTPClient(svc *core.BaseService, httpClient *http.Client) {
	if httpClient != nil {
		svc.SetHTTPClient(httpClient)
	}
}

// callError turns an SDK failure into an *APIError when the service answered,
// keeping transport failures wrapped as they are.
func callError(service, operation string, resp *core.DetailedResponse, err error) error {
	if resp == nil || resp.StatusCode == 0 {
		return fmt.Errorf("%s %s: %w", service, operation, err)
	}
	return &APIError{Service: service, Operation: operation, Code: resp.StatusCode, Message: err.Error()}
}

// remarshal copies an SDK model into one of this package's wire types.
func remarshal(in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
