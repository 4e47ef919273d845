package watson

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// DefaultIAMURL is the IBM Cloud token endpoint.
const DefaultIAMURL = "https://iam.cloud.ibm.com/identity/token"

const apiKeyGrant = "urn:ibm:params:oauth:grant-type:apikey"

// iamTokenSource exchanges an IBM Cloud API key for a bearer token.
type iamTokenSource struct {
	apiKey     string
	tokenURL   string
	httpClient *http.Client
}

type iamTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	Expiration   int64  `json:"expiration"`
}

func (s *iamTokenSource) Token() (*oauth2.Token, error) {
	form := url.Values{}
	form.Set("grant_type", apiKeyGrant)
	form.Set("apikey", s.apiKey)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("iam token request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, &APIError{Service: "iam", Operation: "token", Code: resp.StatusCode, Message: iamErrorMessage(b)}
	}

	var tr iamTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("iam token response: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("iam token response: no access_token")
	}

	tok := &oauth2.Token{AccessToken: tr.AccessToken, TokenType: "Bearer", RefreshToken: tr.RefreshToken}
	switch {
	case tr.Expiration > 0:
		tok.Expiry = time.Unix(tr.Expiration, 0)
	case tr.ExpiresIn > 0:
		tok.Expiry = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	return tok, nil
}

// NewHTTPClient returns a client that authenticates every request with an IAM
// token minted from apiKey. Tokens are cached until shortly before expiry.
// An empty apiKey yields an unauthenticated client.
func NewHTTPClient(apiKey, iamURL string, timeout time.Duration) *http.Client {
	base := &http.Client{Timeout: timeout}
	if apiKey == "" {
		return base
	}
	if iamURL == "" {
		iamURL = DefaultIAMURL
	}
	src := oauth2.ReuseTokenSource(nil, &iamTokenSource{apiKey: apiKey, tokenURL: iamURL, httpClient: base})
	return &http.Client{
		Timeout:   timeout,
		Transport: &oauth2.Transport{Source: src, Base: http.DefaultTransport},
	}
}

// iamErrorMessage pulls errorMessage out of an IAM error body.
func iamErrorMessage(body []byte) string {
	var e struct {
		ErrorMessage string `json:"errorMessage"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.ErrorMessage != "" {
		return e.ErrorMessage
	}
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return msg
	}
	return "empty response"
}
