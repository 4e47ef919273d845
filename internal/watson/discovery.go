package watson

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/IBM/go-sdk-core/v5/core"
	"github.com/watson-developer-cloud/go-sdk/v2/discoveryv1"
)

const discoveryVersion = "2018-03-05"

// Discovery is the Discovery v1 adapter.
type Discovery struct {
	svc *discoveryv1.DiscoveryV1
}

func NewDiscovery(baseURL string, httpClient *http.Client) (*Discovery, error) {
	svc, err := discoveryv1.NewDiscoveryV1(&discoveryv1.DiscoveryV1Options{
		URL:           baseURL,
		Version:       core.StringPtr(discoveryVersion),
		Authenticator: authenticator(),
	})
	if err != nil {
		return nil, fmt.Errorf("discovery client: %w", err)
	}
	useHTTPClient(svc.Service, httpClient)
	return &Discovery{svc: svc}, nil
}

type Environment struct {
	EnvironmentID string `json:"environment_id"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	ReadOnly      bool   `json:"read_only"`
}

type Configuration struct {
	ConfigurationID string `json:"configuration_id"`
	Name            string `json:"name"`
}

type DocumentCounts struct {
	Available  int `json:"available"`
	Processing int `json:"processing"`
	Failed     int `json:"failed"`
}

// Loaded is every document the collection has accepted, whatever its state.
func (d DocumentCounts) Loaded() int {
	return d.Available + d.Processing + d.Failed
}

type Collection struct {
	CollectionID    string         `json:"collection_id"`
	Name            string         `json:"name"`
	Description     string         `json:"description,omitempty"`
	ConfigurationID string         `json:"configuration_id,omitempty"`
	Language        string         `json:"language,omitempty"`
	DocumentCounts  DocumentCounts `json:"document_counts"`
}

type Passage struct {
	DocumentID   string  `json:"document_id"`
	PassageScore float64 `json:"passage_score"`
	PassageText  string  `json:"passage_text"`
}

type QueryResponse struct {
	MatchingResults int       `json:"matching_results"`
	Passages        []Passage `json:"passages"`
}

type DocumentAccepted struct {
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
}

// decode copies the SDK result of operation into out.
func decode(operation string, result, out any) error {
	if err := remarshal(result, out); err != nil {
		return fmt.Errorf("discovery %s: decode result: %w", operation, err)
	}
	return nil
}

func (d *Discovery) ListEnvironments(ctx context.Context) ([]Environment, error) {
	result, resp, err := d.svc.ListEnvironmentsWithContext(ctx, &discoveryv1.ListEnvironmentsOptions{})
	if err != nil {
		return nil, callError("discovery", "list environments", resp, err)
	}
	var out struct {
		Environments []Environment `json:"environments"`
	}
	if err := decode("list environments", result, &out); err != nil {
		return nil, err
	}
	return out.Environments, nil
}

// CreateEnvironment creates the smallest environment size.
func (d *Discovery) CreateEnvironment(ctx context.Context, name, description string) (*Environment, error) {
	result, resp, err := d.svc.CreateEnvironmentWithContext(ctx, &discoveryv1.CreateEnvironmentOptions{
		Name:        core.StringPtr(name),
		Description: core.StringPtr(description),
		Size:        core.StringPtr("LT"),
	})
	if err != nil {
		return nil, callError("discovery", "create environment", resp, err)
	}
	var out Environment
	if err := decode("create environment", result, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (d *Discovery) ListCollections(ctx context.Context, environmentID string) ([]Collection, error) {
	result, resp, err := d.svc.ListCollectionsWithContext(ctx, &discoveryv1.ListCollectionsOptions{
		EnvironmentID: core.StringPtr(environmentID),
	})
	if err != nil {
		return nil, callError("discovery", "list collections", resp, err)
	}
	var out struct {
		Collections []Collection `json:"collections"`
	}
	if err := decode("list collections", result, &out); err != nil {
		return nil, err
	}
	return out.Collections, nil
}

func (d *Discovery) ListConfigurations(ctx context.Context, environmentID string) ([]Configuration, error) {
	result, resp, err := d.svc.ListConfigurationsWithContext(ctx, &discoveryv1.ListConfigurationsOptions{
		EnvironmentID: core.StringPtr(environmentID),
	})
	if err != nil {
		return nil, callError("discovery", "list configurations", resp, err)
	}
	var out struct {
		Configurations []Configuration `json:"configurations"`
	}
	if err := decode("list configurations", result, &out); err != nil {
		return nil, err
	}
	return out.Configurations, nil
}

func (d *Discovery) CreateCollection(ctx context.Context, environmentID, configurationID, name, description string) (*Collection, error) {
	result, resp, err := d.svc.CreateCollectionWithContext(ctx, &discoveryv1.CreateCollectionOptions{
		EnvironmentID:   core.StringPtr(environmentID),
		Name:            core.StringPtr(name),
		Description:     core.StringPtr(description),
		ConfigurationID: core.StringPtr(configurationID),
		Language:        core.StringPtr("en"),
	})
	if err != nil {
		return nil, callError("discovery", "create collection", resp, err)
	}
	var out Collection
	if err := decode("create collection", result, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (d *Discovery) GetCollection(ctx context.Context, environmentID, collectionID string) (*Collection, error) {
	result, resp, err := d.svc.GetCollectionWithContext(ctx, &discoveryv1.GetCollectionOptions{
		EnvironmentID: core.StringPtr(environmentID),
		CollectionID:  core.StringPtr(collectionID),
	})
	if err != nil {
		return nil, callError("discovery", "get collection", resp, err)
	}
	var out Collection
	if err := decode("get collection", result, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddDocument uploads one file into the collection for ingestion.
func (d *Discovery) AddDocument(ctx context.Context, environmentID, collectionID, filename string, content io.Reader) (*DocumentAccepted, error) {
	name := filepath.Base(filename)
	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	result, resp, err := d.svc.AddDocumentWithContext(ctx, &discoveryv1.AddDocumentOptions{
		EnvironmentID:   core.StringPtr(environmentID),
		CollectionID:    core.StringPtr(collectionID),
		File:            io.NopCloser(content),
		Filename:        core.StringPtr(name),
		FileContentType: core.StringPtr(contentType),
	})
	if err != nil {
		return nil, callError("discovery", "add document", resp, err)
	}
	var out DocumentAccepted
	if err := decode("add document", result, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Query runs a natural language query and asks for passages.
func (d *Discovery) Query(ctx context.Context, environmentID, collectionID, text string) (*QueryResponse, error) {
	result, resp, err := d.svc.QueryWithContext(ctx, &discoveryv1.QueryOptions{
		EnvironmentID:        core.StringPtr(environmentID),
		CollectionID:         core.StringPtr(collectionID),
		NaturalLanguageQuery: core.StringPtr(text),
		Passages:             core.BoolPtr(true),
	})
	if err != nil {
		return nil, callError("discovery", "query", resp, err)
	}
	var out QueryResponse
	if err := decode("query", result, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
