package bootstrap

import (
	"context"

	"banking-chatbot-backend/internal/pipeline"
	"banking-chatbot-backend/internal/watson"
)

// QueryAPI runs passage queries against a collection.
type QueryAPI interface {
	Query(ctx context.Context, environmentID, collectionID, text string) (*watson.QueryResponse, error)
}

// DiscoverySearcher answers document searches from the collection setup
// resolved. It reports not ready until then.
type DiscoverySearcher struct {
	runtime *Runtime
	api     QueryAPI
}

func NewDiscoverySearcher(runtime *Runtime, api QueryAPI) *DiscoverySearcher {
	return &DiscoverySearcher{runtime: runtime, api: api}
}

func (d *DiscoverySearcher) Ready() bool {
	if d == nil || d.api == nil {
		return false
	}
	_, ok := d.runtime.Discovery()
	return ok
}

func (d *DiscoverySearcher) Search(ctx context.Context, query string) ([]pipeline.Passage, error) {
	target, _ := d.runtime.Discovery()
	resp, err := d.api.Query(ctx, target.EnvironmentID, target.CollectionID, query)
	if err != nil {
		return nil, err
	}
	out := make([]pipeline.Passage, 0, len(resp.Passages))
	for _, p := range resp.Passages {
		out = append(out, pipeline.Passage{Text: p.PassageText, Score: p.PassageScore})
	}
	return out, nil
}
