// Package bootstrap validates or creates the dialog workspace and the FAQ
// document collection at startup and publishes what it found to the request
// path.
package bootstrap

import "sync"

// DiscoveryTarget locates the FAQ collection.
type DiscoveryTarget struct {
	EnvironmentID   string `json:"environment_id"`
	CollectionID    string `json:"collection_id"`
	CollectionName  string `json:"collection_name"`
	ConfigurationID string `json:"configuration_id"`
}

// Runtime is written once by setup and read by every request. Values only go
// from unset to set.
type Runtime struct {
	mu          sync.RWMutex
	workspaceID string
	discovery   *DiscoveryTarget
	err         error
}

func NewRuntime() *Runtime {
	return &Runtime{}
}

func (r *Runtime) WorkspaceID() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.workspaceID, r.workspaceID != ""
}

func (r *Runtime) Discovery() (DiscoveryTarget, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.discovery == nil {
		return DiscoveryTarget{}, false
	}
	return *r.discovery, true
}

func (r *Runtime) Err() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.err
}

func (r *Runtime) setWorkspace(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.workspaceID == "" {
		r.workspaceID = id
	}
}

func (r *Runtime) setDiscovery(t DiscoveryTarget) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.discovery == nil {
		r.discovery = &t
	}
}

func (r *Runtime) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err == nil {
		r.err = err
	}
}
