package bootstrap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"banking-chatbot-backend/internal/watson"
)

const defaultConfigurationName = "Default Configuration"

// WorkspaceAPI is the part of the Assistant service setup needs.
type WorkspaceAPI interface {
	ListWorkspaces(ctx context.Context) ([]watson.Workspace, error)
	CreateWorkspace(ctx context.Context, definition json.RawMessage, name string) (*watson.Workspace, error)
}

// CollectionAPI is the part of the Discovery service setup needs.
type CollectionAPI interface {
	ListEnvironments(ctx context.Context) ([]watson.Environment, error)
	CreateEnvironment(ctx context.Context, name, description string) (*watson.Environment, error)
	ListCollections(ctx context.Context, environmentID string) ([]watson.Collection, error)
	ListConfigurations(ctx context.Context, environmentID string) ([]watson.Configuration, error)
	CreateCollection(ctx context.Context, environmentID, configurationID, name, description string) (*watson.Collection, error)
	GetCollection(ctx context.Context, environmentID, collectionID string) (*watson.Collection, error)
	AddDocument(ctx context.Context, environmentID, collectionID, filename string, content io.Reader) (*watson.DocumentAccepted, error)
}

// Config names the resources setup looks for. IDs, when set, must exist;
// otherwise resources are found by name and created when missing.
type Config struct {
	DefaultName     string
	SkillID         string
	WorkspaceName   string
	WorkspaceFile   string
	EnvironmentID   string
	EnvironmentName string
	CollectionID    string
	CollectionName  string
	DocsDir         string
}

type Setup struct {
	workspaces  WorkspaceAPI
	collections CollectionAPI
	cfg         Config
	runtime     *Runtime
	logger      *zap.Logger
}

// New creates a setup routine. collections may be nil to skip document search
// setup entirely.
func New(workspaces WorkspaceAPI, collections CollectionAPI, cfg Config, logger *zap.Logger) *Setup {
	return &Setup{
		workspaces:  workspaces,
		collections: collections,
		cfg:         cfg,
		runtime:     NewRuntime(),
		logger:      logger,
	}
}

func (s *Setup) Runtime() *Runtime { return s.runtime }

// Start runs setup in the background. The first failure is recorded on the
// runtime and passed to onError.
func (s *Setup) Start(ctx context.Context, onError func(error)) {
	go func() {
		if err := s.Run(ctx); err != nil {
			if onError != nil {
				onError(err)
			}
		}
	}()
}

// Run sets up the workspace and the document collection concurrently and
// returns once both are resolved.
func (s *Setup) Run(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error {
		id, err := s.setupWorkspace(ctx)
		if err != nil {
			s.runtime.fail(err)
			return err
		}
		s.runtime.setWorkspace(id)
		s.logger.Info("assistant workspace ready", zap.String("workspace_id", id))
		return nil
	})
	if s.collections != nil {
		g.Go(func() error {
			target, err := s.setupDiscovery(ctx)
			if err != nil {
				s.runtime.fail(err)
				return err
			}
			s.runtime.setDiscovery(target)
			s.logger.Info("discovery collection ready",
				zap.String("environment_id", target.EnvironmentID),
				zap.String("collection_id", target.CollectionID),
			)
			s.loadDocuments(ctx, target)
			return nil
		})
	}
	return g.Wait()
}

func (s *Setup) setupWorkspace(ctx context.Context) (string, error) {
	workspaces, err := s.workspaces.ListWorkspaces(ctx)
	if err != nil {
		return "", fmt.Errorf("unable to list assistant workspaces: %w", err)
	}

	if s.cfg.SkillID != "" {
		s.logger.Info("validating workspace id", zap.String("skill_id", s.cfg.SkillID))
		for _, w := range workspaces {
			if w.WorkspaceID == s.cfg.SkillID {
				return w.WorkspaceID, nil
			}
		}
		return "", fmt.Errorf("configured SKILL_ID %q not found", s.cfg.SkillID)
	}

	name := firstNonEmpty(s.cfg.WorkspaceName, s.cfg.DefaultName)
	s.logger.Info("looking for workspace by name", zap.String("name", name))
	for _, w := range workspaces {
		if w.Name == name {
			return w.WorkspaceID, nil
		}
	}

	definition, err := os.ReadFile(s.cfg.WorkspaceFile)
	if err != nil {
		return "", fmt.Errorf("failed to read workspace file: %w", err)
	}
	s.logger.Info("creating assistant workspace", zap.String("name", name))
	created, err := s.workspaces.CreateWorkspace(ctx, definition, name)
	if err != nil {
		return "", fmt.Errorf("failed to create assistant workspace: %w", err)
	}
	return created.WorkspaceID, nil
}

func (s *Setup) setupDiscovery(ctx context.Context) (DiscoveryTarget, error) {
	var target DiscoveryTarget

	envID, err := s.findOrCreateEnvironment(ctx)
	if err != nil {
		return target, err
	}
	target.EnvironmentID = envID

	collections, err := s.collections.ListCollections(ctx, envID)
	if err != nil {
		return target, fmt.Errorf("failed to get discovery collections: %w", err)
	}
	if s.cfg.CollectionID != "" {
		for _, c := range collections {
			if c.CollectionID == s.cfg.CollectionID {
				target.CollectionID, target.CollectionName = c.CollectionID, c.Name
				break
			}
		}
		if target.CollectionID == "" {
			return target, fmt.Errorf("configured DISCOVERY_COLLECTION_ID=%s not found", s.cfg.CollectionID)
		}
	} else {
		target.CollectionName = firstNonEmpty(s.cfg.CollectionName, s.cfg.DefaultName)
		for _, c := range collections {
			if c.Name == target.CollectionName {
				target.CollectionID = c.CollectionID
				break
			}
		}
	}

	configs, err := s.collections.ListConfigurations(ctx, envID)
	if err != nil {
		return target, fmt.Errorf("failed to get discovery configurations: %w", err)
	}
	for _, c := range configs {
		if c.Name == defaultConfigurationName {
			target.ConfigurationID = c.ConfigurationID
			break
		}
	}
	if target.ConfigurationID == "" {
		return target, fmt.Errorf("failed to get default discovery configuration")
	}

	if target.CollectionID == "" {
		s.logger.Info("creating discovery collection", zap.String("name", target.CollectionName))
		created, err := s.collections.CreateCollection(ctx, envID, target.ConfigurationID, target.CollectionName,
			"Discovery collection created by "+s.cfg.DefaultName)
		if err != nil {
			return target, fmt.Errorf("failed to create discovery collection: %w", err)
		}
		target.CollectionID = created.CollectionID
	}
	return target, nil
}

// findOrCreateEnvironment prefers the configured ID, then a match by name,
// then any writable environment, and creates one only as a last resort.
func (s *Setup) findOrCreateEnvironment(ctx context.Context) (string, error) {
	envs, err := s.collections.ListEnvironments(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get discovery environments: %w", err)
	}

	if s.cfg.EnvironmentID != "" {
		for _, e := range envs {
			if e.EnvironmentID == s.cfg.EnvironmentID {
				return e.EnvironmentID, nil
			}
		}
		return "", fmt.Errorf("configured DISCOVERY_ENVIRONMENT_ID=%s not found", s.cfg.EnvironmentID)
	}

	name := firstNonEmpty(s.cfg.EnvironmentName, s.cfg.DefaultName)
	var reuse string
	for _, e := range envs {
		if e.Name == name {
			return e.EnvironmentID, nil
		}
		if !e.ReadOnly {
			reuse = e.EnvironmentID
		}
	}
	if reuse != "" {
		s.logger.Info("reusing existing discovery environment", zap.String("environment_id", reuse))
		return reuse, nil
	}

	s.logger.Info("creating discovery environment", zap.String("name", name))
	created, err := s.collections.CreateEnvironment(ctx, name, "Discovery environment created by "+s.cfg.DefaultName)
	if err != nil {
		return "", fmt.Errorf("failed to create discovery environment: %w", err)
	}
	return created.EnvironmentID, nil
}

// loadDocuments uploads the FAQ corpus when the collection holds fewer
// documents than the docs directory. Failures are logged and skipped.
func (s *Setup) loadDocuments(ctx context.Context, target DiscoveryTarget) {
	docs, err := listDocuments(s.cfg.DocsDir)
	if err != nil {
		s.logger.Warn("unable to list discovery documents", zap.String("dir", s.cfg.DocsDir), zap.Error(err))
		return
	}
	if len(docs) == 0 {
		return
	}

	col, err := s.collections.GetCollection(ctx, target.EnvironmentID, target.CollectionID)
	if err != nil {
		s.logger.Warn("unable to check discovery collection status", zap.Error(err))
		return
	}
	if col.DocumentCounts.Loaded() >= len(docs) {
		s.logger.Info("discovery collection already loaded", zap.Int("documents", col.DocumentCounts.Loaded()))
		return
	}

	s.logger.Info("loading documents into discovery collection", zap.Int("documents", len(docs)))
	for _, path := range docs {
		if err := s.addDocument(ctx, target, path); err != nil {
			s.logger.Warn("add document failed", zap.String("file", path), zap.Error(err))
		}
	}
}

func (s *Setup) addDocument(ctx context.Context, target DiscoveryTarget, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	accepted, err := s.collections.AddDocument(ctx, target.EnvironmentID, target.CollectionID, path, f)
	if err != nil {
		return err
	}
	s.logger.Info("added document", zap.String("file", path), zap.String("document_id", accepted.DocumentID))
	return nil
}

func listDocuments(dir string) ([]string, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
