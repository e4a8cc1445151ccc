// Package registry maps node type names to factories and exposes the node
// schema catalog.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/docuflow/docuflow/pkg/log"
	"github.com/docuflow/docuflow/pkg/models"
	"github.com/docuflow/docuflow/pkg/nodes"
)

// ErrNodeTypeNotFound is returned by Create and Schema for unknown types.
var ErrNodeTypeNotFound = errors.New("node type not found")

// RegistrationError reports a factory that cannot be registered.
type RegistrationError struct {
	NodeType string
	Reason   string
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("cannot register node type %q: %s", e.NodeType, e.Reason)
}

// Registry is the threadsafe catalog of available node types.
type Registry struct {
	logger    *slog.Logger
	mu        sync.RWMutex
	factories map[string]nodes.Factory
}

func NewRegistry() *Registry {
	return &Registry{
		logger:    log.WithModule("registry"),
		factories: make(map[string]nodes.Factory),
	}
}

// Register adds a factory to the catalog. Duplicate registrations are
// rejected so a later plugin cannot silently shadow a builtin.
func (r *Registry) Register(factory nodes.Factory) error {
	if factory == nil {
		return &RegistrationError{Reason: "nil factory"}
	}

	nodeType := factory.Type()
	if nodeType == "" {
		return &RegistrationError{Reason: "empty node type"}
	}

	if factory.Schema() == nil {
		return &RegistrationError{NodeType: nodeType, Reason: "factory reports no schema"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[nodeType]; exists {
		return &RegistrationError{NodeType: nodeType, Reason: "already registered"}
	}

	r.factories[nodeType] = factory
	r.logger.Debug("registered node type", "node_type", nodeType)

	return nil
}

// Create instantiates a node of the given type after validating its config
// block against the factory schema.
func (r *Registry) Create(ctx context.Context, nodeType, id string, config map[string]any) (nodes.Node, error) {
	r.mu.RLock()
	factory, ok := r.factories[nodeType]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeTypeNotFound, nodeType)
	}

	if err := validateConfig(factory.Schema(), config); err != nil {
		return nil, err
	}

	return factory.Create(ctx, id, config)
}

// Schema returns the schema of a single registered node type.
func (r *Registry) Schema(nodeType string) (*models.NodeSchema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[nodeType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeTypeNotFound, nodeType)
	}

	return factory.Schema(), nil
}

// AllSchemas returns every registered schema sorted by type name.
func (r *Registry) AllSchemas() []*models.NodeSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.NodeSchema, 0, len(r.factories))
	for _, factory := range r.factories {
		out = append(out, factory.Schema())
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })

	return out
}

// Types returns the registered type names sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.factories))
	for nodeType := range r.factories {
		out = append(out, nodeType)
	}

	sort.Strings(out)

	return out
}

// validateConfig checks a node config map against the declared config schema.
// Binding blocks under "inputs" and the "name" override are engine-level keys
// and are stripped before validation.
func validateConfig(schema *models.NodeSchema, config map[string]any) error {
	if schema.ConfigSchema == nil {
		return nil
	}

	if config == nil {
		config = map[string]any{}
	}

	document := make(map[string]any, len(config))

	for k, v := range config {
		if k == "inputs" || k == "name" {
			continue
		}

		document[k] = v
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema.ConfigSchema),
		gojsonschema.NewGoLoader(document),
	)
	if err != nil {
		return fmt.Errorf("config schema validation: %w", err)
	}

	if !result.Valid() {
		reasons := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			reasons = append(reasons, desc.String())
		}

		return fmt.Errorf("invalid config for node type %s: %v", schema.Type, reasons)
	}

	return nil
}
