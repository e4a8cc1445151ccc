// Package file provides file-based persistence for templates, executions and
// variables. Entities live as one JSON document per file under a root
// directory; suitable for development and single-instance deployments.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/docuflow/docuflow/pkg/persistence"
)

// Persistence implements persistence.Persistence on the local file system.
type Persistence struct {
	root string

	templates      *TemplateRepository
	executions     *ExecutionRepository
	nodeExecutions *NodeExecutionRepository
	variables      *VariableRepository
}

// NewPersistence creates file persistence rooted at the given directory.
// A file:// prefix is stripped so storage URLs can be passed directly.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:           cleanRoot,
		templates:      &TemplateRepository{store: newStore(cleanRoot, "templates")},
		executions:     &ExecutionRepository{store: newStore(cleanRoot, "executions")},
		nodeExecutions: &NodeExecutionRepository{store: newStore(cleanRoot, "node_executions")},
		variables:      &VariableRepository{store: newStore(cleanRoot, "variables")},
	}
}

func (fp *Persistence) TemplateRepository() persistence.TemplateRepository {
	return fp.templates
}

func (fp *Persistence) ExecutionRepository() persistence.ExecutionRepository {
	return fp.executions
}

func (fp *Persistence) NodeExecutionRepository() persistence.NodeExecutionRepository {
	return fp.nodeExecutions
}

func (fp *Persistence) VariableRepository() persistence.VariableRepository {
	return fp.variables
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close is a no-op for file persistence.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// store serializes one entity kind as JSON files inside a subdirectory. A
// single mutex guards read-modify-write cycles within this process.
type store struct {
	dir string
	mu  sync.RWMutex
}

func newStore(root, kind string) *store {
	return &store{dir: filepath.Join(root, kind)}
}

func (s *store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *store) read(id string, out any) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, err := os.ReadFile(s.path(id))
	if os.IsNotExist(err) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("corrupt record %s: %w", id, err)
	}

	return true, nil
}

func (s *store) write(id string, entity any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}

	raw, err := json.MarshalIndent(entity, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.path(id), raw, 0o600)
}

func (s *store) remove(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(id))
	if os.IsNotExist(err) {
		return false, nil
	}

	return err == nil, err
}

// ids lists every stored entity id.
func (s *store) ids() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(entries))

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}

		out = append(out, strings.TrimSuffix(name, ".json"))
	}

	return out, nil
}
