package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/journey/pkg/domain"
	"github.com/aretw0/journey/pkg/schema"
)

// Loader implements ports.WorkflowLoader over an in-memory catalog.
type Loader struct {
	mu        sync.RWMutex
	workflows map[string]*domain.Workflow
}

// NewLoader creates a catalog holding the given workflows, keyed by their ID.
func NewLoader(workflows ...*domain.Workflow) (*Loader, error) {
	l := &Loader{workflows: make(map[string]*domain.Workflow, len(workflows))}
	for _, wf := range workflows {
		if err := l.Add(wf); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// NewFromDocuments parses raw YAML documents, keyed by workflow ID.
// A document without an id takes its key.
func NewFromDocuments(docs map[string]string) (*Loader, error) {
	l := &Loader{workflows: make(map[string]*domain.Workflow, len(docs))}
	for id, doc := range docs {
		wf, err := schema.ParseYAML([]byte(doc))
		if err != nil {
			return nil, fmt.Errorf("workflow %s: %w", id, err)
		}
		if wf.ID == "" {
			wf.ID = id
		}
		if err := l.Add(wf); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Add registers wf, replacing any workflow with the same ID.
func (l *Loader) Add(wf *domain.Workflow) error {
	if wf == nil || wf.ID == "" {
		return fmt.Errorf("workflow missing ID")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.workflows[wf.ID] = wf
	return nil
}

// Load returns the workflow registered under id.
func (l *Loader) Load(ctx context.Context, id string) (*domain.Workflow, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	wf, ok := l.workflows[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrWorkflowNotFound, id)
	}
	return wf, nil
}

// List returns all workflow IDs in deterministic order.
func (l *Loader) List(ctx context.Context) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	keys := make([]string, 0, len(l.workflows))
	for k := range l.workflows {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
