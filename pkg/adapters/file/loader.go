package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/journey/pkg/domain"
	"github.com/aretw0/journey/pkg/schema"
)

// Loader implements ports.WorkflowLoader over a directory of definition files
// (*.yaml, *.yml, *.json). A workflow's ID is its declared id, or the file
// name without extension when the document has none.
// Files are read on every call so edits are picked up without a restart.
type Loader struct {
	Dir string
}

// NewLoader creates a loader rooted at dir.
func NewLoader(dir string) *Loader {
	return &Loader{Dir: dir}
}

type entry struct {
	path   string
	format schema.Format
}

func (l *Loader) scan() (map[string]entry, error) {
	files, err := os.ReadDir(l.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow directory: %w", err)
	}

	out := make(map[string]entry)
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		format, ok := schema.FormatFromPath(f.Name())
		if !ok {
			continue
		}
		id := strings.TrimSuffix(f.Name(), filepath.Ext(f.Name()))
		if _, dup := out[id]; dup {
			continue
		}
		out[id] = entry{path: filepath.Join(l.Dir, f.Name()), format: format}
	}
	return out, nil
}

// LoadFile parses a single workflow definition file.
func LoadFile(path string) (*domain.Workflow, error) {
	format, ok := schema.FormatFromPath(path)
	if !ok {
		return nil, fmt.Errorf("unsupported workflow file %q: expected .yaml, .yml or .json", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	wf, err := schema.Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if wf.ID == "" {
		base := filepath.Base(path)
		wf.ID = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return wf, nil
}

// Load parses the workflow stored under id. It first tries the file named
// after id, then falls back to a file whose document declares that id.
func (l *Loader) Load(ctx context.Context, id string) (*domain.Workflow, error) {
	entries, err := l.scan()
	if err != nil {
		return nil, err
	}
	if e, ok := entries[id]; ok {
		if wf, err := LoadFile(e.path); err != nil || wf.ID == id {
			return wf, err
		}
	}

	for _, name := range sortedKeys(entries) {
		wf, err := LoadFile(entries[name].path)
		if err != nil {
			continue
		}
		if wf.ID == id {
			return wf, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrWorkflowNotFound, id)
}

// List returns the IDs of every parseable workflow in the directory.
func (l *Loader) List(ctx context.Context) ([]string, error) {
	entries, err := l.scan()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(entries))
	ids := make([]string, 0, len(entries))
	for _, name := range sortedKeys(entries) {
		wf, err := LoadFile(entries[name].path)
		if err != nil || seen[wf.ID] {
			continue
		}
		seen[wf.ID] = true
		ids = append(ids, wf.ID)
	}
	sort.Strings(ids)
	return ids, nil
}

func sortedKeys(m map[string]entry) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
