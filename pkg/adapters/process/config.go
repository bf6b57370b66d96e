// Package process exposes allow-listed local commands as delegated actions.
package process

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Tool is one allowed command.
type Tool struct {
	Name        string            `yaml:"name" json:"name"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
	Description string            `yaml:"description" json:"description"`
}

// ConfigFile represents the structure of tools.yaml.
type ConfigFile struct {
	Tools []Tool `yaml:"tools" json:"tools"`
}

// LoadTools reads a tools file (YAML or JSON). A missing file yields no tools.
// Entries without a name or command are rejected.
func LoadTools(path string) ([]Tool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read tools config: %w", err)
	}

	var cfg ConfigFile
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	for i, tool := range cfg.Tools {
		if tool.Name == "" || tool.Command == "" {
			return nil, fmt.Errorf("%s: tool %d needs a name and a command", path, i)
		}
	}
	return cfg.Tools, nil
}
