package redmine

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// PathCatalog is the set of API paths described by a Redmine OpenAPI document.
// The zero value is an empty catalog.
type PathCatalog struct {
	paths map[string]any
}

type openAPIDocument struct {
	Paths map[string]any `yaml:"paths"`
}

// LoadPathCatalog reads an OpenAPI YAML file.
func LoadPathCatalog(path string) (*PathCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read OpenAPI spec: %w", err)
	}
	return ParsePathCatalog(data)
}

// ParsePathCatalog parses an OpenAPI YAML document.
func ParsePathCatalog(data []byte) (*PathCatalog, error) {
	var doc openAPIDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse OpenAPI spec: %w", err)
	}
	if doc.Paths == nil {
		doc.Paths = map[string]any{}
	}
	return &PathCatalog{paths: doc.Paths}, nil
}

// Len returns the number of paths.
func (c *PathCatalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.paths)
}

// Paths returns the path templates in sorted order.
func (c *PathCatalog) Paths() []string {
	if c == nil {
		return []string{}
	}
	out := make([]string, 0, len(c.paths))
	for p := range c.paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Info returns the OpenAPI path entry of every known template. Unknown templates are
// skipped.
func (c *PathCatalog) Info(templates []string) map[string]any {
	out := make(map[string]any, len(templates))
	if c == nil {
		return out
	}
	for _, t := range templates {
		if entry, ok := c.paths[t]; ok {
			out[t] = entry
		}
	}
	return out
}
