// Package taxonomy maps the assistant's category keys onto catalog category
// identifiers. A Map is built once at startup and is read-only afterwards.
package taxonomy

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed taxonomy.yaml
var defaultTaxonomy []byte

// Entry is one category or subcategory of the catalog
type Entry struct {
	Key        string `yaml:"key" json:"key"`
	Name       string `yaml:"name" json:"name"`
	CategoryID string `yaml:"category_id" json:"category_id"`
	ParentID   string `yaml:"parent_id,omitempty" json:"parent_id,omitempty"`
}

// Map is an immutable lookup table of taxonomy entries
type Map struct {
	entries map[string]Entry
	byID    map[string]string
	order   []string
}

type document struct {
	Entries []Entry `yaml:"entries"`
}

// Load reads the taxonomy from path, or the embedded default when path is empty
func Load(path string) (*Map, error) {
	if path == "" {
		return Parse(defaultTaxonomy)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read taxonomy file: %w", err)
	}
	return Parse(data)
}

// Default returns the embedded taxonomy
func Default() *Map {
	m, err := Parse(defaultTaxonomy)
	if err != nil {
		panic(fmt.Sprintf("embedded taxonomy is invalid: %v", err))
	}
	return m
}

// Parse builds a Map from YAML and validates keys, ids and parent links
func Parse(data []byte) (*Map, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse taxonomy: %w", err)
	}
	if len(doc.Entries) == 0 {
		return nil, fmt.Errorf("taxonomy has no entries")
	}

	m := &Map{
		entries: make(map[string]Entry, len(doc.Entries)),
		byID:    make(map[string]string, len(doc.Entries)),
		order:   make([]string, 0, len(doc.Entries)),
	}

	for _, e := range doc.Entries {
		e.Key = strings.TrimSpace(e.Key)
		e.CategoryID = strings.TrimSpace(e.CategoryID)
		if e.Key == "" || e.CategoryID == "" {
			return nil, fmt.Errorf("taxonomy entry %q: key and category_id are required", e.Name)
		}
		if _, dup := m.entries[e.Key]; dup {
			return nil, fmt.Errorf("taxonomy key %q is defined twice", e.Key)
		}
		if other, dup := m.byID[e.CategoryID]; dup {
			return nil, fmt.Errorf("taxonomy category id %q is shared by %q and %q", e.CategoryID, other, e.Key)
		}
		m.entries[e.Key] = e
		m.byID[e.CategoryID] = e.Key
		m.order = append(m.order, e.Key)
	}

	for _, key := range m.order {
		parent := m.entries[key].ParentID
		if parent == "" {
			continue
		}
		if _, ok := m.byID[parent]; !ok {
			return nil, fmt.Errorf("taxonomy key %q references unknown parent %q", key, parent)
		}
	}

	return m, nil
}

// Lookup returns the entry for key
func (m *Map) Lookup(key string) (Entry, bool) {
	e, ok := m.entries[key]
	return e, ok
}

// KeyForCategory resolves a catalog category id back to its taxonomy key
func (m *Map) KeyForCategory(categoryID string) (string, bool) {
	key, ok := m.byID[categoryID]
	return key, ok
}

// Require reports every key that does not resolve to an entry
func (m *Map) Require(keys ...string) error {
	var missing []string
	for _, key := range keys {
		if _, ok := m.entries[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("taxonomy is missing keys: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Entries returns all entries in file order
func (m *Map) Entries() []Entry {
	out := make([]Entry, 0, len(m.order))
	for _, key := range m.order {
		out = append(out, m.entries[key])
	}
	return out
}
