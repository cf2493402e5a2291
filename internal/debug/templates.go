// Package debug exposes read-only introspection views of the deployed
// template assets, the compiled route table, and recorded defects. It is
// mounted only when explicitly enabled and never in production; nothing
// here touches the routing/normalization hot path or performs writes.
package debug

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"
)

// Asset is one template loaded at startup, addressed by logical name
// (the file name without extension).
type Asset struct {
	Name string
	Data []byte
}

// Registry holds the template assets loaded at startup. Immutable after
// construction.
type Registry struct {
	assets map[string]Asset
}

// templateExtensions are the file types loaded from the templates
// directory.
var templateExtensions = map[string]bool{
	".html": true,
	".htm":  true,
	".tmpl": true,
}

// LoadDir reads every template file in dir into an immutable registry.
// A missing or empty directory yields an empty registry, not an error:
// the debug surface must still answer.
func LoadDir(dir string) (*Registry, error) {
	reg := &Registry{assets: make(map[string]Asset)}
	if dir == "" {
		return reg, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return reg, nil
		}
		return nil, fmt.Errorf("read templates dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !templateExtensions[ext] {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", entry.Name(), err)
		}
		name := strings.TrimSuffix(entry.Name(), ext)
		reg.assets[name] = Asset{Name: name, Data: data}
	}

	return reg, nil
}

// Names returns the logical names of all loaded assets, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.assets))
	for name := range r.assets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the asset with the given logical name.
func (r *Registry) Get(name string) (Asset, bool) {
	a, ok := r.assets[name]
	return a, ok
}

// ManifestEntry describes one deployed asset.
type ManifestEntry struct {
	Name   string `json:"name"`
	Size   int    `json:"size"`
	SHA256 string `json:"sha256"`
}

// Manifest returns size and content hash for every asset, sorted by
// name, so an operator can confirm what is deployed.
func (r *Registry) Manifest() []ManifestEntry {
	entries := make([]ManifestEntry, 0, len(r.assets))
	for _, name := range r.Names() {
		a := r.assets[name]
		sum := sha256.Sum256(a.Data)
		entries = append(entries, ManifestEntry{
			Name:   a.Name,
			Size:   len(a.Data),
			SHA256: hex.EncodeToString(sum[:]),
		})
	}
	return entries
}

// Validation is the result of basic well-formedness checks on one asset.
type Validation struct {
	Name                 string   `json:"name"`
	Size                 int      `json:"size"`
	NonEmpty             bool     `json:"nonEmpty"`
	ValidUTF8            bool     `json:"validUtf8"`
	BalancedPlaceholders bool     `json:"balancedPlaceholders"`
	Issues               []string `json:"issues,omitempty"`
}

// Validate runs the well-formedness checks for one asset: non-empty,
// valid UTF-8, and matched {{ }} placeholder delimiters.
func (r *Registry) Validate(name string) (Validation, bool) {
	a, ok := r.assets[name]
	if !ok {
		return Validation{}, false
	}

	v := Validation{
		Name:                 a.Name,
		Size:                 len(a.Data),
		NonEmpty:             len(strings.TrimSpace(string(a.Data))) > 0,
		ValidUTF8:            utf8.Valid(a.Data),
		BalancedPlaceholders: balancedPlaceholders(string(a.Data)),
	}
	if !v.NonEmpty {
		v.Issues = append(v.Issues, "template is empty")
	}
	if !v.ValidUTF8 {
		v.Issues = append(v.Issues, "template contains invalid UTF-8")
	}
	if !v.BalancedPlaceholders {
		v.Issues = append(v.Issues, "unbalanced {{ }} placeholder delimiters")
	}
	return v, true
}

func balancedPlaceholders(s string) bool {
	return strings.Count(s, "{{") == strings.Count(s, "}}")
}
