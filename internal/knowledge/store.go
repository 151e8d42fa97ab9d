// Package knowledge holds the static support knowledge base and ranks its
// documents against ticket text.
package knowledge

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/linnemanlabs/helpdesk/internal/ticket"
)

//go:embed catalog.yaml
var builtinCatalog []byte

// catalogFile is the on-disk YAML shape.
type catalogFile struct {
	Categories map[string][]ticket.Document `yaml:"categories"`
}

// Store maps categories to their documents in catalog order. It is read-only
// after construction and safe for concurrent use.
type Store struct {
	docs map[string][]ticket.Document // lowercase category -> documents
}

// Default returns a Store over the built-in catalog.
func Default() *Store {
	s, err := Parse(builtinCatalog)
	if err != nil {
		panic(fmt.Sprintf("knowledge: built-in catalog: %v", err))
	}
	return s
}

// Load reads a YAML catalog from path. An empty path selects the built-in catalog.
func Load(path string) (*Store, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is operator config
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse builds a Store from YAML catalog data.
func Parse(data []byte) (*Store, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return New(f.Categories)
}

// New builds a Store from category -> documents. Category keys are matched
// case-insensitively and keywords are lowercased.
func New(categories map[string][]ticket.Document) (*Store, error) {
	s := &Store{docs: make(map[string][]ticket.Document, len(categories))}
	for name, docs := range categories {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, dup := s.docs[key]; dup {
			return nil, fmt.Errorf("duplicate category %q", name)
		}
		out := make([]ticket.Document, 0, len(docs))
		for i, d := range docs {
			if strings.TrimSpace(d.Title) == "" {
				return nil, fmt.Errorf("category %q document %d: title is required", name, i)
			}
			kw := make([]string, 0, len(d.Keywords))
			for _, k := range d.Keywords {
				kw = append(kw, strings.ToLower(strings.TrimSpace(k)))
			}
			out = append(out, ticket.Document{Title: d.Title, Content: d.Content, Keywords: kw})
		}
		s.docs[key] = out
	}
	return s, nil
}

// Lookup returns the documents for a category in catalog order. An unknown
// category yields an empty slice, not an error.
func (s *Store) Lookup(c ticket.Category) []ticket.Document {
	docs := s.docs[c.Key()]
	out := make([]ticket.Document, len(docs))
	copy(out, docs)
	return out
}

// Categories lists the enumerated categories that have at least one document.
func (s *Store) Categories() []ticket.Category {
	var out []ticket.Category
	for _, c := range ticket.Categories {
		if len(s.docs[c.Key()]) > 0 {
			out = append(out, c)
		}
	}
	return out
}

// Len returns the total number of documents.
func (s *Store) Len() int {
	n := 0
	for _, d := range s.docs {
		n += len(d)
	}
	return n
}
