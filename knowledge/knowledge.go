// Package knowledge contains knowledge source implementations backing
// model-based agents. A Source holds tenant-scoped documents agents can
// search to ground their instructions in domain data.
//
// Rationale: keeps retrieval pluggable; the in-memory source below suits
// tests and demos, while vector databases or embeddings indexes can be added
// behind the same interface without dependency cycles.
package knowledge

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/automesh/core"
)

// Document is one retrievable unit of knowledge.
type Document struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// SearchResult pairs a matched document with its relevance score.
type SearchResult struct {
	Document Document `json:"document"`
	Score    float64  `json:"score"`
}

// Source is a searchable, tenant-scoped document collection.
type Source interface {
	core.Component

	// Store adds a document for a tenant and returns its identifier.
	Store(ctx context.Context, tenantID, content string, metadata map[string]any) (string, error)

	// Search returns up to limit documents of a tenant matching the query.
	Search(ctx context.Context, tenantID, query string, limit int) ([]SearchResult, error)

	// Delete removes a document by identifier.
	Delete(ctx context.Context, tenantID, id string) error
}

// InMemorySource is a naive process-local Source.
//
// Search is a linear scan with case-insensitive substring matching assigning
// a constant score of 1.0 to every hit. Suitable only for tests and demos;
// swap for a vector index for production retrieval.
type InMemorySource struct {
	name string

	mu   sync.RWMutex
	docs map[string]map[string]Document // tenantID -> docID -> document
	seq  int
}

// NewInMemorySource creates a new in-memory knowledge source.
func NewInMemorySource(name string) *InMemorySource {
	return &InMemorySource{
		name: name,
		docs: make(map[string]map[string]Document),
	}
}

// Name implements core.Component.
func (s *InMemorySource) Name() string { return s.name }

// Description implements core.Component.
func (s *InMemorySource) Description() string {
	return "In-memory substring-matching knowledge source."
}

// Store appends a new document, generating a simple incremental id.
func (s *InMemorySource) Store(ctx context.Context, tenantID, content string, metadata map[string]any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.docs[tenantID]; !exists {
		s.docs[tenantID] = make(map[string]Document)
	}
	s.seq++
	id := fmt.Sprintf("doc_%d", s.seq)
	s.docs[tenantID][id] = Document{ID: id, Content: content, Metadata: metadata}

	return id, nil
}

// Search performs a case-insensitive substring match over a tenant's
// documents. Results are returned in unspecified order up to limit; every
// hit scores 1.0.
func (s *InMemorySource) Search(ctx context.Context, tenantID, query string, limit int) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tenantDocs, exists := s.docs[tenantID]
	if !exists {
		return []SearchResult{}, nil
	}

	needle := strings.ToLower(query)
	results := make([]SearchResult, 0, limit)
	for _, doc := range tenantDocs {
		if limit > 0 && len(results) >= limit {
			break
		}
		if query == "" || strings.Contains(strings.ToLower(doc.Content), needle) {
			results = append(results, SearchResult{Document: doc, Score: 1.0})
		}
	}

	return results, nil
}

// Delete removes a document by id.
func (s *InMemorySource) Delete(ctx context.Context, tenantID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tenantDocs, exists := s.docs[tenantID]
	if !exists {
		return fmt.Errorf("document %s: %w", id, core.ErrNotFound)
	}
	if _, exists := tenantDocs[id]; !exists {
		return fmt.Errorf("document %s: %w", id, core.ErrNotFound)
	}
	delete(tenantDocs, id)

	return nil
}

var _ Source = (*InMemorySource)(nil)
