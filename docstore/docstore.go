// Package docstore keeps submitted document text by id. The core router never
// touches extraction or truncation; both happen at this boundary.
package docstore

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/uptrace/bun"
)

var (
	ErrNotFound   = errors.New("document not found")
	ErrInvalidDoc = errors.New("document id is empty")
)

// DefaultMaxChars caps stored document text; matches the upstream prompt budget.
const DefaultMaxChars = 28000

// Document is one submitted document, already reduced to plain text.
type Document struct {
	bun.BaseModel `bun:"table:documents,alias:d" json:"-"`

	ID        string    `bun:"id,pk" json:"doc_id"`
	Name      string    `bun:"name,notnull" json:"name"`
	Text      string    `bun:"text,notnull" json:"text"`
	Chars     int       `bun:"chars,notnull" json:"chars"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

// Store is the persistence contract for submitted documents.
type Store interface {
	Put(ctx context.Context, doc *Document) error
	Get(ctx context.Context, id string) (*Document, error)
	Delete(ctx context.Context, id string) error
}

// Truncate clamps document text to max characters. Truncation happens here,
// never inside the core.
func Truncate(text string, max int) string {
	if max <= 0 {
		max = DefaultMaxChars
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}

// MemoryStore is the zero-config document store.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]Document
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]Document)}
}

func (m *MemoryStore) Put(_ context.Context, doc *Document) error {
	if doc == nil || strings.TrimSpace(doc.ID) == "" {
		return ErrInvalidDoc
	}
	m.mu.Lock()
	m.docs[doc.ID] = *doc
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Document, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrInvalidDoc
	}
	m.mu.RLock()
	doc, ok := m.docs[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return &doc, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.docs, id)
	m.mu.Unlock()
	return nil
}
