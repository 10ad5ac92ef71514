// Package chromemdb manages the chromem-go vector store holding the
// notebook's chunks.
package chromemdb

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/philippgille/chromem-go"
)

// Manager encapsulates the chromem-go database operations. All chunks live
// in a single collection; session scoping happens through metadata filters.
type Manager struct {
	db   *chromem.DB
	name string

	mu         sync.RWMutex
	collection *chromem.Collection
}

const compress = false

// NewManager opens (or creates) the vector database and its collection.
// inMemory is for tests; the server always persists to dbPath.
func NewManager(dbPath, collectionName string, inMemory bool) (*Manager, error) {
	var db *chromem.DB
	var err error
	if inMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dbPath, compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %v", err)
		}
	}

	collection, err := db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %v", err)
	}

	return &Manager{
		db:         db,
		name:       collectionName,
		collection: collection,
	}, nil
}

// Add stores documents carrying precomputed embeddings.
func (m *Manager) Add(ctx context.Context, docs []chromem.Document) error {
	m.mu.RLock()
	collection := m.collection
	m.mu.RUnlock()

	if err := collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %v", err)
	}
	return nil
}

// Query returns up to k nearest neighbours of embedding, restricted to
// documents whose metadata matches where (nil means unfiltered). k is
// clamped to the collection size; an empty collection yields no results and
// no error.
func (m *Manager) Query(ctx context.Context, embedding []float32, k int, where map[string]string) ([]chromem.Result, error) {
	m.mu.RLock()
	collection := m.collection
	m.mu.RUnlock()

	count := collection.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	results, err := collection.QueryEmbedding(ctx, embedding, k, where, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %v", err)
	}
	return results, nil
}

// Count reports how many documents the collection holds.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collection.Count()
}

// Reset drops and recreates the collection. Queries against the new
// collection behave as if nothing was ever ingested.
func (m *Manager) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.db.DeleteCollection(m.name); err != nil {
		return fmt.Errorf("failed to drop collection: %v", err)
	}
	collection, err := m.db.GetOrCreateCollection(m.name, nil, nil)
	if err != nil {
		return fmt.Errorf("failed to recreate collection: %v", err)
	}
	m.collection = collection
	return nil
}
