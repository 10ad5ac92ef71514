package chromemdb

import (
	"context"
	"fmt"
	"testing"

	"github.com/philippgille/chromem-go"
)

// unit vectors so cosine similarity is well defined
func vec(x, y float32) []float32 {
	return []float32{x, y}
}

func doc(id, content, sessionID string, embedding []float32) chromem.Document {
	return chromem.Document{
		ID:        id,
		Content:   content,
		Embedding: embedding,
		Metadata:  map[string]string{"session_id": sessionID, "filename": "f.txt", "type": "text"},
	}
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager("", "lumina_notebook", true)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func TestManager_AddAndQuery(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	if err := m.Add(ctx, []chromem.Document{doc("1", "hello", "s1", vec(1, 0))}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	results, err := m.Query(ctx, vec(1, 0), 4, nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Content != "hello" {
		t.Errorf("expected content 'hello', got %q", results[0].Content)
	}
}

func TestManager_QueryEmptyCollection(t *testing.T) {
	m := newTestManager(t)

	results, err := m.Query(context.Background(), vec(1, 0), 4, nil)
	if err != nil {
		t.Fatalf("empty collection must not error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestManager_QueryClampsK(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	if err := m.Add(ctx, []chromem.Document{
		doc("1", "one", "s1", vec(1, 0)),
		doc("2", "two", "s1", vec(0, 1)),
	}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	results, err := m.Query(ctx, vec(1, 0), 10, nil)
	if err != nil {
		t.Fatalf("Query with k above count must not error: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
}

func TestManager_SessionFilterIsolation(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	var docs []chromem.Document
	for i := 0; i < 4; i++ {
		session := "A"
		if i%2 == 1 {
			session = "B"
		}
		docs = append(docs, doc(fmt.Sprintf("%d", i), fmt.Sprintf("doc-%s-%d", session, i), session, vec(1, float32(i))))
	}
	if err := m.Add(ctx, docs); err != nil {
		t.Fatalf("Add: %v", err)
	}

	results, err := m.Query(ctx, vec(1, 0), 4, map[string]string{"session_id": "B"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected session B results")
	}
	for _, r := range results {
		if r.Metadata["session_id"] != "B" {
			t.Errorf("cross-session leak: got document from session %q", r.Metadata["session_id"])
		}
	}
}

func TestManager_Reset(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	if err := m.Add(ctx, []chromem.Document{doc("1", "hello", "s1", vec(1, 0))}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := m.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if m.Count() != 0 {
		t.Errorf("expected empty collection after reset, got %d documents", m.Count())
	}

	results, err := m.Query(ctx, vec(1, 0), 4, nil)
	if err != nil {
		t.Fatalf("Query after reset: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results after reset, got %d", len(results))
	}

	// the new collection must accept writes again
	if err := m.Add(ctx, []chromem.Document{doc("2", "fresh", "s1", vec(0, 1))}); err != nil {
		t.Fatalf("Add after reset: %v", err)
	}
}
