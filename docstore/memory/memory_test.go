package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/verdantio/canopy/docstore"
	"github.com/verdantio/canopy/docstore/memory"
)

// --- Document CRUD Tests ---

func TestCreateGet(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	err := s.Create(ctx, "Data/acme/app/Widget/Widget-100", docstore.Fields{"name": "bolt"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	fields, ok, err := s.Get(ctx, "Data/acme/app/Widget/Widget-100")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !ok {
		t.Fatal("expected document to exist")
	}
	if fields["name"] != "bolt" {
		t.Errorf("expected name 'bolt', got %v", fields["name"])
	}
}

func TestCreate_Duplicate(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	if err := s.Create(ctx, "a/b", docstore.Fields{}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	err := s.Create(ctx, "a/b", docstore.Fields{})
	if !errors.Is(err, docstore.ErrExists) {
		t.Errorf("expected ErrExists, got %v", err)
	}
}

func TestGet_Missing(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	_, ok, err := s.Get(ctx, "a/missing")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if ok {
		t.Error("expected document to be absent")
	}
}

func TestUpdate_MergesFields(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	if err := s.Set(ctx, "a/b", docstore.Fields{"x": 1, "y": 2}); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := s.Update(ctx, "a/b", docstore.Fields{"y": 3}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	fields, _, _ := s.Get(ctx, "a/b")
	if fields["x"] != 1 || fields["y"] != 3 {
		t.Errorf("expected x=1 y=3, got %v", fields)
	}
}

func TestUpdate_Missing(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	err := s.Update(ctx, "a/missing", docstore.Fields{"x": 1})
	if !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete_MissingIsNoop(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	if err := s.Delete(ctx, "a/missing"); err != nil {
		t.Errorf("expected no-op delete, got %v", err)
	}
}

func TestGet_CopiesFields(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	if err := s.Set(ctx, "a/b", docstore.Fields{"x": 1}); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	fields, _, _ := s.Get(ctx, "a/b")
	fields["x"] = 99

	again, _, _ := s.Get(ctx, "a/b")
	if again["x"] != 1 {
		t.Errorf("stored document was mutated through a returned copy: %v", again["x"])
	}
}

// --- Listing Tests ---

func TestListDocuments(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	s.Set(ctx, "Data/acme/app/Widget/Widget-101", docstore.Fields{"n": 1})
	s.Set(ctx, "Data/acme/app/Widget/Widget-100", docstore.Fields{"n": 2})
	s.Set(ctx, "Data/acme/app/Gadget/Gadget-100", docstore.Fields{"n": 3})
	// Nested documents are not direct members of the collection.
	s.Set(ctx, "Data/acme/app/Widget/Widget-100/parts/Part-100", docstore.Fields{"n": 4})

	docs, err := s.ListDocuments(ctx, "Data/acme/app/Widget")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0].Path != "Data/acme/app/Widget/Widget-100" {
		t.Errorf("expected sorted paths, got %q first", docs[0].Path)
	}
}

func TestListChildCollections(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	s.Set(ctx, "Data/acme/app/Widget/Widget-100", docstore.Fields{})
	s.Set(ctx, "Data/acme/app/Widget/Widget-100/parts/Part-100", docstore.Fields{})
	s.Set(ctx, "Data/acme/app/Widget/Widget-100/notes/Note-100", docstore.Fields{})
	s.Set(ctx, "Data/acme/app/Widget/Widget-100/parts/Part-100/tags/Tag-100", docstore.Fields{})

	names, err := s.ListChildCollections(ctx, "Data/acme/app/Widget/Widget-100")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	expected := []string{"notes", "parts"}
	if len(names) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, names)
	}
	for i := range expected {
		if names[i] != expected[i] {
			t.Errorf("expected %v, got %v", expected, names)
		}
	}
}

// --- Query Tests ---

func TestQuery_Equality(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	s.Set(ctx, "c/a", docstore.Fields{"kind": "x", "n": 1})
	s.Set(ctx, "c/b", docstore.Fields{"kind": "y", "n": 2})
	s.Set(ctx, "c/c", docstore.Fields{"kind": "x", "n": 3})

	docs, err := s.Query(ctx, "c", []docstore.Filter{docstore.Eq("kind", "x")})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("expected 2 matches, got %d", len(docs))
	}
}

func TestQuery_Comparison(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	s.Set(ctx, "c/a", docstore.Fields{"n": 1})
	s.Set(ctx, "c/b", docstore.Fields{"n": 5})
	s.Set(ctx, "c/c", docstore.Fields{"n": 10})

	docs, err := s.Query(ctx, "c", []docstore.Filter{{Field: "n", Op: ">=", Value: 5}})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("expected 2 matches, got %d", len(docs))
	}
}

func TestQuery_BadOperator(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	s.Set(ctx, "c/a", docstore.Fields{"n": 1})

	_, err := s.Query(ctx, "c", []docstore.Filter{{Field: "n", Op: "!=", Value: 1}})
	if !errors.Is(err, docstore.ErrBadFilter) {
		t.Errorf("expected ErrBadFilter, got %v", err)
	}
}

func TestCollectionGroupQuery(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	// Same collection name at different depths and under different parents.
	s.Set(ctx, "Data/acme/app/Widget/Widget-100/parts/Part-100", docstore.Fields{"kind": "bolt"})
	s.Set(ctx, "Data/acme/app/Gadget/Gadget-100/parts/Part-101", docstore.Fields{"kind": "bolt"})
	s.Set(ctx, "Data/acme/app/Gadget/Gadget-100/parts/Part-102", docstore.Fields{"kind": "nut"})
	s.Set(ctx, "Data/acme/app/Widget/Widget-100", docstore.Fields{"kind": "bolt"})

	docs, err := s.CollectionGroupQuery(ctx, "parts", []docstore.Filter{docstore.Eq("kind", "bolt")})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("expected 2 matches across parents, got %d", len(docs))
	}
}
