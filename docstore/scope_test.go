package docstore

import "testing"

// --- Scope Tests ---

func TestNewScope_Defaults(t *testing.T) {
	s := NewScope("acme", "inventory")

	if s.SchemaCollection != "StorageType" {
		t.Errorf("expected SchemaCollection 'StorageType', got %q", s.SchemaCollection)
	}
	if s.EntityCollection != "Data" {
		t.Errorf("expected EntityCollection 'Data', got %q", s.EntityCollection)
	}
	if s.CounterCollection != "DataNumber" {
		t.Errorf("expected CounterCollection 'DataNumber', got %q", s.CounterCollection)
	}
	if s.IndexCollection != "DataNumberLookup" {
		t.Errorf("expected IndexCollection 'DataNumberLookup', got %q", s.IndexCollection)
	}
	if s.DefaultShard != "DNL_Default" {
		t.Errorf("expected DefaultShard 'DNL_Default', got %q", s.DefaultShard)
	}
}

func TestScope_Paths(t *testing.T) {
	s := NewScope("acme", "inventory")

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"schema collection", s.SchemaCollectionPath(), "StorageType/acme/inventory"},
		{"schema document", s.SchemaPath("Widget"), "StorageType/acme/inventory/Widget"},
		{"entity collection", s.EntityCollectionPath("Widget"), "Data/acme/inventory/Widget"},
		{"counter document", s.CounterPath("Widget"), "DataNumber/acme/inventory/Widget"},
		{"index shard", s.IndexShardPath("DNL_Widget"), "DataNumberLookup/acme/DNL_Widget"},
		{"index entry", s.IndexEntryPath("DNL_Widget", "Widget-100"), "DataNumberLookup/acme/DNL_Widget/Widget-100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, tt.got)
			}
		})
	}
}

// --- Path Helper Tests ---

func TestJoinPath(t *testing.T) {
	if got := JoinPath("a", "b", "c"); got != "a/b/c" {
		t.Errorf("expected 'a/b/c', got %q", got)
	}
	if got := JoinPath("a", "", "c"); got != "a/c" {
		t.Errorf("expected 'a/c', got %q", got)
	}
}

func TestParentPath(t *testing.T) {
	if got := ParentPath("a/b/c"); got != "a/b" {
		t.Errorf("expected 'a/b', got %q", got)
	}
	if got := ParentPath("a"); got != "" {
		t.Errorf("expected empty parent, got %q", got)
	}
}

func TestLastSegment(t *testing.T) {
	if got := LastSegment("a/b/c"); got != "c" {
		t.Errorf("expected 'c', got %q", got)
	}
	if got := LastSegment("a"); got != "a" {
		t.Errorf("expected 'a', got %q", got)
	}
}
