package schema

import (
	"strings"

	"github.com/verdantio/canopy/docstore"
)

// StorageType is a named schema: the fields an entity of that type carries,
// plus an optional single parent whose fields it inherits.
type StorageType struct {
	// Name is the storage type name, globally unique within a scope.
	Name string

	// IsList marks instances of this type as a repeating group.
	IsList bool

	// Extends names the parent storage type, or "" / "none" for no parent.
	Extends string

	// Fields holds the fields declared directly on this type. Inherited
	// fields are never stored here; resolve them through the Registry.
	Fields map[string]Field

	// Exists reports whether the type was found in the store. GetType
	// returns a placeholder with Exists=false for unknown names.
	Exists bool
}

// HasParent reports whether Extends names a real parent. An empty name,
// "none" (case-insensitive) and the type's own name all mean no parent;
// the last guards against accidental self-reference.
func (t *StorageType) HasParent() bool {
	if t.Extends == "" || strings.EqualFold(t.Extends, "none") {
		return false
	}
	return !strings.EqualFold(t.Extends, t.Name)
}

// OwnFields returns a copy of the type's declared fields.
func (t *StorageType) OwnFields() map[string]Field {
	out := make(map[string]Field, len(t.Fields))
	for name, f := range t.Fields {
		out[name] = f
	}
	return out
}

// toFields serializes the type for storage. Only the declared fields are
// persisted, never the resolved set.
func (t *StorageType) toFields() docstore.Fields {
	fields := make(map[string]any, len(t.Fields))
	for name, f := range t.Fields {
		fields[name] = f.toMap()
	}
	return docstore.Fields{
		"storageName": t.Name,
		"isList":      t.IsList,
		"extends":     t.Extends,
		"fields":      fields,
	}
}

// typeFromFields rebuilds a storage type from its stored form.
func typeFromFields(name string, doc docstore.Fields) *StorageType {
	t := &StorageType{
		Name:    name,
		IsList:  asBool(doc["isList"]),
		Extends: asString(doc["extends"]),
		Fields:  make(map[string]Field),
		Exists:  true,
	}
	if stored, ok := doc["fields"].(map[string]any); ok {
		for fieldName, raw := range stored {
			if m, ok := raw.(map[string]any); ok {
				f := fieldFromMap(m)
				if f.Name == "" {
					f.Name = fieldName
				}
				t.Fields[fieldName] = f
			}
		}
	}
	return t
}
