package docstore

// Scope fixes the path conventions for one tenant/application pair.
//
// The stored layout is shared with existing data, so the shapes below must
// not change:
//
//	schema documents   <SchemaCollection>/<tenant>/<application>/<storageName>
//	root entities      <EntityCollection>/<tenant>/<application>/<storageName>/<id>
//	nested entities    <parentPath>/<groupFieldName>/<id>
//	counters           <CounterCollection>/<tenant>/<application>/<storageName>
//	index entries      <IndexCollection>/<tenant>/<shard>/<id>
type Scope struct {
	// Tenant is the tenant segment present in every path.
	Tenant string

	// Application is the application segment for schema, entity and
	// counter paths. Index paths are tenant-wide and do not carry it.
	Application string

	// SchemaCollection is the root collection for storage type documents.
	// Default: "StorageType"
	SchemaCollection string

	// EntityCollection is the root collection for entity documents.
	// Default: "Data"
	EntityCollection string

	// CounterCollection is the root collection for counter documents.
	// Default: "DataNumber"
	CounterCollection string

	// IndexCollection is the root collection for lookup entries.
	// Default: "DataNumberLookup"
	IndexCollection string

	// DefaultShard receives lookup entries whose ID carries no type prefix.
	// Default: "DNL_Default"
	DefaultShard string
}

// NewScope returns a Scope for tenant/application with default collections.
func NewScope(tenant, application string) Scope {
	s := Scope{Tenant: tenant, Application: application}
	s.Validate()
	return s
}

// Validate fills zero-valued collection names with their defaults.
func (s *Scope) Validate() {
	if s.SchemaCollection == "" {
		s.SchemaCollection = "StorageType"
	}
	if s.EntityCollection == "" {
		s.EntityCollection = "Data"
	}
	if s.CounterCollection == "" {
		s.CounterCollection = "DataNumber"
	}
	if s.IndexCollection == "" {
		s.IndexCollection = "DataNumberLookup"
	}
	if s.DefaultShard == "" {
		s.DefaultShard = "DNL_Default"
	}
}

// SchemaCollectionPath returns the collection holding this scope's storage
// type documents.
func (s Scope) SchemaCollectionPath() string {
	return JoinPath(s.SchemaCollection, s.Tenant, s.Application)
}

// SchemaPath returns the document path for a storage type.
func (s Scope) SchemaPath(storageName string) string {
	return JoinPath(s.SchemaCollectionPath(), storageName)
}

// EntityCollectionPath returns the root collection for entities of a type.
func (s Scope) EntityCollectionPath(storageName string) string {
	return JoinPath(s.EntityCollection, s.Tenant, s.Application, storageName)
}

// CounterPath returns the document path for a type's counter.
func (s Scope) CounterPath(storageName string) string {
	return JoinPath(s.CounterCollection, s.Tenant, s.Application, storageName)
}

// IndexShardPath returns the collection holding one shard of the lookup index.
func (s Scope) IndexShardPath(shard string) string {
	return JoinPath(s.IndexCollection, s.Tenant, shard)
}

// IndexEntryPath returns the document path for one lookup entry.
func (s Scope) IndexEntryPath(shard, id string) string {
	return JoinPath(s.IndexCollection, s.Tenant, shard, id)
}
