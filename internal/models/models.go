package models

import (
	"encoding/json"
	"time"
)

// Entity represents a node in the knowledge graph.
type Entity struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Metadata  Metadata  `json:"metadata"`
	Tags      Tags      `json:"tags"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Relationship represents a directed, typed edge between two entities.
type Relationship struct {
	ID        int64     `json:"id"`
	SourceID  int64     `json:"source_id"`
	TargetID  int64     `json:"target_id"`
	Type      string    `json:"type"`
	Metadata  Metadata  `json:"metadata"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Observation represents a typed fact owned by one entity.
type Observation struct {
	ID              int64           `json:"id"`
	EntityID        int64           `json:"entity_id"`
	Type            string          `json:"type"`
	ObservationType string          `json:"observation_type"`
	Value           json.RawMessage `json:"value"`
	Metadata        Metadata        `json:"metadata"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Provider is an infrastructure provider in the catalog.
type Provider struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Version   string    `json:"version"`
	Metadata  Metadata  `json:"metadata"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ResourceArgument describes one argument of a provider resource type.
type ResourceArgument struct {
	ID           int64           `json:"id"`
	ProviderID   int64           `json:"provider_id"`
	Name         string          `json:"name"`
	ResourceType string          `json:"resource_type"`
	Schema       json.RawMessage `json:"schema"`
	Metadata     Metadata        `json:"metadata"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Collection is an Ansible collection in the catalog.
type Collection struct {
	ID        int64     `json:"id"`
	Namespace string    `json:"namespace"`
	Name      string    `json:"name"`
	Version   string    `json:"version"`
	Metadata  Metadata  `json:"metadata"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ModuleParameter describes one parameter of a module in a collection.
type ModuleParameter struct {
	ID           int64           `json:"id"`
	CollectionID int64           `json:"collection_id"`
	ModuleName   string          `json:"module_name"`
	Name         string          `json:"name"`
	Schema       json.RawMessage `json:"schema"`
	Metadata     Metadata        `json:"metadata"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// EntityPage is one page of a paginated entity listing.
type EntityPage struct {
	Items   []Entity `json:"items"`
	Page    int      `json:"page"`
	PerPage int      `json:"per_page"`
	Total   int      `json:"total"`
	Pages   int      `json:"pages"`
}

// EntityDeletion reports what a cascading entity delete removed.
type EntityDeletion struct {
	EntityID      int64 `json:"entity_id"`
	Relationships int64 `json:"relationships_deleted"`
	Observations  int64 `json:"observations_deleted"`
}

// ChildDeletion reports what a catalog owner delete removed.
type ChildDeletion struct {
	ID       int64 `json:"id"`
	Children int64 `json:"children_deleted"`
}
