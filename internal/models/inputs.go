package models

import (
	"encoding/json"
	"time"
)

// Write inputs and list filters. Optional fields are pointers; a nil pointer
// leaves the stored value untouched on update and disables the filter on list.

type EntityInput struct {
	Name     string
	Type     string
	Metadata Metadata
	Tags     []string
}

type EntityUpdate struct {
	Name          *string
	MetadataPatch Metadata
	Tags          []string
	// ExpectedVersion, when set, must equal the stored version.
	ExpectedVersion *int64
}

type EntityFilter struct {
	Type         *string
	CreatedAfter *time.Time
	Page         int
	PerPage      int
}

type EntitySearch struct {
	Query  string
	Type   *string
	Limit  int
	Offset int
}

type RelationshipInput struct {
	SourceID int64
	TargetID int64
	Type     string
	Metadata Metadata
}

type RelationshipUpdate struct {
	Type          *string
	MetadataPatch Metadata
}

type RelationshipFilter struct {
	SourceID *int64
	TargetID *int64
	Type     *string
}

type ObservationInput struct {
	EntityID        int64
	Type            string
	ObservationType string
	Value           json.RawMessage
	Metadata        Metadata
}

type ObservationUpdate struct {
	Value         json.RawMessage
	MetadataPatch Metadata
}

type ObservationFilter struct {
	EntityID *int64
	Type     *string
}

type ProviderInput struct {
	Name     string
	Type     string
	Version  string
	Metadata Metadata
}

type ProviderUpdate struct {
	Name          *string
	Type          *string
	Version       *string
	MetadataPatch Metadata
}

type ProviderFilter struct {
	Type *string
}

type ResourceArgumentInput struct {
	ProviderID   int64
	Name         string
	ResourceType string
	Schema       json.RawMessage
	Metadata     Metadata
}

type ResourceArgumentUpdate struct {
	Name          *string
	ResourceType  *string
	Schema        json.RawMessage
	MetadataPatch Metadata
}

type ResourceArgumentFilter struct {
	ProviderID   *int64
	ResourceType *string
}

type CollectionInput struct {
	Namespace string
	Name      string
	Version   string
	Metadata  Metadata
}

type CollectionUpdate struct {
	Namespace     *string
	Name          *string
	Version       *string
	MetadataPatch Metadata
}

type CollectionFilter struct {
	Namespace *string
}

type ModuleParameterInput struct {
	CollectionID int64
	ModuleName   string
	Name         string
	Schema       json.RawMessage
	Metadata     Metadata
}

type ModuleParameterUpdate struct {
	ModuleName    *string
	Name          *string
	Schema        json.RawMessage
	MetadataPatch Metadata
}

type ModuleParameterFilter struct {
	CollectionID *int64
	ModuleName   *string
}
