package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagnerlima/memory-cloud/infra-memory/internal/graph"
	"github.com/wagnerlima/memory-cloud/infra-memory/internal/models"
)

// --- Input types ---

type CreateEntityInput struct {
	Name     string         `json:"name" jsonschema:"Entity name"`
	Type     string         `json:"type" jsonschema:"Entity type (e.g., server, database, load_balancer)"`
	Metadata map[string]any `json:"metadata,omitempty" jsonschema:"Free-form metadata object"`
	Tags     []string       `json:"tags,omitempty" jsonschema:"Labels attached to the entity"`
}

type ListEntitiesInput struct {
	Type         string `json:"type,omitempty" jsonschema:"Only entities of this type"`
	CreatedAfter string `json:"created_after,omitempty" jsonschema:"Only entities created after this RFC 3339 timestamp"`
	Page         int    `json:"page,omitempty" jsonschema:"1-based page number (default 1)"`
	PerPage      int    `json:"per_page,omitempty" jsonschema:"Page size, 1 to 100 (default 20)"`
}

type UpdateEntityInput struct {
	ID              int64          `json:"id" jsonschema:"Entity id"`
	Name            *string        `json:"name,omitempty" jsonschema:"New name"`
	Metadata        map[string]any `json:"metadata,omitempty" jsonschema:"Keys merged into the stored metadata"`
	Tags            []string       `json:"tags,omitempty" jsonschema:"Replacement tag list"`
	ExpectedVersion *int64         `json:"expected_version,omitempty" jsonschema:"Reject the update unless the stored version matches"`
}

type SearchEntitiesInput struct {
	Query  string `json:"query" jsonschema:"Search terms matched as prefixes against names and types"`
	Type   string `json:"type,omitempty" jsonschema:"Only entities of this type"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Maximum results, 1 to 100 (default 20)"`
	Offset int    `json:"offset,omitempty" jsonschema:"Results to skip"`
}

type ExpandContextInput struct {
	EntityID            int64    `json:"entity_id" jsonschema:"Start entity id"`
	MaxDepth            int      `json:"max_depth" jsonschema:"Maximum hop count, 1 to 10"`
	RelationshipTypes   []string `json:"relationship_types,omitempty" jsonschema:"Only follow relationships of these types"`
	IncludeObservations bool     `json:"include_observations,omitempty" jsonschema:"Attach each entity's observations"`
}

type GetEntityContextInput struct {
	EntityID             int64    `json:"entity_id" jsonschema:"Entity id"`
	IncludeRelationships *bool    `json:"include_relationships,omitempty" jsonschema:"Include direct relationships (default true)"`
	IncludeObservations  *bool    `json:"include_observations,omitempty" jsonschema:"Include observations (default true)"`
	RelationshipTypes    []string `json:"relationship_types,omitempty" jsonschema:"Only relationships of these types"`
	ObservationTypes     []string `json:"observation_types,omitempty" jsonschema:"Only observations of these types"`
}

type CreateRelationshipInput struct {
	SourceID int64          `json:"source_id" jsonschema:"Source entity id"`
	TargetID int64          `json:"target_id" jsonschema:"Target entity id"`
	Type     string         `json:"type" jsonschema:"Relationship type (e.g., depends_on, runs_on, connects_to)"`
	Metadata map[string]any `json:"metadata,omitempty" jsonschema:"Free-form metadata object"`
}

type ListRelationshipsInput struct {
	SourceID *int64 `json:"source_id,omitempty" jsonschema:"Only relationships from this entity"`
	TargetID *int64 `json:"target_id,omitempty" jsonschema:"Only relationships to this entity"`
	Type     string `json:"type,omitempty" jsonschema:"Only relationships of this type"`
}

type UpdateRelationshipInput struct {
	ID       int64          `json:"id" jsonschema:"Relationship id"`
	Type     *string        `json:"type,omitempty" jsonschema:"New relationship type"`
	Metadata map[string]any `json:"metadata,omitempty" jsonschema:"Keys merged into the stored metadata"`
}

type CreateObservationInput struct {
	EntityID        int64          `json:"entity_id" jsonschema:"Entity the observation belongs to"`
	Type            string         `json:"type" jsonschema:"One of state, metric, event, configuration, dependency, security, performance, test"`
	ObservationType string         `json:"observation_type" jsonschema:"Free-form subtype (e.g., cpu_usage, health)"`
	Value           any            `json:"value" jsonschema:"Observed value, a JSON object or array"`
	Metadata        map[string]any `json:"metadata,omitempty" jsonschema:"Free-form metadata object"`
}

type ListObservationsInput struct {
	EntityID *int64 `json:"entity_id,omitempty" jsonschema:"Only observations of this entity"`
	Type     string `json:"type,omitempty" jsonschema:"Only observations of this type"`
}

type UpdateObservationInput struct {
	ID       int64          `json:"id" jsonschema:"Observation id"`
	Value    any            `json:"value,omitempty" jsonschema:"Replacement value, a JSON object or array"`
	Metadata map[string]any `json:"metadata,omitempty" jsonschema:"Keys merged into the stored metadata"`
}

func orTrue(v *bool) bool {
	return v == nil || *v
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// --- Entities ---

func (t *Tools) CreateEntity(ctx context.Context, _ *mcp.CallToolRequest, input CreateEntityInput) (*mcp.CallToolResult, any, error) {
	return t.call(ctx, "create_entity", func(ctx context.Context) (any, error) {
		return t.Service.CreateEntity(ctx, models.EntityInput{
			Name:     input.Name,
			Type:     input.Type,
			Metadata: input.Metadata,
			Tags:     input.Tags,
		})
	})
}

func (t *Tools) GetEntity(ctx context.Context, _ *mcp.CallToolRequest, input IDInput) (*mcp.CallToolResult, any, error) {
	return t.call(ctx, "get_entity", func(ctx context.Context) (any, error) {
		return t.Service.GetEntity(ctx, input.ID)
	})
}

func (t *Tools) ListEntities(ctx context.Context, _ *mcp.CallToolRequest, input ListEntitiesInput) (*mcp.CallToolResult, any, error) {
	return t.call(ctx, "list_entities", func(ctx context.Context) (any, error) {
		after, err := parseTime("created_after", input.CreatedAfter)
		if err != nil {
			return nil, err
		}
		return t.Service.ListEntities(ctx, models.EntityFilter{
			Type:         optional(input.Type),
			CreatedAfter: after,
			Page:         input.Page,
			PerPage:      input.PerPage,
		})
	})
}

func (t *Tools) UpdateEntity(ctx context.Context, _ *mcp.CallToolRequest, input UpdateEntityInput) (*mcp.CallToolResult, any, error) {
	return t.call(ctx, "update_entity", func(ctx context.Context) (any, error) {
		return t.Service.UpdateEntity(ctx, input.ID, models.EntityUpdate{
			Name:            input.Name,
			MetadataPatch:   input.Metadata,
			Tags:            input.Tags,
			ExpectedVersion: input.ExpectedVersion,
		})
	})
}

func (t *Tools) DeleteEntity(ctx context.Context, _ *mcp.CallToolRequest, input IDInput) (*mcp.CallToolResult, any, error) {
	return t.call(ctx, "delete_entity", func(ctx context.Context) (any, error) {
		return t.Service.DeleteEntity(ctx, input.ID)
	})
}

func (t *Tools) SearchEntities(ctx context.Context, _ *mcp.CallToolRequest, input SearchEntitiesInput) (*mcp.CallToolResult, any, error) {
	return t.call(ctx, "search_entities", func(ctx context.Context) (any, error) {
		return t.Service.SearchEntities(ctx, models.EntitySearch{
			Query:  input.Query,
			Type:   optional(input.Type),
			Limit:  input.Limit,
			Offset: input.Offset,
		})
	})
}

func (t *Tools) ExpandContext(ctx context.Context, _ *mcp.CallToolRequest, input ExpandContextInput) (*mcp.CallToolResult, any, error) {
	return t.call(ctx, "expand_context", func(ctx context.Context) (any, error) {
		return t.Service.Expand(ctx, graph.Request{
			EntityID:            input.EntityID,
			MaxDepth:            input.MaxDepth,
			RelationshipTypes:   input.RelationshipTypes,
			IncludeObservations: input.IncludeObservations,
		})
	})
}

func (t *Tools) GetEntityContext(ctx context.Context, _ *mcp.CallToolRequest, input GetEntityContextInput) (*mcp.CallToolResult, any, error) {
	return t.call(ctx, "get_entity_context", func(ctx context.Context) (any, error) {
		return t.Service.EntityContext(ctx, graph.ContextRequest{
			EntityID:             input.EntityID,
			IncludeRelationships: orTrue(input.IncludeRelationships),
			IncludeObservations:  orTrue(input.IncludeObservations),
			RelationshipTypes:    input.RelationshipTypes,
			ObservationTypes:     input.ObservationTypes,
		})
	})
}

// --- Relationships ---

func (t *Tools) CreateRelationship(ctx context.Context, _ *mcp.CallToolRequest, input CreateRelationshipInput) (*mcp.CallToolResult, any, error) {
	return t.call(ctx, "create_relationship", func(ctx context.Context) (any, error) {
		return t.Service.CreateRelationship(ctx, models.RelationshipInput{
			SourceID: input.SourceID,
			TargetID: input.TargetID,
			Type:     input.Type,
			Metadata: input.Metadata,
		})
	})
}

func (t *Tools) GetRelationship(ctx context.Context, _ *mcp.CallToolRequest, input IDInput) (*mcp.CallToolResult, any, error) {
	return t.call(ctx, "get_relationship", func(ctx context.Context) (any, error) {
		return t.Service.GetRelationship(ctx, input.ID)
	})
}

func (t *Tools) ListRelationships(ctx context.Context, _ *mcp.CallToolRequest, input ListRelationshipsInput) (*mcp.CallToolResult, any, error) {
	return t.call(ctx, "list_relationships", func(ctx context.Context) (any, error) {
		return t.Service.ListRelationships(ctx, models.RelationshipFilter{
			SourceID: input.SourceID,
			TargetID: input.TargetID,
			Type:     optional(input.Type),
		})
	})
}

func (t *Tools) UpdateRelationship(ctx context.Context, _ *mcp.CallToolRequest, input UpdateRelationshipInput) (*mcp.CallToolResult, any, error) {
	return t.call(ctx, "update_relationship", func(ctx context.Context) (any, error) {
		return t.Service.UpdateRelationship(ctx, input.ID, models.RelationshipUpdate{
			Type:          input.Type,
			MetadataPatch: input.Metadata,
		})
	})
}

func (t *Tools) DeleteRelationship(ctx context.Context, _ *mcp.CallToolRequest, input IDInput) (*mcp.CallToolResult, any, error) {
	return t.call(ctx, "delete_relationship", func(ctx context.Context) (any, error) {
		return t.Service.DeleteRelationship(ctx, input.ID)
	})
}

// --- Observations ---

func (t *Tools) CreateObservation(ctx context.Context, _ *mcp.CallToolRequest, input CreateObservationInput) (*mcp.CallToolResult, any, error) {
	return t.call(ctx, "create_observation", func(ctx context.Context) (any, error) {
		value, err := rawJSON("value", input.Value)
		if err != nil {
			return nil, err
		}
		return t.Service.CreateObservation(ctx, models.ObservationInput{
			EntityID:        input.EntityID,
			Type:            input.Type,
			ObservationType: input.ObservationType,
			Value:           value,
			Metadata:        input.Metadata,
		})
	})
}

func (t *Tools) GetObservation(ctx context.Context, _ *mcp.CallToolRequest, input IDInput) (*mcp.CallToolResult, any, error) {
	return t.call(ctx, "get_observation", func(ctx context.Context) (any, error) {
		return t.Service.GetObservation(ctx, input.ID)
	})
}

func (t *Tools) ListObservations(ctx context.Context, _ *mcp.CallToolRequest, input ListObservationsInput) (*mcp.CallToolResult, any, error) {
	return t.call(ctx, "list_observations", func(ctx context.Context) (any, error) {
		return t.Service.ListObservations(ctx, models.ObservationFilter{
			EntityID: input.EntityID,
			Type:     optional(input.Type),
		})
	})
}

func (t *Tools) UpdateObservation(ctx context.Context, _ *mcp.CallToolRequest, input UpdateObservationInput) (*mcp.CallToolResult, any, error) {
	return t.call(ctx, "update_observation", func(ctx context.Context) (any, error) {
		value, err := rawJSON("value", input.Value)
		if err != nil {
			return nil, err
		}
		return t.Service.UpdateObservation(ctx, input.ID, models.ObservationUpdate{
			Value:         value,
			MetadataPatch: input.Metadata,
		})
	})
}

func (t *Tools) DeleteObservation(ctx context.Context, _ *mcp.CallToolRequest, input IDInput) (*mcp.CallToolResult, any, error) {
	return t.call(ctx, "delete_observation", func(ctx context.Context) (any, error) {
		return t.Service.DeleteObservation(ctx, input.ID)
	})
}
