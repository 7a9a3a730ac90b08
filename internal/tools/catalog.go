package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagnerlima/memory-cloud/infra-memory/internal/models"
)

type CreateProviderInput struct {
	Name     string         `json:"name" jsonschema:"Provider name (e.g., aws)"`
	Type     string         `json:"type" jsonschema:"Provider type (e.g., cloud, container, network)"`
	Version  string         `json:"version" jsonschema:"Provider version"`
	Metadata map[string]any `json:"metadata,omitempty" jsonschema:"Free-form metadata object"`
}

type ListProvidersInput struct {
	Type string `json:"type,omitempty" jsonschema:"Only providers of this type"`
}

type UpdateProviderInput struct {
	ID       int64          `json:"id" jsonschema:"Provider id"`
	Name     *string        `json:"name,omitempty" jsonschema:"New name"`
	Type     *string        `json:"type,omitempty" jsonschema:"New provider type"`
	Version  *string        `json:"version,omitempty" jsonschema:"New version"`
	Metadata map[string]any `json:"metadata,omitempty" jsonschema:"Keys merged into the stored metadata"`
}

type CreateResourceArgumentInput struct {
	ProviderID   int64          `json:"provider_id" jsonschema:"Owning provider id"`
	Name         string         `json:"name" jsonschema:"Argument name"`
	ResourceType string         `json:"resource_type" jsonschema:"Resource type the argument belongs to (e.g., aws_instance)"`
	Schema       any            `json:"schema" jsonschema:"Argument schema, a JSON object"`
	Metadata     map[string]any `json:"metadata,omitempty" jsonschema:"Free-form metadata object"`
}

type ListResourceArgumentsInput struct {
	ProviderID   *int64 `json:"provider_id,omitempty" jsonschema:"Only arguments of this provider"`
	ResourceType string `json:"resource_type,omitempty" jsonschema:"Only arguments of this resource type"`
}

type UpdateResourceArgumentInput struct {
	ID           int64          `json:"id" jsonschema:"Resource argument id"`
	Name         *string        `json:"name,omitempty" jsonschema:"New name"`
	ResourceType *string        `json:"resource_type,omitempty" jsonschema:"New resource type"`
	Schema       any            `json:"schema,omitempty" jsonschema:"Replacement schema, a JSON object"`
	Metadata     map[string]any `json:"metadata,omitempty" jsonschema:"Keys merged into the stored metadata"`
}

type CreateCollectionInput struct {
	Namespace string         `json:"namespace" jsonschema:"Collection namespace (e.g., community)"`
	Name      string         `json:"name" jsonschema:"Collection name (e.g., general)"`
	Version   string         `json:"version" jsonschema:"Collection version"`
	Metadata  map[string]any `json:"metadata,omitempty" jsonschema:"Free-form metadata object"`
}

type ListCollectionsInput struct {
	Namespace string `json:"namespace,omitempty" jsonschema:"Only collections in this namespace"`
}

type UpdateCollectionInput struct {
	ID        int64          `json:"id" jsonschema:"Collection id"`
	Namespace *string        `json:"namespace,omitempty" jsonschema:"New namespace"`
	Name      *string        `json:"name,omitempty" jsonschema:"New name"`
	Version   *string        `json:"version,omitempty" jsonschema:"New version"`
	Metadata  map[string]any `json:"metadata,omitempty" jsonschema:"Keys merged into the stored metadata"`
}

type CreateModuleParameterInput struct {
	CollectionID int64          `json:"collection_id" jsonschema:"Owning collection id"`
	ModuleName   string         `json:"module_name" jsonschema:"Module the parameter belongs to"`
	Name         string         `json:"name" jsonschema:"Parameter name"`
	Schema       any            `json:"schema" jsonschema:"Parameter schema, a JSON object"`
	Metadata     map[string]any `json:"metadata,omitempty" jsonschema:"Free-form metadata object"`
}

type ListModuleParametersInput struct {
	CollectionID *int64 `json:"collection_id,omitempty" jsonschema:"Only parameters of this collection"`
	ModuleName   string `json:"module_name,omitempty" jsonschema:"Only parameters of this module"`
}

type UpdateModuleParameterInput struct {
	ID         int64          `json:"id" jsonschema:"Module parameter id"`
	ModuleName *string        `json:"module_name,omitempty" jsonschema:"New module name"`
	Name       *string        `json:"name,omitempty" jsonschema:"New name"`
	Schema     any            `json:"schema,omitempty" jsonschema:"Replacement schema, a JSON object"`
	Metadata   map[string]any `json:"metadata,omitempty" jsonschema:"Keys merged into the stored metadata"`
}

// --- Providers ---

func (t *Tools) CreateProvider(ctx context.Context, _ *mcp.CallToolRequest, input CreateProviderInput) (*mcp.CallToolResult, any, error) {
	return t.call(ctx, "create_provider", func(ctx context.Context) (any, error) {
		return t.Service.CreateProvider(ctx, models.ProviderInput{
			Name:     input.Name,
			Type:     input.Type,
			Version:  input.Version,
			Metadata: input.Metadata,
		})
	})
}

func (t *Tools) GetProvider(ctx context.Context, _ *mcp.CallToolRequest, input IDInput) (*mcp.CallToolResult, any, error) {
	return t.call(ctx, "get_provider", func(ctx context.Context) (any, error) {
		return t.Service.GetProvider(ctx, input.ID)
	})
}

func (t *Tools) ListProviders(ctx context.Context, _ *mcp.CallToolRequest, input ListProvidersInput) (*mcp.CallToolResult, any, error) {
	return t.call(ctx, "list_providers", func(ctx context.Context) (any, error) {
		return t.Service.ListProviders(ctx, models.ProviderFilter{Type: optional(input.Type)})
	})
}

func (t *Tools) UpdateProvider(ctx context.Context, _ *mcp.CallToolRequest, input UpdateProviderInput) (*mcp.CallToolResult, any, error) {
	return t.call(ctx, "update_provider", func(ctx context.Context) (any, error) {
		return t.Service.UpdateProvider(ctx, input.ID, models.ProviderUpdate{
			Name:          input.Name,
			Type:          input.Type,
			Version:       input.Version,
			MetadataPatch: input.Metadata,
		})
	})
}

func (t *Tools) DeleteProvider(ctx context.Context, _ *mcp.CallToolRequest, input IDInput) (*mcp.CallToolResult, any, error) {
	return t.call(ctx, "delete_provider", func(ctx context.Context) (any, error) {
		return t.Service.DeleteProvider(ctx, input.ID)
	})
}

// --- Resource arguments ---

func (t *Tools) CreateResourceArgument(ctx context.Context, _ *mcp.CallToolRequest, input CreateResourceArgumentInput) (*mcp.CallToolResult, any, error) {
	return t.call(ctx, "create_resource_argument", func(ctx context.Context) (any, error) {
		schema, err := rawJSON("schema", input.Schema)
		if err != nil {
			return nil, err
		}
		return t.Service.CreateResourceArgument(ctx, models.ResourceArgumentInput{
			ProviderID:   input.ProviderID,
			Name:         input.Name,
			ResourceType: input.ResourceType,
			Schema:       schema,
			Metadata:     input.Metadata,
		})
	})
}

func (t *Tools) GetResourceArgument(ctx context.Context, _ *mcp.CallToolRequest, input IDInput) (*mcp.CallToolResult, any, error) {
	return t.call(ctx, "get_resource_argument", func(ctx context.Context) (any, error) {
		return t.Service.GetResourceArgument(ctx, input.ID)
	})
}

func (t *Tools) ListResourceArguments(ctx context.Context, _ *mcp.CallToolRequest, input ListResourceArgumentsInput) (*mcp.CallToolResult, any, error) {
	return t.call(ctx, "list_resource_arguments", func(ctx context.Context) (any, error) {
		return t.Service.ListResourceArguments(ctx, models.ResourceArgumentFilter{
			ProviderID:   input.ProviderID,
			ResourceType: optional(input.ResourceType),
		})
	})
}

func (t *Tools) UpdateResourceArgument(ctx context.Context, _ *mcp.CallToolRequest, input UpdateResourceArgumentInput) (*mcp.CallToolResult, any, error) {
	return t.call(ctx, "update_resource_argument", func(ctx context.Context) (any, error) {
		schema, err := rawJSON("schema", input.Schema)
		if err != nil {
			return nil, err
		}
		return t.Service.UpdateResourceArgument(ctx, input.ID, models.ResourceArgumentUpdate{
			Name:          input.Name,
			ResourceType:  input.ResourceType,
			Schema:        schema,
			MetadataPatch: input.Metadata,
		})
	})
}

func (t *Tools) DeleteResourceArgument(ctx context.Context, _ *mcp.CallToolRequest, input IDInput) (*mcp.CallToolResult, any, error) {
	return t.call(ctx, "delete_resource_argument", func(ctx context.Context) (any, error) {
		return t.Service.DeleteResourceArgument(ctx, input.ID)
	})
}

// --- Ansible collections ---

func (t *Tools) CreateCollection(ctx context.Context, _ *mcp.CallToolRequest, input CreateCollectionInput) (*mcp.CallToolResult, any, error) {
	return t.call(ctx, "create_collection", func(ctx context.Context) (any, error) {
		return t.Service.CreateCollection(ctx, models.CollectionInput{
			Namespace: input.Namespace,
			Name:      input.Name,
			Version:   input.Version,
			Metadata:  input.Metadata,
		})
	})
}

func (t *Tools) GetCollection(ctx context.Context, _ *mcp.CallToolRequest, input IDInput) (*mcp.CallToolResult, any, error) {
	return t.call(ctx, "get_collection", func(ctx context.Context) (any, error) {
		return t.Service.GetCollection(ctx, input.ID)
	})
}

func (t *Tools) ListCollections(ctx context.Context, _ *mcp.CallToolRequest, input ListCollectionsInput) (*mcp.CallToolResult, any, error) {
	return t.call(ctx, "list_collections", func(ctx context.Context) (any, error) {
		return t.Service.ListCollections(ctx, models.CollectionFilter{Namespace: optional(input.Namespace)})
	})
}

func (t *Tools) UpdateCollection(ctx context.Context, _ *mcp.CallToolRequest, input UpdateCollectionInput) (*mcp.CallToolResult, any, error) {
	return t.call(ctx, "update_collection", func(ctx context.Context) (any, error) {
		return t.Service.UpdateCollection(ctx, input.ID, models.CollectionUpdate{
			Namespace:     input.Namespace,
			Name:          input.Name,
			Version:       input.Version,
			MetadataPatch: input.Metadata,
		})
	})
}

func (t *Tools) DeleteCollection(ctx context.Context, _ *mcp.CallToolRequest, input IDInput) (*mcp.CallToolResult, any, error) {
	return t.call(ctx, "delete_collection", func(ctx context.Context) (any, error) {
		return t.Service.DeleteCollection(ctx, input.ID)
	})
}

// --- Module parameters ---

func (t *Tools) CreateModuleParameter(ctx context.Context, _ *mcp.CallToolRequest, input CreateModuleParameterInput) (*mcp.CallToolResult, any, error) {
	return t.call(ctx, "create_module_parameter", func(ctx context.Context) (any, error) {
		schema, err := rawJSON("schema", input.Schema)
		if err != nil {
			return nil, err
		}
		return t.Service.CreateModuleParameter(ctx, models.ModuleParameterInput{
			CollectionID: input.CollectionID,
			ModuleName:   input.ModuleName,
			Name:         input.Name,
			Schema:       schema,
			Metadata:     input.Metadata,
		})
	})
}

func (t *Tools) GetModuleParameter(ctx context.Context, _ *mcp.CallToolRequest, input IDInput) (*mcp.CallToolResult, any, error) {
	return t.call(ctx, "get_module_parameter", func(ctx context.Context) (any, error) {
		return t.Service.GetModuleParameter(ctx, input.ID)
	})
}

func (t *Tools) ListModuleParameters(ctx context.Context, _ *mcp.CallToolRequest, input ListModuleParametersInput) (*mcp.CallToolResult, any, error) {
	return t.call(ctx, "list_module_parameters", func(ctx context.Context) (any, error) {
		return t.Service.ListModuleParameters(ctx, models.ModuleParameterFilter{
			CollectionID: input.CollectionID,
			ModuleName:   optional(input.ModuleName),
		})
	})
}

func (t *Tools) UpdateModuleParameter(ctx context.Context, _ *mcp.CallToolRequest, input UpdateModuleParameterInput) (*mcp.CallToolResult, any, error) {
	return t.call(ctx, "update_module_parameter", func(ctx context.Context) (any, error) {
		schema, err := rawJSON("schema", input.Schema)
		if err != nil {
			return nil, err
		}
		return t.Service.UpdateModuleParameter(ctx, input.ID, models.ModuleParameterUpdate{
			ModuleName:    input.ModuleName,
			Name:          input.Name,
			Schema:        schema,
			MetadataPatch: input.Metadata,
		})
	})
}

func (t *Tools) DeleteModuleParameter(ctx context.Context, _ *mcp.CallToolRequest, input IDInput) (*mcp.CallToolResult, any, error) {
	return t.call(ctx, "delete_module_parameter", func(ctx context.Context) (any, error) {
		return t.Service.DeleteModuleParameter(ctx, input.ID)
	})
}
