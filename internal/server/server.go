package server

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/wagnerlima/memory-cloud/infra-memory/internal/memory"
	"github.com/wagnerlima/memory-cloud/infra-memory/internal/tools"
)

// Name and Version identify the server to MCP clients.
const (
	Name    = "infra-memory"
	Version = "0.2.0"
)

// New creates a fully configured MCP server with all tools registered.
// logger may be nil.
func New(svc *memory.Service, logger *zap.Logger) *mcp.Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := tools.New(svc, logger.Named("tools"))

	srv := mcp.NewServer(&mcp.Implementation{
		Name:    Name,
		Version: Version,
	}, nil)

	// Entity tools
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "create_entity",
		Description: "Create an infrastructure entity (server, database, load balancer, ...)",
	}, t.CreateEntity)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_entity",
		Description: "Get an entity by id",
	}, t.GetEntity)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_entities",
		Description: "List entities with optional type and created_after filters, paginated",
	}, t.ListEntities)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "update_entity",
		Description: "Update an entity's name, tags or metadata (metadata keys are merged); optional expected_version check",
	}, t.UpdateEntity)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "delete_entity",
		Description: "Delete an entity together with its relationships (as source or target) and observations",
	}, t.DeleteEntity)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "search_entities",
		Description: "Full-text search over entity names and types",
	}, t.SearchEntities)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "expand_context",
		Description: "Collect the entities reachable from an entity within max_depth hops, following relationships in both directions",
	}, t.ExpandContext)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_entity_context",
		Description: "Get an entity with its direct relationships (with direction) and its observations, optionally filtered by type",
	}, t.GetEntityContext)

	// Relationship tools
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "create_relationship",
		Description: "Create a typed, directed relationship between two distinct entities",
	}, t.CreateRelationship)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_relationship",
		Description: "Get a relationship by id",
	}, t.GetRelationship)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_relationships",
		Description: "List relationships with optional source_id, target_id and type filters",
	}, t.ListRelationships)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "update_relationship",
		Description: "Update a relationship's type or metadata (metadata keys are merged)",
	}, t.UpdateRelationship)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "delete_relationship",
		Description: "Delete a relationship",
	}, t.DeleteRelationship)

	// Observation tools
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "create_observation",
		Description: "Record a typed observation (state, metric, event, ...) with a structured JSON value on an entity",
	}, t.CreateObservation)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_observation",
		Description: "Get an observation by id",
	}, t.GetObservation)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_observations",
		Description: "List observations with optional entity_id and type filters",
	}, t.ListObservations)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "update_observation",
		Description: "Replace an observation's value or merge its metadata",
	}, t.UpdateObservation)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "delete_observation",
		Description: "Delete an observation",
	}, t.DeleteObservation)

	// Provider catalog tools
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "create_provider",
		Description: "Register an infrastructure provider (e.g., aws 5.0)",
	}, t.CreateProvider)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_provider",
		Description: "Get a provider by id",
	}, t.GetProvider)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_providers",
		Description: "List providers with an optional type filter",
	}, t.ListProviders)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "update_provider",
		Description: "Update a provider's name, type, version or metadata",
	}, t.UpdateProvider)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "delete_provider",
		Description: "Delete a provider and its resource arguments",
	}, t.DeleteProvider)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "create_resource_argument",
		Description: "Record a resource argument schema for a provider",
	}, t.CreateResourceArgument)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_resource_argument",
		Description: "Get a resource argument by id",
	}, t.GetResourceArgument)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_resource_arguments",
		Description: "List resource arguments with optional provider_id and resource_type filters",
	}, t.ListResourceArguments)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "update_resource_argument",
		Description: "Update a resource argument's name, resource type, schema or metadata",
	}, t.UpdateResourceArgument)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "delete_resource_argument",
		Description: "Delete a resource argument",
	}, t.DeleteResourceArgument)

	// Ansible catalog tools
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "create_collection",
		Description: "Register an Ansible collection (namespace, name, version)",
	}, t.CreateCollection)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_collection",
		Description: "Get an Ansible collection by id",
	}, t.GetCollection)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_collections",
		Description: "List Ansible collections with an optional namespace filter",
	}, t.ListCollections)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "update_collection",
		Description: "Update an Ansible collection's namespace, name, version or metadata",
	}, t.UpdateCollection)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "delete_collection",
		Description: "Delete an Ansible collection and its module parameters",
	}, t.DeleteCollection)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "create_module_parameter",
		Description: "Record a module parameter schema for an Ansible collection",
	}, t.CreateModuleParameter)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_module_parameter",
		Description: "Get a module parameter by id",
	}, t.GetModuleParameter)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_module_parameters",
		Description: "List module parameters with optional collection_id and module_name filters",
	}, t.ListModuleParameters)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "update_module_parameter",
		Description: "Update a module parameter's module name, name, schema or metadata",
	}, t.UpdateModuleParameter)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "delete_module_parameter",
		Description: "Delete a module parameter",
	}, t.DeleteModuleParameter)

	return srv
}
