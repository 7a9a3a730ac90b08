// Package memory exposes the memory store operations with read-through
// caching and write invalidation.
package memory

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/wagnerlima/memory-cloud/infra-memory/internal/apperr"
	"github.com/wagnerlima/memory-cloud/infra-memory/internal/cache"
	"github.com/wagnerlima/memory-cloud/infra-memory/internal/graph"
	"github.com/wagnerlima/memory-cloud/infra-memory/internal/models"
)

// Backend is the storage surface the service delegates to. *storage.Store
// implements it.
type Backend interface {
	graph.Source

	CreateEntity(ctx context.Context, in models.EntityInput) (*models.Entity, error)
	ListEntities(ctx context.Context, f models.EntityFilter) (*models.EntityPage, error)
	UpdateEntity(ctx context.Context, id int64, in models.EntityUpdate) (*models.Entity, error)
	DeleteEntity(ctx context.Context, id int64) (*models.EntityDeletion, error)
	SearchEntities(ctx context.Context, in models.EntitySearch) ([]models.Entity, error)

	CreateRelationship(ctx context.Context, in models.RelationshipInput) (*models.Relationship, error)
	GetRelationship(ctx context.Context, id int64) (*models.Relationship, error)
	ListRelationships(ctx context.Context, f models.RelationshipFilter) ([]models.Relationship, error)
	UpdateRelationship(ctx context.Context, id int64, in models.RelationshipUpdate) (*models.Relationship, error)
	DeleteRelationship(ctx context.Context, id int64) (*models.Relationship, error)

	CreateObservation(ctx context.Context, in models.ObservationInput) (*models.Observation, error)
	GetObservation(ctx context.Context, id int64) (*models.Observation, error)
	UpdateObservation(ctx context.Context, id int64, in models.ObservationUpdate) (*models.Observation, error)
	DeleteObservation(ctx context.Context, id int64) (*models.Observation, error)

	CreateProvider(ctx context.Context, in models.ProviderInput) (*models.Provider, error)
	GetProvider(ctx context.Context, id int64) (*models.Provider, error)
	ListProviders(ctx context.Context, f models.ProviderFilter) ([]models.Provider, error)
	UpdateProvider(ctx context.Context, id int64, in models.ProviderUpdate) (*models.Provider, error)
	DeleteProvider(ctx context.Context, id int64) (*models.ChildDeletion, error)

	CreateResourceArgument(ctx context.Context, in models.ResourceArgumentInput) (*models.ResourceArgument, error)
	GetResourceArgument(ctx context.Context, id int64) (*models.ResourceArgument, error)
	ListResourceArguments(ctx context.Context, f models.ResourceArgumentFilter) ([]models.ResourceArgument, error)
	UpdateResourceArgument(ctx context.Context, id int64, in models.ResourceArgumentUpdate) (*models.ResourceArgument, error)
	DeleteResourceArgument(ctx context.Context, id int64) (*models.ResourceArgument, error)

	CreateCollection(ctx context.Context, in models.CollectionInput) (*models.Collection, error)
	GetCollection(ctx context.Context, id int64) (*models.Collection, error)
	ListCollections(ctx context.Context, f models.CollectionFilter) ([]models.Collection, error)
	UpdateCollection(ctx context.Context, id int64, in models.CollectionUpdate) (*models.Collection, error)
	DeleteCollection(ctx context.Context, id int64) (*models.ChildDeletion, error)

	CreateModuleParameter(ctx context.Context, in models.ModuleParameterInput) (*models.ModuleParameter, error)
	GetModuleParameter(ctx context.Context, id int64) (*models.ModuleParameter, error)
	ListModuleParameters(ctx context.Context, f models.ModuleParameterFilter) ([]models.ModuleParameter, error)
	UpdateModuleParameter(ctx context.Context, id int64, in models.ModuleParameterUpdate) (*models.ModuleParameter, error)
	DeleteModuleParameter(ctx context.Context, id int64) (*models.ModuleParameter, error)
}

// Cache tags. Per-record tags are built with tag().
const (
	tagEntities          = "entities"
	tagSearch            = "search"
	tagGraph             = "graph"
	tagRelationships     = "relationships"
	tagObservations      = "observations"
	tagProviders         = "providers"
	tagResourceArguments = "resource_arguments"
	tagCollections       = "collections"
	tagModuleParameters  = "module_parameters"
)

func tag(kind string, id int64) string {
	return kind + ":" + strconv.FormatInt(id, 10)
}

// Service is the operation surface of the memory store. Reads are served
// through the query cache; every successful write invalidates the cache
// tags of the data it touched.
type Service struct {
	store    Backend
	cache    *cache.Cache
	expander *graph.Expander
	logger   *zap.Logger
}

// New creates a Service. c may be nil to disable caching.
func New(store Backend, c *cache.Cache, logger *zap.Logger, opts ...graph.Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    store,
		cache:    c,
		expander: graph.NewExpander(store, logger.Named("graph"), opts...),
		logger:   logger,
	}
}

// invalidate drops the given tags after a write. Storage errors leave the
// outcome of the write unknown, so they invalidate too.
func (s *Service) invalidate(err error, tags ...string) {
	if err != nil && !apperr.Is(err, apperr.KindStorage) {
		return
	}
	n := s.cache.Invalidate(tags...)
	if n > 0 {
		s.logger.Debug("cache invalidated", zap.Strings("tags", tags), zap.Int("entries", n))
	}
}
