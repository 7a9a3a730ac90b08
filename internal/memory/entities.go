package memory

import (
	"context"

	"github.com/wagnerlima/memory-cloud/infra-memory/internal/cache"
	"github.com/wagnerlima/memory-cloud/infra-memory/internal/graph"
	"github.com/wagnerlima/memory-cloud/infra-memory/internal/models"
)

func (s *Service) CreateEntity(ctx context.Context, in models.EntityInput) (*models.Entity, error) {
	e, err := s.store.CreateEntity(ctx, in)
	s.invalidate(err, tagEntities, tagSearch)
	return e, err
}

func (s *Service) GetEntity(ctx context.Context, id int64) (*models.Entity, error) {
	return cache.Fetch(ctx, s.cache, cache.NewKey("get_entity", id), []string{tag("entity", id)},
		func(ctx context.Context) (*models.Entity, error) {
			return s.store.GetEntity(ctx, id)
		})
}

func (s *Service) ListEntities(ctx context.Context, f models.EntityFilter) (*models.EntityPage, error) {
	key := cache.NewKey("list_entities").
		With("type", f.Type).
		With("created_after", f.CreatedAfter).
		With("page", f.Page).
		With("per_page", f.PerPage)
	return cache.Fetch(ctx, s.cache, key, []string{tagEntities},
		func(ctx context.Context) (*models.EntityPage, error) {
			return s.store.ListEntities(ctx, f)
		})
}

// UpdateEntity invalidates the entity, every listing and every expansion,
// since expansions embed entity fields.
func (s *Service) UpdateEntity(ctx context.Context, id int64, in models.EntityUpdate) (*models.Entity, error) {
	e, err := s.store.UpdateEntity(ctx, id, in)
	s.invalidate(err, tag("entity", id), tagEntities, tagSearch, tagGraph)
	return e, err
}

// DeleteEntity also invalidates relationship and observation reads, which
// the cascade may have removed.
func (s *Service) DeleteEntity(ctx context.Context, id int64) (*models.EntityDeletion, error) {
	res, err := s.store.DeleteEntity(ctx, id)
	s.invalidate(err, tag("entity", id), tagEntities, tagSearch, tagGraph, tagRelationships, tagObservations)
	return res, err
}

func (s *Service) SearchEntities(ctx context.Context, in models.EntitySearch) ([]models.Entity, error) {
	key := cache.NewKey("search_entities", in.Query).
		With("type", in.Type).
		With("limit", in.Limit).
		With("offset", in.Offset)
	return cache.Fetch(ctx, s.cache, key, []string{tagSearch},
		func(ctx context.Context) ([]models.Entity, error) {
			return s.store.SearchEntities(ctx, in)
		})
}

// Expand runs a bounded context expansion from req.EntityID.
func (s *Service) Expand(ctx context.Context, req graph.Request) (*graph.Result, error) {
	key := cache.NewKey("expand", req.EntityID, req.MaxDepth).
		With("include_observations", req.IncludeObservations)
	if len(req.RelationshipTypes) > 0 {
		key = key.With("relationship_types", req.RelationshipTypes)
	}
	return cache.Fetch(ctx, s.cache, key, []string{tagGraph, tag("entity", req.EntityID)},
		func(ctx context.Context) (*graph.Result, error) {
			return s.expander.Expand(ctx, req)
		})
}

// EntityContext returns an entity with its direct relationships and its
// observations.
func (s *Service) EntityContext(ctx context.Context, req graph.ContextRequest) (*graph.EntityContext, error) {
	key := cache.NewKey("entity_context", req.EntityID).
		With("include_relationships", req.IncludeRelationships).
		With("include_observations", req.IncludeObservations)
	if len(req.RelationshipTypes) > 0 {
		key = key.With("relationship_types", req.RelationshipTypes)
	}
	if len(req.ObservationTypes) > 0 {
		key = key.With("observation_types", req.ObservationTypes)
	}
	return cache.Fetch(ctx, s.cache, key, []string{tagGraph, tag("entity", req.EntityID)},
		func(ctx context.Context) (*graph.EntityContext, error) {
			return s.expander.Context(ctx, req)
		})
}
