package memory

import (
	"context"

	"github.com/wagnerlima/memory-cloud/infra-memory/internal/cache"
	"github.com/wagnerlima/memory-cloud/infra-memory/internal/models"
)

// Relationship and observation reads are also tagged with their list tag so
// an entity cascade, which does not know the removed ids, can drop them.

func (s *Service) CreateRelationship(ctx context.Context, in models.RelationshipInput) (*models.Relationship, error) {
	r, err := s.store.CreateRelationship(ctx, in)
	s.invalidate(err, tagRelationships, tagGraph, tag("entity", in.SourceID), tag("entity", in.TargetID))
	return r, err
}

func (s *Service) GetRelationship(ctx context.Context, id int64) (*models.Relationship, error) {
	return cache.Fetch(ctx, s.cache, cache.NewKey("get_relationship", id),
		[]string{tag("relationship", id), tagRelationships},
		func(ctx context.Context) (*models.Relationship, error) {
			return s.store.GetRelationship(ctx, id)
		})
}

func (s *Service) ListRelationships(ctx context.Context, f models.RelationshipFilter) ([]models.Relationship, error) {
	key := cache.NewKey("list_relationships").
		With("source_id", f.SourceID).
		With("target_id", f.TargetID).
		With("type", f.Type)
	return cache.Fetch(ctx, s.cache, key, []string{tagRelationships},
		func(ctx context.Context) ([]models.Relationship, error) {
			return s.store.ListRelationships(ctx, f)
		})
}

// RelationshipsOf is served uncached; it backs expansion, whose results are
// cached as a whole.
func (s *Service) RelationshipsOf(ctx context.Context, entityID int64, types []string) ([]models.Relationship, error) {
	return s.store.RelationshipsOf(ctx, entityID, types)
}

func (s *Service) UpdateRelationship(ctx context.Context, id int64, in models.RelationshipUpdate) (*models.Relationship, error) {
	r, err := s.store.UpdateRelationship(ctx, id, in)
	tags := []string{tag("relationship", id), tagRelationships, tagGraph}
	if r != nil {
		tags = append(tags, tag("entity", r.SourceID), tag("entity", r.TargetID))
	}
	s.invalidate(err, tags...)
	return r, err
}

func (s *Service) DeleteRelationship(ctx context.Context, id int64) (*models.Relationship, error) {
	r, err := s.store.DeleteRelationship(ctx, id)
	tags := []string{tag("relationship", id), tagRelationships, tagGraph}
	if r != nil {
		tags = append(tags, tag("entity", r.SourceID), tag("entity", r.TargetID))
	}
	s.invalidate(err, tags...)
	return r, err
}

func (s *Service) CreateObservation(ctx context.Context, in models.ObservationInput) (*models.Observation, error) {
	o, err := s.store.CreateObservation(ctx, in)
	s.invalidate(err, tagObservations, tagGraph, tag("entity", in.EntityID))
	return o, err
}

func (s *Service) GetObservation(ctx context.Context, id int64) (*models.Observation, error) {
	return cache.Fetch(ctx, s.cache, cache.NewKey("get_observation", id),
		[]string{tag("observation", id), tagObservations},
		func(ctx context.Context) (*models.Observation, error) {
			return s.store.GetObservation(ctx, id)
		})
}

func (s *Service) ListObservations(ctx context.Context, f models.ObservationFilter) ([]models.Observation, error) {
	key := cache.NewKey("list_observations").
		With("entity_id", f.EntityID).
		With("type", f.Type)
	return cache.Fetch(ctx, s.cache, key, []string{tagObservations},
		func(ctx context.Context) ([]models.Observation, error) {
			return s.store.ListObservations(ctx, f)
		})
}

func (s *Service) UpdateObservation(ctx context.Context, id int64, in models.ObservationUpdate) (*models.Observation, error) {
	o, err := s.store.UpdateObservation(ctx, id, in)
	tags := []string{tag("observation", id), tagObservations, tagGraph}
	if o != nil {
		tags = append(tags, tag("entity", o.EntityID))
	}
	s.invalidate(err, tags...)
	return o, err
}

func (s *Service) DeleteObservation(ctx context.Context, id int64) (*models.Observation, error) {
	o, err := s.store.DeleteObservation(ctx, id)
	tags := []string{tag("observation", id), tagObservations, tagGraph}
	if o != nil {
		tags = append(tags, tag("entity", o.EntityID))
	}
	s.invalidate(err, tags...)
	return o, err
}
