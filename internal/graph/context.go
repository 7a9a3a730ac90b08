package graph

import (
	"context"

	"github.com/wagnerlima/memory-cloud/infra-memory/internal/models"
)

// ContextRequest describes a one-hop view of a single entity.
type ContextRequest struct {
	EntityID             int64
	IncludeRelationships bool
	IncludeObservations  bool
	RelationshipTypes    []string
	ObservationTypes     []string
}

// DirectedRelationship is a relationship seen from one of its endpoints.
type DirectedRelationship struct {
	models.Relationship
	Direction Direction `json:"direction"`
}

// EntityContext is an entity with its direct relationships and its
// observations. Sections that were not requested are null.
type EntityContext struct {
	Entity        models.Entity          `json:"entity"`
	Relationships []DirectedRelationship `json:"relationships"`
	Observations  []models.Observation   `json:"observations"`
}

// Context returns the entity with the relationships it takes part in and the
// observations it owns. Type filters are normalized; unknown types match
// nothing.
func (x *Expander) Context(ctx context.Context, req ContextRequest) (*EntityContext, error) {
	e, err := x.src.GetEntity(ctx, req.EntityID)
	if err != nil {
		return nil, err
	}
	out := &EntityContext{Entity: *e}

	if req.IncludeRelationships {
		edges, err := x.src.RelationshipsOf(ctx, req.EntityID, models.NormalizeTypes(req.RelationshipTypes))
		if err != nil {
			return nil, aborted(ctx, err)
		}
		out.Relationships = make([]DirectedRelationship, 0, len(edges))
		for _, edge := range edges {
			direction := Outgoing
			if edge.SourceID != req.EntityID {
				direction = Incoming
			}
			out.Relationships = append(out.Relationships, DirectedRelationship{Relationship: edge, Direction: direction})
		}
	}

	if req.IncludeObservations {
		obs, err := x.src.ListObservations(ctx, models.ObservationFilter{EntityID: &req.EntityID})
		if err != nil {
			return nil, aborted(ctx, err)
		}
		types := models.NormalizeTypes(req.ObservationTypes)
		out.Observations = make([]models.Observation, 0, len(obs))
		for _, o := range obs {
			if len(types) == 0 || containsType(types, o.Type) {
				out.Observations = append(out.Observations, o)
			}
		}
	}
	return out, nil
}

func containsType(types []string, t string) bool {
	for _, v := range types {
		if v == t {
			return true
		}
	}
	return false
}
