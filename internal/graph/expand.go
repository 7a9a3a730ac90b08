// Package graph implements bounded context expansion over the entity graph.
package graph

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/wagnerlima/memory-cloud/infra-memory/internal/apperr"
	"github.com/wagnerlima/memory-cloud/infra-memory/internal/models"
)

const (
	// DefaultMaxResults caps the number of entities one expansion returns.
	DefaultMaxResults = 1000

	// MaxDepthLimit is the deepest expansion accepted.
	MaxDepthLimit = 10

	// DefaultTimeout bounds the wall-clock time of one expansion.
	DefaultTimeout = 5 * time.Second
)

// Source is the read surface expansion needs from storage.
type Source interface {
	GetEntity(ctx context.Context, id int64) (*models.Entity, error)
	RelationshipsOf(ctx context.Context, entityID int64, types []string) ([]models.Relationship, error)
	ListObservations(ctx context.Context, f models.ObservationFilter) ([]models.Observation, error)
}

// Direction of a relationship relative to the entity it was discovered from.
type Direction string

const (
	Outgoing Direction = "outgoing"
	Incoming Direction = "incoming"
)

// Link annotates a discovered entity with the edge it was reached through.
type Link struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Direction Direction `json:"direction"`
}

// RelatedEntity is one entry of an expansion result.
type RelatedEntity struct {
	models.Entity
	Relationship Link                 `json:"relationship"`
	Depth        int                  `json:"depth"`
	Observations []models.Observation `json:"observations,omitempty"`
}

// Request describes one expansion.
type Request struct {
	EntityID            int64
	MaxDepth            int
	RelationshipTypes   []string
	IncludeObservations bool
}

// Result is the flat list of entities reachable from the start entity.
type Result struct {
	EntityID int64           `json:"entity_id"`
	MaxDepth int             `json:"max_depth"`
	Entities []RelatedEntity `json:"entities"`
	// Truncated is true when the result ceiling stopped the traversal
	// while undiscovered entities remained.
	Truncated bool `json:"truncated"`
}

// Options bounds the work of every expansion.
type Options struct {
	MaxResults int
	Timeout    time.Duration
}

// Option is a functional option for an Expander.
type Option func(*Options)

// WithMaxResults sets the result ceiling. n <= 0 keeps the default.
func WithMaxResults(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxResults = n
		}
	}
}

// WithTimeout sets the per-expansion timeout. 0 disables it and relies on
// the caller's context deadline.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		if d >= 0 {
			o.Timeout = d
		}
	}
}

// Expander runs context expansions against a Source.
type Expander struct {
	src     Source
	options Options
	logger  *zap.Logger
}

// NewExpander creates an Expander. logger may be nil.
func NewExpander(src Source, logger *zap.Logger, opts ...Option) *Expander {
	options := Options{MaxResults: DefaultMaxResults, Timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&options)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Expander{src: src, options: options, logger: logger}
}

// frame is one entity on the explicit traversal stack.
type frame struct {
	id    int64
	depth int
	edges []models.Relationship
	next  int
}

// Expand walks the graph from req.EntityID, following edges in both
// directions, and returns every entity reachable within req.MaxDepth hops.
//
// The start entity is marked visited up front, so it never appears in the
// result and cycles through it are not expanded again. A newly discovered
// entity is expanded before the next sibling edge of its parent (depth
// first), and only its first discovery is recorded.
//
// Cancellation or timeout aborts the expansion and returns an error with no
// partial result.
func (x *Expander) Expand(ctx context.Context, req Request) (*Result, error) {
	if req.MaxDepth < 1 || req.MaxDepth > MaxDepthLimit {
		return nil, apperr.Validation("max_depth", "range", "max_depth must be between 1 and 10").
			WithDetail("value", req.MaxDepth).
			WithDetail("limit", MaxDepthLimit)
	}
	types := models.NormalizeTypes(req.RelationshipTypes)

	if x.options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, x.options.Timeout)
		defer cancel()
	}
	start := time.Now()

	if _, err := x.src.GetEntity(ctx, req.EntityID); err != nil {
		return nil, err
	}
	startEdges, err := x.src.RelationshipsOf(ctx, req.EntityID, types)
	if err != nil {
		return nil, aborted(ctx, err)
	}

	result := &Result{EntityID: req.EntityID, MaxDepth: req.MaxDepth, Entities: []RelatedEntity{}}
	visited := map[int64]struct{}{req.EntityID: {}}
	stack := []*frame{{id: req.EntityID, depth: 0, edges: startEdges}}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, aborted(ctx, err)
		}

		top := stack[len(stack)-1]
		if top.next >= len(top.edges) {
			stack = stack[:len(stack)-1]
			continue
		}
		edge := top.edges[top.next]
		top.next++

		neighbor, direction := edge.TargetID, Outgoing
		if edge.SourceID != top.id {
			neighbor, direction = edge.SourceID, Incoming
		}
		if _, seen := visited[neighbor]; seen {
			continue
		}
		if len(result.Entities) >= x.options.MaxResults {
			result.Truncated = true
			break
		}
		visited[neighbor] = struct{}{}

		entity, err := x.src.GetEntity(ctx, neighbor)
		if apperr.Is(err, apperr.KindNotFound) {
			// deleted since its edge was read
			continue
		}
		if err != nil {
			return nil, aborted(ctx, err)
		}

		item := RelatedEntity{
			Entity:       *entity,
			Relationship: Link{ID: edge.ID, Type: edge.Type, Direction: direction},
			Depth:        top.depth + 1,
		}
		if req.IncludeObservations {
			obs, err := x.src.ListObservations(ctx, models.ObservationFilter{EntityID: &neighbor})
			if err != nil {
				return nil, aborted(ctx, err)
			}
			item.Observations = obs
		}
		result.Entities = append(result.Entities, item)

		if item.Depth < req.MaxDepth {
			edges, err := x.src.RelationshipsOf(ctx, neighbor, types)
			if err != nil {
				return nil, aborted(ctx, err)
			}
			stack = append(stack, &frame{id: neighbor, depth: item.Depth, edges: edges})
		}
	}

	x.logger.Debug("context expanded",
		zap.Int64("entity_id", req.EntityID),
		zap.Int("max_depth", req.MaxDepth),
		zap.Int("results", len(result.Entities)),
		zap.Bool("truncated", result.Truncated),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

// aborted reports err, or the context error when the context ended.
func aborted(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return apperr.New(apperr.KindStorage, "context expansion aborted", ctxErr)
	}
	return err
}
