package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/wagnerlima/memory-cloud/infra-memory/internal/apperr"
	"github.com/wagnerlima/memory-cloud/infra-memory/internal/models"
)

const relationshipColumns = `id, source_id, target_id, type, metadata, created_at, updated_at`

func scanRelationship(row rowScanner) (models.Relationship, error) {
	var (
		r                models.Relationship
		created, updated string
	)
	if err := row.Scan(&r.ID, &r.SourceID, &r.TargetID, &r.Type, &r.Metadata, &created, &updated); err != nil {
		return r, err
	}
	return r, parseTimes(&r.CreatedAt, &r.UpdatedAt, created, updated)
}

func getRelationship(ctx context.Context, q querier, id int64) (models.Relationship, error) {
	r, err := scanRelationship(q.QueryRowContext(ctx, `SELECT `+relationshipColumns+` FROM relationships WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return r, apperr.NotFound("relationship", id)
	}
	if err != nil {
		return r, fmt.Errorf("get relationship %d: %w", id, err)
	}
	return r, nil
}

func queryRelationships(ctx context.Context, q querier, query string, args ...any) ([]models.Relationship, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Relationship{}
	for rows.Next() {
		r, err := scanRelationship(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CreateRelationship inserts a directed edge between two existing entities.
func (s *Store) CreateRelationship(ctx context.Context, in models.RelationshipInput) (*models.Relationship, error) {
	if in.SourceID == in.TargetID {
		return nil, apperr.Validation("target_id", "self-referential", "relationship cannot connect an entity to itself").
			WithDetail("source_id", in.SourceID).
			WithDetail("target_id", in.TargetID)
	}
	typ, err := s.vocab.Relationship.Check("type", in.Type)
	if err != nil {
		return nil, err
	}

	now := s.timestamp()
	var created models.Relationship
	err = s.withTx(ctx, "create relationship", func(tx *sql.Tx) error {
		for _, id := range []int64{in.SourceID, in.TargetID} {
			ok, err := exists(ctx, tx, "entities", id)
			if err != nil {
				return err
			}
			if !ok {
				return apperr.NotFound("entity", id)
			}
		}

		var err error
		created, err = scanRelationship(tx.QueryRowContext(ctx,
			`INSERT INTO relationships (source_id, target_id, type, metadata, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)
			 RETURNING `+relationshipColumns,
			in.SourceID, in.TargetID, typ, in.Metadata, now, now,
		))
		if err != nil {
			return fmt.Errorf("insert relationship: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// GetRelationship returns one relationship by id.
func (s *Store) GetRelationship(ctx context.Context, id int64) (*models.Relationship, error) {
	r, err := getRelationship(ctx, s.db, id)
	if err != nil {
		return nil, translate("get relationship", err)
	}
	return &r, nil
}

// ListRelationships returns relationships matching every given filter,
// ordered by id.
func (s *Store) ListRelationships(ctx context.Context, f models.RelationshipFilter) ([]models.Relationship, error) {
	var w where
	if f.SourceID != nil {
		w.add("source_id = ?", *f.SourceID)
	}
	if f.TargetID != nil {
		w.add("target_id = ?", *f.TargetID)
	}
	if f.Type != nil {
		typ, err := s.vocab.Relationship.Check("type", *f.Type)
		if err != nil {
			return nil, err
		}
		w.add("type = ?", typ)
	}
	out, err := queryRelationships(ctx, s.db,
		`SELECT `+relationshipColumns+` FROM relationships`+w.String()+` ORDER BY id`, w.args...)
	if err != nil {
		return nil, apperr.Storage("list relationships", err)
	}
	return out, nil
}

// RelationshipsOf returns every relationship where entityID is the source or
// the target, ordered by id. A non-empty types list restricts the result to
// those (already normalized) types.
func (s *Store) RelationshipsOf(ctx context.Context, entityID int64, types []string) ([]models.Relationship, error) {
	var w where
	w.add("(source_id = ? OR target_id = ?)", entityID, entityID)
	if len(types) > 0 {
		args := make([]any, len(types))
		for i, t := range types {
			args[i] = t
		}
		w.add("type IN ("+placeholders(len(types))+")", args...)
	}
	out, err := queryRelationships(ctx, s.db,
		`SELECT `+relationshipColumns+` FROM relationships`+w.String()+` ORDER BY id`, w.args...)
	if err != nil {
		return nil, apperr.Storage("relationships of entity", err)
	}
	return out, nil
}

// UpdateRelationship changes the type and merges metadata. Endpoints are
// immutable.
func (s *Store) UpdateRelationship(ctx context.Context, id int64, in models.RelationshipUpdate) (*models.Relationship, error) {
	var typ *string
	if in.Type != nil {
		t, err := s.vocab.Relationship.Check("type", *in.Type)
		if err != nil {
			return nil, err
		}
		typ = &t
	}

	now := s.timestamp()
	var updated models.Relationship
	err := s.withTx(ctx, "update relationship", func(tx *sql.Tx) error {
		cur, err := getRelationship(ctx, tx, id)
		if err != nil {
			return err
		}
		if typ != nil {
			cur.Type = *typ
		}
		if in.MetadataPatch != nil {
			cur.Metadata = cur.Metadata.Merge(in.MetadataPatch)
		}
		updated, err = scanRelationship(tx.QueryRowContext(ctx,
			`UPDATE relationships SET type = ?, metadata = ?, updated_at = ? WHERE id = ?
			 RETURNING `+relationshipColumns,
			cur.Type, cur.Metadata, now, id,
		))
		if err != nil {
			return fmt.Errorf("update relationship %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteRelationship removes one relationship and returns it as it was.
func (s *Store) DeleteRelationship(ctx context.Context, id int64) (*models.Relationship, error) {
	var deleted models.Relationship
	err := s.withTx(ctx, "delete relationship", func(tx *sql.Tx) error {
		var err error
		if deleted, err = getRelationship(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM relationships WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete relationship %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &deleted, nil
}
