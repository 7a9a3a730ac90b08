package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wagnerlima/memory-cloud/infra-memory/internal/apperr"
	"github.com/wagnerlima/memory-cloud/infra-memory/internal/models"
)

const observationColumns = `id, entity_id, type, observation_type, value, metadata, created_at, updated_at`

func scanObservation(row rowScanner) (models.Observation, error) {
	var (
		o                       models.Observation
		value, created, updated string
	)
	if err := row.Scan(&o.ID, &o.EntityID, &o.Type, &o.ObservationType, &value, &o.Metadata, &created, &updated); err != nil {
		return o, err
	}
	o.Value = json.RawMessage(value)
	return o, parseTimes(&o.CreatedAt, &o.UpdatedAt, created, updated)
}

func getObservation(ctx context.Context, q querier, id int64) (models.Observation, error) {
	o, err := scanObservation(q.QueryRowContext(ctx, `SELECT `+observationColumns+` FROM observations WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return o, apperr.NotFound("observation", id)
	}
	if err != nil {
		return o, fmt.Errorf("get observation %d: %w", id, err)
	}
	return o, nil
}

func checkValue(raw json.RawMessage) error {
	if !models.IsStructuredJSON(raw) {
		return apperr.Validation("value", "structured", "observation value must be a JSON object or array")
	}
	return nil
}

// CreateObservation attaches a typed fact to an existing entity.
func (s *Store) CreateObservation(ctx context.Context, in models.ObservationInput) (*models.Observation, error) {
	typ, err := s.vocab.Observation.Check("type", in.Type)
	if err != nil {
		return nil, err
	}
	subtype, err := requireText("observation_type", in.ObservationType)
	if err != nil {
		return nil, err
	}
	if err := checkValue(in.Value); err != nil {
		return nil, err
	}

	now := s.timestamp()
	var created models.Observation
	err = s.withTx(ctx, "create observation", func(tx *sql.Tx) error {
		ok, err := exists(ctx, tx, "entities", in.EntityID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound("entity", in.EntityID)
		}
		created, err = scanObservation(tx.QueryRowContext(ctx,
			`INSERT INTO observations (entity_id, type, observation_type, value, metadata, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 RETURNING `+observationColumns,
			in.EntityID, typ, subtype, string(in.Value), in.Metadata, now, now,
		))
		if err != nil {
			return fmt.Errorf("insert observation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// GetObservation returns one observation by id.
func (s *Store) GetObservation(ctx context.Context, id int64) (*models.Observation, error) {
	o, err := getObservation(ctx, s.db, id)
	if err != nil {
		return nil, translate("get observation", err)
	}
	return &o, nil
}

// ListObservations returns observations ordered by id.
func (s *Store) ListObservations(ctx context.Context, f models.ObservationFilter) ([]models.Observation, error) {
	var w where
	if f.EntityID != nil {
		w.add("entity_id = ?", *f.EntityID)
	}
	if f.Type != nil {
		typ, err := s.vocab.Observation.Check("type", *f.Type)
		if err != nil {
			return nil, err
		}
		w.add("type = ?", typ)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+observationColumns+` FROM observations`+w.String()+` ORDER BY id`, w.args...)
	if err != nil {
		return nil, apperr.Storage("list observations", err)
	}
	defer rows.Close()

	out := []models.Observation{}
	for rows.Next() {
		o, err := scanObservation(rows)
		if err != nil {
			return nil, apperr.Storage("scan observation", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("list observations", err)
	}
	return out, nil
}

// UpdateObservation replaces the value and merges metadata.
func (s *Store) UpdateObservation(ctx context.Context, id int64, in models.ObservationUpdate) (*models.Observation, error) {
	if in.Value != nil {
		if err := checkValue(in.Value); err != nil {
			return nil, err
		}
	}

	now := s.timestamp()
	var updated models.Observation
	err := s.withTx(ctx, "update observation", func(tx *sql.Tx) error {
		cur, err := getObservation(ctx, tx, id)
		if err != nil {
			return err
		}
		if in.Value != nil {
			cur.Value = in.Value
		}
		if in.MetadataPatch != nil {
			cur.Metadata = cur.Metadata.Merge(in.MetadataPatch)
		}
		updated, err = scanObservation(tx.QueryRowContext(ctx,
			`UPDATE observations SET value = ?, metadata = ?, updated_at = ? WHERE id = ?
			 RETURNING `+observationColumns,
			string(cur.Value), cur.Metadata, now, id,
		))
		if err != nil {
			return fmt.Errorf("update observation %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteObservation removes one observation and returns it as it was.
func (s *Store) DeleteObservation(ctx context.Context, id int64) (*models.Observation, error) {
	var deleted models.Observation
	err := s.withTx(ctx, "delete observation", func(tx *sql.Tx) error {
		var err error
		if deleted, err = getObservation(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM observations WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete observation %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &deleted, nil
}
