package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/wagnerlima/memory-cloud/infra-memory/internal/apperr"
	"github.com/wagnerlima/memory-cloud/infra-memory/internal/models"
)

const (
	// DefaultPerPage is used when a listing does not specify a page size.
	DefaultPerPage = 20
	// MaxPerPage is the largest accepted page size.
	MaxPerPage = 100
)

const entityColumns = `id, name, type, metadata, tags, version, created_at, updated_at`

func scanEntity(row rowScanner) (models.Entity, error) {
	var (
		e                models.Entity
		created, updated string
	)
	if err := row.Scan(&e.ID, &e.Name, &e.Type, &e.Metadata, &e.Tags, &e.Version, &created, &updated); err != nil {
		return e, err
	}
	return e, parseTimes(&e.CreatedAt, &e.UpdatedAt, created, updated)
}

func getEntity(ctx context.Context, q querier, id int64) (models.Entity, error) {
	e, err := scanEntity(q.QueryRowContext(ctx, `SELECT `+entityColumns+` FROM entities WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return e, apperr.NotFound("entity", id)
	}
	if err != nil {
		return e, fmt.Errorf("get entity %d: %w", id, err)
	}
	return e, nil
}

// CreateEntity validates and inserts a new entity at version 1.
func (s *Store) CreateEntity(ctx context.Context, in models.EntityInput) (*models.Entity, error) {
	name, err := requireText("name", in.Name)
	if err != nil {
		return nil, err
	}
	typ, err := s.vocab.Entity.Check("type", in.Type)
	if err != nil {
		return nil, err
	}

	now := s.timestamp()
	var created models.Entity
	err = s.withTx(ctx, "create entity", func(tx *sql.Tx) error {
		var scanErr error
		created, scanErr = scanEntity(tx.QueryRowContext(ctx,
			`INSERT INTO entities (name, type, metadata, tags, version, created_at, updated_at)
			 VALUES (?, ?, ?, ?, 1, ?, ?)
			 RETURNING `+entityColumns,
			name, typ, in.Metadata, models.CleanTags(in.Tags), now, now,
		))
		if scanErr != nil {
			return fmt.Errorf("insert entity %q: %w", name, scanErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("entity created", zap.Int64("entity_id", created.ID), zap.String("type", typ))
	return &created, nil
}

// GetEntity returns one entity by id.
func (s *Store) GetEntity(ctx context.Context, id int64) (*models.Entity, error) {
	e, err := getEntity(ctx, s.db, id)
	if err != nil {
		return nil, translate("get entity", err)
	}
	return &e, nil
}

// ListEntities returns one page of entities ordered by id.
func (s *Store) ListEntities(ctx context.Context, f models.EntityFilter) (*models.EntityPage, error) {
	page, perPage := f.Page, f.PerPage
	if page < 0 {
		return nil, apperr.Validation("page", "min", "page must be at least 1").WithDetail("value", page)
	}
	if page == 0 {
		page = 1
	}
	if perPage == 0 {
		perPage = DefaultPerPage
	}
	if perPage < 0 || perPage > MaxPerPage {
		return nil, apperr.Validation("per_page", "range", fmt.Sprintf("per_page must be between 1 and %d", MaxPerPage)).
			WithDetail("value", perPage).
			WithDetail("limit", MaxPerPage)
	}

	var w where
	if f.Type != nil {
		typ, err := s.vocab.Entity.Check("type", *f.Type)
		if err != nil {
			return nil, err
		}
		w.add("type = ?", typ)
	}
	if f.CreatedAfter != nil {
		w.add("created_at > ?", formatTime(*f.CreatedAfter))
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entities`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, apperr.Storage("count entities", err)
	}

	args := append(append([]any{}, w.args...), perPage, (page-1)*perPage)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entityColumns+` FROM entities`+w.String()+` ORDER BY id LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, apperr.Storage("list entities", err)
	}
	defer rows.Close()

	items := []models.Entity{}
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, apperr.Storage("scan entity", err)
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("list entities", err)
	}

	return &models.EntityPage{
		Items:   items,
		Page:    page,
		PerPage: perPage,
		Total:   total,
		Pages:   (total + perPage - 1) / perPage,
	}, nil
}

// UpdateEntity renames, merges metadata and replaces tags. The write is
// guarded by the version read in the same transaction.
func (s *Store) UpdateEntity(ctx context.Context, id int64, in models.EntityUpdate) (*models.Entity, error) {
	var name *string
	if in.Name != nil {
		n, err := requireText("name", *in.Name)
		if err != nil {
			return nil, err
		}
		name = &n
	}

	now := s.timestamp()
	var updated models.Entity
	err := s.withTx(ctx, "update entity", func(tx *sql.Tx) error {
		cur, err := getEntity(ctx, tx, id)
		if err != nil {
			return err
		}
		if in.ExpectedVersion != nil && *in.ExpectedVersion != cur.Version {
			return apperr.ConcurrentModification("entity", id, *in.ExpectedVersion, cur.Version)
		}

		next := cur
		if name != nil {
			next.Name = *name
		}
		if in.MetadataPatch != nil {
			next.Metadata = cur.Metadata.Merge(in.MetadataPatch)
		}
		if in.Tags != nil {
			next.Tags = models.CleanTags(in.Tags)
		}

		updated, err = scanEntity(tx.QueryRowContext(ctx,
			`UPDATE entities SET name = ?, metadata = ?, tags = ?, version = version + 1, updated_at = ?
			 WHERE id = ? AND version = ?
			 RETURNING `+entityColumns,
			next.Name, next.Metadata, next.Tags, now, id, cur.Version,
		))
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.ConcurrentModification("entity", id, cur.Version, cur.Version+1)
		}
		if err != nil {
			return fmt.Errorf("update entity %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteEntity removes the entity together with every relationship that
// names it as source or target and every observation it owns.
func (s *Store) DeleteEntity(ctx context.Context, id int64) (*models.EntityDeletion, error) {
	result := &models.EntityDeletion{EntityID: id}
	err := s.withTx(ctx, "delete entity", func(tx *sql.Tx) error {
		ok, err := exists(ctx, tx, "entities", id)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound("entity", id)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM relationships WHERE source_id = ? OR target_id = ?`, id, id)
		if err != nil {
			return fmt.Errorf("delete relationships of entity %d: %w", id, err)
		}
		result.Relationships = rowsAffected(res)

		res, err = tx.ExecContext(ctx, `DELETE FROM observations WHERE entity_id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete observations of entity %d: %w", id, err)
		}
		result.Observations = rowsAffected(res)

		if _, err := tx.ExecContext(ctx, `DELETE FROM entities WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete entity %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("entity deleted",
		zap.Int64("entity_id", id),
		zap.Int64("relationships", result.Relationships),
		zap.Int64("observations", result.Observations),
	)
	return result, nil
}

// SearchEntities runs a full-text match over entity names and types. Each
// whitespace separated term is matched as a prefix; any term may match.
func (s *Store) SearchEntities(ctx context.Context, in models.EntitySearch) ([]models.Entity, error) {
	match := ftsQuery(in.Query)
	if match == "" {
		return nil, apperr.Validation("query", "required", "search query cannot be empty")
	}
	limit := in.Limit
	if limit == 0 {
		limit = DefaultPerPage
	}
	if limit < 0 || limit > MaxPerPage {
		return nil, apperr.Validation("limit", "range", fmt.Sprintf("limit must be between 1 and %d", MaxPerPage)).
			WithDetail("value", limit).
			WithDetail("limit", MaxPerPage)
	}
	if in.Offset < 0 {
		return nil, apperr.Validation("offset", "min", "offset cannot be negative").WithDetail("value", in.Offset)
	}

	var w where
	w.add("entities_fts MATCH ?", match)
	if in.Type != nil {
		typ, err := s.vocab.Entity.Check("type", *in.Type)
		if err != nil {
			return nil, err
		}
		w.add("e.type = ?", typ)
	}
	args := append(w.args, limit, in.Offset)

	rows, err := s.db.QueryContext(ctx,
		`SELECT e.id, e.name, e.type, e.metadata, e.tags, e.version, e.created_at, e.updated_at
		 FROM entities e
		 JOIN entities_fts ON entities_fts.rowid = e.id`+w.String()+`
		 ORDER BY e.id LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, apperr.Storage("search entities", err)
	}
	defer rows.Close()

	out := []models.Entity{}
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, apperr.Storage("scan entity", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("search entities", err)
	}
	return out, nil
}

// ftsQuery turns free text into an FTS5 expression of quoted prefix terms
// joined with OR, so user input never reaches the FTS5 query parser raw.
func ftsQuery(text string) string {
	fields := strings.Fields(text)
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		terms = append(terms, `"`+strings.ReplaceAll(f, `"`, `""`)+`"*`)
	}
	return strings.Join(terms, " OR ")
}
