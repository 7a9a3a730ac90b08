package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/wagnerlima/memory-cloud/infra-memory/internal/apperr"
	"github.com/wagnerlima/memory-cloud/infra-memory/internal/models"
)

// Collection / ModuleParameter catalog.

const (
	collectionColumns = `id, namespace, name, version, metadata, created_at, updated_at`
	parameterColumns  = `id, collection_id, module_name, name, schema, metadata, created_at, updated_at`
)

func scanCollection(row rowScanner) (models.Collection, error) {
	var (
		c                models.Collection
		created, updated string
	)
	if err := row.Scan(&c.ID, &c.Namespace, &c.Name, &c.Version, &c.Metadata, &created, &updated); err != nil {
		return c, err
	}
	return c, parseTimes(&c.CreatedAt, &c.UpdatedAt, created, updated)
}

func scanParameter(row rowScanner) (models.ModuleParameter, error) {
	var (
		p                        models.ModuleParameter
		schema, created, updated string
	)
	if err := row.Scan(&p.ID, &p.CollectionID, &p.ModuleName, &p.Name, &schema, &p.Metadata, &created, &updated); err != nil {
		return p, err
	}
	p.Schema = json.RawMessage(schema)
	return p, parseTimes(&p.CreatedAt, &p.UpdatedAt, created, updated)
}

func getCollection(ctx context.Context, q querier, id int64) (models.Collection, error) {
	c, err := scanCollection(q.QueryRowContext(ctx, `SELECT `+collectionColumns+` FROM ansible_collections WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return c, apperr.NotFound("collection", id)
	}
	if err != nil {
		return c, fmt.Errorf("get collection %d: %w", id, err)
	}
	return c, nil
}

func getParameter(ctx context.Context, q querier, id int64) (models.ModuleParameter, error) {
	p, err := scanParameter(q.QueryRowContext(ctx, `SELECT `+parameterColumns+` FROM module_parameters WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return p, apperr.NotFound("module parameter", id)
	}
	if err != nil {
		return p, fmt.Errorf("get module parameter %d: %w", id, err)
	}
	return p, nil
}

// CreateCollection inserts an Ansible collection.
func (s *Store) CreateCollection(ctx context.Context, in models.CollectionInput) (*models.Collection, error) {
	namespace, err := requireText("namespace", in.Namespace)
	if err != nil {
		return nil, err
	}
	name, err := requireText("name", in.Name)
	if err != nil {
		return nil, err
	}
	version, err := requireText("version", in.Version)
	if err != nil {
		return nil, err
	}

	now := s.timestamp()
	var created models.Collection
	err = s.withTx(ctx, "create collection", func(tx *sql.Tx) error {
		var err error
		created, err = scanCollection(tx.QueryRowContext(ctx,
			`INSERT INTO ansible_collections (namespace, name, version, metadata, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)
			 RETURNING `+collectionColumns,
			namespace, name, version, in.Metadata, now, now,
		))
		if err != nil {
			return fmt.Errorf("insert collection %s.%s: %w", namespace, name, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// GetCollection returns one collection by id.
func (s *Store) GetCollection(ctx context.Context, id int64) (*models.Collection, error) {
	c, err := getCollection(ctx, s.db, id)
	if err != nil {
		return nil, translate("get collection", err)
	}
	return &c, nil
}

// ListCollections returns collections ordered by id.
func (s *Store) ListCollections(ctx context.Context, f models.CollectionFilter) ([]models.Collection, error) {
	var w where
	if f.Namespace != nil {
		w.add("namespace = ?", strings.TrimSpace(*f.Namespace))
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+collectionColumns+` FROM ansible_collections`+w.String()+` ORDER BY id`, w.args...)
	if err != nil {
		return nil, apperr.Storage("list collections", err)
	}
	defer rows.Close()

	out := []models.Collection{}
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, apperr.Storage("scan collection", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("list collections", err)
	}
	return out, nil
}

// UpdateCollection replaces the given fields and merges metadata.
func (s *Store) UpdateCollection(ctx context.Context, id int64, in models.CollectionUpdate) (*models.Collection, error) {
	namespace, err := optionalText("namespace", in.Namespace)
	if err != nil {
		return nil, err
	}
	name, err := optionalText("name", in.Name)
	if err != nil {
		return nil, err
	}
	version, err := optionalText("version", in.Version)
	if err != nil {
		return nil, err
	}

	now := s.timestamp()
	var updated models.Collection
	err = s.withTx(ctx, "update collection", func(tx *sql.Tx) error {
		cur, err := getCollection(ctx, tx, id)
		if err != nil {
			return err
		}
		if namespace != nil {
			cur.Namespace = *namespace
		}
		if name != nil {
			cur.Name = *name
		}
		if version != nil {
			cur.Version = *version
		}
		if in.MetadataPatch != nil {
			cur.Metadata = cur.Metadata.Merge(in.MetadataPatch)
		}
		updated, err = scanCollection(tx.QueryRowContext(ctx,
			`UPDATE ansible_collections SET namespace = ?, name = ?, version = ?, metadata = ?, updated_at = ? WHERE id = ?
			 RETURNING `+collectionColumns,
			cur.Namespace, cur.Name, cur.Version, cur.Metadata, now, id,
		))
		if err != nil {
			return fmt.Errorf("update collection %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteCollection removes the collection and all of its module parameters.
func (s *Store) DeleteCollection(ctx context.Context, id int64) (*models.ChildDeletion, error) {
	return s.deleteOwner(ctx, "collection", "ansible_collections", "module_parameters", "collection_id", id)
}

// CreateModuleParameter inserts a parameter for an existing collection.
func (s *Store) CreateModuleParameter(ctx context.Context, in models.ModuleParameterInput) (*models.ModuleParameter, error) {
	moduleName, err := requireText("module_name", in.ModuleName)
	if err != nil {
		return nil, err
	}
	name, err := requireText("name", in.Name)
	if err != nil {
		return nil, err
	}
	if err := checkSchema(in.Schema); err != nil {
		return nil, err
	}

	now := s.timestamp()
	var created models.ModuleParameter
	err = s.withTx(ctx, "create module parameter", func(tx *sql.Tx) error {
		ok, err := exists(ctx, tx, "ansible_collections", in.CollectionID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound("collection", in.CollectionID)
		}
		created, err = scanParameter(tx.QueryRowContext(ctx,
			`INSERT INTO module_parameters (collection_id, module_name, name, schema, metadata, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 RETURNING `+parameterColumns,
			in.CollectionID, moduleName, name, string(in.Schema), in.Metadata, now, now,
		))
		if err != nil {
			return fmt.Errorf("insert module parameter %q: %w", name, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// GetModuleParameter returns one module parameter by id.
func (s *Store) GetModuleParameter(ctx context.Context, id int64) (*models.ModuleParameter, error) {
	p, err := getParameter(ctx, s.db, id)
	if err != nil {
		return nil, translate("get module parameter", err)
	}
	return &p, nil
}

// ListModuleParameters returns parameters ordered by id.
func (s *Store) ListModuleParameters(ctx context.Context, f models.ModuleParameterFilter) ([]models.ModuleParameter, error) {
	var w where
	if f.CollectionID != nil {
		w.add("collection_id = ?", *f.CollectionID)
	}
	if f.ModuleName != nil {
		w.add("module_name = ?", strings.TrimSpace(*f.ModuleName))
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+parameterColumns+` FROM module_parameters`+w.String()+` ORDER BY id`, w.args...)
	if err != nil {
		return nil, apperr.Storage("list module parameters", err)
	}
	defer rows.Close()

	out := []models.ModuleParameter{}
	for rows.Next() {
		p, err := scanParameter(rows)
		if err != nil {
			return nil, apperr.Storage("scan module parameter", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("list module parameters", err)
	}
	return out, nil
}

// UpdateModuleParameter replaces the given fields and merges metadata.
func (s *Store) UpdateModuleParameter(ctx context.Context, id int64, in models.ModuleParameterUpdate) (*models.ModuleParameter, error) {
	moduleName, err := optionalText("module_name", in.ModuleName)
	if err != nil {
		return nil, err
	}
	name, err := optionalText("name", in.Name)
	if err != nil {
		return nil, err
	}
	if in.Schema != nil {
		if err := checkSchema(in.Schema); err != nil {
			return nil, err
		}
	}

	now := s.timestamp()
	var updated models.ModuleParameter
	err = s.withTx(ctx, "update module parameter", func(tx *sql.Tx) error {
		cur, err := getParameter(ctx, tx, id)
		if err != nil {
			return err
		}
		if moduleName != nil {
			cur.ModuleName = *moduleName
		}
		if name != nil {
			cur.Name = *name
		}
		if in.Schema != nil {
			cur.Schema = in.Schema
		}
		if in.MetadataPatch != nil {
			cur.Metadata = cur.Metadata.Merge(in.MetadataPatch)
		}
		updated, err = scanParameter(tx.QueryRowContext(ctx,
			`UPDATE module_parameters SET module_name = ?, name = ?, schema = ?, metadata = ?, updated_at = ? WHERE id = ?
			 RETURNING `+parameterColumns,
			cur.ModuleName, cur.Name, string(cur.Schema), cur.Metadata, now, id,
		))
		if err != nil {
			return fmt.Errorf("update module parameter %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteModuleParameter removes one module parameter.
func (s *Store) DeleteModuleParameter(ctx context.Context, id int64) (*models.ModuleParameter, error) {
	var deleted models.ModuleParameter
	err := s.withTx(ctx, "delete module parameter", func(tx *sql.Tx) error {
		var err error
		if deleted, err = getParameter(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM module_parameters WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete module parameter %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &deleted, nil
}
