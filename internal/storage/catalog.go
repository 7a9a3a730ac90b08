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

// Provider / ResourceArgument catalog.

const (
	providerColumns = `id, name, type, version, metadata, created_at, updated_at`
	argumentColumns = `id, provider_id, name, resource_type, schema, metadata, created_at, updated_at`
)

func scanProvider(row rowScanner) (models.Provider, error) {
	var (
		p                models.Provider
		created, updated string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Type, &p.Version, &p.Metadata, &created, &updated); err != nil {
		return p, err
	}
	return p, parseTimes(&p.CreatedAt, &p.UpdatedAt, created, updated)
}

func scanArgument(row rowScanner) (models.ResourceArgument, error) {
	var (
		a                        models.ResourceArgument
		schema, created, updated string
	)
	if err := row.Scan(&a.ID, &a.ProviderID, &a.Name, &a.ResourceType, &schema, &a.Metadata, &created, &updated); err != nil {
		return a, err
	}
	a.Schema = json.RawMessage(schema)
	return a, parseTimes(&a.CreatedAt, &a.UpdatedAt, created, updated)
}

func getProvider(ctx context.Context, q querier, id int64) (models.Provider, error) {
	p, err := scanProvider(q.QueryRowContext(ctx, `SELECT `+providerColumns+` FROM providers WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return p, apperr.NotFound("provider", id)
	}
	if err != nil {
		return p, fmt.Errorf("get provider %d: %w", id, err)
	}
	return p, nil
}

func getArgument(ctx context.Context, q querier, id int64) (models.ResourceArgument, error) {
	a, err := scanArgument(q.QueryRowContext(ctx, `SELECT `+argumentColumns+` FROM resource_arguments WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return a, apperr.NotFound("resource argument", id)
	}
	if err != nil {
		return a, fmt.Errorf("get resource argument %d: %w", id, err)
	}
	return a, nil
}

func checkSchema(raw json.RawMessage) error {
	if !models.IsJSONObject(raw) {
		return apperr.Validation("schema", "object", "schema must be a JSON object")
	}
	return nil
}

// optionalText validates an optional replacement for a required text field.
func optionalText(field string, v *string) (*string, error) {
	if v == nil {
		return nil, nil
	}
	t, err := requireText(field, *v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateProvider inserts a catalog provider.
func (s *Store) CreateProvider(ctx context.Context, in models.ProviderInput) (*models.Provider, error) {
	name, err := requireText("name", in.Name)
	if err != nil {
		return nil, err
	}
	typ, err := s.vocab.Provider.Check("type", in.Type)
	if err != nil {
		return nil, err
	}
	version, err := requireText("version", in.Version)
	if err != nil {
		return nil, err
	}

	now := s.timestamp()
	var created models.Provider
	err = s.withTx(ctx, "create provider", func(tx *sql.Tx) error {
		var err error
		created, err = scanProvider(tx.QueryRowContext(ctx,
			`INSERT INTO providers (name, type, version, metadata, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)
			 RETURNING `+providerColumns,
			name, typ, version, in.Metadata, now, now,
		))
		if err != nil {
			return fmt.Errorf("insert provider %q: %w", name, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// GetProvider returns one provider by id.
func (s *Store) GetProvider(ctx context.Context, id int64) (*models.Provider, error) {
	p, err := getProvider(ctx, s.db, id)
	if err != nil {
		return nil, translate("get provider", err)
	}
	return &p, nil
}

// ListProviders returns providers ordered by id.
func (s *Store) ListProviders(ctx context.Context, f models.ProviderFilter) ([]models.Provider, error) {
	var w where
	if f.Type != nil {
		typ, err := s.vocab.Provider.Check("type", *f.Type)
		if err != nil {
			return nil, err
		}
		w.add("type = ?", typ)
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+providerColumns+` FROM providers`+w.String()+` ORDER BY id`, w.args...)
	if err != nil {
		return nil, apperr.Storage("list providers", err)
	}
	defer rows.Close()

	out := []models.Provider{}
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, apperr.Storage("scan provider", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("list providers", err)
	}
	return out, nil
}

// UpdateProvider replaces the given fields and merges metadata.
func (s *Store) UpdateProvider(ctx context.Context, id int64, in models.ProviderUpdate) (*models.Provider, error) {
	name, err := optionalText("name", in.Name)
	if err != nil {
		return nil, err
	}
	version, err := optionalText("version", in.Version)
	if err != nil {
		return nil, err
	}
	var typ *string
	if in.Type != nil {
		t, err := s.vocab.Provider.Check("type", *in.Type)
		if err != nil {
			return nil, err
		}
		typ = &t
	}

	now := s.timestamp()
	var updated models.Provider
	err = s.withTx(ctx, "update provider", func(tx *sql.Tx) error {
		cur, err := getProvider(ctx, tx, id)
		if err != nil {
			return err
		}
		if name != nil {
			cur.Name = *name
		}
		if typ != nil {
			cur.Type = *typ
		}
		if version != nil {
			cur.Version = *version
		}
		if in.MetadataPatch != nil {
			cur.Metadata = cur.Metadata.Merge(in.MetadataPatch)
		}
		updated, err = scanProvider(tx.QueryRowContext(ctx,
			`UPDATE providers SET name = ?, type = ?, version = ?, metadata = ?, updated_at = ? WHERE id = ?
			 RETURNING `+providerColumns,
			cur.Name, cur.Type, cur.Version, cur.Metadata, now, id,
		))
		if err != nil {
			return fmt.Errorf("update provider %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteProvider removes the provider and all of its resource arguments.
func (s *Store) DeleteProvider(ctx context.Context, id int64) (*models.ChildDeletion, error) {
	return s.deleteOwner(ctx, "provider", "providers", "resource_arguments", "provider_id", id)
}

// CreateResourceArgument inserts an argument for an existing provider.
func (s *Store) CreateResourceArgument(ctx context.Context, in models.ResourceArgumentInput) (*models.ResourceArgument, error) {
	name, err := requireText("name", in.Name)
	if err != nil {
		return nil, err
	}
	resourceType, err := requireText("resource_type", in.ResourceType)
	if err != nil {
		return nil, err
	}
	if err := checkSchema(in.Schema); err != nil {
		return nil, err
	}

	now := s.timestamp()
	var created models.ResourceArgument
	err = s.withTx(ctx, "create resource argument", func(tx *sql.Tx) error {
		ok, err := exists(ctx, tx, "providers", in.ProviderID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound("provider", in.ProviderID)
		}
		created, err = scanArgument(tx.QueryRowContext(ctx,
			`INSERT INTO resource_arguments (provider_id, name, resource_type, schema, metadata, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 RETURNING `+argumentColumns,
			in.ProviderID, name, resourceType, string(in.Schema), in.Metadata, now, now,
		))
		if err != nil {
			return fmt.Errorf("insert resource argument %q: %w", name, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// GetResourceArgument returns one resource argument by id.
func (s *Store) GetResourceArgument(ctx context.Context, id int64) (*models.ResourceArgument, error) {
	a, err := getArgument(ctx, s.db, id)
	if err != nil {
		return nil, translate("get resource argument", err)
	}
	return &a, nil
}

// ListResourceArguments returns arguments ordered by id.
func (s *Store) ListResourceArguments(ctx context.Context, f models.ResourceArgumentFilter) ([]models.ResourceArgument, error) {
	var w where
	if f.ProviderID != nil {
		w.add("provider_id = ?", *f.ProviderID)
	}
	if f.ResourceType != nil {
		w.add("resource_type = ?", strings.TrimSpace(*f.ResourceType))
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+argumentColumns+` FROM resource_arguments`+w.String()+` ORDER BY id`, w.args...)
	if err != nil {
		return nil, apperr.Storage("list resource arguments", err)
	}
	defer rows.Close()

	out := []models.ResourceArgument{}
	for rows.Next() {
		a, err := scanArgument(rows)
		if err != nil {
			return nil, apperr.Storage("scan resource argument", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("list resource arguments", err)
	}
	return out, nil
}

// UpdateResourceArgument replaces the given fields and merges metadata.
func (s *Store) UpdateResourceArgument(ctx context.Context, id int64, in models.ResourceArgumentUpdate) (*models.ResourceArgument, error) {
	name, err := optionalText("name", in.Name)
	if err != nil {
		return nil, err
	}
	resourceType, err := optionalText("resource_type", in.ResourceType)
	if err != nil {
		return nil, err
	}
	if in.Schema != nil {
		if err := checkSchema(in.Schema); err != nil {
			return nil, err
		}
	}

	now := s.timestamp()
	var updated models.ResourceArgument
	err = s.withTx(ctx, "update resource argument", func(tx *sql.Tx) error {
		cur, err := getArgument(ctx, tx, id)
		if err != nil {
			return err
		}
		if name != nil {
			cur.Name = *name
		}
		if resourceType != nil {
			cur.ResourceType = *resourceType
		}
		if in.Schema != nil {
			cur.Schema = in.Schema
		}
		if in.MetadataPatch != nil {
			cur.Metadata = cur.Metadata.Merge(in.MetadataPatch)
		}
		updated, err = scanArgument(tx.QueryRowContext(ctx,
			`UPDATE resource_arguments SET name = ?, resource_type = ?, schema = ?, metadata = ?, updated_at = ? WHERE id = ?
			 RETURNING `+argumentColumns,
			cur.Name, cur.ResourceType, string(cur.Schema), cur.Metadata, now, id,
		))
		if err != nil {
			return fmt.Errorf("update resource argument %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteResourceArgument removes one resource argument.
func (s *Store) DeleteResourceArgument(ctx context.Context, id int64) (*models.ResourceArgument, error) {
	var deleted models.ResourceArgument
	err := s.withTx(ctx, "delete resource argument", func(tx *sql.Tx) error {
		var err error
		if deleted, err = getArgument(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM resource_arguments WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete resource argument %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &deleted, nil
}

// deleteOwner removes the children of a catalog owner and then the owner in
// one transaction.
func (s *Store) deleteOwner(ctx context.Context, resource, table, childTable, fk string, id int64) (*models.ChildDeletion, error) {
	result := &models.ChildDeletion{ID: id}
	err := s.withTx(ctx, "delete "+resource, func(tx *sql.Tx) error {
		ok, err := exists(ctx, tx, table, id)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound(resource, id)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM `+childTable+` WHERE `+fk+` = ?`, id)
		if err != nil {
			return fmt.Errorf("delete %s of %s %d: %w", childTable, resource, id, err)
		}
		result.Children = rowsAffected(res)
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete %s %d: %w", resource, id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
