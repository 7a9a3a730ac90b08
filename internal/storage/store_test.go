package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/wagnerlima/memory-cloud/infra-memory/internal/apperr"
	"github.com/wagnerlima/memory-cloud/infra-memory/internal/models"
)

// setupStore creates a fresh database in a temp directory. The clock advances
// one second per call so timestamps are distinct and ordered.
func setupStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	clock := func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	s, err := Open(dbPath, models.DefaultVocabulary(), WithLogger(zaptest.NewLogger(t)), WithClock(clock))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustEntity(t *testing.T, s *Store, name, typ string) *models.Entity {
	t.Helper()
	e, err := s.CreateEntity(context.Background(), models.EntityInput{Name: name, Type: typ})
	if err != nil {
		t.Fatalf("CreateEntity(%q): %v", name, err)
	}
	return e
}

func mustRelationship(t *testing.T, s *Store, src, tgt int64, typ string) *models.Relationship {
	t.Helper()
	r, err := s.CreateRelationship(context.Background(), models.RelationshipInput{SourceID: src, TargetID: tgt, Type: typ})
	if err != nil {
		t.Fatalf("CreateRelationship(%d->%d): %v", src, tgt, err)
	}
	return r
}

func wantKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := apperr.KindOf(err); got != kind {
		t.Fatalf("error kind = %q, want %q (err: %v)", got, kind, err)
	}
}

func TestOpenSetsSchemaVersion(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "memory.db")
	s, err := Open(dbPath, models.DefaultVocabulary())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s.Close()

	// Reopening an existing database must not fail on the schema.
	s, err = Open(dbPath, models.DefaultVocabulary())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	var version int
	if err := s.db.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
		t.Fatalf("user_version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, want %d", version, currentSchemaVersion)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	err := s.withTx(ctx, "failing", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO entities (name, type, created_at, updated_at) VALUES ('x', 'server', '', '')`); err != nil {
			return err
		}
		return apperr.Validation("name", "test", "forced failure")
	})
	wantKind(t, err, apperr.KindValidation)

	page, err := s.ListEntities(ctx, models.EntityFilter{})
	if err != nil {
		t.Fatalf("ListEntities: %v", err)
	}
	if page.Total != 0 {
		t.Errorf("Total = %d after rollback, want 0", page.Total)
	}
}

func TestForeignKeyViolationIsReferentialIntegrity(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	err := s.withTx(ctx, "raw insert", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO observations (entity_id, type, observation_type, value, created_at, updated_at)
			 VALUES (999, 'state', 'x', '{}', '', '')`)
		return err
	})
	wantKind(t, err, apperr.KindReferentialIntegrity)
}

func TestFTSQuery(t *testing.T) {
	cases := map[string]string{
		"web":          `"web"*`,
		"  web  prod ": `"web"* OR "prod"*`,
		`say "hi"`:     `"say"* OR """hi"""*`,
		"   ":          "",
	}
	for in, want := range cases {
		if got := ftsQuery(in); got != want {
			t.Errorf("ftsQuery(%q) = %q, want %q", in, got, want)
		}
	}
}
