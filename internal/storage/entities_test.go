package storage

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/wagnerlima/memory-cloud/infra-memory/internal/apperr"
	"github.com/wagnerlima/memory-cloud/infra-memory/internal/models"
)

func ptr[T any](v T) *T { return &v }

func TestCreateAndGetEntity(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	created, err := s.CreateEntity(ctx, models.EntityInput{
		Name:     "  web-01  ",
		Type:     " Server ",
		Metadata: models.Metadata{"region": "eu-west-1"},
		Tags:     []string{" prod ", "", "web"},
	})
	if err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("Entity ID should not be zero")
	}
	if created.Name != "web-01" {
		t.Errorf("Name = %q, want %q", created.Name, "web-01")
	}
	if created.Type != "server" {
		t.Errorf("Type = %q, want %q", created.Type, "server")
	}
	if created.Version != 1 {
		t.Errorf("Version = %d, want 1", created.Version)
	}
	if !reflect.DeepEqual(created.Tags, models.Tags{"prod", "web"}) {
		t.Errorf("Tags = %v, want [prod web]", created.Tags)
	}
	if created.CreatedAt.IsZero() || !created.CreatedAt.Equal(created.UpdatedAt) {
		t.Errorf("timestamps not assigned: created=%v updated=%v", created.CreatedAt, created.UpdatedAt)
	}

	first, err := s.GetEntity(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetEntity: %v", err)
	}
	second, err := s.GetEntity(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetEntity: %v", err)
	}
	if !reflect.DeepEqual(first, created) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", first, created)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated get differs:\n%+v\n%+v", first, second)
	}
}

func TestCreateEntityValidation(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	_, err := s.CreateEntity(ctx, models.EntityInput{Name: "   ", Type: "server"})
	wantKind(t, err, apperr.KindValidation)

	_, err = s.CreateEntity(ctx, models.EntityInput{Name: "x", Type: "spaceship"})
	wantKind(t, err, apperr.KindValidation)

	page, err := s.ListEntities(ctx, models.EntityFilter{})
	if err != nil {
		t.Fatalf("ListEntities: %v", err)
	}
	if page.Total != 0 {
		t.Errorf("Total = %d, want 0 after rejected creates", page.Total)
	}
}

func TestGetEntityNotFound(t *testing.T) {
	s := setupStore(t)
	_, err := s.GetEntity(context.Background(), 42)
	wantKind(t, err, apperr.KindNotFound)
}

func TestListEntitiesPagination(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		mustEntity(t, s, name, "server")
	}

	page1, err := s.ListEntities(ctx, models.EntityFilter{Page: 1, PerPage: 2})
	if err != nil {
		t.Fatalf("ListEntities page 1: %v", err)
	}
	if len(page1.Items) != 2 || page1.Total != 5 || page1.Pages != 3 {
		t.Errorf("page 1: items=%d total=%d pages=%d, want 2/5/3", len(page1.Items), page1.Total, page1.Pages)
	}
	if page1.Items[0].Name != "a" || page1.Items[1].Name != "b" {
		t.Errorf("page 1 not ordered by id: %q %q", page1.Items[0].Name, page1.Items[1].Name)
	}

	page3, err := s.ListEntities(ctx, models.EntityFilter{Page: 3, PerPage: 2})
	if err != nil {
		t.Fatalf("ListEntities page 3: %v", err)
	}
	if len(page3.Items) != 1 || page3.Items[0].Name != "e" {
		t.Errorf("page 3 = %+v, want only e", page3.Items)
	}

	defaults, err := s.ListEntities(ctx, models.EntityFilter{})
	if err != nil {
		t.Fatalf("ListEntities defaults: %v", err)
	}
	if defaults.Page != 1 || defaults.PerPage != DefaultPerPage || len(defaults.Items) != 5 {
		t.Errorf("defaults: page=%d per_page=%d items=%d", defaults.Page, defaults.PerPage, len(defaults.Items))
	}

	_, err = s.ListEntities(ctx, models.EntityFilter{PerPage: MaxPerPage + 1})
	wantKind(t, err, apperr.KindValidation)
}

func TestListEntitiesFilters(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	db := mustEntity(t, s, "db", "database")
	mustEntity(t, s, "web", "server")
	late := mustEntity(t, s, "cache", "database")

	page, err := s.ListEntities(ctx, models.EntityFilter{Type: ptr("DATABASE")})
	if err != nil {
		t.Fatalf("ListEntities by type: %v", err)
	}
	if page.Total != 2 {
		t.Errorf("Total by type = %d, want 2", page.Total)
	}

	page, err = s.ListEntities(ctx, models.EntityFilter{CreatedAfter: ptr(db.CreatedAt)})
	if err != nil {
		t.Fatalf("ListEntities created_after: %v", err)
	}
	if page.Total != 2 || page.Items[1].ID != late.ID {
		t.Errorf("created_after: total=%d items=%+v", page.Total, page.Items)
	}

	_, err = s.ListEntities(ctx, models.EntityFilter{Type: ptr("spaceship")})
	wantKind(t, err, apperr.KindValidation)
}

func TestUpdateEntity(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	created, err := s.CreateEntity(ctx, models.EntityInput{
		Name:     "web-01",
		Type:     "server",
		Metadata: models.Metadata{"env": "prod", "owner": "ops"},
	})
	if err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}

	updated, err := s.UpdateEntity(ctx, created.ID, models.EntityUpdate{
		Name:          ptr("web-02"),
		MetadataPatch: models.Metadata{"env": "staging", "tier": "frontend"},
	})
	if err != nil {
		t.Fatalf("UpdateEntity: %v", err)
	}
	if updated.Name != "web-02" {
		t.Errorf("Name = %q, want web-02", updated.Name)
	}
	want := models.Metadata{"env": "staging", "owner": "ops", "tier": "frontend"}
	if !reflect.DeepEqual(updated.Metadata, want) {
		t.Errorf("Metadata = %v, want %v", updated.Metadata, want)
	}
	if updated.Version != 2 {
		t.Errorf("Version = %d, want 2", updated.Version)
	}
	if !updated.UpdatedAt.After(created.UpdatedAt) {
		t.Errorf("UpdatedAt %v not after %v", updated.UpdatedAt, created.UpdatedAt)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("CreatedAt changed: %v -> %v", created.CreatedAt, updated.CreatedAt)
	}

	_, err = s.UpdateEntity(ctx, created.ID, models.EntityUpdate{Name: ptr(" ")})
	wantKind(t, err, apperr.KindValidation)

	_, err = s.UpdateEntity(ctx, 999, models.EntityUpdate{Name: ptr("x")})
	wantKind(t, err, apperr.KindNotFound)
}

func TestUpdateEntityVersionCheck(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	e := mustEntity(t, s, "web", "server")

	if _, err := s.UpdateEntity(ctx, e.ID, models.EntityUpdate{ExpectedVersion: ptr(int64(1)), Tags: []string{"a"}}); err != nil {
		t.Fatalf("UpdateEntity with current version: %v", err)
	}

	_, err := s.UpdateEntity(ctx, e.ID, models.EntityUpdate{ExpectedVersion: ptr(int64(1)), Tags: []string{"b"}})
	wantKind(t, err, apperr.KindConcurrentModification)

	got, err := s.GetEntity(ctx, e.ID)
	if err != nil {
		t.Fatalf("GetEntity: %v", err)
	}
	if !reflect.DeepEqual(got.Tags, models.Tags{"a"}) || got.Version != 2 {
		t.Errorf("stale update was applied: tags=%v version=%d", got.Tags, got.Version)
	}
}

func TestDeleteEntityCascades(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	a := mustEntity(t, s, "a", "server")
	b := mustEntity(t, s, "b", "database")
	c := mustEntity(t, s, "c", "service")

	mustRelationship(t, s, a.ID, b.ID, "depends_on") // a is source
	mustRelationship(t, s, c.ID, a.ID, "uses")       // a is only target
	keep := mustRelationship(t, s, b.ID, c.ID, "connects_to")

	for i := 0; i < 2; i++ {
		if _, err := s.CreateObservation(ctx, models.ObservationInput{
			EntityID: a.ID, Type: "state", ObservationType: "health", Value: []byte(`{"ok":true}`),
		}); err != nil {
			t.Fatalf("CreateObservation: %v", err)
		}
	}

	res, err := s.DeleteEntity(ctx, a.ID)
	if err != nil {
		t.Fatalf("DeleteEntity: %v", err)
	}
	if res.Relationships != 2 || res.Observations != 2 {
		t.Errorf("deleted relationships=%d observations=%d, want 2/2", res.Relationships, res.Observations)
	}

	_, err = s.GetEntity(ctx, a.ID)
	wantKind(t, err, apperr.KindNotFound)

	rels, err := s.ListRelationships(ctx, models.RelationshipFilter{})
	if err != nil {
		t.Fatalf("ListRelationships: %v", err)
	}
	if len(rels) != 1 || rels[0].ID != keep.ID {
		t.Errorf("remaining relationships = %+v, want only %d", rels, keep.ID)
	}

	obs, err := s.ListObservations(ctx, models.ObservationFilter{EntityID: ptr(a.ID)})
	if err != nil {
		t.Fatalf("ListObservations: %v", err)
	}
	if len(obs) != 0 {
		t.Errorf("observations of deleted entity = %d, want 0", len(obs))
	}

	_, err = s.DeleteEntity(ctx, a.ID)
	wantKind(t, err, apperr.KindNotFound)
}

func TestSearchEntities(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	web := mustEntity(t, s, "web-frontend", "server")
	mustEntity(t, s, "orders", "database")
	api := mustEntity(t, s, "api gateway", "service")

	got, err := s.SearchEntities(ctx, models.EntitySearch{Query: "web"})
	if err != nil {
		t.Fatalf("SearchEntities: %v", err)
	}
	if len(got) != 1 || got[0].ID != web.ID {
		t.Errorf("search web = %+v", got)
	}

	got, err = s.SearchEntities(ctx, models.EntitySearch{Query: "gate web"})
	if err != nil {
		t.Fatalf("SearchEntities: %v", err)
	}
	if len(got) != 2 || got[0].ID != web.ID || got[1].ID != api.ID {
		t.Errorf("search gate web = %+v", got)
	}

	got, err = s.SearchEntities(ctx, models.EntitySearch{Query: "gate web", Type: ptr("service")})
	if err != nil {
		t.Fatalf("SearchEntities: %v", err)
	}
	if len(got) != 1 || got[0].ID != api.ID {
		t.Errorf("search with type = %+v", got)
	}

	// Renames are reflected in the index.
	if _, err := s.UpdateEntity(ctx, web.ID, models.EntityUpdate{Name: ptr("portal")}); err != nil {
		t.Fatalf("UpdateEntity: %v", err)
	}
	got, err = s.SearchEntities(ctx, models.EntitySearch{Query: "web"})
	if err != nil {
		t.Fatalf("SearchEntities: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("search after rename = %+v, want none", got)
	}

	_, err = s.SearchEntities(ctx, models.EntitySearch{Query: "  "})
	wantKind(t, err, apperr.KindValidation)
}

func TestTimestampsAreUTC(t *testing.T) {
	s := setupStore(t)
	e := mustEntity(t, s, "a", "server")
	if e.CreatedAt.Location() != time.UTC {
		t.Errorf("CreatedAt location = %v, want UTC", e.CreatedAt.Location())
	}
}
