package storage

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/wagnerlima/memory-cloud/infra-memory/internal/apperr"
	"github.com/wagnerlima/memory-cloud/infra-memory/internal/models"
)

func TestProviderCatalog(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	p, err := s.CreateProvider(ctx, models.ProviderInput{Name: "aws", Type: "Cloud", Version: "5.0.0"})
	if err != nil {
		t.Fatalf("CreateProvider: %v", err)
	}
	if p.Type != "cloud" {
		t.Errorf("Type = %q, want cloud", p.Type)
	}

	_, err = s.CreateProvider(ctx, models.ProviderInput{Name: "aws", Type: "mainframe", Version: "1"})
	wantKind(t, err, apperr.KindValidation)

	arg, err := s.CreateResourceArgument(ctx, models.ResourceArgumentInput{
		ProviderID:   p.ID,
		Name:         "instance_type",
		ResourceType: "aws_instance",
		Schema:       json.RawMessage(`{"type":"string","required":true}`),
	})
	if err != nil {
		t.Fatalf("CreateResourceArgument: %v", err)
	}
	if _, err := s.CreateResourceArgument(ctx, models.ResourceArgumentInput{
		ProviderID: p.ID, Name: "ami", ResourceType: "aws_instance", Schema: json.RawMessage(`{"type":"string"}`),
	}); err != nil {
		t.Fatalf("CreateResourceArgument: %v", err)
	}

	_, err = s.CreateResourceArgument(ctx, models.ResourceArgumentInput{
		ProviderID: 999, Name: "x", ResourceType: "y", Schema: json.RawMessage(`{}`),
	})
	wantKind(t, err, apperr.KindNotFound)

	_, err = s.CreateResourceArgument(ctx, models.ResourceArgumentInput{
		ProviderID: p.ID, Name: "x", ResourceType: "y", Schema: json.RawMessage(`[]`),
	})
	wantKind(t, err, apperr.KindValidation)

	updated, err := s.UpdateResourceArgument(ctx, arg.ID, models.ResourceArgumentUpdate{
		Schema: json.RawMessage(`{"type":"string"}`), MetadataPatch: models.Metadata{"doc": "size"},
	})
	if err != nil {
		t.Fatalf("UpdateResourceArgument: %v", err)
	}
	if string(updated.Schema) != `{"type":"string"}` || updated.Metadata["doc"] != "size" {
		t.Errorf("updated = %+v", updated)
	}

	args, err := s.ListResourceArguments(ctx, models.ResourceArgumentFilter{ProviderID: ptr(p.ID), ResourceType: ptr("aws_instance")})
	if err != nil {
		t.Fatalf("ListResourceArguments: %v", err)
	}
	if len(args) != 2 {
		t.Errorf("ListResourceArguments = %d, want 2", len(args))
	}
	args, err = s.ListResourceArguments(ctx, models.ResourceArgumentFilter{ResourceType: ptr("  aws_instance ")})
	if err != nil {
		t.Fatalf("ListResourceArguments with padded filter: %v", err)
	}
	if len(args) != 2 {
		t.Errorf("ListResourceArguments with padded filter = %d, want 2", len(args))
	}

	renamed, err := s.UpdateProvider(ctx, p.ID, models.ProviderUpdate{Version: ptr("5.1.0")})
	if err != nil {
		t.Fatalf("UpdateProvider: %v", err)
	}
	if renamed.Version != "5.1.0" || renamed.Name != "aws" {
		t.Errorf("UpdateProvider = %+v", renamed)
	}

	providers, err := s.ListProviders(ctx, models.ProviderFilter{Type: ptr("cloud")})
	if err != nil {
		t.Fatalf("ListProviders: %v", err)
	}
	if len(providers) != 1 {
		t.Errorf("ListProviders = %d, want 1", len(providers))
	}

	res, err := s.DeleteProvider(ctx, p.ID)
	if err != nil {
		t.Fatalf("DeleteProvider: %v", err)
	}
	if res.Children != 2 {
		t.Errorf("children deleted = %d, want 2", res.Children)
	}
	_, err = s.GetResourceArgument(ctx, arg.ID)
	wantKind(t, err, apperr.KindNotFound)
	_, err = s.GetProvider(ctx, p.ID)
	wantKind(t, err, apperr.KindNotFound)
}

func TestCollectionCatalog(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	c, err := s.CreateCollection(ctx, models.CollectionInput{Namespace: "community", Name: "general", Version: "8.0.0"})
	if err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	_, err = s.CreateCollection(ctx, models.CollectionInput{Namespace: " ", Name: "general", Version: "1"})
	wantKind(t, err, apperr.KindValidation)

	param, err := s.CreateModuleParameter(ctx, models.ModuleParameterInput{
		CollectionID: c.ID,
		ModuleName:   "ufw",
		Name:         "rule",
		Schema:       json.RawMessage(`{"choices":["allow","deny"]}`),
	})
	if err != nil {
		t.Fatalf("CreateModuleParameter: %v", err)
	}

	_, err = s.CreateModuleParameter(ctx, models.ModuleParameterInput{
		CollectionID: 999, ModuleName: "ufw", Name: "rule", Schema: json.RawMessage(`{}`),
	})
	wantKind(t, err, apperr.KindNotFound)

	got, err := s.GetModuleParameter(ctx, param.ID)
	if err != nil {
		t.Fatalf("GetModuleParameter: %v", err)
	}
	if got.ModuleName != "ufw" || string(got.Schema) != `{"choices":["allow","deny"]}` {
		t.Errorf("GetModuleParameter = %+v", got)
	}

	if _, err := s.UpdateModuleParameter(ctx, param.ID, models.ModuleParameterUpdate{Name: ptr("port")}); err != nil {
		t.Fatalf("UpdateModuleParameter: %v", err)
	}
	params, err := s.ListModuleParameters(ctx, models.ModuleParameterFilter{ModuleName: ptr("ufw")})
	if err != nil {
		t.Fatalf("ListModuleParameters: %v", err)
	}
	if len(params) != 1 || params[0].Name != "port" {
		t.Errorf("ListModuleParameters = %+v", params)
	}
	params, err = s.ListModuleParameters(ctx, models.ModuleParameterFilter{ModuleName: ptr(" ufw\t")})
	if err != nil {
		t.Fatalf("ListModuleParameters with padded filter: %v", err)
	}
	if len(params) != 1 {
		t.Errorf("ListModuleParameters with padded filter = %+v", params)
	}

	if _, err := s.UpdateCollection(ctx, c.ID, models.CollectionUpdate{MetadataPatch: models.Metadata{"deprecated": false}}); err != nil {
		t.Fatalf("UpdateCollection: %v", err)
	}
	cols, err := s.ListCollections(ctx, models.CollectionFilter{Namespace: ptr("community")})
	if err != nil {
		t.Fatalf("ListCollections: %v", err)
	}
	if len(cols) != 1 || cols[0].Metadata["deprecated"] != false {
		t.Errorf("ListCollections = %+v", cols)
	}
	cols, err = s.ListCollections(ctx, models.CollectionFilter{Namespace: ptr(" community ")})
	if err != nil {
		t.Fatalf("ListCollections with padded filter: %v", err)
	}
	if len(cols) != 1 {
		t.Errorf("ListCollections with padded filter = %+v", cols)
	}

	res, err := s.DeleteCollection(ctx, c.ID)
	if err != nil {
		t.Fatalf("DeleteCollection: %v", err)
	}
	if res.Children != 1 {
		t.Errorf("children deleted = %d, want 1", res.Children)
	}
	if _, err := s.DeleteModuleParameter(ctx, param.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("DeleteModuleParameter after cascade: %v", err)
	}
}
