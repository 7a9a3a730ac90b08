package memory

import (
	"context"

	"github.com/wagnerlima/memory-cloud/infra-memory/internal/cache"
	"github.com/wagnerlima/memory-cloud/infra-memory/internal/models"
)

func (s *Service) CreateProvider(ctx context.Context, in models.ProviderInput) (*models.Provider, error) {
	p, err := s.store.CreateProvider(ctx, in)
	s.invalidate(err, tagProviders)
	return p, err
}

func (s *Service) GetProvider(ctx context.Context, id int64) (*models.Provider, error) {
	return cache.Fetch(ctx, s.cache, cache.NewKey("get_provider", id), []string{tag("provider", id)},
		func(ctx context.Context) (*models.Provider, error) {
			return s.store.GetProvider(ctx, id)
		})
}

func (s *Service) ListProviders(ctx context.Context, f models.ProviderFilter) ([]models.Provider, error) {
	return cache.Fetch(ctx, s.cache, cache.NewKey("list_providers").With("type", f.Type), []string{tagProviders},
		func(ctx context.Context) ([]models.Provider, error) {
			return s.store.ListProviders(ctx, f)
		})
}

func (s *Service) UpdateProvider(ctx context.Context, id int64, in models.ProviderUpdate) (*models.Provider, error) {
	p, err := s.store.UpdateProvider(ctx, id, in)
	s.invalidate(err, tag("provider", id), tagProviders)
	return p, err
}

func (s *Service) DeleteProvider(ctx context.Context, id int64) (*models.ChildDeletion, error) {
	res, err := s.store.DeleteProvider(ctx, id)
	s.invalidate(err, tag("provider", id), tagProviders, tagResourceArguments)
	return res, err
}

func (s *Service) CreateResourceArgument(ctx context.Context, in models.ResourceArgumentInput) (*models.ResourceArgument, error) {
	a, err := s.store.CreateResourceArgument(ctx, in)
	s.invalidate(err, tagResourceArguments)
	return a, err
}

func (s *Service) GetResourceArgument(ctx context.Context, id int64) (*models.ResourceArgument, error) {
	return cache.Fetch(ctx, s.cache, cache.NewKey("get_resource_argument", id),
		[]string{tag("resource_argument", id), tagResourceArguments},
		func(ctx context.Context) (*models.ResourceArgument, error) {
			return s.store.GetResourceArgument(ctx, id)
		})
}

func (s *Service) ListResourceArguments(ctx context.Context, f models.ResourceArgumentFilter) ([]models.ResourceArgument, error) {
	key := cache.NewKey("list_resource_arguments").
		With("provider_id", f.ProviderID).
		With("resource_type", f.ResourceType)
	return cache.Fetch(ctx, s.cache, key, []string{tagResourceArguments},
		func(ctx context.Context) ([]models.ResourceArgument, error) {
			return s.store.ListResourceArguments(ctx, f)
		})
}

func (s *Service) UpdateResourceArgument(ctx context.Context, id int64, in models.ResourceArgumentUpdate) (*models.ResourceArgument, error) {
	a, err := s.store.UpdateResourceArgument(ctx, id, in)
	s.invalidate(err, tag("resource_argument", id), tagResourceArguments)
	return a, err
}

func (s *Service) DeleteResourceArgument(ctx context.Context, id int64) (*models.ResourceArgument, error) {
	a, err := s.store.DeleteResourceArgument(ctx, id)
	s.invalidate(err, tag("resource_argument", id), tagResourceArguments)
	return a, err
}

func (s *Service) CreateCollection(ctx context.Context, in models.CollectionInput) (*models.Collection, error) {
	c, err := s.store.CreateCollection(ctx, in)
	s.invalidate(err, tagCollections)
	return c, err
}

func (s *Service) GetCollection(ctx context.Context, id int64) (*models.Collection, error) {
	return cache.Fetch(ctx, s.cache, cache.NewKey("get_collection", id), []string{tag("collection", id)},
		func(ctx context.Context) (*models.Collection, error) {
			return s.store.GetCollection(ctx, id)
		})
}

func (s *Service) ListCollections(ctx context.Context, f models.CollectionFilter) ([]models.Collection, error) {
	return cache.Fetch(ctx, s.cache, cache.NewKey("list_collections").With("namespace", f.Namespace), []string{tagCollections},
		func(ctx context.Context) ([]models.Collection, error) {
			return s.store.ListCollections(ctx, f)
		})
}

func (s *Service) UpdateCollection(ctx context.Context, id int64, in models.CollectionUpdate) (*models.Collection, error) {
	c, err := s.store.UpdateCollection(ctx, id, in)
	s.invalidate(err, tag("collection", id), tagCollections)
	return c, err
}

func (s *Service) DeleteCollection(ctx context.Context, id int64) (*models.ChildDeletion, error) {
	res, err := s.store.DeleteCollection(ctx, id)
	s.invalidate(err, tag("collection", id), tagCollections, tagModuleParameters)
	return res, err
}

func (s *Service) CreateModuleParameter(ctx context.Context, in models.ModuleParameterInput) (*models.ModuleParameter, error) {
	p, err := s.store.CreateModuleParameter(ctx, in)
	s.invalidate(err, tagModuleParameters)
	return p, err
}

func (s *Service) GetModuleParameter(ctx context.Context, id int64) (*models.ModuleParameter, error) {
	return cache.Fetch(ctx, s.cache, cache.NewKey("get_module_parameter", id),
		[]string{tag("module_parameter", id), tagModuleParameters},
		func(ctx context.Context) (*models.ModuleParameter, error) {
			return s.store.GetModuleParameter(ctx, id)
		})
}

func (s *Service) ListModuleParameters(ctx context.Context, f models.ModuleParameterFilter) ([]models.ModuleParameter, error) {
	key := cache.NewKey("list_module_parameters").
		With("collection_id", f.CollectionID).
		With("module_name", f.ModuleName)
	return cache.Fetch(ctx, s.cache, key, []string{tagModuleParameters},
		func(ctx context.Context) ([]models.ModuleParameter, error) {
			return s.store.ListModuleParameters(ctx, f)
		})
}

func (s *Service) UpdateModuleParameter(ctx context.Context, id int64, in models.ModuleParameterUpdate) (*models.ModuleParameter, error) {
	p, err := s.store.UpdateModuleParameter(ctx, id, in)
	s.invalidate(err, tag("module_parameter", id), tagModuleParameters)
	return p, err
}

func (s *Service) DeleteModuleParameter(ctx context.Context, id int64) (*models.ModuleParameter, error) {
	p, err := s.store.DeleteModuleParameter(ctx, id)
	s.invalidate(err, tag("module_parameter", id), tagModuleParameters)
	return p, err
}
