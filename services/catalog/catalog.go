package catalog

import (
	"context"
	"dogs-api-go/cache"
	"dogs-api-go/services/rescueapi"
)

type (
	Animal       = rescueapi.Animal
	Organization = rescueapi.Organization
	Statistics   = rescueapi.Statistics
	AnimalQuery  = rescueapi.AnimalQuery
)

// Source is the upstream the catalog reads from. *rescueapi.Client
// implements it.
type Source interface {
	Animals(ctx context.Context, q AnimalQuery) ([]Animal, error)
	AnimalBySlug(ctx context.Context, slug string) (Animal, error)
	StandardizedBreeds(ctx context.Context) ([]string, error)
	LocationCountries(ctx context.Context) ([]string, error)
	AvailableCountries(ctx context.Context) ([]string, error)
	AvailableRegions(ctx context.Context, country string) ([]string, error)
	Organizations(ctx context.Context) ([]Organization, error)
	OrganizationBySlug(ctx context.Context, slug string) (Organization, error)
	Statistics(ctx context.Context) (Statistics, error)
}

// Service is the cached read side of the rescue API. Reference lists and
// statistics degrade to empty values on failure; detail and list lookups
// return the error.
type Service struct {
	memo *cache.Memo

	animals            func(context.Context, AnimalQuery) ([]Animal, error)
	animalBySlug       func(context.Context, string) (Animal, error)
	standardizedBreeds func(context.Context) ([]string, error)
	locationCountries  func(context.Context) ([]string, error)
	availableCountries func(context.Context) ([]string, error)
	availableRegions   func(context.Context, string) ([]string, error)
	organizations      func(context.Context) ([]Organization, error)
	organizationBySlug func(context.Context, string) (Organization, error)
	statistics         func(context.Context) (Statistics, error)
}

// New wraps every Source call in memo
func New(src Source, memo *cache.Memo) *Service {
	return &Service{
		memo: memo,

		animals:            cache.Wrap(memo, "animals", src.Animals),
		animalBySlug:       cache.Wrap(memo, "animalBySlug", src.AnimalBySlug),
		organizationBySlug: cache.Wrap(memo, "organizationBySlug", src.OrganizationBySlug),

		standardizedBreeds: cache.Wrap0WithFallback(memo, "standardizedBreeds", src.StandardizedBreeds, []string{}),
		locationCountries:  cache.Wrap0WithFallback(memo, "locationCountries", src.LocationCountries, []string{}),
		availableCountries: cache.Wrap0WithFallback(memo, "availableCountries", src.AvailableCountries, []string{}),
		availableRegions:   cache.WrapWithFallback(memo, "availableRegions", src.AvailableRegions, []string{}),
		organizations:      cache.Wrap0WithFallback(memo, "organizations", src.Organizations, []Organization{}),
		statistics:         cache.Wrap0WithFallback(memo, "statistics", src.Statistics, Statistics{}),
	}
}

func (s *Service) Animals(ctx context.Context, q AnimalQuery) ([]Animal, error) {
	return s.animals(ctx, q)
}

func (s *Service) AnimalBySlug(ctx context.Context, slug string) (Animal, error) {
	return s.animalBySlug(ctx, slug)
}

func (s *Service) StandardizedBreeds(ctx context.Context) ([]string, error) {
	return s.standardizedBreeds(ctx)
}

func (s *Service) LocationCountries(ctx context.Context) ([]string, error) {
	return s.locationCountries(ctx)
}

func (s *Service) AvailableCountries(ctx context.Context) ([]string, error) {
	return s.availableCountries(ctx)
}

func (s *Service) AvailableRegions(ctx context.Context, country string) ([]string, error) {
	return s.availableRegions(ctx, country)
}

func (s *Service) Organizations(ctx context.Context) ([]Organization, error) {
	return s.organizations(ctx)
}

func (s *Service) OrganizationBySlug(ctx context.Context, slug string) (Organization, error) {
	return s.organizationBySlug(ctx, slug)
}

func (s *Service) Statistics(ctx context.Context) (Statistics, error) {
	return s.statistics(ctx)
}

// Clear drops every memoized result
func (s *Service) Clear() int {
	return s.memo.Clear()
}

// Memo exposes the underlying memo for stats and inspection
func (s *Service) Memo() *cache.Memo {
	return s.memo
}
