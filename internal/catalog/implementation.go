// internal/catalog/implementation.go
package catalog

import (
	"context"
	"fmt"

	domainerrors "libracatalog/internal/errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// service implements the Service interface.
type service struct {
	repo   Repository
	tracer trace.Tracer
}

// NewService creates a new catalog service instance.
func NewService(repo Repository) Service {
	return &service{
		repo:   repo,
		tracer: otel.Tracer("libracatalog/catalog"),
	}
}

// ListItems returns the items of the requested type that match every filter.
func (s *service) ListItems(ctx context.Context, q Query) ([]Item, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.list_items",
		trace.WithAttributes(
			attribute.String("item.type", q.Type.Slug()),
			attribute.Int("filters.count", len(q.Filters)),
		),
	)
	defer span.End()

	coll, err := s.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	items := ApplyFilters(ByType(coll.Items, q.Type), q.Filters)
	span.SetAttributes(attribute.Int("items.matched", len(items)))
	return items, nil
}

// GetItem retrieves an item from the catalog by its ID.
func (s *service) GetItem(ctx context.Context, id int) (*Item, error) {
	coll, err := s.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	n := coll.Find(id)
	if n < 0 {
		return nil, domainerrors.NotFound(id)
	}
	item := coll.Items[n]
	return &item, nil
}

// FacetChoices returns the selectable values of field among items of type t.
func (s *service) FacetChoices(ctx context.Context, t ItemType, field Field) ([]string, error) {
	coll, err := s.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return FacetValues(ByType(coll.Items, t), field), nil
}

// Stats summarises the catalog for the dashboard.
func (s *service) Stats(ctx context.Context) (Stats, error) {
	coll, err := s.repo.Load(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to load catalog: %w", err)
	}
	return Summarize(coll.Items), nil
}
