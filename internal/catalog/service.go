// internal/catalog/service.go
package catalog

import (
	"context"
)

// Query selects a catalog view: one item type narrowed by facet criteria.
type Query struct {
	Type    ItemType
	Filters Criteria
}

// Service defines the read side of the catalog offered to the presentation layer.
type Service interface {
	ListItems(ctx context.Context, q Query) ([]Item, error)
	GetItem(ctx context.Context, id int) (*Item, error)
	FacetChoices(ctx context.Context, t ItemType, field Field) ([]string, error)
	Stats(ctx context.Context) (Stats, error)
}
