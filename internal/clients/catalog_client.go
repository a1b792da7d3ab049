// internal/clients/catalog_client.go
package clients

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"libracatalog/internal/catalog"
)

type CatalogClient struct {
	base
}

// NewCatalogClient creates a client for baseURL. A nil httpClient gets a
// client with a 10 second timeout.
func NewCatalogClient(baseURL string, httpClient *http.Client) *CatalogClient {
	return &CatalogClient{base: newBase("catalog", baseURL, httpClient)}
}

// ListItems returns the items of type t matching every filter.
func (c *CatalogClient) ListItems(ctx context.Context, q catalog.Query) ([]catalog.ItemView, error) {
	params := url.Values{}
	if q.Type != catalog.TypeAny {
		params.Set("type", q.Type.Slug())
	}
	for field, value := range q.Filters {
		if value != "" {
			params.Set(field.String(), value)
		}
	}

	path := "/items"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var items []catalog.ItemView
	if err := c.do(ctx, http.MethodGet, path, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *CatalogClient) GetItem(ctx context.Context, id int) (*catalog.ItemView, error) {
	var item catalog.ItemView
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/items/%d", id), nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// FacetChoices returns the selectable values of field among items of type t.
func (c *CatalogClient) FacetChoices(ctx context.Context, t catalog.ItemType, field catalog.Field) ([]string, error) {
	path := "/facets/" + url.PathEscape(field.String())
	if t != catalog.TypeAny {
		path += "?type=" + url.QueryEscape(t.Slug())
	}

	var values []string
	if err := c.do(ctx, http.MethodGet, path, nil, &values); err != nil {
		return nil, err
	}
	return values, nil
}

func (c *CatalogClient) Stats(ctx context.Context) (*catalog.Stats, error) {
	var stats catalog.Stats
	if err := c.do(ctx, http.MethodGet, "/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
