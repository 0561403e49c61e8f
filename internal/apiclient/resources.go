// internal/apiclient/resources.go
package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// The dashboard's CRUD pages all follow one pattern against the backend:
// list/get a collection or entity, submit a mutation, re-render. These
// generic operations back every entity page (products, orders, coupons,
// packaging, customers, riders, roles, settings).

// ListResource fetches a filtered/paginated collection. The raw data payload
// is returned as-is; pages render it without reshaping.
func (c *Client) ListResource(ctx context.Context, entity string, params url.Values) (json.RawMessage, error) {
	var data json.RawMessage
	path := fmt.Sprintf("/%s", entity)
	if err := c.do(ctx, http.MethodGet, path, params, nil, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// GetResource fetches a single entity by id.
func (c *Client) GetResource(ctx context.Context, entity, id string) (json.RawMessage, error) {
	var data json.RawMessage
	path := fmt.Sprintf("/%s/%s", entity, id)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// CreateResource submits a new entity.
func (c *Client) CreateResource(ctx context.Context, entity string, body json.RawMessage) (json.RawMessage, error) {
	var data json.RawMessage
	path := fmt.Sprintf("/%s", entity)
	if err := c.do(ctx, http.MethodPost, path, nil, body, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// UpdateResource patches an existing entity.
func (c *Client) UpdateResource(ctx context.Context, entity, id string, body json.RawMessage) (json.RawMessage, error) {
	var data json.RawMessage
	path := fmt.Sprintf("/%s/%s", entity, id)
	if err := c.do(ctx, http.MethodPatch, path, nil, body, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// DeleteResource removes an entity.
func (c *Client) DeleteResource(ctx context.Context, entity, id string) error {
	path := fmt.Sprintf("/%s/%s", entity, id)
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}
