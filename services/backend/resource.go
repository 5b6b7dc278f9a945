package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core"
)

// Page is the paginated envelope of list endpoints.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// decodeList accepts both a bare array and a Page, and always returns the items.
func decodeList[T any](data []byte) ([]T, error) {
	data = bytes.TrimSpace(data)
	items := make([]T, 0)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return items, nil
	}
	if data[0] == '{' {
		var page Page[T]
		if err := json.Unmarshal(data, &page); err != nil {
			return nil, err
		}
		if page.Results != nil {
			items = page.Results
		}
		return items, nil
	}
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Resource is a REST collection of T.
type Resource[T any] struct {
	client *Client
	path   string // eg. "academics/grades/"
}

func newResource[T any](c *Client, path string) *Resource[T] {
	return &Resource[T]{client: c, path: path}
}

func (r *Resource[T]) itemPath(id int) string {
	return r.path + strconv.Itoa(id) + "/"
}

// List returns every item matching `filter` (nil for all).
func (r *Resource[T]) List(ctx context.Context, filter core.Filter) ([]T, error) {
	op := "listing " + r.path
	_, data, err := r.client.send(ctx, request{
		op:     op,
		method: http.MethodGet,
		path:   r.path,
		query:  filter.Values(),
	})
	if err != nil {
		return nil, err
	}
	items, err := decodeList[T](data)
	return items, errors.Wrapf(err, "%s: decoding response", op)
}

func (r *Resource[T]) Get(ctx context.Context, id int) (T, error) {
	var item T
	err := r.client.do(ctx, request{
		op:     "getting " + r.itemPath(id),
		method: http.MethodGet,
		path:   r.itemPath(id),
	}, &item)
	return item, err
}

// Create posts `body` and returns the created item.
func (r *Resource[T]) Create(ctx context.Context, body interface{}) (T, error) {
	var item T
	err := r.client.do(ctx, request{
		op:     "creating " + r.path,
		method: http.MethodPost,
		path:   r.path,
		body:   body,
	}, &item)
	return item, err
}

// Update partially updates the item (PATCH).
func (r *Resource[T]) Update(ctx context.Context, id int, body interface{}) (T, error) {
	var item T
	err := r.client.do(ctx, request{
		op:     "updating " + r.itemPath(id),
		method: http.MethodPatch,
		path:   r.itemPath(id),
		body:   body,
	}, &item)
	return item, err
}

func (r *Resource[T]) Delete(ctx context.Context, id int) error {
	return r.client.do(ctx, request{
		op:     "deleting " + r.itemPath(id),
		method: http.MethodDelete,
		path:   r.itemPath(id),
	}, nil)
}
