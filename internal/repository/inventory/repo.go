// Package inventory fetches the item collection from the upstream inventory
// service through the request coordinator, so reads share its response cache
// and mutations its invalidation rules.
package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/kailas-cloud/partdex/internal/domain"
	"github.com/kailas-cloud/partdex/internal/fetch"
)

// Repo reads items from one upstream resource, e.g. "parts".
type Repo struct {
	coord    *fetch.Coordinator
	resource string
}

// New creates the repo. resource defaults to "parts".
func New(coord *fetch.Coordinator, resource string) *Repo {
	if resource == "" {
		resource = "parts"
	}
	return &Repo{coord: coord, resource: resource}
}

// Items returns the current collection snapshot. The upstream responds with
// either a bare array or an {"items": [...]} envelope.
func (r *Repo) Items(ctx context.Context) ([]domain.Item, error) {
	data, err := r.coord.Do(ctx, http.MethodGet, "/"+r.resource, fetch.Options{})
	if err != nil {
		return nil, err
	}
	items, err := decodeItems(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.resource, err)
	}
	return items, nil
}

func decodeItems(data []byte) ([]domain.Item, error) {
	var items []domain.Item
	if err := json.Unmarshal(data, &items); err == nil {
		return items, nil
	}
	var envelope struct {
		Items []domain.Item `json:"items"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, err
	}
	return envelope.Items, nil
}
