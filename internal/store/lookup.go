package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/gcis-cli/pkg/gcis"
)

// Lookup answers business item queries from a Store with the same
// parameter and error semantics as the upstream client.
type Lookup struct {
	Store Store
}

// ListBusinessItems returns a page of stored items. A code filter matches
// exactly one item, so any positive skip yields an empty page.
func (l Lookup) ListBusinessItems(ctx context.Context, params gcis.ListParams) ([]gcis.BusinessItem, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	top := params.Top
	if top == 0 {
		top = gcis.DefaultTop
	}

	if params.ItemCode != "" {
		item, err := l.Store.GetBusinessItem(ctx, params.ItemCode)
		if err != nil {
			return nil, eris.Wrap(err, "lookup: get item")
		}
		if item == nil || params.Skip > 0 {
			return []gcis.BusinessItem{}, nil
		}
		return []gcis.BusinessItem{*item}, nil
	}

	items, err := l.Store.ListBusinessItems(ctx, ItemFilter{Limit: top, Offset: params.Skip})
	if err != nil {
		return nil, eris.Wrap(err, "lookup: list items")
	}
	return items, nil
}

// FilterBusinessItems lists stored items by category and code prefix,
// ordered by code. Limit 0 means gcis.DefaultTop.
func (l Lookup) FilterBusinessItems(ctx context.Context, filter ItemFilter) ([]gcis.BusinessItem, error) {
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, eris.Wrapf(gcis.ErrInvalidParams, "limit %d and offset %d must not be negative", filter.Limit, filter.Offset)
	}
	if filter.Limit == 0 {
		filter.Limit = gcis.DefaultTop
	}
	items, err := l.Store.ListBusinessItems(ctx, filter)
	if err != nil {
		return nil, eris.Wrap(err, "lookup: filter items")
	}
	return items, nil
}

// GetBusinessItem returns gcis.ErrNotFound when the code is not stored.
func (l Lookup) GetBusinessItem(ctx context.Context, code string) (*gcis.BusinessItem, error) {
	if code == "" {
		return nil, eris.Wrap(gcis.ErrInvalidParams, "item code is required")
	}
	item, err := l.Store.GetBusinessItem(ctx, code)
	if err != nil {
		return nil, eris.Wrap(err, "lookup: get item")
	}
	if item == nil {
		return nil, gcis.ErrNotFound
	}
	return item, nil
}
