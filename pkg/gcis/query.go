package gcis

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Validate checks the params can be sent upstream. The item code is inserted
// into the OData literal unescaped, so single quotes are rejected.
func (p ListParams) Validate() error {
	if p.Top < 0 {
		return eris.Wrapf(ErrInvalidParams, "top %d is negative", p.Top)
	}
	if p.Skip < 0 {
		return eris.Wrapf(ErrInvalidParams, "skip %d is negative", p.Skip)
	}
	if strings.Contains(p.ItemCode, "'") {
		return eris.Wrapf(ErrInvalidParams, "item code %q contains a single quote", p.ItemCode)
	}
	return nil
}

// FilterExpr returns the OData equality filter for an item code.
func FilterExpr(field, code string) string {
	return field + " eq '" + code + "'"
}

// buildQuery returns the $-prefixed query parameters for one page.
func buildQuery(p ListParams, itemField string) url.Values {
	top := p.Top
	if top == 0 {
		top = DefaultTop
	}
	q := url.Values{
		"$format": {"json"},
		"$top":    {strconv.Itoa(top)},
		"$skip":   {strconv.Itoa(p.Skip)},
	}
	if p.ItemCode != "" {
		q.Set("$filter", FilterExpr(itemField, p.ItemCode))
	}
	return q
}
