package gcis

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Normalize maps one raw upstream entry onto a BusinessItem using the
// table's keys. Missing fields become empty strings; the only error is an
// entry that is not a JSON object.
func (t KeyTable) Normalize(raw any) (BusinessItem, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return BusinessItem{}, &ShapeError{Reason: fmt.Sprintf("entry is %s, want object", jsonKind(raw))}
	}

	return BusinessItem{
		Category:            stringField(obj, t.Category),
		CategoryName:        stringField(obj, t.CategoryName),
		Subcategory:         stringField(obj, t.Subcategory),
		SubcategoryName:     stringField(obj, t.SubcategoryName),
		Classes:             stringField(obj, t.Classes),
		ClassesName:         stringField(obj, t.ClassesName),
		BusinessItem:        stringField(obj, t.BusinessItem),
		BusinessItemDesc:    stringField(obj, t.BusinessItemDesc),
		BusinessItemContent: stringField(obj, t.BusinessItemContent),
		Dgbas:               parseDgbas(obj[t.Dgbas], t.DgbasCode, t.DgbasName),
	}, nil
}

// NormalizeAll normalizes entries in order and fails on the first bad entry.
func (t KeyTable) NormalizeAll(entries []any) ([]BusinessItem, error) {
	items := make([]BusinessItem, 0, len(entries))
	for i, e := range entries {
		item, err := t.Normalize(e)
		if err != nil {
			return nil, &ShapeError{Reason: fmt.Sprintf("entry %d", i), Err: err}
		}
		items = append(items, item)
	}
	return items, nil
}

// stringField reads key from obj as text. Absent keys, nulls, objects and
// lists read as "".
func stringField(obj map[string]any, key string) string {
	switch v := obj[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case json.Number, float64:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
