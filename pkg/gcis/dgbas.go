package gcis

import "strings"

// ParseDgbasText parses the delimited agency encoding: one "code\tname" pair
// per line. Lines are trimmed and split on the first tab only; lines without
// a tab are dropped. Empty input yields an empty, non-nil slice.
func ParseDgbasText(s string) []DgbasEntry {
	out := []DgbasEntry{}
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		code, name, ok := strings.Cut(line, "\t")
		if !ok {
			continue
		}
		out = append(out, DgbasEntry{
			Code: strings.TrimSpace(code),
			Name: strings.TrimSpace(name),
		})
	}
	return out
}

// FormatDgbasText joins entries back into the delimited encoding.
func FormatDgbasText(entries []DgbasEntry) string {
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.Code + "\t" + e.Name
	}
	return strings.Join(lines, "\n")
}

// parseDgbasList maps the structured encoding, a list of objects carrying
// code and name keys. Elements that are not objects are dropped.
func parseDgbasList(items []any, codeKey, nameKey string) []DgbasEntry {
	out := make([]DgbasEntry, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, DgbasEntry{
			Code: strings.TrimSpace(stringField(obj, codeKey)),
			Name: strings.TrimSpace(stringField(obj, nameKey)),
		})
	}
	return out
}

// parseDgbas dispatches on the decoded shape of the agency field.
func parseDgbas(v any, codeKey, nameKey string) []DgbasEntry {
	switch val := v.(type) {
	case []any:
		return parseDgbasList(val, codeKey, nameKey)
	case string:
		return ParseDgbasText(val)
	default:
		return []DgbasEntry{}
	}
}
