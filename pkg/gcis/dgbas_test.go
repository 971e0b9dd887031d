package gcis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDgbasText_DropsMalformedLines(t *testing.T) {
	got := ParseDgbasText("0111\t稻作栽培業\nmalformed_entry\n0112\t雜糧栽培業")
	assert.Equal(t, []DgbasEntry{
		{Code: "0111", Name: "稻作栽培業"},
		{Code: "0112", Name: "雜糧栽培業"},
	}, got)
}

func TestParseDgbasText_SingleLine(t *testing.T) {
	got := ParseDgbasText("0119\t其他農作物栽培業")
	assert.Equal(t, []DgbasEntry{{Code: "0119", Name: "其他農作物栽培業"}}, got)
}

func TestParseDgbasText_Empty(t *testing.T) {
	for _, in := range []string{"", "\n", "   ", "\n\n  \n"} {
		got := ParseDgbasText(in)
		assert.NotNil(t, got, "input %q", in)
		assert.Empty(t, got, "input %q", in)
	}
}

func TestParseDgbasText_SplitsOnFirstTabOnly(t *testing.T) {
	got := ParseDgbasText("0119\t其他\t農作物")
	require.Len(t, got, 1)
	assert.Equal(t, "0119", got[0].Code)
	assert.Equal(t, "其他\t農作物", got[0].Name)
}

func TestParseDgbasText_TrimsWhitespace(t *testing.T) {
	got := ParseDgbasText("  0111 \t 稻作栽培業  \r\n\t0112\t雜糧栽培業\n")
	assert.Equal(t, []DgbasEntry{
		{Code: "0111", Name: "稻作栽培業"},
		{Code: "0112", Name: "雜糧栽培業"},
	}, got)
}

func TestParseDgbasText_KeepsDuplicatesInOrder(t *testing.T) {
	got := ParseDgbasText("0112\tB\n0111\tA\n0112\tB")
	assert.Equal(t, []DgbasEntry{
		{Code: "0112", Name: "B"},
		{Code: "0111", Name: "A"},
		{Code: "0112", Name: "B"},
	}, got)
}

func TestParseDgbasText_RoundTrip(t *testing.T) {
	inputs := []string{
		"0119\t其他農作物栽培業",
		"0111\t稻作栽培業\n0112\t雜糧栽培業",
		"0111\t稻作栽培業\n0112\t雜糧栽培業\n0113\t蔬菜栽培業\n0114\t果樹栽培業",
	}
	for _, in := range inputs {
		assert.Equal(t, strings.TrimSpace(in), FormatDgbasText(ParseDgbasText(in)))
	}
}

func TestParseDgbas_StructuredList(t *testing.T) {
	raw := []any{
		map[string]any{"Code": "0111", "Name": "稻作栽培業"},
		"not an object",
		map[string]any{"Code": " 0112 ", "Name": "雜糧栽培業 "},
	}
	got := parseDgbas(raw, "Code", "Name")
	assert.Equal(t, []DgbasEntry{
		{Code: "0111", Name: "稻作栽培業"},
		{Code: "0112", Name: "雜糧栽培業"},
	}, got)
}

func TestParseDgbas_EmptyForBothEncodings(t *testing.T) {
	for _, v := range []any{nil, "", []any{}, 12.0, map[string]any{}} {
		got := parseDgbas(v, "Code", "Name")
		assert.NotNil(t, got)
		assert.Empty(t, got)
	}
}
