// Package export writes normalized business items as JSON, YAML, CSV, XLSX or
// an aligned text table.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/gcis-cli/pkg/gcis"
)

// Format identifies an output encoding.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatCSV   Format = "csv"
	FormatXLSX  Format = "xlsx"
)

// SheetName is the worksheet written by the XLSX exporter.
const SheetName = "business_items"

// Header is the column order used by CSV and XLSX output.
var Header = []string{
	"business_item", "category", "category_name", "subcategory", "subcategory_name",
	"classes", "classes_name", "business_item_desc", "business_item_content", "dgbas",
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatJSON, FormatYAML, FormatCSV, FormatXLSX:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", eris.Errorf("export: unknown format %q", s)
	}
}

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" || ext == string(FormatTable) {
		return "", eris.Errorf("export: cannot infer format from %q", path)
	}
	return ParseFormat(ext)
}

// Row flattens an item into Header order. Agency mappings are re-joined in
// their delimited text encoding.
func Row(it gcis.BusinessItem) []string {
	return []string{
		it.BusinessItem, it.Category, it.CategoryName, it.Subcategory, it.SubcategoryName,
		it.Classes, it.ClassesName, it.BusinessItemDesc, it.BusinessItemContent,
		gcis.FormatDgbasText(it.Dgbas),
	}
}

// Write encodes items to w in the given format.
func Write(w io.Writer, f Format, items []gcis.BusinessItem) error {
	if items == nil {
		items = []gcis.BusinessItem{}
	}
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(items), "export: encode json")
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(items); err != nil {
			return eris.Wrap(err, "export: encode yaml")
		}
		return eris.Wrap(enc.Close(), "export: close yaml encoder")
	case FormatCSV:
		return writeCSV(w, items)
	case FormatXLSX:
		book, err := buildXLSX(items)
		if err != nil {
			return err
		}
		return eris.Wrap(book.Write(w), "export: write xlsx")
	case FormatTable:
		return WriteTable(w, items)
	default:
		return eris.Errorf("export: unknown format %q", f)
	}
}

// WriteFile writes items to path, inferring the format from its extension.
func WriteFile(path string, items []gcis.BusinessItem) error {
	f, err := FormatFromPath(path)
	if err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "export: create file")
	}
	if err := Write(file, f, items); err != nil {
		file.Close() //nolint:errcheck
		return err
	}
	if err := file.Close(); err != nil {
		return eris.Wrap(err, "export: close file")
	}

	zap.L().Info("export written",
		zap.String("path", path),
		zap.String("format", string(f)),
		zap.Int("items", len(items)),
	)
	return nil
}

func writeCSV(w io.Writer, items []gcis.BusinessItem) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, it := range items {
		if err := cw.Write(Row(it)); err != nil {
			return eris.Wrapf(err, "export: write csv row %s", it.BusinessItem)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

func buildXLSX(items []gcis.BusinessItem) (*xlsx.File, error) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return nil, eris.Wrap(err, "export: add sheet")
	}
	addRow := func(cells []string) {
		row := sheet.AddRow()
		for _, v := range cells {
			row.AddCell().SetString(v)
		}
	}
	addRow(Header)
	for _, it := range items {
		addRow(Row(it))
	}
	return f, nil
}
