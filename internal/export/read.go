package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/gcis-cli/pkg/gcis"
)

// ReadFile loads items from a file previously produced by WriteFile.
// The format is inferred from the extension.
func ReadFile(path string) ([]gcis.BusinessItem, error) {
	f, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	if f == FormatXLSX {
		return readXLSX(path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "export: open file")
	}
	defer file.Close() //nolint:errcheck

	return Read(file, f)
}

// Read decodes items from r. XLSX input must be read with ReadFile.
func Read(r io.Reader, f Format) ([]gcis.BusinessItem, error) {
	var items []gcis.BusinessItem
	switch f {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&items); err != nil {
			return nil, eris.Wrap(err, "export: decode json")
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&items); err != nil && err != io.EOF {
			return nil, eris.Wrap(err, "export: decode yaml")
		}
	case FormatCSV:
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = -1
		records, err := cr.ReadAll()
		if err != nil {
			return nil, eris.Wrap(err, "export: read csv")
		}
		return fromRows(records)
	default:
		return nil, eris.Errorf("export: cannot read format %q", f)
	}
	if items == nil {
		items = []gcis.BusinessItem{}
	}
	return items, nil
}

func readXLSX(path string) ([]gcis.BusinessItem, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "export: open xlsx")
	}
	sheet, ok := f.Sheet[SheetName]
	if !ok {
		if len(f.Sheets) == 0 {
			return nil, eris.New("export: xlsx has no sheets")
		}
		sheet = f.Sheets[0]
	}

	records := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		records = append(records, cells)
	}
	return fromRows(records)
}

// fromRows maps header-addressed rows back onto items. Columns are located by
// header name so reordered or extra columns are tolerated.
func fromRows(records [][]string) ([]gcis.BusinessItem, error) {
	items := []gcis.BusinessItem{}
	if len(records) == 0 {
		return items, nil
	}

	idx := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		idx[h] = i
	}
	if _, ok := idx["business_item"]; !ok {
		return nil, eris.New("export: missing business_item column")
	}

	get := func(row []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	for _, row := range records[1:] {
		items = append(items, gcis.BusinessItem{
			Category:            get(row, "category"),
			CategoryName:        get(row, "category_name"),
			Subcategory:         get(row, "subcategory"),
			SubcategoryName:     get(row, "subcategory_name"),
			Classes:             get(row, "classes"),
			ClassesName:         get(row, "classes_name"),
			BusinessItem:        get(row, "business_item"),
			BusinessItemDesc:    get(row, "business_item_desc"),
			BusinessItemContent: get(row, "business_item_content"),
			Dgbas:               gcis.ParseDgbasText(get(row, "dgbas")),
		})
	}
	return items, nil
}
