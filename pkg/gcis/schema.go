package gcis

import (
	"sort"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// KeyTable is the canonical set of upstream field names for one GCIS schema
// version. Each BusinessItem field is read from exactly one key.
type KeyTable struct {
	Name                string `yaml:"name"`
	Category            string `yaml:"category"`
	CategoryName        string `yaml:"category_name"`
	Subcategory         string `yaml:"subcategory"`
	SubcategoryName     string `yaml:"subcategory_name"`
	Classes             string `yaml:"classes"`
	ClassesName         string `yaml:"classes_name"`
	BusinessItem        string `yaml:"business_item"`
	BusinessItemDesc    string `yaml:"business_item_desc"`
	BusinessItemContent string `yaml:"business_item_content"`
	Dgbas               string `yaml:"dgbas"`
	DgbasCode           string `yaml:"dgbas_code"`
	DgbasName           string `yaml:"dgbas_name"`
}

// SchemaAuto selects per-response probing instead of a fixed table.
const SchemaAuto = "auto"

// KeyTableV1 matches the dataset as served with "Subcategory"/"Subcategories_Name"
// and a tab-delimited "Dgbas" text field. It is the default.
var KeyTableV1 = KeyTable{
	Name:                "v1",
	Category:            "Category",
	CategoryName:        "Category_Name",
	Subcategory:         "Subcategory",
	SubcategoryName:     "Subcategories_Name",
	Classes:             "Classes",
	ClassesName:         "Classes_Name",
	BusinessItem:        "Business_Item",
	BusinessItemDesc:    "Business_Item_Desc",
	BusinessItemContent: "Business_Item_Content",
	Dgbas:               "Dgbas",
	DgbasCode:           "Code",
	DgbasName:           "Name",
}

// KeyTableV2 uses the camel-cased "SubCategory"/"SubCategory_Name" keys.
var KeyTableV2 = withKeys(KeyTableV1, "v2", "SubCategory", "SubCategory_Name", "Dgbas")

// KeyTableV3 is V2 with the agency field upper-cased to "DGBAS".
var KeyTableV3 = withKeys(KeyTableV1, "v3", "SubCategory", "SubCategory_Name", "DGBAS")

func withKeys(base KeyTable, name, sub, subName, dgbas string) KeyTable {
	base.Name = name
	base.Subcategory = sub
	base.SubcategoryName = subName
	base.Dgbas = dgbas
	return base
}

// BuiltinKeyTables returns the shipped key tables ordered by name.
func BuiltinKeyTables() []KeyTable {
	return []KeyTable{KeyTableV1, KeyTableV2, KeyTableV3}
}

// LookupKeyTable returns the builtin table with the given name.
// An empty name yields KeyTableV1.
func LookupKeyTable(name string) (KeyTable, error) {
	if name == "" {
		return KeyTableV1, nil
	}
	for _, t := range BuiltinKeyTables() {
		if t.Name == name {
			return t, nil
		}
	}
	return KeyTable{}, eris.Errorf("gcis: unknown key table %q", name)
}

// ParseKeyTable decodes a YAML key table. Keys left empty inherit from KeyTableV1.
func ParseKeyTable(data []byte) (KeyTable, error) {
	var t KeyTable
	if err := yaml.Unmarshal(data, &t); err != nil {
		return KeyTable{}, eris.Wrap(err, "gcis: parse key table")
	}
	if t.Name == "" {
		return KeyTable{}, eris.New("gcis: key table name is required")
	}
	if t.Name == SchemaAuto {
		return KeyTable{}, eris.Errorf("gcis: key table name %q is reserved", SchemaAuto)
	}
	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&t.Category, KeyTableV1.Category)
	fill(&t.CategoryName, KeyTableV1.CategoryName)
	fill(&t.Subcategory, KeyTableV1.Subcategory)
	fill(&t.SubcategoryName, KeyTableV1.SubcategoryName)
	fill(&t.Classes, KeyTableV1.Classes)
	fill(&t.ClassesName, KeyTableV1.ClassesName)
	fill(&t.BusinessItem, KeyTableV1.BusinessItem)
	fill(&t.BusinessItemDesc, KeyTableV1.BusinessItemDesc)
	fill(&t.BusinessItemContent, KeyTableV1.BusinessItemContent)
	fill(&t.Dgbas, KeyTableV1.Dgbas)
	fill(&t.DgbasCode, KeyTableV1.DgbasCode)
	fill(&t.DgbasName, KeyTableV1.DgbasName)
	return t, nil
}

// Keys returns the distinct upstream keys the table reads, sorted.
func (t KeyTable) Keys() []string {
	set := map[string]struct{}{}
	for _, k := range []string{
		t.Category, t.CategoryName, t.Subcategory, t.SubcategoryName,
		t.Classes, t.ClassesName, t.BusinessItem, t.BusinessItemDesc,
		t.BusinessItemContent, t.Dgbas,
	} {
		set[k] = struct{}{}
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// distinguishing are the keys that differ between observed schema versions.
func (t KeyTable) distinguishing() []string {
	seen := map[string]struct{}{}
	var keys []string
	for _, k := range []string{t.Subcategory, t.SubcategoryName, t.Dgbas} {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}

// ProbeKeyTable picks the candidate whose version-specific keys best match
// the raw entry. Tied candidates that read the present keys into the same
// fields are equivalent for this entry and the first one wins. No match, a
// tie between disagreeing candidates, or a non-object entry returns fallback.
func ProbeKeyTable(entry any, candidates []KeyTable, fallback KeyTable) KeyTable {
	obj, ok := entry.(map[string]any)
	if !ok {
		return fallback
	}

	best, bestScore, tied := fallback, 0, false
	for _, c := range candidates {
		score := 0
		for _, k := range c.distinguishing() {
			if _, ok := obj[k]; ok {
				score++
			}
		}
		switch {
		case score > bestScore:
			best, bestScore, tied = c, score, false
		case score == bestScore && score > 0:
			if best.presentReads(obj) != c.presentReads(obj) {
				tied = true
			}
		}
	}
	if bestScore == 0 || tied {
		return fallback
	}
	return best
}

// presentReads lists, per version-specific field, the key the table reads
// when obj carries it.
func (t KeyTable) presentReads(obj map[string]any) [3]string {
	var reads [3]string
	for i, k := range []string{t.Subcategory, t.SubcategoryName, t.Dgbas} {
		if _, ok := obj[k]; ok {
			reads[i] = k
		}
	}
	return reads
}
