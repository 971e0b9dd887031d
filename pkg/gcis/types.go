package gcis

// DgbasEntry maps a business item to a DGBAS industry classification.
type DgbasEntry struct {
	Code string `json:"code" yaml:"code"`
	Name string `json:"name" yaml:"name"`
}

// BusinessItem is a normalized GCIS business item classification record.
// String fields are empty when the upstream entry omits them, and Dgbas is
// never nil once produced by a KeyTable.
type BusinessItem struct {
	Category            string       `json:"category" yaml:"category"`
	CategoryName        string       `json:"category_name" yaml:"category_name"`
	Subcategory         string       `json:"subcategory" yaml:"subcategory"`
	SubcategoryName     string       `json:"subcategory_name" yaml:"subcategory_name"`
	Classes             string       `json:"classes" yaml:"classes"`
	ClassesName         string       `json:"classes_name" yaml:"classes_name"`
	BusinessItem        string       `json:"business_item" yaml:"business_item"`
	BusinessItemDesc    string       `json:"business_item_desc" yaml:"business_item_desc"`
	BusinessItemContent string       `json:"business_item_content" yaml:"business_item_content"`
	Dgbas               []DgbasEntry `json:"dgbas" yaml:"dgbas"`
}

// DefaultTop is the page size used when ListParams.Top is zero.
const DefaultTop = 100

// ListParams selects one page of business items.
type ListParams struct {
	ItemCode string // optional exact Business_Item filter
	Top      int    // page size; 0 means DefaultTop
	Skip     int    // offset
}
