package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/gcis-cli/pkg/gcis"
)

var schemasCmd = &cobra.Command{
	Use:   "schemas",
	Short: "List the key tables used to normalize upstream records",
	RunE: func(cmd *cobra.Command, _ []string) error {
		tables := gcis.BuiltinKeyTables()
		active := cfg.GCIS.Schema

		custom, ok, err := cfg.GCIS.CustomKeyTable()
		if err != nil {
			return err
		}
		if ok {
			tables = append(tables, custom)
			active = custom.Name
		}

		formatKeyTables(cmd.OutOrStdout(), tables, active)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemasCmd)
}

// formatKeyTables writes the version-specific keys of each table to out.
// The active table is marked with "*"; under "auto" every builtin is a
// probe candidate and none is marked.
func formatKeyTables(out io.Writer, tables []gcis.KeyTable, active string) {
	if active == "" {
		active = gcis.KeyTableV1.Name
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "\tNAME\tSUBCATEGORY\tSUBCATEGORY_NAME\tDGBAS\tDGBAS_CODE\tDGBAS_NAME")
	for _, t := range tables {
		mark := ""
		if t.Name == active {
			mark = "*"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			mark, t.Name, t.Subcategory, t.SubcategoryName, t.Dgbas, t.DgbasCode, t.DgbasName)
	}
	_ = w.Flush()
}
