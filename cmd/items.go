package main

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/gcis-cli/internal/export"
	"github.com/sells-group/gcis-cli/pkg/gcis"
)

var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "List one page of business items",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := initClient()
		if err != nil {
			return err
		}

		params, err := listParamsFromFlags(cmd)
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		out, _ := cmd.Flags().GetString("out")

		items, err := client.ListBusinessItems(cmd.Context(), params)
		if err != nil {
			return eris.Wrap(err, "items")
		}
		return emit(cmd.OutOrStdout(), out, format, items)
	},
}

var itemCmd = &cobra.Command{
	Use:   "item <code>",
	Short: "Show a single business item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := initClient()
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")

		item, err := client.GetBusinessItem(cmd.Context(), args[0])
		if err != nil {
			return eris.Wrapf(err, "item %s", args[0])
		}
		return emit(cmd.OutOrStdout(), "", format, []gcis.BusinessItem{*item})
	},
}

func init() {
	addPageFlags(itemsCmd)
	itemsCmd.Flags().String("format", string(export.FormatTable), "output format (table, json, yaml, csv)")
	itemsCmd.Flags().String("out", "", "write to file instead of stdout; format inferred from extension")

	itemCmd.Flags().String("format", string(export.FormatJSON), "output format (table, json, yaml, csv)")

	rootCmd.AddCommand(itemsCmd)
	rootCmd.AddCommand(itemCmd)
}

func addPageFlags(cmd *cobra.Command) {
	cmd.Flags().String("code", "", "exact business item code filter")
	cmd.Flags().Int("top", gcis.DefaultTop, "page size")
	cmd.Flags().Int("skip", 0, "number of records to skip")
}

func listParamsFromFlags(cmd *cobra.Command) (gcis.ListParams, error) {
	code, _ := cmd.Flags().GetString("code")
	top, _ := cmd.Flags().GetInt("top")
	skip, _ := cmd.Flags().GetInt("skip")

	p := gcis.ListParams{ItemCode: code, Top: top, Skip: skip}
	if err := p.Validate(); err != nil {
		return gcis.ListParams{}, err
	}
	return p, nil
}

// emit writes items to path when set, otherwise to w in the named format.
func emit(w io.Writer, path, format string, items []gcis.BusinessItem) error {
	if path != "" {
		return export.WriteFile(path, items)
	}

	f, err := export.ParseFormat(format)
	if err != nil {
		return err
	}
	if f == export.FormatXLSX {
		return eris.New("xlsx output requires --out")
	}
	return export.Write(w, f, items)
}
