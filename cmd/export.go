package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Fetch several pages concurrently and write them to a file",
	Long:  "Fetches --pages consecutive pages of --top items and writes them, in page order, to --out. The file format follows the extension: .xlsx, .csv, .json or .yaml.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("export"); err != nil {
			return err
		}
		client, err := initClient()
		if err != nil {
			return err
		}

		params, err := listParamsFromFlags(cmd)
		if err != nil {
			return err
		}
		out, _ := cmd.Flags().GetString("out")
		pages, _ := cmd.Flags().GetInt("pages")
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		if concurrency == 0 {
			concurrency = cfg.Export.Concurrency
		}

		items, err := fetchPages(cmd.Context(), client, params, pages, concurrency, pageBackoff())
		if err != nil {
			return eris.Wrap(err, "export")
		}

		if err := emit(cmd.OutOrStdout(), out, "", items); err != nil {
			return err
		}
		zap.L().Info("export complete", zap.String("out", out), zap.Int("items", len(items)))
		return nil
	},
}

func init() {
	addPageFlags(exportCmd)
	exportCmd.Flags().String("out", "", "output file (.xlsx, .csv, .json, .yaml)")
	exportCmd.Flags().Int("pages", 1, "number of consecutive pages to fetch")
	exportCmd.Flags().Int("concurrency", 0, "parallel page requests (default from config)")
	_ = exportCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(exportCmd)
}
