package main

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/gcis-cli/internal/export"
	"github.com/sells-group/gcis-cli/internal/store"
	"github.com/sells-group/gcis-cli/pkg/gcis"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Upsert business items into the configured store",
	Long:  "Fetches --pages pages from the API, or reads a previous export with --from, and upserts the items into the store under a new sync run.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		for _, mode := range []string{"export", "store"} {
			if err := cfg.Validate(mode); err != nil {
				return err
			}
		}

		from, _ := cmd.Flags().GetString("from")
		var (
			items []gcis.BusinessItem
			err   error
		)
		if from != "" {
			items, err = export.ReadFile(from)
		} else {
			items, err = fetchForSync(cmd)
		}
		if err != nil {
			return eris.Wrap(err, "sync")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, total, err := syncItems(ctx, st, items)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "sync %s: %d items upserted, %d stored\n", run.ID, run.Items, total)
		return nil
	},
}

func fetchForSync(cmd *cobra.Command) ([]gcis.BusinessItem, error) {
	client, err := initClient()
	if err != nil {
		return nil, err
	}
	params, err := listParamsFromFlags(cmd)
	if err != nil {
		return nil, err
	}
	pages, _ := cmd.Flags().GetInt("pages")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	if concurrency == 0 {
		concurrency = cfg.Export.Concurrency
	}
	return fetchPages(cmd.Context(), client, params, pages, concurrency, pageBackoff())
}

// syncItems records a sync run around the upsert and returns the completed
// run with the store's total item count.
func syncItems(ctx context.Context, st store.Store, items []gcis.BusinessItem) (*store.SyncRun, int, error) {
	run, err := st.CreateSyncRun(ctx)
	if err != nil {
		return nil, 0, eris.Wrap(err, "sync: create run")
	}
	log := zap.L().With(zap.String("sync_id", run.ID))

	n, err := st.UpsertBusinessItems(ctx, run.ID, items)
	if err != nil {
		return nil, 0, eris.Wrap(err, "sync: upsert items")
	}
	if skipped := len(items) - n; skipped > 0 {
		log.Warn("items without a code were skipped", zap.Int("skipped", skipped))
	}

	if err := st.CompleteSyncRun(ctx, run.ID, n); err != nil {
		return nil, 0, eris.Wrap(err, "sync: complete run")
	}
	run.Items = n

	total, err := st.CountBusinessItems(ctx)
	if err != nil {
		return nil, 0, eris.Wrap(err, "sync: count items")
	}
	log.Info("sync complete", zap.Int("upserted", n), zap.Int("stored", total))
	return run, total, nil
}

func init() {
	addPageFlags(syncCmd)
	syncCmd.Flags().Int("pages", 1, "number of consecutive pages to fetch")
	syncCmd.Flags().Int("concurrency", 0, "parallel page requests (default from config)")
	syncCmd.Flags().String("from", "", "load items from an export file instead of the API")
	rootCmd.AddCommand(syncCmd)
}
