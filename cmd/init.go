package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/gcis-cli/internal/store"
	"github.com/sells-group/gcis-cli/pkg/gcis"
)

// initClient builds the GCIS client from the loaded config.
func initClient() (gcis.Client, error) {
	if err := cfg.Validate(""); err != nil {
		return nil, err
	}
	opts, err := cfg.GCIS.ClientOptions()
	if err != nil {
		return nil, err
	}
	return gcis.NewClient(opts...), nil
}

// initStore opens and migrates the configured store. Callers close it.
func initStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("store"); err != nil {
		return nil, err
	}

	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite":
		st, err = store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}
