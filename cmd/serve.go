package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/gcis-cli/internal/resilience"
	"github.com/sells-group/gcis-cli/internal/server"
	"github.com/sells-group/gcis-cli/internal/store"
)

var servePort int
var serveSource string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve business item lookups over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		var src server.Source
		switch serveSource {
		case "api":
			client, err := initClient()
			if err != nil {
				return err
			}
			src = resilience.Guarded{
				Client: client,
				Breaker: resilience.NewBreaker(cfg.Server.BreakerThreshold,
					time.Duration(cfg.Server.BreakerCooldownSecs)*time.Second),
			}
		case "store":
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
			src = store.Lookup{Store: st}
		default:
			return eris.Errorf("unknown source %q (want api or store)", serveSource)
		}

		h := server.NewRouter(src, cfg.Server.CORSOrigins)
		return server.Run(ctx, fmt.Sprintf(":%d", cfg.Server.Port), h)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().StringVar(&serveSource, "source", "api", "lookup source: api or store")
	rootCmd.AddCommand(serveCmd)
}
