package main

import (
	"net/http"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/cobra"

	"github.com/Fxcilities/state-pool/pkg/inspect"
	"github.com/Fxcilities/state-pool/pkg/metrics"
	"github.com/Fxcilities/state-pool/pkg/persist"
	"github.com/Fxcilities/state-pool/pkg/store"
)

// serveConfig is loaded from the environment; flags override it.
type serveConfig struct {
	Addr      string `env:"STATEPOOL_ADDR" envDefault:":8090"`
	StateFile string `env:"STATEPOOL_STATE_FILE" envDefault:"statepool.json"`
}

func serveCmd() *cobra.Command {
	var (
		addr      string
		stateFile string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a file-backed store with a live inspector",
		Long: `Serve opens (or creates) a file-backed state store and exposes it over
HTTP: keys, per-key values, Prometheus metrics, and a WebSocket stream of
change events.

Configuration comes from STATEPOOL_ADDR and STATEPOOL_STATE_FILE,
overridable with flags.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg serveConfig
			if err := env.Parse(&cfg); err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}
			if cmd.Flags().Changed("state-file") {
				cfg.StateFile = stateFile
			}

			storage, err := persist.NewFileStorage(cfg.StateFile)
			if err != nil {
				return err
			}

			m := metrics.New()
			storeCfg := m.InstrumentStorage(storage.Config())
			storeCfg.PersistEntireStore = store.Bool(true)

			s := store.New(
				store.WithPersistence(storeCfg),
				store.WithSaveErrorHandler(func(key string, err error) {
					warn("save %q: %s", key, err)
				}),
			)
			s.Subscribe(m.Observer())

			// Re-materialize previously saved keys so the inspector has
			// something to show before the host writes anything.
			for key := range storage.Entries() {
				if _, err := store.GetState[any](s, key, store.WithDefault(nil)); err != nil {
					warn("restore %q: %s", key, err)
				}
			}

			inspector := inspect.New(s)
			defer inspector.Close()

			success("state file %s (%d keys)", cfg.StateFile, s.Len())
			info("listening on %s", cfg.Addr)
			return http.ListenAndServe(cfg.Addr, inspector.Router())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8090", "listen address")
	cmd.Flags().StringVar(&stateFile, "state-file", "statepool.json", "path to the JSON state document")
	return cmd
}
