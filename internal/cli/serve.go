package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/lineage/pkg/pipeline"
	"github.com/matzehuels/lineage/pkg/server"
	"github.com/matzehuels/lineage/pkg/store/sqlite"
)

// serveCommand creates the serve command that runs the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		dbPath  string
		noStore bool
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the generation API over HTTP",
		Long: `Serve the generation API over HTTP.

Endpoints:
  GET    /healthz
  POST   /api/v1/generations   CSV body, returns the labeled graph as JSON
  POST   /api/v1/render        CSV body, ?format=svg|png|pdf|dot|json
  GET    /api/v1/runs          stored runs
  GET    /api/v1/runs/{id}     one stored graph
  DELETE /api/v1/runs/{id}

Set cache.redis_url in the config file to share cached results between
instances.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("db") {
				cfg.Store.Path = dbPath
			}

			runner, err := c.newRunner(cfg, noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			var store *sqlite.Store
			if !noStore {
				if store, err = sqlite.Open(cmd.Context(), cfg.Store.Path); err != nil {
					return fmt.Errorf("open %s: %w", cfg.Store.Path, err)
				}
				defer store.Close()
			}

			return c.runServe(cmd.Context(), runner, store, pipeline.OptionsFromConfig(cfg), cfg.Server.Addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config: :8080)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database for stored runs (default from config: lineage.db)")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "disable the runs endpoints")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, runner *pipeline.Runner, store *sqlite.Store, defaults pipeline.Options, addr string) error {
	srv := server.New(runner, store, defaults, c.Logger)
	return srv.ListenAndServe(ctx, addr)
}
