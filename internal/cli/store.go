package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/lineage/pkg/config"
	"github.com/matzehuels/lineage/pkg/pipeline"
	"github.com/matzehuels/lineage/pkg/store/sqlite"
)

// importCommand creates the import command, which stores a run in SQLite.
func (c *CLI) importCommand() *cobra.Command {
	var (
		flags  assignFlags
		dbPath string
		export string
	)

	cmd := &cobra.Command{
		Use:   "import [file.csv]",
		Short: "Assign generations and store the result in a SQLite database",
		Long: `Assign generations and store the result in a SQLite database.

Every import is a separate run identified by a UUID. Stored runs can be
listed and inspected with 'lineage runs' or over the HTTP API.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			opts := pipeline.OptionsFromConfig(cfg)
			opts.Source = sourceName(args[0])
			opts.Formats = []string{config.FormatJSON}
			flags.apply(cmd, &opts)
			if cmd.Flags().Changed("db") {
				cfg.Store.Path = dbPath
			}

			data, err := readInput(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			runner, err := c.newRunner(cfg, flags.noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			return c.runImport(cmd.Context(), cmd.OutOrStdout(), runner, data, opts, cfg.Store.Path, export)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (default from config: lineage.db)")
	cmd.Flags().StringVar(&export, "export", "", "also write the labeled graph as JSON to this file")

	return cmd
}

func (c *CLI) runImport(ctx context.Context, w io.Writer, runner *pipeline.Runner, data []byte, opts pipeline.Options, dbPath, export string) error {
	res, err := runner.Execute(ctx, data, opts)
	if err != nil {
		return err
	}

	store, err := sqlite.Open(ctx, dbPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", dbPath, err)
	}
	defer store.Close()

	anchor := res.Anchor
	if err := store.Save(ctx, res.RunID, opts.Source, res.Graph, &anchor); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	c.Logger.Debug("stored run", "run", res.RunID, "db", dbPath)

	printSuccess(w, "Stored run %s", StyleHighlight.Render(res.RunID))
	printKeyValue(w, "database", dbPath)
	printKeyValue(w, "people", strconv.Itoa(res.Stats.NodeCount))
	printKeyValue(w, "anchor", strconv.Itoa(res.Anchor))
	printKeyValue(w, "unresolved", strconv.Itoa(len(res.Assignment.Unresolved)))

	if export != "" {
		if err := writeArtifacts(w, artifactWriteParams{
			artifacts: res.Artifacts,
			formats:   []string{config.FormatJSON},
			input:     export,
			output:    export,
		}); err != nil {
			return err
		}
	}
	return nil
}

// runsCommand creates the runs command for inspecting stored runs.
func (c *CLI) runsCommand() *cobra.Command {
	var dbPath string

	openStore := func(cmd *cobra.Command) (*sqlite.Store, error) {
		cfg, err := c.loadConfig()
		if err != nil {
			return nil, err
		}
		if cmd.Flags().Changed("db") {
			cfg.Store.Path = dbPath
		}
		return sqlite.Open(cmd.Context(), cfg.Store.Path)
	}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List runs stored by 'lineage import'",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.Runs(cmd.Context())
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				printInfo(cmd.OutOrStdout(), "No stored runs in %s", store.Path())
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), runsTable(runs))
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (default from config: lineage.db)")

	cmd.AddCommand(&cobra.Command{
		Use:   "show [run-id]",
		Short: "Print the generation table of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.Run(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			g, err := store.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			anchor := -1
			if run.Anchor != nil {
				anchor = *run.Anchor
			}
			fmt.Fprintln(cmd.OutOrStdout(), generationTable(g, anchor))
			var unresolved []int
			for _, n := range g.Unresolved() {
				unresolved = append(unresolved, n.ID)
			}
			printUnresolved(cmd.OutOrStdout(), g, unresolved)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete [run-id]",
		Short: "Delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Deleted run %s", args[0])
			return nil
		},
	})

	return cmd
}

func runsTable(runs []sqlite.Run) string {
	rows := make([][]string, len(runs))
	for i, r := range runs {
		anchor := "-"
		if r.Anchor != nil {
			anchor = strconv.Itoa(*r.Anchor)
		}
		rows[i] = []string{
			r.ID,
			r.CreatedAt.Local().Format(time.DateTime),
			r.Source,
			strconv.Itoa(r.People),
			anchor,
			strconv.Itoa(r.Unresolved),
		}
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(StyleDim).
		Headers("RUN", "CREATED", "SOURCE", "PEOPLE", "ANCHOR", "UNRESOLVED").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleTableHeader
			}
			return styleTableCell
		}).
		String()
}
