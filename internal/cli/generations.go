package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/matzehuels/lineage/pkg/family"
	"github.com/matzehuels/lineage/pkg/pipeline"
)

// generationsCommand creates the generations command.
func (c *CLI) generationsCommand() *cobra.Command {
	var flags assignFlags

	cmd := &cobra.Command{
		Use:   "generations [file.csv]",
		Short: "Print the generation of every person",
		Long: `Print the generation of every person in a CSV file.

The youngest descendant is generation 0, parents are 1, grandparents 2, and
so on. Persons who cannot be reached from the selected descendant are
reported as unresolved. Use "-" to read from standard input.

The CSV columns are: id, first, middle, last, mother, father, birth, death.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			opts := pipeline.OptionsFromConfig(cfg)
			opts.Source = sourceName(args[0])
			flags.apply(cmd, &opts)

			data, err := readInput(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			runner, err := c.newRunner(cfg, flags.noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			return c.runGenerations(cmd.Context(), cmd.OutOrStdout(), runner, data, opts)
		},
	}
	flags.register(cmd)

	return cmd
}

func (c *CLI) runGenerations(ctx context.Context, w io.Writer, runner *pipeline.Runner, data []byte, opts pipeline.Options) error {
	prog := newProgress(c.Logger)
	g, meta, hit, err := runner.AssignWithCacheInfo(ctx, data, opts)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Assigned generations to %d people", g.NodeCount()))

	fmt.Fprintln(w, generationTable(g, *meta.Anchor))
	printStats(w, g.NodeCount(), g.EdgeCount(), hit)
	printUnresolved(w, g, meta.Stats.Unresolved)
	return nil
}

// printUnresolved warns about persons left without a generation.
func printUnresolved(w io.Writer, g *family.Graph, ids []int) {
	if len(ids) == 0 {
		return
	}
	printWarning(w, "%d people could not be placed in a generation", len(ids))
	for _, id := range ids {
		if n, ok := g.Node(id); ok {
			printDetail(w, "%d  %s", id, n.Name())
		}
	}
}
