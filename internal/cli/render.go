package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/lineage/pkg/config"
	"github.com/matzehuels/lineage/pkg/pipeline"
)

// renderCommand creates the render command for generating diagrams.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		flags      assignFlags
		formatsStr string
		output     string
		detailed   bool
		unassigned string
	)

	cmd := &cobra.Command{
		Use:   "render [file.csv]",
		Short: "Render a generation diagram",
		Long: `Render a generation diagram from a CSV file.

Each generation becomes one horizontal band, oldest at the top, and every
person is linked to their mother and father. People without a generation are
left out unless --unassigned=band draws them in a separate bottom band.

Formats: dot, svg (default), png, pdf, json. With a single format, --output
names the file; with several it is the base path and each format adds its
extension. Results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			opts := pipeline.OptionsFromConfig(cfg)
			opts.Source = sourceName(args[0])
			flags.apply(cmd, &opts)
			if cmd.Flags().Changed("format") {
				opts.Formats = parseFormats(formatsStr)
			}
			if cmd.Flags().Changed("detailed") {
				opts.Detailed = detailed
			}
			if cmd.Flags().Changed("unassigned") {
				opts.Unassigned = unassigned
			}
			if err := opts.ValidateAndSetDefaults(); err != nil {
				return err
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

			return c.runRender(cmd.Context(), cmd.OutOrStdout(), runner, data, opts, args[0], output)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): "+strings.Join(config.Formats, ", ")+" (comma-separated)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "add person id and generation to each label")
	cmd.Flags().StringVar(&unassigned, "unassigned", "", "people without a generation: omit (default), band")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, w io.Writer, runner *pipeline.Runner, data []byte, opts pipeline.Options, input, output string) error {
	spinner := newSpinner(ctx, os.Stderr, "Assigning generations...")
	spinner.Start()

	res, err := runner.Execute(ctx, data, opts)
	if err != nil {
		spinner.StopWithError("Render failed")
		return err
	}
	spinner.Stop()

	printSuccess(w, "Rendered %d people across %s", res.Stats.NodeCount, generationSpan(res))
	printStats(w, res.Stats.NodeCount, res.Stats.EdgeCount, res.CacheInfo.AssignHit)

	if err := writeArtifacts(w, artifactWriteParams{
		artifacts: res.Artifacts,
		formats:   opts.Formats,
		input:     input,
		output:    output,
		cacheHit:  res.CacheInfo.RenderHit,
	}); err != nil {
		return err
	}
	printUnresolved(w, res.Graph, res.Assignment.Unresolved)
	return nil
}

func generationSpan(res *pipeline.Result) string {
	lo, hi, ok := res.Graph.GenerationBounds()
	if !ok {
		return "no generations"
	}
	n := hi - lo + 1
	if n == 1 {
		return "1 generation"
	}
	return fmt.Sprintf("%d generations", n)
}

// artifactWriteParams describes the files produced by a render.
type artifactWriteParams struct {
	artifacts map[string][]byte
	formats   []string
	input     string
	output    string
	cacheHit  bool
}

// writeArtifacts writes each rendered format to disk and lists the paths.
func writeArtifacts(w io.Writer, p artifactWriteParams) error {
	formats := append([]string(nil), p.formats...)
	sort.Strings(formats)

	for _, format := range formats {
		path := outputPath(p.input, p.output, format, len(formats) > 1)
		if err := os.WriteFile(path, p.artifacts[format], 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		printFile(w, path)
	}
	if p.cacheHit {
		printDetail(w, "served from cache")
	}
	return nil
}

// outputPath derives the file name for one format. An explicit single-format
// output is used verbatim; otherwise the extension is replaced.
func outputPath(input, output, format string, multi bool) string {
	if output != "" && !multi {
		return output
	}
	base := output
	if base == "" {
		if input == stdinName {
			base = appName
		} else {
			base = input
		}
	}
	return strings.TrimSuffix(base, filepath.Ext(base)) + "." + format
}
