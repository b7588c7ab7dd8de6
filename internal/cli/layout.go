package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/planmap/pkg/diagram"
)

// layoutCommand lays out a local document file.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output    string
		direction string
		engine    string
		noCache   bool
	)

	cmd := &cobra.Command{
		Use:   "layout <file.json>",
		Short: "Compute node positions for a diagram document",
		Long: `Compute node positions for a diagram document.

The input is a document file with nodeDataArray and linkDataArray, such
as the output of 'export -f json' or a raw generated plan. Saved
positions are discarded. Results are cached locally.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if engine != "" {
				c.cfg.Layout.Engine = engine
			}
			return c.runLayout(cmd.Context(), args[0], output, direction, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.layout.json)")
	cmd.Flags().StringVar(&direction, "direction", "", "layout direction: LR, TB")
	cmd.Flags().StringVar(&engine, "engine", "", "layout engine: layered, graphviz")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	return cmd
}

func (c *CLI) runLayout(ctx context.Context, input, output, direction string, noCache bool) error {
	doc, err := diagram.ReadDocumentFile(input)
	if err != nil {
		return fmt.Errorf("load document %s: %w", input, err)
	}
	dir, err := c.direction(direction)
	if err != nil {
		return err
	}
	adapter, cc, err := c.newAdapter(ctx, noCache)
	if err != nil {
		return err
	}
	defer cc.Close()

	prog := newProgress(c.Logger)
	out, err := layoutDocument(ctx, adapter, doc, dir)
	if err != nil {
		return err
	}
	prog.done("Layout computed", "engine", adapter.Engine().Name(), "nodes", len(out.NodeDataArray))

	if output == "" {
		output = strings.TrimSuffix(input, filepath.Ext(input)) + ".layout.json"
	}
	if err := diagram.WriteDocumentFile(out, output); err != nil {
		return fmt.Errorf("write output %s: %w", output, err)
	}

	printSuccess(c.out, "Layout complete")
	printFile(c.out, output)
	printStats(c.out, len(out.NodeDataArray), len(out.LinkDataArray), c.hooks.cached())
	fmt.Fprintln(c.out)
	printNextStep(c.out, "Render", appName+" export "+output+" -f svg")
	return nil
}
