package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/matzehuels/planmap/pkg/diagram"
)

// showCommand prints a stored diagram as a table.
func (c *CLI) showCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a stored diagram",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runShow(cmd.Context(), args[0])
		},
	}
}

func (c *CLI) runShow(ctx context.Context, id string) error {
	client, err := c.newClient()
	if err != nil {
		return err
	}
	adapter, cc, err := c.newAdapter(ctx, false)
	if err != nil {
		return err
	}
	defer cc.Close()
	dir, err := c.direction("")
	if err != nil {
		return err
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	rec, err := client.Fetch(ctx, id)
	if err != nil {
		c.fetchFailed(id)
		return err
	}
	res, err := adapter.Load(ctx, rec.Spec, dir, c.onLoad())
	if err != nil {
		return err
	}
	rec.Spec = res.Document()
	printDiagram(c.out, rec)
	return nil
}

// fetchFailed points the user back to generate when a diagram cannot be
// loaded.
func (c *CLI) fetchFailed(id string) {
	printError(c.out, "Could not load diagram %s", id)
	printNextStep(c.out, "Create", appName+` generate -k "..." --start YYYY-MM-DD --end YYYY-MM-DD`)
}

// printDiagram prints the record header, its node table and a summary.
func printDiagram(w io.Writer, rec diagram.Diagram) {
	fmt.Fprintln(w, StyleTitle.Render(rec.Keyword))
	printKeyValue(w, "id", rec.ID.String())
	printKeyValue(w, "language", rec.Lang)
	printKeyValue(w, "period", rec.StartDate+" "+iconArrow+" "+rec.EndDate)
	if rec.Revision > 0 {
		printKeyValue(w, "revision", fmt.Sprint(rec.Revision))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, nodeTable(rec.Spec))
	fmt.Fprintln(w, "  "+summaryLine(diagram.Summarize(rec.Spec)))
}
