package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/planmap/pkg/diagram"
)

// generateCommand asks the backend for a plan and stores it as a new
// diagram. The generated spec is stored as returned; layout happens when
// the diagram is first shown or edited.
func (c *CLI) generateCommand() *cobra.Command {
	var p diagram.Params

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a plan diagram from a keyword and date range",
		Long: `Generate a plan diagram from a keyword and date range.

The plan generator returns a role/task graph which is stored as a new
diagram. The printed id is what 'show', 'edit' and 'export' take.`,
		Example: `  planmap generate --keyword "launch a podcast" --start 2026-11-01 --end 2026-12-15
  planmap generate -k "김장 준비" --lang ko --start 2026-11-20 --end 2026-11-30`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGenerate(cmd.Context(), p)
		},
	}

	cmd.Flags().StringVarP(&p.Keyword, "keyword", "k", "", "what the plan is about (required)")
	cmd.Flags().StringVar(&p.Lang, "lang", diagram.LangEnglish, "plan language: en, ko")
	cmd.Flags().StringVar(&p.StartDate, "start", "", "start date, YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&p.EndDate, "end", "", "end date, YYYY-MM-DD (required)")
	_ = cmd.MarkFlagRequired("keyword")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")

	return cmd
}

func (c *CLI) runGenerate(ctx context.Context, p diagram.Params) error {
	p = p.Normalize()
	if err := p.Validate(); err != nil {
		return err
	}
	client, err := c.newClient()
	if err != nil {
		return err
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	prog := newProgress(c.Logger)
	sp := newSpinner(ctx, c.out, fmt.Sprintf("Generating plan for %q...", p.Keyword))
	sp.Start()
	doc, err := client.Generate(ctx, p)
	sp.Stop()
	if err != nil {
		printError(c.out, "Generation failed")
		return err
	}
	prog.done("Plan generated", "nodes", len(doc.NodeDataArray), "edges", len(doc.LinkDataArray))

	rec, err := client.Create(ctx, p, doc)
	if err != nil {
		printError(c.out, "Could not save the generated plan")
		return err
	}

	printSuccess(c.out, "Diagram %s created", StyleValue.Render(rec.ID.String()))
	printStats(c.out, len(doc.NodeDataArray), len(doc.LinkDataArray), false)
	fmt.Fprintln(c.out)
	printNextStep(c.out, "Edit", appName+" edit "+rec.ID.String())
	return nil
}
