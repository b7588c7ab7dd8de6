package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/planmap/pkg/session"
)

// flushGrace is added to the API timeout when waiting for the last
// pending sync on exit.
const flushGrace = 2 * time.Second

// editCommand opens a stored diagram in the interactive editor.
func (c *CLI) editCommand() *cobra.Command {
	var direction string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a diagram interactively",
		Long: `Edit a diagram interactively.

Every change is saved in the background; the status line shows sync
failures as they happen. Nodes without saved positions are laid out
before the editor opens.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runEdit(cmd.Context(), args[0], direction)
		},
	}
	cmd.Flags().StringVar(&direction, "direction", "", "layout direction for unpositioned diagrams: LR, TB")
	return cmd
}

func (c *CLI) runEdit(ctx context.Context, id, direction string) error {
	client, err := c.newClient()
	if err != nil {
		return err
	}
	adapter, cc, err := c.newAdapter(ctx, false)
	if err != nil {
		return err
	}
	defer cc.Close()
	dir, err := c.direction(direction)
	if err != nil {
		return err
	}

	loadCtx, cancel := c.withTimeout(ctx)
	rec, err := client.Fetch(loadCtx, id)
	if err != nil {
		cancel()
		c.fetchFailed(id)
		return err
	}
	res, err := adapter.Load(loadCtx, rec.Spec, dir, c.onLoad())
	cancel()
	if err != nil {
		return err
	}

	syncErr := make(chan error, 16)
	syncer := session.NewSyncer(id, client,
		session.OnError(func(s session.Snapshot, err error) {
			select {
			case syncErr <- fmt.Errorf("revision %d: %w", s.Revision, err):
			default:
			}
		}),
		session.WithSyncLogger(c.Logger),
	)
	syncer.Start(ctx)

	sess := session.New(res.Nodes, res.Edges, syncer,
		session.WithRevision(rec.Revision),
		session.WithLogger(c.Logger),
	)

	model := newEditorModel(rec.Keyword, sess, adapter.Options(), syncErr)
	_, runErr := tea.NewProgram(model, tea.WithContext(ctx), tea.WithAltScreen()).Run()

	flushCtx, cancelFlush := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.API.Timeout+flushGrace)
	defer cancelFlush()
	flushErr := syncer.Flush(flushCtx)
	_ = syncer.Close()

	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return runErr
	}
	if flushErr != nil {
		printWarning(c.out, "Some changes may not have been saved: %v", flushErr)
	}
	if runErr != nil {
		return ctx.Err()
	}
	for {
		select {
		case err := <-syncErr:
			printWarning(c.out, "Sync failed: %v", err)
			continue
		default:
		}
		break
	}

	printSuccess(c.out, "Saved %s", StyleValue.Render(id))
	fmt.Fprintln(c.out, "  "+summaryLine(sess.Summary()))
	return nil
}
