package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/planmap/pkg/diagram"
	perrors "github.com/matzehuels/planmap/pkg/errors"
	"github.com/matzehuels/planmap/pkg/layout"
	"github.com/matzehuels/planmap/pkg/render"
)

// Export formats.
const (
	FormatSVG  = "svg"
	FormatDOT  = "dot"
	FormatJSON = "json"
)

var exportFormats = []string{FormatSVG, FormatDOT, FormatJSON}

// exportCommand writes a diagram as SVG, DOT or JSON.
func (c *CLI) exportCommand() *cobra.Command {
	var (
		formats   string
		output    string
		direction string
		comments  bool
		noCache   bool
	)

	cmd := &cobra.Command{
		Use:   "export <id|file.json>",
		Short: "Export a diagram as SVG, DOT or JSON",
		Long: `Export a diagram as SVG, DOT or JSON.

The source is a stored diagram id or a local document file. Several
formats may be given comma-separated; they are written concurrently.
SVG and DOT keep the saved node positions when the diagram has them.`,
		Example: `  planmap export 0192f6c3-... -f svg,json
  planmap export plan.json -f dot -o plan.dot`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runExport(cmd.Context(), args[0], exportRequest{
				formats:   parseFormats(formats),
				output:    output,
				direction: direction,
				comments:  comments,
				noCache:   noCache,
			})
		},
	}

	cmd.Flags().StringVarP(&formats, "format", "f", FormatSVG, "output formats: svg, dot, json (comma-separated)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output path, only with a single format (default: <source>.<format>)")
	cmd.Flags().StringVar(&direction, "direction", "", "layout direction: LR, TB")
	cmd.Flags().BoolVar(&comments, "comments", false, "include comments in node labels")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the layout cache")
	return cmd
}

type exportRequest struct {
	formats   []string
	output    string
	direction string
	comments  bool
	noCache   bool
}

// parseFormats splits a comma-separated format list, dropping blanks and
// duplicates.
func parseFormats(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != "" && !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return []string{FormatSVG}
	}
	return out
}

func (c *CLI) runExport(ctx context.Context, source string, req exportRequest) error {
	for _, f := range req.formats {
		if !slices.Contains(exportFormats, f) {
			return perrors.Validation("unknown format %q (want %s)", f, strings.Join(exportFormats, ", "))
		}
	}
	if req.output != "" && len(req.formats) > 1 {
		return perrors.Validation("--output needs exactly one format")
	}
	dir, err := c.direction(req.direction)
	if err != nil {
		return err
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	doc, base, err := c.loadSource(ctx, source)
	if err != nil {
		return err
	}

	adapter, cc, err := c.newAdapter(ctx, req.noCache)
	if err != nil {
		return err
	}
	defer cc.Close()
	res, err := adapter.Load(ctx, doc, dir, c.onLoad())
	if err != nil {
		return err
	}
	doc = res.Document()

	opts := render.Options{
		Direction: dir,
		Pinned:    true,
		Comments:  req.comments,
		Footprint: adapter.Options(),
	}

	paths := make([]string, len(req.formats))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range req.formats {
		path := req.output
		if path == "" {
			path = base + "." + f
		}
		paths[i] = path
		g.Go(func() error {
			data, err := exportBytes(gctx, doc, f, opts)
			if err != nil {
				return fmt.Errorf("%s: %w", f, err)
			}
			return os.WriteFile(path, data, 0o644)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	printSuccess(c.out, "Exported %d file(s)", len(paths))
	for _, p := range paths {
		printFile(c.out, p)
	}
	printStats(c.out, len(doc.NodeDataArray), len(doc.LinkDataArray), c.hooks.cached())
	return nil
}

func exportBytes(ctx context.Context, doc diagram.Document, format string, opts render.Options) ([]byte, error) {
	switch format {
	case FormatDOT:
		return []byte(render.ToDOT(doc, opts)), nil
	case FormatSVG:
		return render.DocumentSVG(ctx, doc, opts)
	case FormatJSON:
		var buf bytes.Buffer
		if err := diagram.WriteDocument(doc, &buf); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return nil, perrors.Validation("unknown format %q", format)
}

// loadSource reads a local document when source is an existing file and
// fetches the stored diagram otherwise. base is the default output path
// without extension.
func (c *CLI) loadSource(ctx context.Context, source string) (diagram.Document, string, error) {
	if info, err := os.Stat(source); err == nil && !info.IsDir() {
		doc, err := diagram.ReadDocumentFile(source)
		if err != nil {
			return diagram.Document{}, "", fmt.Errorf("read %s: %w", source, err)
		}
		return doc, strings.TrimSuffix(source, filepath.Ext(source)), nil
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return diagram.Document{}, "", err
	}

	client, err := c.newClient()
	if err != nil {
		return diagram.Document{}, "", err
	}
	rec, err := client.Fetch(ctx, source)
	if err != nil {
		return diagram.Document{}, "", err
	}
	return rec.Spec, rec.ID.String(), nil
}

// layoutDocument lays out doc from scratch regardless of saved positions.
func layoutDocument(ctx context.Context, a *layout.Adapter, doc diagram.Document, dir layout.Direction) (diagram.Document, error) {
	res, err := a.Load(ctx, doc, dir, layout.OnLoadAlways)
	if err != nil {
		return diagram.Document{}, err
	}
	return res.Document(), nil
}
