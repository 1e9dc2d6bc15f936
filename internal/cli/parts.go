package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"portalkit/internal/model"
	"portalkit/internal/portal"
	"portalkit/internal/view"
	"portalkit/internal/webparts"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newPartsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parts",
		Short: "Webpart commands",
	}
	cmd.AddCommand(newPartsListCmd(app))
	cmd.AddCommand(newPartsAddCmd(app))
	cmd.AddCommand(newPartsMoveCmd(app))
	cmd.AddCommand(newPartsRemoveCmd(app))
	cmd.AddCommand(newPartsSetCmd(app))
	cmd.AddCommand(newPartsSaveCmd(app))
	cmd.AddCommand(newPartsRenderCmd(app))
	return cmd
}

func addPageFlag(cmd *cobra.Command, page *string) {
	cmd.Flags().StringVar(page, "page", model.DefaultPageID, "Portal page id")
}

func parseRowID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid row id: %q", s)
	}
	return id, nil
}

// parseProps reads repeated key=value flags.
func parseProps(kvs []string) (map[string]string, error) {
	if len(kvs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		k, v, ok := strings.Cut(kv, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --prop %q (expected key=value)", kv)
		}
		out[k] = v
	}
	return out, nil
}

func newPartsListCmd(app *App) *cobra.Command {
	var page string
	cmd := &cobra.Command{
		Use:   "list <container>",
		Short: "List the webparts of a page in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := app.manager(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			parts, err := mgr.GetParts(cmd.Context(), args[0], page)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, parts)
		},
	}
	addPageFlag(cmd, &page)
	return cmd
}

func newPartsAddCmd(app *App) *cobra.Command {
	var page, name, location string
	var index int
	var props []string

	cmd := &cobra.Command{
		Use:   "add <container>",
		Short: "Add a webpart",
		Long: strings.TrimSpace(`
Add a webpart to a page. Without --index it goes last; --index k puts it at position k and
shifts every part at k or later down by one.
`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parseProps(props)
			if err != nil {
				return writeErr(cmd, err)
			}
			mgr, err := app.manager(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			part, err := mgr.AddPart(cmd.Context(), args[0], page, name, location, index, p)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, part)
		},
	}
	addPageFlag(cmd, &page)
	cmd.Flags().StringVar(&name, "name", "", "Webpart type (built-ins: Wiki, HTML, Links)")
	cmd.Flags().StringVar(&location, "location", "", "Region (default: the type's default location)")
	cmd.Flags().IntVar(&index, "index", 0, "1-based position (0 appends)")
	cmd.Flags().StringArrayVar(&props, "prop", nil, "Property key=value (repeatable)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newPartsMoveCmd(app *App) *cobra.Command {
	var page, dir string
	cmd := &cobra.Command{
		Use:   "move <container> <row-id>",
		Short: "Move a webpart up or down within its region",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rowID, err := parseRowID(args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			d, err := portal.ParseDirection(dir)
			if err != nil {
				return writeErr(cmd, err)
			}
			mgr, err := app.manager(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := mgr.MovePart(cmd.Context(), args[0], page, rowID, d); err != nil {
				return writeErr(cmd, err)
			}
			parts, err := mgr.GetParts(cmd.Context(), args[0], page)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, parts)
		},
	}
	addPageFlag(cmd, &page)
	cmd.Flags().StringVar(&dir, "dir", "", "up|down")
	_ = cmd.MarkFlagRequired("dir")
	return cmd
}

func newPartsRemoveCmd(app *App) *cobra.Command {
	var page string
	cmd := &cobra.Command{
		Use:   "remove <container> <row-id>",
		Short: "Remove a webpart (permanent parts are refused)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rowID, err := parseRowID(args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			mgr, err := app.manager(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := mgr.RemovePart(cmd.Context(), args[0], page, rowID); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"removed": rowID})
		},
	}
	addPageFlag(cmd, &page)
	return cmd
}

func newPartsSetCmd(app *App) *cobra.Command {
	var page string
	var props []string
	cmd := &cobra.Command{
		Use:   "set <container> <row-id>",
		Short: "Replace a webpart's properties",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rowID, err := parseRowID(args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			p, err := parseProps(props)
			if err != nil {
				return writeErr(cmd, err)
			}
			mgr, err := app.manager(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := mgr.SetProperties(cmd.Context(), args[0], page, rowID, p); err != nil {
				return writeErr(cmd, err)
			}
			part, err := mgr.GetPart(cmd.Context(), args[0], page, rowID)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, part)
		},
	}
	addPageFlag(cmd, &page)
	cmd.Flags().StringArrayVar(&props, "prop", nil, "Property key=value (repeatable)")
	return cmd
}

func newPartsSaveCmd(app *App) *cobra.Command {
	var page, file string
	cmd := &cobra.Command{
		Use:   "save <container>",
		Short: "Replace a page's layout from a YAML or JSON list",
		Long: strings.TrimSpace(`
Replace the whole layout of a page. Parts are ordered by index (ties keep file order) and
renumbered from 1. Entries carrying the rowId of an existing part update it; the rest are added,
and existing parts missing from the list are deleted.
`),
		Example: strings.TrimSpace(`
portal parts list home --page wiki --format yaml > layout.yaml
$EDITOR layout.yaml
portal parts save home --page wiki --file layout.yaml
`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if file != "" && file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return writeErr(cmd, err)
				}
				defer f.Close()
				r = f
			}
			parts, err := decodeParts(r)
			if err != nil {
				return writeErr(cmd, err)
			}
			mgr, err := app.manager(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := mgr.SaveParts(cmd.Context(), args[0], page, parts); err != nil {
				return writeErr(cmd, err)
			}
			saved, err := mgr.GetParts(cmd.Context(), args[0], page)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, saved)
		},
	}
	addPageFlag(cmd, &page)
	cmd.Flags().StringVar(&file, "file", "-", "Layout file (- for stdin)")
	return cmd
}

// partEntry is the file form of a webpart. JSON is valid YAML, so one decoder reads both.
type partEntry struct {
	RowID      int64             `yaml:"rowId"`
	Index      int               `yaml:"index"`
	Location   string            `yaml:"location"`
	Name       string            `yaml:"name"`
	Permanent  bool              `yaml:"permanent"`
	Properties map[string]string `yaml:"properties"`
}

// decodeParts accepts a bare list or the {"data": [...]} envelope `parts list` prints.
func decodeParts(r io.Reader) ([]model.WebPart, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return nil, errors.New("parse layout: empty input")
	}
	var entries []partEntry
	if err := yaml.Unmarshal(b, &entries); err != nil {
		var env struct {
			Data []partEntry `yaml:"data"`
		}
		if err2 := yaml.Unmarshal(b, &env); err2 != nil {
			return nil, fmt.Errorf("parse layout: %w", err)
		}
		entries = env.Data
	}
	parts := make([]model.WebPart, 0, len(entries))
	for i, e := range entries {
		if strings.TrimSpace(e.Name) == "" {
			return nil, fmt.Errorf("parse layout: entry %d has no name", i)
		}
		parts = append(parts, model.WebPart{
			RowID:      e.RowID,
			Index:      e.Index,
			Location:   e.Location,
			Name:       e.Name,
			Permanent:  e.Permanent,
			Properties: e.Properties,
		})
	}
	return parts, nil
}

func newPartsRenderCmd(app *App) *cobra.Command {
	var page string
	var terminal bool
	var width int
	cmd := &cobra.Command{
		Use:   "render <container> <row-id>",
		Short: "Render one webpart as HTML (or its markdown for the terminal)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rowID, err := parseRowID(args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			mgr, err := app.manager(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			cfg, err := app.config()
			if err != nil {
				return writeErr(cmd, err)
			}
			part, err := mgr.GetPart(cmd.Context(), args[0], page, rowID)
			if err != nil {
				return writeErr(cmd, err)
			}

			if terminal {
				src := strings.TrimSpace(part.Properties[webparts.PropSource])
				if src == "" {
					return writeErr(cmd, fmt.Errorf("webpart %d has no markdown source", rowID))
				}
				out, err := renderTerminal("## "+part.Title()+"\n\n"+src, width)
				if err != nil {
					return writeErr(cmd, err)
				}
				_, err = io.WriteString(cmd.OutOrStdout(), out)
				return err
			}

			var b bytes.Buffer
			log, err := app.logger()
			if err != nil {
				return writeErr(cmd, err)
			}
			st := view.NewStack(log)
			resp := view.NewWriterResponse(&b)
			vctx := view.NewContext(st, nil, resp)
			c := cfg.Container(args[0])
			vctx.Container = &c
			if err := view.Render(st, mgr.PartView(cmd.Context(), vctx, part), resp, nil); err != nil {
				return writeErr(cmd, err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), b.String())
			return err
		},
	}
	addPageFlag(cmd, &page)
	cmd.Flags().BoolVar(&terminal, "terminal", false, "Render the markdown source for the terminal")
	cmd.Flags().IntVar(&width, "width", 80, "Word wrap width for --terminal")
	return cmd
}
