package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"portalkit/internal/config"
	"portalkit/internal/format"
	"portalkit/internal/model"
	"portalkit/internal/portal"

	"github.com/spf13/cobra"
)

func newLayoutCmd(app *App) *cobra.Command {
	var page string
	cmd := &cobra.Command{
		Use:   "layout <container>",
		Short: "Show a page's webparts grouped by region",
		Example: strings.TrimSpace(`
portal layout home --page wiki --format text
`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.config()
			if err != nil {
				return writeErr(cmd, err)
			}
			mgr, err := app.manager(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			pageID := model.NormalizePageID(page)
			parts, err := mgr.GetParts(cmd.Context(), args[0], pageID)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.NewLayout(args[0], pageID, cfg.Regions, parts))
		},
	}
	addPageFlag(cmd, &page)
	return cmd
}

func newNavCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nav",
		Short: "Inspect the customize menus pages are given",
	}
	cmd.AddCommand(newNavFindCmd(app))
	cmd.AddCommand(newNavAddMenuCmd(app))
	return cmd
}

func newNavFindCmd(app *App) *cobra.Command {
	var page string
	cmd := &cobra.Command{
		Use:   "find <container> <row-id> [path]",
		Short: "Show a webpart's customize menu, or the entry at path",
		Example: strings.TrimSpace(`
portal nav find home 2 --page wiki
portal nav find home 2 "Move Up" --page wiki
`),
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			rowID, err := parseRowID(args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			mgr, err := app.manager(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			parts, err := mgr.GetParts(cmd.Context(), args[0], page)
			if err != nil {
				return writeErr(cmd, err)
			}
			part, pos, count, ok := regionSlot(parts, rowID)
			if !ok {
				return writeErr(cmd, portal.NotFoundError{Kind: "webpart", ID: args[1]})
			}
			f := mgr.Registry().Lookup(part.Name)
			menu := mgr.AdminMenu(part, pos, count, f != nil && f.IsEditable())
			if len(args) == 3 {
				sub := menu.FindSubtree(args[2])
				if sub == nil {
					return writeErr(cmd, fmt.Errorf("menu path not found: %s", args[2]))
				}
				return writeOut(cmd, app, sub)
			}
			return writeOut(cmd, app, menu)
		},
	}
	addPageFlag(cmd, &page)
	return cmd
}

func newNavAddMenuCmd(app *App) *cobra.Command {
	var page, location string
	cmd := &cobra.Command{
		Use:   "add-menu <container>",
		Short: "Show the add-webpart menu of a region",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.config()
			if err != nil {
				return writeErr(cmd, err)
			}
			mgr, err := app.manager(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			c := cfg.Container(args[0])
			return writeOut(cmd, app, mgr.AddPartMenu(c, model.NormalizePageID(page), location))
		},
	}
	addPageFlag(cmd, &page)
	cmd.Flags().StringVar(&location, "location", model.LocationBody, "Region")
	return cmd
}

// regionSlot finds rowID and its position within its region.
func regionSlot(parts []model.WebPart, rowID int64) (part model.WebPart, pos, count int, ok bool) {
	for _, region := range portal.PartsByLocation(parts) {
		for i, p := range region {
			if p.RowID == rowID {
				return p, i, len(region), true
			}
		}
	}
	return model.WebPart{}, 0, 0, false
}

func newContainerCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "container",
		Short: "Container commands",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "pages <container>",
		Short: "List the pages of a container that have webparts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.manager(cmd.Context()); err != nil {
				return writeErr(cmd, err)
			}
			pages, err := app.st.Pages(cmd.Context(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, pages)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <container>",
		Short: "Delete every webpart of every page of a container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := app.manager(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := mgr.DeleteContainer(cmd.Context(), args[0]); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"deleted": args[0]})
		},
	})
	return cmd
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Config file commands",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.config()
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, cfg)
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := strings.TrimSpace(app.ConfigPath)
			if path == "" {
				p, err := config.Path()
				if err != nil {
					return writeErr(cmd, err)
				}
				path = p
			}
			if _, err := os.Stat(path); err == nil && !force {
				return writeErr(cmd, fmt.Errorf("%s already exists (use --force to overwrite)", path))
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return writeErr(cmd, err)
			}
			if err := config.Save(path, config.Default()); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"path": path})
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	cmd.AddCommand(initCmd)
	return cmd
}
