package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"portalkit/internal/config"
	"portalkit/internal/folder"
	"portalkit/internal/format"
	"portalkit/internal/logging"
	"portalkit/internal/portal"
	"portalkit/internal/store"
	"portalkit/internal/webparts"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type App struct {
	ConfigPath string
	DBPath     string
	PrettyJSON bool
	Format     string
	Verbose    bool

	cfg *config.Config
	log *zap.Logger
	st  *store.Store
	mgr *portal.Manager
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "portal",
		Short:        "Portal page layouts: serve, inspect and rearrange webparts",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Serve portal pages on localhost
  portal serve

  # Show the layout of a container's default page
  portal layout home --format text

  # Shortcut for: portal layout home --page wiki
  portal /home/wiki

  # Rearrange from scripts
  portal parts add home --page wiki --name HTML --prop html='<p>hi</p>'
  portal parts move home 3 --page wiki --dir up
`),
	}

	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		return app.close()
	}

	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", envOr("PORTAL_CONFIG", ""), "Path to config.yaml (default: ~/.portalkit/config.yaml)")
	cmd.PersistentFlags().StringVar(&app.DBPath, "db", "", "Path to the SQLite database (overrides config and $PORTAL_DB)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("PORTAL_FORMAT", "json"), "Output format (json|yaml|text)")
	cmd.PersistentFlags().BoolVarP(&app.Verbose, "verbose", "v", false, "Debug logging")

	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newPartsCmd(app))
	cmd.AddCommand(newLayoutCmd(app))
	cmd.AddCommand(newNavCmd(app))
	cmd.AddCommand(newContainerCmd(app))
	cmd.AddCommand(newConfigCmd(app))
	cmd.AddCommand(newDocsCmd(app))

	return cmd
}

func (app *App) config() (*config.Config, error) {
	if app.cfg != nil {
		return app.cfg, nil
	}
	cfg, err := config.Load(app.ConfigPath)
	if err != nil {
		return nil, err
	}
	if p := strings.TrimSpace(app.DBPath); p != "" {
		cfg.Database.Path = p
	}
	app.cfg = cfg
	return cfg, nil
}

func (app *App) logger() (*zap.Logger, error) {
	if app.log != nil {
		return app.log, nil
	}
	cfg, err := app.config()
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.Logging, app.Verbose)
	if err != nil {
		return nil, err
	}
	app.log = log
	return log, nil
}

// manager opens the store and wires the layout manager on first use.
func (app *App) manager(ctx context.Context) (*portal.Manager, error) {
	if app.mgr != nil {
		return app.mgr, nil
	}
	cfg, err := app.config()
	if err != nil {
		return nil, err
	}
	log, err := app.logger()
	if err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, cfg.Database.Path, log)
	if err != nil {
		return nil, err
	}
	reg, err := webparts.Defaults()
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	mgr, err := portal.NewManager(portal.Options{
		Store:       st,
		Registry:    reg,
		FolderTypes: folder.NewResolver(cfg),
		URLs:        portal.URLs{Prefix: cfg.Server.Prefix},
		Logger:      log,
		Regions:     cfg.Regions,
	})
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	app.st, app.mgr = st, mgr
	return mgr, nil
}

func (app *App) close() error {
	var err error
	if app.st != nil {
		err = app.st.Close()
		app.st, app.mgr = nil, nil
	}
	if app.log != nil {
		_ = app.log.Sync()
	}
	return err
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

// writeOut writes v in the {"data": v} envelope. Text output skips the envelope for values that
// render themselves.
func writeOut(cmd *cobra.Command, app *App, v any) error {
	if strings.EqualFold(app.Format, "text") {
		if t, ok := v.(format.Texter); ok {
			format.ApplyColorProfile(cmd.OutOrStdout())
			return format.Write(cmd.OutOrStdout(), t, app.Format, app.PrettyJSON)
		}
	}
	return format.Write(cmd.OutOrStdout(), map[string]any{"data": v}, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
