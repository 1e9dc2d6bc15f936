package cli

import (
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"portalkit/internal/perm"
	"portalkit/internal/web"

	"github.com/spf13/cobra"
)

func newServeCmd(app *App) *cobra.Command {
	var addr string
	var open bool
	var trustRemoteUser bool
	var datastarSrc string
	var authMode string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve portal pages over HTTP",
		Long: strings.TrimSpace(`
Serve portal pages from a local HTTP server.

Pages render server side. With the datastar client loaded, customize actions patch the page's
regions in place; without it they fall back to links and redirects.
`),
		Example: strings.TrimSpace(`
# Serve on the configured address
portal serve

# Behind an authenticating proxy that sets X-Remote-User
portal serve --addr :8080 --trust-remote-user

# Local development: sign in as anyone with POST /login
portal serve --auth dev
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.config()
			if err != nil {
				return writeErr(cmd, err)
			}
			log, err := app.logger()
			if err != nil {
				return writeErr(cmd, err)
			}

			listenAddr := strings.TrimSpace(addr)
			if listenAddr == "" {
				listenAddr = cfg.Server.Addr
			}
			if listenAddr == "" {
				return writeErr(cmd, errors.New("serve: missing --addr"))
			}

			mgr, err := app.manager(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			srv, err := web.NewServer(web.Config{
				Addr:            listenAddr,
				Prefix:          cfg.Server.Prefix,
				Compress:        cfg.Server.Compress,
				DatastarSrc:     datastarSrc,
				TrustRemoteUser: trustRemoteUser,
				AuthMode:        authMode,
			}, mgr, perm.NewPolicy(cfg), cfg, log)
			if err != nil {
				return writeErr(cmd, err)
			}

			ln, err := net.Listen("tcp", listenAddr)
			if err != nil {
				return writeErr(cmd, err)
			}

			actualAddr := ln.Addr().String()
			url := "http://" + actualAddr + srv.Prefix() + "/home"

			opened := false
			openErr := ""
			if open {
				if err := openPath(url); err != nil {
					openErr = err.Error()
				} else {
					opened = true
				}
			}

			hints := []string{}
			if !opened {
				hints = append(hints, "open "+url)
			}

			_ = writeOut(cmd, app, map[string]any{
				"addr":      actualAddr,
				"url":       url,
				"db":        cfg.Database.Path,
				"opened":    opened,
				"openError": openErr,
				"startedAt": time.Now().UTC().Format(time.RFC3339Nano),
				"_hints":    hints,
			})

			fmt.Fprintf(cmd.ErrOrStderr(), "Portal running at %s\n", url)
			if openErr != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Failed to open browser: %s\n", openErr)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.ListenAndServe(ctx, ln)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", envOr("PORTAL_ADDR", ""), "Bind address (host:port or :port; default from config)")
	cmd.Flags().BoolVar(&open, "open", false, "Open the home page in your default browser")
	cmd.Flags().BoolVar(&trustRemoteUser, "trust-remote-user", false, "Take the user name from the X-Remote-User header")
	cmd.Flags().StringVar(&authMode, "auth", envOr("PORTAL_AUTH", web.AuthNone), `Sign-in mode: none, or dev (POST /login accepts any user name; local use only)`)
	cmd.Flags().StringVar(&datastarSrc, "datastar-src", "", `Datastar client URL ("-" to serve pages without it)`)
	return cmd
}

func openPath(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("empty path")
	}
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", path).Run()
	case "windows":
		return exec.Command("cmd", "/c", "start", "", path).Run()
	default:
		return exec.Command("xdg-open", path).Run()
	}
}
