package cli

import (
	"fmt"
	"io"

	"portalkit/internal/docs"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

func newDocsCmd(app *App) *cobra.Command {
	var raw, terminal bool
	var width int

	cmd := &cobra.Command{
		Use:   "docs [topic]",
		Short: "Show documentation topics",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return writeOut(cmd, app, map[string]any{"topics": docs.Topics()})
			}

			topic := args[0]
			body, ok := docs.Get(topic)
			if !ok {
				return writeErr(cmd, fmt.Errorf("unknown docs topic: %q (run `portal docs` to list topics)", topic))
			}

			switch {
			case raw:
				_, err := io.WriteString(cmd.OutOrStdout(), body)
				return err
			case terminal:
				out, err := renderTerminal(body, width)
				if err != nil {
					return writeErr(cmd, err)
				}
				_, err = io.WriteString(cmd.OutOrStdout(), out)
				return err
			}
			return writeOut(cmd, app, map[string]any{"topic": topic, "markdown": body})
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print raw markdown (no JSON envelope)")
	cmd.Flags().BoolVar(&terminal, "terminal", false, "Render the markdown for the terminal")
	cmd.Flags().IntVar(&width, "width", 80, "Wrap width for --terminal")
	return cmd
}

func renderTerminal(markdown string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	return r.Render(markdown)
}
