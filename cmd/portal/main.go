package main

import (
	"os"
	"strings"

	"portalkit/internal/cli"
)

// pagePath splits "/<container>[/<page>]".
func pagePath(s string) (container, page string, ok bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "/") {
		return "", "", false
	}
	container, page, _ = strings.Cut(strings.Trim(s, "/"), "/")
	if container == "" || strings.Contains(page, "/") {
		return "", "", false
	}
	return container, page, true
}

func rewritePagePathArgs(argv []string) []string {
	// Convenience: `portal /home/wiki` works like `portal layout home --page wiki`.
	//
	// Cobra treats the first non-flag token as a subcommand, so argv is rewritten before parsing.
	// Persistent flags may come first, so look for the first positional token.
	if len(argv) < 2 {
		return argv
	}

	valueFlags := map[string]bool{
		"--config": true,
		"--db":     true,
		"--format": true,
	}

	rewrite := func(i int) []string {
		container, page, _ := pagePath(argv[i])
		out := make([]string, 0, len(argv)+3)
		out = append(out, argv[:i]...)
		out = append(out, "layout", container)
		if page != "" {
			out = append(out, "--page", page)
		}
		return append(out, argv[i+1:]...)
	}

	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		if a == "" {
			continue
		}
		if a == "--" {
			if i+1 < len(argv) {
				if _, _, ok := pagePath(argv[i+1]); ok {
					out := rewrite(i + 1)
					// Flags after "--" would be positional; drop the separator.
					return append(out[:i:i], out[i+1:]...)
				}
			}
			return argv
		}
		if strings.HasPrefix(a, "-") {
			if !strings.Contains(a, "=") && valueFlags[a] {
				i++
			}
			continue
		}
		if _, _, ok := pagePath(a); ok {
			return rewrite(i)
		}
		return argv
	}
	return argv
}

func main() {
	os.Args = rewritePagePathArgs(os.Args)

	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
