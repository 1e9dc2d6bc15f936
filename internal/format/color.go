package format

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// ColorProfile picks the color profile for text output written to w. NO_COLOR, CLICOLOR and
// CLICOLOR_FORCE are honored; writers that are not terminals get plain text.
func ColorProfile(w io.Writer) termenv.Profile {
	profile := termenv.NewOutput(w).EnvColorProfile()
	if profile == termenv.Ascii {
		return profile
	}

	// Some terminals under-report; trust TERM/COLORTERM when they claim more.
	term := strings.ToLower(strings.TrimSpace(os.Getenv("TERM")))
	colorterm := strings.ToLower(strings.TrimSpace(os.Getenv("COLORTERM")))
	switch {
	case strings.Contains(colorterm, "truecolor"), strings.Contains(colorterm, "24bit"):
		profile = termenv.TrueColor
	case strings.Contains(term, "256color") && profile == termenv.ANSI:
		profile = termenv.ANSI256
	}
	return profile
}

// ApplyColorProfile points Lip Gloss at the profile for w.
func ApplyColorProfile(w io.Writer) {
	lipgloss.SetColorProfile(ColorProfile(w))
}
