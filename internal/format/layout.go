package format

import (
	"fmt"
	"strings"

	"portalkit/internal/model"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Layout is a portal page grouped by region, for `portal layout`.
type Layout struct {
	Container string         `json:"container"`
	PageID    string         `json:"pageId"`
	Regions   []RegionLayout `json:"regions"`
}

type RegionLayout struct {
	Name  string          `json:"name"`
	Parts []model.WebPart `json:"parts"`
}

const regionWidth = 34

var (
	layoutTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5f9fb0"))
	regionHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("255")).Background(lipgloss.Color("236")).Padding(0, 1)
	regionBoxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1).Width(regionWidth)
	mutedStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#6c757d"))
	permanentStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#f39c12"))
)

// Text renders each region as a bordered column, side by side.
func (l Layout) Text() string {
	title := layoutTitleStyle.Render(l.Container + " / " + l.PageID)
	if len(l.Regions) == 0 {
		return title + "\n" + mutedStyle.Render("(no webparts)")
	}
	cols := make([]string, 0, len(l.Regions))
	for _, r := range l.Regions {
		var b strings.Builder
		b.WriteString(regionHeaderStyle.Render(r.Name))
		if len(r.Parts) == 0 {
			b.WriteString("\n" + mutedStyle.Render("(empty)"))
		}
		for _, p := range r.Parts {
			line := fmt.Sprintf("%d. %s", p.Index, p.Title())
			if p.Title() != p.Name {
				line += mutedStyle.Render(" [" + p.Name + "]")
			}
			if p.Permanent {
				line += permanentStyle.Render(" *")
			}
			line += mutedStyle.Render(fmt.Sprintf("  #%d", p.RowID))
			// One line per part.
			if ansi.StringWidth(line) > regionWidth-2 {
				line = ansi.Truncate(line, regionWidth-2, "…")
			}
			b.WriteString("\n" + line)
		}
		cols = append(cols, regionBoxStyle.Render(b.String()))
	}
	return title + "\n" + lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

// NewLayout groups parts by region, listing regions first and any others after them in order
// of appearance.
func NewLayout(container, pageID string, regions []string, parts []model.WebPart) Layout {
	l := Layout{Container: container, PageID: pageID}
	at := map[string]int{}
	for _, r := range regions {
		at[r] = len(l.Regions)
		l.Regions = append(l.Regions, RegionLayout{Name: r, Parts: []model.WebPart{}})
	}
	for _, p := range parts {
		i, ok := at[p.Location]
		if !ok {
			i = len(l.Regions)
			at[p.Location] = i
			l.Regions = append(l.Regions, RegionLayout{Name: p.Location})
		}
		l.Regions[i].Parts = append(l.Regions[i].Parts, p)
	}
	return l
}
