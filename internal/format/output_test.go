package format

import (
	"bytes"
	"strings"
	"testing"

	"portalkit/internal/model"

	"github.com/muesli/termenv"
)

func TestWrite_Formats(t *testing.T) {
	v := model.WebPart{RowID: 7, Name: "Wiki", Location: "body", Index: 1}

	var js bytes.Buffer
	if err := Write(&js, v, "", false); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !strings.Contains(js.String(), `"rowId":7`) {
		t.Fatalf("unexpected json: %s", js.String())
	}

	var y bytes.Buffer
	if err := Write(&y, v, "yaml", false); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if !strings.Contains(y.String(), "rowId: 7") || !strings.Contains(y.String(), "location: body") {
		t.Fatalf("unexpected yaml: %s", y.String())
	}

	var txt bytes.Buffer
	if err := Write(&txt, v, "text", false); err != nil {
		t.Fatalf("text fallback: %v", err)
	}
	if !strings.Contains(txt.String(), "name: Wiki") {
		t.Fatalf("expected yaml fallback for non-Texter, got %s", txt.String())
	}

	if err := Write(&bytes.Buffer{}, v, "edn", false); err == nil {
		t.Fatalf("expected unknown format error")
	}
}

func TestLayout_GroupsByRegion(t *testing.T) {
	parts := []model.WebPart{
		{RowID: 1, Name: "Wiki", Location: "body", Index: 1, Permanent: true},
		{RowID: 2, Name: "Links", Location: "right", Index: 2, Properties: map[string]string{model.PropTitle: "Bookmarks"}},
		{RowID: 3, Name: "HTML", Location: "footer", Index: 3},
	}
	l := NewLayout("home", model.DefaultPageID, []string{"body", "right"}, parts)
	if len(l.Regions) != 3 || l.Regions[2].Name != "footer" {
		t.Fatalf("unexpected regions: %#v", l.Regions)
	}

	var out bytes.Buffer
	if err := Write(&out, l, "text", false); err != nil {
		t.Fatalf("text: %v", err)
	}
	for _, want := range []string{"home / portal.default", "1. Wiki", "2. Bookmarks", "[Links]", "#3"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("expected %q in:\n%s", want, out.String())
		}
	}

	long := NewLayout("home", "tab", []string{"body"}, []model.WebPart{
		{RowID: 9, Name: "HTML", Location: "body", Index: 1, Properties: map[string]string{model.PropTitle: strings.Repeat("quarterly ", 8)}},
	})
	if txt := long.Text(); !strings.Contains(txt, "…") || strings.Contains(txt, "#9") {
		t.Fatalf("expected long title to be cut:\n%s", txt)
	}

	empty := NewLayout("home", "tab", nil, nil)
	if !strings.Contains(empty.Text(), "(no webparts)") {
		t.Fatalf("unexpected empty layout: %s", empty.Text())
	}
}

func TestColorProfile(t *testing.T) {
	t.Setenv("NO_COLOR", "")
	t.Setenv("CLICOLOR", "")
	t.Setenv("CLICOLOR_FORCE", "")
	if got := ColorProfile(&bytes.Buffer{}); got != termenv.Ascii {
		t.Fatalf("expected plain text for a buffer, got %v", got)
	}

	t.Setenv("CLICOLOR_FORCE", "1")
	t.Setenv("TERM", "xterm-256color")
	t.Setenv("COLORTERM", "truecolor")
	if got := ColorProfile(&bytes.Buffer{}); got != termenv.TrueColor {
		t.Fatalf("expected truecolor when forced, got %v", got)
	}

	t.Setenv("NO_COLOR", "1")
	if got := ColorProfile(&bytes.Buffer{}); got != termenv.Ascii {
		t.Fatalf("expected NO_COLOR to win, got %v", got)
	}
}
