package model

import "testing"

func TestWebPartTitle_PrefersOverride(t *testing.T) {
	p := WebPart{Name: "Wiki"}
	if got := p.Title(); got != "Wiki" {
		t.Fatalf("expected type name as title, got %q", got)
	}
	p.Properties = map[string]string{PropTitle: "  Lab notes "}
	if got := p.Title(); got != "Lab notes" {
		t.Fatalf("expected override title, got %q", got)
	}
}

func TestWebPartCopy_DetachesProperties(t *testing.T) {
	p := WebPart{Name: "Wiki", Properties: map[string]string{"source": "a"}}
	c := p.Copy()
	c.Properties["source"] = "b"
	if p.Properties["source"] != "a" {
		t.Fatalf("copy shares properties map with original")
	}
}

func TestNormalizePageID(t *testing.T) {
	if got := NormalizePageID(" "); got != DefaultPageID {
		t.Fatalf("expected default page, got %q", got)
	}
	if got := NormalizePageID("tab.results"); got != "tab.results" {
		t.Fatalf("unexpected page id %q", got)
	}
}
