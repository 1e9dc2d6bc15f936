// Package webparts holds the built-in webpart factories.
package webparts

import (
	"bytes"
	"context"
	"html/template"
	"sort"
	"strconv"
	"strings"

	"portalkit/internal/model"
	"portalkit/internal/navtree"
	"portalkit/internal/portal"
	"portalkit/internal/view"
)

const (
	WikiName  = "Wiki"
	HTMLName  = "HTML"
	LinksName = "Links"

	// PropSource is the markdown body of a Wiki part.
	PropSource = "source"
	// PropHTML is the markup of an HTML part.
	PropHTML = "html"
)

// Defaults returns a registry holding every built-in factory.
func Defaults() (*portal.Registry, error) {
	return portal.NewRegistry(Wiki(), HTML(), Links())
}

func Wiki() portal.Factory {
	return portal.NewFactory(portal.BaseFactory{
		Type:      WikiName,
		Display:   "Wiki",
		Location:  model.LocationBody,
		Editable:  true,
		Locations: []string{model.LocationBody},
	}, func(_ context.Context, _ *view.Context, part model.WebPart) (view.View, error) {
		body := RenderMarkdown(part.Properties[PropSource])
		if body == "" {
			return view.TextView{Text: "This page has no content yet."}, nil
		}
		return view.HTMLView{HTML: body}, nil
	})
}

func HTML() portal.Factory {
	return portal.NewFactory(portal.BaseFactory{
		Type:     HTMLName,
		Display:  "HTML",
		Location: model.LocationBody,
		Editable: true,
	}, func(_ context.Context, _ *view.Context, part model.WebPart) (view.View, error) {
		return view.HTMLView{HTML: SanitizeHTML(part.Properties[PropHTML])}, nil
	})
}

func Links() portal.Factory {
	return portal.NewFactory(portal.BaseFactory{
		Type:     LinksName,
		Display:  "Links",
		Location: model.LocationRight,
		Editable: true,
	}, func(_ context.Context, _ *view.Context, part model.WebPart) (view.View, error) {
		tree := LinkTree(part)
		if !tree.HasChildren() {
			return nil, nil
		}
		var b bytes.Buffer
		if err := tree.RenderHTML(&b, "links"); err != nil {
			return nil, err
		}
		return view.HTMLView{HTML: template.HTML(b.String())}, nil
	})
}

// LinkTree reads link.N.text / link.N.href properties into a menu, ordered by N. Entries with
// no text are skipped.
func LinkTree(part model.WebPart) *navtree.Tree {
	type link struct {
		n          int
		text, href string
	}
	byN := map[int]*link{}
	for k, v := range part.Properties {
		rest, ok := strings.CutPrefix(k, "link.")
		if !ok {
			continue
		}
		num, field, ok := strings.Cut(rest, ".")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(num)
		if err != nil {
			continue
		}
		l := byN[n]
		if l == nil {
			l = &link{n: n}
			byN[n] = l
		}
		switch field {
		case "text":
			l.text = strings.TrimSpace(v)
		case "href":
			l.href = strings.TrimSpace(v)
		}
	}

	links := make([]*link, 0, len(byN))
	for _, l := range byN {
		links = append(links, l)
	}
	sort.Slice(links, func(i, j int) bool { return links[i].n < links[j].n })

	tree := navtree.New(part.Title())
	for _, l := range links {
		if l.text == "" {
			continue
		}
		tree.AddChild(navtree.NewLink(l.text, l.href).WithKey("link." + strconv.Itoa(l.n)))
	}
	return tree
}
