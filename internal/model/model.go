package model

import (
	"sort"
	"strings"
)

const (
	LocationBody  = "body"
	LocationRight = "right"

	// DefaultPageID identifies the portal page every container has, even before any tab exists.
	DefaultPageID = "portal.default"

	// PropTitle overrides the display title of a webpart.
	PropTitle = "webpart.title"
)

type User struct {
	Name  string `json:"name"`
	Guest bool   `json:"guest"`
}

func GuestUser() User {
	return User{Name: "guest", Guest: true}
}

type Container struct {
	ID         string `json:"id"`
	Path       string `json:"path"`
	FolderType string `json:"folderType,omitempty"`
}

// WebPart is one persisted layout row: a webpart of type Name placed in Location on the
// (Container, PageID) portal page at position Index.
type WebPart struct {
	RowID      int64             `json:"rowId"`
	Container  string            `json:"container"`
	PageID     string            `json:"pageId"`
	Index      int               `json:"index"`
	Location   string            `json:"location"`
	Name       string            `json:"name"`
	Permanent  bool              `json:"permanent"`
	Properties map[string]string `json:"properties,omitempty"`
}

// Title is the title override property, falling back to the webpart type name.
func (p WebPart) Title() string {
	if t := strings.TrimSpace(p.Properties[PropTitle]); t != "" {
		return t
	}
	return p.Name
}

func (p WebPart) Copy() WebPart {
	out := p
	if p.Properties != nil {
		out.Properties = make(map[string]string, len(p.Properties))
		for k, v := range p.Properties {
			out.Properties[k] = v
		}
	}
	return out
}

// PropertyKeys returns the property names in stable order.
func (p WebPart) PropertyKeys() []string {
	keys := make([]string, 0, len(p.Properties))
	for k := range p.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func CopyParts(parts []WebPart) []WebPart {
	out := make([]WebPart, len(parts))
	for i := range parts {
		out[i] = parts[i].Copy()
	}
	return out
}

// NormalizePageID maps an empty page id to the default portal page.
func NormalizePageID(pageID string) string {
	pageID = strings.TrimSpace(pageID)
	if pageID == "" {
		return DefaultPageID
	}
	return pageID
}
