// Package navtree implements the recursive named tree used for menus, breadcrumbs and
// navigation links. A tree knows nothing about where it is rendered; callers pick JSON,
// script or HTML output at render time.
package navtree

import (
	"sort"
	"strings"
)

// Tree is one node of a navigation tree. Value usually holds an href.
type Tree struct {
	Text        string
	Value       string
	ID          string
	Description string
	ImageSrc    string
	Script      string
	Selected    bool
	Disabled    bool
	Strong      bool

	key       string
	children  []*Tree
	separator bool
}

// MenuSeparator renders as a separator token instead of a menu entry.
var MenuSeparator = &Tree{Text: "-", key: "-", separator: true}

func New(text string) *Tree {
	return &Tree{Text: text}
}

func NewLink(text, href string) *Tree {
	return &Tree{Text: text, Value: href}
}

// NewGroup returns a keyless node. Adding it to a parent splices its children into the parent.
func NewGroup(children ...*Tree) *Tree {
	g := &Tree{}
	g.AddChildren(children...)
	return g
}

// WithKey sets an explicit key, used instead of Text for path lookups.
func (t *Tree) WithKey(key string) *Tree {
	t.key = key
	return t
}

func (t *Tree) Key() string {
	if t.key != "" {
		return t.key
	}
	return t.Text
}

func (t *Tree) IsSeparator() bool { return t != nil && t.separator }

func (t *Tree) Href() string { return t.Value }

// AddChild appends child. A child without a key that has children of its own is transparent:
// its children are appended in order instead of the child itself. Keyless leaves are dropped.
func (t *Tree) AddChild(child *Tree) *Tree {
	if child == nil {
		return t
	}
	if child.Key() != "" {
		t.children = append(t.children, child)
		return t
	}
	if child.HasChildren() {
		t.children = append(t.children, child.children...)
	}
	return t
}

func (t *Tree) AddChildren(children ...*Tree) *Tree {
	for _, c := range children {
		t.AddChild(c)
	}
	return t
}

func (t *Tree) AddLink(text, href string) *Tree {
	return t.AddChild(NewLink(text, href))
}

func (t *Tree) AddSeparator() *Tree {
	t.children = append(t.children, MenuSeparator)
	return t
}

// Children returns the direct children. The slice is a copy; the nodes are shared.
func (t *Tree) Children() []*Tree {
	return append([]*Tree(nil), t.children...)
}

func (t *Tree) HasChildren() bool { return len(t.children) > 0 }

func (t *Tree) ChildCount() int { return len(t.children) }

// Child returns the direct child with the given key, or nil.
func (t *Tree) Child(key string) *Tree {
	for _, c := range t.children {
		if c.Key() == key {
			return c
		}
	}
	return nil
}

// Copy returns a deep copy so shared menu templates can be mutated per request.
func (t *Tree) Copy() *Tree {
	if t == nil {
		return nil
	}
	if t.separator {
		return t
	}
	out := *t
	out.children = nil
	if len(t.children) > 0 {
		out.children = make([]*Tree, len(t.children))
		for i, c := range t.children {
			out.children[i] = c.Copy()
		}
	}
	return &out
}

// Equal reports structural equality of two trees.
func (t *Tree) Equal(o *Tree) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.separator || o.separator {
		return t.separator == o.separator
	}
	if t.Text != o.Text || t.key != o.key || t.Value != o.Value || t.ID != o.ID ||
		t.Description != o.Description || t.ImageSrc != o.ImageSrc || t.Script != o.Script ||
		t.Selected != o.Selected || t.Disabled != o.Disabled || t.Strong != o.Strong {
		return false
	}
	if len(t.children) != len(o.children) {
		return false
	}
	for i := range t.children {
		if !t.children[i].Equal(o.children[i]) {
			return false
		}
	}
	return true
}

// Sort orders the direct children by key, ignoring case. Equal keys keep their order.
func (t *Tree) Sort() {
	sort.SliceStable(t.children, func(i, j int) bool {
		return strings.ToLower(t.children[i].Key()) < strings.ToLower(t.children[j].Key())
	})
}

// EscapeKey makes a key safe to use as one path segment.
func EscapeKey(key string) string {
	key = strings.ReplaceAll(key, "%", "%25")
	return strings.ReplaceAll(key, "/", "%2F")
}

func UnescapeKey(seg string) string {
	seg = strings.ReplaceAll(seg, "%2F", "/")
	seg = strings.ReplaceAll(seg, "%2f", "/")
	return strings.ReplaceAll(seg, "%25", "%")
}

// Path joins keys into a relative path, escaping each key.
func Path(keys ...string) string {
	segs := make([]string, len(keys))
	for i, k := range keys {
		segs[i] = EscapeKey(k)
	}
	return strings.Join(segs, "/")
}

// FindSubtree resolves a "/"-separated path of escaped keys. An absolute path may name this
// node as its first segment; if it does not, the path is resolved against the children as if it
// were relative.
func (t *Tree) FindSubtree(path string) *Tree {
	if t == nil {
		return nil
	}
	if path == "" || path == "/" {
		return t
	}
	if strings.HasPrefix(path, "/") {
		rest := path[1:]
		seg, remainder, _ := strings.Cut(rest, "/")
		if seg == EscapeKey(t.Key()) {
			return t.findRelative(remainder)
		}
		return t.findRelative(rest)
	}
	return t.findRelative(path)
}

func (t *Tree) findRelative(path string) *Tree {
	if path == "" {
		return t
	}
	seg, rest, _ := strings.Cut(path, "/")
	for _, c := range t.children {
		if c.separator {
			continue
		}
		if EscapeKey(c.Key()) == seg {
			return c.findRelative(rest)
		}
	}
	return nil
}
