package navtree

import (
	"bufio"
	"encoding/json"
	"html/template"
	"io"
)

const separatorToken = "-"

type jsonNode struct {
	Text        string  `json:"text,omitempty"`
	ID          string  `json:"id,omitempty"`
	Description string  `json:"description,omitempty"`
	Icon        string  `json:"icon,omitempty"`
	Handler     string  `json:"handler,omitempty"`
	Disabled    bool    `json:"disabled,omitempty"`
	Href        string  `json:"href,omitempty"`
	Leaf        bool    `json:"leaf,omitempty"`
	Items       []*Tree `json:"items,omitempty"`
}

func (t *Tree) jsonNode() jsonNode {
	n := jsonNode{
		Text:        t.Text,
		ID:          t.ID,
		Description: t.Description,
		Icon:        t.ImageSrc,
		Handler:     t.Script,
		Disabled:    t.Disabled,
		Href:        t.Value,
	}
	if len(t.children) == 0 {
		n.Leaf = true
	} else {
		n.Items = t.children
	}
	return n
}

// MarshalJSON encodes the node and its descendants. Separators encode as "-".
func (t *Tree) MarshalJSON() ([]byte, error) {
	if t.separator {
		return json.Marshal(separatorToken)
	}
	return json.Marshal(t.jsonNode())
}

// WriteScript writes the tree as a script object literal. Unlike MarshalJSON, the handler is
// emitted as raw script so it can be a function expression.
func (t *Tree) WriteScript(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if err := t.writeScript(bw); err != nil {
		return err
	}
	return bw.Flush()
}

func (t *Tree) writeScript(w *bufio.Writer) error {
	if t.separator {
		_, err := w.WriteString("'" + separatorToken + "'")
		return err
	}
	w.WriteByte('{')
	first := true
	field := func(name string, raw string) {
		if !first {
			w.WriteByte(',')
		}
		first = false
		w.WriteString(name)
		w.WriteByte(':')
		w.WriteString(raw)
	}
	str := func(name, v string) {
		if v == "" {
			return
		}
		b, _ := json.Marshal(v)
		field(name, string(b))
	}
	str("text", t.Text)
	str("id", t.ID)
	str("description", t.Description)
	str("icon", t.ImageSrc)
	if t.Script != "" {
		field("handler", t.Script)
	}
	if t.Disabled {
		field("disabled", "true")
	}
	str("href", t.Value)
	if len(t.children) == 0 {
		field("leaf", "true")
	} else {
		field("items", "")
		w.WriteByte('[')
		for i, c := range t.children {
			if i > 0 {
				w.WriteByte(',')
			}
			if err := c.writeScript(w); err != nil {
				return err
			}
		}
		w.WriteByte(']')
	}
	_, err := w.WriteString("}")
	return err
}

// RenderHTML writes the children of t as a nested unordered list.
func (t *Tree) RenderHTML(w io.Writer, class string) error {
	bw := bufio.NewWriter(w)
	t.renderList(bw, class)
	return bw.Flush()
}

func (t *Tree) renderList(w *bufio.Writer, class string) {
	if class != "" {
		w.WriteString(`<ul class="` + template.HTMLEscapeString(class) + `">`)
	} else {
		w.WriteString("<ul>")
	}
	for _, c := range t.children {
		if c.separator {
			w.WriteString(`<li class="divider"></li>`)
			continue
		}
		w.WriteString("<li")
		if c.Selected {
			w.WriteString(` class="selected"`)
		}
		if c.ID != "" {
			w.WriteString(` id="` + template.HTMLEscapeString(c.ID) + `"`)
		}
		w.WriteByte('>')
		label := template.HTMLEscapeString(c.Text)
		if c.Strong {
			label = "<strong>" + label + "</strong>"
		}
		if c.ImageSrc != "" {
			label = `<img src="` + template.HTMLEscapeString(c.ImageSrc) + `" alt=""> ` + label
		}
		switch {
		case c.Disabled || c.Value == "":
			w.WriteString("<span")
			if c.Description != "" {
				w.WriteString(` title="` + template.HTMLEscapeString(c.Description) + `"`)
			}
			w.WriteString(">" + label + "</span>")
		case c.Script != "":
			// Scripted items are actions: a POST form, which the script takes over when loaded.
			w.WriteString(`<form method="post" action="` + template.HTMLEscapeString(c.Value) + `">`)
			w.WriteString(`<button type="submit" data-on-click__prevent="` + template.HTMLEscapeString(c.Script) + `"`)
			if c.Description != "" {
				w.WriteString(` title="` + template.HTMLEscapeString(c.Description) + `"`)
			}
			w.WriteString(">" + label + "</button></form>")
		default:
			w.WriteString(`<a href="` + template.HTMLEscapeString(c.Value) + `"`)
			if c.Description != "" {
				w.WriteString(` title="` + template.HTMLEscapeString(c.Description) + `"`)
			}
			w.WriteString(">" + label + "</a>")
		}
		if c.HasChildren() {
			c.renderList(w, "")
		}
		w.WriteString("</li>")
	}
	w.WriteString("</ul>")
}
