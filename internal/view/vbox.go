package view

import "net/http"

// Slot is an optional child view. An empty slot keeps a position in a composite without
// producing output.
type Slot struct {
	view View
}

func Some(v View) Slot { return Slot{view: v} }

func None() Slot { return Slot{} }

func (s Slot) Get() (View, bool) { return s.view, s.view != nil }

func (s Slot) IsEmpty() bool { return s.view == nil }

// DefaultSeparator is written between two rendered children of a VBox.
const DefaultSeparator = "\n"

// VBox renders an ordered list of child views one after another.
type VBox struct {
	Separator string

	slots []Slot
}

func NewVBox(views ...View) *VBox {
	b := &VBox{Separator: DefaultSeparator}
	for _, v := range views {
		b.AddView(v)
	}
	return b
}

// AddView appends v. A nil view means "nothing to show" and is ignored.
func (b *VBox) AddView(v View) {
	if v == nil {
		return
	}
	b.slots = append(b.slots, Some(v))
}

func (b *VBox) AddSlot(s Slot) {
	b.slots = append(b.slots, s)
}

// Views returns the present children in order.
func (b *VBox) Views() []View {
	out := make([]View, 0, len(b.slots))
	for _, s := range b.slots {
		if v, ok := s.Get(); ok {
			out = append(out, v)
		}
	}
	return out
}

func (b *VBox) Len() int { return len(b.slots) }

// IsVisible reports whether any slot holds a view.
func (b *VBox) IsVisible() bool {
	for _, s := range b.slots {
		if !s.IsEmpty() {
			return true
		}
	}
	return false
}

func (b *VBox) ViewName() string { return "vbox" }

func (b *VBox) RenderView(s *Stack, w *Response, _ *http.Request) error {
	rendered := 0
	for _, slot := range b.slots {
		v, ok := slot.Get()
		if !ok {
			continue
		}
		if rendered > 0 && b.Separator != "" {
			if _, err := w.WriteString(b.Separator); err != nil {
				return err
			}
		}
		if err := Include(s, v, w); err != nil {
			return err
		}
		rendered++
	}
	return nil
}
