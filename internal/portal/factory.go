package portal

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"portalkit/internal/model"
	"portalkit/internal/view"
)

// Factory builds the view for one kind of webpart.
type Factory interface {
	Name() string
	DisplayName() string
	DefaultLocation() string
	IsEditable() bool
	IsAvailable(c model.Container, location string) bool
	WebPartView(ctx context.Context, vctx *view.Context, part model.WebPart) (view.View, error)
}

// BaseFactory carries the descriptive half of a Factory. Embed it and add WebPartView.
type BaseFactory struct {
	Type     string
	Display  string
	Location string
	Editable bool

	// Locations restricts where the part may be added. Empty means anywhere.
	Locations []string
}

func (b BaseFactory) Name() string { return b.Type }

func (b BaseFactory) DisplayName() string {
	if b.Display != "" {
		return b.Display
	}
	return b.Type
}

func (b BaseFactory) DefaultLocation() string {
	if b.Location != "" {
		return b.Location
	}
	return model.LocationBody
}

func (b BaseFactory) IsEditable() bool { return b.Editable }

func (b BaseFactory) IsAvailable(_ model.Container, location string) bool {
	if len(b.Locations) == 0 {
		return true
	}
	for _, l := range b.Locations {
		if strings.EqualFold(l, location) {
			return true
		}
	}
	return false
}

// ViewBuilder is the WebPartView half of a Factory.
type ViewBuilder func(ctx context.Context, vctx *view.Context, part model.WebPart) (view.View, error)

type funcFactory struct {
	BaseFactory
	build ViewBuilder
}

func (f funcFactory) WebPartView(ctx context.Context, vctx *view.Context, part model.WebPart) (view.View, error) {
	return f.build(ctx, vctx, part)
}

func NewFactory(base BaseFactory, build ViewBuilder) Factory {
	return funcFactory{BaseFactory: base, build: build}
}

// Registry maps webpart type names to factories. Lookups ignore case.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Factory
}

func NewRegistry(factories ...Factory) (*Registry, error) {
	r := &Registry{byName: map[string]Factory{}}
	for _, f := range factories {
		if err := r.Register(f); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func registryKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (r *Registry) Register(f Factory) error {
	key := registryKey(f.Name())
	if key == "" {
		return fmt.Errorf("portal: factory has empty name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[key]; ok {
		return fmt.Errorf("portal: factory %q already registered", f.Name())
	}
	r.byName[key] = f
	return nil
}

// Lookup returns the factory for name, or nil.
func (r *Registry) Lookup(name string) Factory {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byName[registryKey(name)]
}

// Factories returns every registered factory ordered by display name.
func (r *Registry) Factories() []Factory {
	r.mu.RLock()
	out := make([]Factory, 0, len(r.byName))
	for _, f := range r.byName {
		out = append(out, f)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i].DisplayName()), strings.ToLower(out[j].DisplayName())
		if a != b {
			return a < b
		}
		return out[i].Name() < out[j].Name()
	})
	return out
}

func (r *Registry) AvailableFor(c model.Container, location string) []Factory {
	var out []Factory
	for _, f := range r.Factories() {
		if f.IsAvailable(c, location) {
			out = append(out, f)
		}
	}
	return out
}

// buildView asks f for a view, turning a panic into an error.
func buildView(ctx context.Context, f Factory, vctx *view.Context, part model.WebPart) (v view.View, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			v = nil
			err = &FactoryPanicError{Name: f.Name(), Value: rec}
		}
	}()
	return f.WebPartView(ctx, vctx, part.Copy())
}
