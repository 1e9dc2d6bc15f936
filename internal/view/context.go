package view

import (
	"net/http"
	"net/url"
	"sort"

	"portalkit/internal/model"
)

// Context is the per-request bag a view renders against.
type Context struct {
	Request   *http.Request
	Response  *Response
	User      model.User
	Container *model.Container
	URL       *url.URL

	// ContextualRoles, when set, overrides the roles a permission check would otherwise derive.
	ContextualRoles []string

	props  map[string]any
	parent *Context
}

// NewContext creates a context for r. Container, URL and user come from the nearest enclosing
// context on s when there is one.
func NewContext(s *Stack, r *http.Request, w *Response) *Context {
	c := &Context{Request: r, Response: w, User: model.GuestUser()}
	if s != nil {
		if top := s.TopViewContext(); top != nil {
			c.parent = top
			c.User = top.User
		}
	}
	c.inherit()
	if c.URL == nil && r != nil {
		c.URL = r.URL
	}
	return c
}

func (c *Context) Parent() *Context { return c.parent }

// inherit fills unset container and URL from the parent chain.
func (c *Context) inherit() {
	for p := c.parent; p != nil && (c.Container == nil || c.URL == nil); p = p.parent {
		if c.Container == nil && p.Container != nil {
			c.Container = p.Container
		}
		if c.URL == nil && p.URL != nil {
			c.URL = p.URL
		}
	}
}

// attach links c under parent if it has no parent yet, then inherits what is still unset.
func (c *Context) attach(parent *Context) {
	if parent == nil || parent == c {
		return
	}
	if c.parent == nil {
		c.parent = parent
	}
	c.inherit()
}

// Copy returns a context for a nested or forwarded invocation. The property bag is copied.
func (c *Context) Copy() *Context {
	out := *c
	out.props = nil
	for k, v := range c.props {
		out.Set(k, v)
	}
	out.ContextualRoles = append([]string(nil), c.ContextualRoles...)
	if c.URL != nil {
		u := *c.URL
		out.URL = &u
	}
	return &out
}

func (c *Context) Get(key string) (any, bool) {
	v, ok := c.props[key]
	return v, ok
}

func (c *Context) GetString(key string) string {
	v, _ := c.props[key].(string)
	return v
}

func (c *Context) Set(key string, v any) {
	if c.props == nil {
		c.props = map[string]any{}
	}
	c.props[key] = v
}

func (c *Context) Delete(key string) {
	delete(c.props, key)
}

func (c *Context) Keys() []string {
	keys := make([]string, 0, len(c.props))
	for k := range c.props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (c *Context) HasContextualRole(role string) bool {
	for _, r := range c.ContextualRoles {
		if r == role {
			return true
		}
	}
	return false
}

// ContainerID returns the target container id, or "" when none is set.
func (c *Context) ContainerID() string {
	if c == nil || c.Container == nil {
		return ""
	}
	return c.Container.ID
}
