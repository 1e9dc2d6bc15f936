package perm

import (
	"strings"

	"portalkit/internal/config"
	"portalkit/internal/model"
	"portalkit/internal/portal"
)

// Policy decides who may customize portal pages.
//
// Rules:
//   - Guests never customize.
//   - Admins customize every container.
//   - A container's editors customize that container.
type Policy struct {
	cfg *config.Config
}

func NewPolicy(cfg *config.Config) Policy {
	return Policy{cfg: cfg}
}

func (p Policy) CanCustomize(u model.User, c model.Container) bool {
	name := strings.TrimSpace(u.Name)
	if u.Guest || name == "" || p.cfg == nil {
		return false
	}
	if p.cfg.IsAdmin(name) {
		return true
	}
	for _, e := range p.cfg.Containers[c.ID].Editors {
		if strings.EqualFold(strings.TrimSpace(e), name) {
			return true
		}
	}
	return false
}

var _ portal.Permissions = Policy{}
