package portal

import (
	"net/url"
	"strconv"
	"strings"
)

// URLs builds the links placed in customize menus. Prefix is the mount point of the portal
// routes ("/portal" by default).
type URLs struct {
	Prefix string
}

func (u URLs) prefix() string {
	p := strings.TrimRight(strings.TrimSpace(u.Prefix), "/")
	if p == "" {
		return "/portal"
	}
	return p
}

func (u URLs) Page(container, pageID string) string {
	return u.prefix() + "/" + url.PathEscape(container) + "/" + url.PathEscape(pageID)
}

func (u URLs) Part(container, pageID string, rowID int64) string {
	return u.Page(container, pageID) + "/parts/" + strconv.FormatInt(rowID, 10)
}

func (u URLs) Move(container, pageID string, rowID int64, dir Direction) string {
	return u.Part(container, pageID, rowID) + "/move?dir=" + dir.String()
}

func (u URLs) Remove(container, pageID string, rowID int64) string {
	return u.Part(container, pageID, rowID) + "/remove"
}

func (u URLs) Customize(container, pageID string, rowID int64) string {
	return u.Part(container, pageID, rowID) + "/customize"
}

func (u URLs) Add(container, pageID, name, location string) string {
	q := url.Values{}
	q.Set("name", name)
	q.Set("location", location)
	return u.Page(container, pageID) + "/parts/add?" + q.Encode()
}
