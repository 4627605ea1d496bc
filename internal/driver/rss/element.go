package rss

import "strings"

// Namespaces recognised in item elements.
const (
	NSNone    = ""
	NSCustom  = "https://pytsite.xyz"
	NSContent = "http://purl.org/rss/1.0/modules/content/"
	NSMedia   = "http://search.yahoo.com/mrss/"
	NSYandex  = "http://news.yandex.ru"
)

// Element is one XML element of a feed item with its subtree.
type Element struct {
	Space    string
	Name     string
	Attrs    map[string]string
	Text     string
	Children []*Element
}

// ChildrenOf returns the direct children named name in namespace space.
func (e *Element) ChildrenOf(space, name string) []*Element {
	var out []*Element
	for _, c := range e.Children {
		if c.Name == name && sameSpace(c.Space, space) {
			out = append(out, c)
		}
	}
	return out
}

// First returns the first matching child or nil.
func (e *Element) First(space, name string) *Element {
	for _, c := range e.Children {
		if c.Name == name && sameSpace(c.Space, space) {
			return c
		}
	}
	return nil
}

// TextOf is the text of the first matching child, or "".
func (e *Element) TextOf(space, name string) string {
	if c := e.First(space, name); c != nil {
		return c.Text
	}
	return ""
}

func (e *Element) Attr(name string) string {
	return e.Attrs[name]
}

// Feeds disagree on the trailing slash of namespace URIs.
func sameSpace(a, b string) bool {
	return strings.TrimSuffix(a, "/") == strings.TrimSuffix(b, "/")
}
