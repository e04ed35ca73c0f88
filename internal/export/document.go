package export

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a parsed HTML page an export works on. An export mutates the
// tree while it runs, so exports against one Document are serialized.
type Document struct {
	mu   sync.Mutex
	root *html.Node
}

// ParseDocument parses a complete HTML page.
func ParseDocument(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return &Document{root: root}, nil
}

// ParseDocumentString is ParseDocument for in-memory markup.
func ParseDocumentString(s string) (*Document, error) {
	return ParseDocument(strings.NewReader(s))
}

// String renders the current tree.
func (d *Document) String() string {
	var buf bytes.Buffer
	_ = html.Render(&buf, d.root)
	return buf.String()
}

// HasElement reports whether an element with the given id is attached.
func (d *Document) HasElement(id string) bool {
	return findByID(d.root, id) != nil
}

// CountAttr counts elements carrying attribute key.
func (d *Document) CountAttr(key string) int {
	n := 0
	walk(d.root, func(el *html.Node) {
		if _, ok := attr(el, key); ok {
			n++
		}
	})
	return n
}

func (d *Document) head() *html.Node { return findAtom(d.root, atom.Head) }
func (d *Document) body() *html.Node { return findAtom(d.root, atom.Body) }

// walk visits every element node below n, n included, in document order.
func walk(n *html.Node, visit func(*html.Node)) {
	if n.Type == html.ElementNode {
		visit(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

func findByID(n *html.Node, id string) *html.Node {
	var found *html.Node
	walk(n, func(el *html.Node) {
		if found != nil {
			return
		}
		if v, ok := attr(el, "id"); ok && v == id {
			found = el
		}
	})
	return found
}

func findAtom(n *html.Node, a atom.Atom) *html.Node {
	var found *html.Node
	walk(n, func(el *html.Node) {
		if found == nil && el.DataAtom == a {
			found = el
		}
	})
	return found
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Namespace == "" && n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// cloneTree deep-copies n and its descendants into a detached subtree.
func cloneTree(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.AppendChild(cloneTree(child))
	}
	return c
}

func detach(n *html.Node) {
	if n != nil && n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

func classes(n *html.Node) []string {
	v, _ := attr(n, "class")
	return strings.Fields(v)
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range classes(n) {
		if c == class {
			return true
		}
	}
	return false
}

func addClass(n *html.Node, class string) {
	if class == "" || hasClass(n, class) {
		return
	}
	setAttr(n, "class", strings.TrimSpace(strings.Join(append(classes(n), class), " ")))
}

// removeClasses drops every class for which drop returns true and reports whether any was dropped.
func removeClasses(n *html.Node, drop func(string) bool) bool {
	current := classes(n)
	if len(current) == 0 {
		return false
	}
	kept := current[:0:0]
	for _, c := range current {
		if !drop(c) {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(current) {
		return false
	}
	setAttr(n, "class", strings.Join(kept, " "))
	return true
}

// setStyle merges declarations into the inline style attribute, replacing existing properties.
func setStyle(n *html.Node, decls [][2]string) {
	current, _ := attr(n, "style")
	order := []string{}
	values := map[string]string{}
	for _, part := range strings.Split(current, ";") {
		prop, val, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		if _, seen := values[prop]; !seen {
			order = append(order, prop)
		}
		values[prop] = strings.TrimSpace(val)
	}
	for _, d := range decls {
		if _, seen := values[d[0]]; !seen {
			order = append(order, d[0])
		}
		values[d[0]] = d[1]
	}

	parts := make([]string, 0, len(order))
	for _, prop := range order {
		parts = append(parts, prop+": "+values[prop])
	}
	setAttr(n, "style", strings.Join(parts, "; ")+";")
}

func newStyleElement(id, css string) *html.Node {
	style := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Style,
		Data:     "style",
		Attr:     []html.Attribute{{Key: "id", Val: id}},
	}
	style.AppendChild(&html.Node{Type: html.TextNode, Data: css})
	return style
}
