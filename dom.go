package codolio

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Elements whose text never reaches the rendered page.
var hiddenElements = map[atom.Atom]bool{
	atom.Head:     true,
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Title:    true,
}

// Elements that start a new line in the rendered text.
var blockElements = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Dd: true, atom.Div: true, atom.Dl: true, atom.Dt: true, atom.Fieldset: true,
	atom.Figure: true, atom.Footer: true, atom.Form: true, atom.H1: true, atom.H2: true,
	atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true, atom.Header: true,
	atom.Hr: true, atom.Li: true, atom.Main: true, atom.Nav: true, atom.Ol: true,
	atom.P: true, atom.Pre: true, atom.Section: true, atom.Table: true, atom.Tbody: true,
	atom.Thead: true, atom.Tfoot: true, atom.Tr: true, atom.Ul: true,
}

func isElement(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode
}

func visible(n *html.Node) bool {
	return n.Type != html.ElementNode || !hiddenElements[n.DataAtom]
}

// bodyOf returns the <body> element, or doc when the markup has none.
func bodyOf(doc *html.Node) *html.Node {
	var body *html.Node
	walk(doc, func(n *html.Node) bool {
		if body != nil {
			return false
		}
		if isElement(n) && n.DataAtom == atom.Body {
			body = n
			return false
		}
		return true
	})
	if body == nil {
		return doc
	}
	return body
}

// walk visits n and its visible descendants in document order. Returning
// false from fn skips the children of the node just visited.
func walk(n *html.Node, fn func(*html.Node) bool) {
	if !visible(n) || !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func attr(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

// textContent concatenates the visible text nodes under n.
func textContent(n *html.Node) string {
	var b strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
		return true
	})
	return b.String()
}

// innerText approximates the browser's rendered text: whitespace inside text
// nodes collapses, block boundaries and <br> become newlines, table cells are
// tab separated.
func innerText(n *html.Node) string {
	var b strings.Builder
	writeInnerText(&b, n)

	lines := strings.Split(b.String(), "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func writeInnerText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(collapseSpace(n.Data))
		return
	case html.CommentNode:
		return
	case html.ElementNode:
		if hiddenElements[n.DataAtom] {
			return
		}
		if n.DataAtom == atom.Br {
			b.WriteByte('\n')
			return
		}
	}

	block := isElement(n) && blockElements[n.DataAtom]
	if block {
		b.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeInnerText(b, c)
	}
	switch {
	case block:
		b.WriteByte('\n')
	case isElement(n) && (n.DataAtom == atom.Td || n.DataAtom == atom.Th):
		b.WriteByte('\t')
	}
}

// flatText is the rendered text of n on a single line.
func flatText(n *html.Node) string {
	return normalizeSpace(innerText(n))
}

// collapseSpace folds every whitespace run into one space, keeping the edges.
func collapseSpace(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	if s == "" {
		return ""
	}
	out := normalizeSpace(s)
	if out == "" {
		return " "
	}
	if strings.TrimLeftFunc(s, unicode.IsSpace) != s {
		out = " " + out
	}
	if strings.TrimRightFunc(s, unicode.IsSpace) != s {
		out += " "
	}
	return out
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// findLabel returns the first, deepest element under root whose text
// contains label, compared case-insensitively. It returns nil when no
// element matches.
func findLabel(root *html.Node, label string) *html.Node {
	needle := strings.ToLower(normalizeSpace(label))
	if root == nil || needle == "" {
		return nil
	}

	var find func(n *html.Node) *html.Node
	find = func(n *html.Node) *html.Node {
		if !strings.Contains(strings.ToLower(normalizeSpace(textContent(n))), needle) {
			return nil
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !isElement(c) || !visible(c) {
				continue
			}
			if hit := find(c); hit != nil {
				return hit
			}
		}
		if !isElement(n) {
			return nil
		}
		return n
	}
	return find(root)
}

// cardOf returns the search scope for a label node: the nearest enclosing
// card, else the parent element, else the node itself.
func cardOf(n *html.Node) *html.Node {
	for p := n; p != nil; p = p.Parent {
		if isElement(p) && strings.Contains(attr(p, "class"), "MuiCard") {
			return p
		}
	}
	if isElement(n.Parent) {
		return n.Parent
	}
	return n
}
