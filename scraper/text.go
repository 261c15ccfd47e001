package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// blockElements end the current line when they open or close.
var blockElements = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Dd: true, atom.Div: true, atom.Dl: true, atom.Dt: true, atom.Fieldset: true,
	atom.Figure: true, atom.Footer: true, atom.Form: true, atom.H1: true, atom.H2: true,
	atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true, atom.Header: true,
	atom.Hr: true, atom.Li: true, atom.Main: true, atom.Nav: true, atom.Ol: true,
	atom.P: true, atom.Pre: true, atom.Section: true, atom.Table: true, atom.Tr: true,
	atom.Ul: true,
}

// RenderLines approximates the visible text of sel, one rendered line per
// output line. Whitespace inside a line is collapsed and blank lines dropped.
func RenderLines(sel *goquery.Selection) string {
	var r lineRenderer
	for _, node := range sel.Nodes {
		r.walk(node)
	}
	r.flush()
	return strings.Join(r.lines, "\n")
}

type lineRenderer struct {
	lines   []string
	current strings.Builder
}

func (r *lineRenderer) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		r.current.WriteString(n.Data)
		return
	case html.CommentNode:
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Noscript, atom.Template:
			return
		case atom.Br:
			r.flush()
			return
		case atom.Td, atom.Th:
			r.current.WriteByte(' ')
		}
	}

	block := n.Type == html.ElementNode && blockElements[n.DataAtom]
	if block {
		r.flush()
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		r.walk(c)
	}
	if block {
		r.flush()
	}
}

func (r *lineRenderer) flush() {
	line := strings.Join(strings.Fields(r.current.String()), " ")
	r.current.Reset()
	if line != "" {
		r.lines = append(r.lines, line)
	}
}
