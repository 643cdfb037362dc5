package document

import (
	"html"
	"strings"
)

// htmlRenderer emits the fixed CSS-classed markup for each node type
type htmlRenderer struct {
	b strings.Builder
}

func (r *htmlRenderer) Enter(n *Node, depth int) {
	switch n.Type {
	case NodeSection:
		r.b.WriteString(`<section class="doc-section">` + "\n")
		if n.Title != "" {
			r.b.WriteString(`<h2 class="doc-section-title">` + html.EscapeString(n.Title) + "</h2>\n")
		}
		if n.Text != "" {
			r.b.WriteString(`<p class="doc-paragraph">` + textHTML(n.Text) + "</p>\n")
		}
	case NodeSubsection:
		r.b.WriteString(`<div class="doc-subsection">` + "\n")
		if n.Title != "" {
			r.b.WriteString(`<h3 class="doc-subsection-title">` + html.EscapeString(n.Title) + "</h3>\n")
		}
		if n.Text != "" {
			r.b.WriteString(`<p class="doc-subsection-text">` + textHTML(n.Text) + "</p>\n")
		}
	case NodeParagraph:
		r.b.WriteString(`<p class="doc-paragraph">` + textHTML(n.Text) + "</p>\n")
	case NodeBulletList:
		r.b.WriteString(`<ul class="doc-bullet-list">` + "\n")
		for _, item := range n.Items {
			r.b.WriteString("<li>" + textHTML(item) + "</li>\n")
		}
	}
}

func (r *htmlRenderer) Leave(n *Node, depth int) {
	switch n.Type {
	case NodeSection:
		r.b.WriteString("</section>\n")
	case NodeSubsection:
		r.b.WriteString("</div>\n")
	case NodeBulletList:
		r.b.WriteString("</ul>\n")
	}
}

// textHTML escapes text and keeps line breaks
func textHTML(s string) string {
	return strings.ReplaceAll(html.EscapeString(s), "\n", "<br>")
}

// RenderStructure renders the bare agreement body. The same structure always
// yields byte-identical output.
func RenderStructure(s *Structure) string {
	if s == nil {
		return ""
	}
	r := &htmlRenderer{}
	if s.Title != "" {
		r.b.WriteString(`<h1 class="doc-title">` + html.EscapeString(s.Title) + "</h1>\n")
	}
	Walk(s.Nodes, r)
	return r.b.String()
}

// RenderNode renders a single node with its subtree
func RenderNode(n Node) string {
	r := &htmlRenderer{}
	Walk([]Node{n}, r)
	return r.b.String()
}
