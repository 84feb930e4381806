// Package roll builds the blog's HTML pages: the blog roll that lists every post, and the page shell around each rendered notebook.
package roll

import (
	"bytes"
	"fmt"
	"io"
	"net/url"

	"gitlab.com/efronlicht/nbblog/postmeta"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	stylesheet = "/s.css"
	mathjax    = "https://cdn.jsdelivr.net/npm/mathjax@3/es5/tex-mml-chtml.js"
)

// Link is the path of a post's page, relative to the site root.
func Link(slug string) string { return "blog/" + url.PathEscape(slug) }

// Title is the post's title, falling back to its slug.
func Title(e postmeta.Entry) string {
	if e.Title != "" {
		return e.Title
	}
	return e.Slug
}

// Published formats the publish date the way the blog shows it, e.g. "Published on June 1, 2024".
func Published(e postmeta.Entry) (string, error) {
	date, err := e.Date()
	if err != nil {
		return "", err
	}
	return "Published on " + date.Format("January 2, 2006"), nil
}

// Render writes the blog roll: a complete page with one section per post, in the order given.
func Render(w io.Writer, title string, posts []postmeta.Entry) error {
	body := el(atom.Div, "class", "Blog")
	for _, p := range posts {
		published, err := Published(p)
		if err != nil {
			return fmt.Errorf("render %s: %w", p.Name, err)
		}
		link := Link(p.Slug)
		body.AppendChild(nest(el(atom.Div, "class", "BlogSection"),
			nest(el(atom.H1, "class", "BlogSection-title"), nest(el(atom.A, "href", link), text(Title(p)))),
			nest(el(atom.P, "class", "BlogSection-date"), text(published)),
			nest(el(atom.P, "class", "BlogSection-text"), text(p.Summary)),
			nest(el(atom.A, "class", "Button", "href", link), text("Read more")),
		))
	}
	return html.Render(w, page(title, false, body))
}

// RenderPost writes the page for a single post around content, an already-rendered HTML fragment.
// Post pages load MathJax for the math in markdown cells.
func RenderPost(w io.Writer, e postmeta.Entry, content []byte) error {
	published, err := Published(e)
	if err != nil {
		return fmt.Errorf("render %s: %w", e.Name, err)
	}
	article := nest(el(atom.Div, "class", "BlogPost"),
		nest(el(atom.H1, "class", "BlogPost-title"), text(Title(e))),
		nest(el(atom.P, "class", "BlogSection-date"), text(published)),
	)
	nodes, err := html.ParseFragment(bytes.NewReader(content), article)
	if err != nil {
		return fmt.Errorf("parse content of %s: %w", e.Name, err)
	}
	for _, n := range nodes {
		article.AppendChild(n)
	}
	return html.Render(w, page(Title(e), true, article))
}

// page wraps body in <!DOCTYPE html><html><head>...</head><body>...</body></html>.
func page(title string, math bool, body *html.Node) *html.Node {
	head := nest(el(atom.Head),
		el(atom.Meta, "charset", "utf-8"),
		nest(el(atom.Title), text(title)),
		el(atom.Link, "rel", "stylesheet", "type", "text/css", "href", stylesheet),
	)
	if math {
		head.AppendChild(el(atom.Script, "src", mathjax, "async", ""))
	}
	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	doc.AppendChild(nest(el(atom.Html, "lang", "en"), head, nest(el(atom.Body), body)))
	return doc
}

// el makes an element. attrs are key, value pairs.
func el(a atom.Atom, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

func text(s string) *html.Node { return &html.Node{Type: html.TextNode, Data: s} }

func nest(parent *html.Node, children ...*html.Node) *html.Node {
	for _, c := range children {
		parent.AppendChild(c)
	}
	return parent
}
