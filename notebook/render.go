package notebook

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/sourcegraph/syntaxhighlight"
	"golang.org/x/net/html"
)

// Render writes the notebook as an HTML fragment: a <div class="Notebook"> with one child per cell.
func (nb *Notebook) Render(w io.Writer) error {
	b := []byte(`<div class="Notebook">` + "\n")
	for i, c := range nb.Cells {
		var err error
		if b, err = nb.appendCell(b, c); err != nil {
			return fmt.Errorf("render cell %d: %w", i, err)
		}
	}
	b = append(b, "</div>\n"...)
	_, err := w.Write(b)
	return err
}

func (nb *Notebook) appendCell(b []byte, c Cell) ([]byte, error) {
	switch c.Type {
	case "markdown":
		md, err := renderMarkdown([]byte(c.Source))
		if err != nil {
			return b, err
		}
		b = append(b, `<div class="Notebook-markdown">`...)
		b = append(b, md...)
		return append(b, "</div>\n"...), nil
	case "code":
		code, err := syntaxhighlight.AsHTML([]byte(c.Source))
		if err != nil {
			return b, fmt.Errorf("highlight: %w", err)
		}
		b = fmt.Appendf(b, `<div class="Notebook-code"><pre><code class="language-%s">%s</code></pre>`, html.EscapeString(nb.Language(c)), code)
		for _, o := range c.Outputs {
			b = appendOutput(b, o)
		}
		return append(b, "</div>\n"...), nil
	default:
		return append(b, "<p>Not handled yet!</p>\n"...), nil
	}
}

// appendOutput renders text/plain and image/png results and stream text. Anything else (errors, html, widgets) is dropped.
func appendOutput(b []byte, o Output) []byte {
	if o.Data != nil {
		b = append(b, `<div class="Notebook-output">`...)
		if text, ok := o.Data["text/plain"]; ok {
			b = fmt.Appendf(b, "<pre><code>%s</code></pre>", html.EscapeString(string(text)))
		}
		if png, ok := o.Data["image/png"]; ok {
			// base64 in notebooks is often wrapped across lines.
			b = fmt.Appendf(b, `<img src="data:image/png;base64,%s" alt=""/>`, strings.Join(strings.Fields(string(png)), ""))
		}
		return append(b, "</div>\n"...)
	}
	if o.Name != "" {
		return fmt.Appendf(b, `<div class="Notebook-output"><pre><code>%s</code></pre></div>`+"\n", html.EscapeString(string(o.Text)))
	}
	return b
}

// renderMarkdown renders a markdown cell, replacing fenced code with its highlighted version.
// $math$ is kept for MathJax on the page to pick up.
func renderMarkdown(src []byte) ([]byte, error) {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.MathJax) // parsers can't be reused
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags})
	out := markdown.ToHTML(markdown.NormalizeNewlines(src), p, renderer)

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("parse rendered markdown: %w", err)
	}
	var highlightErr error
	doc.Find(`code[class*="language-"]`).Each(func(_ int, s *goquery.Selection) {
		code, err := syntaxhighlight.AsHTML([]byte(s.Text()))
		if err != nil {
			highlightErr = err
			return
		}
		s.SetHtml(string(code))
	})
	if highlightErr != nil {
		return nil, fmt.Errorf("highlight: %w", highlightErr)
	}
	body, err := doc.Find("body").Html()
	if err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	return []byte(body), nil
}
