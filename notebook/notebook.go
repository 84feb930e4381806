// Package notebook renders Jupyter notebooks (nbformat 4) as HTML fragments for the blog.
// Markdown cells go through gomarkdown; code cells and fenced code inside markdown are syntax-highlighted;
// text and PNG outputs are shown under the cell that produced them.
package notebook

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Text is a notebook string field. nbformat allows either a single string or a list of lines.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = Text(s)
		return nil
	}
	var lines []string
	if err := json.Unmarshal(b, &lines); err != nil {
		return fmt.Errorf("expected a string or a list of strings: %w", err)
	}
	*t = Text(strings.Join(lines, ""))
	return nil
}

type Notebook struct {
	Cells    []Cell `json:"cells"`
	Metadata struct {
		LanguageInfo struct {
			Name string `json:"name"`
		} `json:"language_info"`
	} `json:"metadata"`
	NBFormat int `json:"nbformat"`
}

type Cell struct {
	Type     string `json:"cell_type"` // "markdown", "code", or "raw"
	Source   Text   `json:"source"`
	Metadata struct {
		Language string `json:"language"`
	} `json:"metadata"`
	Outputs []Output `json:"outputs"`
}

// Output is one result of running a code cell.
// Execute results and display data carry Data; streams (stdout, stderr) carry Name and Text.
type Output struct {
	Type string          `json:"output_type"`
	Data map[string]Text `json:"data"`
	Name string          `json:"name"`
	Text Text            `json:"text"`
}

// Parse reads a notebook.
func Parse(r io.Reader) (*Notebook, error) {
	var nb Notebook
	if err := json.NewDecoder(r).Decode(&nb); err != nil {
		return nil, fmt.Errorf("parse notebook: %w", err)
	}
	if nb.NBFormat != 0 && nb.NBFormat < 4 {
		return nil, fmt.Errorf("parse notebook: nbformat %d: only nbformat 4 is supported", nb.NBFormat)
	}
	return &nb, nil
}

// Language is the language a code cell is written in: the cell's own metadata, then the notebook's kernel, then python.
func (nb *Notebook) Language(c Cell) string {
	switch {
	case c.Metadata.Language != "":
		return c.Metadata.Language
	case nb.Metadata.LanguageInfo.Name != "":
		return nb.Metadata.LanguageInfo.Name
	default:
		return "python"
	}
}
