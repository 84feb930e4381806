// Package postmeta reads the per-post metadata files (*.meta) that sit next to each notebook.
// A metadata file is a single JSON object:
//
//	{"slug": "hello-world", "notebook": "hello.ipynb", "publish_date": "2024-06-01", "title": "Hello", "summary": "..."}
//
// slug, notebook, and publish_date are required. title and summary are only used when rendering the blog roll.
// Anything else is ignored.
package postmeta

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	// Ext is the suffix that marks a metadata file.
	Ext = ".meta"
	// DateLayout is the layout of publish_date, YYYY-MM-DD.
	DateLayout = "2006-01-02"
)

// Record is the parsed contents of one metadata file.
type Record struct {
	Slug        string `json:"slug"`
	Notebook    string `json:"notebook"`
	PublishDate string `json:"publish_date"`
	Title       string `json:"title,omitempty"`
	Summary     string `json:"summary,omitempty"`
}

// Validate checks the required fields. The returned error is a validation.Errors keyed by JSON field name.
func (r *Record) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Slug, validation.Required),
		validation.Field(&r.Notebook, validation.Required),
		validation.Field(&r.PublishDate, validation.Required, validation.Date(DateLayout)),
	)
}

// Date parses PublishDate. Records returned by Parse always have a valid date.
func (r Record) Date() (time.Time, error) { return time.Parse(DateLayout, r.PublishDate) }

// Entry is a Record together with the filename it was read from.
type Entry struct {
	Name string // base filename, e.g. "hello.meta"
	Record
}

// ParseError reports a metadata file that could not be turned into a Record.
type ParseError struct {
	File  string
	Field string // JSON name of the offending field; empty if the document itself is malformed.
	Err   error
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("parse %s: %v", e.File, e.Err)
	}
	return fmt.Sprintf("parse %s: field %s: %v", e.File, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse decodes and validates the contents of the metadata file called name.
// Keys match exactly: "Slug" is not "slug". Any failure is a *ParseError.
func Parse(name string, b []byte) (Record, error) {
	// encoding/json folds case when decoding into a struct, so go through a map.
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return Record{}, &ParseError{File: name, Err: err}
	}
	var r Record
	for _, f := range []struct {
		key string
		dst *string
	}{
		{"slug", &r.Slug},
		{"notebook", &r.Notebook},
		{"publish_date", &r.PublishDate},
		{"title", &r.Title},
		{"summary", &r.Summary},
	} {
		v, ok := raw[f.key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(v, f.dst); err != nil {
			return Record{}, &ParseError{File: name, Field: f.key, Err: err}
		}
	}
	if err := r.Validate(); err != nil {
		return Record{}, &ParseError{File: name, Field: firstField(err), Err: err}
	}
	return r, nil
}

// firstField picks the alphabetically-first failing field out of a validation.Errors.
func firstField(err error) string {
	var errs validation.Errors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return ""
	}
	fields := make([]string, 0, len(errs))
	for k := range errs {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	return fields[0]
}

// List returns the names of the metadata files directly inside dir, sorted lexicographically.
// Subdirectories are not searched.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries { // os.ReadDir sorts by filename
		if n := e.Name(); !e.IsDir() && strings.HasSuffix(n, Ext) {
			names = append(names, n)
		}
	}
	return names, nil
}

// ReadFile reads and parses a single metadata file.
func ReadFile(path string) (Entry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Entry{}, fmt.Errorf("read metadata: %w", err)
	}
	name := filepath.Base(path)
	r, err := Parse(name, b)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Name: name, Record: r}, nil
}

// Load reads every metadata file in dir, in List order. The first bad file aborts the load.
func Load(dir string) ([]Entry, error) {
	names, err := List(dir)
	if err != nil {
		return nil, err
	}
	return LoadNames(dir, names)
}

// LoadNames reads the named metadata files from dir, in the order given.
// Used to resolve the "posts" list of an aggregate index back into records.
func LoadNames(dir string, names []string) ([]Entry, error) {
	entries := make([]Entry, 0, len(names))
	for _, n := range names {
		e, err := ReadFile(filepath.Join(dir, n))
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}
