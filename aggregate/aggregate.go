// Package aggregate combines every metadata file in a notebook directory into the single index
// the front end reads: which notebook each slug points at, and which posts exist, newest first.
package aggregate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/natefinch/atomic"
	"gitlab.com/efronlicht/nbblog/postmeta"
	"go.uber.org/zap"
)

// Filename is the default name of the index, written into the notebook directory.
const Filename = "metadata.json"

// Index is the aggregate output.
//
//	{"slugs": {"a": "nb1.ipynb", "b": "nb2.ipynb"}, "posts": ["b.meta", "a.meta"]}
type Index struct {
	Slugs map[string]string `json:"slugs"` // slug -> notebook
	Posts []string          `json:"posts"` // metadata filenames, newest publish_date first
}

// Build makes an Index from parsed entries.
// Slugs are last-write-wins in entry order. Posts are stable-sorted by descending publish date,
// so entries sharing a date keep the order they were given in.
// Zero entries give an empty (not nil) map and slice.
func Build(entries []postmeta.Entry) (Index, error) {
	type dated struct {
		name string
		date time.Time
	}
	idx := Index{Slugs: make(map[string]string, len(entries)), Posts: make([]string, 0, len(entries))}
	posts := make([]dated, len(entries))
	for i, e := range entries {
		idx.Slugs[e.Slug] = e.Notebook
		date, err := e.Date()
		if err != nil {
			return Index{}, &postmeta.ParseError{File: e.Name, Field: "publish_date", Err: err}
		}
		posts[i] = dated{name: e.Name, date: date}
	}
	slices.SortStableFunc(posts, func(a, b dated) int { return b.date.Compare(a.date) })
	for _, p := range posts {
		idx.Posts = append(idx.Posts, p.name)
	}
	return idx, nil
}

// Write serializes idx as JSON and atomically replaces the file at path.
// A failed write leaves whatever was at path before untouched.
func Write(path string, idx Index) error {
	b, err := json.Marshal(idx)
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(b)); err != nil {
		return fmt.Errorf("write index %s: %w", path, err)
	}
	// atomic.WriteFile leaves new files with the temp file's 0600.
	if err := os.Chmod(path, 0o644); err != nil {
		return fmt.Errorf("chmod index %s: %w", path, err)
	}
	return nil
}

// Read loads an index written by Write.
func Read(path string) (Index, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Index{}, fmt.Errorf("read index: %w", err)
	}
	var idx Index
	if err := json.Unmarshal(b, &idx); err != nil {
		return Index{}, fmt.Errorf("parse index %s: %w", path, err)
	}
	return idx, nil
}

// Run aggregates the metadata files in dir and writes the index to out.
// If out is empty, it's dir/metadata.json.
// Any bad metadata file aborts the run before anything is written.
func Run(dir, out string, logger *zap.Logger) (Index, error) {
	if out == "" {
		out = filepath.Join(dir, Filename)
	}
	start := time.Now()
	entries, err := postmeta.Load(dir)
	if err != nil {
		return Index{}, err
	}
	for _, e := range entries {
		logger.Debug("loaded metadata", zap.String("file", e.Name), zap.String("slug", e.Slug), zap.String("publish_date", e.PublishDate))
	}
	idx, err := Build(entries)
	if err != nil {
		return Index{}, err
	}
	if len(idx.Slugs) < len(idx.Posts) {
		logger.Debug("duplicate slugs: later files win", zap.Int("posts", len(idx.Posts)), zap.Int("slugs", len(idx.Slugs)))
	}
	if err := Write(out, idx); err != nil {
		return Index{}, err
	}
	logger.Info("wrote index",
		zap.String("path", out),
		zap.Int("posts", len(idx.Posts)),
		zap.Int("slugs", len(idx.Slugs)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return idx, nil
}
