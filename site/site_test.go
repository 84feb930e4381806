package site_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gitlab.com/efronlicht/nbblog/aggregate"
	"gitlab.com/efronlicht/nbblog/feed"
	"gitlab.com/efronlicht/nbblog/site"
	"go.uber.org/zap"
)

const nb = `{"cells": [{"cell_type": "markdown", "metadata": {}, "source": ["# %s\n"]}], "metadata": {}, "nbformat": 4}`

// setup writes files into a fresh notebook directory and builds its index.
func setup(t *testing.T, files map[string]string) string {
	t.Helper()
	src := t.TempDir()
	for name, body := range files {
		path := filepath.Join(src, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}
	_, err := aggregate.Run(src, "", zap.NewNop())
	require.NoError(t, err)
	return src
}

func twoPosts() map[string]string {
	return map[string]string{
		"a.meta":  `{"slug":"a","notebook":"a.ipynb","publish_date":"2024-01-01","title":"Post A"}`,
		"b.meta":  `{"slug":"b","notebook":"nbs/b.ipynb","publish_date":"2024-06-01","title":"Post B","summary":"the second"}`,
		"a.ipynb": strings.ReplaceAll(nb, "%s", "Notebook A"),
	}
}

func TestBuild(t *testing.T) {
	files := twoPosts()
	files["nbs/b.ipynb"] = strings.ReplaceAll(nb, "%s", "Notebook B")
	src := setup(t, files)

	s, err := site.Open(src)
	require.NoError(t, err)
	require.Equal(t, []string{"b.meta", "a.meta"}, s.Index.Posts)
	require.Equal(t, "Post B", s.Posts[0].Title)

	dst := filepath.Join(t.TempDir(), "build")
	require.NoError(t, s.BuildRoll(context.Background(), dst, "my blog", zap.NewNop()))
	require.NoError(t, s.BuildFeed(dst, feed.Channel{Title: "my blog", Link: "https://example.com"}, time.Now(), zap.NewNop()))

	index := read(t, filepath.Join(dst, "index.html"))
	require.Less(t, strings.Index(index, "Post B"), strings.Index(index, "Post A"), "newest first")
	require.Contains(t, index, "the second")
	require.Contains(t, read(t, filepath.Join(dst, "blog", "a.html")), "Notebook A</h1>")
	require.Contains(t, read(t, filepath.Join(dst, "blog", "b.html")), "Notebook B</h1>")
	require.Contains(t, read(t, filepath.Join(dst, "feed.xml")), "<link>https://example.com/blog/b</link>")
}

func TestBuildRollMissingNotebook(t *testing.T) {
	src := setup(t, twoPosts()) // nbs/b.ipynb is missing
	s, err := site.Open(src)
	require.NoError(t, err)
	err = s.BuildRoll(context.Background(), t.TempDir(), "blog", zap.NewNop())
	require.ErrorIs(t, err, os.ErrNotExist)
	require.ErrorContains(t, err, "post b")
}

func TestBuildRollBadSlug(t *testing.T) {
	src := setup(t, map[string]string{
		"x.meta": `{"slug":"../escape","notebook":"x.ipynb","publish_date":"2024-01-01"}`,
	})
	s, err := site.Open(src)
	require.NoError(t, err)
	require.ErrorContains(t, s.BuildRoll(context.Background(), t.TempDir(), "blog", zap.NewNop()), "can't be used as a filename")
}

func TestBuildRollDuplicateSlug(t *testing.T) {
	src := setup(t, map[string]string{
		"a.meta":  `{"slug":"same","notebook":"a.ipynb","publish_date":"2024-01-01","title":"From A"}`,
		"b.meta":  `{"slug":"same","notebook":"b.ipynb","publish_date":"2024-06-01","title":"From B"}`,
		"a.ipynb": strings.ReplaceAll(nb, "%s", "Notebook A"),
		"b.ipynb": strings.ReplaceAll(nb, "%s", "Notebook B"),
	})
	s, err := site.Open(src)
	require.NoError(t, err)
	dst := t.TempDir()
	require.NoError(t, s.BuildRoll(context.Background(), dst, "blog", zap.NewNop()))
	page := read(t, filepath.Join(dst, "blog", "same.html"))
	// whichever notebook won the slug, the page's title comes from the same post.
	switch s.Index.Slugs["same"] {
	case "a.ipynb":
		require.Contains(t, page, "From A")
		require.Contains(t, page, "Notebook A")
	case "b.ipynb":
		require.Contains(t, page, "From B")
		require.Contains(t, page, "Notebook B")
	default:
		t.Fatalf("unexpected notebook %q", s.Index.Slugs["same"])
	}
}

func TestOpenWithoutIndex(t *testing.T) {
	_, err := site.Open(t.TempDir())
	require.ErrorIs(t, err, os.ErrNotExist)
}

func read(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}
