package postmeta_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"gitlab.com/efronlicht/nbblog/postmeta"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
}

func TestParse(t *testing.T) {
	t.Parallel()
	got, err := postmeta.Parse("a.meta", []byte(`{"slug":"a","notebook":"nb1.ipynb","publish_date":"2024-01-01","title":"A","summary":"first","tags":["x"]}`))
	require.NoError(t, err)
	want := postmeta.Record{Slug: "a", Notebook: "nb1.ipynb", PublishDate: "2024-01-01", Title: "A", Summary: "first"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Parse() mismatch (-want +got):\n%s", diff)
	}
	date, err := got.Date()
	require.NoError(t, err)
	require.Equal(t, 2024, date.Year())
}

func TestParseKeysAreCaseSensitive(t *testing.T) {
	t.Parallel()
	got, err := postmeta.Parse("a.meta", []byte(`{"slug":"a","Slug":"b","notebook":"nb","NOTEBOOK":"other","publish_date":"2024-01-01"}`))
	require.NoError(t, err)
	want := postmeta.Record{Slug: "a", Notebook: "nb", PublishDate: "2024-01-01"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Parse() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseErrors(t *testing.T) {
	t.Parallel()
	for _, tt := range []struct {
		name, body, field string
	}{
		{"malformed", `{"slug": "a",`, ""},
		{"not an object", `["a"]`, ""},
		{"missing date", `{"slug":"a","notebook":"nb"}`, "publish_date"},
		{"bad date", `{"slug":"a","notebook":"nb","publish_date":"not-a-date"}`, "publish_date"},
		{"wrong date layout", `{"slug":"a","notebook":"nb","publish_date":"01/02/2024"}`, "publish_date"},
		{"missing slug", `{"notebook":"nb","publish_date":"2024-01-01"}`, "slug"},
		{"missing notebook", `{"slug":"a","publish_date":"2024-01-01"}`, "notebook"},
		{"wrong type", `{"slug":5,"notebook":"nb","publish_date":"2024-01-01"}`, "slug"},
		{"everything missing", `{}`, "notebook"},
		{"null document", `null`, "notebook"},
		{"wrong-case keys", `{"Slug":"a","NOTEBOOK":"nb","Publish_Date":"2024-01-01"}`, "notebook"},
		{"wrong-case date key", `{"slug":"a","notebook":"nb","PublishDate":"2024-01-01"}`, "publish_date"},
		{"wrong type for optional field", `{"slug":"a","notebook":"nb","publish_date":"2024-01-01","title":["A"]}`, "title"},
		{"unpadded date", `{"slug":"a","notebook":"nb","publish_date":"2024-1-5"}`, "publish_date"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			_, err := postmeta.Parse("x.meta", []byte(tt.body))
			var perr *postmeta.ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("expected a *ParseError, got %T: %v", err, err)
			}
			if perr.File != "x.meta" {
				t.Errorf("expected file x.meta, got %s", perr.File)
			}
			if perr.Field != tt.field {
				t.Errorf("expected field %q, got %q (%v)", tt.field, perr.Field, err)
			}
		})
	}
}

func TestListSkipsOtherFilesAndSubdirs(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"b.meta":        "{}",
		"a.meta":        "{}",
		"a.ipynb":       "{}",
		"metadata.json": "{}",
		"meta":          "{}",
	})
	require.NoError(t, os.Mkdir(filepath.Join(dir, "dir.meta"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	writeFiles(t, filepath.Join(dir, "sub"), map[string]string{"c.meta": "{}"})

	got, err := postmeta.List(dir)
	require.NoError(t, err)
	require.Equal(t, []string{"a.meta", "b.meta"}, got)
}

func TestListMissingDir(t *testing.T) {
	t.Parallel()
	_, err := postmeta.List(filepath.Join(t.TempDir(), "nope"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.meta": `{"slug":"a","notebook":"nb1","publish_date":"2024-01-01"}`,
		"b.meta": `{"slug":"b","notebook":"nb2","publish_date":"2024-06-01"}`,
	})
	got, err := postmeta.Load(dir)
	require.NoError(t, err)
	want := []postmeta.Entry{
		{Name: "a.meta", Record: postmeta.Record{Slug: "a", Notebook: "nb1", PublishDate: "2024-01-01"}},
		{Name: "b.meta", Record: postmeta.Record{Slug: "b", Notebook: "nb2", PublishDate: "2024-06-01"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadAbortsOnBadFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.meta": `{"slug":"a","notebook":"nb1","publish_date":"2024-01-01"}`,
		"b.meta": `{"slug":"b","notebook":"nb2","publish_date":"not-a-date"}`,
	})
	entries, err := postmeta.Load(dir)
	require.Nil(t, entries)
	var perr *postmeta.ParseError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "b.meta", perr.File)
}

func TestLoadEmptyDir(t *testing.T) {
	t.Parallel()
	got, err := postmeta.Load(t.TempDir())
	require.NoError(t, err)
	require.Empty(t, got)
}
