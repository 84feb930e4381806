// Package site turns a notebook directory (notebooks, their .meta files, and the metadata.json index) into the static blog:
// index.html listing every post, blog/<slug>.html for each notebook, and feed.xml.
package site

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/natefinch/atomic"
	"gitlab.com/efronlicht/nbblog/aggregate"
	"gitlab.com/efronlicht/nbblog/feed"
	"gitlab.com/efronlicht/nbblog/notebook"
	"gitlab.com/efronlicht/nbblog/postmeta"
	"gitlab.com/efronlicht/nbblog/roll"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Source is a notebook directory whose index has already been built.
type Source struct {
	Dir   string
	Index aggregate.Index
	Posts []postmeta.Entry // in Index.Posts order
}

// Open reads dir's metadata.json and every metadata file it lists.
func Open(dir string) (*Source, error) {
	idx, err := aggregate.Read(filepath.Join(dir, aggregate.Filename))
	if err != nil {
		return nil, err
	}
	posts, err := postmeta.LoadNames(dir, idx.Posts)
	if err != nil {
		return nil, err
	}
	return &Source{Dir: dir, Index: idx, Posts: posts}, nil
}

// BuildRoll writes dst/index.html and dst/blog/<slug>.html for every slug in the index.
// Notebooks are rendered concurrently; the first failure cancels the rest.
func (s *Source) BuildRoll(ctx context.Context, dst, title string, logger *zap.Logger) error {
	if err := os.MkdirAll(filepath.Join(dst, "blog"), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	var buf bytes.Buffer
	if err := roll.Render(&buf, title, s.Posts); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dst, "index.html"), buf.Bytes()); err != nil {
		return err
	}
	logger.Info("wrote blog roll", zap.Int("posts", len(s.Posts)))

	// a slug shared by several posts renders once, with the notebook (and post) the index settled on.
	bySlug := make(map[string]postmeta.Entry, len(s.Index.Slugs))
	for _, p := range s.Posts {
		want := s.Index.Slugs[p.Slug]
		if cur, ok := bySlug[p.Slug]; !ok || (cur.Notebook != want && p.Notebook == want) {
			bySlug[p.Slug] = p
		}
	}
	for slug := range s.Index.Slugs {
		if _, ok := bySlug[slug]; !ok {
			return fmt.Errorf("index lists slug %q but none of its posts use it", slug)
		}
		if slug == "." || slug == ".." || slug != filepath.Base(slug) {
			return fmt.Errorf("slug %q can't be used as a filename", slug)
		}
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for slug, nb := range s.Index.Slugs {
		slug, nb := slug, nb
		entry := bySlug[slug]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			page, err := s.renderPost(entry, nb)
			if err != nil {
				return fmt.Errorf("post %s: %w", slug, err)
			}
			dstPath := filepath.Join(dst, "blog", slug+".html")
			if err := writeFile(dstPath, page); err != nil {
				return err
			}
			logger.Debug("rendered notebook", zap.String("notebook", nb), zap.String("dst", dstPath), zap.Duration("elapsed", time.Since(start)))
			return nil
		})
	}
	return g.Wait()
}

func (s *Source) renderPost(entry postmeta.Entry, nbPath string) ([]byte, error) {
	f, err := os.Open(filepath.Join(s.Dir, nbPath))
	if err != nil {
		return nil, fmt.Errorf("open notebook: %w", err)
	}
	defer f.Close()
	nb, err := notebook.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", nbPath, err)
	}
	var content, page bytes.Buffer
	if err := nb.Render(&content); err != nil {
		return nil, fmt.Errorf("%s: %w", nbPath, err)
	}
	if err := roll.RenderPost(&page, entry, content.Bytes()); err != nil {
		return nil, err
	}
	return page.Bytes(), nil
}

// BuildFeed writes dst/feed.xml.
func (s *Source) BuildFeed(dst string, ch feed.Channel, now time.Time, logger *zap.Logger) error {
	rss, err := feed.Build(ch, s.Posts, now)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := rss.Encode(&buf); err != nil {
		return err
	}
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dst, "feed.xml")
	if err := writeFile(path, buf.Bytes()); err != nil {
		return err
	}
	logger.Info("wrote feed", zap.String("path", path), zap.Int("items", len(rss.Channel.Items)))
	return nil
}

// writeFile atomically replaces path with b, world-readable.
func writeFile(path string, b []byte) error {
	if err := atomic.WriteFile(path, bytes.NewReader(b)); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Chmod(path, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	return nil
}
