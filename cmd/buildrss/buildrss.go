// buildrss writes the blog's RSS feed, DST/feed.xml, from the index and metadata files in SRC.
// Run buildmeta on SRC first.
//
//	usage:
//	   buildrss SRC DST
//
// The channel is described by $BLOG_TITLE, $BLOG_LINK, and $BLOG_DESCRIPTION.
package main

import (
	"os"
	"path/filepath"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"gitlab.com/efronlicht/enve"
	"gitlab.com/efronlicht/nbblog/feed"
	"gitlab.com/efronlicht/nbblog/observability/zlog"
	"gitlab.com/efronlicht/nbblog/site"
	"go.uber.org/zap"
)

func main() {
	logger, _ := zlog.Setup("buildrss")
	defer logger.Sync()
	if len(os.Args) != 3 {
		logger.Fatal("expected two arguments\nusage:\tbuildrss SRC DST")
	}
	srcAbs, srcErr := filepath.Abs(os.Args[1])
	srcDir := must(logger, srcAbs, srcErr)
	dstAbs, dstErr := filepath.Abs(os.Args[2])
	dstDir := must(logger, dstAbs, dstErr)
	logger.Info("building feed", zap.String("src", srcDir), zap.String("dst", dstDir))

	ch := feed.Channel{
		Title:       enve.StringOr("BLOG_TITLE", "blog"),
		Link:        enve.StringOr("BLOG_LINK", "http://localhost:8080"),
		Description: enve.StringOr("BLOG_DESCRIPTION", "notebooks, rendered"),
		TTL:         enve.IntOr("BLOG_FEED_TTL", 1800),
	}
	opened, openErr := site.Open(srcDir)
	src := must(logger, opened, openErr)
	if err := src.BuildFeed(dstDir, ch, time.Now(), logger); err != nil {
		logger.Fatal("build feed", zap.Error(err))
	}
}

func must[T any](logger *zap.Logger, t T, err error) T {
	if err != nil {
		logger.Fatal("fatal err", zap.Error(err))
	}
	return t
}
