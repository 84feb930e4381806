// buildroll renders the blog: DST/index.html lists every post in SRC's index, newest first,
// and DST/blog/<slug>.html holds each post's rendered notebook. Run buildmeta on SRC first.
//
//	usage:
//	   buildroll SRC DST
//
// The page title comes from $BLOG_TITLE.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"gitlab.com/efronlicht/enve"
	"gitlab.com/efronlicht/nbblog/observability/zlog"
	"gitlab.com/efronlicht/nbblog/site"
	"go.uber.org/zap"
)

func main() {
	logger, _ := zlog.Setup("buildroll")
	defer logger.Sync()
	if len(os.Args) != 3 {
		logger.Fatal("expected two arguments\nusage:\tbuildroll SRC DST")
	}
	srcAbs, srcErr := filepath.Abs(os.Args[1])
	srcDir := must(logger, srcAbs, srcErr)
	dstAbs, dstErr := filepath.Abs(os.Args[2])
	dstDir := must(logger, dstAbs, dstErr)
	logger.Info("rendering blog", zap.String("src", srcDir), zap.String("dst", dstDir))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	start := time.Now()
	opened, openErr := site.Open(srcDir)
	src := must(logger, opened, openErr)
	if err := src.BuildRoll(ctx, dstDir, enve.StringOr("BLOG_TITLE", "blog"), logger); err != nil {
		logger.Fatal("render blog", zap.Error(err))
	}
	logger.Info("done", zap.Int("posts", len(src.Posts)), zap.Duration("elapsed", time.Since(start)))
}

func must[T any](logger *zap.Logger, t T, err error) T {
	if err != nil {
		logger.Fatal("fatal err", zap.Error(err))
	}
	return t
}
