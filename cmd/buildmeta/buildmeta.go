// buildmeta aggregates the *.meta files in a directory into metadata.json, the index the blog front end reads:
// slugs mapped to notebooks, and posts listed newest first.
//
//	usage:
//	   buildmeta [-o OUT] [-w] [DIR]
//
// DIR defaults to the current directory and OUT to DIR/metadata.json.
// With -w, buildmeta keeps running and rebuilds the index whenever a .meta file changes.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/pflag"
	"gitlab.com/efronlicht/enve"
	"gitlab.com/efronlicht/nbblog/aggregate"
	"gitlab.com/efronlicht/nbblog/observability/zlog"
	"go.uber.org/zap"
)

func main() {
	logger, _ := zlog.Setup("buildmeta")
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr, logger)
	cancel()
	_ = logger.Sync()
	os.Exit(code)
}

// run is main without the process-wide setup. It returns the exit code: 0 on success, 1 on failure, 2 on bad usage.
func run(ctx context.Context, args []string, stderr io.Writer, logger *zap.Logger) int {
	flags := pflag.NewFlagSet("buildmeta", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() {
		fmt.Fprintln(stderr, "usage: buildmeta [-o OUT] [-w] [DIR]")
		flags.PrintDefaults()
	}
	out := flags.StringP("out", "o", enve.StringOr("BUILDMETA_OUT", ""), "write the index to `OUT` (default DIR/"+aggregate.Filename+")")
	watch := flags.BoolP("watch", "w", enve.BoolOr("BUILDMETA_WATCH", false), "keep running, rebuilding whenever a .meta file changes")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	if flags.NArg() > 1 {
		flags.Usage()
		return 2
	}
	dir := "."
	if flags.NArg() == 1 {
		dir = flags.Arg(0)
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		logger.Error("resolve directory", zap.Error(err))
		return 1
	}
	if *out == "" {
		*out = filepath.Join(dir, aggregate.Filename)
	}
	logger.Debug("starting", zap.String("dir", dir), zap.String("out", *out), zap.Bool("watch", *watch))

	if *watch {
		if err := aggregate.Watch(ctx, dir, *out, logger); err != nil {
			logger.Error("watch failed", zap.Error(err))
			return 1
		}
		return 0
	}
	if _, err := aggregate.Run(dir, *out, logger); err != nil {
		logger.Error("build index failed", zap.Error(err))
		return 1
	}
	return 0
}
