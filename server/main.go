// server previews the built blog locally: it serves the output of buildroll and buildrss from $BLOG_DST,
// and a freshly-aggregated metadata.json from the notebooks in $BLOG_SRC.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	_ "github.com/joho/godotenv/autoload"
	"gitlab.com/efronlicht/enve"
	"gitlab.com/efronlicht/nbblog/aggregate"
	"gitlab.com/efronlicht/nbblog/observability/meta"
	"gitlab.com/efronlicht/nbblog/observability/zlog"
	"gitlab.com/efronlicht/nbblog/postmeta"
	"gitlab.com/efronlicht/nbblog/server/middleware"
	"go.uber.org/zap"
)

var start = time.Now()

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	logger, app := zlog.Setup("preview")
	if err := Run(ctx, configFromEnv(), app, logger); err != nil {
		cancel()
		logger.Fatal("server failed", zap.Error(err))
	}
	cancel()
	logger.Info("successful shutdown")
	_ = logger.Sync()
}

type config struct {
	Port                                   int
	Src, Dst                               string
	ReadTimeout, WriteTimeout, IdleTimeout time.Duration
}

func configFromEnv() config {
	return config{
		Port:         enve.IntOr("PORT", 8080),
		Src:          enve.StringOr("BLOG_SRC", "."),
		Dst:          enve.StringOr("BLOG_DST", "build"),
		ReadTimeout:  enve.DurationOr("READ_TIMEOUT", 2*time.Second),
		WriteTimeout: enve.DurationOr("WRITE_TIMEOUT", 5*time.Second),
		IdleTimeout:  enve.DurationOr("IDLE_TIMEOUT", time.Minute),
	}
}

func (c *config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.Src, validation.Required),
		validation.Field(&c.Dst, validation.Required),
		validation.Field(&c.ReadTimeout, validation.Min(time.Millisecond)),
		validation.Field(&c.WriteTimeout, validation.Min(time.Millisecond)),
		validation.Field(&c.IdleTimeout, validation.Min(time.Millisecond)),
	)
}

// Run the server until ctx is done.
func Run(ctx context.Context, cfg config, app meta.App, logger *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	server := http.Server{
		Addr:         fmt.Sprintf(":%04d", cfg.Port),
		Handler:      Handler(cfg, app, logger),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
		// don't accept new connections if already shutting down
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}
	errc := make(chan error, 1)
	go func() { errc <- server.ListenAndServe() }()
	logger.Sugar().Infof("took %s to start", time.Since(start))
	logger.Info("serving http", zap.String("addr", server.Addr), zap.String("src", cfg.Src), zap.String("dst", cfg.Dst))

	select {
	case err := <-errc: // couldn't bind, most likely
		return err
	case <-ctx.Done(): // wait for (ctrl+c)
	}
	logger.Debug(fmt.Sprintf("%v: shutting down server in %s", ctx.Err(), 2*time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Handler routes requests. It's small enough that we do the routing ourselves.
func Handler(cfg config, app meta.App, logger *zap.Logger) http.Handler {
	files := http.FileServer(http.Dir(cfg.Dst))
	metaJSON, err := json.Marshal(app)
	if err != nil {
		panic(err) // App is plain data.
	}
	var router http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := strings.TrimSuffix(r.URL.Path, "/")
		switch {
		case r.Method != http.MethodGet && r.Method != http.MethodHead:
			w.WriteHeader(http.StatusMethodNotAllowed)
		case p == "/debug/uptime":
			_, _ = fmt.Fprint(w, app.Uptime(time.Now()))
		case p == "/debug/meta":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(metaJSON)
		case p == "/"+aggregate.Filename:
			serveIndex(w, cfg.Src, logger)
		case strings.HasPrefix(p, "/blog/") && filepath.Ext(p) == "":
			// post links are extensionless: /blog/<slug> is the file blog/<slug>.html.
			r.URL.Path = p + ".html"
			w.Header().Set("Cache-Control", "no-cache")
			files.ServeHTTP(w, r)
		default: // including "/", which the file server answers with index.html
			// fonts are immutable and large, so we can cache them for a long time.
			// everything else might change on the next build, so we don't cache it.
			if strings.HasSuffix(p, ".woff2") {
				w.Header().Set("Cache-Control", "public, max-age=604800, immutable")
			} else {
				w.Header().Set("Cache-Control", "no-cache")
			}
			files.ServeHTTP(w, r)
		}
	})
	// apply middleware. middleware executes Last-In, First-Out.
	router = middleware.Gzip(router)
	router = middleware.Trace(router, logger)
	return router
}

// serveIndex aggregates the metadata files in src on every request, so the preview never shows a stale index.
// Nothing is written to disk.
func serveIndex(w http.ResponseWriter, src string, logger *zap.Logger) {
	entries, err := postmeta.Load(src)
	if err != nil {
		logger.Error("load metadata", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	idx, err := aggregate.Build(entries)
	if err != nil {
		logger.Error("build index", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	if err := json.NewEncoder(w).Encode(idx); err != nil {
		logger.Error("write index", zap.Error(err))
	}
}
