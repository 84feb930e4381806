package zlog_test

import (
	"bytes"
	"strings"
	"testing"

	"gitlab.com/efronlicht/nbblog/observability/zlog"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	buf := new(bytes.Buffer)
	logger := zlog.New(buf, zapcore.InfoLevel)
	logger.Debug("hidden")
	logger.Info("wrote index", zap.String("path", "metadata.json"))
	if err := logger.Sync(); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, s := range []string{"INFO", "wrote index", `"path": "metadata.json"`} {
		if !strings.Contains(out, s) {
			t.Fatalf("expected logs to contain %q, got %q", s, out)
		}
	}
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line logged at info level: %q", out)
	}
}
