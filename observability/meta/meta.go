// Package meta describes the running program: everything you might want to know about it, all in one place.
// This is too heavyweight to add to every log line, so commands log it once at startup as the 'metadata dump'
// and stamp only the InstanceID on the rest.
package meta

import (
	"fmt"
	"os"
	"os/user"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
)

type App struct {
	Name       string
	InstanceID string // unique for each run
	StartTime  time.Time
	Build      struct{ Module, Revision string }
	OS         struct {
		Host, User string
		PID        int
	}
	Runtime struct{ GOARCH, GOOS, Version string }
}

// New collects metadata for the app called name. Fields that can't be determined are left blank.
func New(name string) App {
	app := App{Name: name, InstanceID: uuid.NewString(), StartTime: time.Now()}
	if info, ok := debug.ReadBuildInfo(); ok {
		app.Build.Module = info.Main.Path
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" {
				app.Build.Revision = s.Value
			}
		}
	}
	app.OS.Host, _ = os.Hostname()
	app.OS.PID = os.Getpid()
	if u, err := user.Current(); err == nil {
		app.OS.User = u.Username
	}
	app.Runtime.GOARCH, app.Runtime.GOOS, app.Runtime.Version = runtime.GOARCH, runtime.GOOS, runtime.Version()
	return app
}

// Uptime is the time since the app started, e.g. "  0h 01m 05s".
func (a App) Uptime(now time.Time) string {
	elapsed := now.Sub(a.StartTime).Round(time.Second)
	h := int(elapsed.Hours())
	m := int(elapsed.Minutes()) % 60
	s := int(elapsed.Seconds()) % 60
	return fmt.Sprintf("%3dh %02dm %02ds", h, m, s)
}
