package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/fulmenhq/gofulmen/crucible"
)

var (
	buildMu   sync.RWMutex
	buildInfo = AppInfo{Version: "dev", Commit: "unknown", BuildDate: "unknown"}
)

// reportedModules are the dependencies /version lists from the build info.
var reportedModules = map[string]string{
	"github.com/go-chi/chi/v5":           "chi",
	"github.com/redis/go-redis/v9":       "go_redis",
	"github.com/golang-jwt/jwt/v5":       "jwt",
	"github.com/tursodatabase/go-libsql": "libsql",
}

// SetVersionInfo records the build stamped into main.
func SetVersionInfo(version, commit, buildDate string) {
	buildMu.Lock()
	defer buildMu.Unlock()
	buildInfo.Version = version
	buildInfo.Commit = commit
	buildInfo.BuildDate = buildDate
}

// SetAppName sets the name /version reports. Empty falls back to argv[0].
func SetAppName(name string) {
	buildMu.Lock()
	defer buildMu.Unlock()
	buildInfo.Name = name
}

// VersionResponse is the body of GET /version.
type VersionResponse struct {
	App          AppInfo           `json:"app"`
	Dependencies map[string]string `json:"dependencies"`
	Runtime      RuntimeInfo       `json:"runtime"`
}

// AppInfo describes the running build.
type AppInfo struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Commit    string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version,omitempty"`
}

// RuntimeInfo describes the host process.
type RuntimeInfo struct {
	Platform      string `json:"platform"`
	NumCPU        int    `json:"num_cpu"`
	NumGoroutines int    `json:"num_goroutines"`
}

// VersionHandler serves GET /version.
func VersionHandler(w http.ResponseWriter, _ *http.Request) {
	buildMu.RLock()
	app := buildInfo
	buildMu.RUnlock()

	if app.Name == "" {
		app.Name = "unknown"
		if len(os.Args) > 0 && os.Args[0] != "" {
			app.Name = filepath.Base(os.Args[0])
		}
	}
	app.GoVersion = runtime.Version()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(VersionResponse{
		App:          app,
		Dependencies: DependencyVersions(),
		Runtime: RuntimeInfo{
			Platform:      runtime.GOOS + "/" + runtime.GOARCH,
			NumCPU:        runtime.NumCPU(),
			NumGoroutines: runtime.NumGoroutine(),
		},
	})
}

// DependencyVersions reports gofulmen/crucible plus the modules in
// reportedModules that are present in the binary's build info. Test
// binaries often carry no module versions, so those keys may be missing.
func DependencyVersions() map[string]string {
	v := crucible.GetVersion()
	deps := map[string]string{
		"gofulmen": v.Gofulmen,
		"crucible": v.Crucible,
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return deps
	}
	for _, mod := range info.Deps {
		if mod.Replace != nil {
			mod = mod.Replace
		}
		if key, ok := reportedModules[mod.Path]; ok && mod.Version != "" {
			deps[key] = strings.TrimPrefix(mod.Version, "v")
		}
	}
	return deps
}
