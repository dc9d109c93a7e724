package panel

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
)

//go:embed web/*
var content embed.FS

// Options configures the dashboard.
type Options struct {
	// Dir serves assets from disk when it names an existing directory.
	Dir string
	// WSPath is the WebSocket endpoint the dashboard connects to.
	WSPath string
	// Relays is the number of relay cards to render.
	Relays int
	// Title replaces the page heading when non-empty.
	Title string
}

// runtimeConfig is exposed to the browser as window.RELAYHUB.
type runtimeConfig struct {
	WSPath string `json:"wsPath"`
	Relays int    `json:"relays"`
	Title  string `json:"title,omitempty"`
}

// Handler returns an http.Handler that serves the relay dashboard.
//
// Assets come from opts.Dir when it exists (edit-and-reload during
// development), otherwise from the embedded copy. /config.js is generated
// from opts so the page needs no build step. Missing files are 404.
// Panics if the embedded web assets cannot be loaded (build error).
func Handler(opts Options) http.Handler {
	var fileSystem http.FileSystem

	if opts.Dir != "" {
		if info, err := os.Stat(opts.Dir); err == nil && info.IsDir() {
			fileSystem = http.Dir(opts.Dir)
		}
	}

	if fileSystem == nil {
		webFS, err := fs.Sub(content, "web")
		if err != nil {
			panic(fmt.Sprintf("panel: failed to load embedded web assets: %v", err))
		}
		fileSystem = http.FS(webFS)
	}

	if opts.WSPath == "" {
		opts.WSPath = "/ws"
	}
	cfgJSON, err := json.Marshal(runtimeConfig{WSPath: opts.WSPath, Relays: opts.Relays, Title: opts.Title})
	if err != nil {
		panic(fmt.Sprintf("panel: encoding runtime config: %v", err))
	}
	configScript := []byte("window.RELAYHUB = " + string(cfgJSON) + ";\n")

	fileServer := http.FileServer(fileSystem)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		// Assets are small and change with the binary; always revalidate.
		w.Header().Set("Cache-Control", "no-cache, must-revalidate")

		upath := path.Clean("/" + r.URL.Path)
		switch upath {
		case "/":
			fileServer.ServeHTTP(w, r)
			return
		case "/config.js":
			w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
			//nolint:errcheck // Best-effort write; connection may be closed
			w.Write(configScript)
			return
		}

		f, err := fileSystem.Open(upath[1:])
		if err != nil {
			http.NotFound(w, r)
			return
		}
		f.Close()

		fileServer.ServeHTTP(w, r)
	})
}
