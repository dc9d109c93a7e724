package panel

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHandlerServesRoot(t *testing.T) {
	w := get(t, Handler(Options{}), "/")

	if w.Code != http.StatusOK {
		t.Errorf("GET /: got status %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "<!DOCTYPE html>") {
		t.Error("GET /: response doesn't contain HTML doctype")
	}
	if !strings.Contains(w.Body.String(), `id="relayGrid"`) {
		t.Error("GET /: dashboard grid missing")
	}
	if got := w.Header().Get("Cache-Control"); got != "no-cache, must-revalidate" {
		t.Errorf("Cache-Control = %q", got)
	}
}

func TestHandlerServesStaticAssets(t *testing.T) {
	h := Handler(Options{})

	for _, path := range []string{"/app.js", "/style.css"} {
		w := get(t, h, path)
		if w.Code != http.StatusOK {
			t.Errorf("GET %s: got status %d, want 200", path, w.Code)
		}
		if w.Body.Len() == 0 {
			t.Errorf("GET %s: empty response body", path)
		}
	}
}

func TestHandlerConfigScript(t *testing.T) {
	w := get(t, Handler(Options{WSPath: "/live", Relays: 4, Title: "Garden"}), "/config.js")

	if w.Code != http.StatusOK {
		t.Fatalf("GET /config.js: got status %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/javascript") {
		t.Errorf("Content-Type = %q", ct)
	}
	want := `window.RELAYHUB = {"wsPath":"/live","relays":4,"title":"Garden"};`
	if strings.TrimSpace(w.Body.String()) != want {
		t.Errorf("config.js = %q, want %q", w.Body.String(), want)
	}
}

func TestHandlerConfigScriptDefaultWSPath(t *testing.T) {
	w := get(t, Handler(Options{Relays: 8}), "/config.js")
	if !strings.Contains(w.Body.String(), `"wsPath":"/ws"`) {
		t.Errorf("config.js = %q, want default /ws", w.Body.String())
	}
}

func TestHandlerMissingFileIs404(t *testing.T) {
	h := Handler(Options{})

	for _, path := range []string{"/nonexistent", "/some/deep/route.js"} {
		if w := get(t, h, path); w.Code != http.StatusNotFound {
			t.Errorf("GET %s: got status %d, want 404", path, w.Code)
		}
	}
}

func TestHandlerRejectsWrites(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	w := httptest.NewRecorder()
	Handler(Options{}).ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /: got status %d, want 405", w.Code)
	}
}

func TestHandlerFilesystemMode(t *testing.T) {
	dir := t.TempDir()
	indexContent := `<!DOCTYPE html><html><body>filesystem dashboard</body></html>`
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte(indexContent), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log('dev')"), 0o644); err != nil {
		t.Fatal(err)
	}

	h := Handler(Options{Dir: dir})

	w := get(t, h, "/")
	if !strings.Contains(w.Body.String(), "filesystem dashboard") {
		t.Errorf("filesystem GET /: expected filesystem content, got %q", w.Body.String())
	}
	w = get(t, h, "/app.js")
	if !strings.Contains(w.Body.String(), "dev") {
		t.Errorf("filesystem GET /app.js: got %q", w.Body.String())
	}
	if w = get(t, h, "/style.css"); w.Code != http.StatusNotFound {
		t.Errorf("filesystem GET /style.css: got status %d, want 404", w.Code)
	}
	// config.js is generated in both modes.
	if w = get(t, h, "/config.js"); w.Code != http.StatusOK {
		t.Errorf("filesystem GET /config.js: got status %d, want 200", w.Code)
	}
}

func TestHandlerInvalidDirFallsBackToEmbed(t *testing.T) {
	w := get(t, Handler(Options{Dir: "/nonexistent/dir/that/does/not/exist"}), "/")

	if w.Code != http.StatusOK {
		t.Errorf("invalid dir GET /: got status %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "<!DOCTYPE html>") {
		t.Error("invalid dir: didn't fall back to embedded index.html")
	}
}
