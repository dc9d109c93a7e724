// Package panel serves the browser dashboard for Relay Hub.
//
// The dashboard is a single static page (HTML, CSS and one script) embedded
// into the binary with go:embed. It talks to the hub only over the WebSocket
// endpoint: it renders one card per relay, toggles relays, switches modes and
// manages schedules.
//
// Runtime settings (WebSocket path, relay count, title) are served as a
// generated /config.js so the static files never need rebuilding.
package panel
