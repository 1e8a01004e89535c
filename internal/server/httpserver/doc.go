// Package httpserver provides the HTTP and websocket surface of Snapfold.
//
// It exposes folder signup/login, file upload and download, and the
// websocket message stream:
//
//   - server.go: http.Server lifecycle
//   - router.go: route table and middleware wiring
//   - middleware.go: request ID, logging, recovery, login throttling
//   - auth.go: signed identity cookie handling
//   - folder.go: signup, login, logout, auth probe, health
//   - files.go: multipart upload and streamed download
//   - ws.go: websocket connections and the live message loop
package httpserver
