// Package main provides the entry point for snapfold-server.
//
// The server is the Snapfold service process that provides:
//
//   - HTTP API for folder signup, login, and file transfer
//   - Websocket stream for live folder messages
//   - Badger-backed persistence with at-rest payload encryption
//   - Periodic sweep of expired folders
//
// Usage:
//
//	snapfold-server [flags]
//	snapfold-server --config /path/to/config.yaml
//
// The server loads configuration, initializes infrastructure components,
// and serves until interrupted.
package main
