// Package main is the entry point for the playground backend server.
//
// This application hosts browser code playgrounds: it stores projects,
// extracts their renderable layers, and keeps live preview frames in
// sync with edits over WebSocket channels.
//
// The server provides:
//   - REST API for projects and preview sessions
//   - The constant bootstrap document served to preview iframes
//   - WebSocket sync channels with debounced update delivery
//   - npm registry search for the dependency picker
//   - Rate limiting, CORS, and Prometheus metrics
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	./server -port 8000
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
