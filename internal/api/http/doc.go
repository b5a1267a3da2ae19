// Package http provides HTTP handlers and routing for the playground REST API.
//
// This package implements all HTTP endpoints using the Gin framework, including
// health checks, project management, preview session control, and package search.
//
// Endpoints:
//   - Health: / and /health
//   - Projects: /projects, /projects/:id, /projects/:id/files, /projects/:id/share, /projects/:id/render
//   - Previews: /previews, /previews/:id, /previews/:id/refresh
//   - Frame: /preview/:id/frame (bootstrap document) and /preview/:id/channel (WebSocket)
//   - Registry: /registry/search
//   - Stats: /stats
//
// Example Usage:
//
//	handlers := http.NewHandlers(projects, sessions, registry, metrics, cfg.Preview)
//	router.GET("/health", handlers.Health)
//	router.POST("/previews", handlers.MountPreview)
package http
