package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/quickpen/backend/internal/domain/project"
	"github.com/quickpen/backend/internal/infrastructure/config"
	"github.com/quickpen/backend/internal/infrastructure/monitoring"
	"github.com/quickpen/backend/internal/preview/channel"
	"github.com/quickpen/backend/internal/preview/extract"
	"github.com/quickpen/backend/internal/preview/sandbox"
	"github.com/quickpen/backend/internal/providers/registry"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	projects *project.Manager
	sessions *channel.Manager
	registry *registry.Provider
	metrics  *monitoring.Metrics
	preview  config.PreviewConfig
}

// NewHandlers creates a new handler set
func NewHandlers(
	projects *project.Manager,
	sessions *channel.Manager,
	reg *registry.Provider,
	metrics *monitoring.Metrics,
	preview config.PreviewConfig,
) *Handlers {
	return &Handlers{
		projects: projects,
		sessions: sessions,
		registry: reg,
		metrics:  metrics,
		preview:  preview,
	}
}

// Root handles health check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "Quickpen Playground Service (Go)",
		"version": "0.1.0",
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"projects": h.projects.Stats(),
		"previews": h.sessions.Stats(),
	})
}

type createProjectRequest struct {
	Name     string `json:"name" binding:"required"`
	Template string `json:"template"`
}

// CreateProject scaffolds a new project from a template
func (h *Handlers) CreateProject(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Template == "" {
		req.Template = project.TemplateVanilla
	}

	p := h.projects.Create(req.Name, req.Template)
	c.JSON(http.StatusCreated, gin.H{"project": p})
}

// ListProjects lists all projects
func (h *Handlers) ListProjects(c *gin.Context) {
	projects := h.projects.List()
	c.JSON(http.StatusOK, gin.H{
		"projects": projects,
		"stats":    h.projects.Stats(),
	})
}

// GetProject returns a single project with its files
func (h *Handlers) GetProject(c *gin.Context) {
	projectID := c.Param("id")

	p, ok := h.projects.Get(projectID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"project": p})
}

// DeleteProject removes a project and tears down its preview sessions
func (h *Handlers) DeleteProject(c *gin.Context) {
	projectID := c.Param("id")

	h.sessions.UnmountProject(projectID)
	success := h.projects.Delete(projectID)

	c.JSON(http.StatusOK, gin.H{
		"success":    success,
		"project_id": projectID,
	})
}

type replaceFilesRequest struct {
	Files []project.File `json:"files" binding:"required"`
}

// ReplaceFiles swaps a project's entire file set
func (h *Handlers) ReplaceFiles(c *gin.Context) {
	projectID := c.Param("id")

	var req replaceFilesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	for _, f := range req.Files {
		if f.Path == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file path is required"})
			return
		}
		if len(f.Content) > h.preview.MaxFileBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": "file exceeds size limit",
				"path":  f.Path,
			})
			return
		}
	}

	if err := h.projects.ReplaceFiles(projectID, req.Files); err != nil {
		if errors.Is(err, project.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"project_id": projectID,
	})
}

// ShareProject returns the project's rendered layers hardened for
// read-only embedding
func (h *Handlers) ShareProject(c *gin.Context) {
	projectID := c.Param("id")

	if _, ok := h.projects.Get(projectID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}

	layers := extract.Extract(h.projects.Files(projectID))
	shared := extract.SanitizeForShare(layers)

	c.JSON(http.StatusOK, gin.H{
		"html": shared.HTML,
		"css":  shared.CSS,
	})
}

// RenderProject executes the project headlessly and returns the rendered
// document, used for share snapshots and server-side thumbnails
func (h *Handlers) RenderProject(c *gin.Context) {
	projectID := c.Param("id")

	if _, ok := h.projects.Get(projectID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}

	cfg := sandbox.DefaultConfig()
	cfg.ExecTimeout = h.preview.ExecTimeout

	rt, err := sandbox.New(cfg, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if h.metrics != nil {
		rt.WithMetrics(h.metrics)
	}
	defer rt.Close()

	layers := extract.Extract(h.projects.Files(projectID))
	rt.Apply(channel.NewUpdate(layers))

	doc, err := rt.Document().Render()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	console := make([]gin.H, 0, len(rt.Console()))
	for _, entry := range rt.Console() {
		console = append(console, gin.H{
			"level":   entry.Level,
			"message": entry.Message,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"document": doc,
		"console":  console,
	})
}

type mountPreviewRequest struct {
	ProjectID string `json:"project_id" binding:"required"`
}

// MountPreview opens a preview session for a project
func (h *Handlers) MountPreview(c *gin.Context) {
	var req mountPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s, err := h.sessions.Mount(req.ProjectID)
	if err != nil {
		if errors.Is(err, project.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"preview": s})
}

// UnmountPreview tears down a preview session
func (h *Handlers) UnmountPreview(c *gin.Context) {
	previewID := c.Param("id")

	success := h.sessions.Unmount(previewID)

	c.JSON(http.StatusOK, gin.H{
		"success":    success,
		"preview_id": previewID,
	})
}

// Frame serves the constant bootstrap document the preview iframe loads
func (h *Handlers) Frame(c *gin.Context) {
	previewID := c.Param("id")

	s, ok := h.sessions.Get(previewID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "preview session not found"})
		return
	}

	doc := s.Channel.BootstrapDocument()
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(doc))
}

// RefreshPreview performs a manual full reload of a preview session
func (h *Handlers) RefreshPreview(c *gin.Context) {
	previewID := c.Param("id")

	s, ok := h.sessions.Get(previewID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "preview session not found"})
		return
	}

	s.Channel.Refresh()
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"preview_id": previewID,
	})
}

// SearchRegistry searches the npm registry for packages
func (h *Handlers) SearchRegistry(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter 'q' is required"})
		return
	}

	size := 10
	if raw := c.Query("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid size parameter"})
			return
		}
		size = n
	}

	packages, err := h.registry.Search(c.Request.Context(), query, size)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"packages": packages,
		"total":    len(packages),
	})
}

// Stats returns service metrics as JSON
func (h *Handlers) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"stats":  h.metrics.GetSnapshot(),
		"uptime": h.metrics.UptimeSeconds(),
	})
}
