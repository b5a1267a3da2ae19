// Package project holds playground projects: ordered virtual file sets
// plus change notification for the preview engine.
package project

import (
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// File is one entry in a project's virtual filesystem. Path is the unique
// key; Content is raw source text; Language is advisory, derived from the
// extension.
type File struct {
	Path     string `json:"path"`
	Content  string `json:"content"`
	Language string `json:"language"`
}

// Project is a named, ordered collection of files.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Template  string    `json:"template"`
	Files     []File    `json:"files"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// extension to language, for the editor's syntax highlighting
var languages = map[string]string{
	".html": "html",
	".htm":  "html",
	".css":  "css",
	".js":   "javascript",
	".mjs":  "javascript",
	".json": "json",
	".md":   "markdown",
	".svg":  "xml",
	".txt":  "plaintext",
}

// DetectLanguage derives the advisory language tag for a file. Known
// extensions win; anything else falls back to content sniffing.
func DetectLanguage(filePath, content string) string {
	ext := strings.ToLower(path.Ext(filePath))
	if lang, ok := languages[ext]; ok {
		return lang
	}

	mtype := mimetype.Detect([]byte(content))
	switch {
	case mtype.Is("text/html"):
		return "html"
	case mtype.Is("text/css"):
		return "css"
	case mtype.Is("text/javascript"), mtype.Is("application/javascript"):
		return "javascript"
	case mtype.Is("application/json"):
		return "json"
	default:
		return "plaintext"
	}
}
