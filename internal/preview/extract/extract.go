// Package extract derives the three preview content layers (markup,
// stylesheet, script) from a project's file set.
//
// Extraction is a total, pure function: absent layers degrade to the empty
// string and malformed markup falls back to whole-file content. Nothing here
// can fail, so updates always proceed.
package extract

import (
	"regexp"
	"strings"

	"github.com/quickpen/backend/internal/domain/project"
)

// Layers are the derived, ephemeral preview inputs. They are recomputed on
// every extraction and only ever transmitted, never persisted.
type Layers struct {
	HTML string `json:"html"`
	CSS  string `json:"css"`
	JS   string `json:"js"`
}

// Recognized root-level entry point paths for the vanilla template.
var entryPaths = []string{"index.html", "/index.html"}

const (
	styleSuffix  = ".css"
	scriptSuffix = ".js"
	manifestName = "package.json"
)

var (
	bodyOpenRe  = regexp.MustCompile(`(?i)<body[^>]*>`)
	bodyCloseRe = regexp.MustCompile(`(?i)</body\s*>`)
	scriptTagRe = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
)

// Extract computes the content layers for a file set. First suffix match
// wins for the stylesheet and script layers, in original file order; a
// project with two stylesheets is order-dependent by design of the source
// format (pinned by tests, not silently resolved here).
func Extract(files []project.File) Layers {
	return Layers{
		HTML: markupLayer(files),
		CSS:  firstBySuffix(files, styleSuffix, ""),
		JS:   firstBySuffix(files, scriptSuffix, manifestName),
	}
}

// markupLayer isolates the body of the entry file with inline scripts
// removed. Scripts belong exclusively to the script layer; stripping them
// here is what prevents double execution.
func markupLayer(files []project.File) string {
	entry, ok := entryFile(files)
	if !ok {
		return ""
	}

	// Missing or unterminated body tags fall back to the whole content.
	candidate := entry.Content
	if loc := bodyOpenRe.FindStringIndex(candidate); loc != nil {
		inner := candidate[loc[1]:]
		if end := bodyCloseRe.FindStringIndex(inner); end != nil {
			candidate = inner[:end[0]]
		}
	}

	candidate = scriptTagRe.ReplaceAllString(candidate, "")
	return strings.TrimSpace(candidate)
}

func entryFile(files []project.File) (project.File, bool) {
	for _, f := range files {
		for _, p := range entryPaths {
			if f.Path == p {
				return f, true
			}
		}
	}
	return project.File{}, false
}

func firstBySuffix(files []project.File, suffix, exclude string) string {
	for _, f := range files {
		if !strings.HasSuffix(f.Path, suffix) {
			continue
		}
		if exclude != "" && strings.Contains(f.Path, exclude) {
			continue
		}
		return f.Content
	}
	return ""
}
