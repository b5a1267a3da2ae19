package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quickpen/backend/internal/domain/project"
)

func vanillaFiles() []project.File {
	return []project.File{
		{Path: "index.html", Content: "<html><body><h1>Hi</h1><script>doStuff()</script></body></html>"},
		{Path: "styles.css", Content: "h1 { color: red; }"},
		{Path: "script.js", Content: "console.log('hi')"},
		{Path: "package.json", Content: `{"name":"demo"}`},
	}
}

func TestExtractBodyRoundTrip(t *testing.T) {
	layers := Extract(vanillaFiles())

	// Inline scripts never leak into the markup layer; the script layer
	// comes from the script file, not the entry document.
	assert.Equal(t, "<h1>Hi</h1>", layers.HTML)
	assert.Equal(t, "h1 { color: red; }", layers.CSS)
	assert.Equal(t, "console.log('hi')", layers.JS)
}

func TestExtractIsIdempotent(t *testing.T) {
	files := vanillaFiles()
	assert.Equal(t, Extract(files), Extract(files))
}

func TestExtractNoBodyTags(t *testing.T) {
	layers := Extract([]project.File{
		{Path: "index.html", Content: "<h1>Bare</h1><script>x()</script><p>content</p>"},
	})

	assert.Equal(t, "<h1>Bare</h1><p>content</p>", layers.HTML)
}

func TestExtractUnterminatedBody(t *testing.T) {
	layers := Extract([]project.File{
		{Path: "index.html", Content: "<html><body><h1>Hi</h1>"},
	})

	// Malformed markup falls back to whole-file content, never an error.
	assert.Equal(t, "<html><body><h1>Hi</h1>", layers.HTML)
}

func TestExtractCaseInsensitiveTags(t *testing.T) {
	layers := Extract([]project.File{
		{Path: "index.html", Content: `<HTML><BODY class="x"><p>hey</p><SCRIPT>run()</SCRIPT></BODY></HTML>`},
	})

	assert.Equal(t, "<p>hey</p>", layers.HTML)
}

func TestExtractMissingLayersDegradeToEmpty(t *testing.T) {
	layers := Extract(nil)
	assert.Equal(t, Layers{}, layers)

	layers = Extract([]project.File{{Path: "readme.md", Content: "# hi"}})
	assert.Equal(t, Layers{}, layers)
}

func TestExtractEntryPathVariants(t *testing.T) {
	for _, path := range []string{"index.html", "/index.html"} {
		layers := Extract([]project.File{{Path: path, Content: "<body>ok</body>"}})
		assert.Equal(t, "ok", layers.HTML, "entry path %q", path)
	}

	// Nested index.html is not a recognized entry point.
	layers := Extract([]project.File{{Path: "src/index.html", Content: "<body>no</body>"}})
	assert.Empty(t, layers.HTML)
}

func TestExtractManifestNeverBecomesScript(t *testing.T) {
	layers := Extract([]project.File{
		{Path: "package.json", Content: `{"main":"x.js"}`},
		{Path: "app.js", Content: "app()"},
	})

	assert.Equal(t, "app()", layers.JS)
}

// Two stylesheets is order-dependent: first match wins. This pins the
// behavior rather than endorsing it.
func TestExtractFirstSuffixMatchWins(t *testing.T) {
	layers := Extract([]project.File{
		{Path: "a.css", Content: "a {}"},
		{Path: "b.css", Content: "b {}"},
		{Path: "a.js", Content: "a()"},
		{Path: "b.js", Content: "b()"},
	})

	assert.Equal(t, "a {}", layers.CSS)
	assert.Equal(t, "a()", layers.JS)
}

func TestExtractMultipleScriptBlocksRemoved(t *testing.T) {
	layers := Extract([]project.File{
		{Path: "index.html", Content: "<body><script>a()</script><p>mid</p><script type=\"module\">b()</script></body>"},
	})

	assert.Equal(t, "<p>mid</p>", layers.HTML)
}

func TestSanitizeForShare(t *testing.T) {
	layers := Layers{
		HTML: `<p>ok</p><script>evil()</script><a href="javascript:x()">x</a>`,
		CSS:  "p {}",
		JS:   "evil()",
	}

	shared := SanitizeForShare(layers)

	assert.NotContains(t, shared.HTML, "<script>")
	assert.NotContains(t, shared.HTML, "javascript:")
	assert.Contains(t, shared.HTML, "<p>ok</p>")
	assert.Equal(t, "p {}", shared.CSS)
	assert.Empty(t, shared.JS)
}
