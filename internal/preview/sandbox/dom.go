package sandbox

import (
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/quickpen/backend/internal/preview/shell"
)

// documentShell mirrors the bootstrap document structure so the headless
// document has the same placeholder elements a browser sandbox would.
const documentShell = `<!DOCTYPE html><html><head><style id="` + shell.StyleID + `"></style></head><body><div id="` + shell.RootID + `"></div></body></html>`

// Document is a goquery-backed document proxy for headless previews. The
// markup layer lands inside the root placeholder, the stylesheet layer
// inside the style placeholder; scripts see it through the document global.
type Document struct {
	doc *goquery.Document
	mu  sync.RWMutex
}

// NewDocument builds an empty document matching the bootstrap shell.
func NewDocument() (*Document, error) {
	node, err := html.Parse(strings.NewReader(documentShell))
	if err != nil {
		return nil, err
	}
	return &Document{doc: goquery.NewDocumentFromNode(node)}, nil
}

// SetMarkup replaces the root placeholder's content. Idempotent: replacing
// identical markup is side-effect-free.
func (d *Document) SetMarkup(markup string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.doc.Find("#" + shell.RootID).SetHtml(markup)
}

// SetStylesheet replaces the style placeholder's content.
func (d *Document) SetStylesheet(css string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.doc.Find("#" + shell.StyleID).SetText(css)
}

// Query finds elements by CSS selector.
func (d *Document) Query(selector string) *goquery.Selection {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.doc.Find(selector)
}

// Render serializes the current document, useful for headless snapshots.
func (d *Document) Render() (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return goquery.OuterHtml(d.doc.Selection)
}

// Markup returns the current content of the root placeholder.
func (d *Document) Markup() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	markup, _ := d.doc.Find("#" + shell.RootID).Html()
	return markup
}

// Stylesheet returns the current content of the style placeholder.
func (d *Document) Stylesheet() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.doc.Find("#" + shell.StyleID).Text()
}
