package sandbox

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickpen/backend/internal/preview/channel"
)

func testConfig() Config {
	return Config{
		ExecTimeout:   time.Second,
		EnableConsole: true,
		EnableDOM:     true,
	}
}

func update(html, css, js string) channel.Update {
	return channel.Update{Type: channel.TypeUpdate, HTML: html, CSS: css, JS: js}
}

func TestReadySignalOnBoot(t *testing.T) {
	readies := 0
	r, err := New(testConfig(), func() { readies++ })
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, 1, readies, "readiness is announced immediately on boot")

	require.NoError(t, r.Reboot())
	assert.Equal(t, 2, readies, "each reboot announces readiness again")
}

func TestScriptDedup(t *testing.T) {
	r, err := New(testConfig(), nil)
	require.NoError(t, err)
	defer r.Close()

	r.Apply(update("", "", `console.log("ran")`))
	r.Apply(update("<p>markup changed</p>", "", `console.log("ran")`))

	ran := 0
	for _, entry := range r.Console() {
		if entry.Message == "ran" {
			ran++
		}
	}
	assert.Equal(t, 1, ran, "identical script must execute at most once")
}

func TestScriptReexecutionOnChange(t *testing.T) {
	r, err := New(testConfig(), nil)
	require.NoError(t, err)
	defer r.Close()

	// Top-level const in both scripts: the fresh function scope per
	// execution is what prevents a redeclaration fault.
	r.Apply(update("", "", `const x = 1; console.log("x=" + x)`))
	r.Apply(update("", "", `const x = 2; console.log("x=" + x)`))

	var messages []string
	for _, entry := range r.Console() {
		messages = append(messages, entry.Message)
	}
	assert.Contains(t, messages, "x=1")
	assert.Contains(t, messages, "x=2")

	for _, entry := range r.Console() {
		assert.NotEqual(t, "error", entry.Level, "no redeclaration fault expected: %s", entry.Message)
	}
}

func TestScriptFaultStaysInConsole(t *testing.T) {
	r, err := New(testConfig(), nil)
	require.NoError(t, err)
	defer r.Close()

	r.Apply(update("", "", `throw new Error("boom")`))

	entries := r.Console()
	require.NotEmpty(t, entries)
	assert.Equal(t, "error", entries[0].Level)
	assert.Contains(t, entries[0].Message, "boom")

	// The channel keeps working after a fault.
	r.Apply(update("", "", `console.log("still alive")`))
	found := false
	for _, entry := range r.Console() {
		if entry.Message == "still alive" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestSyntaxFaultStaysInConsole(t *testing.T) {
	r, err := New(testConfig(), nil)
	require.NoError(t, err)
	defer r.Close()

	r.Apply(update("", "", `this is not javascript`))

	entries := r.Console()
	require.NotEmpty(t, entries)
	assert.Equal(t, "error", entries[0].Level)
}

func TestLayersApplyToDocument(t *testing.T) {
	r, err := New(testConfig(), nil)
	require.NoError(t, err)
	defer r.Close()

	r.Apply(update("<h1>Hi</h1>", "h1 { color: red; }", ""))

	assert.Equal(t, "<h1>Hi</h1>", r.Document().Markup())
	assert.Equal(t, "h1 { color: red; }", r.Document().Stylesheet())

	// Reapplying identical layers is side-effect-free.
	r.Apply(update("<h1>Hi</h1>", "h1 { color: red; }", ""))
	assert.Equal(t, "<h1>Hi</h1>", r.Document().Markup())
}

func TestScriptSeesDocument(t *testing.T) {
	r, err := New(testConfig(), nil)
	require.NoError(t, err)
	defer r.Close()

	r.Apply(update(`<p id="target">before</p>`, "", `
		const el = document.getElementById("target");
		console.log("text: " + el.textContent);
		el.textContent = "after";
	`))

	var messages []string
	for _, entry := range r.Console() {
		messages = append(messages, entry.Message)
	}
	assert.Contains(t, messages, "text: before")
	assert.Contains(t, r.Document().Markup(), "after")
}

func TestRebootForgetsScriptMemory(t *testing.T) {
	r, err := New(testConfig(), nil)
	require.NoError(t, err)
	defer r.Close()

	r.Apply(update("", "", `console.log("ran")`))
	assert.Equal(t, `console.log("ran")`, r.LastScript())

	require.NoError(t, r.Reboot())
	assert.Empty(t, r.LastScript())
	assert.Empty(t, r.Console())

	// The same script runs again after a reboot.
	r.Apply(update("", "", `console.log("ran")`))
	entries := r.Console()
	require.Len(t, entries, 1)
	assert.Equal(t, "ran", entries[0].Message)
}

func TestHotLoopIsInterrupted(t *testing.T) {
	cfg := testConfig()
	cfg.ExecTimeout = 50 * time.Millisecond
	r, err := New(cfg, nil)
	require.NoError(t, err)
	defer r.Close()

	r.Apply(update("", "", `while (true) {}`))

	entries := r.Console()
	require.NotEmpty(t, entries)
	assert.Equal(t, "error", entries[0].Level)

	// Still usable afterwards.
	r.Apply(update("", "", `console.log("recovered")`))
	found := false
	for _, entry := range r.Console() {
		if entry.Message == "recovered" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestNodeGlobalsBlocked(t *testing.T) {
	r, err := New(testConfig(), nil)
	require.NoError(t, err)
	defer r.Close()

	r.Apply(update("", "", `console.log(typeof require + " " + typeof process)`))

	entries := r.Console()
	require.NotEmpty(t, entries)
	assert.Equal(t, "undefined undefined", entries[0].Message)
}
