package sandbox

import (
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dop251/goja"

	"github.com/quickpen/backend/internal/infrastructure/monitoring"
	"github.com/quickpen/backend/internal/preview/channel"
)

// Runtime is the sandbox side of the sync protocol, headless: a goja VM plus
// a goquery document standing in for a browser iframe. It remembers the last
// transmitted script across updates; that memory resets only on reboot.
type Runtime struct {
	vm     *goja.Runtime
	doc    *Document
	config Config

	lastScript string
	console    []LogEntry

	onReady func()
	metrics *monitoring.Metrics
}

// New creates a sandbox runtime and immediately signals readiness, the same
// way the bootstrap script announces itself as soon as it parses.
func New(config Config, onReady func()) (*Runtime, error) {
	r := &Runtime{
		config:  config,
		onReady: onReady,
		console: []LogEntry{},
	}
	if err := r.boot(); err != nil {
		return nil, err
	}
	return r, nil
}

// WithMetrics adds metrics tracking to the runtime
func (r *Runtime) WithMetrics(metrics *monitoring.Metrics) *Runtime {
	r.metrics = metrics
	return r
}

// boot builds a fresh VM and document and emits the ready signal.
func (r *Runtime) boot() error {
	doc, err := NewDocument()
	if err != nil {
		return fmt.Errorf("build document: %w", err)
	}

	r.vm = goja.New()
	r.vm.SetMaxCallStackSize(1024)
	r.doc = doc
	r.lastScript = ""
	r.console = []LogEntry{}

	if err := r.setupGlobals(); err != nil {
		return err
	}

	if r.onReady != nil {
		r.onReady()
	}
	return nil
}

// Apply handles one update message. Markup and stylesheet replace
// unconditionally; the script layer executes only when it differs from the
// remembered one, wrapped in a fresh function scope so repeated top-level
// const/let declarations cannot collide. Faults in user code land in the
// sandbox console and never reach the caller.
func (r *Runtime) Apply(u channel.Update) {
	r.doc.SetStylesheet(u.CSS)
	r.doc.SetMarkup(u.HTML)

	if u.JS == r.lastScript {
		if u.JS != "" && r.metrics != nil {
			r.metrics.IncScriptSkips()
		}
		return
	}
	r.lastScript = u.JS
	if u.JS == "" {
		return
	}

	wrapped := ";(function(){\n" + u.JS + "\n})();"
	r.execute(wrapped)
}

// execute runs wrapped script text with a bounded execution time. A browser
// tolerates a hot loop by wedging one iframe; a server cannot, so the VM is
// interrupted after the configured timeout.
func (r *Runtime) execute(script string) {
	timer := time.AfterFunc(r.config.ExecTimeout, func() {
		r.vm.Interrupt("execution timeout exceeded")
	})
	defer timer.Stop()

	_, err := r.vm.RunString(script)
	r.vm.ClearInterrupt()
	if err != nil {
		r.appendConsole("error", err.Error())
		if r.metrics != nil {
			r.metrics.IncScriptFaults()
		}
		return
	}
	if r.metrics != nil {
		r.metrics.IncScriptExecs()
	}
}

// Reboot performs a full reload: fresh VM, fresh document, forgotten script
// memory, and a new ready signal. Equivalent to reloading the bootstrap
// document in a browser sandbox.
func (r *Runtime) Reboot() error {
	return r.boot()
}

// Console returns a copy of the captured console output.
func (r *Runtime) Console() []LogEntry {
	return append([]LogEntry{}, r.console...)
}

// Document exposes the headless document for rendering and assertions.
func (r *Runtime) Document() *Document {
	return r.doc
}

// LastScript returns the remembered last transmitted script.
func (r *Runtime) LastScript() string {
	return r.lastScript
}

// Close releases resources
func (r *Runtime) Close() error {
	r.vm = nil
	r.doc = nil
	r.console = nil
	return nil
}

// setupGlobals configures the script environment: console capture, a
// document proxy, and nothing that could reach the host process.
func (r *Runtime) setupGlobals() error {
	// Remove anything Node-flavored
	r.vm.Set("require", goja.Undefined())
	r.vm.Set("process", goja.Undefined())
	r.vm.Set("module", goja.Undefined())
	r.vm.Set("exports", goja.Undefined())

	if r.config.EnableConsole {
		console := r.vm.NewObject()
		console.Set("log", r.makeConsoleFunc("log"))
		console.Set("warn", r.makeConsoleFunc("warn"))
		console.Set("error", r.makeConsoleFunc("error"))
		console.Set("info", r.makeConsoleFunc("info"))
		r.vm.Set("console", console)
	}

	// Timers are no-ops: updates are applied synchronously.
	r.vm.Set("setTimeout", func(call goja.FunctionCall) goja.Value {
		return goja.Undefined()
	})
	r.vm.Set("setInterval", func(call goja.FunctionCall) goja.Value {
		return goja.Undefined()
	})

	if r.config.EnableDOM {
		return r.injectDocument()
	}
	return nil
}

// makeConsoleFunc creates a console function
func (r *Runtime) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		var msg string
		for i, arg := range call.Arguments {
			if i > 0 {
				msg += " "
			}
			msg += arg.String()
		}
		r.appendConsole(level, msg)
		return goja.Undefined()
	}
}

func (r *Runtime) appendConsole(level, msg string) {
	r.console = append(r.console, LogEntry{
		Level:   level,
		Message: msg,
		Time:    time.Now(),
	})
}

// injectDocument exposes the document proxy to scripts.
func (r *Runtime) injectDocument() error {
	document := r.vm.NewObject()

	document.Set("getElementById", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			return goja.Null()
		}
		sel := r.doc.Query("#" + call.Arguments[0].String())
		if sel.Length() == 0 {
			return goja.Null()
		}
		return r.elementProxy(sel.First())
	})
	document.Set("querySelector", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			return goja.Null()
		}
		sel := r.doc.Query(call.Arguments[0].String())
		if sel.Length() == 0 {
			return goja.Null()
		}
		return r.elementProxy(sel.First())
	})
	document.Set("querySelectorAll", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			return r.vm.ToValue([]goja.Value{})
		}
		sel := r.doc.Query(call.Arguments[0].String())
		proxies := make([]goja.Value, 0, sel.Length())
		sel.Each(func(_ int, s *goquery.Selection) {
			proxies = append(proxies, r.elementProxy(s))
		})
		return r.vm.ToValue(proxies)
	})

	return r.vm.Set("document", document)
}

// elementProxy wraps a selection as a script-visible element with live
// textContent/innerHTML accessors.
func (r *Runtime) elementProxy(sel *goquery.Selection) goja.Value {
	obj := r.vm.NewObject()

	obj.Set("tagName", goquery.NodeName(sel))
	if idAttr, ok := sel.Attr("id"); ok {
		obj.Set("id", idAttr)
	}
	obj.Set("getAttribute", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			return goja.Null()
		}
		val, ok := sel.Attr(call.Arguments[0].String())
		if !ok {
			return goja.Null()
		}
		return r.vm.ToValue(val)
	})
	obj.Set("setAttribute", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) >= 2 {
			sel.SetAttr(call.Arguments[0].String(), call.Arguments[1].String())
		}
		return goja.Undefined()
	})

	obj.DefineAccessorProperty("textContent",
		r.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			return r.vm.ToValue(sel.Text())
		}),
		r.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			if len(call.Arguments) > 0 {
				sel.SetText(call.Arguments[0].String())
			}
			return goja.Undefined()
		}),
		goja.FLAG_FALSE, goja.FLAG_TRUE)

	obj.DefineAccessorProperty("innerHTML",
		r.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			markup, _ := sel.Html()
			return r.vm.ToValue(markup)
		}),
		r.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			if len(call.Arguments) > 0 {
				sel.SetHtml(call.Arguments[0].String())
			}
			return goja.Undefined()
		}),
		goja.FLAG_FALSE, goja.FLAG_TRUE)

	return obj
}
