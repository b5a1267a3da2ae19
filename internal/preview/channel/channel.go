// Package channel implements the host side of the live preview sync
// protocol: a per-session state machine that boots a sandbox once, waits for
// its readiness signal, and then streams debounced, coalesced content
// updates derived from the live file set.
package channel

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/quickpen/backend/internal/domain/project"
	"github.com/quickpen/backend/internal/infrastructure/logging"
	"github.com/quickpen/backend/internal/infrastructure/monitoring"
	"github.com/quickpen/backend/internal/preview/extract"
	"github.com/quickpen/backend/internal/preview/shell"
)

// DefaultDebounce is tuned for "feels live" without flooding the channel on
// every keystroke.
const DefaultDebounce = 150 * time.Millisecond

// FileSource supplies the live file set. It is re-read at every extraction;
// the channel never holds a snapshot, which is what makes burst edits
// coalesce into the final state.
type FileSource func() []project.File

// Poster delivers an update message to the sandbox side.
type Poster func(Update) error

// Channel is the host-side sync state machine for one sandbox session.
// States: unbooted → booted/not-ready → ready. The host stays stateless
// about sandbox execution: the only mutable pieces here are the boot latch,
// the readiness flag, and the pending debounce timer.
type Channel struct {
	mu sync.Mutex

	source   FileSource
	post     Poster
	debounce time.Duration

	ready        bool
	bootstrapped bool
	closed       bool
	boots        int

	timer *time.Timer
	gen   int // invalidates timers that lost the stop race

	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// Option configures a Channel.
type Option func(*Channel)

// WithDebounce overrides the debounce interval.
func WithDebounce(d time.Duration) Option {
	return func(c *Channel) {
		if d > 0 {
			c.debounce = d
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *logging.Logger) Option {
	return func(c *Channel) { c.logger = logger }
}

// WithMetrics attaches metrics.
func WithMetrics(metrics *monitoring.Metrics) Option {
	return func(c *Channel) { c.metrics = metrics }
}

// New creates a channel over a file source and an outbound poster.
func New(source FileSource, post Poster, opts ...Option) *Channel {
	c := &Channel{
		source:   source,
		post:     post,
		debounce: DefaultDebounce,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BootstrapDocument returns the sandbox's bootstrap document. The boot latch
// guards the boot cycle: the first handout after mount or refresh starts a
// new cycle (readiness drops, boot counter advances); repeated fetches within
// a cycle hand out the same constant document without restarting anything.
func (c *Channel) BootstrapDocument() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed && !c.bootstrapped {
		c.bootstrapped = true
		c.ready = false
		c.boots++
		if c.metrics != nil {
			c.metrics.IncPreviewBoots()
		}
		c.logger.Debug("preview boot", zap.Int("boot", c.boots))
	}
	return shell.Document()
}

// HandleReady processes the sandbox's readiness signal. Only the first
// signal per boot cycle acts; it flips the channel to ready and immediately
// posts one unconditional update so the first paint is never debounced.
func (c *Channel) HandleReady() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.ready {
		return
	}
	c.ready = true
	c.postLocked()
}

// NotifyChange reacts to a file-set-changed signal. Before readiness it is a
// no-op: the eventual ready handler reads the live file set anyway. Once
// ready, it restarts the debounce timer; edits landing inside an open window
// are coalesced into the final message, never lost.
func (c *Channel) NotifyChange() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || !c.ready {
		return
	}

	if c.timer != nil {
		c.timer.Stop()
		if c.metrics != nil {
			c.metrics.IncEditsCoalesced()
		}
	}
	c.gen++
	gen := c.gen
	c.timer = time.AfterFunc(c.debounce, func() { c.fire(gen) })
}

// fire runs when the debounce window elapses. A timer that was replaced but
// lost the Stop race carries a stale generation and does nothing.
func (c *Channel) fire(gen int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		return
	}
	c.timer = nil
	if c.closed || !c.ready {
		return
	}
	c.postLocked()
}

// postLocked extracts the live layers and posts one update. Callers hold mu.
func (c *Channel) postLocked() {
	start := time.Now()
	layers := extract.Extract(c.source())
	if c.metrics != nil {
		c.metrics.RecordExtract(time.Since(start))
	}

	if err := c.post(NewUpdate(layers)); err != nil {
		c.logger.Warn("preview update post failed", zap.Error(err))
		return
	}
	if c.metrics != nil {
		c.metrics.IncUpdatesPosted()
	}
}

// Refresh performs a manual full reload: readiness and the boot latch reset,
// any pending debounce is cancelled, and the next bootstrap fetch starts a
// fresh boot cycle. This is the only path that reloads the document;
// ordinary edits never do.
func (c *Channel) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.stopTimerLocked()
	c.ready = false
	c.bootstrapped = false
}

// Detach reports that the sandbox side went away (its socket closed). The
// channel drops readiness so nothing is posted into a torn-down sandbox; a
// reconnecting sandbox handshakes again with a new ready signal.
func (c *Channel) Detach() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.stopTimerLocked()
	c.ready = false
}

// Close tears the channel down: the pending timer is cancelled and every
// later event becomes a silent no-op.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopTimerLocked()
	c.closed = true
}

func (c *Channel) stopTimerLocked() {
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// Ready reports whether a ready signal has been received this boot cycle.
func (c *Channel) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// Boots returns the number of boot cycles started so far.
func (c *Channel) Boots() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.boots
}
