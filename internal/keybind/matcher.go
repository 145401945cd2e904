package keybind

import (
	"sync"
	"time"

	"github.com/go-logr/logr"
)

// ChordTimeout is how long the matcher waits for the next stroke of an
// ambiguous or incomplete sequence before deciding.
const ChordTimeout = 800 * time.Millisecond

// State is the matcher's gesture state.
type State int

const (
	// Idle means no strokes are pending.
	Idle State = iota
	// AwaitingChord means an exact match exists but a strictly longer
	// registered sequence shares its prefix; the timer decides.
	AwaitingChord
	// AwaitingPrefix means no exact match yet, but at least one registered
	// sequence extends the current prefix.
	AwaitingPrefix
)

// TimerFactory schedules fn after d and returns a cancel function. The
// default uses time.AfterFunc; tests inject a manually fired fake so they
// control time.
type TimerFactory func(d time.Duration, fn func()) (cancel func())

func defaultTimerFactory(d time.Duration, fn func()) func() {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

// Result reports the outcome of one stroke.
//
// Exactly one of Executed/Pending/Unmatched is set, except for the quiet
// no-op of an empty stroke. Unmatched is a normal "let the page handle this
// key" outcome, not an error.
type Result struct {
	CommandID string
	Executed  bool
	Pending   bool
	Unmatched bool
}

// Matcher accumulates strokes into a sequence buffer and resolves them
// against a Registry. One matcher instance owns the whole process's gesture
// state: only one gesture may be in flight at a time, and a new stroke
// always cancels a pending timer before being processed, so two timers are
// never alive simultaneously.
type Matcher struct {
	registry *Registry
	log      logr.Logger
	newTimer TimerFactory
	execute  func(commandID string)

	mu          sync.Mutex
	state       State
	buffer      []string
	pendingID   string
	cancelTimer func()
	generation  uint64
}

// MatcherOption configures a Matcher.
type MatcherOption func(*Matcher)

// WithTimerFactory replaces the timer implementation.
func WithTimerFactory(tf TimerFactory) MatcherOption {
	return func(m *Matcher) { m.newTimer = tf }
}

// NewMatcher creates a matcher over the registry. execute is invoked for
// commands resolved by a timer firing; synchronous resolutions are returned
// in the Result instead so the caller dispatches them on its own goroutine.
func NewMatcher(registry *Registry, log logr.Logger, execute func(commandID string), opts ...MatcherOption) *Matcher {
	m := &Matcher{
		registry: registry,
		log:      log,
		newTimer: defaultTimerFactory,
		execute:  execute,
		state:    Idle,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current gesture state.
func (m *Matcher) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Reset abandons any in-flight gesture and returns the matcher to Idle.
func (m *Matcher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset()
}

// reset clears the buffer and cancels the timer. Caller holds m.mu.
func (m *Matcher) reset() {
	if m.cancelTimer != nil {
		m.cancelTimer()
		m.cancelTimer = nil
	}
	m.generation++
	m.state = Idle
	m.buffer = nil
	m.pendingID = ""
}

// HandleStroke feeds one stroke through the state machine and reports the
// outcome. Fast sequential typing always extends the buffer: the pending
// timer is cancelled before the stroke is evaluated.
func (m *Matcher) HandleStroke(s Stroke) Result {
	norm := s.Normalize()
	if norm == "" {
		return Result{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancelTimer != nil {
		m.cancelTimer()
		m.cancelTimer = nil
	}
	m.generation++

	m.buffer = append(m.buffer, norm)
	if res, done := m.evaluate(); done {
		return res
	}

	// Full miss for the accumulated sequence: abandon it and retry with the
	// latest stroke alone so a new gesture can start without a timeout.
	if len(m.buffer) > 1 {
		m.buffer = []string{norm}
		if res, done := m.evaluate(); done {
			return res
		}
	}

	m.reset()
	return Result{Unmatched: true}
}

// evaluate resolves the current buffer. done=false means a full miss that
// the caller may retry with a shorter buffer. Caller holds m.mu.
func (m *Matcher) evaluate() (Result, bool) {
	seq := JoinSequence(m.buffer)
	exactID, exact := m.registry.Lookup(seq)
	extending := m.registry.HasExtension(seq)

	switch {
	case exact && !extending:
		m.reset()
		return Result{CommandID: exactID, Executed: true}, true

	case exact && extending:
		m.state = AwaitingChord
		m.pendingID = exactID
		m.armTimer()
		return Result{Pending: true}, true

	case extending:
		m.state = AwaitingPrefix
		m.pendingID = ""
		m.armTimer()
		return Result{Pending: true}, true
	}
	return Result{}, false
}

// armTimer starts the disambiguation timer for the current generation.
// Caller holds m.mu.
func (m *Matcher) armTimer() {
	gen := m.generation
	m.cancelTimer = m.newTimer(ChordTimeout, func() {
		m.onTimeout(gen)
	})
}

// onTimeout fires when no further stroke arrived in time. In AwaitingChord
// the buffered exact match executes exactly once; in AwaitingPrefix the
// gesture is dropped silently. A stale generation means a newer stroke
// already cancelled this timer and is ignored.
func (m *Matcher) onTimeout(gen uint64) {
	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return
	}
	state := m.state
	id := m.pendingID
	m.cancelTimer = nil
	m.reset()
	m.mu.Unlock()

	switch state {
	case AwaitingChord:
		if m.execute != nil {
			m.execute(id)
		}
	case AwaitingPrefix:
		m.log.V(1).Info("keybinding prefix timed out with no match")
	case Idle:
	}
}
