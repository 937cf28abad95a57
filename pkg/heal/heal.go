// Package heal tracks the presence of each source directory through a
// per-source state machine (Healthy, Deleted, Recreated) and debounces
// the recreation of a source: a recreated directory must be observed
// idle for a quiet period before its contents are trusted and
// rescanned. Directory recreation is typically a multi-step operation
// (a bulk copy, say) and scanning too early yields a partial mirror.
package heal

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Gavin1937/aggregate-linker/pkg/logging"
)

// Phase is the presence state of one source directory.
type Phase int

const (
	// Healthy: the directory exists and per-event reconciliation is
	// active.
	Healthy Phase = iota

	// Deleted: the directory is gone; its links have been released and
	// events for it are ignored until it reappears.
	Deleted

	// Recreated: the directory reappeared and is being debounced; the
	// quiet timer resets on every event underneath it.
	Recreated
)

func (p Phase) String() string {
	switch p {
	case Healthy:
		return "healthy"
	case Deleted:
		return "deleted"
	case Recreated:
		return "recreated"
	default:
		return "unknown"
	}
}

// Debouncer holds the heal state for every source directory, keyed by
// base directory path. The quiesced callback fires on a timer
// goroutine once a recreated directory has stayed idle for the full
// quiet period; the engine routes it back into its serialized loop.
type Debouncer struct {
	mu       sync.Mutex
	timeout  time.Duration
	states   map[string]*state
	quiesced func(baseDir string)
	logger   zerolog.Logger
}

type state struct {
	phase Phase
	timer *time.Timer
}

// New creates a Debouncer with the given quiet period.
func New(timeout time.Duration, quiesced func(baseDir string)) *Debouncer {
	return &Debouncer{
		timeout:  timeout,
		states:   make(map[string]*state),
		quiesced: quiesced,
		logger:   logging.GetLogger("heal"),
	}
}

// Phase returns the current phase for baseDir. Untracked directories
// are Healthy.
func (d *Debouncer) Phase(baseDir string) Phase {
	d.mu.Lock()
	defer d.mu.Unlock()
	if st, ok := d.states[baseDir]; ok {
		return st.phase
	}
	return Healthy
}

// MarkDeleted records that baseDir is gone. Any pending quiet timer is
// cancelled. Also used at startup for sources whose directory does not
// exist yet: they stay Deleted until the parent reports a create.
func (d *Debouncer) MarkDeleted(baseDir string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	st := d.stateLocked(baseDir)
	if st.phase == Deleted {
		return
	}
	d.stopTimerLocked(st)
	st.phase = Deleted
	d.logger.Info().Str("source", baseDir).Msg("source directory gone")
}

// MarkRecreated records that baseDir reappeared and starts the quiet
// timer. A directory not currently Deleted is left alone.
func (d *Debouncer) MarkRecreated(baseDir string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	st := d.stateLocked(baseDir)
	if st.phase != Deleted {
		return
	}
	st.phase = Recreated
	d.resetTimerLocked(baseDir, st)
	d.logger.Info().
		Str("source", baseDir).
		Dur("quiet_period", d.timeout).
		Msg("source directory recreated, debouncing")
}

// Activity resets the quiet timer for a Recreated directory. Events
// for Healthy or Deleted directories are not the debouncer's business.
func (d *Debouncer) Activity(baseDir string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	st, ok := d.states[baseDir]
	if !ok || st.phase != Recreated {
		return
	}
	d.resetTimerLocked(baseDir, st)
}

// Stop cancels all pending timers. No quiesced callback fires after
// Stop returns (timers that already fired may still be running their
// callback body, which checks the phase and bails).
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, st := range d.states {
		d.stopTimerLocked(st)
		if st.phase == Recreated {
			st.phase = Deleted
		}
	}
}

func (d *Debouncer) stateLocked(baseDir string) *state {
	st, ok := d.states[baseDir]
	if !ok {
		st = &state{phase: Healthy}
		d.states[baseDir] = st
	}
	return st
}

func (d *Debouncer) stopTimerLocked(st *state) {
	if st.timer != nil {
		st.timer.Stop()
		st.timer = nil
	}
}

func (d *Debouncer) resetTimerLocked(baseDir string, st *state) {
	if st.timer != nil {
		st.timer.Stop()
	}
	st.timer = time.AfterFunc(d.timeout, func() {
		d.fire(baseDir)
	})
}

// fire runs on the timer goroutine when the quiet period elapses with
// no reset. A stale fire (the phase moved on since the timer was
// armed) does nothing.
func (d *Debouncer) fire(baseDir string) {
	d.mu.Lock()
	st, ok := d.states[baseDir]
	if !ok || st.phase != Recreated {
		d.mu.Unlock()
		return
	}
	st.phase = Healthy
	st.timer = nil
	d.mu.Unlock()

	d.logger.Info().Str("source", baseDir).Msg("source directory quiesced")

	// Callback outside the lock.
	if d.quiesced != nil {
		d.quiesced(baseDir)
	}
}
