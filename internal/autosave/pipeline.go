// Package autosave persists entry state without blocking editing: it
// detects real changes against the last saved snapshot, debounces bursts,
// guarantees at most one save in flight, and classifies failures into
// conflict, retryable, and fatal outcomes.
package autosave

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/daybookhq/daybook/internal/config"
	"github.com/daybookhq/daybook/internal/model"
)

var autosaveLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	autosaveLogger = l
}

// Fields is everything change detection covers. A change is real only if
// one of these differs from the last successfully saved value, so edits
// that are reverted before the debounce settles never trigger a save.
type Fields struct {
	Text           string
	Title          string
	Date           string
	Timezone       string
	ReferenceImage model.ImageID
}

// Snapshot is the immutable capture one save attempt transmits: the
// fields as they were when the attempt began, and the version it is
// conditioned on. Edits made while the request is on the wire are
// compared against this, not against what was sent.
type Snapshot struct {
	Fields
	Version int64
}

type Status int

const (
	StatusSaved Status = iota
	StatusUnsaved
	StatusSaving
	StatusConflict
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusSaved:
		return "saved"
	case StatusUnsaved:
		return "unsaved"
	case StatusSaving:
		return "saving"
	case StatusConflict:
		return "conflict"
	case StatusError:
		return "error"
	}
	return "unknown"
}

// StatusUpdate is the single indicator surfaced to the page.
type StatusUpdate struct {
	Status   Status
	Message  string
	Conflict string // server-rendered resolution fragment, conflict only
	Version  int64
	SavedAt  time.Time
}

// Pipeline schedules and runs saves for one entry. All methods are safe
// for concurrent use; timer callbacks and editor events serialize on the
// internal mutex.
type Pipeline struct {
	mu sync.Mutex

	client Client
	clock  Clock

	live      Fields
	lastSaved Fields
	version   int64

	debounce Timer
	maxWait  Timer
	inFlight bool

	status   Status
	message  string
	conflict string
	savedAt  time.Time

	debounceDelay time.Duration
	maxWaitDelay  time.Duration
	retryBase     time.Duration
	retryLimit    int

	onStatus func(StatusUpdate)
}

func NewPipeline(client Client, clock Clock, cfg config.AutosaveConfig, initial Fields, version int64) *Pipeline {
	return &Pipeline{
		client:        client,
		clock:         clock,
		live:          initial,
		lastSaved:     initial,
		version:       version,
		status:        StatusSaved,
		debounceDelay: cfg.Debounce(),
		maxWaitDelay:  cfg.MaxWait(),
		retryBase:     cfg.RetryBase(),
		retryLimit:    cfg.RetryLimit,
	}
}

// SetStatusFunc registers the status observer. The callback runs with the
// pipeline's lock held and must not call back into the pipeline.
func (p *Pipeline) SetStatusFunc(fn func(StatusUpdate)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onStatus = fn
}

// ContentChanged reports the current live field values after any edit.
// If they differ from the last saved state it arms the save timers: a
// fresh debounce, and the max-wait timer if no save is scheduled yet.
func (p *Pipeline) ContentChanged(live Fields) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.live = live
	if !p.dirtyLocked() {
		return
	}

	p.armLocked()
	if !p.inFlight {
		p.setStatusLocked(StatusUnsaved, "")
	}
}

// Flush runs a save attempt immediately, bypassing the timers. Used on
// page blur and unload. A clean or already-saving pipeline no-ops.
func (p *Pipeline) Flush() {
	p.attempt()
}

// Status returns the current indicator state.
func (p *Pipeline) Status() StatusUpdate {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.statusLocked()
}

// Version returns the last version number acknowledged by the server.
func (p *Pipeline) Version() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.version
}

// LastSaved returns the fields of the last successful save.
func (p *Pipeline) LastSaved() Fields {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastSaved
}

func (p *Pipeline) dirtyLocked() bool {
	return p.live != p.lastSaved
}

// armLocked arms the debounce timer, replacing a pending one, and the
// max-wait timer when none is scheduled. The max-wait timer is what
// guarantees a save within its window under continuous typing.
func (p *Pipeline) armLocked() {
	if p.maxWait == nil {
		p.maxWait = p.clock.AfterFunc(p.maxWaitDelay, p.onMaxWait)
	}
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.debounce = p.clock.AfterFunc(p.debounceDelay, p.onDebounce)
}

func (p *Pipeline) onDebounce() {
	p.mu.Lock()
	p.debounce = nil
	p.mu.Unlock()
	p.attempt()
}

func (p *Pipeline) onMaxWait() {
	p.mu.Lock()
	p.maxWait = nil // consumed by firing
	p.mu.Unlock()
	p.attempt()
}

// attempt runs one save cycle. It no-ops when a save is already in
// flight or nothing differs from the last saved state.
func (p *Pipeline) attempt() {
	p.mu.Lock()
	if p.inFlight {
		p.mu.Unlock()
		return
	}
	if !p.dirtyLocked() {
		if p.status == StatusUnsaved {
			p.setStatusLocked(StatusSaved, "")
		}
		p.mu.Unlock()
		return
	}

	snap := Snapshot{Fields: p.live, Version: p.version}
	p.inFlight = true
	p.setStatusLocked(StatusSaving, "")
	p.mu.Unlock()

	autosaveLogger.Debug().Int64("version", snap.Version).Msg("Save attempt started")
	ack, err := SaveWithRetry(context.Background(), p.client, p.clock, requestFrom(snap), p.retryBase, p.retryLimit)
	p.finish(snap, ack, err)
}

func (p *Pipeline) finish(snap Snapshot, ack *Ack, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.inFlight = false
	p.stopTimersLocked()

	if err == nil {
		p.version = ack.Version
		p.lastSaved = snap.Fields
		p.savedAt = ack.Modified
		autosaveLogger.Info().Int64("version", ack.Version).Msg("Entry saved")

		if p.dirtyLocked() {
			// The entry moved on during the round trip; schedule the
			// follow-up save.
			p.armLocked()
			p.setStatusLocked(StatusUnsaved, "")
		} else {
			p.setStatusLocked(StatusSaved, "")
		}
		return
	}

	var cerr *ConflictError
	if errors.As(err, &cerr) {
		// The version was stale. Local edits stay untouched; resolution
		// is up to the user, so nothing is rescheduled.
		p.conflict = cerr.Payload
		autosaveLogger.Warn().Int64("version", snap.Version).Msg("Save conflict")
		p.setStatusLocked(StatusConflict, cerr.Error())
		return
	}

	// Retries exhausted or fatal rejection. Nothing reschedules until the
	// next real edit.
	autosaveLogger.Error().Err(err).Msg("Save failed")
	p.setStatusLocked(StatusError, err.Error())
}

// stopTimersLocked cancels whatever is pending. A completed save cycle
// owns the schedule either way: on success a dirty entry re-arms, and
// after a terminal failure only the next edit may reschedule.
func (p *Pipeline) stopTimersLocked() {
	if p.debounce != nil {
		p.debounce.Stop()
		p.debounce = nil
	}
	if p.maxWait != nil {
		p.maxWait.Stop()
		p.maxWait = nil
	}
}

func (p *Pipeline) setStatusLocked(s Status, msg string) {
	p.status = s
	p.message = msg
	if s != StatusConflict {
		p.conflict = ""
	}
	if p.onStatus != nil {
		p.onStatus(p.statusLocked())
	}
}

func (p *Pipeline) statusLocked() StatusUpdate {
	return StatusUpdate{
		Status:   p.status,
		Message:  p.message,
		Conflict: p.conflict,
		Version:  p.version,
		SavedAt:  p.savedAt,
	}
}

func requestFrom(snap Snapshot) Request {
	return Request{
		Text:        snap.Text,
		Version:     snap.Version,
		NewTitle:    snap.Title,
		NewDate:     snap.Date,
		NewTimezone: snap.Timezone,
	}
}
