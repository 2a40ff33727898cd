// Package resetflow drives the double confirmation an admin goes through
// before analytics data is deleted.
package resetflow

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// ConfirmationText must be typed, in any case, to unlock the reset.
const ConfirmationText = "CONFIRMAR"

var (
	// ErrNotConfirmed is returned when Confirm runs without both gates satisfied.
	ErrNotConfirmed = errors.New("reset not confirmed")
	// ErrInvalidTransition is returned for an action the current state does not allow.
	ErrInvalidTransition = errors.New("invalid reset transition")
)

type State int

const (
	Idle State = iota
	FirstConfirmOpen
	SecondConfirmOpen
	Resetting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case FirstConfirmOpen:
		return "first_confirm_open"
	case SecondConfirmOpen:
		return "second_confirm_open"
	case Resetting:
		return "resetting"
	default:
		return "unknown"
	}
}

// Counts are the rows the dialog warns about, taken from totals already loaded.
type Counts struct {
	PageViews      int64 `json:"pageViews"`
	WhatsAppClicks int64 `json:"whatsappClicks"`
}

// Options selects which tables to empty.
type Options struct {
	PageViews      bool `json:"pageViews"`
	WhatsAppClicks bool `json:"whatsappClicks"`
}

// Result is what the reset function reports back.
type Result struct {
	Deleted Counts `json:"deleted"`
	Message string `json:"message"`
}

// Resetter performs the deletion.
type Resetter interface {
	Reset(ctx context.Context, opts Options) (Result, error)
}

// Flow is the confirmation state machine for one admin screen.
type Flow struct {
	resetter   Resetter
	options    Options
	invalidate []func()

	mu           sync.Mutex
	state        State
	counts       Counts
	acknowledged bool
	confirmation string
}

// New creates a flow that resets both tables and runs invalidate after each successful reset.
func New(resetter Resetter, invalidate ...func()) *Flow {
	return &Flow{
		resetter:   resetter,
		options:    Options{PageViews: true, WhatsAppClicks: true},
		invalidate: invalidate,
	}
}

// WithOptions limits which tables the flow resets.
func (f *Flow) WithOptions(opts Options) *Flow {
	f.options = opts
	return f
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Counts returns the totals shown in the first dialog.
func (f *Flow) Counts() Counts {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts
}

// Open shows the first dialog with the rows that would be deleted.
func (f *Flow) Open(counts Counts) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != Idle {
		return ErrInvalidTransition
	}
	f.counts = counts
	f.state = FirstConfirmOpen
	return nil
}

// Proceed moves from the first dialog to the second.
func (f *Flow) Proceed() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != FirstConfirmOpen {
		return ErrInvalidTransition
	}
	f.state = SecondConfirmOpen
	return nil
}

// SetAcknowledged sets the irreversibility checkbox.
func (f *Flow) SetAcknowledged(checked bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != SecondConfirmOpen {
		return ErrInvalidTransition
	}
	f.acknowledged = checked
	return nil
}

// SetConfirmation stores the typed text, uppercased as the input field shows it.
func (f *Flow) SetConfirmation(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != SecondConfirmOpen {
		return ErrInvalidTransition
	}
	f.confirmation = strings.ToUpper(text)
	return nil
}

// CanConfirm reports whether both gates of the second dialog hold.
func (f *Flow) CanConfirm() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.canConfirm()
}

func (f *Flow) canConfirm() bool {
	return f.state == SecondConfirmOpen && f.acknowledged && f.confirmation == ConfirmationText
}

// Confirm runs the reset when both gates hold. The flow always ends in Idle
// with the dialog fields cleared. Invalidation hooks run only on success.
func (f *Flow) Confirm(ctx context.Context) (Result, error) {
	f.mu.Lock()
	if f.state != SecondConfirmOpen {
		f.mu.Unlock()
		return Result{}, ErrInvalidTransition
	}
	if !f.canConfirm() {
		f.clear()
		f.mu.Unlock()
		return Result{}, ErrNotConfirmed
	}
	f.state = Resetting
	opts := f.options
	f.mu.Unlock()

	result, err := f.resetter.Reset(ctx, opts)

	f.mu.Lock()
	f.clear()
	f.mu.Unlock()

	if err != nil {
		return Result{}, err
	}
	for _, invalidate := range f.invalidate {
		invalidate()
	}
	return result, nil
}

// Cancel closes whichever dialog is open without deleting anything.
func (f *Flow) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == Resetting {
		return
	}
	f.clear()
}

func (f *Flow) clear() {
	f.state = Idle
	f.acknowledged = false
	f.confirmation = ""
}
