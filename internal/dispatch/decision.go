// Package dispatch implements the one-shot rendezvous between the engine
// goroutine, which blocks until the player decides, and whatever presents
// the choice to the player.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tatianab/gtfoklahoma/internal/content"
)

var (
	ErrInvalidAction     = errors.New("action is not one of the choices")
	ErrAlreadyResolved   = errors.New("decision already resolved")
	ErrNotInStock        = errors.New("item is not sold here")
	ErrInsufficientFunds = errors.New("not enough money")
	ErrVisitClosed       = errors.New("store visit is over")
	ErrDecisionTimeout   = errors.New("timed out waiting for a decision")
)

// Kind says what raised a decision.
type Kind string

const (
	KindEvent Kind = "event"
	KindIssue Kind = "issue"
)

// Decision is a single-use slot holding the player's chosen action. It
// is resolved at most once and reads always return the same value.
type Decision struct {
	Kind        Kind
	ContentID   int
	Title       string
	Description string
	ImageURL    string
	Choices     []content.Action

	logger *log.Logger
	done   chan struct{}

	mu       sync.Mutex
	resolved bool
	value    int
}

// NewDecision creates an open slot offering choices.
func NewDecision(kind Kind, contentID int, title, description string, choices []content.Action, logger *log.Logger) *Decision {
	if logger == nil {
		logger = log.Default()
	}
	return &Decision{
		Kind:        kind,
		ContentID:   contentID,
		Title:       title,
		Description: description,
		Choices:     choices,
		logger:      logger,
		done:        make(chan struct{}),
		value:       -1,
	}
}

// Allows reports whether actionID is one of the choices.
func (d *Decision) Allows(actionID int) bool {
	return slices.ContainsFunc(d.Choices, func(a content.Action) bool { return a.ID == actionID })
}

// Resolve records the player's choice and wakes the waiting engine. An id
// outside the choices is rejected and the slot stays open.
func (d *Decision) Resolve(actionID int) error {
	if !d.Allows(actionID) {
		d.logger.Error("rejected decision", "kind", d.Kind, "id", d.ContentID, "action", actionID)
		return fmt.Errorf("%w: %d", ErrInvalidAction, actionID)
	}
	if !d.settle(actionID) {
		return ErrAlreadyResolved
	}
	return nil
}

func (d *Decision) settle(actionID int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.resolved {
		return false
	}
	d.resolved = true
	d.value = actionID
	close(d.done)
	return true
}

// Done is closed once the decision is resolved.
func (d *Decision) Done() <-chan struct{} { return d.done }

// Value returns the chosen action id and whether the decision is resolved.
func (d *Decision) Value() (int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.value, d.resolved
}

// Wait blocks until the decision is resolved, ctx is done or timeout
// passes. A zero timeout waits forever. On timeout the slot is resolved
// with the first choice, which is returned along with ErrDecisionTimeout.
func (d *Decision) Wait(ctx context.Context, timeout time.Duration) (int, error) {
	err := wait(ctx, d.done, timeout)
	switch {
	case err == nil:
		v, _ := d.Value()
		return v, nil
	case errors.Is(err, ErrDecisionTimeout):
		fallback := -1
		if len(d.Choices) > 0 {
			fallback = d.Choices[0].ID
		}
		if !d.settle(fallback) {
			// resolved while the timer fired
			v, _ := d.Value()
			return v, nil
		}
		return fallback, ErrDecisionTimeout
	default:
		return -1, err
	}
}

func wait(ctx context.Context, done <-chan struct{}, timeout time.Duration) error {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-expired:
		return ErrDecisionTimeout
	}
}
