// Package journal records every resolved decision of a session to
// append-only sinks.
package journal

import (
	"errors"
	"time"
)

// Entry is one journal record.
type Entry struct {
	SessionID string    `json:"session_id"`
	Seq       int64     `json:"seq"`
	Tick      int64     `json:"tick"`
	Hour      int       `json:"hour"`
	Mile      int       `json:"mile"`
	Kind      string    `json:"kind"`
	ContentID int       `json:"content_id"`
	ActionID  int       `json:"action_id"`
	Detail    string    `json:"detail,omitempty"`
	At        time.Time `json:"at"`
}

// Sink accepts entries.
type Sink interface {
	Record(Entry) error
	Close() error
}

// Multi fans entries out to every sink.
type Multi []Sink

func (m Multi) Record(e Entry) error {
	var errs []error
	for _, s := range m {
		if err := s.Record(e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops everything.
type Discard struct{}

func (Discard) Record(Entry) error { return nil }
func (Discard) Close() error       { return nil }
