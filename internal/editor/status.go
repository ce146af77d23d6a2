package editor

import (
	"fmt"
	"time"
)

type StatusKind int

const (
	Idle StatusKind = iota
	Pending
	Saving
	Failed
)

func (k StatusKind) String() string {
	switch k {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Saving:
		return "saving"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("StatusKind(%d)", int(k))
	}
}

// Status is the persistence state of a coordinator. Deadline is set while
// Pending. Message is set while Failed, and while Pending right after the
// previous save failed.
type Status struct {
	Kind     StatusKind
	Deadline time.Time
	Message  string
}

// Settled reports whether no save is scheduled or running.
func (s Status) Settled() bool {
	return s.Kind == Idle || s.Kind == Failed
}

func (s Status) String() string {
	switch s.Kind {
	case Pending:
		if s.Message != "" {
			return "pending until " + s.Deadline.Format(time.RFC3339Nano) + " (last save failed: " + s.Message + ")"
		}
		return "pending until " + s.Deadline.Format(time.RFC3339Nano)
	case Failed:
		return "failed: " + s.Message
	default:
		return s.Kind.String()
	}
}
