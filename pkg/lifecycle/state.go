// Package lifecycle defines the ticket lifecycle state machine for the
// Tiketti helpdesk platform.
//
// # Ticket Lifecycle
//
// Every ticket follows a defined lifecycle. The [Status] type represents the
// ticket's current position in this lifecycle, and all transitions are
// validated against the [validTransitions] matrix to prevent illegal state
// changes.
//
// The lifecycle flow for a handled ticket is:
//
//	Open → InProgress → Resolved → Closed
//
// A ticket may also be closed directly from any non-terminal state:
//
//	Open → Closed
//	InProgress → Closed
//
// Closed is the terminal state; nothing transitions out of it. Taking a
// ticket into processing (Open → InProgress) requires an assignee, set
// atomically with the transition by the ticket service.
//
// The authorization evaluator consults this package for transition legality
// and comment gating; it never mutates ticket state itself.
package lifecycle

// Status represents the lifecycle state of a ticket. Statuses form a finite
// state machine with validated transitions defined by [ValidTransition].
//
// The zero value ("") is not a valid status; tickets are created with
// [StatusOpen].
type Status string

const (
	// StatusOpen indicates the ticket has been filed but no handler has
	// taken it into processing yet. This is the initial status of every
	// ticket.
	StatusOpen Status = "OPEN"

	// StatusInProgress indicates a support handler has taken the ticket
	// and is working on it. A ticket in this status always has a non-nil
	// assignee; the assignment happens atomically with the transition.
	StatusInProgress Status = "IN_PROGRESS"

	// StatusResolved indicates the handler considers the issue fixed and
	// is waiting for the ticket to be closed. No further comments may be
	// added once a ticket is resolved.
	StatusResolved Status = "RESOLVED"

	// StatusClosed indicates the ticket is finished. This is the terminal
	// status: no transition leads out of it.
	StatusClosed Status = "CLOSED"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// Valid reports whether the status is one of the recognized lifecycle
// statuses. The zero value ("") is not valid.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status is the terminal lifecycle status.
// Only [StatusClosed] is terminal; a closed ticket cannot be reopened.
func (s Status) IsTerminal() bool {
	return s == StatusClosed
}

// validTransitions defines the allowed status transitions for the ticket
// lifecycle state machine. Each key is a source status, and the value is the
// set of statuses it may transition to. Transitions not present in this map
// are rejected by [ValidTransition].
//
// Transition matrix:
//
//	Open       → InProgress, Closed
//	InProgress → Resolved, Closed
//	Resolved   → Closed
//	Closed     → (none)
var validTransitions = map[Status][]Status{
	StatusOpen:       {StatusInProgress, StatusClosed},
	StatusInProgress: {StatusResolved, StatusClosed},
	StatusResolved:   {StatusClosed},
	StatusClosed:     {},
}

// ValidTransition reports whether transitioning from status from to status to
// is allowed by the lifecycle state machine. Both from and to must be valid
// statuses, and the transition must be present in the [validTransitions]
// matrix. Same-status transitions (from == to) are always rejected.
func ValidTransition(from, to Status) bool {
	if from == to {
		return false
	}
	targets, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, t := range targets {
		if t == to {
			return true
		}
	}
	return false
}

// RequiresAssignee reports whether a ticket in status to must have an
// assignee. Only [StatusInProgress] requires one: taking a ticket into
// processing and assigning a handler happen atomically.
func RequiresAssignee(to Status) bool {
	return to == StatusInProgress
}

// CommentsLocked reports whether the status forbids adding comments.
// Comments are locked once a ticket is resolved or closed, for every role
// including administrators.
func CommentsLocked(s Status) bool {
	switch s {
	case StatusResolved, StatusClosed:
		return true
	default:
		return false
	}
}
