package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/TikettiLabs/tiketti-core/pkg/lifecycle"
)

// Ticket represents a helpdesk case in the Tiketti platform. The
// authorization evaluator reads a ticket's Status, CreatedByID, and
// AssignedToID to decide access; it never mutates the record. Mutation is
// the ticket service's job and must go through [lifecycle.ValidTransition].
type Ticket struct {
	// ID is the unique identifier for this ticket (UUID v4).
	ID string `json:"id" db:"id"`

	// Title is the short summary of the issue.
	Title string `json:"title" db:"title"`

	// Description is the full issue report as filed by the creator.
	Description string `json:"description,omitempty" db:"description"`

	// Status is the current lifecycle status of the ticket.
	// See [lifecycle.Status] for valid values and transitions.
	Status lifecycle.Status `json:"status" db:"status"`

	// CreatedByID is the ID of the user who filed the ticket. Ownership
	// checks compare this against the requesting principal's user ID.
	CreatedByID string `json:"created_by_id" db:"created_by_id"`

	// AssignedToID is the ID of the support handler currently responsible
	// for the ticket. Nil while the ticket is unassigned; always non-nil
	// when Status is IN_PROGRESS.
	AssignedToID *string `json:"assigned_to_id,omitempty" db:"assigned_to_id"`

	// CreatedAt is the UTC timestamp when the ticket was filed.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the UTC timestamp when the ticket was last modified.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NewTicket creates a new Ticket record with a generated UUID, Open status,
// no assignee, and UTC timestamps.
//
// Returns an error if title or createdByID is empty.
func NewTicket(title, description, createdByID string) (*Ticket, error) {
	if title == "" {
		return nil, errors.New("models: ticket title must not be empty")
	}
	if createdByID == "" {
		return nil, errors.New("models: ticket createdByID must not be empty")
	}

	now := time.Now().UTC()
	return &Ticket{
		ID:          uuid.New().String(),
		Title:       title,
		Description: description,
		Status:      lifecycle.StatusOpen,
		CreatedByID: createdByID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Validate checks that all required fields are present, that the status is a
// recognized value, and that the assignee invariant holds (IN_PROGRESS
// tickets must have an assignee). Returns the first validation error
// encountered, or nil if the ticket is valid.
func (t *Ticket) Validate() error {
	if t.ID == "" {
		return errors.New("models: ticket ID is required")
	}
	if t.Title == "" {
		return errors.New("models: ticket title is required")
	}
	if t.CreatedByID == "" {
		return errors.New("models: ticket created_by_id is required")
	}
	if !t.Status.Valid() {
		return fmt.Errorf("models: invalid ticket status %q", t.Status)
	}
	if lifecycle.RequiresAssignee(t.Status) && (t.AssignedToID == nil || *t.AssignedToID == "") {
		return fmt.Errorf("models: ticket in status %q requires an assignee", t.Status)
	}
	if t.CreatedAt.IsZero() {
		return errors.New("models: ticket created_at is required")
	}
	if t.UpdatedAt.IsZero() {
		return errors.New("models: ticket updated_at is required")
	}
	return nil
}

// IsTerminal reports whether the ticket has reached the terminal Closed
// status.
func (t *Ticket) IsTerminal() bool {
	return t.Status.IsTerminal()
}

// IsAssigned reports whether the ticket has a handler assigned.
func (t *Ticket) IsAssigned() bool {
	return t.AssignedToID != nil && *t.AssignedToID != ""
}

// IsAssignedTo reports whether the ticket is assigned to the given user ID.
// An unassigned ticket is assigned to nobody.
func (t *Ticket) IsAssignedTo(userID string) bool {
	return t.IsAssigned() && *t.AssignedToID == userID
}

// IsCreatedBy reports whether the ticket was filed by the given user ID.
func (t *Ticket) IsCreatedBy(userID string) bool {
	return t.CreatedByID == userID
}
