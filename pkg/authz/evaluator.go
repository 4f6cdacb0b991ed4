// Package authz implements authorization decisions for the Tiketti
// platform: role membership, ticket ownership, assignment-based resource
// locking, and comment gating. Decisions combine the request principal
// (established by the auth package) with role and ticket facts resolved
// from the backing stores.
//
// Denials carry taxonomy codes only and never reveal whether another user
// or ticket exists beyond what the caller is entitled to know.
package authz

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/TikettiLabs/tiketti-core/pkg/auth"
	tkerr "github.com/TikettiLabs/tiketti-core/pkg/errors"
	"github.com/TikettiLabs/tiketti-core/pkg/lifecycle"
	"github.com/TikettiLabs/tiketti-core/pkg/models"
)

// tracerName is the OpenTelemetry instrumentation scope name for authz spans.
const tracerName = "github.com/TikettiLabs/tiketti-core/pkg/authz"

// UserStore resolves principals to persisted user records.
type UserStore interface {
	// UserByEmail returns the user with the given lowercase-normalized
	// email, or an error with a not-found code when no such user exists.
	UserByEmail(ctx context.Context, email string) (*models.User, error)
}

// TicketStore resolves ticket references for ownership and assignment
// checks.
type TicketStore interface {
	// TicketByID returns the ticket with the given ID, or an error with a
	// not-found code when no such ticket exists.
	TicketByID(ctx context.Context, id string) (*models.Ticket, error)
}

// Evaluator decides ALLOW/DENY for requests. A nil error means the request
// is allowed; a denial is a *[tkerr.Error] from the authorization taxonomy.
//
// Evaluator is stateless apart from its store handles and is safe for
// concurrent use by multiple goroutines.
type Evaluator struct {
	users   UserStore
	tickets TicketStore
	tracer  trace.Tracer
}

// NewEvaluator creates an Evaluator backed by the given stores.
func NewEvaluator(users UserStore, tickets TicketStore) *Evaluator {
	return &Evaluator{
		users:   users,
		tickets: tickets,
		tracer:  otel.Tracer(tracerName),
	}
}

// RequireRole allows the request when the principal's resolved role is a
// member of the given set. Admins pass for any set, including an empty one.
//
// A principal with no user record is denied with
// [tkerr.CodePrincipalUnknown]; the denial does not reveal whether the
// email was close to an existing account.
func (e *Evaluator) RequireRole(ctx context.Context, principal *auth.Principal, roles ...models.Role) error {
	ctx, span := e.tracer.Start(ctx, "authz.RequireRole")
	defer span.End()

	user, err := e.resolveUser(ctx, principal)
	if err != nil {
		recordDenial(span, err)
		return err
	}
	span.SetAttributes(attribute.String("authz.role", string(user.Role)))

	if user.IsAdmin() {
		return nil
	}
	for _, role := range roles {
		if user.Role == role {
			return nil
		}
	}

	err = tkerr.New(tkerr.CodeAuthorization, "authz: role not permitted for this operation")
	recordDenial(span, err)
	return err
}

// RequireOwnership allows the request when the principal created the
// ticket. Admins and support staff pass unconditionally.
//
// A missing ticket is [tkerr.CodeNotFoundTicket]; a ticket created by
// someone else is [tkerr.CodeNotOwner].
func (e *Evaluator) RequireOwnership(ctx context.Context, principal *auth.Principal, ticketID string) error {
	ctx, span := e.tracer.Start(ctx, "authz.RequireOwnership")
	defer span.End()

	user, err := e.resolveUser(ctx, principal)
	if err != nil {
		recordDenial(span, err)
		return err
	}
	if user.IsAdmin() || user.IsSupport() {
		return nil
	}

	ticket, err := e.resolveTicket(ctx, ticketID)
	if err != nil {
		recordDenial(span, err)
		return err
	}
	if !ticket.IsCreatedBy(user.ID) {
		err = tkerr.New(tkerr.CodeNotOwner, "authz: not the ticket creator")
		recordDenial(span, err)
		return err
	}
	return nil
}

// CanModifyTicket allows the request when the principal may apply the given
// status transition to the ticket. Admins pass unconditionally. The ticket's
// creator may always close their own ticket, regardless of assignment.
// Beyond that, an assigned ticket is locked to its handler: anyone else is
// denied with [tkerr.CodeHandledByOther].
//
// An allowed actor must still request a legal transition; an illegal one is
// [tkerr.CodeLifecycleViolation].
func (e *Evaluator) CanModifyTicket(ctx context.Context, principal *auth.Principal, ticketID string, target lifecycle.Status) error {
	ctx, span := e.tracer.Start(ctx, "authz.CanModifyTicket")
	defer span.End()
	span.SetAttributes(attribute.String("authz.target_status", string(target)))

	user, err := e.resolveUser(ctx, principal)
	if err != nil {
		recordDenial(span, err)
		return err
	}

	ticket, err := e.resolveTicket(ctx, ticketID)
	if err != nil {
		recordDenial(span, err)
		return err
	}

	switch {
	case user.IsAdmin():
		// Fall through to the transition check.
	case ticket.IsCreatedBy(user.ID) && target == lifecycle.StatusClosed:
		// Self-service closing is always permitted.
	case ticket.IsAssigned() && !ticket.IsAssignedTo(user.ID):
		err = tkerr.New(tkerr.CodeHandledByOther, "authz: ticket is handled by another user")
		recordDenial(span, err)
		return err
	}

	if !lifecycle.ValidTransition(ticket.Status, target) {
		err = tkerr.Newf(tkerr.CodeLifecycleViolation,
			"authz: invalid ticket transition %s -> %s", ticket.Status, target)
		recordDenial(span, err)
		return err
	}
	return nil
}

// CanComment allows the request when the principal may post a comment on
// the ticket. No comments may be added once a ticket is resolved or closed,
// for any role. Otherwise the creator may comment freely, admins may always
// comment, and support staff may comment only on tickets taken into
// processing that they themselves handle.
func (e *Evaluator) CanComment(ctx context.Context, principal *auth.Principal, ticketID string) error {
	ctx, span := e.tracer.Start(ctx, "authz.CanComment")
	defer span.End()

	user, err := e.resolveUser(ctx, principal)
	if err != nil {
		recordDenial(span, err)
		return err
	}

	ticket, err := e.resolveTicket(ctx, ticketID)
	if err != nil {
		recordDenial(span, err)
		return err
	}

	if lifecycle.CommentsLocked(ticket.Status) {
		err = tkerr.Newf(tkerr.CodeLifecycleViolation,
			"authz: comments are locked on a %s ticket", ticket.Status)
		recordDenial(span, err)
		return err
	}

	switch {
	case user.IsAdmin():
		return nil
	case ticket.IsCreatedBy(user.ID):
		return nil
	case user.IsSupport() && ticket.Status == lifecycle.StatusInProgress && ticket.IsAssignedTo(user.ID):
		return nil
	}

	err = tkerr.New(tkerr.CodeAuthorization, "authz: not permitted to comment on this ticket")
	recordDenial(span, err)
	return err
}

// resolveUser maps the principal to its user record. A missing record is a
// [tkerr.CodePrincipalUnknown] denial; store failures pass through with
// their own codes.
func (e *Evaluator) resolveUser(ctx context.Context, principal *auth.Principal) (*models.User, error) {
	if principal == nil || principal.Email == "" {
		return nil, tkerr.New(tkerr.CodeAuthentication, "authz: no principal for this request")
	}

	user, err := e.users.UserByEmail(ctx, principal.Email)
	if err != nil {
		if tkerr.IsNotFound(err) {
			return nil, tkerr.New(tkerr.CodePrincipalUnknown,
				"authz: principal has no user record")
		}
		return nil, err
	}
	return user, nil
}

// resolveTicket loads the ticket, normalizing missing tickets to
// [tkerr.CodeNotFoundTicket].
func (e *Evaluator) resolveTicket(ctx context.Context, ticketID string) (*models.Ticket, error) {
	ticket, err := e.tickets.TicketByID(ctx, ticketID)
	if err != nil {
		if tkerr.IsNotFound(err) {
			return nil, tkerr.New(tkerr.CodeNotFoundTicket, "authz: ticket not found")
		}
		return nil, err
	}
	return ticket, nil
}

// recordDenial records a denial or lookup failure on the span.
func recordDenial(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetAttributes(attribute.String("authz.denial_code", tkerr.GetCode(err).String()))
}
