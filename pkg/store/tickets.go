package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/TikettiLabs/tiketti-core/pkg/clients/postgres"
	tkerr "github.com/TikettiLabs/tiketti-core/pkg/errors"
	"github.com/TikettiLabs/tiketti-core/pkg/lifecycle"
	"github.com/TikettiLabs/tiketti-core/pkg/models"
)

// ticketByIDQuery loads a single ticket record by its UUID primary key.
const ticketByIDQuery = `
SELECT id, title, description, status, created_by_id, assigned_to_id, created_at, updated_at
FROM tickets
WHERE id = $1`

// PostgresTicketStore resolves ticket records from PostgreSQL. It
// implements the authz TicketStore interface.
type PostgresTicketStore struct {
	db     *postgres.Client
	tracer trace.Tracer
}

// NewPostgresTicketStore creates a ticket store backed by the given client.
func NewPostgresTicketStore(db *postgres.Client) *PostgresTicketStore {
	return &PostgresTicketStore{
		db:     db,
		tracer: otel.Tracer(tracerName),
	}
}

// TicketByID returns the ticket with the given ID.
//
// A missing ticket is reported with [tkerr.CodeNotFoundTicket]; other
// database failures carry [tkerr.CodeInternalDatabase].
func (s *PostgresTicketStore) TicketByID(ctx context.Context, id string) (*models.Ticket, error) {
	ctx, span := s.tracer.Start(ctx, "store.TicketByID")
	defer span.End()

	if id == "" {
		return nil, tkerr.New(tkerr.CodeValidationRequired, "store: ticket id must not be empty")
	}

	var (
		ticket      models.Ticket
		status      string
		description *string
	)
	row := s.db.QueryRow(ctx, ticketByIDQuery, id)
	err := row.Scan(&ticket.ID, &ticket.Title, &description, &status,
		&ticket.CreatedByID, &ticket.AssignedToID, &ticket.CreatedAt, &ticket.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tkerr.New(tkerr.CodeNotFoundTicket, "store: ticket not found")
		}
		span.RecordError(err)
		return nil, tkerr.Wrap(err, tkerr.CodeInternalDatabase, "store: ticket lookup failed")
	}

	ticket.Status = lifecycle.Status(status)
	if description != nil {
		ticket.Description = *description
	}
	span.SetAttributes(attribute.String("ticket.status", status))
	return &ticket, nil
}
