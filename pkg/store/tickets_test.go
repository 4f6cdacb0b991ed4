package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TikettiLabs/tiketti-core/internal/testutil"
	"github.com/TikettiLabs/tiketti-core/internal/testutil/fixtures"
	"github.com/TikettiLabs/tiketti-core/pkg/clients/postgres"
	tkerr "github.com/TikettiLabs/tiketti-core/pkg/errors"
	"github.com/TikettiLabs/tiketti-core/pkg/lifecycle"
)

// ticketColumns matches the column order of ticketByIDQuery.
var ticketColumns = []string{
	"id", "title", "description", "status",
	"created_by_id", "assigned_to_id", "created_at", "updated_at",
}

func newTicketStore(t *testing.T) (*PostgresTicketStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	client := postgres.NewFromPool(mock, nil)
	return NewPostgresTicketStore(client), mock
}

// ===========================================================================
// TicketByID
// ===========================================================================

func TestTicketByID_Found(t *testing.T) {
	t.Parallel()

	s, mock := newTicketStore(t)
	now := time.Now().UTC()
	description := "It is actually on fire."
	assignee := "support-1"

	mock.ExpectQuery(regexp.QuoteMeta(ticketByIDQuery)).
		WithArgs(fixtures.TicketID).
		WillReturnRows(pgxmock.NewRows(ticketColumns).
			AddRow(fixtures.TicketID, fixtures.TicketTitle, &description,
				"IN_PROGRESS", "user-1", &assignee, now, now))

	ticket, err := s.TicketByID(context.Background(), fixtures.TicketID)
	require.NoError(t, err)
	assert.Equal(t, fixtures.TicketID, ticket.ID)
	assert.Equal(t, fixtures.TicketTitle, ticket.Title)
	assert.Equal(t, description, ticket.Description)
	assert.Equal(t, lifecycle.StatusInProgress, ticket.Status)
	assert.Equal(t, "user-1", ticket.CreatedByID)
	require.NotNil(t, ticket.AssignedToID)
	assert.Equal(t, "support-1", *ticket.AssignedToID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketByID_Unassigned(t *testing.T) {
	t.Parallel()

	s, mock := newTicketStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(ticketByIDQuery)).
		WithArgs(fixtures.TicketID).
		WillReturnRows(pgxmock.NewRows(ticketColumns).
			AddRow(fixtures.TicketID, fixtures.TicketTitle, (*string)(nil),
				"OPEN", "user-1", (*string)(nil), now, now))

	ticket, err := s.TicketByID(context.Background(), fixtures.TicketID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusOpen, ticket.Status)
	assert.Empty(t, ticket.Description)
	assert.False(t, ticket.IsAssigned())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketByID_NotFound(t *testing.T) {
	t.Parallel()

	s, mock := newTicketStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(ticketByIDQuery)).
		WithArgs("missing-ticket").
		WillReturnRows(pgxmock.NewRows(ticketColumns))

	_, err := s.TicketByID(context.Background(), "missing-ticket")
	testutil.RequireErrorCode(t, err, tkerr.CodeNotFoundTicket)
	assert.True(t, tkerr.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketByID_EmptyID(t *testing.T) {
	t.Parallel()

	s, _ := newTicketStore(t)

	_, err := s.TicketByID(context.Background(), "")
	testutil.RequireErrorCode(t, err, tkerr.CodeValidationRequired)
}

func TestTicketByID_DatabaseError(t *testing.T) {
	t.Parallel()

	s, mock := newTicketStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(ticketByIDQuery)).
		WithArgs(fixtures.TicketID).
		WillReturnError(errors.New("connection reset by peer"))

	_, err := s.TicketByID(context.Background(), fixtures.TicketID)
	testutil.RequireErrorCode(t, err, tkerr.CodeInternalDatabase)
	assert.NoError(t, mock.ExpectationsWereMet())
}
