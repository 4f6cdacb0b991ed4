package store

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/TikettiLabs/tiketti-core/pkg/clients/postgres"
	tkerr "github.com/TikettiLabs/tiketti-core/pkg/errors"
	"github.com/TikettiLabs/tiketti-core/pkg/models"
)

// userByEmailQuery loads a single user record by its lowercase-normalized
// email. Email is unique, so at most one row matches.
const userByEmailQuery = `
SELECT id, email, display_name, role, external_subject_id, created_at, updated_at
FROM users
WHERE email = $1`

// PostgresUserStore resolves user records from PostgreSQL. It implements
// the authz UserStore interface.
type PostgresUserStore struct {
	db     *postgres.Client
	tracer trace.Tracer
}

// NewPostgresUserStore creates a user store backed by the given client.
func NewPostgresUserStore(db *postgres.Client) *PostgresUserStore {
	return &PostgresUserStore{
		db:     db,
		tracer: otel.Tracer(tracerName),
	}
}

// UserByEmail returns the user with the given email. The email is
// lowercase-normalized before the lookup so callers may pass identities in
// any casing.
//
// A missing user is reported with [tkerr.CodeNotFoundUser]; other database
// failures carry [tkerr.CodeInternalDatabase].
func (s *PostgresUserStore) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, span := s.tracer.Start(ctx, "store.UserByEmail")
	defer span.End()

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, tkerr.New(tkerr.CodeValidationRequired, "store: email must not be empty")
	}

	var (
		user    models.User
		role    string
		subject *string
	)
	row := s.db.QueryRow(ctx, userByEmailQuery, email)
	err := row.Scan(&user.ID, &user.Email, &user.DisplayName, &role,
		&subject, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tkerr.New(tkerr.CodeNotFoundUser, "store: user not found")
		}
		span.RecordError(err)
		return nil, tkerr.Wrap(err, tkerr.CodeInternalDatabase, "store: user lookup failed")
	}

	user.Role = models.Role(role)
	if subject != nil {
		user.ExternalSubjectID = *subject
	}
	span.SetAttributes(attribute.String("user.role", role))
	return &user, nil
}
