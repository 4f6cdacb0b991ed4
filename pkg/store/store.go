// Package store provides the persistence reads the Tiketti core consumes:
// user lookup by email and ticket lookup by ID. Both stores implement the
// read interfaces declared in the authz package, so the authorization
// evaluator depends only on behavior, not on this package.
//
// [PostgresUserStore] and [PostgresTicketStore] read from PostgreSQL
// through the traced client in pkg/clients/postgres. [CachedUserStore]
// wraps a user store with a Redis read-through cache for the role lookup
// that every authorized request performs.
package store

// tracerName is the OpenTelemetry instrumentation scope name for store spans.
const tracerName = "github.com/TikettiLabs/tiketti-core/pkg/store"
