// Package fixtures provides shared test data constants for the Tiketti
// core test suite.
//
// Using common constants for test identities prevents magic strings in
// tests and keeps the tenant, client, and account values consistent
// across packages.
package fixtures

// Standard directory configuration values used in auth tests.
const (
	// TenantID is the default identity provider tenant for unit tests.
	TenantID = "b2f7c7e1-4d3a-4a0f-9c6e-2f1a8d5b9e01"

	// ClientID is the default application (audience) identifier.
	ClientID = "tiketti-helpdesk-api"

	// LocalTokenSecret is the symmetric signing secret for locally issued
	// test tokens. This is a deliberately weak value suitable only for
	// unit tests.
	LocalTokenSecret = "unit-test-signing-key-0123456789ab"

	// BypassEmail is the developer allowlist entry used in bypass tests.
	BypassEmail = "dev@tiketti.io"
)

// Standard account identity values used across auth, authz, and store
// tests.
const (
	// AdminEmail is the admin account email.
	AdminEmail = "admin@tiketti.io"

	// SupportEmail is the support handler account email.
	SupportEmail = "support@tiketti.io"

	// UserEmail is the end-user account email.
	UserEmail = "user@tiketti.io"

	// UserDisplayName is the end-user display name.
	UserDisplayName = "Anna Virtanen"

	// UserSubjectID is the stable identity provider object ID for the
	// end-user account.
	UserSubjectID = "4e2b9a77-13cc-4b5d-8a1e-6f0d2c9b3f44"
)

// Standard ticket values used in authz and store tests.
const (
	// TicketID is the default ticket identifier for unit tests.
	TicketID = "9d1f6c3a-75e8-4b20-b4aa-0c8e5d7f2a19"

	// TicketTitle is the default ticket title.
	TicketTitle = "Printer on fire"
)

// Standard configuration values used in config loader tests.
const (
	// TestEnvPrefix is the default environment variable prefix for config
	// tests.
	TestEnvPrefix = "TIKETTI_TEST"

	// TestConfigYAML is a minimal valid YAML configuration for tests.
	TestConfigYAML = `host: localhost
port: 8080
database: tiketti_test
`

	// TestConfigJSON is a minimal valid JSON configuration for tests.
	TestConfigJSON = `{
  "host": "localhost",
  "port": 8080,
  "database": "tiketti_test"
}`
)
