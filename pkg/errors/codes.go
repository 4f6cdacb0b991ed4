package errors

// Code represents a machine-readable error code for categorizing errors.
// Error codes follow the pattern CATEGORY_XXX where CATEGORY is a short
// identifier (e.g., AUTH, VAL, INT) and XXX is a three-digit numeric code.
//
// Error codes are designed to be:
//   - Stable: Codes do not change once assigned
//   - Unique: Each error condition has a distinct code
//   - Searchable: Codes can be used to find documentation and solutions
//   - Machine-readable: Suitable for automated error handling
//
// Denial responses emitted by the auth middleware carry only the code; the
// human-readable message stays in server-side logs.
type Code string

// Error code categories and their ranges:
//
//	VAL_xxx     - Validation errors (400 Bad Request)
//	AUTH_xxx    - Authentication errors (401 Unauthorized)
//	AUTHZ_xxx   - Authorization errors (403 Forbidden)
//	NF_xxx      - Not found errors (404 Not Found)
//	CONF_xxx    - Conflict errors (409 Conflict)
//	INT_xxx     - Internal errors (500 Internal Server Error)
//	UNAVAIL_xxx - Service unavailable (503 Service Unavailable)
//	TIMEOUT_xxx - Timeout errors (504 Gateway Timeout)
const (
	// Validation errors (VAL_xxx) - HTTP 400
	// Used when request input fails validation rules.

	// CodeValidation indicates a general validation failure.
	CodeValidation Code = "VAL_001"

	// CodeValidationRequired indicates a required field is missing.
	CodeValidationRequired Code = "VAL_002"

	// Authentication errors (AUTH_xxx) - HTTP 401
	// Used when a bearer token cannot be verified or the identity it
	// asserts is unusable.

	// CodeAuthentication indicates a general authentication failure.
	CodeAuthentication Code = "AUTH_001"

	// CodeTokenMalformed indicates the bearer token is not a well-formed
	// three-segment JWT (bad structure, base64, or JSON).
	CodeTokenMalformed Code = "AUTH_002"

	// CodeTokenAlgorithm indicates the token declares a signing algorithm
	// the verifier does not support.
	CodeTokenAlgorithm Code = "AUTH_003"

	// CodeTokenSignature indicates the token signature did not verify
	// against any candidate key.
	CodeTokenSignature Code = "AUTH_004"

	// CodeTokenExpired indicates the token's exp claim is in the past.
	CodeTokenExpired Code = "AUTH_005"

	// CodeTokenAudience indicates the aud claim does not match the
	// configured client identifier.
	CodeTokenAudience Code = "AUTH_006"

	// CodeTokenIssuer indicates the iss claim is not one of the expected
	// tenant-qualified issuers.
	CodeTokenIssuer Code = "AUTH_007"

	// CodeIdentityMissingEmail indicates no email-bearing claim was found
	// in the token. A principal without an email is never valid.
	CodeIdentityMissingEmail Code = "AUTH_008"

	// CodeIdentityIncomplete indicates a non-bypass principal is missing
	// a display name or subject identifier.
	CodeIdentityIncomplete Code = "AUTH_009"

	// Authorization errors (AUTHZ_xxx) - HTTP 403
	// Used when the authenticated principal is denied access to an
	// operation or ticket.

	// CodeAuthorization indicates a general authorization failure.
	CodeAuthorization Code = "AUTHZ_001"

	// CodePrincipalUnknown indicates the principal's email resolved to no
	// user record, so no role could be determined.
	CodePrincipalUnknown Code = "AUTHZ_002"

	// CodeNotOwner indicates the principal did not create the ticket it
	// is trying to act on.
	CodeNotOwner Code = "AUTHZ_003"

	// CodeHandledByOther indicates the ticket is assigned to a different
	// handler; only the assignee or an admin may mutate it.
	CodeHandledByOther Code = "AUTHZ_004"

	// Not found errors (NF_xxx) - HTTP 404
	// Used when a requested resource does not exist.

	// CodeNotFound indicates a general not found error.
	CodeNotFound Code = "NF_001"

	// CodeNotFoundUser indicates the requested user was not found.
	CodeNotFoundUser Code = "NF_002"

	// CodeNotFoundTicket indicates the requested ticket was not found.
	CodeNotFoundTicket Code = "NF_003"

	// Conflict errors (CONF_xxx) - HTTP 409
	// Used when an operation conflicts with current state.

	// CodeConflict indicates a general conflict error.
	CodeConflict Code = "CONF_001"

	// CodeLifecycleViolation indicates a ticket status transition that the
	// lifecycle state machine does not permit.
	CodeLifecycleViolation Code = "CONF_002"

	// Internal errors (INT_xxx) - HTTP 500
	// Used for unexpected internal failures.

	// CodeInternal indicates a general internal error.
	CodeInternal Code = "INT_001"

	// CodeInternalDatabase indicates a database operation failed.
	CodeInternalDatabase Code = "INT_002"

	// CodeConfigurationMissing indicates asymmetric verification was
	// attempted without the required tenant/client configuration. This is
	// a deployment fault, not a caller fault.
	CodeConfigurationMissing Code = "INT_003"

	// Unavailable errors (UNAVAIL_xxx) - HTTP 503
	// Used when a dependency is temporarily unavailable. These are
	// retryable and must never be reported as identity rejections.

	// CodeUnavailable indicates a general service unavailable error.
	CodeUnavailable Code = "UNAVAIL_001"

	// CodeKeyFetchFailed indicates a key-set endpoint could not be
	// reached or returned an unusable response.
	CodeKeyFetchFailed Code = "UNAVAIL_002"

	// CodeRateLimited indicates the per-endpoint key fetch budget was
	// exhausted.
	CodeRateLimited Code = "UNAVAIL_003"

	// Timeout errors (TIMEOUT_xxx) - HTTP 504
	// Used when an operation exceeds its time limit.

	// CodeTimeout indicates a general timeout error.
	CodeTimeout Code = "TIMEOUT_001"
)

// String returns the string representation of the error code.
func (c Code) String() string {
	return string(c)
}

// Category returns the category prefix of the error code (e.g., "VAL", "AUTH").
func (c Code) Category() string {
	s := string(c)
	for i, r := range s {
		if r == '_' {
			return s[:i]
		}
	}
	return s
}
