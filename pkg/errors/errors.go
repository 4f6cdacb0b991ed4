// Package errors provides standardized error types and error handling utilities
// for the Tiketti helpdesk platform. It defines the error taxonomy shared by
// the token verifier, the authorization evaluator, and the read stores, plus
// helper functions for creating, wrapping, and inspecting errors.
//
// # Error Categories
//
// The package defines several error categories that map to common failure scenarios:
//
//   - Validation errors: Invalid input, missing required fields
//   - Authentication errors: Malformed, expired, or unverifiable tokens
//   - Authorization errors: Role, ownership, or assignment denials
//   - NotFound errors: User or ticket does not exist
//   - Conflict errors: Illegal ticket lifecycle transitions
//   - Internal errors: Unexpected failures, missing deployment configuration
//   - Unavailable errors: Key-set endpoints unreachable or rate limited
//   - Timeout errors: Operation exceeded time limit
//
// # Error Codes
//
// Each error includes a machine-readable code (e.g., "AUTH_004") that is the
// only thing a denial response body carries. Error codes follow the pattern
// CATEGORY_XXX where CATEGORY is a short identifier and XXX is a numeric code.
//
// # Usage
//
// Create a new error with context:
//
//	err := errors.New(errors.CodeTokenExpired, "auth: token has expired")
//
// Wrap an existing error:
//
//	err := errors.Wrap(err, errors.CodeKeyFetchFailed, "auth: key-set fetch failed")
//
// Check error category:
//
//	if errors.IsAuthorization(err) {
//	    // respond 403 with the code only
//	}
//
// Extract error details for logging:
//
//	if e, ok := errors.AsError(err); ok {
//	    logger.Error("request denied",
//	        "code", e.Code,
//	        "message", e.Message,
//	    )
//	}
package errors
