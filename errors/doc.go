// Package errors provides standardized error handling for the object gateway.
//
// # Overview
//
// The errors package implements a five-class error classification system
// matching the failure taxonomy of a schema-driven request gateway:
// Resolution (no schema/endpoint/record determinable), Permission (schema not
// allowed on an endpoint, scope denial), Conflict (optimistic-lock token
// mismatch), Translation (unsupported filter or order parameters) and
// Upstream (canonical-store or cache-store unavailability).
//
// Classification lets the HTTP layer map errors onto status codes without
// string matching, and lets the dispatcher decide which failures degrade
// gracefully (cache writes) versus which propagate (canonical writes).
//
// # Quick Start
//
// Return standard error variables for known conditions:
//
//	if rec == nil {
//	    return errors.ErrRecordNotFound
//	}
//
// Wrap errors with component context:
//
//	if err := store.UpdateRecord(ctx, rec); err != nil {
//	    return errors.WrapUpstream(err, "dispatcher", "handlePut", "persist record")
//	}
//
// Map onto an HTTP status at the boundary:
//
//	status := errors.HTTPStatus(err)
//
// # Error Wrapping Pattern
//
// All error wrapping follows the standardized format:
//
//	"component.method: action failed: %w"
//
// The wrap functions preserve the underlying sentinel through the chain, so
// errors.Is(err, errors.ErrRecordNotFound) keeps working after wrapping.
package errors
