// Package dispatcher orchestrates one generic object request end to end.
//
// # Overview
//
// Handle runs a fixed pipeline: parse query parameters, extract the record
// identifier, resolve the applicable schema, authorize against the caller's
// scopes, perform the CRUD operation on the canonical store, mirror the
// result into the cache, emit a lifecycle event and shape the response.
// Every failure maps onto a status code; Handle never returns a Go error.
//
// # Degradation
//
// The dispatcher works with only a canonical store. Without a cache engine
// reads fall back to canonical passthrough, without an emitter no events
// fire, and without a scope source every request is authorized. Cache
// failures during mirroring are logged and absorbed; they never fail the
// triggering request.
//
// # Locking
//
// Mutations honor the record's optimistic lock token: a PUT or PATCH on a
// locked record must echo the token in the body's lock field or the
// request is refused with 409 and the stored attributes stay untouched.
package dispatcher
