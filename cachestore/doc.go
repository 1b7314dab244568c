// Package cachestore is the query side of the gateway: it compiles parsed
// filter parameters into Mongo-style predicates and serves them from a
// read-optimized mirror of the canonical store.
//
// # Overview
//
// Three pieces cooperate:
//
//   - Translator compiles queryparse.Values into a Query: a bson predicate
//     plus ordering and pagination. Caller mistakes become a structured
//     QueryError payload rather than a Go error.
//   - Engine mirrors canonical records into a MongoDB collection and runs
//     translated queries against it. Misses are repaired from the
//     canonical store, so the mirror may always lag without breaking reads.
//   - Fallback serves the same Cache interface straight from the canonical
//     store for deployments without a mirror backend.
//
// # Consistency
//
// The canonical store always wins. Engine.Upsert re-reads the canonical
// record before mirroring, Engine.Get repairs misses from canonical state,
// and Engine.Reconcile rebuilds the whole mirror. Cache write failures are
// logged and absorbed by callers; they never fail the triggering request.
package cachestore
