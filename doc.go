// Package objectgateway is a schema-driven generic object gateway: it
// serves CRUD and search over arbitrary record types whose schemas are
// resolved at request time, backed by a canonical store with an optional
// read-optimized cache mirror.
//
// The packages compose as a pipeline: gateway/http adapts HTTP onto the
// generic request surface, dispatcher orchestrates schema resolution,
// authorization, the canonical operation and response shaping, queryparse
// and cachestore turn filter parameters into native cache queries, and
// canonical owns durable storage. events publishes lifecycle events whose
// subscribers may override responses.
package objectgateway
