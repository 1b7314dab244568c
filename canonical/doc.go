// Package canonical defines the source-of-truth store contract for records,
// schemas and endpoints, together with an in-memory implementation for tests
// and development. The production NATS JetStream KV backend lives in the
// natskv subpackage.
package canonical
