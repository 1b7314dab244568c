// Package types defines the core entities of the object gateway: schemas,
// endpoints, records, the schema self-descriptor union and permission
// scope sets. These are plain data types shared by the dispatcher, the
// canonical store backends and the cache engine.
package types
