// Package identity owns the durable account record: login identifiers,
// password digest and the fingerprint of the single live renewal token.
//
// Store is the persistence boundary. PostgresStore is the production
// implementation, MemoryStore backs dev mode and tests, and CachedStore puts a
// Redis read-through cache in front of either one.
package identity
