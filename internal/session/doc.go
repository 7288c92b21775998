// Package session keeps one long-lived provider client per active ticket
// per provider kind, created lazily and reused across messages.
//
// The registry's lookup-or-create is atomic, so concurrent first access
// for the same ticket never constructs duplicate clients. Sessions idle
// longer than a TTL are evicted by a background sweeper; ticket closure
// can evict eagerly through Evict.
package session
