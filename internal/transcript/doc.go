// Package transcript converts a ticket's stored message history into the
// ordered exchange sequence a provider expects.
//
// The builder is pure: the same history always yields the same output.
// Bounding the history to the configured window is the storage layer's
// responsibility; this package only filters, orders and maps roles.
package transcript
