// Package store provides persistence for tickets, contacts, messages and
// per-queue bot settings using SQLite.
//
// # Overview
//
// The store is the source of truth for conversation state. The AI
// orchestrator reads ticket history from here and records every message it
// delivers, so a ticket's transcript can always be rebuilt from storage.
//
// # Entities
//
//   - Ticket: one customer conversation thread, bound to a transport channel
//   - Contact: the customer behind a ticket
//   - Message: a single inbound or outbound message within a ticket
//   - BotSettings: per-queue AI configuration (model, prompt, voice, keys)
//   - TicketTracking: audit record for one ticket handling period
//
// # Concurrency
//
// Ticket updates (status and queue changes) are serialized per ticket id
// through sharded locks, so concurrent updates for the same ticket cannot
// interleave. Reads are not serialized.
package store
