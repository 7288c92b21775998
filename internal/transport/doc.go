// Package transport bridges the Matrix homeserver to the orchestrator.
//
// Inbound room messages are deduplicated, mapped to their contact and
// ticket (created on first sight), persisted, and handed to the bot.
// Outbound delivery implements the orchestrator's Transport interface:
// text replies carry a rendered HTML body, voice replies are uploaded
// and flagged as voice messages.
package transport
