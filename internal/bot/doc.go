// Package bot is the conversational-AI orchestration layer.
//
// # Overview
//
// The Orchestrator is the single entry point: it receives an inbound
// ticket message together with the queue's bot settings, resolves a
// provider session, builds the conversation transcript, runs the text or
// audio flow, post-processes the reply and delivers it through the
// messaging transport.
//
// # Flows
//
// A call moves through Validating into TextFlow or AudioFlow:
//
//   - Guards (bot disabled, no content, missing settings, stub events)
//     abort silently; no conversation context exists to reply into.
//   - TextFlow: transcript -> completion -> post-process -> deliver.
//   - AudioFlow: resolve file -> transcribe -> echo -> completion ->
//     post-process -> deliver.
//
// Once a flow is entered the contact always receives something: provider
// failures resolve to a fixed apology, audio failures to targeted
// messages. Handle never returns an error.
//
// # Transfer hand-off
//
// A reply containing the transfer directive moves the ticket to the
// configured human queue; the directive is stripped before the reply is
// delivered.
package bot
