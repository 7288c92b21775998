// Package audio decodes inbound voice notes to text and renders outgoing
// replies as speech.
//
// Synthesized files are scoped to a single orchestration call: the
// pipeline writes them into a per-company media directory and the caller
// deletes them right after the send attempt, success or not.
package audio
