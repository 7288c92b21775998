// Package provider exposes a uniform capability surface over the two
// supported LLM providers.
//
// A Client offers chat completion and audio transcription. The provider
// kind is derived once from the configured model identifier via
// KindForModel; provider-specific request and response shapes stay inside
// this package. Failures surface as *Error so callers can distinguish
// provider faults from local ones.
package provider
