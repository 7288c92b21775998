// ABOUTME: Provider kinds, the Client capability interface and shared request types
// ABOUTME: Uniform surface over the OpenAI and Gemini chat/transcription APIs

package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind identifies an LLM provider
type Kind string

const (
	// KindOpenAI routes to the OpenAI chat completion and Whisper APIs
	KindOpenAI Kind = "openai"
	// KindGemini routes to the Google Gemini API
	KindGemini Kind = "gemini"
)

// ErrUnsupportedModel is returned when a configured model identifier maps
// to no known provider.
var ErrUnsupportedModel = errors.New("unsupported model")

// KindForModel derives the provider kind from a configured model
// identifier. The model string is the only configuration signal, matching
// how queue settings name models directly.
func KindForModel(model string) (Kind, error) {
	m := strings.ToLower(strings.TrimSpace(model))
	switch {
	case strings.HasPrefix(m, "gpt-"), strings.HasPrefix(m, "o1"), strings.HasPrefix(m, "o3"), strings.HasPrefix(m, "chatgpt"):
		return KindOpenAI, nil
	case strings.HasPrefix(m, "gemini-"):
		return KindGemini, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedModel, model)
	}
}

// Exchange roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Exchange is one turn in a conversation history passed to a provider
type Exchange struct {
	Role    string
	Content string
}

// CompletionRequest carries one chat-completion call.
//
// For OpenAI the system prompt travels as a RoleSystem exchange inside
// Exchanges. For Gemini it travels in Instructions and Exchanges must not
// contain a system entry; the builder in internal/transcript upholds this.
type CompletionRequest struct {
	Exchanges    []Exchange
	Model        string
	MaxTokens    int
	Temperature  float64
	Instructions string
}

// Client is the uniform capability surface over one provider.
//
// Complete returns the raw model reply text. Transcribe converts audio
// bytes to text; empty or undecodable audio yields an empty string and a
// nil error, signaling "no transcription" rather than a failure.
type Client interface {
	Complete(ctx context.Context, req *CompletionRequest) (string, error)
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// NewClient constructs a live client for the given provider kind bound to
// the given API key.
func NewClient(ctx context.Context, kind Kind, apiKey string) (Client, error) {
	switch kind {
	case KindOpenAI:
		return NewOpenAIClient(apiKey)
	case KindGemini:
		return NewGeminiClient(ctx, apiKey)
	default:
		return nil, fmt.Errorf("unknown provider kind %q", kind)
	}
}

// Error wraps a provider failure with the provider kind and the operation
// that failed. The orchestrator recovers from these locally and never
// propagates them to its caller.
type Error struct {
	Kind Kind
	Op   string // "complete" or "transcribe"
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsProviderError reports whether err is (or wraps) a provider failure
func IsProviderError(err error) bool {
	var pe *Error
	return errors.As(err, &pe)
}
