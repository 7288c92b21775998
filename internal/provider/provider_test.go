// ABOUTME: Tests for provider kind derivation and error wrapping
// ABOUTME: Covers the model-identifier to provider mapping table

package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindForModel(t *testing.T) {
	tests := []struct {
		model   string
		want    Kind
		wantErr bool
	}{
		{"gpt-4o", KindOpenAI, false},
		{"gpt-3.5-turbo-1106", KindOpenAI, false},
		{"GPT-4o", KindOpenAI, false},
		{"  gpt-4o  ", KindOpenAI, false},
		{"o3-mini", KindOpenAI, false},
		{"gemini-2.0-pro", KindGemini, false},
		{"gemini-2.0-flash", KindGemini, false},
		{"claude-3", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			kind, err := KindForModel(tt.model)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedModel)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, kind)
		})
	}
}

func TestError_WrapsAndIdentifies(t *testing.T) {
	cause := fmt.Errorf("rate limited")
	err := &Error{Kind: KindOpenAI, Op: "complete", Err: cause}

	assert.True(t, IsProviderError(err))
	assert.True(t, IsProviderError(fmt.Errorf("handling: %w", err)))
	assert.False(t, IsProviderError(errors.New("plain")))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "openai complete")
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewOpenAIClient("")
	assert.Error(t, err)

	_, err = NewGeminiClient(context.Background(), "  ")
	assert.Error(t, err)
}
