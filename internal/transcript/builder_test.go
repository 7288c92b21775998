// ABOUTME: Tests for the transcript builder
// ABOUTME: Verifies filtering, ordering, system prompt placement and idempotence

package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adanzweig/ronda-backend/internal/provider"
	"github.com/adanzweig/ronda-backend/internal/store"
)

func historyFixture() []*store.Message {
	return []*store.Message{
		{Body: "hola, necesito ayuda", FromMe: false, MediaType: store.MediaTypeChat},
		{Body: "foto.jpg", FromMe: false, MediaType: store.MediaTypeImage},
		{Body: "Claro, ¿en qué puedo ayudarte?", FromMe: true, MediaType: store.MediaTypeChat},
		{Body: "nota.ogg", FromMe: false, MediaType: store.MediaTypeAudio},
		{Body: "mi pedido no llegó", FromMe: false, MediaType: store.MediaTypeChat},
	}
}

func TestBuild_OpenAI_PrependsSystemExchange(t *testing.T) {
	exchanges := Build(historyFixture(), provider.KindOpenAI, "instrucciones")

	require.Len(t, exchanges, 4)
	assert.Equal(t, provider.RoleSystem, exchanges[0].Role)
	assert.Equal(t, "instrucciones", exchanges[0].Content)
	assert.Equal(t, provider.RoleUser, exchanges[1].Role)
	assert.Equal(t, provider.RoleAssistant, exchanges[2].Role)
	assert.Equal(t, provider.RoleUser, exchanges[3].Role)
	assert.Equal(t, "mi pedido no llegó", exchanges[3].Content)
}

func TestBuild_Gemini_NoSystemExchange(t *testing.T) {
	exchanges := Build(historyFixture(), provider.KindGemini, "instrucciones")

	require.Len(t, exchanges, 3)
	for _, ex := range exchanges {
		assert.NotEqual(t, provider.RoleSystem, ex.Role)
		assert.NotEqual(t, "instrucciones", ex.Content)
	}
}

func TestBuild_FiltersNonTextualKinds(t *testing.T) {
	exchanges := Build(historyFixture(), provider.KindGemini, "")

	for _, ex := range exchanges {
		assert.NotContains(t, ex.Content, ".jpg")
		assert.NotContains(t, ex.Content, ".ogg")
	}
}

func TestBuild_PreservesChronologicalOrder(t *testing.T) {
	exchanges := Build(historyFixture(), provider.KindGemini, "")

	require.Len(t, exchanges, 3)
	assert.Equal(t, "hola, necesito ayuda", exchanges[0].Content)
	assert.Equal(t, "Claro, ¿en qué puedo ayudarte?", exchanges[1].Content)
	assert.Equal(t, "mi pedido no llegó", exchanges[2].Content)
}

func TestBuild_Idempotent(t *testing.T) {
	msgs := historyFixture()

	first := Build(msgs, provider.KindOpenAI, "sys")
	second := Build(msgs, provider.KindOpenAI, "sys")

	assert.Equal(t, first, second)
}

func TestBuild_EmptyHistory(t *testing.T) {
	exchanges := Build(nil, provider.KindOpenAI, "sys")
	require.Len(t, exchanges, 1)
	assert.Equal(t, provider.RoleSystem, exchanges[0].Role)

	assert.Empty(t, Build(nil, provider.KindGemini, "sys"))
}

func TestSystemPrompt_IncludesNameTokensAndDirective(t *testing.T) {
	settings := &store.BotSettings{MaxTokens: 250, Prompt: "Atiende dudas de facturación."}

	prompt := SystemPrompt(settings, "María Fernanda López")

	assert.Contains(t, prompt, "Mara")
	assert.Contains(t, prompt, "250 tokens")
	assert.Contains(t, prompt, "Acción: Transferir al sector de atención")
	assert.Contains(t, prompt, "Atiende dudas de facturación.")
}

func TestSystemPrompt_FallbackName(t *testing.T) {
	settings := &store.BotSettings{MaxTokens: 100}

	prompt := SystemPrompt(settings, "")
	assert.Contains(t, prompt, "Amigo(a)")

	// Names that sanitize to nothing also fall back
	prompt = SystemPrompt(settings, "!!! ???")
	assert.Contains(t, prompt, "Amigo(a)")
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Maria Lopez", "Maria"},
		{"  Juan  ", "Juan"},
		{"Ana-Sofia", "AnaSofia"},
		{"José", "Jos"},
		{"", ""},
		{"123 456", "123"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeName(tt.in), "input %q", tt.in)
	}
}
