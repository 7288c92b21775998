// ABOUTME: Builds provider-agnostic conversation transcripts from stored messages
// ABOUTME: Applies role mapping, textual-kind filtering and system prompt placement

package transcript

import (
	"fmt"
	"strings"

	"github.com/adanzweig/ronda-backend/internal/provider"
	"github.com/adanzweig/ronda-backend/internal/store"
)

// systemPromptTemplate is the instruction block sent with every
// completion. The transfer directive phrase inside it is what the
// post-processor later detects in replies.
const systemPromptTemplate = `Instrucciones del sistema:
- Usa el nombre %s en las respuestas para que el cliente se sienta más cercano y bien atendido.
- Asegúrate de que la respuesta tenga hasta %d tokens y esté completa.
- Si no sabes el nombre, pregúntalo.
- Si es necesario transferir, empieza con 'Acción: Transferir al sector de atención'.

Prompt específico:
%s

Sigue estas instrucciones para asegurar una atención clara y amable.`

// fallbackName greets contacts whose name is unknown
const fallbackName = "Amigo(a)"

// Build converts stored messages into an ordered exchange sequence for the
// given provider kind. Only textual messages contribute; chronological
// order is preserved. For KindOpenAI the system prompt is prepended as a
// system exchange. Gemini receives it through the request's dedicated
// instruction slot instead, so no system entry is added, keeping the
// instruction from reaching the model twice.
func Build(msgs []*store.Message, kind provider.Kind, systemPrompt string) []provider.Exchange {
	exchanges := make([]provider.Exchange, 0, len(msgs)+1)

	if kind == provider.KindOpenAI {
		exchanges = append(exchanges, provider.Exchange{Role: provider.RoleSystem, Content: systemPrompt})
	}

	for _, msg := range msgs {
		if msg.MediaType != store.MediaTypeChat {
			continue
		}
		role := provider.RoleUser
		if msg.FromMe {
			role = provider.RoleAssistant
		}
		exchanges = append(exchanges, provider.Exchange{Role: role, Content: msg.Body})
	}

	return exchanges
}

// SystemPrompt renders the instruction block for one completion call
func SystemPrompt(settings *store.BotSettings, contactName string) string {
	name := SanitizeName(contactName)
	if name == "" {
		name = fallbackName
	}
	return fmt.Sprintf(systemPromptTemplate, name, settings.MaxTokens, settings.Prompt)
}

// SanitizeName reduces a contact name to its first word, stripped of
// non-alphanumeric characters and capped at 60 characters.
func SanitizeName(name string) string {
	first, _, _ := strings.Cut(strings.TrimSpace(name), " ")

	var sb strings.Builder
	for _, r := range first {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		}
	}

	sanitized := sb.String()
	if len(sanitized) > 60 {
		sanitized = sanitized[:60]
	}
	return sanitized
}
