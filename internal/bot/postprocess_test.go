// ABOUTME: Tests for response post-processing
// ABOUTME: Verifies transfer directive detection, stripping and delivery-mode selection

package bot

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProcessResponse_DetectsAndStripsDirective(t *testing.T) {
	resp := ProcessResponse("Acción: Transferir al sector de atención Gracias", VoiceDisabled)

	assert.True(t, resp.TransferRequested)
	assert.Equal(t, "Gracias", resp.Text)
	assert.Equal(t, ModeText, resp.Mode)
}

func TestProcessResponse_CaseInsensitive(t *testing.T) {
	resp := ProcessResponse("ACCIÓN: TRANSFERIR AL SECTOR DE ATENCIÓN un momento por favor", VoiceDisabled)

	assert.True(t, resp.TransferRequested)
	assert.Equal(t, "un momento por favor", resp.Text)
}

func TestProcessResponse_StripsEveryOccurrence(t *testing.T) {
	raw := "Entendido. Acción: Transferir al sector de atención Le paso. acción: transferir al sector de atención Gracias."
	resp := ProcessResponse(raw, VoiceDisabled)

	assert.True(t, resp.TransferRequested)
	assert.Equal(t, "Entendido. Le paso. Gracias.", resp.Text)
	assert.NotContains(t, strings.ToLower(resp.Text), "transferir al sector")
}

func TestProcessResponse_NoDirective(t *testing.T) {
	resp := ProcessResponse("Su pedido llega mañana.", VoiceDisabled)

	assert.False(t, resp.TransferRequested)
	assert.Equal(t, "Su pedido llega mañana.", resp.Text)
}

func TestProcessResponse_VoiceModeSelection(t *testing.T) {
	assert.Equal(t, ModeText, ProcessResponse("hola", "texto").Mode)
	assert.Equal(t, ModeVoice, ProcessResponse("hola", "nova").Mode)
	assert.Equal(t, ModeVoice, ProcessResponse("hola", "").Mode)
}

func TestProcessResponse_TrimsWhitespace(t *testing.T) {
	resp := ProcessResponse("  \n respuesta \n ", VoiceDisabled)
	assert.Equal(t, "respuesta", resp.Text)
}
