// ABOUTME: Post-processing of raw model replies before delivery
// ABOUTME: Detects the transfer directive and selects text or voice delivery

package bot

import (
	"regexp"
	"strings"
)

// TransferDirective is the fixed phrase a model emits to signal hand-off
// to a human queue. Detection is case-insensitive and the phrase is
// stripped from user-visible output.
const TransferDirective = "Acción: Transferir al sector de atención"

// VoiceDisabled is the sentinel voice setting selecting plain text delivery
const VoiceDisabled = "texto"

// DeliveryMode selects how a reply reaches the contact
type DeliveryMode string

const (
	ModeText  DeliveryMode = "text"
	ModeVoice DeliveryMode = "voice"
)

// AIResponse is a model reply after post-processing
type AIResponse struct {
	Text              string
	TransferRequested bool
	Mode              DeliveryMode
}

var directivePattern = regexp.MustCompile(`(?i)\s*` + regexp.QuoteMeta(TransferDirective) + `\s*`)

// ProcessResponse inspects a raw reply for the transfer directive,
// strips every occurrence, and picks the delivery mode from the voice
// setting. The directive check runs before delivery-mode selection so the
// stripped text is what gets spoken or sent.
func ProcessResponse(raw, voiceSetting string) AIResponse {
	resp := AIResponse{Text: strings.TrimSpace(raw), Mode: ModeVoice}

	if directivePattern.MatchString(resp.Text) {
		resp.TransferRequested = true
		resp.Text = strings.TrimSpace(directivePattern.ReplaceAllString(resp.Text, " "))
	}

	if voiceSetting == VoiceDisabled {
		resp.Mode = ModeText
	}
	return resp
}
