// ABOUTME: Fixed user-facing texts delivered on orchestration failure paths
// ABOUTME: Once a flow is entered the contact always receives one of these or a reply

package bot

// replyPrefix tags bot-authored replies with a left-to-right mark so the
// inbound listener can tell them apart from human attendant messages.
const replyPrefix = "‎"

const (
	// apologyText is delivered when a provider completion fails
	apologyText = "Disculpe, estoy con dificultades técnicas para procesar su solicitud en este momento. Por favor, intente nuevamente más tarde."

	// audioNotFoundText is delivered when the referenced voice note is not on disk
	audioNotFoundText = "Disculpe, no se pudo procesar su audio. Por favor, intente nuevamente."

	// audioErrorTextFmt is delivered when transcription fails, with the error detail
	audioErrorTextFmt = "Disculpe, hubo un error al procesar su mensaje de audio: %s"

	// audioEmptyText is delivered when transcription succeeds but yields no text
	audioEmptyText = "Disculpe, no conseguí entender el audio. Por favor, intente nuevamente o envíe un mensaje de texto."

	// transcriptEchoFmt confirms what the bot understood from a voice note
	transcriptEchoFmt = "🎤 *Su mensaje de voz:* %s"
)
