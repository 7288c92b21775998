// ABOUTME: Conversation orchestrator: turns an inbound ticket message into an AI reply
// ABOUTME: Validates preconditions, drives text/audio flows and recovers every failure locally

package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"

	"github.com/adanzweig/ronda-backend/internal/audio"
	"github.com/adanzweig/ronda-backend/internal/provider"
	"github.com/adanzweig/ronda-backend/internal/store"
	"github.com/adanzweig/ronda-backend/internal/transcript"
)

// Transport sends messages to the chat network. Implementations wrap the
// messaging client; delivery ids are opaque handles for the message log.
type Transport interface {
	SendText(ctx context.Context, channelID, text string) (string, error)
	SendAudio(ctx context.Context, channelID, filePath, mimeType string, voiceNote bool) (string, error)
}

// Store is what the orchestrator needs from persistence
type Store interface {
	TicketMessages(ctx context.Context, ticketID int64, limit int) ([]*store.Message, error)
	SaveMessage(ctx context.Context, msg *store.Message) error
	UpdateTicketQueue(ctx context.Context, ticketID, queueID int64) error
}

// Sessions is what the orchestrator needs from the session registry
type Sessions interface {
	GetOrCreate(ctx context.Context, ticketID int64, kind provider.Kind, apiKey string) (provider.Client, error)
}

// AudioPipeline is what the orchestrator needs from the audio layer
type AudioPipeline interface {
	CompanyDir(companyID int64) string
	SpeechFile(ctx context.Context, text, voice string, companyID, ticketID int64) (string, error)
	CleanupFiles(paths ...string)
	TranscribeFile(ctx context.Context, client provider.Client, path string) (string, error)
}

// Event is an already-decoded inbound message event from the transport
type Event struct {
	ID        string // persisted message id of this event, excluded from history
	Body      string // textual body, empty for pure media messages
	HasAudio  bool   // the message carries a voice note
	Stub      bool   // non-content system event from the transport
	ChannelID string // transport conversation to reply into
}

// Request carries everything one orchestration call needs. Settings are
// read-only; Media is the already-downloaded voice note record, supplied
// by the caller when available.
type Request struct {
	Settings *store.BotSettings
	Event    *Event
	Ticket   *store.Ticket
	Contact  *store.Contact
	Media    *store.Message
	Tracking *store.TicketTracking
}

// Orchestrator coordinates providers, sessions, the audio pipeline and
// the transport for one inbound message at a time.
type Orchestrator struct {
	sessions Sessions
	store    Store
	trans    Transport
	pipeline AudioPipeline
	logger   *slog.Logger
}

// New creates an Orchestrator
func New(sessions Sessions, st Store, trans Transport, pipeline AudioPipeline, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		sessions: sessions,
		store:    st,
		trans:    trans,
		pipeline: pipeline,
		logger:   logger.With("component", "bot"),
	}
}

// Handle processes one inbound message. It never returns an error: guard
// misses exit silently, and once a flow is entered every failure resolves
// to a delivered message.
func (o *Orchestrator) Handle(ctx context.Context, req *Request) {
	if req == nil || req.Event == nil || req.Ticket == nil || req.Contact == nil {
		return
	}
	// Entry guards: no conversation context exists yet, so these abort
	// without producing output.
	if req.Contact.DisableBot {
		return
	}
	if req.Event.Stub {
		return
	}
	if req.Event.Body == "" && !req.Event.HasAudio {
		return
	}
	if req.Settings == nil {
		return
	}

	trackingID := ""
	if req.Tracking != nil {
		trackingID = req.Tracking.ID
	}
	o.logger.Debug("handling inbound message",
		"ticket_id", req.Ticket.ID,
		"tracking_id", trackingID,
		"has_audio", req.Event.HasAudio)

	kind, err := provider.KindForModel(req.Settings.Model)
	if err != nil {
		o.logger.Error("unsupported model in queue settings",
			"ticket_id", req.Ticket.ID,
			"model", req.Settings.Model)
		return
	}

	client, err := o.sessions.GetOrCreate(ctx, req.Ticket.ID, kind, req.Settings.APIKey)
	if err != nil {
		o.logger.Error("provider session unavailable",
			"ticket_id", req.Ticket.ID,
			"provider", string(kind),
			"error", err)
		return
	}

	history, err := o.store.TicketMessages(ctx, req.Ticket.ID, req.Settings.MaxMessages)
	if err != nil {
		o.logger.Error("failed to load ticket history",
			"ticket_id", req.Ticket.ID,
			"error", err)
		history = nil
	}
	// The transport persists the inbound message before invoking the
	// orchestrator, so it shows up in history. The current turn travels
	// separately as the final exchange and must not appear twice.
	if req.Event.ID != "" {
		filtered := history[:0]
		for _, m := range history {
			if m.ID != req.Event.ID {
				filtered = append(filtered, m)
			}
		}
		history = filtered
	}

	systemPrompt := transcript.SystemPrompt(req.Settings, req.Contact.Name)
	exchanges := transcript.Build(history, kind, systemPrompt)

	switch {
	case req.Event.Body != "":
		o.handleText(ctx, req, client, kind, exchanges, systemPrompt, req.Event.Body)
	case req.Event.HasAudio:
		if req.Media == nil {
			// Media availability is an external precondition, not retried here
			o.logger.Debug("audio message without downloaded media, skipping",
				"ticket_id", req.Ticket.ID)
			return
		}
		o.handleAudio(ctx, req, client, kind, exchanges, systemPrompt)
	}
}

// handleText runs the completion for a textual inbound message
func (o *Orchestrator) handleText(ctx context.Context, req *Request, client provider.Client, kind provider.Kind, exchanges []provider.Exchange, systemPrompt, body string) {
	exchanges = append(exchanges, provider.Exchange{Role: provider.RoleUser, Content: body})

	raw, err := o.complete(ctx, req, client, kind, exchanges, systemPrompt)
	if err != nil {
		o.logger.Error("completion failed",
			"ticket_id", req.Ticket.ID,
			"provider", string(kind),
			"error", err)
		o.deliverText(ctx, req, apologyText)
		return
	}

	o.deliver(ctx, req, ProcessResponse(raw, req.Settings.Voice))
}

// handleAudio transcribes a voice note, echoes the transcription, then
// runs the completion on it.
func (o *Orchestrator) handleAudio(ctx context.Context, req *Request, client provider.Client, kind provider.Kind, exchanges []provider.Exchange, systemPrompt string) {
	audioPath := filepath.Join(o.pipeline.CompanyDir(req.Ticket.CompanyID), path.Base(req.Media.MediaURL))

	transcription, err := o.pipeline.TranscribeFile(ctx, client, audioPath)
	if err != nil {
		if errors.Is(err, audio.ErrAudioNotFound) {
			o.logger.Warn("voice note missing on disk",
				"ticket_id", req.Ticket.ID,
				"path", audioPath)
			o.deliverText(ctx, req, audioNotFoundText)
			return
		}
		o.logger.Error("transcription failed",
			"ticket_id", req.Ticket.ID,
			"provider", string(kind),
			"error", err)
		o.deliverText(ctx, req, fmt.Sprintf(audioErrorTextFmt, err))
		return
	}

	if transcription == "" {
		o.deliverText(ctx, req, audioEmptyText)
		return
	}

	// Confirm what was understood before answering
	o.deliverText(ctx, req, fmt.Sprintf(transcriptEchoFmt, transcription))

	exchanges = append(exchanges, provider.Exchange{Role: provider.RoleUser, Content: transcription})
	raw, err := o.complete(ctx, req, client, kind, exchanges, systemPrompt)
	if err != nil {
		o.logger.Error("completion failed after transcription",
			"ticket_id", req.Ticket.ID,
			"provider", string(kind),
			"error", err)
		o.deliverText(ctx, req, apologyText)
		return
	}

	o.deliver(ctx, req, ProcessResponse(raw, req.Settings.Voice))
}

// complete performs the provider call. The system prompt travels inside
// the exchanges for OpenAI and through the instruction slot for Gemini,
// never both.
func (o *Orchestrator) complete(ctx context.Context, req *Request, client provider.Client, kind provider.Kind, exchanges []provider.Exchange, systemPrompt string) (string, error) {
	creq := &provider.CompletionRequest{
		Exchanges:   exchanges,
		Model:       req.Settings.Model,
		MaxTokens:   req.Settings.MaxTokens,
		Temperature: req.Settings.Temperature,
	}
	if kind == provider.KindGemini {
		creq.Instructions = systemPrompt
	}
	return client.Complete(ctx, creq)
}

// deliver sends a post-processed reply, triggering the queue transfer
// first when requested so the directive never reaches the contact.
func (o *Orchestrator) deliver(ctx context.Context, req *Request, resp AIResponse) {
	if resp.TransferRequested {
		if err := o.store.UpdateTicketQueue(ctx, req.Ticket.ID, req.Settings.QueueID); err != nil {
			o.logger.Error("queue transfer failed",
				"ticket_id", req.Ticket.ID,
				"queue_id", req.Settings.QueueID,
				"error", err)
		}
	}

	if resp.Text == "" {
		return
	}

	if resp.Mode == ModeVoice {
		if o.deliverVoice(ctx, req, resp.Text) {
			return
		}
		// Mandatory fallback: the reply must never be lost to a
		// synthesis or send failure.
	}

	o.deliverText(ctx, req, replyPrefix+" "+resp.Text)
}

// deliverVoice synthesizes and sends the reply as a voice note,
// reporting whether delivery succeeded. Produced files are deleted after
// the send attempt on every path.
func (o *Orchestrator) deliverVoice(ctx context.Context, req *Request, text string) bool {
	filePath, err := o.pipeline.SpeechFile(ctx, text, req.Settings.Voice, req.Ticket.CompanyID, req.Ticket.ID)
	if err != nil {
		o.logger.Error("voice synthesis failed, falling back to text",
			"ticket_id", req.Ticket.ID,
			"error", err)
		return false
	}
	defer o.pipeline.CleanupFiles(filePath)

	deliveryID, err := o.trans.SendAudio(ctx, req.Event.ChannelID, filePath, "audio/mpeg", true)
	if err != nil {
		o.logger.Error("voice send failed, falling back to text",
			"ticket_id", req.Ticket.ID,
			"error", err)
		return false
	}

	o.record(ctx, req, &store.Message{
		ID:        deliveryID,
		TicketID:  req.Ticket.ID,
		ContactID: req.Contact.ID,
		Body:      text,
		FromMe:    true,
		MediaType: store.MediaTypeAudio,
		MediaURL:  path.Base(filePath),
	})
	return true
}

// deliverText sends a plain text message and records it
func (o *Orchestrator) deliverText(ctx context.Context, req *Request, text string) {
	deliveryID, err := o.trans.SendText(ctx, req.Event.ChannelID, text)
	if err != nil {
		o.logger.Error("text send failed",
			"ticket_id", req.Ticket.ID,
			"error", err)
		return
	}

	o.record(ctx, req, &store.Message{
		ID:        deliveryID,
		TicketID:  req.Ticket.ID,
		ContactID: req.Contact.ID,
		Body:      text,
		FromMe:    true,
		MediaType: store.MediaTypeChat,
	})
}

// record persists a delivered message; failures are logged, not surfaced
func (o *Orchestrator) record(ctx context.Context, req *Request, msg *store.Message) {
	if err := o.store.SaveMessage(ctx, msg); err != nil {
		o.logger.Error("failed to record outbound message",
			"ticket_id", req.Ticket.ID,
			"error", err)
	}
}
