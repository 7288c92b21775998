// ABOUTME: Matrix bridge for ronda-gateway
// ABOUTME: Routes room messages into the orchestrator and delivers replies back

package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/adanzweig/ronda-backend/internal/bot"
	"github.com/adanzweig/ronda-backend/internal/config"
	"github.com/adanzweig/ronda-backend/internal/dedupe"
	"github.com/adanzweig/ronda-backend/internal/store"
)

// networkTimeout bounds Matrix API calls issued outside the sync loop.
const networkTimeout = 30 * time.Second

// Handler receives fully resolved inbound requests. Satisfied by
// bot.Orchestrator.
type Handler interface {
	Handle(ctx context.Context, req *bot.Request)
}

// Bridge connects a Matrix homeserver to the orchestrator. One bridge
// serves one company; every allowed room maps to one ticket.
type Bridge struct {
	matrix    *mautrix.Client
	store     store.Store
	handler   Handler
	seen      *dedupe.Tracker
	locks     *store.TicketLocks
	logger    *slog.Logger
	userID    id.UserID
	mediaRoot string

	companyID      int64
	defaultQueueID int64
	allowedRooms   []string

	// ctx is the parent context for message processing goroutines
	ctx    context.Context
	cancel context.CancelFunc
}

// NewBridge creates a Matrix bridge from the given configuration.
func NewBridge(cfg *config.Config, st store.Store, handler Handler, seen *dedupe.Tracker, logger *slog.Logger) (*Bridge, error) {
	client, err := mautrix.NewClient(cfg.Matrix.Homeserver, id.UserID(cfg.Matrix.UserID), cfg.Matrix.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("creating matrix client: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Bridge{
		matrix:         client,
		store:          st,
		handler:        handler,
		seen:           seen,
		locks:          store.NewTicketLocks(),
		logger:         logger.With("component", "matrix"),
		userID:         id.UserID(cfg.Matrix.UserID),
		mediaRoot:      cfg.Media.Root,
		companyID:      cfg.Tenant.CompanyID,
		defaultQueueID: cfg.Tenant.DefaultQueueID,
		allowedRooms:   cfg.Matrix.AllowedRooms,
	}, nil
}

// SetHandler installs the inbound message handler. The orchestrator is
// built with the bridge as its transport, so the handler arrives after
// construction. Must be called before Run.
func (b *Bridge) SetHandler(handler Handler) {
	b.handler = handler
}

// Run starts the bridge and blocks until the context is cancelled or the
// sync loop fails.
func (b *Bridge) Run(ctx context.Context) error {
	if b.handler == nil {
		return fmt.Errorf("no handler installed")
	}

	b.logger.Info("starting matrix bridge",
		"homeserver", b.matrix.HomeserverURL.String(),
		"user_id", b.userID.String(),
	)

	b.ctx, b.cancel = context.WithCancel(ctx)
	defer b.cancel()

	syncer, ok := b.matrix.Syncer.(*mautrix.DefaultSyncer)
	if !ok {
		return fmt.Errorf("unexpected syncer type: %T", b.matrix.Syncer)
	}
	syncer.OnEventType(event.EventMessage, b.handleMessageEvent)

	b.logger.Info("connecting to matrix homeserver")

	syncErr := make(chan error, 1)
	go func() {
		syncErr <- b.matrix.SyncWithContext(b.ctx)
	}()

	b.logger.Info("matrix bridge running")

	select {
	case <-ctx.Done():
		b.logger.Info("shutting down matrix bridge")
		b.cancel()
		return nil
	case err := <-syncErr:
		return fmt.Errorf("matrix sync failed: %w", err)
	}
}

// handleMessageEvent filters an incoming room event and dispatches it to
// a processing goroutine.
func (b *Bridge) handleMessageEvent(ctx context.Context, evt *event.Event) {
	// Ignore our own messages
	if evt.Sender == b.userID {
		return
	}

	if b.seen != nil && b.seen.Seen(evt.ID.String()) {
		b.logger.Debug("dropping redelivered event", "event_id", evt.ID.String())
		return
	}

	if !b.isRoomAllowed(evt.RoomID.String()) {
		b.logger.Debug("ignoring message from non-allowed room", "room", evt.RoomID.String())
		return
	}

	content, ok := evt.Content.Parsed.(*event.MessageEventContent)
	if !ok {
		return
	}

	switch content.MsgType {
	case event.MsgText, event.MsgAudio:
	default:
		return
	}

	b.logger.Info("received message",
		"room", evt.RoomID.String(),
		"sender", evt.Sender.String(),
		"type", string(content.MsgType),
	)

	// Process in a goroutine so the sync loop is never blocked
	go b.processEvent(b.ctx, evt, content)
}

// processEvent resolves the contact and ticket for the event, persists
// the inbound message and runs the orchestrator. Events for the same
// ticket are serialized.
func (b *Bridge) processEvent(ctx context.Context, evt *event.Event, content *event.MessageEventContent) {
	contact, err := b.resolveContact(ctx, evt.Sender)
	if err != nil {
		b.logger.Error("failed to resolve contact",
			"sender", evt.Sender.String(),
			"error", err)
		return
	}

	ticket, err := b.resolveTicket(ctx, evt.RoomID, contact)
	if err != nil {
		b.logger.Error("failed to resolve ticket",
			"room", evt.RoomID.String(),
			"error", err)
		return
	}

	unlock := b.locks.Lock(ticket.ID)
	defer unlock()

	botEvent := &bot.Event{
		ID:        evt.ID.String(),
		ChannelID: evt.RoomID.String(),
	}
	inbound := &store.Message{
		ID:        evt.ID.String(),
		TicketID:  ticket.ID,
		ContactID: contact.ID,
		MediaType: store.MediaTypeChat,
	}

	switch content.MsgType {
	case event.MsgText:
		botEvent.Body = content.Body
		inbound.Body = content.Body
	case event.MsgAudio:
		botEvent.HasAudio = true
		name, err := b.downloadVoiceNote(ctx, ticket, content)
		if err != nil {
			b.logger.Error("failed to download voice note",
				"ticket_id", ticket.ID,
				"error", err)
			return
		}
		inbound.Body = content.Body
		inbound.MediaType = store.MediaTypeAudio
		inbound.MediaURL = name
	}

	if err := b.store.SaveMessage(ctx, inbound); err != nil {
		b.logger.Error("failed to persist inbound message",
			"ticket_id", ticket.ID,
			"error", err)
	}

	settings, err := b.store.GetBotSettings(ctx, ticket.QueueID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		b.logger.Error("failed to load bot settings",
			"queue_id", ticket.QueueID,
			"error", err)
	}

	tracking, err := b.store.FindOrCreateTracking(ctx, ticket.ID)
	if err != nil {
		b.logger.Error("failed to open tracking record",
			"ticket_id", ticket.ID,
			"error", err)
	}

	req := &bot.Request{
		Settings: settings,
		Event:    botEvent,
		Ticket:   ticket,
		Contact:  contact,
		Tracking: tracking,
	}
	if botEvent.HasAudio {
		req.Media = inbound
	}

	b.handler.Handle(ctx, req)
}

// resolveContact finds the contact for a Matrix sender, creating it on
// first sight. The full user id doubles as the contact number.
func (b *Bridge) resolveContact(ctx context.Context, sender id.UserID) (*store.Contact, error) {
	contact, err := b.store.GetContactByNumber(ctx, sender.String())
	if err == nil {
		return contact, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	contact = &store.Contact{
		Name:      sender.Localpart(),
		Number:    sender.String(),
		CompanyID: b.companyID,
	}
	if err := b.store.CreateContact(ctx, contact); err != nil {
		return nil, err
	}
	return contact, nil
}

// resolveTicket finds the ticket for a room, creating a pending one in
// the default queue when the room has none yet.
func (b *Bridge) resolveTicket(ctx context.Context, roomID id.RoomID, contact *store.Contact) (*store.Ticket, error) {
	ticket, err := b.store.GetTicketByChannel(ctx, roomID.String())
	if err == nil {
		return ticket, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	ticket = &store.Ticket{
		UUID:      uuid.NewString(),
		Status:    store.TicketStatusPending,
		ContactID: contact.ID,
		QueueID:   b.defaultQueueID,
		CompanyID: b.companyID,
		ChannelID: roomID.String(),
	}
	err = b.store.CreateTicket(ctx, ticket)
	if errors.Is(err, store.ErrDuplicateTicket) {
		// Another event for the same room won the race
		return b.store.GetTicketByChannel(ctx, roomID.String())
	}
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// downloadVoiceNote fetches the audio behind an inbound event into the
// company media directory and returns the stored file name.
func (b *Bridge) downloadVoiceNote(ctx context.Context, ticket *store.Ticket, content *event.MessageEventContent) (string, error) {
	uri, err := id.ParseContentURI(string(content.URL))
	if err != nil {
		return "", fmt.Errorf("parsing media uri: %w", err)
	}

	data, err := b.matrix.DownloadBytes(ctx, uri)
	if err != nil {
		return "", fmt.Errorf("downloading media: %w", err)
	}

	mimeType := ""
	if content.Info != nil {
		mimeType = content.Info.MimeType
	}

	dir := filepath.Join(b.mediaRoot, fmt.Sprintf("company%d", ticket.CompanyID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating media dir: %w", err)
	}

	name := fmt.Sprintf("in_%d_%d%s", ticket.ID, time.Now().UnixMilli(), ExtensionForMIME(mimeType))
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("writing media file: %w", err)
	}
	return name, nil
}

// isRoomAllowed checks the room against the configured allow list. An
// empty list allows every room.
func (b *Bridge) isRoomAllowed(roomID string) bool {
	if len(b.allowedRooms) == 0 {
		return true
	}
	for _, allowed := range b.allowedRooms {
		if allowed == roomID {
			return true
		}
	}
	return false
}

// SendText delivers a plain text reply, with a rendered HTML body so
// markdown in model output displays properly.
func (b *Bridge) SendText(ctx context.Context, channelID, text string) (string, error) {
	sendCtx, cancel := context.WithTimeout(ctx, networkTimeout)
	defer cancel()

	content := &event.MessageEventContent{
		MsgType: event.MsgText,
		Body:    text,
	}
	if html, ok := RenderMarkdown(text); ok {
		content.Format = event.FormatHTML
		content.FormattedBody = html
	}

	resp, err := b.matrix.SendMessageEvent(sendCtx, id.RoomID(channelID), event.EventMessage, content)
	if err != nil {
		return "", fmt.Errorf("sending text message: %w", err)
	}
	return resp.EventID.String(), nil
}

// SendAudio uploads a local audio file and delivers it to the room,
// flagged as a voice message when requested.
func (b *Bridge) SendAudio(ctx context.Context, channelID, filePath, mimeType string, voiceNote bool) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("reading audio file: %w", err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, networkTimeout)
	defer cancel()

	upload, err := b.matrix.UploadMedia(sendCtx, mautrix.ReqUploadMedia{
		ContentBytes: data,
		ContentType:  mimeType,
		FileName:     filepath.Base(filePath),
	})
	if err != nil {
		return "", fmt.Errorf("uploading audio: %w", err)
	}

	content := &event.MessageEventContent{
		MsgType: event.MsgAudio,
		Body:    filepath.Base(filePath),
		URL:     upload.ContentURI.CUString(),
		Info: &event.FileInfo{
			MimeType: mimeType,
			Size:     len(data),
		},
	}
	if voiceNote {
		content.MSC3245Voice = &event.MSC3245Voice{}
	}

	resp, err := b.matrix.SendMessageEvent(sendCtx, id.RoomID(channelID), event.EventMessage, content)
	if err != nil {
		return "", fmt.Errorf("sending audio message: %w", err)
	}
	return resp.EventID.String(), nil
}

// ExtensionForMIME maps an audio MIME type to the file extension used
// when storing downloads. Matrix voice notes are usually ogg/opus.
func ExtensionForMIME(mimeType string) string {
	// Strip codec parameters such as "; codecs=opus"
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	switch strings.TrimSpace(mimeType) {
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	case "audio/aac":
		return ".aac"
	case "audio/flac":
		return ".flac"
	case "audio/mp4", "audio/m4a":
		return ".m4a"
	default:
		return ".ogg"
	}
}
