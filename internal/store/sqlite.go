// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides ticket/contact/message persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	locks  *TicketLocks
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		locks:  NewTicketLocks(),
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS contacts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			number TEXT NOT NULL,
			company_id INTEGER NOT NULL DEFAULT 1,
			disable_bot INTEGER NOT NULL DEFAULT 0
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_contacts_number
			ON contacts(number);

		CREATE TABLE IF NOT EXISTS tickets (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			uuid TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			contact_id INTEGER NOT NULL,
			queue_id INTEGER NOT NULL DEFAULT 0,
			company_id INTEGER NOT NULL DEFAULT 1,
			channel_id TEXT NOT NULL,
			last_message TEXT NOT NULL DEFAULT '',
			unread_messages INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			FOREIGN KEY (contact_id) REFERENCES contacts(id)
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_tickets_channel
			ON tickets(channel_id);

		CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			ticket_id INTEGER NOT NULL,
			contact_id INTEGER NOT NULL,
			body TEXT NOT NULL,
			from_me INTEGER NOT NULL DEFAULT 0,
			media_type TEXT NOT NULL DEFAULT 'chat',
			media_url TEXT NOT NULL DEFAULT '',
			ack INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (ticket_id) REFERENCES tickets(id)
		);

		CREATE INDEX IF NOT EXISTS idx_messages_ticket_created
			ON messages(ticket_id, created_at);

		CREATE TABLE IF NOT EXISTS bot_settings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			queue_id INTEGER NOT NULL UNIQUE,
			name TEXT NOT NULL DEFAULT '',
			model TEXT NOT NULL,
			prompt TEXT NOT NULL DEFAULT '',
			voice TEXT NOT NULL DEFAULT 'texto',
			voice_key TEXT NOT NULL DEFAULT '',
			voice_region TEXT NOT NULL DEFAULT '',
			max_tokens INTEGER NOT NULL DEFAULT 256,
			temperature REAL NOT NULL DEFAULT 1.0,
			api_key TEXT NOT NULL DEFAULT '',
			transcription_api_key TEXT NOT NULL DEFAULT '',
			max_messages INTEGER NOT NULL DEFAULT 20
		);

		CREATE TABLE IF NOT EXISTS ticket_tracking (
			id TEXT PRIMARY KEY,
			ticket_id INTEGER NOT NULL,
			started_at DATETIME NOT NULL,
			finished_at DATETIME,
			FOREIGN KEY (ticket_id) REFERENCES tickets(id)
		);

		CREATE INDEX IF NOT EXISTS idx_tracking_ticket
			ON ticket_tracking(ticket_id, finished_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateTicket inserts a new ticket. The channel conversation must not
// already have one.
func (s *SQLiteStore) CreateTicket(ctx context.Context, ticket *Ticket) error {
	if ticket.UUID == "" {
		ticket.UUID = uuid.New().String()
	}
	now := time.Now()
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = now
	}
	ticket.UpdatedAt = now
	if ticket.Status == "" {
		ticket.Status = TicketStatusPending
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO tickets (uuid, status, contact_id, queue_id, company_id, channel_id, last_message, unread_messages, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ticket.UUID, ticket.Status, ticket.ContactID, ticket.QueueID, ticket.CompanyID,
		ticket.ChannelID, ticket.LastMessage, ticket.UnreadMessages, ticket.CreatedAt, ticket.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateTicket
		}
		return fmt.Errorf("inserting ticket: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading ticket id: %w", err)
	}
	ticket.ID = id
	return nil
}

// GetTicket returns a ticket by numeric id
func (s *SQLiteStore) GetTicket(ctx context.Context, id int64) (*Ticket, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, uuid, status, contact_id, queue_id, company_id, channel_id, last_message, unread_messages, created_at, updated_at
		FROM tickets WHERE id = ?`, id)
	return scanTicket(row)
}

// GetTicketByChannel returns the ticket bound to a transport conversation
func (s *SQLiteStore) GetTicketByChannel(ctx context.Context, channelID string) (*Ticket, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, uuid, status, contact_id, queue_id, company_id, channel_id, last_message, unread_messages, created_at, updated_at
		FROM tickets WHERE channel_id = ?`, channelID)
	return scanTicket(row)
}

// UpdateTicketStatus changes the lifecycle status of a ticket.
// Updates for the same ticket are serialized through the per-ticket lock.
func (s *SQLiteStore) UpdateTicketStatus(ctx context.Context, ticketID int64, status string) error {
	unlock := s.locks.Lock(ticketID)
	defer unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE tickets SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now(), ticketID)
	if err != nil {
		return fmt.Errorf("updating ticket status: %w", err)
	}
	return requireRow(res)
}

// UpdateTicketQueue moves a ticket to another queue and resets it to
// pending so a human attendant picks it up. Serialized per ticket.
func (s *SQLiteStore) UpdateTicketQueue(ctx context.Context, ticketID, queueID int64) error {
	unlock := s.locks.Lock(ticketID)
	defer unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE tickets SET queue_id = ?, status = ?, updated_at = ? WHERE id = ?`,
		queueID, TicketStatusPending, time.Now(), ticketID)
	if err != nil {
		return fmt.Errorf("updating ticket queue: %w", err)
	}
	return requireRow(res)
}

// CreateContact inserts a new contact
func (s *SQLiteStore) CreateContact(ctx context.Context, contact *Contact) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO contacts (name, number, company_id, disable_bot) VALUES (?, ?, ?, ?)`,
		contact.Name, contact.Number, contact.CompanyID, contact.DisableBot)
	if err != nil {
		return fmt.Errorf("inserting contact: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading contact id: %w", err)
	}
	contact.ID = id
	return nil
}

// GetContact returns a contact by id
func (s *SQLiteStore) GetContact(ctx context.Context, id int64) (*Contact, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, number, company_id, disable_bot FROM contacts WHERE id = ?`, id)
	return scanContact(row)
}

// GetContactByNumber returns a contact by its network address
func (s *SQLiteStore) GetContactByNumber(ctx context.Context, number string) (*Contact, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, number, company_id, disable_bot FROM contacts WHERE number = ?`, number)
	return scanContact(row)
}

// SaveMessage persists a message and refreshes the ticket's last message
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.MediaType == "" {
		msg.MediaType = MediaTypeChat
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, ticket_id, contact_id, body, from_me, media_type, media_url, ack, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.TicketID, msg.ContactID, msg.Body, msg.FromMe, msg.MediaType, msg.MediaURL, msg.Ack, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE tickets SET last_message = ?, updated_at = ? WHERE id = ?`,
		msg.Body, time.Now(), msg.TicketID)
	if err != nil {
		return fmt.Errorf("updating ticket last message: %w", err)
	}
	return nil
}

// TicketMessages returns up to limit messages for a ticket in
// chronological order (oldest first). limit <= 0 means no limit.
func (s *SQLiteStore) TicketMessages(ctx context.Context, ticketID int64, limit int) ([]*Message, error) {
	query := `
		SELECT id, ticket_id, contact_id, body, from_me, media_type, media_url, ack, created_at
		FROM messages WHERE ticket_id = ? ORDER BY created_at ASC, id ASC`
	args := []any{ticketID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		msg := &Message{}
		if err := rows.Scan(&msg.ID, &msg.TicketID, &msg.ContactID, &msg.Body, &msg.FromMe,
			&msg.MediaType, &msg.MediaURL, &msg.Ack, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// GetBotSettings returns the AI configuration for a queue
func (s *SQLiteStore) GetBotSettings(ctx context.Context, queueID int64) (*BotSettings, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, queue_id, name, model, prompt, voice, voice_key, voice_region,
		       max_tokens, temperature, api_key, transcription_api_key, max_messages
		FROM bot_settings WHERE queue_id = ?`, queueID)

	settings := &BotSettings{}
	err := row.Scan(&settings.ID, &settings.QueueID, &settings.Name, &settings.Model,
		&settings.Prompt, &settings.Voice, &settings.VoiceKey, &settings.VoiceRegion,
		&settings.MaxTokens, &settings.Temperature, &settings.APIKey,
		&settings.TranscriptionAPIKey, &settings.MaxMessages)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning bot settings: %w", err)
	}
	return settings, nil
}

// UpsertBotSettings creates or replaces the AI configuration for a queue
func (s *SQLiteStore) UpsertBotSettings(ctx context.Context, settings *BotSettings) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO bot_settings (queue_id, name, model, prompt, voice, voice_key, voice_region,
		                          max_tokens, temperature, api_key, transcription_api_key, max_messages)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(queue_id) DO UPDATE SET
			name = excluded.name,
			model = excluded.model,
			prompt = excluded.prompt,
			voice = excluded.voice,
			voice_key = excluded.voice_key,
			voice_region = excluded.voice_region,
			max_tokens = excluded.max_tokens,
			temperature = excluded.temperature,
			api_key = excluded.api_key,
			transcription_api_key = excluded.transcription_api_key,
			max_messages = excluded.max_messages`,
		settings.QueueID, settings.Name, settings.Model, settings.Prompt, settings.Voice,
		settings.VoiceKey, settings.VoiceRegion, settings.MaxTokens, settings.Temperature,
		settings.APIKey, settings.TranscriptionAPIKey, settings.MaxMessages)
	if err != nil {
		return fmt.Errorf("upserting bot settings: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil && settings.ID == 0 {
		settings.ID = id
	}
	return nil
}

// FindOrCreateTracking returns the open tracking record for a ticket,
// creating one if none exists.
func (s *SQLiteStore) FindOrCreateTracking(ctx context.Context, ticketID int64) (*TicketTracking, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, ticket_id, started_at, finished_at
		FROM ticket_tracking WHERE ticket_id = ? AND finished_at IS NULL
		ORDER BY started_at DESC LIMIT 1`, ticketID)

	tracking := &TicketTracking{}
	err := row.Scan(&tracking.ID, &tracking.TicketID, &tracking.StartedAt, &tracking.FinishedAt)
	if err == nil {
		return tracking, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("scanning tracking: %w", err)
	}

	tracking = &TicketTracking{
		ID:        uuid.New().String(),
		TicketID:  ticketID,
		StartedAt: time.Now(),
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO ticket_tracking (id, ticket_id, started_at) VALUES (?, ?, ?)`,
		tracking.ID, tracking.TicketID, tracking.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting tracking: %w", err)
	}
	return tracking, nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanTicket(row *sql.Row) (*Ticket, error) {
	ticket := &Ticket{}
	err := row.Scan(&ticket.ID, &ticket.UUID, &ticket.Status, &ticket.ContactID, &ticket.QueueID,
		&ticket.CompanyID, &ticket.ChannelID, &ticket.LastMessage, &ticket.UnreadMessages,
		&ticket.CreatedAt, &ticket.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning ticket: %w", err)
	}
	return ticket, nil
}

func scanContact(row *sql.Row) (*Contact, error) {
	contact := &Contact{}
	err := row.Scan(&contact.ID, &contact.Name, &contact.Number, &contact.CompanyID, &contact.DisableBot)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning contact: %w", err)
	}
	return contact, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
// modernc.org/sqlite surfaces these as formatted errors, so match on text.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE")
}
