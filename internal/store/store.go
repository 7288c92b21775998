// ABOUTME: Store interface and data types for ronda-backend persistence
// ABOUTME: Defines Ticket, Contact, Message, BotSettings and the Store interface

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateTicket is returned when trying to create a ticket whose
// channel conversation already has one
var ErrDuplicateTicket = errors.New("ticket already exists")

// Ticket statuses
const (
	TicketStatusPending = "pending"
	TicketStatusOpen    = "open"
	TicketStatusClosed  = "closed"
)

// MediaType constants for message kinds. Only MediaTypeChat messages
// contribute to AI transcripts.
const (
	MediaTypeChat  = "chat"
	MediaTypeAudio = "audio"
	MediaTypeImage = "image"
	MediaTypeVideo = "video"
	MediaTypeFile  = "file"
)

// Ticket represents a customer conversation thread being handled by support
type Ticket struct {
	ID             int64
	UUID           string
	Status         string
	ContactID      int64
	QueueID        int64
	CompanyID      int64
	ChannelID      string // transport conversation identifier (e.g. Matrix room)
	LastMessage    string
	UnreadMessages int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Contact is the customer on the other side of a ticket
type Contact struct {
	ID         int64
	Name       string
	Number     string
	CompanyID  int64
	DisableBot bool
}

// Message represents a single persisted message within a ticket
type Message struct {
	ID        string
	TicketID  int64
	ContactID int64
	Body      string
	FromMe    bool
	MediaType string
	MediaURL  string
	Ack       int
	CreatedAt time.Time
}

// BotSettings is the per-queue AI configuration. It is read-only for the
// duration of one orchestration call.
type BotSettings struct {
	ID                  int64
	QueueID             int64
	Name                string
	Model               string
	Prompt              string
	Voice               string // "texto" selects plain text delivery
	VoiceKey            string
	VoiceRegion         string
	MaxTokens           int
	Temperature         float64
	APIKey              string
	TranscriptionAPIKey string // optional separate key for speech-to-text
	MaxMessages         int
}

// TicketTracking is the audit record threaded through one orchestration call
type TicketTracking struct {
	ID         string
	TicketID   int64
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Store defines the interface for ticket and message persistence
type Store interface {
	// Tickets
	CreateTicket(ctx context.Context, ticket *Ticket) error
	GetTicket(ctx context.Context, id int64) (*Ticket, error)
	GetTicketByChannel(ctx context.Context, channelID string) (*Ticket, error)
	UpdateTicketStatus(ctx context.Context, ticketID int64, status string) error
	UpdateTicketQueue(ctx context.Context, ticketID, queueID int64) error

	// Contacts
	CreateContact(ctx context.Context, contact *Contact) error
	GetContact(ctx context.Context, id int64) (*Contact, error)
	GetContactByNumber(ctx context.Context, number string) (*Contact, error)

	// Messages
	SaveMessage(ctx context.Context, msg *Message) error
	TicketMessages(ctx context.Context, ticketID int64, limit int) ([]*Message, error)

	// Bot settings (per queue)
	GetBotSettings(ctx context.Context, queueID int64) (*BotSettings, error)
	UpsertBotSettings(ctx context.Context, settings *BotSettings) error

	// Tracking
	FindOrCreateTracking(ctx context.Context, ticketID int64) (*TicketTracking, error)

	// Close releases any resources held by the store
	Close() error
}
