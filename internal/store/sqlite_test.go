// ABOUTME: Tests for the SQLite store implementation
// ABOUTME: Verifies ticket/contact/message persistence and history ordering

package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestContact(t *testing.T, s *SQLiteStore, number string) *Contact {
	t.Helper()
	contact := &Contact{Name: "Maria Lopez", Number: number, CompanyID: 1}
	require.NoError(t, s.CreateContact(context.Background(), contact))
	return contact
}

func createTestTicket(t *testing.T, s *SQLiteStore, contact *Contact, channelID string) *Ticket {
	t.Helper()
	ticket := &Ticket{
		ContactID: contact.ID,
		QueueID:   1,
		CompanyID: 1,
		ChannelID: channelID,
	}
	require.NoError(t, s.CreateTicket(context.Background(), ticket))
	return ticket
}

func TestCreateTicket_AssignsIDAndDefaults(t *testing.T) {
	s := createTestStore(t)
	contact := createTestContact(t, s, "+551199990001")

	ticket := createTestTicket(t, s, contact, "!room1:example.org")

	assert.NotZero(t, ticket.ID)
	assert.NotEmpty(t, ticket.UUID)
	assert.Equal(t, TicketStatusPending, ticket.Status)
}

func TestCreateTicket_DuplicateChannel(t *testing.T) {
	s := createTestStore(t)
	contact := createTestContact(t, s, "+551199990002")
	createTestTicket(t, s, contact, "!room2:example.org")

	dup := &Ticket{ContactID: contact.ID, ChannelID: "!room2:example.org"}
	err := s.CreateTicket(context.Background(), dup)
	assert.ErrorIs(t, err, ErrDuplicateTicket)
}

func TestGetTicketByChannel(t *testing.T) {
	s := createTestStore(t)
	contact := createTestContact(t, s, "+551199990003")
	created := createTestTicket(t, s, contact, "!room3:example.org")

	found, err := s.GetTicketByChannel(context.Background(), "!room3:example.org")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = s.GetTicketByChannel(context.Background(), "!missing:example.org")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateTicketQueue_SetsPending(t *testing.T) {
	s := createTestStore(t)
	contact := createTestContact(t, s, "+551199990004")
	ticket := createTestTicket(t, s, contact, "!room4:example.org")

	require.NoError(t, s.UpdateTicketStatus(context.Background(), ticket.ID, TicketStatusOpen))
	require.NoError(t, s.UpdateTicketQueue(context.Background(), ticket.ID, 7))

	updated, err := s.GetTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), updated.QueueID)
	assert.Equal(t, TicketStatusPending, updated.Status)
}

func TestUpdateTicketStatus_NotFound(t *testing.T) {
	s := createTestStore(t)
	err := s.UpdateTicketStatus(context.Background(), 9999, TicketStatusClosed)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTicketMessages_ChronologicalWithLimit(t *testing.T) {
	s := createTestStore(t)
	contact := createTestContact(t, s, "+551199990005")
	ticket := createTestTicket(t, s, contact, "!room5:example.org")

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		msg := &Message{
			TicketID:  ticket.ID,
			ContactID: contact.ID,
			Body:      fmt.Sprintf("message %d", i),
			FromMe:    i%2 == 1,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, s.SaveMessage(context.Background(), msg))
	}

	msgs, err := s.TicketMessages(context.Background(), ticket.ID, 3)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "message 0", msgs[0].Body)
	assert.Equal(t, "message 1", msgs[1].Body)
	assert.Equal(t, "message 2", msgs[2].Body)
	assert.True(t, msgs[0].CreatedAt.Before(msgs[1].CreatedAt))
}

func TestSaveMessage_UpdatesLastMessage(t *testing.T) {
	s := createTestStore(t)
	contact := createTestContact(t, s, "+551199990006")
	ticket := createTestTicket(t, s, contact, "!room6:example.org")

	msg := &Message{TicketID: ticket.ID, ContactID: contact.ID, Body: "hola"}
	require.NoError(t, s.SaveMessage(context.Background(), msg))
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, MediaTypeChat, msg.MediaType)

	updated, err := s.GetTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "hola", updated.LastMessage)
}

func TestBotSettings_UpsertAndGet(t *testing.T) {
	s := createTestStore(t)

	settings := &BotSettings{
		QueueID:     3,
		Name:        "Sofia",
		Model:       "gpt-4o",
		Prompt:      "Eres una asistente de soporte.",
		Voice:       "texto",
		MaxTokens:   300,
		Temperature: 0.7,
		APIKey:      "sk-test",
		MaxMessages: 10,
	}
	require.NoError(t, s.UpsertBotSettings(context.Background(), settings))

	got, err := s.GetBotSettings(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", got.Model)
	assert.Equal(t, 300, got.MaxTokens)

	// Upsert replaces the existing row for the queue
	settings.Model = "gemini-2.0-flash"
	require.NoError(t, s.UpsertBotSettings(context.Background(), settings))

	got, err = s.GetBotSettings(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.0-flash", got.Model)

	_, err = s.GetBotSettings(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindOrCreateTracking_ReusesOpenRecord(t *testing.T) {
	s := createTestStore(t)
	contact := createTestContact(t, s, "+551199990007")
	ticket := createTestTicket(t, s, contact, "!room7:example.org")

	first, err := s.FindOrCreateTracking(context.Background(), ticket.ID)
	require.NoError(t, err)

	second, err := s.FindOrCreateTracking(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestGetContactByNumber(t *testing.T) {
	s := createTestStore(t)
	created := createTestContact(t, s, "+551199990008")

	found, err := s.GetContactByNumber(context.Background(), "+551199990008")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.False(t, found.DisableBot)
}
