// Package store provides the durable, append-only conversation log and the
// read-models derived from it (summaries, search, aggregate stats).
package store

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Timestamps are stored as fixed-width UTC text so that lexicographic order
// equals chronological order, for stored rows and bound parameters alike.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS messages (
	    id              TEXT PRIMARY KEY,
	    conversation_id TEXT NOT NULL,
	    user_id         TEXT NOT NULL DEFAULT '',
	    session_id      TEXT NOT NULL,
	    message         TEXT NOT NULL,
	    is_user         BOOLEAN NOT NULL,
	    timestamp       TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages (conversation_id, timestamp)`,
	`CREATE VIEW IF NOT EXISTS conversation_summaries AS
	    SELECT conversation_id,
	           MAX(user_id)              AS user_id,
	           MAX(session_id)           AS session_id,
	           COUNT(*)                  AS message_count,
	           MIN(timestamp)            AS started_at,
	           MAX(timestamp)            AS last_message_at,
	           SUM(is_user)              AS user_messages,
	           COUNT(*) - SUM(is_user)   AS bot_messages
	    FROM messages
	    GROUP BY conversation_id`,
}

type messageRow struct {
	ID             string `db:"id"`
	ConversationID string `db:"conversation_id"`
	UserID         string `db:"user_id"`
	SessionID      string `db:"session_id"`
	Text           string `db:"message"`
	IsUser         bool   `db:"is_user"`
	Timestamp      string `db:"timestamp"`
}

func (r messageRow) toMessage() Message {
	ts, _ := time.Parse(timeLayout, r.Timestamp)
	return Message{
		ID:             r.ID,
		ConversationID: r.ConversationID,
		UserID:         r.UserID,
		SessionID:      r.SessionID,
		Text:           r.Text,
		IsUser:         r.IsUser,
		Timestamp:      ts,
	}
}

type summaryRow struct {
	ConversationID string `db:"conversation_id"`
	UserID         string `db:"user_id"`
	SessionID      string `db:"session_id"`
	MessageCount   int    `db:"message_count"`
	StartedAt      string `db:"started_at"`
	LastMessageAt  string `db:"last_message_at"`
	UserMessages   int    `db:"user_messages"`
	BotMessages    int    `db:"bot_messages"`
}

func (r summaryRow) toSummary() ConversationSummary {
	started, _ := time.Parse(timeLayout, r.StartedAt)
	last, _ := time.Parse(timeLayout, r.LastMessageAt)
	return ConversationSummary{
		ConversationID: r.ConversationID,
		UserID:         r.UserID,
		SessionID:      r.SessionID,
		MessageCount:   r.MessageCount,
		StartedAt:      started,
		LastMessageAt:  last,
		UserMessages:   r.UserMessages,
		BotMessages:    r.BotMessages,
	}
}

// Store is the conversation log for one widget instance. It owns the session
// id for the instance lifetime and the currently active conversation id, which
// is created lazily on first append and replaced by StartConversation.
type Store struct {
	db        *sqlx.DB
	sessionID string

	mu             sync.Mutex
	conversationID string

	now func() time.Time
	loc *time.Location
}

// Option customizes a Store.
type Option func(*Store)

// WithClock fixes the wall clock and the reference timezone used for the
// "active today" window. Tests use it to pin "now".
func WithClock(now func() time.Time, loc *time.Location) Option {
	return func(s *Store) {
		s.now = now
		s.loc = loc
	}
}

// Open opens (creating if necessary) the sqlite-backed store at path.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sqlx.Connect("sqlite", "file:"+path+"?_busy_timeout=10000&_fk=1")
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init store schema: %w", err)
		}
	}

	s := &Store{
		db:        db,
		sessionID: "session_" + uuid.NewString(),
		now:       time.Now,
		loc:       time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// SessionID returns the id identifying this widget instance. It is stable
// across every conversation the instance opens.
func (s *Store) SessionID() string {
	return s.sessionID
}

// StartConversation allocates a fresh conversation id and makes it active.
// Prior conversations stay in the log untouched.
func (s *Store) StartConversation() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversationID = uuid.NewString()
	return s.conversationID
}

// ConversationID returns the active conversation id, creating one if no
// conversation has been started yet.
func (s *Store) ConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conversationID == "" {
		s.conversationID = uuid.NewString()
	}
	return s.conversationID
}

// Append inserts one message into the active conversation, stamping it with
// the session id and the current time. Callers decide whether a failure is
// user-visible; the conversational flow never surfaces it.
func (s *Store) Append(text string, isUser bool, userID string) error {
	row := messageRow{
		ID:             uuid.NewString(),
		ConversationID: s.ConversationID(),
		UserID:         userID,
		SessionID:      s.sessionID,
		Text:           strings.TrimSpace(text),
		IsUser:         isUser,
		Timestamp:      s.now().UTC().Format(timeLayout),
	}
	_, err := s.db.NamedExec(`
		INSERT INTO messages (id, conversation_id, user_id, session_id, message, is_user, timestamp)
		VALUES (:id, :conversation_id, :user_id, :session_id, :message, :is_user, :timestamp)`, row)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// History returns every message of one conversation, oldest first.
func (s *Store) History(conversationID string) ([]Message, error) {
	var rows []messageRow
	err := s.db.Select(&rows, `
		SELECT * FROM messages
		WHERE conversation_id = ?
		ORDER BY timestamp ASC, rowid ASC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return toMessages(rows), nil
}

// Summaries returns conversation summaries ordered by most recent activity.
// A non-empty userID narrows the result to that user's conversations.
func (s *Store) Summaries(userID string) ([]ConversationSummary, error) {
	query := `SELECT * FROM conversation_summaries`
	args := []any{}
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY last_message_at DESC`

	var rows []summaryRow
	if err := s.db.Select(&rows, query, args...); err != nil {
		return nil, fmt.Errorf("load summaries: %w", err)
	}
	summaries := make([]ConversationSummary, len(rows))
	for i, row := range rows {
		summaries[i] = row.toSummary()
	}
	return summaries, nil
}

// Search returns messages whose text contains term, case-insensitively,
// newest first. A non-empty userID scopes the search to that user.
func (s *Store) Search(term, userID string) ([]Message, error) {
	query := `SELECT * FROM messages WHERE instr(lower(message), lower(?)) > 0`
	args := []any{term}
	if userID != "" {
		query += ` AND user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY timestamp DESC, rowid DESC`

	var rows []messageRow
	if err := s.db.Select(&rows, query, args...); err != nil {
		return nil, fmt.Errorf("search messages: %w", err)
	}
	return toMessages(rows), nil
}

// Stats aggregates the whole log. ActiveConversationsToday counts
// conversations whose first message falls inside the current calendar day in
// the store's reference timezone.
func (s *Store) Stats() (Stats, error) {
	var stats Stats

	if err := s.db.Get(&stats.TotalMessages, `SELECT COUNT(*) FROM messages`); err != nil {
		return Stats{}, fmt.Errorf("count messages: %w", err)
	}
	if err := s.db.Get(&stats.TotalConversations, `SELECT COUNT(*) FROM conversation_summaries`); err != nil {
		return Stats{}, fmt.Errorf("count conversations: %w", err)
	}

	now := s.now().In(s.loc)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	dayEnd := dayStart.Add(24 * time.Hour)
	err := s.db.Get(&stats.ActiveConversationsToday, `
		SELECT COUNT(*) FROM conversation_summaries
		WHERE started_at >= ? AND started_at < ?`,
		dayStart.UTC().Format(timeLayout), dayEnd.UTC().Format(timeLayout))
	if err != nil {
		return Stats{}, fmt.Errorf("count today's conversations: %w", err)
	}

	if stats.TotalConversations > 0 {
		stats.AverageMessagesPerConversation = int(math.Round(
			float64(stats.TotalMessages) / float64(stats.TotalConversations)))
	}
	return stats, nil
}

func toMessages(rows []messageRow) []Message {
	messages := make([]Message, len(rows))
	for i, row := range rows {
		messages[i] = row.toMessage()
	}
	return messages
}
