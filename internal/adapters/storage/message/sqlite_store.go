package message

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"whistle/internal/adapters/storage"
	domain "whistle/internal/domain/message"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new message store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// EnsureThread inserts candidate unless a thread already exists for its booking,
// then returns whichever row is stored.
// POST: The returned thread is the single thread for candidate.BookingID
func (s *SQLiteStore) EnsureThread(ctx context.Context, candidate domain.Thread) (domain.Thread, error) {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO thread (id, booking_id, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(booking_id) DO NOTHING`,
		candidate.ID, candidate.BookingID, storage.FormatTime(candidate.CreatedAt)); err != nil {
		return domain.Thread{}, err
	}
	return s.GetThreadByBooking(ctx, candidate.BookingID)
}

// GetThread retrieves a thread by its ID.
// POST: Returns the entity or an error wrapping storage.ErrNotFound
func (s *SQLiteStore) GetThread(ctx context.Context, id string) (domain.Thread, error) {
	return s.getThread(ctx, "id", id)
}

// GetThreadByBooking retrieves the thread for a booking.
// POST: Returns the entity or an error wrapping storage.ErrNotFound
func (s *SQLiteStore) GetThreadByBooking(ctx context.Context, bookingID string) (domain.Thread, error) {
	return s.getThread(ctx, "booking_id", bookingID)
}

func (s *SQLiteStore) getThread(ctx context.Context, column, value string) (domain.Thread, error) {
	var t domain.Thread
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, booking_id, created_at FROM thread WHERE "+column+" = ?", value).
		Scan(&t.ID, &t.BookingID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Thread{}, fmt.Errorf("thread %s=%s: %w", column, value, storage.ErrNotFound)
	}
	if err != nil {
		return domain.Thread{}, err
	}
	t.CreatedAt = storage.ParseTime(createdAt)
	return t, nil
}

// AddParticipant adds a profile to a thread. Existing participants are left unchanged.
func (s *SQLiteStore) AddParticipant(ctx context.Context, p domain.Participant) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO thread_participant (thread_id, profile_id, joined_at, last_read_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(thread_id, profile_id) DO NOTHING`,
		p.ThreadID, p.ProfileID, storage.FormatTime(p.JoinedAt), storage.FormatTime(p.LastReadAt))
	return err
}

// GetParticipant retrieves a profile's membership of a thread.
// POST: Returns the entity or an error wrapping storage.ErrNotFound
func (s *SQLiteStore) GetParticipant(ctx context.Context, threadID, profileID string) (domain.Participant, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT thread_id, profile_id, joined_at, last_read_at FROM thread_participant
		 WHERE thread_id = ? AND profile_id = ?`, threadID, profileID)
	p, err := scanParticipant(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Participant{}, fmt.Errorf("participant %s in thread %s: %w", profileID, threadID, storage.ErrNotFound)
	}
	return p, err
}

// ListParticipants returns the thread's participants in join order.
func (s *SQLiteStore) ListParticipants(ctx context.Context, threadID string) ([]domain.Participant, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT thread_id, profile_id, joined_at, last_read_at FROM thread_participant
		 WHERE thread_id = ? ORDER BY joined_at, profile_id`, threadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Participant
	for rows.Next() {
		p, err := scanParticipant(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, p)
	}
	return results, rows.Err()
}

// MarkRead advances the participant's read marker to at.
func (s *SQLiteStore) MarkRead(ctx context.Context, threadID, profileID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE thread_participant SET last_read_at = ? WHERE thread_id = ? AND profile_id = ?",
		storage.FormatTime(at), threadID, profileID)
	return err
}

// SaveMessage inserts a message.
// PRE: message has been validated
func (s *SQLiteStore) SaveMessage(ctx context.Context, m domain.Message) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO message (id, thread_id, sender_id, kind, body, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.ThreadID, m.SenderID, m.Kind, m.Body, storage.FormatTime(m.CreatedAt))
	return err
}

// ListMessages returns the thread's most recent messages, oldest first.
// PRE: limit > 0
func (s *SQLiteStore) ListMessages(ctx context.Context, threadID string, limit int) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, thread_id, sender_id, kind, body, created_at FROM (
		   SELECT * FROM message WHERE thread_id = ? ORDER BY created_at DESC, id DESC LIMIT ?
		 ) ORDER BY created_at, id`, threadID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Message
	for rows.Next() {
		m, err := scanMessage(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, m)
	}
	return results, rows.Err()
}

// ListThreadSummaries returns each thread the profile participates in with its latest
// message and the count of messages from others newer than the read marker.
// PRE: limit > 0
func (s *SQLiteStore) ListThreadSummaries(ctx context.Context, profileID string, limit int) ([]ThreadSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.id, t.booking_id, t.created_at,
		   COALESCE(m.id, ''), COALESCE(m.sender_id, ''), COALESCE(m.kind, ''), COALESCE(m.body, ''), COALESCE(m.created_at, ''),
		   (SELECT COUNT(*) FROM message u
		     WHERE u.thread_id = t.id AND u.sender_id != tp.profile_id AND u.created_at > tp.last_read_at)
		 FROM thread_participant tp
		 JOIN thread t ON t.id = tp.thread_id
		 LEFT JOIN message m ON m.id = (
		   SELECT id FROM message WHERE thread_id = t.id ORDER BY created_at DESC, id DESC LIMIT 1)
		 WHERE tp.profile_id = ?
		 ORDER BY COALESCE(m.created_at, t.created_at) DESC
		 LIMIT ?`, profileID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []ThreadSummary
	for rows.Next() {
		var sum ThreadSummary
		var threadCreated, msgCreated string
		if err := rows.Scan(&sum.Thread.ID, &sum.Thread.BookingID, &threadCreated,
			&sum.LastMessage.ID, &sum.LastMessage.SenderID, &sum.LastMessage.Kind, &sum.LastMessage.Body, &msgCreated,
			&sum.UnreadCount); err != nil {
			return nil, err
		}
		sum.Thread.CreatedAt = storage.ParseTime(threadCreated)
		if sum.LastMessage.ID != "" {
			sum.LastMessage.ThreadID = sum.Thread.ID
			sum.LastMessage.CreatedAt = storage.ParseTime(msgCreated)
		}
		results = append(results, sum)
	}
	return results, rows.Err()
}

// scanParticipant extracts a Participant from a row scanner function.
func scanParticipant(scan func(dest ...any) error) (domain.Participant, error) {
	var p domain.Participant
	var joinedAt, lastRead string
	if err := scan(&p.ThreadID, &p.ProfileID, &joinedAt, &lastRead); err != nil {
		return domain.Participant{}, err
	}
	p.JoinedAt = storage.ParseTime(joinedAt)
	p.LastReadAt = storage.ParseTime(lastRead)
	return p, nil
}

// scanMessage extracts a Message from a row scanner function.
func scanMessage(scan func(dest ...any) error) (domain.Message, error) {
	var m domain.Message
	var createdAt string
	if err := scan(&m.ID, &m.ThreadID, &m.SenderID, &m.Kind, &m.Body, &createdAt); err != nil {
		return domain.Message{}, err
	}
	m.CreatedAt = storage.ParseTime(createdAt)
	return m, nil
}
