package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/hybrid-work/internal/persistence"
)

// ThreadRepository implements persistence.ThreadRepository using SQLite
type ThreadRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewThreadRepository creates a new SQLite thread repository
func NewThreadRepository(pool *ConnectionPool) *ThreadRepository {
	return &ThreadRepository{
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const (
	threadColumns  = `id, type, topic, created_by, created_at`
	messageColumns = `id, thread_id, sender_id, body, attachments, created_at`
)

// CreateThread inserts a thread together with its participants. Callers that
// need atomicity with other writes run it inside a transaction.
func (r *ThreadRepository) CreateThread(ctx context.Context, thread persistence.Thread) error {
	if thread.ID == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.helper.Exec(ctx, `
		INSERT INTO threads (`+threadColumns+`) VALUES (?, ?, ?, ?, ?)
	`,
		thread.ID,
		string(thread.Type),
		nullString(thread.Topic),
		thread.CreatedBy,
		formatTime(thread.CreatedAt),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	for _, userID := range thread.ParticipantIDs {
		if _, err := r.helper.Exec(ctx,
			`INSERT OR IGNORE INTO thread_participants (thread_id, user_id) VALUES (?, ?)`,
			thread.ID, userID,
		); err != nil {
			return r.mapper.MapError(err)
		}
	}
	return nil
}

// GetThread retrieves a thread and its participants
func (r *ThreadRepository) GetThread(ctx context.Context, id string) (persistence.Thread, error) {
	if id == "" {
		return persistence.Thread{}, persistence.ErrNotFound
	}
	thread, err := r.scanThread(r.helper.QueryRow(ctx, `SELECT `+threadColumns+` FROM threads WHERE id = ?`, id))
	if err != nil {
		return persistence.Thread{}, err
	}
	participants, err := r.participants(ctx, []string{thread.ID})
	if err != nil {
		return persistence.Thread{}, err
	}
	thread.ParticipantIDs = participants[thread.ID]
	return thread, nil
}

// ListThreadsForUser returns the threads userID participates in, newest first
func (r *ThreadRepository) ListThreadsForUser(ctx context.Context, userID string) ([]persistence.Thread, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT t.id, t.type, t.topic, t.created_by, t.created_at
		FROM threads t
		JOIN thread_participants p ON p.thread_id = t.id
		WHERE p.user_id = ?
		ORDER BY t.created_at DESC, t.id DESC
	`, userID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	threads := []persistence.Thread{}
	for rows.Next() {
		thread, err := r.scanThread(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		threads = append(threads, thread)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	if len(threads) == 0 {
		return threads, nil
	}

	ids := make([]string, len(threads))
	for i, thread := range threads {
		ids[i] = thread.ID
	}
	participants, err := r.participants(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range threads {
		threads[i].ParticipantIDs = participants[threads[i].ID]
	}
	return threads, nil
}

// FindDirectThread returns the oldest DM thread whose participants are exactly a and b
func (r *ThreadRepository) FindDirectThread(ctx context.Context, a, b string) (persistence.Thread, error) {
	expected := 2
	if a == b {
		expected = 1
	}
	var id string
	err := r.helper.QueryRow(ctx, `
		SELECT t.id
		FROM threads t
		WHERE t.type = ?
		  AND EXISTS (SELECT 1 FROM thread_participants WHERE thread_id = t.id AND user_id = ?)
		  AND EXISTS (SELECT 1 FROM thread_participants WHERE thread_id = t.id AND user_id = ?)
		  AND (SELECT COUNT(*) FROM thread_participants WHERE thread_id = t.id) = ?
		ORDER BY t.created_at, t.id
		LIMIT 1
	`, string(persistence.ThreadTypeDM), a, b, expected).Scan(&id)
	if err != nil {
		return persistence.Thread{}, r.mapper.MapError(err)
	}
	return r.GetThread(ctx, id)
}

// IsParticipant reports whether userID belongs to threadID
func (r *ThreadRepository) IsParticipant(ctx context.Context, threadID, userID string) (bool, error) {
	var exists int
	err := r.helper.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM thread_participants WHERE thread_id = ? AND user_id = ?)
	`, threadID, userID).Scan(&exists)
	if err != nil {
		return false, r.mapper.MapError(err)
	}
	return exists == 1, nil
}

// CreateMessage appends a message to a thread
func (r *ThreadRepository) CreateMessage(ctx context.Context, message persistence.Message) error {
	if message.ID == "" || message.ThreadID == "" {
		return persistence.ErrConstraintViolation
	}
	var attachments sql.NullString
	if message.Attachments != nil {
		encoded, err := encodeJSONObject(message.Attachments)
		if err != nil {
			return fmt.Errorf("encode attachments: %w", err)
		}
		attachments = sql.NullString{String: encoded, Valid: true}
	}
	_, err := r.helper.Exec(ctx, `
		INSERT INTO messages (`+messageColumns+`) VALUES (?, ?, ?, ?, ?, ?)
	`,
		message.ID,
		message.ThreadID,
		message.SenderID,
		message.Body,
		attachments,
		formatTime(message.CreatedAt),
	)
	return r.mapper.MapError(err)
}

// ListMessages returns the newest limit messages of a thread in creation order
func (r *ThreadRepository) ListMessages(ctx context.Context, threadID string, limit int) ([]persistence.Message, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.helper.Query(ctx, `
		SELECT `+messageColumns+` FROM (
			SELECT `+messageColumns+`, rowid AS seq
			FROM messages
			WHERE thread_id = ?
			ORDER BY created_at DESC, seq DESC
			LIMIT ?
		)
		ORDER BY created_at, seq
	`, threadID, limit)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	messages := []persistence.Message{}
	for rows.Next() {
		message, err := r.scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	return messages, r.mapper.MapError(rows.Err())
}

// LatestMessages returns the newest message of each given thread that has one
func (r *ThreadRepository) LatestMessages(ctx context.Context, threadIDs []string) (map[string]persistence.Message, error) {
	latest := make(map[string]persistence.Message, len(threadIDs))
	if len(threadIDs) == 0 {
		return latest, nil
	}
	marks, args := placeholders(threadIDs)
	rows, err := r.helper.Query(ctx, `
		SELECT `+messageColumns+`
		FROM messages m
		WHERE m.thread_id IN (`+marks+`)
		  AND m.rowid = (
			SELECT rowid FROM messages
			WHERE thread_id = m.thread_id
			ORDER BY created_at DESC, rowid DESC
			LIMIT 1
		  )
	`, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	for rows.Next() {
		message, err := r.scanMessage(rows)
		if err != nil {
			return nil, err
		}
		latest[message.ThreadID] = message
	}
	return latest, r.mapper.MapError(rows.Err())
}

func (r *ThreadRepository) participants(ctx context.Context, threadIDs []string) (map[string][]string, error) {
	marks, args := placeholders(threadIDs)
	rows, err := r.helper.Query(ctx, `
		SELECT thread_id, user_id FROM thread_participants
		WHERE thread_id IN (`+marks+`)
		ORDER BY rowid
	`, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	participants := make(map[string][]string, len(threadIDs))
	for rows.Next() {
		var threadID, userID string
		if err := rows.Scan(&threadID, &userID); err != nil {
			return nil, r.mapper.MapError(err)
		}
		participants[threadID] = append(participants[threadID], userID)
	}
	return participants, r.mapper.MapError(rows.Err())
}

func (r *ThreadRepository) scanThread(row rowScanner) (persistence.Thread, error) {
	var (
		thread     persistence.Thread
		threadType string
		topic      sql.NullString
		createdAt  string
	)
	if err := row.Scan(&thread.ID, &threadType, &topic, &thread.CreatedBy, &createdAt); err != nil {
		return persistence.Thread{}, r.mapper.MapError(err)
	}
	thread.Type = persistence.ThreadType(threadType)
	thread.Topic = stringPtr(topic)
	var err error
	if thread.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Thread{}, err
	}
	return thread, nil
}

func (r *ThreadRepository) scanMessage(row rowScanner) (persistence.Message, error) {
	var (
		message     persistence.Message
		attachments sql.NullString
		createdAt   string
	)
	err := row.Scan(&message.ID, &message.ThreadID, &message.SenderID, &message.Body, &attachments, &createdAt)
	if err != nil {
		return persistence.Message{}, r.mapper.MapError(err)
	}
	if attachments.Valid {
		if message.Attachments, err = decodeJSONObject(attachments.String); err != nil {
			return persistence.Message{}, fmt.Errorf("decode attachments: %w", err)
		}
	}
	if message.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Message{}, err
	}
	return message, nil
}
