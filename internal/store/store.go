package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/newswire/pkg/models"
)

// Storage provides access to threads, updates and reactions. The coordinator
// never holds entities across requests; every operation re-reads what it
// needs through parameterized queries.
type Storage struct {
	db *sql.DB
}

// NewStorage creates a new storage instance
func NewStorage(db *sql.DB) *Storage {
	return &Storage{db: db}
}

// InsertThread inserts a thread with the given status and validation notes.
// ValidatedAt/CreatedAt are stamped by the database.
func (s *Storage) InsertThread(ctx context.Context, thread *models.Thread) error {
	urls, err := marshalURLs(thread.SourceURLs)
	if err != nil {
		return err
	}

	query := `
	INSERT INTO threads (thread_id, status, category, headline, summary, source_urls, submitted_by, validation_notes, validated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
	RETURNING created_at, validated_at
	`

	err = s.db.QueryRowContext(
		ctx, query,
		thread.ThreadID, string(thread.Status), thread.Category, thread.Headline,
		thread.Summary, urls, thread.SubmittedBy, thread.ValidationNotes,
	).Scan(&thread.CreatedAt, &thread.ValidatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert thread: %w", err)
	}

	log.Debug().
		Str("thread_id", thread.ThreadID).
		Str("status", string(thread.Status)).
		Str("submitted_by", thread.SubmittedBy).
		Msg("Inserted thread")

	return nil
}

// CloseThread conditionally transitions a live thread to closed. The
// condition (status and submitter) is checked at commit time by the UPDATE
// itself, so a racing loser simply sees no rows affected. Returns the closed
// thread's headline and whether the transition happened.
func (s *Storage) CloseThread(ctx context.Context, threadID, submittedBy string) (string, bool, error) {
	query := `
	UPDATE threads SET status = 'closed', closed_at = now()
	WHERE thread_id = $1 AND status = 'live' AND submitted_by = $2
	RETURNING headline
	`

	var headline string
	err := s.db.QueryRowContext(ctx, query, threadID, submittedBy).Scan(&headline)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to close thread: %w", err)
	}

	return headline, true, nil
}

// InsertUpdate inserts an update row only if the owning thread is currently
// live, checked in the same statement to stay consistent under races with a
// concurrent close. Returns whether the insert happened.
func (s *Storage) InsertUpdate(ctx context.Context, update *models.Update) (bool, error) {
	urls, err := marshalURLs(update.SourceURLs)
	if err != nil {
		return false, err
	}

	query := `
	INSERT INTO updates (update_id, thread_id, author_address, body, source_urls)
	SELECT $1, $2, $3, $4, $5
	WHERE EXISTS (SELECT 1 FROM threads WHERE thread_id = $2 AND status = 'live')
	RETURNING created_at
	`

	err = s.db.QueryRowContext(
		ctx, query,
		update.UpdateID, update.ThreadID, update.AuthorAddress, update.Body, urls,
	).Scan(&update.CreatedAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to insert update: %w", err)
	}

	return true, nil
}

// UpdateExists reports whether an update row exists
func (s *Storage) UpdateExists(ctx context.Context, updateID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM updates WHERE update_id = $1)`, updateID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check update: %w", err)
	}
	return exists, nil
}

// UpsertReaction inserts a reaction keyed by (update, agent); a repeat
// reaction from the same agent overwrites the kind instead of duplicating
func (s *Storage) UpsertReaction(ctx context.Context, reaction *models.Reaction) error {
	query := `
	INSERT INTO reactions (reaction_id, update_id, author_address, kind)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (update_id, author_address) DO UPDATE SET kind = $4
	`

	_, err := s.db.ExecContext(
		ctx, query,
		reaction.ReactionID, reaction.UpdateID, reaction.AuthorAddress, string(reaction.Kind),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert reaction: %w", err)
	}
	return nil
}

// InsertPost records an outbound announcement for audit
func (s *Storage) InsertPost(ctx context.Context, postID, externalID, threadID, kind, body string) error {
	query := `
	INSERT INTO posts (post_id, external_id, thread_id, kind, body)
	VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.db.ExecContext(ctx, query, postID, nullable(externalID), nullable(threadID), kind, body)
	if err != nil {
		return fmt.Errorf("failed to insert post: %w", err)
	}
	return nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func marshalURLs(urls []string) ([]byte, error) {
	if urls == nil {
		urls = []string{}
	}
	data, err := json.Marshal(urls)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal source urls: %w", err)
	}
	return data, nil
}

func jsonUnmarshalURLs(data []byte, dest *[]string) error {
	if len(data) == 0 {
		*dest = []string{}
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal source urls: %w", err)
	}
	return nil
}

func scanThread(scan func(dest ...any) error) (*models.Thread, error) {
	var t models.Thread
	var urls []byte
	var notes sql.NullString
	var validatedAt, closedAt sql.NullTime

	err := scan(
		&t.ThreadID, &t.Status, &t.Category, &t.Headline, &t.Summary,
		&urls, &t.SubmittedBy, &notes, &validatedAt, &t.CreatedAt, &closedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := jsonUnmarshalURLs(urls, &t.SourceURLs); err != nil {
		return nil, err
	}
	if notes.Valid {
		t.ValidationNotes = &notes.String
	}
	if validatedAt.Valid {
		v := validatedAt.Time
		t.ValidatedAt = &v
	}
	if closedAt.Valid {
		v := closedAt.Time
		t.ClosedAt = &v
	}
	return &t, nil
}
