package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/newswire/pkg/models"
)

// ListThreadsOptions filters the thread listing. Zero values fall back to
// status "live", limit 50, offset 0.
type ListThreadsOptions struct {
	Status   string
	Category string
	Limit    int
	Offset   int
}

// ListThreads returns threads newest-first, filtered by status and optional
// category
func (s *Storage) ListThreads(ctx context.Context, opts ListThreadsOptions) ([]*models.Thread, error) {
	status := opts.Status
	if status == "" {
		status = string(models.StatusLive)
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	var rows *sql.Rows
	var err error
	if opts.Category != "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT thread_id, status, category, headline, summary, source_urls, submitted_by, validation_notes, validated_at, created_at, closed_at
			FROM threads WHERE status = $1 AND category = $2
			ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
			status, opts.Category, limit, offset)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT thread_id, status, category, headline, summary, source_urls, submitted_by, validation_notes, validated_at, created_at, closed_at
			FROM threads WHERE status = $1
			ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
			status, limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	defer rows.Close()

	threads := make([]*models.Thread, 0)
	for rows.Next() {
		t, err := scanThread(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan thread: %w", err)
		}
		threads = append(threads, t)
	}
	return threads, rows.Err()
}

// GetThread fetches one thread by id, returning nil when it does not exist
func (s *Storage) GetThread(ctx context.Context, threadID string) (*models.Thread, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT thread_id, status, category, headline, summary, source_urls, submitted_by, validation_notes, validated_at, created_at, closed_at
		FROM threads WHERE thread_id = $1`, threadID)

	t, err := scanThread(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get thread: %w", err)
	}
	return t, nil
}

// ListUpdates returns a thread's updates oldest-first
func (s *Storage) ListUpdates(ctx context.Context, threadID string) ([]*models.Update, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT update_id, thread_id, author_address, body, source_urls, created_at
		FROM updates WHERE thread_id = $1 ORDER BY created_at ASC`, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to list updates: %w", err)
	}
	defer rows.Close()

	updates := make([]*models.Update, 0)
	for rows.Next() {
		var u models.Update
		var urls []byte
		if err := rows.Scan(&u.UpdateID, &u.ThreadID, &u.AuthorAddress, &u.Body, &urls, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan update: %w", err)
		}
		if err := jsonUnmarshalURLs(urls, &u.SourceURLs); err != nil {
			return nil, err
		}
		updates = append(updates, &u)
	}
	return updates, rows.Err()
}

// GetUpdateReactions aggregates like/dislike counts for one update
func (s *Storage) GetUpdateReactions(ctx context.Context, updateID string) (models.ReactionCounts, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, COUNT(*) FROM reactions WHERE update_id = $1 GROUP BY kind`, updateID)
	if err != nil {
		return models.ReactionCounts{}, fmt.Errorf("failed to count reactions: %w", err)
	}
	defer rows.Close()

	var counts models.ReactionCounts
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return models.ReactionCounts{}, fmt.Errorf("failed to scan reaction count: %w", err)
		}
		switch models.ReactionKind(kind) {
		case models.ReactionLike:
			counts.Likes = count
		case models.ReactionDislike:
			counts.Dislikes = count
		}
	}
	return counts, rows.Err()
}

// GetAgentStats computes one agent's activity counters. Threads only count
// once they reached live (or later closed); rejected submissions never count.
func (s *Storage) GetAgentStats(ctx context.Context, address string) (*models.AgentStats, error) {
	stats := &models.AgentStats{Address: address}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM threads WHERE submitted_by = $1 AND status IN ('live', 'closed')`,
		address).Scan(&stats.ThreadsBroken)
	if err != nil {
		return nil, fmt.Errorf("failed to count threads: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM updates WHERE author_address = $1`,
		address).Scan(&stats.UpdatesContributed)
	if err != nil {
		return nil, fmt.Errorf("failed to count updates: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE r.kind = 'like'),
			COUNT(*) FILTER (WHERE r.kind = 'dislike')
		FROM reactions r
		JOIN updates u ON r.update_id = u.update_id
		WHERE u.author_address = $1`,
		address).Scan(&stats.LikesReceived, &stats.DislikesReceived)
	if err != nil {
		return nil, fmt.Errorf("failed to count received reactions: %w", err)
	}

	return stats, nil
}

// GetLeaderboard ranks every agent that has authored a live/closed thread or
// an update, descending by total activity. Ties are broken by address so the
// ordering is reproducible.
func (s *Storage) GetLeaderboard(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		WITH agents AS (
			SELECT submitted_by AS address FROM threads WHERE status IN ('live', 'closed')
			UNION
			SELECT author_address AS address FROM updates
		),
		tb AS (
			SELECT submitted_by AS address, COUNT(*) AS cnt
			FROM threads WHERE status IN ('live', 'closed')
			GROUP BY submitted_by
		),
		uc AS (
			SELECT author_address AS address, COUNT(*) AS cnt
			FROM updates GROUP BY author_address
		)
		SELECT
			a.address,
			COALESCE(tb.cnt, 0),
			COALESCE(uc.cnt, 0),
			COALESCE(tb.cnt, 0) + COALESCE(uc.cnt, 0) AS total_activity
		FROM agents a
		LEFT JOIN tb ON a.address = tb.address
		LEFT JOIN uc ON a.address = uc.address
		ORDER BY total_activity DESC, a.address ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	entries := make([]*models.LeaderboardEntry, 0)
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.Address, &e.ThreadsBroken, &e.UpdatesContributed, &e.TotalActivity); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// GetStats returns the global feed counters
func (s *Storage) GetStats(ctx context.Context) (*models.FeedStats, error) {
	stats := &models.FeedStats{}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status = 'live') FROM threads`,
	).Scan(&stats.TotalThreads, &stats.LiveThreads)
	if err != nil {
		return nil, fmt.Errorf("failed to count threads: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM updates`).Scan(&stats.TotalUpdates)
	if err != nil {
		return nil, fmt.Errorf("failed to count updates: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reactions`).Scan(&stats.TotalReactions)
	if err != nil {
		return nil, fmt.Errorf("failed to count reactions: %w", err)
	}

	return stats, nil
}
