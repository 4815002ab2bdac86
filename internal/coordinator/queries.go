package coordinator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/newswire/internal/store"
	"github.com/newswire/pkg/models"
)

type queryPayload struct {
	Type     string `json:"type"`
	ThreadID string `json:"threadId"`
	Category string `json:"category"`
	Address  string `json:"address"`
	Status   string `json:"status"`
	Limit    int    `json:"limit"`
	Offset   int    `json:"offset"`
}

// handleQuery answers a read-only query with one notification carrying the
// data, or an error payload when the type is unknown or the entity missing
func (c *Coordinator) handleQuery(ctx context.Context, from string, payload json.RawMessage) ([]models.OutgoingAction, error) {
	var p queryPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, nil
	}

	var result map[string]any
	var err error

	switch p.Type {
	case "threads":
		result, err = c.queryThreads(ctx, p)
	case "thread":
		result, err = c.queryThread(ctx, p.ThreadID)
	case "category":
		result, err = c.queryCategory(ctx, p.Category)
	case "agent":
		result, err = c.queryAgent(ctx, p.Address)
	case "leaderboard":
		result, err = c.queryLeaderboard(ctx, p.Limit)
	case "stats":
		result, err = c.queryStats(ctx)
	default:
		result = map[string]any{"error": fmt.Sprintf("Unknown query type %q", p.Type)}
	}
	if err != nil {
		return nil, err
	}

	result["type"] = p.Type
	return []models.OutgoingAction{{
		ToAddress: from,
		Action:    "query-result",
		Payload:   result,
	}}, nil
}

func (c *Coordinator) queryThreads(ctx context.Context, p queryPayload) (map[string]any, error) {
	threads, err := c.store.ListThreads(ctx, store.ListThreadsOptions{
		Status:   p.Status,
		Category: p.Category,
		Limit:    p.Limit,
		Offset:   p.Offset,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"threads": threads}, nil
}

func (c *Coordinator) queryThread(ctx context.Context, threadID string) (map[string]any, error) {
	thread, err := c.store.GetThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if thread == nil {
		return map[string]any{"error": "Thread not found"}, nil
	}

	updates, err := c.UpdatesWithReactions(ctx, threadID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"thread": thread, "updates": updates}, nil
}

func (c *Coordinator) queryCategory(ctx context.Context, category string) (map[string]any, error) {
	if !c.validCategory(category) {
		return map[string]any{"error": fmt.Sprintf("Invalid category: %s", category)}, nil
	}
	threads, err := c.store.ListThreads(ctx, store.ListThreadsOptions{
		Status:   string(models.StatusLive),
		Category: category,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"category": category, "threads": threads}, nil
}

func (c *Coordinator) queryAgent(ctx context.Context, address string) (map[string]any, error) {
	if address == "" {
		return map[string]any{"error": "Missing agent address"}, nil
	}
	stats, err := c.store.GetAgentStats(ctx, address)
	if err != nil {
		return nil, err
	}
	return map[string]any{"agent": stats}, nil
}

func (c *Coordinator) queryLeaderboard(ctx context.Context, limit int) (map[string]any, error) {
	leaderboard, err := c.store.GetLeaderboard(ctx, limit)
	if err != nil {
		return nil, err
	}
	return map[string]any{"leaderboard": leaderboard}, nil
}

func (c *Coordinator) queryStats(ctx context.Context) (map[string]any, error) {
	stats, err := c.store.GetStats(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"stats": stats}, nil
}

// Read delegates used by the HTTP layer. They expose the same store reads
// the query action uses, without going through an action envelope.

func (c *Coordinator) GetThreads(ctx context.Context, opts store.ListThreadsOptions) ([]*models.Thread, error) {
	return c.store.ListThreads(ctx, opts)
}

func (c *Coordinator) GetThread(ctx context.Context, threadID string) (*models.Thread, error) {
	return c.store.GetThread(ctx, threadID)
}

// UpdatesWithReactions lists a thread's updates oldest-first, each with its
// reaction tallies
func (c *Coordinator) UpdatesWithReactions(ctx context.Context, threadID string) ([]models.UpdateWithReactions, error) {
	updates, err := c.store.ListUpdates(ctx, threadID)
	if err != nil {
		return nil, err
	}

	out := make([]models.UpdateWithReactions, 0, len(updates))
	for _, u := range updates {
		counts, err := c.store.GetUpdateReactions(ctx, u.UpdateID)
		if err != nil {
			return nil, err
		}
		out = append(out, models.UpdateWithReactions{Update: *u, Reactions: counts})
	}
	return out, nil
}

func (c *Coordinator) GetUpdateReactions(ctx context.Context, updateID string) (models.ReactionCounts, error) {
	return c.store.GetUpdateReactions(ctx, updateID)
}

func (c *Coordinator) GetAgentStats(ctx context.Context, address string) (*models.AgentStats, error) {
	return c.store.GetAgentStats(ctx, address)
}

func (c *Coordinator) GetLeaderboard(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error) {
	return c.store.GetLeaderboard(ctx, limit)
}

func (c *Coordinator) GetStats(ctx context.Context) (*models.FeedStats, error) {
	return c.store.GetStats(ctx)
}
