package coordinator

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/newswire/internal/store"
	"github.com/newswire/internal/validator"
	"github.com/newswire/pkg/models"
)

// Store is the persistence surface the coordinator needs. Entities cross
// this boundary as domain types; row mapping stays behind it.
type Store interface {
	InsertThread(ctx context.Context, thread *models.Thread) error
	CloseThread(ctx context.Context, threadID, submittedBy string) (headline string, closed bool, err error)
	InsertUpdate(ctx context.Context, update *models.Update) (inserted bool, err error)
	UpdateExists(ctx context.Context, updateID string) (bool, error)
	UpsertReaction(ctx context.Context, reaction *models.Reaction) error

	ListThreads(ctx context.Context, opts store.ListThreadsOptions) ([]*models.Thread, error)
	GetThread(ctx context.Context, threadID string) (*models.Thread, error)
	ListUpdates(ctx context.Context, threadID string) ([]*models.Update, error)
	GetUpdateReactions(ctx context.Context, updateID string) (models.ReactionCounts, error)
	GetAgentStats(ctx context.Context, address string) (*models.AgentStats, error)
	GetLeaderboard(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error)
	GetStats(ctx context.Context) (*models.FeedStats, error)
}

// StoryValidator produces the pass/fail verdict for a story submission
type StoryValidator interface {
	Validate(ctx context.Context, sub validator.Submission) validator.Result
}

// Announcer mirrors accepted stories to an outside channel, best-effort.
// A nil announcer disables mirroring entirely.
type Announcer interface {
	ThreadLive(threadID, headline, category string)
	ThreadClosed(threadID, headline string)
}

// Coordinator processes incoming agent actions and returns outgoing
// notifications. Precondition failures are silent no-ops by design: actions
// arrive from loosely-trusted agents, and invalid or unauthorized requests
// get silence rather than error detail. The one exception is story
// submission, which always answers with a confirm or reject.
type Coordinator struct {
	store      Store
	validator  StoryValidator
	announcer  Announcer
	categories []string
}

// New creates a coordinator. The category set is injected so deployments and
// tests control it.
func New(s Store, v StoryValidator, announcer Announcer, categories []string) *Coordinator {
	return &Coordinator{
		store:      s,
		validator:  v,
		announcer:  announcer,
		categories: categories,
	}
}

// Payload shapes, one per action name. A named action whose payload does not
// decode is dropped the same way a failed precondition is.

type breakPayload struct {
	Headline   string   `json:"headline"`
	Summary    string   `json:"summary"`
	Category   string   `json:"category"`
	SourceURLs []string `json:"sourceUrls"`
}

type updatePayload struct {
	ThreadID   string   `json:"threadId"`
	Body       string   `json:"body"`
	SourceURLs []string `json:"sourceUrls"`
}

type reactPayload struct {
	UpdateID string `json:"updateId"`
	Kind     string `json:"kind"`
}

type closePayload struct {
	ThreadID string `json:"threadId"`
}

// Process dispatches one agent action. It returns the outgoing notifications
// and, for story submissions, the id of the thread that was created. Errors
// are infrastructure failures only; policy outcomes are expressed through
// the notification list.
func (c *Coordinator) Process(ctx context.Context, from, action string, payload json.RawMessage) ([]models.OutgoingAction, string, error) {
	switch action {
	case "break":
		return c.handleBreak(ctx, from, payload)
	case "update":
		out, err := c.handleUpdate(ctx, from, payload)
		return out, "", err
	case "react":
		out, err := c.handleReact(ctx, from, payload)
		return out, "", err
	case "close":
		out, err := c.handleClose(ctx, from, payload)
		return out, "", err
	case "query":
		out, err := c.handleQuery(ctx, from, payload)
		return out, "", err
	default:
		log.Debug().Str("action", action).Str("from", from).Msg("Unrecognized action dropped")
		return nil, "", nil
	}
}

// handleBreak validates a submitted story and inserts it as live or
// rejected. Rejected submissions are kept as an audit trail. Unlike every
// other action, submission always answers the agent.
func (c *Coordinator) handleBreak(ctx context.Context, from string, payload json.RawMessage) ([]models.OutgoingAction, string, error) {
	var p breakPayload
	// A payload that fails to decode still goes through validation so the
	// submitter receives the rejection instead of silence
	if err := json.Unmarshal(payload, &p); err != nil {
		log.Debug().Str("from", from).Err(err).Msg("Malformed break payload")
	}

	threadID := newID("t")

	result := c.validator.Validate(ctx, validator.Submission{
		Headline:   p.Headline,
		Summary:    p.Summary,
		Category:   p.Category,
		SourceURLs: p.SourceURLs,
	})

	if result.Valid {
		thread := &models.Thread{
			ThreadID:        threadID,
			Status:          models.StatusLive,
			Category:        p.Category,
			Headline:        p.Headline,
			Summary:         p.Summary,
			SourceURLs:      p.SourceURLs,
			SubmittedBy:     from,
			ValidationNotes: &result.Notes,
		}
		if err := c.store.InsertThread(ctx, thread); err != nil {
			return nil, "", err
		}

		log.Info().
			Str("thread_id", threadID).
			Str("category", p.Category).
			Str("from", from).
			Msg("Story live")

		if c.announcer != nil {
			c.announcer.ThreadLive(threadID, p.Headline, p.Category)
		}

		return []models.OutgoingAction{{
			ToAddress: from,
			Action:    "confirm",
			Payload: map[string]any{
				"threadId": threadID,
				"headline": p.Headline,
				"category": p.Category,
				"notes":    result.Notes,
			},
		}}, threadID, nil
	}

	// Rejected rows need non-empty required columns even when the
	// submission left them blank
	category := p.Category
	if !c.validCategory(category) {
		category = "breaking"
	}
	headline := p.Headline
	if headline == "" {
		headline = "Untitled"
	}

	thread := &models.Thread{
		ThreadID:        threadID,
		Status:          models.StatusRejected,
		Category:        category,
		Headline:        headline,
		Summary:         p.Summary,
		SourceURLs:      p.SourceURLs,
		SubmittedBy:     from,
		ValidationNotes: &result.Notes,
	}
	if err := c.store.InsertThread(ctx, thread); err != nil {
		return nil, "", err
	}

	log.Info().
		Str("thread_id", threadID).
		Str("from", from).
		Str("notes", result.Notes).
		Msg("Story rejected")

	return []models.OutgoingAction{{
		ToAddress: from,
		Action:    "reject",
		Payload: map[string]any{
			"threadId": threadID,
			"headline": headline,
			"notes":    result.Notes,
		},
	}}, threadID, nil
}

// handleUpdate posts a live update to a thread. The liveness check happens
// inside the insert so an update racing a close loses cleanly.
func (c *Coordinator) handleUpdate(ctx context.Context, from string, payload json.RawMessage) ([]models.OutgoingAction, error) {
	var p updatePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, nil
	}
	if p.ThreadID == "" || p.Body == "" {
		return nil, nil
	}

	update := &models.Update{
		UpdateID:      newID("u"),
		ThreadID:      p.ThreadID,
		AuthorAddress: from,
		Body:          p.Body,
		SourceURLs:    p.SourceURLs,
	}

	inserted, err := c.store.InsertUpdate(ctx, update)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return nil, nil
	}

	log.Debug().Str("update_id", update.UpdateID).Str("thread_id", p.ThreadID).Msg("Update posted")
	return nil, nil
}

// handleReact upserts one agent's reaction to an update; a repeat reaction
// replaces the earlier kind
func (c *Coordinator) handleReact(ctx context.Context, from string, payload json.RawMessage) ([]models.OutgoingAction, error) {
	var p reactPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, nil
	}

	kind := models.ReactionKind(p.Kind)
	if p.UpdateID == "" || (kind != models.ReactionLike && kind != models.ReactionDislike) {
		return nil, nil
	}

	exists, err := c.store.UpdateExists(ctx, p.UpdateID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	reaction := &models.Reaction{
		ReactionID:    newID("r"),
		UpdateID:      p.UpdateID,
		AuthorAddress: from,
		Kind:          kind,
	}
	if err := c.store.UpsertReaction(ctx, reaction); err != nil {
		return nil, err
	}
	return nil, nil
}

// handleClose closes a live thread. Only the original submitter may close;
// the status and ownership conditions are enforced by the store's
// conditional update, which also arbitrates concurrent close attempts.
func (c *Coordinator) handleClose(ctx context.Context, from string, payload json.RawMessage) ([]models.OutgoingAction, error) {
	var p closePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, nil
	}
	if p.ThreadID == "" {
		return nil, nil
	}

	headline, closed, err := c.store.CloseThread(ctx, p.ThreadID, from)
	if err != nil {
		return nil, err
	}
	if !closed {
		return nil, nil
	}

	log.Info().Str("thread_id", p.ThreadID).Str("from", from).Msg("Thread closed")

	if c.announcer != nil {
		c.announcer.ThreadClosed(p.ThreadID, headline)
	}

	return []models.OutgoingAction{{
		ToAddress: from,
		Action:    "close",
		Payload: map[string]any{
			"threadId": p.ThreadID,
			"headline": headline,
		},
		Terminal: true,
	}}, nil
}

// Categories returns the injected category set
func (c *Coordinator) Categories() []string {
	return c.categories
}

func (c *Coordinator) validCategory(category string) bool {
	for _, valid := range c.categories {
		if valid == category {
			return true
		}
	}
	return false
}

// newID builds a short prefixed id like t-9f86d081
func newID(prefix string) string {
	return prefix + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
