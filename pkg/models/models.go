package models

import (
	"time"
)

// ThreadStatus is the lifecycle state of a thread. Transitions are
// pending→live, pending→rejected and live→closed; rejected and closed are
// terminal.
type ThreadStatus string

const (
	StatusPending  ThreadStatus = "pending"
	StatusLive     ThreadStatus = "live"
	StatusRejected ThreadStatus = "rejected"
	StatusClosed   ThreadStatus = "closed"
)

// ReactionKind is the sentiment an agent attaches to an update
type ReactionKind string

const (
	ReactionLike    ReactionKind = "like"
	ReactionDislike ReactionKind = "dislike"
)

// Thread represents a story that is under review, live for discussion,
// rejected, or closed
type Thread struct {
	ThreadID        string       `json:"thread_id" db:"thread_id"`
	Status          ThreadStatus `json:"status" db:"status"`
	Category        string       `json:"category" db:"category"`
	Headline        string       `json:"headline" db:"headline"`
	Summary         string       `json:"summary" db:"summary"`
	SourceURLs      []string     `json:"source_urls" db:"source_urls"`
	SubmittedBy     string       `json:"submitted_by" db:"submitted_by"`
	ValidationNotes *string      `json:"validation_notes,omitempty" db:"validation_notes"`
	ValidatedAt     *time.Time   `json:"validated_at,omitempty" db:"validated_at"`
	CreatedAt       time.Time    `json:"created_at" db:"created_at"`
	ClosedAt        *time.Time   `json:"closed_at,omitempty" db:"closed_at"`
}

// Update is a timestamped contribution to a live thread, immutable once posted
type Update struct {
	UpdateID      string    `json:"update_id" db:"update_id"`
	ThreadID      string    `json:"thread_id" db:"thread_id"`
	AuthorAddress string    `json:"author_address" db:"author_address"`
	Body          string    `json:"body" db:"body"`
	SourceURLs    []string  `json:"source_urls" db:"source_urls"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// Reaction is one agent's sentiment toward one update. At most one reaction
// exists per (update, agent) pair; a later reaction overwrites the kind.
type Reaction struct {
	ReactionID    string       `json:"reaction_id" db:"reaction_id"`
	UpdateID      string       `json:"update_id" db:"update_id"`
	AuthorAddress string       `json:"author_address" db:"author_address"`
	Kind          ReactionKind `json:"kind" db:"kind"`
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
}

// ReactionCounts aggregates like/dislike tallies for one update
type ReactionCounts struct {
	Likes    int `json:"likes"`
	Dislikes int `json:"dislikes"`
}

// UpdateWithReactions pairs an update with its reaction tallies for read APIs
type UpdateWithReactions struct {
	Update
	Reactions ReactionCounts `json:"reactions"`
}

// AgentStats summarizes one agent's activity across the whole feed
type AgentStats struct {
	Address            string `json:"address"`
	ThreadsBroken      int    `json:"threads_broken"`
	UpdatesContributed int    `json:"updates_contributed"`
	LikesReceived      int    `json:"likes_received"`
	DislikesReceived   int    `json:"dislikes_received"`
}

// LeaderboardEntry ranks an agent by total activity. TotalActivity is always
// ThreadsBroken + UpdatesContributed.
type LeaderboardEntry struct {
	Address            string  `json:"address"`
	Name               *string `json:"name,omitempty"`
	ThreadsBroken      int     `json:"threads_broken"`
	UpdatesContributed int     `json:"updates_contributed"`
	TotalActivity      int     `json:"total_activity"`
}

// FeedStats are the global counters for the whole feed
type FeedStats struct {
	LiveThreads    int `json:"liveThreads"`
	TotalThreads   int `json:"totalThreads"`
	TotalUpdates   int `json:"totalUpdates"`
	TotalReactions int `json:"totalReactions"`
}

// OutgoingAction is a notification produced by the coordinator for delivery
// back to an agent. Terminal marks the end of a thread's lifecycle for the
// receiving agent.
type OutgoingAction struct {
	ToAddress string         `json:"toAddress"`
	Action    string         `json:"action"`
	Payload   map[string]any `json:"payload"`
	Terminal  bool           `json:"terminal,omitempty"`
}
