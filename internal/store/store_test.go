package store

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newswire/internal/database"
	"github.com/newswire/pkg/models"
)

// Integration tests against a real Postgres. Run with
// NEWSWIRE_TEST_DATABASE_URL pointing at a throwaway database.
func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	url := os.Getenv("NEWSWIRE_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("NEWSWIRE_TEST_DATABASE_URL not set, skipping test")
	}

	db, err := database.NewDB(url)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, database.InitSchema(ctx, db))

	return NewStorage(db)
}

func insertLiveThread(t *testing.T, s *Storage, submittedBy string) *models.Thread {
	t.Helper()
	notes := "Verified credible (confidence 0.9). Ok."
	thread := &models.Thread{
		ThreadID:        fmt.Sprintf("t-%d", time.Now().UnixNano()),
		Status:          models.StatusLive,
		Category:        "tech",
		Headline:        "Integration test headline",
		Summary:         "Integration test summary with enough length",
		SourceURLs:      []string{"https://example.com/a"},
		SubmittedBy:     submittedBy,
		ValidationNotes: &notes,
	}
	require.NoError(t, s.InsertThread(context.Background(), thread))
	return thread
}

func TestThreadLifecycle(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	thread := insertLiveThread(t, s, "agent-int-1")
	assert.False(t, thread.CreatedAt.IsZero())
	require.NotNil(t, thread.ValidatedAt)

	got, err := s.GetThread(ctx, thread.ThreadID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, thread.Headline, got.Headline)
	assert.Equal(t, models.StatusLive, got.Status)
	assert.Equal(t, []string{"https://example.com/a"}, got.SourceURLs)

	// wrong submitter cannot close
	_, closed, err := s.CloseThread(ctx, thread.ThreadID, "someone-else")
	require.NoError(t, err)
	assert.False(t, closed)

	headline, closed, err := s.CloseThread(ctx, thread.ThreadID, "agent-int-1")
	require.NoError(t, err)
	assert.True(t, closed)
	assert.Equal(t, thread.Headline, headline)

	// second close is a no-op
	_, closed, err = s.CloseThread(ctx, thread.ThreadID, "agent-int-1")
	require.NoError(t, err)
	assert.False(t, closed)

	got, err = s.GetThread(ctx, thread.ThreadID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusClosed, got.Status)
	assert.NotNil(t, got.ClosedAt)
}

func TestCloseThread_ConcurrentAttempts(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	thread := insertLiveThread(t, s, "agent-int-race")

	const attempts = 8
	results := make(chan bool, attempts)
	var start sync.WaitGroup
	start.Add(1)

	for i := 0; i < attempts; i++ {
		go func() {
			start.Wait()
			_, closed, err := s.CloseThread(ctx, thread.ThreadID, "agent-int-race")
			assert.NoError(t, err)
			results <- closed
		}()
	}
	start.Done()

	wins := 0
	for i := 0; i < attempts; i++ {
		if <-results {
			wins++
		}
	}
	assert.Equal(t, 1, wins)

	got, err := s.GetThread(ctx, thread.ThreadID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusClosed, got.Status)
	assert.NotNil(t, got.ClosedAt)
}

func TestGetThread_Missing(t *testing.T) {
	s := newTestStorage(t)

	got, err := s.GetThread(context.Background(), "t-does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestInsertUpdate_LivenessCheck(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	thread := insertLiveThread(t, s, "agent-int-2")

	update := &models.Update{
		UpdateID:      fmt.Sprintf("u-%d", time.Now().UnixNano()),
		ThreadID:      thread.ThreadID,
		AuthorAddress: "agent-int-3",
		Body:          "Fresh details",
	}
	inserted, err := s.InsertUpdate(ctx, update)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.False(t, update.CreatedAt.IsZero())

	_, closed, err := s.CloseThread(ctx, thread.ThreadID, "agent-int-2")
	require.NoError(t, err)
	require.True(t, closed)

	late := &models.Update{
		UpdateID:      fmt.Sprintf("u-%d", time.Now().UnixNano()),
		ThreadID:      thread.ThreadID,
		AuthorAddress: "agent-int-3",
		Body:          "Too late",
	}
	inserted, err = s.InsertUpdate(ctx, late)
	require.NoError(t, err)
	assert.False(t, inserted)

	updates, err := s.ListUpdates(ctx, thread.ThreadID)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, update.UpdateID, updates[0].UpdateID)
}

func TestUpsertReaction(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	thread := insertLiveThread(t, s, "agent-int-4")
	update := &models.Update{
		UpdateID:      fmt.Sprintf("u-%d", time.Now().UnixNano()),
		ThreadID:      thread.ThreadID,
		AuthorAddress: "agent-int-5",
		Body:          "Reaction target",
	}
	inserted, err := s.InsertUpdate(ctx, update)
	require.NoError(t, err)
	require.True(t, inserted)

	first := &models.Reaction{
		ReactionID:    fmt.Sprintf("r-%d", time.Now().UnixNano()),
		UpdateID:      update.UpdateID,
		AuthorAddress: "agent-int-6",
		Kind:          models.ReactionLike,
	}
	require.NoError(t, s.UpsertReaction(ctx, first))

	counts, err := s.GetUpdateReactions(ctx, update.UpdateID)
	require.NoError(t, err)
	assert.Equal(t, models.ReactionCounts{Likes: 1, Dislikes: 0}, counts)

	second := &models.Reaction{
		ReactionID:    fmt.Sprintf("r-%d", time.Now().UnixNano()),
		UpdateID:      update.UpdateID,
		AuthorAddress: "agent-int-6",
		Kind:          models.ReactionDislike,
	}
	require.NoError(t, s.UpsertReaction(ctx, second))

	counts, err = s.GetUpdateReactions(ctx, update.UpdateID)
	require.NoError(t, err)
	assert.Equal(t, models.ReactionCounts{Likes: 0, Dislikes: 1}, counts)
}

func TestListThreads_Filters(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	thread := insertLiveThread(t, s, "agent-int-7")

	threads, err := s.ListThreads(ctx, ListThreadsOptions{Status: "live", Category: "tech", Limit: 200})
	require.NoError(t, err)

	found := false
	for _, th := range threads {
		assert.Equal(t, models.StatusLive, th.Status)
		assert.Equal(t, "tech", th.Category)
		if th.ThreadID == thread.ThreadID {
			found = true
		}
	}
	assert.True(t, found)
}
