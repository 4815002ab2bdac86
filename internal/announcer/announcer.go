package announcer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dghubble/oauth1"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const postEndpoint = "https://api.twitter.com/2/tweets"

// PostRecorder persists an audit row for every outbound announcement
type PostRecorder interface {
	InsertPost(ctx context.Context, postID, externalID, threadID, kind, body string) error
}

// Credentials are the four OAuth1 values the announcement channel needs.
// The announcer only exists when all four are present; a missing credential
// means the feature is off, not broken.
type Credentials struct {
	APIKey       string
	APISecret    string
	AccessToken  string
	AccessSecret string
}

// Complete reports whether every credential is set
func (c Credentials) Complete() bool {
	return c.APIKey != "" && c.APISecret != "" && c.AccessToken != "" && c.AccessSecret != ""
}

// Announcer mirrors feed milestones to the outside channel. Posting is
// fire-and-forget: a failed post is logged and the feed carries on.
type Announcer struct {
	client   *http.Client
	recorder PostRecorder
}

// New creates an announcer, or nil when the credentials are incomplete.
// A nil *Announcer is a valid disabled announcer.
func New(creds Credentials, recorder PostRecorder) *Announcer {
	if !creds.Complete() {
		log.Info().Msg("Announcer disabled (missing credentials)")
		return nil
	}

	oauthConfig := oauth1.NewConfig(creds.APIKey, creds.APISecret)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessSecret)
	client := oauthConfig.Client(oauth1.NoContext, token)
	client.Timeout = 10 * time.Second

	log.Info().Msg("Announcer enabled")
	return &Announcer{client: client, recorder: recorder}
}

// ThreadLive announces a story that just went live
func (a *Announcer) ThreadLive(threadID, headline, category string) {
	text := fmt.Sprintf("BREAKING [%s] %s", strings.ToUpper(category), headline)
	go a.post(threadID, "break", text)
}

// ThreadClosed announces a story reaching the end of its lifecycle
func (a *Announcer) ThreadClosed(threadID, headline string) {
	text := fmt.Sprintf("CLOSED: %s", headline)
	go a.post(threadID, "close", text)
}

func (a *Announcer) post(threadID, kind, text string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	externalID, err := a.send(ctx, text)
	if err != nil {
		log.Warn().Str("thread_id", threadID).Err(err).Msg("Announcement failed")
		return
	}

	postID := "p-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	if err := a.recorder.InsertPost(ctx, postID, externalID, threadID, kind, text); err != nil {
		log.Warn().Str("thread_id", threadID).Err(err).Msg("Failed to record announcement")
	}
}

func (a *Announcer) send(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, postEndpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("post endpoint returned %d", resp.StatusCode)
	}

	var result struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode post response: %w", err)
	}
	return result.Data.ID, nil
}
