package validator

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/newswire/internal/oracle"
)

const (
	minHeadlineLen = 10
	minSummaryLen  = 20
)

// SourceFetcher fetches source URLs and returns extracted text per URL. An
// empty string marks an unreachable URL; an error marks the whole batch
// failing, which is a retryable condition rather than a content judgment.
type SourceFetcher interface {
	Fetch(ctx context.Context, urls []string) (map[string]string, error)
}

// Oracle judges credibility from the submission and scraped source content
type Oracle interface {
	Assess(ctx context.Context, headline, summary, category, sourcesText string) (*oracle.Verdict, error)
}

// Submission is the candidate story under validation
type Submission struct {
	Headline   string
	Summary    string
	Category   string
	SourceURLs []string
}

// Result is the validation verdict with human-readable notes
type Result struct {
	Valid bool
	Notes string
}

// Validator runs field checks, source scraping and the credibility oracle in
// order, short-circuiting at the first failure
type Validator struct {
	fetcher      SourceFetcher
	oracle       Oracle
	categories   []string
	maxBatchSize int
}

// New creates a validator. The category set is injected here rather than
// read from a global so deployments and tests can substitute their own.
func New(fetcher SourceFetcher, o Oracle, categories []string, maxBatchSize int) *Validator {
	if maxBatchSize <= 0 {
		maxBatchSize = 5
	}
	return &Validator{
		fetcher:      fetcher,
		oracle:       o,
		categories:   categories,
		maxBatchSize: maxBatchSize,
	}
}

// Validate runs the full validation pass for one submission
func (v *Validator) Validate(ctx context.Context, sub Submission) Result {
	if utf8.RuneCountInString(sub.Headline) < minHeadlineLen {
		return Result{Notes: fmt.Sprintf("Headline must be at least %d characters.", minHeadlineLen)}
	}

	if utf8.RuneCountInString(sub.Summary) < minSummaryLen {
		return Result{Notes: fmt.Sprintf("Summary must be at least %d characters.", minSummaryLen)}
	}

	if !v.validCategory(sub.Category) {
		return Result{Notes: fmt.Sprintf("Invalid category %q. Valid: %s",
			sub.Category, strings.Join(v.categories, ", "))}
	}

	if len(sub.SourceURLs) == 0 {
		return Result{Notes: "At least one source URL is required."}
	}

	urls := sub.SourceURLs
	if len(urls) > v.maxBatchSize {
		urls = urls[:v.maxBatchSize]
	}

	scraped, err := v.fetcher.Fetch(ctx, urls)
	if err != nil {
		log.Warn().Err(err).Msg("Source scrape failed outright")
		return Result{Notes: "Failed to scrape source URLs. Please retry."}
	}

	sourcesText, reachable := buildSourcesText(urls, scraped)
	if reachable == 0 {
		return Result{Notes: "None of the provided source URLs were reachable."}
	}

	verdict, err := v.oracle.Assess(ctx, sub.Headline, sub.Summary, sub.Category, sourcesText)
	if err != nil {
		// Unavailable is deliberately distinct from a credibility rejection
		// so submitters know to retry instead of rewording the story
		return Result{Notes: "Validation service unavailable, please retry."}
	}

	if !verdict.Credible {
		return Result{Notes: "Rejected: " + verdict.Rationale}
	}

	return Result{
		Valid: true,
		Notes: fmt.Sprintf("Verified credible (confidence %.2g). %s", verdict.Confidence, verdict.Rationale),
	}
}

func (v *Validator) validCategory(category string) bool {
	for _, c := range v.categories {
		if c == category {
			return true
		}
	}
	return false
}

// buildSourcesText joins per-URL content with labels, marking unreachable
// URLs instead of dropping them, and reports how many URLs had content
func buildSourcesText(urls []string, scraped map[string]string) (string, int) {
	var b strings.Builder
	reachable := 0

	for i, url := range urls {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(fmt.Sprintf("Source: %s\n", url))

		content := scraped[url]
		if content == "" {
			b.WriteString("(unreachable)")
			continue
		}
		reachable++
		b.WriteString(content)
	}

	return b.String(), reachable
}
