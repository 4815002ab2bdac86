package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
)

const bodyExcerptLimit = 2000

// Scraper fetches source URLs and extracts normalized plain text from each.
// Fetches fan out with bounded concurrency and no retries; a URL that fails
// or times out yields an empty string rather than failing the batch.
type Scraper struct {
	client      *http.Client
	maxInFlight int
}

// New creates a scraper with the given fanout and per-request time budget
func New(maxConcurrency, timeoutSeconds int) *Scraper {
	if maxConcurrency <= 0 {
		maxConcurrency = 3
	}
	if timeoutSeconds <= 0 {
		timeoutSeconds = 15
	}
	return &Scraper{
		client:      &http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second},
		maxInFlight: maxConcurrency,
	}
}

// Fetch fetches every URL and returns a map of URL to extracted text. An
// empty string means the page was unreachable or had no usable content.
func (s *Scraper) Fetch(ctx context.Context, urls []string) (map[string]string, error) {
	results := make(map[string]string, len(urls))
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, s.maxInFlight)

	seen := make(map[string]bool, len(urls))
	for _, url := range urls {
		if seen[url] {
			continue
		}
		seen[url] = true

		wg.Add(1)
		go func(url string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			content := s.fetchOne(ctx, url)
			mu.Lock()
			results[url] = content
			mu.Unlock()
		}(url)
	}

	wg.Wait()
	return results, nil
}

func (s *Scraper) fetchOne(ctx context.Context, url string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		log.Debug().Str("url", url).Err(err).Msg("Invalid source URL")
		return ""
	}
	req.Header.Set("User-Agent", "newswire/1.0 (+source verification)")

	resp, err := s.client.Do(req)
	if err != nil {
		log.Debug().Str("url", url).Err(err).Msg("Source fetch failed")
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Debug().Str("url", url).Int("status", resp.StatusCode).Msg("Source returned non-2xx")
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		log.Debug().Str("url", url).Err(err).Msg("Failed to parse source page")
		return ""
	}

	return extractContent(doc)
}

// extractContent pulls the page title, meta description and the leading body
// text with boilerplate elements stripped, joined with labels. Empty pieces
// are omitted.
func extractContent(doc *goquery.Document) string {
	title := strings.TrimSpace(doc.Find("title").First().Text())
	metaDesc := ""
	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		metaDesc = strings.TrimSpace(desc)
	}

	doc.Find("script, style, nav, footer, header").Remove()
	bodyText := collapseWhitespace(doc.Find("body").Text())
	bodyText = truncateRunes(bodyText, bodyExcerptLimit)

	var pieces []string
	if title != "" {
		pieces = append(pieces, fmt.Sprintf("Title: %s", title))
	}
	if metaDesc != "" {
		pieces = append(pieces, fmt.Sprintf("Description: %s", metaDesc))
	}
	if bodyText != "" {
		pieces = append(pieces, bodyText)
	}

	return strings.Join(pieces, "\n")
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncateRunes cuts s to at most limit bytes without splitting a multi-byte
// rune
func truncateRunes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
