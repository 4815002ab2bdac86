package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch_Extraction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>
			<head>
				<title>Quake hits coastal city</title>
				<meta name="description" content="A magnitude 6 earthquake struck overnight.">
				<script>var tracking = true;</script>
				<style>body { color: red; }</style>
			</head>
			<body>
				<nav>Home News About</nav>
				<header>SiteName</header>
				<p>Rescue   teams are
				on the ground.</p>
				<footer>Copyright</footer>
			</body>
		</html>`)
	}))
	defer srv.Close()

	s := New(3, 15)
	results, err := s.Fetch(context.Background(), []string{srv.URL})
	require.NoError(t, err)

	content := results[srv.URL]
	assert.Contains(t, content, "Title: Quake hits coastal city")
	assert.Contains(t, content, "Description: A magnitude 6 earthquake struck overnight.")
	assert.Contains(t, content, "Rescue teams are on the ground.")
	assert.NotContains(t, content, "tracking")
	assert.NotContains(t, content, "color: red")
	assert.NotContains(t, content, "Home News About")
	assert.NotContains(t, content, "SiteName")
	assert.NotContains(t, content, "Copyright")
}

func TestFetch_BodyTruncated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "<html><body>%s</body></html>", strings.Repeat("word ", 1000))
	}))
	defer srv.Close()

	s := New(3, 15)
	results, err := s.Fetch(context.Background(), []string{srv.URL})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(results[srv.URL]), bodyExcerptLimit)
}

func TestFetch_TruncationKeepsValidUTF8(t *testing.T) {
	// 700 three-byte runes put the byte limit mid-rune
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "<html><body>%s</body></html>", strings.Repeat("火", 700))
	}))
	defer srv.Close()

	s := New(3, 15)
	results, err := s.Fetch(context.Background(), []string{srv.URL})
	require.NoError(t, err)

	content := results[srv.URL]
	assert.LessOrEqual(t, len(content), bodyExcerptLimit)
	assert.True(t, utf8.ValidString(content))
}

func TestFetch_Failures(t *testing.T) {
	notFound := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer notFound.Close()

	unreachable := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	unreachable.Close() // connection refused from here on

	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><head><title>Still up</title></head><body>fine</body></html>")
	}))
	defer ok.Close()

	s := New(3, 2)
	results, err := s.Fetch(context.Background(), []string{notFound.URL, unreachable.URL, ok.URL})
	require.NoError(t, err)

	assert.Equal(t, "", results[notFound.URL])
	assert.Equal(t, "", results[unreachable.URL])
	assert.Contains(t, results[ok.URL], "Still up")
}

func TestFetch_DeduplicatesURLs(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, "<html><body>once</body></html>")
	}))
	defer srv.Close()

	s := New(3, 15)
	results, err := s.Fetch(context.Background(), []string{srv.URL, srv.URL, srv.URL})
	require.NoError(t, err)

	assert.Len(t, results, 1)
	assert.Equal(t, int32(1), hits.Load())
}

func TestFetch_BoundedConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		defer inFlight.Add(-1)
		fmt.Fprint(w, "<html><body>ok</body></html>")
	}))
	defer srv.Close()

	urls := make([]string, 8)
	for i := range urls {
		urls[i] = fmt.Sprintf("%s/?p=%d", srv.URL, i)
	}

	s := New(2, 15)
	_, err := s.Fetch(context.Background(), urls)
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestFetch_SendsUserAgent(t *testing.T) {
	var ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		fmt.Fprint(w, "<html><body>ok</body></html>")
	}))
	defer srv.Close()

	s := New(1, 15)
	_, err := s.Fetch(context.Background(), []string{srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "newswire/1.0 (+source verification)", ua)
}
