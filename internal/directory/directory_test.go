package directory

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	t.Run("known agent", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/agents/agent-1", r.URL.Path)
			fmt.Fprint(w, `{"name": "Newshound", "reputation": 0.87}`)
		}))
		defer srv.Close()

		info := New(srv.URL).Lookup(context.Background(), "agent-1")
		require.NotNil(t, info.Name)
		assert.Equal(t, "Newshound", *info.Name)
		require.NotNil(t, info.Reputation)
		assert.Equal(t, 0.87, *info.Reputation)
	})

	t.Run("unknown agent degrades to empty", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		defer srv.Close()

		info := New(srv.URL).Lookup(context.Background(), "nobody")
		assert.Nil(t, info.Name)
		assert.Nil(t, info.Reputation)
	})

	t.Run("unreachable directory degrades to empty", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		info := New(srv.URL).Lookup(context.Background(), "agent-1")
		assert.Nil(t, info.Name)
		assert.Nil(t, info.Reputation)
	})

	t.Run("undecodable body degrades to empty", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "not json")
		}))
		defer srv.Close()

		info := New(srv.URL).Lookup(context.Background(), "agent-1")
		assert.Nil(t, info.Name)
	})

	t.Run("address is path escaped", func(t *testing.T) {
		var path string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path = r.URL.EscapedPath()
			fmt.Fprint(w, `{}`)
		}))
		defer srv.Close()

		New(srv.URL).Lookup(context.Background(), "a/b c")
		assert.Equal(t, "/api/agents/a%2Fb%20c", path)
	})
}
