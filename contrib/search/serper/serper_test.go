package serper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, h http.HandlerFunc) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	orig := baseURL
	baseURL = srv.URL
	t.Cleanup(func() { baseURL = orig })
}

func TestSearchParsesOrganicAndAnswerBox(t *testing.T) {
	serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "secret", r.Header.Get("X-API-KEY"))
		var req request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ai in healthcare", req.Q)
		assert.Equal(t, 3, req.Num)

		w.Write([]byte(`{
			"answerBox": {"answer": "AI helps diagnosis", "link": "https://answer.example"},
			"organic": [
				{"title": "One", "link": "https://one.example", "snippet": "first"},
				{"title": "Two", "link": "https://two.example", "snippet": "second"},
				{"title": "Three", "link": "https://three.example", "snippet": "third"}
			]
		}`))
	})

	got, err := New("secret", nil).Search(context.Background(), "ai in healthcare", 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "Featured Answer", got[0].Title)
	assert.Equal(t, "AI helps diagnosis", got[0].Snippet)
	assert.Equal(t, "https://one.example", got[1].URL)
	assert.Equal(t, "second", got[2].Snippet)
}

func TestSearchHTTPError(t *testing.T) {
	serve(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	})

	_, err := New("secret", nil).Search(context.Background(), "q", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 401")
}

func TestConfigured(t *testing.T) {
	assert.False(t, New("  ", nil).Configured())
	assert.True(t, New("k", nil).Configured())
	assert.Equal(t, "serper", New("", nil).Name())
}
