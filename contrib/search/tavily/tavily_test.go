package tavily

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "key", req["api_key"])
		assert.Equal(t, "basic", req["search_depth"])
		w.Write([]byte(`{"results":[
			{"title":"A","url":"https://a.example","content":"alpha"},
			{"title":"B","url":"https://b.example","content":"beta"},
			{"title":"C","url":"https://c.example","content":"gamma"}]}`))
	}))
	defer srv.Close()
	orig := baseURL
	baseURL = srv.URL
	defer func() { baseURL = orig }()

	got, err := New("key", nil).Search(context.Background(), "q", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "alpha", got[0].Snippet)
	assert.Equal(t, "https://b.example", got[1].URL)
}

func TestSearchMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>not json</html>`))
	}))
	defer srv.Close()
	orig := baseURL
	baseURL = srv.URL
	defer func() { baseURL = orig }()

	_, err := New("key", nil).Search(context.Background(), "q", 2)
	assert.Error(t, err)
}
