package duckduckgo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const litePage = `<html><body><table>
<tr><td>1.</td><td><a rel="nofollow" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fwho.int%2Fai&amp;rut=x" class='result-link'>WHO &amp; AI</a></td></tr>
<tr><td></td><td class='result-snippet'>Guidance on <b>AI</b> in
   health.</td></tr>
<tr><td>2.</td><td><a rel="nofollow" href="https://nature.com/ai-med" class='result-link'>Nature</a></td></tr>
<tr><td></td><td class='result-snippet'>Review article.</td></tr>
<tr><td>3.</td><td><a href="javascript:void(0)" class='result-link'>Ad</a></td></tr>
<tr><td></td><td class='result-snippet'>sponsored</td></tr>
</table></body></html>`

func TestSearchParsesLitePage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "ai in healthcare", r.PostForm.Get("q"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Write([]byte(litePage))
	}))
	defer srv.Close()
	orig := baseURL
	baseURL = srv.URL
	defer func() { baseURL = orig }()

	got, err := New(nil, time.Millisecond).Search(context.Background(), "ai in healthcare", 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "WHO & AI", got[0].Title)
	assert.Equal(t, "https://who.int/ai", got[0].URL)
	assert.Equal(t, "Guidance on AI in health.", got[0].Snippet)
	assert.Equal(t, "https://nature.com/ai-med", got[1].URL)
}

func TestSearchRespectsCancelledContext(t *testing.T) {
	b := New(nil, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := b.Search(ctx, "q", 5)
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	assert.Equal(t, "https://example.com/a", resolve("https://example.com/a"))
	assert.Equal(t, "https://x.org/", resolve("//duckduckgo.com/l/?uddg=https%3A%2F%2Fx.org%2F"))
	assert.Equal(t, "", resolve("/settings"))
	assert.Equal(t, "", resolve(""))
}
