package arxiv

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const atomFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2301.07041v1</id>
    <published>2023-01-17T18:00:00Z</published>
    <title>Large Language Models
      in Medicine</title>
    <summary>  We survey clinical applications.  </summary>
    <link href="http://arxiv.org/abs/2301.07041v1" rel="alternate" type="text/html"/>
    <link title="pdf" href="http://arxiv.org/pdf/2301.07041v1" rel="related" type="application/pdf"/>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2302.00001v2</id>
    <title>Long Abstract</title>
    <summary>` + "LONG" + `</summary>
  </entry>
</feed>`

func TestSearchParsesFeed(t *testing.T) {
	long := strings.Repeat("word ", 100)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "all:llm medicine", q.Get("search_query"))
		assert.Equal(t, "2", q.Get("max_results"))
		w.Write([]byte(strings.Replace(atomFeed, "LONG", long, 1)))
	}))
	defer srv.Close()
	orig := apiBase
	apiBase = srv.URL
	defer func() { apiBase = orig }()

	got, err := New(nil, "test").Search(context.Background(), "llm  medicine", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Large Language Models in Medicine", got[0].Title)
	assert.Equal(t, "We survey clinical applications.", got[0].Snippet)
	assert.Equal(t, "http://arxiv.org/abs/2301.07041v1", got[0].URL)
	assert.Equal(t, time.Date(2023, 1, 17, 18, 0, 0, 0, time.UTC), got[0].Timestamp)

	assert.Equal(t, "http://arxiv.org/abs/2302.00001v2", got[1].URL)
	assert.True(t, strings.HasSuffix(got[1].Snippet, "..."))
	assert.LessOrEqual(t, len([]rune(got[1].Snippet)), abstractLimit+3)
	assert.True(t, got[1].Timestamp.IsZero())
}

func TestSearchEmptyQuery(t *testing.T) {
	_, err := New(nil, "").Search(context.Background(), "   ", 5)
	assert.Error(t, err)
}
