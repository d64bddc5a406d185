package reddit

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"redditfrost/internal/dedup"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingJSON = `{
  "kind": "Listing",
  "data": {
    "after": "t3_second",
    "children": [
      {"kind": "t3", "data": {"id": "first", "subreddit": "homelab", "title": "Fans too loud",
        "selftext": "", "selftext_html": "&lt;div&gt;&lt;p&gt;My rack is &lt;b&gt;loud&lt;/b&gt;&lt;/p&gt;&lt;/div&gt;",
        "permalink": "/r/homelab/comments/first/fans/", "author": "u1", "created_utc": 1767225600,
        "num_comments": 3, "score": 12}},
      {"kind": "t3", "data": {"id": "pinned", "subreddit": "homelab", "title": "Rules", "stickied": true}},
      {"kind": "t1", "data": {"id": "comment"}},
      {"kind": "t3", "data": {"id": "second", "subreddit": "homelab", "title": "NAS advice",
        "selftext": "which drives?", "permalink": "/r/homelab/comments/second/nas/", "created_utc": 1767225700}}
    ]
  }
}`

func TestListing(t *testing.T) {
	var gotPath string
	var gotQuery url.Values
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		gotUA = r.Header.Get("User-Agent")
		_, _ = io.WriteString(w, listingJSON)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, UserAgent: "test-agent"})
	page, err := c.Listing(context.Background(), "r/homelab", "rising", "t3_zero", 25)
	require.NoError(t, err)

	assert.Equal(t, "/r/homelab/rising.json", gotPath)
	assert.Equal(t, "t3_zero", gotQuery.Get("after"))
	assert.Equal(t, "25", gotQuery.Get("limit"))
	assert.Equal(t, "test-agent", gotUA)

	assert.Equal(t, "t3_second", page.After)
	require.Len(t, page.Candidates, 2)
	first := page.Candidates[0]
	assert.Equal(t, "first", first.SourceID)
	assert.Equal(t, "homelab", first.Community)
	assert.Equal(t, "My rack is loud", first.Body)
	assert.Equal(t, "https://www.reddit.com/r/homelab/comments/first/fans/", first.URL)
	assert.Equal(t, 3, first.ReplyCount)
	assert.Equal(t, int64(1767225600), first.CreatedAt.Unix())
	assert.Equal(t, dedup.Fingerprint("first"), first.Fingerprint)
	assert.Equal(t, "which drives?", page.Candidates[1].Body)
}

func TestSearchUsesOAuthWhenTokenSet(t *testing.T) {
	var gotAuth string
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.Query()
		assert.Equal(t, "/search.json", r.URL.Path)
		_, _ = io.WriteString(w, `{"kind":"Listing","data":{"after":null,"children":[]}}`)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: "http://unused.invalid", OAuthBaseURL: srv.URL, AccessToken: "tok"})
	page, err := c.Search(context.Background(), `"cold storage" OR freezer`, "", "", 10)
	require.NoError(t, err)
	assert.Empty(t, page.Candidates)
	assert.Empty(t, page.After)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "new", gotQuery.Get("sort"))
	assert.Equal(t, "link", gotQuery.Get("type"))
	assert.Equal(t, `"cold storage" OR freezer`, gotQuery.Get("q"))
}

func TestListingStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()
	c := NewClient(Config{BaseURL: srv.URL})
	_, err := c.Listing(context.Background(), "golang", "new", "", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestSubmitComment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/comment", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "t3_abc", r.PostForm.Get("thing_id"))
		assert.Equal(t, "json", r.PostForm.Get("api_type"))
		assert.True(t, strings.HasPrefix(r.PostForm.Get("text"), "honestly"))
		_, _ = io.WriteString(w, `{"json":{"errors":[],"data":{"things":[{"kind":"t1","data":{"id":"c1","name":"t1_c1"}}]}}}`)
	}))
	defer srv.Close()

	c := NewClient(Config{OAuthBaseURL: srv.URL, AccessToken: "tok"})
	id, err := c.SubmitComment(context.Background(), "abc", "honestly just use a bigger fan")
	require.NoError(t, err)
	assert.Equal(t, "t1_c1", id)
}

func TestSubmitCommentErrors(t *testing.T) {
	anon := NewClient(Config{})
	_, err := anon.SubmitComment(context.Background(), "abc", "hi")
	assert.True(t, errors.Is(err, ErrNotAuthenticated))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer expired" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, `{"json":{"errors":[["RATELIMIT","you are doing that too much","ratelimit"]]}}`)
	}))
	defer srv.Close()

	expired := NewClient(Config{OAuthBaseURL: srv.URL, AccessToken: "expired"})
	_, err = expired.SubmitComment(context.Background(), "abc", "hi")
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	limited := NewClient(Config{OAuthBaseURL: srv.URL, AccessToken: "ok"})
	_, err = limited.SubmitComment(context.Background(), "t3_abc", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RATELIMIT")
}
