package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/nailsmag/wpsite/internal/cdn"
	"github.com/nailsmag/wpsite/internal/feed"
	"github.com/nailsmag/wpsite/internal/seo"
	"github.com/nailsmag/wpsite/internal/wordpress"
)

type fakeContent struct {
	mu        sync.Mutex
	posts     []wordpress.Post
	pages     []wordpress.Post
	menu      []wordpress.MenuItem
	options   wordpress.Options
	pageCalls []int
	menuCalls []int
	panicOn   string
}

func (f *fakeContent) PostsForPage(_ context.Context, page int) wordpress.PageResult {
	f.mu.Lock()
	f.pageCalls = append(f.pageCalls, page)
	f.mu.Unlock()
	return wordpress.PageResult{Items: f.posts, TotalPages: 3, TotalItems: 25}
}

func (f *fakeContent) AllPosts(context.Context) []wordpress.Post { return f.posts }

func (f *fakeContent) Post(_ context.Context, slug string) (wordpress.Post, bool) {
	if slug == f.panicOn {
		panic("boom")
	}
	for _, p := range f.posts {
		if p.Slug == slug {
			return p, true
		}
	}
	return wordpress.Post{}, false
}

func (f *fakeContent) Pages(context.Context) []wordpress.Post { return f.pages }

func (f *fakeContent) Menu(_ context.Context, preferredID int) []wordpress.MenuItem {
	f.mu.Lock()
	f.menuCalls = append(f.menuCalls, preferredID)
	f.mu.Unlock()
	return f.menu
}

func (f *fakeContent) Options(context.Context) wordpress.Options { return f.options }

func samplePost() wordpress.Post {
	return wordpress.Post{
		ID:       7,
		Slug:     "chrome-nails",
		Date:     "2024-03-01T10:00:00",
		Title:    wordpress.Rendered{Rendered: "Chrome &#038; Gold"},
		Excerpt:  wordpress.Rendered{Rendered: "<p>Mirror finish.</p>"},
		SEOTitle: "Chrome Nails Guide",
		Embedded: &wordpress.Embedded{FeaturedMedia: []wordpress.Media{
			{SourceURL: "https://wp.nailsmag.co.uk/wp-content/uploads/chrome.jpg"},
		}},
	}
}

func newTestServer(content *fakeContent, logger *zap.Logger) *Server {
	return NewServer(content, Options{
		Site:     feed.Site{Title: "Nails Magazine", URL: "https://nailsmag.co.uk", BlogPath: "blog"},
		Resolver: seo.NewResolver(seo.Options{}),
		CDN:      cdn.New("wp.nailsmag.co.uk", "enbxd79stev.exactdn.com"),
		Timeout:  5 * time.Second,
	}, logger)
}

func serve(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthAndReady(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeContent{}, nil)
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := serve(t, s, path)
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.NotEmpty(t, rec.Header().Get(headerRequestID))
	}
}

func TestRequestIDIsPropagated(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeContent{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(headerRequestID, "abc-123")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(headerRequestID))
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeContent{}, nil)
	serve(t, s, "/healthz")
	rec := serve(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestListPosts(t *testing.T) {
	t.Parallel()

	content := &fakeContent{posts: []wordpress.Post{samplePost()}}
	s := newTestServer(content, nil)

	rec := serve(t, s, "/v1/posts?page=2")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Page       int              `json:"page"`
		TotalPages int              `json:"total_pages"`
		TotalItems int              `json:"total_items"`
		Items      []wordpress.Post `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Page)
	assert.Equal(t, 3, body.TotalPages)
	assert.Equal(t, 25, body.TotalItems)
	require.Len(t, body.Items, 1)
	assert.Equal(t, "chrome-nails", body.Items[0].Slug)

	serve(t, s, "/v1/posts")
	assert.Equal(t, []int{2, 1}, content.pageCalls)
}

func TestListPostsEmptyIsArray(t *testing.T) {
	t.Parallel()

	rec := serve(t, newTestServer(&fakeContent{}, nil), "/v1/posts")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"items":[]`)
}

func TestListPostsRejectsBadPage(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeContent{}, nil)
	for _, q := range []string{"page=0", "page=-1", "page=two"} {
		rec := serve(t, s, "/v1/posts?"+q)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestGetPostIncludesMeta(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeContent{posts: []wordpress.Post{samplePost()}}, nil)
	rec := serve(t, s, "/v1/posts/chrome-nails")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Post wordpress.Post `json:"post"`
		Meta seo.Meta       `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 7, body.Post.ID)
	assert.Equal(t, "Chrome Nails Guide", body.Meta.Title)
	assert.Equal(t, "Mirror finish.", body.Meta.Description)
	assert.Equal(t, "Chrome Nails Guide", body.Meta.OGTitle)
	assert.Equal(t, "https://enbxd79stev.exactdn.com/wp-content/uploads/chrome.jpg", body.Meta.SocialImage)
}

func TestGetPostNotFound(t *testing.T) {
	t.Parallel()

	rec := serve(t, newTestServer(&fakeContent{}, nil), "/v1/posts/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "post not found")
}

func TestPanicIsRecoveredAndLogged(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.ErrorLevel)
	s := newTestServer(&fakeContent{panicOn: "bad"}, zap.New(core))
	rec := serve(t, s, "/v1/posts/bad")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}

func TestPagesMenuOptions(t *testing.T) {
	t.Parallel()

	content := &fakeContent{
		pages:   []wordpress.Post{{Slug: "about"}},
		menu:    []wordpress.MenuItem{{ID: 1, Title: "Home", URL: "/"}},
		options: wordpress.Options{"footer_text": "hello"},
	}
	s := newTestServer(content, nil)

	rec := serve(t, s, "/v1/pages")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"slug":"about"`)

	rec = serve(t, s, "/v1/menu?id=4")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"title":"Home"`)
	serve(t, s, "/v1/menu")
	assert.Equal(t, []int{4, 0}, content.menuCalls)

	rec = serve(t, s, "/v1/menu?id=x")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, s, "/v1/options")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"footer_text":"hello"}`, rec.Body.String())
}

func TestEmptyCollectionsAreArrays(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeContent{}, nil)
	assert.JSONEq(t, `{"items":[]}`, serve(t, s, "/v1/pages").Body.String())
	assert.JSONEq(t, `{"items":[]}`, serve(t, s, "/v1/menu").Body.String())
	assert.JSONEq(t, `{}`, serve(t, s, "/v1/options").Body.String())
}

func TestFeedsRender(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeContent{posts: []wordpress.Post{samplePost()}, pages: []wordpress.Post{{Slug: "about"}}}, nil)

	rec := serve(t, s, "/rss.xml")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "application/rss+xml"))
	assert.Contains(t, rec.Body.String(), "<title>Chrome &amp; Gold</title>")
	assert.Contains(t, rec.Body.String(), "<link>https://nailsmag.co.uk/blog/chrome-nails/</link>")

	rec = serve(t, s, "/sitemap.xml")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<loc>https://nailsmag.co.uk/about/</loc>")
}

func TestFeedConditionalGet(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeContent{posts: []wordpress.Post{samplePost()}}, nil)
	first := serve(t, s, "/rss.xml")
	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/rss.xml", nil)
	req.Header.Set("If-None-Match", etag)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestFeedRenderFailure(t *testing.T) {
	t.Parallel()

	s := NewServer(&fakeContent{}, Options{Site: feed.Site{URL: "://bad"}}, nil)
	assert.Equal(t, http.StatusInternalServerError, serve(t, s, "/rss.xml").Code)
	assert.Equal(t, http.StatusInternalServerError, serve(t, s, "/sitemap.xml").Code)
}
