// Package app_test contains unit tests for the app package.
package app_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nailsmag/wpsite/internal/app"
	"github.com/nailsmag/wpsite/internal/config"
	pubmemory "github.com/nailsmag/wpsite/internal/publisher/memory"
	"github.com/nailsmag/wpsite/internal/storage/memory"
)

func testConfig(apiURL string) config.Config {
	return config.Config{
		WordPress: config.WordPressConfig{APIURL: apiURL},
		SEO:       config.SEOConfig{DescriptionMax: 160, Ellipsis: "..."},
		CDN:       config.CDNConfig{OriginHost: "wp.nailsmag.co.uk", Host: "enbxd79stev.exactdn.com"},
		Site:      config.SiteConfig{Title: "Nails", URL: "https://nailsmag.co.uk", BlogPath: "blog"},
		Output:    config.OutputConfig{Backend: config.BackendMemory},
	}
}

func upstream(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/wp-json/wp/v2/posts", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("slug") != "" {
			_, _ = w.Write([]byte(`[{"id":1,"slug":"chrome","title":{"rendered":"Chrome"},"excerpt":{"rendered":"<p>Shiny</p>"}}]`))
			return
		}
		_, _ = w.Write([]byte(`[{"id":1,"slug":"chrome","date":"2024-03-01T10:00:00","title":{"rendered":"Chrome"}}]`))
	})
	mux.HandleFunc("/wp-json/wp/v2/pages", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"id":2,"slug":"about"}]`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestNewAppWiresBuild(t *testing.T) {
	t.Parallel()

	srv := upstream(t)
	store := memory.NewBlobStore()
	pub := pubmemory.New()
	a, err := app.NewApp(context.Background(), testConfig(srv.URL+"/wp-json/wp/v2"), zap.NewNop(),
		app.WithStore(store), app.WithPublisher(pub))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, a.Close()) })

	assert.Equal(t, srv.URL, a.Gateway().Config().SiteURL)

	b, err := a.Builder(context.Background())
	require.NoError(t, err)
	report, err := b.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Posts)
	assert.Equal(t, 1, report.Pages)
	assert.Equal(t, []string{"rss.xml", "sitemap.xml"}, store.Paths())
	assert.Len(t, pub.Messages(), 1)
}

func TestNewAppWiresServer(t *testing.T) {
	t.Parallel()

	srv := upstream(t)
	a, err := app.NewApp(context.Background(), testConfig(srv.URL+"/wp-json/wp/v2"), nil)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	a.Server().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/posts/chrome", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"description":"Shiny"`)
}

func TestNewAppLocalBackend(t *testing.T) {
	t.Parallel()

	cfg := testConfig("http://127.0.0.1:1/wp-json/wp/v2")
	cfg.Output = config.OutputConfig{Backend: config.BackendLocal, Dir: t.TempDir()}
	a, err := app.NewApp(context.Background(), cfg, nil)
	require.NoError(t, err)

	_, err = a.Builder(context.Background())
	require.NoError(t, err)
	_, err = a.Builder(context.Background())
	require.NoError(t, err)
	assert.NoError(t, a.Close())
}

func TestBuilderRejectsUnknownBackend(t *testing.T) {
	t.Parallel()

	cfg := testConfig("http://127.0.0.1:1/wp-json/wp/v2")
	cfg.Output.Backend = "ftp"
	a, err := app.NewApp(context.Background(), cfg, nil)
	require.NoError(t, err, "outputs are not opened until a build needs them")

	_, err = a.Builder(context.Background())
	require.ErrorContains(t, err, "initialize artifact store")
	assert.NoError(t, a.Close())
}

func TestServerDoesNotOpenOutputs(t *testing.T) {
	t.Parallel()

	srv := upstream(t)
	cfg := testConfig(srv.URL + "/wp-json/wp/v2")
	cfg.Output = config.OutputConfig{Backend: config.BackendGCS, GCSBucket: "unreachable-bucket"}
	cfg.PubSub = config.PubSubConfig{ProjectID: "unreachable-project", TopicName: "builds"}
	a, err := app.NewApp(context.Background(), cfg, nil)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	a.Server().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/pages", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, a.Close())
}
