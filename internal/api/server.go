package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/nailsmag/wpsite/internal/cdn"
	"github.com/nailsmag/wpsite/internal/digest"
	"github.com/nailsmag/wpsite/internal/feed"
	"github.com/nailsmag/wpsite/internal/metrics"
	"github.com/nailsmag/wpsite/internal/seo"
	"github.com/nailsmag/wpsite/internal/wordpress"
)

// Content is the read side of the WordPress gateway.
type Content interface {
	PostsForPage(ctx context.Context, page int) wordpress.PageResult
	AllPosts(ctx context.Context) []wordpress.Post
	Post(ctx context.Context, slug string) (wordpress.Post, bool)
	Pages(ctx context.Context) []wordpress.Post
	Menu(ctx context.Context, preferredID int) []wordpress.MenuItem
	Options(ctx context.Context) wordpress.Options
}

// Options configures NewServer.
type Options struct {
	Site     feed.Site
	Resolver seo.Resolver
	CDN      cdn.Rewriter
	// Timeout bounds each request; zero selects 30s.
	Timeout time.Duration
}

// Server wires HTTP handlers to the content gateway.
type Server struct {
	router   chi.Router
	content  Content
	resolver seo.Resolver
	cdn      cdn.Rewriter
	site     feed.Site
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(content Content, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Resolver == (seo.Resolver{}) {
		opts.Resolver = seo.NewResolver(seo.Options{})
	}
	s := &Server{
		content:  content,
		resolver: opts.Resolver,
		cdn:      opts.CDN,
		site:     opts.Site,
		logger:   logger.Named("api"),
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))
	r.Use(recoverMiddleware(s.logger))
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(opts.Timeout))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get("/rss.xml", s.rss)
	r.Get("/sitemap.xml", s.sitemap)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/posts", s.listPosts)
		r.Get("/posts/{slug}", s.getPost)
		r.Get("/pages", s.listPages)
		r.Get("/menu", s.getMenu)
		r.Get("/options", s.getOptions)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	// The gateway degrades to empty results, so the server is ready as soon as it serves.
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) rss(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	ch := feed.ChannelFor(s.site, s.content.AllPosts(r.Context()))
	if err := feed.WriteRSS(&buf, ch); err != nil {
		s.logger.Error("render rss", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to render feed")
		return
	}
	s.writeBody(w, r, "application/rss+xml; charset=utf-8", buf.Bytes())
}

func (s *Server) sitemap(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	ctx := r.Context()
	if err := feed.WriteSitemap(&buf, s.site, s.content.AllPosts(ctx), s.content.Pages(ctx)); err != nil {
		s.logger.Error("render sitemap", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to render sitemap")
		return
	}
	s.writeBody(w, r, "application/xml; charset=utf-8", buf.Bytes())
}

type postsResponse struct {
	Page int `json:"page"`
	wordpress.PageResult
}

func (s *Server) listPosts(w http.ResponseWriter, r *http.Request) {
	page, err := intParam(r, "page", 1)
	if err != nil || page < 1 {
		s.writeError(w, http.StatusBadRequest, "page must be a positive integer")
		return
	}
	res := s.content.PostsForPage(r.Context(), page)
	if res.Items == nil {
		res.Items = []wordpress.Post{}
	}
	s.writeJSON(w, http.StatusOK, postsResponse{Page: page, PageResult: res})
}

type postResponse struct {
	Post wordpress.Post `json:"post"`
	Meta seo.Meta       `json:"meta"`
}

func (s *Server) getPost(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	post, ok := s.content.Post(r.Context(), slug)
	if !ok {
		s.writeError(w, http.StatusNotFound, "post not found")
		return
	}
	meta := s.cdn.Meta(s.resolver.Resolve(&post))
	s.writeJSON(w, http.StatusOK, postResponse{Post: post, Meta: meta})
}

func (s *Server) listPages(w http.ResponseWriter, r *http.Request) {
	pages := s.content.Pages(r.Context())
	if pages == nil {
		pages = []wordpress.Post{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"items": pages})
}

func (s *Server) getMenu(w http.ResponseWriter, r *http.Request) {
	menuID, err := intParam(r, "id", 0)
	if err != nil || menuID < 0 {
		s.writeError(w, http.StatusBadRequest, "id must be a non-negative integer")
		return
	}
	items := s.content.Menu(r.Context(), menuID)
	if items == nil {
		items = []wordpress.MenuItem{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) getOptions(w http.ResponseWriter, r *http.Request) {
	opts := s.content.Options(r.Context())
	if opts == nil {
		opts = wordpress.Options{}
	}
	s.writeJSON(w, http.StatusOK, opts)
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New(name + " is not an integer")
	}
	return v, nil
}

func (s *Server) writeBody(w http.ResponseWriter, r *http.Request, contentType string, body []byte) {
	etag := digest.ETag(body)
	w.Header().Set("ETag", etag)
	if digest.NotModified(r, etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		s.logger.Warn("write body failed", zap.Error(err))
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
