// Package build renders the site's feed artifacts from WordPress content and
// writes them to a blob store.
package build

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nailsmag/wpsite/internal/digest"
	"github.com/nailsmag/wpsite/internal/feed"
	"github.com/nailsmag/wpsite/internal/id"
	"github.com/nailsmag/wpsite/internal/metrics"
	"github.com/nailsmag/wpsite/internal/storage"
	"github.com/nailsmag/wpsite/internal/wordpress"
)

// Artifact names written by every build.
const (
	ArtifactRSS     = "rss.xml"
	ArtifactSitemap = "sitemap.xml"
)

// Event names published after a build.
const (
	EventCompleted = "build.completed"
	EventFailed    = "build.failed"
)

// Content is the slice of the gateway a build reads.
type Content interface {
	AllPosts(ctx context.Context) []wordpress.Post
	Pages(ctx context.Context) []wordpress.Post
}

// Publisher announces finished builds.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Options configures a Builder.
type Options struct {
	Site feed.Site
	// Prefix is prepended to every artifact path, e.g. "public".
	Prefix string
	// Now is used for timestamps; defaults to time.Now.
	Now func() time.Time
}

// Builder runs builds. It is safe for concurrent use.
type Builder struct {
	content   Content
	store     storage.BlobStore
	publisher Publisher
	opts      Options
	logger    *zap.Logger
}

// Report summarizes one build.
type Report struct {
	ID         string            `json:"build_id"`
	Status     string            `json:"status"`
	Posts      int               `json:"posts"`
	Pages      int               `json:"pages"`
	Artifacts  map[string]string `json:"artifacts"`
	Checksums  map[string]string `json:"checksums"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Error      string            `json:"error,omitempty"`
	MessageID  string            `json:"-"`
}

// New returns a Builder. publisher may be nil.
func New(content Content, store storage.BlobStore, publisher Publisher, opts Options, logger *zap.Logger) (*Builder, error) {
	if content == nil {
		return nil, errors.New("content source is required")
	}
	if store == nil {
		return nil, errors.New("blob store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	metrics.Init()
	return &Builder{
		content:   content,
		store:     store,
		publisher: publisher,
		opts:      opts,
		logger:    logger.Named("build"),
	}, nil
}

type artifact struct {
	name        string
	contentType string
	body        []byte
}

// Run fetches posts and pages, renders every artifact and uploads them
// concurrently. A publish failure is logged but does not fail the build.
func (b *Builder) Run(ctx context.Context) (Report, error) {
	report := Report{
		ID:        id.New(),
		StartedAt: b.opts.Now().UTC(),
		Artifacts: map[string]string{},
		Checksums: map[string]string{},
	}
	logger := b.logger.With(zap.String("build_id", report.ID))

	posts := b.content.AllPosts(ctx)
	pages := b.content.Pages(ctx)
	report.Posts, report.Pages = len(posts), len(pages)
	if len(posts) == 0 {
		logger.Warn("no posts returned; writing empty feed")
	}

	artifacts, err := b.render(posts, pages)
	if err == nil {
		for _, a := range artifacts {
			report.Checksums[a.name] = digest.Sum(a.body)
		}
		err = b.upload(ctx, artifacts, report.Artifacts)
	}

	report.FinishedAt = b.opts.Now().UTC()
	if err != nil {
		report.Status = "failed"
		report.Error = err.Error()
		logger.Error("build failed", zap.Error(err))
		b.announce(ctx, logger, EventFailed, &report)
		return report, err
	}

	report.Status = "completed"
	metrics.MarkBuildSuccess(report.FinishedAt)
	logger.Info("build completed",
		zap.Int("posts", report.Posts),
		zap.Int("pages", report.Pages),
		zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
	)
	b.announce(ctx, logger, EventCompleted, &report)
	return report, nil
}

func (b *Builder) render(posts, pages []wordpress.Post) ([]artifact, error) {
	var rss bytes.Buffer
	if err := feed.WriteRSS(&rss, feed.ChannelFor(b.opts.Site, posts)); err != nil {
		metrics.ObserveArtifact(ArtifactRSS, "render_error")
		return nil, fmt.Errorf("render %s: %w", ArtifactRSS, err)
	}
	var sitemap bytes.Buffer
	if err := feed.WriteSitemap(&sitemap, b.opts.Site, posts, pages); err != nil {
		metrics.ObserveArtifact(ArtifactSitemap, "render_error")
		return nil, fmt.Errorf("render %s: %w", ArtifactSitemap, err)
	}
	return []artifact{
		{name: ArtifactRSS, contentType: "application/rss+xml; charset=utf-8", body: rss.Bytes()},
		{name: ArtifactSitemap, contentType: "application/xml; charset=utf-8", body: sitemap.Bytes()},
	}, nil
}

func (b *Builder) upload(ctx context.Context, artifacts []artifact, uris map[string]string) error {
	var mu sync.Mutex
	g, gCtx := errgroup.WithContext(ctx)
	for _, a := range artifacts {
		g.Go(func() error {
			uri, err := b.store.PutObject(gCtx, b.objectPath(a.name), a.contentType, bytes.NewReader(a.body))
			if err != nil {
				metrics.ObserveArtifact(a.name, "upload_error")
				return fmt.Errorf("upload %s: %w", a.name, err)
			}
			metrics.ObserveArtifact(a.name, "written")
			mu.Lock()
			uris[a.name] = uri
			mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

func (b *Builder) objectPath(name string) string {
	prefix := strings.Trim(b.opts.Prefix, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

func (b *Builder) announce(ctx context.Context, logger *zap.Logger, event string, report *Report) {
	if b.publisher == nil {
		return
	}
	msgID, err := b.publisher.Publish(ctx, event, *report)
	if err != nil {
		logger.Warn("publish build event", zap.String("event", event), zap.Error(err))
		return
	}
	report.MessageID = msgID
	logger.Debug("published build event", zap.String("event", event), zap.String("message_id", msgID))
}
