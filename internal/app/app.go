// Package app initializes and holds long-lived application services, acting as a dependency injection container.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/nailsmag/wpsite/internal/api"
	"github.com/nailsmag/wpsite/internal/build"
	"github.com/nailsmag/wpsite/internal/cdn"
	"github.com/nailsmag/wpsite/internal/config"
	"github.com/nailsmag/wpsite/internal/feed"
	"github.com/nailsmag/wpsite/internal/metrics"
	"github.com/nailsmag/wpsite/internal/publisher/pubsub"
	"github.com/nailsmag/wpsite/internal/ratelimit"
	"github.com/nailsmag/wpsite/internal/seo"
	"github.com/nailsmag/wpsite/internal/storage"
	"github.com/nailsmag/wpsite/internal/wordpress"
)

// App holds the services shared by the CLI commands.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	gateway   *wordpress.Client
	resolver  seo.Resolver
	cdn       cdn.Rewriter
	site      feed.Site
	opts      options
	store     storage.BlobStore
	publisher build.Publisher
	closers   []func() error
}

// Option customizes NewApp.
type Option func(*options)

type options struct {
	doer      wordpress.Doer
	store     storage.BlobStore
	publisher build.Publisher
}

// WithDoer replaces the HTTP client used against WordPress.
func WithDoer(d wordpress.Doer) Option {
	return func(o *options) { o.doer = d }
}

// WithStore replaces the configured artifact store.
func WithStore(s storage.BlobStore) Option {
	return func(o *options) { o.store = s }
}

// WithPublisher replaces the configured build publisher.
func WithPublisher(p build.Publisher) Option {
	return func(o *options) { o.publisher = p }
}

// NewApp builds the gateway, resolver and rendering services from cfg. The
// artifact store and publisher are opened by the first Builder call.
func NewApp(_ context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	observer := metrics.NewGateway()
	var doer wordpress.Doer = &http.Client{Timeout: cfg.WordPress.Timeout()}
	if o.doer != nil {
		doer = o.doer
	}
	if cfg.WordPress.MaxRPS > 0 {
		limiter := ratelimit.New(ratelimit.Config{RPS: cfg.WordPress.MaxRPS, Burst: cfg.WordPress.Burst}, observer)
		doer = ratelimit.NewDoer(doer, limiter)
	}
	gateway := wordpress.New(wordpress.Config{
		APIURL:         cfg.WordPress.APIURL,
		SiteURL:        cfg.WordPress.SiteBaseURL(),
		PostsPerPage:   cfg.Gateway.PostsPerPage,
		AllPostsCap:    cfg.Gateway.AllPostsCap,
		PrimaryMenuID:  cfg.Gateway.PrimaryMenuID,
		FallbackMenuID: cfg.Gateway.FallbackMenuID,
		UserAgent:      cfg.WordPress.UserAgent,
	}, doer, logger, wordpress.WithObserver(observer))

	return &App{
		cfg:      cfg,
		logger:   logger,
		gateway:  gateway,
		resolver: seo.NewResolver(seo.Options{DescriptionMax: cfg.SEO.DescriptionMax, Ellipsis: cfg.SEO.Ellipsis}),
		cdn:      cdn.New(cfg.CDN.OriginHost, cfg.CDN.Host),
		site: feed.Site{
			Title:       cfg.Site.Title,
			Description: cfg.Site.Description,
			URL:         cfg.Site.URL,
			BlogPath:    cfg.Site.BlogPath,
		},
		opts: o,
	}, nil
}

// openOutputs opens the artifact store and, when configured, the publisher.
// It fails fast when either cannot be reached.
func (a *App) openOutputs(ctx context.Context) error {
	if a.store == nil {
		if a.opts.store != nil {
			a.store = a.opts.store
		} else {
			handle, err := storage.Open(ctx, storage.Options{
				Backend:      a.cfg.Output.Backend,
				Dir:          a.cfg.Output.Dir,
				Bucket:       a.cfg.Output.GCSBucket,
				CacheControl: a.cfg.Output.CacheControl,
			}, a.logger)
			if err != nil {
				return fmt.Errorf("initialize artifact store: %w", err)
			}
			a.store = handle.Store
			a.closers = append(a.closers, handle.Close)
			a.logger.Info("artifact store ready", zap.String("backend", a.cfg.Output.Backend))
		}
	}

	if a.publisher != nil {
		return nil
	}
	switch {
	case a.opts.publisher != nil:
		a.publisher = a.opts.publisher
	case a.cfg.PubSub.Enabled():
		pub, err := pubsub.Dial(ctx, a.cfg.PubSub.ProjectID, a.cfg.PubSub.TopicName)
		if err != nil {
			return fmt.Errorf("initialize publisher: %w", err)
		}
		a.logger.Info("publishing build events", zap.String("topic", a.cfg.PubSub.TopicName))
		a.publisher = pub
		a.closers = append(a.closers, pub.Close)
	}
	return nil
}

// Logger returns the shared logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Gateway returns the WordPress content gateway.
func (a *App) Gateway() *wordpress.Client { return a.gateway }

// Resolver returns the SEO metadata resolver.
func (a *App) Resolver() seo.Resolver { return a.resolver }

// CDN returns the media URL rewriter.
func (a *App) CDN() cdn.Rewriter { return a.cdn }

// Site returns the public site description.
func (a *App) Site() feed.Site { return a.site }

// Builder returns a build pipeline writing to the configured store. The store
// and publisher are opened on the first call and released by Close.
func (a *App) Builder(ctx context.Context) (*build.Builder, error) {
	if err := a.openOutputs(ctx); err != nil {
		return nil, err
	}
	return build.New(a.gateway, a.store, a.publisher, build.Options{
		Site:   a.site,
		Prefix: a.cfg.Output.Prefix,
	}, a.logger)
}

// Server returns the preview HTTP server.
func (a *App) Server() *api.Server {
	return api.NewServer(a.gateway, api.Options{
		Site:     a.site,
		Resolver: a.resolver,
		CDN:      a.cdn,
	}, a.logger)
}

// Close releases clients in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
