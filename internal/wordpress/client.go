package wordpress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultPostsPerPage   = 9
	defaultAllPostsCap    = 100
	defaultPrimaryMenuID  = 2
	defaultFallbackMenuID = 4

	apiPathSuffix = "/wp-json/wp/v2"

	headerTotal      = "X-WP-Total"
	headerTotalPages = "X-WP-TotalPages"

	// maxErrorBody bounds how much of a failed response is kept for logging.
	maxErrorBody = 512
)

// Operation names used for logs and metrics.
const (
	OpTotalPosts = "total_posts"
	OpPosts      = "posts"
	OpAllPosts   = "all_posts"
	OpPost       = "post"
	OpPages      = "pages"
	OpMenu       = "menu"
	OpOptions    = "options"
)

// Doer is the subset of *http.Client the gateway needs.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Observer receives one call per upstream request.
type Observer interface {
	ObserveRequest(operation, outcome string, duration time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveRequest(string, string, time.Duration) {}

// Config controls endpoints, page sizes and menu candidates.
type Config struct {
	// APIURL is the wp/v2 REST base, e.g. https://example.com/wp-json/wp/v2.
	APIURL string
	// SiteURL is the WordPress root used for plugin routes. Derived from APIURL when empty.
	SiteURL        string
	PostsPerPage   int
	AllPostsCap    int
	PrimaryMenuID  int
	FallbackMenuID int
	UserAgent      string
}

func (c Config) withDefaults() Config {
	c.APIURL = strings.TrimRight(c.APIURL, "/")
	if c.SiteURL == "" {
		c.SiteURL = strings.Replace(c.APIURL, apiPathSuffix, "", 1)
	}
	c.SiteURL = strings.TrimRight(c.SiteURL, "/")
	if c.PostsPerPage <= 0 {
		c.PostsPerPage = defaultPostsPerPage
	}
	if c.AllPostsCap <= 0 {
		c.AllPostsCap = defaultAllPostsCap
	}
	if c.PrimaryMenuID <= 0 {
		c.PrimaryMenuID = defaultPrimaryMenuID
	}
	if c.FallbackMenuID <= 0 {
		c.FallbackMenuID = defaultFallbackMenuID
	}
	return c
}

// Client issues GET requests to the WordPress REST API.
type Client struct {
	cfg      Config
	doer     Doer
	logger   *zap.Logger
	observer Observer
}

// Option customizes a Client.
type Option func(*Client)

// WithObserver attaches a metrics observer.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		if o != nil {
			c.observer = o
		}
	}
}

// New builds a Client. A nil doer uses http.DefaultClient; a nil logger discards logs.
func New(cfg Config, doer Doer, logger *zap.Logger, opts ...Option) *Client {
	if doer == nil {
		doer = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		cfg:      cfg.withDefaults(),
		doer:     doer,
		logger:   logger.Named("wordpress"),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the effective configuration after defaults.
func (c *Client) Config() Config {
	return c.cfg
}

// TotalPosts returns the X-WP-Total count of published posts, or 0.
func (c *Client) TotalPosts(ctx context.Context) int {
	return c.fetchTotalPosts(ctx).Or(0)
}

// Posts returns one listing page with embedded resources.
// perPage <= 0 selects the configured page size and page <= 0 selects the first page.
func (c *Client) Posts(ctx context.Context, page, perPage int) PageResult {
	res := c.fetchPosts(ctx, page, perPage)
	if res.Outcome.Failed() {
		return PageResult{Items: []Post{}}
	}
	return res.Value
}

// PostsForPage is Posts with the configured page size.
func (c *Client) PostsForPage(ctx context.Context, page int) PageResult {
	return c.Posts(ctx, page, c.cfg.PostsPerPage)
}

// AllPosts returns up to AllPostsCap posts from a single request.
// It does not paginate: anything beyond the cap is omitted.
func (c *Client) AllPosts(ctx context.Context) []Post {
	return c.fetchAllPosts(ctx).Or([]Post{})
}

// Post looks up a post by exact slug and reports whether it was found.
func (c *Client) Post(ctx context.Context, slug string) (Post, bool) {
	res := c.fetchPost(ctx, slug)
	return res.Value, res.OK()
}

// Pages returns the site's pages.
func (c *Client) Pages(ctx context.Context) []Post {
	return c.fetchPages(ctx).Or([]Post{})
}

// Menu returns the items of the first candidate menu that responds with a non-empty list.
// Candidates are preferredID followed by the configured fallback; preferredID 0 means
// primary then fallback.
func (c *Client) Menu(ctx context.Context, preferredID int) []MenuItem {
	return c.fetchMenu(ctx, preferredID).Or([]MenuItem{})
}

// Options returns the ACF options document.
func (c *Client) Options(ctx context.Context) Options {
	return c.fetchOptions(ctx).Or(Options{})
}

func (c *Client) fetchTotalPosts(ctx context.Context) Result[int] {
	q := url.Values{}
	q.Set("per_page", "1")
	res := do(ctx, c, OpTotalPosts, c.apiEndpoint("/posts", q, false), discardBody, nil)
	if res.Outcome.Failed() {
		return Result[int]{Outcome: res.Outcome, Err: res.Err, Status: res.Status, Header: res.Header}
	}
	return Result[int]{Value: parseCount(res.Header.Get(headerTotal)), Outcome: OutcomeOK, Status: res.Status, Header: res.Header}
}

func (c *Client) fetchPosts(ctx context.Context, page, perPage int) Result[PageResult] {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = c.cfg.PostsPerPage
	}
	q := url.Values{}
	q.Set("per_page", strconv.Itoa(perPage))
	q.Set("page", strconv.Itoa(page))
	res := do(ctx, c, OpPosts, c.apiEndpoint("/posts", q, true), decodeJSON[[]Post], isEmptySlice[Post])
	out := Result[PageResult]{Outcome: res.Outcome, Err: res.Err, Status: res.Status, Header: res.Header}
	if res.Outcome.Failed() {
		return out
	}
	items := res.Value
	if items == nil {
		items = []Post{}
	}
	// An empty page keeps OutcomeEmpty but still carries totals.
	out.Value = PageResult{
		Items:      items,
		TotalItems: parseCount(res.Header.Get(headerTotal)),
		TotalPages: parseCount(res.Header.Get(headerTotalPages)),
	}
	return out
}

func (c *Client) fetchAllPosts(ctx context.Context) Result[[]Post] {
	q := url.Values{}
	q.Set("per_page", strconv.Itoa(c.cfg.AllPostsCap))
	return do(ctx, c, OpAllPosts, c.apiEndpoint("/posts", q, true), decodeJSON[[]Post], isEmptySlice[Post])
}

func (c *Client) fetchPost(ctx context.Context, slug string) Result[Post] {
	q := url.Values{}
	q.Set("slug", slug)
	res := do(ctx, c, OpPost, c.apiEndpoint("/posts", q, true), decodeJSON[[]Post], isEmptySlice[Post])
	out := Result[Post]{Outcome: res.Outcome, Err: res.Err, Status: res.Status, Header: res.Header}
	if res.OK() {
		out.Value = res.Value[0]
	}
	return out
}

func (c *Client) fetchPages(ctx context.Context) Result[[]Post] {
	return do(ctx, c, OpPages, c.apiEndpoint("/pages", nil, false), decodeJSON[[]Post], isEmptySlice[Post])
}

// fetchMenu tries each candidate in order and stops at the first non-empty menu.
// A failed candidate does not prevent the next one from being tried.
func (c *Client) fetchMenu(ctx context.Context, preferredID int) Result[[]MenuItem] {
	var last Result[[]MenuItem]
	for _, id := range c.menuCandidates(preferredID) {
		endpoint := fmt.Sprintf("%s/wp-json/menus/v1/menus/%d", c.cfg.SiteURL, id)
		res := do(ctx, c, OpMenu, endpoint, decodeJSON[menuResponse], func(m menuResponse) bool {
			return len(m.Items) == 0
		})
		last = Result[[]MenuItem]{Value: res.Value.Items, Outcome: res.Outcome, Err: res.Err, Status: res.Status, Header: res.Header}
		if res.OK() {
			return last
		}
		if ctx.Err() != nil {
			break
		}
	}
	return last
}

func (c *Client) menuCandidates(preferredID int) []int {
	primary, fallback := c.cfg.PrimaryMenuID, c.cfg.FallbackMenuID
	switch {
	case preferredID <= 0:
		return []int{primary, fallback}
	case preferredID == primary:
		return []int{primary, fallback}
	default:
		return []int{preferredID, primary}
	}
}

func (c *Client) fetchOptions(ctx context.Context) Result[Options] {
	endpoint := c.cfg.SiteURL + "/wp-json/custom/v1/options"
	return do(ctx, c, OpOptions, endpoint, decodeJSON[Options], func(o Options) bool { return o == nil })
}

// apiEndpoint builds {APIURL}{path}?[_embed&]query.
func (c *Client) apiEndpoint(path string, q url.Values, embed bool) string {
	var b strings.Builder
	b.WriteString(c.cfg.APIURL)
	b.WriteString(path)
	encoded := q.Encode()
	if !embed && encoded == "" {
		return b.String()
	}
	b.WriteByte('?')
	if embed {
		b.WriteString("_embed")
		if encoded != "" {
			b.WriteByte('&')
		}
	}
	b.WriteString(encoded)
	return b.String()
}

type decodeFunc[T any] func(r io.Reader) (T, error)

func decodeJSON[T any](r io.Reader) (T, error) {
	var v T
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		return v, fmt.Errorf("decode response: %w", err)
	}
	return v, nil
}

func discardBody(r io.Reader) (struct{}, error) {
	_, err := io.Copy(io.Discard, r)
	if err != nil {
		return struct{}{}, fmt.Errorf("drain response: %w", err)
	}
	return struct{}{}, nil
}

func isEmptySlice[E any](s []E) bool {
	return len(s) == 0
}

// do performs one GET and classifies the result. It never returns a Go error to callers
// beyond what is carried in the Result.
func do[T any](ctx context.Context, c *Client, op, endpoint string, decode decodeFunc[T], empty func(T) bool) Result[T] {
	start := time.Now()
	res := roundTrip(ctx, c, endpoint, decode)
	if res.Outcome == OutcomeOK && empty != nil && empty(res.Value) {
		res.Outcome = OutcomeEmpty
	}
	elapsed := time.Since(start)
	c.observer.ObserveRequest(op, res.Outcome.String(), elapsed)

	fields := []zap.Field{
		zap.String("operation", op),
		zap.String("url", endpoint),
		zap.String("outcome", res.Outcome.String()),
		zap.Duration("duration", elapsed),
	}
	if res.Status != 0 {
		fields = append(fields, zap.Int("status", res.Status))
	}
	if res.Outcome.Failed() {
		c.logger.Error("wordpress request failed", append(fields, zap.Error(res.Err))...)
	} else {
		c.logger.Debug("wordpress request completed", fields...)
	}
	return res
}

func roundTrip[T any](ctx context.Context, c *Client, endpoint string, decode decodeFunc[T]) Result[T] {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Result[T]{Outcome: OutcomeTransportFailure, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		return Result[T]{Outcome: OutcomeTransportFailure, Err: fmt.Errorf("get %s: %w", endpoint, err)}
	}
	if resp == nil {
		return Result[T]{Outcome: OutcomeTransportFailure, Err: errors.New("nil response")}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("close response body", zap.Error(closeErr))
		}
	}()

	out := Result[T]{Status: resp.StatusCode, Header: resp.Header}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		out.Outcome = OutcomeStatusFailure
		out.Err = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
		return out
	}

	v, err := decode(resp.Body)
	if err != nil {
		out.Outcome = OutcomeDecodeFailure
		out.Err = err
		return out
	}
	out.Value = v
	out.Outcome = OutcomeOK
	return out
}

// parseCount reads a pagination header; missing or malformed values count as 0.
func parseCount(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
