// Package cdn rewrites WordPress media URLs onto the image CDN host.
package cdn

import (
	"strings"

	"github.com/nailsmag/wpsite/internal/seo"
)

// Rewriter swaps the origin media host for the CDN host.
type Rewriter struct {
	origin string
	host   string
}

// New returns a Rewriter. An empty origin or host disables rewriting.
func New(origin, host string) Rewriter {
	return Rewriter{origin: origin, host: host}
}

// Enabled reports whether Rewrite changes anything.
func (r Rewriter) Enabled() bool {
	return r.origin != "" && r.host != "" && r.origin != r.host
}

// Rewrite replaces the first occurrence of the origin host in rawURL.
func (r Rewriter) Rewrite(rawURL string) string {
	if rawURL == "" || !r.Enabled() {
		return rawURL
	}
	return strings.Replace(rawURL, r.origin, r.host, 1)
}

// Meta returns a copy of m with its social image served from the CDN.
func (r Rewriter) Meta(m seo.Meta) seo.Meta {
	m.SocialImage = r.Rewrite(m.SocialImage)
	return m
}
