package seo

import (
	"strings"

	"github.com/nailsmag/wpsite/internal/wordpress"
)

const (
	defaultDescriptionMax = 160
	defaultEllipsis       = "..."
)

// Meta is the full set of derived head metadata for one record.
type Meta struct {
	Title              string `json:"title"`
	Description        string `json:"description"`
	OGTitle            string `json:"og_title"`
	OGDescription      string `json:"og_description"`
	TwitterTitle       string `json:"twitter_title"`
	TwitterDescription string `json:"twitter_description"`
	SocialImage        string `json:"social_image"`
}

// Options tune excerpt truncation.
type Options struct {
	// DescriptionMax is the longest excerpt-derived description, in characters.
	DescriptionMax int
	// Ellipsis is appended to truncated descriptions and counts toward DescriptionMax.
	Ellipsis string
}

// Resolver computes metadata with a fixed precedence: dedicated SEO fields, then plugin
// payloads (Yoast before Rank Math), then generic post content. It never mutates records.
type Resolver struct {
	max      int
	ellipsis string
}

// NewResolver returns a Resolver; zero options select 160 characters and "...".
func NewResolver(opts Options) Resolver {
	r := Resolver{max: opts.DescriptionMax, ellipsis: opts.Ellipsis}
	if r.max <= 0 {
		r.max = defaultDescriptionMax
	}
	if r.ellipsis == "" {
		r.ellipsis = defaultEllipsis
	}
	return r
}

// accessor reads one candidate value from a record.
type accessor func(p *wordpress.Post) string

// firstOf evaluates accessors in order and returns the first non-empty value.
func firstOf(p *wordpress.Post, sources ...accessor) (string, bool) {
	if p == nil {
		return "", false
	}
	for _, get := range sources {
		if v := get(p); v != "" {
			return v, true
		}
	}
	return "", false
}

// field is one fallback chain: decoded candidate sources, then a tail evaluated when none hit.
type field struct {
	sources []accessor
	tail    func(p *wordpress.Post) string
}

func (f field) resolve(p *wordpress.Post) string {
	if v, ok := firstOf(p, f.sources...); ok {
		return DecodeEntities(v)
	}
	if f.tail == nil {
		return ""
	}
	return f.tail(p)
}

var (
	seoTitle        accessor = func(p *wordpress.Post) string { return p.SEOTitle.String() }
	seoDescription  accessor = func(p *wordpress.Post) string { return p.SEODescription.String() }
	ogTitle         accessor = func(p *wordpress.Post) string { return p.SEOOGTitle.String() }
	ogDescription   accessor = func(p *wordpress.Post) string { return p.SEOOGDescription.String() }
	twitterTitle    accessor = func(p *wordpress.Post) string { return p.SEOTwitterTitle.String() }
	twitterDesc     accessor = func(p *wordpress.Post) string { return p.SEOTwitterDescription.String() }
	yoastTitle      accessor = func(p *wordpress.Post) string { return pluginTitle(p.Yoast) }
	yoastDesc       accessor = func(p *wordpress.Post) string { return pluginDescription(p.Yoast) }
	rankMathTitle   accessor = func(p *wordpress.Post) string { return pluginTitle(p.RankMath) }
	rankMathDesc    accessor = func(p *wordpress.Post) string { return pluginDescription(p.RankMath) }
	customSocialImg accessor = func(p *wordpress.Post) string { return p.SEOSocialImage.String() }
)

func pluginTitle(m *wordpress.PluginMeta) string {
	if m == nil {
		return ""
	}
	return m.Title.String()
}

func pluginDescription(m *wordpress.PluginMeta) string {
	if m == nil {
		return ""
	}
	return m.Description.String()
}

func (r Resolver) titleField() field {
	return field{
		sources: []accessor{seoTitle, yoastTitle, rankMathTitle},
		tail: func(p *wordpress.Post) string {
			if p == nil {
				return ""
			}
			return DecodeEntities(p.Title.Rendered.String())
		},
	}
}

func (r Resolver) descriptionField() field {
	return field{
		sources: []accessor{seoDescription, yoastDesc, rankMathDesc},
		tail:    r.excerptDescription,
	}
}

// Title is seo_title, else the Yoast or Rank Math title, else the rendered post title.
func (r Resolver) Title(p *wordpress.Post) string {
	return r.titleField().resolve(p)
}

// Description is seo_description, else the Yoast or Rank Math description, else the
// tag-stripped excerpt truncated to the configured length.
func (r Resolver) Description(p *wordpress.Post) string {
	return r.descriptionField().resolve(p)
}

// OGTitle is seo_og_title, else Title.
func (r Resolver) OGTitle(p *wordpress.Post) string {
	return field{sources: []accessor{ogTitle}, tail: r.Title}.resolve(p)
}

// OGDescription is seo_og_description, else Description.
func (r Resolver) OGDescription(p *wordpress.Post) string {
	return field{sources: []accessor{ogDescription}, tail: r.Description}.resolve(p)
}

// TwitterTitle is seo_twitter_title, else OGTitle.
func (r Resolver) TwitterTitle(p *wordpress.Post) string {
	return field{sources: []accessor{twitterTitle}, tail: r.OGTitle}.resolve(p)
}

// TwitterDescription is seo_twitter_description, else OGDescription.
func (r Resolver) TwitterDescription(p *wordpress.Post) string {
	return field{sources: []accessor{twitterDesc}, tail: r.OGDescription}.resolve(p)
}

// SocialImage is seo_social_image, else the first featured media URL, else "".
// URLs are returned as-is, without entity decoding.
func (r Resolver) SocialImage(p *wordpress.Post) string {
	v, _ := firstOf(p, customSocialImg, (*wordpress.Post).FeaturedImage)
	return v
}

// Resolve computes every metadata field for p.
func (r Resolver) Resolve(p *wordpress.Post) Meta {
	return Meta{
		Title:              r.Title(p),
		Description:        r.Description(p),
		OGTitle:            r.OGTitle(p),
		OGDescription:      r.OGDescription(p),
		TwitterTitle:       r.TwitterTitle(p),
		TwitterDescription: r.TwitterDescription(p),
		SocialImage:        r.SocialImage(p),
	}
}

func (r Resolver) excerptDescription(p *wordpress.Post) string {
	if p == nil {
		return ""
	}
	excerpt := strings.TrimSpace(StripTags(p.Excerpt.Rendered.String()))
	return r.Truncate(DecodeEntities(excerpt))
}

// Truncate shortens s to the configured maximum, ending in the ellipsis when cut.
func (r Resolver) Truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= r.max {
		return s
	}
	keep := r.max - len([]rune(r.ellipsis))
	if keep < 0 {
		keep = 0
	}
	return string(runes[:keep]) + r.ellipsis
}
