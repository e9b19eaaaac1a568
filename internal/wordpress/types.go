package wordpress

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// Text is a string field that tolerates the non-string values WordPress emits for unset
// custom REST fields (false, null, numbers). Anything that is not a JSON string decodes to "".
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*t = ""
		return nil
	}
	*t = Text(s)
	return nil
}

// String returns the plain string value.
func (t Text) String() string { return string(t) }

// Rendered wraps WordPress' {"rendered": "..."} objects.
type Rendered struct {
	Rendered Text `json:"rendered"`
}

// PluginMeta carries the title/description pair exposed by Yoast and Rank Math.
type PluginMeta struct {
	Title       Text `json:"title"`
	Description Text `json:"description"`
}

// UnmarshalJSON ignores non-object payloads; PHP serialises empty arrays as [].
func (m *PluginMeta) UnmarshalJSON(data []byte) error {
	if !bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		*m = PluginMeta{}
		return nil
	}
	type plain PluginMeta
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*m = PluginMeta(p)
	return nil
}

// Media is an embedded attachment.
type Media struct {
	ID        int  `json:"id"`
	SourceURL Text `json:"source_url"`
	AltText   Text `json:"alt_text"`
}

// Embedded holds resources included by the _embed query parameter.
type Embedded struct {
	FeaturedMedia []Media `json:"wp:featuredmedia"`
}

// Post is a post or page record as returned by /wp/v2/posts and /wp/v2/pages.
// Optional fields decode to zero values when absent.
type Post struct {
	ID       int      `json:"id"`
	Date     string   `json:"date"`
	DateGMT  string   `json:"date_gmt"`
	Modified string   `json:"modified"`
	Slug     string   `json:"slug"`
	Link     string   `json:"link"`
	Title    Rendered `json:"title"`
	Excerpt  Rendered `json:"excerpt"`
	Content  Rendered `json:"content"`

	Embedded *Embedded `json:"_embedded,omitempty"`

	SEOTitle              Text `json:"seo_title"`
	SEODescription        Text `json:"seo_description"`
	SEOOGTitle            Text `json:"seo_og_title"`
	SEOOGDescription      Text `json:"seo_og_description"`
	SEOTwitterTitle       Text `json:"seo_twitter_title"`
	SEOTwitterDescription Text `json:"seo_twitter_description"`
	SEOSocialImage        Text `json:"seo_social_image"`

	Yoast    *PluginMeta `json:"yoast_head_json,omitempty"`
	RankMath *PluginMeta `json:"rank_math,omitempty"`
}

// FeaturedImage returns the first embedded featured-media URL, or "".
func (p *Post) FeaturedImage() string {
	if p == nil || p.Embedded == nil || len(p.Embedded.FeaturedMedia) == 0 {
		return ""
	}
	return string(p.Embedded.FeaturedMedia[0].SourceURL)
}

// wpDateLayout is the zone-less layout WordPress uses for date/modified fields.
const wpDateLayout = "2006-01-02T15:04:05"

// PublishedAt parses date_gmt (preferred) or date as UTC.
func (p *Post) PublishedAt() (time.Time, bool) {
	if p == nil {
		return time.Time{}, false
	}
	return parseWPDate(p.DateGMT, p.Date)
}

// ModifiedAt parses the modified timestamp as UTC.
func (p *Post) ModifiedAt() (time.Time, bool) {
	if p == nil {
		return time.Time{}, false
	}
	return parseWPDate(p.Modified)
}

func parseWPDate(candidates ...string) (time.Time, bool) {
	for _, raw := range candidates {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t.UTC(), true
		}
		if t, err := time.ParseInLocation(wpDateLayout, raw, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// PageResult is one page of a paginated post listing.
type PageResult struct {
	Items      []Post `json:"items"`
	TotalPages int    `json:"total_pages"`
	TotalItems int    `json:"total_items"`
}

// MenuItem is a navigation entry from the WP REST API Menus plugin.
type MenuItem struct {
	ID         int        `json:"ID"`
	Title      Text       `json:"title"`
	URL        Text       `json:"url"`
	Slug       Text       `json:"slug"`
	Parent     Text       `json:"menu_item_parent"`
	Order      int        `json:"menu_order"`
	Object     Text       `json:"object"`
	Type       Text       `json:"type"`
	Target     Text       `json:"target"`
	ChildItems []MenuItem `json:"child_items,omitempty"`
}

type menuResponse struct {
	Items []MenuItem `json:"items"`
}

// Options is the ACF options document keyed by option name.
type Options map[string]any

// TotalPagesFor returns how many listing pages total posts fill at perPage each.
func TotalPagesFor(total, perPage int) int {
	if total <= 0 || perPage <= 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}
