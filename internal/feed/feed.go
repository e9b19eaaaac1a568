// Package feed renders the RSS feed and XML sitemap for the static site.
package feed

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/nailsmag/wpsite/internal/seo"
	"github.com/nailsmag/wpsite/internal/wordpress"
)

// Site identifies the public site a feed describes.
type Site struct {
	Title       string
	Description string
	URL         string
	// BlogPath is the path segment posts live under, e.g. "blog" for /blog/{slug}/.
	BlogPath string
}

// Item is one feed entry. Link may be relative to the site URL.
type Item struct {
	Title       string
	PubDate     time.Time
	Description string
	Link        string
}

// Channel is the full input to WriteRSS.
type Channel struct {
	Title       string
	Description string
	Site        string
	Items       []Item
}

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string  `xml:"title"`
	Link        string  `xml:"link"`
	GUID        rssGUID `xml:"guid"`
	Description string  `xml:"description,omitempty"`
	PubDate     string  `xml:"pubDate,omitempty"`
}

type rssGUID struct {
	Value       string `xml:",chardata"`
	IsPermaLink bool   `xml:"isPermaLink,attr"`
}

// PostLink returns the site-relative link for a post slug, e.g. /blog/my-post/.
func (s Site) PostLink(slug string) string {
	return "/" + strings.Trim(path.Join(s.BlogPath, slug), "/") + "/"
}

// ChannelFor builds the RSS channel for posts in the order given.
// Titles are entity-decoded; descriptions are the excerpt with tags removed.
func ChannelFor(site Site, posts []wordpress.Post) Channel {
	items := make([]Item, 0, len(posts))
	for i := range posts {
		p := &posts[i]
		published, _ := p.PublishedAt()
		items = append(items, Item{
			Title:       seo.DecodeEntities(p.Title.Rendered.String()),
			PubDate:     published,
			Description: seo.StripTags(p.Excerpt.Rendered.String()),
			Link:        site.PostLink(p.Slug),
		})
	}
	return Channel{
		Title:       site.Title,
		Description: site.Description,
		Site:        site.URL,
		Items:       items,
	}
}

// WriteRSS encodes ch as an RSS 2.0 document.
func WriteRSS(w io.Writer, ch Channel) error {
	base, err := url.Parse(ch.Site)
	if err != nil {
		return fmt.Errorf("parse site url: %w", err)
	}
	items := make([]rssItem, 0, len(ch.Items))
	for _, it := range ch.Items {
		link, err := resolve(base, it.Link)
		if err != nil {
			return fmt.Errorf("resolve item link %q: %w", it.Link, err)
		}
		item := rssItem{
			Title:       it.Title,
			Link:        link,
			GUID:        rssGUID{Value: link, IsPermaLink: true},
			Description: it.Description,
		}
		if !it.PubDate.IsZero() {
			item.PubDate = it.PubDate.UTC().Format(time.RFC1123Z)
		}
		items = append(items, item)
	}
	doc := rssXML{
		Version: "2.0",
		Channel: rssChannel{
			Title:       ch.Title,
			Link:        base.String(),
			Description: ch.Description,
			Items:       items,
		},
	}
	return encode(w, doc)
}

func resolve(base *url.URL, link string) (string, error) {
	ref, err := url.Parse(link)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}

func encode(w io.Writer, doc any) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("write xml header: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode xml: %w", err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("write trailing newline: %w", err)
	}
	return nil
}
