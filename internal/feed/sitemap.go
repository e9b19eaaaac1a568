package feed

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/url"

	"github.com/nailsmag/wpsite/internal/wordpress"
)

const sitemapNS = "http://www.sitemaps.org/schemas/sitemap/0.9"

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// WriteSitemap lists the home page, every post under the blog path and every page at the root.
func WriteSitemap(w io.Writer, site Site, posts, pages []wordpress.Post) error {
	base, err := url.Parse(site.URL)
	if err != nil {
		return fmt.Errorf("parse site url: %w", err)
	}
	home, _ := resolve(base, "/")
	urls := []sitemapURL{{Loc: home}}

	add := func(p *wordpress.Post, link string) error {
		loc, err := resolve(base, link)
		if err != nil {
			return fmt.Errorf("resolve %q: %w", link, err)
		}
		entry := sitemapURL{Loc: loc}
		if mod, ok := p.ModifiedAt(); ok {
			entry.LastMod = mod.Format("2006-01-02")
		}
		urls = append(urls, entry)
		return nil
	}
	for i := range pages {
		if pages[i].Slug == "" {
			continue
		}
		if err := add(&pages[i], "/"+pages[i].Slug+"/"); err != nil {
			return err
		}
	}
	for i := range posts {
		if posts[i].Slug == "" {
			continue
		}
		if err := add(&posts[i], site.PostLink(posts[i].Slug)); err != nil {
			return err
		}
	}

	return encode(w, sitemapURLSet{XMLNS: sitemapNS, URLs: urls})
}
