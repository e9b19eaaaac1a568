// Package api hosts the preview HTTP server. Notable routes:
//   - GET /healthz and /readyz for probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /rss.xml and /sitemap.xml rendered from live content.
//   - GET /v1/posts, /v1/posts/{slug}, /v1/pages, /v1/menu and /v1/options
//     expose gateway results as JSON. A post lookup includes its resolved
//     SEO metadata.
package api
