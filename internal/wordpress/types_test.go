package wordpress

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostDecodesLooseSEOFields(t *testing.T) {
	t.Parallel()

	payload := `{
		"id": 3,
		"date": "2024-05-01T09:30:00",
		"date_gmt": "2024-05-01T08:30:00",
		"modified": "2024-05-02T10:00:00",
		"slug": "spring-nails",
		"title": {"rendered": "Spring &#8211; Nails"},
		"excerpt": {"rendered": "<p>Fresh looks</p>"},
		"seo_title": false,
		"seo_description": null,
		"seo_og_title": "OG",
		"seo_social_image": 0,
		"yoast_head_json": {"title": "Yoast T", "description": "Yoast D"},
		"rank_math": [],
		"_embedded": {"wp:featuredmedia": [{"id": 1, "source_url": "https://wp.nailsmag.co.uk/a.jpg"}]}
	}`

	var p Post
	require.NoError(t, json.Unmarshal([]byte(payload), &p))

	assert.Equal(t, Text(""), p.SEOTitle)
	assert.Equal(t, Text(""), p.SEODescription)
	assert.Equal(t, Text("OG"), p.SEOOGTitle)
	assert.Equal(t, Text(""), p.SEOSocialImage)
	require.NotNil(t, p.Yoast)
	assert.Equal(t, Text("Yoast T"), p.Yoast.Title)
	require.NotNil(t, p.RankMath)
	assert.Equal(t, PluginMeta{}, *p.RankMath)
	assert.Equal(t, "https://wp.nailsmag.co.uk/a.jpg", p.FeaturedImage())

	published, ok := p.PublishedAt()
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC), published)

	modified, ok := p.ModifiedAt()
	require.True(t, ok)
	assert.Equal(t, 2, modified.Day())
}

func TestPostDatesFallBack(t *testing.T) {
	t.Parallel()

	p := &Post{Date: "2023-01-02T03:04:05"}
	got, ok := p.PublishedAt()
	require.True(t, ok)
	assert.Equal(t, time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC), got)

	p = &Post{Date: "not a date"}
	_, ok = p.PublishedAt()
	assert.False(t, ok)

	var nilPost *Post
	_, ok = nilPost.PublishedAt()
	assert.False(t, ok)
	assert.Equal(t, "", nilPost.FeaturedImage())
}

func TestOutcomeLabels(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ok", OutcomeOK.String())
	assert.Equal(t, "empty", OutcomeEmpty.String())
	assert.Equal(t, "transport_failure", OutcomeTransportFailure.String())
	assert.Equal(t, "status_failure", OutcomeStatusFailure.String())
	assert.Equal(t, "decode_failure", OutcomeDecodeFailure.String())
	assert.False(t, OutcomeEmpty.Failed())
	assert.True(t, OutcomeDecodeFailure.Failed())

	r := Result[int]{Value: 5, Outcome: OutcomeEmpty}
	assert.Equal(t, 9, r.Or(9))
}
