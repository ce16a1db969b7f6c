package seo

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newDocument(scheme, body string) Document {
	url := scheme + "://hotel.example.no/"
	return Document{RequestURL: url, FinalURL: url, Scheme: scheme, Body: []byte(body)}
}

func padTo(markup string, size int) string {
	if len(markup) >= size {
		return markup
	}
	return markup + "<!--" + strings.Repeat("x", size-len(markup)-7) + "-->"
}

func TestEvaluate_BarePlainHTTPPage(t *testing.T) {
	t.Parallel()

	markup := `<html><head>
<meta name="viewport" content="width=device-width">
<meta property="og:title" content="Hotel">
<meta property="og:type" content="website">
<meta property="og:url" content="http://hotel.example.no/">
</head><body><p>Welcome</p></body></html>`
	doc := newDocument("http", padTo(markup, 200*1024))

	res := NewEvaluator(nil).Evaluate(doc)

	require.True(t, res.Accessible)
	require.Equal(t, 30, res.Score)
	require.Equal(t, []string{
		"Not using HTTPS",
		"Missing title tag",
		"Missing meta description",
		"Missing H1 tag",
		"Missing structured data (Schema.org)",
		"Missing canonical tag",
	}, res.Issues)
	require.Equal(t, false, res.Details["https"])
	require.Nil(t, res.Details["title"])
	require.Equal(t, 0, res.Details["total_images"])
	require.Equal(t, 3, res.Details["og_tags_count"])
	require.Equal(t, 200.0, res.Details["page_size_kb"])
}

func TestEvaluate_PerfectPage(t *testing.T) {
	t.Parallel()

	title := strings.Repeat("t", 45)
	desc := strings.Repeat("d", 140)
	markup := fmt.Sprintf(`<!doctype html><html><head>
<title>%s</title>
<meta name="Description" content="%s">
<meta name="viewport" content="width=device-width">
<meta property="og:title" content="a"><meta property="og:image" content="b"><meta property="og:url" content="c">
<link rel="Canonical" href="https://hotel.example.no/">
<script type="application/ld+json">{"@type":"Hotel"}</script>
</head><body><h1>  Grand Hotel  </h1><img src="a.png" alt="lobby"><img src="b.png" alt="room"></body></html>`, title, desc)

	res := NewEvaluator(nil).Evaluate(newDocument("https", markup))

	require.Equal(t, 100, res.Score)
	require.Empty(t, res.Issues)
	require.NotNil(t, res.Issues)
	require.Equal(t, "Grand Hotel", res.Details["h1_text"])
	require.Equal(t, true, res.Details["canonical"])
	require.Equal(t, true, res.Details["structured_data"])
	require.Equal(t, desc[:100]+"...", res.Details["meta_description"])
}

func TestEvaluate_TitleLengthBoundaries(t *testing.T) {
	t.Parallel()

	cases := []struct {
		length int
		points int
		issue  string
	}{
		{29, 8, "Title too short (29 chars, recommend 30-60)"},
		{30, 15, ""},
		{60, 15, ""},
		{61, 8, "Title too long (61 chars, recommend 30-60)"},
	}
	check := titleCheck(DefaultRubricConfig())
	for _, tc := range cases {
		t.Run(fmt.Sprintf("len_%d", tc.length), func(t *testing.T) {
			t.Parallel()
			page := ParsePage(newDocument("https", "<title>"+strings.Repeat("ø", tc.length)+"</title>"))
			out := check.Evaluate(page)
			require.Equal(t, tc.points, out.Points)
			require.Equal(t, tc.issue, out.Issue)
		})
	}
}

func TestEvaluate_WhitespaceTitleIsMissing(t *testing.T) {
	t.Parallel()

	out := titleCheck(DefaultRubricConfig()).Evaluate(ParsePage(newDocument("https", "<title>   \n </title>")))
	require.Equal(t, 0, out.Points)
	require.Equal(t, "Missing title tag", out.Issue)
}

func TestEvaluate_MetaDescriptionTooShort(t *testing.T) {
	t.Parallel()

	page := ParsePage(newDocument("https", `<meta name="description" content="Cosy rooms by the fjord">`))
	out := metaDescriptionCheck(DefaultRubricConfig()).Evaluate(page)
	require.Equal(t, 8, out.Points)
	require.Equal(t, "Meta description too short (23 chars, recommend 120-160)", out.Issue)
}

func TestEvaluate_MultipleH1(t *testing.T) {
	t.Parallel()

	page := ParsePage(newDocument("https", "<h1>One</h1><h1>Two</h1><h1>Three</h1>"))
	out := h1Check(DefaultRubricConfig()).Evaluate(page)
	require.Equal(t, 8, out.Points)
	require.Equal(t, "Multiple H1 tags found (3)", out.Issue)
	for _, d := range out.Details {
		require.NotEqual(t, "h1_text", d.Key)
	}
}

func TestEvaluate_ImageAltProportional(t *testing.T) {
	t.Parallel()

	page := ParsePage(newDocument("https", `<img src=1 alt="a"><img src=2 alt=""><img src=3>`))
	out := imageAltCheck(DefaultRubricConfig()).Evaluate(page)
	require.Equal(t, 3, out.Points)
	require.Equal(t, "2 of 3 images missing alt text", out.Issue)
}

func TestEvaluate_OpenGraphPartial(t *testing.T) {
	t.Parallel()

	page := ParsePage(newDocument("https", `<meta property="og:title" content="x">`))
	out := openGraphCheck(DefaultRubricConfig()).Evaluate(page)
	require.Equal(t, 2, out.Points)
	require.Empty(t, out.Issue)
}

func TestEvaluate_PageSizeBands(t *testing.T) {
	t.Parallel()

	check := pageSizeCheck(DefaultRubricConfig())
	cases := []struct {
		size   int
		points int
		issue  string
	}{
		{499 * 1024, 10, ""},
		{500 * 1024, 5, ""},
		{999 * 1024, 5, ""},
		{1000 * 1024, 0, "Large page size (1000KB)"},
		{1500 * 1024, 0, "Large page size (1500KB)"},
	}
	for _, tc := range cases {
		page := ParsePage(newDocument("https", padTo("<p>x</p>", tc.size)))
		out := check.Evaluate(page)
		require.Equal(t, tc.points, out.Points, "size %d", tc.size)
		require.Equal(t, tc.issue, out.Issue, "size %d", tc.size)
	}
}

func TestEvaluate_StructuredDataMicrodata(t *testing.T) {
	t.Parallel()

	page := ParsePage(newDocument("https", `<div ItemType="https://schema.org/Hotel">x</div>`))
	out := structuredDataCheck(DefaultRubricConfig()).Evaluate(page)
	require.Equal(t, 5, out.Points)
}

func TestEvaluate_MalformedMarkupDegrades(t *testing.T) {
	t.Parallel()

	res := NewEvaluator(nil).Evaluate(newDocument("https", `<html><head><title>Unclosed<meta name=viewport</head><body><h1><img`))
	require.True(t, res.Accessible)
	require.GreaterOrEqual(t, res.Score, 0)
	require.LessOrEqual(t, res.Score, MaxScore)
}

func TestEvaluate_IsDeterministic(t *testing.T) {
	t.Parallel()

	doc := newDocument("https", `<title>Fjord Hotel</title><h1>Hi</h1><img src=a>`)
	ev := NewEvaluator(nil)
	require.Equal(t, ev.Evaluate(doc), ev.Evaluate(doc))
}

func TestEvaluate_PanickingCheckIsIsolated(t *testing.T) {
	t.Parallel()

	checks := []Check{
		{Name: "boom", MaxPoints: 50, Evaluate: func(*Page) Outcome { panic("bad") }},
		{Name: "fine", MaxPoints: 50, Evaluate: func(*Page) Outcome { return Outcome{Points: 50} }},
	}
	res := NewEvaluator(checks).Evaluate(newDocument("https", ""))
	require.Equal(t, 50, res.Score)
	require.Equal(t, []string{"Could not evaluate boom"}, res.Issues)
}

func TestAggregate_ClampsScore(t *testing.T) {
	t.Parallel()

	high := Aggregate([]Outcome{{Points: 80}, {Points: 80}})
	require.Equal(t, MaxScore, high.Score)
	low := Aggregate([]Outcome{{Points: -20}})
	require.Equal(t, 0, low.Score)
}

func TestDefaultChecks_SumToMaxScore(t *testing.T) {
	t.Parallel()

	total := 0
	for _, c := range DefaultChecks(DefaultRubricConfig()) {
		total += c.MaxPoints
	}
	require.Equal(t, MaxScore, total)
	require.NoError(t, DefaultRubricConfig().Validate())
}

func TestRubricConfig_ValidateRejectsWeightSum(t *testing.T) {
	t.Parallel()

	over := DefaultRubricConfig()
	over.HTTPSPoints = 20
	require.ErrorContains(t, over.Validate(), "must sum to 100, got 110")

	under := DefaultRubricConfig()
	under.CanonicalPoints = 0
	require.ErrorContains(t, under.Validate(), "got 95")

	// Image alt and the no-images fallback share one slot.
	fallback := DefaultRubricConfig()
	fallback.NoImagesPoints = fallback.ImageAltPoints
	require.NoError(t, fallback.Validate())
}

func TestInaccessible(t *testing.T) {
	t.Parallel()

	res := Inaccessible("https://down.example.no", "Website timeout (>15s)")
	require.False(t, res.Accessible)
	require.Zero(t, res.Score)
	require.Equal(t, []string{"Website timeout (>15s)"}, res.Issues)
	require.NotNil(t, res.Details)
	require.Empty(t, res.Details)
}
