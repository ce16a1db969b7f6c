package seo

import (
	"fmt"
	"math"
)

func httpsCheck(cfg RubricConfig) Check {
	return Check{
		Name:      CheckHTTPS,
		MaxPoints: cfg.HTTPSPoints,
		Evaluate: func(p *Page) Outcome {
			secure := p.Secure()
			out := Outcome{Details: []Detail{{Key: "https", Value: secure}}}
			if secure {
				out.Points = cfg.HTTPSPoints
			} else {
				out.Issue = "Not using HTTPS"
			}
			return out
		},
	}
}

func titleCheck(cfg RubricConfig) Check {
	band := cfg.Title
	return Check{
		Name:      CheckTitle,
		MaxPoints: band.Full,
		Evaluate: func(p *Page) Outcome {
			title, ok := p.Title()
			if !ok {
				return Outcome{
					Issue:   "Missing title tag",
					Details: []Detail{{Key: "title", Value: nil}},
				}
			}
			out := Outcome{Details: []Detail{{Key: "title", Value: title}}}
			out.Points, out.Issue = band.grade("Title", runeLen(title))
			return out
		},
	}
}

func metaDescriptionCheck(cfg RubricConfig) Check {
	band := cfg.MetaDescription
	return Check{
		Name:      CheckMetaDescription,
		MaxPoints: band.Full,
		Evaluate: func(p *Page) Outcome {
			desc, ok := p.MetaContent("description")
			if !ok {
				return Outcome{
					Issue:   "Missing meta description",
					Details: []Detail{{Key: "meta_description", Value: nil}},
				}
			}
			shown, cut := truncateRunes(desc, 100)
			if cut {
				shown += "..."
			}
			out := Outcome{Details: []Detail{{Key: "meta_description", Value: shown}}}
			out.Points, out.Issue = band.grade("Meta description", runeLen(desc))
			return out
		},
	}
}

func (b LengthBand) grade(label string, n int) (int, string) {
	switch {
	case n < b.Min:
		return b.Partial, fmt.Sprintf("%s too short (%d chars, recommend %d-%d)", label, n, b.Min, b.Max)
	case n > b.Max:
		return b.Partial, fmt.Sprintf("%s too long (%d chars, recommend %d-%d)", label, n, b.Min, b.Max)
	default:
		return b.Full, ""
	}
}

func h1Check(cfg RubricConfig) Check {
	return Check{
		Name:      CheckH1,
		MaxPoints: cfg.H1Points,
		Evaluate: func(p *Page) Outcome {
			headings := p.Headings("h1")
			out := Outcome{Details: []Detail{{Key: "h1_count", Value: len(headings)}}}
			switch len(headings) {
			case 0:
				out.Issue = "Missing H1 tag"
			case 1:
				out.Points = cfg.H1Points
				text, _ := truncateRunes(headings[0], 50)
				out.Details = append(out.Details, Detail{Key: "h1_text", Value: text})
			default:
				out.Points = cfg.H1MultiplePoints
				out.Issue = fmt.Sprintf("Multiple H1 tags found (%d)", len(headings))
			}
			return out
		},
	}
}

func imageAltCheck(cfg RubricConfig) Check {
	return Check{
		Name:      CheckImageAlt,
		MaxPoints: max(cfg.ImageAltPoints, cfg.NoImagesPoints),
		Evaluate: func(p *Page) Outcome {
			total, withAlt := p.Images()
			missing := total - withAlt
			out := Outcome{Details: []Detail{
				{Key: "total_images", Value: total},
				{Key: "images_without_alt", Value: missing},
			}}
			if total == 0 {
				out.Points = cfg.NoImagesPoints
				return out
			}
			out.Points = cfg.ImageAltPoints * withAlt / total
			if missing > 0 {
				out.Issue = fmt.Sprintf("%d of %d images missing alt text", missing, total)
			}
			return out
		},
	}
}

func viewportCheck(cfg RubricConfig) Check {
	return Check{
		Name:      CheckViewport,
		MaxPoints: cfg.ViewportPoints,
		Evaluate: func(p *Page) Outcome {
			present := p.HasMeta("viewport")
			out := Outcome{Details: []Detail{{Key: "mobile_viewport", Value: present}}}
			if present {
				out.Points = cfg.ViewportPoints
			} else {
				out.Issue = "Missing viewport meta tag (not mobile-friendly)"
			}
			return out
		},
	}
}

func openGraphCheck(cfg RubricConfig) Check {
	return Check{
		Name:      CheckOpenGraph,
		MaxPoints: cfg.OpenGraphPoints,
		Evaluate: func(p *Page) Outcome {
			count := p.OpenGraphCount()
			out := Outcome{Details: []Detail{{Key: "og_tags_count", Value: count}}}
			switch {
			case count >= cfg.OpenGraphMinTags:
				out.Points = cfg.OpenGraphPoints
			case count > 0:
				out.Points = cfg.OpenGraphPartialPoints
			default:
				out.Issue = "Missing Open Graph tags"
			}
			return out
		},
	}
}

func pageSizeCheck(cfg RubricConfig) Check {
	return Check{
		Name:      CheckPageSize,
		MaxPoints: cfg.PageSizePoints,
		Evaluate: func(p *Page) Outcome {
			kb := float64(p.Size) / 1024
			out := Outcome{Details: []Detail{{Key: "page_size_kb", Value: math.Round(kb*10) / 10}}}
			switch {
			case kb < float64(cfg.PageSizeSmallKB):
				out.Points = cfg.PageSizePoints
			case kb < float64(cfg.PageSizeLargeKB):
				out.Points = cfg.PageSizePartialPoints
			default:
				out.Issue = fmt.Sprintf("Large page size (%dKB)", int(math.RoundToEven(kb)))
			}
			return out
		},
	}
}

func structuredDataCheck(cfg RubricConfig) Check {
	return Check{
		Name:      CheckStructuredData,
		MaxPoints: cfg.StructuredDataPoints,
		Evaluate: func(p *Page) Outcome {
			present := p.ContainsMarkup("application/ld+json", "itemtype")
			out := Outcome{Details: []Detail{{Key: "structured_data", Value: present}}}
			if present {
				out.Points = cfg.StructuredDataPoints
			} else {
				out.Issue = "Missing structured data (Schema.org)"
			}
			return out
		},
	}
}

func canonicalCheck(cfg RubricConfig) Check {
	return Check{
		Name:      CheckCanonical,
		MaxPoints: cfg.CanonicalPoints,
		Evaluate: func(p *Page) Outcome {
			present := p.HasLinkRel("canonical")
			out := Outcome{Details: []Detail{{Key: "canonical", Value: present}}}
			if present {
				out.Points = cfg.CanonicalPoints
			} else {
				out.Issue = "Missing canonical tag"
			}
			return out
		},
	}
}
