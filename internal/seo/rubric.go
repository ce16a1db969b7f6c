package seo

import (
	"errors"
	"fmt"
)

// MaxScore is the upper bound of every SEO score.
const MaxScore = 100

// Check names, in rubric order.
const (
	CheckHTTPS           = "https"
	CheckTitle           = "title"
	CheckMetaDescription = "meta_description"
	CheckH1              = "h1"
	CheckImageAlt        = "image_alt"
	CheckViewport        = "viewport"
	CheckOpenGraph       = "open_graph"
	CheckPageSize        = "page_size"
	CheckStructuredData  = "structured_data"
	CheckCanonical       = "canonical"
)

// Detail is a single named diagnostic value recorded by a check.
type Detail struct {
	Key   string
	Value any
}

// Outcome is what one check contributes to a result.
type Outcome struct {
	Points  int
	Issue   string
	Details []Detail
}

// Check is one independent rubric rule. Evaluate must not mutate the page.
type Check struct {
	Name      string
	MaxPoints int
	Evaluate  func(*Page) Outcome
}

// LengthBand awards Full points inside [Min, Max] and Partial points outside
// it. Missing content earns nothing.
type LengthBand struct {
	Min     int `mapstructure:"min"`
	Max     int `mapstructure:"max"`
	Full    int `mapstructure:"full"`
	Partial int `mapstructure:"partial"`
}

// RubricConfig holds every weight and threshold of the rubric.
type RubricConfig struct {
	HTTPSPoints            int        `mapstructure:"https_points"`
	Title                  LengthBand `mapstructure:"title"`
	MetaDescription        LengthBand `mapstructure:"meta_description"`
	H1Points               int        `mapstructure:"h1_points"`
	H1MultiplePoints       int        `mapstructure:"h1_multiple_points"`
	ImageAltPoints         int        `mapstructure:"image_alt_points"`
	NoImagesPoints         int        `mapstructure:"no_images_points"`
	ViewportPoints         int        `mapstructure:"viewport_points"`
	OpenGraphPoints        int        `mapstructure:"open_graph_points"`
	OpenGraphPartialPoints int        `mapstructure:"open_graph_partial_points"`
	OpenGraphMinTags       int        `mapstructure:"open_graph_min_tags"`
	PageSizePoints         int        `mapstructure:"page_size_points"`
	PageSizePartialPoints  int        `mapstructure:"page_size_partial_points"`
	PageSizeSmallKB        int        `mapstructure:"page_size_small_kb"`
	PageSizeLargeKB        int        `mapstructure:"page_size_large_kb"`
	StructuredDataPoints   int        `mapstructure:"structured_data_points"`
	CanonicalPoints        int        `mapstructure:"canonical_points"`
}

// DefaultRubricConfig returns the standard weights, which sum to MaxScore.
func DefaultRubricConfig() RubricConfig {
	return RubricConfig{
		HTTPSPoints:            10,
		Title:                  LengthBand{Min: 30, Max: 60, Full: 15, Partial: 8},
		MetaDescription:        LengthBand{Min: 120, Max: 160, Full: 15, Partial: 8},
		H1Points:               15,
		H1MultiplePoints:       8,
		ImageAltPoints:         10,
		NoImagesPoints:         5,
		ViewportPoints:         10,
		OpenGraphPoints:        5,
		OpenGraphPartialPoints: 2,
		OpenGraphMinTags:       3,
		PageSizePoints:         10,
		PageSizePartialPoints:  5,
		PageSizeSmallKB:        500,
		PageSizeLargeKB:        1000,
		StructuredDataPoints:   5,
		CanonicalPoints:        5,
	}
}

// Validate rejects weights that could produce negative or out-of-band scores,
// and full-point weights that do not sum to MaxScore.
func (c RubricConfig) Validate() error {
	for _, band := range []struct {
		name string
		b    LengthBand
	}{{"title", c.Title}, {"meta_description", c.MetaDescription}} {
		if band.b.Min < 0 || band.b.Max < band.b.Min {
			return fmt.Errorf("rubric.%s: invalid band %d-%d", band.name, band.b.Min, band.b.Max)
		}
		if band.b.Partial < 0 || band.b.Full < band.b.Partial {
			return fmt.Errorf("rubric.%s: partial points must be within [0, full]", band.name)
		}
	}
	if c.H1MultiplePoints > c.H1Points || c.OpenGraphPartialPoints > c.OpenGraphPoints ||
		c.PageSizePartialPoints > c.PageSizePoints {
		return errors.New("rubric: partial points must not exceed full points")
	}
	if c.PageSizeSmallKB <= 0 || c.PageSizeLargeKB < c.PageSizeSmallKB {
		return errors.New("rubric: page size thresholds must satisfy 0 < small <= large")
	}
	if c.OpenGraphMinTags <= 0 {
		return errors.New("rubric.open_graph_min_tags must be > 0")
	}
	for _, p := range []int{
		c.HTTPSPoints, c.H1MultiplePoints, c.ImageAltPoints, c.NoImagesPoints, c.ViewportPoints,
		c.OpenGraphPartialPoints, c.PageSizePartialPoints, c.StructuredDataPoints, c.CanonicalPoints,
	} {
		if p < 0 {
			return errors.New("rubric: points must be >= 0")
		}
	}
	total := 0
	for _, check := range DefaultChecks(c) {
		total += check.MaxPoints
	}
	if total != MaxScore {
		return fmt.Errorf("rubric: full points must sum to %d, got %d", MaxScore, total)
	}
	return nil
}

// DefaultChecks returns the rubric battery in its fixed order.
func DefaultChecks(cfg RubricConfig) []Check {
	return []Check{
		httpsCheck(cfg),
		titleCheck(cfg),
		metaDescriptionCheck(cfg),
		h1Check(cfg),
		imageAltCheck(cfg),
		viewportCheck(cfg),
		openGraphCheck(cfg),
		pageSizeCheck(cfg),
		structuredDataCheck(cfg),
		canonicalCheck(cfg),
	}
}
