package seo

import (
	"cmp"
	"errors"
	"slices"
)

// RankingConfig weights SEO weakness against business size. Weights are whole
// percentages so the score is computed exactly in integer arithmetic.
type RankingConfig struct {
	WeaknessWeight     int `mapstructure:"weakness_weight"`
	SizeWeight         int `mapstructure:"size_weight"`
	EmployeeMultiplier int `mapstructure:"employee_multiplier"`
	SizeCap            int `mapstructure:"size_cap"`
}

// DefaultRankingConfig returns the 60/40 weighting with five points per
// employee capped at 100.
func DefaultRankingConfig() RankingConfig {
	return RankingConfig{
		WeaknessWeight:     60,
		SizeWeight:         40,
		EmployeeMultiplier: 5,
		SizeCap:            100,
	}
}

// Validate checks that the weights form a convex combination.
func (c RankingConfig) Validate() error {
	if c.WeaknessWeight < 0 || c.SizeWeight < 0 {
		return errors.New("ranking weights must be >= 0")
	}
	if c.WeaknessWeight+c.SizeWeight != 100 {
		return errors.New("ranking.weakness_weight + ranking.size_weight must equal 100")
	}
	if c.EmployeeMultiplier < 0 {
		return errors.New("ranking.employee_multiplier must be >= 0")
	}
	if c.SizeCap < 0 || c.SizeCap > 100 {
		return errors.New("ranking.size_cap must be within [0, 100]")
	}
	return nil
}

// Ranker computes opportunity scores.
type Ranker struct {
	cfg RankingConfig
}

// NewRanker builds a Ranker; call Validate on cfg first.
func NewRanker(cfg RankingConfig) *Ranker {
	return &Ranker{cfg: cfg}
}

// Opportunity combines the SEO weakness (100 - score) and business size
// (employees * multiplier, capped) into a value in [0, 100]. It is
// non-increasing in score and non-decreasing in employees.
func (r *Ranker) Opportunity(score, employees int) int {
	weakness := MaxScore - min(max(score, 0), MaxScore)
	size := 0
	if employees > 0 && r.cfg.EmployeeMultiplier > 0 {
		if employees >= r.cfg.SizeCap/r.cfg.EmployeeMultiplier+1 {
			size = r.cfg.SizeCap
		} else {
			size = min(employees*r.cfg.EmployeeMultiplier, r.cfg.SizeCap)
		}
	}
	value := (weakness*r.cfg.WeaknessWeight + size*r.cfg.SizeWeight) / 100
	return min(max(value, 0), 100)
}

// SortByOpportunity orders items by descending opportunity. The sort is stable
// so equal opportunities keep their input order.
func SortByOpportunity[T any](items []T, opportunity func(T) int) {
	slices.SortStableFunc(items, func(a, b T) int {
		return cmp.Compare(opportunity(b), opportunity(a))
	})
}
