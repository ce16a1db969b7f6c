package seo

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpportunity_Formula(t *testing.T) {
	t.Parallel()

	r := NewRanker(DefaultRankingConfig())
	cases := []struct {
		name      string
		score     int
		employees int
		want      int
	}{
		{"no website small", 0, 0, 60},
		{"no website eight employees", 0, 8, 76},
		{"perfect large", 100, 50, 40},
		{"perfect empty", 100, 0, 0},
		{"mid", 30, 3, 48},
		{"fractional floors", 44, 1, 35},
		{"negative employees", 50, -4, 30},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, r.Opportunity(tc.score, tc.employees))
		})
	}
}

func TestOpportunity_Monotonic(t *testing.T) {
	t.Parallel()

	r := NewRanker(DefaultRankingConfig())
	for employees := 0; employees <= 40; employees += 3 {
		prev := r.Opportunity(0, employees)
		for score := 1; score <= 100; score++ {
			cur := r.Opportunity(score, employees)
			require.LessOrEqual(t, cur, prev)
			require.GreaterOrEqual(t, cur, 0)
			require.LessOrEqual(t, cur, 100)
			prev = cur
		}
	}
	for score := 0; score <= 100; score += 7 {
		prev := r.Opportunity(score, 0)
		for employees := 1; employees <= 1000; employees++ {
			cur := r.Opportunity(score, employees)
			require.GreaterOrEqual(t, cur, prev)
			prev = cur
		}
	}
}

func TestOpportunity_HugeEmployeeCountIsCapped(t *testing.T) {
	t.Parallel()

	r := NewRanker(DefaultRankingConfig())
	require.Equal(t, 100, r.Opportunity(0, int(^uint(0)>>1)))
}

func TestRankingConfig_Validate(t *testing.T) {
	t.Parallel()

	require.NoError(t, DefaultRankingConfig().Validate())
	bad := DefaultRankingConfig()
	bad.SizeWeight = 50
	require.Error(t, bad.Validate())
	bad = DefaultRankingConfig()
	bad.SizeCap = 150
	require.Error(t, bad.Validate())
}

type ranked struct {
	name        string
	opportunity int
}

func TestSortByOpportunity_StableDescending(t *testing.T) {
	t.Parallel()

	items := []ranked{
		{"a", 40}, {"b", 76}, {"c", 40}, {"d", 90}, {"e", 76}, {"f", 40},
	}
	SortByOpportunity(items, func(r ranked) int { return r.opportunity })

	names := make([]string, len(items))
	for i, it := range items {
		names[i] = it.name
	}
	require.Equal(t, []string{"d", "b", "e", "a", "c", "f"}, names)
}
