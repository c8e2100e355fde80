// Package stats summarizes batches of games by year, event and author.
package stats

import (
	"sort"

	"github.com/dmmcquay/pdn-mcp/internal/pdn"
)

// Count is a value with its number of occurrences.
type Count struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Summary bundles the per-batch statistics reported by tools.
type Summary struct {
	Games   int     `json:"games"`
	Plies   int     `json:"plies"`
	Years   []Count `json:"years"`
	Events  []Count `json:"events"`
	Authors []Count `json:"authors"`
}

// ByYear counts games per year of a known Date tag, sorted by year.
func ByYear(games []*pdn.Game) []Count {
	var years []string
	for _, g := range games {
		if y, ok := g.Year(); ok {
			years = append(years, y)
		}
	}
	return YearGraph(years)
}

// YearGraph counts years, skipping empty ones, sorted by year.
func YearGraph(years []string) []Count {
	known := make([]string, 0, len(years))
	for _, y := range years {
		if y != "" {
			known = append(known, y)
		}
	}
	counts := tally(known)
	sort.SliceStable(counts, func(i, j int) bool { return counts[i].Value < counts[j].Value })
	return counts
}

// ByEvent counts games per Event tag, most common first.
func ByEvent(games []*pdn.Game) []Count {
	return mostCommon(games, pdn.EventTag)
}

// ByAuthor counts games per White tag, most common first. Composers of
// problem collections are recorded as White.
func ByAuthor(games []*pdn.Game) []Count {
	return mostCommon(games, pdn.WhiteTag)
}

// Summarize computes every statistic of a batch.
func Summarize(games []*pdn.Game) Summary {
	s := Summary{
		Games:   len(games),
		Years:   ByYear(games),
		Events:  ByEvent(games),
		Authors: ByAuthor(games),
	}
	for _, g := range games {
		s.Plies += g.PlyCount()
	}
	return s
}

func mostCommon(games []*pdn.Game, tag pdn.TagName) []Count {
	values := make([]string, 0, len(games))
	for _, g := range games {
		values = append(values, g.Get(tag))
	}
	counts := tally(values)
	sort.SliceStable(counts, func(i, j int) bool { return counts[i].Count > counts[j].Count })
	return counts
}

// tally counts values, keeping first-appearance order.
func tally(values []string) []Count {
	index := make(map[string]int)
	var counts []Count
	for _, v := range values {
		if i, ok := index[v]; ok {
			counts[i].Count++
			continue
		}
		index[v] = len(counts)
		counts = append(counts, Count{Value: v, Count: 1})
	}
	if counts == nil {
		counts = []Count{}
	}
	return counts
}
