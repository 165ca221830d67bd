// Package search filters and ranks commodities by keyword relevance and distance to a point.
package search

import (
	"sort"
	"strings"

	"github.com/BearBump/ShareBox/internal/models"
)

type Point struct {
	Longitude float64
	Latitude  float64
}

type Query struct {
	Filter  models.CommodityFilter
	Point   *Point
	Keyword *string
}

// Ranked reports whether the query asks for relevance ordering.
func (q Query) Ranked() bool {
	return q.Filter.StorageGroupID == nil && q.Point != nil && q.Keyword != nil
}

type Engine struct {
	tokenizer Tokenizer
}

func New(t Tokenizer) *Engine {
	return &Engine{tokenizer: t}
}

type scored struct {
	c          *models.Commodity
	importance int
	distance   float64
}

// Search filters commodities and, when the query carries both a point and a keyword, orders them
// by importance desc then distance asc. Commodities whose group is missing from groups are dropped
// from ranked results.
func (e *Engine) Search(commodities []*models.Commodity, groups []*models.StorageGroup, q Query) []*models.Commodity {
	filtered := make([]*models.Commodity, 0, len(commodities))
	for _, c := range commodities {
		if q.Filter.Matches(c) {
			filtered = append(filtered, c)
		}
	}
	if !q.Ranked() || len(filtered) == 0 {
		return filtered
	}

	byID := make(map[uint64]*models.StorageGroup, len(groups))
	for _, g := range groups {
		byID[g.ID] = g
	}

	tokens := e.tokenizer.Tokens(*q.Keyword)
	rows := make([]scored, 0, len(filtered))
	for _, c := range filtered {
		g, ok := byID[c.StorageGroupID]
		if !ok {
			continue
		}
		rows = append(rows, scored{
			c:          c,
			importance: Importance(tokens, c.Name+c.Description),
			distance:   Distance(Point{Longitude: g.Longitude, Latitude: g.Latitude}, *q.Point),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].importance != rows[j].importance {
			return rows[i].importance > rows[j].importance
		}
		return rows[i].distance < rows[j].distance
	})

	out := make([]*models.Commodity, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.c)
	}
	return out
}

// Importance counts the tokens that occur in text, ignoring case.
func Importance(tokens []string, text string) int {
	folded := fold(text)
	n := 0
	for _, t := range tokens {
		if strings.Contains(folded, t) {
			n++
		}
	}
	return n
}

// Distance is the squared euclidean distance in coordinate space. Only used for ordering.
func Distance(a, b Point) float64 {
	dx := a.Longitude - b.Longitude
	dy := a.Latitude - b.Latitude
	return dx*dx + dy*dy
}
