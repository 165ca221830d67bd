package search

import (
	"testing"

	"github.com/BearBump/ShareBox/internal/models"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func names(cs []*models.Commodity) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Name)
	}
	return out
}

func TestSearch_RanksByImportanceThenDistance(t *testing.T) {
	groups := []*models.StorageGroup{
		{ID: 1, Longitude: 1, Latitude: 3},  // distance 10 from origin
		{ID: 2, Longitude: 0, Latitude: 0},  // distance 0
		{ID: 3, Longitude: 1, Latitude: -1}, // distance 2, not used
		{ID: 4, Longitude: -1, Latitude: 1.4142135623730951},
	}
	commodities := []*models.Commodity{
		{ID: 10, Name: "A", Description: "red bicycle", StorageGroupID: 1},
		{ID: 11, Name: "C", Description: "red chair", StorageGroupID: 2},
		{ID: 12, Name: "B", Description: "Bicycle, RED", StorageGroupID: 4},
	}

	out := New(FieldsTokenizer{}).Search(commodities, groups, Query{
		Point:   &Point{},
		Keyword: ptr("red bicycle"),
	})
	require.Equal(t, []string{"B", "A", "C"}, names(out))
}

func TestSearch_ZeroImportanceKept(t *testing.T) {
	groups := []*models.StorageGroup{{ID: 1, Longitude: 5, Latitude: 5}, {ID: 2, Longitude: 1, Latitude: 1}}
	commodities := []*models.Commodity{
		{ID: 1, Name: "far", Description: "nothing", StorageGroupID: 1},
		{ID: 2, Name: "near", Description: "nothing", StorageGroupID: 2},
		{ID: 3, Name: "match", Description: "lamp", StorageGroupID: 1},
	}
	out := New(FieldsTokenizer{}).Search(commodities, groups, Query{Point: &Point{}, Keyword: ptr("lamp")})
	require.Equal(t, []string{"match", "near", "far"}, names(out))
}

func TestSearch_FiltersBeforeRanking(t *testing.T) {
	groups := []*models.StorageGroup{{ID: 1}}
	commodities := []*models.Commodity{
		{ID: 1, Name: "a", Status: models.CommodityStatusGiving, GiverID: "g1", StorageGroupID: 1},
		{ID: 2, Name: "b", Status: models.CommodityStatusPending, GiverID: "g1", StorageGroupID: 1},
		{ID: 3, Name: "c", Status: models.CommodityStatusGiving, GiverID: "g2", StorageGroupID: 1},
		{ID: 4, Name: "d", Status: models.CommodityStatusGiving, GiverID: "g1", ReceiverID: ptr("r"), StorageGroupID: 1},
	}
	e := New(FieldsTokenizer{})

	out := e.Search(commodities, groups, Query{Filter: models.CommodityFilter{
		Status:  ptr(models.CommodityStatusGiving),
		GiverID: ptr("g1"),
	}})
	require.Equal(t, []string{"a", "d"}, names(out))

	out = e.Search(commodities, groups, Query{Filter: models.CommodityFilter{ReceiverID: ptr("r")}})
	require.Equal(t, []string{"d"}, names(out))
}

func TestSearch_StorageGroupShortCircuitsRanking(t *testing.T) {
	groups := []*models.StorageGroup{{ID: 1, Longitude: 9, Latitude: 9}, {ID: 2}}
	commodities := []*models.Commodity{
		{ID: 1, Name: "first", Description: "", StorageGroupID: 1},
		{ID: 2, Name: "other", Description: "lamp", StorageGroupID: 2},
		{ID: 3, Name: "second", Description: "lamp lamp", StorageGroupID: 1},
	}
	q := Query{
		Filter:  models.CommodityFilter{StorageGroupID: ptr(uint64(1))},
		Point:   &Point{},
		Keyword: ptr("lamp"),
	}
	require.False(t, q.Ranked())
	out := New(FieldsTokenizer{}).Search(commodities, groups, q)
	require.Equal(t, []string{"first", "second"}, names(out))
}

func TestSearch_NeedsBothPointAndKeyword(t *testing.T) {
	groups := []*models.StorageGroup{{ID: 1, Longitude: 9}, {ID: 2}}
	commodities := []*models.Commodity{
		{ID: 1, Name: "x", StorageGroupID: 1},
		{ID: 2, Name: "lamp", StorageGroupID: 2},
	}
	out := New(FieldsTokenizer{}).Search(commodities, groups, Query{Keyword: ptr("lamp")})
	require.Equal(t, []string{"x", "lamp"}, names(out))
}

func TestSearch_DropsCommoditiesWithoutGroupWhenRanking(t *testing.T) {
	groups := []*models.StorageGroup{{ID: 1}}
	commodities := []*models.Commodity{
		{ID: 1, Name: "kept", StorageGroupID: 1},
		{ID: 2, Name: "orphan", StorageGroupID: 7},
	}
	out := New(FieldsTokenizer{}).Search(commodities, groups, Query{Point: &Point{}, Keyword: ptr("x")})
	require.Equal(t, []string{"kept"}, names(out))
}

func TestSearch_EmptyInput(t *testing.T) {
	out := New(FieldsTokenizer{}).Search(nil, nil, Query{Point: &Point{}, Keyword: ptr("lamp")})
	require.NotNil(t, out)
	require.Len(t, out, 0)
}

func TestImportanceAndDistance(t *testing.T) {
	require.Equal(t, 2, Importance([]string{"red", "bike", "car"}, "Red BIKE for sale"))
	require.Equal(t, 0, Importance(nil, "anything"))
	require.Equal(t, 25.0, Distance(Point{Longitude: 3, Latitude: 4}, Point{}))
}

func TestNormalize(t *testing.T) {
	require.Equal(t, []string{"red", "bike"}, Normalize([]string{" Red", ",", "BIKE!", "red", ""}))
}

func TestFieldsTokenizer(t *testing.T) {
	require.Equal(t, []string{"old", "desk", "lamp"}, FieldsTokenizer{}.Tokens("Old desk, lamp  lamp"))
}

func TestSegmentTokenizer(t *testing.T) {
	tok, err := NewSegmentTokenizer()
	require.NoError(t, err)

	got := tok.Tokens("Red Bicycle!")
	require.Contains(t, got, "red")
	require.Contains(t, got, "bicycle")
	for _, w := range got {
		require.NotEmpty(t, w)
		require.NotContains(t, w, " ")
	}

	got = tok.Tokens("中华人民共和国")
	require.Contains(t, got, "中华")
	require.Contains(t, got, "中华人民共和国")
}
