package screener

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/confluo/internal/models"
)

func entry(code string, rank int) models.RankedEntry {
	return models.RankedEntry{Identifier: code, DisplayName: "name-" + code, Rank: rank}
}

func leaders(name string, market models.Market, codes ...string) models.LeaderList {
	list := models.LeaderList{Name: name}
	for i, c := range codes {
		e := entry(c, i+1)
		e.Market = market
		list.Entries = append(list.Entries, e)
	}
	return list
}

func codes(candidates []models.CandidateStock) []string {
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.Entry.Identifier)
	}
	return out
}

// TestIntersect_ScenarioA verifies the three-list AND over a single theme
func TestIntersect_ScenarioA(t *testing.T) {
	engine := NewEngine(arbor.NewLogger())

	themes := []models.ThemeGroup{{
		Name:    "Batteries",
		Members: []models.RankedEntry{entry("AAA", 1), entry("BBB", 2), entry("CCC", 3)},
	}}

	got := engine.Intersect(themes,
		leaders("gainers", models.MarketPrimary, "AAA", "CCC"),
		leaders("volume", models.MarketPrimary, "AAA"),
	)

	require.Len(t, got, 1)
	assert.Equal(t, "AAA", got[0].Entry.Identifier)
	assert.Equal(t, "Batteries", got[0].Theme)
	assert.Equal(t, 1, got[0].ThemeRank)
	assert.Equal(t, []string{"gainers", "volume"}, got[0].MatchedLists)
	assert.Equal(t, models.MarketPrimary, got[0].Entry.Market, "Market should come from the leader list")
}

func TestIntersect_EdgeCases(t *testing.T) {
	engine := NewEngine(arbor.NewLogger())
	universe := []models.ThemeGroup{{Name: "T", Members: []models.RankedEntry{entry("AAA", 1), entry("BBB", 2)}}}

	tests := []struct {
		name    string
		themes  []models.ThemeGroup
		leaders []models.LeaderList
		want    []string
	}{
		{name: "empty universe", themes: nil, leaders: []models.LeaderList{leaders("g", "", "AAA")}, want: []string{}},
		{name: "empty leader set", themes: universe, leaders: []models.LeaderList{leaders("g", "", "AAA"), leaders("v", "")}, want: []string{}},
		{name: "no leader lists", themes: universe, leaders: nil, want: []string{}},
		{name: "fully overlapping", themes: universe, leaders: []models.LeaderList{leaders("g", "", "BBB", "AAA"), leaders("v", "", "AAA", "BBB")}, want: []string{"AAA", "BBB"}},
		{name: "disjoint", themes: universe, leaders: []models.LeaderList{leaders("g", "", "ZZZ")}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.Intersect(tt.themes, tt.leaders...)
			assert.Equal(t, tt.want, codes(got))
		})
	}
}

// TestIntersect_FirstThemeWins verifies duplicate membership keeps the first theme and rank
func TestIntersect_FirstThemeWins(t *testing.T) {
	engine := NewEngine(arbor.NewLogger())

	themes := []models.ThemeGroup{
		{Name: "Robots", Members: []models.RankedEntry{entry("BBB", 1), entry("AAA", 4)}},
		{Name: "Batteries", Members: []models.RankedEntry{entry("AAA", 1), entry("CCC", 2)}},
	}

	got := engine.Intersect(themes, leaders("g", "", "AAA", "BBB", "CCC"))

	require.Equal(t, []string{"BBB", "AAA", "CCC"}, codes(got))
	assert.Equal(t, "Robots", got[1].Theme)
	assert.Equal(t, 4, got[1].ThemeRank)
}

// TestIntersect_IdentifierNotName verifies same-named instruments with different codes do not match
func TestIntersect_IdentifierNotName(t *testing.T) {
	engine := NewEngine(arbor.NewLogger())

	themes := []models.ThemeGroup{{Name: "T", Members: []models.RankedEntry{
		{Identifier: "111111", DisplayName: "Shared Name", Rank: 1},
		{DisplayName: "Codeless Corp", Rank: 2},
	}}}
	list := models.LeaderList{Name: "g", Entries: []models.RankedEntry{
		{Identifier: "222222", DisplayName: "Shared Name", Market: models.MarketSecondary},
		{Identifier: "333333", DisplayName: "codeless  corp", Market: models.MarketSecondary},
	}}

	got := engine.Intersect(themes, list)

	require.Len(t, got, 1, "Only the codeless member may fall back to name matching")
	assert.Equal(t, "333333", got[0].Entry.Identifier)
	assert.Equal(t, "Codeless Corp", got[0].Entry.DisplayName)
}

// TestIntersect_Property checks the iff-property against randomly built fixtures
func TestIntersect_Property(t *testing.T) {
	engine := NewEngine(arbor.NewLogger())
	rng := rand.New(rand.NewSource(42))
	pool := make([]string, 30)
	for i := range pool {
		pool[i] = fmt.Sprintf("C%02d", i)
	}
	pick := func(n int) []string {
		perm := rng.Perm(len(pool))
		out := make([]string, n)
		for i := 0; i < n; i++ {
			out[i] = pool[perm[i]]
		}
		return out
	}

	for iter := 0; iter < 200; iter++ {
		var themes []models.ThemeGroup
		universe := make(map[string]bool)
		for ti := 0; ti < 1+rng.Intn(4); ti++ {
			group := models.ThemeGroup{Name: fmt.Sprintf("theme-%d", ti)}
			for mi, c := range pick(rng.Intn(10)) {
				group.Members = append(group.Members, entry(c, mi+1))
				universe[c] = true
			}
			themes = append(themes, group)
		}

		var lists []models.LeaderList
		var sets []map[string]bool
		for li := 0; li < 1+rng.Intn(3); li++ {
			chosen := pick(rng.Intn(25))
			lists = append(lists, leaders(fmt.Sprintf("l%d", li), "", chosen...))
			set := make(map[string]bool)
			for _, c := range chosen {
				set[c] = true
			}
			sets = append(sets, set)
		}

		got := make(map[string]bool)
		for _, c := range engine.Intersect(themes, lists...) {
			assert.False(t, got[c.Entry.Identifier], "Candidates must be unique")
			got[c.Entry.Identifier] = true
		}

		for _, c := range pool {
			want := universe[c]
			for _, s := range sets {
				want = want && s[c]
			}
			assert.Equal(t, want, got[c], "iteration %d code %s", iter, c)
		}
	}
}

func TestSortByTheme_Stable(t *testing.T) {
	candidates := []models.CandidateStock{
		{Entry: entry("A", 1), Theme: "Ships"},
		{Entry: entry("B", 1), Theme: "Batteries"},
		{Entry: entry("C", 2), Theme: "Ships"},
		{Entry: entry("D", 2), Theme: "Batteries"},
	}

	SortByTheme(candidates)

	assert.Equal(t, []string{"B", "D", "A", "C"}, codes(candidates))
}

func TestSortByRank_Stable(t *testing.T) {
	candidates := []models.CandidateStock{
		{Entry: entry("A", 1), Theme: "Ships", ThemeRank: 3},
		{Entry: entry("B", 1), Theme: "Batteries", ThemeRank: 1},
		{Entry: entry("C", 2), Theme: "Ships", ThemeRank: 1},
		{Entry: entry("D", 2), Theme: "Batteries", ThemeRank: 2},
	}

	SortByRank(candidates)

	assert.Equal(t, []string{"B", "C", "D", "A"}, codes(candidates))
}

func TestFunnel(t *testing.T) {
	themes := []models.ThemeGroup{
		{Name: "x", Members: []models.RankedEntry{entry("A", 1), entry("B", 2)}},
		{Name: "y", Members: []models.RankedEntry{entry("B", 1)}},
	}
	lists := []models.LeaderList{leaders("rise", "", "A", "C")}

	stages := Funnel(themes, lists, []models.CandidateStock{{Entry: entry("A", 1)}})

	assert.Equal(t, []models.StageCount{
		{Name: "theme universe", Count: 2},
		{Name: "rise", Count: 2},
		{Name: "candidates", Count: 1},
	}, stages)
}

func TestMergeLeaders(t *testing.T) {
	merged := MergeLeaders("rise", leaders("a", models.MarketPrimary, "A").Entries, leaders("b", models.MarketSecondary, "B").Entries)

	assert.Equal(t, "rise", merged.Name)
	assert.Equal(t, []string{"A", "B"}, []string{merged.Entries[0].Identifier, merged.Entries[1].Identifier})
}
