// Package screener intersects the theme universe with independent leader lists.
package screener

import (
	"sort"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/confluo/internal/models"
)

// Engine computes candidate sets. It holds no state between calls.
type Engine struct {
	logger arbor.ILogger
}

// NewEngine creates an intersection engine.
func NewEngine(logger arbor.ILogger) *Engine {
	return &Engine{logger: logger}
}

// leaderSet indexes one leader list by identifier, with a name index used
// only for instruments that carry no identifier.
type leaderSet struct {
	name   string
	byCode map[string]models.RankedEntry
	byName map[string]models.RankedEntry
}

func newLeaderSet(list models.LeaderList) leaderSet {
	set := leaderSet{
		name:   list.Name,
		byCode: make(map[string]models.RankedEntry, len(list.Entries)),
		byName: make(map[string]models.RankedEntry),
	}
	for _, e := range list.Entries {
		if e.Identifier != "" {
			if _, exists := set.byCode[e.Identifier]; !exists {
				set.byCode[e.Identifier] = e
			}
			continue
		}
		if key := nameKey(e.DisplayName); key != "" {
			if _, exists := set.byName[key]; !exists {
				set.byName[key] = e
			}
		}
	}
	return set
}

func (s leaderSet) size() int {
	return len(s.byCode) + len(s.byName)
}

// lookup matches by identifier; name matching applies only when the member has no identifier.
func (s leaderSet) lookup(member models.RankedEntry) (models.RankedEntry, bool) {
	if member.Identifier != "" {
		e, ok := s.byCode[member.Identifier]
		return e, ok
	}
	key := nameKey(member.DisplayName)
	if key == "" {
		return models.RankedEntry{}, false
	}
	if e, ok := s.byName[key]; ok {
		return e, true
	}
	for _, e := range s.byCode {
		if nameKey(e.DisplayName) == key {
			return e, true
		}
	}
	return models.RankedEntry{}, false
}

// Intersect returns the members of themes present in every leader list.
// Themes are walked in order and members in theme-rank order; the first
// occurrence of an identifier wins. No leader lists, an empty universe or
// any empty leader list yields an empty result.
func (e *Engine) Intersect(themes []models.ThemeGroup, leaders ...models.LeaderList) []models.CandidateStock {
	candidates := make([]models.CandidateStock, 0)
	if len(leaders) == 0 {
		return candidates
	}

	sets := make([]leaderSet, 0, len(leaders))
	for _, l := range leaders {
		set := newLeaderSet(l)
		if set.size() == 0 {
			e.logger.Debug().Str("leader_list", l.Name).Msg("Empty leader list, no candidates possible")
			return candidates
		}
		sets = append(sets, set)
	}

	seen := make(map[string]bool)
	for _, theme := range themes {
		for _, member := range theme.Members {
			key := memberKey(member)
			if key == "" || seen[key] {
				continue
			}

			entry, matched, ok := matchAll(member, sets)
			if !ok {
				continue
			}

			seen[key] = true
			if entry.Identifier != "" {
				seen["code:"+entry.Identifier] = true
			}
			candidates = append(candidates, models.CandidateStock{
				Entry:        entry,
				Theme:        theme.Name,
				ThemeRank:    member.Rank,
				MatchedLists: matched,
			})
		}
	}

	e.logger.Debug().
		Int("themes", len(themes)).
		Int("leader_lists", len(leaders)).
		Int("candidates", len(candidates)).
		Msg("Intersection complete")

	return candidates
}

// matchAll tests a member against every set. The returned entry carries the
// member's theme attributes with the market filled from the first matching leader.
func matchAll(member models.RankedEntry, sets []leaderSet) (models.RankedEntry, []string, bool) {
	entry := member
	matched := make([]string, 0, len(sets))
	for _, set := range sets {
		leader, ok := set.lookup(member)
		if !ok {
			return models.RankedEntry{}, nil, false
		}
		if entry.Market == models.MarketUnknown {
			entry.Market = leader.Market
		}
		if entry.Identifier == "" {
			entry.Identifier = leader.Identifier
		}
		matched = append(matched, set.name)
	}
	return entry, matched, true
}

// SortByTheme orders candidates by theme name. The sort is stable so
// candidates of one theme keep their encounter order.
func SortByTheme(candidates []models.CandidateStock) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Theme < candidates[j].Theme
	})
}

// SortByRank orders candidates by their position within their theme.
func SortByRank(candidates []models.CandidateStock) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].ThemeRank < candidates[j].ThemeRank
	})
}

// Funnel reports the size of each screening stage.
func Funnel(themes []models.ThemeGroup, leaders []models.LeaderList, candidates []models.CandidateStock) []models.StageCount {
	universe := make(map[string]bool)
	for _, t := range themes {
		for _, m := range t.Members {
			if key := memberKey(m); key != "" {
				universe[key] = true
			}
		}
	}

	stages := []models.StageCount{{Name: "theme universe", Count: len(universe)}}
	for _, l := range leaders {
		stages = append(stages, models.StageCount{Name: l.Name, Count: newLeaderSet(l).size()})
	}
	return append(stages, models.StageCount{Name: "candidates", Count: len(candidates)})
}

// MergeLeaders combines per-market lists of one kind into a single leader list.
func MergeLeaders(name string, lists ...[]models.RankedEntry) models.LeaderList {
	merged := models.LeaderList{Name: name, Entries: make([]models.RankedEntry, 0)}
	for _, l := range lists {
		merged.Entries = append(merged.Entries, l...)
	}
	return merged
}

func memberKey(e models.RankedEntry) string {
	if e.Identifier != "" {
		return "code:" + e.Identifier
	}
	if key := nameKey(e.DisplayName); key != "" {
		return "name:" + key
	}
	return ""
}

func nameKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
