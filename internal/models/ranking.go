package models

import "time"

// RankedEntry is one normalized row of a ranked listing.
// Identity is by Identifier; DisplayName is not unique.
type RankedEntry struct {
	Identifier    string  `json:"identifier"`
	DisplayName   string  `json:"display_name"`
	Rank          int     `json:"rank"` // 1-based position within its source list
	Price         float64 `json:"price"`
	PercentChange float64 `json:"percent_change"`
	Market        Market  `json:"market,omitempty"`
	Volume        int64   `json:"volume,omitempty"`
	MarketCap     string  `json:"market_cap,omitempty"`
	Source        string  `json:"source,omitempty"`
}

// ThemeGroup is a thematic grouping with its members ordered by theme rank.
type ThemeGroup struct {
	Name    string        `json:"name"`
	Rank    int           `json:"rank"`
	Link    string        `json:"link,omitempty"`
	Members []RankedEntry `json:"members"`
}

// LeaderList is an independently ranked list used as an intersection filter.
type LeaderList struct {
	Name    string        `json:"name"`
	Entries []RankedEntry `json:"entries"`
}

// CandidateStock is an instrument that survived the theme/leader intersection.
type CandidateStock struct {
	Entry        RankedEntry `json:"entry"`
	Theme        string      `json:"theme"`
	ThemeRank    int         `json:"theme_rank"`
	MatchedLists []string    `json:"matched_lists"`
}

// Code returns the candidate identifier.
func (c CandidateStock) Code() string {
	return c.Entry.Identifier
}

// StageCount records the size of one funnel stage.
type StageCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ScreenResult is the output of one analysis cycle.
type ScreenResult struct {
	Themes      []ThemeGroup     `json:"themes"`
	Leaders     []LeaderList     `json:"leaders"`
	Candidates  []CandidateStock `json:"candidates"`
	Stages      []StageCount     `json:"stages"`
	CollectedAt time.Time        `json:"collected_at"`
}

// Candidate returns the candidate with the given identifier.
func (r *ScreenResult) Candidate(code string) (CandidateStock, bool) {
	if r == nil {
		return CandidateStock{}, false
	}
	for _, c := range r.Candidates {
		if c.Entry.Identifier == code {
			return c, true
		}
	}
	return CandidateStock{}, false
}
