package models

import (
	"fmt"
	"strings"
)

// Market identifies the exchange segment a listing belongs to.
type Market string

const (
	// MarketPrimary is the main board (KOSPI on the default provider)
	MarketPrimary Market = "PRIMARY"
	// MarketSecondary is the growth board (KOSDAQ on the default provider)
	MarketSecondary Market = "SECONDARY"
	// MarketUnknown is used when a source does not carry segment information
	MarketUnknown Market = ""
)

// Markets lists the segments in collection order.
var Markets = []Market{MarketPrimary, MarketSecondary}

// ParseMarket converts a config or CLI value into a Market.
// Accepts the enum names and the provider aliases (kospi, kosdaq).
func ParseMarket(s string) (Market, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PRIMARY", "KOSPI":
		return MarketPrimary, nil
	case "SECONDARY", "KOSDAQ":
		return MarketSecondary, nil
	case "":
		return MarketUnknown, nil
	default:
		return MarketUnknown, fmt.Errorf("unknown market %q", s)
	}
}

// Label returns the provider-facing display label.
func (m Market) Label() string {
	switch m {
	case MarketPrimary:
		return "KOSPI"
	case MarketSecondary:
		return "KOSDAQ"
	default:
		return "-"
	}
}
