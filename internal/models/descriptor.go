package models

import (
	"strconv"
	"strings"
)

// ColumnMap holds zero-based cell indices of a ranked table row.
// A negative index means the column is absent.
type ColumnMap struct {
	Name      int `toml:"name" json:"name" validate:"gte=0"`
	Price     int `toml:"price" json:"price" validate:"gte=0"`
	Change    int `toml:"change" json:"change" validate:"gte=0"`
	Volume    int `toml:"volume" json:"volume"`
	MarketCap int `toml:"market_cap" json:"market_cap"`
}

// SourceDescriptor describes one paginated ranked listing.
type SourceDescriptor struct {
	Name         string            `toml:"name" json:"name" validate:"required"`
	URLTemplate  string            `toml:"url" json:"url" validate:"required"`
	Market       Market            `toml:"market" json:"market" validate:"omitempty,oneof=PRIMARY SECONDARY"`
	MarketParams map[string]string `toml:"market_params" json:"market_params"`
	FirstPage    int               `toml:"first_page" json:"first_page" validate:"gte=0"`
	LastPage     int               `toml:"last_page" json:"last_page" validate:"gtefield=FirstPage"`
	Limit        int               `toml:"limit" json:"limit" validate:"gte=0"`
	RowSelector  string            `toml:"row_selector" json:"row_selector" validate:"required"`
	LinkSelector string            `toml:"link_selector" json:"link_selector"`
	Columns      ColumnMap         `toml:"columns" json:"columns"`
	CodePattern  string            `toml:"code_pattern" json:"code_pattern"`
	Encoding     string            `toml:"encoding" json:"encoding" validate:"omitempty,oneof=auto utf-8 cp949"`
	Referer      string            `toml:"referer" json:"referer"`
}

// ForMarket returns a copy of the descriptor bound to a market segment.
func (d SourceDescriptor) ForMarket(m Market) SourceDescriptor {
	d.Market = m
	return d
}

// Pages returns the page numbers to fetch. A descriptor without a page range fetches once.
func (d SourceDescriptor) Pages() []int {
	if d.FirstPage == 0 && d.LastPage == 0 {
		return []int{1}
	}
	first := d.FirstPage
	if first == 0 {
		first = 1
	}
	pages := make([]int, 0, d.LastPage-first+1)
	for p := first; p <= d.LastPage; p++ {
		pages = append(pages, p)
	}
	return pages
}

// PageURL expands the URL template for a page.
func (d SourceDescriptor) PageURL(page int) string {
	param := d.MarketParams[string(d.Market)]
	return strings.NewReplacer(
		"{market}", param,
		"{page}", strconv.Itoa(page),
	).Replace(d.URLTemplate)
}

// ListName is the descriptor name qualified by market, used for logs and leader labels.
func (d SourceDescriptor) ListName() string {
	if d.Market == MarketUnknown {
		return d.Name
	}
	return d.Name + ":" + strings.ToLower(d.Market.Label())
}
