package ranking

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/confluo/internal/models"
)

const defaultCodePattern = `code=([A-Za-z0-9]+)`

// negativeMarkers flag a falling value when the cell carries words or arrows instead of a sign
var negativeMarkers = []string{"하락", "하한", "▼", "↓"}

// parseRows converts table rows into entries. Rows without cells (headers) are ignored;
// rows that fail the name/link/price/change shape are counted as skipped.
func parseRows(doc *goquery.Document, desc models.SourceDescriptor, codeRe *regexp.Regexp, offset int) ([]models.RankedEntry, int) {
	entries := make([]models.RankedEntry, 0)
	skipped := 0

	doc.Find(desc.RowSelector).Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() == 0 {
			return
		}
		entry, ok := parseRow(cells, desc, codeRe)
		if !ok {
			skipped++
			return
		}
		entry.Rank = offset + len(entries) + 1
		entries = append(entries, entry)
	})

	return entries, skipped
}

func parseRow(cells *goquery.Selection, desc models.SourceDescriptor, codeRe *regexp.Regexp) (models.RankedEntry, bool) {
	cols := desc.Columns
	if cells.Length() <= max(cols.Name, cols.Price, cols.Change) {
		return models.RankedEntry{}, false
	}

	link := cells.Eq(cols.Name).Find(linkSelector(desc)).First()
	name := cleanText(link.Text())
	href, _ := link.Attr("href")
	if name == "" || href == "" {
		return models.RankedEntry{}, false
	}

	code := extractCode(href, codeRe)
	if code == "" {
		return models.RankedEntry{}, false
	}

	price, err := parseNumber(cells.Eq(cols.Price).Text())
	if err != nil {
		return models.RankedEntry{}, false
	}

	change, err := parseChange(cells.Eq(cols.Change).Text())
	if err != nil {
		return models.RankedEntry{}, false
	}

	entry := models.RankedEntry{
		Identifier:    code,
		DisplayName:   name,
		Price:         price,
		PercentChange: change,
		Market:        desc.Market,
		Source:        desc.Name,
	}

	if cols.Volume >= 0 && cols.Volume < cells.Length() {
		if v, err := parseNumber(cells.Eq(cols.Volume).Text()); err == nil {
			entry.Volume = int64(v)
		}
	}
	if cols.MarketCap >= 0 && cols.MarketCap < cells.Length() {
		entry.MarketCap = cleanText(cells.Eq(cols.MarketCap).Text())
	}

	return entry, true
}

// sortByChange orders members by percent change descending and renumbers ranks.
func sortByChange(entries []models.RankedEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].PercentChange > entries[j].PercentChange
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
}

func linkSelector(desc models.SourceDescriptor) string {
	if desc.LinkSelector == "" {
		return "a"
	}
	return desc.LinkSelector
}

func extractCode(href string, re *regexp.Regexp) string {
	m := re.FindStringSubmatch(href)
	if len(m) < 2 {
		return ""
	}
	return strings.ToUpper(m[1])
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// parseNumber parses "12,345" style numbers.
func parseNumber(s string) (float64, error) {
	t := strings.NewReplacer(",", "", " ", "", "\u00a0", "").Replace(cleanText(s))
	if t == "" {
		return 0, fmt.Errorf("empty number")
	}
	return strconv.ParseFloat(t, 64)
}

// parseChange parses a signed percent change such as "+3.45%", "-1.2%" or "하락 1.2".
func parseChange(s string) (float64, error) {
	t := cleanText(s)
	negative := strings.HasPrefix(t, "-")
	for _, marker := range negativeMarkers {
		if strings.Contains(t, marker) {
			negative = true
		}
	}

	var b strings.Builder
	for _, r := range t {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, fmt.Errorf("no numeric change in %q", s)
	}

	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0, err
	}
	if negative {
		v = -v
	}
	return v, nil
}
