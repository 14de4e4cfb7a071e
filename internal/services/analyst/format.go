package analyst

import (
	"fmt"
	"strings"

	"github.com/ternarybob/confluo/internal/models"
)

func writeFacts(b *strings.Builder, c models.CandidateStock, marketCap string) {
	if marketCap == "" {
		marketCap = "-"
	}
	fmt.Fprintf(b, "- 종목: %s (%s)\n", c.Entry.DisplayName, c.Entry.Identifier)
	fmt.Fprintf(b, "- 시장: %s\n", c.Entry.Market.Label())
	fmt.Fprintf(b, "- 현재가: %s (%s)\n", FormatPrice(c.Entry.Price), FormatChange(c.Entry.PercentChange))
	fmt.Fprintf(b, "- 테마: %s (테마 내 %d위)\n", c.Theme, c.ThemeRank)
	fmt.Fprintf(b, "- 시가총액: %s\n", marketCap)
	if len(c.MatchedLists) > 0 {
		fmt.Fprintf(b, "- 포함된 주도주 목록: %s\n", strings.Join(c.MatchedLists, ", "))
	}
}

func writeDigest(b *strings.Builder, digest models.NewsDigest) {
	if len(digest.Items) == 0 && len(digest.Headlines) == 0 {
		b.WriteString("관련된 뉴스 기사가 없습니다.\n")
		return
	}
	for i, item := range digest.Items {
		tag := "요약"
		if item.Body != "" {
			tag = "본문"
		}
		date := ""
		if item.PublishedAt != nil {
			date = " (" + item.PublishedAt.Format("2006-01-02") + ")"
		}
		fmt.Fprintf(b, "[%d] [%s] %s%s [%s]\n", i+1, item.Source, item.Title, date, tag)
		if text := item.Text(); text != "" {
			fmt.Fprintf(b, "내용: %s\n", text)
		}
	}
	if len(digest.Headlines) > 0 {
		b.WriteString("기타 헤드라인:\n")
		for _, h := range digest.Headlines {
			fmt.Fprintf(b, "- %s\n", h)
		}
	}
}

func writeTable(b *strings.Builder, entries []models.RankedEntry) {
	if len(entries) == 0 {
		b.WriteString("데이터 없음\n")
		return
	}
	b.WriteString("순위 | 종목명 | 현재가 | 등락률 | 시가총액\n")
	for _, e := range entries {
		capital := e.MarketCap
		if capital == "" {
			capital = "-"
		}
		fmt.Fprintf(b, "%d | %s | %s | %s | %s\n", e.Rank, e.DisplayName, FormatPrice(e.Price), FormatChange(e.PercentChange), capital)
	}
}

// FormatPrice renders a price with thousands separators.
func FormatPrice(p float64) string {
	s := fmt.Sprintf("%.0f", p)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var out []byte
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}

// FormatChange renders a signed percent change.
func FormatChange(c float64) string {
	return fmt.Sprintf("%+.2f%%", c)
}
