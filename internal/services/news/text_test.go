package news

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/confluo/internal/models"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "lowercase host and scheme", in: "HTTPS://News.Example.COM/Story", want: "https://news.example.com/Story"},
		{name: "strip fragment", in: "https://news.example.com/a#section", want: "https://news.example.com/a"},
		{name: "strip utm params", in: "https://news.example.com/a?utm_source=x&id=7&UTM_medium=y", want: "https://news.example.com/a?id=7"},
		{name: "trim trailing slash", in: "https://news.example.com/a/", want: "https://news.example.com/a"},
		{name: "sorted query", in: "https://news.example.com/a?b=2&a=1", want: "https://news.example.com/a?a=1&b=2"},
		{name: "not a url", in: "  headline only ", want: "headline only"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Canonicalize(tt.in))
		})
	}
}

// TestDedup_Idempotent verifies dedup(dedup(x)) == dedup(x) and first-wins ordering
func TestDedup_Idempotent(t *testing.T) {
	items := []models.NewsItem{
		{Title: "A", Link: "https://x.example/a", Summary: "first"},
		{Title: "B", Link: "https://x.example/b"},
		{Title: "A again", Link: "https://X.example/a/?utm_campaign=z", Summary: "second"},
		{Title: "No link"},
		{Title: "no  LINK"},
		{},
		{Title: "C", CanonicalLink: "https://x.example/c"},
	}

	once := Dedup(items)
	twice := Dedup(once)

	assert.Equal(t, once, twice)
	assert.Len(t, once, 4)
	assert.Equal(t, "first", once[0].Summary)
	assert.Equal(t, "No link", once[2].Title)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 3))
	assert.Equal(t, "ab...", Truncate("abc", 2))
	assert.Equal(t, "한국...", Truncate("한국어", 2))
	assert.Equal(t, "abc", Truncate("abc", 0), "Zero means unbounded")
}

func TestStripHTML(t *testing.T) {
	assert.Equal(t, "Hello world & co", StripHTML("<p>Hello <b>world</b></p>\n &amp; co"))
	assert.Equal(t, "plain text", StripHTML("  plain \n text "))
}

// TestQueries verifies the query strings for first turn, follow-up and market subjects
func TestQueries(t *testing.T) {
	c := models.CandidateStock{
		Entry: models.RankedEntry{Identifier: "005930", DisplayName: "삼성전자"},
		Theme: "반도체",
	}

	first := StockSubject(c, []string{"주가", "전망", "호재", "특징주"})
	assert.Equal(t, "삼성전자 반도체 주가 전망 호재 특징주", first.Query())
	assert.Equal(t, "005930", first.Code)

	follow := FollowUpSubject(c, " 실적 발표 일정은? ")
	assert.Equal(t, "삼성전자 실적 발표 일정은?", follow.Query())

	market := MarketSubject("오늘 주식 시황 주도 테마 특징주")
	assert.True(t, market.MarketWide)
	assert.Equal(t, "오늘 주식 시황 주도 테마 특징주", market.Query())
}
