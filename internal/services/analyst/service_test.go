package analyst

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/confluo/internal/common"
	"github.com/ternarybob/confluo/internal/models"
	"github.com/ternarybob/confluo/internal/services/session"
)

type fakeNews struct {
	mu       sync.Mutex
	subjects []models.NewsSubject
	digest   models.NewsDigest
}

func (f *fakeNews) Aggregate(ctx context.Context, subject models.NewsSubject) models.NewsDigest {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subjects = append(f.subjects, subject)
	d := f.digest
	d.Subject = subject
	return d
}

type fakeQuotes map[string]string

func (f fakeQuotes) MarketCap(ctx context.Context, code string) string { return f[code] }

func candidate() models.CandidateStock {
	return models.CandidateStock{
		Entry: models.RankedEntry{
			Identifier:    "373220",
			DisplayName:   "LG에너지솔루션",
			Price:         412500,
			PercentChange: 8.25,
			Market:        models.MarketPrimary,
		},
		Theme:        "2차전지",
		ThemeRank:    2,
		MatchedLists: []string{"rise", "volume"},
	}
}

func newTestAnalyst(n *fakeNews) *Service {
	return NewService(n, fakeQuotes{"373220": "96조 5,250억"}, common.NewDefaultConfig(), arbor.NewLogger())
}

func TestStockAnalysis_NoSelection(t *testing.T) {
	svc := newTestAnalyst(&fakeNews{})

	_, err := svc.StockAnalysis(context.Background(), session.New(arbor.NewLogger()), "")

	assert.ErrorIs(t, err, models.ErrCandidateNotFound)
}

// TestStockAnalysis_FirstTurn verifies facts, news and the three-section instruction are assembled
func TestStockAnalysis_FirstTurn(t *testing.T) {
	n := &fakeNews{digest: models.NewsDigest{
		Items: []models.NewsItem{
			{Title: "수주 공시", Source: "naver"},
			{Title: "실적 개선", Source: "ddg", Summary: "영업이익 증가", Body: "영업이익이 크게 증가했다"},
		},
		Headlines: []string{"기타 소식"},
	}}
	sess := session.New(arbor.NewLogger())
	sess.Select(candidate())

	prompt, err := newTestAnalyst(n).StockAnalysis(context.Background(), sess, "")
	require.NoError(t, err)

	require.Len(t, n.subjects, 1)
	assert.Equal(t, "LG에너지솔루션 2차전지 주가 전망 호재 특징주", n.subjects[0].Query())
	assert.Equal(t, "373220", n.subjects[0].Code)

	assert.Equal(t, common.DefaultSystemPrompt, prompt.System)
	assert.Contains(t, prompt.Text, "LG에너지솔루션 (373220)")
	assert.Contains(t, prompt.Text, "KOSPI")
	assert.Contains(t, prompt.Text, "412,500 (+8.25%)")
	assert.Contains(t, prompt.Text, "96조 5,250억")
	assert.Contains(t, prompt.Text, "테마 내 2위")
	assert.Contains(t, prompt.Text, "[2] [ddg] 실적 개선 [본문]")
	assert.Contains(t, prompt.Text, "영업이익이 크게 증가했다")
	assert.Contains(t, prompt.Text, "- 기타 소식")
	assert.Contains(t, prompt.Text, "테마 모멘텀")
	assert.Contains(t, prompt.Text, "뉴스 재료")
	assert.Contains(t, prompt.Text, "단기 매매 관점")
}

// TestStockAnalysis_FollowUp verifies a question-scoped search is appended to the question
func TestStockAnalysis_FollowUp(t *testing.T) {
	n := &fakeNews{digest: models.NewsDigest{Items: []models.NewsItem{{Title: "증설 발표", Source: "rss", Summary: "공장 증설"}}}}
	sess := session.New(arbor.NewLogger())
	sess.Select(candidate())
	sess.Begin(models.ModelQuery{ID: "q1", Prompt: "first"}, "")
	sess.Complete("q1", "m", "answer")
	svc := newTestAnalyst(n)

	prompt, err := svc.StockAnalysis(context.Background(), sess, "증설 일정은?")
	require.NoError(t, err)

	assert.Equal(t, "LG에너지솔루션 증설 일정은?", n.subjects[0].Query())
	assert.True(t, len(prompt.Text) > 0)
	assert.Contains(t, prompt.Text, "증설 일정은?\n\n[검색된 최신 뉴스]")
	assert.Contains(t, prompt.Text, "공장 증설")

	_, err = svc.StockAnalysis(context.Background(), sess, "  ")
	assert.ErrorIs(t, err, ErrEmptyQuestion)
}

func TestMarketBriefing(t *testing.T) {
	n := &fakeNews{}
	var leaders []models.RankedEntry
	changes := []float64{1.5, -3.2, 0, 7.1, -0.4, 2.2, -8.8}
	for i, c := range changes {
		leaders = append(leaders, models.RankedEntry{Identifier: string(rune('A' + i)), DisplayName: string(rune('A' + i)), Rank: i + 1, PercentChange: c, Price: 1000})
	}

	prompt := newTestAnalyst(n).MarketBriefing(context.Background(), leaders)

	require.Len(t, n.subjects, 1)
	assert.True(t, n.subjects[0].MarketWide)
	assert.Equal(t, "오늘 주식 시황 주도 테마 특징주", n.subjects[0].Query())
	assert.Equal(t, common.DefaultBriefingPrompt, prompt.System)
	assert.Contains(t, prompt.Text, "[시가총액 상위 7 종목]")
	assert.Contains(t, prompt.Text, "관련된 뉴스 기사가 없습니다.")
}

func TestMovers(t *testing.T) {
	entries := []models.RankedEntry{
		{Identifier: "A", PercentChange: 1.5},
		{Identifier: "B", PercentChange: -3.2},
		{Identifier: "C", PercentChange: 0},
		{Identifier: "D", PercentChange: 7.1},
		{Identifier: "E", PercentChange: -0.4},
		{Identifier: "F", PercentChange: 2.2},
	}

	gainers, losers := Movers(entries, 2)

	assert.Equal(t, []string{"D", "F"}, ids(gainers))
	assert.Equal(t, []string{"B", "E"}, ids(losers))
	assert.Equal(t, "A", entries[0].Identifier, "Input must not be reordered")
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "412,500", FormatPrice(412500))
	assert.Equal(t, "999", FormatPrice(999))
	assert.Equal(t, "1,000,000", FormatPrice(1000000))
	assert.Equal(t, "-1,200", FormatPrice(-1200))
	assert.Equal(t, "+8.25%", FormatChange(8.25))
	assert.Equal(t, "-0.40%", FormatChange(-0.4))
}

func ids(entries []models.RankedEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Identifier)
	}
	return out
}
