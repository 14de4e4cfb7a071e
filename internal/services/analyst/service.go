// Package analyst assembles the model prompts for stock analysis turns and
// the market briefing from candidate facts and aggregated news.
package analyst

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/ternarybob/confluo/internal/common"
	"github.com/ternarybob/confluo/internal/interfaces"
	"github.com/ternarybob/confluo/internal/models"
	"github.com/ternarybob/confluo/internal/services/news"
	"github.com/ternarybob/confluo/internal/services/session"
)

const (
	briefingTopN   = 20
	briefingMovers = 5
)

// ErrEmptyQuestion is returned for a follow-up turn without a question.
var ErrEmptyQuestion = errors.New("question is empty")

// Prompt is an assembled model input.
type Prompt struct {
	System string
	Text   string
	Digest models.NewsDigest
}

// Service builds prompts. It performs the news and quote lookups a prompt
// needs; both are fail-soft, so prompt assembly never fails on network trouble.
type Service struct {
	news   interfaces.NewsSource
	quotes interfaces.QuoteSource
	config *common.Config
	logger arbor.ILogger
}

// NewService creates a prompt assembler.
func NewService(newsSource interfaces.NewsSource, quotes interfaces.QuoteSource, config *common.Config, logger arbor.ILogger) *Service {
	return &Service{news: newsSource, quotes: quotes, config: config, logger: logger}
}

// StockAnalysis builds the prompt for the next turn about the selected candidate.
// The first turn carries the candidate facts and news; later turns run a
// question-scoped news search and append it to the question.
func (s *Service) StockAnalysis(ctx context.Context, sess *session.Session, question string) (Prompt, error) {
	c, ok := sess.Selected()
	if !ok {
		return Prompt{}, fmt.Errorf("%w: no candidate selected", models.ErrCandidateNotFound)
	}
	question = strings.TrimSpace(question)

	if sess.IsFirstTurn() {
		return s.firstTurn(ctx, c, question), nil
	}
	if question == "" {
		return Prompt{}, ErrEmptyQuestion
	}
	return s.followUp(ctx, c, question), nil
}

func (s *Service) firstTurn(ctx context.Context, c models.CandidateStock, question string) Prompt {
	var (
		marketCap string
		digest    models.NewsDigest
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		marketCap = s.quotes.MarketCap(gctx, c.Entry.Identifier)
		return nil
	})
	g.Go(func() error {
		digest = s.news.Aggregate(gctx, news.StockSubject(c, s.config.News.StockQualifiers))
		return nil
	})
	_ = g.Wait()

	if marketCap == "" {
		marketCap = c.Entry.MarketCap
	}

	var b strings.Builder
	b.WriteString("[분석 대상]\n")
	writeFacts(&b, c, marketCap)
	b.WriteString("\n[최신 뉴스]\n")
	writeDigest(&b, digest)
	b.WriteString("\n다음 세 부분으로 브리핑하십시오.\n")
	b.WriteString("### 1. 테마 모멘텀\n- 이 테마가 현재 시장에서 주목받는 이유와 종목의 위치\n")
	b.WriteString("### 2. 뉴스 재료\n- 주가를 움직인 핵심 호재와 악재, 뉴스 근거와 함께\n")
	b.WriteString("### 3. 단기 매매 관점\n- 진입 구간, 손절 기준, 목표 구간\n")
	if question != "" {
		fmt.Fprintf(&b, "\n[추가 질문]\n%s\n", question)
	}

	s.logger.Debug().
		Str("code", c.Entry.Identifier).
		Int("news_items", len(digest.Items)).
		Str("market_cap", marketCap).
		Msg("First-turn prompt assembled")

	return Prompt{System: s.config.LLM.SystemPrompt, Text: b.String(), Digest: digest}
}

func (s *Service) followUp(ctx context.Context, c models.CandidateStock, question string) Prompt {
	digest := s.news.Aggregate(ctx, news.FollowUpSubject(c, question))

	var b strings.Builder
	b.WriteString(question)
	b.WriteString("\n\n[검색된 최신 뉴스]\n")
	writeDigest(&b, digest)

	s.logger.Debug().
		Str("code", c.Entry.Identifier).
		Int("news_items", len(digest.Items)).
		Msg("Follow-up prompt assembled")

	return Prompt{System: s.config.LLM.SystemPrompt, Text: b.String(), Digest: digest}
}

// MarketBriefing builds the one-shot market briefing from the market-cap
// leaders (ordered by capitalisation) and market-wide news.
func (s *Service) MarketBriefing(ctx context.Context, leaders []models.RankedEntry) Prompt {
	digest := s.news.Aggregate(ctx, news.MarketSubject(s.config.News.MarketQuery))

	top := leaders
	if len(top) > briefingTopN {
		top = top[:briefingTopN]
	}
	gainers, losers := Movers(leaders, briefingMovers)

	var b strings.Builder
	fmt.Fprintf(&b, "[시가총액 상위 %d 종목]\n", len(top))
	writeTable(&b, top)
	fmt.Fprintf(&b, "\n[시가총액 상위 %d 종목 중 상승률 상위 %d]\n", len(leaders), len(gainers))
	writeTable(&b, gainers)
	fmt.Fprintf(&b, "\n[시가총액 상위 %d 종목 중 하락률 상위 %d]\n", len(leaders), len(losers))
	writeTable(&b, losers)
	b.WriteString("\n[주요 시황 뉴스]\n")
	writeDigest(&b, digest)
	b.WriteString("\n작성 양식:\n## 오늘의 증시 요약 (한줄평)\n## 주도 테마 및 섹터 분석\n## 주요 이슈 체크\n## 투자자 대응 전략\n")

	s.logger.Debug().
		Int("leaders", len(leaders)).
		Int("news_items", len(digest.Items)).
		Msg("Market briefing prompt assembled")

	return Prompt{System: s.config.LLM.BriefingPrompt, Text: b.String(), Digest: digest}
}

// Movers returns the n largest gainers and the n largest losers by percent change.
func Movers(entries []models.RankedEntry, n int) (gainers, losers []models.RankedEntry) {
	sorted := make([]models.RankedEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PercentChange > sorted[j].PercentChange
	})

	for _, e := range sorted {
		if len(gainers) == n || e.PercentChange <= 0 {
			break
		}
		gainers = append(gainers, e)
	}
	for i := len(sorted) - 1; i >= 0; i-- {
		if len(losers) == n || sorted[i].PercentChange >= 0 {
			break
		}
		losers = append(losers, sorted[i])
	}
	return gainers, losers
}
