// Package common provides shared utilities and default configuration.
package common

import "github.com/ternarybob/confluo/internal/models"

const naverFinance = "https://finance.naver.com"

// naverMarkets maps market segments to the provider's sosok parameter.
var naverMarkets = map[string]string{
	string(models.MarketPrimary):   "0",
	string(models.MarketSecondary): "1",
}

// DefaultSources returns the listing descriptors for the default provider.
// Every selector here can be overridden in [sources.*] of the config file.
func DefaultSources() SourcesConfig {
	return SourcesConfig{
		Rise: models.SourceDescriptor{
			Name:         "rise",
			URLTemplate:  naverFinance + "/sise/sise_rise.naver?sosok={market}&page={page}",
			MarketParams: naverMarkets,
			FirstPage:    1,
			LastPage:     3,
			Limit:        300,
			RowSelector:  "table.type_2 tr",
			LinkSelector: "a.tltle",
			Columns:      models.ColumnMap{Name: 1, Price: 2, Change: 4, Volume: 5, MarketCap: -1},
			CodePattern:  `code=([A-Za-z0-9]+)`,
			Encoding:     "auto",
		},
		Volume: models.SourceDescriptor{
			Name:         "volume",
			URLTemplate:  naverFinance + "/sise/sise_quant_high.naver?sosok={market}",
			MarketParams: naverMarkets,
			Limit:        200,
			RowSelector:  "table.type_2 tr",
			LinkSelector: "a.tltle",
			Columns:      models.ColumnMap{Name: 2, Price: 3, Change: 5, Volume: 8, MarketCap: -1},
			CodePattern:  `code=([A-Za-z0-9]+)`,
			Encoding:     "auto",
		},
		Turnover: models.SourceDescriptor{
			Name:         "turnover",
			URLTemplate:  naverFinance + "/sise/sise_quant.naver?sosok={market}",
			MarketParams: naverMarkets,
			Limit:        100,
			RowSelector:  "table.type_2 tr",
			LinkSelector: "a.tltle",
			Columns:      models.ColumnMap{Name: 1, Price: 2, Change: 4, Volume: 5, MarketCap: -1},
			CodePattern:  `code=([A-Za-z0-9]+)`,
			Encoding:     "auto",
		},
		MarketCap: models.SourceDescriptor{
			Name:         "market_cap",
			URLTemplate:  naverFinance + "/sise/sise_market_sum.naver?sosok={market}&page={page}",
			MarketParams: naverMarkets,
			FirstPage:    1,
			LastPage:     3,
			Limit:        150,
			RowSelector:  "table.type_2 tbody tr",
			LinkSelector: "a.tltle",
			Columns:      models.ColumnMap{Name: 1, Price: 2, Change: 4, Volume: 9, MarketCap: 6},
			CodePattern:  `code=([A-Za-z0-9]+)`,
			Encoding:     "auto",
		},
		ThemeList: models.SourceDescriptor{
			Name:         "themes",
			URLTemplate:  naverFinance + "/sise/theme.naver",
			RowSelector:  "#contentarea_left table.type_1 tr",
			LinkSelector: "a",
			Columns:      models.ColumnMap{Name: 0, Price: 0, Change: 1, Volume: -1, MarketCap: -1},
			Encoding:     "auto",
		},
		ThemeMembers: models.SourceDescriptor{
			Name:         "theme_members",
			URLTemplate:  "{link}",
			RowSelector:  "table.type_5 tbody tr",
			LinkSelector: "a",
			Columns:      models.ColumnMap{Name: 0, Price: 2, Change: 4, Volume: -1, MarketCap: -1},
			CodePattern:  `code=([A-Za-z0-9]+)`,
			Encoding:     "auto",
		},
		QuoteURL:     naverFinance + "/item/main.naver?code={code}",
		CapSelector:  "#_market_sum",
		QuoteReferer: naverFinance + "/",
	}
}

// DefaultSystemPrompt frames the stock analysis conversation.
const DefaultSystemPrompt = `당신은 모멘텀 매매에 특화된 한국 주식 애널리스트입니다.
주어진 시세 정보와 뉴스만을 근거로, 추측은 추측이라고 밝히며 간결하게 답하십시오.
첫 분석은 다음 세 부분으로 작성합니다.
1. 테마 모멘텀: 소속 테마와 상승 배경
2. 뉴스 재료: 주가에 영향을 준 호재/악재 요약
3. 단기 매매 관점: 진입, 손절, 목표 구간에 대한 의견`

// DefaultBriefingPrompt frames the market-wide briefing.
const DefaultBriefingPrompt = `당신은 한국 주식시장 시황 브리핑 담당 애널리스트입니다.
시가총액 상위 종목 표, 상승/하락 상위 종목, 시황 뉴스를 바탕으로
오늘 시장의 흐름, 주도 테마, 주목할 종목을 정리하십시오.`
