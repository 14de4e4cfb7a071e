package ranking

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"golang.org/x/text/encoding/korean"

	"github.com/ternarybob/confluo/internal/common"
	"github.com/ternarybob/confluo/internal/models"
)

const malformedRisePage = `<html><body>
<table class="type_2">
<tr><th>N</th><th>종목명</th><th>현재가</th><th>전일비</th><th>등락률</th><th>거래량</th></tr>
<tr><td>1</td><td><a class="tltle" href="/item/main.naver?code=000001">Alpha</a></td><td>12,000</td><td>500</td><td>+4.35%</td><td>1,000</td></tr>
<tr><td>2</td><td>no link here</td><td>9,000</td><td>100</td><td>+1.10%</td><td>10</td></tr>
<tr><td>3</td><td><a class="tltle" href="/item/main.naver?code=000003">Gamma</a></td><td>3,100</td><td>80</td><td>-2.50%</td><td>700</td></tr>
<tr><td>4</td><td><a class="tltle" href="/item/main.naver?code=000004">Delta</a></td><td>N/A</td><td>-</td><td>?</td>
<tr><td>5</td><td><a class="tltle" href="/item/main.naver?code=000005">Epsilon</a></td><td>52,300</td><td>0</td><td>0.00%</td><td>42</td></tr>
<tr><td colspan="6"></td></tr>
</table>
<div><p>unclosed
</body>`

func newTestService(client *http.Client) *Service {
	return NewServiceWithClient(client, common.HTTPConfig{UserAgent: "confluo-test", PageInterval: "0s"}, common.SourcesConfig{}, arbor.NewLogger())
}

func riseDescriptor(baseURL string) models.SourceDescriptor {
	return models.SourceDescriptor{
		Name:         "rise",
		URLTemplate:  baseURL + "/rise?sosok={market}&page={page}",
		Market:       models.MarketPrimary,
		MarketParams: map[string]string{"PRIMARY": "0", "SECONDARY": "1"},
		FirstPage:    1,
		LastPage:     1,
		Limit:        50,
		RowSelector:  "table.type_2 tr",
		LinkSelector: "a.tltle",
		Columns:      models.ColumnMap{Name: 1, Price: 2, Change: 4, Volume: 5, MarketCap: -1},
	}
}

// TestCollect_SkipsMalformedRows verifies well-formed rows survive a page with broken rows
func TestCollect_SkipsMalformedRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, malformedRisePage)
	}))
	defer srv.Close()

	svc := newTestService(srv.Client())
	entries := svc.Collect(context.Background(), riseDescriptor(srv.URL))

	require.Len(t, entries, 3, "Exactly the three well-formed rows should be returned")

	assert.Equal(t, "000001", entries[0].Identifier)
	assert.Equal(t, "Alpha", entries[0].DisplayName)
	assert.Equal(t, 12000.0, entries[0].Price)
	assert.Equal(t, 4.35, entries[0].PercentChange)
	assert.Equal(t, int64(1000), entries[0].Volume)
	assert.Equal(t, models.MarketPrimary, entries[0].Market)

	assert.Equal(t, "000003", entries[1].Identifier)
	assert.Equal(t, -2.5, entries[1].PercentChange)
	assert.Equal(t, "000005", entries[2].Identifier)

	for i, e := range entries {
		assert.Equal(t, i+1, e.Rank, "Ranks should be contiguous over accepted rows")
		assert.Equal(t, "rise", e.Source)
	}
}

// TestCollect_NetworkFailureYieldsEmpty verifies fail-soft behaviour on unreachable and failing sources
func TestCollect_NetworkFailureYieldsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	svc := newTestService(srv.Client())

	entries := svc.Collect(context.Background(), riseDescriptor(srv.URL))
	assert.NotNil(t, entries)
	assert.Empty(t, entries, "HTTP 500 should yield an empty listing")

	closed := httptest.NewServer(http.NotFoundHandler())
	closedURL := closed.URL
	closed.Close()

	entries = svc.Collect(context.Background(), riseDescriptor(closedURL))
	assert.Empty(t, entries, "Connection failure should yield an empty listing")
}

// TestCollect_PaginatesAndTruncates verifies pages are concatenated in order and cut at the limit
func TestCollect_PaginatesAndTruncates(t *testing.T) {
	var (
		mu        sync.Mutex
		requested []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		mu.Lock()
		requested = append(requested, r.URL.Query().Get("sosok")+":"+page)
		mu.Unlock()
		var rows strings.Builder
		for i := 0; i < 3; i++ {
			code := fmt.Sprintf("%s%02d", page, i)
			fmt.Fprintf(&rows, `<tr><td>%d</td><td><a class="tltle" href="/item/main.naver?code=%s">S%s</a></td><td>1,000</td><td>10</td><td>+1.00%%</td><td>5</td></tr>`, i+1, code, code)
		}
		fmt.Fprintf(w, `<html><body><table class="type_2">%s</table></body></html>`, rows.String())
	}))
	defer srv.Close()

	desc := riseDescriptor(srv.URL).ForMarket(models.MarketSecondary)
	desc.LastPage = 3
	desc.Limit = 7

	entries := newTestService(srv.Client()).Collect(context.Background(), desc)

	require.Len(t, entries, 7)
	assert.Equal(t, "100", entries[0].Identifier)
	assert.Equal(t, "300", entries[6].Identifier)
	assert.Equal(t, 7, entries[6].Rank)
	assert.Equal(t, models.MarketSecondary, entries[6].Market)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"1:1", "1:2", "1:3"}, requested, "Secondary market parameter should be used on every page")
}

// TestCollect_DecodesCP949 verifies EUC-KR pages are decoded before parsing
func TestCollect_DecodesCP949(t *testing.T) {
	page := `<html><head><meta charset="euc-kr"></head><body><table class="type_2">
<tr><td>1</td><td><a class="tltle" href="/item/main.naver?code=005930">삼성전자</a></td><td>71,000</td><td>상승 1,000</td><td>+1.43%</td><td>100</td></tr>
</table></body></html>`
	encoded, err := korean.EUCKR.NewEncoder().String(page)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=euc-kr")
		fmt.Fprint(w, encoded)
	}))
	defer srv.Close()

	entries := newTestService(srv.Client()).Collect(context.Background(), riseDescriptor(srv.URL))

	require.Len(t, entries, 1)
	assert.Equal(t, "삼성전자", entries[0].DisplayName)
	assert.Equal(t, "005930", entries[0].Identifier)
}

// TestCollect_InvalidDescriptor verifies validation failures yield an empty listing
func TestCollect_InvalidDescriptor(t *testing.T) {
	svc := newTestService(http.DefaultClient)

	desc := riseDescriptor("http://127.0.0.1:1")
	desc.RowSelector = ""

	assert.Empty(t, svc.Collect(context.Background(), desc))
}

// TestCollectThemes verifies theme order, member ranking by change and the theme limit
func TestCollectThemes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/theme", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div id="contentarea_left"><table class="type_1">
<tr><th>테마명</th><th>전일대비</th></tr>
<tr><td class="col_type1"><a href="/detail?no=1">Batteries</a></td><td>+5.00%</td></tr>
<tr><td class="col_type1"><a href="/detail?no=2">Robots</a></td><td>+3.00%</td></tr>
<tr><td class="col_type1"><a href="/detail?no=3">Ships</a></td><td>+1.00%</td></tr>
</table></div></body></html>`)
	})
	mux.HandleFunc("/detail", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("no") == "2" {
			http.Error(w, "gone", http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `<html><body><table class="type_5"><tbody>
<tr><td><div class="name_area"><a href="/item/main.naver?code=AAA">AAA</a></div></td><td></td><td>1,000</td><td>10</td><td>+1.00%</td></tr>
<tr><td><div class="name_area"><a href="/item/main.naver?code=BBB">BBB</a></div></td><td></td><td>2,000</td><td>10</td><td>+9.00%</td></tr>
<tr><td><div class="name_area"><a href="/item/main.naver?code=CCC">CCC</a></div></td><td></td><td>3,000</td><td>10</td><td>-3.00%</td></tr>
</tbody></table></body></html>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	sources := common.DefaultSources()
	themes := sources.ThemeList
	themes.URLTemplate = srv.URL + "/theme"

	groups := newTestService(srv.Client()).CollectThemes(context.Background(), themes, sources.ThemeMembers, 2)

	require.Len(t, groups, 2, "Theme list should be cut at maxThemes")
	assert.Equal(t, "Batteries", groups[0].Name)
	assert.Equal(t, 1, groups[0].Rank)
	assert.Equal(t, srv.URL+"/detail?no=1", groups[0].Link)

	require.Len(t, groups[0].Members, 3)
	assert.Equal(t, "BBB", groups[0].Members[0].Identifier, "Members should be ordered by percent change")
	assert.Equal(t, 1, groups[0].Members[0].Rank)
	assert.Equal(t, "AAA", groups[0].Members[1].Identifier)
	assert.Equal(t, "CCC", groups[0].Members[2].Identifier)
	assert.Equal(t, 3, groups[0].Members[2].Rank)

	assert.Equal(t, "Robots", groups[1].Name)
	assert.Empty(t, groups[1].Members, "A failed theme page should leave an empty group")
}

// TestMarketCap verifies the quote page scrape and its empty fallback
func TestMarketCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("code") != "005930" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `<html><body><em id="_market_sum">
			4,238,000
		</em></body></html>`)
	}))
	defer srv.Close()

	svc := NewServiceWithClient(srv.Client(), common.HTTPConfig{PageInterval: "0s"}, common.SourcesConfig{
		QuoteURL:    srv.URL + "/item?code={code}",
		CapSelector: "#_market_sum",
	}, arbor.NewLogger())

	assert.Equal(t, "4,238,000", svc.MarketCap(context.Background(), "005930"))
	assert.Equal(t, "", svc.MarketCap(context.Background(), "999999"))
}
