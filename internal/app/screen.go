package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ternarybob/confluo/internal/models"
	"github.com/ternarybob/confluo/internal/services/screener"
)

// leaderSources returns the descriptors of the required leader lists in configured order.
func (a *App) leaderSources() ([]models.SourceDescriptor, error) {
	sources := a.Config.Sources
	byName := map[string]models.SourceDescriptor{
		"rise":       sources.Rise,
		"volume":     sources.Volume,
		"turnover":   sources.Turnover,
		"market_cap": sources.MarketCap,
	}

	descs := make([]models.SourceDescriptor, 0, len(a.Config.Screen.Leaders))
	for _, name := range a.Config.Screen.Leaders {
		desc, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown leader list %q", name)
		}
		descs = append(descs, desc)
	}
	return descs, nil
}

// Screen runs one analysis cycle: the theme universe and every required
// leader list are collected concurrently, then intersected.
// Source failures only shrink the result; the error is reserved for
// configuration problems and cancellation.
func (a *App) Screen(ctx context.Context) (*models.ScreenResult, error) {
	descs, err := a.leaderSources()
	if err != nil {
		return nil, err
	}
	markets := a.Config.Screen.ParsedMarkets()
	start := time.Now()

	var themes []models.ThemeGroup
	perMarket := make([][][]models.RankedEntry, len(descs))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		themes = a.collectThemes(gctx)
		return nil
	})
	for i, desc := range descs {
		perMarket[i] = make([][]models.RankedEntry, len(markets))
		for j, market := range markets {
			g.Go(func() error {
				perMarket[i][j] = a.collect(gctx, desc.ForMarket(market))
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	leaders := make([]models.LeaderList, len(descs))
	for i, desc := range descs {
		leaders[i] = screener.MergeLeaders(desc.Name, perMarket[i]...)
	}

	candidates := a.Engine.Intersect(themes, leaders...)
	screener.SortByTheme(candidates)

	result := &models.ScreenResult{
		Themes:      themes,
		Leaders:     leaders,
		Candidates:  candidates,
		Stages:      screener.Funnel(themes, leaders, candidates),
		CollectedAt: time.Now(),
	}

	a.mu.Lock()
	a.last = result
	a.mu.Unlock()

	a.Logger.Info().
		Int("themes", len(themes)).
		Int("leader_lists", len(leaders)).
		Int("candidates", len(candidates)).
		Dur("elapsed", time.Since(start)).
		Msg("Screening cycle complete")

	return result, nil
}

// Last returns the most recent screening result, or nil before the first cycle.
func (a *App) Last() *models.ScreenResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

// Select makes the candidate with the given code the session subject.
// Choosing a different candidate clears the conversation history.
func (a *App) Select(code string) (models.CandidateStock, error) {
	c, ok := a.Last().Candidate(code)
	if !ok {
		return models.CandidateStock{}, fmt.Errorf("%w: %s", models.ErrCandidateNotFound, code)
	}
	if a.Session.Select(c) {
		a.Logger.Info().
			Str("code", c.Code()).
			Str("name", c.Entry.DisplayName).
			Str("theme", c.Theme).
			Msg("Candidate selected")
	}
	return c, nil
}

// SelectIndex selects the candidate at a 1-based position of the last result.
func (a *App) SelectIndex(n int) (models.CandidateStock, error) {
	last := a.Last()
	if last == nil || n < 1 || n > len(last.Candidates) {
		return models.CandidateStock{}, fmt.Errorf("%w: no candidate #%d", models.ErrCandidateNotFound, n)
	}
	return a.Select(last.Candidates[n-1].Code())
}
