package app

import (
	"context"
	"errors"
	"iter"
	"strings"

	"github.com/ternarybob/confluo/internal/models"
)

// Ask runs the next turn about the selected candidate. The first turn is the
// full analysis; later turns answer the question with fresh news attached.
// Failures are reported as an error chunk, never returned.
func (a *App) Ask(ctx context.Context, question string) iter.Seq[models.Chunk] {
	return func(yield func(models.Chunk) bool) {
		if err := a.modelsAvailable(); err != nil {
			yield(errorChunk("model features unavailable: " + err.Error()))
			return
		}

		prompt, err := a.Analyst.StockAnalysis(ctx, a.Session, question)
		if err != nil {
			yield(errorChunk("error: " + err.Error()))
			return
		}

		q := a.Gateway.NewQuery(prompt.System, a.Session.History(), prompt.Text)
		a.Session.Begin(q, question)

		for chunk := range a.Gateway.Stream(ctx, q, a.Session) {
			if !yield(chunk) {
				return
			}
		}
	}
}

// Brief streams the market briefing. It is one-shot and leaves the session untouched.
func (a *App) Brief(ctx context.Context) iter.Seq[models.Chunk] {
	return func(yield func(models.Chunk) bool) {
		if err := a.modelsAvailable(); err != nil {
			yield(errorChunk("model features unavailable: " + err.Error()))
			return
		}

		leaders := a.collect(ctx, a.Config.Sources.MarketCap.ForMarket(models.MarketPrimary))
		prompt := a.Analyst.MarketBriefing(ctx, leaders)
		q := a.Gateway.NewQuery(prompt.System, nil, prompt.Text)

		for chunk := range a.Gateway.Stream(ctx, q, nil) {
			if !yield(chunk) {
				return
			}
		}
	}
}

// Refresh clears every cached result, the last screen and the session.
func (a *App) Refresh(ctx context.Context) error {
	if err := a.Cache.Clear(ctx); err != nil {
		return err
	}
	a.mu.Lock()
	a.last = nil
	a.mu.Unlock()
	a.Session.Reset()

	a.Logger.Info().Msg("Cache and session reset")
	return nil
}

// modelsAvailable fails only when no model of the configured chain has a
// usable provider, so news and quote lookups are skipped for a turn that
// cannot be answered.
func (a *App) modelsAvailable() error {
	if a.Providers == nil {
		return nil
	}
	chain := append([]string{a.Config.LLM.DefaultModel}, a.Config.LLM.Fallbacks...)
	var errs []error
	for _, model := range chain {
		if strings.TrimSpace(model) == "" {
			continue
		}
		err := a.Providers.Available(model)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return errors.New("no model configured")
	}
	return errs[0]
}

func errorChunk(text string) models.Chunk {
	return models.Chunk{Kind: models.ChunkError, Text: text}
}
