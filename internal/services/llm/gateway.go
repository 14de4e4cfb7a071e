package llm

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/confluo/internal/common"
	"github.com/ternarybob/confluo/internal/interfaces"
	"github.com/ternarybob/confluo/internal/models"
)

// State is a gateway turn's position in its lifecycle.
type State string

const (
	StateIdle      State = "idle"
	StateSending   State = "sending"
	StateStreaming State = "streaming"
	StateDone      State = "done"
	StateError     State = "error"
)

// Gateway streams model output for one query at a time, switching to the
// next fallback model only when the current one reports a quota failure.
// Failures never escape as errors: every terminal path yields a text chunk.
type Gateway struct {
	invoker       interfaces.ModelInvoker
	config        common.LLMConfig
	fallbackDelay time.Duration
	logger        arbor.ILogger
}

// NewGateway creates a gateway over the given invoker.
func NewGateway(invoker interfaces.ModelInvoker, config common.LLMConfig, logger arbor.ILogger) *Gateway {
	return &Gateway{
		invoker:       invoker,
		config:        config,
		fallbackDelay: common.ParseDuration(config.FallbackDelay, time.Second),
		logger:        logger,
	}
}

// NewQuery builds a query for the configured model chain.
func (g *Gateway) NewQuery(system string, history []models.Message, prompt string) models.ModelQuery {
	h := make([]models.Message, len(history))
	copy(h, history)
	fallbacks := make([]string, len(g.config.Fallbacks))
	copy(fallbacks, g.config.Fallbacks)
	return models.ModelQuery{
		ID:             common.NewQueryID(),
		SystemContext:  system,
		History:        h,
		Prompt:         prompt,
		TargetModel:    g.config.DefaultModel,
		FallbackModels: fallbacks,
		CreatedAt:      time.Now(),
	}
}

// turn carries the state of one Stream invocation.
type turn struct {
	query models.ModelQuery
	state State
	model string
}

// Stream runs the query and yields its chunks. The sequence is lazy: nothing
// is sent until it is ranged over, and every range restarts the turn.
// On success the assembled text is recorded with log.Complete; on a terminal
// failure the exchange is recorded with log.Fail.
func (g *Gateway) Stream(ctx context.Context, q models.ModelQuery, log interfaces.ExchangeLog) iter.Seq[models.Chunk] {
	if log == nil {
		log = noopLog{}
	}
	return func(yield func(models.Chunk) bool) {
		t := &turn{query: q, state: StateIdle}

		chain := q.Chain()
		if len(chain) == 0 && g.config.DefaultModel != "" {
			chain = []string{g.config.DefaultModel}
		}
		if len(chain) == 0 {
			g.terminate(t, log, yield, "error: no model configured")
			return
		}

		req := &interfaces.ModelRequest{
			SystemInstruction: q.SystemContext,
			Messages:          q.Messages(),
			Temperature:       g.config.Temperature,
			MaxTokens:         g.config.MaxTokens,
		}

		for i, model := range chain {
			t.model = model
			g.transition(t, StateSending)

			text, stopped, err := g.attempt(ctx, t, req, yield)
			if stopped {
				log.Fail(q.ID, "stream abandoned by consumer")
				return
			}
			if err == nil && strings.TrimSpace(text) == "" {
				err = fmt.Errorf("%w: empty completion from %s", models.ErrOtherModel, model)
			}
			if err == nil {
				g.transition(t, StateDone)
				log.Complete(q.ID, model, text)
				return
			}

			if errors.Is(err, models.ErrCredentialMissing) {
				g.terminate(t, log, yield, "model features unavailable: "+err.Error())
				return
			}

			kind := Classify(err)
			g.logger.Warn().
				Str("query_id", q.ID).
				Str("model", model).
				Str("kind", kind.Error()).
				Err(err).
				Msg("Model attempt failed")

			if !errors.Is(kind, models.ErrQuotaExceeded) {
				g.terminate(t, log, yield, "error: "+err.Error())
				return
			}
			if i == len(chain)-1 {
				g.terminate(t, log, yield, fmt.Sprintf("all models are quota-exhausted (tried: %s)", strings.Join(chain, ", ")))
				return
			}

			next := chain[i+1]
			notice := models.Chunk{
				Kind:  models.ChunkNotice,
				Text:  fmt.Sprintf("%s quota exceeded, switching to %s", model, next),
				Model: model,
			}
			if !yield(notice) {
				log.Fail(q.ID, "stream abandoned by consumer")
				return
			}
			if err := sleep(ctx, g.fallbackDelay); err != nil {
				g.terminate(t, log, yield, "error: "+err.Error())
				return
			}
		}
	}
}

// attempt streams one model. Fragments are yielded as they arrive; the
// returned text is what this model produced. A panic in the provider is
// reported as an error.
func (g *Gateway) attempt(ctx context.Context, t *turn, req *interfaces.ModelRequest, yield func(models.Chunk) bool) (text string, stopped bool, err error) {
	var sb strings.Builder
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", models.ErrOtherModel, common.PanicError(g.logger, "llm-"+t.model, r))
			text = sb.String()
		}
	}()

	for fragment, ferr := range g.invoker.Stream(ctx, t.model, req) {
		if ferr != nil {
			return sb.String(), false, ferr
		}
		if fragment == "" {
			continue
		}
		if t.state != StateStreaming {
			g.transition(t, StateStreaming)
		}
		sb.WriteString(fragment)
		if !yield(models.Chunk{Kind: models.ChunkText, Text: fragment, Model: t.model}) {
			return sb.String(), true, nil
		}
	}
	if err := ctx.Err(); err != nil {
		return sb.String(), false, err
	}
	return sb.String(), false, nil
}

func (g *Gateway) terminate(t *turn, log interfaces.ExchangeLog, yield func(models.Chunk) bool, message string) {
	g.transition(t, StateError)
	log.Fail(t.query.ID, message)
	yield(models.Chunk{Kind: models.ChunkError, Text: message, Model: t.model})
}

func (g *Gateway) transition(t *turn, to State) {
	g.logger.Debug().
		Str("query_id", t.query.ID).
		Str("from", string(t.state)).
		Str("to", string(to)).
		Str("model", t.model).
		Msg("Gateway state transition")
	t.state = to
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type noopLog struct{}

func (noopLog) Complete(string, string, string) {}
func (noopLog) Fail(string, string)             {}
