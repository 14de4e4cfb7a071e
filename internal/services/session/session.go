// Package session holds the explicit selection context of one chat session.
package session

import (
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/confluo/internal/common"
	"github.com/ternarybob/confluo/internal/interfaces"
	"github.com/ternarybob/confluo/internal/models"
)

// ExchangeStatus is the outcome of one exchange.
type ExchangeStatus string

const (
	ExchangePending   ExchangeStatus = "pending"
	ExchangeCompleted ExchangeStatus = "completed"
	ExchangeFailed    ExchangeStatus = "failed"
)

// Exchange is one user turn with the model's answer.
type Exchange struct {
	Query       models.ModelQuery `json:"query"`
	Question    string            `json:"question"` // the user's own words, without attached context
	Answer      string            `json:"answer,omitempty"`
	Model       string            `json:"model,omitempty"`
	Status      ExchangeStatus    `json:"status"`
	Reason      string            `json:"reason,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

// Session is the selected candidate plus the conversation about it.
// Selecting a different candidate discards the conversation.
type Session struct {
	mu        sync.Mutex
	id        string
	selected  *models.CandidateStock
	exchanges []Exchange
	logger    arbor.ILogger
}

var _ interfaces.ExchangeLog = (*Session)(nil)

// New creates an empty session.
func New(logger arbor.ILogger) *Session {
	return &Session{id: common.NewSessionID(), logger: logger}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Select makes c the current candidate. A different identifier clears the
// history; re-selecting the current candidate is a no-op. Returns true when
// the selection changed.
func (s *Session) Select(c models.CandidateStock) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected != nil && s.selected.Entry.Identifier == c.Entry.Identifier {
		return false
	}

	previous := ""
	if s.selected != nil {
		previous = s.selected.Entry.Identifier
	}
	selected := c
	s.selected = &selected
	s.exchanges = nil

	s.logger.Debug().
		Str("session_id", s.id).
		Str("previous", previous).
		Str("selected", c.Entry.Identifier).
		Msg("Candidate selected, history cleared")
	return true
}

// Selected returns a copy of the current candidate.
func (s *Session) Selected() (models.CandidateStock, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return models.CandidateStock{}, false
	}
	return *s.selected, true
}

// Reset clears the selection and the history.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = nil
	s.exchanges = nil
	s.id = common.NewSessionID()
	s.logger.Debug().Str("session_id", s.id).Msg("Session reset")
}

// IsFirstTurn reports whether no exchange has completed for the selection.
func (s *Session) IsFirstTurn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.exchanges {
		if e.Status == ExchangeCompleted {
			return false
		}
	}
	return true
}

// History flattens completed exchanges into alternating user/assistant turns.
// Failed and pending exchanges are left out.
func (s *Session) History() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := make([]models.Message, 0, len(s.exchanges)*2)
	for _, e := range s.exchanges {
		if e.Status != ExchangeCompleted {
			continue
		}
		history = append(history,
			models.Message{Role: models.RoleUser, Content: e.Query.Prompt},
			models.Message{Role: models.RoleAssistant, Content: e.Answer},
		)
	}
	return history
}

// Exchanges returns a copy of the exchange log.
func (s *Session) Exchanges() []Exchange {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Exchange, len(s.exchanges))
	copy(out, s.exchanges)
	return out
}

// Begin appends a pending exchange for q.
func (s *Session) Begin(q models.ModelQuery, question string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exchanges = append(s.exchanges, Exchange{Query: q, Question: question, Status: ExchangePending})
}

// Complete records the answer of a pending exchange. Closed exchanges and
// exchanges discarded by a new selection are left untouched.
func (s *Session) Complete(queryID, model, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e := s.pending(queryID); e != nil {
		now := time.Now()
		e.Answer = text
		e.Model = model
		e.Status = ExchangeCompleted
		e.CompletedAt = &now
	}
}

// Fail marks a pending exchange as failed. It will not be replayed as history.
func (s *Session) Fail(queryID, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e := s.pending(queryID); e != nil {
		now := time.Now()
		e.Status = ExchangeFailed
		e.Reason = reason
		e.CompletedAt = &now
	}
}

func (s *Session) pending(queryID string) *Exchange {
	for i := range s.exchanges {
		if s.exchanges[i].Query.ID == queryID && s.exchanges[i].Status == ExchangePending {
			return &s.exchanges[i]
		}
	}
	return nil
}
