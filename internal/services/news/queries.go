package news

import (
	"strings"

	"github.com/ternarybob/confluo/internal/models"
)

// StockSubject builds the first-turn subject for a candidate:
// "{name} {theme} {qualifiers...}".
func StockSubject(c models.CandidateStock, qualifiers []string) models.NewsSubject {
	q := make([]string, 0, len(qualifiers)+1)
	if c.Theme != "" {
		q = append(q, c.Theme)
	}
	q = append(q, qualifiers...)
	return models.NewsSubject{
		Code:       c.Entry.Identifier,
		Name:       c.Entry.DisplayName,
		Qualifiers: q,
	}
}

// FollowUpSubject builds a question-scoped subject: "{name} {question}".
func FollowUpSubject(c models.CandidateStock, question string) models.NewsSubject {
	subject := models.NewsSubject{
		Code: c.Entry.Identifier,
		Name: c.Entry.DisplayName,
	}
	if q := strings.TrimSpace(question); q != "" {
		subject.Qualifiers = []string{q}
	}
	return subject
}

// MarketSubject builds the market-wide subject from a free-text query.
func MarketSubject(query string) models.NewsSubject {
	return models.NewsSubject{Name: strings.TrimSpace(query), MarketWide: true}
}
