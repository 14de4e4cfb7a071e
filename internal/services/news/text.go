package news

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/confluo/internal/models"
)

const ellipsis = "..."

// StripHTML returns the visible text of an HTML fragment with whitespace collapsed.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return collapseSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return collapseSpace(s)
	}
	return collapseSpace(doc.Text())
}

// Truncate bounds s to max runes, appending "..." when it was cut.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max])) + ellipsis
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Canonicalize normalizes a link for dedup: lowercase scheme and host, no
// fragment, no utm_* parameters, no trailing slash. Unparsable links are
// returned trimmed.
func Canonicalize(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""

	if u.RawQuery != "" {
		q := u.Query()
		for k := range q {
			if strings.HasPrefix(strings.ToLower(k), "utm_") {
				q.Del(k)
			}
		}
		u.RawQuery = q.Encode()
	}

	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawPath = strings.TrimSuffix(u.RawPath, "/")
	return u.String()
}

// Dedup drops items whose canonical link (or title, for linkless items)
// was already seen. The first occurrence wins and order is preserved.
// Dedup(Dedup(x)) == Dedup(x).
func Dedup(items []models.NewsItem) []models.NewsItem {
	out := make([]models.NewsItem, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		key := dedupKey(item)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}

func dedupKey(item models.NewsItem) string {
	switch {
	case item.CanonicalLink != "":
		return "link:" + item.CanonicalLink
	case item.Link != "":
		return "link:" + Canonicalize(item.Link)
	}
	if title := strings.ToLower(collapseSpace(item.Title)); title != "" {
		return "title:" + title
	}
	return ""
}
