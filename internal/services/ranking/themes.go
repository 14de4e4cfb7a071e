package ranking

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/confluo/internal/models"
)

type themeLink struct {
	name string
	link string
}

// CollectThemes reads the theme list, keeps the first maxThemes themes and fetches
// each theme's members ordered by percent change. A theme whose page fails has no members.
func (s *Service) CollectThemes(ctx context.Context, themes, members models.SourceDescriptor, maxThemes int) []models.ThemeGroup {
	if err := s.validate.Struct(themes); err != nil {
		s.logger.Warn().Err(err).Str("source", themes.Name).Msg("Invalid theme descriptor")
		return []models.ThemeGroup{}
	}

	doc, err := s.fetchDocument(ctx, themes.PageURL(1), themes.Referer, themes.Encoding)
	if err != nil {
		s.logFetchFailure(err, themes.Name, 1)
		return []models.ThemeGroup{}
	}

	links := parseThemeLinks(doc, themes, maxThemes)
	groups := make([]models.ThemeGroup, 0, len(links))
	total := 0
	for i, t := range links {
		if ctx.Err() != nil {
			break
		}
		group := models.ThemeGroup{
			Name:    t.name,
			Rank:    i + 1,
			Link:    t.link,
			Members: s.collectMembers(ctx, members, t),
		}
		total += len(group.Members)
		groups = append(groups, group)
	}

	s.logger.Info().
		Int("themes", len(groups)).
		Int("members", total).
		Msg("Collected theme universe")

	return groups
}

func (s *Service) collectMembers(ctx context.Context, desc models.SourceDescriptor, t themeLink) []models.RankedEntry {
	pageURL := strings.ReplaceAll(desc.URLTemplate, "{link}", t.link)
	doc, err := s.fetchDocument(ctx, pageURL, desc.Referer, desc.Encoding)
	if err != nil {
		s.logFetchFailure(err, "theme:"+t.name, 1)
		return []models.RankedEntry{}
	}

	entries, skipped := parseRows(doc, desc, s.codePattern(desc.CodePattern), 0)
	for i := range entries {
		entries[i].Source = "theme"
	}
	sortByChange(entries)

	s.logger.Trace().
		Str("theme", t.name).
		Int("members", len(entries)).
		Int("skipped_rows", skipped).
		Msg("Collected theme members")

	return entries
}

// parseThemeLinks extracts theme names and absolute detail links in page order.
func parseThemeLinks(doc *goquery.Document, desc models.SourceDescriptor, maxThemes int) []themeLink {
	links := make([]themeLink, 0)
	seen := make(map[string]bool)

	doc.Find(desc.RowSelector).EachWithBreak(func(_ int, row *goquery.Selection) bool {
		if maxThemes > 0 && len(links) >= maxThemes {
			return false
		}
		cells := row.Find("td")
		if cells.Length() <= desc.Columns.Name {
			return true
		}
		a := cells.Eq(desc.Columns.Name).Find(linkSelector(desc)).First()
		name := cleanText(a.Text())
		href, ok := a.Attr("href")
		if name == "" || !ok || href == "" {
			return true
		}
		link := href
		if doc.Url != nil {
			if u, err := doc.Url.Parse(href); err == nil {
				link = u.String()
			}
		}
		if seen[link] {
			return true
		}
		seen[link] = true
		links = append(links, themeLink{name: name, link: link})
		return true
	})

	return links
}
