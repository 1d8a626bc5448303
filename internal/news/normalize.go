package news

import "newsrag/internal/domain"

// Normalize maps raw provider records onto domain.Article. Missing or null
// fields degrade to defaults; it never fails.
func Normalize(raw []RawArticle) []domain.Article {
	out := make([]domain.Article, 0, len(raw))
	for _, r := range raw {
		source := domain.UnknownSource
		if r.Source != nil && r.Source.Name != nil {
			source = *r.Source.Name
		}
		out = append(out, domain.Article{
			Title:       deref(r.Title, ""),
			Source:      source,
			Author:      deref(r.Author, domain.UnknownAuthor),
			Description: deref(r.Description, ""),
			Content:     deref(r.Content, ""),
			URL:         deref(r.URL, ""),
			PublishedAt: deref(r.PublishedAt, ""),
			URLToImage:  deref(r.URLToImage, ""),
		})
	}
	return out
}

func deref(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
