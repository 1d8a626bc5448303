package domain

import "strings"

const (
	UnknownSource = "Unknown Source"
	UnknownAuthor = "Unknown Author"
)

// Article is a normalized news record. URL doubles as its identifier.
type Article struct {
	Title       string `json:"title"`
	Source      string `json:"source"`
	Author      string `json:"author"`
	Description string `json:"description"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
	URLToImage  string `json:"urlToImage,omitempty"`

	// Text is only set on articles returned by a similarity query.
	Text string `json:"text,omitempty"`
}

// Metadata keys shared by every index backend.
const (
	MetaTitle       = "title"
	MetaSource      = "source"
	MetaAuthor      = "author"
	MetaDescription = "description"
	MetaContent     = "content"
	MetaURL         = "url"
	MetaPublishedAt = "publishedAt"
	MetaURLToImage  = "urlToImage"
)

// ToIndexedDocument builds the searchable form of the article.
func (a Article) ToIndexedDocument() IndexedDocument {
	return IndexedDocument{
		ID:   a.URL,
		Text: strings.Join([]string{a.Title, a.Description, a.Content}, " "),
		Metadata: map[string]string{
			MetaTitle:       a.Title,
			MetaSource:      a.Source,
			MetaAuthor:      a.Author,
			MetaDescription: a.Description,
			MetaContent:     a.Content,
			MetaURL:         a.URL,
			MetaPublishedAt: a.PublishedAt,
			MetaURLToImage:  a.URLToImage,
		},
	}
}

// ArticleFromDocument rehydrates an Article from stored metadata plus the stored text.
func ArticleFromDocument(doc IndexedDocument) Article {
	m := doc.Metadata
	a := Article{
		Title:       m[MetaTitle],
		Source:      m[MetaSource],
		Author:      m[MetaAuthor],
		Description: m[MetaDescription],
		Content:     m[MetaContent],
		URL:         m[MetaURL],
		PublishedAt: m[MetaPublishedAt],
		URLToImage:  m[MetaURLToImage],
		Text:        doc.Text,
	}
	if a.URL == "" {
		a.URL = doc.ID
	}
	return a
}
