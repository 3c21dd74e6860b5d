// Package news talks to a NewsAPI v2 compatible provider and groups the
// returned articles by source.
package news

import (
	"time"
)

type Article struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	ImageURL    string    `json:"image_url"`
	PublishedAt time.Time `json:"published_at"`
	SourceID    string    `json:"source_id"`
	SourceName  string    `json:"source_name"`
	Author      string    `json:"author"`
	Content     string    `json:"content"`
}

// ProviderSource is one publisher in the provider's source catalog.
type ProviderSource struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Category    string `json:"category"`
	Language    string `json:"language"`
	Country     string `json:"country"`
}

// Page is one page of provider results.
type Page struct {
	TotalResults int
	Articles     []Article
}

// wire formats

type apiResponse struct {
	Status       string           `json:"status"`
	Code         string           `json:"code"`
	Message      string           `json:"message"`
	TotalResults int              `json:"totalResults"`
	Articles     []apiArticle     `json:"articles"`
	Sources      []ProviderSource `json:"sources"`
}

type apiArticle struct {
	Source struct {
		ID   *string `json:"id"`
		Name string  `json:"name"`
	} `json:"source"`
	Author      *string `json:"author"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	URL         string  `json:"url"`
	URLToImage  *string `json:"urlToImage"`
	PublishedAt string  `json:"publishedAt"`
	Content     *string `json:"content"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (a apiArticle) toArticle() Article {
	article := Article{
		Title:       a.Title,
		Description: deref(a.Description),
		URL:         a.URL,
		ImageURL:    deref(a.URLToImage),
		SourceID:    deref(a.Source.ID),
		SourceName:  a.Source.Name,
		Author:      deref(a.Author),
		Content:     deref(a.Content),
	}
	if t, err := time.Parse(time.RFC3339, a.PublishedAt); err == nil {
		article.PublishedAt = t
	}
	return article
}
