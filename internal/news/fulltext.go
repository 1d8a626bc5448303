package news

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// truncatedRe matches the "[+1234 chars]" marker the provider appends to clipped content.
var truncatedRe = regexp.MustCompile(`\s*\[\+\d+ chars\]\s*$`)

// IsTruncated reports whether content was clipped upstream.
func IsTruncated(content string) bool {
	return truncatedRe.MatchString(content)
}

// FullTextFetcher downloads an article page and extracts its paragraph text.
type FullTextFetcher struct {
	client   *http.Client
	minChars int
}

// NewFullTextFetcher wires an HTTP client; a nil client gets a 20s timeout.
func NewFullTextFetcher(client *http.Client) *FullTextFetcher {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &FullTextFetcher{client: client, minChars: 200}
}

// Fetch returns the concatenated text of the page's <p> elements, preferring
// those inside <article> when the page has one.
func (f *FullTextFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "newsrag/1.0")
	req.Header.Set("Accept", "text/html")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("page returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse page: %w", err)
	}

	scope := doc.Find("article").First()
	if scope.Length() == 0 {
		scope = doc.Find("body")
	}
	var parts []string
	scope.Find("p").Each(func(_ int, p *goquery.Selection) {
		text := strings.Join(strings.Fields(p.Text()), " ")
		if text != "" {
			parts = append(parts, text)
		}
	})
	text := strings.Join(parts, "\n\n")
	if len(text) < f.minChars {
		return "", fmt.Errorf("page text too short (%d chars)", len(text))
	}
	return text, nil
}
