package news

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const dateLayout = "2006-01-02"

// Query describes one search against the "everything" endpoint.
// Zero fields fall back to the defaults applied by Fetch.
type Query struct {
	Q        string
	Language string
	SortBy   string
	PageSize int
	Page     int
	DaysBack int
}

// RawSource is the provider's nested source object.
type RawSource struct {
	ID   *string `json:"id"`
	Name *string `json:"name"`
}

// RawArticle is one article exactly as the provider returns it. Pointer fields
// distinguish a missing or null value from an empty string.
type RawArticle struct {
	Source      *RawSource `json:"source"`
	Author      *string    `json:"author"`
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	URL         *string    `json:"url"`
	URLToImage  *string    `json:"urlToImage"`
	PublishedAt *string    `json:"publishedAt"`
	Content     *string    `json:"content"`
}

// Response is the decoded body of a search call.
type Response struct {
	Status       string       `json:"status"`
	TotalResults int          `json:"totalResults"`
	Articles     []RawArticle `json:"articles"`
	Code         string       `json:"code,omitempty"`
	Message      string       `json:"message,omitempty"`
}

// OK reports whether the provider accepted the request.
func (r *Response) OK() bool { return r.Status == "ok" }

// Config configures the search client.
type Config struct {
	BaseURL  string
	APIKey   string
	SortBy   string
	DaysBack int
	Timeout  time.Duration
}

// Client is a NewsAPI-compatible search client.
type Client struct {
	baseURL  string
	apiKey   string
	sortBy   string
	daysBack int
	http     *http.Client
	now      func() time.Time
	log      logrus.FieldLogger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the transport client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithClock replaces time.Now when computing the date window.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient validates the configuration and builds a client.
func NewClient(cfg Config, log logrus.FieldLogger, opts ...Option) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("news api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://newsapi.org/v2"
	}
	if cfg.SortBy == "" {
		cfg.SortBy = "publishedAt"
	}
	if cfg.DaysBack <= 0 {
		cfg.DaysBack = 7
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	c := &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		sortBy:   cfg.SortBy,
		daysBack: cfg.DaysBack,
		http:     &http.Client{Timeout: t},
		now:      time.Now,
		log:      log.WithField("component", "news"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Fetch issues one search request for the trailing window of q.DaysBack days.
// Any non-2xx status is returned as an error; nothing is retried.
func (c *Client) Fetch(ctx context.Context, q Query) (*Response, error) {
	q = c.withDefaults(q)
	end := c.now()
	start := end.AddDate(0, 0, -q.DaysBack)

	params := url.Values{}
	params.Set("q", q.Q)
	params.Set("language", q.Language)
	params.Set("sortBy", q.SortBy)
	params.Set("pageSize", strconv.Itoa(q.PageSize))
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("from", start.Format(dateLayout))
	params.Set("to", end.Format(dateLayout))
	params.Set("apiKey", c.apiKey)

	endpoint := c.baseURL + "/everything?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.log.WithFields(logrus.Fields{
		"query":     q.Q,
		"language":  q.Language,
		"page_size": q.PageSize,
		"from":      start.Format(dateLayout),
	}).Debug("fetching articles")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request articles: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp)
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	c.log.WithFields(logrus.Fields{
		"status":   out.Status,
		"articles": len(out.Articles),
	}).Debug("articles fetched")
	return &out, nil
}

func (c *Client) withDefaults(q Query) Query {
	if q.Language == "" {
		q.Language = "en"
	}
	if q.SortBy == "" {
		q.SortBy = c.sortBy
	}
	if q.PageSize <= 0 {
		q.PageSize = 10
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.DaysBack <= 0 {
		q.DaysBack = c.daysBack
	}
	return q
}

func statusError(resp *http.Response) error {
	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var body Response
	if err := json.Unmarshal(payload, &body); err == nil && body.Message != "" {
		return fmt.Errorf("news api error %s: %s", resp.Status, body.Message)
	}
	return fmt.Errorf("news api error %s", resp.Status)
}
