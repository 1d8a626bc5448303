package qdrant

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"newsrag/internal/domain"
	"newsrag/internal/vectorstore"
)

// Storage is a minimal REST client to Qdrant.
// It assumes cosine distance and recreates the collection on Init.
type Storage struct {
	url        string
	apiKey     string
	collection string
	dimension  int
	client     *http.Client
	log        logrus.FieldLogger
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// pointNamespace seeds the name-based UUIDs used as point IDs.
var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("newsrag/articles"))

func NewStorage(cfg Config, log logrus.FieldLogger) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if cfg.Collection == "" {
		cfg.Collection = "articles"
	}
	return &Storage{
		url:        strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
		log:        log.WithField("component", "qdrant-index"),
	}
}

func (s *Storage) collectionURL() string {
	return fmt.Sprintf("%s/collections/%s", s.url, s.collection)
}

func (s *Storage) Init(dimension int) error {
	if dimension <= 0 {
		return vectorstore.ErrInvalidDimension
	}
	if err := s.do(http.MethodDelete, s.collectionURL(), nil, nil); err != nil && !isNotFound(err) {
		return err
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	if err := s.do(http.MethodPut, s.collectionURL(), body, nil); err != nil {
		return err
	}
	s.dimension = dimension
	return nil
}

func (s *Storage) Dimension() int { return s.dimension }

// PointID derives a stable UUID point ID from a document ID.
func PointID(documentID string, seq int) string {
	if documentID == "" {
		documentID = fmt.Sprintf("#%d", seq)
	}
	return uuid.NewSHA1(pointNamespace, []byte(documentID)).String()
}

func (s *Storage) Upsert(docs []domain.IndexedDocument, vectors [][]float64) error {
	if s.dimension == 0 {
		return vectorstore.ErrNotInitialized
	}
	if err := vectorstore.CheckBatch(docs, vectors, s.dimension); err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}
	points := make([]map[string]any, len(docs))
	for i := range docs {
		points[i] = map[string]any{
			"id":     PointID(docs[i].ID, i),
			"vector": vectors[i],
			"payload": map[string]any{
				"id":       docs[i].ID,
				"text":     docs[i].Text,
				"metadata": docs[i].Metadata,
			},
		}
	}
	body := map[string]any{"points": points}
	return s.do(http.MethodPut, s.collectionURL()+"/points?wait=true", body, nil)
}

func (s *Storage) Search(vector []float64, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = vectorstore.DefaultTopK
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64 `json:"score"`
			Payload struct {
				ID       string            `json:"id"`
				Text     string            `json:"text"`
				Metadata map[string]string `json:"metadata"`
			} `json:"payload"`
		} `json:"result"`
	}
	if err := s.do(http.MethodPost, s.collectionURL()+"/points/search", req, &resp); err != nil {
		return nil, err
	}
	results := make([]domain.SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		results = append(results, domain.SearchResult{
			Document: domain.IndexedDocument{ID: r.Payload.ID, Text: r.Payload.Text, Metadata: r.Payload.Metadata},
			Score:    r.Score,
		})
	}
	return results, nil
}

// Load checks that the collection exists and adopts its vector size.
func (s *Storage) Load() error {
	var resp struct {
		Result struct {
			PointsCount int `json:"points_count"`
			Config      struct {
				Params struct {
					Vectors struct {
						Size int `json:"size"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	if err := s.do(http.MethodGet, s.collectionURL(), nil, &resp); err != nil {
		if isNotFound(err) {
			return vectorstore.ErrNoPersistedIndex
		}
		return err
	}
	size := resp.Result.Config.Params.Vectors.Size
	if size <= 0 {
		return vectorstore.ErrNoPersistedIndex
	}
	s.dimension = size
	s.log.WithField("points", resp.Result.PointsCount).Info("qdrant collection loaded")
	return nil
}

func (s *Storage) Clear() error {
	if err := s.do(http.MethodDelete, s.collectionURL(), nil, nil); err != nil && !isNotFound(err) {
		return err
	}
	s.dimension = 0
	return nil
}

func (s *Storage) Close() error { return nil }

type statusError struct {
	method string
	url    string
	status int
	text   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("qdrant %s %s failed: %d %s", e.method, e.url, e.status, e.text)
}

func isNotFound(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.status == http.StatusNotFound
}

func (s *Storage) do(method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{method: method, url: url, status: resp.StatusCode, text: strings.TrimSpace(string(msg))}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
