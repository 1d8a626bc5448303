// Package sqlite stores documents and JSON-encoded embeddings in a single
// SQLite file and searches them by brute force.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/sirupsen/logrus"

	"newsrag/internal/domain"
	"newsrag/internal/vectorstore"
)

const FileName = "vectors.db"

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL,
	text TEXT NOT NULL,
	metadata TEXT NOT NULL,
	embedding BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

type Storage struct {
	mu        sync.RWMutex
	path      string
	db        *sql.DB
	dimension int
	log       logrus.FieldLogger
}

func NewStorage(dir string, log logrus.FieldLogger) *Storage {
	return &Storage{path: filepath.Join(dir, FileName), log: log.WithField("component", "sqlite-index")}
}

func (s *Storage) open() error {
	if s.db != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	db, err := sql.Open("sqlite3", s.path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return fmt.Errorf("initializing schema: %w", err)
	}
	s.db = db
	return nil
}

func (s *Storage) Init(dimension int) error {
	if dimension <= 0 {
		return vectorstore.ErrInvalidDimension
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.open(); err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := sq.Delete("documents").RunWith(tx).Exec(); err != nil {
		return fmt.Errorf("clearing documents: %w", err)
	}
	_, err = sq.Replace("meta").
		Columns("key", "value").
		Values("dimension", strconv.Itoa(dimension)).
		RunWith(tx).Exec()
	if err != nil {
		return fmt.Errorf("writing dimension: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.dimension = dimension
	return nil
}

func (s *Storage) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension
}

func (s *Storage) Upsert(docs []domain.IndexedDocument, vectors [][]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return vectorstore.ErrNotInitialized
	}
	if err := vectorstore.CheckBatch(docs, vectors, s.dimension); err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}

	insert := sq.Insert("documents").Columns("id", "text", "metadata", "embedding")
	for i := range docs {
		meta, err := json.Marshal(docs[i].Metadata)
		if err != nil {
			return fmt.Errorf("encoding metadata: %w", err)
		}
		emb, err := json.Marshal(vectors[i])
		if err != nil {
			return fmt.Errorf("encoding embedding: %w", err)
		}
		insert = insert.Values(docs[i].ID, docs[i].Text, string(meta), emb)
	}
	if _, err := insert.RunWith(s.db).Exec(); err != nil {
		return fmt.Errorf("inserting documents: %w", err)
	}
	return nil
}

func (s *Storage) Search(vector []float64, topK int) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, nil
	}

	rows, err := sq.Select("id", "text", "metadata", "embedding").
		From("documents").
		OrderBy("seq").
		RunWith(s.db).Query()
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var (
		docs    []domain.IndexedDocument
		vectors [][]float64
	)
	for rows.Next() {
		var (
			doc       domain.IndexedDocument
			meta      string
			embedding []byte
			vec       []float64
		)
		if err := rows.Scan(&doc.ID, &doc.Text, &meta, &embedding); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if err := json.Unmarshal(embedding, &vec); err != nil {
			s.log.WithError(err).WithField("id", doc.ID).Warn("skipping corrupted embedding")
			continue
		}
		if err := json.Unmarshal([]byte(meta), &doc.Metadata); err != nil {
			s.log.WithError(err).WithField("id", doc.ID).Warn("ignoring corrupted metadata")
		}
		docs = append(docs, doc)
		vectors = append(vectors, vec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return vectorstore.Rank(docs, vectors, vector, topK), nil
}

func (s *Storage) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := os.Stat(s.path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return vectorstore.ErrNoPersistedIndex
		}
		return err
	}
	if err := s.open(); err != nil {
		return err
	}

	var value string
	err := sq.Select("value").From("meta").Where(sq.Eq{"key": "dimension"}).
		RunWith(s.db).QueryRow().Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return vectorstore.ErrNoPersistedIndex
	}
	if err != nil {
		return fmt.Errorf("reading dimension: %w", err)
	}
	dimension, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("reading dimension: %w", err)
	}

	var count int
	if err := sq.Select("COUNT(*)").From("documents").RunWith(s.db).QueryRow().Scan(&count); err != nil {
		return fmt.Errorf("counting documents: %w", err)
	}
	s.dimension = dimension
	s.log.WithField("documents", count).Info("sqlite index loaded")
	return nil
}

func (s *Storage) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	_, err := sq.Delete("documents").RunWith(s.db).Exec()
	return err
}

func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
