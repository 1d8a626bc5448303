// Package flat keeps the whole collection in memory and mirrors it to a single
// gob file that is rewritten after every change and read back wholesale.
package flat

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"newsrag/internal/domain"
	"newsrag/internal/vectorstore"
	"newsrag/internal/vectorstore/memory"
)

const FileName = "index.gob"

type snapshot struct {
	Dimension int
	Docs      []domain.IndexedDocument
	Vectors   [][]float64
}

type Storage struct {
	mem  *memory.Storage
	path string
	log  logrus.FieldLogger
}

func NewStorage(dir string, log logrus.FieldLogger) *Storage {
	return &Storage{
		mem:  memory.NewStorage(),
		path: filepath.Join(dir, FileName),
		log:  log.WithField("component", "flat-index"),
	}
}

func (s *Storage) Init(dimension int) error {
	if err := s.mem.Init(dimension); err != nil {
		return err
	}
	return s.persist()
}

func (s *Storage) Dimension() int { return s.mem.Dimension() }

func (s *Storage) Upsert(docs []domain.IndexedDocument, vectors [][]float64) error {
	if err := s.mem.Upsert(docs, vectors); err != nil {
		return err
	}
	return s.persist()
}

func (s *Storage) Search(vector []float64, topK int) ([]domain.SearchResult, error) {
	return s.mem.Search(vector, topK)
}

func (s *Storage) Load() error {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return vectorstore.ErrNoPersistedIndex
		}
		return err
	}
	defer f.Close()

	var snap snapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return fmt.Errorf("decode %s: %w", s.path, err)
	}
	if err := s.mem.Restore(snap.Dimension, snap.Docs, snap.Vectors); err != nil {
		return fmt.Errorf("restore %s: %w", s.path, err)
	}
	s.log.WithField("documents", len(snap.Docs)).Info("flat index loaded")
	return nil
}

func (s *Storage) Clear() error {
	if err := s.mem.Clear(); err != nil {
		return err
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *Storage) Close() error { return nil }

func (s *Storage) persist() error {
	dim, docs, vectors := s.mem.Snapshot()
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), FileName+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(snapshot{Dimension: dim, Docs: docs, Vectors: vectors}); err != nil {
		tmp.Close()
		return fmt.Errorf("encode %s: %w", s.path, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
