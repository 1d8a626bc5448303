package badgerstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"newsrag/internal/domain"
	"newsrag/internal/vectorstore"
)

// record is the JSON value stored per document.
type record struct {
	Document domain.IndexedDocument `json:"document"`
	Vector   []float64              `json:"vector"`
}

// Storage keeps documents and their vectors in BadgerDB under a collection
// prefix and answers queries by scanning the prefix.
type Storage struct {
	mu         sync.Mutex
	dir        string
	collection string
	db         *badger.DB
	dimension  int
	seq        int
	log        logrus.FieldLogger
}

// DirName is the subdirectory of the index directory holding the database.
const DirName = "badger"

// NewStorage prepares a store under dir. The database is opened lazily so
// that Load can tell a missing index apart from a broken one.
func NewStorage(dir, collection string, log logrus.FieldLogger) *Storage {
	if collection == "" {
		collection = "articles"
	}
	return &Storage{
		dir:        filepath.Join(dir, DirName),
		collection: collection,
		log:        log.WithField("component", "badger-index"),
	}
}

func (s *Storage) metaKey() []byte { return []byte(s.collection + ":meta:dimension") }

func (s *Storage) docPrefix() []byte { return []byte(s.collection + ":doc:") }

func (s *Storage) docKey(seq int) []byte {
	return []byte(fmt.Sprintf("%s:doc:%08d", s.collection, seq))
}

func (s *Storage) open() error {
	if s.db != nil {
		return nil
	}
	opts := badger.DefaultOptions(s.dir)
	opts.Logger = &badgerLogger{s.log.WithField("component", "badgerdb")}
	db, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("failed to open badger db at %s: %w", s.dir, err)
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
	if err := s.db.DropPrefix([]byte(s.collection + ":")); err != nil {
		return fmt.Errorf("drop collection %s: %w", s.collection, err)
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.metaKey(), []byte(strconv.Itoa(dimension)))
	})
	if err != nil {
		return err
	}
	s.dimension = dimension
	s.seq = 0
	return nil
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

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for i := range docs {
		val, err := json.Marshal(record{Document: docs[i], Vector: vectors[i]})
		if err != nil {
			return fmt.Errorf("failed to marshal document: %w", err)
		}
		if err := wb.Set(s.docKey(s.seq), val); err != nil {
			return err
		}
		s.seq++
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("failed to write documents: %w", err)
	}
	s.log.WithField("documents", len(docs)).Debug("documents stored")
	return nil
}

func (s *Storage) Search(vector []float64, topK int) ([]domain.SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, nil
	}
	docs, vectors, err := s.scan()
	if err != nil {
		return nil, err
	}
	return vectorstore.Rank(docs, vectors, vector, topK), nil
}

func (s *Storage) scan() ([]domain.IndexedDocument, [][]float64, error) {
	var (
		docs    []domain.IndexedDocument
		vectors [][]float64
	)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := s.docPrefix()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				var rec record
				if err := json.Unmarshal(val, &rec); err != nil {
					return fmt.Errorf("failed to unmarshal document for key %s: %w", string(item.Key()), err)
				}
				docs = append(docs, rec.Document)
				vectors = append(vectors, rec.Vector)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return docs, vectors, err
}

func (s *Storage) Dimension() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dimension
}

// Load opens an existing database and restores the collection dimension.
func (s *Storage) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := os.Stat(s.dir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return vectorstore.ErrNoPersistedIndex
		}
		return err
	}
	if err := s.open(); err != nil {
		return err
	}

	var dimension int
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.metaKey())
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			dimension, err = strconv.Atoi(string(val))
			return err
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return vectorstore.ErrNoPersistedIndex
	}
	if err != nil {
		return err
	}

	docs, _, err := s.scan()
	if err != nil {
		return err
	}
	s.dimension = dimension
	s.seq = len(docs)
	s.log.WithField("documents", len(docs)).Info("badger index loaded")
	return nil
}

func (s *Storage) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	s.seq = 0
	return s.db.DropPrefix([]byte(s.collection + ":"))
}

// Close closes the BadgerDB database connection.
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		s.log.WithError(err).Error("Error closing BadgerDB")
	}
	return err
}

// badgerLogger adapts logrus.FieldLogger to Badger's logger interface.
type badgerLogger struct {
	logger logrus.FieldLogger
}

func (l *badgerLogger) Errorf(f string, v ...interface{})   { l.logger.Errorf(f, v...) }
func (l *badgerLogger) Warningf(f string, v ...interface{}) { l.logger.Warningf(f, v...) }
func (l *badgerLogger) Infof(f string, v ...interface{})    { l.logger.Debugf(f, v...) }
func (l *badgerLogger) Debugf(f string, v ...interface{})   { l.logger.Debugf(f, v...) }
