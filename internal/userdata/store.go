// Package userdata persists preferences, saved topics and search history in
// a single JSON document.
package userdata

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"newsrag/internal/domain"
)

// DefaultHistoryLimit is how many entries SearchHistory returns for a non-positive limit.
const DefaultHistoryLimit = 10

// Store loads the document once and writes the whole of it back after every
// mutation that changes something.
type Store struct {
	mu   sync.Mutex
	path string
	data domain.UserData
	now  func() time.Time
	log  logrus.FieldLogger
}

// Option customises the Store.
type Option func(*Store)

// WithClock overrides the clock used for history timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open loads path. A missing or unreadable-as-JSON file yields defaults; only
// I/O errors other than "not exist" are returned.
func Open(path string, log logrus.FieldLogger, opts ...Option) (*Store, error) {
	s := &Store{
		path: path,
		now:  time.Now,
		log:  log.WithField("component", "userdata"),
	}
	for _, opt := range opts {
		opt(s)
	}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		s.data = domain.DefaultUserData()
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read user data %s: %w", path, err)
	}

	var data domain.UserData
	if err := json.Unmarshal(raw, &data); err != nil {
		s.log.WithError(err).WithField("path", path).Warn("Error decoding user data file. Creating new data.")
		s.data = domain.DefaultUserData()
		return s, nil
	}
	s.data = repair(data, s.log)
	return s, nil
}

// repair fills fields a partial or hand-edited document left empty.
func repair(data domain.UserData, log logrus.FieldLogger) domain.UserData {
	def := domain.DefaultUserData()
	p := &data.Preferences
	if p.Topics == nil {
		p.Topics = def.Preferences.Topics
	}
	if !p.SummaryType.Valid() {
		if p.SummaryType != "" {
			log.WithField("summary_type", p.SummaryType).Warn("unknown summary type, using brief")
		}
		p.SummaryType = def.Preferences.SummaryType
	}
	if p.Language == "" {
		p.Language = def.Preferences.Language
	}
	if p.ArticlesPerTopic == 0 {
		p.ArticlesPerTopic = def.Preferences.ArticlesPerTopic
	}
	if data.SearchHistory == nil {
		data.SearchHistory = def.SearchHistory
	}
	return data
}

// Path returns the file backing the store.
func (s *Store) Path() string { return s.path }

// Save writes the whole document to a temp file next to the target and renames it into place.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Store) saveLocked() error { return writeDoc(s.path, s.data) }

// commit persists next and only then makes it the in-memory document, so a
// failed write leaves the store as it was.
func (s *Store) commit(next domain.UserData) error {
	if err := writeDoc(s.path, next); err != nil {
		return err
	}
	s.data = next
	return nil
}

// cloneLocked returns a copy of the document whose slices can be mutated freely.
func (s *Store) cloneLocked() domain.UserData {
	next := s.data
	next.Preferences.Topics = slices.Clone(s.data.Preferences.Topics)
	next.SearchHistory = slices.Clone(s.data.SearchHistory)
	return next
}

func writeDoc(path string, data domain.UserData) error {
	payload, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode user data: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return fmt.Errorf("write user data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace user data: %w", err)
	}
	return nil
}

// Preferences returns a copy of the current preferences.
func (s *Store) Preferences() domain.UserPreferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.data.Preferences
	p.Topics = slices.Clone(p.Topics)
	return p
}

// PreferencesUpdate lists the preference fields to overwrite; nil fields are kept.
type PreferencesUpdate struct {
	SummaryType      *domain.SummaryType
	Language         *string
	ArticlesPerTopic *int
}

// UpdatePreferences merges u into the stored preferences and persists them.
// The articles-per-topic range is checked by the interactive layer, not here.
func (s *Store) UpdatePreferences(u PreferencesUpdate) error {
	if u.SummaryType != nil && !u.SummaryType.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidSummaryType, *u.SummaryType)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.cloneLocked()
	p := &next.Preferences
	if u.SummaryType != nil {
		p.SummaryType = *u.SummaryType
	}
	if u.Language != nil {
		p.Language = *u.Language
	}
	if u.ArticlesPerTopic != nil {
		p.ArticlesPerTopic = *u.ArticlesPerTopic
	}
	return s.commit(next)
}

// Topics returns the saved topics in insertion order.
func (s *Store) Topics() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.data.Preferences.Topics)
}

// AddTopic appends topic unless it is blank or already saved. It reports
// whether the topic list changed.
func (s *Store) AddTopic(topic string) (bool, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.Contains(s.data.Preferences.Topics, topic) {
		return false, nil
	}
	next := s.cloneLocked()
	next.Preferences.Topics = append(next.Preferences.Topics, topic)
	if err := s.commit(next); err != nil {
		return false, err
	}
	return true, nil
}

// RemoveTopic deletes topic and reports whether it was present.
func (s *Store) RemoveTopic(topic string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.Index(s.data.Preferences.Topics, topic)
	if i < 0 {
		return false, nil
	}
	next := s.cloneLocked()
	next.Preferences.Topics = slices.Delete(next.Preferences.Topics, i, i+1)
	if err := s.commit(next); err != nil {
		return false, err
	}
	return true, nil
}

// AddSearchHistory appends an entry stamped with the current local time.
func (s *Store) AddSearchHistory(query string, numResults int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.cloneLocked()
	next.SearchHistory = append(next.SearchHistory, domain.SearchHistoryEntry{
		Query:      query,
		Timestamp:  s.now().Format(time.RFC3339),
		NumResults: numResults,
	})
	return s.commit(next)
}

// SearchHistory returns the most recent limit entries, oldest first.
func (s *Store) SearchHistory(limit int) []domain.SearchHistoryEntry {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.data.SearchHistory
	if len(h) > limit {
		h = h[len(h)-limit:]
	}
	return slices.Clone(h)
}
