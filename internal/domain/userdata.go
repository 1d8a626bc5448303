package domain

import (
	"errors"
	"fmt"
	"strings"
)

// SummaryType selects how long a summary should be.
type SummaryType string

const (
	SummaryBrief    SummaryType = "brief"
	SummaryDetailed SummaryType = "detailed"
)

var ErrInvalidSummaryType = errors.New("summary type must be 'brief' or 'detailed'")

// ParseSummaryType accepts "brief" or "detailed" in any case.
func ParseSummaryType(s string) (SummaryType, error) {
	switch SummaryType(strings.ToLower(strings.TrimSpace(s))) {
	case SummaryBrief:
		return SummaryBrief, nil
	case SummaryDetailed:
		return SummaryDetailed, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSummaryType, s)
}

// Valid reports whether t is one of the recognized summary types.
func (t SummaryType) Valid() bool {
	return t == SummaryBrief || t == SummaryDetailed
}

// UserPreferences are the user's persisted settings.
type UserPreferences struct {
	Topics           []string    `json:"topics"`
	SummaryType      SummaryType `json:"summary_type"`
	Language         string      `json:"language"`
	ArticlesPerTopic int         `json:"articles_per_topic"`
}

// SearchHistoryEntry records one executed search.
type SearchHistoryEntry struct {
	Query      string `json:"query"`
	Timestamp  string `json:"timestamp"`
	NumResults int    `json:"num_results"`
}

// UserData is the whole persisted document.
type UserData struct {
	Preferences   UserPreferences      `json:"preferences"`
	SearchHistory []SearchHistoryEntry `json:"search_history"`
}

// Bounds for UserPreferences.ArticlesPerTopic.
const (
	MinArticlesPerTopic = 1
	MaxArticlesPerTopic = 20
)

// DefaultUserData returns the document used when nothing valid is on disk.
func DefaultUserData() UserData {
	return UserData{
		Preferences: UserPreferences{
			Topics:           []string{},
			SummaryType:      SummaryBrief,
			Language:         "en",
			ArticlesPerTopic: 5,
		},
		SearchHistory: []SearchHistoryEntry{},
	}
}
