package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsrag/internal/config"
	"newsrag/internal/domain"
	"newsrag/internal/embedding/hashing"
	"newsrag/internal/index"
	"newsrag/internal/logging"
	"newsrag/internal/service"
	"newsrag/internal/vectorstore/badgerstore"
)

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	yml := fmt.Sprintf(`
news:
  api_key_env: NEWSRAG_TEST_NEWS_KEY
embedder:
  type: hashing
  dimension: 64
index:
  type: badger
  dir: %[1]s/db
summarizer:
  type: frequency
user_data:
  path: %[1]s/user_data.json
logging:
  file: %[1]s/newsrag.log
`, dir)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))
	return path
}

func seedIndex(t *testing.T, dir string) {
	t.Helper()
	ix := index.New(hashing.NewEmbedder(64), badgerstore.NewStorage(dir, "articles", logging.Discard()), logging.Discard())
	require.NoError(t, ix.Build(context.Background(), []domain.Article{{Title: "Seed", URL: "https://example.com/seed"}}))
	require.NoError(t, ix.Close())
}

func TestRun_UIFailureStillClosesIndex(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("NEWSRAG_TEST_NEWS_KEY", "secret")
	seedIndex(t, filepath.Join(dir, "db"))

	uiErr := errors.New("terminal went away")
	var loaded bool
	err := run([]string{"-config", writeConfig(t, dir)}, func(ctx context.Context, svc *service.NewsService) error {
		got, qerr := svc.FindSimilar(ctx, "seed", 1)
		loaded = qerr == nil && len(got) == 1
		return uiErr
	})
	require.ErrorIs(t, err, uiErr)
	assert.True(t, loaded, "persisted index should be loaded before the UI starts")

	// Badger holds a directory lock until closed.
	reopened := badgerstore.NewStorage(filepath.Join(dir, "db"), "articles", logging.Discard())
	t.Cleanup(func() { _ = reopened.Close() })
	require.NoError(t, reopened.Load())

	logData, err := os.ReadFile(filepath.Join(dir, "newsrag.log"))
	require.NoError(t, err)
	assert.Contains(t, string(logData), "terminal UI stopped")
}

func TestRun_MissingNewsKeyIsReturned(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("NEWSRAG_TEST_NEWS_KEY", "")
	err := run([]string{"-config", writeConfig(t, dir)}, func(context.Context, *service.NewsService) error {
		t.Fatal("UI must not start")
		return nil
	})
	assert.ErrorIs(t, err, config.ErrMissingAPIKey)
}
