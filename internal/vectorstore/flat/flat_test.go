package flat

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsrag/internal/domain"
	"newsrag/internal/vectorstore"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.PanicLevel)
	return l
}

func TestStorage_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	s := NewStorage(dir, quietLogger())
	require.NoError(t, s.Init(2))
	require.NoError(t, s.Upsert(
		[]domain.IndexedDocument{{ID: "https://a", Text: "alpha", Metadata: map[string]string{"title": "A"}}},
		[][]float64{{1, 0}},
	))
	assert.FileExists(t, filepath.Join(dir, FileName))

	reopened := NewStorage(dir, quietLogger())
	require.NoError(t, reopened.Load())
	assert.Equal(t, 2, reopened.Dimension())

	res, err := reopened.Search([]float64{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "alpha", res[0].Document.Text)
	assert.Equal(t, "A", res[0].Document.Metadata["title"])
}

func TestStorage_LoadWithoutFile(t *testing.T) {
	s := NewStorage(t.TempDir(), quietLogger())
	assert.ErrorIs(t, s.Load(), vectorstore.ErrNoPersistedIndex)
}

func TestStorage_LoadCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("garbage"), 0o644))
	assert.Error(t, NewStorage(dir, quietLogger()).Load())
}

func TestStorage_ClearRemovesFile(t *testing.T) {
	dir := t.TempDir()
	s := NewStorage(dir, quietLogger())
	require.NoError(t, s.Init(2))
	require.NoError(t, s.Clear())
	assert.NoFileExists(t, filepath.Join(dir, FileName))
}
