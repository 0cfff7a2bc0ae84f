package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/anamnesis/pkg/adapters/file"
	"github.com/aretw0/anamnesis/pkg/domain"
	"github.com/aretw0/anamnesis/pkg/ports"
)

// Ensure Store implements SessionStore
var _ ports.SessionStore = (*file.Store)(nil)

func TestFileStore_Contract(t *testing.T) {
	ports.RunSessionStoreContract(t, file.New(t.TempDir()))
}

func TestFileStore_SurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	c := domain.NewConsultation("s1", "p", "d", "q1", time.Now().UTC())
	require.NoError(t, file.New(dir).Save(ctx, c))

	reopened := file.New(dir)
	loaded, err := reopened.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "q1", loaded.CurrentNodeID)
	assert.NotNil(t, loaded.History)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must be cleaned up")
	assert.Equal(t, "s1.json", entries[0].Name())
}

func TestFileStore_RejectsPathTraversal(t *testing.T) {
	store := file.New(t.TempDir())
	_, err := store.Load(context.Background(), "../etc/passwd")
	assert.ErrorIs(t, err, domain.ErrValidation)

	c := domain.NewConsultation(filepath.Join("a", "b"), "p", "d", "q", time.Now())
	assert.Error(t, store.Save(context.Background(), c))
}

func TestFileStore_ListMissingDirectory(t *testing.T) {
	store := file.New(filepath.Join(t.TempDir(), "not-yet"))
	list, err := store.List(context.Background(), ports.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}
