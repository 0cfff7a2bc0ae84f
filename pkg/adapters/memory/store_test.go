package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/anamnesis/pkg/adapters/memory"
	"github.com/aretw0/anamnesis/pkg/domain"
	"github.com/aretw0/anamnesis/pkg/ports"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunSessionStoreContract(t, store)
}

func TestMemoryStore_Isolation(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	c := domain.NewConsultation("s1", "p", "d", "q1", time.Now())
	require.NoError(t, store.Save(ctx, c))

	c.CurrentNodeID = "mutated"
	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "q1", loaded.CurrentNodeID)

	loaded.History = append(loaded.History, domain.HistoryEntry{Ordinal: 1})
	again, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, again.History)
}
