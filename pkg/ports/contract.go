package ports

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/anamnesis/pkg/domain"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore implementation
// adheres to the defined interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	run := uuid.NewString()[:8]
	base := time.Now().UTC().Truncate(time.Millisecond)

	newConsultation := func(suffix, patient, doctor string, created time.Time) *domain.Consultation {
		return domain.NewConsultation("contract-"+run+"-"+suffix, patient+"-"+run, doctor+"-"+run, "q1", created)
	}

	t.Run("Save and Load", func(t *testing.T) {
		c := newConsultation("roundtrip", "p1", "d1", base)
		c.History = append(c.History,
			domain.HistoryEntry{Ordinal: 1, NodeID: "q1", Question: "discharge?", Answer: domain.AnswerYes, AnsweredAt: base},
			domain.HistoryEntry{Ordinal: 2, NodeID: "q2", Question: "pain?", Answer: domain.AnswerNo, AnsweredAt: base.Add(time.Second)},
		)
		c.CurrentNodeID = "d3"
		c.DiagnosisCandidate = "Allergic conjunctivitis"

		require.NoError(t, store.Save(ctx, c), "Save should not return error")
		assert.Equal(t, int64(1), c.Version, "Save should bump the version")

		loaded, err := store.Load(ctx, c.ID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, c.ID, loaded.ID)
		assert.Equal(t, c.PatientID, loaded.PatientID)
		assert.Equal(t, c.DoctorID, loaded.DoctorID)
		assert.Equal(t, "d3", loaded.CurrentNodeID)
		assert.Equal(t, domain.StatusActive, loaded.Status)
		assert.Equal(t, "Allergic conjunctivitis", loaded.DiagnosisCandidate)
		assert.Equal(t, int64(1), loaded.Version)
		assert.True(t, c.CreatedAt.Equal(loaded.CreatedAt), "created_at %v != %v", c.CreatedAt, loaded.CreatedAt)
		assert.Nil(t, loaded.CompletedAt)

		require.Len(t, loaded.History, 2)
		for i, h := range loaded.History {
			assert.Equal(t, c.History[i].Ordinal, h.Ordinal)
			assert.Equal(t, c.History[i].NodeID, h.NodeID)
			assert.Equal(t, c.History[i].Question, h.Question)
			assert.Equal(t, c.History[i].Answer, h.Answer)
			assert.True(t, c.History[i].AnsweredAt.Equal(h.AnsweredAt))
		}
	})

	t.Run("Update and Complete", func(t *testing.T) {
		c := newConsultation("update", "p1", "d1", base)
		require.NoError(t, store.Save(ctx, c))

		loaded, err := store.Load(ctx, c.ID)
		require.NoError(t, err)
		done := base.Add(time.Minute)
		loaded.History = append(loaded.History, domain.HistoryEntry{Ordinal: 1, NodeID: "q1", Question: "discharge?", Answer: domain.AnswerNo, AnsweredAt: base})
		loaded.CurrentNodeID = "d2"
		loaded.DiagnosisCandidate = "No abnormality"
		loaded.Status = domain.StatusCompleted
		loaded.FinalDiagnosis = "No abnormality"
		loaded.DoctorNotes = "Routine check"
		loaded.CompletedAt = &done
		require.NoError(t, store.Save(ctx, loaded))
		assert.Equal(t, int64(2), loaded.Version)

		again, err := store.Load(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCompleted, again.Status)
		assert.Equal(t, "No abnormality", again.FinalDiagnosis)
		assert.Equal(t, "Routine check", again.DoctorNotes)
		require.NotNil(t, again.CompletedAt)
		assert.True(t, done.Equal(*again.CompletedAt))
		assert.Len(t, again.History, 1)
	})

	t.Run("Version Conflict", func(t *testing.T) {
		c := newConsultation("conflict", "p1", "d1", base)
		require.NoError(t, store.Save(ctx, c))

		first, err := store.Load(ctx, c.ID)
		require.NoError(t, err)
		second, err := store.Load(ctx, c.ID)
		require.NoError(t, err)

		first.Status = domain.StatusDraft
		require.NoError(t, store.Save(ctx, first))

		second.Status = domain.StatusCanceled
		err = store.Save(ctx, second)
		assert.ErrorIs(t, err, domain.ErrVersionConflict)
		assert.ErrorIs(t, err, domain.ErrConcurrency)

		current, err := store.Load(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusDraft, current.Status, "losing writer must not overwrite")

		dup := newConsultation("conflict", "p1", "d1", base)
		assert.ErrorIs(t, store.Save(ctx, dup), domain.ErrVersionConflict, "creating over an existing id must fail")
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+run)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("List", func(t *testing.T) {
		older := newConsultation("list-1", "lp", "ld", base.Add(-time.Hour))
		newer := newConsultation("list-2", "lp", "ld", base)
		other := newConsultation("list-3", "lp", "other-doctor", base)
		for _, c := range []*domain.Consultation{older, newer, other} {
			require.NoError(t, store.Save(ctx, c))
		}
		newer.Status = domain.StatusDraft
		require.NoError(t, store.Save(ctx, newer))

		byPatient, err := store.List(ctx, ListFilter{PatientID: "lp-" + run})
		require.NoError(t, err)
		require.Len(t, byPatient, 3)
		assert.False(t, byPatient[0].CreatedAt.Before(byPatient[2].CreatedAt), "expected newest first")
		assert.Equal(t, older.ID, byPatient[2].ID)

		byDoctor, err := store.List(ctx, ListFilter{PatientID: "lp-" + run, DoctorID: "ld-" + run})
		require.NoError(t, err)
		assert.Len(t, byDoctor, 2)

		drafts, err := store.List(ctx, ListFilter{PatientID: "lp-" + run, Statuses: []domain.Status{domain.StatusDraft}})
		require.NoError(t, err)
		require.Len(t, drafts, 1)
		assert.Equal(t, newer.ID, drafts[0].ID)

		none, err := store.List(ctx, ListFilter{PatientID: "nobody-" + run})
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}
