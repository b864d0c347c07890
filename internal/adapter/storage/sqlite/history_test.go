package sqlite

import (
	"testing"
	"time"

	"github.com/bnema/handsync/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *HistoryStore {
	t.Helper()
	store, err := NewHistoryStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestHistoryStore_SaveAndGet(t *testing.T) {
	store := newTestStore(t)

	sub := &domain.Submission{
		CorrelationID: "corr-1",
		JobID:         "job-1",
		FileName:      "demo.mp4",
		TargetHand:    domain.TargetHandRight,
		Status:        domain.JobStatusPending,
	}
	require.NoError(t, store.Save(sub))
	assert.False(t, sub.SubmittedAt.IsZero(), "save fills the timestamp")

	got, err := store.Get("job-1")
	require.NoError(t, err)
	assert.Equal(t, "corr-1", got.CorrelationID)
	assert.Equal(t, "demo.mp4", got.FileName)
	assert.Equal(t, domain.TargetHandRight, got.TargetHand)
	assert.Equal(t, domain.JobStatusPending, got.Status)
	assert.WithinDuration(t, time.Now(), got.SubmittedAt, 5*time.Second)
}

func TestHistoryStore_GetMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get("nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestHistoryStore_SaveRequiresJobID(t *testing.T) {
	store := newTestStore(t)
	assert.Error(t, store.Save(&domain.Submission{CorrelationID: "c"}))
}

func TestHistoryStore_UpdateStatus(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Save(&domain.Submission{
		CorrelationID: "corr-1",
		JobID:         "job-1",
		FileName:      "demo.mp4",
		TargetHand:    domain.TargetHandLeft,
		Status:        domain.JobStatusPending,
	}))

	require.NoError(t, store.UpdateStatus("job-1", domain.JobStatusError, 80, "tracking crashed"))

	got, err := store.Get("job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusError, got.Status)
	assert.Equal(t, 80, got.Progress)
	assert.Equal(t, "tracking crashed", got.ErrorMessage)

	assert.ErrorIs(t, store.UpdateStatus("nope", domain.JobStatusCompleted, 100, ""), domain.ErrNotFound)
}

func TestHistoryStore_ListOrdersByNewest(t *testing.T) {
	store := newTestStore(t)

	old := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, store.Save(&domain.Submission{
		CorrelationID: "c1", JobID: "job-old", FileName: "a.mp4",
		TargetHand: domain.TargetHandRight, Status: domain.JobStatusCompleted,
		SubmittedAt: old,
	}))
	require.NoError(t, store.Save(&domain.Submission{
		CorrelationID: "c2", JobID: "job-new", FileName: "b.mp4",
		TargetHand: domain.TargetHandRight, Status: domain.JobStatusPending,
	}))

	subs, err := store.List()
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "job-new", subs[0].JobID)
	assert.Equal(t, "job-old", subs[1].JobID)
}

func TestHistoryStore_DeleteAndDeleteAll(t *testing.T) {
	store := newTestStore(t)

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Save(&domain.Submission{
			CorrelationID: "corr-" + id, JobID: id, FileName: id + ".mp4",
			TargetHand: domain.TargetHandRight, Status: domain.JobStatusPending,
		}))
	}

	require.NoError(t, store.Delete("b"))
	assert.ErrorIs(t, store.Delete("b"), domain.ErrNotFound)

	n, err := store.DeleteAll()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	subs, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, subs)
}
