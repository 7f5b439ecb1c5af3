package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobflow-backend/internal/models"
)

func seedOrder(store *MemoryOrderStore, folder string, files map[string]string) *models.Order {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	a := &models.ProgressAssignment{
		Key:        models.AssignmentKey(1, models.CategoryProduction, 0),
		Seq:        1,
		EmployeeID: 1,
		Category:   models.CategoryProduction,
		Files:      map[string]*models.FileTrackingEntry{},
	}
	for name, status := range files {
		e := &models.FileTrackingEntry{FileName: name, Status: status, StartTimestamp: &start}
		if status == models.FileStatusCompleted || status == "handed_off" {
			end := start.Add(time.Hour)
			e.EndTimestamp = &end
		}
		if status == "handed_off" {
			e.Status = models.FileStatusTransferred
		}
		a.Files[name] = e
	}
	order := &models.Order{FolderPath: folder, Progress: map[string]*models.ProgressAssignment{a.Key: a}}
	store.Put(order)
	return order
}

func TestMemoryStoreGetReturnsCopies(t *testing.T) {
	store := NewMemoryOrderStore()
	seeded := seedOrder(store, `P:\X`, map[string]string{"a.png": models.FileStatusWorking})

	first, err := store.Get(context.Background(), seeded.ID)
	require.NoError(t, err)
	first.Progress["1:production"].Files["a.png"].Status = models.FileStatusCancelled

	second, err := store.Get(context.Background(), seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FileStatusWorking, second.Progress["1:production"].Files["a.png"].Status)

	_, err = store.Get(context.Background(), 999)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestMemoryStoreOptimisticSave(t *testing.T) {
	store := NewMemoryOrderStore()
	seeded := seedOrder(store, `P:\X`, nil)
	ctx := context.Background()

	a, _ := store.Get(ctx, seeded.ID)
	b, _ := store.Get(ctx, seeded.ID)

	require.NoError(t, store.Save(ctx, a))
	assert.Equal(t, seeded.Version+1, a.Version)

	assert.ErrorIs(t, store.Save(ctx, b), ErrVersionConflict)
	assert.Equal(t, seeded.Version, b.Version)
}

func TestMemoryStoreTxRollback(t *testing.T) {
	store := NewMemoryOrderStore()
	seeded := seedOrder(store, `P:\X`, nil)
	ctx := context.Background()
	boom := errors.New("move failed")

	err := store.InTx(ctx, func(tx OrderStore) error {
		order, err := tx.GetForUpdate(ctx, seeded.ID)
		require.NoError(t, err)
		order.Status = "in_progress"
		require.NoError(t, tx.Save(ctx, order))

		again, err := tx.Get(ctx, seeded.ID)
		require.NoError(t, err)
		assert.Equal(t, "in_progress", again.Status)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	after, _ := store.Get(ctx, seeded.ID)
	assert.Equal(t, "", after.Status)
	assert.Equal(t, seeded.Version, after.Version)
}

func TestMemoryStoreTxCommit(t *testing.T) {
	store := NewMemoryOrderStore()
	seeded := seedOrder(store, `P:\X`, nil)
	ctx := context.Background()

	err := store.InTx(ctx, func(tx OrderStore) error {
		order, err := tx.GetForUpdate(ctx, seeded.ID)
		if err != nil {
			return err
		}
		order.Status = "in_progress"
		return tx.Save(ctx, order)
	})
	require.NoError(t, err)

	after, _ := store.Get(ctx, seeded.ID)
	assert.Equal(t, "in_progress", after.Status)
	assert.Equal(t, seeded.Version+1, after.Version)
}

func TestMemoryStoreOccupiedFileNames(t *testing.T) {
	store := NewMemoryOrderStore()
	own := seedOrder(store, `P:\ClientX\Job1`, map[string]string{"own.png": models.FileStatusWorking})
	seedOrder(store, `p:\clientx\job1`, map[string]string{
		"a.png": models.FileStatusWorking,
		"b.png": models.FileStatusPaused,
		"c.png": models.FileStatusTransferred,
		"d.png": models.FileStatusCompleted,
		"e.png": "handed_off",
	})
	seedOrder(store, `P:\ClientY\Job9`, map[string]string{"z.png": models.FileStatusWorking})

	names, err := store.OccupiedFileNames(context.Background(), `P:\ClientX\Job1`, own.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"a.png": true, "b.png": true, "c.png": true}, names)
}
