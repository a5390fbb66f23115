package archive

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking-ledger/internal/parking"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "receipts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestArchiveAndList(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first := parking.PaymentRecord{
		ID:         uuid.New(),
		SlotNumber: 1,
		Payer:      "alice",
		Amount:     15,
		PaidAt:     1000,
	}
	second := parking.PaymentRecord{
		ID:         uuid.New(),
		SlotNumber: 2,
		Payer:      "bob",
		Amount:     27,
		PaidAt:     2000,
	}

	require.NoError(t, store.Archive(ctx, first))
	require.NoError(t, store.Archive(ctx, second))

	records, err := store.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Newest first.
	assert.Equal(t, second.ID.String(), records[0].ID)
	assert.Equal(t, "27", records[0].Amount.String())
	assert.Equal(t, first.ID.String(), records[1].ID)
	assert.Equal(t, "15", records[1].Amount.String())
}

func TestListByPayer(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i, payer := range []string{"alice", "bob", "alice"} {
		require.NoError(t, store.Archive(ctx, parking.PaymentRecord{
			ID:         uuid.New(),
			SlotNumber: i + 1,
			Payer:      parking.Identity(payer),
			Amount:     int64(i + 1),
			PaidAt:     int64(i * 1000),
		}))
	}

	records, err := store.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, rec := range records {
		assert.Equal(t, "alice", rec.Payer)
	}
}

func TestArchiveDuplicateIDFails(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	record := parking.PaymentRecord{
		ID:         uuid.New(),
		SlotNumber: 1,
		Payer:      "alice",
		Amount:     10,
		PaidAt:     1000,
	}
	require.NoError(t, store.Archive(ctx, record))
	assert.Error(t, store.Archive(ctx, record))
}
