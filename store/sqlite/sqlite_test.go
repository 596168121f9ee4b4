package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/points-engine/ledger"
	"github.com/warp/points-engine/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func pts(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestStore_InsertAssignsID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id1, err := store.Insert(ctx, "DANNON", pts(300), time.Now())
	require.NoError(t, err)
	id2, err := store.Insert(ctx, "DANNON", pts(200), time.Now())
	require.NoError(t, err)

	assert.NotEmpty(t, id1)
	assert.NotEmpty(t, id2)
	assert.NotEqual(t, id1, id2)
}

func TestStore_AllByTimestamp_Ascending(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t1 := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(30 * time.Minute)
	t3 := t1.Add(time.Hour)

	// Inserted out of chronological order.
	_, err := store.Insert(ctx, "MILLER COORS", pts(10000), t3)
	require.NoError(t, err)
	_, err = store.Insert(ctx, "DANNON", pts(300), t1)
	require.NoError(t, err)
	_, err = store.Insert(ctx, "UNILEVER", pts(200), t2)
	require.NoError(t, err)

	grants, err := store.AllByTimestamp(ctx)
	require.NoError(t, err)
	require.Len(t, grants, 3)

	assert.Equal(t, "DANNON", grants[0].Payer)
	assert.Equal(t, "UNILEVER", grants[1].Payer)
	assert.Equal(t, "MILLER COORS", grants[2].Payer)
	assert.True(t, grants[0].Timestamp.Equal(t1))
}

func TestStore_AllByTimestamp_TiesKeepInsertionOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ts := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)

	_, err := store.Insert(ctx, "FIRST", pts(1), ts)
	require.NoError(t, err)
	_, err = store.Insert(ctx, "SECOND", pts(1), ts)
	require.NoError(t, err)

	grants, err := store.AllByTimestamp(ctx)
	require.NoError(t, err)
	require.Len(t, grants, 2)
	assert.Equal(t, "FIRST", grants[0].Payer)
	assert.Equal(t, "SECOND", grants[1].Payer)
}

func TestStore_SubsecondTimestampsKeepOrder(t *testing.T) {
	// Timestamps are stored fixed-width, so a sub-second instant sorts
	// after the same instant truncated to the second.
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)

	_, err := store.Insert(ctx, "LATER", pts(1), base.Add(500*time.Millisecond))
	require.NoError(t, err)
	_, err = store.Insert(ctx, "EARLIER", pts(1), base)
	require.NoError(t, err)

	grants, err := store.AllByTimestamp(ctx)
	require.NoError(t, err)
	require.Len(t, grants, 2)
	assert.Equal(t, "EARLIER", grants[0].Payer)
	assert.Equal(t, "LATER", grants[1].Payer)
}

func TestStore_UpdatePoints(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Insert(ctx, "DANNON", pts(300), time.Now())
	require.NoError(t, err)

	require.NoError(t, store.UpdatePoints(ctx, id, pts(120)))

	grants, err := store.AllByTimestamp(ctx)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.True(t, grants[0].Points.Equal(pts(120)))
}

func TestStore_UpdatePoints_UnknownGrant(t *testing.T) {
	store := newTestStore(t)

	err := store.UpdatePoints(context.Background(), "no-such-grant", pts(1))
	assert.ErrorIs(t, err, ledger.ErrGrantNotFound)
}

func TestStore_WithTx_RollsBackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Insert(ctx, "DANNON", pts(300), time.Now())
	require.NoError(t, err)

	boom := errors.New("boom")
	err = store.WithTx(ctx, func(s ledger.Store) error {
		if err := s.UpdatePoints(ctx, id, pts(0)); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	grants, err := store.AllByTimestamp(ctx)
	require.NoError(t, err)
	assert.True(t, grants[0].Points.Equal(pts(300)), "update must roll back")
}

func TestStore_WithTx_ReadsSeeUncommittedWrites(t *testing.T) {
	// A spend reads its snapshot and writes its deductions in one
	// transaction; reads inside WithTx must observe earlier writes of
	// the same transaction.
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Insert(ctx, "DANNON", pts(300), time.Now())
	require.NoError(t, err)

	err = store.WithTx(ctx, func(s ledger.Store) error {
		if err := s.UpdatePoints(ctx, id, pts(50)); err != nil {
			return err
		}
		grants, err := s.AllByTimestamp(ctx)
		if err != nil {
			return err
		}
		assert.True(t, grants[0].Points.Equal(pts(50)))
		return nil
	})
	require.NoError(t, err)
}

func TestStore_SpendThroughService(t *testing.T) {
	// End-to-end against real SQLite: the service's transactional spend
	// leaves the persisted ledger in the allocated state.
	store := newTestStore(t)
	ctx := context.Background()
	svc := ledger.NewService(store, nil, nil)

	_, err := svc.Record(ctx, "DANNON", pts(300), "2026-03-01T10:00:00Z")
	require.NoError(t, err)
	_, err = svc.Record(ctx, "UNILEVER", pts(200), "2026-03-01T11:00:00Z")
	require.NoError(t, err)

	summary, err := svc.Spend(ctx, pts(400))
	require.NoError(t, err)
	require.Len(t, summary, 2)

	grants, err := store.AllByTimestamp(ctx)
	require.NoError(t, err)
	require.Len(t, grants, 2)
	assert.True(t, grants[0].Points.IsZero())
	assert.True(t, grants[1].Points.Equal(pts(100)))
}
