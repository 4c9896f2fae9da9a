package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hussein-Osamaa/madas-inventory/internal/domain/models"
	"github.com/Hussein-Osamaa/madas-inventory/internal/service/inventory"
)

func seedLedger(t *testing.T, env *testEnv, productID string, kind models.EventKind, qty int64) {
	t.Helper()
	_, err := env.inventory.RecordEvent(context.Background(), inventory.RecordEventInput{
		TenantID:  "t1",
		ProductID: productID,
		Kind:      kind,
		Quantity:  qty,
	})
	require.NoError(t, err)
}

func scanTimes(t *testing.T, env *testEnv, sessionID, barcode, worker string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := env.audit.Scan(context.Background(), sessionID, barcode, worker)
		require.NoError(t, err)
		env.advance(time.Second)
	}
}

func correctiveByProduct(events []models.StockEvent) map[string]models.StockEvent {
	byProduct := make(map[string]models.StockEvent, len(events))
	for _, ev := range events {
		byProduct[ev.ProductID] = ev
	}
	return byProduct
}

func TestFinishEmitsMissingForShortCount(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	// p1 expected at 6 (10 in, 4 sold), counted 3 times.
	seedLedger(t, env, "p1", models.KindInbound, 10)
	seedLedger(t, env, "p1", models.KindSold, 4)

	session, err := env.audit.Start(ctx, "t1", "alice")
	require.NoError(t, err)
	scanTimes(t, env, session.ID, "BC-1", "alice", 3)

	corrective, err := env.audit.Finish(ctx, session.ID, "alice", false)
	require.NoError(t, err)

	byProduct := correctiveByProduct(corrective)
	require.Contains(t, byProduct, "p1")
	assert.Equal(t, models.KindMissing, byProduct["p1"].Kind)
	assert.Equal(t, int64(3), byProduct["p1"].Quantity)
	assert.Equal(t, "audit:"+session.ID, byProduct["p1"].ReferenceID)

	// The ledger now reflects the counted reality.
	available, err := env.inventory.AvailableStock(ctx, "t1", "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), available)
}

func TestFinishEmitsAdjustmentForSurplus(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	// p2 has no ledger history, counted twice.
	session, err := env.audit.Start(ctx, "t1", "alice")
	require.NoError(t, err)
	scanTimes(t, env, session.ID, "BC-2", "alice", 2)

	corrective, err := env.audit.Finish(ctx, session.ID, "alice", false)
	require.NoError(t, err)

	byProduct := correctiveByProduct(corrective)
	require.Contains(t, byProduct, "p2")
	assert.Equal(t, models.KindAdjustment, byProduct["p2"].Kind)
	assert.Equal(t, int64(2), byProduct["p2"].Quantity)

	available, err := env.inventory.AvailableStock(ctx, "t1", "p2")
	require.NoError(t, err)
	assert.Equal(t, int64(2), available)
}

func TestFinishMarksUntouchedProductsWithAuditEvent(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	// p2 is in the catalog but has no stock and was never scanned.
	session, err := env.audit.Start(ctx, "t1", "alice")
	require.NoError(t, err)

	corrective, err := env.audit.Finish(ctx, session.ID, "alice", false)
	require.NoError(t, err)

	byProduct := correctiveByProduct(corrective)
	require.Contains(t, byProduct, "p2")
	assert.Equal(t, models.KindAudit, byProduct["p2"].Kind)
	assert.Equal(t, int64(0), byProduct["p2"].Quantity)
}

func TestReconciliationCoversLedgerAndCatalogUnion(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	// "legacy" exists only in the ledger: it was removed from the catalog
	// but its history must still be reconciled.
	env.catalog.products["t1/legacy"] = true
	seedLedger(t, env, "legacy", models.KindInbound, 5)
	delete(env.catalog.products, "t1/legacy")

	session, err := env.audit.Start(ctx, "t1", "alice")
	require.NoError(t, err)

	corrective, err := env.audit.Finish(ctx, session.ID, "alice", false)
	require.NoError(t, err)

	// Union = catalog {p1, p2} + ledger-only {legacy}.
	byProduct := correctiveByProduct(corrective)
	assert.Len(t, corrective, 3)
	require.Contains(t, byProduct, "legacy")
	assert.Equal(t, models.KindMissing, byProduct["legacy"].Kind)
	assert.Equal(t, int64(5), byProduct["legacy"].Quantity)
}

func TestFinishTwiceLeavesExactlyOneCorrectiveSet(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	seedLedger(t, env, "p1", models.KindInbound, 1)

	session, err := env.audit.Start(ctx, "t1", "alice")
	require.NoError(t, err)

	first, err := env.audit.Finish(ctx, session.ID, "alice", false)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	assert.Len(t, first, 2)

	// p1 was counted 0 times against 1 expected, so the first finish wrote
	// MISSING 1 and stock dropped to 0.
	available, err := env.inventory.AvailableStock(ctx, "t1", "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), available)

	// The second finish finds no ACTIVE session and writes nothing.
	_, err = env.audit.Finish(ctx, session.ID, "alice", false)
	require.ErrorIs(t, err, models.ErrSessionNotFound)

	available, err = env.inventory.AvailableStock(ctx, "t1", "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), available)
}

func TestFinishBroadcastsAuditClosed(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	session, err := env.audit.Start(ctx, "t1", "alice")
	require.NoError(t, err)

	corrective, err := env.audit.Finish(ctx, session.ID, "alice", false)
	require.NoError(t, err)

	closed := env.broadcast.byName("audit_closed")
	require.Len(t, closed, 1)
	assert.Equal(t, "audit:"+session.ID, closed[0].Room)

	payload, ok := closed[0].Payload.(auditClosedPayload)
	require.True(t, ok)
	assert.Equal(t, session.ID, payload.SessionID)
	assert.Len(t, payload.CorrectiveEvents, len(corrective))
}
