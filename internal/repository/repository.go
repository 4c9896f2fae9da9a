package repository

import (
	"context"
	"time"

	"github.com/Hussein-Osamaa/madas-inventory/internal/domain/models"
)

// LedgerKey identifies one (tenant, product) balance key present in the
// ledger, together with the timestamp of its most recent event.
type LedgerKey struct {
	TenantID    string
	ProductID   string
	LastEventAt time.Time
}

// Ledger is the append-only stock event store. Events are inserted exactly
// once and never touched again.
type Ledger interface {
	AppendStockEvent(ctx context.Context, ev models.StockEvent) error
	// StockTotals returns the additive and subtractive quantity sums for one
	// (tenant, product) key.
	StockTotals(ctx context.Context, tenantID, productID string) (additive, subtractive int64, err error)
	DistinctProducts(ctx context.Context, tenantID string) ([]string, error)
	LedgerKeys(ctx context.Context) ([]LedgerKey, error)
}

// Balances is the materialized balance cache. Finders return nil when no row
// exists for the key.
type Balances interface {
	UpsertBalance(ctx context.Context, balance models.Balance) error
	Balance(ctx context.Context, tenantID, productID string) (*models.Balance, error)
}

// Sessions stores audit sessions. Finders return nil when nothing matches.
type Sessions interface {
	InsertSession(ctx context.Context, session models.AuditSession) error
	SessionByID(ctx context.Context, id string) (*models.AuditSession, error)
	ActiveSessionByID(ctx context.Context, id string) (*models.AuditSession, error)
	ActiveSessionByCode(ctx context.Context, joinCode string) (*models.AuditSession, error)
	ActiveSessionForWorker(ctx context.Context, workerID string) (*models.AuditSession, error)
	AddParticipant(ctx context.Context, sessionID, workerID string) error
	// ReplaceSessionAggregates overwrites the derived scan aggregates. The
	// caller recomputes them from the observation set, never increments.
	ReplaceSessionAggregates(ctx context.Context, sessionID string, scannedKeys []string, perWorker map[string]int64) error
	// TransitionSession atomically moves a session from one status to another
	// and reports whether this call performed the transition.
	TransitionSession(ctx context.Context, sessionID string, from, to models.SessionStatus, finishedAt *time.Time) (bool, error)
}

// Scans stores individual barcode observations.
type Scans interface {
	InsertScan(ctx context.Context, obs models.ScanObservation) error
	// ScansInWindow returns observations for (session, worker, barcode) with
	// observed_at >= since, oldest first.
	ScansInWindow(ctx context.Context, sessionID, workerID, barcode string, since time.Time) ([]models.ScanObservation, error)
	DeleteScans(ctx context.Context, ids []string) error
	ScansBySession(ctx context.Context, sessionID string) ([]models.ScanObservation, error)
}

// Store is the full persistence surface of the inventory core.
//
// SupportsTransactions is a capability probed once at startup, not inferred
// from error messages. When it reports false, callers fall back to sequential
// writes with the ledger as the authoritative record.
type Store interface {
	Ledger
	Balances
	Sessions
	Scans

	SupportsTransactions() bool
	// WithinTransaction runs fn inside a multi-document transaction. Callers
	// must check SupportsTransactions first; stores without transaction
	// support return an error here rather than silently degrading.
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
