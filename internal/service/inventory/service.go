package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Hussein-Osamaa/madas-inventory/internal/domain/models"
	"github.com/Hussein-Osamaa/madas-inventory/internal/repository"
	"github.com/Hussein-Osamaa/madas-inventory/pkg/clients/catalog"
	"github.com/Hussein-Osamaa/madas-inventory/pkg/clients/directory"
)

// Service validates and appends stock ledger entries and answers stock
// queries. The ledger is the source of truth; the balance cache it maintains
// only exists to serve latency-sensitive reads.
type Service struct {
	store     repository.Store
	catalog   catalog.Client
	directory directory.Client
	logger    *zap.Logger
}

// NewService wires the inventory service.
func NewService(store repository.Store, catalogClient catalog.Client, directoryClient directory.Client, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:     store,
		catalog:   catalogClient,
		directory: directoryClient,
		logger:    logger,
	}
}

// RecordEventInput carries one requested ledger append.
type RecordEventInput struct {
	TenantID    string
	ProductID   string
	Kind        models.EventKind
	Quantity    int64
	ReferenceID string
	ActorID     string
}

// RecordEvent validates the request, appends the stock event and updates the
// balance cache. Validation happens before any write, so a rejected call
// leaves no partial state.
func (s *Service) RecordEvent(ctx context.Context, in RecordEventInput) (string, error) {
	if !in.Kind.IsValid() {
		return "", fmt.Errorf("%w: %q", models.ErrInvalidKind, in.Kind)
	}
	if in.Quantity < 0 {
		return "", fmt.Errorf("%w: quantity %d is negative", models.ErrInvalidQuantity, in.Quantity)
	}
	if in.Quantity == 0 && in.Kind != models.KindAudit {
		return "", fmt.Errorf("%w: quantity must be positive for kind %s", models.ErrInvalidQuantity, in.Kind)
	}

	tenantOK, err := s.directory.TenantExists(ctx, in.TenantID)
	if err != nil {
		return "", fmt.Errorf("validate tenant: %w", err)
	}
	if !tenantOK {
		return "", fmt.Errorf("%w: %s", models.ErrUnknownTenant, in.TenantID)
	}

	productOK, err := s.catalog.ProductExists(ctx, in.TenantID, in.ProductID)
	if err != nil {
		return "", fmt.Errorf("validate product: %w", err)
	}
	if !productOK {
		return "", fmt.Errorf("%w: %s", models.ErrProductNotFound, in.ProductID)
	}

	ev := models.StockEvent{
		ID:          uuid.NewString(),
		TenantID:    in.TenantID,
		ProductID:   in.ProductID,
		Kind:        in.Kind,
		Quantity:    in.Quantity,
		ReferenceID: in.ReferenceID,
		ActorID:     in.ActorID,
		OccurredAt:  time.Now().UTC(),
	}

	if err := s.ApplyEvent(ctx, ev); err != nil {
		return "", err
	}
	return ev.ID, nil
}

// ApplyEvent appends an already-validated event and maintains the balance
// cache. Reconciliation uses this directly because its product set may
// contain ledger-only products no longer present in the catalog.
//
// When the store supports multi-document transactions, the append and the
// cache update commit as one unit. Otherwise they run sequentially: the
// ledger write decides success, and a failed cache update only degrades
// freshness until the rebuild job runs.
func (s *Service) ApplyEvent(ctx context.Context, ev models.StockEvent) error {
	apply := func(ctx context.Context) error {
		if err := s.store.AppendStockEvent(ctx, ev); err != nil {
			return err
		}
		return s.updateBalance(ctx, ev)
	}

	if s.store.SupportsTransactions() {
		if err := s.store.WithinTransaction(ctx, apply); err != nil {
			return fmt.Errorf("apply stock event: %w", err)
		}
		return nil
	}

	if err := s.store.AppendStockEvent(ctx, ev); err != nil {
		return fmt.Errorf("append stock event: %w", err)
	}
	if err := s.updateBalance(ctx, ev); err != nil {
		s.logger.Warn("balance cache update failed, cache stale until rebuild",
			zap.String("tenant_id", ev.TenantID),
			zap.String("product_id", ev.ProductID),
			zap.Error(err))
	}
	return nil
}

// updateBalance rederives the cached quantity from the ledger totals rather
// than incrementing the previous value. The two differ once a key has been
// clamped at zero: an oversold product that gets restocked must land on
// max(0, sum), not on clamp-then-add.
func (s *Service) updateBalance(ctx context.Context, ev models.StockEvent) error {
	additive, subtractive, err := s.store.StockTotals(ctx, ev.TenantID, ev.ProductID)
	if err != nil {
		return err
	}

	next := additive - subtractive
	if next < 0 {
		next = 0
	}

	return s.store.UpsertBalance(ctx, models.Balance{
		TenantID:          ev.TenantID,
		ProductID:         ev.ProductID,
		AvailableQuantity: next,
		LastEventAt:       ev.OccurredAt,
	})
}

// AvailableStock computes the available quantity straight from the ledger.
// This is the authoritative read path; the cache must always agree with it.
func (s *Service) AvailableStock(ctx context.Context, tenantID, productID string) (int64, error) {
	additive, subtractive, err := s.store.StockTotals(ctx, tenantID, productID)
	if err != nil {
		return 0, fmt.Errorf("compute available stock: %w", err)
	}

	available := additive - subtractive
	if available < 0 {
		available = 0
	}
	return available, nil
}

// CachedBalance serves the materialized balance, falling back to the ledger
// when no cache row exists yet.
func (s *Service) CachedBalance(ctx context.Context, tenantID, productID string) (int64, error) {
	balance, err := s.store.Balance(ctx, tenantID, productID)
	if err != nil {
		return 0, fmt.Errorf("load cached balance: %w", err)
	}
	if balance == nil {
		return s.AvailableStock(ctx, tenantID, productID)
	}
	return balance.AvailableQuantity, nil
}

// RebuildBalances recomputes every balance row from the ledger. It repairs
// any staleness the sequential write fallback may have left behind and
// returns the number of keys rebuilt.
func (s *Service) RebuildBalances(ctx context.Context) (int, error) {
	keys, err := s.store.LedgerKeys(ctx)
	if err != nil {
		return 0, fmt.Errorf("list ledger keys: %w", err)
	}

	for _, key := range keys {
		available, err := s.AvailableStock(ctx, key.TenantID, key.ProductID)
		if err != nil {
			return 0, err
		}
		err = s.store.UpsertBalance(ctx, models.Balance{
			TenantID:          key.TenantID,
			ProductID:         key.ProductID,
			AvailableQuantity: available,
			LastEventAt:       key.LastEventAt,
		})
		if err != nil {
			return 0, fmt.Errorf("rebuild balance for %s/%s: %w", key.TenantID, key.ProductID, err)
		}
	}
	return len(keys), nil
}
