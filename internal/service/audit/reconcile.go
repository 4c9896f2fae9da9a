package audit

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Hussein-Osamaa/madas-inventory/internal/domain/models"
)

// reconcile compares counted stock against ledger-expected stock for every
// product ever relevant to the tenant and writes exactly one corrective
// event per product. Products the audit never touched still get an AUDIT
// marker, which is what makes "this product was reconciled in this session"
// provable afterwards.
func (s *Service) reconcile(ctx context.Context, session *models.AuditSession) ([]models.StockEvent, error) {
	products, err := s.relevantProducts(ctx, session.TenantID)
	if err != nil {
		return nil, err
	}

	scans, err := s.store.ScansBySession(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("load session scans: %w", err)
	}
	counted := make(map[string]int64, len(scans))
	for _, obs := range scans {
		counted[obs.ProductID]++
	}

	referenceID := "audit:" + session.ID
	corrective := make([]models.StockEvent, 0, len(products))

	for _, productID := range products {
		expected, err := s.inventory.AvailableStock(ctx, session.TenantID, productID)
		if err != nil {
			return nil, err
		}

		diff := counted[productID] - expected

		ev := models.StockEvent{
			ID:          uuid.NewString(),
			TenantID:    session.TenantID,
			ProductID:   productID,
			ReferenceID: referenceID,
			ActorID:     session.CreatorID,
			OccurredAt:  time.Now().UTC(),
		}
		switch {
		case diff < 0:
			ev.Kind = models.KindMissing
			ev.Quantity = -diff
		case diff > 0:
			ev.Kind = models.KindAdjustment
			ev.Quantity = diff
		default:
			ev.Kind = models.KindAudit
			ev.Quantity = 0
		}

		if err := s.inventory.ApplyEvent(ctx, ev); err != nil {
			return nil, fmt.Errorf("apply corrective event for %s: %w", productID, err)
		}
		corrective = append(corrective, ev)
	}

	return corrective, nil
}

// relevantProducts is the union of every product id the tenant's ledger has
// seen and every product id in the tenant's catalog. A product deleted from
// the catalog but carrying ledger history still gets reconciled.
func (s *Service) relevantProducts(ctx context.Context, tenantID string) ([]string, error) {
	ledgerProducts, err := s.store.DistinctProducts(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list ledger products: %w", err)
	}

	catalogProducts, err := s.catalog.ListProductIDs(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list catalog products: %w", err)
	}

	union := make(map[string]struct{}, len(ledgerProducts)+len(catalogProducts))
	for _, id := range ledgerProducts {
		union[id] = struct{}{}
	}
	for _, id := range catalogProducts {
		union[id] = struct{}{}
	}

	products := make([]string, 0, len(union))
	for id := range union {
		products = append(products, id)
	}
	sort.Strings(products)
	return products, nil
}
