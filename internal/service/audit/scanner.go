package audit

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Hussein-Osamaa/madas-inventory/internal/domain/models"
	"github.com/Hussein-Osamaa/madas-inventory/pkg/broadcast"
	"github.com/Hussein-Osamaa/madas-inventory/pkg/clients/catalog"
)

const recentScanLimit = 20

// scanUpdatePayload is broadcast to the session room after every recorded
// scan so counting screens stay live.
type scanUpdatePayload struct {
	SessionID       string                   `json:"session_id"`
	TotalScans      int64                    `json:"total_scans"`
	PerWorkerCounts map[string]int64         `json:"per_worker_counts"`
	LastScanned     *models.ScanObservation  `json:"last_scanned,omitempty"`
	RecentScans     []models.ScanObservation `json:"recent_scans"`
}

// auditClosedPayload is broadcast once when a session is reconciled.
type auditClosedPayload struct {
	SessionID        string              `json:"session_id"`
	TenantID         string              `json:"tenant_id"`
	CorrectiveEvents []models.StockEvent `json:"corrective_events"`
}

// Scan records one barcode observation for a worker.
//
// Repeat scans of the same barcode by the same worker inside the dedupe
// window are collapsed: handheld scanners double-trigger, and holding the
// button a beat too long must not count an item twice. The repeat still
// resolves to the product so the client shows a consistent response.
//
// Two scans can both pass the duplicate check before either is committed.
// Instead of locking that window closed, the recorder inserts, re-reads the
// window, keeps the earliest observation and deletes the rest. Session
// aggregates are then recomputed from the surviving observation set, never
// incremented, so a deleted duplicate cannot leave them inflated.
func (s *Service) Scan(ctx context.Context, sessionID, barcode, workerID string) (*catalog.Product, error) {
	session, err := s.store.ActiveSessionByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("%w: no active session %s", models.ErrSessionNotFound, sessionID)
	}

	product, err := s.catalog.ResolveBarcode(ctx, session.TenantID, barcode)
	if err != nil {
		return nil, fmt.Errorf("resolve barcode: %w", err)
	}
	if product == nil {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownBarcode, barcode)
	}

	normalized := models.NormalizeBarcode(barcode)
	observedAt := s.now()
	since := observedAt.Add(-s.dedupeWindow)

	recent, err := s.store.ScansInWindow(ctx, sessionID, workerID, normalized, since)
	if err != nil {
		return nil, fmt.Errorf("check dedupe window: %w", err)
	}
	if len(recent) > 0 {
		return product, nil
	}

	obs := models.ScanObservation{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		ProductID:  product.ID,
		Barcode:    normalized,
		WorkerID:   workerID,
		ObservedAt: observedAt,
	}
	if err := s.store.InsertScan(ctx, obs); err != nil {
		return nil, fmt.Errorf("insert scan: %w", err)
	}

	if err := s.healScanWindow(ctx, sessionID, workerID, normalized, since); err != nil {
		return nil, err
	}

	if err := s.refreshAggregates(ctx, session); err != nil {
		return nil, err
	}

	return product, nil
}

// healScanWindow removes duplicate observations that slipped in between the
// duplicate check and the insert. The earliest observation survives.
func (s *Service) healScanWindow(ctx context.Context, sessionID, workerID, barcode string, since time.Time) error {
	window, err := s.store.ScansInWindow(ctx, sessionID, workerID, barcode, since)
	if err != nil {
		return fmt.Errorf("re-read dedupe window: %w", err)
	}
	if len(window) <= 1 {
		return nil
	}

	// ScansInWindow sorts oldest first; everything after the head is a racer.
	duplicateIDs := make([]string, 0, len(window)-1)
	for _, dup := range window[1:] {
		duplicateIDs = append(duplicateIDs, dup.ID)
	}
	if err := s.store.DeleteScans(ctx, duplicateIDs); err != nil {
		return fmt.Errorf("delete duplicate scans: %w", err)
	}
	return nil
}

// refreshAggregates rederives the session's scanned keys and per-worker
// counters from the full observation set and broadcasts the update.
func (s *Service) refreshAggregates(ctx context.Context, session *models.AuditSession) error {
	scans, err := s.store.ScansBySession(ctx, session.ID)
	if err != nil {
		return fmt.Errorf("load session scans: %w", err)
	}

	agg := aggregateScans(session.ParticipantIDs, scans)
	if err := s.store.ReplaceSessionAggregates(ctx, session.ID, agg.scannedKeys, agg.perWorker); err != nil {
		return fmt.Errorf("replace session aggregates: %w", err)
	}

	s.publish(ctx, session.ID, broadcast.EventScanUpdate, scanUpdatePayload{
		SessionID:       session.ID,
		TotalScans:      int64(len(scans)),
		PerWorkerCounts: agg.perWorker,
		LastScanned:     agg.last,
		RecentScans:     agg.recent,
	})
	return nil
}

type scanAggregates struct {
	scannedKeys []string
	perWorker   map[string]int64
	last        *models.ScanObservation
	recent      []models.ScanObservation
}

// aggregateScans derives every session aggregate from the observation set.
// Participants keep a zero counter even before their first scan.
func aggregateScans(participants []string, scans []models.ScanObservation) scanAggregates {
	perWorker := make(map[string]int64, len(participants))
	for _, worker := range participants {
		perWorker[worker] = 0
	}

	keySet := make(map[string]struct{})
	for _, obs := range scans {
		perWorker[obs.WorkerID]++
		keySet[obs.ProductID] = struct{}{}
	}

	scannedKeys := make([]string, 0, len(keySet))
	for key := range keySet {
		scannedKeys = append(scannedKeys, key)
	}
	sort.Strings(scannedKeys)

	agg := scanAggregates{
		scannedKeys: scannedKeys,
		perWorker:   perWorker,
		recent:      []models.ScanObservation{},
	}
	if len(scans) == 0 {
		return agg
	}

	last := scans[len(scans)-1]
	agg.last = &last

	// Newest first, capped.
	start := len(scans) - recentScanLimit
	if start < 0 {
		start = 0
	}
	for i := len(scans) - 1; i >= start; i-- {
		agg.recent = append(agg.recent, scans[i])
	}
	return agg
}
