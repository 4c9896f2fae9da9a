package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Hussein-Osamaa/madas-inventory/internal/domain/models"
	"github.com/Hussein-Osamaa/madas-inventory/internal/repository"
)

var _ repository.Store = (*Store)(nil)

type balanceKey struct {
	tenantID  string
	productID string
}

// Store is a mutex-guarded in-memory implementation of repository.Store. It
// backs the test suites and STORE_DRIVER=memory runs where no MongoDB is
// reachable.
type Store struct {
	mu sync.RWMutex

	events   []models.StockEvent
	balances map[balanceKey]models.Balance
	sessions map[string]*models.AuditSession
	scans    map[string]models.ScanObservation

	atomic bool
}

// New returns an empty store that reports transaction support. Writes are
// serialized by the store mutex, so the transactional guarantee holds
// trivially within one process.
func New() *Store {
	return &Store{
		balances: make(map[balanceKey]models.Balance),
		sessions: make(map[string]*models.AuditSession),
		scans:    make(map[string]models.ScanObservation),
		atomic:   true,
	}
}

// NewSequential returns a store that reports no transaction support, which
// forces callers onto the sequential-best-effort write path.
func NewSequential() *Store {
	s := New()
	s.atomic = false
	return s
}

func (s *Store) SupportsTransactions() bool { return s.atomic }

func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (s *Store) AppendStockEvent(_ context.Context, ev models.StockEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *Store) StockTotals(_ context.Context, tenantID, productID string) (int64, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var additive, subtractive int64
	for _, ev := range s.events {
		if ev.TenantID != tenantID || ev.ProductID != productID {
			continue
		}
		switch ev.Kind.Delta() {
		case 1:
			additive += ev.Quantity
		case -1:
			subtractive += ev.Quantity
		}
	}
	return additive, subtractive, nil
}

func (s *Store) DistinctProducts(_ context.Context, tenantID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	var products []string
	for _, ev := range s.events {
		if ev.TenantID != tenantID {
			continue
		}
		if _, ok := seen[ev.ProductID]; ok {
			continue
		}
		seen[ev.ProductID] = struct{}{}
		products = append(products, ev.ProductID)
	}
	sort.Strings(products)
	return products, nil
}

func (s *Store) LedgerKeys(_ context.Context) ([]repository.LedgerKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := make(map[balanceKey]time.Time)
	for _, ev := range s.events {
		k := balanceKey{ev.TenantID, ev.ProductID}
		if ev.OccurredAt.After(latest[k]) {
			latest[k] = ev.OccurredAt
		}
	}

	keys := make([]repository.LedgerKey, 0, len(latest))
	for k, at := range latest {
		keys = append(keys, repository.LedgerKey{TenantID: k.tenantID, ProductID: k.productID, LastEventAt: at})
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].TenantID != keys[j].TenantID {
			return keys[i].TenantID < keys[j].TenantID
		}
		return keys[i].ProductID < keys[j].ProductID
	})
	return keys, nil
}

func (s *Store) UpsertBalance(_ context.Context, balance models.Balance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[balanceKey{balance.TenantID, balance.ProductID}] = balance
	return nil
}

func (s *Store) Balance(_ context.Context, tenantID, productID string) (*models.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.balances[balanceKey{tenantID, productID}]
	if !ok {
		return nil, nil
	}
	copied := b
	return &copied, nil
}

func (s *Store) InsertSession(_ context.Context, session models.AuditSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := session
	s.sessions[session.ID] = &copied
	return nil
}

func (s *Store) findSession(match func(*models.AuditSession) bool) *models.AuditSession {
	for _, sess := range s.sessions {
		if match(sess) {
			copied := *sess
			return &copied
		}
	}
	return nil
}

func (s *Store) SessionByID(_ context.Context, id string) (*models.AuditSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findSession(func(sess *models.AuditSession) bool { return sess.ID == id }), nil
}

func (s *Store) ActiveSessionByID(_ context.Context, id string) (*models.AuditSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findSession(func(sess *models.AuditSession) bool {
		return sess.ID == id && sess.Status == models.SessionActive
	}), nil
}

func (s *Store) ActiveSessionByCode(_ context.Context, joinCode string) (*models.AuditSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findSession(func(sess *models.AuditSession) bool {
		return sess.JoinCode == joinCode && sess.Status == models.SessionActive
	}), nil
}

func (s *Store) ActiveSessionForWorker(_ context.Context, workerID string) (*models.AuditSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findSession(func(sess *models.AuditSession) bool {
		return sess.Status == models.SessionActive && sess.HasParticipant(workerID)
	}), nil
}

func (s *Store) AddParticipant(_ context.Context, sessionID, workerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	if !sess.HasParticipant(workerID) {
		sess.ParticipantIDs = append(sess.ParticipantIDs, workerID)
	}
	if sess.PerWorkerScanCount == nil {
		sess.PerWorkerScanCount = make(map[string]int64)
	}
	sess.PerWorkerScanCount[workerID] = 0
	return nil
}

func (s *Store) ReplaceSessionAggregates(_ context.Context, sessionID string, scannedKeys []string, perWorker map[string]int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	sess.ScannedKeys = append([]string(nil), scannedKeys...)
	sess.PerWorkerScanCount = make(map[string]int64, len(perWorker))
	for w, n := range perWorker {
		sess.PerWorkerScanCount[w] = n
	}
	return nil
}

func (s *Store) TransitionSession(_ context.Context, sessionID string, from, to models.SessionStatus, finishedAt *time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok || sess.Status != from {
		return false, nil
	}
	sess.Status = to
	if finishedAt != nil {
		at := *finishedAt
		sess.FinishedAt = &at
	}
	return true, nil
}

func (s *Store) InsertScan(_ context.Context, obs models.ScanObservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scans[obs.ID] = obs
	return nil
}

func (s *Store) ScansInWindow(_ context.Context, sessionID, workerID, barcode string, since time.Time) ([]models.ScanObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []models.ScanObservation
	for _, obs := range s.scans {
		if obs.SessionID != sessionID || obs.WorkerID != workerID || obs.Barcode != barcode {
			continue
		}
		if obs.ObservedAt.Before(since) {
			continue
		}
		matched = append(matched, obs)
	}
	sortScans(matched)
	return matched, nil
}

func (s *Store) DeleteScans(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.scans, id)
	}
	return nil
}

func (s *Store) ScansBySession(_ context.Context, sessionID string) ([]models.ScanObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []models.ScanObservation
	for _, obs := range s.scans {
		if obs.SessionID == sessionID {
			matched = append(matched, obs)
		}
	}
	sortScans(matched)
	return matched, nil
}

func sortScans(scans []models.ScanObservation) {
	sort.Slice(scans, func(i, j int) bool {
		if !scans[i].ObservedAt.Equal(scans[j].ObservedAt) {
			return scans[i].ObservedAt.Before(scans[j].ObservedAt)
		}
		return scans[i].ID < scans[j].ID
	})
}
