package audit

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Hussein-Osamaa/madas-inventory/internal/domain/models"
	"github.com/Hussein-Osamaa/madas-inventory/internal/repository"
	"github.com/Hussein-Osamaa/madas-inventory/internal/service/inventory"
	"github.com/Hussein-Osamaa/madas-inventory/pkg/broadcast"
	"github.com/Hussein-Osamaa/madas-inventory/pkg/clients/catalog"
	"github.com/Hussein-Osamaa/madas-inventory/pkg/clients/directory"
)

const joinCodeAttempts = 50

// Service drives the audit session lifecycle: start, join, scan, finish,
// cancel. Reconciliation and scan recording live in this package too.
type Service struct {
	store        repository.Store
	inventory    *inventory.Service
	catalog      catalog.Client
	directory    directory.Client
	broadcaster  broadcast.Broadcaster
	dedupeWindow time.Duration
	logger       *zap.Logger

	now func() time.Time
}

// NewService wires the audit service. The broadcaster is injected so tests
// run with a no-op and production runs with the redis channel.
func NewService(
	store repository.Store,
	inventorySvc *inventory.Service,
	catalogClient catalog.Client,
	directoryClient directory.Client,
	broadcaster broadcast.Broadcaster,
	dedupeWindow time.Duration,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if broadcaster == nil {
		broadcaster = broadcast.NewNoop()
	}
	return &Service{
		store:        store,
		inventory:    inventorySvc,
		catalog:      catalogClient,
		directory:    directoryClient,
		broadcaster:  broadcaster,
		dedupeWindow: dedupeWindow,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Start opens a new counting session for the tenant. The join code only has
// to be unique among currently ACTIVE sessions, so generation retries until
// a free code comes up.
func (s *Service) Start(ctx context.Context, tenantID, creatorID string) (*models.AuditSession, error) {
	tenantOK, err := s.directory.TenantExists(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("validate tenant: %w", err)
	}
	if !tenantOK {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownTenant, tenantID)
	}

	joinCode, err := s.generateJoinCode(ctx)
	if err != nil {
		return nil, err
	}

	session := models.AuditSession{
		ID:                 uuid.NewString(),
		TenantID:           tenantID,
		JoinCode:           joinCode,
		CreatorID:          creatorID,
		ParticipantIDs:     []string{creatorID},
		PerWorkerScanCount: map[string]int64{creatorID: 0},
		ScannedKeys:        []string{},
		Status:             models.SessionActive,
		StartedAt:          s.now(),
	}

	if err := s.store.InsertSession(ctx, session); err != nil {
		return nil, fmt.Errorf("insert audit session: %w", err)
	}

	s.logger.Info("audit session started",
		zap.String("session_id", session.ID),
		zap.String("tenant_id", tenantID))
	return &session, nil
}

func (s *Service) generateJoinCode(ctx context.Context) (string, error) {
	for i := 0; i < joinCodeAttempts; i++ {
		code := fmt.Sprintf("%06d", rand.Intn(1000000))
		existing, err := s.store.ActiveSessionByCode(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check join code: %w", err)
		}
		if existing == nil {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not generate a free join code after %d attempts", joinCodeAttempts)
}

// Join adds a worker to the session behind the code. Re-joining the same
// session is idempotent; counting for two sessions at once is rejected.
func (s *Service) Join(ctx context.Context, joinCode, workerID string) (*models.AuditSession, error) {
	session, err := s.store.ActiveSessionByCode(ctx, joinCode)
	if err != nil {
		return nil, fmt.Errorf("resolve join code: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("%w: no active session with code %s", models.ErrSessionNotFound, joinCode)
	}

	if session.HasParticipant(workerID) {
		return session, nil
	}

	current, err := s.store.ActiveSessionForWorker(ctx, workerID)
	if err != nil {
		return nil, fmt.Errorf("check worker membership: %w", err)
	}
	if current != nil && current.ID != session.ID {
		return nil, fmt.Errorf("%w: worker %s counts for session %s", models.ErrAlreadyInSession, workerID, current.ID)
	}

	if err := s.store.AddParticipant(ctx, session.ID, workerID); err != nil {
		return nil, fmt.Errorf("add participant: %w", err)
	}

	session.ParticipantIDs = append(session.ParticipantIDs, workerID)
	if session.PerWorkerScanCount == nil {
		session.PerWorkerScanCount = make(map[string]int64)
	}
	session.PerWorkerScanCount[workerID] = 0
	return session, nil
}

// Finish closes the session and reconciles counted stock against the ledger.
// The ACTIVE -> FINISHED transition is claimed atomically first: of any
// concurrent finish calls exactly one proceeds to reconciliation, the rest
// see no ACTIVE session.
func (s *Service) Finish(ctx context.Context, sessionID, requesterID string, isPlatformAdmin bool) ([]models.StockEvent, error) {
	session, err := s.store.SessionByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("%w: %s", models.ErrSessionNotFound, sessionID)
	}

	if !isPlatformAdmin && session.CreatorID != requesterID {
		return nil, fmt.Errorf("%w: only the session creator or a platform admin may finish", models.ErrForbidden)
	}

	finishedAt := s.now()
	claimed, err := s.store.TransitionSession(ctx, sessionID, models.SessionActive, models.SessionFinished, &finishedAt)
	if err != nil {
		return nil, fmt.Errorf("finish session: %w", err)
	}
	if !claimed {
		return nil, fmt.Errorf("%w: session %s is not active", models.ErrSessionNotFound, sessionID)
	}

	corrective, err := s.reconcile(ctx, session)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, session.ID, broadcast.EventAuditClosed, auditClosedPayload{
		SessionID:        session.ID,
		TenantID:         session.TenantID,
		CorrectiveEvents: corrective,
	})

	s.logger.Info("audit session finished",
		zap.String("session_id", session.ID),
		zap.Int("corrective_events", len(corrective)))
	return corrective, nil
}

// Cancel discards the session without touching the ledger.
func (s *Service) Cancel(ctx context.Context, sessionID string) error {
	claimed, err := s.store.TransitionSession(ctx, sessionID, models.SessionActive, models.SessionCancelled, nil)
	if err != nil {
		return fmt.Errorf("cancel session: %w", err)
	}
	if !claimed {
		return fmt.Errorf("%w: session %s is not active", models.ErrSessionNotFound, sessionID)
	}
	return nil
}

// SessionSummary is the read model for the session dashboard.
type SessionSummary struct {
	SessionID       string                   `json:"session_id"`
	TenantID        string                   `json:"tenant_id"`
	Status          models.SessionStatus     `json:"status"`
	Participants    []string                 `json:"participants"`
	PerWorkerCounts map[string]int64         `json:"per_worker_counts"`
	TotalScans      int64                    `json:"total_scans"`
	LastScanned     *models.ScanObservation  `json:"last_scanned,omitempty"`
	RecentScans     []models.ScanObservation `json:"recent_scans"`
}

// Summary derives the session dashboard view from the observation set. It
// works on terminal sessions too.
func (s *Service) Summary(ctx context.Context, sessionID string) (*SessionSummary, error) {
	session, err := s.store.SessionByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("%w: %s", models.ErrSessionNotFound, sessionID)
	}

	scans, err := s.store.ScansBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session scans: %w", err)
	}

	agg := aggregateScans(session.ParticipantIDs, scans)
	return &SessionSummary{
		SessionID:       session.ID,
		TenantID:        session.TenantID,
		Status:          session.Status,
		Participants:    session.ParticipantIDs,
		PerWorkerCounts: agg.perWorker,
		TotalScans:      int64(len(scans)),
		LastScanned:     agg.last,
		RecentScans:     agg.recent,
	}, nil
}

func (s *Service) publish(ctx context.Context, sessionID, event string, payload any) {
	if err := s.broadcaster.Publish(ctx, broadcast.SessionRoom(sessionID), event, payload); err != nil {
		s.logger.Warn("broadcast failed",
			zap.String("session_id", sessionID),
			zap.String("event", event),
			zap.Error(err))
	}
}
