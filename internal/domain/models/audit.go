package models

import (
	"strings"
	"time"
)

// SessionStatus is the lifecycle state of an audit session.
type SessionStatus string

const (
	SessionActive    SessionStatus = "ACTIVE"
	SessionFinished  SessionStatus = "FINISHED"
	SessionCancelled SessionStatus = "CANCELLED"
)

// AuditSession is a time-boxed physical counting exercise for one tenant.
// Workers join via the 6-digit code while the session is ACTIVE; FINISHED and
// CANCELLED are terminal.
type AuditSession struct {
	ID                 string           `bson:"_id" json:"id"`
	TenantID           string           `bson:"tenant_id" json:"tenant_id"`
	JoinCode           string           `bson:"join_code" json:"join_code"`
	CreatorID          string           `bson:"creator_id" json:"creator_id"`
	ParticipantIDs     []string         `bson:"participant_ids" json:"participant_ids"`
	PerWorkerScanCount map[string]int64 `bson:"per_worker_scan_count" json:"per_worker_scan_count"`
	ScannedKeys        []string         `bson:"scanned_keys" json:"scanned_keys"`
	Status             SessionStatus    `bson:"status" json:"status"`
	StartedAt          time.Time        `bson:"started_at" json:"started_at"`
	FinishedAt         *time.Time       `bson:"finished_at,omitempty" json:"finished_at,omitempty"`
}

// HasParticipant reports whether the worker already joined this session.
func (s *AuditSession) HasParticipant(workerID string) bool {
	for _, id := range s.ParticipantIDs {
		if id == workerID {
			return true
		}
	}
	return false
}

// ScanObservation records a single barcode observation by one worker. It is
// immutable and only ever attached to a session that was ACTIVE at insert
// time; duplicates created by racing scanners are pruned afterwards.
type ScanObservation struct {
	ID         string    `bson:"_id" json:"id"`
	SessionID  string    `bson:"session_id" json:"session_id"`
	ProductID  string    `bson:"product_id" json:"product_id"`
	Barcode    string    `bson:"barcode" json:"barcode"`
	WorkerID   string    `bson:"worker_id" json:"worker_id"`
	ObservedAt time.Time `bson:"observed_at" json:"observed_at"`
}

// NormalizeBarcode canonicalizes a scanned code for comparison: scanners and
// label printers disagree on case, hyphens and embedded whitespace.
func NormalizeBarcode(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch r {
		case ' ', '\t', '\n', '\r', '-':
			continue
		}
		b.WriteRune(r)
	}
	return strings.ToUpper(b.String())
}
