package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Hussein-Osamaa/madas-inventory/internal/domain/models"
)

// InsertSession stores a freshly started audit session.
func (r *MongoDBRepository) InsertSession(ctx context.Context, session models.AuditSession) error {
	if _, err := r.collection(colAuditSessions).InsertOne(ctx, session); err != nil {
		return fmt.Errorf("failed to insert audit session: %w", err)
	}
	return nil
}

func (r *MongoDBRepository) findSession(ctx context.Context, filter bson.M) (*models.AuditSession, error) {
	var session models.AuditSession
	err := r.collection(colAuditSessions).FindOne(ctx, filter).Decode(&session)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load audit session: %w", err)
	}
	return &session, nil
}

// SessionByID loads a session regardless of status.
func (r *MongoDBRepository) SessionByID(ctx context.Context, id string) (*models.AuditSession, error) {
	return r.findSession(ctx, bson.M{"_id": id})
}

// ActiveSessionByID loads a session only while it is still ACTIVE.
func (r *MongoDBRepository) ActiveSessionByID(ctx context.Context, id string) (*models.AuditSession, error) {
	return r.findSession(ctx, bson.M{"_id": id, "status": models.SessionActive})
}

// ActiveSessionByCode resolves a join code. Codes are only unique among
// ACTIVE sessions, so the status is part of the lookup.
func (r *MongoDBRepository) ActiveSessionByCode(ctx context.Context, joinCode string) (*models.AuditSession, error) {
	return r.findSession(ctx, bson.M{"join_code": joinCode, "status": models.SessionActive})
}

// ActiveSessionForWorker finds the ACTIVE session the worker currently
// participates in, if any.
func (r *MongoDBRepository) ActiveSessionForWorker(ctx context.Context, workerID string) (*models.AuditSession, error) {
	return r.findSession(ctx, bson.M{"participant_ids": workerID, "status": models.SessionActive})
}

// AddParticipant appends the worker with a zeroed counter. $addToSet keeps
// concurrent joins of the same worker idempotent.
func (r *MongoDBRepository) AddParticipant(ctx context.Context, sessionID, workerID string) error {
	update := bson.M{
		"$addToSet": bson.M{"participant_ids": workerID},
		"$set":      bson.M{"per_worker_scan_count." + workerID: int64(0)},
	}
	if _, err := r.collection(colAuditSessions).UpdateByID(ctx, sessionID, update); err != nil {
		return fmt.Errorf("failed to add audit participant: %w", err)
	}
	return nil
}

// ReplaceSessionAggregates overwrites the derived aggregates with values the
// caller recomputed from the observation set.
func (r *MongoDBRepository) ReplaceSessionAggregates(ctx context.Context, sessionID string, scannedKeys []string, perWorker map[string]int64) error {
	update := bson.M{"$set": bson.M{
		"scanned_keys":          scannedKeys,
		"per_worker_scan_count": perWorker,
	}}
	if _, err := r.collection(colAuditSessions).UpdateByID(ctx, sessionID, update); err != nil {
		return fmt.Errorf("failed to replace session aggregates: %w", err)
	}
	return nil
}

// TransitionSession performs a compare-and-set status change. Exactly one
// caller wins when several race on the same terminal transition.
func (r *MongoDBRepository) TransitionSession(ctx context.Context, sessionID string, from, to models.SessionStatus, finishedAt *time.Time) (bool, error) {
	filter := bson.M{"_id": sessionID, "status": from}
	set := bson.M{"status": to}
	if finishedAt != nil {
		set["finished_at"] = *finishedAt
	}

	res, err := r.collection(colAuditSessions).UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return false, fmt.Errorf("failed to transition audit session: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

// InsertScan stores one barcode observation.
func (r *MongoDBRepository) InsertScan(ctx context.Context, obs models.ScanObservation) error {
	if _, err := r.collection(colScanObservations).InsertOne(ctx, obs); err != nil {
		return fmt.Errorf("failed to insert scan observation: %w", err)
	}
	return nil
}

// ScansInWindow returns observations for the dedupe key since the given
// instant, oldest first.
func (r *MongoDBRepository) ScansInWindow(ctx context.Context, sessionID, workerID, barcode string, since time.Time) ([]models.ScanObservation, error) {
	filter := bson.M{
		"session_id":  sessionID,
		"worker_id":   workerID,
		"barcode":     barcode,
		"observed_at": bson.M{"$gte": since},
	}
	opts := options.Find().SetSort(bson.D{{Key: "observed_at", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.collection(colScanObservations).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query scan window: %w", err)
	}
	defer cursor.Close(ctx)

	var scans []models.ScanObservation
	if err := cursor.All(ctx, &scans); err != nil {
		return nil, fmt.Errorf("failed to decode scan window: %w", err)
	}
	return scans, nil
}

// DeleteScans removes duplicate observations the self-heal pass identified.
func (r *MongoDBRepository) DeleteScans(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := r.collection(colScanObservations).DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
		return fmt.Errorf("failed to delete scan observations: %w", err)
	}
	return nil
}

// ScansBySession returns every observation of a session, oldest first.
func (r *MongoDBRepository) ScansBySession(ctx context.Context, sessionID string) ([]models.ScanObservation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "observed_at", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.collection(colScanObservations).Find(ctx, bson.M{"session_id": sessionID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query session scans: %w", err)
	}
	defer cursor.Close(ctx)

	var scans []models.ScanObservation
	if err := cursor.All(ctx, &scans); err != nil {
		return nil, fmt.Errorf("failed to decode session scans: %w", err)
	}
	return scans, nil
}
