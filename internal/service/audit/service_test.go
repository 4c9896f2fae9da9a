package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hussein-Osamaa/madas-inventory/internal/domain/models"
)

func TestStartCreatesActiveSessionWithCreator(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	session, err := env.audit.Start(ctx, "t1", "alice")
	require.NoError(t, err)

	assert.Len(t, session.JoinCode, 6)
	assert.Equal(t, models.SessionActive, session.Status)
	assert.Equal(t, []string{"alice"}, session.ParticipantIDs)
	assert.Equal(t, int64(0), session.PerWorkerScanCount["alice"])
}

func TestStartRejectsUnknownTenant(t *testing.T) {
	env := newTestEnv()

	_, err := env.audit.Start(context.Background(), "nope", "alice")
	assert.ErrorIs(t, err, models.ErrUnknownTenant)
}

func TestJoinAddsWorkerAndIsIdempotent(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	session, err := env.audit.Start(ctx, "t1", "alice")
	require.NoError(t, err)

	joined, err := env.audit.Join(ctx, session.JoinCode, "bob")
	require.NoError(t, err)
	assert.Equal(t, session.ID, joined.ID)
	assert.True(t, joined.HasParticipant("bob"))

	// Joining again returns the same session without duplicating bob.
	again, err := env.audit.Join(ctx, session.JoinCode, "bob")
	require.NoError(t, err)
	assert.Equal(t, session.ID, again.ID)

	stored, err := env.store.SessionByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, stored.ParticipantIDs)
}

func TestJoinUnknownCodeFails(t *testing.T) {
	env := newTestEnv()

	_, err := env.audit.Join(context.Background(), "000000", "bob")
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
}

func TestJoinRejectsWorkerCountingElsewhere(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	first, err := env.audit.Start(ctx, "t1", "alice")
	require.NoError(t, err)
	second, err := env.audit.Start(ctx, "t1", "carol")
	require.NoError(t, err)

	_, err = env.audit.Join(ctx, first.JoinCode, "bob")
	require.NoError(t, err)

	_, err = env.audit.Join(ctx, second.JoinCode, "bob")
	assert.ErrorIs(t, err, models.ErrAlreadyInSession)

	// Back in the first session bob is still welcome.
	_, err = env.audit.Join(ctx, first.JoinCode, "bob")
	assert.NoError(t, err)
}

func TestJoinCodeReusableAfterTerminalState(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	session, err := env.audit.Start(ctx, "t1", "alice")
	require.NoError(t, err)
	require.NoError(t, env.audit.Cancel(ctx, session.ID))

	// The code only has to be unique among ACTIVE sessions.
	_, err = env.audit.Join(ctx, session.JoinCode, "bob")
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
}

func TestFinishRequiresCreatorOrAdmin(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	session, err := env.audit.Start(ctx, "t1", "alice")
	require.NoError(t, err)

	_, err = env.audit.Finish(ctx, session.ID, "mallory", false)
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = env.audit.Finish(ctx, session.ID, "platform-admin", true)
	assert.NoError(t, err)
}

func TestFinishIsIdempotentAtSessionLevel(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	session, err := env.audit.Start(ctx, "t1", "alice")
	require.NoError(t, err)

	_, err = env.audit.Finish(ctx, session.ID, "alice", false)
	require.NoError(t, err)

	_, err = env.audit.Finish(ctx, session.ID, "alice", false)
	assert.ErrorIs(t, err, models.ErrSessionNotFound)

	stored, err := env.store.SessionByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionFinished, stored.Status)
	assert.NotNil(t, stored.FinishedAt)
}

func TestCancelWritesNoLedgerEvents(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	session, err := env.audit.Start(ctx, "t1", "alice")
	require.NoError(t, err)

	require.NoError(t, env.audit.Cancel(ctx, session.ID))

	stored, err := env.store.SessionByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCancelled, stored.Status)

	keys, err := env.store.LedgerKeys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)

	// Cancelling twice finds no ACTIVE session.
	assert.ErrorIs(t, env.audit.Cancel(ctx, session.ID), models.ErrSessionNotFound)
}

func TestSummaryReflectsObservations(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	session, err := env.audit.Start(ctx, "t1", "alice")
	require.NoError(t, err)
	_, err = env.audit.Join(ctx, session.JoinCode, "bob")
	require.NoError(t, err)

	_, err = env.audit.Scan(ctx, session.ID, "BC-1", "alice")
	require.NoError(t, err)
	env.advance(time.Second)
	_, err = env.audit.Scan(ctx, session.ID, "BC-2", "bob")
	require.NoError(t, err)

	summary, err := env.audit.Summary(ctx, session.ID)
	require.NoError(t, err)

	assert.Equal(t, models.SessionActive, summary.Status)
	assert.Equal(t, int64(2), summary.TotalScans)
	assert.Equal(t, int64(1), summary.PerWorkerCounts["alice"])
	assert.Equal(t, int64(1), summary.PerWorkerCounts["bob"])
	require.NotNil(t, summary.LastScanned)
	assert.Equal(t, "p2", summary.LastScanned.ProductID)
	assert.Len(t, summary.RecentScans, 2)
}

func TestSummaryUnknownSession(t *testing.T) {
	env := newTestEnv()

	_, err := env.audit.Summary(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
}
