package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventKindDelta(t *testing.T) {
	additive := []EventKind{KindInbound, KindReturned, KindAdjustment}
	for _, kind := range additive {
		assert.Equal(t, int64(1), kind.Delta(), "kind %s should be additive", kind)
	}

	subtractive := []EventKind{KindSold, KindDamaged, KindMissing, KindReserved, KindShipping}
	for _, kind := range subtractive {
		assert.Equal(t, int64(-1), kind.Delta(), "kind %s should be subtractive", kind)
	}

	assert.Equal(t, int64(0), KindAudit.Delta())
}

func TestEventKindIsValid(t *testing.T) {
	assert.True(t, KindInbound.IsValid())
	assert.True(t, KindAudit.IsValid())
	assert.False(t, EventKind("RESTOCK").IsValid())
	assert.False(t, EventKind("").IsValid())
}

func TestNormalizeBarcode(t *testing.T) {
	assert.Equal(t, "ABC123", NormalizeBarcode("abc-123"))
	assert.Equal(t, "ABC123", NormalizeBarcode(" AB c 12-3\t"))
	assert.Equal(t, "SKU00042", NormalizeBarcode("sku-000-42"))
	assert.Equal(t, "", NormalizeBarcode("- -"))
}

func TestHasParticipant(t *testing.T) {
	session := AuditSession{ParticipantIDs: []string{"w1", "w2"}}
	assert.True(t, session.HasParticipant("w1"))
	assert.False(t, session.HasParticipant("w3"))
}
