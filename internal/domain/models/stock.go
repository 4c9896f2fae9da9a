package models

import "time"

// EventKind classifies a stock ledger entry.
type EventKind string

const (
	KindInbound    EventKind = "INBOUND"
	KindReserved   EventKind = "RESERVED"
	KindShipping   EventKind = "SHIPPING"
	KindSold       EventKind = "SOLD"
	KindReturned   EventKind = "RETURNED"
	KindDamaged    EventKind = "DAMAGED"
	KindMissing    EventKind = "MISSING"
	KindAdjustment EventKind = "ADJUSTMENT"
	KindAudit      EventKind = "AUDIT"
)

// IsValid reports whether the kind is one of the known ledger kinds.
func (k EventKind) IsValid() bool {
	switch k {
	case KindInbound, KindReserved, KindShipping, KindSold, KindReturned,
		KindDamaged, KindMissing, KindAdjustment, KindAudit:
		return true
	}
	return false
}

// Delta returns the signed balance contribution for one unit of this kind:
// +1 for additive kinds, -1 for subtractive kinds, 0 for AUDIT markers.
func (k EventKind) Delta() int64 {
	switch k {
	case KindInbound, KindReturned, KindAdjustment:
		return 1
	case KindSold, KindDamaged, KindMissing, KindReserved, KindShipping:
		return -1
	default:
		return 0
	}
}

// StockEvent is one immutable entry of the append-only stock ledger. Entries
// are never updated or deleted; every balance is reconstructible from them.
type StockEvent struct {
	ID          string    `bson:"_id" json:"id"`
	TenantID    string    `bson:"tenant_id" json:"tenant_id"`
	ProductID   string    `bson:"product_id" json:"product_id"`
	Kind        EventKind `bson:"kind" json:"kind"`
	Quantity    int64     `bson:"quantity" json:"quantity"`
	ReferenceID string    `bson:"reference_id,omitempty" json:"reference_id,omitempty"`
	ActorID     string    `bson:"actor_id,omitempty" json:"actor_id,omitempty"`
	OccurredAt  time.Time `bson:"occurred_at" json:"occurred_at"`
}

// Balance is the materialized available quantity for one (tenant, product)
// key. It is derived state: the ledger remains authoritative and the cache is
// rebuilt from it whenever the two could have diverged.
type Balance struct {
	TenantID          string    `bson:"tenant_id" json:"tenant_id"`
	ProductID         string    `bson:"product_id" json:"product_id"`
	AvailableQuantity int64     `bson:"available_quantity" json:"available_quantity"`
	LastEventAt       time.Time `bson:"last_event_at" json:"last_event_at"`
}
