package audit

import (
	"context"
	"sync"
	"time"

	"github.com/Hussein-Osamaa/madas-inventory/internal/domain/models"
	"github.com/Hussein-Osamaa/madas-inventory/internal/repository/memory"
	"github.com/Hussein-Osamaa/madas-inventory/internal/service/inventory"
	"github.com/Hussein-Osamaa/madas-inventory/pkg/clients/catalog"
)

type fakeCatalog struct {
	products map[string]bool             // tenant/product
	barcodes map[string]*catalog.Product // tenant/normalized-code
	listing  map[string][]string         // tenant -> product ids
}

func (f *fakeCatalog) ProductExists(_ context.Context, tenantID, productID string) (bool, error) {
	return f.products[tenantID+"/"+productID], nil
}

func (f *fakeCatalog) ResolveBarcode(_ context.Context, tenantID, code string) (*catalog.Product, error) {
	product, ok := f.barcodes[tenantID+"/"+models.NormalizeBarcode(code)]
	if !ok {
		return nil, nil
	}
	return product, nil
}

func (f *fakeCatalog) ListProductIDs(_ context.Context, tenantID string) ([]string, error) {
	return f.listing[tenantID], nil
}

type fakeDirectory struct {
	tenants map[string]bool
}

func (f *fakeDirectory) TenantExists(_ context.Context, tenantID string) (bool, error) {
	return f.tenants[tenantID], nil
}

type publishedEvent struct {
	Room    string
	Event   string
	Payload any
}

// captureBroadcaster records publishes for assertions.
type captureBroadcaster struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (c *captureBroadcaster) Publish(_ context.Context, room, event string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, publishedEvent{Room: room, Event: event, Payload: payload})
	return nil
}

func (c *captureBroadcaster) byName(event string) []publishedEvent {
	c.mu.Lock()
	defer c.mu.Unlock()

	var matched []publishedEvent
	for _, e := range c.events {
		if e.Event == event {
			matched = append(matched, e)
		}
	}
	return matched
}

type testEnv struct {
	store     *memory.Store
	catalog   *fakeCatalog
	broadcast *captureBroadcaster
	inventory *inventory.Service
	audit     *Service
	clock     time.Time
}

const testWindow = 800 * time.Millisecond

// newTestEnv wires the audit service over the in-memory store with a tenant
// "t1" owning products p1 (barcode BC-1) and p2 (barcode BC-2).
func newTestEnv() *testEnv {
	store := memory.New()
	cat := &fakeCatalog{
		products: map[string]bool{"t1/p1": true, "t1/p2": true},
		barcodes: map[string]*catalog.Product{
			"t1/BC1": {ID: "p1", SKU: "SKU-1", Name: "Sneaker"},
			"t1/BC2": {ID: "p2", SKU: "SKU-2", Name: "Boot"},
		},
		listing: map[string][]string{"t1": {"p1", "p2"}},
	}
	dir := &fakeDirectory{tenants: map[string]bool{"t1": true}}
	bcast := &captureBroadcaster{}

	invSvc := inventory.NewService(store, cat, dir, nil)
	auditSvc := NewService(store, invSvc, cat, dir, bcast, testWindow, nil)

	env := &testEnv{
		store:     store,
		catalog:   cat,
		broadcast: bcast,
		inventory: invSvc,
		audit:     auditSvc,
		clock:     time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
	}
	auditSvc.now = func() time.Time { return env.clock }
	return env
}

func (e *testEnv) advance(d time.Duration) {
	e.clock = e.clock.Add(d)
}
