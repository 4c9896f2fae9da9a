package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Hussein-Osamaa/madas-inventory/internal/domain/models"
	"github.com/Hussein-Osamaa/madas-inventory/internal/repository"
)

// AppendStockEvent inserts one immutable ledger entry.
func (r *MongoDBRepository) AppendStockEvent(ctx context.Context, ev models.StockEvent) error {
	if _, err := r.collection(colStockEvents).InsertOne(ctx, ev); err != nil {
		return fmt.Errorf("failed to insert stock event: %w", err)
	}
	return nil
}

// StockTotals sums event quantities per kind for one (tenant, product) key
// and splits them into the additive and subtractive classes.
func (r *MongoDBRepository) StockTotals(ctx context.Context, tenantID, productID string) (int64, int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"tenant_id": tenantID, "product_id": productID}}},
		{{Key: "$group", Value: bson.M{"_id": "$kind", "total": bson.M{"$sum": "$quantity"}}}},
	}

	cursor, err := r.collection(colStockEvents).Aggregate(ctx, pipeline)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to aggregate stock totals: %w", err)
	}
	defer cursor.Close(ctx)

	var additive, subtractive int64
	for cursor.Next(ctx) {
		var row struct {
			Kind  models.EventKind `bson:"_id"`
			Total int64            `bson:"total"`
		}
		if err := cursor.Decode(&row); err != nil {
			return 0, 0, fmt.Errorf("failed to decode stock total row: %w", err)
		}
		switch row.Kind.Delta() {
		case 1:
			additive += row.Total
		case -1:
			subtractive += row.Total
		}
	}
	if err := cursor.Err(); err != nil {
		return 0, 0, fmt.Errorf("stock totals cursor failed: %w", err)
	}

	return additive, subtractive, nil
}

// DistinctProducts lists every product id that ever appeared in the tenant's
// ledger.
func (r *MongoDBRepository) DistinctProducts(ctx context.Context, tenantID string) ([]string, error) {
	values, err := r.collection(colStockEvents).Distinct(ctx, "product_id", bson.M{"tenant_id": tenantID})
	if err != nil {
		return nil, fmt.Errorf("failed to list distinct ledger products: %w", err)
	}

	products := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			products = append(products, s)
		}
	}
	return products, nil
}

// LedgerKeys lists every (tenant, product) key in the ledger with its most
// recent event timestamp; the balance rebuild job iterates these.
func (r *MongoDBRepository) LedgerKeys(ctx context.Context) ([]repository.LedgerKey, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":           bson.M{"tenant_id": "$tenant_id", "product_id": "$product_id"},
			"last_event_at": bson.M{"$max": "$occurred_at"},
		}}},
	}

	cursor, err := r.collection(colStockEvents).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate ledger keys: %w", err)
	}
	defer cursor.Close(ctx)

	var keys []repository.LedgerKey
	for cursor.Next(ctx) {
		var row struct {
			ID struct {
				TenantID  string `bson:"tenant_id"`
				ProductID string `bson:"product_id"`
			} `bson:"_id"`
			LastEventAt time.Time `bson:"last_event_at"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("failed to decode ledger key row: %w", err)
		}
		keys = append(keys, repository.LedgerKey{
			TenantID:    row.ID.TenantID,
			ProductID:   row.ID.ProductID,
			LastEventAt: row.LastEventAt,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("ledger keys cursor failed: %w", err)
	}

	return keys, nil
}

// UpsertBalance writes the materialized balance for one key.
func (r *MongoDBRepository) UpsertBalance(ctx context.Context, balance models.Balance) error {
	filter := bson.M{"tenant_id": balance.TenantID, "product_id": balance.ProductID}
	update := bson.M{"$set": bson.M{
		"available_quantity": balance.AvailableQuantity,
		"last_event_at":      balance.LastEventAt,
	}}

	opts := options.Update().SetUpsert(true)
	if _, err := r.collection(colBalances).UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to upsert balance: %w", err)
	}
	return nil
}

// Balance returns the cached balance for a key, or nil when none exists yet.
func (r *MongoDBRepository) Balance(ctx context.Context, tenantID, productID string) (*models.Balance, error) {
	filter := bson.M{"tenant_id": tenantID, "product_id": productID}

	var balance models.Balance
	err := r.collection(colBalances).FindOne(ctx, filter).Decode(&balance)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load balance: %w", err)
	}
	return &balance, nil
}
