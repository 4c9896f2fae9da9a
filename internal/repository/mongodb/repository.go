package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Hussein-Osamaa/madas-inventory/internal/repository"
)

// Collection names.
const (
	colStockEvents      = "stock_events"
	colBalances         = "balances"
	colAuditSessions    = "audit_sessions"
	colScanObservations = "scan_observations"
)

var _ repository.Store = (*MongoDBRepository)(nil)

// MongoDBRepository implements repository.Store on top of MongoDB.
type MongoDBRepository struct {
	client       *mongo.Client
	dbName       string
	supportsTxns bool
}

// NewMongoDBRepository connects to MongoDB, verifies the connection and
// probes the topology for multi-document transaction support.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	supportsTxns, err := probeTransactionSupport(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("failed to probe transaction support: %w", err)
	}

	return &MongoDBRepository{
		client:       client,
		dbName:       dbName,
		supportsTxns: supportsTxns,
	}, nil
}

// probeTransactionSupport runs the hello command once and inspects the
// topology. Multi-document transactions need a replica set or mongos; a
// standalone server reports neither. Probing here replaces matching on the
// driver's "transaction numbers are only allowed on..." error text.
func probeTransactionSupport(ctx context.Context, client *mongo.Client) (bool, error) {
	var hello struct {
		SetName string `bson:"setName"`
		Msg     string `bson:"msg"`
	}
	err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello)
	if err != nil {
		return false, err
	}
	return hello.SetName != "" || hello.Msg == "isdbgrid", nil
}

// SupportsTransactions reports the capability probed at connect time.
func (r *MongoDBRepository) SupportsTransactions() bool {
	return r.supportsTxns
}

// WithinTransaction runs fn in a mongo session transaction. Collection
// operations inside fn pick up the session through the context.
func (r *MongoDBRepository) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !r.supportsTxns {
		return fmt.Errorf("mongodb deployment does not support multi-document transactions")
	}

	session, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start mongo session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// EnsureIndexes creates the indexes the query paths depend on: the balance
// key, the active join-code lookup and the scan dedupe window query.
func (r *MongoDBRepository) EnsureIndexes(ctx context.Context) error {
	db := r.client.Database(r.dbName)

	eventIdx := mongo.IndexModel{
		Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "product_id", Value: 1}, {Key: "occurred_at", Value: 1}},
	}
	if _, err := db.Collection(colStockEvents).Indexes().CreateOne(ctx, eventIdx); err != nil {
		return fmt.Errorf("failed to create stock_events index: %w", err)
	}

	balanceIdx := mongo.IndexModel{
		Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "product_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := db.Collection(colBalances).Indexes().CreateOne(ctx, balanceIdx); err != nil {
		return fmt.Errorf("failed to create balances index: %w", err)
	}

	sessionIdx := mongo.IndexModel{
		Keys: bson.D{{Key: "join_code", Value: 1}, {Key: "status", Value: 1}},
	}
	if _, err := db.Collection(colAuditSessions).Indexes().CreateOne(ctx, sessionIdx); err != nil {
		return fmt.Errorf("failed to create audit_sessions index: %w", err)
	}

	scanIdx := mongo.IndexModel{
		Keys: bson.D{
			{Key: "session_id", Value: 1},
			{Key: "worker_id", Value: 1},
			{Key: "barcode", Value: 1},
			{Key: "observed_at", Value: 1},
		},
	}
	if _, err := db.Collection(colScanObservations).Indexes().CreateOne(ctx, scanIdx); err != nil {
		return fmt.Errorf("failed to create scan_observations index: %w", err)
	}

	return nil
}

func (r *MongoDBRepository) collection(name string) *mongo.Collection {
	return r.client.Database(r.dbName).Collection(name)
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
