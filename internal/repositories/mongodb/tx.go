package mongodb

import (
	"context"

	"github.com/ArowuTest/storefront-coins/internal/repositories"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

var (
	_ repositories.TxRunner = (*TxRunner)(nil)
	_ repositories.Pinger   = (*TxRunner)(nil)
)

// TxRunner runs multi-document transactions. Requires a replica set or sharded cluster.
type TxRunner struct {
	client *mongo.Client
}

// NewTxRunner creates a new TxRunner
func NewTxRunner(client *mongo.Client) *TxRunner {
	return &TxRunner{client: client}
}

// WithTransaction runs fn inside a session transaction, joining the caller's session when ctx
// already carries one. Transient transaction errors are retried by the driver.
func (r *TxRunner) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	session, err := r.client.StartSession()
	if err != nil {
		return translateError(err)
	}
	defer session.EndSession(context.Background())

	txOpts := options.Transaction().
		SetWriteConcern(writeconcern.New(writeconcern.WMajority())).
		SetReadConcern(readconcern.Snapshot()).
		SetReadPreference(readpref.Primary())

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	}, txOpts)
	return translateError(err)
}

// Ping checks that the primary is reachable.
func (r *TxRunner) Ping(ctx context.Context) error {
	return translateError(r.client.Ping(ctx, readpref.Primary()))
}
