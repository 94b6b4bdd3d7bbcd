package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/ArowuTest/storefront-coins/internal/repositories"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/x/mongo/driver/topology"
)

// translateError maps driver errors onto the repository sentinels. The driver error stays in
// the chain so transaction retry labels remain visible to session.WithTransaction.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repositories.ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %w", repositories.ErrDuplicate, err)
	}
	if isUnavailable(err) {
		return fmt.Errorf("%w: %w", repositories.ErrStoreUnavailable, err)
	}
	return err
}

func isUnavailable(err error) bool {
	var selection topology.ServerSelectionError
	switch {
	case mongo.IsTimeout(err), mongo.IsNetworkError(err):
		return true
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return true
	case errors.Is(err, mongo.ErrClientDisconnected):
		return true
	case errors.As(err, &selection):
		return true
	}
	return false
}
