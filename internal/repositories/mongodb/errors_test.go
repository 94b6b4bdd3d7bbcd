package mongodb

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ArowuTest/storefront-coins/internal/repositories"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestTranslateError(t *testing.T) {
	dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key error"}}}
	other := errors.New("something else")

	tests := []struct {
		name string
		in   error
		want error
	}{
		{"no documents", mongo.ErrNoDocuments, repositories.ErrNotFound},
		{"duplicate key", dup, repositories.ErrDuplicate},
		{"deadline", fmt.Errorf("find: %w", context.DeadlineExceeded), repositories.ErrStoreUnavailable},
		{"disconnected", mongo.ErrClientDisconnected, repositories.ErrStoreUnavailable},
		{"passthrough", other, other},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, translateError(tt.in), tt.want)
		})
	}

	assert.NoError(t, translateError(nil))
}

func TestTranslateErrorKeepsDriverError(t *testing.T) {
	dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000}}}
	err := translateError(dup)

	var we mongo.WriteException
	assert.True(t, errors.As(err, &we))
	assert.True(t, mongo.IsDuplicateKeyError(err))
}
