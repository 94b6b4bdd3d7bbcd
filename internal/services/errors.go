package services

import (
	"errors"

	"github.com/ArowuTest/storefront-coins/internal/repositories"
	"github.com/ArowuTest/storefront-coins/pkg/errutil"
)

// storeError converts a repository error into the API error taxonomy. Errors that already
// carry a status pass through untouched, so domain rejections raised inside a transaction
// survive the transaction runner.
func storeError(msg string, err error) error {
	if err == nil {
		return nil
	}
	var base errutil.BaseError
	if errors.As(err, &base) {
		return err
	}
	switch {
	case errors.Is(err, repositories.ErrStoreUnavailable):
		return errutil.StoreUnavailable("store is unavailable, retry with the same idempotency key", err)
	case errors.Is(err, repositories.ErrNotFound):
		return errutil.New(errutil.StatusNotFound, msg+": not found", errutil.WithErr(err))
	case errors.Is(err, repositories.ErrDuplicate):
		return errutil.New(errutil.StatusConflict, msg+": already exists", errutil.WithErr(err))
	}
	return errutil.Internal(msg, err)
}

func validation(field, message string) error {
	return errutil.ValidationFailed(message, errutil.WithDetails(errutil.Detail{Field: field, Message: message}))
}
