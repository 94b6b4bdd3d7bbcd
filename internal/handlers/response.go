package handlers

import (
	"errors"
	"strconv"
	"strings"
	"unicode"

	"github.com/ArowuTest/storefront-coins/pkg/errutil"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// IdempotencyKeyHeader lets clients retry a ledger operation safely.
const IdempotencyKeyHeader = "Idempotency-Key"

// fail hands err to the error middleware.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
}

// bindError turns a gin binding failure into VALIDATION_FAILED with one detail per field.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errutil.ValidationFailed("Invalid request body")
	}
	details := make([]errutil.Detail, 0, len(verrs))
	for _, fe := range verrs {
		field := lowerFirst(fe.Field())
		details = append(details, errutil.Detail{Field: field, Message: fieldMessage(field, fe)})
	}
	return errutil.ValidationFailed(details[0].Message, errutil.WithDetails(details...))
}

func fieldMessage(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "oneof":
		return field + " must be one of: " + fe.Param()
	}
	return field + " is invalid"
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

// pagination reads ?page=&limit= with sane bounds.
func pagination(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if err != nil || limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

// idempotencyKey prefers the header over the body field.
func idempotencyKey(c *gin.Context, fromBody string) string {
	if key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader)); key != "" {
		return key
	}
	return strings.TrimSpace(fromBody)
}
