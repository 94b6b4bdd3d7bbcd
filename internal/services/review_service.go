package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/ArowuTest/storefront-coins/internal/models"
	"github.com/ArowuTest/storefront-coins/internal/repositories"
	"github.com/ArowuTest/storefront-coins/pkg/errutil"
)

const maxCommentLength = 2000

// ReviewService stores product reviews.
type ReviewService struct {
	reviews   repositories.ReviewRepository
	customers repositories.CustomerRepository
	now       func() time.Time
}

// NewReviewService creates a new ReviewService
func NewReviewService(reviews repositories.ReviewRepository, customers repositories.CustomerRepository) *ReviewService {
	return &ReviewService{reviews: reviews, customers: customers, now: time.Now}
}

// Create adds the customer's review of a product. One review per customer per product.
func (s *ReviewService) Create(ctx context.Context, productID, email string, req models.CreateReviewRequest) (*models.Review, error) {
	productID = strings.TrimSpace(productID)
	email = models.NormalizeEmail(email)
	comment := strings.TrimSpace(req.Comment)
	switch {
	case productID == "":
		return nil, validation("productId", "productId is required")
	case req.Rating < 1 || req.Rating > 5:
		return nil, validation("rating", "rating must be between 1 and 5")
	case len(comment) > maxCommentLength:
		return nil, validation("comment", "comment is too long")
	}

	customer, err := s.customers.FindByEmail(ctx, email)
	if err != nil {
		return nil, storeError("customer", err)
	}

	review := &models.Review{
		ProductID: productID,
		Email:     email,
		Name:      customer.Name,
		Rating:    req.Rating,
		Comment:   comment,
		CreatedAt: s.now().UTC(),
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, errutil.Conflict("You have already reviewed this product")
		}
		return nil, storeError("review", err)
	}
	return review, nil
}

// Summary returns a product's reviews with the average rating.
func (s *ReviewService) Summary(ctx context.Context, productID string) (*models.ReviewSummary, error) {
	productID = strings.TrimSpace(productID)
	reviews, err := s.reviews.FindByProduct(ctx, productID)
	if err != nil {
		return nil, storeError("reviews", err)
	}

	summary := &models.ReviewSummary{ProductID: productID, Count: len(reviews), Reviews: reviews}
	if len(reviews) > 0 {
		total := 0
		for _, r := range reviews {
			total += r.Rating
		}
		summary.AverageRating = math.Round(float64(total)/float64(len(reviews))*100) / 100
	}
	return summary, nil
}
