package services

import (
	"context"
	"strings"
	"time"

	"github.com/ArowuTest/storefront-coins/internal/models"
	"github.com/ArowuTest/storefront-coins/internal/repositories"
	"go.uber.org/zap"
)

// CustomerService manages storefront accounts. Email is the customer's only identifier and
// never changes once the account exists.
type CustomerService struct {
	repo repositories.CustomerRepository
	log  *zap.Logger
	now  func() time.Time
}

// NewCustomerService creates a new CustomerService
func NewCustomerService(repo repositories.CustomerRepository, log *zap.Logger) *CustomerService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CustomerService{repo: repo, log: log, now: time.Now}
}

// Login records a verified sign-in, creating the customer on first login.
func (s *CustomerService) Login(ctx context.Context, email, name string) (*models.Customer, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return nil, validation("email", "email is required")
	}
	customer, err := s.repo.Touch(ctx, email, strings.TrimSpace(name), s.now().UTC())
	if err != nil {
		return nil, storeError("customer", err)
	}
	s.log.Info("customer login", zap.String("email", email))
	return customer, nil
}

// Get returns one customer.
func (s *CustomerService) Get(ctx context.Context, email string) (*models.Customer, error) {
	customer, err := s.repo.FindByEmail(ctx, models.NormalizeEmail(email))
	if err != nil {
		return nil, storeError("customer", err)
	}
	return customer, nil
}

// SaveProfile updates the profile, creating the customer if needed.
func (s *CustomerService) SaveProfile(ctx context.Context, email string, profile models.CustomerProfile) (*models.Customer, error) {
	email = models.NormalizeEmail(email)
	profile.Name = strings.TrimSpace(profile.Name)
	profile.Phone = strings.TrimSpace(profile.Phone)
	profile.Address = strings.TrimSpace(profile.Address)
	if profile.Name == "" {
		return nil, validation("name", "name is required")
	}
	customer, err := s.repo.SaveProfile(ctx, email, profile, s.now().UTC())
	if err != nil {
		return nil, storeError("customer", err)
	}
	return customer, nil
}

// List pages through customers ordered by email.
func (s *CustomerService) List(ctx context.Context, page, limit int) ([]*models.Customer, int64, error) {
	customers, err := s.repo.FindAll(ctx, page, limit)
	if err != nil {
		return nil, 0, storeError("customers", err)
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, 0, storeError("customers", err)
	}
	return customers, total, nil
}
