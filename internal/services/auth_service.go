package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ArowuTest/storefront-coins/internal/models"
	"github.com/ArowuTest/storefront-coins/internal/repositories"
	"github.com/ArowuTest/storefront-coins/pkg/errutil"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(email, role string) (string, time.Time, error)
}

// AuthService issues sessions for customers and admin console users.
type AuthService struct {
	admins    repositories.AdminUserRepository
	customers *CustomerService
	tokens    TokenIssuer
	log       *zap.Logger
	now       func() time.Time
}

// NewAuthService creates a new AuthService
func NewAuthService(admins repositories.AdminUserRepository, customers *CustomerService, tokens TokenIssuer, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{admins: admins, customers: customers, tokens: tokens, log: log, now: time.Now}
}

// CustomerSession signs in a customer whose email the OAuth provider has verified.
func (s *AuthService) CustomerSession(ctx context.Context, req models.CustomerLoginRequest) (*models.SessionResponse, error) {
	customer, err := s.customers.Login(ctx, req.Email, req.Name)
	if err != nil {
		return nil, err
	}
	return s.session(customer.Email, models.RoleCustomer)
}

// AdminLogin checks an admin's password and returns an admin session.
func (s *AuthService) AdminLogin(ctx context.Context, req models.LoginRequest) (*models.SessionResponse, error) {
	email := models.NormalizeEmail(req.Email)
	admin, err := s.admins.FindByEmail(ctx, email)
	if errors.Is(err, repositories.ErrNotFound) {
		// Same work and message as a wrong password.
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(req.Password))
		return nil, errutil.Unauthorized("invalid credentials")
	}
	if err != nil {
		return nil, storeError("admin user", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(req.Password)); err != nil {
		s.log.Warn("admin login failed", zap.String("email", email))
		return nil, errutil.Unauthorized("invalid credentials")
	}
	s.log.Info("admin login", zap.String("email", email))
	return s.session(admin.Email, admin.Role)
}

// EnsureAdmin creates the bootstrap admin if it does not exist yet. An existing account is
// left untouched.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	email = models.NormalizeEmail(email)
	if email == "" {
		return nil
	}
	_, err := s.admins.FindByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("find admin: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	now := s.now().UTC()
	err = s.admins.Create(ctx, &models.AdminUser{
		Name:      "Administrator",
		Email:     email,
		Password:  string(hash),
		Role:      models.RoleAdmin,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil && !errors.Is(err, repositories.ErrDuplicate) {
		return fmt.Errorf("create admin: %w", err)
	}
	s.log.Info("bootstrap admin ensured", zap.String("email", email))
	return nil
}

func (s *AuthService) session(email, role string) (*models.SessionResponse, error) {
	token, expiresAt, err := s.tokens.Issue(email, role)
	if err != nil {
		return nil, errutil.Internal("could not issue session", err)
	}
	return &models.SessionResponse{Token: token, ExpiresAt: expiresAt, Role: role, Email: email}, nil
}

var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)
