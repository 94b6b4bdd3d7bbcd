package services

import (
	"context"
	"strings"
	"time"

	"github.com/ArowuTest/storefront-coins/internal/geo"
	"github.com/ArowuTest/storefront-coins/internal/models"
	"github.com/ArowuTest/storefront-coins/internal/repositories"
	"github.com/ArowuTest/storefront-coins/pkg/metrics"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const activePickupPointsKey = "pickup_points:active"

// JSONCache is the subset of pkg/cache the services use.
type JSONCache interface {
	GetJSON(ctx context.Context, key string, dst interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// PickupOptions configures delivery eligibility.
type PickupOptions struct {
	ThresholdKm float64
	CacheTTL    time.Duration
}

// PickupService answers "where can I collect my order" lookups.
type PickupService struct {
	repo    repositories.PickupPointRepository
	cache   JSONCache
	opts    PickupOptions
	log     *zap.Logger
	metrics *metrics.Collector
	now     func() time.Time
}

// NewPickupService creates a new PickupService. cache may be nil.
func NewPickupService(repo repositories.PickupPointRepository, cache JSONCache, opts PickupOptions, log *zap.Logger, m *metrics.Collector) *PickupService {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.ThresholdKm <= 0 {
		opts.ThresholdKm = geo.DefaultThresholdKm
	}
	return &PickupService{repo: repo, cache: cache, opts: opts, log: log, metrics: m, now: time.Now}
}

// Nearest ranks the active pickup points by distance from the customer.
func (s *PickupService) Nearest(ctx context.Context, lat, lon float64) (*models.NearestPickupPoints, error) {
	if !geo.ValidCoordinate(lat, lon) {
		return nil, validation("lat", "lat and lon must be valid coordinates")
	}

	points, err := s.activePoints(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*models.PickupPoint, len(points))
	candidates := make([]geo.Point, 0, len(points))
	for _, p := range points {
		id := p.ID.Hex()
		byID[id] = p
		candidates = append(candidates, geo.Point{ID: id, Name: p.Name, Latitude: p.Latitude, Longitude: p.Longitude})
	}

	eligibility := geo.NearestEligible(candidates, lat, lon, s.opts.ThresholdKm)

	out := &models.NearestPickupPoints{
		Points:            make([]models.RankedPickupPoint, 0, len(eligibility.Points)),
		NearestDistanceKm: eligibility.NearestDistanceKm,
		CanDeliver:        eligibility.CanDeliver,
		ThresholdKm:       s.opts.ThresholdKm,
	}
	for _, rp := range eligibility.Points {
		out.Points = append(out.Points, models.RankedPickupPoint{PickupPoint: *byID[rp.ID], DistanceKm: rp.DistanceKm})
	}
	return out, nil
}

func (s *PickupService) activePoints(ctx context.Context) ([]*models.PickupPoint, error) {
	if s.cache != nil {
		var cached []*models.PickupPoint
		hit, err := s.cache.GetJSON(ctx, activePickupPointsKey, &cached)
		if err != nil {
			s.log.Warn("pickup point cache read failed", zap.Error(err))
		}
		s.metrics.CacheLookup("pickup_points", hit)
		if hit {
			return cached, nil
		}
	}

	points, err := s.repo.FindActive(ctx)
	if err != nil {
		return nil, storeError("pickup points", err)
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, activePickupPointsKey, points, s.opts.CacheTTL); err != nil {
			s.log.Warn("pickup point cache write failed", zap.Error(err))
		}
	}
	return points, nil
}

func (s *PickupService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, activePickupPointsKey); err != nil {
		s.log.Warn("pickup point cache invalidation failed", zap.Error(err))
	}
}

// Create adds an active pickup point.
func (s *PickupService) Create(ctx context.Context, req models.CreatePickupPointRequest) (*models.PickupPoint, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, validation("name", "name is required")
	}
	if req.Latitude == nil || req.Longitude == nil || !geo.ValidCoordinate(*req.Latitude, *req.Longitude) {
		return nil, validation("latitude", "latitude and longitude must be valid coordinates")
	}

	point := &models.PickupPoint{
		Name:      name,
		Address:   strings.TrimSpace(req.Address),
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Active:    true,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, point); err != nil {
		return nil, storeError("pickup point", err)
	}
	s.invalidate(ctx)
	return point, nil
}

// List returns every pickup point, active or not.
func (s *PickupService) List(ctx context.Context) ([]*models.PickupPoint, error) {
	points, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, storeError("pickup points", err)
	}
	return points, nil
}

// Delete removes a pickup point.
func (s *PickupService) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return validation("id", "id is not a valid pickup point id")
	}
	if err := s.repo.Delete(ctx, oid); err != nil {
		return storeError("pickup point", err)
	}
	s.invalidate(ctx)
	return nil
}
