package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rkbridge/backend/internal/domain/pos"
	"github.com/rkbridge/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormStationRepository implements pos.StationRepository using GORM
type GormStationRepository struct {
	db *gorm.DB
}

// NewGormStationRepository creates a new GormStationRepository
func NewGormStationRepository(db *gorm.DB) *GormStationRepository {
	return &GormStationRepository{db: db}
}

// FindByID finds a station by its ID
func (r *GormStationRepository) FindByID(ctx context.Context, id uuid.UUID) (*pos.Station, error) {
	var model models.StationModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pos.ErrStationNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByRKeeperID finds a station by its POS reference id
func (r *GormStationRepository) FindByRKeeperID(ctx context.Context, rkeeperID string) (*pos.Station, error) {
	var model models.StationModel
	if err := r.db.WithContext(ctx).First(&model, "rkeeper_id = ?", rkeeperID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pos.ErrStationNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindActive returns active stations ordered by name
func (r *GormStationRepository) FindActive(ctx context.Context) ([]pos.Station, error) {
	var stationModels []models.StationModel
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&stationModels).Error; err != nil {
		return nil, err
	}

	stations := make([]pos.Station, len(stationModels))
	for i, model := range stationModels {
		stations[i] = *model.ToDomain()
	}
	return stations, nil
}

// Save creates or updates a station
func (r *GormStationRepository) Save(ctx context.Context, station *pos.Station) error {
	return r.db.WithContext(ctx).Save(models.StationModelFromDomain(station)).Error
}

// Ensure GormStationRepository implements pos.StationRepository
var _ pos.StationRepository = (*GormStationRepository)(nil)
