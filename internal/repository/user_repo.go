package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/campuslink/campuslink-api/internal/models"
)

// UserRepository reads and upserts onboarding profiles.
type UserRepository interface {
	Get(ctx context.Context, id string) (models.UserProfile, error)
	GetBatch(ctx context.Context, ids []string) (map[string]models.UserProfile, error)
	Upsert(ctx context.Context, profile *models.UserProfile) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository constructs a GORM-backed repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Get(ctx context.Context, id string) (models.UserProfile, error) {
	var profile models.UserProfile
	if err := r.db.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		return models.UserProfile{}, err
	}
	return profile, nil
}

func (r *userRepository) GetBatch(ctx context.Context, ids []string) (map[string]models.UserProfile, error) {
	profiles := make(map[string]models.UserProfile, len(ids))
	if len(ids) == 0 {
		return profiles, nil
	}

	var rows []models.UserProfile
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}

	for _, row := range rows {
		profiles[row.ID] = row
	}
	return profiles, nil
}

func (r *userRepository) Upsert(ctx context.Context, profile *models.UserProfile) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(profile).Error
}
