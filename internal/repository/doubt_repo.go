package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/campuslink/campuslink-api/internal/models"
)

// DoubtRepository persists doubts, their replies and their likes. The
// batched count/flag lookups exist so feed decoration issues one grouped
// query per related entity instead of one per row.
type DoubtRepository interface {
	ListDoubts(ctx context.Context) ([]models.Doubt, error)
	GetDoubt(ctx context.Context, id string) (models.Doubt, error)
	CreateDoubt(ctx context.Context, doubt *models.Doubt) error
	DeleteDoubt(ctx context.Context, id string) error

	ListReplies(ctx context.Context, doubtID string) ([]models.DoubtReply, error)
	GetReply(ctx context.Context, id string) (models.DoubtReply, error)
	CreateReply(ctx context.Context, reply *models.DoubtReply) error
	DeleteReply(ctx context.Context, id string) error
	DeleteRepliesForDoubt(ctx context.Context, doubtID string) error

	HasLike(ctx context.Context, targetID, userID string) (bool, error)
	CreateLike(ctx context.Context, like *models.DoubtLike) error
	DeleteLike(ctx context.Context, targetID, userID string) error
	DeleteLikesForDoubt(ctx context.Context, targetID string) error

	CountLikes(ctx context.Context, targetID string) (int64, error)
	LikeCounts(ctx context.Context, targetIDs []string) (map[string]int64, error)
	ReplyCounts(ctx context.Context, doubtIDs []string) (map[string]int64, error)
	LikedByUser(ctx context.Context, targetIDs []string, userID string) (map[string]bool, error)
}

type doubtRepository struct {
	db *gorm.DB
}

// NewDoubtRepository constructs a GORM-backed repository.
func NewDoubtRepository(db *gorm.DB) DoubtRepository {
	return &doubtRepository{db: db}
}

func (r *doubtRepository) ListDoubts(ctx context.Context) ([]models.Doubt, error) {
	var doubts []models.Doubt
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&doubts).Error; err != nil {
		return nil, err
	}
	return doubts, nil
}

func (r *doubtRepository) GetDoubt(ctx context.Context, id string) (models.Doubt, error) {
	var doubt models.Doubt
	if err := r.db.WithContext(ctx).First(&doubt, "id = ?", id).Error; err != nil {
		return models.Doubt{}, err
	}
	return doubt, nil
}

func (r *doubtRepository) CreateDoubt(ctx context.Context, doubt *models.Doubt) error {
	return r.db.WithContext(ctx).Create(doubt).Error
}

func (r *doubtRepository) DeleteDoubt(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&models.Doubt{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *doubtRepository) ListReplies(ctx context.Context, doubtID string) ([]models.DoubtReply, error) {
	var replies []models.DoubtReply
	if err := r.db.WithContext(ctx).
		Where("doubt_id = ?", doubtID).
		Order("created_at ASC").
		Find(&replies).Error; err != nil {
		return nil, err
	}
	return replies, nil
}

func (r *doubtRepository) GetReply(ctx context.Context, id string) (models.DoubtReply, error) {
	var reply models.DoubtReply
	if err := r.db.WithContext(ctx).First(&reply, "id = ?", id).Error; err != nil {
		return models.DoubtReply{}, err
	}
	return reply, nil
}

func (r *doubtRepository) CreateReply(ctx context.Context, reply *models.DoubtReply) error {
	return r.db.WithContext(ctx).Create(reply).Error
}

func (r *doubtRepository) DeleteReply(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&models.DoubtReply{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *doubtRepository) DeleteRepliesForDoubt(ctx context.Context, doubtID string) error {
	return r.db.WithContext(ctx).Where("doubt_id = ?", doubtID).Delete(&models.DoubtReply{}).Error
}

func (r *doubtRepository) HasLike(ctx context.Context, targetID, userID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.DoubtLike{}).
		Where("target_id = ? AND user_id = ?", targetID, userID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *doubtRepository) CreateLike(ctx context.Context, like *models.DoubtLike) error {
	return r.db.WithContext(ctx).Create(like).Error
}

func (r *doubtRepository) DeleteLike(ctx context.Context, targetID, userID string) error {
	return r.db.WithContext(ctx).
		Where("target_id = ? AND user_id = ?", targetID, userID).
		Delete(&models.DoubtLike{}).Error
}

func (r *doubtRepository) DeleteLikesForDoubt(ctx context.Context, targetID string) error {
	return r.db.WithContext(ctx).Where("target_id = ?", targetID).Delete(&models.DoubtLike{}).Error
}

func (r *doubtRepository) CountLikes(ctx context.Context, targetID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.DoubtLike{}).
		Where("target_id = ?", targetID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

type idCount struct {
	ID    string
	Total int64
}

func (r *doubtRepository) LikeCounts(ctx context.Context, targetIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(targetIDs))
	if len(targetIDs) == 0 {
		return counts, nil
	}

	var rows []idCount
	if err := r.db.WithContext(ctx).Model(&models.DoubtLike{}).
		Select("target_id AS id, COUNT(*) AS total").
		Where("target_id IN ?", targetIDs).
		Group("target_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	for _, row := range rows {
		counts[row.ID] = row.Total
	}
	return counts, nil
}

func (r *doubtRepository) ReplyCounts(ctx context.Context, doubtIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(doubtIDs))
	if len(doubtIDs) == 0 {
		return counts, nil
	}

	var rows []idCount
	if err := r.db.WithContext(ctx).Model(&models.DoubtReply{}).
		Select("doubt_id AS id, COUNT(*) AS total").
		Where("doubt_id IN ?", doubtIDs).
		Group("doubt_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	for _, row := range rows {
		counts[row.ID] = row.Total
	}
	return counts, nil
}

func (r *doubtRepository) LikedByUser(ctx context.Context, targetIDs []string, userID string) (map[string]bool, error) {
	liked := make(map[string]bool, len(targetIDs))
	if len(targetIDs) == 0 || userID == "" {
		return liked, nil
	}

	var targets []string
	if err := r.db.WithContext(ctx).Model(&models.DoubtLike{}).
		Where("target_id IN ? AND user_id = ?", targetIDs, userID).
		Pluck("target_id", &targets).Error; err != nil {
		return nil, err
	}

	for _, id := range targets {
		liked[id] = true
	}
	return liked, nil
}
