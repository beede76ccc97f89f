package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/campuslink/campuslink-api/internal/models"
)

// NoteRepository persists notes and their likes. The denormalized
// notes.likes column is kept in step with the like rows via SetLikes.
type NoteRepository interface {
	ListNotes(ctx context.Context) ([]models.Note, error)
	ListNotesByUser(ctx context.Context, userID string) ([]models.Note, error)
	GetNote(ctx context.Context, id string) (models.Note, error)
	CreateNote(ctx context.Context, note *models.Note) error
	DeleteNote(ctx context.Context, id string) error

	HasLike(ctx context.Context, noteID, userID string) (bool, error)
	CreateLike(ctx context.Context, like *models.NoteLike) error
	DeleteLike(ctx context.Context, noteID, userID string) error
	DeleteLikesForNote(ctx context.Context, noteID string) error
	CountLikes(ctx context.Context, noteID string) (int64, error)
	SetLikes(ctx context.Context, noteID string, likes int64) error

	ListSubjects(ctx context.Context, academicYear, semester int) ([]models.Subject, error)
}

type noteRepository struct {
	db *gorm.DB
}

// NewNoteRepository constructs a GORM-backed repository.
func NewNoteRepository(db *gorm.DB) NoteRepository {
	return &noteRepository{db: db}
}

func (r *noteRepository) ListNotes(ctx context.Context) ([]models.Note, error) {
	var notes []models.Note
	if err := r.db.WithContext(ctx).
		Order("uploaded_at DESC").
		Find(&notes).Error; err != nil {
		return nil, err
	}
	return notes, nil
}

func (r *noteRepository) ListNotesByUser(ctx context.Context, userID string) ([]models.Note, error) {
	var notes []models.Note
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("uploaded_at DESC").
		Find(&notes).Error; err != nil {
		return nil, err
	}
	return notes, nil
}

func (r *noteRepository) GetNote(ctx context.Context, id string) (models.Note, error) {
	var note models.Note
	if err := r.db.WithContext(ctx).First(&note, "id = ?", id).Error; err != nil {
		return models.Note{}, err
	}
	return note, nil
}

func (r *noteRepository) CreateNote(ctx context.Context, note *models.Note) error {
	return r.db.WithContext(ctx).Create(note).Error
}

func (r *noteRepository) DeleteNote(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&models.Note{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *noteRepository) HasLike(ctx context.Context, noteID, userID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.NoteLike{}).
		Where("note_id = ? AND user_id = ?", noteID, userID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *noteRepository) CreateLike(ctx context.Context, like *models.NoteLike) error {
	return r.db.WithContext(ctx).Create(like).Error
}

func (r *noteRepository) DeleteLike(ctx context.Context, noteID, userID string) error {
	return r.db.WithContext(ctx).
		Where("note_id = ? AND user_id = ?", noteID, userID).
		Delete(&models.NoteLike{}).Error
}

func (r *noteRepository) DeleteLikesForNote(ctx context.Context, noteID string) error {
	return r.db.WithContext(ctx).Where("note_id = ?", noteID).Delete(&models.NoteLike{}).Error
}

func (r *noteRepository) CountLikes(ctx context.Context, noteID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.NoteLike{}).
		Where("note_id = ?", noteID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *noteRepository) SetLikes(ctx context.Context, noteID string, likes int64) error {
	return r.db.WithContext(ctx).Model(&models.Note{}).
		Where("id = ?", noteID).
		Update("likes", likes).Error
}

func (r *noteRepository) ListSubjects(ctx context.Context, academicYear, semester int) ([]models.Subject, error) {
	var subjects []models.Subject
	query := r.db.WithContext(ctx).Order("name ASC")
	if academicYear > 0 {
		query = query.Where("academic_year = ?", academicYear)
	}
	if semester > 0 {
		query = query.Where("semester = ?", semester)
	}
	if err := query.Find(&subjects).Error; err != nil {
		return nil, err
	}
	return subjects, nil
}
