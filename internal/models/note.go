package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Note is an uploaded study document with its file stored in the blob bucket.
type Note struct {
	ID           string                          `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       string                          `gorm:"type:uuid;index;not null" json:"user_id"`
	UploaderName string                          `gorm:"size:255" json:"uploader_name"`
	Title        string                          `gorm:"size:255;not null" json:"title"`
	Description  string                          `gorm:"type:text" json:"description"`
	Subject      string                          `gorm:"size:128;index" json:"subject"`
	AcademicYear int                             `gorm:"index" json:"academic_year"`
	Semester     int                             `gorm:"index" json:"semester"`
	Tags         datatypes.JSONSlice[string]     `json:"tags"`
	FileURL      string                          `gorm:"size:1024" json:"file_url"`
	FileType     string                          `gorm:"size:128" json:"file_type"`
	UploadedAt   time.Time                       `gorm:"index" json:"uploaded_at"`
	Likes        int                             `gorm:"not null;default:0" json:"likes"`
}

func (n *Note) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}

// NoteLike marks that a user liked a note.
type NoteLike struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	NoteID    string    `gorm:"type:uuid;uniqueIndex:idx_note_like_note_user;not null" json:"note_id"`
	UserID    string    `gorm:"type:uuid;uniqueIndex:idx_note_like_note_user;not null" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (l *NoteLike) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

// Subject is a catalog entry scoped to an academic year and semester,
// offered when composing a note upload.
type Subject struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Name         string `gorm:"size:128;not null" json:"name"`
	AcademicYear int    `gorm:"index:idx_subject_year_sem" json:"academic_year"`
	Semester     int    `gorm:"index:idx_subject_year_sem" json:"semester"`
}
