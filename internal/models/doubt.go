package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Doubt is a short-form question posted to the shared feed.
type Doubt struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       string    `gorm:"type:uuid;index;not null" json:"user_id"`
	Content      string    `gorm:"type:text;not null" json:"content"`
	AcademicYear int       `json:"academic_year"`
	Branch       string    `gorm:"size:128" json:"branch"`
	IsAnonymous  bool      `gorm:"not null;default:false" json:"is_anonymous"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
}

// BeforeCreate assigns a UUID when the caller did not supply one.
func (d *Doubt) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}

// DoubtReply is a flat reply under a doubt. ParentReplyID is persisted for
// forward compatibility but threading stays flat: it is always null on
// insert and never consulted when rendering.
type DoubtReply struct {
	ID            string    `gorm:"type:uuid;primaryKey" json:"id"`
	DoubtID       string    `gorm:"type:uuid;index;not null" json:"doubt_id"`
	UserID        string    `gorm:"type:uuid;index;not null" json:"user_id"`
	Content       string    `gorm:"type:text;not null" json:"content"`
	ParentReplyID *string   `gorm:"type:uuid" json:"parent_reply_id"`
	IsAnonymous   bool      `gorm:"not null;default:false" json:"is_anonymous"`
	IsBySenior    bool      `gorm:"not null;default:false" json:"is_by_senior"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
}

func (r *DoubtReply) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// DoubtLike marks that a user liked a doubt. The (target, user) pair is
// unique; the application checks the current state before toggling.
type DoubtLike struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	TargetID  string    `gorm:"type:uuid;uniqueIndex:idx_doubt_like_target_user;not null" json:"target_id"`
	UserID    string    `gorm:"type:uuid;uniqueIndex:idx_doubt_like_target_user;not null" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (l *DoubtLike) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}
