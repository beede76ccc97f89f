package dto

import (
	"time"

	"github.com/campuslink/campuslink-api/internal/models"
)

// DoubtCreateRequest carries a new doubt from the composer. The 280 cap is
// enforced by the service after trimming, so the raw body carries no length
// tag: trailing whitespace must not push a legal doubt over the limit.
type DoubtCreateRequest struct {
	Content string `json:"content" validate:"required"`
}

// ReplyCreateRequest carries a new reply. Replies have no length cap.
type ReplyCreateRequest struct {
	Content string `json:"content" validate:"required"`
}

// AuthorSummary is the profile slice joined into feed and thread entries.
type AuthorSummary struct {
	ID         string `json:"id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	RollNo     string `json:"roll_no"`
	ProfilePic string `json:"profile_pic"`
}

// NewAuthorSummary builds the display slice of a profile.
func NewAuthorSummary(u models.UserProfile) AuthorSummary {
	return AuthorSummary{
		ID:         u.ID,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		RollNo:     u.RollNo,
		ProfilePic: u.ProfilePic,
	}
}

// FeedPost is a doubt decorated with its author and derived counts.
type FeedPost struct {
	ID           string        `json:"id"`
	UserID       string        `json:"user_id"`
	Content      string        `json:"content"`
	AcademicYear int           `json:"academic_year"`
	Branch       string        `json:"branch"`
	CreatedAt    time.Time     `json:"created_at"`
	Author       AuthorSummary `json:"author"`
	LikeCount    int64         `json:"like_count"`
	Liked        bool          `json:"liked"`
	ReplyCount   int64         `json:"reply_count"`
}

// ReplyResponse is a reply decorated with its author.
type ReplyResponse struct {
	ID        string        `json:"id"`
	DoubtID   string        `json:"doubt_id"`
	UserID    string        `json:"user_id"`
	Content   string        `json:"content"`
	CreatedAt time.Time     `json:"created_at"`
	Author    AuthorSummary `json:"author"`
}

// ThreadResponse is a doubt page: the post, its stats and its replies in
// ascending creation order.
type ThreadResponse struct {
	Post    FeedPost        `json:"post"`
	Replies []ReplyResponse `json:"replies"`
}

// ModerationCapabilities tells the client which action the menu offers for
// a record. Exactly one of the two is true.
type ModerationCapabilities struct {
	CanDelete bool `json:"can_delete"`
	CanReport bool `json:"can_report"`
}

// ReportAck is the local-only acknowledgment for a report. No record is
// persisted.
type ReportAck struct {
	TargetID string `json:"target_id"`
	Status   string `json:"status"`
}
