package models

import "time"

// UserProfile holds the onboarding profile for a platform user. The ID is
// the auth subject (UUID) issued by the identity provider, not generated
// locally.
type UserProfile struct {
	ID           string     `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string     `gorm:"size:255;uniqueIndex" json:"email"`
	FirstName    string     `gorm:"size:128" json:"first_name"`
	MiddleName   string     `gorm:"size:128" json:"middle_name"`
	LastName     string     `gorm:"size:128" json:"last_name"`
	PhoneNumber  string     `gorm:"size:32" json:"phone_number"`
	DateOfBirth  *time.Time `json:"date_of_birth"`
	Gender       string     `gorm:"size:32" json:"gender"`
	Institute    string     `gorm:"size:255" json:"institute"`
	Branch       string     `gorm:"size:128" json:"branch"`
	Division     string     `gorm:"size:8" json:"division"`
	RollNo       string     `gorm:"size:16;index" json:"roll_no"`
	AcademicYear int        `json:"academic_year"`
	Country      string     `gorm:"size:128" json:"country"`
	State        string     `gorm:"size:128" json:"state"`
	City         string     `gorm:"size:128" json:"city"`
	Nationality  string     `gorm:"size:128" json:"nationality"`
	Github       string     `gorm:"size:255" json:"github"`
	Linkedin     string     `gorm:"size:255" json:"linkedin"`
	Leetcode     string     `gorm:"size:255" json:"leetcode"`
	Codeforces   string     `gorm:"size:255" json:"codeforces"`
	ProfilePic   string     `gorm:"size:512" json:"profile_pic"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// FullName joins the first and last name for display fields that denormalize it.
func (u UserProfile) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
