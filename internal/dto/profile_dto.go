package dto

import (
	"time"

	"github.com/campuslink/campuslink-api/internal/models"
)

// Onboarding step identifiers, in form order.
const (
	StepPersonal = "personal"
	StepAcademic = "academic"
	StepLocation = "location"
	StepSocial   = "social"
)

// PersonalStepRequest covers the first onboarding step.
type PersonalStepRequest struct {
	FirstName   string     `json:"first_name" validate:"required"`
	MiddleName  string     `json:"middle_name" validate:"required"`
	LastName    string     `json:"last_name" validate:"required"`
	PhoneNumber string     `json:"phone_number" validate:"omitempty,e164"`
	DateOfBirth *time.Time `json:"date_of_birth"`
	Gender      string     `json:"gender"`
	Email       string     `json:"email" validate:"required,email"`
}

// AcademicStepRequest covers institute details. Roll numbers are exactly
// eight characters and divisions a single letter, per the enrolment format.
type AcademicStepRequest struct {
	Institute    string `json:"institute"`
	Branch       string `json:"branch"`
	Division     string `json:"division" validate:"required,len=1"`
	RollNo       string `json:"roll_no" validate:"required,len=8"`
	AcademicYear int    `json:"academic_year" validate:"required,min=1,max=4"`
}

// LocationStepRequest covers geography.
type LocationStepRequest struct {
	Country     string `json:"country" validate:"required"`
	State       string `json:"state"`
	City        string `json:"city" validate:"required"`
	Nationality string `json:"nationality" validate:"required"`
}

// SocialStepRequest covers optional external profiles.
type SocialStepRequest struct {
	Github     string `json:"github" validate:"omitempty,url"`
	Linkedin   string `json:"linkedin" validate:"omitempty,url"`
	Leetcode   string `json:"leetcode"`
	Codeforces string `json:"codeforces"`
}

// ProfileResponse is the full profile returned by the session endpoint.
type ProfileResponse struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	FirstName    string     `json:"first_name"`
	MiddleName   string     `json:"middle_name"`
	LastName     string     `json:"last_name"`
	PhoneNumber  string     `json:"phone_number"`
	DateOfBirth  *time.Time `json:"date_of_birth"`
	Gender       string     `json:"gender"`
	Institute    string     `json:"institute"`
	Branch       string     `json:"branch"`
	Division     string     `json:"division"`
	RollNo       string     `json:"roll_no"`
	AcademicYear int        `json:"academic_year"`
	Country      string     `json:"country"`
	State        string     `json:"state"`
	City         string     `json:"city"`
	Nationality  string     `json:"nationality"`
	Github       string     `json:"github"`
	Linkedin     string     `json:"linkedin"`
	Leetcode     string     `json:"leetcode"`
	Codeforces   string     `json:"codeforces"`
	ProfilePic   string     `json:"profile_pic"`
}

// NewProfileResponse converts a profile model to its API shape.
func NewProfileResponse(u models.UserProfile) ProfileResponse {
	return ProfileResponse{
		ID:           u.ID,
		Email:        u.Email,
		FirstName:    u.FirstName,
		MiddleName:   u.MiddleName,
		LastName:     u.LastName,
		PhoneNumber:  u.PhoneNumber,
		DateOfBirth:  u.DateOfBirth,
		Gender:       u.Gender,
		Institute:    u.Institute,
		Branch:       u.Branch,
		Division:     u.Division,
		RollNo:       u.RollNo,
		AcademicYear: u.AcademicYear,
		Country:      u.Country,
		State:        u.State,
		City:         u.City,
		Nationality:  u.Nationality,
		Github:       u.Github,
		Linkedin:     u.Linkedin,
		Leetcode:     u.Leetcode,
		Codeforces:   u.Codeforces,
		ProfilePic:   u.ProfilePic,
	}
}
