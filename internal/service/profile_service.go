package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/campuslink/campuslink-api/internal/dto"
	"github.com/campuslink/campuslink-api/internal/models"
	"github.com/campuslink/campuslink-api/internal/repository"
)

// ErrUnknownStep indicates a step identifier outside the onboarding form.
var ErrUnknownStep = errors.New("unknown onboarding step")

// ProfileService owns the session profile and the multi-step onboarding form.
type ProfileService interface {
	Me(ctx context.Context, userID string) (dto.ProfileResponse, error)
	SaveStep(ctx context.Context, userID, step string, payload []byte) (dto.ProfileResponse, error)
}

type profileService struct {
	users     repository.UserRepository
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

// NewProfileService constructs the profile service.
func NewProfileService(users repository.UserRepository, validate *validator.Validate, logger zerolog.Logger) ProfileService {
	return &profileService{
		users:     users,
		validator: validate,
		logger:    logger.With().Str("component", "profile_service").Logger(),
		now:       time.Now,
	}
}

// Me returns the current user's profile.
func (s *profileService) Me(ctx context.Context, userID string) (dto.ProfileResponse, error) {
	profile, err := s.users.Get(ctx, userID)
	if err != nil {
		return dto.ProfileResponse{}, err
	}
	return dto.NewProfileResponse(profile), nil
}

// SaveStep validates one onboarding step and merges it into the stored
// profile. Each step only touches its own fields; earlier steps survive a
// later save untouched, and saving a step again overwrites that step only.
func (s *profileService) SaveStep(ctx context.Context, userID, step string, payload []byte) (dto.ProfileResponse, error) {
	profile, err := s.users.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProfileResponse{}, err
		}
		profile = models.UserProfile{ID: userID, CreatedAt: s.now()}
	}

	switch step {
	case dto.StepPersonal:
		var req dto.PersonalStepRequest
		if err := s.decode(payload, &req); err != nil {
			return dto.ProfileResponse{}, err
		}
		profile.FirstName = req.FirstName
		profile.MiddleName = req.MiddleName
		profile.LastName = req.LastName
		profile.PhoneNumber = req.PhoneNumber
		profile.DateOfBirth = req.DateOfBirth
		profile.Gender = req.Gender
		profile.Email = req.Email
	case dto.StepAcademic:
		var req dto.AcademicStepRequest
		if err := s.decode(payload, &req); err != nil {
			return dto.ProfileResponse{}, err
		}
		profile.Institute = req.Institute
		profile.Branch = req.Branch
		profile.Division = req.Division
		profile.RollNo = req.RollNo
		profile.AcademicYear = req.AcademicYear
	case dto.StepLocation:
		var req dto.LocationStepRequest
		if err := s.decode(payload, &req); err != nil {
			return dto.ProfileResponse{}, err
		}
		profile.Country = req.Country
		profile.State = req.State
		profile.City = req.City
		profile.Nationality = req.Nationality
	case dto.StepSocial:
		var req dto.SocialStepRequest
		if err := s.decode(payload, &req); err != nil {
			return dto.ProfileResponse{}, err
		}
		profile.Github = req.Github
		profile.Linkedin = req.Linkedin
		profile.Leetcode = req.Leetcode
		profile.Codeforces = req.Codeforces
	default:
		return dto.ProfileResponse{}, fmt.Errorf("%w: %s", ErrUnknownStep, step)
	}

	profile.UpdatedAt = s.now()
	if err := s.users.Upsert(ctx, &profile); err != nil {
		return dto.ProfileResponse{}, err
	}

	s.logger.Info().Str("user_id", userID).Str("step", step).Msg("onboarding step saved")

	return dto.NewProfileResponse(profile), nil
}

func (s *profileService) decode(payload []byte, out any) error {
	if err := json.Unmarshal(payload, out); err != nil {
		return err
	}
	return s.validator.Struct(out)
}
