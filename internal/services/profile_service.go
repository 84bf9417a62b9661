package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/admin-console/internal/models"
	"github.com/SAP-F-2025/admin-console/internal/repositories"
	"github.com/SAP-F-2025/admin-console/internal/validator"
)

type profileService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewProfileService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) ProfileService {
	return &profileService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

func (s *profileService) List(ctx context.Context, params models.ListProfilesParams) (*models.PaginatedResponse, error) {
	page, size := normalizePage(params.Page, params.Size)

	filters := repositories.ProfileFilters{
		Role:      params.Role,
		Search:    params.Search,
		Limit:     size,
		Offset:    (page - 1) * size,
		SortBy:    "full_name",
		SortOrder: "asc",
	}

	profiles, total, err := s.repo.Profile().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}

	response := models.NewPaginatedResponse(profiles, len(profiles), total, page, size)
	return &response, nil
}

func (s *profileService) Get(ctx context.Context, id string) (*models.Profile, error) {
	profile, err := s.repo.Profile().GetByID(ctx, nil, id)
	if err != nil {
		return nil, lookupError(err, "profile")
	}
	return profile, nil
}

// Update edits a profile. Users edit their own profile; admins edit anyone's.
// Role changes go through the role change rules.
func (s *profileService) Update(ctx context.Context, actor *models.Profile, id string, req *ProfileUpdateRequest) (*models.Profile, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if actor.ID != id && !isAdmin(actor) {
		return nil, NewPermissionError(actor.ID, id, "profile", "update", "not owner or administrator")
	}

	profile, err := s.repo.Profile().GetByID(ctx, nil, id)
	if err != nil {
		return nil, lookupError(err, "profile")
	}

	if req.Role != nil && *req.Role != profile.Role {
		bv := s.validator.GetBusinessValidator()
		if err := validationFailure(bv.ValidateRoleChange(actor, id, *req.Role)); err != nil {
			return nil, err
		}
		profile.Role = *req.Role
	}
	if req.FullName != nil {
		profile.FullName = *req.FullName
	}
	if req.AvatarURL != nil {
		profile.AvatarURL = req.AvatarURL
	}
	if req.Bio != nil {
		profile.Bio = req.Bio
	}
	if req.MentorID != nil {
		if *req.MentorID == id {
			return nil, NewValidationError("mentor_id", "a profile cannot mentor itself", *req.MentorID)
		}
		profile.MentorID = req.MentorID
	}

	if err := s.repo.Profile().Update(ctx, nil, profile); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	s.logger.Info("Profile updated",
		"profile_id", id,
		"actor_id", actor.ID,
		"role", profile.Role)

	return profile, nil
}

func (s *profileService) Recipients(ctx context.Context, actor *models.Profile) ([]*models.Profile, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	profiles, err := s.repo.Profile().ListNamed(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipients: %w", err)
	}

	recipients := make([]*models.Profile, 0, len(profiles))
	for _, p := range profiles {
		if p.ID != actor.ID {
			recipients = append(recipients, p)
		}
	}
	return recipients, nil
}
