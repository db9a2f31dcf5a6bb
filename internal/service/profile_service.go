package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/drive-admin-api/internal/models"
	appErrors "github.com/noah-isme/drive-admin-api/pkg/errors"
)

type profileStore interface {
	FindByUserID(ctx context.Context, userID string) (*models.Profile, error)
	Create(ctx context.Context, profile *models.Profile) error
	Update(ctx context.Context, profile *models.Profile) error
}

// ProfileService manages contact details and the profile picture.
type ProfileService struct {
	store     profileStore
	accounts  accountLookup
	images    imageStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProfileService constructs a profile service.
func NewProfileService(store profileStore, accounts accountLookup, images imageStore, validate *validator.Validate, logger *zap.Logger) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &ProfileService{store: store, accounts: accounts, images: images, validator: validate, logger: logger}
}

// Get returns the stored profile or an unsaved empty one.
func (s *ProfileService) Get(ctx context.Context, userID string) (*models.Profile, error) {
	if err := s.ensureAccount(ctx, userID); err != nil {
		return nil, err
	}
	profile, err := findOptional(ctx, s.store.FindByUserID, userID)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to load profile")
	}
	if profile == nil {
		return &models.Profile{UserID: userID}, nil
	}
	return profile, nil
}

// Update creates the profile on first write, otherwise patches supplied fields.
func (s *ProfileService) Update(ctx context.Context, userID string, req models.UpdateProfileRequest) (*models.Profile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid profile payload")
	}
	return s.upsert(ctx, userID, func(p *models.Profile) {
		if req.Phone != nil {
			p.Phone = req.Phone
		}
		if req.Address != nil {
			p.Address = req.Address
		}
		if req.Location != nil {
			p.Location = req.Location
		}
		if req.DateOfBirth != nil {
			p.DateOfBirth = req.DateOfBirth
		}
	})
}

// UploadImage stores the picture then records its URL. On upload failure nothing is written.
func (s *ProfileService) UploadImage(ctx context.Context, userID string, req models.UploadImageRequest) (*models.Profile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid image payload")
	}
	if err := s.ensureAccount(ctx, userID); err != nil {
		return nil, err
	}
	url, err := s.images.Store(ctx, "profiles", []byte(req.Image))
	if err != nil {
		s.logger.Warn("profile image upload failed", zap.String("user_id", userID), zap.Error(err))
		return nil, appErrors.Upstream(err, "failed to store profile image")
	}
	return s.upsert(ctx, userID, func(p *models.Profile) {
		p.ImageURL = &url
	})
}

func (s *ProfileService) upsert(ctx context.Context, userID string, apply func(*models.Profile)) (*models.Profile, error) {
	if err := s.ensureAccount(ctx, userID); err != nil {
		return nil, err
	}
	profile, err := findOptional(ctx, s.store.FindByUserID, userID)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to load profile")
	}
	if profile == nil {
		profile = &models.Profile{UserID: userID}
		apply(profile)
		if err := s.store.Create(ctx, profile); err != nil {
			return nil, appErrors.Persistence(err, "failed to create profile")
		}
		return profile, nil
	}
	apply(profile)
	if err := s.store.Update(ctx, profile); err != nil {
		return nil, appErrors.WriteFailure(err, "failed to update profile")
	}
	return profile, nil
}

func (s *ProfileService) ensureAccount(ctx context.Context, userID string) error {
	if _, err := s.accounts.FindByID(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "account not found")
		}
		return appErrors.Persistence(err, "failed to load account")
	}
	return nil
}
