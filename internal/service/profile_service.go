package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

type contactWriter interface {
	UpdateContact(ctx context.Context, userID, phone, address string) (int64, error)
}

// ProfileService updates the contact details people maintain themselves.
type ProfileService struct {
	students  contactWriter
	lecturers contactWriter
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProfileService constructs ProfileService.
func NewProfileService(students, lecturers contactWriter, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ProfileService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{students: students, lecturers: lecturers, cache: cache, validator: validate, logger: logger}
}

// UpdateContact sets phone and address on the student or lecturer row owned
// by update.UserID. Only the owner or the admin may change it.
func (s *ProfileService) UpdateContact(ctx context.Context, actor models.Identity, actorUserID string, update models.ContactUpdate) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	update.UserID = strings.TrimSpace(update.UserID)
	update.Role = models.Role(strings.ToLower(strings.TrimSpace(string(update.Role))))
	if err := s.validator.Struct(update); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "userId and role are required")
	}

	var store contactWriter
	switch update.Role {
	case models.RoleStudent:
		store = s.students
	case models.RoleLecturer:
		store = s.lecturers
	default:
		return appErrors.Clone(appErrors.ErrValidation, "Invalid role")
	}

	if !models.IsAdmin(actor) && (actor.Role() != update.Role || actorUserID != update.UserID) {
		return appErrors.Clone(appErrors.ErrForbidden, "profiles can only be edited by their owner")
	}

	rows, err := store.UpdateContact(ctx, update.UserID, update.Phone, update.Address)
	if err != nil {
		s.logger.Error("update contact failed", zap.String("user_id", update.UserID), zap.String("role", string(update.Role)), zap.Error(err))
		return appErrors.FromStore(err, "failed to update profile")
	}
	if rows == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "profile not found")
	}
	if !models.IsAdmin(actor) {
		s.cache.InvalidateDashboards(ctx, actor)
	}
	return nil
}
