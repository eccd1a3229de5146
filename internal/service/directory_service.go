package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

type studentDirectory interface {
	FindByID(ctx context.Context, id int64) (*models.Student, error)
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
	Names(ctx context.Context, ids []int64) ([]models.Person, error)
	ListAll(ctx context.Context) ([]models.Person, error)
}

type lecturerDirectory interface {
	FindByID(ctx context.Context, id int64) (*models.Lecturer, error)
	FindByUserID(ctx context.Context, userID string) (*models.Lecturer, error)
	Names(ctx context.Context, ids []int64) ([]models.Person, error)
	ListAll(ctx context.Context) ([]models.Person, error)
}

// DirectoryService resolves identities to people. Each role has exactly one
// resolver; the admin is never looked up in a table.
type DirectoryService struct {
	students  studentDirectory
	lecturers lecturerDirectory
	logger    *zap.Logger
}

// NewDirectoryService constructs DirectoryService.
func NewDirectoryService(students studentDirectory, lecturers lecturerDirectory, logger *zap.Logger) *DirectoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectoryService{students: students, lecturers: lecturers, logger: logger}
}

// Resolve returns the display party for an identity or NotFound.
func (s *DirectoryService) Resolve(ctx context.Context, who models.Identity) (models.Party, error) {
	switch id := who.(type) {
	case models.StudentIdentity:
		student, err := s.students.FindByID(ctx, id.ID)
		if err != nil {
			return models.Party{}, lookupError(err, "student")
		}
		return models.Party{Role: models.RoleStudent, ID: student.ID, Name: student.FullName()}, nil
	case models.LecturerIdentity:
		lecturer, err := s.lecturers.FindByID(ctx, id.ID)
		if err != nil {
			return models.Party{}, lookupError(err, "lecturer")
		}
		return models.Party{Role: models.RoleLecturer, ID: lecturer.ID, Name: lecturer.FullName()}, nil
	case models.AdminIdentity:
		return adminParty(), nil
	default:
		return models.Party{}, appErrors.Clone(appErrors.ErrValidation, "identity is required")
	}
}

// Student loads the full student row.
func (s *DirectoryService) Student(ctx context.Context, id int64) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "student")
	}
	return student, nil
}

// Lecturer loads the full lecturer row.
func (s *DirectoryService) Lecturer(ctx context.Context, id int64) (*models.Lecturer, error) {
	lecturer, err := s.lecturers.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "lecturer")
	}
	return lecturer, nil
}

// Names resolves display names for many identities with one query per role.
// Identities that no longer exist map to an empty name.
func (s *DirectoryService) Names(ctx context.Context, who []models.Identity) (map[string]string, error) {
	names := make(map[string]string, len(who))
	var studentIDs, lecturerIDs []int64
	seen := map[string]bool{}
	for _, id := range who {
		if id == nil || seen[id.String()] {
			continue
		}
		seen[id.String()] = true
		switch v := id.(type) {
		case models.StudentIdentity:
			studentIDs = append(studentIDs, v.ID)
		case models.LecturerIdentity:
			lecturerIDs = append(lecturerIDs, v.ID)
		case models.AdminIdentity:
			names[v.String()] = models.AdminDisplayName
		}
	}

	if len(studentIDs) > 0 {
		people, err := s.students.Names(ctx, studentIDs)
		if err != nil {
			return nil, appErrors.FromStore(err, "failed to resolve student names")
		}
		for _, p := range people {
			names[models.StudentIdentity{ID: p.ID}.String()] = p.FullName()
		}
	}
	if len(lecturerIDs) > 0 {
		people, err := s.lecturers.Names(ctx, lecturerIDs)
		if err != nil {
			return nil, appErrors.FromStore(err, "failed to resolve lecturer names")
		}
		for _, p := range people {
			names[models.LecturerIdentity{ID: p.ID}.String()] = p.FullName()
		}
	}
	return names, nil
}

// Recipients lists every addressable party: students, then lecturers, then the admin.
func (s *DirectoryService) Recipients(ctx context.Context) ([]models.Party, error) {
	students, err := s.students.ListAll(ctx)
	if err != nil {
		return nil, appErrors.FromStore(err, "failed to list students")
	}
	lecturers, err := s.lecturers.ListAll(ctx)
	if err != nil {
		return nil, appErrors.FromStore(err, "failed to list lecturers")
	}
	out := make([]models.Party, 0, len(students)+len(lecturers)+1)
	for _, p := range students {
		out = append(out, models.Party{Role: models.RoleStudent, ID: p.ID, Name: p.FullName()})
	}
	for _, p := range lecturers {
		out = append(out, models.Party{Role: models.RoleLecturer, ID: p.ID, Name: p.FullName()})
	}
	return append(out, adminParty()), nil
}

// IdentityForClaims maps verified token claims to an identity. When the token
// carries no person id the student or lecturer row is found by user id.
func (s *DirectoryService) IdentityForClaims(ctx context.Context, claims *models.Claims) (models.Identity, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if claims.Role == models.RoleAdmin {
		return models.Admin, nil
	}
	if claims.PersonID != nil {
		id, err := models.ParseIdentity(string(claims.Role), *claims.PersonID)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token carries an invalid identity")
		}
		return id, nil
	}
	userID := claims.UserID()
	if userID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token has no subject")
	}
	switch claims.Role {
	case models.RoleStudent:
		student, err := s.students.FindByUserID(ctx, userID)
		if err != nil {
			return nil, identityLookupError(err, userID)
		}
		return student.Identity(), nil
	case models.RoleLecturer:
		lecturer, err := s.lecturers.FindByUserID(ctx, userID)
		if err != nil {
			return nil, identityLookupError(err, userID)
		}
		return lecturer.Identity(), nil
	default:
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, fmt.Sprintf("unknown role %q", claims.Role))
	}
}

func adminParty() models.Party {
	return models.Party{Role: models.RoleAdmin, ID: models.AdminID, Name: models.AdminDisplayName}
}

func lookupError(err error, kind string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, kind+" not found")
	}
	return appErrors.FromStore(err, "failed to load "+kind)
}

func identityLookupError(err error, userID string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrForbidden, "no portal profile for user "+userID)
	}
	return appErrors.FromStore(err, "failed to resolve identity")
}
