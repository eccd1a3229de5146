package models

import (
	"fmt"
	"strings"

	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

// Role is the stored role discriminator used by messages and tokens.
type Role string

const (
	RoleStudent  Role = "student"
	RoleLecturer Role = "lecturer"
	RoleAdmin    Role = "admin"
)

// AdminID is the reserved id the single admin account is stored under.
const AdminID int64 = 1

// AdminDisplayName is shown wherever the admin is a sender or receiver.
const AdminDisplayName = "Admin"

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleLecturer, RoleAdmin:
		return true
	}
	return false
}

// Identity is a portal participant. Exactly one of StudentIdentity,
// LecturerIdentity or AdminIdentity.
type Identity interface {
	Role() Role
	Key() int64
	String() string
	identity()
}

// StudentIdentity identifies a row in students.
type StudentIdentity struct{ ID int64 }

// LecturerIdentity identifies a row in lecturers.
type LecturerIdentity struct{ ID int64 }

// AdminIdentity is the portal administrator.
type AdminIdentity struct{}

func (StudentIdentity) Role() Role  { return RoleStudent }
func (LecturerIdentity) Role() Role { return RoleLecturer }
func (AdminIdentity) Role() Role    { return RoleAdmin }

func (s StudentIdentity) Key() int64  { return s.ID }
func (l LecturerIdentity) Key() int64 { return l.ID }
func (AdminIdentity) Key() int64      { return AdminID }

func (s StudentIdentity) String() string  { return fmt.Sprintf("student:%d", s.ID) }
func (l LecturerIdentity) String() string { return fmt.Sprintf("lecturer:%d", l.ID) }
func (AdminIdentity) String() string      { return "admin" }

func (StudentIdentity) identity()  {}
func (LecturerIdentity) identity() {}
func (AdminIdentity) identity()    {}

// Admin is the admin identity.
var Admin Identity = AdminIdentity{}

// ParseIdentity converts a stored (role, id) pair into an Identity. The id of
// an admin pair is ignored.
func ParseIdentity(role string, id int64) (Identity, error) {
	switch Role(strings.ToLower(strings.TrimSpace(role))) {
	case RoleStudent:
		if id <= 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "student id must be positive")
		}
		return StudentIdentity{ID: id}, nil
	case RoleLecturer:
		if id <= 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "lecturer id must be positive")
		}
		return LecturerIdentity{ID: id}, nil
	case RoleAdmin:
		return AdminIdentity{}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown role %q", role))
	}
}

// IsAdmin reports whether id is the admin.
func IsAdmin(id Identity) bool {
	_, ok := id.(AdminIdentity)
	return ok
}

// SameIdentity compares two identities by role and key.
func SameIdentity(a, b Identity) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Role() == b.Role() && a.Key() == b.Key()
}

// IsStudent reports whether id is the given student.
func IsStudent(id Identity, studentID int64) bool {
	s, ok := id.(StudentIdentity)
	return ok && s.ID == studentID
}

// IsLecturer reports whether id is the given lecturer.
func IsLecturer(id Identity, lecturerID int64) bool {
	l, ok := id.(LecturerIdentity)
	return ok && l.ID == lecturerID
}

// Party is a resolved identity with its display name.
type Party struct {
	Role Role   `json:"role"`
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
