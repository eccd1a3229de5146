package models

import (
	"strings"
	"time"
)

// Person holds the columns shared by students and lecturers.
type Person struct {
	ID        int64      `db:"id" json:"id"`
	UserID    *string    `db:"user_id" json:"user_id,omitempty"`
	FirstName string     `db:"first_name" json:"first_name"`
	LastName  string     `db:"last_name" json:"last_name"`
	Email     *string    `db:"email" json:"email,omitempty"`
	Phone     *string    `db:"phone" json:"phone,omitempty"`
	Address   *string    `db:"address" json:"address,omitempty"`
	Birthday  *time.Time `db:"birthday" json:"birthday,omitempty"`
}

// FullName joins first and last name.
func (p Person) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Student is a row in students.
type Student struct {
	Person
	EnrollmentDate *time.Time `db:"enrollment_date" json:"enrollment_date,omitempty"`
}

// Identity returns the student's identity.
func (s Student) Identity() Identity { return StudentIdentity{ID: s.ID} }

// Lecturer is a row in lecturers.
type Lecturer struct {
	Person
}

// Identity returns the lecturer's identity.
func (l Lecturer) Identity() Identity { return LecturerIdentity{ID: l.ID} }

// ContactUpdate changes the mutable contact columns of a student or lecturer.
type ContactUpdate struct {
	UserID  string `json:"userId" validate:"required"`
	Role    Role   `json:"role" validate:"required"`
	Phone   string `json:"phone" validate:"max=64"`
	Address string `json:"address" validate:"max=255"`
}
