package models

import (
	"errors"
	"time"
)

// Store level enrollment outcomes.
var (
	ErrAlreadyEnrolled    = errors.New("student already enrolled in course")
	ErrCourseFull         = errors.New("course has reached max participants")
	ErrEnrollmentNotFound = errors.New("enrollment not found")
)

// Enrollment is a row in enrollments.
type Enrollment struct {
	EnrollmentID   int64     `db:"enrollment_id" json:"enrollment_id"`
	StudentID      int64     `db:"student_id" json:"student_id"`
	CourseID       int64     `db:"course_id" json:"course_id"`
	EnrollmentDate time.Time `db:"enrollment_date" json:"enrollment_date"`
	Grade          *float64  `db:"grade" json:"grade"`
}

// EnrollmentRequest is the body of enroll and disenroll calls.
type EnrollmentRequest struct {
	StudentID int64 `json:"student_id" validate:"required,gt=0"`
	CourseID  int64 `json:"course_id" validate:"required,gt=0"`
}

// RosterStudent is the nested student name of a roster entry.
type RosterStudent struct {
	FirstName string `db:"first_name" json:"first_name"`
	LastName  string `db:"last_name" json:"last_name"`
}

// RosterEntry is one enrolled student of a course as fetch-enrollments returns it.
type RosterEntry struct {
	EnrollmentID int64         `db:"enrollment_id" json:"enrollment_id"`
	StudentID    int64         `db:"student_id" json:"student_id"`
	Grade        *float64      `db:"grade" json:"grade"`
	Student      RosterStudent `db:"students" json:"students"`
}

// StudentCourse is an enrollment joined with its course.
type StudentCourse struct {
	EnrollmentID   int64        `db:"enrollment_id" json:"enrollment_id"`
	CourseID       int64        `db:"course_id" json:"course_id"`
	CourseName     string       `db:"course_name" json:"course_name"`
	ECTS           int          `db:"ects" json:"ects"`
	Language       string       `db:"language" json:"language"`
	Format         CourseFormat `db:"format" json:"format"`
	LecturerName   *string      `db:"lecturer_name" json:"lecturer_name,omitempty"`
	EnrollmentDate time.Time    `db:"enrollment_date" json:"enrollment_date"`
	Grade          *float64     `db:"grade" json:"grade"`
}
