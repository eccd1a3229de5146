package models

import (
	"errors"
	"strings"
)

// CourseFormat is how a course is delivered.
type CourseFormat string

const (
	FormatCampus  CourseFormat = "campus"
	FormatOnline  CourseFormat = "online"
	FormatBlended CourseFormat = "blended"
)

// Valid reports whether f is a known format.
func (f CourseFormat) Valid() bool {
	switch f {
	case FormatCampus, FormatOnline, FormatBlended:
		return true
	}
	return false
}

// Languages counted towards the language requirement.
const (
	LanguageEnglish = "english"
	LanguageGerman  = "german"
)

// Course is a row in courses. A nil MaxParticipants means unlimited.
type Course struct {
	ID              int64        `db:"id" json:"id"`
	Name            string       `db:"course_name" json:"course_name"`
	ECTS            int          `db:"ects" json:"ects"`
	Language        string       `db:"language" json:"language"`
	Format          CourseFormat `db:"format" json:"format"`
	MaxParticipants *int         `db:"max_participants" json:"max_participants"`
	LecturerID      *int64       `db:"lecturer_id" json:"lecturer_id"`
	Status          *string      `db:"status" json:"status,omitempty"`
}

// HasCapacity reports whether one more student fits given the current count.
func (c Course) HasCapacity(enrolled int) bool {
	return c.MaxParticipants == nil || enrolled < *c.MaxParticipants
}

// OwnedBy reports whether the lecturer teaches the course.
func (c Course) OwnedBy(lecturerID int64) bool {
	return c.LecturerID != nil && *c.LecturerID == lecturerID
}

// LanguageIs compares the course language case-insensitively.
func (c Course) LanguageIs(language string) bool {
	return strings.EqualFold(strings.TrimSpace(c.Language), language)
}

// CourseSummary is a course with derived enrollment figures.
type CourseSummary struct {
	Course
	LecturerName  *string `db:"lecturer_name" json:"lecturer_name,omitempty"`
	EnrolledCount int     `db:"enrolled_count" json:"enrolled_count"`
	HasCapacity   bool    `db:"-" json:"has_capacity"`
}

// CourseFilter narrows the catalog.
type CourseFilter struct {
	Language   string
	Format     CourseFormat
	LecturerID *int64
	// AvailableFor excludes courses the student is already enrolled in.
	AvailableFor *int64
	OnlyOpen     bool
}

// ErrCourseNotFound is returned by stores when a course id does not exist.
var ErrCourseNotFound = errors.New("course not found")
