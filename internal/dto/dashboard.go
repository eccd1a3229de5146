package dto

import (
	"time"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

// StudentDashboardResponse is everything the student dashboard renders.
type StudentDashboardResponse struct {
	Profile     models.Student         `json:"profile"`
	Courses     []models.StudentCourse `json:"courses"`
	ECTS        models.ECTSSummary     `json:"ects"`
	GPA         models.GPA             `json:"gpa"`
	GPADisplay  string                 `json:"gpaDisplay"`
	Timetable   TimetableGrid          `json:"timetable"`
	Available   []models.CourseSummary `json:"availableCourses"`
	Full        []models.CourseSummary `json:"fullCourses"`
	Unread      int                    `json:"unread"`
	GeneratedAt time.Time              `json:"generatedAt"`
}

// LecturerDashboardResponse is everything the lecturer dashboard renders.
type LecturerDashboardResponse struct {
	Profile      models.Lecturer             `json:"profile"`
	Courses      []models.CourseSummary      `json:"courses"`
	Progress     []models.GradingProgress    `json:"gradingProgress"`
	Distribution []models.CourseDistribution `json:"gradeDistribution"`
	Timetable    TimetableGrid               `json:"timetable"`
	Unread       int                         `json:"unread"`
	GeneratedAt  time.Time                   `json:"generatedAt"`
}

// AdminDashboardResponse captures the aggregated admin dashboard payload.
type AdminDashboardResponse struct {
	Flagged     FlaggedStudentsSection    `json:"flagged"`
	Lecturers   []models.LecturerOverview `json:"lecturers"`
	Rooms       []RoomTimetable           `json:"rooms"`
	Unread      int                       `json:"unread"`
	GeneratedAt time.Time                 `json:"generatedAt"`
}

// FlaggedStudentsSection lists students failing each requirement check.
type FlaggedStudentsSection struct {
	ECTS     []models.FlaggedStudent `json:"ects"`
	Language []models.FlaggedStudent `json:"language"`
	GPA      []models.FlaggedStudent `json:"gpa"`
}

// RoomTimetable is the weekly grid of one room.
type RoomTimetable struct {
	Room models.Room   `json:"room"`
	Grid TimetableGrid `json:"grid"`
}
