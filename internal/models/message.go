package models

import "time"

// Message is a row in messages. IsRead only ever moves from false to true.
type Message struct {
	ID           int64     `db:"id" json:"id"`
	SenderRole   Role      `db:"sender_role" json:"sender_role"`
	SenderID     int64     `db:"sender_id" json:"sender_id"`
	ReceiverRole Role      `db:"receiver_role" json:"receiver_role"`
	ReceiverID   int64     `db:"receiver_id" json:"receiver_id"`
	Title        string    `db:"title" json:"title"`
	Content      string    `db:"content" json:"content"`
	IsRead       bool      `db:"is_read" json:"is_read"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// MessageView is a message with resolved display names.
type MessageView struct {
	Message
	SenderName   string `db:"sender_name" json:"sender_name"`
	ReceiverName string `db:"receiver_name" json:"receiver_name"`
}

// Draft is an outgoing message before its receivers are fixed.
type Draft struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"required,max=10000"`
}

// CohortSelector names a fan-out audience.
type CohortSelector string

const (
	CohortECTSBelowMinimum    CohortSelector = "ects_below_minimum"
	CohortLanguageRequirement CohortSelector = "language_requirement"
	CohortAllStudents         CohortSelector = "all_students"
	CohortAllLecturers        CohortSelector = "all_lecturers"
)

// Valid reports whether s is a known selector.
func (s CohortSelector) Valid() bool {
	switch s {
	case CohortECTSBelowMinimum, CohortLanguageRequirement, CohortAllStudents, CohortAllLecturers:
		return true
	}
	return false
}

// ReceiverRole is the role every member of the cohort holds.
func (s CohortSelector) ReceiverRole() Role {
	if s == CohortAllLecturers {
		return RoleLecturer
	}
	return RoleStudent
}

// FanOut reports the receivers a broadcast reached. The insert is atomic so
// either every listed receiver got the message or none did.
type FanOut struct {
	ReceiverRole Role    `json:"receiver_role"`
	ReceiverIDs  []int64 `json:"receiver_ids"`
	Count        int     `json:"count"`
}
