package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
	"github.com/noah-isme/campus-portal-api/pkg/export"
)

// Export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type renderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

type recordReader interface {
	Record(ctx context.Context, studentID int64) (*models.AcademicRecord, error)
}

type rosterReader interface {
	Roster(ctx context.Context, actor models.Identity, courseID int64) ([]models.RosterEntry, error)
}

type studentProfileReader interface {
	Student(ctx context.Context, id int64) (*models.Student, error)
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders transcripts and rosters as CSV or PDF.
type ExportService struct {
	records  recordReader
	rosters  rosterReader
	profiles studentProfileReader
	courses  courseReader
	csv      renderer
	pdf      renderer
	logger   *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(records recordReader, rosters rosterReader, profiles studentProfileReader, courses courseReader, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		records:  records,
		rosters:  rosters,
		profiles: profiles,
		courses:  courses,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		logger:   logger,
	}
}

// Transcript renders a student's courses, grades and totals.
func (s *ExportService) Transcript(ctx context.Context, actor models.Identity, studentID int64, format string) (*ExportFile, error) {
	if err := authorizeRecordRead(actor, studentID); err != nil {
		return nil, err
	}
	r, err := s.rendererFor(format)
	if err != nil {
		return nil, err
	}
	student, err := s.profiles.Student(ctx, studentID)
	if err != nil {
		return nil, err
	}
	record, err := s.records.Record(ctx, studentID)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{
		Title:   fmt.Sprintf("Transcript – %s, %s", student.LastName, student.FirstName),
		Headers: []string{"Course", "ECTS", "Language", "Grade", "Enrolled"},
	}
	for _, c := range record.Courses {
		grade := models.FormatGrade(c.Grade)
		if grade == "" {
			grade = "-"
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Course":   c.CourseName,
			"ECTS":     strconv.Itoa(c.ECTS),
			"Language": c.Language,
			"Grade":    grade,
			"Enrolled": c.EnrollmentDate.Format("2006-01-02"),
		})
	}
	dataset.Footer = []export.FooterLine{
		{Label: "GPA", Value: record.GPA.Display()},
		{Label: "ECTS", Value: fmt.Sprintf("%d / %d", record.ECTS.Total, record.ECTS.Minimum)},
		{Label: "English ECTS", Value: strconv.Itoa(record.ECTS.English)},
		{Label: "German ECTS", Value: strconv.Itoa(record.ECTS.German)},
	}
	return s.render(r, dataset, fmt.Sprintf("transcript-%d", studentID))
}

// CourseRoster renders the enrolled students of a course with their grades.
func (s *ExportService) CourseRoster(ctx context.Context, actor models.Identity, courseID int64, format string) (*ExportFile, error) {
	r, err := s.rendererFor(format)
	if err != nil {
		return nil, err
	}
	roster, err := s.rosters.Roster(ctx, actor, courseID)
	if err != nil {
		return nil, err
	}
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, lookupError(err, "course")
	}

	dataset := export.Dataset{
		Title:   "Roster – " + course.Name,
		Headers: []string{"Enrollment", "Student", "Last name", "First name", "Grade"},
	}
	graded := 0
	for _, e := range roster {
		if e.Grade != nil {
			graded++
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Enrollment": strconv.FormatInt(e.EnrollmentID, 10),
			"Student":    strconv.FormatInt(e.StudentID, 10),
			"Last name":  e.Student.LastName,
			"First name": e.Student.FirstName,
			"Grade":      models.FormatGrade(e.Grade),
		})
	}
	dataset.Footer = []export.FooterLine{
		{Label: "Enrolled", Value: strconv.Itoa(len(roster))},
		{Label: "Graded", Value: strconv.Itoa(graded)},
	}
	return s.render(r, dataset, fmt.Sprintf("roster-%d", courseID))
}

func (s *ExportService) rendererFor(format string) (renderer, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", ExportFormatCSV:
		return s.csv, nil
	case ExportFormatPDF:
		return s.pdf, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %q", format))
	}
}

func (s *ExportService) render(r renderer, dataset export.Dataset, name string) (*ExportFile, error) {
	data, err := r.Render(dataset)
	if err != nil {
		s.logger.Error("render export failed", zap.String("name", name), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &ExportFile{
		Filename:    name + "." + r.Extension(),
		ContentType: r.ContentType(),
		Data:        data,
	}, nil
}
