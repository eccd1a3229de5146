package models

import (
	"fmt"
	"math"
	"strings"
)

// Grade scale bounds. Lower is better; grades move in quarter steps.
const (
	MinGrade  = 1.00
	MaxGrade  = 6.00
	GradeStep = 0.25

	gradeTolerance = 1e-9
)

// ErrInvalidGrade is returned for grades off the academic scale.
var ErrInvalidGrade = fmt.Errorf("grade must be empty or between %.2f and %.2f in steps of %.2f", MinGrade, MaxGrade, GradeStep)

// ValidateGrade accepts nil (unpublished) or a value on the quarter-step scale.
func ValidateGrade(grade *float64) error {
	if grade == nil {
		return nil
	}
	g := *grade
	if math.IsNaN(g) || math.IsInf(g, 0) {
		return ErrInvalidGrade
	}
	if g < MinGrade-gradeTolerance || g > MaxGrade+gradeTolerance {
		return ErrInvalidGrade
	}
	steps := g / GradeStep
	if math.Abs(steps-math.Round(steps)) > gradeTolerance {
		return ErrInvalidGrade
	}
	return nil
}

// GradeScale lists every valid grade from best to worst.
func GradeScale() []float64 {
	n := int((MaxGrade-MinGrade)/GradeStep) + 1
	out := make([]float64, n)
	for i := range out {
		out[i] = MinGrade + float64(i)*GradeStep
	}
	return out
}

// FormatGrade renders a grade with two decimals, or "" when unpublished.
func FormatGrade(grade *float64) string {
	if grade == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *grade)
}

// GradeUpdate sets or clears the grade of one enrollment.
type GradeUpdate struct {
	EnrollmentID int64    `json:"enrollment_id"`
	Grade        *float64 `json:"grade"`
}

// GradeScope bounds a grade batch to a lecturer and optionally one course.
type GradeScope struct {
	CourseID   *int64
	LecturerID int64
}

// GradeBatchResult reports how far a sequential batch got.
type GradeBatchResult struct {
	Applied            int    `json:"applied"`
	FailedEnrollmentID *int64 `json:"failed_enrollment_id,omitempty"`
}

// Requirements are the academic thresholds applied to a student.
type Requirements struct {
	MinimumECTS         int
	MaximumECTS         int
	LanguageMinimumECTS int
	GPAPassThreshold    float64
}

// GPA is the ECTS weighted grade average. Value is nil when nothing is graded.
type GPA struct {
	Value           *float64 `json:"value"`
	GradedECTS      int      `json:"graded_ects"`
	GradedCourses   int      `json:"graded_courses"`
	PassesDashboard *bool    `json:"passes,omitempty"`
}

// Display renders the GPA rounded to two decimals.
func (g GPA) Display() string {
	if g.Value == nil {
		return "no grades published yet"
	}
	return fmt.Sprintf("%.2f", *g.Value)
}

// ComputeGPA weights each graded course by its ECTS. The dashboard pass flag
// is set when the average is at or above the threshold.
func ComputeGPA(courses []StudentCourse, passThreshold float64) GPA {
	var weighted float64
	var gpa GPA
	for _, c := range courses {
		if c.Grade == nil {
			continue
		}
		weighted += *c.Grade * float64(c.ECTS)
		gpa.GradedECTS += c.ECTS
		gpa.GradedCourses++
	}
	if gpa.GradedECTS == 0 {
		return gpa
	}
	value := weighted / float64(gpa.GradedECTS)
	passes := value >= passThreshold
	gpa.Value = &value
	gpa.PassesDashboard = &passes
	return gpa
}

// ECTSSummary totals a student's credits against the requirements.
type ECTSSummary struct {
	Total           int  `json:"total"`
	English         int  `json:"english"`
	German          int  `json:"german"`
	Minimum         int  `json:"minimum"`
	Maximum         int  `json:"maximum"`
	LanguageMinimum int  `json:"language_minimum"`
	MeetsMinimum    bool `json:"meets_minimum"`
	MeetsLanguage   bool `json:"meets_language"`
	Remaining       int  `json:"remaining"`
	MissingEnglish  int  `json:"missing_english"`
	MissingGerman   int  `json:"missing_german"`
}

// ComputeECTS sums credits over all enrollments, graded or not.
func ComputeECTS(courses []StudentCourse, req Requirements) ECTSSummary {
	s := ECTSSummary{Minimum: req.MinimumECTS, Maximum: req.MaximumECTS, LanguageMinimum: req.LanguageMinimumECTS}
	for _, c := range courses {
		s.Total += c.ECTS
		switch strings.ToLower(strings.TrimSpace(c.Language)) {
		case LanguageEnglish:
			s.English += c.ECTS
		case LanguageGerman:
			s.German += c.ECTS
		}
	}
	s.MeetsMinimum = s.Total >= req.MinimumECTS
	s.Remaining = positive(req.MaximumECTS - s.Total)
	s.MissingEnglish = positive(req.LanguageMinimumECTS - s.English)
	s.MissingGerman = positive(req.LanguageMinimumECTS - s.German)
	s.MeetsLanguage = s.MissingEnglish == 0 && s.MissingGerman == 0
	return s
}

func positive(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// GradingProgress is the share of graded enrollments in one course.
type GradingProgress struct {
	CourseID   int64   `db:"course_id" json:"course_id"`
	CourseName string  `db:"course_name" json:"course_name"`
	ECTS       int     `db:"ects" json:"ects"`
	Graded     int     `db:"graded" json:"graded"`
	Total      int     `db:"total" json:"total"`
	Percentage float64 `db:"-" json:"percentage"`
}

// Finish derives the rounded percentage.
func (p *GradingProgress) Finish() {
	if p.Total == 0 {
		p.Percentage = 0
		return
	}
	p.Percentage = math.Round(float64(p.Graded) * 100 / float64(p.Total))
}

// GradeBin counts grades falling in an inclusive range.
type GradeBin struct {
	Label string  `json:"label"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

// DistributionBins returns the empty reporting bins: one per whole grade, 6.00 alone.
func DistributionBins() []GradeBin {
	return []GradeBin{
		{Label: "1.00 - 1.75", Min: 1.00, Max: 1.75},
		{Label: "2.00 - 2.75", Min: 2.00, Max: 2.75},
		{Label: "3.00 - 3.75", Min: 3.00, Max: 3.75},
		{Label: "4.00 - 4.75", Min: 4.00, Max: 4.75},
		{Label: "5.00 - 5.75", Min: 5.00, Max: 5.75},
		{Label: "6.00", Min: 6.00, Max: 6.00},
	}
}

// GradeCount is the number of enrollments holding an exact grade.
type GradeCount struct {
	Grade float64 `json:"grade"`
	Count int     `json:"count"`
}

// CourseGrade is one graded enrollment of a lecturer's course.
type CourseGrade struct {
	CourseID   int64   `db:"course_id"`
	CourseName string  `db:"course_name"`
	Grade      float64 `db:"grade"`
}

// CourseDistribution groups a course's grades into bins and an exact histogram.
type CourseDistribution struct {
	CourseID   int64        `json:"course_id"`
	CourseName string       `json:"course_name"`
	Bins       []GradeBin   `json:"bins"`
	Histogram  []GradeCount `json:"histogram"`
}

// BuildDistributions folds graded rows into per-course distributions,
// preserving the order courses first appear in.
func BuildDistributions(rows []CourseGrade) []CourseDistribution {
	scale := GradeScale()
	index := map[int64]int{}
	var out []CourseDistribution
	for _, row := range rows {
		i, ok := index[row.CourseID]
		if !ok {
			hist := make([]GradeCount, len(scale))
			for j, g := range scale {
				hist[j] = GradeCount{Grade: g}
			}
			out = append(out, CourseDistribution{CourseID: row.CourseID, CourseName: row.CourseName, Bins: DistributionBins(), Histogram: hist})
			i = len(out) - 1
			index[row.CourseID] = i
		}
		d := &out[i]
		for b := range d.Bins {
			if row.Grade >= d.Bins[b].Min-gradeTolerance && row.Grade <= d.Bins[b].Max+gradeTolerance {
				d.Bins[b].Count++
				break
			}
		}
		step := int(math.Round((row.Grade - MinGrade) / GradeStep))
		if step >= 0 && step < len(d.Histogram) {
			d.Histogram[step].Count++
		}
	}
	return out
}

// FlaggedStudent is a student failing one of the admin requirement checks.
type FlaggedStudent struct {
	StudentID   int64    `db:"student_id" json:"student_id"`
	FirstName   string   `db:"first_name" json:"first_name"`
	LastName    string   `db:"last_name" json:"last_name"`
	TotalECTS   *int     `db:"total_ects" json:"total_ects,omitempty"`
	EnglishECTS *int     `db:"ects_english" json:"ects_english,omitempty"`
	GermanECTS  *int     `db:"ects_german" json:"ects_german,omitempty"`
	GPA         *float64 `db:"gpa" json:"gpa,omitempty"`
}

// LecturerOverview aggregates one lecturer's teaching load.
type LecturerOverview struct {
	LecturerID       int64  `db:"lecturer_id" json:"lecturer_id"`
	FirstName        string `db:"first_name" json:"first_name"`
	LastName         string `db:"last_name" json:"last_name"`
	NumberOfCourses  int    `db:"number_of_courses" json:"number_of_courses"`
	TotalEnrollments int    `db:"total_enrollments" json:"total_enrollments"`
	TotalECTS        int    `db:"total_ects" json:"total_ects"`
	EnglishECTS      int    `db:"ects_english" json:"ects_english"`
	GermanECTS       int    `db:"ects_german" json:"ects_german"`
	CampusECTS       int    `db:"ects_campus" json:"ects_campus"`
	OnlineECTS       int    `db:"ects_online" json:"ects_online"`
	BlendedECTS      int    `db:"ects_blended" json:"ects_blended"`
}

// AcademicRecord is a student's courses with the aggregates derived from them.
type AcademicRecord struct {
	StudentID int64           `json:"student_id"`
	Courses   []StudentCourse `json:"courses"`
	GPA       GPA             `json:"gpa"`
	ECTS      ECTSSummary     `json:"ects"`
}
