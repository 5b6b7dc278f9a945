package academics

import (
	"strconv"
	"time"

	"github.com/trezcool/masomo-portal/core"
)

type (
	Subject struct {
		ID          int         `json:"id"`
		Name        string      `json:"name"`
		Code        string      `json:"code,omitempty"`
		Coefficient core.Number `json:"coefficient"`
		IsActive    bool        `json:"is_active"`
	}

	ExamType struct {
		ID         int         `json:"id"`
		Name       string      `json:"name"`
		Percentage core.Number `json:"percentage"`
	}

	Level struct {
		ID          int      `json:"id"`
		Name        string   `json:"name"`
		ParentLevel core.Ref `json:"parent_level"`
		Order       int      `json:"order"`
		IsActive    bool     `json:"is_active"`
	}

	Class struct {
		ID           int      `json:"id"`
		Name         string   `json:"name"`
		Level        core.Ref `json:"level"`
		AcademicYear core.Ref `json:"academic_year"`
		Capacity     int      `json:"capacity"`
		IsActive     bool     `json:"is_active"`
	}

	Attendance struct {
		ID      int       `json:"id"`
		Student core.Ref  `json:"student"`
		Class   core.Ref  `json:"class_obj"`
		Date    core.Date `json:"date"`
		Status  string    `json:"status"` // present | absent | late | excused
		Teacher core.Ref  `json:"teacher"`
		Notes   string    `json:"notes"`
	}

	Grade struct {
		ID           int         `json:"id"`
		Student      core.Ref    `json:"student"`
		Subject      core.Ref    `json:"subject"`
		ExamType     core.Ref    `json:"exam_type"`
		Trimester    core.Ref    `json:"trimester"`
		Grade        core.Number `json:"grade"`
		MaxGrade     core.Number `json:"max_grade"`
		TeacherNotes string      `json:"teacher_notes"`
		CreatedAt    time.Time   `json:"created_at"`
	}

	// GradeReport is the backend's weighted averages of a student for one trimester.
	GradeReport struct {
		StudentID        core.Number               `json:"student_id"`
		TrimesterID      core.Number               `json:"trimester_id"`
		SubjectAverages  map[string]SubjectAverage `json:"subject_averages"`
		OverallAverage   core.Number               `json:"overall_average"`
		TotalCoefficient core.Number               `json:"total_coefficient"`
	}

	SubjectAverage struct {
		SubjectName string          `json:"subject_name"`
		Average     core.Number     `json:"average"`
		Coefficient core.Number     `json:"coefficient"`
		Grades      []WeightedGrade `json:"grades"`
	}

	WeightedGrade struct {
		ExamType      string      `json:"exam_type"`
		Grade         core.Number `json:"grade"`
		Percentage    core.Number `json:"percentage"`
		WeightedGrade core.Number `json:"weighted_grade"`
	}
)

// NotAvailable is rendered in place of an average when there is nothing to average.
const NotAvailable = "N/A"

// AverageGrade returns the arithmetic mean of `grades` with 2 decimals, or NotAvailable for an empty set.
func AverageGrade(grades []Grade) string {
	if len(grades) == 0 {
		return NotAvailable
	}
	var sum float64
	for _, g := range grades {
		sum += g.Grade.Float()
	}
	return strconv.FormatFloat(sum/float64(len(grades)), 'f', 2, 64)
}

// Tier is the severity bucket a grade falls in.
type Tier int

const (
	TierBaseline Tier = iota
	TierThird
	TierSecond
	TierTop
)

// GradeTier classifies a grade out of 20: >= 16 top, >= 14 second, >= 12 third, else baseline.
func GradeTier(grade float64) Tier {
	switch {
	case grade >= 16:
		return TierTop
	case grade >= 14:
		return TierSecond
	case grade >= 12:
		return TierThird
	default:
		return TierBaseline
	}
}

// Class returns the css class of the tier.
func (t Tier) Class() string {
	switch t {
	case TierTop:
		return "primary"
	case TierSecond:
		return "accent"
	case TierThird:
		return "warn"
	default:
		return ""
	}
}
