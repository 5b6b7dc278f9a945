package academics

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-portal/core"
)

// Grade bounds, enforced by InitValidators.
const (
	MinGrade = 0
	MaxGrade = 20
)

// NewGrade contains information needed to record a Grade.
type NewGrade struct {
	Student      int      `json:"student" validate:"required"`
	Subject      int      `json:"subject" validate:"required"`
	ExamType     int      `json:"exam_type" validate:"required"`
	Grade        *float64 `json:"grade" validate:"required"`
	Trimester    int      `json:"trimester" validate:"required"`
	TeacherNotes string   `json:"teacher_notes,omitempty"`
}

func (ng *NewGrade) Validate(validate *validator.Validate, translator ut.Translator) error {
	ng.TeacherNotes = core.CleanString(ng.TeacherNotes)
	return core.ValidateStruct(validate, translator, ng)
}

// NewClass contains information needed to open a Class.
type NewClass struct {
	Name         string `json:"name" validate:"required"`
	Level        int    `json:"level" validate:"required"`
	AcademicYear int    `json:"academic_year" validate:"required"`
	Capacity     int    `json:"capacity,omitempty" validate:"omitempty,min=1"`
}

func (nc *NewClass) Validate(validate *validator.Validate, translator ut.Translator) error {
	nc.Name = core.CleanString(nc.Name)
	return core.ValidateStruct(validate, translator, nc)
}

// NewSubject contains information needed to create a Subject.
type NewSubject struct {
	Name        string  `json:"name" validate:"required"`
	Code        string  `json:"code" validate:"required,max=10"`
	Coefficient float64 `json:"coefficient" validate:"required,gt=0"`
	Class       int     `json:"class" validate:"required"`
}

func (ns *NewSubject) Validate(validate *validator.Validate, translator ut.Translator) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Code = core.CleanString(ns.Code)
	return core.ValidateStruct(validate, translator, ns)
}
