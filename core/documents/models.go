package documents

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-portal/core"
)

// Bulletin is a generated report card of a student for a trimester.
type Bulletin struct {
	ID             int         `json:"id"`
	Student        core.Ref    `json:"student"`
	AcademicYear   string      `json:"academic_year"`
	Trimester      string      `json:"trimester"`
	ClassName      string      `json:"class_name"`
	Language       string      `json:"language"`
	TotalAverage   core.Number `json:"total_average"`
	ClassRank      int         `json:"class_rank"`
	AttendanceRate core.Number `json:"attendance_rate"`
	CreatedAt      time.Time   `json:"created_at"`
}

// AttestationKind is the kind of official certificate generated on demand.
type AttestationKind string

const (
	AttestationPresence    AttestationKind = "presence"
	AttestationInscription AttestationKind = "inscription"
)

func (k AttestationKind) Valid() bool {
	return k == AttestationPresence || k == AttestationInscription
}

// AttestationRequest asks the backend for an attestation of a student.
type AttestationRequest struct {
	StudentID  int    `json:"student_id" validate:"required"`
	Language   string `json:"language,omitempty" validate:"omitempty,oneof=fr ar"`
	ValidFrom  string `json:"valid_from,omitempty" validate:"omitempty,isodate"`
	ValidUntil string `json:"valid_until,omitempty" validate:"omitempty,isodate"`
}

func (ar *AttestationRequest) Validate(validate *validator.Validate, translator ut.Translator) error {
	ar.Language = core.CleanString(ar.Language, true /* lower */)
	return core.ValidateStruct(validate, translator, ar)
}

// Document is an opaque binary payload (PDF bulletins, attestations...).
type Document struct {
	ContentType string
	Filename    string
	Data        []byte
}
