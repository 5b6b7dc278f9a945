package academics

import (
	"fmt"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-portal/core"
)

var (
	gradeRangeTag  = "grade_range"
	gradeRangeText = fmt.Sprintf("{0} must be between %d and %d", MinGrade, MaxGrade)
)

// InitValidators registers the academics validations on `validate`.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(newGradeStructValidation, NewGrade{})
	core.RegisterCustomTranslation(validate, translator, gradeRangeTag, gradeRangeText)
}

// newGradeStructValidation keeps a submitted grade within [MinGrade, MaxGrade].
func newGradeStructValidation(sl validator.StructLevel) {
	ng := sl.Current().Interface().(NewGrade)
	if ng.Grade == nil {
		return // reported by `required`
	}
	if g := *ng.Grade; g < MinGrade || g > MaxGrade {
		sl.ReportError(g, "grade", "Grade", gradeRangeTag, "")
	}
}
