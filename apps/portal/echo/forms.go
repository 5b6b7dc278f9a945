package echoportal

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/masomo-portal/core/academics"
	"github.com/trezcool/masomo-portal/core/documents"
	"github.com/trezcool/masomo-portal/core/finance"
	"github.com/trezcool/masomo-portal/core/user"
)

// formInt parses an integer field; blank or invalid values read as 0 and fail `required` validations.
func formInt(ctx echo.Context, name string) int {
	i, _ := strconv.Atoi(strings.TrimSpace(ctx.FormValue(name)))
	return i
}

func formFloat(ctx echo.Context, name string) float64 {
	f, _ := strconv.ParseFloat(strings.Replace(strings.TrimSpace(ctx.FormValue(name)), ",", ".", 1), 64)
	return f
}

// formFloatPtr returns nil for blank or invalid values, so that 0 stays a valid input.
func formFloatPtr(ctx echo.Context, name string) *float64 {
	raw := strings.Replace(strings.TrimSpace(ctx.FormValue(name)), ",", ".", 1)
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &f
}

func bindCredentials(ctx echo.Context) user.Credentials {
	return user.Credentials{
		Email:    ctx.FormValue("email"),
		Password: ctx.FormValue("password"),
	}
}

func bindNewGrade(ctx echo.Context) academics.NewGrade {
	return academics.NewGrade{
		Student:      formInt(ctx, "student"),
		Subject:      formInt(ctx, "subject"),
		ExamType:     formInt(ctx, "exam_type"),
		Grade:        formFloatPtr(ctx, "grade"),
		Trimester:    formInt(ctx, "trimester"),
		TeacherNotes: ctx.FormValue("teacher_notes"),
	}
}

func bindNewInvoice(ctx echo.Context) finance.NewInvoice {
	return finance.NewInvoice{
		InvoiceNumber: strings.TrimSpace(ctx.FormValue("invoice_number")),
		InvoiceType:   ctx.FormValue("invoice_type"),
		Student:       formInt(ctx, "student"),
		Amount:        formFloat(ctx, "amount"),
		DueDate:       ctx.FormValue("due_date"),
		Description:   ctx.FormValue("description"),
		Status:        finance.InvoiceStatus(ctx.FormValue("status")),
	}
}

func bindNewPayment(ctx echo.Context) finance.NewPayment {
	return finance.NewPayment{
		Invoice:         formInt(ctx, "invoice"),
		Amount:          formFloat(ctx, "amount"),
		PaymentMethod:   ctx.FormValue("payment_method"),
		PaymentDate:     ctx.FormValue("payment_date"),
		ReferenceNumber: ctx.FormValue("reference_number"),
		Status:          finance.PaymentStatus(ctx.FormValue("status")),
	}
}

func bindNewClass(ctx echo.Context) academics.NewClass {
	return academics.NewClass{
		Name:         ctx.FormValue("name"),
		Level:        formInt(ctx, "level"),
		AcademicYear: formInt(ctx, "academic_year"),
		Capacity:     formInt(ctx, "capacity"),
	}
}

func bindNewSubject(ctx echo.Context) academics.NewSubject {
	return academics.NewSubject{
		Name:        ctx.FormValue("name"),
		Code:        ctx.FormValue("code"),
		Coefficient: formFloat(ctx, "coefficient"),
		Class:       formInt(ctx, "class"),
	}
}

func bindAttestationRequest(ctx echo.Context) documents.AttestationRequest {
	return documents.AttestationRequest{
		StudentID:  formInt(ctx, "student_id"),
		Language:   ctx.FormValue("language"),
		ValidFrom:  strings.TrimSpace(ctx.FormValue("valid_from")),
		ValidUntil: strings.TrimSpace(ctx.FormValue("valid_until")),
	}
}
