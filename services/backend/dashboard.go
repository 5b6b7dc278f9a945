package backend

import "github.com/trezcool/masomo-portal/core/dashboard"

// DashboardAPI exposes the client's resources to the dashboards.
func (c *Client) DashboardAPI() dashboard.API {
	return dashboard.API{
		Profile:        c,
		Students:       c.Students,
		Teachers:       c.Teachers,
		Parents:        c.Parents,
		ParentStudents: c.ParentStudents,
		Grades:         c.Grades,
		Attendance:     c.Attendance,
		Subjects:       c.Subjects,
		ExamTypes:      c.ExamTypes,
		Levels:         c.Levels,
		Classes:        c.Classes,
		Bulletins:      c.Bulletins,
		Invoices:       c.Invoices,
		Payments:       c.Payments,
	}
}
