// Package nav maps roles to their dashboard and builds the role-filtered menu.
package nav

import (
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core/user"
)

// Routes
const (
	LoginRoute    = "/login"
	FallbackRoute = "/dashboard"
	StudentRoute  = "/student-dashboard"
	TeacherRoute  = "/teacher-dashboard"
	ParentRoute   = "/parent-dashboard"
	ManagerRoute  = "/manager-dashboard"
	AdminRoute    = "/admin-dashboard"
)

var targetRoutes = map[user.Role]string{
	user.RoleStudent:       StudentRoute,
	user.RoleTeacher:       TeacherRoute,
	user.RoleParent:        ParentRoute,
	user.RoleManager:       ManagerRoute,
	user.RoleAdministrator: AdminRoute,
}

// TargetRoute returns the dashboard of `role`, or FallbackRoute for unknown roles.
func TargetRoute(role user.Role) string {
	if route, ok := targetRoutes[role]; ok {
		return route
	}
	return FallbackRoute
}

// RoleDisplayName returns the label shown next to the signed-in user.
func RoleDisplayName(role user.Role) string {
	return role.DisplayName()
}

type MenuItem struct {
	Label string
	Icon  string
	Route string // may carry a #section fragment
	Roles []user.Role
}

func (item MenuItem) VisibleTo(role user.Role) bool {
	for _, r := range item.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func only(r user.Role) []user.Role { return []user.Role{r} }

// Menu is the full navigation table.
var Menu = []MenuItem{
	{Label: "Tableau de bord", Icon: "dashboard", Route: StudentRoute, Roles: only(user.RoleStudent)},
	{Label: "Mes Notes", Icon: "school", Route: StudentRoute + "#grades", Roles: only(user.RoleStudent)},
	{Label: "Mes Factures", Icon: "receipt", Route: StudentRoute + "#invoices", Roles: only(user.RoleStudent)},
	{Label: "Mes Paiements", Icon: "payment", Route: StudentRoute + "#payments", Roles: only(user.RoleStudent)},

	{Label: "Tableau de bord", Icon: "dashboard", Route: TeacherRoute, Roles: only(user.RoleTeacher)},
	{Label: "Mes Étudiants", Icon: "school", Route: TeacherRoute + "#students", Roles: only(user.RoleTeacher)},
	{Label: "Saisir Notes", Icon: "edit", Route: TeacherRoute + "#grade-form", Roles: only(user.RoleTeacher)},
	{Label: "Présences", Icon: "event_available", Route: TeacherRoute + "#attendance", Roles: only(user.RoleTeacher)},

	{Label: "Tableau de bord", Icon: "dashboard", Route: ParentRoute, Roles: only(user.RoleParent)},
	{Label: "Mes Enfants", Icon: "child_care", Route: ParentRoute + "#children", Roles: only(user.RoleParent)},
	{Label: "Notes des Enfants", Icon: "school", Route: ParentRoute + "#grades", Roles: only(user.RoleParent)},
	{Label: "Paiements", Icon: "payment", Route: ParentRoute + "#payments", Roles: only(user.RoleParent)},

	{Label: "Tableau de bord", Icon: "dashboard", Route: ManagerRoute, Roles: only(user.RoleManager)},
	{Label: "Gestion Financière", Icon: "account_balance", Route: ManagerRoute + "#overview", Roles: only(user.RoleManager)},
	{Label: "Factures", Icon: "receipt", Route: ManagerRoute + "#invoices", Roles: only(user.RoleManager)},
	{Label: "Paiements", Icon: "payment", Route: ManagerRoute + "#payments", Roles: only(user.RoleManager)},
	{Label: "Rapports", Icon: "assessment", Route: ManagerRoute + "/export.xlsx", Roles: only(user.RoleManager)},
	{Label: "Documents", Icon: "description", Route: ManagerRoute + "#documents", Roles: only(user.RoleManager)},

	{Label: "Tableau de bord", Icon: "dashboard", Route: AdminRoute, Roles: only(user.RoleAdministrator)},
	{Label: "Utilisateurs", Icon: "people", Route: AdminRoute + "#users", Roles: only(user.RoleAdministrator)},
	{Label: "Étudiants", Icon: "school", Route: AdminRoute + "#students", Roles: only(user.RoleAdministrator)},
	{Label: "Enseignants", Icon: "person", Route: AdminRoute + "#teachers", Roles: only(user.RoleAdministrator)},
	{Label: "Classes", Icon: "class", Route: AdminRoute + "#classes", Roles: only(user.RoleAdministrator)},
	{Label: "Matières", Icon: "book", Route: AdminRoute + "#subjects", Roles: only(user.RoleAdministrator)},
	{Label: "Configuration", Icon: "settings", Route: AdminRoute + "#settings", Roles: only(user.RoleAdministrator)},
}

// MenuFor keeps the items of `menu` visible to `role`.
func MenuFor(menu []MenuItem, role user.Role) []MenuItem {
	items := make([]MenuItem, 0, len(menu))
	for _, item := range menu {
		if item.VisibleTo(role) {
			items = append(items, item)
		}
	}
	return items
}

// Clearer is implemented by *session.Store.
type Clearer interface {
	Clear() error
}

// Logout clears the session, then returns the route to navigate to.
// The login route is returned even when clearing failed.
func Logout(store Clearer) (string, error) {
	if store == nil {
		return LoginRoute, nil
	}
	return LoginRoute, errors.Wrap(store.Clear(), "clearing session")
}
