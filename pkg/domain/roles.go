package domain

// Role grants access to one section of the dashboard. RoleAdmin grants all of them.
type Role string

const (
	RoleAdmin                Role = "admin"
	RoleOccupationalMedicine Role = "occupationalMedicine"
	RoleTreatment            Role = "treatment"
	RoleSafety               Role = "safety"
	RoleFireDepartment       Role = "fireDepartment"
	RoleEnvironment          Role = "environment"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleOccupationalMedicine, RoleTreatment, RoleSafety, RoleFireDepartment, RoleEnvironment:
		return true
	}
	return false
}

// Tab identifies a domain section. Tab ids equal the role that grants them.
type Tab string

const (
	TabOccupationalMedicine Tab = Tab(RoleOccupationalMedicine)
	TabTreatment            Tab = Tab(RoleTreatment)
	TabSafety               Tab = Tab(RoleSafety)
	TabFireDepartment       Tab = Tab(RoleFireDepartment)
	TabEnvironment          Tab = Tab(RoleEnvironment)
)

// AllTabs returns every domain tab in display order.
func AllTabs() []Tab {
	return []Tab{TabOccupationalMedicine, TabTreatment, TabSafety, TabFireDepartment, TabEnvironment}
}

// HasRole reports whether the user holds role.
func (u User) HasRole(role Role) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool { return u.HasRole(RoleAdmin) }

// CanView reports whether the user may open tab.
func (u User) CanView(tab Tab) bool {
	return u.IsAdmin() || u.HasRole(Role(tab))
}
