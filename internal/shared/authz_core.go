package shared

// Core platform permissions.
const (
	PermRolesView       = "roles.view"
	PermRolesEdit       = "roles.edit"
	PermPermissionsView = "permissions.view"
)

// CoreScopes lists all permissions related to the core platform.
func CoreScopes() []string {
	return []string{
		PermRolesView,
		PermRolesEdit,
		PermPermissionsView,
	}
}

// AllScopes lists every permission known to the application.
func AllScopes() []string {
	var all []string
	all = append(all, CoreScopes()...)
	all = append(all, LimitsScopes()...)
	all = append(all, CSCScopes()...)
	all = append(all, ProceedingsScopes()...)
	return all
}
