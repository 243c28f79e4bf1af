package shared

// Limits and copayments dashboard permissions.
const (
	PermLimitsView   = "limits.view"
	PermLimitsExport = "limits.export"
	PermLimitsAdmin  = "limits.admin"
)

// LimitsScopes lists permissions used by the limits dashboard.
func LimitsScopes() []string {
	return []string{
		PermLimitsView,
		PermLimitsExport,
		PermLimitsAdmin,
	}
}
