package shared

// Administrative proceedings permissions.
const (
	PermProceedingsView   = "proceedings.view"
	PermProceedingsFile   = "proceedings.file"
	PermProceedingsReview = "proceedings.review"
	PermProceedingsDecide = "proceedings.decide"
	PermProceedingsClose  = "proceedings.close"
)

// ProceedingsScopes lists permissions used by proceedings workflows.
func ProceedingsScopes() []string {
	return []string{
		PermProceedingsView,
		PermProceedingsFile,
		PermProceedingsReview,
		PermProceedingsDecide,
		PermProceedingsClose,
	}
}
