package shared

// Central code-list (CSC) permissions.
const (
	PermCSCView          = "csc.view"
	PermCSCEdit          = "csc.edit"
	PermCSCStructureEdit = "csc.structure_edit"
	PermCSCJournalView   = "csc.journal_view"
)

// CSCScopes lists permissions used by code-list editing.
func CSCScopes() []string {
	return []string{
		PermCSCView,
		PermCSCEdit,
		PermCSCStructureEdit,
		PermCSCJournalView,
	}
}
