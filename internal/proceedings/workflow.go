// Package proceedings models the status workflow of administrative proceedings and
// which actions each role may take from a given status.
package proceedings

import (
	"errors"
	"fmt"
	"strings"

	"github.com/odyssey-erp/odyssey-admin/internal/shared"
)

// ErrInvalidStatus is returned for unknown statuses and disallowed transitions.
var ErrInvalidStatus = errors.New("invalid status transition")

// Status of a proceeding.
type Status string

// Proceeding statuses.
const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusInReview  Status = "in_review"
	StatusDecided   Status = "decided"
	StatusAppealed  Status = "appealed"
	StatusClosed    Status = "closed"
	StatusCancelled Status = "cancelled"
)

// Action moves a proceeding between statuses.
type Action string

// Workflow actions.
const (
	ActionSubmit      Action = "submit"
	ActionStartReview Action = "start_review"
	ActionDecide      Action = "decide"
	ActionAppeal      Action = "appeal"
	ActionClose       Action = "close"
	ActionCancel      Action = "cancel"
	ActionReopen      Action = "reopen"
)

// Actions lists every action in display order.
var Actions = []Action{ActionSubmit, ActionStartReview, ActionDecide, ActionAppeal, ActionClose, ActionCancel, ActionReopen}

var statuses = map[Status]struct{}{
	StatusDraft: {}, StatusSubmitted: {}, StatusInReview: {}, StatusDecided: {},
	StatusAppealed: {}, StatusClosed: {}, StatusCancelled: {},
}

type edge struct {
	from   Status
	action Action
}

var transitions = map[edge]Status{
	{StatusDraft, ActionSubmit}:          StatusSubmitted,
	{StatusDraft, ActionCancel}:          StatusCancelled,
	{StatusSubmitted, ActionStartReview}: StatusInReview,
	{StatusSubmitted, ActionCancel}:      StatusCancelled,
	{StatusInReview, ActionDecide}:       StatusDecided,
	{StatusDecided, ActionAppeal}:        StatusAppealed,
	{StatusDecided, ActionClose}:         StatusClosed,
	{StatusAppealed, ActionStartReview}:  StatusInReview,
	{StatusClosed, ActionReopen}:         StatusInReview,
	{StatusCancelled, ActionReopen}:      StatusDraft,
}

// Required permission per action.
var actionPermissions = map[Action]string{
	ActionSubmit:      shared.PermProceedingsFile,
	ActionCancel:      shared.PermProceedingsFile,
	ActionAppeal:      shared.PermProceedingsFile,
	ActionStartReview: shared.PermProceedingsReview,
	ActionDecide:      shared.PermProceedingsDecide,
	ActionClose:       shared.PermProceedingsClose,
	ActionReopen:      shared.PermProceedingsClose,
}

// ParseStatus validates a status name.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := statuses[s]; !ok {
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidStatus, raw)
	}
	return s, nil
}

// Permission returns the permission an action requires.
func Permission(a Action) string {
	return actionPermissions[a]
}

// Next returns the status reached by applying action to status.
func Next(status Status, action Action) (Status, error) {
	next, ok := transitions[edge{status, action}]
	if !ok {
		return "", fmt.Errorf("%w: %s cannot %s", ErrInvalidStatus, status, action)
	}
	return next, nil
}

// AvailableActions returns the actions allowed from status for a holder of perms.
func AvailableActions(status Status, perms []string) []Action {
	granted := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		granted[strings.ToLower(strings.TrimSpace(p))] = struct{}{}
	}
	var out []Action
	for _, action := range Actions {
		if _, ok := transitions[edge{status, action}]; !ok {
			continue
		}
		if _, ok := granted[actionPermissions[action]]; !ok {
			continue
		}
		out = append(out, action)
	}
	return out
}
