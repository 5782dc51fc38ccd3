package actions

import (
	"fmt"

	"github.com/haasonsaas/copilot/pkg/models"
)

// NotFoundError reports that no ledger entry exists for the action id.
type NotFoundError struct {
	ActionID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("action %s not found", e.ActionID)
}

// ExpiredError reports that the entry's TTL elapsed before it was resolved.
type ExpiredError struct {
	ActionID string
}

func (e *ExpiredError) Error() string {
	return fmt.Sprintf("action %s has expired", e.ActionID)
}

// MismatchError reports that the caller is not the owner of the entry.
type MismatchError struct {
	ActionID string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("action %s belongs to a different user", e.ActionID)
}

// StateError reports an attempted transition from a state that does not
// admit it, for example cancelling an already executed action.
type StateError struct {
	ActionID string
	Status   models.PendingActionStatus
}

func (e *StateError) Error() string {
	return fmt.Sprintf("action %s is %s and cannot transition", e.ActionID, e.Status)
}
