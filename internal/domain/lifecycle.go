package domain

import (
	"fmt"
	"strings"
	"time"
)

// Transition names a lifecycle operation on an ApplicationRecord.
type Transition string

const (
	TransitionSubmit                 Transition = "submit"
	TransitionWaitlist               Transition = "waitlist"
	TransitionMarkPotentialDuplicate Transition = "mark_potential_duplicate"
	TransitionConfirmDuplicate       Transition = "confirm_duplicate"
	TransitionClearDuplicateFlag     Transition = "clear_duplicate_flag"
	TransitionWithdraw               Transition = "withdraw"
	TransitionDisqualify             Transition = "disqualify"
)

func (t Transition) String() string { return string(t) }

// Submit moves a draft to SUBMITTED. Paper applications keep a received
// date recorded by staff; otherwise the received date is the submission time.
func (a *ApplicationRecord) Submit(now time.Time) error {
	if a.CurrentStatus() != StatusDraft {
		return invalidTransition(TransitionSubmit, a.CurrentStatus(), "")
	}

	submitted := now
	a.SubmittedDate = &submitted
	if a.ReceivedDate == nil {
		received := now
		a.ReceivedDate = &received
	}
	a.StatusCd = StatusSubmitted
	return nil
}

// Waitlist moves a submitted application to WAITLISTED.
func (a *ApplicationRecord) Waitlist() error {
	if a.CurrentStatus() != StatusSubmitted {
		return invalidTransition(TransitionWaitlist, a.CurrentStatus(), "")
	}
	a.StatusCd = StatusWaitlisted
	return nil
}

// MarkPotentialDuplicate flags the application and opens the response window.
// Marking an already flagged application replaces its reason and deadline.
func (a *ApplicationRecord) MarkPotentialDuplicate(reason string, dueDate time.Time) error {
	current := a.CurrentStatus()
	if current != StatusSubmitted && current != StatusWaitlisted {
		return invalidTransition(TransitionMarkPotentialDuplicate, current, "")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return fmt.Errorf("%w: duplicate reason is required", ErrValidation)
	}

	flag := DuplicateCheckPotential
	due := dueDate
	a.DuplicateCheckCd = &flag
	a.DuplicateReason = &reason
	a.DuplicateCheckResponseDueDate = &due
	return nil
}

// ConfirmDuplicate moves a potential duplicate to the terminal DUPLICATE status.
// An empty reason keeps the reason recorded when the application was flagged.
func (a *ApplicationRecord) ConfirmDuplicate(reason string) error {
	if !a.IsPotentialDuplicate() {
		return invalidTransition(TransitionConfirmDuplicate, a.CurrentStatus(), "application is not a potential duplicate")
	}
	if a.StatusCd.IsTerminal() {
		return invalidTransition(TransitionConfirmDuplicate, a.CurrentStatus(), "")
	}

	flag := DuplicateCheckConfirmed
	a.DuplicateCheckCd = &flag
	if r := strings.TrimSpace(reason); r != "" {
		a.DuplicateReason = &r
	}
	a.DuplicateCheckResponseDueDate = nil
	a.StatusCd = StatusDuplicate
	return nil
}

// ClearDuplicateFlag removes a potential-duplicate flag without touching the
// status. It reports false when there was no flag to clear.
func (a *ApplicationRecord) ClearDuplicateFlag() (bool, error) {
	if a.DuplicateCheckCd == nil {
		return false, nil
	}
	if *a.DuplicateCheckCd == DuplicateCheckConfirmed {
		return false, invalidTransition(TransitionClearDuplicateFlag, a.CurrentStatus(), "duplicate already confirmed")
	}

	a.DuplicateCheckCd = nil
	a.DuplicateReason = nil
	a.DuplicateCheckResponseDueDate = nil
	return true, nil
}

// Withdraw moves any non-terminal application to WITHDRAWN. Withdrawing an
// already withdrawn application is a no-op and reports false.
func (a *ApplicationRecord) Withdraw(now time.Time) (bool, error) {
	if a.StatusCd == StatusWithdrawn {
		return false, nil
	}
	if a.StatusCd.IsTerminal() {
		return false, invalidTransition(TransitionWithdraw, a.CurrentStatus(), "")
	}

	withdrawn := now
	a.WithdrawnDate = &withdrawn
	a.StatusCd = StatusWithdrawn
	if a.IsPotentialDuplicate() {
		a.DuplicateCheckCd = nil
		a.DuplicateReason = nil
		a.DuplicateCheckResponseDueDate = nil
	}
	return true, nil
}

// Disqualify sets the disqualification flag on a submitted or waitlisted application.
func (a *ApplicationRecord) Disqualify(code string, reason string) error {
	current := a.CurrentStatus()
	if current != StatusSubmitted && current != StatusWaitlisted {
		return invalidTransition(TransitionDisqualify, current, "")
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return fmt.Errorf("%w: disqualification code is required", ErrValidation)
	}

	a.DisqualifiedInd = true
	a.DisqualificationCd = &code
	a.DisqualificationReason = StringPtr(reason)
	return nil
}
