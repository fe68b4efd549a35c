package domain

import (
	"fmt"
	"strings"
	"time"
)

// Status is the stored lifecycle status of a housing application.
type Status string

const (
	StatusDraft        Status = "DRAFT"
	StatusSubmitted    Status = "SUBMITTED"
	StatusWaitlisted   Status = "WAITLISTED"
	StatusWithdrawn    Status = "WITHDRAWN"
	StatusDuplicate    Status = "DUPLICATE"
	StatusDisqualified Status = "DISQUALIFIED"
)

var statusDescriptions = map[Status]string{
	StatusDraft:        "Draft",
	StatusSubmitted:    "Submitted",
	StatusWaitlisted:   "Waitlisted",
	StatusWithdrawn:    "Withdrawn",
	StatusDuplicate:    "Duplicate",
	StatusDisqualified: "Disqualified",
}

func (s Status) String() string { return string(s) }

func (s Status) IsValid() bool {
	_, ok := statusDescriptions[s]
	return ok
}

// Description returns the human-readable label for the status.
func (s Status) Description() string {
	return statusDescriptions[s]
}

// IsTerminal reports whether no further lifecycle transition can leave s.
func (s Status) IsTerminal() bool {
	return s == StatusWithdrawn || s == StatusDuplicate
}

func ParseStatusFromString(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid status %q", ErrValidation, s)
	}
	return st, nil
}

// DuplicateCheck is the duplicate classification flag of an application.
type DuplicateCheck string

const (
	DuplicateCheckPotential DuplicateCheck = "P"
	DuplicateCheckConfirmed DuplicateCheck = "D"
)

func (d DuplicateCheck) String() string { return string(d) }

func (d DuplicateCheck) IsValid() bool {
	return d == DuplicateCheckPotential || d == DuplicateCheckConfirmed
}

func ParseDuplicateCheckFromString(s string) (*DuplicateCheck, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(s))
	if trimmed == "" {
		return nil, nil
	}
	d := DuplicateCheck(trimmed)
	if !d.IsValid() {
		return nil, fmt.Errorf("%w: invalid duplicate check code %q", ErrValidation, s)
	}
	return &d, nil
}

// SubmissionType tells whether the application was filed online or on paper.
type SubmissionType string

const (
	SubmissionOnline SubmissionType = "ONLINE"
	SubmissionPaper  SubmissionType = "PAPER"
)

func (t SubmissionType) String() string { return string(t) }

func (t SubmissionType) IsValid() bool {
	return t == SubmissionOnline || t == SubmissionPaper
}

func ParseSubmissionTypeFromString(s string) (SubmissionType, error) {
	t := SubmissionType(strings.ToUpper(strings.TrimSpace(s)))
	if t == "" {
		return SubmissionOnline, nil
	}
	if !t.IsValid() {
		return "", fmt.Errorf("%w: invalid submission type %q", ErrValidation, s)
	}
	return t, nil
}

// ApplicationRecord is a single housing application for one listing.
type ApplicationRecord struct {
	ID             int64
	ListingID      int64
	Username       string
	StatusCd       Status
	SubmissionType SubmissionType

	Name        NameFields
	SSNLast4    *string
	DateOfBirth *time.Time
	Email       *string
	Phone       *string
	Address     AddressFields

	DuplicateCheckCd              *DuplicateCheck
	DuplicateReason               *string
	DuplicateCheckResponseDueDate *time.Time

	DisqualifiedInd        bool
	DisqualificationCd     *string
	DisqualificationReason *string

	SubmittedDate *time.Time
	ReceivedDate  *time.Time
	WithdrawnDate *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CurrentStatus returns the status as seen by business rules: the
// disqualification flag is layered on top of the stored status.
func (a *ApplicationRecord) CurrentStatus() Status {
	if a.DisqualifiedInd && !a.StatusCd.IsTerminal() {
		return StatusDisqualified
	}
	return a.StatusCd
}

// IsPotentialDuplicate reports whether the application awaits duplicate resolution.
func (a *ApplicationRecord) IsPotentialDuplicate() bool {
	return a.DuplicateCheckCd != nil && *a.DuplicateCheckCd == DuplicateCheckPotential
}

// IsActive reports whether the application takes part in duplicate matching.
func (a *ApplicationRecord) IsActive() bool {
	return a.StatusCd != StatusWithdrawn && a.StatusCd != StatusDuplicate
}

// ApplicantName is the applicant's display name.
func (a *ApplicationRecord) ApplicantName() string {
	return a.Name.DisplayName()
}

// Validate checks the fields required for an application to exist at all.
func (a *ApplicationRecord) Validate() error {
	if a.ListingID <= 0 {
		return fmt.Errorf("%w: listing id is required", ErrValidation)
	}
	if a.ApplicantName() == "" {
		return fmt.Errorf("%w: applicant first name is required", ErrValidation)
	}
	if !a.StatusCd.IsValid() || a.StatusCd == StatusDisqualified {
		return fmt.Errorf("%w: invalid stored status %q", ErrValidation, a.StatusCd)
	}
	if a.SubmissionType != "" && !a.SubmissionType.IsValid() {
		return fmt.Errorf("%w: invalid submission type %q", ErrValidation, a.SubmissionType)
	}
	return a.CheckInvariants()
}

// CheckInvariants verifies the cross-field rules every stored record obeys.
func (a *ApplicationRecord) CheckInvariants() error {
	if (a.DuplicateCheckResponseDueDate != nil) != a.IsPotentialDuplicate() {
		return fmt.Errorf("%w: duplicate response due date must be set exactly when duplicate check is %q",
			ErrValidation, DuplicateCheckPotential)
	}
	if (a.WithdrawnDate != nil) != (a.StatusCd == StatusWithdrawn) {
		return fmt.Errorf("%w: withdrawn date must be set exactly when status is %s", ErrValidation, StatusWithdrawn)
	}
	switch a.StatusCd {
	case StatusDraft:
		if a.SubmittedDate != nil {
			return fmt.Errorf("%w: draft application cannot carry a submitted date", ErrValidation)
		}
	case StatusWithdrawn:
		// A draft can be withdrawn before it was ever submitted.
	default:
		if a.SubmittedDate == nil {
			return fmt.Errorf("%w: submitted date is required when status is %s", ErrValidation, a.StatusCd)
		}
	}
	if a.StatusCd == StatusDuplicate && (a.DuplicateCheckCd == nil || *a.DuplicateCheckCd != DuplicateCheckConfirmed) {
		return fmt.Errorf("%w: duplicate status requires confirmed duplicate check", ErrValidation)
	}
	return nil
}
