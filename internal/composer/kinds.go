package composer

import (
	"fmt"
	"strings"

	"github.com/kursadbilgin/housing-engine/internal/domain"
	"github.com/kursadbilgin/housing-engine/internal/template"
)

// Kind identifies one fixed notification with its own config key.
type Kind string

const (
	KindRegistration             Kind = "registration"
	KindResendActivation         Kind = "resend-activation"
	KindAccountActivated         Kind = "account-activated"
	KindPasswordResetRequest     Kind = "password-reset-request"
	KindPasswordChanged          Kind = "password-changed"
	KindApplicationSubmitted     Kind = "application-submitted"
	KindApplicationWithdrawn     Kind = "application-withdrawn"
	KindApplicationCommentAdded  Kind = "application-comment-added"
	KindListingPendingReview     Kind = "listing-pending-review"
	KindListingRequiresRevisions Kind = "listing-requires-revisions"
	KindListingPublished         Kind = "listing-published"
	KindListingUnpublished       Kind = "listing-unpublished"
	KindPotentialDuplicateOnline Kind = "potential-duplicate-online"
	KindPotentialDuplicatePaper  Kind = "potential-duplicate-paper"
	KindPotentialDuplicateStaff  Kind = "potential-duplicate-internal"
	KindDuplicateConfirmedOnline Kind = "duplicate-confirmed-online"
	KindDuplicateConfirmedPaper  Kind = "duplicate-confirmed-paper"
	KindDuplicateConfirmedStaff  Kind = "duplicate-confirmed-internal"
)

// Spec is the lookup key and required context of a kind.
type Spec struct {
	Category domain.Category
	Title    string
	Required []template.Token
}

var (
	potentialDuplicateTokens = []template.Token{
		template.ApplicationID, template.ListID, template.Name, template.Address, template.Reason, template.DueDate,
	}
	duplicateConfirmedTokens = []template.Token{
		template.ApplicationID, template.ListID, template.Name, template.Reason,
	}
)

var kindSpecs = map[Kind]Spec{
	KindRegistration: {
		Category: domain.CategoryApplicant,
		Title:    "Account Registration",
		Required: []template.Token{template.Username, template.Name},
	},
	KindResendActivation: {
		Category: domain.CategoryApplicant,
		Title:    "Resend Account Activation",
		Required: []template.Token{template.Username},
	},
	KindAccountActivated: {
		Category: domain.CategoryApplicant,
		Title:    "Account Activated",
		Required: []template.Token{template.Username},
	},
	KindPasswordResetRequest: {
		Category: domain.CategoryApplicant,
		Title:    "Password Reset Request",
		Required: []template.Token{template.Username},
	},
	KindPasswordChanged: {
		Category: domain.CategoryApplicant,
		Title:    "Password Changed",
		Required: []template.Token{template.Username},
	},
	KindApplicationSubmitted: {
		Category: domain.CategoryApplicant,
		Title:    "Housing Application Submitted",
		Required: []template.Token{
			template.ApplicationID, template.ListID, template.Name, template.Address, template.SubmittedDate,
		},
	},
	KindApplicationWithdrawn: {
		Category: domain.CategoryApplicant,
		Title:    "Housing Application Withdrawn",
		Required: []template.Token{template.ApplicationID, template.ListID, template.Name},
	},
	KindApplicationCommentAdded: {
		Category: domain.CategoryInternal,
		Title:    "Housing Application Comment Added",
		Required: []template.Token{template.ApplicationID, template.ListID, template.Username},
	},
	KindListingPendingReview: {
		Category: domain.CategoryInternal,
		Title:    "Listing Ready for Review",
		Required: []template.Token{template.ListID, template.Name, template.Address},
	},
	KindListingRequiresRevisions: {
		Category: domain.CategoryAgent,
		Title:    "Listing Requires Revisions",
		Required: []template.Token{template.ListID, template.Name, template.Reason},
	},
	KindListingPublished: {
		Category: domain.CategoryAgent,
		Title:    "Listing Published",
		Required: []template.Token{template.ListID, template.Name, template.Address},
	},
	KindListingUnpublished: {
		Category: domain.CategoryAgent,
		Title:    "Listing Unpublished",
		Required: []template.Token{template.ListID, template.Name, template.Reason},
	},
	KindPotentialDuplicateOnline: {
		Category: domain.CategoryApplicant,
		Title:    "Potential Duplicate Housing Application Notification",
		Required: potentialDuplicateTokens,
	},
	KindPotentialDuplicatePaper: {
		Category: domain.CategoryApplicant,
		Title:    "Potential Duplicate Paper Housing Application Notification",
		Required: potentialDuplicateTokens,
	},
	KindPotentialDuplicateStaff: {
		Category: domain.CategoryInternal,
		Title:    "Potential Duplicate Housing Application",
		Required: []template.Token{
			template.ApplicationID, template.ListID, template.ApplicantName, template.ApplicantEmail,
			template.ApplicantPhone, template.Reason, template.DueDate,
		},
	},
	KindDuplicateConfirmedOnline: {
		Category: domain.CategoryApplicant,
		Title:    "Duplicate Housing Application Notification",
		Required: duplicateConfirmedTokens,
	},
	KindDuplicateConfirmedPaper: {
		Category: domain.CategoryApplicant,
		Title:    "Duplicate Paper Housing Application Notification",
		Required: duplicateConfirmedTokens,
	},
	KindDuplicateConfirmedStaff: {
		Category: domain.CategoryInternal,
		Title:    "Duplicate Housing Application",
		Required: []template.Token{template.ApplicationID, template.ListID, template.ApplicantName, template.Reason},
	},
}

func (k Kind) String() string { return string(k) }

func (k Kind) IsValid() bool {
	_, ok := kindSpecs[k]
	return ok
}

// Spec returns the lookup key and required tokens of k.
func (k Kind) Spec() (Spec, bool) {
	s, ok := kindSpecs[k]
	return s, ok
}

// Internal reports whether the kind is addressed to staff only.
func (k Kind) Internal() bool {
	return kindSpecs[k].Category == domain.CategoryInternal
}

func ParseKindFromString(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", fmt.Errorf("%w: unknown notification kind %q", domain.ErrValidation, s)
	}
	return k, nil
}

// PotentialDuplicateKind picks the applicant notice for a submission type.
func PotentialDuplicateKind(t domain.SubmissionType) Kind {
	if t == domain.SubmissionPaper {
		return KindPotentialDuplicatePaper
	}
	return KindPotentialDuplicateOnline
}

// DuplicateConfirmedKind picks the applicant notice for a submission type.
func DuplicateConfirmedKind(t domain.SubmissionType) Kind {
	if t == domain.SubmissionPaper {
		return KindDuplicateConfirmedPaper
	}
	return KindDuplicateConfirmedOnline
}
