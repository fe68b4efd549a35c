// Package matcher finds existing applications that share identity evidence
// with a candidate application for the same listing.
package matcher

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/kursadbilgin/housing-engine/internal/domain"
)

// Dimension is one independent comparison axis.
type Dimension string

const (
	DimensionSSN     Dimension = "SSN"
	DimensionName    Dimension = "NAME"
	DimensionEmail   Dimension = "EMAIL"
	DimensionPhone   Dimension = "PHONE"
	DimensionAddress Dimension = "ADDRESS"
)

// Dimensions lists every dimension in reporting order.
var Dimensions = []Dimension{
	DimensionSSN,
	DimensionName,
	DimensionEmail,
	DimensionPhone,
	DimensionAddress,
}

var dimensionLabels = map[Dimension]string{
	DimensionSSN:     "SSN and date of birth",
	DimensionName:    "Name",
	DimensionEmail:   "Email",
	DimensionPhone:   "Phone",
	DimensionAddress: "Address",
}

func (d Dimension) String() string { return string(d) }

// Label is the human-readable name used in duplicate reasons.
func (d Dimension) Label() string {
	return dimensionLabels[d]
}

// Bucket holds the conflicting applications for one dimension.
type Bucket struct {
	Dimension      Dimension
	Count          int
	ApplicationIDs []int64
}

// Result is the match evidence for one candidate.
type Result struct {
	CandidateID int64
	Buckets     map[Dimension]Bucket
}

// Bucket returns the bucket for d, empty when nothing matched.
func (r Result) Bucket(d Dimension) Bucket {
	if b, ok := r.Buckets[d]; ok {
		return b
	}
	return Bucket{Dimension: d}
}

// HasMatch reports whether any dimension matched.
func (r Result) HasMatch() bool {
	for _, b := range r.Buckets {
		if b.Count > 0 {
			return true
		}
	}
	return false
}

// Matched returns the non-empty buckets in reporting order.
func (r Result) Matched() []Bucket {
	out := make([]Bucket, 0, len(r.Buckets))
	for _, d := range Dimensions {
		if b := r.Bucket(d); b.Count > 0 {
			out = append(out, b)
		}
	}
	return out
}

// StrongMatch reports an SSN plus date-of-birth match.
func (r Result) StrongMatch() bool {
	return r.Bucket(DimensionSSN).Count > 0
}

// Reason summarizes the evidence, e.g. "Email match with #55; Phone match with #55, #60".
func (r Result) Reason() string {
	parts := make([]string, 0, len(r.Buckets))
	for _, b := range r.Matched() {
		ids := make([]string, 0, len(b.ApplicationIDs))
		for _, id := range b.ApplicationIDs {
			ids = append(ids, fmt.Sprintf("#%d", id))
		}
		parts = append(parts, fmt.Sprintf("%s match with %s", b.Dimension.Label(), strings.Join(ids, ", ")))
	}
	return strings.Join(parts, "; ")
}

type fingerprint map[Dimension]string

// Match compares candidate against existing applications. Applications with
// the candidate's id, another listing, or a withdrawn/duplicate status never
// contribute evidence.
func Match(candidate domain.ApplicationRecord, existing []domain.ApplicationRecord) Result {
	result := Result{
		CandidateID: candidate.ID,
		Buckets:     make(map[Dimension]Bucket),
	}

	want := fingerprintOf(candidate)
	if len(want) == 0 {
		return result
	}

	for i := range existing {
		other := &existing[i]
		if other.ID == candidate.ID || other.ListingID != candidate.ListingID || !other.IsActive() {
			continue
		}

		got := fingerprintOf(*other)
		for d, key := range want {
			if got[d] != key {
				continue
			}
			b := result.Buckets[d]
			b.Dimension = d
			b.ApplicationIDs = append(b.ApplicationIDs, other.ID)
			b.Count = len(b.ApplicationIDs)
			result.Buckets[d] = b
		}
	}

	for d, b := range result.Buckets {
		sort.Slice(b.ApplicationIDs, func(i, j int) bool { return b.ApplicationIDs[i] < b.ApplicationIDs[j] })
		result.Buckets[d] = b
	}

	return result
}

func fingerprintOf(app domain.ApplicationRecord) fingerprint {
	fp := make(fingerprint, len(Dimensions))
	if v := ssnKey(app); v != "" {
		fp[DimensionSSN] = v
	}
	if v := NormalizeName(app.Name); v != "" {
		fp[DimensionName] = v
	}
	if v := NormalizeEmail(domain.Text(app.Email)); v != "" {
		fp[DimensionEmail] = v
	}
	if v := NormalizePhone(domain.Text(app.Phone)); v != "" {
		fp[DimensionPhone] = v
	}
	if v := NormalizeAddress(app.Address); v != "" {
		fp[DimensionAddress] = v
	}
	return fp
}

// ssnKey requires both the SSN suffix and the date of birth; the suffix
// alone is never used.
func ssnKey(app domain.ApplicationRecord) string {
	last4 := digitsOnly(domain.Text(app.SSNLast4))
	if len(last4) != 4 || app.DateOfBirth == nil {
		return ""
	}
	return last4 + "|" + app.DateOfBirth.Format("2006-01-02")
}

// NormalizeName lowercases the display name.
func NormalizeName(n domain.NameFields) string {
	return strings.ToLower(collapseSpaces(n.DisplayName()))
}

// NormalizeEmail lowercases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone strips formatting and a leading US country code. It returns
// an empty string unless exactly ten digits remain.
func NormalizePhone(phone string) string {
	digits := digitsOnly(phone)
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return ""
	}
	return digits
}

// NormalizeAddress lowercases the single-line address with whitespace collapsed.
func NormalizeAddress(a domain.AddressFields) string {
	return strings.ToLower(collapseSpaces(a.SingleLine()))
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
