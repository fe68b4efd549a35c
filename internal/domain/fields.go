package domain

import "strings"

// Text returns the trimmed value of an optional field, treating nil as empty.
func Text(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}

// OptionalText returns nil for blank input and a trimmed copy otherwise.
func OptionalText(v *string) *string {
	trimmed := Text(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// StringPtr returns a pointer to s, or nil when s is blank.
func StringPtr(s string) *string {
	return OptionalText(&s)
}

// NameFields holds the parts of a person's name.
type NameFields struct {
	FirstName  *string
	MiddleName *string
	LastName   *string
	Suffix     *string
}

// DisplayName joins the name parts with single spaces. It returns an empty
// string when the first name is absent, regardless of the other parts.
func (n NameFields) DisplayName() string {
	first := Text(n.FirstName)
	if first == "" {
		return ""
	}

	var b strings.Builder
	b.WriteString(first)
	for _, part := range []*string{n.MiddleName, n.LastName, n.Suffix} {
		if v := Text(part); v != "" {
			b.WriteString(" ")
			b.WriteString(v)
		}
	}
	return b.String()
}

// AddressFields holds a postal address.
type AddressFields struct {
	StreetLine1 *string
	StreetLine2 *string
	StreetLine3 *string
	City        *string
	StateCd     *string
	ZipCode     *string
	County      *string
}

// SingleLine formats the address as "LINE 1, LINE 2, CITY, ST ZIP COUNTY".
func (a AddressFields) SingleLine() string {
	var b strings.Builder
	b.WriteString(Text(a.StreetLine1))

	for _, part := range []*string{a.StreetLine2, a.StreetLine3, a.City, a.StateCd} {
		v := Text(part)
		if v == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(", ")
		}
		b.WriteString(v)
	}

	for _, part := range []*string{a.ZipCode, a.County} {
		v := Text(part)
		if v == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(v)
	}

	return b.String()
}

// IsEmpty reports whether every address part is blank.
func (a AddressFields) IsEmpty() bool {
	return a.SingleLine() == ""
}
