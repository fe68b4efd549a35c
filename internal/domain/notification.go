package domain

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// Category groups notification configs by audience.
type Category string

const (
	CategoryInternal  Category = "INTERNAL"
	CategoryApplicant Category = "APPLICANT"
	CategoryAgent     Category = "AGENT"
)

var categoryDescriptions = map[Category]string{
	CategoryInternal:  "Internal staff",
	CategoryApplicant: "Applicant",
	CategoryAgent:     "Listing agent",
}

func (c Category) String() string { return string(c) }

func (c Category) IsValid() bool {
	_, ok := categoryDescriptions[c]
	return ok
}

func (c Category) Description() string {
	return categoryDescriptions[c]
}

// ParseCategoryFromString validates a category code. Lookup keys are
// case-sensitive, so only surrounding whitespace is tolerated.
func ParseCategoryFromString(s string) (Category, error) {
	c := Category(strings.TrimSpace(s))
	if !c.IsValid() {
		return "", fmt.Errorf("%w: invalid category %q", ErrValidation, s)
	}
	return c, nil
}

// NotificationConfig is an administrator-curated message template.
type NotificationConfig struct {
	ID               int64
	CategoryCd       Category
	Title            string
	Text             string
	NotificationList string
	Active           bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Recipients returns the parsed notification list.
func (c *NotificationConfig) Recipients() []string {
	return SplitAddresses(c.NotificationList)
}

// Message is an outbound email. To, CC and BCC are comma-separated lists.
type Message struct {
	From             string `json:"from,omitempty"`
	To               string `json:"to"`
	CC               string `json:"cc,omitempty"`
	BCC              string `json:"bcc,omitempty"`
	Subject          string `json:"subject"`
	Body             string `json:"body"`
	IsHTML           bool   `json:"isHtml"`
	Username         string `json:"username,omitempty"`
	NotificationBody string `json:"notificationBody,omitempty"`
}

func (m Message) ToAddresses() []string  { return SplitAddresses(m.To) }
func (m Message) CCAddresses() []string  { return SplitAddresses(m.CC) }
func (m Message) BCCAddresses() []string { return SplitAddresses(m.BCC) }

// Recipients returns every envelope recipient: to, cc and bcc.
func (m Message) Recipients() []string {
	all := make([]string, 0, 4)
	all = append(all, m.ToAddresses()...)
	all = append(all, m.CCAddresses()...)
	all = append(all, m.BCCAddresses()...)
	return all
}

// HasAudit reports whether sending the message must leave an audit record.
func (m Message) HasAudit() bool {
	return strings.TrimSpace(m.NotificationBody) != ""
}

// SplitAddresses splits a comma-separated list, trimming entries and
// dropping empty ones.
func SplitAddresses(list string) []string {
	parts := strings.Split(list, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// JoinAddresses is the inverse of SplitAddresses.
func JoinAddresses(addrs ...string) string {
	return strings.Join(SplitAddresses(strings.Join(addrs, ",")), ",")
}

// ValidateAddress checks that addr is a bare RFC 5322 address.
func ValidateAddress(addr string) error {
	parsed, err := mail.ParseAddress(addr)
	if err != nil {
		return fmt.Errorf("%w: invalid email address %q", ErrValidation, addr)
	}
	if parsed.Address != strings.TrimSpace(addr) {
		return fmt.Errorf("%w: email address %q must not carry a display name", ErrValidation, addr)
	}
	return nil
}

// UserNotification is the durable audit record of an attempted send.
type UserNotification struct {
	ID           string
	Username     string
	Subject      string
	Body         string
	EmailSentInd bool
	CreatedAt    time.Time
}
