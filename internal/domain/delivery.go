package domain

import (
	"fmt"
	"strings"
)

// DeliveryCode identifies why an email was not delivered.
type DeliveryCode string

const (
	DeliveryNoSettings       DeliveryCode = "E001"
	DeliveryNoHost           DeliveryCode = "E002"
	DeliveryInvalidPort      DeliveryCode = "E003"
	DeliveryNoUsername       DeliveryCode = "E004"
	DeliveryNoPassword       DeliveryCode = "E005"
	DeliveryNoFromAddress    DeliveryCode = "E006"
	DeliveryNoToAddress      DeliveryCode = "E007"
	DeliveryNoSubject        DeliveryCode = "E008"
	DeliveryNoBody           DeliveryCode = "E009"
	DeliveryTransportFailure DeliveryCode = "E010"
)

var deliveryDescriptions = map[DeliveryCode]string{
	DeliveryNoSettings:       "smtp settings are not configured",
	DeliveryNoHost:           "smtp host is not configured",
	DeliveryInvalidPort:      "smtp port is missing or invalid",
	DeliveryNoUsername:       "smtp username is required when authentication is enabled",
	DeliveryNoPassword:       "smtp password is required when authentication is enabled",
	DeliveryNoFromAddress:    "from address is not configured",
	DeliveryNoToAddress:      "message has no valid to address",
	DeliveryNoSubject:        "message has no subject",
	DeliveryNoBody:           "message has no body",
	DeliveryTransportFailure: "system exception while sending email",
}

func (c DeliveryCode) String() string { return string(c) }

func (c DeliveryCode) Description() string {
	return deliveryDescriptions[c]
}

// IsValidation reports whether the code is a local validation failure.
func (c DeliveryCode) IsValidation() bool {
	return c != DeliveryTransportFailure && c.Description() != ""
}

// DeliveryError is returned by the delivery gateway for any failed send.
type DeliveryError struct {
	Code    DeliveryCode
	Message string
	Cause   error
}

func (e *DeliveryError) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := []string{string(e.Code), e.Code.Description()}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *DeliveryError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func (e *DeliveryError) Is(target error) bool {
	return target == ErrValidation && e.Code.IsValidation()
}

func NewDeliveryError(code DeliveryCode, format string, args ...any) *DeliveryError {
	return &DeliveryError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// SMTPSettings describes the deployment's outbound mail server and sender.
type SMTPSettings struct {
	Host         string
	Port         int
	AuthRequired bool
	Username     string
	Password     string
	FromAddress  string
	StartTLS     bool
}

// Validate applies the settings checks in their documented order.
func (s *SMTPSettings) Validate() *DeliveryError {
	if s == nil {
		return &DeliveryError{Code: DeliveryNoSettings}
	}
	if strings.TrimSpace(s.Host) == "" {
		return &DeliveryError{Code: DeliveryNoHost}
	}
	if s.Port <= 0 || s.Port > 65535 {
		return NewDeliveryError(DeliveryInvalidPort, "port %d", s.Port)
	}
	if s.AuthRequired && strings.TrimSpace(s.Username) == "" {
		return &DeliveryError{Code: DeliveryNoUsername}
	}
	if s.AuthRequired && s.Password == "" {
		return &DeliveryError{Code: DeliveryNoPassword}
	}
	if strings.TrimSpace(s.FromAddress) == "" {
		return &DeliveryError{Code: DeliveryNoFromAddress}
	}
	if err := ValidateAddress(strings.TrimSpace(s.FromAddress)); err != nil {
		return &DeliveryError{Code: DeliveryNoFromAddress, Message: err.Error()}
	}
	return nil
}

// ValidateMessage applies the message checks in their documented order.
func ValidateMessage(m Message) *DeliveryError {
	to := m.ToAddresses()
	if len(to) == 0 {
		return &DeliveryError{Code: DeliveryNoToAddress}
	}
	for _, addr := range m.Recipients() {
		if err := ValidateAddress(addr); err != nil {
			return &DeliveryError{Code: DeliveryNoToAddress, Message: err.Error()}
		}
	}
	if strings.TrimSpace(m.Subject) == "" {
		return &DeliveryError{Code: DeliveryNoSubject}
	}
	if strings.TrimSpace(m.Body) == "" {
		return &DeliveryError{Code: DeliveryNoBody}
	}
	return nil
}
