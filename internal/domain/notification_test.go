package domain

import (
	"errors"
	"testing"
)

func TestParseCategoryFromString(t *testing.T) {
	t.Parallel()

	got, err := ParseCategoryFromString(" INTERNAL ")
	if err != nil {
		t.Fatalf("ParseCategoryFromString() unexpected error = %v", err)
	}
	if got != CategoryInternal {
		t.Fatalf("ParseCategoryFromString() = %s, want %s", got, CategoryInternal)
	}

	_, err = ParseCategoryFromString("internal")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("ParseCategoryFromString(lowercase) error = %v, want ErrValidation", err)
	}
}

func TestSplitAddresses(t *testing.T) {
	t.Parallel()

	got := SplitAddresses(" a@example.com, ,b@example.com ,,")
	if len(got) != 2 {
		t.Fatalf("SplitAddresses() len = %d, want 2 (%v)", len(got), got)
	}
	if got[0] != "a@example.com" || got[1] != "b@example.com" {
		t.Fatalf("SplitAddresses() = %v", got)
	}

	if got := SplitAddresses("   "); len(got) != 0 {
		t.Fatalf("SplitAddresses(blank) = %v, want empty", got)
	}

	if got := JoinAddresses("a@example.com, ", "", " b@example.com"); got != "a@example.com,b@example.com" {
		t.Fatalf("JoinAddresses() = %q", got)
	}
}

func TestValidateMessageOrder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		msg  Message
		want DeliveryCode
	}{
		{name: "no recipients", msg: Message{Subject: "s", Body: "b"}, want: DeliveryNoToAddress},
		{name: "blank recipients only", msg: Message{To: " , ", Subject: "s", Body: "b"}, want: DeliveryNoToAddress},
		{name: "malformed bcc", msg: Message{To: "a@example.com", BCC: "not-an-address", Subject: "s", Body: "b"}, want: DeliveryNoToAddress},
		{name: "no subject", msg: Message{To: "a@example.com", Body: "b"}, want: DeliveryNoSubject},
		{name: "no subject or body", msg: Message{To: "a@example.com"}, want: DeliveryNoSubject},
		{name: "no body", msg: Message{To: "a@example.com", Subject: "s"}, want: DeliveryNoBody},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			derr := ValidateMessage(tt.msg)
			if derr == nil {
				t.Fatal("ValidateMessage() = nil, want error")
			}
			if derr.Code != tt.want {
				t.Fatalf("ValidateMessage() code = %s, want %s", derr.Code, tt.want)
			}
			var err error = derr
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("errors.Is(%v, ErrValidation) = false", err)
			}
		})
	}

	if derr := ValidateMessage(Message{To: "a@example.com", Subject: "s", Body: "b"}); derr != nil {
		t.Fatalf("ValidateMessage(valid) = %v", derr)
	}
}

func TestSMTPSettingsValidateOrder(t *testing.T) {
	t.Parallel()

	valid := SMTPSettings{
		Host:         "smtp.example.com",
		Port:         587,
		AuthRequired: true,
		Username:     "mailer",
		Password:     "secret",
		FromAddress:  "noreply@example.com",
	}

	tests := []struct {
		name   string
		mutate func(*SMTPSettings)
		want   DeliveryCode
	}{
		{name: "no host", mutate: func(s *SMTPSettings) { s.Host = " " }, want: DeliveryNoHost},
		{name: "no host and no port", mutate: func(s *SMTPSettings) { s.Host = ""; s.Port = 0 }, want: DeliveryNoHost},
		{name: "zero port", mutate: func(s *SMTPSettings) { s.Port = 0 }, want: DeliveryInvalidPort},
		{name: "port out of range", mutate: func(s *SMTPSettings) { s.Port = 70000 }, want: DeliveryInvalidPort},
		{name: "no username", mutate: func(s *SMTPSettings) { s.Username = "" }, want: DeliveryNoUsername},
		{name: "no password", mutate: func(s *SMTPSettings) { s.Password = "" }, want: DeliveryNoPassword},
		{name: "no from", mutate: func(s *SMTPSettings) { s.FromAddress = "" }, want: DeliveryNoFromAddress},
		{name: "malformed from", mutate: func(s *SMTPSettings) { s.FromAddress = "nobody" }, want: DeliveryNoFromAddress},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			current := valid
			tt.mutate(&current)
			derr := current.Validate()
			if derr == nil || derr.Code != tt.want {
				t.Fatalf("Validate() = %v, want code %s", derr, tt.want)
			}
		})
	}

	anonymous := valid
	anonymous.AuthRequired = false
	anonymous.Username = ""
	anonymous.Password = ""
	if derr := anonymous.Validate(); derr != nil {
		t.Fatalf("Validate() without auth = %v, want nil", derr)
	}

	var missing *SMTPSettings
	if derr := missing.Validate(); derr == nil || derr.Code != DeliveryNoSettings {
		t.Fatalf("Validate(nil) = %v, want E001", derr)
	}
}

func TestDeliveryErrorTransportIsNotValidation(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")
	var err error = &DeliveryError{Code: DeliveryTransportFailure, Cause: cause}

	if errors.Is(err, ErrValidation) {
		t.Fatal("transport failure must not be a validation error")
	}
	if !errors.Is(err, cause) {
		t.Fatal("transport failure should unwrap to its cause")
	}
}
