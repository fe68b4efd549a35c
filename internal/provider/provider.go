package provider

import (
	"context"

	"github.com/kursadbilgin/housing-engine/internal/domain"
)

// Transport delivers one composed email. A send either completes for every
// recipient or fails as a whole.
type Transport interface {
	Send(ctx context.Context, msg domain.Message) (*Receipt, error)
	Name() string
}

// Receipt stores transport metadata for logging.
type Receipt struct {
	StatusCode int
	MessageID  string
}
