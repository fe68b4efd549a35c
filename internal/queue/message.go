package queue

import (
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/housing-engine/internal/domain"
)

// EmailMessage is the broker payload for queued email delivery.
type EmailMessage struct {
	ID            string         `json:"id"`
	CorrelationID string         `json:"correlationId,omitempty"`
	Kind          string         `json:"kind,omitempty"`
	Internal      bool           `json:"internal,omitempty"`
	Message       domain.Message `json:"message"`
	EnqueuedAt    time.Time      `json:"enqueuedAt"`
}

// Validate checks the envelope only. Message content is validated by the
// delivery gateway so that incomplete messages still produce an audit record.
func (m EmailMessage) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("id is required")
	}
	if m.EnqueuedAt.IsZero() {
		return fmt.Errorf("enqueuedAt is required")
	}
	return nil
}
