// Package composer turns a notification kind and its context values into an
// outbound Message using the active NotificationConfig for that kind.
package composer

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/kursadbilgin/housing-engine/internal/domain"
	"github.com/kursadbilgin/housing-engine/internal/observability"
	"github.com/kursadbilgin/housing-engine/internal/template"
	"go.uber.org/zap"
)

// DateLayout formats SUBDATE and DUEDATE values.
const DateLayout = "January 2, 2006"

const (
	htmlOpen  = "<html><body><p>"
	htmlClose = "</p></body></html>"
)

// ConfigLookup finds the single active config for a (category, title) key.
type ConfigLookup interface {
	GetActive(ctx context.Context, category domain.Category, title string) (*domain.NotificationConfig, error)
}

// Request is one message to compose.
type Request struct {
	Kind Kind
	// Username links the audit record; empty disables auditing.
	Username string
	// To is the addressee for applicant and agent kinds. Internal kinds
	// ignore it and use the config's notification list.
	To     string
	Values template.Values
}

type Composer struct {
	configs ConfigLookup
	logger  *zap.Logger
}

func NewComposer(configs ConfigLookup, logger *zap.Logger) (*Composer, error) {
	if configs == nil {
		return nil, errors.New("composer: config lookup is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Composer{configs: configs, logger: logger}, nil
}

// Compose builds the Message for req. A missing or inactive config is
// returned as an error wrapping domain.ErrNotFound; no body is fabricated.
func (c *Composer) Compose(ctx context.Context, req Request) (domain.Message, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := observability.WithContextLogger(c.logger, ctx).With(zap.String("kind", req.Kind.String()))

	spec, ok := req.Kind.Spec()
	if !ok {
		return domain.Message{}, fmt.Errorf("%w: unknown notification kind %q", domain.ErrValidation, req.Kind)
	}
	if missing := template.Missing(req.Values, spec.Required); len(missing) > 0 {
		return domain.Message{}, fmt.Errorf("%w: notification kind %s requires %s",
			domain.ErrValidation, req.Kind, joinTokens(missing))
	}

	cfg, err := c.configs.GetActive(ctx, spec.Category, spec.Title)
	if err != nil {
		logger.Error("notification config lookup failed",
			zap.String("category", spec.Category.String()),
			zap.String("title", spec.Title),
			zap.Error(err),
		)
		return domain.Message{}, fmt.Errorf("notification config %s/%q: %w", spec.Category, spec.Title, err)
	}

	rendered := template.Render(cfg.Text, req.Values)
	body := template.Render(cfg.Text, escapeValues(req.Values))
	if len(rendered.Unresolved) > 0 {
		logger.Warn("notification template has unresolved tokens",
			zap.String("category", spec.Category.String()),
			zap.String("title", spec.Title),
			zap.Strings("unresolvedTokens", rendered.Unresolved),
		)
	}

	msg := domain.Message{
		Subject:          cfg.Title,
		Body:             htmlOpen + body.Text + htmlClose,
		IsHTML:           true,
		Username:         strings.TrimSpace(req.Username),
		NotificationBody: rendered.Text,
	}
	if msg.Username == "" {
		msg.NotificationBody = ""
	}

	if spec.Category == domain.CategoryInternal {
		msg.To = domain.JoinAddresses(cfg.NotificationList)
	} else {
		msg.To = domain.JoinAddresses(req.To)
		msg.BCC = domain.JoinAddresses(cfg.NotificationList)
	}

	return msg, nil
}

// escapeValues returns a copy of values safe to place in the HTML body.
// The stored NotificationBody keeps the values as supplied.
func escapeValues(values template.Values) template.Values {
	escaped := make(template.Values, len(values))
	for token, v := range values {
		escaped[token] = html.EscapeString(v)
	}
	return escaped
}

// FormatDate renders a timestamp the way notification templates expect.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

func joinTokens(tokens []template.Token) string {
	parts := make([]string, 0, len(tokens))
	for _, t := range tokens {
		parts = append(parts, string(t))
	}
	return strings.Join(parts, ", ")
}
