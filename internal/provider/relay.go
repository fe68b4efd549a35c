package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/housing-engine/internal/domain"
)

const defaultRelayTimeout = 10 * time.Second

type relayRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	CC      []string `json:"cc,omitempty"`
	BCC     []string `json:"bcc,omitempty"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
	IsHTML  bool     `json:"isHtml"`
}

// RelayTransport posts messages to an HTTP mail relay as JSON.
type RelayTransport struct {
	client   *resty.Client
	endpoint string
	from     string
}

func NewRelayTransport(endpoint, from string, timeout time.Duration) (*RelayTransport, error) {
	if timeout <= 0 {
		timeout = defaultRelayTimeout
	}
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetRetryCount(0)

	return NewRelayTransportWithClient(endpoint, from, client)
}

func NewRelayTransportWithClient(endpoint, from string, client *resty.Client) (*RelayTransport, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("mail relay endpoint is required")
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid mail relay endpoint: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultRelayTimeout)
	}
	// Retries belong to the dispatch queue, not the transport.
	client.SetRetryCount(0)

	return &RelayTransport{
		client:   client,
		endpoint: trimmedEndpoint,
		from:     strings.TrimSpace(from),
	}, nil
}

func (t *RelayTransport) Name() string { return "relay" }

func (t *RelayTransport) Send(ctx context.Context, msg domain.Message) (*Receipt, error) {
	if t == nil || t.client == nil {
		return nil, fmt.Errorf("relay transport is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	from := t.from
	if strings.TrimSpace(msg.From) != "" {
		from = strings.TrimSpace(msg.From)
	}

	reqBody := relayRequest{
		From:    from,
		To:      msg.ToAddresses(),
		CC:      msg.CCAddresses(),
		BCC:     msg.BCCAddresses(),
		Subject: msg.Subject,
		Body:    msg.Body,
		IsHTML:  msg.IsHTML,
	}

	response, err := t.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		Post(t.endpoint)
	if err != nil {
		return nil, &TransportError{
			Stage:     "relay",
			Message:   "relay request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response == nil {
		return nil, &TransportError{
			Stage:     "relay",
			Message:   "relay returned empty response",
			Transient: true,
		}
	}

	statusCode := response.StatusCode()
	responseBody := strings.TrimSpace(response.String())

	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return &Receipt{
			StatusCode: statusCode,
			MessageID:  relayMessageID(response),
		}, nil
	}

	return nil, &TransportError{
		Stage:      "relay",
		StatusCode: statusCode,
		Message:    relayErrorMessage(statusCode, responseBody),
		Transient:  isTransientHTTPStatus(statusCode),
	}
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

func relayErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("relay returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}

func relayMessageID(response *resty.Response) string {
	if response == nil {
		return ""
	}

	for _, key := range []string{"X-Message-ID", "X-Message-Id", "X-Request-ID", "X-Request-Id"} {
		if value := strings.TrimSpace(response.Header().Get(key)); value != "" {
			return value
		}
	}

	return ""
}
