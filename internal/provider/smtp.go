package provider

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/housing-engine/internal/domain"
)

const defaultSMTPTimeout = 10 * time.Second

// SMTPTransport sends mail through a single SMTP relay. Each Send opens a
// fresh connection: connect, optional STARTTLS, optional AUTH, send, QUIT.
type SMTPTransport struct {
	settings  domain.SMTPSettings
	timeout   time.Duration
	tlsConfig *tls.Config
	dial      func(ctx context.Context, network, addr string) (net.Conn, error)
	now       func() time.Time
}

func NewSMTPTransport(settings domain.SMTPSettings, timeout time.Duration) (*SMTPTransport, error) {
	if verr := settings.Validate(); verr != nil {
		return nil, verr
	}
	if timeout <= 0 {
		timeout = defaultSMTPTimeout
	}

	dialer := &net.Dialer{Timeout: timeout}
	return &SMTPTransport{
		settings: settings,
		timeout:  timeout,
		tlsConfig: &tls.Config{
			ServerName: settings.Host,
			MinVersion: tls.VersionTLS12,
		},
		dial: dialer.DialContext,
		now:  time.Now,
	}, nil
}

func (t *SMTPTransport) Name() string { return "smtp" }

func (t *SMTPTransport) Send(ctx context.Context, msg domain.Message) (*Receipt, error) {
	if t == nil || t.dial == nil {
		return nil, fmt.Errorf("smtp transport is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	addr := net.JoinHostPort(t.settings.Host, strconv.Itoa(t.settings.Port))
	conn, err := t.dial(ctx, "tcp", addr)
	if err != nil {
		return nil, smtpError("dial", err)
	}

	deadline := t.now().Add(t.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := conn.SetDeadline(deadline); err != nil {
		_ = conn.Close()
		return nil, smtpError("dial", err)
	}

	client, err := smtp.NewClient(conn, t.settings.Host)
	if err != nil {
		_ = conn.Close()
		return nil, smtpError("greeting", err)
	}
	defer client.Close()

	if t.settings.StartTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(t.tlsConfig); err != nil {
				return nil, smtpError("starttls", err)
			}
		}
	}

	if t.settings.AuthRequired {
		if ok, _ := client.Extension("AUTH"); !ok {
			return nil, &TransportError{Stage: "auth", Message: "server does not support AUTH"}
		}
		auth := smtp.PlainAuth("", t.settings.Username, t.settings.Password, t.settings.Host)
		if err := client.Auth(auth); err != nil {
			return nil, smtpError("auth", err)
		}
	}

	from := t.settings.FromAddress
	if strings.TrimSpace(msg.From) != "" {
		from = strings.TrimSpace(msg.From)
	}
	if err := client.Mail(from); err != nil {
		return nil, smtpError("mail", err)
	}
	for _, rcpt := range msg.Recipients() {
		if err := client.Rcpt(rcpt); err != nil {
			return nil, smtpError("rcpt", err)
		}
	}

	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), t.settings.Host)
	payload, err := buildMIME(from, msg, messageID, t.now())
	if err != nil {
		return nil, smtpError("data", err)
	}

	w, err := client.Data()
	if err != nil {
		return nil, smtpError("data", err)
	}
	if _, err := w.Write(payload); err != nil {
		_ = w.Close()
		return nil, smtpError("data", err)
	}
	if err := w.Close(); err != nil {
		return nil, smtpError("data", err)
	}

	// The relay owns the message once DATA is accepted. A failed QUIT only
	// leaves the connection for the deferred Close.
	_ = client.Quit()

	return &Receipt{StatusCode: 250, MessageID: messageID}, nil
}

// buildMIME renders a single-part message. Bcc recipients are envelope-only
// and never written to the headers.
func buildMIME(from string, msg domain.Message, messageID string, now time.Time) ([]byte, error) {
	var buf bytes.Buffer

	contentType := "text/plain"
	if msg.IsHTML {
		contentType = "text/html"
	}

	writeHeader(&buf, "From", from)
	writeHeader(&buf, "To", strings.Join(msg.ToAddresses(), ", "))
	if cc := msg.CCAddresses(); len(cc) > 0 {
		writeHeader(&buf, "Cc", strings.Join(cc, ", "))
	}
	writeHeader(&buf, "Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	writeHeader(&buf, "Date", now.Format(time.RFC1123Z))
	writeHeader(&buf, "Message-ID", messageID)
	writeHeader(&buf, "MIME-Version", "1.0")
	writeHeader(&buf, "Content-Type", contentType+"; charset=UTF-8")
	writeHeader(&buf, "Content-Transfer-Encoding", "quoted-printable")
	buf.WriteString("\r\n")

	qp := quotedprintable.NewWriter(&buf)
	if _, err := qp.Write([]byte(msg.Body)); err != nil {
		return nil, err
	}
	if err := qp.Close(); err != nil {
		return nil, err
	}
	buf.WriteString("\r\n")

	return buf.Bytes(), nil
}

func writeHeader(buf *bytes.Buffer, key, value string) {
	buf.WriteString(key)
	buf.WriteString(": ")
	buf.WriteString(value)
	buf.WriteString("\r\n")
}
