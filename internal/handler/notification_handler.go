package handler

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/housing-engine/internal/composer"
	"github.com/kursadbilgin/housing-engine/internal/domain"
	"github.com/kursadbilgin/housing-engine/internal/template"
)

type NotificationService interface {
	Notify(ctx context.Context, req composer.Request) (domain.Message, error)
	History(ctx context.Context, username string, limit int) ([]domain.UserNotification, error)
}

type NotificationHandler struct {
	service NotificationService
}

func NewNotificationHandler(service NotificationService) (*NotificationHandler, error) {
	if service == nil {
		return nil, errors.New("notification service is required")
	}
	return &NotificationHandler{service: service}, nil
}

func RegisterNotificationRoutes(router fiber.Router, service NotificationService) error {
	h, err := NewNotificationHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/notifications", h.SendNotification)
	v1.Get("/users/:username/notifications", h.ListUserNotifications)

	return nil
}

type sendNotificationRequest struct {
	Kind     string            `json:"kind"`
	Username string            `json:"username"`
	To       string            `json:"to"`
	Values   map[string]string `json:"values"`
}

type sendNotificationResponse struct {
	Kind    string `json:"kind"`
	To      string `json:"to"`
	CC      string `json:"cc,omitempty"`
	BCC     string `json:"bcc,omitempty"`
	Subject string `json:"subject"`
}

type userNotificationResponse struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Subject      string    `json:"subject"`
	Body         string    `json:"body"`
	EmailSentInd bool      `json:"emailSentInd"`
	CreatedAt    time.Time `json:"createdAt"`
}

type listUserNotificationsResponse struct {
	Data []userNotificationResponse `json:"data"`
}

// SendNotification composes and sends one message. 202 means the message
// was handed to delivery: sent inline, or accepted by the queue.
func (h *NotificationHandler) SendNotification(c *fiber.Ctx) error {
	var req sendNotificationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	kind, err := composer.ParseKindFromString(req.Kind)
	if err != nil {
		return toHTTPError(err)
	}

	values := make(template.Values, len(req.Values))
	for k, v := range req.Values {
		values[template.Token(strings.ToUpper(strings.TrimSpace(k)))] = v
	}

	msg, err := h.service.Notify(c.UserContext(), composer.Request{
		Kind:     kind,
		Username: strings.TrimSpace(req.Username),
		To:       strings.TrimSpace(req.To),
		Values:   values,
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusAccepted).JSON(sendNotificationResponse{
		Kind:    kind.String(),
		To:      msg.To,
		CC:      msg.CC,
		BCC:     msg.BCC,
		Subject: msg.Subject,
	})
}

func (h *NotificationHandler) ListUserNotifications(c *fiber.Ctx) error {
	username := strings.TrimSpace(c.Params("username"))
	records, err := h.service.History(c.UserContext(), username, c.QueryInt("limit", 0))
	if err != nil {
		return toHTTPError(err)
	}

	data := make([]userNotificationResponse, 0, len(records))
	for _, r := range records {
		data = append(data, userNotificationResponse{
			ID:           r.ID,
			Username:     r.Username,
			Subject:      r.Subject,
			Body:         r.Body,
			EmailSentInd: r.EmailSentInd,
			CreatedAt:    r.CreatedAt,
		})
	}

	return c.Status(fiber.StatusOK).JSON(listUserNotificationsResponse{Data: data})
}
