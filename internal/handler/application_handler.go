package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/housing-engine/internal/domain"
	"github.com/kursadbilgin/housing-engine/internal/matcher"
)

const dateOfBirthLayout = "2006-01-02"

type ApplicationService interface {
	Create(ctx context.Context, app *domain.ApplicationRecord) (*domain.ApplicationRecord, error)
	Get(ctx context.Context, id int64) (*domain.ApplicationRecord, error)
	Submit(ctx context.Context, id int64) (*domain.ApplicationRecord, error)
	Waitlist(ctx context.Context, id int64) (*domain.ApplicationRecord, error)
	MarkPotentialDuplicate(ctx context.Context, id int64, reason string) (*domain.ApplicationRecord, error)
	ConfirmDuplicate(ctx context.Context, id int64, reason string) (*domain.ApplicationRecord, error)
	ClearDuplicateFlag(ctx context.Context, id int64) (*domain.ApplicationRecord, error)
	Withdraw(ctx context.Context, id int64) (*domain.ApplicationRecord, error)
	Disqualify(ctx context.Context, id int64, code string, reason string) (*domain.ApplicationRecord, error)
	DuplicateMatches(ctx context.Context, id int64) (matcher.Result, error)
}

type ApplicationHandler struct {
	service ApplicationService
}

func NewApplicationHandler(service ApplicationService) (*ApplicationHandler, error) {
	if service == nil {
		return nil, errors.New("application service is required")
	}
	return &ApplicationHandler{service: service}, nil
}

func RegisterApplicationRoutes(router fiber.Router, service ApplicationService) error {
	h, err := NewApplicationHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1/applications")
	v1.Post("/", h.CreateApplication)
	v1.Get("/:id", h.GetApplication)
	v1.Get("/:id/duplicate-matches", h.GetDuplicateMatches)
	v1.Post("/:id/submit", h.transition(func(ctx context.Context, id int64, _ transitionRequest) (*domain.ApplicationRecord, error) {
		return h.service.Submit(ctx, id)
	}))
	v1.Post("/:id/waitlist", h.transition(func(ctx context.Context, id int64, _ transitionRequest) (*domain.ApplicationRecord, error) {
		return h.service.Waitlist(ctx, id)
	}))
	v1.Post("/:id/withdraw", h.transition(func(ctx context.Context, id int64, _ transitionRequest) (*domain.ApplicationRecord, error) {
		return h.service.Withdraw(ctx, id)
	}))
	v1.Post("/:id/disqualify", h.transition(func(ctx context.Context, id int64, req transitionRequest) (*domain.ApplicationRecord, error) {
		return h.service.Disqualify(ctx, id, req.Code, req.Reason)
	}))
	v1.Post("/:id/duplicate/potential", h.transition(func(ctx context.Context, id int64, req transitionRequest) (*domain.ApplicationRecord, error) {
		return h.service.MarkPotentialDuplicate(ctx, id, req.Reason)
	}))
	v1.Post("/:id/duplicate/confirm", h.transition(func(ctx context.Context, id int64, req transitionRequest) (*domain.ApplicationRecord, error) {
		return h.service.ConfirmDuplicate(ctx, id, req.Reason)
	}))
	v1.Post("/:id/duplicate/clear", h.transition(func(ctx context.Context, id int64, _ transitionRequest) (*domain.ApplicationRecord, error) {
		return h.service.ClearDuplicateFlag(ctx, id)
	}))

	return nil
}

type addressPayload struct {
	StreetLine1 *string `json:"streetLine1,omitempty"`
	StreetLine2 *string `json:"streetLine2,omitempty"`
	StreetLine3 *string `json:"streetLine3,omitempty"`
	City        *string `json:"city,omitempty"`
	StateCd     *string `json:"stateCd,omitempty"`
	ZipCode     *string `json:"zipCode,omitempty"`
	County      *string `json:"county,omitempty"`
}

type createApplicationRequest struct {
	ListingID      int64          `json:"listingId"`
	Username       string         `json:"username"`
	SubmissionType string         `json:"submissionType"`
	FirstName      *string        `json:"firstName"`
	MiddleName     *string        `json:"middleName"`
	LastName       *string        `json:"lastName"`
	Suffix         *string        `json:"suffix"`
	SSNLast4       *string        `json:"ssnLast4"`
	DateOfBirth    string         `json:"dateOfBirth"`
	Email          *string        `json:"email"`
	Phone          *string        `json:"phone"`
	Address        addressPayload `json:"address"`
	ReceivedDate   *time.Time     `json:"receivedDate"`
}

// transitionRequest is the optional body of a transition call.
type transitionRequest struct {
	Reason string `json:"reason"`
	Code   string `json:"code"`
}

type applicationResponse struct {
	ID                            int64          `json:"id"`
	ListingID                     int64          `json:"listingId"`
	Username                      string         `json:"username"`
	Status                        string         `json:"status"`
	StoredStatus                  string         `json:"storedStatus"`
	SubmissionType                string         `json:"submissionType"`
	ApplicantName                 string         `json:"applicantName"`
	Email                         *string        `json:"email,omitempty"`
	Phone                         *string        `json:"phone,omitempty"`
	Address                       addressPayload `json:"address"`
	DuplicateCheckCd              *string        `json:"duplicateCheckCd,omitempty"`
	DuplicateReason               *string        `json:"duplicateReason,omitempty"`
	DuplicateCheckResponseDueDate *time.Time     `json:"duplicateCheckResponseDueDate,omitempty"`
	DisqualifiedInd               bool           `json:"disqualifiedInd"`
	DisqualificationCd            *string        `json:"disqualificationCd,omitempty"`
	DisqualificationReason        *string        `json:"disqualificationReason,omitempty"`
	SubmittedDate                 *time.Time     `json:"submittedDate,omitempty"`
	ReceivedDate                  *time.Time     `json:"receivedDate,omitempty"`
	WithdrawnDate                 *time.Time     `json:"withdrawnDate,omitempty"`
	CreatedAt                     time.Time      `json:"createdAt,omitempty"`
	UpdatedAt                     time.Time      `json:"updatedAt,omitempty"`
}

type duplicateBucketResponse struct {
	Dimension      string  `json:"dimension"`
	Count          int     `json:"count"`
	ApplicationIDs []int64 `json:"applicationIds"`
}

type duplicateMatchesResponse struct {
	ApplicationID int64                     `json:"applicationId"`
	HasMatch      bool                      `json:"hasMatch"`
	StrongMatch   bool                      `json:"strongMatch"`
	Reason        string                    `json:"reason,omitempty"`
	Buckets       []duplicateBucketResponse `json:"buckets"`
}

func (h *ApplicationHandler) CreateApplication(c *fiber.Ctx) error {
	var req createApplicationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	app, err := requestToApplication(req)
	if err != nil {
		return toHTTPError(err)
	}

	created, err := h.service.Create(c.UserContext(), &app)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(toApplicationResponse(created))
}

func (h *ApplicationHandler) GetApplication(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return toHTTPError(err)
	}

	app, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toApplicationResponse(app))
}

func (h *ApplicationHandler) GetDuplicateMatches(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return toHTTPError(err)
	}

	result, err := h.service.DuplicateMatches(c.UserContext(), id)
	if err != nil {
		return toHTTPError(err)
	}

	buckets := make([]duplicateBucketResponse, 0, len(matcher.Dimensions))
	for _, d := range matcher.Dimensions {
		b := result.Bucket(d)
		ids := b.ApplicationIDs
		if ids == nil {
			ids = []int64{}
		}
		buckets = append(buckets, duplicateBucketResponse{
			Dimension:      d.String(),
			Count:          b.Count,
			ApplicationIDs: ids,
		})
	}

	return c.Status(fiber.StatusOK).JSON(duplicateMatchesResponse{
		ApplicationID: id,
		HasMatch:      result.HasMatch(),
		StrongMatch:   result.StrongMatch(),
		Reason:        result.Reason(),
		Buckets:       buckets,
	})
}

// transition wraps a lifecycle call that takes an optional JSON body.
func (h *ApplicationHandler) transition(
	apply func(ctx context.Context, id int64, req transitionRequest) (*domain.ApplicationRecord, error),
) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return toHTTPError(err)
		}

		var req transitionRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
			}
		}

		app, err := apply(c.UserContext(), id, req)
		if err != nil {
			return toHTTPError(err)
		}

		return c.Status(fiber.StatusOK).JSON(toApplicationResponse(app))
	}
}

func requestToApplication(req createApplicationRequest) (domain.ApplicationRecord, error) {
	app := domain.ApplicationRecord{
		ListingID: req.ListingID,
		Username:  strings.TrimSpace(req.Username),
		Name: domain.NameFields{
			FirstName:  domain.OptionalText(req.FirstName),
			MiddleName: domain.OptionalText(req.MiddleName),
			LastName:   domain.OptionalText(req.LastName),
			Suffix:     domain.OptionalText(req.Suffix),
		},
		SSNLast4: domain.OptionalText(req.SSNLast4),
		Email:    domain.OptionalText(req.Email),
		Phone:    domain.OptionalText(req.Phone),
		Address: domain.AddressFields{
			StreetLine1: domain.OptionalText(req.Address.StreetLine1),
			StreetLine2: domain.OptionalText(req.Address.StreetLine2),
			StreetLine3: domain.OptionalText(req.Address.StreetLine3),
			City:        domain.OptionalText(req.Address.City),
			StateCd:     domain.OptionalText(req.Address.StateCd),
			ZipCode:     domain.OptionalText(req.Address.ZipCode),
			County:      domain.OptionalText(req.Address.County),
		},
		ReceivedDate: req.ReceivedDate,
	}

	if raw := strings.TrimSpace(req.SubmissionType); raw != "" {
		t, err := domain.ParseSubmissionTypeFromString(raw)
		if err != nil {
			return domain.ApplicationRecord{}, err
		}
		app.SubmissionType = t
	}

	if raw := strings.TrimSpace(req.DateOfBirth); raw != "" {
		dob, err := time.Parse(dateOfBirthLayout, raw)
		if err != nil {
			return domain.ApplicationRecord{}, fmt.Errorf("%w: dateOfBirth must be YYYY-MM-DD", domain.ErrValidation)
		}
		app.DateOfBirth = &dob
	}

	return app, nil
}

// toApplicationResponse never exposes the SSN suffix or date of birth.
func toApplicationResponse(a *domain.ApplicationRecord) applicationResponse {
	if a == nil {
		return applicationResponse{}
	}

	resp := applicationResponse{
		ID:             a.ID,
		ListingID:      a.ListingID,
		Username:       a.Username,
		Status:         a.CurrentStatus().String(),
		StoredStatus:   a.StatusCd.String(),
		SubmissionType: a.SubmissionType.String(),
		ApplicantName:  a.ApplicantName(),
		Email:          a.Email,
		Phone:          a.Phone,
		Address: addressPayload{
			StreetLine1: a.Address.StreetLine1,
			StreetLine2: a.Address.StreetLine2,
			StreetLine3: a.Address.StreetLine3,
			City:        a.Address.City,
			StateCd:     a.Address.StateCd,
			ZipCode:     a.Address.ZipCode,
			County:      a.Address.County,
		},
		DuplicateReason:               a.DuplicateReason,
		DuplicateCheckResponseDueDate: a.DuplicateCheckResponseDueDate,
		DisqualifiedInd:               a.DisqualifiedInd,
		DisqualificationCd:            a.DisqualificationCd,
		DisqualificationReason:        a.DisqualificationReason,
		SubmittedDate:                 a.SubmittedDate,
		ReceivedDate:                  a.ReceivedDate,
		WithdrawnDate:                 a.WithdrawnDate,
		CreatedAt:                     a.CreatedAt,
		UpdatedAt:                     a.UpdatedAt,
	}
	if a.DuplicateCheckCd != nil {
		flag := a.DuplicateCheckCd.String()
		resp.DuplicateCheckCd = &flag
	}
	return resp
}
